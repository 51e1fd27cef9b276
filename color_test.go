package openjpeg

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// makeComponent builds a component from row-major samples.
func makeComponent(w, h, prec int, signed bool, samples ...int32) Component {
	return Component{
		Width:     w,
		Height:    h,
		DX:        1,
		DY:        1,
		Precision: prec,
		Signed:    signed,
		Plane:     planeFromSamples(samples, w, h),
	}
}

func TestPlaneFromSamples(t *testing.T) {
	c := makeComponent(3, 2, 8, false, 1, 2, 3, 4, 5, 6)

	assert.Equal(t, int32(1), c.Sample(0, 0))
	assert.Equal(t, int32(6), c.Sample(2, 1))
	// Out-of-range coordinates clamp to the edge.
	assert.Equal(t, int32(6), c.Sample(10, 10))
	assert.Equal(t, int32(1), c.Sample(-1, -1))
}

func TestScaleSample(t *testing.T) {
	tests := []struct {
		v          int64
		prec, bits int
		want       int64
	}{
		{15, 4, 8, 255},
		{0, 4, 8, 0},
		{8, 4, 8, 136},
		{200, 8, 8, 200},
		{300, 8, 8, 255},
		{-3, 8, 8, 0},
		{4095, 12, 16, 65535},
		{4095, 12, 8, 255},
		{255, 8, 16, 65535},
		{1, 1, 8, 255},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, scaleSample(tt.v, tt.prec, tt.bits), "scaleSample(%d, %d, %d)", tt.v, tt.prec, tt.bits)
	}
}

func TestToImage_Gray(t *testing.T) {
	img := &Image{
		ColorSpace: ColorSpaceGray,
		Components: []Component{makeComponent(2, 1, 8, false, 10, 250)},
	}

	out, err := img.ToImage()
	require.NoError(t, err)
	gray, ok := out.(*image.Gray)
	require.True(t, ok, "got %T", out)
	assert.Equal(t, image.Rect(0, 0, 2, 1), gray.Bounds())
	assert.Equal(t, []uint8{10, 250}, gray.Pix)
}

func TestToImage_SignedGray(t *testing.T) {
	img := &Image{
		Components: []Component{makeComponent(3, 1, 8, true, -128, 0, 127)},
	}

	out, err := img.ToImage()
	require.NoError(t, err)
	gray := out.(*image.Gray)
	assert.Equal(t, []uint8{0, 128, 255}, gray.Pix)
}

func TestToImage_Gray16(t *testing.T) {
	img := &Image{
		Components: []Component{makeComponent(2, 1, 12, false, 0, 4095)},
	}

	out, err := img.ToImage()
	require.NoError(t, err)
	gray, ok := out.(*image.Gray16)
	require.True(t, ok, "got %T", out)
	assert.Equal(t, color.Gray16{Y: 0}, gray.Gray16At(0, 0))
	assert.Equal(t, color.Gray16{Y: 0xFFFF}, gray.Gray16At(1, 0))
}

func TestToImage_GrayAlpha(t *testing.T) {
	img := &Image{
		Components: []Component{
			makeComponent(2, 1, 8, false, 77, 200),
			makeComponent(2, 1, 8, false, 0, 128),
		},
	}

	out, err := img.ToImage()
	require.NoError(t, err)
	nrgba, ok := out.(*image.NRGBA)
	require.True(t, ok, "got %T", out)
	assert.Equal(t, color.NRGBA{77, 77, 77, 0}, nrgba.NRGBAAt(0, 0))
	assert.Equal(t, color.NRGBA{200, 200, 200, 128}, nrgba.NRGBAAt(1, 0))
}

func TestToImage_GrayAlpha16(t *testing.T) {
	img := &Image{
		ColorSpace: ColorSpaceGray,
		Components: []Component{
			makeComponent(1, 1, 12, false, 4095),
			makeComponent(1, 1, 12, false, 0),
		},
	}

	out, err := img.ToImage()
	require.NoError(t, err)
	nrgba, ok := out.(*image.NRGBA64)
	require.True(t, ok, "got %T", out)
	assert.Equal(t, color.NRGBA64{0xFFFF, 0xFFFF, 0xFFFF, 0}, nrgba.NRGBA64At(0, 0))
}

func TestToImage_RGB(t *testing.T) {
	img := &Image{
		ColorSpace: ColorSpaceSRGB,
		Components: []Component{
			makeComponent(2, 1, 8, false, 255, 0),
			makeComponent(2, 1, 8, false, 128, 10),
			makeComponent(2, 1, 8, false, 0, 20),
		},
	}

	out, err := img.ToImage()
	require.NoError(t, err)
	rgba, ok := out.(*image.RGBA)
	require.True(t, ok, "got %T", out)
	assert.Equal(t, color.RGBA{255, 128, 0, 255}, rgba.RGBAAt(0, 0))
	assert.Equal(t, color.RGBA{0, 10, 20, 255}, rgba.RGBAAt(1, 0))
}

func TestToImage_RGBAWithAlpha(t *testing.T) {
	img := &Image{
		ColorSpace: ColorSpaceSRGB,
		Components: []Component{
			makeComponent(1, 1, 8, false, 200),
			makeComponent(1, 1, 8, false, 100),
			makeComponent(1, 1, 8, false, 50),
			makeComponent(1, 1, 8, false, 128),
		},
	}

	out, err := img.ToImage()
	require.NoError(t, err)
	nrgba, ok := out.(*image.NRGBA)
	require.True(t, ok, "got %T", out)
	assert.Equal(t, color.NRGBA{200, 100, 50, 128}, nrgba.NRGBAAt(0, 0))
}

func TestToImage_RGB16(t *testing.T) {
	img := &Image{
		Components: []Component{
			makeComponent(1, 1, 16, false, 0xFFFF),
			makeComponent(1, 1, 16, false, 0x1234),
			makeComponent(1, 1, 16, false, 0),
		},
	}

	out, err := img.ToImage()
	require.NoError(t, err)
	rgba, ok := out.(*image.RGBA64)
	require.True(t, ok, "got %T", out)
	assert.Equal(t, color.RGBA64{0xFFFF, 0x1234, 0, 0xFFFF}, rgba.RGBA64At(0, 0))
}

func TestToImage_CMYK(t *testing.T) {
	img := &Image{
		ColorSpace: ColorSpaceCMYK,
		Components: []Component{
			makeComponent(1, 1, 8, false, 1),
			makeComponent(1, 1, 8, false, 2),
			makeComponent(1, 1, 8, false, 3),
			makeComponent(1, 1, 8, false, 4),
		},
	}

	out, err := img.ToImage()
	require.NoError(t, err)
	cmyk, ok := out.(*image.CMYK)
	require.True(t, ok, "got %T", out)
	assert.Equal(t, color.CMYK{1, 2, 3, 4}, cmyk.CMYKAt(0, 0))
}

func TestToImage_SubsampledChroma(t *testing.T) {
	// 4x2 luma with 2x1 chroma planes.
	img := &Image{
		ColorSpace: ColorSpaceSRGB,
		Components: []Component{
			makeComponent(4, 2, 8, false, 0, 1, 2, 3, 4, 5, 6, 7),
			{Width: 2, Height: 1, DX: 2, DY: 2, Precision: 8, Plane: planeFromSamples([]int32{100, 200}, 2, 1)},
			{Width: 2, Height: 1, DX: 2, DY: 2, Precision: 8, Plane: planeFromSamples([]int32{10, 20}, 2, 1)},
		},
	}

	out, err := img.ToImage()
	require.NoError(t, err)
	rgba := out.(*image.RGBA)
	assert.Equal(t, color.RGBA{0, 100, 10, 255}, rgba.RGBAAt(0, 0))
	assert.Equal(t, color.RGBA{1, 100, 10, 255}, rgba.RGBAAt(1, 0))
	assert.Equal(t, color.RGBA{2, 200, 20, 255}, rgba.RGBAAt(2, 0))
	assert.Equal(t, color.RGBA{7, 200, 20, 255}, rgba.RGBAAt(3, 1))
}

func TestToImage_SYCCNeutral(t *testing.T) {
	// Centred chroma leaves R = G = B = Y.
	img := &Image{
		ColorSpace: ColorSpaceSYCC,
		Components: []Component{
			makeComponent(2, 1, 8, false, 50, 200),
			makeComponent(2, 1, 8, false, 128, 128),
			makeComponent(2, 1, 8, false, 128, 128),
		},
	}

	out, err := img.ToImage()
	require.NoError(t, err)
	rgba := out.(*image.RGBA)
	assert.Equal(t, color.RGBA{50, 50, 50, 255}, rgba.RGBAAt(0, 0))
	assert.Equal(t, color.RGBA{200, 200, 200, 255}, rgba.RGBAAt(1, 0))
}

func TestToImage_SYCCRed(t *testing.T) {
	// Cr above centre pushes red up and green down; blue is untouched.
	img := &Image{
		ColorSpace: ColorSpaceSYCC,
		Components: []Component{
			makeComponent(1, 1, 8, false, 100),
			makeComponent(1, 1, 8, false, 128),
			makeComponent(1, 1, 8, false, 178),
		},
	}

	out, err := img.ToImage()
	require.NoError(t, err)
	px := out.(*image.RGBA).RGBAAt(0, 0)
	assert.InDelta(t, 170, int(px.R), 1) // 100 + 1.402*50
	assert.InDelta(t, 64, int(px.G), 1)  // 100 - 0.714136*50
	assert.InDelta(t, 100, int(px.B), 1)
}

func TestToImage_Errors(t *testing.T) {
	_, err := (&Image{}).ToImage()
	require.ErrorIs(t, err, ErrNoComponents)

	headerOnly := &Image{Components: []Component{{Width: 4, Height: 4, Precision: 8}}}
	_, err = headerOnly.ToImage()
	require.ErrorIs(t, err, ErrDecodeFailed)
}
