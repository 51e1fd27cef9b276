package openjpeg

import (
	"bytes"
	"image"
	"image/color"
	"io"
	"os"

	hwyimage "github.com/ajroetker/go-highway/hwy/contrib/image"
)

// ColorSpace is the colour space reported by libopenjp2 (OPJ_COLOR_SPACE).
type ColorSpace int

const (
	ColorSpaceUnknown     ColorSpace = -1
	ColorSpaceUnspecified ColorSpace = 0
	ColorSpaceSRGB        ColorSpace = 1
	ColorSpaceGray        ColorSpace = 2
	ColorSpaceSYCC        ColorSpace = 3
	ColorSpaceEYCC        ColorSpace = 4
	ColorSpaceCMYK        ColorSpace = 5
)

func (cs ColorSpace) String() string {
	switch cs {
	case ColorSpaceUnspecified:
		return "unspecified"
	case ColorSpaceSRGB:
		return "sRGB"
	case ColorSpaceGray:
		return "gray"
	case ColorSpaceSYCC:
		return "sYCC"
	case ColorSpaceEYCC:
		return "e-YCC"
	case ColorSpaceCMYK:
		return "CMYK"
	}
	return "unknown"
}

// codecFormat selects the libopenjp2 decompressor.
type codecFormat int

const (
	formatJ2K codecFormat = iota // raw codestream (OPJ_CODEC_J2K)
	formatJP2                    // JP2 container (OPJ_CODEC_JP2)
)

var (
	jp2Magic = []byte("\x00\x00\x00\x0cjP  \x0d\x0a\x87\x0a")
	j2kMagic = []byte("\xff\x4f\xff\x51")
)

// detectFormat picks the codec from the leading bytes of data.
func detectFormat(data []byte) (codecFormat, error) {
	switch {
	case bytes.HasPrefix(data, jp2Magic):
		return formatJP2, nil
	case bytes.HasPrefix(data, j2kMagic):
		return formatJ2K, nil
	}
	return 0, ErrUnsupportedFormat
}

// DecodeOptions controls which part of the image libopenjp2 decodes.
type DecodeOptions struct {
	// Reduce discards the Reduce finest resolution levels; the output
	// dimensions are divided by 2^Reduce.
	Reduce int

	// MaxLayers limits the number of quality layers decoded. 0 decodes all.
	MaxLayers int

	// Area restricts decoding to a region in reference grid coordinates.
	// The zero rectangle decodes the whole image.
	Area image.Rectangle

	// Threads sets the number of libopenjp2 worker threads. 0 or 1 decodes
	// on the calling thread.
	Threads int
}

func (o DecodeOptions) normalized() DecodeOptions {
	if o.Reduce < 0 {
		o.Reduce = 0
	}
	if o.MaxLayers < 0 {
		o.MaxLayers = 0
	}
	if o.Threads < 0 {
		o.Threads = 0
	}
	o.Area = o.Area.Canon()
	return o
}

// Component is one decoded image component.
type Component struct {
	Width, Height int // dimensions after reduction
	DX, DY        int // subsampling relative to the reference grid
	Precision     int // bits per sample
	Signed        bool
	Plane         *hwyimage.Image[int32]
}

// Sample returns the sample at (x, y), clamped to the plane.
func (c *Component) Sample(x, y int) int32 {
	x = min(max(x, 0), c.Width-1)
	y = min(max(y, 0), c.Height-1)
	return c.Plane.Row(y)[x]
}

// Image is the raw output of libopenjp2: one plane per component.
type Image struct {
	Bounds     image.Rectangle // image area on the reference grid
	ColorSpace ColorSpace
	ICCProfile []byte
	Components []Component
}

// DecodeFile decodes the JPEG 2000 file at path.
func DecodeFile(path string, opts DecodeOptions) (*Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return decodeBytes(data, opts)
}

// DecodeRaw decodes a JPEG 2000 stream into component planes.
func DecodeRaw(r io.Reader, opts DecodeOptions) (*Image, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return decodeBytes(data, opts)
}

func decodeBytes(data []byte, opts DecodeOptions) (*Image, error) {
	format, err := detectFormat(data)
	if err != nil {
		return nil, err
	}
	return nativeDecode(data, format, opts.normalized())
}

// Decode decodes a JPEG 2000 image.
func Decode(r io.Reader) (image.Image, error) {
	img, err := DecodeRaw(r, DecodeOptions{})
	if err != nil {
		return nil, err
	}
	return img.ToImage()
}

// DecodeConfig returns the image configuration without decoding samples.
func DecodeConfig(r io.Reader) (image.Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return image.Config{}, err
	}
	format, err := detectFormat(data)
	if err != nil {
		return image.Config{}, err
	}
	hdr, err := nativeReadHeader(data, format)
	if err != nil {
		return image.Config{}, err
	}
	if len(hdr.Components) == 0 {
		return image.Config{}, ErrNoComponents
	}

	c0 := hdr.Components[0]
	return image.Config{
		Width:      c0.Width,
		Height:     c0.Height,
		ColorModel: colorModelFor(hdr),
	}, nil
}

func colorModelFor(img *Image) color.Model {
	wide := false
	for _, c := range img.Components {
		if c.Precision > 8 {
			wide = true
		}
	}
	n := len(img.Components)
	gray := n <= 2 || img.ColorSpace == ColorSpaceGray
	switch {
	case gray && n >= 2 && wide:
		return color.NRGBA64Model
	case gray && n >= 2:
		return color.NRGBAModel
	case gray:
		if wide {
			return color.Gray16Model
		}
		return color.GrayModel
	case n == 4 && img.ColorSpace == ColorSpaceCMYK:
		return color.CMYKModel
	case n >= 4 && wide:
		return color.NRGBA64Model
	case n >= 4:
		return color.NRGBAModel
	case wide:
		return color.RGBA64Model
	}
	return color.RGBAModel
}

func init() {
	image.RegisterFormat("jp2", string(jp2Magic), Decode, DecodeConfig)
	image.RegisterFormat("j2c", string(j2kMagic), Decode, DecodeConfig)
}
