package openjpeg

import (
	"fmt"
	"image"
	"math"

	hwyimage "github.com/ajroetker/go-highway/hwy/contrib/image"
)

// channel yields unsigned samples of one output channel on the grid of
// component 0, together with their precision.
type channel struct {
	at   func(x, y int) int64
	prec int
}

// ToImage converts the component planes to a standard library image.
//
// One grey component becomes image.Gray, grey plus a second component
// becomes image.NRGBA with the second as straight alpha, three become
// image.RGBA, four or more become image.NRGBA with the fourth
// component as straight alpha, and four CMYK components become image.CMYK.
// Any component wider than 8 bits selects the 16-bit variant. sYCC and
// e-YCC data is converted to RGB with the inverse irreversible colour
// transform. Subsampled components are upsampled by nearest neighbour.
func (img *Image) ToImage() (image.Image, error) {
	n := len(img.Components)
	if n == 0 {
		return nil, ErrNoComponents
	}
	for i := range img.Components {
		if img.Components[i].Plane == nil {
			return nil, fmt.Errorf("component %d has no samples: %w", i, ErrDecodeFailed)
		}
	}

	w, h := img.Components[0].Width, img.Components[0].Height
	rect := image.Rect(0, 0, w, h)
	wide := false
	for _, c := range img.Components {
		if c.Precision > 8 {
			wide = true
		}
	}

	gray := n < 3 || img.ColorSpace == ColorSpaceGray
	if gray && n >= 2 {
		g := img.channel(0, w, h)
		chans := []channel{g, g, g, img.channel(1, w, h)}
		if wide {
			out := image.NewNRGBA64(rect)
			fill(w, h, func(x, y int) { put16(out.Pix[out.PixOffset(x, y):], chans, x, y) })
			return out, nil
		}
		out := image.NewNRGBA(rect)
		fill(w, h, func(x, y int) { put8(out.Pix[out.PixOffset(x, y):], chans, x, y) })
		return out, nil
	}
	if gray {
		ch := img.channel(0, w, h)
		if wide {
			out := image.NewGray16(rect)
			fill(w, h, func(x, y int) {
				v := scaleSample(ch.at(x, y), ch.prec, 16)
				i := out.PixOffset(x, y)
				out.Pix[i], out.Pix[i+1] = uint8(v>>8), uint8(v)
			})
			return out, nil
		}
		out := image.NewGray(rect)
		fill(w, h, func(x, y int) {
			out.Pix[out.PixOffset(x, y)] = uint8(scaleSample(ch.at(x, y), ch.prec, 8))
		})
		return out, nil
	}

	if n == 4 && img.ColorSpace == ColorSpaceCMYK {
		var chans [4]channel
		for i := range chans {
			chans[i] = img.channel(i, w, h)
		}
		out := image.NewCMYK(rect)
		fill(w, h, func(x, y int) {
			i := out.PixOffset(x, y)
			for c := range chans {
				out.Pix[i+c] = uint8(scaleSample(chans[c].at(x, y), chans[c].prec, 8))
			}
		})
		return out, nil
	}

	chans := make([]channel, 3, 4)
	if img.ColorSpace == ColorSpaceSYCC || img.ColorSpace == ColorSpaceEYCC {
		buf := img.inverseICT(w, h)
		defer putYCC(buf)
		prec := img.Components[0].Precision
		for i := range 3 {
			chans[i] = planeChannel(buf.imgs[3+i], prec)
		}
	} else {
		for i := range 3 {
			chans[i] = img.channel(i, w, h)
		}
	}
	alpha := n >= 4
	if alpha {
		chans = append(chans, img.channel(3, w, h))
	}

	switch {
	case wide && alpha:
		out := image.NewNRGBA64(rect)
		fill(w, h, func(x, y int) { put16(out.Pix[out.PixOffset(x, y):], chans, x, y) })
		return out, nil
	case wide:
		out := image.NewRGBA64(rect)
		fill(w, h, func(x, y int) { put16(out.Pix[out.PixOffset(x, y):], chans, x, y) })
		return out, nil
	case alpha:
		out := image.NewNRGBA(rect)
		fill(w, h, func(x, y int) { put8(out.Pix[out.PixOffset(x, y):], chans, x, y) })
		return out, nil
	}
	out := image.NewRGBA(rect)
	fill(w, h, func(x, y int) { put8(out.Pix[out.PixOffset(x, y):], chans, x, y) })
	return out, nil
}

// put8 writes one RGBA8 pixel; a missing alpha channel is opaque.
func put8(pix []uint8, chans []channel, x, y int) {
	for c := range 4 {
		if c < len(chans) {
			pix[c] = uint8(scaleSample(chans[c].at(x, y), chans[c].prec, 8))
		} else {
			pix[c] = 0xFF
		}
	}
}

// put16 writes one big-endian RGBA16 pixel.
func put16(pix []uint8, chans []channel, x, y int) {
	for c := range 4 {
		v := int64(0xFFFF)
		if c < len(chans) {
			v = scaleSample(chans[c].at(x, y), chans[c].prec, 16)
		}
		pix[2*c], pix[2*c+1] = uint8(v>>8), uint8(v)
	}
}

func fill(w, h int, fn func(x, y int)) {
	for y := range h {
		for x := range w {
			fn(x, y)
		}
	}
}

// channel maps component i onto a w×h grid. Signed samples are shifted
// into the unsigned range.
func (img *Image) channel(i, w, h int) channel {
	c := &img.Components[i]
	prec := max(c.Precision, 1)
	var offset int64
	if c.Signed {
		offset = 1 << (prec - 1)
	}
	return channel{
		prec: prec,
		at: func(x, y int) int64 {
			return int64(c.Sample(x*c.Width/w, y*c.Height/h)) + offset
		},
	}
}

func planeChannel(plane *hwyimage.Image[float64], prec int) channel {
	return channel{
		prec: max(prec, 1),
		at: func(x, y int) int64 {
			return int64(math.Round(plane.Row(y)[x]))
		},
	}
}

// inverseICT converts the first three components from YCbCr to RGB.
// Chroma is centred on zero before the transform (ITU-T T.800 G.3).
// The caller must return the buffer with putYCC.
func (img *Image) inverseICT(w, h int) *ycc {
	buf := getYCC(w, h)
	for i := range 3 {
		ch := img.channel(i, w, h)
		var centre float64
		if i > 0 {
			centre = float64(int64(1) << (ch.prec - 1))
		}
		dst := buf.imgs[i]
		for y := range h {
			row := dst.Row(y)
			for x := range w {
				row[x] = float64(ch.at(x, y)) - centre
			}
		}
	}

	// R = Y + 1.402 Cr, G = Y - 0.344136 Cb - 0.714136 Cr, B = Y + 1.772 Cb
	hwyimage.InverseICT(buf.imgs[0], buf.imgs[1], buf.imgs[2], buf.imgs[3], buf.imgs[4], buf.imgs[5])
	return buf
}

// scaleSample clamps v to [0, 2^prec-1] and rescales it to bits.
func scaleSample(v int64, prec, bits int) int64 {
	maxIn := int64(1)<<prec - 1
	v = min(max(v, 0), maxIn)
	if prec == bits {
		return v
	}
	maxOut := int64(1)<<bits - 1
	return (v*maxOut + maxIn/2) / maxIn
}
