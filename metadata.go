package openjpeg

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"strings"
)

// JP2ColorMethod is the METH field of the colr box.
type JP2ColorMethod uint8

const (
	JP2ColorEnumerated JP2ColorMethod = 1 // Enumerated colourspace
	JP2ColorICC        JP2ColorMethod = 2 // Restricted ICC profile
	JP2ColorICCAny     JP2ColorMethod = 3 // Any ICC profile (JPX)
)

// JP2ColorSpace is an enumerated colourspace per ITU-T T.800 Table I.10.
type JP2ColorSpace uint32

const (
	JP2ColorUnknown   JP2ColorSpace = 0
	JP2ColorSRGB      JP2ColorSpace = 16
	JP2ColorGrayscale JP2ColorSpace = 17
	JP2ColorSYCC      JP2ColorSpace = 18
	JP2ColorESYCC     JP2ColorSpace = 24
	JP2ColorCMYK      JP2ColorSpace = 12
)

func (cs JP2ColorSpace) String() string {
	switch cs {
	case JP2ColorSRGB:
		return "sRGB"
	case JP2ColorGrayscale:
		return "greyscale"
	case JP2ColorSYCC:
		return "sYCC"
	case JP2ColorESYCC:
		return "e-sYCC"
	case JP2ColorCMYK:
		return "CMYK"
	case JP2ColorUnknown:
		return "unknown"
	}
	return fmt.Sprintf("enumerated(%d)", uint32(cs))
}

// Info describes a JP2 container without decoding its codestream.
type Info struct {
	Brand        string   `json:"brand" yaml:"brand"`
	MinorVersion uint32   `json:"minor_version" yaml:"minor_version"`
	Compatible   []string `json:"compatible,omitempty" yaml:"compatible,omitempty"`

	// From ihdr
	Width       uint32 `json:"width" yaml:"width"`
	Height      uint32 `json:"height" yaml:"height"`
	NumComps    uint16 `json:"components" yaml:"components"`
	BitDepths   []int  `json:"bit_depths" yaml:"bit_depths"`
	Signed      []bool `json:"signed" yaml:"signed"`
	Compression uint8  `json:"compression" yaml:"compression"`
	IPR         bool   `json:"ipr" yaml:"ipr"`

	// From colr
	ColorMethod JP2ColorMethod `json:"color_method" yaml:"color_method"`
	ColorSpace  JP2ColorSpace  `json:"color_space" yaml:"color_space"`
	ICCProfile  []byte         `json:"-" yaml:"-"`

	// From res, in grid points per metre
	CaptureResX float64 `json:"capture_res_x,omitempty" yaml:"capture_res_x,omitempty"`
	CaptureResY float64 `json:"capture_res_y,omitempty" yaml:"capture_res_y,omitempty"`
	DisplayResX float64 `json:"display_res_x,omitempty" yaml:"display_res_x,omitempty"`
	DisplayResY float64 `json:"display_res_y,omitempty" yaml:"display_res_y,omitempty"`

	PaletteEntries int `json:"palette_entries,omitempty" yaml:"palette_entries,omitempty"`
	ChannelDefs    int `json:"channel_defs,omitempty" yaml:"channel_defs,omitempty"`

	// Codestream location; CodestreamLength is -1 when the box runs to EOF.
	CodestreamOffset int64 `json:"codestream_offset" yaml:"codestream_offset"`
	CodestreamLength int64 `json:"codestream_length" yaml:"codestream_length"`

	XMLBoxes  [][]byte  `json:"-" yaml:"-"`
	UUIDBoxes []UUIDBox `json:"-" yaml:"-"`
}

// UUIDBox is a uuid box split into its identifier and payload.
type UUIDBox struct {
	ID   [16]byte
	Data []byte
}

// ReadInfo reads the JP2 container structure of the file at path.
func ReadInfo(path string) (*Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return DecodeInfo(f)
}

// DecodeInfo reads the JP2 container structure from r. The codestream is
// skipped (by seeking when r is an io.Seeker).
func DecodeInfo(r io.Reader) (*Info, error) {
	if _, ok := r.(io.Seeker); !ok {
		r = bufio.NewReader(r)
	}
	s := newBoxScanner(r)

	if !s.Next() {
		if s.Err() != nil {
			return nil, s.Err()
		}
		return nil, ErrUnsupportedFormat
	}
	if s.Box().typ != boxSignature || s.Box().size != 4 {
		return nil, ErrUnsupportedFormat
	}
	sig, err := s.Payload()
	if err != nil {
		return nil, err
	}
	if binary.BigEndian.Uint32(sig) != signatureMagic {
		return nil, ErrUnsupportedFormat
	}

	info := &Info{CodestreamLength: -1}
	sawHeader := false
	for s.Next() {
		b := s.Box()
		switch b.typ {
		case boxCodestream:
			info.CodestreamOffset = b.offset
			info.CodestreamLength = b.size
			continue
		case boxFileType, boxHeader, boxXML, boxUUID:
		default:
			continue
		}

		payload, err := s.Payload()
		if err != nil {
			return nil, err
		}
		switch b.typ {
		case boxFileType:
			parseFileType(payload, info)
		case boxHeader:
			sawHeader = true
			walkBoxes(payload, func(typ uint32, data []byte) {
				parseHeaderChild(typ, data, info)
			})
		case boxXML:
			info.XMLBoxes = append(info.XMLBoxes, payload)
		case boxUUID:
			if len(payload) >= 16 {
				var u UUIDBox
				copy(u.ID[:], payload[:16])
				u.Data = payload[16:]
				info.UUIDBoxes = append(info.UUIDBoxes, u)
			}
		}
	}
	if err := s.Err(); err != nil {
		return nil, err
	}
	if !sawHeader {
		return nil, fmt.Errorf("missing jp2h box: %w", ErrInvalidHeader)
	}
	return info, nil
}

func parseFileType(data []byte, info *Info) {
	if len(data) < 8 {
		return
	}
	info.Brand = strings.TrimRight(string(data[0:4]), " ")
	info.MinorVersion = binary.BigEndian.Uint32(data[4:8])
	for pos := 8; pos+4 <= len(data); pos += 4 {
		info.Compatible = append(info.Compatible, strings.TrimRight(string(data[pos:pos+4]), " "))
	}
}

func parseHeaderChild(typ uint32, data []byte, info *Info) {
	switch typ {
	case boxImageHeader:
		parseImageHeader(data, info)
	case boxBitsPerComp:
		parseBitsPerComp(data, info)
	case boxColorSpec:
		// Only the first colr box is authoritative.
		if info.ColorMethod == 0 {
			parseColorSpec(data, info)
		}
	case boxResolution:
		walkBoxes(data, func(typ uint32, data []byte) {
			switch typ {
			case boxCaptureRes:
				info.CaptureResY, info.CaptureResX = parseResolution(data)
			case boxDisplayRes:
				info.DisplayResY, info.DisplayResX = parseResolution(data)
			}
		})
	case boxPalette:
		if len(data) >= 2 {
			info.PaletteEntries = int(binary.BigEndian.Uint16(data[0:2]))
		}
	case boxChannelDef:
		if len(data) >= 2 {
			info.ChannelDefs = int(binary.BigEndian.Uint16(data[0:2]))
		}
	}
}

// parseImageHeader parses ihdr. A BPC of 0xFF defers per-component depths
// to the bpcc box.
func parseImageHeader(data []byte, info *Info) {
	if len(data) < 14 {
		return
	}
	info.Height = binary.BigEndian.Uint32(data[0:4])
	info.Width = binary.BigEndian.Uint32(data[4:8])
	info.NumComps = binary.BigEndian.Uint16(data[8:10])
	info.Compression = data[11]
	info.IPR = data[13] != 0

	if bpc := data[10]; bpc != 0xFF {
		info.BitDepths = make([]int, info.NumComps)
		info.Signed = make([]bool, info.NumComps)
		for i := range info.BitDepths {
			info.BitDepths[i] = int(bpc&0x7F) + 1
			info.Signed[i] = bpc&0x80 != 0
		}
	}
}

func parseBitsPerComp(data []byte, info *Info) {
	info.BitDepths = make([]int, len(data))
	info.Signed = make([]bool, len(data))
	for i, b := range data {
		info.BitDepths[i] = int(b&0x7F) + 1
		info.Signed[i] = b&0x80 != 0
	}
}

func parseColorSpec(data []byte, info *Info) {
	if len(data) < 3 {
		return
	}
	info.ColorMethod = JP2ColorMethod(data[0])
	switch info.ColorMethod {
	case JP2ColorEnumerated:
		if len(data) >= 7 {
			info.ColorSpace = JP2ColorSpace(binary.BigEndian.Uint32(data[3:7]))
		}
	case JP2ColorICC, JP2ColorICCAny:
		info.ICCProfile = append([]byte(nil), data[3:]...)
	}
}

// parseResolution parses a resc or resd payload:
// VRcN(2) VRcD(2) HRcN(2) HRcD(2) VRcE(1) HRcE(1).
func parseResolution(data []byte) (v, h float64) {
	if len(data) < 10 {
		return 0, 0
	}
	vn := binary.BigEndian.Uint16(data[0:2])
	vd := binary.BigEndian.Uint16(data[2:4])
	hn := binary.BigEndian.Uint16(data[4:6])
	hd := binary.BigEndian.Uint16(data[6:8])
	ve := int8(data[8])
	he := int8(data[9])

	if vd > 0 {
		v = float64(vn) / float64(vd) * pow10(int(ve))
	}
	if hd > 0 {
		h = float64(hn) / float64(hd) * pow10(int(he))
	}
	return v, h
}

func pow10(n int) float64 {
	result := 1.0
	for ; n > 0; n-- {
		result *= 10
	}
	for ; n < 0; n++ {
		result /= 10
	}
	return result
}
