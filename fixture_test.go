package openjpeg

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const sampleXML = `<?xml version="1.0" encoding="utf-8"?>
<meta>
  <fits>
    <SIMPLE>T</SIMPLE>
    <NAXIS1>1024</NAXIS1>
    <CDELT1>2.63</CDELT1>
    <TELESCOP>SOHO</TELESCOP>
  </fits>
  <helioviewer>
    <HV_ROTATION>0.0</HV_ROTATION>
  </helioviewer>
  <history multiple="true">
    <entry><step>1</step><tool>fits2img</tool></entry>
    <entry><step>2</step><tool>kdu_compress</tool></entry>
  </history>
</meta>
`

const sampleXMLString = `<meta><fits><SIMPLE>T</SIMPLE><NAXIS1>1024</NAXIS1>` +
	`<CDELT1>2.63</CDELT1><TELESCOP>SOHO</TELESCOP></fits>` +
	`<helioviewer><HV_ROTATION>0.0</HV_ROTATION></helioviewer>` +
	`<history multiple="true"><entry><step>1</step><tool>fits2img</tool></entry>` +
	`<entry><step>2</step><tool>kdu_compress</tool></entry></history></meta>`

// writeBox appends a box with a 32-bit length.
func writeBox(buf *bytes.Buffer, typ string, payload []byte) {
	binary.Write(buf, binary.BigEndian, uint32(8+len(payload)))
	buf.WriteString(typ)
	buf.Write(payload)
}

func ihdrPayload(width, height uint32, comps uint16, bpc uint8) []byte {
	var p bytes.Buffer
	binary.Write(&p, binary.BigEndian, height)
	binary.Write(&p, binary.BigEndian, width)
	binary.Write(&p, binary.BigEndian, comps)
	p.WriteByte(bpc) // BPC
	p.WriteByte(7)   // C
	p.WriteByte(0)   // UnkC
	p.WriteByte(0)   // IPR
	return p.Bytes()
}

func colrEnumerated(cs JP2ColorSpace) []byte {
	p := []byte{byte(JP2ColorEnumerated), 0, 0, 0, 0, 0, 0}
	binary.BigEndian.PutUint32(p[3:], uint32(cs))
	return p
}

func ftypPayload() []byte {
	return []byte("jp2 \x00\x00\x00\x00jp2 ")
}

// buildJP2 assembles a minimal JP2 container around an XML box and a
// codestream box holding codestream.
func buildJP2(t *testing.T, xmlBox string, codestream []byte) []byte {
	t.Helper()

	var hdr bytes.Buffer
	writeBox(&hdr, "ihdr", ihdrPayload(1024, 512, 1, 7))
	writeBox(&hdr, "colr", colrEnumerated(JP2ColorGrayscale))

	var buf bytes.Buffer
	writeBox(&buf, "jP  ", []byte{0x0D, 0x0A, 0x87, 0x0A})
	writeBox(&buf, "ftyp", ftypPayload())
	writeBox(&buf, "jp2h", hdr.Bytes())
	if xmlBox != "" {
		writeBox(&buf, "xml ", []byte(xmlBox))
	}
	writeBox(&buf, "jp2c", codestream)
	return buf.Bytes()
}

// fakeCodestream looks like a codestream to magic-byte sniffing and
// contains bytes that must not be mistaken for XML.
func fakeCodestream() []byte {
	cs := []byte{0xFF, 0x4F, 0xFF, 0x51, 0x00, 0x2F}
	cs = append(cs, 0x0A, 0x00, 0x3C, 0x0A, 0x12, 0x34)
	return cs
}

func writeTempFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}
