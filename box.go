package openjpeg

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// JP2 box types
const (
	boxSignature    = 0x6A502020 // "jP  "
	boxFileType     = 0x66747970 // "ftyp"
	boxHeader       = 0x6A703268 // "jp2h" (superbox)
	boxCodestream   = 0x6A703263 // "jp2c"
	boxImageHeader  = 0x69686472 // "ihdr"
	boxColorSpec    = 0x636F6C72 // "colr"
	boxResolution   = 0x72657320 // "res " (superbox)
	boxCaptureRes   = 0x72657363 // "resc"
	boxDisplayRes   = 0x72657364 // "resd"
	boxBitsPerComp  = 0x62706363 // "bpcc"
	boxPalette      = 0x70636C72 // "pclr"
	boxChannelDef   = 0x63646566 // "cdef"
	boxUUID         = 0x75756964 // "uuid"
	boxXML          = 0x786D6C20 // "xml "
	signatureMagic  = 0x0D0A870A
	maxInlineLength = 64 << 20 // largest box payload read into memory
)

// boxType renders a box type as its four-character code.
func boxType(t uint32) string {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], t)
	return string(b[:])
}

// box is one box header as read from a stream. size is the payload size,
// or -1 when the box extends to the end of the stream.
type box struct {
	typ    uint32
	offset int64 // offset of the payload from the start of the stream
	size   int64
}

// boxScanner reads consecutive top-level boxes, skipping payloads that
// the caller does not consume.
type boxScanner struct {
	r   io.Reader
	off int64
	end int64 // end of the current payload, -1 for end of stream
	err error
	cur box
}

func newBoxScanner(r io.Reader) *boxScanner {
	return &boxScanner{r: r, end: 0}
}

// Next advances to the next box. It returns false at end of stream or on
// error; Err reports the error.
func (s *boxScanner) Next() bool {
	if s.err != nil {
		return false
	}
	if s.end < 0 {
		return false
	}
	if err := s.skipTo(s.end); err != nil {
		s.err = err
		return false
	}

	var hdr [16]byte
	n, err := io.ReadFull(s.r, hdr[:8])
	s.off += int64(n)
	if errors.Is(err, io.EOF) {
		return false
	}
	if err != nil {
		s.err = fmt.Errorf("box header at %d: %w", s.off-int64(n), ErrTruncatedData)
		return false
	}

	length := uint64(binary.BigEndian.Uint32(hdr[0:4]))
	typ := binary.BigEndian.Uint32(hdr[4:8])
	headerLen := uint64(8)
	switch {
	case length == 1:
		n, err := io.ReadFull(s.r, hdr[8:16])
		s.off += int64(n)
		if err != nil {
			s.err = fmt.Errorf("extended length of %q box: %w", boxType(typ), ErrTruncatedData)
			return false
		}
		length = binary.BigEndian.Uint64(hdr[8:16])
		headerLen = 16
	case length != 0 && length < 8:
		s.err = fmt.Errorf("%q box length %d: %w", boxType(typ), length, ErrInvalidHeader)
		return false
	}

	s.cur = box{typ: typ, offset: s.off, size: -1}
	s.end = -1
	if length != 0 {
		if length < headerLen {
			s.err = fmt.Errorf("%q box length %d: %w", boxType(typ), length, ErrInvalidHeader)
			return false
		}
		s.cur.size = int64(length - headerLen)
		s.end = s.off + s.cur.size
	}
	return true
}

// Box returns the current box.
func (s *boxScanner) Box() box { return s.cur }

// Payload reads the whole payload of the current box.
func (s *boxScanner) Payload() ([]byte, error) {
	var data []byte
	var err error
	if s.cur.size < 0 {
		data, err = io.ReadAll(io.LimitReader(s.r, maxInlineLength+1))
		if err == nil && len(data) > maxInlineLength {
			err = fmt.Errorf("%q box exceeds %d bytes: %w", boxType(s.cur.typ), maxInlineLength, ErrUnsupportedFormat)
		}
	} else {
		if s.cur.size > maxInlineLength {
			return nil, fmt.Errorf("%q box exceeds %d bytes: %w", boxType(s.cur.typ), maxInlineLength, ErrUnsupportedFormat)
		}
		data = make([]byte, s.cur.size)
		var n int
		n, err = io.ReadFull(s.r, data)
		data = data[:n]
		if err != nil {
			err = fmt.Errorf("%q box payload: %w", boxType(s.cur.typ), ErrTruncatedData)
		}
	}
	s.off += int64(len(data))
	if err != nil {
		s.err = err
		return nil, err
	}
	return data, nil
}

// Err returns the first error encountered.
func (s *boxScanner) Err() error { return s.err }

// skipTo discards input up to offset end, seeking when possible.
func (s *boxScanner) skipTo(end int64) error {
	if end <= s.off {
		return nil
	}
	if sk, ok := s.r.(io.Seeker); ok {
		if _, err := sk.Seek(end-s.off, io.SeekCurrent); err == nil {
			s.off = end
			return nil
		}
	}
	n, err := io.CopyN(io.Discard, s.r, end-s.off)
	s.off += n
	if err != nil {
		return fmt.Errorf("skip to %d: %w", end, ErrTruncatedData)
	}
	return nil
}

// walkBoxes calls fn for each box in an in-memory superbox payload.
// Malformed trailing data ends the walk.
func walkBoxes(data []byte, fn func(typ uint32, payload []byte)) {
	pos := 0
	for pos+8 <= len(data) {
		length := int(binary.BigEndian.Uint32(data[pos:]))
		typ := binary.BigEndian.Uint32(data[pos+4:])
		headerLen := 8

		switch {
		case length == 1:
			if pos+16 > len(data) {
				return
			}
			l := binary.BigEndian.Uint64(data[pos+8:])
			if l > uint64(len(data)-pos) {
				return
			}
			length = int(l)
			headerLen = 16
		case length == 0:
			length = len(data) - pos
		}

		if length < headerLen || pos+length > len(data) {
			return
		}
		fn(typ, data[pos+headerLen:pos+length])
		pos += length
	}
}
