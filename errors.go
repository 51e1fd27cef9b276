package openjpeg

import "errors"

var (
	ErrXMLBoxNotFound    = errors.New("openjpeg: unable to parse XML box")
	ErrUnsupportedFormat = errors.New("openjpeg: unsupported format")
	ErrInvalidHeader     = errors.New("openjpeg: invalid header")
	ErrTruncatedData     = errors.New("openjpeg: truncated data")
	ErrDecodeFailed      = errors.New("openjpeg: decode failed")
	ErrCodecUnavailable  = errors.New("openjpeg: libopenjp2 not linked (built without cgo)")
	ErrNoComponents      = errors.New("openjpeg: image has no components")
)
