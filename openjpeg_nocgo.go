//go:build !cgo

package openjpeg

// Version returns the version string of the linked libopenjp2, or the
// empty string when the package was built without cgo.
func Version() string { return "" }

func nativeDecode([]byte, codecFormat, DecodeOptions) (*Image, error) {
	return nil, ErrCodecUnavailable
}

func nativeReadHeader([]byte, codecFormat) (*Image, error) {
	return nil, ErrCodecUnavailable
}
