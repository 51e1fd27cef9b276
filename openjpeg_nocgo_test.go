//go:build !cgo

package openjpeg

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode_WithoutCgo(t *testing.T) {
	_, err := DecodeRaw(bytes.NewReader(fakeCodestream()), DecodeOptions{})
	require.ErrorIs(t, err, ErrCodecUnavailable)

	_, err = DecodeConfig(bytes.NewReader(fakeCodestream()))
	require.ErrorIs(t, err, ErrCodecUnavailable)

	assert.Empty(t, Version())
}
