package openjpeg

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoerceValue(t *testing.T) {
	tests := []struct {
		in   string
		want any
	}{
		{"42", int64(42)},
		{"0", int64(0)},
		{"007", int64(7)},
		{"3.14", 3.14},
		{"-5", -5.0},
		{"+2", 2.0},
		{" 7 ", 7.0},
		{"1e3", 1000.0},
		{".5", 0.5},
		{"99999999999999999999", 1e20},
		{"", ""},
		{"abc", "abc"},
		{"T", "T"},
		{"12abc", "12abc"},
		{"0x10", "0x10"},
		{"0x1p-2", "0x1p-2"},
		{"1_000", "1_000"},
		{"2012-05-02T13:13:49.147", "2012-05-02T13:13:49.147"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, coerceValue(tt.in))
		})
	}
}

func TestCoerceValue_Special(t *testing.T) {
	v, ok := coerceValue("inf").(float64)
	require.True(t, ok)
	assert.True(t, math.IsInf(v, 1))

	v, ok = coerceValue("-Infinity").(float64)
	require.True(t, ok)
	assert.True(t, math.IsInf(v, -1))

	v, ok = coerceValue("NaN").(float64)
	require.True(t, ok)
	assert.True(t, math.IsNaN(v))

	v, ok = coerceValue("1e999").(float64)
	require.True(t, ok)
	assert.True(t, math.IsInf(v, 1))
}

func TestCoerceTypes_Nested(t *testing.T) {
	d := Dict{
		"a": "1",
		"b": Dict{"c": "2.5", "d": Dict{"e": "x"}},
		"l": []Dict{{"v": "3"}, {"v": "y"}},
	}
	coerceTypes(d)

	assert.Equal(t, Dict{
		"a": int64(1),
		"b": Dict{"c": 2.5, "d": Dict{"e": "x"}},
		"l": []Dict{{"v": int64(3)}, {"v": "y"}},
	}, d)
}
