package openjpeg

import (
	"errors"
	"strconv"
	"strings"
)

// coerceTypes replaces numeric-looking string leaves in place.
func coerceTypes(d Dict) {
	for k, v := range d {
		switch v := v.(type) {
		case Dict:
			coerceTypes(v)
		case []Dict:
			for _, item := range v {
				coerceTypes(item)
			}
		case string:
			d[k] = coerceValue(v)
		}
	}
}

// coerceValue returns s as int64 when it is all ASCII digits, as float64
// when it is a decimal float literal, and unchanged otherwise.
func coerceValue(s string) any {
	if isDigits(s) {
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n
		}
	}
	if f, ok := parseFloat(s); ok {
		return f
	}
	return s
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// parseFloat accepts surrounding whitespace, inf and nan, and rejects the
// hex and underscore forms strconv would otherwise allow.
func parseFloat(s string) (float64, bool) {
	t := strings.TrimSpace(s)
	if t == "" || strings.ContainsAny(t, "_xXpP") {
		return 0, false
	}
	f, err := strconv.ParseFloat(t, 64)
	if err != nil {
		if errors.Is(err, strconv.ErrRange) {
			return f, true
		}
		return 0, false
	}
	return f, true
}
