package parse

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Free-form payloads (tool input, control payloads, stream events, usage)
// carry numbers in two canonical Go types: int for integers and float64
// for everything else. Encoding writes a float64 with a fractional part or
// exponent so that decoding can tell the two apart.

// normalize returns a copy of v with numbers in canonical form. Maps and
// slices are copied, never mutated.
func normalize(v any) any {
	switch x := v.(type) {
	case map[string]any:
		if x == nil {
			return x
		}
		out := make(map[string]any, len(x))
		for k, item := range x {
			out[k] = normalize(item)
		}

		return out
	case []any:
		if x == nil {
			return x
		}
		out := make([]any, len(x))
		for i, item := range x {
			out[i] = normalize(item)
		}

		return out
	case float64:
		return floatLiteral(x)
	case float32:
		return floatLiteral(float64(x))
	default:
		return v
	}
}

func floatLiteral(f float64) any {
	if math.IsInf(f, 0) || math.IsNaN(f) {
		// Left as is so the encoder reports it.
		return f
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}

	return json.RawMessage(s)
}

// canonical replaces json.Number values produced by a UseNumber decoder
// with int or float64, in place.
func canonical(v any) any {
	switch x := v.(type) {
	case map[string]any:
		for k, item := range x {
			x[k] = canonical(item)
		}

		return x
	case []any:
		for i, item := range x {
			x[i] = canonical(item)
		}

		return x
	case json.Number:
		s := x.String()
		if !strings.ContainsAny(s, ".eE") {
			if n, err := strconv.ParseInt(s, 10, strconv.IntSize); err == nil {
				return int(n)
			}
		}
		f, err := x.Float64()
		if err != nil {
			return s
		}

		return f
	default:
		return v
	}
}
