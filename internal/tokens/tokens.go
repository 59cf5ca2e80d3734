package tokens

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrNotAnInteger = errors.New("amount is not an integer")
	ErrMissing      = errors.New("amount is missing")
)

// ParseAmount coerces a token amount taken from a JSON or form payload into
// an int64. Accepted shapes: integer strings ("25"), json.Number, and JSON
// numbers decoded as float64 when they carry no fractional part.
func ParseAmount(value any) (int64, error) {
	switch v := value.(type) {
	case nil:
		return 0, ErrMissing
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	case json.Number:
		if v == "" {
			return 0, ErrMissing
		}
		parsed, err := v.Int64()
		if err != nil {
			return 0, ErrNotAnInteger
		}
		return parsed, nil
	case float64:
		whole := int64(v)
		if float64(whole) != v {
			return 0, ErrNotAnInteger
		}
		return whole, nil
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return 0, ErrMissing
		}
		parsed, err := strconv.ParseInt(trimmed, 10, 64)
		if err != nil {
			return 0, ErrNotAnInteger
		}
		return parsed, nil
	default:
		return 0, ErrNotAnInteger
	}
}

func ValueToInt64(value any) int64 {
	switch v := value.(type) {
	case nil:
		return 0
	case int64:
		return v
	case int32:
		return int64(v)
	case int:
		return int64(v)
	case uint64:
		return int64(v)
	case uint32:
		return int64(v)
	case []byte:
		parsed, _ := strconv.ParseInt(string(v), 10, 64)
		return parsed
	case string:
		parsed, _ := strconv.ParseInt(v, 10, 64)
		return parsed
	default:
		parsed, _ := strconv.ParseInt(fmt.Sprint(v), 10, 64)
		return parsed
	}
}
