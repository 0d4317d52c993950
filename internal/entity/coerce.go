package entity

import (
	"encoding/json"
	"strconv"
)

// Float coerces a raw API value to float64. The API mixes JSON numbers,
// numeric strings (big-integer fields) and nulls for the same logical field;
// malformed or absent values coerce to 0 so one bad record cannot abort a page.
func Float(v interface{}) float64 {
	switch x := v.(type) {
	case nil:
		return 0
	case float64:
		return x
	case int64:
		return float64(x)
	case int:
		return float64(x)
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return 0
		}
		return f
	case string:
		f, err := strconv.ParseFloat(x, 64)
		if err != nil {
			return 0
		}
		return f
	case bool:
		if x {
			return 1
		}
		return 0
	default:
		return 0
	}
}

// Int coerces a raw API value to int64, defaulting to 0.
func Int(v interface{}) int64 {
	switch x := v.(type) {
	case nil:
		return 0
	case int64:
		return x
	case int:
		return int64(x)
	case float64:
		return int64(x)
	case json.Number:
		i, err := x.Int64()
		if err != nil {
			f, ferr := x.Float64()
			if ferr != nil {
				return 0
			}
			return int64(f)
		}
		return i
	case string:
		i, err := strconv.ParseInt(x, 10, 64)
		if err != nil {
			f, ferr := strconv.ParseFloat(x, 64)
			if ferr != nil {
				return 0
			}
			return int64(f)
		}
		return i
	default:
		return 0
	}
}

// FloatPtr coerces to a *float64, preserving absence as nil.
func FloatPtr(v interface{}) *float64 {
	if v == nil {
		return nil
	}
	f := Float(v)
	return &f
}
