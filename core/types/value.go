package types

import (
	"encoding/json"
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// ToJSONValue converts an evaluated script value into the shape jsonschema
// validates: numbers become json.Number, addresses and byte slices hex
// strings, slices []any.
func ToJSONValue(v any) (any, error) {
	switch v := v.(type) {
	case nil, string, bool, json.Number:
		return v, nil
	case *big.Int:
		if v == nil {
			return nil, nil
		}
		return json.Number(v.String()), nil
	case big.Int:
		return json.Number(v.String()), nil
	case int:
		return json.Number(strconv.Itoa(v)), nil
	case int64:
		return json.Number(strconv.FormatInt(v, 10)), nil
	case uint64:
		return json.Number(strconv.FormatUint(v, 10)), nil
	case float64:
		return json.Number(strconv.FormatFloat(v, 'f', -1, 64)), nil
	case common.Address:
		return v.Hex(), nil
	case common.Hash:
		return v.Hex(), nil
	case []byte:
		return hexutil.Encode(v), nil
	case []any:
		out := make([]any, len(v))
		for i, e := range v {
			jv, err := ToJSONValue(e)
			if err != nil {
				return nil, err
			}
			out[i] = jv
		}
		return out, nil
	case []string:
		out := make([]any, len(v))
		for i, e := range v {
			out[i] = e
		}
		return out, nil
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, e := range v {
			jv, err := ToJSONValue(e)
			if err != nil {
				return nil, err
			}
			out[k] = jv
		}
		return out, nil
	default:
		return nil, fmt.Errorf("cannot validate value of type %T", v)
	}
}

// TimeUnits maps a time suffix to its length in seconds.
var TimeUnits = map[string]int64{
	"s":  1,
	"m":  60,
	"h":  3600,
	"d":  86400,
	"w":  604800,
	"mo": 2592000,
	"y":  31536000,
}

// ParseDuration parses an integer followed by an optional time unit and
// returns the length in seconds.
func ParseDuration(s string) (int64, error) {
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i == 0 {
		return 0, fmt.Errorf("invalid duration %q", s)
	}
	n, err := strconv.ParseInt(s[:i], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", s, err)
	}
	unit := strings.TrimSpace(s[i:])
	if unit == "" {
		return n, nil
	}
	mult, ok := TimeUnits[unit]
	if !ok {
		return 0, fmt.Errorf("invalid duration %q: unknown unit %q", s, unit)
	}
	return n * mult, nil
}
