package pagemap

import (
	"sort"
	"strconv"
	"strings"
)

const (
	condenseMaxKeys     = 10
	condenseMaxItems    = 5
	condenseMaxDepth    = 6
	condenseMaxStrLen   = 200
	condenseMaxOverflow = 50
)

// CondenseJSON implements API-response condensation: at most
// 10 object keys and 5 array items per level, to depth 6; long strings are
// marked truncated; omissions are summarized instead of silently dropped.
func CondenseJSON(value interface{}) interface{} {
	return condense(value, 0)
}

func condense(value interface{}, depth int) interface{} {
	if depth >= condenseMaxDepth {
		return "__depth_limit_reached__"
	}

	switch v := value.(type) {
	case map[string]interface{}:
		return condenseObject(v, depth)
	case []interface{}:
		return condenseArray(v, depth)
	case string:
		if len(v) > condenseMaxStrLen {
			return v[:condenseMaxStrLen] + "...[truncated]"
		}
		return v
	default:
		return v
	}
}

func condenseObject(obj map[string]interface{}, depth int) map[string]interface{} {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make(map[string]interface{}, condenseMaxKeys+1)
	shown := keys
	var omitted []string
	if len(keys) > condenseMaxKeys {
		shown = keys[:condenseMaxKeys]
		omitted = keys[condenseMaxKeys:]
	}

	for _, k := range shown {
		out[k] = condense(obj[k], depth+1)
	}

	if len(omitted) > 0 {
		label := "__" + strconv.Itoa(len(omitted)) + "_more_keys__"
		if len(omitted) <= condenseMaxOverflow {
			out[label] = strings.Join(omitted, ", ")
		} else {
			out[label] = strconv.Itoa(len(omitted)) + " omitted"
		}
	}
	return out
}

func condenseArray(arr []interface{}, depth int) []interface{} {
	limit := condenseMaxItems
	if len(arr) <= limit {
		out := make([]interface{}, len(arr))
		for i, item := range arr {
			out[i] = condense(item, depth+1)
		}
		return out
	}

	out := make([]interface{}, 0, limit+1)
	for i := 0; i < limit; i++ {
		out = append(out, condense(arr[i], depth+1))
	}
	out = append(out, map[string]interface{}{
		"__truncated__": len(arr) - limit,
	})
	return out
}
