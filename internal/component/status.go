package component

import (
	"fmt"
	"strconv"
)

// StatusLine formats the console line for a topic and value.
func StatusLine(topic string, value any) string {
	return "#" + topic + "=[" + FormatValue(value) + "]"
}

// FormatValue renders a status value. Nil renders as None and booleans as
// True or False, which is what existing console readers expect.
func FormatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "None"
	case bool:
		if val {
			return "True"
		}
		return "False"
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'g', -1, 32)
	case fmt.Stringer:
		return val.String()
	default:
		return fmt.Sprint(val)
	}
}
