package dashboard

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// formatCell renders one raw driver value as display text. A non-empty
// format is a fmt verb applied to numeric values; strings that parse as
// numbers are formatted too.
func formatCell(v interface{}, format string) string {
	if v == nil {
		return ""
	}
	if format != "" {
		if n, ok := asNumber(v); ok {
			return fmt.Sprintf(format, n)
		}
	}

	switch x := v.(type) {
	case string:
		return x
	case []byte:
		return string(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case time.Time:
		if x.Hour() == 0 && x.Minute() == 0 && x.Second() == 0 && x.Nanosecond() == 0 {
			return x.Format("2006-01-02")
		}
		return x.Format(time.RFC3339)
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}

func asNumber(v interface{}) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int8:
		return float64(x), true
	case int16:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	case uint8:
		return float64(x), true
	case uint16:
		return float64(x), true
	case uint32:
		return float64(x), true
	case uint64:
		return float64(x), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		return f, err == nil
	}
	return 0, false
}

// expandTooltip fills a tooltip template. {value} is the formatted cell,
// {row} the 1-based row number within the whole dataset and {column} the
// column name.
func expandTooltip(tpl, column, value string, row int) string {
	return strings.NewReplacer(
		"{value}", value,
		"{row}", strconv.Itoa(row),
		"{column}", column,
	).Replace(tpl)
}
