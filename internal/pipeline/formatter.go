package pipeline

import (
	"fmt"
	"strings"

	"github.com/datachat/datachat/internal/store"
)

// Columns whose name contains one of these render numeric values as
// currency. Name heuristic, not type-driven beyond "is this a number".
var monetaryKeywords = []string{"price", "amount", "sales", "revenue", "spent", "cost", "total"}

// FormatRows returns a presentation copy of the result set. Only
// numeric-typed values in monetary columns are touched, so applying the
// formatter to already-formatted strings is a no-op.
func FormatRows(rs store.ResultSet, currencySymbol string) []store.Row {
	formatted := make([]store.Row, 0, len(rs.Rows))
	for _, row := range rs.Rows {
		out := make(store.Row, len(row))
		for key, value := range row {
			if number, ok := asFloat(value); ok && isMonetaryColumn(key) {
				out[key] = fmt.Sprintf("%s%.2f", currencySymbol, number)
				continue
			}
			out[key] = value
		}
		formatted = append(formatted, out)
	}
	return formatted
}

func isMonetaryColumn(name string) bool {
	lowered := strings.ToLower(name)
	for _, keyword := range monetaryKeywords {
		if strings.Contains(lowered, keyword) {
			return true
		}
	}
	return false
}

func asFloat(value any) (float64, bool) {
	switch typed := value.(type) {
	case float64:
		return typed, true
	case float32:
		return float64(typed), true
	case int:
		return float64(typed), true
	case int8:
		return float64(typed), true
	case int16:
		return float64(typed), true
	case int32:
		return float64(typed), true
	case int64:
		return float64(typed), true
	case uint8:
		return float64(typed), true
	case uint16:
		return float64(typed), true
	case uint32:
		return float64(typed), true
	case uint64:
		return float64(typed), true
	default:
		return 0, false
	}
}
