package helpers

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// FormatUSD formats an amount as US dollars with thousand separators, e.g. "$-1,234.50"
func FormatUSD(amount decimal.Decimal) string {
	rounded := amount.Round(2)

	negative := rounded.IsNegative()
	if negative {
		rounded = rounded.Neg()
	}

	whole := rounded.Truncate(0)
	cents := rounded.Sub(whole).Shift(2).IntPart()

	// Add thousand separators to the integer part
	str := whole.String()
	length := len(str)
	var result string
	for i, digit := range str {
		if i > 0 && (length-i)%3 == 0 {
			result += ","
		}
		result += string(digit)
	}

	if negative {
		return fmt.Sprintf("$-%s.%02d", result, cents)
	}
	return fmt.Sprintf("$%s.%02d", result, cents)
}
