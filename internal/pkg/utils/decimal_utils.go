package utils

import "github.com/shopspring/decimal"

// FormatAmount renders a decimal amount with at most places fractional
// digits and no trailing zeros.
func FormatAmount(d decimal.Decimal, places int32) string {
	return d.Round(places).String()
}
