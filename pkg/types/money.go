package types

import "github.com/shopspring/decimal"

// Round2 truncates a monetary amount to two decimal places for display and
// gateway submission. Internal pricing math keeps full precision so repeated
// repricing never compounds rounding error.
func Round2(amount decimal.Decimal) decimal.Decimal {
	return amount.Truncate(2)
}
