package models

import "github.com/shopspring/decimal"

// Round2 rounds a monetary value to two decimals, half away from zero.
// Every derived billing figure in the application, including the
// statistics aggregations, must pass through this single helper so all
// consumers agree on the rounding mode.
func Round2(v float64) float64 {
	f, _ := decimal.NewFromFloat(v).Round(2).Float64()
	return f
}
