// Package money does cent-rounded arithmetic for prices held as float64 on the wire.
package money

import "github.com/shopspring/decimal"

// Sum adds amounts without accumulating float error and rounds to cents.
func Sum(amounts ...float64) float64 {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(decimal.NewFromFloat(a))
	}
	return total.Round(2).InexactFloat64()
}

// Sub returns a-b rounded to cents.
func Sub(a, b float64) float64 {
	return decimal.NewFromFloat(a).Sub(decimal.NewFromFloat(b)).Round(2).InexactFloat64()
}

// Mul returns amount*factor rounded to cents.
func Mul(amount, factor float64) float64 {
	return decimal.NewFromFloat(amount).Mul(decimal.NewFromFloat(factor)).Round(2).InexactFloat64()
}

// Round rounds to cents.
func Round(amount float64) float64 {
	return decimal.NewFromFloat(amount).Round(2).InexactFloat64()
}

func Min(a, b float64) float64 {
	if decimal.NewFromFloat(a).LessThan(decimal.NewFromFloat(b)) {
		return a
	}
	return b
}

func Max(a, b float64) float64 {
	if decimal.NewFromFloat(a).GreaterThan(decimal.NewFromFloat(b)) {
		return a
	}
	return b
}
