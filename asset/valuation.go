package asset

import (
	"errors"
	"fmt"
	"math"
)

// Direction says which side of a valuation the caller knows.
type Direction int

const (
	// AmountToFiat: known is an asset amount, the result is its fiat value.
	AmountToFiat Direction = iota
	// FiatToAmount: known is a fiat value, the result is the asset amount.
	FiatToAmount
)

var ErrNoPrice = errors.New("price must be positive to derive an amount")

// Derive converts between an asset amount and its fiat value at price.
// The input field the user edited last decides the direction.
func Derive(known, price float64, dir Direction) (float64, error) {
	if known < 0 || math.IsNaN(known) || math.IsInf(known, 0) {
		return 0, fmt.Errorf("invalid value %v", known)
	}
	if price < 0 || math.IsNaN(price) || math.IsInf(price, 0) {
		return 0, fmt.Errorf("invalid price %v", price)
	}
	switch dir {
	case AmountToFiat:
		return known * price, nil
	case FiatToAmount:
		if price == 0 {
			return 0, ErrNoPrice
		}
		return known / price, nil
	}
	return 0, fmt.Errorf("unknown direction %d", dir)
}

// ParseDirection accepts "amount" (amount known) or "fiat" (fiat value known).
func ParseDirection(s string) (Direction, error) {
	switch s {
	case "amount", "amountToFiat":
		return AmountToFiat, nil
	case "fiat", "fiatToAmount":
		return FiatToAmount, nil
	}
	return 0, fmt.Errorf("unknown direction %q", s)
}
