package model

import "fmt"

// PriceCurve holds one energy price per interval, in currency per kWh. The
// curve is immutable for the duration of a solve: both the constructor and
// Values copy the backing slice.
type PriceCurve struct {
	prices []float64
}

// NewPriceCurve builds a curve from a per-interval price slice.
func NewPriceCurve(prices []float64) PriceCurve {
	cp := make([]float64, len(prices))
	copy(cp, prices)
	return PriceCurve{prices: cp}
}

// Len returns the number of priced intervals.
func (c PriceCurve) Len() int { return len(c.prices) }

// At returns the price for interval t.
func (c PriceCurve) At(t int) float64 { return c.prices[t] }

// Values returns a copy of the per-interval prices.
func (c PriceCurve) Values() []float64 {
	cp := make([]float64, len(c.prices))
	copy(cp, c.prices)
	return cp
}

// Validate checks that the curve covers the whole horizon.
func (c PriceCurve) Validate(h Horizon) error {
	if len(c.prices) != h.Slots {
		return fmt.Errorf("price curve covers %d intervals, horizon has %d", len(c.prices), h.Slots)
	}
	return nil
}
