/*
Package core provides the domain-agnostic building blocks for the shift engine.

PURPOSE:
  This package contains the types shared by every domain package: precise
  currency amounts, the clock abstraction that makes time injectable, the
  error taxonomy, and the structured validation result.

KEY CONCEPTS IN THIS FILE (money.go):
  - Money: A currency amount backed by decimal.Decimal
  - Hours: Fractional hour arithmetic with the same precision guarantees

DESIGN PRINCIPLES:
  1. Precision: Uses decimal.Decimal to avoid floating-point drift in pay math
  2. No NaN: Malformed float inputs collapse to zero instead of poisoning
     every aggregate downstream
  3. float64 appears only at the JSON boundary, never in stored state

SEE ALSO:
  - clock.go: Clock and Ticker abstractions
  - errors.go: Sentinel and structured errors
  - shift/earnings.go: The main consumer of Money arithmetic
*/
package core

import (
	"math"

	"github.com/shopspring/decimal"
)

// =============================================================================
// MONEY - Currency amount with decimal precision
// =============================================================================

type Money struct {
	Value decimal.Decimal
}

func NewMoney(value decimal.Decimal) Money {
	return Money{Value: value}
}

// NewMoneyFromFloat converts a float amount. NaN and Inf yield zero: a broken
// input must degrade a single figure, not crash the aggregate pipeline.
func NewMoneyFromFloat(value float64) Money {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return Money{Value: decimal.Zero}
	}
	return Money{Value: decimal.NewFromFloat(value)}
}

func NewMoneyFromInt(value int64) Money {
	return Money{Value: decimal.NewFromInt(value)}
}

// MustParseMoney parses a decimal string, yielding zero on malformed input.
func MustParseMoney(s string) Money {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{Value: decimal.Zero}
	}
	return Money{Value: d}
}

func ZeroMoney() Money { return Money{Value: decimal.Zero} }

func (m Money) Add(o Money) Money              { return Money{Value: m.Value.Add(o.Value)} }
func (m Money) Sub(o Money) Money              { return Money{Value: m.Value.Sub(o.Value)} }
func (m Money) Mul(s decimal.Decimal) Money    { return Money{Value: m.Value.Mul(s)} }
func (m Money) Neg() Money                     { return Money{Value: m.Value.Neg()} }
func (m Money) IsZero() bool                   { return m.Value.IsZero() }
func (m Money) IsNegative() bool               { return m.Value.IsNegative() }
func (m Money) IsPositive() bool               { return m.Value.IsPositive() }
func (m Money) Equal(o Money) bool             { return m.Value.Equal(o.Value) }
func (m Money) GreaterThan(o Money) bool       { return m.Value.GreaterThan(o.Value) }
func (m Money) GreaterOrEqual(o Money) bool    { return m.Value.GreaterThanOrEqual(o.Value) }
func (m Money) LessThan(o Money) bool          { return m.Value.LessThan(o.Value) }

// RoundCents rounds to 2 decimal places for display and persistence.
func (m Money) RoundCents() Money { return Money{Value: m.Value.Round(2)} }

func (m Money) Float64() float64 {
	f, _ := m.Value.Float64()
	return f
}

func (m Money) String() string { return m.Value.StringFixed(2) }
