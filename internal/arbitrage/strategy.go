package arbitrage

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Strategy selects how stakes are split across the two sides of an opportunity
type Strategy int

const (
	// StrategyUnbiased stakes target/odds on each side so either result pays target
	StrategyUnbiased Strategy = iota + 1
	// StrategyBiased is reserved; it has no allocation rule yet
	StrategyBiased
)

func (s Strategy) String() string {
	switch s {
	case StrategyUnbiased:
		return "unbiased"
	case StrategyBiased:
		return "biased"
	}
	return "unknown"
}

// ParseStrategy maps a configured name onto a Strategy
func ParseStrategy(name string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "unbiased":
		return StrategyUnbiased, nil
	case "biased":
		return StrategyBiased, nil
	}
	return 0, &ConfigurationError{Strategy: name, Err: ErrUnknownStrategy}
}

// Allocation is the stake to place on each side
type Allocation struct {
	Win  float64 `json:"win"`
	Loss float64 `json:"loss"`
}

// Allocate computes per-side stakes for a confirmed opportunity.
// Only the unbiased rule is defined; every other strategy is a ConfigurationError.
func (s Strategy) Allocate(winOdds, lossOdds, targetPayout float64) (Allocation, error) {
	switch s {
	case StrategyUnbiased:
		if !usableOdds(winOdds) || !usableOdds(lossOdds) {
			return Allocation{}, fmt.Errorf("allocate %v/%v: %w", winOdds, lossOdds, ErrUnusableOdds)
		}
		if !usableOdds(targetPayout) {
			return Allocation{}, fmt.Errorf("allocate for payout %v: %w", targetPayout, ErrInvalidPayout)
		}
		return Allocation{
			Win:  stakeFor(targetPayout, winOdds),
			Loss: stakeFor(targetPayout, lossOdds),
		}, nil
	case StrategyBiased:
		return Allocation{}, &ConfigurationError{Strategy: s.String(), Err: ErrStrategyUnavailable}
	}
	return Allocation{}, &ConfigurationError{Strategy: s.String(), Err: ErrUnknownStrategy}
}

// stakeFor returns target/odds rounded to cents
func stakeFor(target, odds float64) float64 {
	stake, _ := decimal.NewFromFloat(target).
		Div(decimal.NewFromFloat(odds)).
		Round(2).
		Float64()
	return stake
}
