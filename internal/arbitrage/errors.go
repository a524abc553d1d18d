package arbitrage

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownStrategy     = errors.New("unknown allocation strategy")
	ErrStrategyUnavailable = errors.New("allocation strategy not yet available")
	ErrUnusableOdds        = errors.New("odds must be finite and positive")
	ErrInvalidPayout       = errors.New("target payout must be finite and positive")
)

// ConfigurationError reports a strategy selection that cannot be honoured
type ConfigurationError struct {
	Strategy string
	Err      error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: strategy %q: %v", e.Strategy, e.Err)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}
