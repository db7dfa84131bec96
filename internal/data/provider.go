package data

import (
	"context"
	"errors"
	"fmt"

	"github.com/equityrun/equityrun/internal/domain/market"
)

// Provider fetches ordered daily history for a symbol. Implementations must
// return bars sorted ascending by date.
type Provider interface {
	Fetch(ctx context.Context, symbol string, period Period) ([]market.Bar, error)
}

// Period selects how much history to request.
type Period string

const (
	Period6Months Period = "6mo"
	Period1Year   Period = "1y"
	Period2Years  Period = "2y"
	Period5Years  Period = "5y"
)

// Days returns the approximate calendar span of the period, used by
// providers that take explicit date ranges.
func (p Period) Days() int {
	switch p {
	case Period6Months:
		return 183
	case Period1Year:
		return 365
	case Period2Years:
		return 730
	case Period5Years:
		return 1826
	default:
		return 365
	}
}

// NoDataError marks a symbol with no usable history. Batch callers match on
// it to report the symbol and move on.
type NoDataError struct {
	Symbol string
}

func (e *NoDataError) Error() string {
	return fmt.Sprintf("no data available for symbol %s", e.Symbol)
}

// IsNoData reports whether err is a NoDataError anywhere in its chain.
func IsNoData(err error) bool {
	var nde *NoDataError
	return errors.As(err, &nde)
}
