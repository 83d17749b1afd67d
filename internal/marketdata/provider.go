// Package marketdata defines the consumed market-data contract.
// Provider failures degrade the pipeline to fallback-tier lineage with
// reduced confidence; they never abort an analysis outright.
package marketdata

import (
	"context"

	"github.com/verdictlabs/verdict/internal/core"
)

// Provider supplies quotes and price history.
type Provider interface {
	Name() string
	Quote(ctx context.Context, symbol string) (*core.Quote, error)
	History(ctx context.Context, symbol string, days int) ([]core.OHLCV, error)
}
