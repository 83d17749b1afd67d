package marketdata

import (
	"context"
	"sync"

	"github.com/verdictlabs/verdict/internal/core"
)

// Static is an in-memory provider for tests and offline runs.
type Static struct {
	mu      sync.RWMutex
	quotes  map[string]core.Quote
	history map[string][]core.OHLCV
}

// NewStatic creates an empty static provider.
func NewStatic() *Static {
	return &Static{
		quotes:  make(map[string]core.Quote),
		history: make(map[string][]core.OHLCV),
	}
}

// Name returns the provider name.
func (s *Static) Name() string {
	return "static"
}

// SetQuote seeds a quote.
func (s *Static) SetQuote(q core.Quote) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.quotes[q.Symbol] = q
}

// SetHistory seeds price history.
func (s *Static) SetHistory(symbol string, bars []core.OHLCV) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history[symbol] = bars
}

// Quote returns the seeded quote for symbol.
func (s *Static) Quote(_ context.Context, symbol string) (*core.Quote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	q, ok := s.quotes[symbol]
	if !ok {
		return nil, core.WrapError(core.ErrNoData, nil)
	}
	return &q, nil
}

// History returns up to days bars of seeded history, newest last.
func (s *Static) History(_ context.Context, symbol string, days int) ([]core.OHLCV, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	bars, ok := s.history[symbol]
	if !ok || len(bars) == 0 {
		return nil, core.WrapError(core.ErrNoData, nil)
	}
	if days > 0 && len(bars) > days {
		bars = bars[len(bars)-days:]
	}
	out := make([]core.OHLCV, len(bars))
	copy(out, bars)
	return out, nil
}
