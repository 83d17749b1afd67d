// Package specialist defines the uniform contract every analysis
// specialist implements, and the registry the orchestrator dispatches
// through.
package specialist

import (
	"context"

	"github.com/verdictlabs/verdict/internal/core"
)

// Context carries the inputs for one specialist call.
type Context struct {
	Symbol       string
	Quote        *core.Quote
	History      []core.OHLCV
	PriorSignals []core.SpecialistResult
}

// Specialist produces a raw domain analysis for one symbol. Analyze
// must honor the caller-supplied context deadline.
type Specialist interface {
	Kind() core.SpecialistKind
	Analyze(ctx context.Context, sc Context) (*core.SpecialistResult, error)
}
