// Package consensus implements the orchestrator: it dispatches the
// enabled specialists concurrently, applies per-specialist timeout and
// retry, and fuses their outputs under a weighted-consensus rule.
package consensus

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/verdictlabs/verdict/internal/config"
	"github.com/verdictlabs/verdict/internal/core"
	"github.com/verdictlabs/verdict/internal/lineage"
	"github.com/verdictlabs/verdict/internal/llm"
	"github.com/verdictlabs/verdict/internal/marketdata"
	"github.com/verdictlabs/verdict/internal/metrics"
	"github.com/verdictlabs/verdict/internal/specialist"
	"github.com/verdictlabs/verdict/internal/tier"
)

// quorumKinds: at least one of these must respond for a quorum.
var quorumKinds = map[core.SpecialistKind]bool{
	core.KindTechnical:   true,
	core.KindFundamental: true,
}

// Engine fans out to specialists and merges their results.
type Engine struct {
	cfg      config.ConsensusConfig
	registry *specialist.Registry
	market   marketdata.Provider
	llm      llm.Provider // optional, deep-tier reasoning summary
	router   *tier.Router
	tracker  *lineage.Tracker
	metrics  *metrics.Registry
	logger   *zap.Logger
}

// New creates a consensus engine. llmProvider, router, tracker and
// metricsReg may be nil; the engine degrades gracefully without them.
func New(
	cfg config.ConsensusConfig,
	registry *specialist.Registry,
	market marketdata.Provider,
	llmProvider llm.Provider,
	router *tier.Router,
	tracker *lineage.Tracker,
	metricsReg *metrics.Registry,
	logger *zap.Logger,
) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MinQuorum <= 0 {
		cfg.MinQuorum = 2
	}
	if cfg.SpecialistTimeout <= 0 {
		cfg.SpecialistTimeout = 45 * time.Second
	}
	if cfg.BaseBlend <= 0 || cfg.BaseBlend > 1 {
		cfg.BaseBlend = 0.70
	}
	return &Engine{
		cfg:      cfg,
		registry: registry,
		market:   market,
		llm:      llmProvider,
		router:   router,
		tracker:  tracker,
		metrics:  metricsReg,
		logger:   logger,
	}
}

func (e *Engine) weight(kind core.SpecialistKind) float64 {
	if w, ok := e.cfg.Weights[string(kind)]; ok {
		return w
	}
	return 0.1
}

// outcomeStatus classifies how a specialist dispatch resolved. Absent
// is not fatal; the specialist's weight is redistributed among the
// responders.
type outcomeStatus int

const (
	outcomeOK outcomeStatus = iota
	outcomeAbsent
)

type outcome struct {
	kind     core.SpecialistKind
	status   outcomeStatus
	result   *core.SpecialistResult
	err      error
	attempts int
}

// Run executes the task: one recommendation per symbol, plus that
// symbol's provenance summary. The tracker is cleared before each
// symbol so a summary covers only its own fields and nothing leaks
// across symbols or earlier requests. Quorum failure on any symbol
// fails the whole task.
func (e *Engine) Run(ctx context.Context, task core.AnalysisTask) ([]core.ConsensusRecommendation, map[string]lineage.Summary, error) {
	if len(task.Symbols) == 0 {
		return nil, nil, core.WrapError(core.ErrNoSymbols, nil)
	}
	e.metrics.AnalysisStarted()
	started := time.Now()

	recs := make([]core.ConsensusRecommendation, 0, len(task.Symbols))
	summaries := make(map[string]lineage.Summary, len(task.Symbols))
	for _, symbol := range task.Symbols {
		if e.tracker != nil {
			e.tracker.Reset()
		}
		rec, err := e.runSymbol(ctx, task, symbol)
		if err != nil {
			e.metrics.AnalysisFailed(failReason(err))
			return nil, nil, err
		}
		recs = append(recs, *rec)
		if e.tracker != nil {
			summaries[symbol] = e.tracker.Summarize()
		}
	}

	e.metrics.AnalysisCompleted(time.Since(started).Seconds())
	return recs, summaries, nil
}

func (e *Engine) runSymbol(ctx context.Context, task core.AnalysisTask, symbol string) (*core.ConsensusRecommendation, error) {
	sc := e.gatherContext(ctx, symbol)

	outcomes := e.dispatch(ctx, task, sc)

	var responders []*core.SpecialistResult
	quorumMet := false
	for _, o := range outcomes {
		if o.status == outcomeOK {
			responders = append(responders, o.result)
			if quorumKinds[o.kind] {
				quorumMet = true
			}
			e.metrics.SpecialistOutcome(string(o.kind), "ok")
		} else {
			e.logger.Warn("specialist absent",
				zap.String("symbol", symbol),
				zap.String("kind", string(o.kind)),
				zap.Int("attempts", o.attempts),
				zap.Error(o.err))
			e.metrics.SpecialistOutcome(string(o.kind), "absent")
		}
	}

	if len(responders) < e.cfg.MinQuorum || !quorumMet {
		return nil, core.WrapError(core.ErrInsufficientQuorum,
			fmt.Errorf("symbol %s: %d of %d specialists responded (technical/fundamental present: %v)",
				symbol, len(responders), len(outcomes), quorumMet))
	}

	return e.merge(ctx, task, symbol, sc, responders)
}

// gatherContext fetches quote and history. Market-data failures
// degrade to fallback-tier lineage with reduced confidence; they never
// abort the pipeline.
func (e *Engine) gatherContext(ctx context.Context, symbol string) specialist.Context {
	sc := specialist.Context{Symbol: symbol}
	if e.market == nil {
		return sc
	}

	quote, err := e.market.Quote(ctx, symbol)
	if err != nil {
		e.logger.Warn("quote fetch failed, degrading",
			zap.String("symbol", symbol), zap.Error(err))
		e.lineageRecord(lineage.Record{
			Field: "market_price", Source: e.market.Name(),
			Tier: lineage.TierFallback, Confidence: 0.3,
		})
	} else {
		sc.Quote = quote
		e.lineageRecord(lineage.Record{
			Field: "market_price", Value: quote.Price, Source: quote.Source,
			Tier: lineage.TierPrimary, Confidence: 0.95, DataTimestamp: quote.Time,
		})
	}

	history, err := e.market.History(ctx, symbol, 250)
	if err != nil {
		e.logger.Warn("history fetch failed, degrading",
			zap.String("symbol", symbol), zap.Error(err))
	} else {
		sc.History = history
	}
	return sc
}

// dispatch runs every enabled specialist concurrently, each bounded by
// its own timeout and retried with exponential backoff before being
// declared absent.
func (e *Engine) dispatch(ctx context.Context, task core.AnalysisTask, sc specialist.Context) []outcome {
	specs := e.registry.Enabled(task)
	outcomes := make([]outcome, len(specs))

	var wg sync.WaitGroup
	for i, s := range specs {
		wg.Add(1)
		go func(i int, s specialist.Specialist) {
			defer wg.Done()
			outcomes[i] = e.callWithRetry(ctx, s, sc)
		}(i, s)
	}
	wg.Wait()

	return outcomes
}

func (e *Engine) callWithRetry(ctx context.Context, s specialist.Specialist, sc specialist.Context) outcome {
	o := outcome{kind: s.Kind(), status: outcomeAbsent}

	policy := backoff.NewExponentialBackOff()
	if e.cfg.InitialBackoff > 0 {
		policy.InitialInterval = e.cfg.InitialBackoff
	}
	retries := uint64(e.cfg.MaxRetries)

	op := func() error {
		o.attempts++
		callCtx, cancel := context.WithTimeout(ctx, e.cfg.SpecialistTimeout)
		defer cancel()

		result, err := s.Analyze(callCtx, sc)
		if err != nil {
			if errors.Is(err, core.ErrNoData) {
				// Retrying cannot conjure missing data.
				return backoff.Permanent(err)
			}
			if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
				return core.WrapError(core.ErrSpecialistTimeout, err)
			}
			return core.WrapError(core.ErrSpecialistFailed, err)
		}
		o.result = result
		return nil
	}

	err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(policy, retries), ctx))
	if err != nil {
		o.err = err
		return o
	}
	o.status = outcomeOK
	return o
}

// merge fuses responder results into one recommendation and runs the
// optional enrichment pass.
func (e *Engine) merge(ctx context.Context, task core.AnalysisTask, symbol string, sc specialist.Context, responders []*core.SpecialistResult) (*core.ConsensusRecommendation, error) {
	baseScore, baseConf, baseContribs := e.mergeBase(responders)

	finalScore := baseScore
	breakdown := core.ConsensusBreakdown{
		BaseWeight:       1.0,
		EnrichmentWeight: 0.0,
		BaseScore:        baseScore,
		Contributions:    baseContribs,
	}

	if task.Enrichment || task.Wants(core.KindNews) || task.Wants(core.KindMacro) || task.Wants(core.KindSentiment) {
		if enrichScore, enrichContribs, ok := e.mergeEnrichment(responders); ok {
			finalScore = baseScore*e.cfg.BaseBlend + enrichScore*(1-e.cfg.BaseBlend)
			breakdown.BaseWeight = e.cfg.BaseBlend
			breakdown.EnrichmentWeight = 1 - e.cfg.BaseBlend
			breakdown.EnrichmentScore = enrichScore
			breakdown.Contributions = append(breakdown.Contributions, enrichContribs...)
		}
	}
	breakdown.FinalScore = finalScore

	action := scoreAction(finalScore)

	entry, target, stop, levelSource, err := priceLevels(responders, sc.Quote, action)
	if err != nil {
		return nil, core.WrapError(core.ErrInsufficientQuorum,
			fmt.Errorf("symbol %s: %w", symbol, err))
	}

	rec := &core.ConsensusRecommendation{
		TaskID:      task.ID,
		Symbol:      symbol,
		Action:      action,
		EntryPrice:  entry,
		TargetPrice: target,
		StopLoss:    stop,
		Confidence:  baseConf,
		Reasoning:   e.reasoning(ctx, symbol, responders, breakdown),
		Breakdown:   breakdown,
		GeneratedAt: time.Now(),
	}

	levelTier := lineage.TierPrimary
	if levelSource == "derived" {
		levelTier = lineage.TierSecondary
	}
	e.lineageRecord(lineage.Record{Field: "entry_price", Value: entry, Source: levelSource, Tier: levelTier, Confidence: baseConf})
	e.lineageRecord(lineage.Record{Field: "target_price", Value: target, Source: levelSource, Tier: levelTier, Confidence: baseConf})
	e.lineageRecord(lineage.Record{Field: "stop_loss", Value: stop, Source: levelSource, Tier: levelTier, Confidence: baseConf})
	e.lineageRecord(lineage.Record{Field: "action", Value: string(action), Source: "consensus", Tier: lineage.TierPrimary, Confidence: baseConf})

	return rec, nil
}

// reasoning assembles the audit narrative, upgraded by a deep-tier
// model summary when a provider is wired. The model call is best
// effort; its failure never fails the task.
func (e *Engine) reasoning(ctx context.Context, symbol string, responders []*core.SpecialistResult, breakdown core.ConsensusBreakdown) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Consensus of %d specialists (final score %.2f). ", len(responders), breakdown.FinalScore))
	for _, r := range responders {
		if r.Reasoning != "" {
			sb.WriteString(fmt.Sprintf("[%s] %s ", r.Kind, r.Reasoning))
		}
	}
	assembled := strings.TrimSpace(sb.String())

	if e.llm == nil {
		return assembled
	}

	modelTier := tier.TierDeep
	if e.router != nil {
		modelTier = e.router.Route(tier.TaskDescriptor{Kind: tier.TaskSynthesis, InputSize: len(assembled)})
	}
	resp, err := e.llm.Chat(ctx, llm.ChatRequest{
		SystemPrompt: synthesisSystemPrompt,
		Messages: []llm.Message{{
			Role:    "user",
			Content: fmt.Sprintf("Symbol: %s\n\n%s\n\nWrite a concise, investor-facing rationale (3-4 sentences).", symbol, assembled),
		}},
		MaxTokens:   512,
		Temperature: 0.3,
		Tier:        modelTier,
	})
	if err != nil {
		e.logger.Warn("synthesis summary failed, using assembled reasoning",
			zap.String("symbol", symbol), zap.Error(err))
		return assembled
	}
	if e.router != nil {
		e.router.Record(modelTier, resp.Usage.Total(), 0)
	}
	e.metrics.TierCall(string(modelTier))
	if s := strings.TrimSpace(resp.Content); s != "" {
		return s
	}
	return assembled
}

func (e *Engine) lineageRecord(r lineage.Record) {
	if e.tracker != nil {
		e.tracker.Record(r)
	}
}

func failReason(err error) string {
	var ce *core.Error
	if errors.As(err, &ce) {
		return ce.Code
	}
	return "UNKNOWN"
}

const synthesisSystemPrompt = `You are the final-synthesis writer for a multi-analyst trading recommendation system. You receive the individual analysts' findings and the consensus outcome. Write a tight, factual rationale for the recommendation. Never introduce numbers that are not in the input.`
