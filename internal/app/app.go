// Package app assembles the analysis pipeline from configuration:
// cache, router, providers, specialists, consensus engine, validator,
// sizer, archive and the drift monitor.
package app

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/verdictlabs/verdict/internal/alert"
	"github.com/verdictlabs/verdict/internal/cache"
	"github.com/verdictlabs/verdict/internal/config"
	"github.com/verdictlabs/verdict/internal/consensus"
	"github.com/verdictlabs/verdict/internal/core"
	"github.com/verdictlabs/verdict/internal/drift"
	"github.com/verdictlabs/verdict/internal/indicator"
	"github.com/verdictlabs/verdict/internal/lineage"
	"github.com/verdictlabs/verdict/internal/llm"
	"github.com/verdictlabs/verdict/internal/llm/factory"
	"github.com/verdictlabs/verdict/internal/marketdata"
	"github.com/verdictlabs/verdict/internal/metrics"
	"github.com/verdictlabs/verdict/internal/search"
	"github.com/verdictlabs/verdict/internal/sizing"
	"github.com/verdictlabs/verdict/internal/specialist"
	"github.com/verdictlabs/verdict/internal/store"
	"github.com/verdictlabs/verdict/internal/tier"
	"github.com/verdictlabs/verdict/internal/validate"
)

// historyDays is how much daily history the pipeline pulls for
// indicator computation during validation and sizing.
const historyDays = 90

// App owns every pipeline component for the process lifetime.
type App struct {
	cfg    *config.Config
	logger *zap.Logger

	Cache       cache.Cache
	Router      *tier.Router
	Market      marketdata.Provider
	LLM         llm.Provider
	Specialists *specialist.Registry
	Tracker     *lineage.Tracker
	Engine      *consensus.Engine
	Validator   *validate.Validator
	Sizer       *sizing.Sizer
	Archive     *store.Archive
	Alerts      *alert.Registry
	Monitor     *drift.Monitor
	Metrics     *metrics.Registry
}

// Result is the full pipeline outcome for one symbol.
type Result struct {
	Recommendation core.ConsensusRecommendation `json:"recommendation"`
	Validation     core.ValidationOutcome       `json:"validation"`
	Sizing         *sizing.Recommendation       `json:"sizing,omitempty"`
}

// New wires the pipeline. The LLM provider is optional: without one
// only the technical and fundamental specialists run, which still
// satisfies quorum.
func New(cfg *config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var metricsReg *metrics.Registry
	if cfg.Metrics.Enabled {
		metricsReg = metrics.NewRegistry()
	}

	var responseCache cache.Cache
	switch cfg.Cache.Backend {
	case "redis":
		r, err := cache.NewRedis(cache.RedisConfig{
			Addr:        cfg.Cache.Redis.Addr,
			Password:    cfg.Cache.Redis.Password,
			DB:          cfg.Cache.Redis.DB,
			TTL:         cfg.Cache.TTL,
			CostPerCall: cfg.Cache.CostPerCall,
		}, logger)
		if err != nil {
			return nil, err
		}
		responseCache = r
	default:
		responseCache = cache.NewMemory(
			cache.WithTTL(cfg.Cache.TTL),
			cache.WithCostPerCall(cfg.Cache.CostPerCall))
	}

	router := tier.New(tier.Config{
		MaxCheapInput:   cfg.Tier.MaxCheapInput,
		DeepCostPerCall: cfg.Tier.DeepCostPerCall,
	})

	market := marketdata.NewYahoo()

	var searcher *search.Cached
	if cfg.Search.Endpoint != "" {
		searcher = search.NewCached(
			search.NewHTTP(cfg.Search.Endpoint, cfg.Search.APIKey),
			responseCache, metricsReg, logger)
	}

	enabled := make(map[core.SpecialistKind]bool, len(cfg.Specialists.Enabled))
	for _, kind := range cfg.Specialists.Enabled {
		enabled[core.SpecialistKind(kind)] = true
	}

	registry := specialist.NewRegistry()
	if enabled[core.KindTechnical] {
		registry.Register(specialist.NewTechnical(logger))
	}
	if enabled[core.KindFundamental] {
		registry.Register(specialist.NewFundamental(logger))
	}

	llmProvider, err := factory.New(cfg.LLM)
	if err != nil {
		logger.Warn("LLM provider unavailable, running core specialists only", zap.Error(err))
		llmProvider = nil
	} else {
		for _, kind := range []core.SpecialistKind{
			core.KindSentiment, core.KindRisk, core.KindMacro, core.KindNews,
		} {
			if enabled[kind] {
				registry.Register(specialist.NewLLM(kind, llmProvider, router, searcher, logger))
			}
		}
	}

	tracker := lineage.NewTracker()
	engine := consensus.New(cfg.Consensus, registry, market, llmProvider, router, tracker, metricsReg, logger)

	archive, err := store.Open(cfg.Store)
	if err != nil {
		return nil, err
	}

	alerts := alert.NewRegistry()
	if err := alerts.Register(alert.NewLog(logger)); err != nil {
		return nil, err
	}
	if cfg.Alerts.WebhookURL != "" {
		if err := alerts.Register(alert.NewWebhook(cfg.Alerts.WebhookURL, cfg.Alerts.Headers)); err != nil {
			return nil, err
		}
	}

	a := &App{
		cfg:         cfg,
		logger:      logger,
		Cache:       responseCache,
		Router:      router,
		Market:      market,
		LLM:         llmProvider,
		Specialists: registry,
		Tracker:     tracker,
		Engine:      engine,
		Validator:   validate.New(),
		Sizer:       sizing.New(cfg.Sizing, logger),
		Archive:     archive,
		Alerts:      alerts,
		Metrics:     metricsReg,
	}
	var probe drift.SentimentFn
	if llmProvider != nil {
		probe = a.sentimentProbe()
	}
	a.Monitor = drift.New(cfg.Drift, market, probe, alerts, metricsReg, logger)
	return a, nil
}

// Analyze runs the full pipeline for the symbols: consensus dispatch,
// validation with auto-correction, position sizing and persistence.
// accountValue of zero skips sizing.
func (a *App) Analyze(ctx context.Context, symbols []string, accountValue float64) ([]Result, error) {
	task := core.AnalysisTask{
		ID:         uuid.NewString(),
		Symbols:    symbols,
		Enrichment: true,
		CreatedAt:  time.Now(),
	}

	recs, lineages, err := a.Engine.Run(ctx, task)
	if err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(recs))
	for i := range recs {
		results = append(results, a.finalize(ctx, &recs[i], lineages[recs[i].Symbol], accountValue))
	}
	return results, nil
}

// finalize validates, sizes, persists and registers the drift watch
// for one recommendation. Persistence failures are logged, not fatal;
// the recommendation is still returned to the caller.
func (a *App) finalize(ctx context.Context, rec *core.ConsensusRecommendation, provenance lineage.Summary, accountValue float64) Result {
	currentPrice, atr, volatility := a.marketSnapshot(ctx, rec.Symbol)
	if currentPrice <= 0 {
		currentPrice = rec.EntryPrice
	}

	outcome := a.Validator.Validate(rec, currentPrice, atr)
	for range outcome.Errors {
		a.Metrics.ValidatorError()
	}
	for range outcome.CorrectedValues {
		a.Metrics.ValidatorFix()
	}

	res := Result{Recommendation: *rec, Validation: outcome}

	if outcome.IsValid && accountValue > 0 && rec.Action != core.ActionHold {
		sized := a.Sizer.Recommend(rec.Action, accountValue, rec.EntryPrice, rec.StopLoss, rec.TargetPrice, volatility, 0)
		res.Sizing = &sized
	}

	doc := &store.Document{
		TaskID:         rec.TaskID,
		Symbol:         rec.Symbol,
		Recommendation: rec,
		Validation:     &outcome,
		Sizing:         res.Sizing,
		Lineage:        &provenance,
	}
	if err := a.Archive.Put(ctx, doc); err != nil {
		a.logger.Error("persisting result failed",
			zap.String("symbol", rec.Symbol), zap.Error(err))
	}

	if outcome.IsValid && a.cfg.Drift.Enabled {
		a.Monitor.Watch(rec, rec.Breakdown.EnrichmentScore)
	}
	return res
}

// marketSnapshot pulls the fresh numbers validation and sizing need.
// Everything degrades to zero; callers fall back accordingly.
func (a *App) marketSnapshot(ctx context.Context, symbol string) (price, atr, volatility float64) {
	if quote, err := a.Market.Quote(ctx, symbol); err == nil {
		price = quote.Price
	}
	if bars, err := a.Market.History(ctx, symbol, historyDays); err == nil {
		atr = indicator.ATR(bars, 14)
		volatility = indicator.Volatility(indicator.Closes(bars))
	}
	return price, atr, volatility
}

// sentimentProbe adapts the sentiment specialist into the lightweight
// signal the drift monitor polls.
func (a *App) sentimentProbe() drift.SentimentFn {
	return func(ctx context.Context, symbol string) (float64, error) {
		s, ok := a.Specialists.Get(core.KindSentiment)
		if !ok {
			return 0, core.WrapError(core.ErrNoData, nil)
		}
		result, err := s.Analyze(ctx, specialist.Context{Symbol: symbol})
		if err != nil {
			return 0, err
		}
		return core.NumField(result.Payload, "score", 0), nil
	}
}

// InvalidateSymbol drops every cached search result for the symbol,
// typically after a material news event.
func (a *App) InvalidateSymbol(ctx context.Context, symbol string) {
	a.Cache.Invalidate(ctx, symbol)
}

// Close releases long-lived resources.
func (a *App) Close() {
	if c, ok := a.Cache.(interface{ Close() }); ok {
		c.Close()
	}
}
