package specialist

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/verdictlabs/verdict/internal/core"
	"github.com/verdictlabs/verdict/internal/llm"
	"github.com/verdictlabs/verdict/internal/search"
	"github.com/verdictlabs/verdict/internal/tier"
)

// LLM is a language-model-backed specialist covering the sentiment,
// risk, macro and news domains. It gathers context through the cached
// search provider and asks the model for a structured verdict; the
// call is routed through the tier router so extraction stays on the
// cheap tier.
type LLM struct {
	kind     core.SpecialistKind
	provider llm.Provider
	router   *tier.Router
	searcher *search.Cached
	logger   *zap.Logger
}

// NewLLM creates an LLM-backed specialist for the given kind.
func NewLLM(kind core.SpecialistKind, provider llm.Provider, router *tier.Router, searcher *search.Cached, logger *zap.Logger) *LLM {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LLM{
		kind:     kind,
		provider: provider,
		router:   router,
		searcher: searcher,
		logger:   logger,
	}
}

// Kind returns the specialist kind.
func (l *LLM) Kind() core.SpecialistKind {
	return l.kind
}

// verdict is the JSON shape the model is asked to produce.
type verdict struct {
	Action     string  `json:"action"`
	Confidence float64 `json:"confidence"`
	Score      float64 `json:"score"`
	Summary    string  `json:"summary"`
}

// Analyze searches for recent context and asks the model for a
// structured directional verdict.
func (l *LLM) Analyze(ctx context.Context, sc Context) (*core.SpecialistResult, error) {
	query := l.query(sc.Symbol)

	var results []search.Result
	var cacheHit bool
	if l.searcher != nil {
		var err error
		results, cacheHit, err = l.searcher.SearchScoped(ctx, query, search.DepthBasic, 5, sc.Symbol)
		if err != nil {
			// Degraded mode: proceed on quote data alone.
			l.logger.Warn("search failed, analyzing without context",
				zap.String("kind", string(l.kind)),
				zap.String("symbol", sc.Symbol),
				zap.Error(err))
		}
	}

	prompt := l.buildPrompt(sc, results)

	desc := tier.TaskDescriptor{Kind: tier.TaskExtraction, InputSize: len(prompt)}
	modelTier := tier.TierCheap
	if l.router != nil {
		modelTier = l.router.Route(desc)
	}

	resp, err := l.provider.Chat(ctx, llm.ChatRequest{
		SystemPrompt: l.systemPrompt(),
		Messages:     []llm.Message{{Role: "user", Content: prompt}},
		MaxTokens:    512,
		Temperature:  0.2,
		JSONMode:     true,
		Tier:         modelTier,
	})
	if err != nil {
		return nil, core.WrapError(core.ErrLLMFailed, err)
	}
	if l.router != nil {
		l.router.Record(modelTier, resp.Usage.Total(), 0)
	}

	v, err := parseVerdict(resp.Content)
	if err != nil {
		return nil, core.WrapError(core.ErrSpecialistFailed, err)
	}

	citations := make([]core.Citation, 0, len(results))
	for _, r := range results {
		citations = append(citations, r.Citation)
	}

	return &core.SpecialistResult{
		Kind:       l.kind,
		Symbol:     sc.Symbol,
		Action:     normalizeAction(v.Action),
		Confidence: clamp01(v.Confidence),
		Reasoning:  v.Summary,
		Payload: map[string]any{
			"score":     clampScore(v.Score),
			"sources":   len(results),
			"cache_hit": cacheHit,
		},
		Citations:  citations,
		ProducedAt: time.Now(),
	}, nil
}

func (l *LLM) query(symbol string) string {
	switch l.kind {
	case core.KindSentiment:
		return fmt.Sprintf("%s stock investor sentiment social media", symbol)
	case core.KindRisk:
		return fmt.Sprintf("%s stock risk factors volatility short interest", symbol)
	case core.KindMacro:
		return fmt.Sprintf("macroeconomic outlook rates inflation sector impact %s", symbol)
	default:
		return fmt.Sprintf("%s stock latest news", symbol)
	}
}

func (l *LLM) buildPrompt(sc Context, results []search.Result) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("## Symbol: %s\n\n", sc.Symbol))
	if sc.Quote != nil {
		sb.WriteString(fmt.Sprintf("Current price: %.2f (prev close %.2f)\n\n",
			sc.Quote.Price, sc.Quote.PrevClose))
	}

	if len(results) > 0 {
		sb.WriteString("## Context:\n")
		for i, r := range results {
			if i >= 5 {
				break
			}
			sb.WriteString(fmt.Sprintf("- %s: %s\n", r.Title, truncate(r.Content, 300)))
		}
		sb.WriteString("\n")
	}

	sb.WriteString("## Task:\n")
	sb.WriteString(fmt.Sprintf("Assess the %s picture for this security.\n", l.kind))
	sb.WriteString("Respond with JSON containing: action (STRONG_SELL/SELL/HOLD/BUY/STRONG_BUY), confidence (0-1), score (-1 to 1), summary.\n")

	return sb.String()
}

func (l *LLM) systemPrompt() string {
	return fmt.Sprintf(`You are a %s analyst for equities. Assess only your domain; do not consider factors outside it.

Always respond with valid JSON:
{
  "action": "STRONG_SELL" | "SELL" | "HOLD" | "BUY" | "STRONG_BUY",
  "confidence": 0.0-1.0,
  "score": -1.0 to 1.0,
  "summary": "one-paragraph assessment"
}

Be conservative when evidence is thin. HOLD with low confidence is appropriate when the picture is unclear.`, l.kind)
}

// parseVerdict parses the model's JSON, falling back to keyword
// extraction when the model ignored JSON mode.
func parseVerdict(content string) (*verdict, error) {
	var v verdict
	if err := json.Unmarshal([]byte(content), &v); err == nil && v.Action != "" {
		return &v, nil
	}

	upper := strings.ToUpper(content)
	v = verdict{Action: string(core.ActionHold), Confidence: 0.4, Summary: truncate(content, 500)}
	switch {
	case strings.Contains(upper, "STRONG_BUY") || strings.Contains(upper, "STRONG BUY"):
		v.Action = string(core.ActionStrongBuy)
		v.Score = 0.8
	case strings.Contains(upper, "STRONG_SELL") || strings.Contains(upper, "STRONG SELL"):
		v.Action = string(core.ActionStrongSell)
		v.Score = -0.8
	case strings.Contains(upper, "BUY") && !strings.Contains(upper, "SELL"):
		v.Action = string(core.ActionBuy)
		v.Score = 0.5
	case strings.Contains(upper, "SELL") && !strings.Contains(upper, "BUY"):
		v.Action = string(core.ActionSell)
		v.Score = -0.5
	}
	if v.Summary == "" {
		return nil, fmt.Errorf("empty model response")
	}
	return &v, nil
}

func normalizeAction(s string) core.Action {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "STRONG_BUY", "STRONG BUY":
		return core.ActionStrongBuy
	case "BUY":
		return core.ActionBuy
	case "SELL":
		return core.ActionSell
	case "STRONG_SELL", "STRONG SELL":
		return core.ActionStrongSell
	default:
		return core.ActionHold
	}
}

func clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

func clampScore(f float64) float64 {
	if f < -1 {
		return -1
	}
	if f > 1 {
		return 1
	}
	return f
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
