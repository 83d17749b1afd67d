package core

import "time"

// Action represents a trading recommendation action
type Action string

const (
	ActionStrongSell Action = "STRONG_SELL"
	ActionSell       Action = "SELL"
	ActionHold       Action = "HOLD"
	ActionBuy        Action = "BUY"
	ActionStrongBuy  Action = "STRONG_BUY"
)

// IsBuySide reports whether the action is a buy-class action.
func (a Action) IsBuySide() bool {
	return a == ActionBuy || a == ActionStrongBuy
}

// IsSellSide reports whether the action is a sell-class action.
func (a Action) IsSellSide() bool {
	return a == ActionSell || a == ActionStrongSell
}

// SpecialistKind identifies an analysis specialist domain.
type SpecialistKind string

const (
	KindTechnical   SpecialistKind = "technical"
	KindFundamental SpecialistKind = "fundamental"
	KindSentiment   SpecialistKind = "sentiment"
	KindRisk        SpecialistKind = "risk"
	KindMacro       SpecialistKind = "macro"
	KindNews        SpecialistKind = "news"
)

// AllSpecialistKinds lists every specialist domain in dispatch order.
var AllSpecialistKinds = []SpecialistKind{
	KindTechnical, KindFundamental, KindSentiment, KindRisk, KindMacro, KindNews,
}

// Quote represents a real-time price quote
type Quote struct {
	Symbol    string
	Price     float64
	PrevClose float64
	Volume    int64
	MarketCap float64
	Time      time.Time
	Source    string
}

// IsValid checks if the quote has required fields
func (q Quote) IsValid() bool {
	return q.Symbol != "" && q.Price > 0
}

// OHLCV represents a candlestick/bar
type OHLCV struct {
	Symbol string
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume int64
	Time   time.Time
}

// AnalysisTask describes one analysis request. Immutable once dispatched.
type AnalysisTask struct {
	ID           string
	Symbols      []string
	Capabilities map[SpecialistKind]bool
	Enrichment   bool
	Priority     int
	CreatedAt    time.Time
}

// Wants reports whether the task requested the given specialist.
// A task with no explicit capabilities wants everything.
func (t AnalysisTask) Wants(kind SpecialistKind) bool {
	if len(t.Capabilities) == 0 {
		return true
	}
	return t.Capabilities[kind]
}

// Citation references an external source backing a result field.
type Citation struct {
	Title string
	URL   string
}

// SpecialistResult is the raw output of one specialist for one symbol.
// Never mutated after creation, only superseded by a newer result.
type SpecialistResult struct {
	Kind       SpecialistKind
	Symbol     string
	Action     Action
	Payload    map[string]any
	Confidence float64
	Reasoning  string
	Citations  []Citation
	ProducedAt time.Time
}

// Contribution records one specialist's effective weight and net
// adjustment in the consensus merge.
type Contribution struct {
	Kind            SpecialistKind `json:"kind"`
	Signal          float64        `json:"signal"`
	Confidence      float64        `json:"confidence"`
	EffectiveWeight float64        `json:"effective_weight"`
	NetAdjustment   float64        `json:"net_adjustment"`
}

// ConsensusBreakdown is the audit trail of the merge.
type ConsensusBreakdown struct {
	BaseWeight       float64        `json:"base_weight"`
	EnrichmentWeight float64        `json:"enrichment_weight"`
	BaseScore        float64        `json:"base_score"`
	EnrichmentScore  float64        `json:"enrichment_score"`
	FinalScore       float64        `json:"final_score"`
	Contributions    []Contribution `json:"contributions"`
}

// ConsensusRecommendation is the fused output for one symbol.
type ConsensusRecommendation struct {
	TaskID      string             `json:"task_id"`
	Symbol      string             `json:"symbol"`
	Action      Action             `json:"action"`
	EntryPrice  float64            `json:"entry_price"`
	TargetPrice float64            `json:"target_price"`
	StopLoss    float64            `json:"stop_loss"`
	Confidence  float64            `json:"confidence"`
	Reasoning   string             `json:"reasoning"`
	Breakdown   ConsensusBreakdown `json:"consensus_breakdown"`
	GeneratedAt time.Time          `json:"generated_at"`
}

// ValidationOutcome is attached to the recommendation it validated.
type ValidationOutcome struct {
	IsValid         bool               `json:"is_valid"`
	Errors          []string           `json:"errors"`
	Warnings        []string           `json:"warnings"`
	CorrectedValues map[string]float64 `json:"corrected_values"`
}

// SizingMethod identifies a position sizing model.
type SizingMethod string

const (
	MethodFixedFractional    SizingMethod = "fixed_fractional"
	MethodKellyCriterion     SizingMethod = "kelly_criterion"
	MethodVolatilityAdjusted SizingMethod = "volatility_adjusted"
)

// PositionSizeResult is the outcome of one sizing method.
type PositionSizeResult struct {
	Method        SizingMethod `json:"method"`
	Shares        int          `json:"shares"`
	PositionValue float64      `json:"position_value"`
	CapitalAtRisk float64      `json:"capital_at_risk"`
	PositionPct   float64      `json:"position_pct_of_account"`
	Reason        string       `json:"reason,omitempty"`
}

// Severity grades a drift alert.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// DriftAlert is emitted when a monitored analysis has materially drifted.
type DriftAlert struct {
	ID          string    `json:"id"`
	AnalysisID  string    `json:"analysis_id"`
	Symbol      string    `json:"symbol"`
	Severity    Severity  `json:"severity"`
	Reason      string    `json:"reason"`
	TriggeredAt time.Time `json:"triggered_at"`
}
