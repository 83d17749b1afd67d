package alert

import (
	"go.uber.org/zap"

	"github.com/verdictlabs/verdict/internal/core"
)

// Log writes alerts to the structured log. Always registered so a
// drift alert is never silently dropped.
type Log struct {
	logger *zap.Logger
}

// NewLog creates a logging sink.
func NewLog(logger *zap.Logger) *Log {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Log{logger: logger}
}

func (l *Log) Name() string { return "log" }

func (l *Log) Send(alert core.DriftAlert) error {
	l.logger.Warn("drift alert",
		zap.String("id", alert.ID),
		zap.String("analysis_id", alert.AnalysisID),
		zap.String("symbol", alert.Symbol),
		zap.String("severity", string(alert.Severity)),
		zap.String("reason", alert.Reason),
		zap.Time("triggered_at", alert.TriggeredAt))
	return nil
}
