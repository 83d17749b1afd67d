package core

import "testing"

func TestNumField(t *testing.T) {
	tests := []struct {
		name    string
		payload map[string]any
		key     string
		want    float64
	}{
		{
			name:    "direct float",
			payload: map[string]any{"entry_price": 257.0},
			key:     "entry_price",
			want:    257.0,
		},
		{
			name:    "direct int",
			payload: map[string]any{"volume": 1200},
			key:     "volume",
			want:    1200,
		},
		{
			name:    "nested under value",
			payload: map[string]any{"atr": map[string]any{"value": 21.5, "period": 14}},
			key:     "atr",
			want:    21.5,
		},
		{
			name:    "string with dollar sign",
			payload: map[string]any{"target": "$1,250.50"},
			key:     "target",
			want:    1250.50,
		},
		{
			name:    "string with percent",
			payload: map[string]any{"risk": "2.5%"},
			key:     "risk",
			want:    2.5,
		},
		{
			name:    "missing key falls back",
			payload: map[string]any{"other": 1.0},
			key:     "entry_price",
			want:    -1,
		},
		{
			name:    "unparseable string falls back",
			payload: map[string]any{"entry_price": "n/a"},
			key:     "entry_price",
			want:    -1,
		},
		{
			name:    "nil payload falls back",
			payload: nil,
			key:     "x",
			want:    -1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NumField(tt.payload, tt.key, -1)
			if got != tt.want {
				t.Errorf("NumField() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestStrField(t *testing.T) {
	payload := map[string]any{"direction": "bullish", "score": 1.0}
	if got := StrField(payload, "direction", "neutral"); got != "bullish" {
		t.Errorf("StrField() = %q, want bullish", got)
	}
	if got := StrField(payload, "score", "neutral"); got != "neutral" {
		t.Errorf("non-string field should fall back, got %q", got)
	}
	if got := StrField(nil, "direction", "neutral"); got != "neutral" {
		t.Errorf("nil payload should fall back, got %q", got)
	}
}

func TestActionSides(t *testing.T) {
	if !ActionBuy.IsBuySide() || !ActionStrongBuy.IsBuySide() {
		t.Error("buy actions should be buy-side")
	}
	if !ActionSell.IsSellSide() || !ActionStrongSell.IsSellSide() {
		t.Error("sell actions should be sell-side")
	}
	if ActionHold.IsBuySide() || ActionHold.IsSellSide() {
		t.Error("HOLD is neither side")
	}
}

func TestTaskWants(t *testing.T) {
	all := AnalysisTask{}
	if !all.Wants(KindMacro) {
		t.Error("task without capability flags wants every specialist")
	}

	task := AnalysisTask{Capabilities: map[SpecialistKind]bool{KindTechnical: true}}
	if !task.Wants(KindTechnical) || task.Wants(KindNews) {
		t.Error("capability flags should gate specialists")
	}
}
