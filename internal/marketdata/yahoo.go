package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"time"

	"github.com/verdictlabs/verdict/internal/core"
)

const yahooBaseURL = "https://query1.finance.yahoo.com/v8/finance/chart"

// validSymbol matches stock symbols like AAPL, MSFT, 0700.HK
var validSymbol = regexp.MustCompile(`^[A-Za-z0-9]{1,10}(\.[A-Za-z]{1,4})?$`)

func validateSymbol(symbol string) error {
	if symbol == "" {
		return fmt.Errorf("symbol cannot be empty")
	}
	if !validSymbol.MatchString(symbol) {
		return fmt.Errorf("invalid symbol format: %s", symbol)
	}
	return nil
}

// Yahoo fetches quotes and history from the Yahoo Finance chart API.
type Yahoo struct {
	client  *http.Client
	baseURL string
}

// NewYahoo creates a Yahoo provider.
func NewYahoo() *Yahoo {
	return &Yahoo{
		client:  &http.Client{Timeout: 10 * time.Second},
		baseURL: yahooBaseURL,
	}
}

func (y *Yahoo) Name() string {
	return "yahoo"
}

// Quote returns the latest quote for symbol.
func (y *Yahoo) Quote(ctx context.Context, symbol string) (*core.Quote, error) {
	if err := validateSymbol(symbol); err != nil {
		return nil, core.WrapError(core.ErrProviderFailed, err)
	}
	url := fmt.Sprintf("%s/%s?interval=1d&range=1d", y.baseURL, symbol)

	result, err := y.fetch(ctx, url)
	if err != nil {
		return nil, err
	}

	r := result.Chart.Result[0]
	meta := r.Meta
	return &core.Quote{
		Symbol:    symbol,
		Price:     meta.RegularMarketPrice,
		PrevClose: meta.ChartPreviousClose,
		Volume:    int64(meta.RegularMarketVolume),
		Time:      time.Unix(int64(meta.RegularMarketTime), 0),
		Source:    "yahoo",
	}, nil
}

// History returns up to days daily bars, oldest first.
func (y *Yahoo) History(ctx context.Context, symbol string, days int) ([]core.OHLCV, error) {
	if err := validateSymbol(symbol); err != nil {
		return nil, core.WrapError(core.ErrProviderFailed, err)
	}
	end := time.Now()
	start := end.AddDate(0, 0, -days)
	url := fmt.Sprintf("%s/%s?interval=1d&period1=%d&period2=%d",
		y.baseURL, symbol, start.Unix(), end.Unix())

	result, err := y.fetch(ctx, url)
	if err != nil {
		return nil, err
	}

	r := result.Chart.Result[0]
	quotes := r.Indicators.Quote
	if len(quotes) == 0 {
		return nil, core.WrapError(core.ErrNoData, fmt.Errorf("no bars for %s", symbol))
	}
	q := quotes[0]

	bars := make([]core.OHLCV, 0, len(r.Timestamp))
	for i, ts := range r.Timestamp {
		if i >= len(q.Open) || q.Open[i] == nil {
			continue // skip missing data
		}
		bars = append(bars, core.OHLCV{
			Symbol: symbol,
			Open:   *q.Open[i],
			High:   *q.High[i],
			Low:    *q.Low[i],
			Close:  *q.Close[i],
			Volume: int64(*q.Volume[i]),
			Time:   time.Unix(int64(ts), 0),
		})
	}
	if len(bars) == 0 {
		return nil, core.WrapError(core.ErrNoData, fmt.Errorf("no bars for %s", symbol))
	}
	return bars, nil
}

func (y *Yahoo) fetch(ctx context.Context, url string) (*chartResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, core.WrapError(core.ErrProviderFailed, err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := y.client.Do(req)
	if err != nil {
		return nil, core.WrapError(core.ErrProviderFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, core.WrapError(core.ErrProviderFailed,
			fmt.Errorf("unexpected status: %d", resp.StatusCode))
	}

	var result chartResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, core.WrapError(core.ErrProviderFailed, fmt.Errorf("decoding response: %w", err))
	}
	if result.Chart.Error != nil {
		return nil, core.WrapError(core.ErrProviderFailed,
			fmt.Errorf("yahoo error: %s", result.Chart.Error.Description))
	}
	if len(result.Chart.Result) == 0 {
		return nil, core.WrapError(core.ErrNoData, fmt.Errorf("no data for request"))
	}
	return &result, nil
}

// Yahoo API response types
type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

type chartResult struct {
	Meta       chartMeta  `json:"meta"`
	Timestamp  []int      `json:"timestamp"`
	Indicators indicators `json:"indicators"`
}

type chartMeta struct {
	Symbol              string  `json:"symbol"`
	RegularMarketPrice  float64 `json:"regularMarketPrice"`
	RegularMarketVolume int     `json:"regularMarketVolume"`
	RegularMarketTime   int     `json:"regularMarketTime"`
	ChartPreviousClose  float64 `json:"chartPreviousClose"`
}

type indicators struct {
	Quote []quoteIndicator `json:"quote"`
}

type quoteIndicator struct {
	Open   []*float64 `json:"open"`
	High   []*float64 `json:"high"`
	Low    []*float64 `json:"low"`
	Close  []*float64 `json:"close"`
	Volume []*int     `json:"volume"`
}
