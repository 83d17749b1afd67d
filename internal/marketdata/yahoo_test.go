package marketdata

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verdictlabs/verdict/internal/core"
)

const chartJSON = `{
  "chart": {
    "result": [{
      "meta": {
        "symbol": "AAPL",
        "regularMarketPrice": 150.25,
        "regularMarketVolume": 1000000,
        "regularMarketTime": 1700000000,
        "chartPreviousClose": 148.50
      },
      "timestamp": [1699900000, 1699986400],
      "indicators": {
        "quote": [{
          "open":   [148.0, 149.5],
          "high":   [150.0, 151.0],
          "low":    [147.5, 149.0],
          "close":  [149.5, 150.25],
          "volume": [900000, 1000000]
        }]
      }
    }],
    "error": null
  }
}`

func yahooTestServer(t *testing.T, status int, body string) *Yahoo {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	y := NewYahoo()
	y.baseURL = srv.URL
	return y
}

func TestYahoo_Quote(t *testing.T) {
	y := yahooTestServer(t, http.StatusOK, chartJSON)

	q, err := y.Quote(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, "AAPL", q.Symbol)
	assert.InDelta(t, 150.25, q.Price, 1e-9)
	assert.InDelta(t, 148.50, q.PrevClose, 1e-9)
	assert.Equal(t, int64(1000000), q.Volume)
}

func TestYahoo_History(t *testing.T) {
	y := yahooTestServer(t, http.StatusOK, chartJSON)

	bars, err := y.History(context.Background(), "AAPL", 5)
	require.NoError(t, err)
	require.Len(t, bars, 2)
	assert.InDelta(t, 149.5, bars[0].Close, 1e-9)
	assert.InDelta(t, 150.25, bars[1].Close, 1e-9)
}

func TestYahoo_InvalidSymbol(t *testing.T) {
	y := NewYahoo()

	_, err := y.Quote(context.Background(), "not a symbol!")
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrProviderFailed)
}

func TestYahoo_ServerError(t *testing.T) {
	y := yahooTestServer(t, http.StatusTooManyRequests, "")

	_, err := y.Quote(context.Background(), "AAPL")
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrProviderFailed)
}

func TestYahoo_APIError(t *testing.T) {
	y := yahooTestServer(t, http.StatusOK,
		`{"chart":{"result":[],"error":{"code":"Not Found","description":"No data found"}}}`)

	_, err := y.Quote(context.Background(), "ZZZZ")
	require.Error(t, err)
}
