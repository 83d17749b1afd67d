package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/verdictlabs/verdict/internal/core"
)

// HTTP queries a search API over JSON. The request/response shape
// follows the common LLM-search API convention: POST {query,
// search_depth, max_results} and read back ranked {title, content,
// score, url} results.
type HTTP struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

// NewHTTP creates a search provider against the given endpoint.
func NewHTTP(endpoint, apiKey string) *HTTP {
	return &HTTP{
		endpoint: endpoint,
		apiKey:   apiKey,
		client:   &http.Client{Timeout: 15 * time.Second},
	}
}

func (h *HTTP) Name() string { return "http" }

type searchRequest struct {
	Query       string `json:"query"`
	SearchDepth string `json:"search_depth"`
	MaxResults  int    `json:"max_results"`
}

type searchResponse struct {
	Results []struct {
		Title   string  `json:"title"`
		Content string  `json:"content"`
		Score   float64 `json:"score"`
		URL     string  `json:"url"`
	} `json:"results"`
}

// Search runs one query and returns ranked results.
func (h *HTTP) Search(ctx context.Context, query string, depth Depth, maxResults int) ([]Result, error) {
	body, err := json.Marshal(searchRequest{
		Query:       query,
		SearchDepth: string(depth),
		MaxResults:  maxResults,
	})
	if err != nil {
		return nil, core.WrapError(core.ErrProviderFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, core.WrapError(core.ErrProviderFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if h.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+h.apiKey)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, core.WrapError(core.ErrProviderFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, core.WrapError(core.ErrProviderFailed,
			fmt.Errorf("search returned %d", resp.StatusCode))
	}

	var parsed searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, core.WrapError(core.ErrProviderFailed, err)
	}

	results := make([]Result, 0, len(parsed.Results))
	for _, r := range parsed.Results {
		results = append(results, Result{
			Title:    r.Title,
			Content:  r.Content,
			Score:    r.Score,
			Citation: core.Citation{Title: r.Title, URL: r.URL},
		})
	}
	return results, nil
}
