// Package search defines the consumed search/news contract and a
// caching decorator over it.
package search

import (
	"context"

	"github.com/verdictlabs/verdict/internal/core"
)

// Depth controls how aggressively a provider digs for results.
type Depth string

const (
	DepthBasic    Depth = "basic"
	DepthAdvanced Depth = "advanced"
)

// Result is one ranked search hit with content and citation.
type Result struct {
	Title    string        `json:"title"`
	Content  string        `json:"content"`
	Score    float64       `json:"score"`
	Citation core.Citation `json:"citation"`
}

// Provider runs external search/news lookups.
type Provider interface {
	Name() string
	Search(ctx context.Context, query string, depth Depth, maxResults int) ([]Result, error)
}
