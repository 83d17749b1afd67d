// Package store persists finalized analysis documents to a durable
// archive. The pipeline only ever writes; nothing here is read back
// mid-analysis.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/verdictlabs/verdict/internal/config"
	"github.com/verdictlabs/verdict/internal/core"
	"github.com/verdictlabs/verdict/internal/lineage"
	"github.com/verdictlabs/verdict/internal/sizing"
)

// Document is the complete persisted outcome of one symbol analysis.
type Document struct {
	TaskID         string                        `json:"task_id"`
	Symbol         string                        `json:"symbol"`
	Recommendation *core.ConsensusRecommendation `json:"recommendation"`
	Validation     *core.ValidationOutcome       `json:"validation"`
	Sizing         *sizing.Recommendation        `json:"sizing,omitempty"`
	Lineage        *lineage.Summary              `json:"lineage,omitempty"`
	StoredAt       time.Time                     `json:"stored_at"`
}

// Blob is the raw byte backend an Archive writes through.
type Blob interface {
	// Write stores data at the given path
	Write(ctx context.Context, path string, data []byte) error

	// Read retrieves data from the given path
	Read(ctx context.Context, path string) ([]byte, error)

	// List returns all paths matching the prefix
	List(ctx context.Context, prefix string) ([]string, error)
}

// Archive serializes documents onto a blob backend.
type Archive struct {
	blob Blob
}

// NewArchive wraps a blob backend.
func NewArchive(blob Blob) *Archive {
	return &Archive{blob: blob}
}

// Open builds an archive from configuration.
func Open(cfg config.StoreConfig) (*Archive, error) {
	switch cfg.Type {
	case "localfs":
		fs, err := NewLocalFS(cfg.Path)
		if err != nil {
			return nil, core.WrapError(core.ErrStoreFailed, err)
		}
		return NewArchive(fs), nil
	case "s3":
		return NewArchive(NewS3(cfg.S3)), nil
	default:
		return nil, core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("unknown store type %q", cfg.Type))
	}
}

func docPath(taskID, symbol string) string {
	return fmt.Sprintf("%s/%s.json", symbol, taskID)
}

// Put writes the document. StoredAt is stamped here.
func (a *Archive) Put(ctx context.Context, doc *Document) error {
	doc.StoredAt = time.Now()
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return core.WrapError(core.ErrStoreFailed, err)
	}
	if err := a.blob.Write(ctx, docPath(doc.TaskID, doc.Symbol), data); err != nil {
		return core.WrapError(core.ErrStoreFailed, err)
	}
	return nil
}

// Get reads one document back. Used by offline tooling, never by the
// analysis pipeline itself.
func (a *Archive) Get(ctx context.Context, taskID, symbol string) (*Document, error) {
	data, err := a.blob.Read(ctx, docPath(taskID, symbol))
	if err != nil {
		return nil, core.WrapError(core.ErrStoreFailed, err)
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, core.WrapError(core.ErrStoreFailed, err)
	}
	return &doc, nil
}

// ListSymbol returns the stored document paths for a symbol.
func (a *Archive) ListSymbol(ctx context.Context, symbol string) ([]string, error) {
	paths, err := a.blob.List(ctx, symbol)
	if err != nil {
		return nil, core.WrapError(core.ErrStoreFailed, err)
	}
	return paths, nil
}
