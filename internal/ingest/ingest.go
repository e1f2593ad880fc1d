// Package ingest absorbs raw scraper batches: tolerant JSON decoding,
// zero-record filtering, merge-with-dedup against the stored collection,
// and scan-batch bookkeeping.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/NoelSason/canvascope/internal/dedup"
	"github.com/NoelSason/canvascope/internal/lms"
	"github.com/NoelSason/canvascope/internal/store"
)

// Report summarizes one ingested batch.
type Report struct {
	BatchID  string `json:"batchId"`
	Platform string `json:"platform,omitempty"`
	Received int    `json:"received"`
	Accepted int    `json:"accepted"`
	Skipped  int    `json:"skipped"`
	// Total is the collection size after merge and dedup.
	Total int `json:"total"`
}

// batchEnvelope is the optional object wrapper some scraper versions send.
type batchEnvelope struct {
	Platform string            `json:"platform"`
	Items    []json.RawMessage `json:"items"`
}

// DecodeBatch parses a scraper batch. Both a bare JSON array and an
// {"platform": ..., "items": [...]} envelope are accepted. Malformed and
// empty records are dropped and counted, never fatal; only a payload that
// is not valid JSON at all returns an error.
func DecodeBatch(data []byte) ([]lms.ContentItem, string, int, error) {
	var raws []json.RawMessage
	var platform string

	if err := json.Unmarshal(data, &raws); err != nil {
		var env batchEnvelope
		if envErr := json.Unmarshal(data, &env); envErr != nil || env.Items == nil {
			return nil, "", 0, fmt.Errorf("decoding batch: %w", err)
		}
		raws = env.Items
		platform = env.Platform
	}

	items := make([]lms.ContentItem, 0, len(raws))
	skipped := 0
	for _, raw := range raws {
		var it lms.ContentItem
		if err := json.Unmarshal(raw, &it); err != nil {
			skipped++
			continue
		}
		if it.IsZero() {
			skipped++
			continue
		}
		if platform == "" && it.Platform != "" {
			platform = it.Platform
		}
		items = append(items, it)
	}
	return items, platform, skipped, nil
}

// Engine merges decoded batches into the stored collection.
type Engine struct {
	store *store.Store
	now   func() time.Time
}

// NewEngine returns an ingest engine over s.
func NewEngine(s *store.Store) *Engine {
	return &Engine{store: s, now: time.Now}
}

// Ingest decodes data, stamps unstamped records, merges the batch with the
// stored collection through deduplication, and records the scan batch.
func (e *Engine) Ingest(ctx context.Context, data []byte) (*Report, error) {
	items, platform, skipped, err := DecodeBatch(data)
	if err != nil {
		return nil, err
	}

	now := e.now().UTC()
	for i := range items {
		if items[i].ScannedAt == nil {
			t := now
			items[i].ScannedAt = &t
		}
	}

	existing, err := e.store.Items(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading existing items: %w", err)
	}
	merged := dedup.Dedup(append(existing, items...))
	if err := e.store.ReplaceItems(ctx, merged); err != nil {
		return nil, fmt.Errorf("storing merged collection: %w", err)
	}

	report := &Report{
		BatchID:  uuid.New().String(),
		Platform: platform,
		Received: len(items) + skipped,
		Accepted: len(items),
		Skipped:  skipped,
		Total:    len(merged),
	}
	if err := e.store.AddScanBatch(ctx, store.ScanBatch{
		ID:        report.BatchID,
		Platform:  platform,
		ItemCount: len(items),
		Skipped:   skipped,
		ScannedAt: now,
	}); err != nil {
		return nil, fmt.Errorf("recording scan batch: %w", err)
	}
	return report, nil
}
