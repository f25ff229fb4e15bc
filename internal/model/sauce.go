// Package model defines the core data types for the sauce service.
// Struct tags (the `json:"..."` and `db:"..."` annotations) tell serialization
// libraries how to map fields.
package model

import "time"

// Similarity sentinels. They mean different things and must never be mixed up:
// a source that cannot report similarity at all uses SimilarityUnknown, while
// a source that reports similarity but sent a value we could not read for one
// item uses SimilarityUnparsed.
const (
	// SimilarityUnknown marks "match found, confidence unknown".
	SimilarityUnknown = 100.0
	// SimilarityUnparsed marks "the similarity could not be determined".
	SimilarityUnparsed = -1.0
)

// Output is the normalized result of one Source.Check call.
type Output struct {
	// OriginalURL is exactly the string passed to Check.
	OriginalURL string `json:"original_url"`
	// Items keeps the upstream result order. Empty means "no matches".
	Items []Item `json:"items"`
}

// NewOutput returns an Output for rawURL. A nil items slice becomes an empty
// one so the JSON form is always `[]`.
func NewOutput(rawURL string, items []Item) *Output {
	if items == nil {
		items = []Item{}
	}
	return &Output{OriginalURL: rawURL, Items: items}
}

// Item is one candidate match.
// Link is not always a direct image link; it often points to a page on an
// image board or art site.
type Item struct {
	Link       string  `json:"link"`
	Similarity float64 `json:"similarity"`
}

// SourceResult is the outcome of one source inside a fan-out search.
// Exactly one of Output and Error is set.
type SourceResult struct {
	Source     string  `json:"source"`
	Output     *Output `json:"output,omitempty"`
	Error      string  `json:"error,omitempty"`
	ErrorKind  string  `json:"error_kind,omitempty"`
	DurationMs int64   `json:"duration_ms"`
}

// OK reports whether the source produced an Output.
func (r SourceResult) OK() bool {
	return r.Output != nil
}

// SearchReport groups the per-source results for one URL.
type SearchReport struct {
	RequestID string         `json:"request_id"`
	URL       string         `json:"url"`
	Results   []SourceResult `json:"results"`
}

// SearchRecord is one audit row: a single Check call against a single source.
type SearchRecord struct {
	ID         int64     `db:"id" json:"id"`
	RequestID  string    `db:"request_id" json:"request_id"`
	Source     string    `db:"source" json:"source"`
	URL        string    `db:"url" json:"url"`
	ItemCount  int       `db:"item_count" json:"item_count"`
	Success    bool      `db:"success" json:"success"`
	ErrorKind  *string   `db:"error_kind" json:"error_kind,omitempty"`
	DurationMs int64     `db:"duration_ms" json:"duration_ms"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// SourceStats aggregates audit rows per source.
type SourceStats struct {
	Source        string  `db:"source" json:"source"`
	Total         int64   `db:"total" json:"total"`
	Succeeded     int64   `db:"succeeded" json:"succeeded"`
	AvgDurationMs float64 `db:"avg_duration_ms" json:"avg_duration_ms"`
}
