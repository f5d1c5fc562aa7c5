// File: internal/store/store.go
package store

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/pkoukk/tiktoken-go"
)

// Metadata is the free-form annotation attached to stored content.
type Metadata map[string]string

// Result identifies a stored record and its token cost.
type Result struct {
	ID         string `json:"id"`
	TokenCount int    `json:"tokenCount"`
}

// Sink is the contract to the external content-storage collaborator. The
// engine only ever writes through it; it never reads the store back.
type Sink interface {
	Store(ctx context.Context, sessionID, url, title, content, contentType string, meta Metadata) (Result, error)
}

var (
	encOnce sync.Once
	encoder *tiktoken.Tiktoken
)

// CountTokens estimates the token cost of content using the cl100k_base
// encoding. When the encoding is unavailable (offline first run), a rune
// based estimate stands in so storage never fails on counting.
func CountTokens(content string) int {
	encOnce.Do(func() {
		enc, err := tiktoken.GetEncoding("cl100k_base")
		if err == nil {
			encoder = enc
		}
	})
	if encoder != nil {
		return len(encoder.Encode(content, nil, nil))
	}
	return (len([]rune(content)) + 3) / 4
}

// MemorySink keeps stored records in memory. It backs tests and local
// capture runs where no external store is configured.
type MemorySink struct {
	mu      sync.Mutex
	records []Record
}

// Record is one stored entry.
type Record struct {
	ID          string
	SessionID   string
	URL         string
	Title       string
	Content     string
	ContentType string
	Meta        Metadata
}

// NewMemorySink builds an empty in-memory sink.
func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

// Store implements Sink.
func (s *MemorySink) Store(_ context.Context, sessionID, url, title, content, contentType string, meta Metadata) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := Record{
		ID:          uuid.New().String(),
		SessionID:   sessionID,
		URL:         url,
		Title:       title,
		Content:     content,
		ContentType: contentType,
		Meta:        meta,
	}
	s.records = append(s.records, rec)
	return Result{ID: rec.ID, TokenCount: CountTokens(content)}, nil
}

// Records snapshots everything stored so far.
func (s *MemorySink) Records() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Record, len(s.records))
	copy(out, s.records)
	return out
}
