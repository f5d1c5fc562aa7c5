// File: internal/store/store_test.go
package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCountTokens(t *testing.T) {
	assert.Zero(t, CountTokens(""))

	short := CountTokens("hello world")
	long := CountTokens("hello world, this is a considerably longer piece of page content")
	assert.Greater(t, short, 0)
	assert.Greater(t, long, short)
}

func TestMemorySink(t *testing.T) {
	sink := NewMemorySink()
	ctx := context.Background()

	res, err := sink.Store(ctx, "sess-1", "https://example.com", "Example", "some page content", "markdown", Metadata{"depth": "0"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.ID)
	assert.Greater(t, res.TokenCount, 0)

	_, err = sink.Store(ctx, "sess-1", "https://example.com/two", "Two", "more content", "markdown", nil)
	require.NoError(t, err)

	records := sink.Records()
	require.Len(t, records, 2)
	assert.Equal(t, "https://example.com", records[0].URL)
	assert.Equal(t, "0", records[0].Meta["depth"])
	assert.NotEqual(t, records[0].ID, records[1].ID)

	// Records returns a snapshot, not the backing slice.
	records[0].Title = "mutated"
	assert.Equal(t, "Example", sink.Records()[0].Title)
}
