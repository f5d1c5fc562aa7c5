// File: internal/browser/profile_test.go
package browser

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetadataPersistence(t *testing.T) {
	dir := t.TempDir()
	rng := rand.New(rand.NewSource(7))

	meta := newMetadata("default", rng)
	require.Equal(t, "default", meta.ID)
	require.NotEmpty(t, meta.UserAgent)
	require.NotZero(t, meta.Viewport.Width)

	require.NoError(t, saveMetadata(dir, meta))

	loaded, err := loadMetadata(dir, "default")
	require.NoError(t, err)
	assert.Equal(t, meta.ID, loaded.ID)
	assert.Equal(t, meta.UserAgent, loaded.UserAgent)
	assert.Equal(t, meta.Viewport, loaded.Viewport)
	assert.Equal(t, meta.Timezone, loaded.Timezone)
	assert.WithinDuration(t, meta.CreatedAt, loaded.CreatedAt, 0)
}

func TestLoadMetadataMissing(t *testing.T) {
	_, err := loadMetadata(t.TempDir(), "ghost")
	require.Error(t, err)
}

func TestNewMetadataRotatesUserAgents(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		seen[newMetadata("p", rng).UserAgent] = true
	}
	assert.Greater(t, len(seen), 1, "the agent pool must actually rotate")
}

func TestListPersisted(t *testing.T) {
	dir := t.TempDir()
	rng := rand.New(rand.NewSource(1))

	require.NoError(t, saveMetadata(dir, newMetadata("alpha", rng)))
	require.NoError(t, saveMetadata(dir, newMetadata("beta", rng)))

	listed := ListPersisted(dir)
	require.Len(t, listed, 2)

	ids := []string{listed[0].ID, listed[1].ID}
	assert.ElementsMatch(t, []string{"alpha", "beta"}, ids)
}

func TestRemovePersisted(t *testing.T) {
	dir := t.TempDir()
	rng := rand.New(rand.NewSource(1))
	require.NoError(t, saveMetadata(dir, newMetadata("doomed", rng)))

	require.NoError(t, RemovePersisted(dir, "doomed"))
	assert.Empty(t, ListPersisted(dir))

	err := RemovePersisted(dir, "doomed")
	assert.ErrorIs(t, err, ErrProfileNotFound)
}

func TestListPersistedMissingDir(t *testing.T) {
	assert.Empty(t, ListPersisted("/nonexistent/profiles"))
}
