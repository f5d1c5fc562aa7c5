// File: internal/browser/profile.go
package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/xkaelum/harrier/api/schemas"
)

// userAgentPool is the fixed rotation pool a new profile draws its identity
// from when the caller does not supply one.
var userAgentPool = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/125.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/125.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
}

// Profile is a live browser context bound to one persisted identity. The Pool
// is the sole owner of the context handle; callers only run actions through it.
type Profile struct {
	meta schemas.ProfileMetadata

	allocCtx    context.Context
	allocCancel context.CancelFunc
	ctx         context.Context
	cancel      context.CancelFunc

	gate *CaptchaGate
}

// Metadata returns a snapshot of the profile identity.
func (p *Profile) Metadata() schemas.ProfileMetadata {
	m := p.meta
	m.Active = p.ctx != nil && p.ctx.Err() == nil
	return m
}

// Gate returns the profile's CAPTCHA gate.
func (p *Profile) Gate() *CaptchaGate { return p.gate }

// Run executes chromedp actions on the profile's context while honoring the
// caller's deadline. On timeout the underlying browser operation may keep
// running server-side; the caller just stops waiting for it.
func (p *Profile) Run(ctx context.Context, actions ...chromedp.Action) error {
	if p.ctx == nil || p.ctx.Err() != nil {
		return schemas.NewError(schemas.ErrCodeContextCanceled, "browser context for profile %q is gone", p.meta.ID)
	}

	done := make(chan error, 1)
	go func() {
		done <- chromedp.Run(p.ctx, actions...)
	}()

	select {
	case err := <-done:
		if err == nil {
			return nil
		}
		if p.ctx.Err() != nil {
			return schemas.NewError(schemas.ErrCodeContextCanceled, "browser context canceled: %v", err)
		}
		return err
	case <-ctx.Done():
		if ctx.Err() == context.DeadlineExceeded {
			return schemas.NewError(schemas.ErrCodeTimeout, "operation timed out on profile %q", p.meta.ID)
		}
		return schemas.NewError(schemas.ErrCodeContextCanceled, "caller canceled: %v", ctx.Err())
	}
}

// newMetadata mints a fresh identity: rotated user-agent, default viewport.
func newMetadata(id string, rng *rand.Rand) schemas.ProfileMetadata {
	return schemas.ProfileMetadata{
		ID:        id,
		CreatedAt: time.Now().UTC(),
		UserAgent: userAgentPool[rng.Intn(len(userAgentPool))],
		Viewport:  schemas.DefaultViewport,
		Platform:  "Win32",
		Timezone:  "America/Los_Angeles",
		Locale:    "en-US",
	}
}

// metadataPath is <profileDir>/<id>/meta.json.
func metadataPath(profileDir, id string) string {
	return filepath.Join(profileDir, id, "meta.json")
}

// loadMetadata reads a persisted identity; os.ErrNotExist when absent.
func loadMetadata(profileDir, id string) (schemas.ProfileMetadata, error) {
	var meta schemas.ProfileMetadata
	data, err := os.ReadFile(metadataPath(profileDir, id))
	if err != nil {
		return meta, err
	}
	if err := json.Unmarshal(data, &meta); err != nil {
		return meta, fmt.Errorf("corrupt profile metadata for %q: %w", id, err)
	}
	return meta, nil
}

// ListPersisted reads every identity stored under profileDir. Entries with
// unreadable metadata are skipped. A missing directory yields an empty list.
func ListPersisted(profileDir string) []schemas.ProfileMetadata {
	entries, err := os.ReadDir(profileDir)
	if err != nil {
		return nil
	}
	out := make([]schemas.ProfileMetadata, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := loadMetadata(profileDir, entry.Name())
		if err != nil {
			continue
		}
		out = append(out, meta)
	}
	return out
}

// RemovePersisted deletes a stored identity and its on-disk state.
func RemovePersisted(profileDir, id string) error {
	if _, err := loadMetadata(profileDir, id); err != nil {
		if os.IsNotExist(err) {
			return ErrProfileNotFound
		}
		return err
	}
	return os.RemoveAll(filepath.Join(profileDir, id))
}

// saveMetadata persists the identity so a future context can reuse it.
func saveMetadata(profileDir string, meta schemas.ProfileMetadata) error {
	dir := filepath.Join(profileDir, meta.ID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create profile dir: %w", err)
	}
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(metadataPath(profileDir, meta.ID), data, 0o644)
}
