// File: internal/browser/pool.go
package browser

import (
	"context"
	"math/rand"
	"os"
	"sync"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/xkaelum/harrier/api/schemas"
	"github.com/xkaelum/harrier/internal/config"
)

// DefaultProfileID backs calls that do not name a profile.
const DefaultProfileID = "default"

// ErrProfileNotFound is returned by Delete for an unknown profile id.
var ErrProfileNotFound = schemas.NewError(schemas.ErrCodeNotFound, "profile not found")

// Pool owns one live browser context per profile id. Contexts are created
// lazily on first use and torn down on Delete or Close. The pool is the sole
// authority allowed to create or destroy a context handle.
type Pool struct {
	cfg     *config.Config
	logger  *zap.Logger
	baseCtx context.Context

	mu       sync.Mutex
	profiles map[string]*Profile
	rng      *rand.Rand
	closed   bool

	// newProfile builds the live context for an identity and execActionFn
	// runs one automation action. Tests substitute them to exercise pool
	// and interpreter logic without a browser.
	newProfile   func(schemas.ProfileMetadata) (*Profile, error)
	execActionFn func(ctx context.Context, prof *Profile, action schemas.Action) schemas.ActionResult
}

// NewPool creates an empty pool. No browser process is started until the
// first GetOrCreate call.
func NewPool(ctx context.Context, cfg *config.Config, logger *zap.Logger) *Pool {
	pl := &Pool{
		cfg:      cfg,
		logger:   logger.Named("pool"),
		baseCtx:  ctx,
		profiles: make(map[string]*Profile),
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	pl.newProfile = pl.materialize
	pl.execActionFn = pl.executeAction
	return pl
}

// GetOrCreate returns the live profile for id, materializing it on first use.
// Repeated calls for the same id return the same handle without touching the
// identity. A cached handle whose browser context has died (crash, external
// cancellation) is torn down and rebuilt from the same identity, so one dead
// context never poisons the profile for good. The single mutex serializes
// creation so two concurrent callers can never double-initialize one profile.
func (pl *Pool) GetOrCreate(id string) (*Profile, error) {
	if id == "" {
		id = DefaultProfileID
	}

	pl.mu.Lock()
	defer pl.mu.Unlock()

	if pl.closed {
		return nil, schemas.NewError(schemas.ErrCodeContextCanceled, "pool is shut down")
	}

	var meta schemas.ProfileMetadata
	if prof, ok := pl.profiles[id]; ok {
		if prof.ctx.Err() == nil {
			return prof, nil
		}
		prof.cancel()
		prof.allocCancel()
		delete(pl.profiles, id)
		pl.logger.Warn("Profile context is dead; rebuilding it.", zap.String("profile", id))
		meta = prof.meta
	} else {
		var err error
		meta, err = loadMetadata(pl.cfg.Engine.ProfileDir, id)
		if os.IsNotExist(err) {
			meta = newMetadata(id, pl.rng)
		} else if err != nil {
			return nil, err
		}
	}

	prof, err := pl.newProfile(meta)
	if err != nil {
		return nil, err
	}
	if err := saveMetadata(pl.cfg.Engine.ProfileDir, meta); err != nil {
		pl.logger.Warn("Failed to persist profile metadata.", zap.String("profile", id), zap.Error(err))
	}

	pl.profiles[id] = prof
	pl.logger.Info("Profile context created.",
		zap.String("profile", id),
		zap.String("user_agent", meta.UserAgent),
	)
	return prof, nil
}

// materialize builds the allocator and browser context carrying the profile
// identity, and applies the stealth persona.
func (pl *Pool) materialize(meta schemas.ProfileMetadata) (*Profile, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", pl.cfg.Browser.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent(meta.UserAgent),
		chromedp.WindowSize(int(meta.Viewport.Width), int(meta.Viewport.Height)),
	)
	if pl.cfg.Browser.IgnoreTLSErrors {
		opts = append(opts, chromedp.Flag("ignore-certificate-errors", true))
	}
	if pl.cfg.Browser.DisableCache {
		opts = append(opts, chromedp.Flag("disable-application-cache", true))
	}
	if meta.ProxyURL != "" {
		opts = append(opts, chromedp.ProxyServer(meta.ProxyURL))
	}
	if pl.cfg.Browser.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(pl.cfg.Browser.ExecPath))
	}
	for key, value := range pl.cfg.Browser.ExtraFlags {
		opts = append(opts, chromedp.Flag(key, value))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(pl.baseCtx, opts...)
	ctx, cancel := chromedp.NewContext(allocCtx)

	prof := &Profile{
		meta:        meta,
		allocCtx:    allocCtx,
		allocCancel: allocCancel,
		ctx:         ctx,
		cancel:      cancel,
		gate:        NewCaptchaGate(),
	}

	// Establish the target and apply the persona in one shot. Stealth scripts
	// persist across navigations for the life of the context.
	tasks := chromedp.Tasks{
		emulation.SetDeviceMetricsOverride(meta.Viewport.Width, meta.Viewport.Height, 1.0, false),
	}
	tasks = append(tasks, ApplyStealth(meta, pl.logger)...)
	if err := chromedp.Run(ctx, tasks); err != nil {
		cancel()
		allocCancel()
		return nil, schemas.NewError(schemas.ErrCodeInternal, "failed to initialize browser context: %v", err)
	}
	return prof, nil
}

// Delete tears down the live context for id, canceling any in-flight work
// bound to it. The persisted identity survives; a later GetOrCreate builds a
// fresh context from it.
func (pl *Pool) Delete(id string) error {
	pl.mu.Lock()
	defer pl.mu.Unlock()

	prof, ok := pl.profiles[id]
	if !ok {
		return ErrProfileNotFound
	}
	prof.cancel()
	prof.allocCancel()
	delete(pl.profiles, id)
	pl.logger.Info("Profile context deleted.", zap.String("profile", id))
	return nil
}

// DeleteProfile removes a profile outright: the live context when one exists,
// and the persisted identity. In-flight operations on the context die with it.
func (pl *Pool) DeleteProfile(id string) error {
	liveErr := pl.Delete(id)
	persistErr := RemovePersisted(pl.cfg.Engine.ProfileDir, id)
	if liveErr == nil || persistErr == nil {
		return nil
	}
	return persistErr
}

// ListProfiles returns metadata snapshots for every known profile: live ones
// plus any persisted identities without a current context.
func (pl *Pool) ListProfiles() []schemas.ProfileMetadata {
	pl.mu.Lock()
	defer pl.mu.Unlock()

	seen := make(map[string]bool, len(pl.profiles))
	out := make([]schemas.ProfileMetadata, 0, len(pl.profiles))
	for id, prof := range pl.profiles {
		out = append(out, prof.Metadata())
		seen[id] = true
	}

	entries, err := os.ReadDir(pl.cfg.Engine.ProfileDir)
	if err != nil {
		return out
	}
	for _, entry := range entries {
		if !entry.IsDir() || seen[entry.Name()] {
			continue
		}
		meta, err := loadMetadata(pl.cfg.Engine.ProfileDir, entry.Name())
		if err != nil {
			continue
		}
		out = append(out, meta)
	}
	return out
}

// Close tears down every live context. The pool is unusable afterwards.
func (pl *Pool) Close() {
	pl.mu.Lock()
	defer pl.mu.Unlock()

	for id, prof := range pl.profiles {
		prof.cancel()
		prof.allocCancel()
		delete(pl.profiles, id)
	}
	pl.closed = true
	pl.logger.Info("Browser pool closed.")
}
