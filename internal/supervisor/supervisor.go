// File: internal/supervisor/supervisor.go
package supervisor

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/xkaelum/harrier/api/schemas"
	"github.com/xkaelum/harrier/internal/config"
	"github.com/xkaelum/harrier/internal/rpc"
)

// Prober is the trivial round-trip health check against the engine.
type Prober interface {
	Health(ctx context.Context) error
}

// Caller issues one RPC to the engine.
type Caller interface {
	Call(ctx context.Context, method string, params any, out any) error
}

// processHandle is the supervisor-internal record of the child process.
type processHandle struct {
	cmd        *exec.Cmd
	running    bool
	lastHealth time.Time
}

// Supervisor keeps one engine process alive and reachable, and bridges every
// caller to it. It owns the process handle outright; there is no package
// level process state.
type Supervisor struct {
	cfg    config.SupervisorConfig
	port   int
	logger *zap.Logger

	client interface {
		Prober
		Caller
	}

	mu     sync.Mutex
	handle processHandle

	// forceSpawn is set after a crash symptom so the next spawn skips port
	// adoption; a wedged process that still answers the health probe must
	// not be picked up again.
	forceSpawn bool

	// sf collapses simultaneous "no process" discoveries into one spawn.
	sf singleflight.Group

	// spawnFn starts the engine process. Tests substitute it to count
	// spawns without executing anything.
	spawnFn func() (*exec.Cmd, error)
}

// New builds a supervisor for the engine on the configured port. The engine
// is spawned from the current binary (`<self> engine --port N`).
func New(cfg config.SupervisorConfig, port int, logger *zap.Logger) *Supervisor {
	s := &Supervisor{
		cfg:    cfg,
		port:   port,
		logger: logger.Named("supervisor"),
		client: rpc.NewClient(port),
	}
	s.spawnFn = s.spawnSelf
	return s
}

// spawnSelf launches the engine subcommand of the current executable.
func (s *Supervisor) spawnSelf() (*exec.Cmd, error) {
	self, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("cannot locate own binary: %w", err)
	}
	cmd := exec.Command(self, "engine", "--port", strconv.Itoa(s.port))
	cmd.Stdout = os.Stderr
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start engine process: %w", err)
	}
	return cmd, nil
}

// EnsureRunning guarantees a reachable engine process. A known process is
// trusted inside the health interval; outside it, one probe decides. Spawning
// is single-flighted: under concurrent cold starts exactly one caller spawns
// while the rest wait for its result.
func (s *Supervisor) EnsureRunning(ctx context.Context) error {
	s.mu.Lock()
	known := s.handle.running
	fresh := time.Since(s.handle.lastHealth) < s.cfg.HealthInterval
	s.mu.Unlock()

	if known && fresh {
		return nil
	}
	if known {
		// Stale: probe before trusting the process again.
		probeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := s.client.Health(probeCtx)
		cancel()
		if err == nil {
			s.markHealthy()
			return nil
		}
		s.logger.Warn("Engine health probe failed; respawning.", zap.Error(err))
		s.markDown()
	}

	_, err, _ := s.sf.Do("spawn", func() (any, error) {
		return nil, s.spawnAndWait(ctx)
	})
	return err
}

// spawnAndWait starts the engine and blocks until it answers the probe or
// the spawn timeout expires. An engine someone else already started on the
// same port is detected by the initial probe and adopted without spawning.
func (s *Supervisor) spawnAndWait(ctx context.Context) error {
	s.mu.Lock()
	forced := s.forceSpawn
	s.forceSpawn = false
	s.mu.Unlock()

	// The port may already be serving (externally started engine, or a
	// previous spawn that outlived its handle). After a crash symptom the
	// probe is skipped: the old process answering it is exactly the one
	// being replaced.
	if !forced {
		probeCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := s.client.Health(probeCtx)
		cancel()
		if err == nil {
			s.logger.Info("Adopted an already-running engine.", zap.Int("port", s.port))
			s.adoptExternal()
			return nil
		}
	}

	s.logger.Info("Spawning engine process.", zap.Int("port", s.port))
	cmd, err := s.spawnFn()
	if err != nil {
		return err
	}

	deadline := time.Now().Add(s.cfg.SpawnTimeout)
	for time.Now().Before(deadline) {
		if err := ctx.Err(); err != nil {
			return schemas.NewError(schemas.ErrCodeContextCanceled, "canceled while waiting for engine: %v", err)
		}
		probeCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := s.client.Health(probeCtx)
		cancel()
		if err == nil {
			s.mu.Lock()
			s.handle = processHandle{cmd: cmd, running: true, lastHealth: time.Now()}
			s.mu.Unlock()
			s.logger.Info("Engine process is up.", zap.Int("port", s.port))
			return nil
		}
		time.Sleep(250 * time.Millisecond)
	}
	return schemas.NewError(schemas.ErrCodeConnectionRefused,
		"engine did not become healthy within %s", s.cfg.SpawnTimeout)
}

// Call wraps one RPC in the bounded retry loop. Crash symptoms (typed
// context_canceled or connection_refused codes) force a respawn before the
// next attempt; other errors back off linearly and retry. The last error
// surfaces when attempts run out.
func (s *Supervisor) Call(ctx context.Context, method string, params any, out any) error {
	attempts := s.cfg.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := s.EnsureRunning(ctx); err != nil {
			lastErr = err
		} else if err := s.client.Call(ctx, method, params, out); err != nil {
			lastErr = err
		} else {
			s.markHealthy()
			return nil
		}

		code := schemas.CodeOf(lastErr)
		if code == schemas.ErrCodeInvalidRequest {
			// A malformed request will not get better with retries.
			return lastErr
		}
		if code.CrashSymptom() {
			s.logger.Warn("Crash symptom on engine call; forcing respawn.",
				zap.String("method", method),
				zap.String("code", string(code)),
				zap.Int("attempt", attempt),
			)
			s.terminateWedged()
		}
		if attempt < attempts {
			// Linear backoff between attempts.
			select {
			case <-time.After(time.Duration(attempt) * s.cfg.RetryBackoff):
			case <-ctx.Done():
				return schemas.NewError(schemas.ErrCodeContextCanceled, "canceled during retry backoff: %v", ctx.Err())
			}
		}
	}
	return fmt.Errorf("engine call %s failed after %d attempts: %w", method, attempts, lastErr)
}

// Shutdown terminates the child gracefully, escalating to a kill after the
// grace period. Adopted external processes are left alone.
func (s *Supervisor) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	cmd := s.handle.cmd
	s.handle = processHandle{}
	s.mu.Unlock()

	if cmd == nil || cmd.Process == nil {
		return nil
	}

	s.logger.Info("Terminating engine process.", zap.Int("pid", cmd.Process.Pid))
	if err := cmd.Process.Signal(syscall.SIGTERM); err != nil {
		return cmd.Process.Kill()
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	grace := s.cfg.KillGrace
	if grace <= 0 {
		grace = 5 * time.Second
	}
	select {
	case <-done:
		return nil
	case <-time.After(grace):
		s.logger.Warn("Engine did not exit in time; killing.", zap.Int("pid", cmd.Process.Pid))
		err := cmd.Process.Kill()
		<-done
		return err
	case <-ctx.Done():
		err := cmd.Process.Kill()
		<-done
		return err
	}
}

func (s *Supervisor) markHealthy() {
	s.mu.Lock()
	s.handle.running = true
	s.handle.lastHealth = time.Now()
	s.mu.Unlock()
}

// terminateWedged handles a process whose listener still answers but whose
// calls fail with crash symptoms. An owned child is killed outright to free
// the port; either way the next spawn is flagged to skip adoption so the
// retry gets a fresh process instead of the wedged one.
func (s *Supervisor) terminateWedged() {
	s.mu.Lock()
	cmd := s.handle.cmd
	s.handle = processHandle{}
	s.forceSpawn = true
	s.mu.Unlock()

	if cmd == nil || cmd.Process == nil {
		return
	}
	s.logger.Warn("Killing wedged engine process.", zap.Int("pid", cmd.Process.Pid))
	_ = cmd.Process.Kill()
	_ = cmd.Wait()
}

func (s *Supervisor) markDown() {
	s.mu.Lock()
	s.handle.running = false
	s.handle.lastHealth = time.Time{}
	s.mu.Unlock()
}

// adoptExternal records a reachable engine the supervisor did not start.
// There is no cmd handle, so Shutdown will not touch it.
func (s *Supervisor) adoptExternal() {
	s.mu.Lock()
	s.handle = processHandle{running: true, lastHealth: time.Now()}
	s.mu.Unlock()
}
