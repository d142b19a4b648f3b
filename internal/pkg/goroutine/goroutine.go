// Package goroutine runs fire-and-forget work with bounded concurrency and a
// drain step for graceful shutdown.
package goroutine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"runtime/debug"
	"sync"

	"github.com/shandysiswandi/authgate/internal/pkg/stacktrace"
	"go.uber.org/atomic"
)

// DefaultMaxGoroutine is multiplied by NumCPU when NewManager receives a non-positive limit.
const DefaultMaxGoroutine int = 100

// keptErrors bounds how many task errors are held for Wait; older ones are
// only counted.
const keptErrors = 32

var (
	// ErrClosed is reported when work is scheduled after Wait has been called.
	ErrClosed = errors.New("goroutine: manager is closed")
	// ErrSaturated is reported when every slot is busy.
	ErrSaturated = errors.New("goroutine: maximum goroutine limit reached")
)

// Manager schedules tasks without blocking the caller. Tasks that cannot get a
// slot are dropped and logged.
type Manager struct {
	wg      sync.WaitGroup
	sema    chan struct{}
	stateMu sync.RWMutex
	closed  bool

	errMu sync.Mutex
	errs  []error

	dropped atomic.Int64
	failed  atomic.Int64
}

// NewManager creates a Manager running at most maxGoroutine tasks at once.
func NewManager(maxGoroutine int) *Manager {
	if maxGoroutine < 1 {
		maxGoroutine = runtime.NumCPU() * DefaultMaxGoroutine
	}

	return &Manager{sema: make(chan struct{}, maxGoroutine)}
}

// Go runs f in its own goroutine. name identifies the task in logs. The
// returned error only reports scheduling failures; task errors are logged
// and collected for Wait.
func (g *Manager) Go(ctx context.Context, name string, f func(ctx context.Context) error) error {
	g.stateMu.RLock()
	defer g.stateMu.RUnlock()

	if g.closed {
		g.dropped.Inc()
		slog.WarnContext(ctx, "goroutine manager is closed, task dropped", "task", name)
		return ErrClosed
	}

	select {
	case g.sema <- struct{}{}:
	default:
		g.dropped.Inc()
		slog.WarnContext(ctx, "maximum goroutine limit reached, task dropped", "task", name)
		return ErrSaturated
	}

	g.wg.Add(1)
	go g.run(ctx, name, f)

	return nil
}

func (g *Manager) run(ctx context.Context, name string, f func(ctx context.Context) error) {
	defer g.wg.Done()
	defer func() { <-g.sema }()
	defer func() {
		if rvr := recover(); rvr != nil {
			stack := debug.Stack()
			if paths := stacktrace.InternalPaths(stack); len(paths) > 0 {
				slog.ErrorContext(ctx, "panic occurred in goroutine", "task", name, "because", rvr, "stack", paths)
			} else {
				slog.ErrorContext(ctx, "panic occurred in goroutine", "task", name, "because", rvr, "stack", string(stack))
			}
		}
	}()

	if err := ctx.Err(); err != nil {
		slog.WarnContext(ctx, "goroutine canceled", "task", name, "because", err)
		return
	}

	if err := f(ctx); err != nil {
		slog.ErrorContext(ctx, "goroutine task failed", "task", name, "error", err)

		g.failed.Inc()

		g.errMu.Lock()
		if len(g.errs) == keptErrors {
			g.errs = append(g.errs[:0], g.errs[1:]...)
		}
		g.errs = append(g.errs, err)
		g.errMu.Unlock()
	}
}

// Dropped returns how many tasks were not scheduled.
func (g *Manager) Dropped() int64 {
	return g.dropped.Load()
}

// Failed returns how many tasks returned an error.
func (g *Manager) Failed() int64 {
	return g.failed.Load()
}

// Wait stops accepting tasks, blocks until running ones finish and returns
// the most recent task errors joined.
func (g *Manager) Wait() error {
	g.stateMu.Lock()
	g.closed = true
	g.stateMu.Unlock()

	g.wg.Wait()

	g.errMu.Lock()
	defer g.errMu.Unlock()

	errs := g.errs
	if omitted := g.failed.Load() - int64(len(errs)); omitted > 0 {
		errs = append([]error{fmt.Errorf("goroutine: %d earlier task errors omitted", omitted)}, errs...)
	}

	return errors.Join(errs...)
}
