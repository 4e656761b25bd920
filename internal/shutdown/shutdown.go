// Package shutdown coordinates process exit: it turns SIGINT/SIGTERM into a
// shutdown request and runs registered cleanups, such as the final flush of
// unsaved tasks.
package shutdown

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"todotui/internal/utils"
)

// CleanupFunc performs cleanup on shutdown. The context is cancelled when the
// shutdown deadline passes.
type CleanupFunc func(ctx context.Context) error

type cleanupEntry struct {
	name string
	fn   CleanupFunc
}

// Manager handles graceful shutdown coordination.
type Manager struct {
	mu         sync.Mutex
	cleanups   []cleanupEntry
	shutdown   bool
	shutdownCh chan struct{}
	ctx        context.Context
	cancel     context.CancelFunc
	once       sync.Once
	stopSignal func()
}

// NewManager creates a new shutdown manager.
func NewManager() *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		shutdownCh: make(chan struct{}),
		ctx:        ctx,
		cancel:     cancel,
	}
}

// RegisterCleanup registers a cleanup function to be called during shutdown.
// Cleanup functions are called in LIFO order (last registered, first called).
func (m *Manager) RegisterCleanup(name string, fn CleanupFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cleanups = append(m.cleanups, cleanupEntry{name: name, fn: fn})
}

// HandleSignals requests a shutdown on SIGINT or SIGTERM. It returns a
// function that stops listening.
func (m *Manager) HandleSignals() func() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	stop := make(chan struct{})

	go func() {
		select {
		case sig := <-sigChan:
			utils.Infof("received %s, shutting down", sig)
			m.Shutdown()
		case <-stop:
		}
	}()

	var once sync.Once
	m.stopSignal = func() {
		once.Do(func() {
			signal.Stop(sigChan)
			close(stop)
		})
	}
	return m.stopSignal
}

// Shutdown initiates a graceful shutdown.
// Safe to call multiple times; only the first call has effect.
func (m *Manager) Shutdown() {
	m.once.Do(func() {
		m.mu.Lock()
		m.shutdown = true
		m.mu.Unlock()

		m.cancel()
		close(m.shutdownCh)
	})
}

// Done is closed once shutdown has been requested.
func (m *Manager) Done() <-chan struct{} {
	return m.shutdownCh
}

func (m *Manager) runCleanups(ctx context.Context) error {
	m.mu.Lock()
	cleanups := make([]cleanupEntry, len(m.cleanups))
	copy(cleanups, m.cleanups)
	m.mu.Unlock()

	var first error
	for i := len(cleanups) - 1; i >= 0; i-- {
		if err := cleanups[i].fn(ctx); err != nil {
			utils.Warnf("cleanup %s failed: %v", cleanups[i].name, err)
			if first == nil {
				first = err
			}
		}
	}
	return first
}

// Wait runs the cleanups and waits for them to finish. It returns the first
// cleanup error, or ctx.Err() when the deadline passes first. Every cleanup
// runs even when an earlier one fails.
func (m *Manager) Wait(ctx context.Context) error {
	if m.stopSignal != nil {
		m.stopSignal()
	}

	done := make(chan error, 1)
	go func() {
		done <- m.runCleanups(ctx)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// IsShutdown returns true if shutdown has been initiated.
func (m *Manager) IsShutdown() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.shutdown
}

// Context returns a context that is cancelled when shutdown is initiated.
func (m *Manager) Context() context.Context {
	return m.ctx
}

// Flusher is a store that may hold changes a failed save left unwritten.
type Flusher interface {
	Dirty() bool
	Flush(ctx context.Context) error
}

// FlushCleanup returns a cleanup that retries the save when f is dirty.
func FlushCleanup(f Flusher) CleanupFunc {
	return func(ctx context.Context) error {
		if !f.Dirty() {
			return nil
		}
		utils.Infof("saving unsaved tasks before exit")
		return f.Flush(ctx)
	}
}
