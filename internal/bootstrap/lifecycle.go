package bootstrap

import (
	"context"
	"sync"
	"time"

	"prismatics/pkg/logger"
)

// Lifecycle manages graceful startup and shutdown of components
type Lifecycle struct {
	shutdownTimeout time.Duration
}

// NewLifecycle creates a new lifecycle manager
func NewLifecycle() *Lifecycle {
	return &Lifecycle{
		shutdownTimeout: 30 * time.Second,
	}
}

// Shutdown performs coordinated cleanup in the correct order:
// 1. No new requests accepted (HTTP server drains, WebSockets close)
// 2. Change listener unblocks via context cancel
// 3. Goroutines drain
// 4. Error tracker flushes, logs sync
// 5. Store connections last (handlers may still be finishing)
func (l *Lifecycle) Shutdown(c *Container) {
	log := c.Log

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), l.shutdownTimeout)
	defer shutdownCancel()

	// ========================================
	// Step 1: Stop HTTP Server
	// ========================================
	log.Info("[1/5] Stopping HTTP server...")
	httpCtx, httpCancel := context.WithTimeout(shutdownCtx, 5*time.Second)
	if err := c.Server.Shutdown(httpCtx); err != nil {
		log.Errorf("HTTP server shutdown failed: %v", err)
	}
	httpCancel()

	// ========================================
	// Step 2: Stop Change Listener
	// Cancelling the root context unblocks the pub/sub receive loop.
	// ========================================
	log.Info("[2/5] Stopping change listener...")
	c.Cancel()

	// ========================================
	// Step 3: Wait for Goroutines
	// ========================================
	log.Info("[3/5] Waiting for goroutines...")
	l.waitForGoroutines(c.WG, 5*time.Second, log)

	// ========================================
	// Step 4: Flush Error Tracker & Sync Logs
	// ========================================
	log.Info("[4/5] Flushing error tracker...")
	if c.ErrorTracker != nil {
		flushCtx, flushCancel := context.WithTimeout(shutdownCtx, 3*time.Second)
		if err := c.ErrorTracker.Flush(flushCtx); err != nil {
			log.Warnf("Error tracker flush failed: %v", err)
		}
		flushCancel()
	}
	if err := logger.Sync(); err != nil {
		log.Warn("Log sync completed with warnings")
	}

	// ========================================
	// Step 5: Close Store Connections
	// ========================================
	log.Info("[5/5] Closing store connections...")
	if err := c.Redis.Close(); err != nil {
		log.Errorf("Redis close failed: %v", err)
	} else {
		log.Info("✓ Redis closed")
	}
	if err := c.CH.Close(); err != nil {
		log.Errorf("ClickHouse close failed: %v", err)
	} else {
		log.Info("✓ ClickHouse closed")
	}

	log.Info("Shutdown complete")
}

// waitForGoroutines waits for the waitgroup with a timeout so a stuck
// goroutine cannot hang the whole shutdown.
func (l *Lifecycle) waitForGoroutines(wg *sync.WaitGroup, timeout time.Duration, log *logger.Logger) {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Info("✓ Goroutines finished")
	case <-time.After(timeout):
		log.Warn("Timed out waiting for goroutines")
	}
}
