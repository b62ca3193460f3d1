package scheduler

import (
	"sync"
	"time"
)

// Health tracks the run loop's failure state. Written only by the
// scheduler; other goroutines read consistent snapshots.
type Health struct {
	mu                  sync.Mutex
	startTime           time.Time
	lastSuccessfulRun   time.Time
	consecutiveFailures int
	totalFailures       int
	lastError           error
	running             bool
}

// HealthSnapshot is a point-in-time copy of Health.
type HealthSnapshot struct {
	StartTime           time.Time
	LastSuccessfulRun   time.Time
	ConsecutiveFailures int
	TotalFailures       int
	LastError           error
	IsRunning           bool
}

// NewHealth creates a new Health.
func NewHealth() *Health {
	return &Health{}
}

func (h *Health) start(now time.Time) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.startTime = now
	h.running = true
}

func (h *Health) stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.running = false
}

// recordSuccess resets the failure streak.
func (h *Health) recordSuccess(now time.Time) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.lastSuccessfulRun = now
	h.consecutiveFailures = 0
	h.lastError = nil
}

// recordFailure returns the new consecutive-failure count.
func (h *Health) recordFailure(err error) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.consecutiveFailures++
	h.totalFailures++
	h.lastError = err
	return h.consecutiveFailures
}

// Snapshot returns a copy of the current state.
func (h *Health) Snapshot() HealthSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	return HealthSnapshot{
		StartTime:           h.startTime,
		LastSuccessfulRun:   h.lastSuccessfulRun,
		ConsecutiveFailures: h.consecutiveFailures,
		TotalFailures:       h.totalFailures,
		LastError:           h.lastError,
		IsRunning:           h.running,
	}
}
