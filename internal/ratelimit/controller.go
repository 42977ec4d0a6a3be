// Package ratelimit implements C6: per-client sliding-window and
// concurrency admission control, endpoint classification, reputation
// tracking, and a global circuit breaker protecting the ingestion
// pipeline from viral overload. It generalizes the teacher's
// single-profile redis_limiter.go/config.go into a multi-class
// controller; reputation, classification, and the global breaker have
// no grounding source in the retrieval pack and are original
// engineering in the same package style (see DESIGN.md).
package ratelimit

import (
	"context"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alphacv/matchcore/internal/metrics"
	"go.uber.org/zap"
)

const hourWindow = time.Hour

// Decision is the outcome of one admission check, including the
// optional response-header data (limit, remaining, reset) §6
// describes.
type Decision struct {
	Admitted        bool
	Reason          string
	RetryAfter      time.Duration
	Limit           int
	Remaining       int
	ResetAt         time.Time
	Class           EndpointClass
}

// Controller is the C6 rate limiter and admission controller.
type Controller struct {
	mu     sync.RWMutex
	cfg    Config
	window WindowStore

	clients map[string]*clientState

	globalInFlight int64
	breaker        *globalBreaker

	metrics metrics.Metrics
	logger  *zap.Logger

	stop chan struct{}
}

func NewController(cfg Config, window WindowStore, m metrics.Metrics, logger *zap.Logger) *Controller {
	if window == nil {
		window = NewMemoryWindowStore()
	}
	if m == nil {
		m = metrics.NewNoOpMetrics()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.SweepInterval <= 0 {
		cfg = DefaultConfig()
	}

	c := &Controller{
		cfg:     cfg,
		window:  window,
		clients: make(map[string]*clientState),
		breaker: newGlobalBreaker(cfg.GlobalRecoveryTime),
		metrics: m,
		logger:  logger,
		stop:    make(chan struct{}),
	}
	go c.sweepLoop()
	return c
}

// UpdateConfig swaps the live profile set, used by the fsnotify hot
// reload path so an operator can retune limits without a restart.
func (c *Controller) UpdateConfig(cfg Config) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cfg = cfg
}

func (c *Controller) configSnapshot() Config {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cfg
}

func (c *Controller) profileFor(class EndpointClass) Profile {
	cfg := c.configSnapshot()
	if p, ok := cfg.Profiles[class]; ok {
		return p
	}
	return cfg.Profiles[ClassGeneral]
}

func (c *Controller) clientStateFor(clientID string) *clientState {
	c.mu.Lock()
	defer c.mu.Unlock()
	st, ok := c.clients[clientID]
	if !ok {
		st = &clientState{reputation: 1.0, lastTouched: time.Now()}
		c.clients[clientID] = st
	}
	return st
}

// Admit classifies the request, checks the client's effective hourly
// and concurrency limits (scaled by reputation), checks the global
// resource-intensive concurrency counter and circuit breaker for
// job_application/file_upload classes, and updates reputation
// according to the outcome. Callers MUST invoke Release (with the same
// clientID and class) once the request completes.
func (c *Controller) Admit(ctx context.Context, clientID string, class EndpointClass) Decision {
	now := time.Now()
	cfg := c.configSnapshot()

	if class.resourceIntensive() {
		if open, retryAfter := c.breaker.open(); open {
			c.metrics.RecordAdmission(string(class), false)
			return Decision{Admitted: false, Reason: "circuit_open", RetryAfter: retryAfter, Class: class}
		}
	}

	profile := c.profileFor(class)
	st := c.clientStateFor(clientID)

	st.mu.Lock()
	defer st.mu.Unlock()
	st.lastTouched = now

	effectiveLimit := int(math.Floor(st.reputation * float64(profile.RequestsPerHour)))
	effectiveConcurrent := int(math.Floor(st.reputation * float64(profile.ConcurrentLimit)))
	if effectiveConcurrent < 1 {
		effectiveConcurrent = 1
	}

	windowCount, err := c.window.Peek(ctx, windowKey(clientID, class), now, hourWindow)
	if err != nil {
		c.logger.Warn("ratelimit: window peek failed, rejecting suspicious traffic", zap.Error(err))
		c.metrics.RecordAdmission(string(class), false)
		return Decision{Admitted: false, Reason: "internal_error", Class: class}
	}

	// Bad: hourly cap hit.
	if windowCount+1 > effectiveLimit+profile.BurstAllowance {
		st.reputation = math.Max(cfg.MinReputation, st.reputation-cfg.ReputationDecayDown)
		c.metrics.UpdateReputation(clientID, st.reputation)
		c.metrics.RecordAdmission(string(class), false)
		return Decision{
			Admitted:   false,
			Reason:     "hourly_limit_exceeded",
			RetryAfter: retryAfterForWindow(now, hourWindow),
			Limit:      effectiveLimit,
			Remaining:  0,
			ResetAt:    now.Add(hourWindow),
			Class:      class,
		}
	}

	// Suspicious: concurrency cap hit.
	if st.inFlight+1 > effectiveConcurrent {
		st.reputation = math.Max(0.3*cfg.MinReputation, st.reputation-cfg.ReputationDecayDown/2)
		c.metrics.UpdateReputation(clientID, st.reputation)
		c.metrics.RecordAdmission(string(class), false)
		return Decision{Admitted: false, Reason: "concurrency_limit_exceeded", Limit: effectiveConcurrent, Class: class}
	}

	if class.resourceIntensive() {
		cur := atomic.AddInt64(&c.globalInFlight, 1)
		if cur > int64(1.5*float64(cfg.MaxGlobalConcurrent)) {
			c.breaker.trip()
			atomic.AddInt64(&c.globalInFlight, -1)
			c.metrics.RecordAdmission(string(class), false)
			return Decision{Admitted: false, Reason: "circuit_open", RetryAfter: cfg.GlobalRecoveryTime, Class: class}
		}
		if cur > int64(cfg.MaxGlobalConcurrent) {
			atomic.AddInt64(&c.globalInFlight, -1)
			c.metrics.RecordAdmission(string(class), false)
			return Decision{Admitted: false, Reason: "global_concurrency_exceeded", RetryAfter: time.Second, Class: class}
		}
	}

	if _, err := c.window.Record(ctx, windowKey(clientID, class), now, hourWindow); err != nil {
		c.logger.Warn("ratelimit: window record failed", zap.Error(err))
	}
	st.inFlight++

	// Good admission.
	st.reputation = math.Min(1.0, st.reputation+cfg.ReputationDecayUp)
	c.metrics.UpdateReputation(clientID, st.reputation)
	c.metrics.RecordAdmission(string(class), true)

	return Decision{
		Admitted:  true,
		Limit:     effectiveLimit,
		Remaining: effectiveLimit + profile.BurstAllowance - windowCount - 1,
		ResetAt:   now.Add(hourWindow),
		Class:     class,
	}
}

// Release decrements the per-client and (if applicable) global
// concurrency counters once a request completes. Callers must
// guarantee this is invoked exactly once per admitted request.
func (c *Controller) Release(clientID string, class EndpointClass) {
	c.mu.RLock()
	st, ok := c.clients[clientID]
	c.mu.RUnlock()
	if ok {
		st.mu.Lock()
		if st.inFlight > 0 {
			st.inFlight--
		}
		st.mu.Unlock()
	}
	if class.resourceIntensive() {
		atomic.AddInt64(&c.globalInFlight, -1)
	}
}

// ResetCircuitBreaker is the operator control() action analog for C6.
func (c *Controller) ResetCircuitBreaker() {
	c.breaker.reset()
}

func (c *Controller) sweepLoop() {
	ticker := time.NewTicker(c.configSnapshot().SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.sweep()
		case <-c.stop:
			return
		}
	}
}

// sweep drops per-client state with an empty window and zero in-flight
// requests, per §4.6's housekeeping rule.
func (c *Controller) sweep() {
	now := time.Now()
	c.window.Sweep(now, hourWindow)

	c.mu.Lock()
	defer c.mu.Unlock()
	for id, st := range c.clients {
		st.mu.Lock()
		idle := st.inFlight == 0 && now.Sub(st.lastTouched) > hourWindow
		st.mu.Unlock()
		if idle {
			delete(c.clients, id)
		}
	}
}

// Close stops the background sweep loop.
func (c *Controller) Close() {
	close(c.stop)
}

func windowKey(clientID string, class EndpointClass) string {
	return fmt.Sprintf("%s:%s", class, clientID)
}

func retryAfterForWindow(now time.Time, window time.Duration) time.Duration {
	return window / 60 // conservative default retry hint; oldest-entry-aware variants may refine this
}

// CurrentReputation exposes a client's reputation for tests and
// diagnostics; not part of the external operations surface.
func (c *Controller) CurrentReputation(clientID string) float64 {
	c.mu.RLock()
	st, ok := c.clients[clientID]
	c.mu.RUnlock()
	if !ok {
		return 1.0
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.reputation
}
