package status

import (
	"context"
	"sync"
	"time"

	"statusmon/pkg/format"
	"statusmon/pkg/log"
	"statusmon/pkg/models"
)

const (
	component = "monitor"

	// DefaultInterval is used when Start is given a non-positive interval.
	DefaultInterval = 30 * time.Second
)

// Prober performs a single bounded-timeout reachability check.
type Prober interface {
	Probe(ctx context.Context) error
	BaseURL() string
}

// Indicator receives the outcome of every check.
type Indicator interface {
	Update(online bool)
}

// ReconnectFunc is called once each time the backend goes from offline to online.
type ReconnectFunc func()

// Monitor periodically probes the backend and owns writes to the reachability flag.
type Monitor struct {
	prober Prober
	flag   *Flag

	checkMu sync.Mutex // serializes checks

	mu          sync.RWMutex
	indicators  []Indicator
	onReconnect ReconnectFunc
	handle      *Handle
	lastCheck   time.Time
	lastChange  time.Time
	lastError   string
	latency     time.Duration
}

// NewMonitor creates a monitor writing probe results into flag.
func NewMonitor(prober Prober, flag *Flag, indicators ...Indicator) *Monitor {
	return &Monitor{
		prober:     prober,
		flag:       flag,
		indicators: indicators,
	}
}

// AddIndicator registers another receiver of check results.
func (m *Monitor) AddIndicator(ind Indicator) {
	m.mu.Lock()
	m.indicators = append(m.indicators, ind)
	m.mu.Unlock()
}

// CheckStatus probes the backend once, updates the flag and indicators, and
// reports whether the backend is reachable. Probe failures are logged, never
// returned.
func (m *Monitor) CheckStatus(ctx context.Context) bool {
	m.checkMu.Lock()
	defer m.checkMu.Unlock()

	start := time.Now()
	err := m.prober.Probe(ctx)
	latency := time.Since(start)
	if ctx.Err() != nil {
		// cancelled by the caller, not an answer from the backend
		return m.flag.Online()
	}
	online := err == nil
	wasOnline := m.flag.swap(online)

	now := time.Now()
	m.mu.Lock()
	m.lastCheck = now
	m.latency = latency
	if err != nil {
		m.lastError = err.Error()
	} else {
		m.lastError = ""
	}
	if wasOnline != online || m.lastChange.IsZero() {
		m.lastChange = now
	}
	indicators := make([]Indicator, len(m.indicators))
	copy(indicators, m.indicators)
	onReconnect := m.onReconnect
	m.mu.Unlock()

	for _, ind := range indicators {
		ind.Update(online)
	}

	switch {
	case !wasOnline && online:
		log.Component(component).Info().
			Str("backend", m.prober.BaseURL()).
			Int64("latency_ms", latency.Milliseconds()).
			Msg("Server is back online")
		if onReconnect != nil {
			runReconnect(onReconnect)
		}
	case wasOnline && !online:
		log.Component(component).Warn().
			Str("backend", m.prober.BaseURL()).
			Err(err).
			Msg("Server went offline")
	case err != nil:
		log.Component(component).Debug().
			Str("backend", m.prober.BaseURL()).
			Err(err).
			Msg("Server still offline")
	}

	return online
}

// Start performs one check synchronously and then keeps checking every
// interval until the returned handle is stopped. Calling Start on a running
// monitor returns the existing handle.
func (m *Monitor) Start(interval time.Duration, onReconnect ReconnectFunc) *Handle {
	m.mu.Lock()
	if m.handle != nil && !m.handle.Stopped() {
		h := m.handle
		m.mu.Unlock()
		return h
	}
	if interval <= 0 {
		interval = DefaultInterval
	}

	ctx, cancel := context.WithCancel(context.Background())
	h := &Handle{
		ctx:    ctx,
		cancel: cancel,
		doneCh: make(chan struct{}),
	}
	m.handle = h
	m.onReconnect = onReconnect
	m.mu.Unlock()

	m.CheckStatus(ctx)
	go m.run(h, interval)

	log.Component(component).Info().
		Str("backend", m.prober.BaseURL()).
		Dur("interval", interval).
		Msg("Status monitor started")

	return h
}

// Snapshot returns the current reachability state.
func (m *Monitor) Snapshot() models.StatusSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snap := models.StatusSnapshot{
		BaseURL:      m.prober.BaseURL(),
		Online:       m.flag.Online(),
		LastCheck:    m.lastCheck,
		LastCheckAgo: format.Ago(m.lastCheck),
		LastChange:   m.lastChange,
		LastError:    m.lastError,
		Latency:      m.latency.Milliseconds(),
	}
	if snap.Online && !m.lastChange.IsZero() {
		up := time.Since(m.lastChange)
		snap.UptimeSeconds = int64(up / time.Second)
		snap.Uptime = format.FormatDuration(up)
	}
	return snap
}

func (m *Monitor) run(h *Handle, interval time.Duration) {
	defer close(h.doneCh)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-h.ctx.Done():
			log.Component(component).Info().Str("backend", m.prober.BaseURL()).Msg("Status monitor stopped")
			return
		case <-ticker.C:
			if h.ctx.Err() != nil {
				continue
			}
			m.CheckStatus(h.ctx)
		}
	}
}

func runReconnect(fn ReconnectFunc) {
	defer func() {
		if r := recover(); r != nil {
			log.Component(component).Error().Interface("panic", r).Msg("Reconnect callback panicked")
		}
	}()
	fn()
}

// Handle controls a running monitor loop.
type Handle struct {
	ctx    context.Context
	cancel context.CancelFunc
	doneCh chan struct{}
}

// Stop ends the monitor loop and waits for it to exit. It is safe to call
// more than once.
func (h *Handle) Stop() {
	h.cancel()
	<-h.doneCh
}

// Stopped reports whether the loop has exited.
func (h *Handle) Stopped() bool {
	select {
	case <-h.doneCh:
		return true
	default:
		return false
	}
}

// Done is closed once the loop has exited.
func (h *Handle) Done() <-chan struct{} {
	return h.doneCh
}
