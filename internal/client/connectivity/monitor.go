// Package connectivity tracks whether the remote store is reachable and
// notifies subscribers when that changes.
package connectivity

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/loansync/internal/logging"
)

type Mode string

const (
	ModeUnknown Mode = ""
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

// ProbeTimeout bounds a single reachability check.
const ProbeTimeout = 3 * time.Second

// Prober checks reachability of the backend. remote.Client satisfies it.
type Prober interface {
	Ping(ctx context.Context) error
}

type ProberFunc func(ctx context.Context) error

func (f ProberFunc) Ping(ctx context.Context) error { return f(ctx) }

type Monitor struct {
	prober   Prober
	interval time.Duration
	log      logging.Logger

	mu          sync.Mutex
	mode        Mode
	subscribers []func(context.Context, Mode)
}

func NewMonitor(prober Prober, interval time.Duration, log logging.Logger) *Monitor {
	return &Monitor{
		prober:   prober,
		interval: interval,
		log:      log.With("component", "connectivity"),
	}
}

// Subscribe registers fn to be called, in registration order, on every mode
// transition.
func (m *Monitor) Subscribe(fn func(ctx context.Context, mode Mode)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subscribers = append(m.subscribers, fn)
}

func (m *Monitor) Mode() Mode {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mode
}

// IsConnected probes the backend now and records the outcome.
func (m *Monitor) IsConnected(ctx context.Context) bool {
	return m.check(ctx) == ModeOnline
}

// Run probes immediately and then on every tick until ctx is done.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.check(ctx)

	for {
		select {
		case <-ticker.C:
			m.check(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (m *Monitor) check(ctx context.Context) Mode {
	probeCtx, cancel := context.WithTimeout(ctx, ProbeTimeout)
	err := m.prober.Ping(probeCtx)
	cancel()

	mode := ModeOnline
	if err != nil {
		mode = ModeOffline
		m.log.Debug(ctx, "backend unreachable", "error", err)
	}
	m.setMode(ctx, mode)
	return mode
}

func (m *Monitor) setMode(ctx context.Context, mode Mode) {
	m.mu.Lock()
	if m.mode == mode {
		m.mu.Unlock()
		return
	}
	m.mode = mode
	subs := make([]func(context.Context, Mode), len(m.subscribers))
	copy(subs, m.subscribers)
	m.mu.Unlock()

	m.log.Info(ctx, "switched mode", "mode", string(mode))
	for _, fn := range subs {
		fn(ctx, mode)
	}
}
