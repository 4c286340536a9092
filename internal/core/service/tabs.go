package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/shuttlepass/ticket-portal/internal/core/ports"
	"github.com/shuttlepass/ticket-portal/internal/pkg/metrics"
)

const (
	defaultIdleTimeout = 30 * time.Minute
	minSweepInterval   = time.Second
)

type tabKey struct {
	profile string
	tab     string
}

type openTab struct {
	session  *Session
	sync     *CrossTabSync
	lastUsed time.Time
}

// TabOption customises a TabRegistry.
type TabOption func(*TabRegistry)

// WithIdleTimeout sets how long an unused tab is kept. Non-positive values
// keep the default.
func WithIdleTimeout(d time.Duration) TabOption {
	return func(r *TabRegistry) {
		if d > 0 {
			r.idleTimeout = d
		}
	}
}

// TabRegistry owns the session context of every open tab. A tab's session
// is created on first use, subscribed to its profile's storage changes and
// started before it is handed out.
//
// Tabs not opened for longer than the idle timeout, and with nobody watching
// their navigations, are closed by a background sweep. Their persisted
// session survives; the next request reopens the tab from storage.
type TabRegistry struct {
	storage     ports.StorageProvider
	identity    ports.IdentityAPI
	resolver    *Resolver
	audit       ports.AuditRecorder
	log         zerolog.Logger
	idleTimeout time.Duration

	ctx    context.Context
	cancel context.CancelFunc

	mu   sync.Mutex
	tabs map[tabKey]*openTab
}

// NewTabRegistry returns an empty registry and starts its idle sweep, which
// runs until Shutdown.
func NewTabRegistry(
	storage ports.StorageProvider,
	identity ports.IdentityAPI,
	resolver *Resolver,
	audit ports.AuditRecorder,
	log zerolog.Logger,
	opts ...TabOption,
) *TabRegistry {
	ctx, cancel := context.WithCancel(context.Background())
	r := &TabRegistry{
		storage:     storage,
		identity:    identity,
		resolver:    resolver,
		audit:       audit,
		log:         log,
		idleTimeout: defaultIdleTimeout,
		ctx:         ctx,
		cancel:      cancel,
		tabs:        make(map[tabKey]*openTab),
	}
	for _, opt := range opts {
		opt(r)
	}
	go r.sweepLoop()
	return r
}

// Open returns the session of (profileID, tabID), creating it if needed.
// Every call counts as use of the tab.
func (r *TabRegistry) Open(profileID, tabID string) (*Session, error) {
	key := tabKey{profile: profileID, tab: tabID}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.ctx.Err(); err != nil {
		return nil, errors.New("tab registry is shut down")
	}
	if t, ok := r.tabs[key]; ok {
		t.lastUsed = time.Now()
		return t.session, nil
	}

	kv := r.storage.Store(profileID)
	bus := r.storage.Bus(profileID)
	session := NewSession(profileID, tabID, SessionDeps{
		Store:    NewTokenStore(kv, bus, tabID, r.log),
		Resolver: r.resolver,
		Identity: r.identity,
		Audit:    r.audit,
		Log:      r.log,
	})

	// subscribe before the first read so no change slips between them
	syncer, err := StartSync(r.ctx, session, bus, r.log)
	if err != nil {
		return nil, err
	}
	session.Start(r.ctx)

	r.tabs[key] = &openTab{session: session, sync: syncer, lastUsed: time.Now()}
	metrics.OpenTabs.Inc()
	r.log.Debug().Str("profile", profileID).Str("tab", tabID).Msg("tab opened")
	return session, nil
}

// Close tears down a tab. Closing an unknown tab is a no-op.
func (r *TabRegistry) Close(profileID, tabID string) error {
	key := tabKey{profile: profileID, tab: tabID}

	r.mu.Lock()
	t, ok := r.tabs[key]
	delete(r.tabs, key)
	r.mu.Unlock()

	if !ok {
		return nil
	}
	return r.closeTab(t)
}

// Sweep closes the tabs idle since before now minus the idle timeout and
// returns how many it closed. Watched tabs are kept.
func (r *TabRegistry) Sweep(now time.Time) int {
	cutoff := now.Add(-r.idleTimeout)

	r.mu.Lock()
	var idle []*openTab
	for key, t := range r.tabs {
		if t.lastUsed.After(cutoff) || t.session.Watching() {
			continue
		}
		delete(r.tabs, key)
		idle = append(idle, t)
	}
	r.mu.Unlock()

	for _, t := range idle {
		if err := r.closeTab(t); err != nil {
			r.log.Warn().Err(err).Msg("closing idle tab subscription")
		}
	}
	if len(idle) > 0 {
		metrics.TabsEvictedTotal.Add(float64(len(idle)))
		r.log.Debug().Int("tabs", len(idle)).Msg("idle tabs closed")
	}
	return len(idle)
}

// Len returns the number of open tabs.
func (r *TabRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tabs)
}

// Shutdown closes every tab and refuses new ones.
func (r *TabRegistry) Shutdown() {
	r.mu.Lock()
	r.cancel()
	tabs := r.tabs
	r.tabs = make(map[tabKey]*openTab)
	r.mu.Unlock()

	for _, t := range tabs {
		if err := r.closeTab(t); err != nil {
			r.log.Warn().Err(err).Msg("closing tab subscription")
		}
	}
}

func (r *TabRegistry) closeTab(t *openTab) error {
	metrics.OpenTabs.Dec()
	t.session.Close()
	return t.sync.Close()
}

func (r *TabRegistry) sweepLoop() {
	interval := r.idleTimeout / 4
	if interval < minSweepInterval {
		interval = minSweepInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.ctx.Done():
			return
		case now := <-ticker.C:
			r.Sweep(now)
		}
	}
}
