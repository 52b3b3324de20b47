package application

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"adscope-integrations-layer/internal/domain"
	"adscope-integrations-layer/internal/ports"

	"github.com/rs/zerolog"
)

// DefaultSyncInterval is the reconciliation period of the poll loop.
const DefaultSyncInterval = time.Second

// SessionSyncService keeps every attached consumer's view of the
// active domain and the known-domain set consistent. The store is the
// single source of truth; writers go through this service, and a
// fixed-interval read-and-diff loop propagates changes to consumers
// that hold no subscription. The loop does no I/O beyond the store
// read, so divergence self-heals within one interval with no retry or
// backoff.
//
// Store keys are namespaced by the session id in the context, so the
// reconciliation baseline is kept per session too: the loop ticks over
// every tracked session under that session's namespace, and a write in
// one session never moves another session's baseline.
type SessionSyncService struct {
	store    ports.SessionStore
	events   ports.SyncPublisher
	logger   zerolog.Logger
	interval time.Duration

	mu        sync.Mutex
	baselines map[string]syncBaseline
}

// syncBaseline is the last snapshot the loop propagated for one
// session. An unprimed baseline means the session is tracked but not
// yet observed; the first tick seeds it silently.
type syncBaseline struct {
	snapshot domain.DomainSnapshot
	primed   bool
}

// NewSessionSyncService creates a new session sync service
func NewSessionSyncService(
	store ports.SessionStore,
	events ports.SyncPublisher,
	logger zerolog.Logger,
) *SessionSyncService {
	return &SessionSyncService{
		store:     store,
		events:    events,
		logger:    logger,
		interval:  DefaultSyncInterval,
		baselines: make(map[string]syncBaseline),
	}
}

// NewSessionSyncServiceWithInterval creates a session sync service with
// a custom poll interval
func NewSessionSyncServiceWithInterval(
	store ports.SessionStore,
	events ports.SyncPublisher,
	logger zerolog.Logger,
	interval time.Duration,
) *SessionSyncService {
	s := NewSessionSyncService(store, events, logger)
	s.interval = interval
	return s
}

// Snapshot reads the current domain facts from the store. An absent
// value is an empty snapshot, not an error.
func (s *SessionSyncService) Snapshot(ctx context.Context) (domain.DomainSnapshot, error) {
	raw, found, err := s.store.Get(ctx, ports.ScopeSession, ports.KeyDomainSnapshot)
	if err != nil {
		return domain.DomainSnapshot{}, fmt.Errorf("failed to read domain snapshot: %w", err)
	}
	if !found {
		return domain.DomainSnapshot{}, nil
	}

	var snapshot domain.DomainSnapshot
	if err := json.Unmarshal([]byte(raw), &snapshot); err != nil {
		return domain.DomainSnapshot{}, fmt.Errorf("failed to decode domain snapshot: %w", err)
	}
	return snapshot, nil
}

func (s *SessionSyncService) writeSnapshot(ctx context.Context, snapshot domain.DomainSnapshot) error {
	raw, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to encode domain snapshot: %w", err)
	}
	if err := s.store.Set(ctx, ports.ScopeSession, ports.KeyDomainSnapshot, string(raw)); err != nil {
		return fmt.Errorf("failed to write domain snapshot: %w", err)
	}

	s.mu.Lock()
	s.baselines[domain.GetSessionIDFromContext(ctx)] = syncBaseline{snapshot: snapshot, primed: true}
	s.mu.Unlock()
	return nil
}

// Track registers the calling session with the reconciliation loop so
// writes to its snapshot made outside this service still propagate.
// The snapshot at attach time becomes the baseline; only later
// divergence is published. Tracking an already-tracked session is a
// no-op.
func (s *SessionSyncService) Track(ctx context.Context) {
	sessionID := domain.GetSessionIDFromContext(ctx)

	s.mu.Lock()
	_, tracked := s.baselines[sessionID]
	s.mu.Unlock()
	if tracked {
		return
	}

	baseline := syncBaseline{}
	if snapshot, err := s.Snapshot(ctx); err == nil {
		baseline = syncBaseline{snapshot: snapshot, primed: true}
	}

	s.mu.Lock()
	if _, exists := s.baselines[sessionID]; !exists {
		s.baselines[sessionID] = baseline
	}
	s.mu.Unlock()
}

// SetActiveDomain switches the active selection. Writing the value
// already active is a no-op: no reload, no notification. A real switch
// invalidates the cached account snapshot and asks dependent views for
// a full reload, because the switch changes the scope of all downstream
// data and a partial update would risk stale-scope bugs.
func (s *SessionSyncService) SetActiveDomain(ctx context.Context, domainURL string) error {
	normalized := domain.NormalizeDomainURL(domainURL)

	snapshot, err := s.Snapshot(ctx)
	if err != nil {
		return err
	}
	if snapshot.ActiveDomainURL == normalized {
		return nil
	}

	snapshot.ActiveDomainURL = normalized
	if err := s.writeSnapshot(ctx, snapshot); err != nil {
		return err
	}

	if err := s.store.Delete(ctx, ports.ScopeSession, ports.KeyAccountSnapshot); err != nil {
		s.logger.Error().Err(err).Msg("Failed to invalidate account snapshot")
	}

	s.events.Publish(domain.SyncEvent{
		Kind:      domain.SyncActiveDomainChanged,
		DomainURL: normalized,
		Snapshot:  &snapshot,
	})
	s.events.Publish(domain.SyncEvent{Kind: domain.SyncReloadRequired})

	s.logger.Info().
		Str("domain", normalized).
		Msg("Active domain switched")
	return nil
}

// AddDomain appends a domain to the snapshot and makes it the active
// selection.
func (s *SessionSyncService) AddDomain(ctx context.Context, d domain.Domain) error {
	d.DomainURL = domain.NormalizeDomainURL(d.DomainURL)
	if d.DomainURL == "" {
		return domain.ErrInvalidDomainURL
	}

	snapshot, err := s.Snapshot(ctx)
	if err != nil {
		return err
	}

	replaced := false
	for i := range snapshot.Domains {
		if domain.DomainURLsEqual(snapshot.Domains[i].DomainURL, d.DomainURL) {
			snapshot.Domains[i] = d
			replaced = true
			break
		}
	}
	if !replaced {
		snapshot.Domains = append(snapshot.Domains, d)
	}

	if err := s.writeSnapshot(ctx, snapshot); err != nil {
		return err
	}
	s.events.Publish(domain.SyncEvent{
		Kind:     domain.SyncDomainsChanged,
		Snapshot: &snapshot,
	})

	return s.SetActiveDomain(ctx, d.DomainURL)
}

// RemoveDomain drops a domain from the snapshot. If the removed domain
// was active the selection is cleared and a reload requested; otherwise
// only the snapshot changes.
func (s *SessionSyncService) RemoveDomain(ctx context.Context, d domain.Domain) error {
	snapshot, err := s.Snapshot(ctx)
	if err != nil {
		return err
	}

	kept := snapshot.Domains[:0:0]
	for _, existing := range snapshot.Domains {
		if existing.ID == d.ID || domain.DomainURLsEqual(existing.DomainURL, d.DomainURL) {
			continue
		}
		kept = append(kept, existing)
	}
	if len(kept) == len(snapshot.Domains) {
		return domain.ErrDomainNotFound
	}
	snapshot.Domains = kept

	wasActive := domain.DomainURLsEqual(snapshot.ActiveDomainURL, d.DomainURL)
	if wasActive {
		snapshot.ActiveDomainURL = ""
	}

	if err := s.writeSnapshot(ctx, snapshot); err != nil {
		return err
	}
	s.events.Publish(domain.SyncEvent{
		Kind:     domain.SyncDomainsChanged,
		Snapshot: &snapshot,
	})

	if wasActive {
		if err := s.store.Delete(ctx, ports.ScopeSession, ports.KeyAccountSnapshot); err != nil {
			s.logger.Error().Err(err).Msg("Failed to invalidate account snapshot")
		}
		s.events.Publish(domain.SyncEvent{
			Kind:     domain.SyncActiveDomainChanged,
			Snapshot: &snapshot,
		})
		s.events.Publish(domain.SyncEvent{Kind: domain.SyncReloadRequired})
	}

	return nil
}

// Start launches the reconciliation loop and returns a stop function.
// Each tick reads every tracked session's snapshot under that session's
// namespace, compares by value against the session's last propagated
// copy, and publishes only on divergence. Read failures are silent; the
// next tick heals them.
func (s *SessionSyncService) Start(ctx context.Context) func() {
	loopCtx, cancel := context.WithCancel(ctx)

	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-loopCtx.Done():
				return
			case <-ticker.C:
				s.tick(loopCtx)
			}
		}
	}()

	return cancel
}

func (s *SessionSyncService) tick(ctx context.Context) {
	s.mu.Lock()
	sessionIDs := make([]string, 0, len(s.baselines))
	for id := range s.baselines {
		sessionIDs = append(sessionIDs, id)
	}
	s.mu.Unlock()

	for _, sessionID := range sessionIDs {
		sessionCtx := ctx
		if sessionID != "" {
			sessionCtx = domain.WithSessionID(ctx, sessionID)
		}

		snapshot, err := s.Snapshot(sessionCtx)
		if err != nil {
			continue
		}

		s.mu.Lock()
		baseline, tracked := s.baselines[sessionID]
		changed := tracked && baseline.primed && !snapshot.Equal(baseline.snapshot)
		if tracked {
			s.baselines[sessionID] = syncBaseline{snapshot: snapshot, primed: true}
		}
		s.mu.Unlock()

		if changed {
			s.events.Publish(domain.SyncEvent{
				Kind:     domain.SyncDomainsChanged,
				Snapshot: &snapshot,
			})
		}
	}
}
