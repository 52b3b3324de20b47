package application

import (
	"context"
	"net/url"

	"adscope-integrations-layer/internal/domain"
	"adscope-integrations-layer/internal/ports"

	"github.com/rs/zerolog"
)

// LandingService handles the Shopify landing variant: a signed query
// arrives from the Shopify app, and the backend either issues a fresh
// auth token (full re-authentication) or reports why it cannot.
type LandingService struct {
	verifier ports.LandingVerifier
	gateway  ports.BackendGateway
	store    ports.SessionStore
	events   ports.SyncPublisher
	notifier ports.Notifier
	logger   zerolog.Logger
}

// NewLandingService creates a new landing service
func NewLandingService(
	verifier ports.LandingVerifier,
	gateway ports.BackendGateway,
	store ports.SessionStore,
	events ports.SyncPublisher,
	notifier ports.Notifier,
	logger zerolog.Logger,
) *LandingService {
	return &LandingService{
		verifier: verifier,
		gateway:  gateway,
		store:    store,
		events:   events,
		notifier: notifier,
		logger:   logger,
	}
}

// LandingOutcome is what a landing resolves to.
type LandingOutcome struct {
	Reauthenticated bool                      `json:"reauthenticated"`
	Failure         *domain.ConnectionFailure `json:"failure,omitempty"`
	Transient       bool                      `json:"transient,omitempty"`
}

// HandleLanding verifies the inbound query, forwards it to the backend,
// and on a token reply replaces all local session state with the fresh
// authentication.
func (s *LandingService) HandleLanding(ctx context.Context, rawQuery string) (*LandingOutcome, error) {
	ok, err := s.verifier.VerifyQuery(&url.URL{RawQuery: rawQuery})
	if err != nil || !ok {
		return nil, domain.ErrLandingVerification
	}

	result, err := s.gateway.ShopifyLanding(ctx, rawQuery)
	if err != nil {
		if domain.IsTransient(err) {
			return &LandingOutcome{Transient: true}, nil
		}
		return nil, err
	}

	if result.Token != "" {
		// A token means a different user context: drop everything local
		// before adopting it.
		if err := s.store.ClearAll(ctx, ports.ScopeSession); err != nil {
			return nil, err
		}
		if err := s.store.ClearAll(ctx, ports.ScopeDurable); err != nil {
			return nil, err
		}
		if err := s.store.Set(ctx, ports.ScopeDurable, ports.KeyAuthToken, result.Token); err != nil {
			return nil, err
		}
		s.events.Publish(domain.SyncEvent{Kind: domain.SyncSessionRevoked})
		s.events.Publish(domain.SyncEvent{Kind: domain.SyncReloadRequired})

		s.notifier.Notify(ctx, domain.Notification{
			Level:       domain.NoticeSuccess,
			ServiceName: "shopify",
			Message:     "shopify connected",
		})

		s.logger.Info().Msg("Shopify landing re-authenticated the session")
		return &LandingOutcome{Reauthenticated: true}, nil
	}

	failure := &domain.ConnectionFailure{Code: result.Message}
	s.notifier.Notify(ctx, domain.Notification{
		Level:       domain.NoticeFailure,
		ServiceName: "shopify",
		Message:     failure.Message(),
	})

	s.logger.Warn().
		Str("message", result.Message).
		Msg("Shopify landing rejected")
	return &LandingOutcome{Failure: failure}, nil
}
