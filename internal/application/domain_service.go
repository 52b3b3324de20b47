package application

import (
	"context"
	"fmt"

	"adscope-integrations-layer/internal/domain"
	"adscope-integrations-layer/internal/ports"

	"github.com/rs/zerolog"
)

// DomainService runs the domain CRUD against the backend and keeps the
// session snapshot in step through the sync service. Local validation
// (empty URL, duplicate, confirmation mismatch) rejects before any
// network call.
type DomainService struct {
	gateway  ports.BackendGateway
	domains  ports.DomainRepository
	sync     *SessionSyncService
	notifier ports.Notifier
	logger   zerolog.Logger
}

// NewDomainService creates a new domain service
func NewDomainService(
	gateway ports.BackendGateway,
	domains ports.DomainRepository,
	sync *SessionSyncService,
	notifier ports.Notifier,
	logger zerolog.Logger,
) *DomainService {
	return &DomainService{
		gateway:  gateway,
		domains:  domains,
		sync:     sync,
		notifier: notifier,
		logger:   logger,
	}
}

// AddDomain registers a new domain with the backend and makes it the
// active selection.
func (s *DomainService) AddDomain(ctx context.Context, rawURL string) (*domain.Domain, error) {
	normalized := domain.NormalizeDomainURL(rawURL)
	if normalized == "" {
		return nil, domain.ErrInvalidDomainURL
	}

	snapshot, err := s.sync.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	for _, existing := range snapshot.Domains {
		if domain.DomainURLsEqual(existing.DomainURL, normalized) {
			return nil, domain.ErrDuplicateDomain
		}
	}

	created, err := s.gateway.CreateDomain(ctx, normalized)
	if err != nil {
		return nil, err
	}
	created.DomainURL = domain.NormalizeDomainURL(created.DomainURL)

	accountID := domain.GetAccountIDFromContext(ctx)
	if err := s.domains.Save(ctx, accountID, created); err != nil {
		s.logger.Error().Err(err).Str("domain", created.DomainURL).Msg("Failed to persist domain record")
	}

	if err := s.sync.AddDomain(ctx, *created); err != nil {
		return nil, err
	}

	s.notifier.Notify(ctx, domain.Notification{
		Level:   domain.NoticeSuccess,
		Message: fmt.Sprintf("%s added", created.DomainURL),
	})

	s.logger.Info().
		Str("domain", created.DomainURL).
		Int64("id", created.ID).
		Msg("Domain added")
	return created, nil
}

// RemoveDomain deletes a domain. The caller must retype the domain as a
// confirmation token; anything that does not identify the stored domain
// (after normalization) is rejected before the backend is contacted.
func (s *DomainService) RemoveDomain(ctx context.Context, id int64, confirmation string) error {
	snapshot, err := s.sync.Snapshot(ctx)
	if err != nil {
		return err
	}

	target := snapshot.FindByID(id)
	if target == nil {
		return domain.ErrDomainNotFound
	}
	if !domain.ConfirmationMatches(confirmation, target.DomainURL) {
		return domain.ErrDomainConfirmation
	}

	if err := s.gateway.DeleteDomain(ctx, id, target.DomainURL); err != nil {
		return err
	}

	accountID := domain.GetAccountIDFromContext(ctx)
	if err := s.domains.Delete(ctx, accountID, id); err != nil {
		s.logger.Error().Err(err).Int64("id", id).Msg("Failed to delete domain record")
	}

	if err := s.sync.RemoveDomain(ctx, *target); err != nil {
		return err
	}

	s.notifier.Notify(ctx, domain.Notification{
		Level:   domain.NoticeSuccess,
		Message: fmt.Sprintf("%s removed", target.DomainURL),
	})

	s.logger.Info().
		Str("domain", target.DomainURL).
		Int64("id", id).
		Msg("Domain removed")
	return nil
}
