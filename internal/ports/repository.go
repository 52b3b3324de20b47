package ports

import (
	"context"

	"adscope-integrations-layer/internal/domain"
)

// CredentialRepository defines the interface for integration credential persistence
type CredentialRepository interface {
	// Upsert creates or replaces the credential record for
	// (account, service); at most one exists per pair.
	Upsert(ctx context.Context, credential *domain.IntegrationCredential) error

	// GetByService retrieves the record for a service, or (nil, nil).
	GetByService(ctx context.Context, accountID, serviceName string) (*domain.IntegrationCredential, error)

	// ListByAccount lists every credential record for an account.
	ListByAccount(ctx context.Context, accountID string) ([]*domain.IntegrationCredential, error)

	// Delete removes the record. Only called after a server
	// acknowledgment; never speculatively.
	Delete(ctx context.Context, accountID, serviceName string) error
}

// DomainRepository defines the interface for domain record persistence
type DomainRepository interface {
	Save(ctx context.Context, accountID string, d *domain.Domain) error
	GetByURL(ctx context.Context, accountID, domainURL string) (*domain.Domain, error)
	List(ctx context.Context, accountID string) ([]*domain.Domain, error)
	Delete(ctx context.Context, accountID string, id int64) error
}
