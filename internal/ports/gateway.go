package ports

import (
	"context"

	"adscope-integrations-layer/internal/domain"
)

// BackendResponse is the raw-enough view of a backend reply: the
// orchestrator decodes the body itself because failure shapes differ
// per service.
type BackendResponse struct {
	StatusCode int
	Body       []byte
}

// BackendGateway is the authenticated HTTP contract to the analytics
// backend. Implementations classify network failures and 5xx replies as
// transient (domain.TransientError) so callers never mistake transport
// trouble for a credential rejection.
type BackendGateway interface {
	// ConnectIntegration posts credentials or an exchange payload under
	// service_name and returns the reply for per-service decoding.
	ConnectIntegration(ctx context.Context, serviceName string, payload map[string]any) (*BackendResponse, error)

	// CreateDomain registers a domain and returns the created record.
	CreateDomain(ctx context.Context, domainURL string) (*domain.Domain, error)

	// DeleteDomain removes a domain; confirmation must equal the stored
	// normalized domain or the backend rejects the delete.
	DeleteDomain(ctx context.Context, id int64, confirmation string) error

	// ShopifyLanding forwards the original landing query string.
	ShopifyLanding(ctx context.Context, rawQuery string) (*domain.LandingResult, error)
}
