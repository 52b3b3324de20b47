package ports

import (
	"context"
	"net/url"

	"adscope-integrations-layer/internal/domain"
)

// SyncPublisher broadcasts shared-fact changes to every attached
// consumer. Publishing must never block the caller.
type SyncPublisher interface {
	Publish(event domain.SyncEvent)
}

// Notifier delivers user-visible notices. Every terminal connection
// outcome produces exactly one notification.
type Notifier interface {
	Notify(ctx context.Context, n domain.Notification)
}

// OutcomeRecorder counts terminal connect and exchange outcomes for
// observability backends.
type OutcomeRecorder interface {
	RecordOutcome(serviceName string, kind domain.OutcomeKind)
}

// EncryptionService encrypts credential material before it is stored.
type EncryptionService interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

// LandingVerifier checks the authenticity of an inbound Shopify landing
// query before anything else happens with it.
type LandingVerifier interface {
	VerifyQuery(u *url.URL) (bool, error)
}
