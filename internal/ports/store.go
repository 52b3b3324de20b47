package ports

import "context"

// Scope selects the lifetime of a stored value.
type Scope string

const (
	// ScopeSession values live until the session ends: active domain,
	// domain snapshot, pending connections, cached account snapshot.
	ScopeSession Scope = "session"
	// ScopeDurable values live until explicit logout: the auth token.
	ScopeDurable Scope = "durable"
)

// Well-known store keys shared across components.
const (
	KeyAuthToken       = "auth_token"
	KeyDomainSnapshot  = "domain_snapshot"
	KeyAccountSnapshot = "account_snapshot"
	KeyNeedsResync     = "integrations_needs_resync"
)

// SessionStore is the single shared fact store. It is a pure storage
// facade: no network, no validation. Every write is a full-value
// replace with last-write-wins semantics.
type SessionStore interface {
	// Get returns the value and whether it was present.
	Get(ctx context.Context, scope Scope, key string) (string, bool, error)

	// Set overwrites; it never fails on a missing prior value.
	Set(ctx context.Context, scope Scope, key string, value string) error

	// Delete is a no-op if the key is absent.
	Delete(ctx context.Context, scope Scope, key string) error

	// Take atomically reads and deletes a value. It backs one-shot
	// records such as pending connections.
	Take(ctx context.Context, scope Scope, key string) (string, bool, error)

	// ClearAll removes every value in a scope. Used on logout and full
	// re-authentication to avoid stale cross-account leakage.
	ClearAll(ctx context.Context, scope Scope) error
}
