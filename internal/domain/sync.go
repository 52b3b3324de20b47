package domain

// SyncEventKind identifies what shared fact changed.
type SyncEventKind string

const (
	// SyncDomainsChanged fires when the known-domain snapshot diverges
	// from a consumer's last-seen copy.
	SyncDomainsChanged SyncEventKind = "domains_changed"
	// SyncActiveDomainChanged fires when the active selection moves.
	SyncActiveDomainChanged SyncEventKind = "active_domain_changed"
	// SyncReloadRequired tells dependent views to do a full refresh:
	// a domain switch changes the scope of all downstream data, so
	// partial updates are not attempted.
	SyncReloadRequired SyncEventKind = "reload_required"
	// SyncIntegrationsResync tells integration views to refetch after a
	// connection change.
	SyncIntegrationsResync SyncEventKind = "integrations_resync"
	// SyncSessionRevoked fires when local session state has been cleared
	// (auth failure or full re-authentication).
	SyncSessionRevoked SyncEventKind = "session_revoked"
)

// SyncEvent is the explicit cross-consumer notification that replaces
// implicit shared flags.
type SyncEvent struct {
	Kind        SyncEventKind   `json:"kind"`
	ServiceName string          `json:"service_name,omitempty"`
	DomainURL   string          `json:"domain_url,omitempty"`
	Snapshot    *DomainSnapshot `json:"snapshot,omitempty"`
}

// NotificationLevel classifies a user-facing notice.
type NotificationLevel string

const (
	NoticeSuccess NotificationLevel = "success"
	NoticeFailure NotificationLevel = "failure"
	NoticeInfo    NotificationLevel = "info"
)

// Notification is the single user-visible notice a terminal outcome
// produces. Transient failures during background resync are silent.
type Notification struct {
	Level       NotificationLevel `json:"level"`
	ServiceName string            `json:"service_name,omitempty"`
	Message     string            `json:"message"`
}
