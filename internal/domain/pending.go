package domain

import "time"

// PendingConnection is the ephemeral correlation record created
// immediately before redirecting the browser to a provider's
// authorization page. Exactly one may exist per service at a time;
// it is written once by the initiating flow and consumed once by the
// callback, after which it is gone regardless of outcome so a used
// authorization code can never be exchanged twice.
type PendingConnection struct {
	ServiceName  string    `json:"service_name"`
	State        string    `json:"state"`
	CodeVerifier string    `json:"code_verifier,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}
