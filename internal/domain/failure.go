package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors resolved before any network call or used to fail closed.
var (
	ErrUnknownService       = errors.New("unknown service")
	ErrEmptyCredential      = errors.New("credential is empty")
	ErrNoPendingConnection  = errors.New("no pending connection")
	ErrStateMismatch        = errors.New("state token mismatch")
	ErrInvalidDomainURL     = errors.New("invalid domain url")
	ErrDuplicateDomain      = errors.New("domain already exists")
	ErrDomainConfirmation   = errors.New("domain confirmation does not match")
	ErrDomainNotFound       = errors.New("domain not found")
	ErrSessionRevoked       = errors.New("session revoked")
	ErrLandingVerification  = errors.New("landing query verification failed")
	ErrWrongConnectionFlow  = errors.New("operation does not apply to this service's flow")
)

// ConnectionFailure is the one closed classification every backend
// failure shape decodes into. Code carries the server's classification
// verbatim; MissingScopes is itemized when the server reports one.
type ConnectionFailure struct {
	Code          string   `json:"code"`
	MissingScopes []string `json:"missing_scopes,omitempty"`
}

// Message renders the failure for presentation, keeping the server's
// classification and any itemized scopes verbatim.
func (f ConnectionFailure) Message() string {
	if len(f.MissingScopes) == 0 {
		return f.Code
	}
	return fmt.Sprintf("%s (missing scopes: %s)", f.Code, strings.Join(f.MissingScopes, ", "))
}

// OutcomeKind is the closed set of terminal results a connection
// operation resolves to before reaching presentation.
type OutcomeKind string

const (
	OutcomeConnected OutcomeKind = "connected"
	OutcomeFailed    OutcomeKind = "failed"
	// OutcomeTransient means the backend was unreachable; prior
	// connection state is untouched and the operation is retryable.
	OutcomeTransient OutcomeKind = "transient"
)

// ConnectOutcome is what a connect or exchange operation resolves to.
type ConnectOutcome struct {
	ServiceName string             `json:"service_name"`
	Kind        OutcomeKind        `json:"kind"`
	Failure     *ConnectionFailure `json:"failure,omitempty"`
}

// connectReply covers every response body shape the backend returns for
// a connect or exchange call: a flat status string, a nested
// detail.status with an optional missing_scopes array, or a credential
// echo that stands in for success.
type connectReply struct {
	Status string `json:"status"`
	Detail *struct {
		Status        string   `json:"status"`
		MissingScopes []string `json:"missing_scopes"`
	} `json:"detail"`
	AccessToken string `json:"access_token"`
	Token       string `json:"token"`
}

const statusSuccess = "SUCCESS"

// DecodeConnectResponse maps a backend reply to either success (nil) or
// a ConnectionFailure. Transport-level failures never reach this point;
// a non-2xx status without a recognized classification is still a
// connection failure, not a transport error.
func DecodeConnectResponse(statusCode int, body []byte) *ConnectionFailure {
	var reply connectReply
	if len(body) > 0 {
		// An unparseable body carries no classification; fall through to
		// the status-code check.
		_ = json.Unmarshal(body, &reply)
	}

	if reply.Detail != nil && reply.Detail.Status != "" && reply.Detail.Status != statusSuccess {
		return &ConnectionFailure{
			Code:          reply.Detail.Status,
			MissingScopes: reply.Detail.MissingScopes,
		}
	}
	if reply.Status != "" && reply.Status != statusSuccess {
		return &ConnectionFailure{Code: reply.Status}
	}
	if reply.Status == statusSuccess || reply.AccessToken != "" || reply.Token != "" {
		return nil
	}
	if statusCode < 200 || statusCode > 299 {
		return &ConnectionFailure{Code: "CONNECTION_REJECTED"}
	}
	return nil
}

// TransientError marks transport-level failures (network unreachable,
// 5xx). They must not change connection state.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient backend failure: %v", e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// IsTransient reports whether err is a transport-level failure.
func IsTransient(err error) bool {
	var t *TransientError
	return errors.As(err, &t)
}

// LandingResult is the decoded Shopify landing reply: either a fresh
// auth token (full re-authentication) or a failure message.
type LandingResult struct {
	Token   string `json:"token,omitempty"`
	Message string `json:"message,omitempty"`
}
