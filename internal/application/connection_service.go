package application

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"adscope-integrations-layer/internal/domain"
	"adscope-integrations-layer/internal/ports"

	"github.com/rs/zerolog"
)

const pendingKeyPrefix = "pending_connection:"

func pendingKey(serviceName string) string {
	return pendingKeyPrefix + serviceName
}

// ConnectionService drives the connection workflow for every service:
// the credential-submit flow and the OAuth-redirect flow. All backend
// replies are resolved here into the closed outcome set; callers never
// see raw HTTP status codes.
type ConnectionService struct {
	catalog     *domain.ServiceCatalog
	gateway     ports.BackendGateway
	store       ports.SessionStore
	credentials ports.CredentialRepository
	encryption  ports.EncryptionService
	events      ports.SyncPublisher
	notifier    ports.Notifier
	outcomes    ports.OutcomeRecorder
	logger      zerolog.Logger
}

// NewConnectionService creates a new connection service
func NewConnectionService(
	catalog *domain.ServiceCatalog,
	gateway ports.BackendGateway,
	store ports.SessionStore,
	credentials ports.CredentialRepository,
	encryption ports.EncryptionService,
	events ports.SyncPublisher,
	notifier ports.Notifier,
	outcomes ports.OutcomeRecorder,
	logger zerolog.Logger,
) *ConnectionService {
	return &ConnectionService{
		catalog:     catalog,
		gateway:     gateway,
		store:       store,
		credentials: credentials,
		encryption:  encryption,
		events:      events,
		notifier:    notifier,
		outcomes:    outcomes,
		logger:      logger,
	}
}

// ConnectInput represents the input for a credential-submit connection
type ConnectInput struct {
	ServiceName  string
	Credentials  map[string]string
	PixelInstall bool
}

// Connect runs the credential-submit flow. Empty credentials are
// rejected locally before any network call; a transport failure leaves
// whatever connection state existed before untouched.
func (s *ConnectionService) Connect(ctx context.Context, input ConnectInput) (*domain.ConnectOutcome, error) {
	descriptor, err := s.catalog.Lookup(input.ServiceName)
	if err != nil {
		return nil, err
	}
	if descriptor.Flow != domain.FlowCredential {
		return nil, domain.ErrWrongConnectionFlow
	}

	if len(input.Credentials) == 0 {
		return nil, domain.ErrEmptyCredential
	}
	for field, value := range input.Credentials {
		if strings.TrimSpace(value) == "" {
			return nil, fmt.Errorf("%w: %s", domain.ErrEmptyCredential, field)
		}
	}

	payload := map[string]any{descriptor.WireKey: input.Credentials}
	if input.PixelInstall {
		payload["pixel_install"] = true
	}

	resp, err := s.gateway.ConnectIntegration(ctx, input.ServiceName, payload)
	if err != nil {
		if domain.IsTransient(err) {
			s.logger.Warn().Err(err).Str("service", input.ServiceName).Msg("Connect attempt hit a transient backend failure")
			return s.transientOutcome(input.ServiceName), nil
		}
		return nil, err
	}

	failure := domain.DecodeConnectResponse(resp.StatusCode, resp.Body)
	if failure != nil {
		return s.recordFailure(ctx, input.ServiceName, failure)
	}
	return s.recordConnected(ctx, descriptor, input)
}

// BeginRedirect starts the OAuth flow: it persists the pending
// connection (overwriting any previous one for the service) and
// returns the provider authorization URL for the browser to follow.
// No response is awaited; the callback picks the flow back up.
func (s *ConnectionService) BeginRedirect(ctx context.Context, serviceName, redirectURI string) (string, error) {
	descriptor, err := s.catalog.Lookup(serviceName)
	if err != nil {
		return "", err
	}
	if descriptor.Flow != domain.FlowRedirect {
		return "", domain.ErrWrongConnectionFlow
	}

	state, err := randomToken(16)
	if err != nil {
		return "", fmt.Errorf("failed to generate state: %w", err)
	}

	pending := domain.PendingConnection{
		ServiceName: serviceName,
		State:       state,
		CreatedAt:   time.Now(),
	}

	params := url.Values{}
	params.Set("client_id", descriptor.ClientID)
	params.Set("redirect_uri", redirectURI)
	params.Set("response_type", "code")
	params.Set("state", state)
	if len(descriptor.Scopes) > 0 {
		params.Set("scope", strings.Join(descriptor.Scopes, " "))
	}

	if descriptor.UsesPKCE {
		verifier, err := randomToken(32)
		if err != nil {
			return "", fmt.Errorf("failed to generate code verifier: %w", err)
		}
		pending.CodeVerifier = verifier

		challenge := sha256.Sum256([]byte(verifier))
		params.Set("code_challenge", base64.RawURLEncoding.EncodeToString(challenge[:]))
		params.Set("code_challenge_method", "S256")
	}

	raw, err := json.Marshal(pending)
	if err != nil {
		return "", fmt.Errorf("failed to encode pending connection: %w", err)
	}
	if err := s.store.Set(ctx, ports.ScopeSession, pendingKey(serviceName), string(raw)); err != nil {
		return "", fmt.Errorf("failed to persist pending connection: %w", err)
	}

	s.logger.Info().
		Str("service", serviceName).
		Msg("Pending connection created, redirecting to provider")

	return descriptor.AuthorizeURL + "?" + params.Encode(), nil
}

// CompleteFromCallback finishes the OAuth flow when the browser
// returns. The pending connection is consumed exactly once whatever
// happens, so a replayed callback finds nothing and fails closed. An
// error parameter from the provider short-circuits without contacting
// the backend.
func (s *ConnectionService) CompleteFromCallback(ctx context.Context, serviceName string, query url.Values) (*domain.ConnectOutcome, error) {
	descriptor, err := s.catalog.Lookup(serviceName)
	if err != nil {
		return nil, err
	}
	if descriptor.Flow != domain.FlowRedirect {
		return nil, domain.ErrWrongConnectionFlow
	}

	if providerError := query.Get("error"); providerError != "" {
		// The user declined (or the provider refused) before any code
		// was issued; the pending record is spent either way.
		_ = s.store.Delete(ctx, ports.ScopeSession, pendingKey(serviceName))
		return s.recordFailure(ctx, serviceName, &domain.ConnectionFailure{Code: providerError})
	}

	raw, found, err := s.store.Take(ctx, ports.ScopeSession, pendingKey(serviceName))
	if err != nil {
		return nil, fmt.Errorf("failed to consume pending connection: %w", err)
	}
	if !found {
		s.logger.Warn().
			Str("service", serviceName).
			Msg("Callback with no pending connection, failing closed")
		return nil, domain.ErrNoPendingConnection
	}

	var pending domain.PendingConnection
	if err := json.Unmarshal([]byte(raw), &pending); err != nil {
		return nil, fmt.Errorf("failed to decode pending connection: %w", err)
	}

	if state := query.Get("state"); pending.State != "" && state != pending.State {
		s.logger.Warn().
			Str("service", serviceName).
			Msg("Callback state does not match pending connection, failing closed")
		return nil, domain.ErrStateMismatch
	}

	exchange := map[string]any{"code": query.Get("code")}
	if pending.State != "" {
		exchange["state"] = pending.State
	}
	if pending.CodeVerifier != "" {
		exchange["code_verifier"] = pending.CodeVerifier
	}
	if scope := query.Get("scope"); scope != "" {
		exchange["scope"] = scope
	}

	resp, err := s.gateway.ConnectIntegration(ctx, serviceName, map[string]any{descriptor.WireKey: exchange})
	if err != nil {
		if domain.IsTransient(err) {
			s.logger.Warn().Err(err).Str("service", serviceName).Msg("Token exchange hit a transient backend failure")
			return s.transientOutcome(serviceName), nil
		}
		return nil, err
	}

	failure := domain.DecodeConnectResponse(resp.StatusCode, resp.Body)
	if failure != nil {
		return s.recordFailure(ctx, serviceName, failure)
	}
	return s.recordConnected(ctx, descriptor, ConnectInput{ServiceName: serviceName})
}

// Status returns the persisted connection state for a service, or a
// disconnected record when none exists.
func (s *ConnectionService) Status(ctx context.Context, serviceName string) (*domain.IntegrationCredential, error) {
	if _, err := s.catalog.Lookup(serviceName); err != nil {
		return nil, err
	}

	accountID := domain.GetAccountIDFromContext(ctx)
	credential, err := s.credentials.GetByService(ctx, accountID, serviceName)
	if err != nil {
		return nil, err
	}
	if credential == nil {
		return &domain.IntegrationCredential{
			AccountID:   accountID,
			ServiceName: serviceName,
			Status:      domain.StatusDisconnected,
		}, nil
	}
	return credential, nil
}

func (s *ConnectionService) recordConnected(ctx context.Context, descriptor *domain.ServiceDescriptor, input ConnectInput) (*domain.ConnectOutcome, error) {
	credential := &domain.IntegrationCredential{
		AccountID:    domain.GetAccountIDFromContext(ctx),
		ServiceName:  descriptor.Name,
		Status:       domain.StatusConnected,
		PixelInstall: input.PixelInstall,
	}

	if len(input.Credentials) > 0 {
		raw, err := json.Marshal(input.Credentials)
		if err != nil {
			return nil, fmt.Errorf("failed to encode credentials: %w", err)
		}
		encrypted, err := s.encryption.Encrypt(string(raw))
		if err != nil {
			return nil, fmt.Errorf("failed to encrypt credentials: %w", err)
		}
		credential.EncryptedSecret = encrypted
	}

	if err := s.credentials.Upsert(ctx, credential); err != nil {
		return nil, fmt.Errorf("failed to persist credential: %w", err)
	}

	// Other views refetch their integration list on this signal.
	if err := s.store.Set(ctx, ports.ScopeSession, ports.KeyNeedsResync, "1"); err != nil {
		s.logger.Error().Err(err).Msg("Failed to set resync flag")
	}
	s.events.Publish(domain.SyncEvent{
		Kind:        domain.SyncIntegrationsResync,
		ServiceName: descriptor.Name,
	})

	s.notifier.Notify(ctx, domain.Notification{
		Level:       domain.NoticeSuccess,
		ServiceName: descriptor.Name,
		Message:     fmt.Sprintf("%s connected", descriptor.Name),
	})
	s.outcomes.RecordOutcome(descriptor.Name, domain.OutcomeConnected)

	s.logger.Info().
		Str("service", descriptor.Name).
		Msg("Integration connected")

	return &domain.ConnectOutcome{
		ServiceName: descriptor.Name,
		Kind:        domain.OutcomeConnected,
	}, nil
}

func (s *ConnectionService) recordFailure(ctx context.Context, serviceName string, failure *domain.ConnectionFailure) (*domain.ConnectOutcome, error) {
	credential := &domain.IntegrationCredential{
		AccountID:     domain.GetAccountIDFromContext(ctx),
		ServiceName:   serviceName,
		Status:        domain.StatusFailed,
		FailureReason: failure.Message(),
	}
	if err := s.credentials.Upsert(ctx, credential); err != nil {
		return nil, fmt.Errorf("failed to persist failed credential: %w", err)
	}

	s.notifier.Notify(ctx, domain.Notification{
		Level:       domain.NoticeFailure,
		ServiceName: serviceName,
		Message:     failure.Message(),
	})
	s.outcomes.RecordOutcome(serviceName, domain.OutcomeFailed)

	s.logger.Warn().
		Str("service", serviceName).
		Str("reason", failure.Code).
		Msg("Integration connection failed")

	return &domain.ConnectOutcome{
		ServiceName: serviceName,
		Kind:        domain.OutcomeFailed,
		Failure:     failure,
	}, nil
}

func (s *ConnectionService) transientOutcome(serviceName string) *domain.ConnectOutcome {
	s.outcomes.RecordOutcome(serviceName, domain.OutcomeTransient)
	return &domain.ConnectOutcome{
		ServiceName: serviceName,
		Kind:        domain.OutcomeTransient,
	}
}

func randomToken(bytes int) (string, error) {
	buf := make([]byte, bytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
