package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"adscope-integrations-layer/internal/domain"
	"adscope-integrations-layer/internal/ports"

	"github.com/rs/zerolog"
)

// BackendGateway is the single authenticated HTTP client to the
// analytics backend. It attaches the bearer token from the durable
// store, classifies transport failures, and on an auth failure clears
// local session state and announces the revocation.
type BackendGateway struct {
	baseURL    string
	httpClient *http.Client
	store      ports.SessionStore
	events     ports.SyncPublisher
	logger     zerolog.Logger
}

// NewBackendGateway creates a gateway for the given backend base URL.
func NewBackendGateway(
	baseURL string,
	store ports.SessionStore,
	events ports.SyncPublisher,
	logger zerolog.Logger,
) *BackendGateway {
	return &BackendGateway{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		store:  store,
		events: events,
		logger: logger,
	}
}

// do performs one authenticated request. Network errors and 5xx replies
// come back as domain.TransientError; a 401 revokes the local session.
func (g *BackendGateway) do(ctx context.Context, method, path string, query url.Values, body any) (*ports.BackendResponse, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	endpoint := g.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	token, found, err := g.store.Get(ctx, ports.ScopeDurable, ports.KeyAuthToken)
	if err != nil {
		return nil, fmt.Errorf("failed to read auth token: %w", err)
	}
	if found && token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, &domain.TransientError{Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &domain.TransientError{Err: err}
	}

	if resp.StatusCode == http.StatusUnauthorized {
		g.revokeSession(ctx)
		return nil, domain.ErrSessionRevoked
	}
	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, &domain.TransientError{Err: fmt.Errorf("backend returned %d", resp.StatusCode)}
	}

	return &ports.BackendResponse{
		StatusCode: resp.StatusCode,
		Body:       respBody,
	}, nil
}

// revokeSession clears both storage scopes so no stale account state
// survives an auth failure, then tells every attached consumer.
func (g *BackendGateway) revokeSession(ctx context.Context) {
	if err := g.store.ClearAll(ctx, ports.ScopeSession); err != nil {
		g.logger.Error().Err(err).Msg("Failed to clear session scope after auth failure")
	}
	if err := g.store.ClearAll(ctx, ports.ScopeDurable); err != nil {
		g.logger.Error().Err(err).Msg("Failed to clear durable scope after auth failure")
	}
	g.events.Publish(domain.SyncEvent{Kind: domain.SyncSessionRevoked})
	g.logger.Warn().Msg("Backend rejected the auth token, local session revoked")
}

// ConnectIntegration posts a connect or exchange payload tagged with
// the service name.
func (g *BackendGateway) ConnectIntegration(ctx context.Context, serviceName string, payload map[string]any) (*ports.BackendResponse, error) {
	query := url.Values{"service_name": {serviceName}}
	resp, err := g.do(ctx, http.MethodPost, "/integrations/", query, payload)
	if err != nil {
		return nil, err
	}

	g.logger.Info().
		Str("service", serviceName).
		Int("status", resp.StatusCode).
		Msg("Integration connect call completed")
	return resp, nil
}

// CreateDomain registers a domain; the backend replies 201 with the
// created record.
func (g *BackendGateway) CreateDomain(ctx context.Context, domainURL string) (*domain.Domain, error) {
	resp, err := g.do(ctx, http.MethodPost, "/domains/", nil, map[string]any{"domain": domainURL})
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("domain creation rejected with status %d", resp.StatusCode)
	}

	var created domain.Domain
	if err := json.Unmarshal(resp.Body, &created); err != nil {
		return nil, fmt.Errorf("failed to decode created domain: %w", err)
	}
	return &created, nil
}

// DeleteDomain removes a domain. The confirmation travels in the body
// and must equal the stored normalized domain.
func (g *BackendGateway) DeleteDomain(ctx context.Context, id int64, confirmation string) error {
	path := fmt.Sprintf("/domains/%d", id)
	resp, err := g.do(ctx, http.MethodDelete, path, nil, map[string]any{"domain": confirmation})
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("domain delete rejected with status %d", resp.StatusCode)
	}
	return nil
}

// ShopifyLanding forwards the original landing query string untouched;
// re-encoding would reorder keys and break the backend's signature
// check over the verbatim query.
func (g *BackendGateway) ShopifyLanding(ctx context.Context, rawQuery string) (*domain.LandingResult, error) {
	path := "/integrations/shopify/landing"
	if rawQuery != "" {
		path += "?" + rawQuery
	}

	resp, err := g.do(ctx, http.MethodGet, path, nil, nil)
	if err != nil {
		return nil, err
	}

	var result domain.LandingResult
	if err := json.Unmarshal(resp.Body, &result); err != nil {
		return nil, fmt.Errorf("failed to decode landing response: %w", err)
	}
	return &result, nil
}
