package application

import (
	"context"
	"encoding/json"
	"net/url"
	"testing"

	"adscope-integrations-layer/internal/domain"
	"adscope-integrations-layer/internal/infrastructure/store"
	"adscope-integrations-layer/internal/ports"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type connectionFixture struct {
	service  *ConnectionService
	gateway  *fakeGateway
	store    ports.SessionStore
	creds    *fakeCredentialRepo
	events   *fakePublisher
	notifier *fakeNotifier
	outcomes *fakeOutcomeRecorder
	catalog  *domain.ServiceCatalog
}

func newConnectionFixture() *connectionFixture {
	catalog := domain.DefaultCatalog()
	catalog.SetClientID("google_ads", "test-google-client")
	catalog.SetClientID("bing_ads", "test-bing-client")

	f := &connectionFixture{
		gateway:  &fakeGateway{},
		store:    store.NewMemoryStore(),
		creds:    newFakeCredentialRepo(),
		events:   &fakePublisher{},
		notifier: &fakeNotifier{},
		outcomes: newFakeOutcomeRecorder(),
		catalog:  catalog,
	}
	f.service = NewConnectionService(
		catalog,
		f.gateway,
		f.store,
		f.creds,
		staticCrypto{},
		f.events,
		f.notifier,
		f.outcomes,
		zerolog.Nop(),
	)
	return f
}

func successResponse() *ports.BackendResponse {
	return &ports.BackendResponse{StatusCode: 200, Body: []byte(`{"status":"SUCCESS"}`)}
}

func TestConnectRejectsEmptyCredential(t *testing.T) {
	tests := []struct {
		name        string
		credentials map[string]string
	}{
		{name: "no fields", credentials: nil},
		{name: "empty value", credentials: map[string]string{"api_key": ""}},
		{name: "whitespace only", credentials: map[string]string{"api_key": "   "}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newConnectionFixture()
			f.gateway.connectResp = successResponse()

			_, err := f.service.Connect(context.Background(), ConnectInput{
				ServiceName: "klaviyo",
				Credentials: tt.credentials,
			})

			require.ErrorIs(t, err, domain.ErrEmptyCredential)
			assert.Equal(t, 0, f.gateway.connectCallCount(), "validation must reject before any network call")
		})
	}
}

func TestConnectUnknownService(t *testing.T) {
	f := newConnectionFixture()

	_, err := f.service.Connect(context.Background(), ConnectInput{
		ServiceName: "myspace",
		Credentials: map[string]string{"api_key": "k"},
	})

	require.ErrorIs(t, err, domain.ErrUnknownService)
}

func TestConnectSuccess(t *testing.T) {
	f := newConnectionFixture()
	f.gateway.connectResp = successResponse()

	ctx := domain.WithAccountID(context.Background(), "acct-1")
	outcome, err := f.service.Connect(ctx, ConnectInput{
		ServiceName:  "klaviyo",
		Credentials:  map[string]string{"api_key": "pk_test"},
		PixelInstall: true,
	})

	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeConnected, outcome.Kind)

	record, err := f.creds.GetByService(ctx, "acct-1", "klaviyo")
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, domain.StatusConnected, record.Status)
	assert.NotEmpty(t, record.EncryptedSecret)
	assert.NotContains(t, record.EncryptedSecret, "pk_test", "secret must not be stored in the clear")

	flag, found, err := f.store.Get(ctx, ports.ScopeSession, ports.KeyNeedsResync)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "1", flag)
	assert.Equal(t, 1, f.events.countKind(domain.SyncIntegrationsResync))
	assert.Equal(t, 1, f.notifier.count(), "exactly one notification per terminal outcome")
	assert.Equal(t, 1, f.outcomes.countKind(domain.OutcomeConnected))

	require.Equal(t, 1, f.gateway.connectCallCount())
	payload := f.gateway.connectCalls[0].payload
	assert.Contains(t, payload, "klaviyo")
	assert.Equal(t, true, payload["pixel_install"])
}

func TestConnectFailureSurfacesMissingScopes(t *testing.T) {
	f := newConnectionFixture()
	f.gateway.connectResp = &ports.BackendResponse{
		StatusCode: 200,
		Body:       []byte(`{"detail":{"status":"CREDENTIALS_INVALID","missing_scopes":["read_customers"]}}`),
	}

	ctx := domain.WithAccountID(context.Background(), "acct-1")
	outcome, err := f.service.Connect(ctx, ConnectInput{
		ServiceName: "bigcommerce",
		Credentials: map[string]string{"store_hash": "abc", "access_token": "tok"},
	})

	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeFailed, outcome.Kind)
	require.NotNil(t, outcome.Failure)
	assert.Equal(t, "CREDENTIALS_INVALID", outcome.Failure.Code)
	assert.Contains(t, outcome.Failure.Message(), "read_customers")

	record, err := f.creds.GetByService(ctx, "acct-1", "bigcommerce")
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, domain.StatusFailed, record.Status)
	assert.Contains(t, record.FailureReason, "read_customers")
	assert.Equal(t, 1, f.notifier.count())
}

func TestConnectTransientLeavesPriorStateUntouched(t *testing.T) {
	f := newConnectionFixture()
	ctx := domain.WithAccountID(context.Background(), "acct-1")

	prior := &domain.IntegrationCredential{
		AccountID:   "acct-1",
		ServiceName: "klaviyo",
		Status:      domain.StatusConnected,
	}
	require.NoError(t, f.creds.Upsert(ctx, prior))
	upsertsBefore := f.creds.upserts

	f.gateway.connectErr = &domain.TransientError{Err: assert.AnError}

	outcome, err := f.service.Connect(ctx, ConnectInput{
		ServiceName: "klaviyo",
		Credentials: map[string]string{"api_key": "pk_new"},
	})

	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeTransient, outcome.Kind)
	assert.Equal(t, upsertsBefore, f.creds.upserts, "transient failures must not persist state")

	record, err := f.creds.GetByService(ctx, "acct-1", "klaviyo")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusConnected, record.Status)
	assert.Equal(t, 0, f.notifier.count(), "transient is not a terminal outcome")
	assert.Equal(t, 1, f.outcomes.countKind(domain.OutcomeTransient))
}

func TestBeginRedirectOverwritesPendingConnection(t *testing.T) {
	f := newConnectionFixture()
	ctx := context.Background()

	_, err := f.service.BeginRedirect(ctx, "google_ads", "https://app.example.com/callback")
	require.NoError(t, err)
	first := readPending(t, ctx, f.store, "google_ads")

	_, err = f.service.BeginRedirect(ctx, "google_ads", "https://app.example.com/callback")
	require.NoError(t, err)
	second := readPending(t, ctx, f.store, "google_ads")

	assert.NotEqual(t, first.State, second.State, "a repeat begin must mint a fresh state")
}

func TestBeginRedirectPKCE(t *testing.T) {
	f := newConnectionFixture()
	ctx := context.Background()

	authURL, err := f.service.BeginRedirect(ctx, "bing_ads", "https://app.example.com/callback")
	require.NoError(t, err)

	parsed, err := url.Parse(authURL)
	require.NoError(t, err)
	assert.NotEmpty(t, parsed.Query().Get("code_challenge"))
	assert.Equal(t, "S256", parsed.Query().Get("code_challenge_method"))

	pending := readPending(t, ctx, f.store, "bing_ads")
	assert.NotEmpty(t, pending.CodeVerifier)
}

func TestBeginRedirectRejectsCredentialFlowService(t *testing.T) {
	f := newConnectionFixture()

	_, err := f.service.BeginRedirect(context.Background(), "klaviyo", "https://app.example.com/callback")

	require.ErrorIs(t, err, domain.ErrWrongConnectionFlow)
}

func TestCallbackProviderErrorShortCircuits(t *testing.T) {
	f := newConnectionFixture()
	ctx := domain.WithAccountID(context.Background(), "acct-1")

	_, err := f.service.BeginRedirect(ctx, "google_ads", "https://app.example.com/callback")
	require.NoError(t, err)

	outcome, err := f.service.CompleteFromCallback(ctx, "google_ads", url.Values{"error": {"access_denied"}})

	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeFailed, outcome.Kind)
	assert.Equal(t, "access_denied", outcome.Failure.Code)
	assert.Equal(t, 0, f.gateway.connectCallCount(), "a declined authorization must not reach the backend")

	// The pending record is spent too.
	_, found, err := f.store.Get(ctx, ports.ScopeSession, pendingKey("google_ads"))
	require.NoError(t, err)
	assert.False(t, found)
}

func TestCallbackTwiceFailsClosed(t *testing.T) {
	f := newConnectionFixture()
	f.gateway.connectResp = successResponse()
	ctx := domain.WithAccountID(context.Background(), "acct-1")

	_, err := f.service.BeginRedirect(ctx, "google_ads", "https://app.example.com/callback")
	require.NoError(t, err)
	pending := readPending(t, ctx, f.store, "google_ads")

	query := url.Values{"code": {"auth-code"}, "state": {pending.State}}

	outcome, err := f.service.CompleteFromCallback(ctx, "google_ads", query)
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeConnected, outcome.Kind)
	assert.Equal(t, 1, f.gateway.connectCallCount())

	_, err = f.service.CompleteFromCallback(ctx, "google_ads", query)
	require.ErrorIs(t, err, domain.ErrNoPendingConnection)
	assert.Equal(t, 1, f.gateway.connectCallCount(), "a replayed callback must not re-exchange the code")
}

func TestCallbackStateMismatchFailsClosed(t *testing.T) {
	f := newConnectionFixture()
	f.gateway.connectResp = successResponse()
	ctx := context.Background()

	_, err := f.service.BeginRedirect(ctx, "google_ads", "https://app.example.com/callback")
	require.NoError(t, err)

	_, err = f.service.CompleteFromCallback(ctx, "google_ads", url.Values{
		"code":  {"auth-code"},
		"state": {"forged-state"},
	})

	require.ErrorIs(t, err, domain.ErrStateMismatch)
	assert.Equal(t, 0, f.gateway.connectCallCount())
}

func TestCallbackExchangeCarriesVerifierAndScope(t *testing.T) {
	f := newConnectionFixture()
	f.gateway.connectResp = successResponse()
	ctx := domain.WithAccountID(context.Background(), "acct-1")

	_, err := f.service.BeginRedirect(ctx, "bing_ads", "https://app.example.com/callback")
	require.NoError(t, err)
	pending := readPending(t, ctx, f.store, "bing_ads")

	_, err = f.service.CompleteFromCallback(ctx, "bing_ads", url.Values{
		"code":  {"auth-code"},
		"state": {pending.State},
		"scope": {"msads.manage"},
	})
	require.NoError(t, err)

	require.Equal(t, 1, f.gateway.connectCallCount())
	payload := f.gateway.connectCalls[0].payload
	exchange, ok := payload["bing_ads"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "auth-code", exchange["code"])
	assert.Equal(t, pending.State, exchange["state"])
	assert.Equal(t, pending.CodeVerifier, exchange["code_verifier"])
	assert.Equal(t, "msads.manage", exchange["scope"])
}

func TestCallbackBackendFailureCode(t *testing.T) {
	f := newConnectionFixture()
	f.gateway.connectResp = &ports.BackendResponse{
		StatusCode: 200,
		Body:       []byte(`{"status":"ERROR_BINGADS_TOKEN"}`),
	}
	ctx := domain.WithAccountID(context.Background(), "acct-1")

	_, err := f.service.BeginRedirect(ctx, "bing_ads", "https://app.example.com/callback")
	require.NoError(t, err)
	pending := readPending(t, ctx, f.store, "bing_ads")

	outcome, err := f.service.CompleteFromCallback(ctx, "bing_ads", url.Values{
		"code":  {"auth-code"},
		"state": {pending.State},
	})

	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeFailed, outcome.Kind)
	assert.Equal(t, "ERROR_BINGADS_TOKEN", outcome.Failure.Code)
}

func TestStatusDefaultsToDisconnected(t *testing.T) {
	f := newConnectionFixture()
	ctx := domain.WithAccountID(context.Background(), "acct-1")

	record, err := f.service.Status(ctx, "klaviyo")

	require.NoError(t, err)
	assert.Equal(t, domain.StatusDisconnected, record.Status)
}

func readPending(t *testing.T, ctx context.Context, s ports.SessionStore, serviceName string) domain.PendingConnection {
	t.Helper()
	raw, found, err := s.Get(ctx, ports.ScopeSession, pendingKey(serviceName))
	require.NoError(t, err)
	require.True(t, found, "expected a pending connection for %s", serviceName)

	var pending domain.PendingConnection
	require.NoError(t, json.Unmarshal([]byte(raw), &pending))
	return pending
}
