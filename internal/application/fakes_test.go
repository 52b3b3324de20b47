package application

import (
	"context"
	"encoding/base64"
	"sync"

	"adscope-integrations-layer/internal/domain"
	"adscope-integrations-layer/internal/ports"
)

type connectCall struct {
	serviceName string
	payload     map[string]any
}

type fakeGateway struct {
	mu           sync.Mutex
	connectCalls []connectCall
	connectResp  *ports.BackendResponse
	connectErr   error

	createDomainResp *domain.Domain
	createDomainErr  error
	createCalls      int

	deleteDomainErr error
	deleteCalls     int

	landingResp *domain.LandingResult
	landingErr  error
}

func (g *fakeGateway) ConnectIntegration(ctx context.Context, serviceName string, payload map[string]any) (*ports.BackendResponse, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.connectCalls = append(g.connectCalls, connectCall{serviceName: serviceName, payload: payload})
	if g.connectErr != nil {
		return nil, g.connectErr
	}
	return g.connectResp, nil
}

func (g *fakeGateway) CreateDomain(ctx context.Context, domainURL string) (*domain.Domain, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.createCalls++
	if g.createDomainErr != nil {
		return nil, g.createDomainErr
	}
	created := *g.createDomainResp
	return &created, nil
}

func (g *fakeGateway) DeleteDomain(ctx context.Context, id int64, confirmation string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.deleteCalls++
	return g.deleteDomainErr
}

func (g *fakeGateway) ShopifyLanding(ctx context.Context, rawQuery string) (*domain.LandingResult, error) {
	if g.landingErr != nil {
		return nil, g.landingErr
	}
	return g.landingResp, nil
}

func (g *fakeGateway) connectCallCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.connectCalls)
}

type fakePublisher struct {
	mu     sync.Mutex
	events []domain.SyncEvent
}

func (p *fakePublisher) Publish(event domain.SyncEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *fakePublisher) countKind(kind domain.SyncEventKind) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	count := 0
	for _, e := range p.events {
		if e.Kind == kind {
			count++
		}
	}
	return count
}

func (p *fakePublisher) eventsOfKind(kind domain.SyncEventKind) []domain.SyncEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []domain.SyncEvent
	for _, e := range p.events {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

type fakeNotifier struct {
	mu      sync.Mutex
	notices []domain.Notification
}

func (n *fakeNotifier) Notify(ctx context.Context, notification domain.Notification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notices = append(n.notices, notification)
}

func (n *fakeNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.notices)
}

type fakeCredentialRepo struct {
	mu      sync.Mutex
	records map[string]*domain.IntegrationCredential
	upserts int
}

func newFakeCredentialRepo() *fakeCredentialRepo {
	return &fakeCredentialRepo{records: make(map[string]*domain.IntegrationCredential)}
}

func (r *fakeCredentialRepo) Upsert(ctx context.Context, credential *domain.IntegrationCredential) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.upserts++
	saved := *credential
	r.records[credential.AccountID+"|"+credential.ServiceName] = &saved
	return nil
}

func (r *fakeCredentialRepo) GetByService(ctx context.Context, accountID, serviceName string) (*domain.IntegrationCredential, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	record, ok := r.records[accountID+"|"+serviceName]
	if !ok {
		return nil, nil
	}
	copied := *record
	return &copied, nil
}

func (r *fakeCredentialRepo) ListByAccount(ctx context.Context, accountID string) ([]*domain.IntegrationCredential, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.IntegrationCredential
	for _, record := range r.records {
		if record.AccountID == accountID {
			copied := *record
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *fakeCredentialRepo) Delete(ctx context.Context, accountID, serviceName string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.records, accountID+"|"+serviceName)
	return nil
}

type fakeDomainRepo struct {
	mu      sync.Mutex
	saves   int
	deletes int
}

func (r *fakeDomainRepo) Save(ctx context.Context, accountID string, d *domain.Domain) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saves++
	return nil
}

func (r *fakeDomainRepo) GetByURL(ctx context.Context, accountID, domainURL string) (*domain.Domain, error) {
	return nil, nil
}

func (r *fakeDomainRepo) List(ctx context.Context, accountID string) ([]*domain.Domain, error) {
	return nil, nil
}

func (r *fakeDomainRepo) Delete(ctx context.Context, accountID string, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deletes++
	return nil
}

type fakeOutcomeRecorder struct {
	mu       sync.Mutex
	outcomes map[domain.OutcomeKind]int
}

func newFakeOutcomeRecorder() *fakeOutcomeRecorder {
	return &fakeOutcomeRecorder{outcomes: make(map[domain.OutcomeKind]int)}
}

func (r *fakeOutcomeRecorder) RecordOutcome(serviceName string, kind domain.OutcomeKind) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes[kind]++
}

func (r *fakeOutcomeRecorder) countKind(kind domain.OutcomeKind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.outcomes[kind]
}

// staticCrypto marks values without real encryption
type staticCrypto struct{}

func (staticCrypto) Encrypt(plaintext string) (string, error) {
	return "enc(" + base64.StdEncoding.EncodeToString([]byte(plaintext)) + ")", nil
}

func (staticCrypto) Decrypt(ciphertext string) (string, error) {
	decoded, err := base64.StdEncoding.DecodeString(ciphertext[4 : len(ciphertext)-1])
	if err != nil {
		return "", err
	}
	return string(decoded), nil
}
