package domain

import "time"

// ConnectionStatus is the lifecycle state of a service connection.
type ConnectionStatus string

const (
	StatusDisconnected      ConnectionStatus = "disconnected"
	StatusPendingValidation ConnectionStatus = "pending_validation"
	StatusConnected         ConnectionStatus = "connected"
	StatusFailed            ConnectionStatus = "failed"
)

// IntegrationCredential is the per-account record of a connection to a
// third-party service. At most one record exists per (account, service).
// A connected record always reflects a server confirmation, never a
// client-side assumption. EncryptedSecret holds the submitted credential
// material encrypted at rest; it is never logged.
type IntegrationCredential struct {
	ID              string           `json:"id" bson:"_id,omitempty"`
	AccountID       string           `json:"account_id" bson:"account_id"`
	ServiceName     string           `json:"service_name" bson:"service_name"`
	Status          ConnectionStatus `json:"status" bson:"status"`
	EncryptedSecret string           `json:"-" bson:"encrypted_secret,omitempty"`
	FailureReason   string           `json:"failure_reason,omitempty" bson:"failure_reason,omitempty"`
	PixelInstall    bool             `json:"pixel_install" bson:"pixel_install"`
	CreatedAt       time.Time        `json:"created_at" bson:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at" bson:"updated_at"`
}

// FlowKind distinguishes how a service is connected.
type FlowKind string

const (
	// FlowCredential means the user submits a secret (API key, token) directly.
	FlowCredential FlowKind = "credential"
	// FlowRedirect means the browser is sent to the provider's authorization
	// page and returns with a short-lived code to exchange.
	FlowRedirect FlowKind = "redirect"
)

// ServiceDescriptor describes how one third-party service is wired:
// the JSON key its credentials travel under, which flow it uses, and,
// for redirect flows, how the authorization URL is built.
type ServiceDescriptor struct {
	Name         string
	WireKey      string
	Flow         FlowKind
	AuthorizeURL string
	Scopes       []string
	UsesPKCE     bool
	ClientID     string
}

// ServiceCatalog is the closed set of connectable services.
type ServiceCatalog struct {
	services map[string]*ServiceDescriptor
}

// DefaultCatalog returns the catalog of supported services. Client IDs
// for redirect flows are filled in from configuration at startup.
func DefaultCatalog() *ServiceCatalog {
	descriptors := []*ServiceDescriptor{
		{Name: "shopify", WireKey: "shopify", Flow: FlowCredential},
		{Name: "bigcommerce", WireKey: "big_commerce", Flow: FlowCredential},
		{Name: "woocommerce", WireKey: "woo_commerce", Flow: FlowCredential},
		{Name: "klaviyo", WireKey: "klaviyo", Flow: FlowCredential},
		{
			Name:         "google_ads",
			WireKey:      "google_ads",
			Flow:         FlowRedirect,
			AuthorizeURL: "https://accounts.google.com/o/oauth2/v2/auth",
			Scopes:       []string{"https://www.googleapis.com/auth/adwords"},
		},
		{
			Name:         "bing_ads",
			WireKey:      "bing_ads",
			Flow:         FlowRedirect,
			AuthorizeURL: "https://login.microsoftonline.com/common/oauth2/v2.0/authorize",
			Scopes:       []string{"https://ads.microsoft.com/msads.manage", "offline_access"},
			UsesPKCE:     true,
		},
		{
			Name:         "mailchimp",
			WireKey:      "mailchimp",
			Flow:         FlowRedirect,
			AuthorizeURL: "https://login.mailchimp.com/oauth2/authorize",
		},
	}

	catalog := &ServiceCatalog{services: make(map[string]*ServiceDescriptor, len(descriptors))}
	for _, d := range descriptors {
		catalog.services[d.Name] = d
	}
	return catalog
}

// Lookup returns the descriptor for a service name.
func (c *ServiceCatalog) Lookup(name string) (*ServiceDescriptor, error) {
	d, ok := c.services[name]
	if !ok {
		return nil, ErrUnknownService
	}
	return d, nil
}

// SetClientID fills in the OAuth client id for a redirect-flow service.
func (c *ServiceCatalog) SetClientID(name, clientID string) {
	if d, ok := c.services[name]; ok {
		d.ClientID = clientID
	}
}
