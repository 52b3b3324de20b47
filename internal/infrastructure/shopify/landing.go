package shopify

import (
	"fmt"
	"net/url"

	"adscope-integrations-layer/internal/ports"

	goshopify "github.com/bold-commerce/go-shopify/v4"
	"github.com/rs/zerolog"
)

// LandingVerifier authenticates inbound Shopify landing queries with
// the app secret before the query is forwarded anywhere.
type LandingVerifier struct {
	app    goshopify.App
	logger zerolog.Logger
}

// NewLandingVerifier creates a verifier for the configured Shopify app
func NewLandingVerifier(apiKey, apiSecret string, logger zerolog.Logger) ports.LandingVerifier {
	return &LandingVerifier{
		app: goshopify.App{
			ApiKey:    apiKey,
			ApiSecret: apiSecret,
		},
		logger: logger,
	}
}

// VerifyQuery checks the hmac parameter Shopify signs the landing
// query with. A missing or wrong signature fails closed.
func (v *LandingVerifier) VerifyQuery(u *url.URL) (bool, error) {
	if u.Query().Get("hmac") == "" {
		return false, fmt.Errorf("landing query has no hmac parameter")
	}

	ok, err := v.app.VerifyAuthorizationURL(u)
	if err != nil {
		return false, fmt.Errorf("failed to verify landing query: %w", err)
	}
	if !ok {
		v.logger.Warn().
			Str("shop", u.Query().Get("shop")).
			Msg("Shopify landing query failed hmac verification")
	}
	return ok, nil
}
