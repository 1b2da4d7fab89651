package cashfree

import "fmt"

// =====================================================
// CASHFREE CONFIGURATION
// =====================================================

const (
	ModeTest       = "TEST"
	ModeProduction = "PRODUCTION"

	sandboxBaseURL    = "https://sandbox.cashfree.com/pg"
	productionBaseURL = "https://api.cashfree.com/pg"

	// Hosted checkout domains, used when the creation response carries only
	// a payment_session_id and no direct link.
	sandboxCheckoutURL    = "https://payments-test.cashfree.com/order"
	productionCheckoutURL = "https://payments.cashfree.com/order"

	// Fixed API version header sent on every request
	APIVersion = "2023-08-01"
)

type Config struct {
	ClientID      string // x-client-id
	ClientSecret  string // x-client-secret
	Mode          string // TEST or PRODUCTION
	WebhookSecret string // shared secret for webhook HMAC; empty = degraded trust

	// BaseURL overrides the mode-derived API host. Tests point it at a
	// local server; leave empty in deployments.
	BaseURL string
}

// NewConfig creates Cashfree configuration
func NewConfig(clientID, clientSecret, mode, webhookSecret string) *Config {
	return &Config{
		ClientID:      clientID,
		ClientSecret:  clientSecret,
		Mode:          mode,
		WebhookSecret: webhookSecret,
	}
}

// Validate checks that required credentials are present.
func (c *Config) Validate() error {
	if c.ClientID == "" || c.ClientSecret == "" {
		return fmt.Errorf("client id and secret are required")
	}
	if c.Mode != ModeTest && c.Mode != ModeProduction {
		return fmt.Errorf("mode must be %s or %s, got %q", ModeTest, ModeProduction, c.Mode)
	}
	return nil
}

// GetBaseURL selects the API host deterministically from the mode.
func (c *Config) GetBaseURL() string {
	if c.BaseURL != "" {
		return c.BaseURL
	}
	if c.Mode == ModeProduction {
		return productionBaseURL
	}
	return sandboxBaseURL
}

// GetCheckoutURL returns the hosted checkout domain for the mode.
func (c *Config) GetCheckoutURL() string {
	if c.Mode == ModeProduction {
		return productionCheckoutURL
	}
	return sandboxCheckoutURL
}
