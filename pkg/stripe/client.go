package stripe

import (
	"context"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v84"

	"github.com/caroduarte/lumina-backend/pkg/config"
	"github.com/caroduarte/lumina-backend/pkg/logger"
)

const (
	testEnv = "test"
	liveEnv = "live"
)

// Client carries the environment and webhook signing secret the SDK was
// configured for. The SDK itself is driven through the package-level key
// set during NewClient.
type Client struct {
	environment   string
	signingSecret string
}

// NewClient validates the configured key against the requested environment
// and initializes the Stripe SDK. A test environment refuses live keys and
// vice versa, so a misconfigured deploy fails at startup instead of at the
// first charge.
func NewClient(ctx context.Context, cfg config.StripeConfig, logg *logger.Logger) (*Client, error) {
	env := strings.TrimSpace(strings.ToLower(cfg.Environment()))
	if env == "" {
		env = testEnv
	}
	if env != testEnv && env != liveEnv {
		return nil, fmt.Errorf("stripe environment must be %q or %q, got %q", testEnv, liveEnv, env)
	}

	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, fmt.Errorf("stripe api key is required")
	}
	if err := checkKeyEnv(env, apiKey); err != nil {
		return nil, err
	}

	signingSecret := strings.TrimSpace(cfg.Secret)
	if signingSecret == "" {
		return nil, fmt.Errorf("stripe webhook secret is required")
	}

	stripe.Key = apiKey
	client := &Client{
		environment:   env,
		signingSecret: signingSecret,
	}

	if logg != nil {
		logg.Info(ctx, fmt.Sprintf("stripe client initialized (%s)", env))
	}
	return client, nil
}

func checkKeyEnv(env, key string) error {
	wantPrefix := "_" + env
	for _, kind := range []string{"sk", "rk"} {
		if strings.HasPrefix(key, kind+wantPrefix) {
			return nil
		}
	}
	return fmt.Errorf("stripe environment %q requires an sk%s or rk%s key", env, wantPrefix, wantPrefix)
}

// Environment reports the normalized environment, test or live.
func (c *Client) Environment() string {
	if c == nil {
		return ""
	}
	return c.environment
}

// SigningSecret returns the webhook signing secret.
func (c *Client) SigningSecret() string {
	if c == nil {
		return ""
	}
	return c.signingSecret
}
