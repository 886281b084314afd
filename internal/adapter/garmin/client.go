// Package garmin implements the provider gateway over the Garmin
// Connect REST API.
package garmin

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"github.com/bearyjd/vitalforge/internal/domain"
)

// Config holds the Garmin client settings.
type Config struct {
	BaseURL   string
	TokenPath string
	RPS       float64
	Burst     int
	Timeout   time.Duration
}

// Client talks to Garmin Connect. Requests go through a token bucket so
// a backfill does not trip the provider's rate limits immediately.
type Client struct {
	http    *http.Client
	base    string
	limiter *rate.Limiter
	log     zerolog.Logger
}

var _ domain.ProviderGateway = (*Client)(nil)

// New builds a Client from a saved OAuth token. A missing or unreadable
// token file is reported as an auth-expired condition so the operator is
// prompted to re-authenticate.
func New(cfg Config, log zerolog.Logger) (*Client, error) {
	tok, err := loadToken(cfg.TokenPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrAuthExpired, err)
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.RPS <= 0 {
		cfg.RPS = 2
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 5
	}

	hc := oauth2.NewClient(context.Background(), oauth2.StaticTokenSource(tok))
	hc.Timeout = cfg.Timeout

	return &Client{
		http:    hc,
		base:    strings.TrimRight(cfg.BaseURL, "/"),
		limiter: rate.NewLimiter(rate.Limit(cfg.RPS), cfg.Burst),
		log:     log.With().Str("component", "garmin").Logger(),
	}, nil
}

func loadToken(path string) (*oauth2.Token, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var tok oauth2.Token
	if err := json.Unmarshal(raw, &tok); err != nil {
		return nil, fmt.Errorf("parse token %s: %w", path, err)
	}
	if tok.AccessToken == "" {
		return nil, fmt.Errorf("token %s has no access token", path)
	}
	return &tok, nil
}

// Fetch returns the provider's value for a kind and date. A nil sample
// with nil error means Garmin confirmed it has nothing for the date.
func (c *Client) Fetch(ctx context.Context, kind domain.MetricKind, date domain.Date) (*domain.Sample, error) {
	ep, ok := endpoints[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedMetric, kind)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrTransient, err)
	}

	body, err := c.get(ctx, ep.path(date))
	if err != nil {
		return nil, err
	}
	if body == nil {
		return nil, nil
	}

	sample, err := ep.extract(body)
	if err != nil {
		c.log.Warn().Str("kind", string(kind)).Str("date", string(date)).Err(err).
			Msg("unparseable provider payload")
		return nil, fmt.Errorf("%w: %v", domain.ErrTransient, err)
	}
	return sample, nil
}

// PushWeight uploads a locally entered weight measurement.
func (c *Client) PushWeight(ctx context.Context, grams float64, at time.Time) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrTransient, err)
	}

	payload, _ := json.Marshal(map[string]any{
		"value":         grams / 1000.0,
		"unitKey":       "kg",
		"dateTimestamp": at.UTC().Format("2006-01-02T15:04:05.0"),
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.base+"/weight-service/user-weight", strings.NewReader(string(payload)))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrTransient, err)
	}
	defer resp.Body.Close()
	if err := classifyStatus(resp.StatusCode); err != nil {
		return err
	}
	c.log.Info().Float64("grams", grams).Msg("weight pushed to provider")
	return nil
}

// get performs the request and maps the response. A nil body with nil
// error means the provider has no data for the resource.
func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrTransient, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusNoContent {
		return nil, nil
	}
	if err := classifyStatus(resp.StatusCode); err != nil {
		return nil, err
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrTransient, err)
	}
	if len(body) == 0 || string(body) == "null" {
		return nil, nil
	}
	return body, nil
}

func classifyStatus(code int) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return fmt.Errorf("%w: status %d", domain.ErrAuthExpired, code)
	case code == http.StatusTooManyRequests:
		return fmt.Errorf("%w: status %d", domain.ErrRateLimited, code)
	default:
		return fmt.Errorf("%w: status %d", domain.ErrTransient, code)
	}
}
