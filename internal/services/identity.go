package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"ausflug-backend/internal/metrics"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker/v2"
)

// errUpstreamRejected marks a 4xx answer from an upstream API. The upstream
// is healthy, so it does not count against the circuit breaker.
var errUpstreamRejected = errors.New("upstream rejected request")

// IdentityProfile is what the hosted login provider knows about a user
type IdentityProfile struct {
	ID      string `json:"id"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

// IdentityProvider resolves a provider session id to a profile
type IdentityProvider interface {
	SessionData(ctx context.Context, sessionID string) (*IdentityProfile, error)
}

// IdentityClient calls the provider's session-data endpoint
type IdentityClient struct {
	endpoint string
	client   *http.Client
	breaker  *gobreaker.CircuitBreaker[*IdentityProfile]
}

// NewIdentityClient creates a client for the session-data endpoint
func NewIdentityClient(endpoint string, timeout time.Duration) *IdentityClient {
	return &IdentityClient{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
		breaker:  newBreaker[*IdentityProfile]("oauth-session-data"),
	}
}

// SessionData exchanges a provider session id for the user's profile
func (c *IdentityClient) SessionData(ctx context.Context, sessionID string) (*IdentityProfile, error) {
	return c.breaker.Execute(func() (*IdentityProfile, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to build request: %w", err)
		}
		req.Header.Set("X-Session-ID", sessionID)
		req.Header.Set("Accept", "application/json")

		resp, err := c.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("failed to call identity provider: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
			return nil, statusError("identity provider", resp.StatusCode)
		}

		var profile IdentityProfile
		if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
			return nil, fmt.Errorf("failed to decode session data: %w", err)
		}
		return &profile, nil
	})
}

// statusError reports a non-200 upstream answer; 4xx answers wrap errUpstreamRejected
func statusError(upstream string, status int) error {
	if status >= 400 && status < 500 {
		return fmt.Errorf("%s returned status %d: %w", upstream, status, errUpstreamRejected)
	}
	return fmt.Errorf("%s returned status %d", upstream, status)
}

// breakerSuccess counts rejected requests and cancelled callers as successes
func breakerSuccess(err error) bool {
	return err == nil ||
		errors.Is(err, errUpstreamRejected) ||
		errors.Is(err, context.Canceled)
}

// newBreaker trips after five consecutive upstream failures and probes again after 30s
func newBreaker[T any](name string) *gobreaker.CircuitBreaker[T] {
	return gobreaker.NewCircuitBreaker[T](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: breakerSuccess,
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
			log.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Circuit breaker state changed")
		},
	})
}
