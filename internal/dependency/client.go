package dependency

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/mo"

	"github.com/omarluq/hotswap/internal/config"
)

// User is one record served by the dependency's /users endpoint.
type User struct {
	Name string `json:"name"`
	ID   int    `json:"id"`
}

// simulatedUsers is what the simulated dependency answers.
var simulatedUsers = []User{
	{ID: 1, Name: "ada"},
	{ID: 2, Name: "grace"},
	{ID: 3, Name: "linus"},
}

// Client talks to the dependency on behalf of business endpoints.
// A Client is immutable and bound to one State; reloads build a new one.
type Client struct {
	httpClient *http.Client
	breaker    *CircuitBreaker
	cache      *Cache
	logger     *zerolog.Logger
	cacheTTL   mo.Option[time.Duration]
	state      State
	simulated  bool
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient sets the HTTP client used in http mode.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

// WithCache enables response caching in the shared cache.
func WithCache(c *Cache) ClientOption {
	return func(cl *Client) {
		cl.cache = c
	}
}

// WithLogger sets the logger used for breaker transitions and cache events.
func WithLogger(l *zerolog.Logger) ClientOption {
	return func(cl *Client) {
		cl.logger = l
	}
}

// NewClient creates a Client for the dependency described by cfg.
func NewClient(cfg *config.Config, opts ...ClientOption) *Client {
	nop := zerolog.Nop()
	c := &Client{
		state:     StateFromConfig(cfg),
		simulated: cfg.Dependency.GetMode() == config.DependencySimulated,
		cacheTTL:  cfg.Dependency.GetCacheTTLOption(),
		logger:    &nop,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: 5 * time.Second}
	}
	c.breaker = NewCircuitBreaker(c.state.Hostname, cfg.Dependency.CircuitBreaker, c.logger)
	return c
}

// State returns the dependency state the client is bound to.
func (c *Client) State() State {
	return c.state
}

// Breaker returns the client's circuit breaker.
func (c *Client) Breaker() *CircuitBreaker {
	return c.breaker
}

// Users returns the dependency's user list, from cache when fresh.
func (c *Client) Users(ctx context.Context) ([]User, error) {
	ttl, caching := c.cacheTTL.Get()
	caching = caching && c.cache != nil

	if caching {
		if users, ok := c.cache.getUsers(c.state.Hostname); ok {
			c.logger.Debug().Str("dependency", c.state.Hostname).Bool("hit", true).Msg("users cache")
			return users, nil
		}
	}

	var users []User
	err := c.breaker.Do(func() error {
		var fetchErr error
		users, fetchErr = c.fetchUsers(ctx)
		return fetchErr
	})
	if err != nil {
		return nil, err
	}

	if caching {
		c.cache.setUsers(c.state.Hostname, users, ttl)
	}
	return users, nil
}

func (c *Client) fetchUsers(ctx context.Context) ([]User, error) {
	if c.simulated {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		c.logger.Debug().Str("url", c.state.Endpoint("/users")).Msg("simulated GET")
		out := make([]User, len(simulatedUsers))
		copy(out, simulatedUsers)
		return out, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.state.Endpoint("/users"), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("users request: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			c.logger.Warn().Err(closeErr).Msg("failed to close response body")
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	var users []User
	if err := json.NewDecoder(resp.Body).Decode(&users); err != nil {
		return nil, fmt.Errorf("decode users: %w", err)
	}
	return users, nil
}
