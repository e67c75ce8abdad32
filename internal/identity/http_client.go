package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/time/rate"

	"hat-store/internal/observability"
)

// Default configuration values.
const (
	DefaultTimeout   = 5 * time.Second
	DefaultRateLimit = 20 // requests per second
	DefaultBurst     = 5
	maxBodyBytes     = 1 << 20
)

// ErrInvalidSocialID is returned for the zero social id.
var ErrInvalidSocialID = errors.New("invalid social id")

// StatusError is returned for unexpected HTTP statuses.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.StatusCode, e.Body)
}

// HTTPClient implements Resolver against the identity service's
// GET /users/{id} endpoint. Each lookup is a single attempt.
type HTTPClient struct {
	baseURL string
	token   string
	client  *http.Client
	limiter *rate.Limiter
}

// ClientOption configures HTTPClient.
type ClientOption func(*HTTPClient)

// WithTimeout sets HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.client.Timeout = d
	}
}

// WithHTTPClient sets custom http.Client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *HTTPClient) {
		c.client = client
	}
}

// WithRateLimit sets the outbound request rate. A non-positive rps disables limiting.
func WithRateLimit(rps float64, burst int) ClientOption {
	return func(c *HTTPClient) {
		if rps <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 0)
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// NewHTTPClient creates a new identity service client.
func NewHTTPClient(baseURL, token string, opts ...ClientOption) *HTTPClient {
	c := &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  &http.Client{Timeout: DefaultTimeout},
		limiter: rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultBurst),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// userResponse is the raw response of GET /users/{id}.
type userResponse struct {
	FID           uint64   `json:"fid"`
	Verifications []string `json:"verifications"`
}

// ResolveAddress looks up the first verified address of socialID.
func (c *HTTPClient) ResolveAddress(ctx context.Context, socialID uint64) (common.Address, bool, error) {
	addr, found, err := c.resolve(ctx, socialID)
	switch {
	case err != nil:
		observability.RecordIdentityLookup("error")
	case !found:
		observability.RecordIdentityLookup("none")
	default:
		observability.RecordIdentityLookup("found")
	}
	return addr, found, err
}

func (c *HTTPClient) resolve(ctx context.Context, socialID uint64) (common.Address, bool, error) {
	if socialID == 0 {
		return common.Address{}, false, ErrInvalidSocialID
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return common.Address{}, false, fmt.Errorf("rate limit wait: %w", err)
	}

	url := c.baseURL + "/users/" + strconv.FormatUint(socialID, 10)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return common.Address{}, false, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return common.Address{}, false, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return common.Address{}, false, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return common.Address{}, false, nil
	}
	if resp.StatusCode != http.StatusOK {
		return common.Address{}, false, &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var user userResponse
	if err := json.Unmarshal(body, &user); err != nil {
		return common.Address{}, false, fmt.Errorf("unmarshal response: %w", err)
	}

	if len(user.Verifications) == 0 {
		return common.Address{}, false, nil
	}
	first := user.Verifications[0]
	if !common.IsHexAddress(first) {
		return common.Address{}, false, fmt.Errorf("malformed verified address %q", first)
	}
	return common.HexToAddress(first), true, nil
}

var _ Resolver = (*HTTPClient)(nil)
