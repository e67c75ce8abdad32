package analytics

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"hat-store/internal/domain"
)

// DefaultPinataEndpoint is the Pinata frame-interactions API.
const DefaultPinataEndpoint = "https://api.pinata.cloud/farcaster/frames/interactions"

var (
	// ErrMissingToken is returned when no Pinata JWT is configured.
	ErrMissingToken = errors.New("pinata: missing jwt")
	// ErrTokenExpired is returned when the Pinata JWT is already expired.
	ErrTokenExpired = errors.New("pinata: jwt expired")
)

// PinataSink posts events to Pinata frame analytics.
type PinataSink struct {
	endpoint string
	token    string
	client   *http.Client
}

// PinataOption configures a PinataSink.
type PinataOption func(*PinataSink)

// WithPinataEndpoint overrides the API endpoint.
func WithPinataEndpoint(endpoint string) PinataOption {
	return func(s *PinataSink) { s.endpoint = endpoint }
}

// WithPinataHTTPClient sets the HTTP client.
func WithPinataHTTPClient(c *http.Client) PinataOption {
	return func(s *PinataSink) { s.client = c }
}

// NewPinataSink creates a sink authenticated with token.
// The token is decoded without verification to reject expired credentials early.
func NewPinataSink(token string, opts ...PinataOption) (*PinataSink, error) {
	if token == "" {
		return nil, ErrMissingToken
	}
	if err := checkTokenExpiry(token, time.Now()); err != nil {
		return nil, err
	}

	s := &PinataSink{
		endpoint: DefaultPinataEndpoint,
		token:    token,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func checkTokenExpiry(token string, now time.Time) error {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return fmt.Errorf("pinata: parse jwt: %w", err)
	}
	if claims.ExpiresAt != nil && !now.Before(claims.ExpiresAt.Time) {
		return ErrTokenExpired
	}
	return nil
}

// Name implements Sink.
func (s *PinataSink) Name() string { return "pinata" }

type pinataRequest struct {
	FrameID  string     `json:"frame_id"`
	CustomID string     `json:"custom_id,omitempty"`
	Data     pinataData `json:"data"`
}

type pinataData struct {
	UntrustedData pinataUntrusted `json:"untrustedData"`
}

type pinataUntrusted struct {
	FID         uint64 `json:"fid"`
	ButtonIndex int    `json:"buttonIndex"`
	URL         string `json:"url"`
	Timestamp   int64  `json:"timestamp"`
}

// Write posts e to Pinata.
func (s *PinataSink) Write(ctx context.Context, e *domain.InteractionEvent) error {
	body, err := json.Marshal(pinataRequest{
		FrameID:  e.FrameID,
		CustomID: e.CustomID,
		Data: pinataData{UntrustedData: pinataUntrusted{
			FID:         e.SocialID,
			ButtonIndex: e.ButtonIndex,
			URL:         e.Route,
			Timestamp:   e.OccurredAt.UnixMilli(),
		}},
	})
	if err != nil {
		return fmt.Errorf("pinata: marshal event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("pinata: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.token)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("pinata: post event: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("pinata: unexpected status %d", resp.StatusCode)
	}
	return nil
}
