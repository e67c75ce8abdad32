package frame

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"hat-store/internal/domain"
)

// maxMessageBytes bounds an action message body.
const maxMessageBytes = 64 << 10

var (
	// ErrMalformedMessage is returned for unparseable action messages.
	ErrMalformedMessage = errors.New("malformed frame message")

	// ErrUnknownStep is returned when a route parses a message for a step
	// the storefront does not have.
	ErrUnknownStep = errors.New("unknown frame step")
)

// ActionMessage is the body a frame client posts on button press.
// Only untrustedData is read; the signed messageBytes are not verified.
type ActionMessage struct {
	UntrustedData UntrustedData `json:"untrustedData"`
	TrustedData   struct {
		MessageBytes string `json:"messageBytes"`
	} `json:"trustedData"`
}

// UntrustedData carries the caller-reported interaction fields.
type UntrustedData struct {
	FID           uint64 `json:"fid"`
	URL           string `json:"url"`
	MessageHash   string `json:"messageHash"`
	Timestamp     int64  `json:"timestamp"`
	Network       int    `json:"network"`
	ButtonIndex   int    `json:"buttonIndex"`
	InputText     string `json:"inputText"`
	State         string `json:"state"`
	Address       string `json:"address"`
	TransactionID string `json:"transactionId"`
}

// ParseInteraction reads the interaction for step from r.
// GET requests and empty bodies are anonymous.
func ParseInteraction(r *http.Request, step domain.Step) (domain.Interaction, error) {
	in := domain.Interaction{Step: step}
	if !step.IsValid() {
		return in, fmt.Errorf("%w: %q", ErrUnknownStep, step)
	}
	if r.Method == http.MethodGet || r.Body == nil {
		return in, nil
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxMessageBytes+1))
	if err != nil {
		return in, fmt.Errorf("read frame message: %w", err)
	}
	if len(body) > maxMessageBytes {
		return in, fmt.Errorf("%w: body exceeds %d bytes", ErrMalformedMessage, maxMessageBytes)
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		return in, nil
	}

	var msg ActionMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return in, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}

	u := msg.UntrustedData
	if u.ButtonIndex < 0 || u.ButtonIndex > 4 {
		return in, fmt.Errorf("%w: button index %d", ErrMalformedMessage, u.ButtonIndex)
	}

	in.CallerSocialID = u.FID
	in.ButtonIndex = u.ButtonIndex
	in.TextInput = strings.TrimSpace(u.InputText)
	in.ConnectedAddress = u.Address
	return in, nil
}
