package analytics

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hat-store/internal/domain"
)

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	claims := jwt.RegisteredClaims{Subject: "hats"}
	if !exp.IsZero() {
		claims.ExpiresAt = jwt.NewNumericDate(exp)
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return tok
}

func TestNewPinataSink_TokenChecks(t *testing.T) {
	_, err := NewPinataSink("")
	assert.ErrorIs(t, err, ErrMissingToken)

	_, err = NewPinataSink("not-a-jwt")
	assert.Error(t, err)

	_, err = NewPinataSink(signedToken(t, time.Now().Add(-time.Hour)))
	assert.ErrorIs(t, err, ErrTokenExpired)

	_, err = NewPinataSink(signedToken(t, time.Now().Add(time.Hour)))
	assert.NoError(t, err)

	_, err = NewPinataSink(signedToken(t, time.Time{}))
	assert.NoError(t, err, "tokens without exp are accepted")
}

func TestPinataSink_Write(t *testing.T) {
	token := signedToken(t, time.Now().Add(time.Hour))

	var got pinataRequest
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	sink, err := NewPinataSink(token, WithPinataEndpoint(srv.URL))
	require.NoError(t, err)

	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	err = sink.Write(context.Background(), &domain.InteractionEvent{
		EventID:     "e1",
		FrameID:     FrameID,
		CustomID:    "purchased",
		Route:       "/finish",
		SocialID:    3621,
		ButtonIndex: 1,
		OccurredAt:  at,
	})
	require.NoError(t, err)

	assert.Equal(t, "Bearer "+token, auth)
	assert.Equal(t, "hats-store", got.FrameID)
	assert.Equal(t, "purchased", got.CustomID)
	assert.Equal(t, uint64(3621), got.Data.UntrustedData.FID)
	assert.Equal(t, 1, got.Data.UntrustedData.ButtonIndex)
	assert.Equal(t, at.UnixMilli(), got.Data.UntrustedData.Timestamp)
}

func TestPinataSink_WriteStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	sink, err := NewPinataSink(signedToken(t, time.Time{}), WithPinataEndpoint(srv.URL))
	require.NoError(t, err)

	err = sink.Write(context.Background(), &domain.InteractionEvent{EventID: "e1", FrameID: FrameID})
	assert.ErrorContains(t, err, "401")
}
