package identity

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPClient_ResolveAddress(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/users/42" {
			t.Errorf("expected path /users/42, got %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("expected bearer token, got %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"fid": 42,
			"verifications": []string{
				"0x00000000000000000000000000000000000000aa",
				"0x00000000000000000000000000000000000000bb",
			},
		})
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL+"/", "secret")
	addr, found, err := client.ResolveAddress(context.Background(), 42)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, common.HexToAddress("0xaa"), addr, "first verified address wins")
}

func TestHTTPClient_ResolveAddress_NoVerifications(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"fid":7,"verifications":[]}`))
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, "")
	_, found, err := client.ResolveAddress(context.Background(), 7)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestHTTPClient_ResolveAddress_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, "")
	_, found, err := client.ResolveAddress(context.Background(), 7)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestHTTPClient_ResolveAddress_ServerError(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("boom"))
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, "")
	_, found, err := client.ResolveAddress(context.Background(), 7)
	require.Error(t, err)
	assert.False(t, found)

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusInternalServerError, statusErr.StatusCode)
	assert.Equal(t, 1, calls, "lookups are never retried")
}

func TestHTTPClient_ResolveAddress_Malformed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"fid":7,"verifications":["not-an-address"]}`))
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, "")
	_, _, err := client.ResolveAddress(context.Background(), 7)
	assert.Error(t, err)
}

func TestHTTPClient_ResolveAddress_ZeroID(t *testing.T) {
	client := NewHTTPClient("http://127.0.0.1:1", "")
	_, _, err := client.ResolveAddress(context.Background(), 0)
	assert.True(t, errors.Is(err, ErrInvalidSocialID))
}

func TestHTTPClient_RateLimitHonoursContext(t *testing.T) {
	client := NewHTTPClient("http://127.0.0.1:1", "", WithRateLimit(0.001, 1))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := client.ResolveAddress(ctx, 7)
	assert.True(t, errors.Is(err, context.Canceled))
}
