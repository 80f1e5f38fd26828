// internal/clients/billing_client_test.go
package clients

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetMemberTier(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/members/001/tier", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]string{"tier": "Gold"})
	}))
	defer server.Close()

	client := NewBillingClient(server.URL)
	tier, err := client.GetMemberTier(context.Background(), "001")
	require.NoError(t, err)
	assert.Equal(t, "Gold", tier)
}

func TestGetMemberTierUnexpectedStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewBillingClient(server.URL)
	_, err := client.GetMemberTier(context.Background(), "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status code: 404")
}

func TestGetMemberTierBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	var hits int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewBillingClient(server.URL)
	for i := 0; i < 5; i++ {
		_, err := client.GetMemberTier(context.Background(), "001")
		require.Error(t, err)
	}
	require.Equal(t, 5, hits)

	// The breaker is open now: the backend is no longer hit.
	_, err := client.GetMemberTier(context.Background(), "001")
	require.Error(t, err)
	assert.Equal(t, 5, hits)
}
