// internal/clients/billing_client.go
package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
)

// BillingClient resolves member tiers from a remote billing platform. Calls
// run through a circuit breaker so a degraded billing backend fails fast
// instead of stalling every sync pass.
type BillingClient struct {
	baseURL string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
}

func NewBillingClient(baseURL string) *BillingClient {
	return &BillingClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "billing",
			Timeout: 30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
		}),
	}
}

// GetMemberTier implements perks.BillingProvider.
func (c *BillingClient) GetMemberTier(ctx context.Context, memberID string) (string, error) {
	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.fetchTier(ctx, memberID)
	})
	if err != nil {
		return "", err
	}
	return result.(string), nil
}

func (c *BillingClient) fetchTier(ctx context.Context, memberID string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/members/%s/tier", c.baseURL, memberID), nil)
	if err != nil {
		return "", err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var payload struct {
		Tier string `json:"tier"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", err
	}

	return payload.Tier, nil
}
