// internal/clients/notifier_client.go
package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// NotifierClient pushes member messages to a remote delivery channel.
type NotifierClient struct {
	baseURL string
	client  *http.Client
}

func NewNotifierClient(baseURL string) *NotifierClient {
	return &NotifierClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// Send implements perks.Notifier.
func (c *NotifierClient) Send(ctx context.Context, toMemberID, subject, body string) error {
	message := struct {
		MemberID string `json:"member_id"`
		Subject  string `json:"subject"`
		Body     string `json:"body"`
	}{
		MemberID: toMemberID,
		Subject:  subject,
		Body:     body,
	}

	payload, err := json.Marshal(message)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fmt.Sprintf("%s/notifications", c.baseURL), bytes.NewBuffer(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	return nil
}
