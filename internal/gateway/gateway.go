// Package gateway is the outbound half of the message-transport binding.
// The bot speaks JSON to an external gateway service that owns the actual
// messenger connection; this client only has to distinguish "this recipient
// is unreachable" from failures that doom the whole batch.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/tickalert/tickalert/internal/model"
)

// ErrRecipientUnreachable marks a per-recipient delivery failure: the
// recipient blocked the bot, never started a chat, or similar. Fan-out logs
// it and moves on to the next recipient.
var ErrRecipientUnreachable = errors.New("recipient unreachable")

// ErrGatewayAuth marks a configuration or credential failure. Retrying other
// recipients in the same batch is pointless, so fan-out aborts.
var ErrGatewayAuth = errors.New("gateway rejected credentials")

// Client sends outbound messages to the transport gateway.
type Client struct {
	baseURL string
	token   string
	httpc   *http.Client
}

// New constructs a gateway Client.
func New(baseURL, token string) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		httpc:   &http.Client{Timeout: 10 * time.Second},
	}
}

// Send delivers one message. Error classification:
//   - 401/403 → ErrGatewayAuth (batch-fatal)
//   - other 4xx → ErrRecipientUnreachable (skip and continue)
//   - 5xx / transport errors → plain error (batch-fatal, gateway is down)
func (c *Client) Send(ctx context.Context, msg model.Outgoing) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/send", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	defer resp.Body.Close()
	// Drain so the connection can be reused.
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))

	switch {
	case resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: status %d", ErrGatewayAuth, resp.StatusCode)
	case resp.StatusCode < 500:
		return fmt.Errorf("%w: recipient %d, status %d", ErrRecipientUnreachable, msg.RecipientID, resp.StatusCode)
	default:
		return fmt.Errorf("gateway error: status %d", resp.StatusCode)
	}
}
