// README: HTTP-backed notifier posting to the messaging provider's endpoints.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"carpool/internal/types"
)

// HTTPNotifier posts JSON to the provider's reply and push endpoints. The
// provider itself (authentication, delivery, retries) is outside the core.
type HTTPNotifier struct {
	ReplyEndpoint string
	PushEndpoint  string
	Token         string
	Client        *http.Client
}

func NewHTTPNotifier(replyEndpoint, pushEndpoint, token string) *HTTPNotifier {
	return &HTTPNotifier{
		ReplyEndpoint: replyEndpoint,
		PushEndpoint:  pushEndpoint,
		Token:         token,
		Client:        &http.Client{Timeout: 3 * time.Second},
	}
}

func (n *HTTPNotifier) Reply(ctx context.Context, replyToken, text string) error {
	return n.post(ctx, n.ReplyEndpoint, map[string]string{"reply_token": replyToken, "text": text})
}

func (n *HTTPNotifier) Push(ctx context.Context, to types.ID, text string) error {
	return n.post(ctx, n.PushEndpoint, map[string]string{"to": string(to), "text": text})
}

func (n *HTTPNotifier) post(ctx context.Context, endpoint string, payload map[string]string) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if n.Token != "" {
		req.Header.Set("Authorization", "Bearer "+n.Token)
	}
	resp, err := n.Client.Do(req)
	if err != nil {
		return fmt.Errorf("notify post: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("notify post: unexpected status %d", resp.StatusCode)
	}
	return nil
}
