// Package trust implements the authenticity predicate that gates
// comment deletion. Signature verification itself happens in an
// external service; this package only asks it for a verdict.
package trust

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/nasermirzaei89/talkback/comments"
)

type Verifier struct {
	client   *http.Client
	endpoint string
}

var _ comments.Authenticator = (*Verifier)(nil)

func NewVerifier(endpoint string, timeout time.Duration) *Verifier {
	return &Verifier{
		client:   &http.Client{Timeout: timeout},
		endpoint: endpoint,
	}
}

type verifyRequest struct {
	CommentID   string `json:"comment_id"`
	ChannelName string `json:"channel_name"`
	ChannelID   string `json:"channel_id"`
	Signature   string `json:"signature"`
}

type verifyResponse struct {
	Authorized bool `json:"authorized"`
}

func (v *Verifier) Authenticate(ctx context.Context, commentID, channelName, channelID, signature string) (bool, error) {
	buf, err := json.Marshal(verifyRequest{
		CommentID:   commentID,
		ChannelName: channelName,
		ChannelID:   channelID,
		Signature:   signature,
	})
	if err != nil {
		return false, fmt.Errorf("failed to marshal verify request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.endpoint, bytes.NewReader(buf))
	if err != nil {
		return false, fmt.Errorf("failed to create verify request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := v.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("failed to call verification endpoint: %w", err)
	}

	defer func() {
		err := resp.Body.Close()
		if err != nil {
			slog.ErrorContext(ctx, "failed to close response body", "error", err)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("verification endpoint returned status %d", resp.StatusCode)
	}

	var out verifyResponse

	err = json.NewDecoder(resp.Body).Decode(&out)
	if err != nil {
		return false, fmt.Errorf("failed to decode verify response: %w", err)
	}

	return out.Authorized, nil
}
