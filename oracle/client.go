package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/avast/retry-go"

	"github.com/kimberlywlcraigv/Payment-Request-Fhe/crypto"
	"github.com/kimberlywlcraigv/Payment-Request-Fhe/protocol"
)

// Client dispatches decryption requests to a remote oracle service over
// HTTP. It implements protocol.Oracle.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

var _ protocol.Oracle = (*Client)(nil)

// NewClient creates a client for the oracle at baseURL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// Submit implements protocol.Oracle. Transient transport failures are retried
// a few times before the dispatch is reported as failed; the engine treats a
// failed dispatch as a failed request and the caller may re-issue.
func (c *Client) Submit(ctx context.Context, handles []crypto.CiphertextHandle) (string, error) {
	req := &DecryptRequest{Handles: make([]string, 0, len(handles))}
	for _, h := range handles {
		req.Handles = append(req.Handles, h.String())
	}
	body, err := json.Marshal(req)
	if err != nil {
		return "", err
	}

	var requestID string
	err = retry.Do(
		func() error {
			httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
				c.baseURL+"/decrypt", bytes.NewReader(body))
			if err != nil {
				return retry.Unrecoverable(err)
			}
			httpReq.Header.Set("Content-Type", "application/json")

			resp, err := c.httpClient.Do(httpReq)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				respBody, _ := io.ReadAll(resp.Body)
				statusErr := fmt.Errorf("oracle returned status %d: %s", resp.StatusCode, string(respBody))
				// 4xx rejections are deterministic; only 5xx and transport
				// failures are worth another attempt
				if resp.StatusCode < http.StatusInternalServerError {
					return retry.Unrecoverable(statusErr)
				}
				return statusErr
			}

			decResp, err := protocol.DecodeMessage[DecryptResponse](resp.Body)
			if err != nil {
				return err
			}
			requestID = decResp.RequestID
			return nil
		},
		retry.Attempts(3),
		retry.Delay(200*time.Millisecond),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return "", err
	}
	return requestID, nil
}
