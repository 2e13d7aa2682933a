package process

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Transport delivers signed messages and fetches their results.
type Transport interface {
	// Send hands msg to the network and returns the message id.
	Send(ctx context.Context, msg *SignedMessage) (string, error)
	// Result waits for and returns the outcome of messageID.
	Result(ctx context.Context, processID, messageID string) (*Result, error)
}

// HTTPTransport posts messages to a message unit and reads results from a
// compute unit.
type HTTPTransport struct {
	muURL  string
	cuURL  string
	client *http.Client
}

// NewHTTPTransport creates a transport for the given unit endpoints.
func NewHTTPTransport(muURL, cuURL string, client *http.Client) *HTTPTransport {
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}

	return &HTTPTransport{
		muURL:  strings.TrimSuffix(muURL, "/"),
		cuURL:  strings.TrimSuffix(cuURL, "/"),
		client: client,
	}
}

const maxResponseBytes = 4 << 20

type sendResponse struct {
	ID string `json:"id"`
}

func (t *HTTPTransport) Send(ctx context.Context, msg *SignedMessage) (string, error) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.muURL+"/", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}

	req.Header.Set("Content-Type", "application/json")

	body, err := t.call(req)
	if err != nil {
		return "", err
	}

	// The unit accepted the message, so a body without an id still means
	// delivered. The id derived from the signature names it.
	var resp sendResponse
	if err := json.Unmarshal(body, &resp); err != nil || resp.ID == "" {
		return msg.ID, nil
	}

	return resp.ID, nil
}

func (t *HTTPTransport) Result(ctx context.Context, processID, messageID string) (*Result, error) {
	endpoint := fmt.Sprintf("%s/result/%s?process-id=%s",
		t.cuURL, url.PathEscape(messageID), url.QueryEscape(processID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	var result Result
	if err := t.do(req, &result); err != nil {
		return nil, err
	}

	return &result, nil
}

func (t *HTTPTransport) do(req *http.Request, out any) error {
	body, err := t.call(req)
	if err != nil {
		return err
	}

	return json.Unmarshal(body, out)
}

// call performs req and returns the body of a 2xx or 3xx response.
func (t *HTTPTransport) call(req *http.Request) ([]byte, error) {
	resp, err := t.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))

		return nil, fmt.Errorf("%s %s: status %d: %s",
			req.Method, req.URL.Path, resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%s %s: read body: %w", req.Method, req.URL.Path, err)
	}

	return body, nil
}

var _ Transport = (*HTTPTransport)(nil)
