package wallet

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// remoteAPI speaks the small JSON protocol shared by the wallet agent and
// the custodial key service: connect, active-address and sign.
type remoteAPI struct {
	baseURL string
	client  *http.Client
}

func newRemoteAPI(baseURL string, client *http.Client) remoteAPI {
	return remoteAPI{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  client,
	}
}

type connectRequest struct {
	Permissions []Permission `json:"permissions"`
}

type addressResponse struct {
	Address string `json:"address"`
}

type signRequest struct {
	Data string `json:"data"`
}

type signResponse struct {
	Signature string `json:"signature"`
	Owner     string `json:"owner"`
}

type ownerResponse struct {
	Owner string `json:"owner"`
}

func (a remoteAPI) connect(ctx context.Context, permissions []Permission) error {
	return a.call(ctx, http.MethodPost, "/connect", connectRequest{Permissions: permissions}, nil)
}

func (a remoteAPI) activeAddress(ctx context.Context) (string, error) {
	var resp addressResponse
	if err := a.call(ctx, http.MethodGet, "/active-address", nil, &resp); err != nil {
		return "", err
	}

	return resp.Address, nil
}

func (a remoteAPI) owner(ctx context.Context) (string, error) {
	var resp ownerResponse
	if err := a.call(ctx, http.MethodGet, "/active-public-key", nil, &resp); err != nil {
		return "", err
	}

	return resp.Owner, nil
}

func (a remoteAPI) sign(ctx context.Context, digest []byte) ([]byte, error) {
	var resp signResponse

	req := signRequest{Data: base64.RawURLEncoding.EncodeToString(digest)}
	if err := a.call(ctx, http.MethodPost, "/sign", req, &resp); err != nil {
		return nil, err
	}

	sig, err := base64.RawURLEncoding.DecodeString(resp.Signature)
	if err != nil {
		return nil, fmt.Errorf("decode signature: %w", err)
	}

	return sig, nil
}

func (a remoteAPI) call(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader

	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return err
		}

		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, body)
	if err != nil {
		return err
	}

	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))

		return fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)

		return nil
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

// remoteSigner signs through a remoteAPI.
type remoteSigner struct {
	api   remoteAPI
	owner string
}

func (s *remoteSigner) Owner() string {
	return s.owner
}

func (s *remoteSigner) Sign(ctx context.Context, digest []byte) ([]byte, error) {
	return s.api.sign(ctx, digest)
}
