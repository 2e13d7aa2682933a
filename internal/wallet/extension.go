package wallet

import (
	"context"
	"net/http"
	"time"
)

// ExtensionProvider talks to a wallet agent running next to the user,
// the server-side counterpart of a browser wallet extension.
type ExtensionProvider struct {
	api remoteAPI
}

// NewExtensionProvider creates a provider for the agent listening at agentURL.
func NewExtensionProvider(agentURL string, client *http.Client) *ExtensionProvider {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}

	return &ExtensionProvider{api: newRemoteAPI(agentURL, client)}
}

func (p *ExtensionProvider) Method() AuthMethod {
	return AuthExtension
}

func (p *ExtensionProvider) Connect(ctx context.Context, permissions []Permission) error {
	return p.api.connect(ctx, permissions)
}

func (p *ExtensionProvider) ActiveAddress(ctx context.Context) (string, error) {
	return p.api.activeAddress(ctx)
}

func (p *ExtensionProvider) Signer(ctx context.Context) (Signer, error) {
	owner, err := p.api.owner(ctx)
	if err != nil {
		return nil, err
	}

	return &remoteSigner{api: p.api, owner: owner}, nil
}

var _ Provider = (*ExtensionProvider)(nil)
