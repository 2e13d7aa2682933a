package wallet

import (
	"context"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// CustodialConfig configures access to a custodial key service.
type CustodialConfig struct {
	BaseURL      string
	TokenURL     string
	ClientID     string
	ClientSecret string
	Scopes       []string
	// Timeout bounds each call, token requests included. Zero means
	// DefaultCustodialTimeout.
	Timeout time.Duration
}

// DefaultCustodialTimeout applies when CustodialConfig.Timeout is zero.
const DefaultCustodialTimeout = 30 * time.Second

// CustodialProvider signs with keys held by a remote key management service.
// Requests carry an OAuth2 client-credentials token.
type CustodialProvider struct {
	api remoteAPI
}

// NewCustodialProvider creates a provider whose HTTP client refreshes its
// bearer token on demand.
func NewCustodialProvider(cfg CustodialConfig) *CustodialProvider {
	creds := clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     cfg.TokenURL,
		Scopes:       cfg.Scopes,
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultCustodialTimeout
	}

	// Token requests use the context's client, so they get the same bound.
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, &http.Client{Timeout: timeout})

	client := creds.Client(ctx)
	client.Timeout = timeout

	return newCustodialProvider(cfg.BaseURL, client)
}

func newCustodialProvider(baseURL string, client *http.Client) *CustodialProvider {
	return &CustodialProvider{api: newRemoteAPI(baseURL+"/v1", client)}
}

func (p *CustodialProvider) Method() AuthMethod {
	return AuthCustodial
}

func (p *CustodialProvider) Connect(ctx context.Context, permissions []Permission) error {
	return p.api.connect(ctx, permissions)
}

func (p *CustodialProvider) ActiveAddress(ctx context.Context) (string, error) {
	return p.api.activeAddress(ctx)
}

func (p *CustodialProvider) Signer(ctx context.Context) (Signer, error) {
	owner, err := p.api.owner(ctx)
	if err != nil {
		return nil, err
	}

	return &remoteSigner{api: p.api, owner: owner}, nil
}

var _ Provider = (*CustodialProvider)(nil)
