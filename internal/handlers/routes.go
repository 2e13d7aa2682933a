package handlers

import (
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/serroba/ledger-shortener/internal/ratelimit"
)

// RegisterRoutes registers the short link and session routes with their
// per-endpoint rate limits.
func RegisterRoutes(api huma.API, links *LinkHandler, sessions *SessionHandler) {
	huma.Register(api, huma.Operation{
		OperationID: "home",
		Method:      http.MethodGet,
		Path:        "/",
		Summary:     "Show the form",
		Description: "Returns the idle view of the current session.",
		Tags:        []string{"Links"},
		Metadata:    map[string]any{SessionMetadataKey: SessionOpen},
	}, links.Home)

	// Writes to the ledger are the expensive path, so they get the
	// strictest limits.
	huma.Register(api, huma.Operation{
		OperationID: "shorten",
		Method:      http.MethodPost,
		Path:        "/shorten",
		Summary:     "Create short URL",
		Description: "Returns the existing short URL for the long URL, or allocates a new one signed by the session wallet.",
		Tags:        []string{"Links"},
		Metadata: map[string]any{
			SessionMetadataKey:    SessionOpen,
			ratelimit.MetadataKey: ratelimit.EndpointConfig{
				Limits: []ratelimit.Limit{
					{Window: time.Minute, Max: 10},
					{Window: time.Hour, Max: 100},
				},
			},
		},
	}, links.Shorten)

	huma.Register(api, huma.Operation{
		OperationID: "redirect",
		Method:      http.MethodGet,
		Path:        "/{code}",
		Summary:     "Redirect to long URL",
		Description: "Resolves the short code through the ledger index and redirects to its long URL.",
		Tags:        []string{"Links"},
		Metadata: map[string]any{
			ratelimit.MetadataKey: ratelimit.EndpointConfig{
				Limits: []ratelimit.Limit{
					{Window: time.Minute, Max: 1000},
				},
			},
		},
	}, links.Redirect)

	huma.Register(api, huma.Operation{
		OperationID: "get-session",
		Method:      http.MethodGet,
		Path:        "/session",
		Summary:     "Current view",
		Tags:        []string{"Session"},
		Metadata:    map[string]any{SessionMetadataKey: SessionOpen},
	}, sessions.Get)

	huma.Register(api, huma.Operation{
		OperationID:   "end-session",
		Method:        http.MethodDelete,
		Path:          "/session",
		Summary:       "End the session",
		Description:   "Discards the session and its wallet connection.",
		Tags:          []string{"Session"},
		DefaultStatus: http.StatusNoContent,
		Metadata:      map[string]any{SessionMetadataKey: SessionExisting},
	}, sessions.End)

	huma.Register(api, huma.Operation{
		OperationID: "get-wallet",
		Method:      http.MethodGet,
		Path:        "/wallet",
		Summary:     "Wallet status",
		Tags:        []string{"Wallet"},
		Metadata:    map[string]any{SessionMetadataKey: SessionOpen},
	}, sessions.Wallet)

	huma.Register(api, huma.Operation{
		OperationID: "connect-wallet",
		Method:      http.MethodPost,
		Path:        "/wallet/connect",
		Summary:     "Connect a wallet",
		Description: "Tries the extension provider first and the custodial provider second.",
		Tags:        []string{"Wallet"},
		Metadata: map[string]any{
			SessionMetadataKey:    SessionOpen,
			ratelimit.MetadataKey: ratelimit.EndpointConfig{
				Limits: []ratelimit.Limit{
					{Window: time.Minute, Max: 20},
				},
			},
		},
	}, sessions.ConnectWallet)
}
