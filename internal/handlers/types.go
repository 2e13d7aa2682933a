package handlers

import "github.com/serroba/ledger-shortener/internal/flow"

// ViewResponse carries the client's current view.
type ViewResponse struct {
	Body flow.View
}

// ShortenRequest is the request body for creating a short link.
type ShortenRequest struct {
	Body struct {
		URL string `doc:"The URL to shorten" example:"https://example.com/very/long/path" json:"url"`
	}
}

// ShortenResponse is the view after a successful submission.
type ShortenResponse struct {
	Headers struct {
		Location string `doc:"The short URL location" header:"Location"`
	}
	Body flow.View
}

// RedirectRequest is the request for resolving a short code.
type RedirectRequest struct {
	Code string `doc:"The short code" example:"aZ3kQ9" path:"code"`
}

// RedirectResponse redirects to the long URL.
type RedirectResponse struct {
	Status  int
	Headers struct {
		Location string `doc:"The long URL" header:"Location"`
	}
}

// WalletStatus describes the wallet session of the client.
type WalletStatus struct {
	State      string `doc:"disconnected, connecting or connected" example:"connected"   json:"state"`
	Address    string `doc:"Connected address"                     example:"0xABC123"    json:"address,omitempty"`
	AuthMethod string `doc:"Provider that produced the session"    example:"ArConnect"   json:"authMethod,omitempty"`
}

// WalletResponse carries the wallet status.
type WalletResponse struct {
	Body WalletStatus
}

// EndSessionResponse expires the session cookie.
type EndSessionResponse struct {
	SetCookie string `header:"Set-Cookie"`
}
