package handlers

import (
	"context"

	"github.com/serroba/ledger-shortener/internal/flow"
)

// SessionCloser discards registered sessions.
type SessionCloser interface {
	Close(id string) bool
}

// SessionHandler exposes the session view and its wallet.
type SessionHandler struct {
	sessions SessionCloser
	cookie   SessionCookie
}

// NewSessionHandler creates a session handler.
func NewSessionHandler(sessions SessionCloser, cookie SessionCookie) *SessionHandler {
	return &SessionHandler{sessions: sessions, cookie: cookie}
}

// Get returns the current view without changing it.
func (h *SessionHandler) Get(ctx context.Context, _ *struct{}) (*ViewResponse, error) {
	session, err := sessionFrom(ctx)
	if err != nil {
		return nil, err
	}

	return &ViewResponse{Body: session.Router.View()}, nil
}

// End discards the session, the equivalent of leaving the page.
func (h *SessionHandler) End(ctx context.Context, _ *struct{}) (*EndSessionResponse, error) {
	if session, ok := flow.SessionFromContext(ctx); ok {
		h.sessions.Close(session.ID)
	}

	return &EndSessionResponse{SetCookie: h.cookie.Expired().String()}, nil
}

// Wallet reports the wallet state of the session.
func (h *SessionHandler) Wallet(ctx context.Context, _ *struct{}) (*WalletResponse, error) {
	session, err := sessionFrom(ctx)
	if err != nil {
		return nil, err
	}

	return &WalletResponse{Body: walletStatus(session)}, nil
}

// ConnectWallet connects a wallet, or reports the one already connected.
func (h *SessionHandler) ConnectWallet(ctx context.Context, _ *struct{}) (*WalletResponse, error) {
	session, err := sessionFrom(ctx)
	if err != nil {
		return nil, err
	}

	if _, err := session.Router.ConnectWallet(ctx); err != nil {
		return nil, flowError(err)
	}

	return &WalletResponse{Body: walletStatus(session)}, nil
}

func walletStatus(session *flow.AppSession) WalletStatus {
	status := WalletStatus{State: session.Wallet.State().String()}

	if s, ok := session.Wallet.Session(); ok {
		status.Address = s.Address
		status.AuthMethod = string(s.AuthMethod)
	}

	return status
}
