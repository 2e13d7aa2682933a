package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/serroba/ledger-shortener/internal/analytics"
	"github.com/serroba/ledger-shortener/internal/flow"
	"go.uber.org/zap"
)

// SessionFactory creates sessions that are not registered anywhere.
type SessionFactory interface {
	NewSession() *flow.AppSession
}

// LinkHandler creates and resolves short links.
type LinkHandler struct {
	factory    SessionFactory
	publishers *analytics.Publishers
	logger     *zap.Logger
}

// NewLinkHandler creates a link handler. factory provides the one-off
// sessions used for short link visits.
func NewLinkHandler(factory SessionFactory, publishers *analytics.Publishers, logger *zap.Logger) *LinkHandler {
	return &LinkHandler{
		factory:    factory,
		publishers: publishers,
		logger:     logger,
	}
}

// Home shows the form for the current session.
func (h *LinkHandler) Home(ctx context.Context, _ *struct{}) (*ViewResponse, error) {
	session, err := sessionFrom(ctx)
	if err != nil {
		return nil, err
	}

	view, err := session.Router.Navigate(ctx, "/")
	if err != nil {
		return nil, flowError(err)
	}

	return &ViewResponse{Body: view}, nil
}

// Shorten submits a long URL in the current session.
func (h *LinkHandler) Shorten(ctx context.Context, req *ShortenRequest) (*ShortenResponse, error) {
	session, err := sessionFrom(ctx)
	if err != nil {
		return nil, err
	}

	view, err := session.Router.Submit(ctx, req.Body.URL)
	if err != nil {
		return nil, flowError(err)
	}

	if view.Error != nil {
		return nil, viewError(view.Error)
	}

	meta := RequestMetaFromContext(ctx)
	event := &analytics.LinkCreatedEvent{
		Code:       view.Code,
		LongURL:    view.LongURL,
		Reused:     view.Reused,
		Address:    view.Address,
		AuthMethod: view.AuthMethod,
		CreatedAt:  time.Now(),
		ClientIP:   meta.ClientIP,
		UserAgent:  meta.UserAgent,
	}

	if err := h.publishers.LinkCreated(ctx, event); err != nil {
		h.logger.Error("failed to publish analytics event",
			zap.String("code", event.Code),
			zap.Error(err),
		)
	}

	resp := &ShortenResponse{Body: view}
	resp.Headers.Location = view.ShortURL

	return resp, nil
}

// Redirect resolves a short code in a one-off session and redirects to its
// long URL.
func (h *LinkHandler) Redirect(ctx context.Context, req *RedirectRequest) (*RedirectResponse, error) {
	session := h.factory.NewSession()

	view, err := session.Router.Navigate(ctx, "/"+req.Code)
	if err != nil {
		return nil, flowError(err)
	}

	if view.Error != nil {
		return nil, viewError(view.Error)
	}

	if view.State != flow.StateResolved {
		return nil, huma.Error404NotFound("short link not found")
	}

	meta := RequestMetaFromContext(ctx)
	event := &analytics.LinkResolvedEvent{
		Code:       view.Code,
		ResolvedAt: time.Now(),
		ClientIP:   meta.ClientIP,
		UserAgent:  meta.UserAgent,
		Referrer:   meta.Referrer,
	}

	if err := h.publishers.LinkResolved(ctx, event); err != nil {
		h.logger.Error("failed to publish resolve event",
			zap.String("code", event.Code),
			zap.Error(err),
		)
	}

	resp := &RedirectResponse{Status: http.StatusFound}
	resp.Headers.Location = view.RedirectURL

	return resp, nil
}

func sessionFrom(ctx context.Context) (*flow.AppSession, error) {
	session, ok := flow.SessionFromContext(ctx)
	if !ok {
		return nil, huma.Error500InternalServerError("no session")
	}

	return session, nil
}
