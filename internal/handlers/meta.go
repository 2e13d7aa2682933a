package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
)

type requestMetaKey struct{}

// RequestMeta holds HTTP request metadata for analytics.
type RequestMeta struct {
	ClientIP  string
	UserAgent string
	Referrer  string
}

// ContextWithRequestMeta adds request metadata to context.
func ContextWithRequestMeta(ctx context.Context, meta RequestMeta) context.Context {
	return context.WithValue(ctx, requestMetaKey{}, meta)
}

// RequestMetaFromContext extracts request metadata from context.
func RequestMetaFromContext(ctx context.Context) RequestMeta {
	if v, ok := ctx.Value(requestMetaKey{}).(RequestMeta); ok {
		return v
	}

	return RequestMeta{}
}

// SessionMetadataKey marks operations that run inside a client session. Its
// value is a SessionMode.
const SessionMetadataKey = "session"

// SessionMode says how an operation obtains its session.
type SessionMode int

const (
	// SessionOpen attaches the client's session, opening one if needed.
	SessionOpen SessionMode = iota + 1
	// SessionExisting attaches the client's session only if it is live.
	SessionExisting
)

// SessionModeFor reads the session mode from op metadata.
func SessionModeFor(op *huma.Operation) (SessionMode, bool) {
	if op == nil || op.Metadata == nil {
		return 0, false
	}

	mode, ok := op.Metadata[SessionMetadataKey].(SessionMode)

	return mode, ok
}

// SessionCookie describes the cookie carrying the session token.
type SessionCookie struct {
	Name   string
	Secure bool
}

// DefaultSessionCookie is used when no cookie name is configured.
var DefaultSessionCookie = SessionCookie{Name: "ls_session"}

// New returns a cookie holding token until expires.
func (c SessionCookie) New(token string, expires time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     c.Name,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// Expired returns a cookie that makes the client drop the session token.
func (c SessionCookie) Expired() *http.Cookie {
	cookie := c.New("", time.Unix(0, 0))
	cookie.MaxAge = -1

	return cookie
}
