package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/serroba/ledger-shortener/internal/flow"
	"github.com/serroba/ledger-shortener/internal/handlers"
	"go.uber.org/zap"
)

// DefaultTokenTTL bounds how long a session cookie is accepted.
const DefaultTokenTTL = 24 * time.Hour

var errInvalidToken = errors.New("invalid session token")

// SessionTokens issues and verifies signed session cookies. A token only
// names a session; the session itself stays in server memory.
type SessionTokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSessionTokens creates HS256 tokens signed with secret.
func NewSessionTokens(secret string, ttl time.Duration) *SessionTokens {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}

	return &SessionTokens{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// WithClock replaces the time source used for issuing and expiry.
func (t *SessionTokens) WithClock(now func() time.Time) *SessionTokens {
	t.now = now

	return t
}

// Issue returns a token for session id and its expiry.
func (t *SessionTokens) Issue(id string) (string, time.Time, error) {
	now := t.now()
	expires := now.Add(t.ttl)

	claims := &jwt.RegisteredClaims{
		Subject:   id,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expires),
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign session token: %w", err)
	}

	return token, expires, nil
}

// Parse verifies token and returns the session id it names.
func (t *SessionTokens) Parse(token string) (string, error) {
	claims := &jwt.RegisteredClaims{}

	parsed, err := jwt.ParseWithClaims(token, claims, func(_ *jwt.Token) (any, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		return "", err
	}

	if !parsed.Valid || claims.Subject == "" {
		return "", errInvalidToken
	}

	return claims.Subject, nil
}

// Session attaches the client's AppSession to operations marked with
// handlers.SessionMetadataKey. A missing, invalid or expired cookie gets a
// fresh session and a new cookie when the operation may open one.
func Session(
	api huma.API,
	sessions *flow.Sessions,
	tokens *SessionTokens,
	cookie handlers.SessionCookie,
	logger *zap.Logger,
) func(ctx huma.Context, next func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		mode, ok := handlers.SessionModeFor(ctx.Operation())
		if !ok {
			next(ctx)

			return
		}

		if session, ok := existingSession(ctx, sessions, tokens, cookie.Name); ok {
			next(huma.WithContext(ctx, flow.ContextWithSession(ctx.Context(), session)))

			return
		}

		if mode != handlers.SessionOpen {
			next(ctx)

			return
		}

		session := sessions.Open()

		token, expires, err := tokens.Issue(session.ID)
		if err != nil {
			sessions.Close(session.ID)
			logger.Error("failed to issue session token", zap.Error(err))
			_ = huma.WriteErr(api, ctx, http.StatusInternalServerError, "internal server error", err)

			return
		}

		ctx.AppendHeader("Set-Cookie", cookie.New(token, expires).String())

		logger.Debug("session opened", zap.String("session", session.ID))

		next(huma.WithContext(ctx, flow.ContextWithSession(ctx.Context(), session)))
	}
}

func existingSession(
	ctx huma.Context,
	sessions *flow.Sessions,
	tokens *SessionTokens,
	name string,
) (*flow.AppSession, bool) {
	c, err := huma.ReadCookie(ctx, name)
	if err != nil {
		return nil, false
	}

	id, err := tokens.Parse(c.Value)
	if err != nil {
		return nil, false
	}

	return sessions.Get(id)
}
