package shortener

import (
	"context"
	"errors"
)

// Tags written on every short link record.
const (
	TagLongURL   = "Long-URL"
	TagShortCode = "Short-Code"

	ActionCreateShortURL = "CreateShortURL"
)

var (
	ErrNotFound            = errors.New("short link not found")
	ErrInvalidURL          = errors.New("invalid url")
	ErrAllocationExhausted = errors.New("could not allocate a free short code")
)

// Code is a short link code.
type Code string

// ShortLink binds a code to a long URL within one application deployment.
// Records are immutable once confirmed on the ledger.
type ShortLink struct {
	LongURL     string
	Code        Code
	AppName     string
	FromProcess string
}

// Index finds confirmed short links. Lookups return ErrNotFound when the
// index has no match; any other error means the index could not answer.
type Index interface {
	FindByLongURL(ctx context.Context, longURL string) (*ShortLink, error)
	FindByCode(ctx context.Context, code Code) (*ShortLink, error)
}
