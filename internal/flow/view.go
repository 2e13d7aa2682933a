package flow

import (
	"errors"

	"github.com/serroba/ledger-shortener/internal/ledger"
	"github.com/serroba/ledger-shortener/internal/process"
	"github.com/serroba/ledger-shortener/internal/shortener"
	"github.com/serroba/ledger-shortener/internal/wallet"
)

// ErrorKind classifies a failure shown to the client.
type ErrorKind string

const (
	ErrorInvalidURL          ErrorKind = "invalid_url"
	ErrorNotFound            ErrorKind = "not_found"
	ErrorIndexUnavailable    ErrorKind = "index_unavailable"
	ErrorWalletConnectFailed ErrorKind = "wallet_connect_failed"
	ErrorSendFailed          ErrorKind = "send_failed"
	ErrorLogicalRejection    ErrorKind = "logical_rejection"
	ErrorAllocationExhausted ErrorKind = "allocation_exhausted"
	ErrorTransportAmbiguous  ErrorKind = "transport_ambiguous"
	ErrorInternal            ErrorKind = "internal"
)

// ViewError is a failure as the client sees it.
type ViewError struct {
	Kind    ErrorKind `doc:"Failure class"                 json:"kind"`
	Message string    `doc:"Human readable failure reason" json:"message"`
}

// View is a snapshot of what the client is shown.
type View struct {
	State       State      `doc:"Current UI state"                            json:"state"`
	Locked      bool       `doc:"Whether the form rejects submission"         json:"locked"`
	LongURL     string     `doc:"Last submitted long URL"                     json:"longUrl,omitempty"`
	Code        string     `doc:"Short code of the result or resolved link"   json:"code,omitempty"`
	ShortURL    string     `doc:"Shareable short URL"                         json:"shortUrl,omitempty"`
	RedirectURL string     `doc:"Destination of a resolved short code"        json:"redirectUrl,omitempty"`
	Reused      bool       `doc:"Whether an existing short link was returned" json:"reused"`
	Address     string     `doc:"Connected wallet address"                    json:"address,omitempty"`
	AuthMethod  string     `doc:"Wallet provider of the session"              json:"authMethod,omitempty"`
	Error       *ViewError `doc:"Failure shown to the client"                 json:"error,omitempty"`
}

// Classify maps a component error to what the client is told.
func Classify(err error) *ViewError {
	var rejection *process.RejectionError

	switch {
	case errors.Is(err, shortener.ErrInvalidURL):
		return &ViewError{Kind: ErrorInvalidURL, Message: "Please enter a valid http or https URL."}
	case errors.Is(err, shortener.ErrNotFound):
		return &ViewError{Kind: ErrorNotFound, Message: "This short link does not exist."}
	case errors.Is(err, ledger.ErrIndexUnavailable):
		return &ViewError{Kind: ErrorIndexUnavailable, Message: "The ledger index is unavailable. Please try again."}
	case errors.Is(err, wallet.ErrConnectInProgress):
		return &ViewError{Kind: ErrorWalletConnectFailed, Message: "A wallet connection is already in progress. Please wait for it to finish."}
	case errors.Is(err, wallet.ErrConnectFailed):
		return &ViewError{Kind: ErrorWalletConnectFailed, Message: "Could not connect a wallet. Please try again."}
	case errors.As(err, &rejection):
		return &ViewError{Kind: ErrorLogicalRejection, Message: rejection.Reason}
	case errors.Is(err, shortener.ErrAllocationExhausted):
		return &ViewError{Kind: ErrorAllocationExhausted, Message: "No free short code was found. Please try again."}
	case errors.Is(err, process.ErrTransportAmbiguous):
		return &ViewError{
			Kind:    ErrorTransportAmbiguous,
			Message: "The request was sent but its outcome is unknown. Check again before resubmitting.",
		}
	case errors.Is(err, process.ErrSendFailed):
		return &ViewError{Kind: ErrorSendFailed, Message: "The request could not be sent. Please try again."}
	default:
		return &ViewError{Kind: ErrorInternal, Message: "Something went wrong. Please try again."}
	}
}
