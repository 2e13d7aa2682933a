package wallet

import (
	"context"
	"errors"
)

// AuthMethod names the provider that produced a session.
type AuthMethod string

const (
	AuthExtension AuthMethod = "ArConnect"
	AuthCustodial AuthMethod = "Othent"
)

// Permission is a scope requested from a provider on connect.
type Permission string

const (
	PermissionAccessAddress   Permission = "ACCESS_ADDRESS"
	PermissionSignTransaction Permission = "SIGN_TRANSACTION"
)

// DefaultPermissions are requested on every connect.
var DefaultPermissions = []Permission{PermissionAccessAddress, PermissionSignTransaction}

var (
	ErrConnectFailed     = errors.New("wallet connect failed")
	ErrConnectInProgress = errors.New("wallet connect already in progress")
	ErrNotConnected      = errors.New("wallet not connected")
	errEmptyAddress      = errors.New("provider returned an empty address")
)

// Signer authorizes outgoing messages for a connected address.
type Signer interface {
	// Owner identifies the signing key to verifiers.
	Owner() string
	Sign(ctx context.Context, digest []byte) ([]byte, error)
}

// Provider is one way of obtaining a signing identity.
type Provider interface {
	Method() AuthMethod
	Connect(ctx context.Context, permissions []Permission) error
	ActiveAddress(ctx context.Context) (string, error)
	Signer(ctx context.Context) (Signer, error)
}

// Session is the identity established by a successful connect.
type Session struct {
	Address    string
	AuthMethod AuthMethod
	Signer     Signer
}
