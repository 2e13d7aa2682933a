package wallet

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// State is the connection state of a Connector.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "disconnected"
	}
}

// Connector establishes a wallet session by trying providers in order.
// Every provider but the last may fail softly; the last one's failure is final.
type Connector struct {
	providers   []Provider
	permissions []Permission
	logger      *zap.Logger

	mu      sync.Mutex
	state   State
	session *Session
}

// NewConnector creates a connector over providers in priority order.
func NewConnector(providers []Provider, logger *zap.Logger) *Connector {
	return &Connector{
		providers:   providers,
		permissions: DefaultPermissions,
		logger:      logger,
	}
}

// Connect returns the active session, establishing one if needed.
func (c *Connector) Connect(ctx context.Context) (*Session, error) {
	c.mu.Lock()

	switch c.state {
	case StateConnected:
		session := c.session
		c.mu.Unlock()

		return session, nil
	case StateConnecting:
		c.mu.Unlock()

		return nil, ErrConnectInProgress
	case StateDisconnected:
	}

	c.state = StateConnecting
	c.mu.Unlock()

	session, err := c.tryProviders(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()

	if err != nil {
		c.state = StateDisconnected
		c.session = nil

		return nil, err
	}

	c.state = StateConnected
	c.session = session

	c.logger.Info("wallet connected",
		zap.String("address", session.Address),
		zap.String("authMethod", string(session.AuthMethod)),
	)

	return session, nil
}

func (c *Connector) tryProviders(ctx context.Context) (*Session, error) {
	if len(c.providers) == 0 {
		return nil, fmt.Errorf("%w: no providers configured", ErrConnectFailed)
	}

	last := len(c.providers) - 1

	for i, provider := range c.providers {
		session, err := c.connectWith(ctx, provider)
		if err == nil {
			return session, nil
		}

		if i == last {
			c.logger.Error("wallet provider connect failed",
				zap.String("provider", string(provider.Method())),
				zap.Error(err),
			)

			return nil, fmt.Errorf("%w: %s: %w", ErrConnectFailed, provider.Method(), err)
		}

		c.logger.Warn("wallet provider connect failed, trying next",
			zap.String("provider", string(provider.Method())),
			zap.Error(err),
		)
	}

	return nil, ErrConnectFailed
}

func (c *Connector) connectWith(ctx context.Context, provider Provider) (*Session, error) {
	if err := provider.Connect(ctx, c.permissions); err != nil {
		return nil, err
	}

	address, err := provider.ActiveAddress(ctx)
	if err != nil {
		return nil, err
	}

	if address == "" {
		return nil, errEmptyAddress
	}

	signer, err := provider.Signer(ctx)
	if err != nil {
		return nil, err
	}

	return &Session{
		Address:    address,
		AuthMethod: provider.Method(),
		Signer:     signer,
	}, nil
}

// Session returns the active session, if any.
func (c *Connector) Session() (*Session, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.session, c.session != nil
}

// State returns the current connection state.
func (c *Connector) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.state
}

// Address returns the connected address or an empty string.
func (c *Connector) Address() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session == nil {
		return ""
	}

	return c.session.Address
}

// Disconnect drops the session. It does not notify providers.
func (c *Connector) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateConnecting {
		return
	}

	c.state = StateDisconnected
	c.session = nil
}
