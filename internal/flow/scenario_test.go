package flow_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/serroba/ledger-shortener/internal/flow"
	"github.com/serroba/ledger-shortener/internal/process"
	"github.com/serroba/ledger-shortener/internal/shortener"
	"github.com/serroba/ledger-shortener/internal/store"
	"github.com/serroba/ledger-shortener/internal/wallet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	appName   = "ledger-shortener"
	processID = "proc-123"
)

type stubProvider struct {
	method  wallet.AuthMethod
	address string
	err     error
	calls   int
}

func (p *stubProvider) Method() wallet.AuthMethod { return p.method }

func (p *stubProvider) Connect(_ context.Context, _ []wallet.Permission) error {
	p.calls++

	return p.err
}

func (p *stubProvider) ActiveAddress(_ context.Context) (string, error) { return p.address, nil }

func (p *stubProvider) Signer(_ context.Context) (wallet.Signer, error) { return stubSigner{}, nil }

// fixedCodes yields codes in order, then repeats the last one.
func fixedCodes(codes ...string) shortener.CodeGenerator {
	i := 0

	return func() string {
		code := codes[min(i, len(codes)-1)]
		i++

		return code
	}
}

type harness struct {
	ledger   *store.MemoryLedger
	factory  *flow.Factory
	primary  *stubProvider
	fallback *stubProvider
	now      time.Time
}

func newHarness(t *testing.T, lag time.Duration, codes ...string) *harness {
	t.Helper()

	h := &harness{now: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
	h.ledger = store.NewMemoryLedger(appName, lag).WithClock(func() time.Time { return h.now })
	h.primary = &stubProvider{method: wallet.AuthExtension, address: "0xABC123"}
	h.fallback = &stubProvider{method: wallet.AuthCustodial, address: "0xCUSTODIAL"}

	index := store.NewLedgerIndex(h.ledger, appName, processID)
	dispatcher := process.NewDispatcher(processID, h.ledger, zap.NewNop())
	allocator := shortener.NewAllocator(index, dispatcher, fixedCodes(codes...), 0, zap.NewNop())

	h.factory = &flow.Factory{
		Index:     index,
		Allocator: allocator,
		Providers: []wallet.Provider{h.primary, h.fallback},
		BaseURL:   baseURL,
		Logger:    zap.NewNop(),
	}

	return h
}

func TestScenario_CreateAndResolve(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, 0, "aZ3kQ9")
	session := h.factory.NewSession()

	view, err := session.Router.Submit(ctx, "https://example.com/page")

	require.NoError(t, err)
	require.Equal(t, flow.StateResultShown, view.State, "error: %+v", view.Error)
	assert.Equal(t, baseURL+"/aZ3kQ9", view.ShortURL)
	assert.Equal(t, "0xABC123", view.Address)
	assert.Equal(t, string(wallet.AuthExtension), view.AuthMethod)
	assert.Equal(t, 0, h.fallback.calls)

	visitor := h.factory.NewSession()

	resolved, err := visitor.Router.Navigate(ctx, "/aZ3kQ9")

	require.NoError(t, err)
	assert.Equal(t, flow.StateResolved, resolved.State)
	assert.Equal(t, "https://example.com/page", resolved.RedirectURL)
}

func TestScenario_IdempotentReuse(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, 0, "aZ3kQ9", "bY4jP8")
	session := h.factory.NewSession()

	first, err := session.Router.Submit(ctx, "https://example.com/page")
	require.NoError(t, err)

	second, err := session.Router.Submit(ctx, "https://example.com/page")
	require.NoError(t, err)

	assert.Equal(t, first.Code, second.Code)
	assert.True(t, second.Reused)
	assert.Equal(t, 1, h.ledger.Len())
}

func TestScenario_IndexLag(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, time.Minute, "aZ3kQ9", "bY4jP8")
	session := h.factory.NewSession()

	first, err := session.Router.Submit(ctx, "https://example.com/page")
	require.NoError(t, err)
	require.Equal(t, "aZ3kQ9", first.Code)

	// Before the index catches up a resubmission writes a second record.
	second, err := session.Router.Submit(ctx, "https://example.com/page")
	require.NoError(t, err)
	assert.Equal(t, "bY4jP8", second.Code)
	assert.False(t, second.Reused)
	assert.Equal(t, 2, h.ledger.Len())

	h.now = h.now.Add(2 * time.Minute)

	// The newest record is the one the index returns first.
	third, err := session.Router.Submit(ctx, "https://example.com/page")
	require.NoError(t, err)
	assert.True(t, third.Reused)
	assert.Equal(t, "bY4jP8", third.Code)
}

func TestScenario_CollisionRetry(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, 0, "aZ3kQ9", "aZ3kQ9", "cX5hR7")

	_, err := h.factory.NewSession().Router.Submit(ctx, "https://example.com/one")
	require.NoError(t, err)

	view, err := h.factory.NewSession().Router.Submit(ctx, "https://example.com/two")

	require.NoError(t, err)
	assert.Equal(t, "cX5hR7", view.Code)
}

func TestScenario_WalletFallback(t *testing.T) {
	ctx := context.Background()

	t.Run("custodial provider after extension failure", func(t *testing.T) {
		h := newHarness(t, 0, "aZ3kQ9")
		h.primary.err = errors.New("extension not installed")
		session := h.factory.NewSession()

		view, err := session.Router.Submit(ctx, "https://example.com/page")

		require.NoError(t, err)
		assert.Equal(t, flow.StateResultShown, view.State)
		assert.Equal(t, "0xCUSTODIAL", view.Address)
		assert.Equal(t, 1, h.fallback.calls)
	})

	t.Run("both providers failing leaves the session disconnected", func(t *testing.T) {
		h := newHarness(t, 0, "aZ3kQ9")
		h.primary.err = errors.New("extension not installed")
		h.fallback.err = errors.New("login cancelled")
		session := h.factory.NewSession()

		view, err := session.Router.Submit(ctx, "https://example.com/page")

		require.NoError(t, err)
		assert.Equal(t, flow.ErrorWalletConnectFailed, view.Error.Kind)
		assert.Equal(t, wallet.StateDisconnected, session.Wallet.State())
		assert.Equal(t, 1, h.fallback.calls)
		assert.Equal(t, 0, h.ledger.Len())
	})
}
