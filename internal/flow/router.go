package flow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/serroba/ledger-shortener/internal/shortener"
	"github.com/serroba/ledger-shortener/internal/wallet"
	"go.uber.org/zap"
)

// ErrBusy is returned when input arrives while an operation is in flight.
var ErrBusy = errors.New("an operation is already in progress")

// Allocator commits a new short link for a long URL.
type Allocator interface {
	Allocate(ctx context.Context, signer wallet.Signer, longURL string) (shortener.Code, error)
}

// WalletConnector provides the signing session of a client.
type WalletConnector interface {
	Connect(ctx context.Context) (*wallet.Session, error)
	Session() (*wallet.Session, bool)
}

// Router drives one client's view from paths and form submissions.
// Input is rejected with ErrBusy while an earlier one is in flight, so a
// session never runs two allocations at once.
type Router struct {
	index     shortener.Index
	allocator Allocator
	wallet    WalletConnector
	baseURL   string
	logger    *zap.Logger

	mu         sync.Mutex
	view       View
	connecting bool
}

// NewRouter creates a router in the idle state. baseURL prefixes short codes
// to form short URLs.
func NewRouter(
	index shortener.Index,
	allocator Allocator,
	connector WalletConnector,
	baseURL string,
	logger *zap.Logger,
) *Router {
	return &Router{
		index:     index,
		allocator: allocator,
		wallet:    connector,
		baseURL:   strings.TrimSuffix(baseURL, "/"),
		logger:    logger,
		view:      View{State: StateIdle},
	}
}

// View returns a snapshot of the current view.
func (r *Router) View() View {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.snapshot()
}

// Navigate handles the client arriving at path. A trailing short code is
// resolved to its long URL; any other path shows the form.
func (r *Router) Navigate(ctx context.Context, path string) (View, error) {
	code, ok := shortener.CodeFromPath(path)
	if !ok {
		return r.begin(EventNavigateHome, func(v *View) {
			*v = View{LongURL: v.LongURL}
		})
	}

	if _, err := r.begin(EventNavigateCode, func(v *View) {
		*v = View{LongURL: v.LongURL, Code: string(code)}
	}); err != nil {
		return View{}, err
	}

	link, err := r.index.FindByCode(ctx, code)
	if err == nil && link.LongURL == "" {
		err = fmt.Errorf("%w: record for %s has no long url", shortener.ErrNotFound, code)
	}

	if err != nil {
		return r.fail(err), nil
	}

	return r.advance(EventCodeResolved, func(v *View) {
		v.RedirectURL = link.LongURL
	}), nil
}

// Submit creates a short link for longURL, or returns the one the index
// already holds for it.
func (r *Router) Submit(ctx context.Context, longURL string) (View, error) {
	normalized, err := shortener.ValidateURL(longURL)
	if err != nil {
		return r.begin(EventInvalidInput, func(v *View) {
			*v = View{LongURL: longURL, Error: Classify(err)}
		})
	}

	if _, err := r.begin(EventSubmit, func(v *View) {
		*v = View{LongURL: normalized}
	}); err != nil {
		return View{}, err
	}

	existing, err := r.index.FindByLongURL(ctx, normalized)

	switch {
	case err == nil:
		r.logger.Info("reusing existing short link",
			zap.String("code", string(existing.Code)),
			zap.String("longUrl", normalized),
		)

		return r.advance(EventLinkFound, func(v *View) {
			v.Code = string(existing.Code)
			v.ShortURL = r.shortURL(existing.Code)
			v.Reused = true
		}), nil
	case !errors.Is(err, shortener.ErrNotFound):
		return r.fail(err), nil
	}

	r.advance(EventLinkMissing, nil)

	session, err := r.wallet.Connect(ctx)
	if err != nil {
		return r.fail(err), nil
	}

	r.advance(EventConnected, nil)

	code, err := r.allocator.Allocate(ctx, session.Signer, normalized)
	if err != nil {
		return r.fail(err), nil
	}

	return r.advance(EventAllocated, func(v *View) {
		v.Code = string(code)
		v.ShortURL = r.shortURL(code)
	}), nil
}

// ConnectWallet ensures a wallet session outside of a submission. It leaves
// the UI state as it is.
func (r *Router) ConnectWallet(ctx context.Context) (View, error) {
	r.mu.Lock()
	if r.busyLocked() {
		r.mu.Unlock()

		return View{}, ErrBusy
	}

	r.connecting = true
	r.mu.Unlock()

	_, err := r.wallet.Connect(ctx)

	r.mu.Lock()
	r.connecting = false
	view := r.snapshot()
	r.mu.Unlock()

	if err != nil {
		r.logger.Warn("wallet connect failed", zap.Error(err))

		return view, err
	}

	return view, nil
}

func (r *Router) shortURL(code shortener.Code) string {
	return r.baseURL + "/" + string(code)
}

// begin applies an input event, refusing it while busy.
func (r *Router) begin(event Event, update func(*View)) (View, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.busyLocked() {
		return View{}, ErrBusy
	}

	next, err := Next(r.view.State, event)
	if err != nil {
		return View{}, err
	}

	update(&r.view)
	r.view.State = next

	return r.snapshot(), nil
}

// busyLocked reports whether a flow step or a wallet connect is in flight.
// Callers hold mu.
func (r *Router) busyLocked() bool {
	return IsBusy(r.view.State) || r.connecting
}

// advance applies the outcome of an in-flight step. The router only fires
// events valid for its current state, so a failed transition is a bug.
func (r *Router) advance(event Event, update func(*View)) View {
	r.mu.Lock()
	defer r.mu.Unlock()

	next, err := Next(r.view.State, event)
	if err != nil {
		r.logger.Error("unexpected transition", zap.Error(err))

		next = StateErrorShown
		r.view.Error = &ViewError{Kind: ErrorInternal, Message: "Something went wrong. Please try again."}
	}

	if update != nil {
		update(&r.view)
	}

	r.view.State = next

	return r.snapshot()
}

func (r *Router) fail(err error) View {
	r.logger.Warn("flow failed",
		zap.String("state", string(r.View().State)),
		zap.Error(err),
	)

	return r.advance(EventFailed, func(v *View) {
		v.Error = Classify(err)
	})
}

// snapshot copies the view and fills in derived fields. Callers hold mu.
func (r *Router) snapshot() View {
	view := r.view
	view.Locked = r.busyLocked()
	view.Address = ""
	view.AuthMethod = ""

	if session, ok := r.wallet.Session(); ok {
		view.Address = session.Address
		view.AuthMethod = string(session.AuthMethod)
	}

	if view.Error != nil {
		e := *view.Error
		view.Error = &e
	}

	return view
}
