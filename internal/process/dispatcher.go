package process

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/serroba/ledger-shortener/internal/ledger"
	"github.com/serroba/ledger-shortener/internal/wallet"
	"go.uber.org/zap"
)

// TagAction names the action a message asks the process to perform.
const TagAction = "Action"

var (
	// ErrSendFailed means the message was not accepted for delivery.
	ErrSendFailed = errors.New("message send failed")
	// ErrTransportAmbiguous means the message was sent but its result could
	// not be fetched, so whether the action was applied is unknown.
	ErrTransportAmbiguous = errors.New("message sent but result unknown")
	// ErrLogicalRejection matches every *RejectionError.
	ErrLogicalRejection = errors.New("rejected by process")
)

// RejectionError carries the reason a process gave for refusing an action.
type RejectionError struct {
	MessageID string
	Reason    string
}

func (e *RejectionError) Error() string {
	return e.Reason
}

func (e *RejectionError) Is(target error) bool {
	return target == ErrLogicalRejection
}

// PendingAction tracks a message between send and result.
type PendingAction struct {
	ActionID     string
	Tags         []ledger.Tag
	DispatchedAt time.Time
}

// Dispatcher sends signed actions to one compute process and correlates
// their results. It never retries.
type Dispatcher struct {
	processID string
	transport Transport
	logger    *zap.Logger
	now       func() time.Time

	mu      sync.Mutex
	pending map[string]PendingAction
}

// NewDispatcher creates a dispatcher for processID.
func NewDispatcher(processID string, transport Transport, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		processID: processID,
		transport: transport,
		logger:    logger,
		now:       time.Now,
		pending:   make(map[string]PendingAction),
	}
}

// ProcessID returns the process this dispatcher addresses.
func (d *Dispatcher) ProcessID() string {
	return d.processID
}

// Send signs and delivers tags as one action, then waits for its result.
// A non-empty Error in the result is returned as *RejectionError together
// with the result.
func (d *Dispatcher) Send(ctx context.Context, signer wallet.Signer, tags []ledger.Tag) (*Result, error) {
	action := TagValue(tags, TagAction)

	signed, err := Sign(ctx, signer, Message{
		Target: d.processID,
		Anchor: uuid.NewString(),
		Tags:   tags,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSendFailed, err)
	}

	messageID, err := d.transport.Send(ctx, signed)
	if err != nil {
		d.logger.Error("failed to send message",
			zap.String("action", action),
			zap.Error(err),
		)

		return nil, fmt.Errorf("%w: %w", ErrSendFailed, err)
	}

	pending := d.track(messageID, tags)
	defer d.release(messageID)

	result, err := d.transport.Result(ctx, d.processID, messageID)
	if err != nil {
		d.logger.Error("failed to fetch message result",
			zap.String("action", action),
			zap.String("messageId", messageID),
			zap.Error(err),
		)

		return nil, fmt.Errorf("%w: message %s: %w", ErrTransportAmbiguous, messageID, err)
	}

	if result.Error != "" {
		d.logger.Warn("process rejected action",
			zap.String("action", action),
			zap.String("messageId", messageID),
			zap.String("reason", result.Error),
		)

		return result, &RejectionError{MessageID: messageID, Reason: result.Error}
	}

	d.logger.Info("sent action",
		zap.String("action", action),
		zap.String("messageId", messageID),
		zap.Duration("elapsed", d.now().Sub(pending.DispatchedAt)),
	)

	return result, nil
}

// Pending returns the number of actions awaiting a result.
func (d *Dispatcher) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	return len(d.pending)
}

func (d *Dispatcher) track(messageID string, tags []ledger.Tag) PendingAction {
	action := PendingAction{
		ActionID:     messageID,
		Tags:         tags,
		DispatchedAt: d.now(),
	}

	d.mu.Lock()
	d.pending[messageID] = action
	d.mu.Unlock()

	return action
}

func (d *Dispatcher) release(messageID string) {
	d.mu.Lock()
	delete(d.pending, messageID)
	d.mu.Unlock()
}
