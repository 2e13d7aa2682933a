package shortener

import (
	"context"
	"errors"
	"fmt"

	"github.com/serroba/ledger-shortener/internal/ledger"
	"github.com/serroba/ledger-shortener/internal/process"
	"github.com/serroba/ledger-shortener/internal/wallet"
	"go.uber.org/zap"
)

const (
	DefaultMaxAttempts = 32
	minMaxAttempts     = 20
)

// Dispatcher delivers a signed action to the compute process.
type Dispatcher interface {
	Send(ctx context.Context, signer wallet.Signer, tags []ledger.Tag) (*process.Result, error)
}

// Allocator picks an unclaimed code for a long URL and commits it.
type Allocator struct {
	index       Index
	dispatcher  Dispatcher
	generate    CodeGenerator
	maxAttempts int
	logger      *zap.Logger
}

// NewAllocator creates an allocator. maxAttempts below the minimum of 20
// is raised to it.
func NewAllocator(
	index Index,
	dispatcher Dispatcher,
	generator CodeGenerator,
	maxAttempts int,
	logger *zap.Logger,
) *Allocator {
	if maxAttempts < minMaxAttempts {
		maxAttempts = minMaxAttempts
	}

	return &Allocator{
		index:       index,
		dispatcher:  dispatcher,
		generate:    generator,
		maxAttempts: maxAttempts,
		logger:      logger,
	}
}

// Allocate finds a free code and asks the process to record it for longURL.
// A rejection from the process is returned as is; it is about the URL, so no
// other code is tried.
func (a *Allocator) Allocate(ctx context.Context, signer wallet.Signer, longURL string) (Code, error) {
	code, err := a.freeCode(ctx)
	if err != nil {
		return "", err
	}

	result, err := a.dispatcher.Send(ctx, signer, CreateTags(longURL, code))
	if err != nil {
		return "", err
	}

	if err := outputRejection(result); err != nil {
		return "", err
	}

	a.logger.Info("short code allocated",
		zap.String("code", string(code)),
		zap.String("longUrl", longURL),
	)

	return code, nil
}

// freeCode checks candidates one at a time until the index has no record for
// one of them. Index failures end the search.
func (a *Allocator) freeCode(ctx context.Context) (Code, error) {
	for attempt := 1; attempt <= a.maxAttempts; attempt++ {
		candidate := Code(a.generate())
		if IsReserved(candidate) {
			continue
		}

		_, err := a.index.FindByCode(ctx, candidate)
		if errors.Is(err, ErrNotFound) {
			return candidate, nil
		}

		if err != nil {
			return "", err
		}

		a.logger.Debug("short code taken",
			zap.String("code", string(candidate)),
			zap.Int("attempt", attempt),
		)
	}

	return "", fmt.Errorf("%w after %d attempts", ErrAllocationExhausted, a.maxAttempts)
}

// CreateTags are the tags of a CreateShortURL action.
func CreateTags(longURL string, code Code) []ledger.Tag {
	return []ledger.Tag{
		{Name: process.TagAction, Value: ActionCreateShortURL},
		{Name: TagLongURL, Value: longURL},
		{Name: TagShortCode, Value: string(code)},
	}
}

type outputBody struct {
	Error string `json:"error"`
}

// outputRejection treats an "error" field in the first output as a rejection.
func outputRejection(result *process.Result) error {
	if result == nil || len(result.Outputs) == 0 {
		return nil
	}

	var body outputBody
	if err := result.Outputs[0].Decode(&body); err != nil {
		return nil //nolint:nilerr // non-JSON output carries no rejection
	}

	if body.Error == "" {
		return nil
	}

	return &process.RejectionError{Reason: body.Error}
}
