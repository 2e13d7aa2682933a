package store

import (
	"context"

	"github.com/serroba/ledger-shortener/internal/ledger"
	"github.com/serroba/ledger-shortener/internal/shortener"
)

// LedgerIndex resolves short links through a ledger tag index, scoped to one
// application and one compute process.
type LedgerIndex struct {
	querier   ledger.Querier
	appName   string
	processID string
}

// NewLedgerIndex creates an index scoped to appName records written by processID.
func NewLedgerIndex(querier ledger.Querier, appName, processID string) *LedgerIndex {
	return &LedgerIndex{
		querier:   querier,
		appName:   appName,
		processID: processID,
	}
}

func (l *LedgerIndex) FindByLongURL(ctx context.Context, longURL string) (*shortener.ShortLink, error) {
	return l.first(ctx, ledger.Match(shortener.TagLongURL, longURL))
}

func (l *LedgerIndex) FindByCode(ctx context.Context, code shortener.Code) (*shortener.ShortLink, error) {
	return l.first(ctx, ledger.Match(shortener.TagShortCode, string(code)))
}

// first returns the most recent matching record; it is authoritative even
// when the index holds duplicates.
func (l *LedgerIndex) first(ctx context.Context, discriminator ledger.TagFilter) (*shortener.ShortLink, error) {
	records, err := l.querier.Query(ctx, ledger.Query{
		Tags: []ledger.TagFilter{
			ledger.Match(ledger.TagAppName, l.appName),
			discriminator,
			ledger.Match(ledger.TagFromProcess, l.processID),
		},
		First: 1,
	})
	if err != nil {
		return nil, err
	}

	if len(records) == 0 {
		return nil, shortener.ErrNotFound
	}

	record := records[0]
	longURL, _ := record.Value(shortener.TagLongURL)
	code, _ := record.Value(shortener.TagShortCode)

	return &shortener.ShortLink{
		LongURL:     longURL,
		Code:        shortener.Code(code),
		AppName:     l.appName,
		FromProcess: l.processID,
	}, nil
}

// Compile-time check.
var _ shortener.Index = (*LedgerIndex)(nil)
