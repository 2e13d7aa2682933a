package store

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/serroba/ledger-shortener/internal/analytics"
)

// Postgres appends analytics events to PostgreSQL. Tables come from
// the migrations package.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres creates a PostgreSQL-backed analytics store.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

func (p *Postgres) SaveLinkCreated(ctx context.Context, event *analytics.LinkCreatedEvent) error {
	query := `
		INSERT INTO link_created_events
			(code, long_url, reused, address, auth_method, client_ip, user_agent, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := p.pool.Exec(ctx, query,
		event.Code,
		event.LongURL,
		event.Reused,
		nullableString(event.Address),
		nullableString(event.AuthMethod),
		nullableString(event.ClientIP),
		nullableString(event.UserAgent),
		event.CreatedAt,
	)

	return err
}

func (p *Postgres) SaveLinkResolved(ctx context.Context, event *analytics.LinkResolvedEvent) error {
	query := `
		INSERT INTO link_resolved_events (code, client_ip, user_agent, referrer, resolved_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := p.pool.Exec(ctx, query,
		event.Code,
		nullableString(event.ClientIP),
		nullableString(event.UserAgent),
		nullableString(event.Referrer),
		event.ResolvedAt,
	)

	return err
}

// CountResolved returns how often code was resolved.
func (p *Postgres) CountResolved(ctx context.Context, code string) (int64, error) {
	var count int64

	err := p.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM link_resolved_events WHERE code = $1`, code,
	).Scan(&count)

	return count, err
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}

	return &s
}

var _ analytics.Store = (*Postgres)(nil)
