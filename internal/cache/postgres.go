package cache

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// PgxAPI is the part of *pgxpool.Pool the store uses.
type PgxAPI interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// Postgres appends entries to a history table. Money columns are numeric
// and travel as text so no digits are lost.
type Postgres struct {
	db    PgxAPI
	name  string
	table string // quoted
}

func NewPostgres(db PgxAPI, table string) *Postgres {
	return &Postgres{db: db, name: table, table: pgx.Identifier{table}.Sanitize()}
}

// DialPostgres opens a pool and creates the table if needed.
func DialPostgres(ctx context.Context, databaseURL, table string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}
	p := NewPostgres(pool, table)
	if err := p.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return p, nil
}

// EnsureSchema creates the history table and its lookup index.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	_, err := p.db.Exec(ctx, fmt.Sprintf(`
		create table if not exists %[1]s (
			id             bigserial primary key,
			symbol         text        not null,
			price          numeric     not null,
			change         numeric     not null default 0,
			change_percent numeric     not null default 0,
			currency       text        not null default 'USD',
			observed_at    timestamptz not null,
			source         text        not null,
			written_at     timestamptz not null
		);
		create index if not exists %[2]s on %[1]s (symbol, written_at desc);
	`, p.table, pgx.Identifier{p.name + "_symbol_written_at"}.Sanitize()))
	return err
}

func (p *Postgres) Append(ctx context.Context, e Entry) error {
	_, err := p.db.Exec(ctx, fmt.Sprintf(`
		insert into %s (symbol, price, change, change_percent, currency, observed_at, source, written_at)
		values ($1, $2::text::numeric, $3::text::numeric, $4::text::numeric, $5, $6, $7, $8)
	`, p.table), e.Symbol, e.Price.String(), e.Change.String(), e.ChangePercent.String(),
		e.Currency, e.ObservedAt, e.Source, e.WrittenAt)
	return err
}

func (p *Postgres) QueryLatest(ctx context.Context, symbol string) (Entry, bool, error) {
	row := p.db.QueryRow(ctx, fmt.Sprintf(`
		select symbol, price::text, change::text, change_percent::text, currency, observed_at, source, written_at
		from %s
		where symbol = $1
		order by written_at desc, id desc
		limit 1
	`, p.table), symbol)

	var (
		e                  Entry
		price, change, pct string
	)
	err := row.Scan(&e.Symbol, &price, &change, &pct, &e.Currency, &e.ObservedAt, &e.Source, &e.WrittenAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, err
	}
	if e.Price, err = decimal.NewFromString(price); err != nil {
		return Entry{}, false, fmt.Errorf("price for %s: %w", symbol, err)
	}
	if e.Change, err = decimal.NewFromString(change); err != nil {
		return Entry{}, false, fmt.Errorf("change for %s: %w", symbol, err)
	}
	if e.ChangePercent, err = decimal.NewFromString(pct); err != nil {
		return Entry{}, false, fmt.Errorf("change percent for %s: %w", symbol, err)
	}
	e.ObservedAt = e.ObservedAt.UTC()
	e.WrittenAt = e.WrittenAt.UTC()
	return e, true, nil
}

func (p *Postgres) Close() error {
	p.db.Close()
	return nil
}
