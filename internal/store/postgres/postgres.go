// Package postgres provides the "postgres" store.Driver: sqlx over lib/pq
// with OTEL instrumentation via otelsql.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/XSAM/otelsql"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/jensholdgaard/auctionboard/internal/clock"
	"github.com/jensholdgaard/auctionboard/internal/config"
	"github.com/jensholdgaard/auctionboard/internal/store"
)

func init() {
	store.Register("postgres", open)
}

func open(ctx context.Context, cfg config.DatabaseConfig, clk clock.Clock) (*store.Repositories, error) {
	db, err := Connect(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return NewRepositories(db, clk), nil
}

// NewRepositories wires all repositories over an open connection.
func NewRepositories(db *sqlx.DB, clk clock.Clock) *store.Repositories {
	return &store.Repositories{
		Teams:  NewTeamRepo(db, clk),
		Items:  NewItemRepo(db, clk),
		Users:  NewUserRepo(db, clk),
		Events: NewEventStore(db),
		Tx:     NewTransactor(db, clk),
		Closer: db,
		Ping:   db.PingContext,
	}
}

// Connect opens and verifies a Postgres connection with OTEL instrumentation.
func Connect(ctx context.Context, cfg config.DatabaseConfig) (*sqlx.DB, error) {
	dsn := cfg.DSN()

	// Register the OTel-instrumented driver wrapping lib/pq.
	driverName, err := otelsql.Register("postgres",
		otelsql.WithAttributes(semconv.DBSystemPostgreSQL),
	)
	if err != nil {
		return nil, fmt.Errorf("registering otel driver: %w", err)
	}

	db, err := sqlx.ConnectContext(ctx, driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return db, nil
}

// Transactor implements store.Transactor over sqlx transactions.
type Transactor struct {
	db  *sqlx.DB
	clk clock.Clock
}

// NewTransactor returns a new Transactor.
func NewTransactor(db *sqlx.DB, clk clock.Clock) *Transactor {
	return &Transactor{db: db, clk: clk}
}

// WithinTx runs fn inside a single database transaction.
func (t *Transactor) WithinTx(ctx context.Context, fn func(tx store.Tx) error) error {
	sqlTx, err := t.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead})
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = sqlTx.Rollback() }()

	if err := fn(&pgTx{tx: sqlTx, clk: t.clk}); err != nil {
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

type pgTx struct {
	tx  *sqlx.Tx
	clk clock.Clock
}

func (t *pgTx) Teams() store.TeamRepository { return &TeamRepo{ext: t.tx, clk: t.clk} }
func (t *pgTx) Items() store.ItemRepository { return &ItemRepo{ext: t.tx, clk: t.clk} }

// mapErr translates driver-level errors to the store sentinels.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return store.ErrDuplicate
	}
	return err
}
