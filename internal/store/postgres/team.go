package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/jensholdgaard/auctionboard/internal/clock"
	"github.com/jensholdgaard/auctionboard/internal/store"
)

// TeamRepo implements store.TeamRepository with sqlx. It works over either a
// live connection or a transaction via sqlx.ExtContext.
type TeamRepo struct {
	ext sqlx.ExtContext
	clk clock.Clock
}

// NewTeamRepo returns a new TeamRepo.
func NewTeamRepo(db *sqlx.DB, clk clock.Clock) *TeamRepo {
	return &TeamRepo{ext: db, clk: clk}
}

func (r *TeamRepo) Create(ctx context.Context, t *store.Team) error {
	now := r.clk.Now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now
	_, err := r.ext.ExecContext(ctx,
		`INSERT INTO teams (name, budget, spent, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		t.Name, t.Budget, t.Spent, t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("creating team: %w", mapErr(err))
	}
	return nil
}

func (r *TeamRepo) Get(ctx context.Context, name string) (*store.Team, error) {
	var t store.Team
	err := sqlx.GetContext(ctx, r.ext, &t, `SELECT * FROM teams WHERE name = $1`, name)
	if err != nil {
		return nil, fmt.Errorf("getting team: %w", mapErr(err))
	}
	return &t, nil
}

func (r *TeamRepo) List(ctx context.Context) ([]store.Team, error) {
	var teams []store.Team
	err := sqlx.SelectContext(ctx, r.ext, &teams,
		`SELECT * FROM teams ORDER BY (budget - spent) DESC, name ASC`)
	if err != nil {
		return nil, fmt.Errorf("listing teams: %w", err)
	}
	return teams, nil
}

func (r *TeamRepo) AdjustSpent(ctx context.Context, name string, delta int) error {
	result, err := r.ext.ExecContext(ctx,
		`UPDATE teams SET spent = spent + $1, updated_at = $2 WHERE name = $3`,
		delta, r.clk.Now().UTC(), name,
	)
	if err != nil {
		return fmt.Errorf("adjusting spent: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("team %s: %w", name, store.ErrNotFound)
	}
	return nil
}

func (r *TeamRepo) DeleteAll(ctx context.Context) error {
	if _, err := r.ext.ExecContext(ctx, `DELETE FROM teams`); err != nil {
		return fmt.Errorf("deleting teams: %w", err)
	}
	return nil
}
