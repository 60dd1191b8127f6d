package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/jensholdgaard/auctionboard/internal/clock"
	"github.com/jensholdgaard/auctionboard/internal/store"
)

// ItemRepo implements store.ItemRepository with sqlx.
type ItemRepo struct {
	ext sqlx.ExtContext
	clk clock.Clock
}

// NewItemRepo returns a new ItemRepo.
func NewItemRepo(db *sqlx.DB, clk clock.Clock) *ItemRepo {
	return &ItemRepo{ext: db, clk: clk}
}

func (r *ItemRepo) Create(ctx context.Context, i *store.Item) error {
	now := r.clk.Now().UTC()
	i.CreatedAt = now
	i.UpdatedAt = now
	_, err := r.ext.ExecContext(ctx,
		`INSERT INTO items (id, name, category, status, current_bid, bid_holder, price, bought_by, sale_seq, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		i.ID, i.Name, i.Category, i.Status, i.CurrentBid, i.BidHolder, i.Price, i.BoughtBy, i.SaleSeq, i.CreatedAt, i.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("creating item: %w", mapErr(err))
	}
	return nil
}

func (r *ItemRepo) Get(ctx context.Context, id string) (*store.Item, error) {
	var i store.Item
	err := sqlx.GetContext(ctx, r.ext, &i, `SELECT * FROM items WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("getting item: %w", mapErr(err))
	}
	return &i, nil
}

func (r *ItemRepo) Update(ctx context.Context, i *store.Item) error {
	i.UpdatedAt = r.clk.Now().UTC()
	result, err := r.ext.ExecContext(ctx,
		`UPDATE items
		 SET name = $1, category = $2, status = $3, current_bid = $4,
		     bid_holder = $5, price = $6, bought_by = $7, sale_seq = $8, updated_at = $9
		 WHERE id = $10`,
		i.Name, i.Category, i.Status, i.CurrentBid, i.BidHolder, i.Price, i.BoughtBy, i.SaleSeq, i.UpdatedAt, i.ID,
	)
	if err != nil {
		return fmt.Errorf("updating item: %w", mapErr(err))
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("item %s: %w", i.ID, store.ErrNotFound)
	}
	return nil
}

func (r *ItemRepo) Delete(ctx context.Context, id string) error {
	result, err := r.ext.ExecContext(ctx, `DELETE FROM items WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting item: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("item %s: %w", id, store.ErrNotFound)
	}
	return nil
}

func (r *ItemRepo) List(ctx context.Context) ([]store.Item, error) {
	var items []store.Item
	err := sqlx.SelectContext(ctx, r.ext, &items,
		`SELECT * FROM items ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("listing items: %w", err)
	}
	return items, nil
}

func (r *ItemRepo) ListByStatus(ctx context.Context, status store.ItemStatus) ([]store.Item, error) {
	var items []store.Item
	err := sqlx.SelectContext(ctx, r.ext, &items,
		`SELECT * FROM items WHERE status = $1 ORDER BY created_at ASC, id ASC`, status)
	if err != nil {
		return nil, fmt.Errorf("listing items by status: %w", err)
	}
	return items, nil
}

func (r *ItemRepo) ListBoughtBy(ctx context.Context, team string) ([]store.Item, error) {
	var items []store.Item
	err := sqlx.SelectContext(ctx, r.ext, &items,
		`SELECT * FROM items WHERE bought_by = $1 ORDER BY sale_seq ASC`, team)
	if err != nil {
		return nil, fmt.Errorf("listing items bought by %s: %w", team, err)
	}
	return items, nil
}

func (r *ItemRepo) CurrentFloor(ctx context.Context) (*store.Item, error) {
	var i store.Item
	err := sqlx.GetContext(ctx, r.ext, &i, `SELECT * FROM items WHERE status = $1`, store.StatusOnFloor)
	if err != nil {
		return nil, fmt.Errorf("getting floor item: %w", mapErr(err))
	}
	return &i, nil
}

func (r *ItemRepo) ListSold(ctx context.Context, limit int) ([]store.Item, error) {
	var items []store.Item
	err := sqlx.SelectContext(ctx, r.ext, &items,
		`SELECT * FROM items WHERE status = $1 ORDER BY sale_seq DESC LIMIT $2`,
		store.StatusSold, limit)
	if err != nil {
		return nil, fmt.Errorf("listing sold items: %w", err)
	}
	return items, nil
}

func (r *ItemRepo) MaxSaleSeq(ctx context.Context) (int64, error) {
	var seq int64
	err := sqlx.GetContext(ctx, r.ext, &seq,
		`SELECT COALESCE(MAX(sale_seq), 0) FROM items`)
	if err != nil {
		return 0, fmt.Errorf("getting max sale_seq: %w", err)
	}
	return seq, nil
}

func (r *ItemRepo) DeleteAll(ctx context.Context) error {
	if _, err := r.ext.ExecContext(ctx, `DELETE FROM items`); err != nil {
		return fmt.Errorf("deleting items: %w", err)
	}
	return nil
}
