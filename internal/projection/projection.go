// Package projection derives read-only summaries from ledger state. It never
// mutates; every query runs inside a single read transaction so observers
// cannot see a half-applied sale.
package projection

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/jensholdgaard/auctionboard/internal/store"
)

// Standing is one row of the standings board.
type Standing struct {
	Team           string `json:"team"`
	PlayersBought  int    `json:"players_bought"`
	Spent          int    `json:"spent"`
	RemainingPurse int    `json:"remaining_purse"`
}

// Snapshot bundles everything an observer needs in one consistent read.
type Snapshot struct {
	Standings   []Standing   `json:"standings"`
	CurrentItem *store.Item  `json:"current_item,omitempty"`
	RecentSales []store.Item `json:"recent_sales"`
	Pool        []store.Item `json:"pool"`
}

// Projector computes observer views from the ledger.
type Projector struct {
	repos  *store.Repositories
	tracer trace.Tracer
}

// New returns a Projector over the given repositories.
func New(repos *store.Repositories, tp trace.TracerProvider) *Projector {
	return &Projector{
		repos:  repos,
		tracer: tp.Tracer("github.com/jensholdgaard/auctionboard/internal/projection"),
	}
}

// Standings returns one row per team, richest remaining purse first, ties
// broken by name.
func (p *Projector) Standings(ctx context.Context) ([]Standing, error) {
	ctx, span := p.tracer.Start(ctx, "Projector.Standings")
	defer span.End()

	var out []Standing
	err := p.repos.Tx.WithinTx(ctx, func(tx store.Tx) error {
		var txErr error
		out, txErr = standings(ctx, tx)
		return txErr
	})
	return out, err
}

// CurrentItem returns the item on the floor, or nil when the floor is empty.
func (p *Projector) CurrentItem(ctx context.Context) (*store.Item, error) {
	ctx, span := p.tracer.Start(ctx, "Projector.CurrentItem")
	defer span.End()

	item, err := p.repos.Items.CurrentFloor(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return item, nil
}

// RecentSales returns the last n sold items, most recent first.
func (p *Projector) RecentSales(ctx context.Context, n int) ([]store.Item, error) {
	ctx, span := p.tracer.Start(ctx, "Projector.RecentSales",
		trace.WithAttributes(attribute.Int("limit", n)),
	)
	defer span.End()

	return p.repos.Items.ListSold(ctx, n)
}

// Pool returns every item with its current status.
func (p *Projector) Pool(ctx context.Context) ([]store.Item, error) {
	ctx, span := p.tracer.Start(ctx, "Projector.Pool")
	defer span.End()

	return p.repos.Items.List(ctx)
}

// Squad returns a team together with the items it has bought, in sale order.
func (p *Projector) Squad(ctx context.Context, team string) (*store.Team, []store.Item, error) {
	ctx, span := p.tracer.Start(ctx, "Projector.Squad",
		trace.WithAttributes(attribute.String("team", team)),
	)
	defer span.End()

	var (
		t     *store.Team
		items []store.Item
	)
	err := p.repos.Tx.WithinTx(ctx, func(tx store.Tx) error {
		var txErr error
		if t, txErr = tx.Teams().Get(ctx, team); txErr != nil {
			return txErr
		}
		items, txErr = tx.Items().ListBoughtBy(ctx, team)
		return txErr
	})
	if err != nil {
		return nil, nil, err
	}
	return t, items, nil
}

// SnapshotAll computes every observer view inside one read transaction.
func (p *Projector) SnapshotAll(ctx context.Context, recentSales int) (*Snapshot, error) {
	ctx, span := p.tracer.Start(ctx, "Projector.SnapshotAll")
	defer span.End()

	snap := &Snapshot{}
	err := p.repos.Tx.WithinTx(ctx, func(tx store.Tx) error {
		var txErr error
		if snap.Standings, txErr = standings(ctx, tx); txErr != nil {
			return txErr
		}
		current, floorErr := tx.Items().CurrentFloor(ctx)
		if floorErr != nil && !isNotFound(floorErr) {
			return floorErr
		}
		snap.CurrentItem = current
		if snap.RecentSales, txErr = tx.Items().ListSold(ctx, recentSales); txErr != nil {
			return txErr
		}
		snap.Pool, txErr = tx.Items().List(ctx)
		return txErr
	})
	if err != nil {
		return nil, err
	}
	return snap, nil
}

func standings(ctx context.Context, tx store.Tx) ([]Standing, error) {
	teams, err := tx.Teams().List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Standing, 0, len(teams))
	for _, t := range teams {
		bought, listErr := tx.Items().ListBoughtBy(ctx, t.Name)
		if listErr != nil {
			return nil, listErr
		}
		out = append(out, Standing{
			Team:           t.Name,
			PlayersBought:  len(bought),
			Spent:          t.Spent,
			RemainingPurse: t.Purse(),
		})
	}
	return out, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, store.ErrNotFound)
}
