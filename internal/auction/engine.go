// Package auction implements the auction state machine: the single owner of
// every team/item transition and of the ledger mutations they cause.
package auction

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/jensholdgaard/auctionboard/internal/event"
	"github.com/jensholdgaard/auctionboard/internal/store"
)

// Engine owns all auction state transitions. Mutations are serialized by a
// mutex and each runs inside a single store transaction, so observers never
// see a half-applied sale or reversal.
type Engine struct {
	mu sync.Mutex

	repos  *store.Repositories
	logger *slog.Logger
	tracer trace.Tracer
	pick   func(n int) int
}

// Option configures an Engine.
type Option func(*Engine)

// WithPick overrides the random index function used by BringRandomToFloor.
func WithPick(pick func(n int) int) Option {
	return func(e *Engine) { e.pick = pick }
}

// NewEngine creates a new auction Engine.
func NewEngine(repos *store.Repositories, logger *slog.Logger, tp trace.TracerProvider, opts ...Option) *Engine {
	e := &Engine{
		repos:  repos,
		logger: logger,
		tracer: tp.Tracer("github.com/jensholdgaard/auctionboard/internal/auction"),
		pick:   rand.IntN,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// RegisterTeam creates a new team with spent=0.
func (e *Engine) RegisterTeam(ctx context.Context, name string, budget int) (*store.Team, error) {
	ctx, span := e.tracer.Start(ctx, "Engine.RegisterTeam",
		trace.WithAttributes(
			attribute.String("team", name),
			attribute.Int("budget", budget),
		),
	)
	defer span.End()

	if name == "" {
		return nil, ErrInvalidInput
	}
	if budget <= 0 {
		return nil, ErrInvalidBudget
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	team := &store.Team{Name: name, Budget: budget, Spent: 0}
	err := e.repos.Tx.WithinTx(ctx, func(tx store.Tx) error {
		if _, getErr := tx.Teams().Get(ctx, name); getErr == nil {
			return ErrDuplicateTeam
		} else if !errors.Is(getErr, store.ErrNotFound) {
			return getErr
		}
		if createErr := tx.Teams().Create(ctx, team); createErr != nil {
			if errors.Is(createErr, store.ErrDuplicate) {
				return ErrDuplicateTeam
			}
			return createErr
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.appendEvent(ctx, name, event.TeamRegistered, event.TeamRegisteredData{
		Name:   name,
		Budget: budget,
	})
	e.logger.InfoContext(ctx, "team registered",
		slog.String("team", name),
		slog.Int("budget", budget),
	)
	return team, nil
}

// AddItem appends an unsold item to the pool. Display names may repeat;
// callers disambiguate by the returned ID.
func (e *Engine) AddItem(ctx context.Context, name string, category store.Category) (*store.Item, error) {
	ctx, span := e.tracer.Start(ctx, "Engine.AddItem",
		trace.WithAttributes(
			attribute.String("item", name),
			attribute.String("category", string(category)),
		),
	)
	defer span.End()

	if name == "" || !category.Valid() {
		return nil, ErrInvalidInput
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	item := &store.Item{
		ID:       uuid.NewString(),
		Name:     name,
		Category: category,
		Status:   store.StatusUnsold,
	}
	err := e.repos.Tx.WithinTx(ctx, func(tx store.Tx) error {
		return tx.Items().Create(ctx, item)
	})
	if err != nil {
		return nil, fmt.Errorf("creating item: %w", err)
	}

	e.appendEvent(ctx, item.ID, event.ItemAdded, event.ItemData{
		Name:     name,
		Category: string(category),
	})
	e.logger.InfoContext(ctx, "item added to pool",
		slog.String("item_id", item.ID),
		slog.String("item", name),
		slog.String("category", string(category)),
	)
	return item, nil
}

// RemoveItem deletes an item from the pool. Only unsold items are removable.
func (e *Engine) RemoveItem(ctx context.Context, id string) error {
	ctx, span := e.tracer.Start(ctx, "Engine.RemoveItem",
		trace.WithAttributes(attribute.String("item_id", id)),
	)
	defer span.End()

	e.mu.Lock()
	defer e.mu.Unlock()

	var removed *store.Item
	err := e.repos.Tx.WithinTx(ctx, func(tx store.Tx) error {
		item, getErr := tx.Items().Get(ctx, id)
		if getErr != nil {
			if errors.Is(getErr, store.ErrNotFound) {
				return ErrNoSuchItem
			}
			return getErr
		}
		if item.Status != store.StatusUnsold {
			return ErrNotRemovable
		}
		removed = item
		return tx.Items().Delete(ctx, id)
	})
	if err != nil {
		return err
	}

	e.appendEvent(ctx, id, event.ItemRemoved, event.ItemData{
		Name:     removed.Name,
		Category: string(removed.Category),
	})
	e.logger.InfoContext(ctx, "item removed from pool",
		slog.String("item_id", id),
		slog.String("item", removed.Name),
	)
	return nil
}

// BringToFloor opens bidding on a specific unsold item. Fails if any item is
// already on the floor.
func (e *Engine) BringToFloor(ctx context.Context, id string) (*store.Item, error) {
	ctx, span := e.tracer.Start(ctx, "Engine.BringToFloor",
		trace.WithAttributes(attribute.String("item_id", id)),
	)
	defer span.End()

	e.mu.Lock()
	defer e.mu.Unlock()

	var item *store.Item
	err := e.repos.Tx.WithinTx(ctx, func(tx store.Tx) error {
		if floorErr := e.requireEmptyFloor(ctx, tx); floorErr != nil {
			return floorErr
		}
		got, getErr := tx.Items().Get(ctx, id)
		if getErr != nil {
			if errors.Is(getErr, store.ErrNotFound) {
				return ErrNoSuchItem
			}
			return getErr
		}
		if got.Status == store.StatusSold {
			return ErrAlreadySold
		}
		item = got
		return e.openFloor(ctx, tx, item)
	})
	if err != nil {
		return nil, err
	}

	e.recordFloorOpened(ctx, item, false)
	return item, nil
}

// BringRandomToFloor opens bidding on an item drawn uniformly from the
// unsold set as it exists inside the transaction, not a stale snapshot.
func (e *Engine) BringRandomToFloor(ctx context.Context) (*store.Item, error) {
	ctx, span := e.tracer.Start(ctx, "Engine.BringRandomToFloor")
	defer span.End()

	e.mu.Lock()
	defer e.mu.Unlock()

	var item *store.Item
	err := e.repos.Tx.WithinTx(ctx, func(tx store.Tx) error {
		if floorErr := e.requireEmptyFloor(ctx, tx); floorErr != nil {
			return floorErr
		}
		unsold, listErr := tx.Items().ListByStatus(ctx, store.StatusUnsold)
		if listErr != nil {
			return listErr
		}
		if len(unsold) == 0 {
			return ErrPoolExhausted
		}
		item = &unsold[e.pick(len(unsold))]
		return e.openFloor(ctx, tx, item)
	})
	if err != nil {
		return nil, err
	}

	e.recordFloorOpened(ctx, item, true)
	return item, nil
}

// PlaceBid records a higher bid on the floor item. No money moves: funds are
// reserved only at sale time, so bids can be out-bid freely.
func (e *Engine) PlaceBid(ctx context.Context, id, team string, amount int) (*store.Item, error) {
	ctx, span := e.tracer.Start(ctx, "Engine.PlaceBid",
		trace.WithAttributes(
			attribute.String("item_id", id),
			attribute.String("team", team),
			attribute.Int("amount", amount),
		),
	)
	defer span.End()

	e.mu.Lock()
	defer e.mu.Unlock()

	var item *store.Item
	err := e.repos.Tx.WithinTx(ctx, func(tx store.Tx) error {
		got, getErr := tx.Items().Get(ctx, id)
		if getErr != nil {
			if errors.Is(getErr, store.ErrNotFound) {
				return ErrNoSuchItem
			}
			return getErr
		}
		if got.Status != store.StatusOnFloor {
			return ErrItemNotOnFloor
		}
		bidder, teamErr := tx.Teams().Get(ctx, team)
		if teamErr != nil {
			if errors.Is(teamErr, store.ErrNotFound) {
				return ErrNoSuchTeam
			}
			return teamErr
		}
		if amount <= got.CurrentBid {
			return ErrBidNotIncreasing
		}
		if amount > bidder.Purse() {
			return ErrInsufficientPurse
		}

		got.CurrentBid = amount
		got.BidHolder = &bidder.Name
		item = got
		return tx.Items().Update(ctx, got)
	})
	if err != nil {
		return nil, err
	}

	e.appendEvent(ctx, id, event.BidPlaced, event.BidPlacedData{Team: team, Amount: amount})
	e.logger.InfoContext(ctx, "bid placed",
		slog.String("item_id", id),
		slog.String("team", team),
		slog.Int("amount", amount),
	)
	return item, nil
}

// FinalizeSale commits the current bid: the item becomes sold and the
// holder's spent is debited in the same transaction.
func (e *Engine) FinalizeSale(ctx context.Context, id string) (*store.Item, error) {
	ctx, span := e.tracer.Start(ctx, "Engine.FinalizeSale",
		trace.WithAttributes(attribute.String("item_id", id)),
	)
	defer span.End()

	e.mu.Lock()
	defer e.mu.Unlock()

	var item *store.Item
	err := e.repos.Tx.WithinTx(ctx, func(tx store.Tx) error {
		got, getErr := tx.Items().Get(ctx, id)
		if getErr != nil {
			if errors.Is(getErr, store.ErrNotFound) {
				return ErrNoSuchItem
			}
			return getErr
		}
		if got.Status == store.StatusSold {
			return ErrAlreadySold
		}
		if got.Status != store.StatusOnFloor {
			return ErrItemNotOnFloor
		}
		if got.BidHolder == nil {
			return ErrNoBidPlaced
		}

		buyer, teamErr := tx.Teams().Get(ctx, *got.BidHolder)
		if teamErr != nil {
			return teamErr
		}
		price := got.CurrentBid
		if price > buyer.Purse() {
			return ErrInsufficientPurse
		}
		seq, seqErr := tx.Items().MaxSaleSeq(ctx)
		if seqErr != nil {
			return seqErr
		}
		seq++

		got.Status = store.StatusSold
		got.Price = &price
		got.BoughtBy = got.BidHolder
		got.SaleSeq = &seq
		if updErr := tx.Items().Update(ctx, got); updErr != nil {
			return updErr
		}
		item = got
		return tx.Teams().AdjustSpent(ctx, buyer.Name, price)
	})
	if err != nil {
		return nil, err
	}

	e.appendEvent(ctx, id, event.SaleFinalized, event.SaleData{Team: *item.BoughtBy, Price: *item.Price})
	e.logger.InfoContext(ctx, "sale finalized",
		slog.String("item_id", id),
		slog.String("item", item.Name),
		slog.String("team", *item.BoughtBy),
		slog.Int("price", *item.Price),
	)
	return item, nil
}

// PassItem returns the floor item to the unsold pool. No money moves.
func (e *Engine) PassItem(ctx context.Context, id string) error {
	ctx, span := e.tracer.Start(ctx, "Engine.PassItem",
		trace.WithAttributes(attribute.String("item_id", id)),
	)
	defer span.End()

	e.mu.Lock()
	defer e.mu.Unlock()

	var name string
	err := e.repos.Tx.WithinTx(ctx, func(tx store.Tx) error {
		got, getErr := tx.Items().Get(ctx, id)
		if getErr != nil {
			if errors.Is(getErr, store.ErrNotFound) {
				return ErrNoSuchItem
			}
			return getErr
		}
		if got.Status != store.StatusOnFloor {
			return ErrItemNotOnFloor
		}
		name = got.Name
		clearBidState(got)
		got.Status = store.StatusUnsold
		return tx.Items().Update(ctx, got)
	})
	if err != nil {
		return err
	}

	e.appendEvent(ctx, id, event.FloorPassed, event.FloorOpenedData{ItemName: name})
	e.logger.InfoContext(ctx, "item passed",
		slog.String("item_id", id),
		slog.String("item", name),
	)
	return nil
}

// ReverseSale is the administrative inverse of FinalizeSale: the buyer is
// refunded the exact recorded price and the item returns to the pool.
func (e *Engine) ReverseSale(ctx context.Context, id string) error {
	ctx, span := e.tracer.Start(ctx, "Engine.ReverseSale",
		trace.WithAttributes(attribute.String("item_id", id)),
	)
	defer span.End()

	e.mu.Lock()
	defer e.mu.Unlock()

	var buyer string
	var price int
	err := e.repos.Tx.WithinTx(ctx, func(tx store.Tx) error {
		got, getErr := tx.Items().Get(ctx, id)
		if getErr != nil {
			if errors.Is(getErr, store.ErrNotFound) {
				return ErrNoSuchItem
			}
			return getErr
		}
		if got.Status != store.StatusSold || got.BoughtBy == nil || got.Price == nil {
			return ErrNotSold
		}
		buyer = *got.BoughtBy
		price = *got.Price

		if refundErr := tx.Teams().AdjustSpent(ctx, buyer, -price); refundErr != nil {
			return refundErr
		}
		clearBidState(got)
		got.Status = store.StatusUnsold
		return tx.Items().Update(ctx, got)
	})
	if err != nil {
		return err
	}

	e.appendEvent(ctx, id, event.SaleReversed, event.SaleData{Team: buyer, Price: price})
	e.logger.InfoContext(ctx, "sale reversed",
		slog.String("item_id", id),
		slog.String("team", buyer),
		slog.Int("refund", price),
	)
	return nil
}

// Reset clears all teams and items. Irreversible; confirmation is the
// caller's responsibility.
func (e *Engine) Reset(ctx context.Context) error {
	ctx, span := e.tracer.Start(ctx, "Engine.Reset")
	defer span.End()

	e.mu.Lock()
	defer e.mu.Unlock()

	err := e.repos.Tx.WithinTx(ctx, func(tx store.Tx) error {
		if delErr := tx.Items().DeleteAll(ctx); delErr != nil {
			return delErr
		}
		return tx.Teams().DeleteAll(ctx)
	})
	if err != nil {
		return fmt.Errorf("resetting auction: %w", err)
	}

	e.appendEvent(ctx, "auction", event.AuctionReset, struct{}{})
	e.logger.InfoContext(ctx, "auction reset")
	return nil
}

// requireEmptyFloor fails with ErrFloorOccupied if any item is on the floor.
func (e *Engine) requireEmptyFloor(ctx context.Context, tx store.Tx) error {
	_, err := tx.Items().CurrentFloor(ctx)
	switch {
	case err == nil:
		return ErrFloorOccupied
	case errors.Is(err, store.ErrNotFound):
		return nil
	default:
		return err
	}
}

func (e *Engine) openFloor(ctx context.Context, tx store.Tx, item *store.Item) error {
	clearBidState(item)
	item.Status = store.StatusOnFloor
	return tx.Items().Update(ctx, item)
}

func clearBidState(item *store.Item) {
	item.CurrentBid = 0
	item.BidHolder = nil
	item.Price = nil
	item.BoughtBy = nil
	item.SaleSeq = nil
}

func (e *Engine) recordFloorOpened(ctx context.Context, item *store.Item, random bool) {
	e.appendEvent(ctx, item.ID, event.FloorOpened, event.FloorOpenedData{
		ItemName: item.Name,
		Random:   random,
	})
	e.logger.InfoContext(ctx, "item on the floor",
		slog.String("item_id", item.ID),
		slog.String("item", item.Name),
		slog.Bool("random", random),
	)
}

// appendEvent persists a domain event after a committed transition. Failures
// are logged, never surfaced: the ledger is the source of truth.
func (e *Engine) appendEvent(ctx context.Context, aggregateID string, t event.Type, data any) {
	raw, _ := json.Marshal(data)
	evt := event.Event{
		AggregateID: aggregateID,
		Type:        t,
		Data:        raw,
	}
	if err := e.repos.Events.Append(ctx, evt); err != nil {
		e.logger.ErrorContext(ctx, "failed to append event",
			slog.String("type", string(t)),
			slog.Any("error", err),
		)
	}
}
