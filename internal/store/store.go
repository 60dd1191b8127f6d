package store

import (
	"context"
	"errors"
	"time"
)

// Sentinel errors shared by all store drivers.
var (
	ErrNotFound  = errors.New("entity not found")
	ErrDuplicate = errors.New("entity already exists")
)

// ItemStatus is the lifecycle state of an auction item.
type ItemStatus string

const (
	StatusUnsold  ItemStatus = "unsold"
	StatusOnFloor ItemStatus = "on_floor"
	StatusSold    ItemStatus = "sold"
)

// Category is the role tag assigned to an item.
type Category string

const (
	Batsman      Category = "Batsman"
	Bowler       Category = "Bowler"
	AllRounder   Category = "All-Rounder"
	WicketKeeper Category = "Wicket Keeper"
)

// Categories lists every valid category.
func Categories() []Category {
	return []Category{Batsman, Bowler, AllRounder, WicketKeeper}
}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	switch c {
	case Batsman, Bowler, AllRounder, WicketKeeper:
		return true
	}
	return false
}

// Team is a registered bidder with a fixed budget.
// Invariant: 0 <= Spent <= Budget.
type Team struct {
	Name      string    `db:"name"`
	Budget    int       `db:"budget"`
	Spent     int       `db:"spent"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// Purse returns the remaining spendable amount.
func (t Team) Purse() int { return t.Budget - t.Spent }

// Item is a unit in the auction pool. Items are addressed by their generated
// ID; display names are not required to be unique.
type Item struct {
	ID         string     `db:"id"`
	Name       string     `db:"name"`
	Category   Category   `db:"category"`
	Status     ItemStatus `db:"status"`
	CurrentBid int        `db:"current_bid"`
	BidHolder  *string    `db:"bid_holder"`
	Price      *int       `db:"price"`
	BoughtBy   *string    `db:"bought_by"`
	SaleSeq    *int64     `db:"sale_seq"`
	CreatedAt  time.Time  `db:"created_at"`
	UpdatedAt  time.Time  `db:"updated_at"`
}

// User is an operator credential. PasswordHash is a bcrypt hash, never the
// plaintext password.
type User struct {
	Username     string    `db:"username"`
	PasswordHash string    `db:"password_hash"`
	CreatedAt    time.Time `db:"created_at"`
}

// TeamRepository defines team persistence operations.
type TeamRepository interface {
	Create(ctx context.Context, t *Team) error
	Get(ctx context.Context, name string) (*Team, error)
	List(ctx context.Context) ([]Team, error)
	// AdjustSpent applies a signed delta to the team's spent amount.
	AdjustSpent(ctx context.Context, name string, delta int) error
	DeleteAll(ctx context.Context) error
}

// ItemRepository defines item persistence operations.
type ItemRepository interface {
	Create(ctx context.Context, i *Item) error
	Get(ctx context.Context, id string) (*Item, error)
	Update(ctx context.Context, i *Item) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]Item, error)
	ListByStatus(ctx context.Context, status ItemStatus) ([]Item, error)
	// ListBoughtBy returns the items a team has purchased, in sale order.
	ListBoughtBy(ctx context.Context, team string) ([]Item, error)
	// CurrentFloor returns the single on-floor item, or ErrNotFound.
	CurrentFloor(ctx context.Context) (*Item, error)
	// ListSold returns up to limit sold items, most recent sale first.
	ListSold(ctx context.Context, limit int) ([]Item, error)
	// MaxSaleSeq returns the highest assigned sale sequence number, or 0.
	MaxSaleSeq(ctx context.Context) (int64, error)
	DeleteAll(ctx context.Context) error
}

// UserRepository defines credential persistence operations.
type UserRepository interface {
	Upsert(ctx context.Context, u *User) error
	Get(ctx context.Context, username string) (*User, error)
}

// Tx exposes transaction-scoped repositories. Every write issued through a
// Tx commits or rolls back as a unit; the sale/reversal item+team pair must
// never be split across transactions.
type Tx interface {
	Teams() TeamRepository
	Items() ItemRepository
}

// Transactor runs a function inside a storage transaction. If fn returns an
// error the transaction is rolled back and the error is returned unchanged.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(tx Tx) error) error
}
