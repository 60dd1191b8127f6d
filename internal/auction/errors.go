package auction

import (
	"errors"

	"github.com/jensholdgaard/auctionboard/internal/store"
)

// Errors returned by engine operations. Every operation either fully applies
// or fails with one of these and leaves state untouched.
var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrInvalidBudget     = errors.New("budget must be positive")
	ErrDuplicateTeam     = errors.New("team already registered")
	ErrNoSuchTeam        = errors.New("no such team")
	ErrNoSuchItem        = errors.New("no such item")
	ErrNotRemovable      = errors.New("item is not removable unless unsold")
	ErrPoolExhausted     = errors.New("no unsold items left in the pool")
	ErrFloorOccupied     = errors.New("another item is already on the floor")
	ErrItemNotOnFloor    = errors.New("item is not on the floor")
	ErrBidNotIncreasing  = errors.New("bid does not exceed the current bid")
	ErrInsufficientPurse = errors.New("bid exceeds the team's remaining purse")
	ErrNoBidPlaced       = errors.New("no bid has been placed")
	ErrAlreadySold       = errors.New("item is already sold")
	ErrNotSold           = errors.New("item is not sold")
)

// Kind classifies an operation failure for boundary layers (HTTP status
// mapping, operator messages).
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindConflict
	KindResource
	KindNotFound
	KindStorage
)

// Classify maps an engine error to its failure kind. Anything unrecognized
// is treated as a storage/internal failure.
func Classify(err error) Kind {
	switch {
	case err == nil:
		return KindUnknown
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrInvalidBudget):
		return KindValidation
	case errors.Is(err, ErrDuplicateTeam),
		errors.Is(err, ErrNotRemovable),
		errors.Is(err, ErrFloorOccupied),
		errors.Is(err, ErrItemNotOnFloor),
		errors.Is(err, ErrBidNotIncreasing),
		errors.Is(err, ErrNoBidPlaced),
		errors.Is(err, ErrAlreadySold),
		errors.Is(err, ErrNotSold):
		return KindConflict
	case errors.Is(err, ErrInsufficientPurse), errors.Is(err, ErrPoolExhausted):
		return KindResource
	case errors.Is(err, ErrNoSuchItem), errors.Is(err, ErrNoSuchTeam), errors.Is(err, store.ErrNotFound):
		return KindNotFound
	default:
		return KindStorage
	}
}
