package event

import (
	"encoding/json"
	"time"
)

// Type identifies an event kind.
type Type string

const (
	TeamRegistered Type = "team.registered"

	ItemAdded   Type = "item.added"
	ItemRemoved Type = "item.removed"

	FloorOpened Type = "floor.opened"
	FloorPassed Type = "floor.passed"

	BidPlaced     Type = "auction.bid_placed"
	SaleFinalized Type = "auction.sale_finalized"
	SaleReversed  Type = "auction.sale_reversed"
	AuctionReset  Type = "auction.reset"
)

// Event represents a single domain event.
type Event struct {
	ID          string          `json:"id" db:"id"`
	AggregateID string          `json:"aggregate_id" db:"aggregate_id"`
	Type        Type            `json:"type" db:"type"`
	Data        json.RawMessage `json:"data" db:"data"`
	Version     int             `json:"version" db:"version"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
}

// TeamRegisteredData is the payload for TeamRegistered events.
type TeamRegisteredData struct {
	Name   string `json:"name"`
	Budget int    `json:"budget"`
}

// ItemData is the payload for ItemAdded and ItemRemoved events.
type ItemData struct {
	Name     string `json:"name"`
	Category string `json:"category"`
}

// FloorOpenedData is the payload for FloorOpened events.
type FloorOpenedData struct {
	ItemName string `json:"item_name"`
	Random   bool   `json:"random"`
}

// BidPlacedData is the payload for BidPlaced events.
type BidPlacedData struct {
	Team   string `json:"team"`
	Amount int    `json:"amount"`
}

// SaleData is the payload for SaleFinalized and SaleReversed events.
type SaleData struct {
	Team  string `json:"team"`
	Price int    `json:"price"`
}
