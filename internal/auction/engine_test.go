package auction_test

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"go.opentelemetry.io/otel/trace/noop"

	"github.com/jensholdgaard/auctionboard/internal/auction"
	"github.com/jensholdgaard/auctionboard/internal/clock"
	"github.com/jensholdgaard/auctionboard/internal/event"
	"github.com/jensholdgaard/auctionboard/internal/store"
	"github.com/jensholdgaard/auctionboard/internal/store/memstore"
)

func newTestEngine(t *testing.T, opts ...auction.Option) (*auction.Engine, *store.Repositories) {
	t.Helper()
	clk := clock.NewMock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	repos := memstore.Open(clk)
	eng := auction.NewEngine(repos, slog.Default(), noop.NewTracerProvider(), opts...)
	return eng, repos
}

func TestEngine_RegisterTeam(t *testing.T) {
	eng, repos := newTestEngine(t)

	team, err := eng.RegisterTeam(context.Background(), "Mumbai Kings", 10000)
	if err != nil {
		t.Fatalf("RegisterTeam() error = %v", err)
	}
	if team.Budget != 10000 || team.Spent != 0 {
		t.Errorf("team = budget %d spent %d, want budget 10000 spent 0", team.Budget, team.Spent)
	}
	if team.Purse() != 10000 {
		t.Errorf("Purse() = %d, want 10000", team.Purse())
	}

	events, err := repos.Events.LoadByType(context.Background(), event.TeamRegistered)
	if err != nil {
		t.Fatalf("LoadByType() error = %v", err)
	}
	if len(events) != 1 {
		t.Errorf("team.registered events = %d, want 1", len(events))
	}
}

func TestEngine_RegisterTeam_Duplicate(t *testing.T) {
	eng, _ := newTestEngine(t)

	if _, err := eng.RegisterTeam(context.Background(), "Kings", 5000); err != nil {
		t.Fatalf("RegisterTeam() error = %v", err)
	}
	_, err := eng.RegisterTeam(context.Background(), "Kings", 8000)
	if !errors.Is(err, auction.ErrDuplicateTeam) {
		t.Errorf("RegisterTeam() error = %v, want ErrDuplicateTeam", err)
	}
}

func TestEngine_RegisterTeam_Invalid(t *testing.T) {
	eng, _ := newTestEngine(t)

	if _, err := eng.RegisterTeam(context.Background(), "", 5000); !errors.Is(err, auction.ErrInvalidInput) {
		t.Errorf("empty name error = %v, want ErrInvalidInput", err)
	}
	if _, err := eng.RegisterTeam(context.Background(), "Kings", 0); !errors.Is(err, auction.ErrInvalidBudget) {
		t.Errorf("zero budget error = %v, want ErrInvalidBudget", err)
	}
	if _, err := eng.RegisterTeam(context.Background(), "Kings", -100); !errors.Is(err, auction.ErrInvalidBudget) {
		t.Errorf("negative budget error = %v, want ErrInvalidBudget", err)
	}
}

func TestEngine_AddItem(t *testing.T) {
	eng, _ := newTestEngine(t)

	item, err := eng.AddItem(context.Background(), "Arjun Patel", store.Batsman)
	if err != nil {
		t.Fatalf("AddItem() error = %v", err)
	}
	if item.ID == "" {
		t.Error("expected a generated item ID")
	}
	if item.Status != store.StatusUnsold {
		t.Errorf("Status = %q, want %q", item.Status, store.StatusUnsold)
	}
	if item.CurrentBid != 0 || item.BidHolder != nil {
		t.Errorf("new item carries bid state: bid=%d holder=%v", item.CurrentBid, item.BidHolder)
	}
}

func TestEngine_AddItem_InvalidCategory(t *testing.T) {
	eng, _ := newTestEngine(t)

	if _, err := eng.AddItem(context.Background(), "Arjun Patel", store.Category("Coach")); !errors.Is(err, auction.ErrInvalidInput) {
		t.Errorf("AddItem() error = %v, want ErrInvalidInput", err)
	}
	if _, err := eng.AddItem(context.Background(), "", store.Bowler); !errors.Is(err, auction.ErrInvalidInput) {
		t.Errorf("AddItem() error = %v, want ErrInvalidInput", err)
	}
}

func TestEngine_AddItem_DuplicateNamesAllowed(t *testing.T) {
	eng, _ := newTestEngine(t)

	a, err := eng.AddItem(context.Background(), "Rohit Kumar", store.Bowler)
	if err != nil {
		t.Fatalf("AddItem() error = %v", err)
	}
	b, err := eng.AddItem(context.Background(), "Rohit Kumar", store.Bowler)
	if err != nil {
		t.Fatalf("AddItem() second error = %v", err)
	}
	if a.ID == b.ID {
		t.Error("expected distinct IDs for same display name")
	}
}

func TestEngine_RemoveItem(t *testing.T) {
	eng, repos := newTestEngine(t)

	item, _ := eng.AddItem(context.Background(), "Arjun Patel", store.Batsman)
	if err := eng.RemoveItem(context.Background(), item.ID); err != nil {
		t.Fatalf("RemoveItem() error = %v", err)
	}
	if _, err := repos.Items.Get(context.Background(), item.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Get() after remove error = %v, want store.ErrNotFound", err)
	}
}

func TestEngine_RemoveItem_OnFloor(t *testing.T) {
	eng, _ := newTestEngine(t)

	item, _ := eng.AddItem(context.Background(), "Arjun Patel", store.Batsman)
	if _, err := eng.BringToFloor(context.Background(), item.ID); err != nil {
		t.Fatalf("BringToFloor() error = %v", err)
	}
	if err := eng.RemoveItem(context.Background(), item.ID); !errors.Is(err, auction.ErrNotRemovable) {
		t.Errorf("RemoveItem() error = %v, want ErrNotRemovable", err)
	}
}

func TestEngine_RemoveItem_NotFound(t *testing.T) {
	eng, _ := newTestEngine(t)

	if err := eng.RemoveItem(context.Background(), "no-such-id"); !errors.Is(err, auction.ErrNoSuchItem) {
		t.Errorf("RemoveItem() error = %v, want ErrNoSuchItem", err)
	}
}

func TestEngine_BringToFloor(t *testing.T) {
	eng, repos := newTestEngine(t)

	item, _ := eng.AddItem(context.Background(), "Arjun Patel", store.Batsman)
	got, err := eng.BringToFloor(context.Background(), item.ID)
	if err != nil {
		t.Fatalf("BringToFloor() error = %v", err)
	}
	if got.Status != store.StatusOnFloor {
		t.Errorf("Status = %q, want %q", got.Status, store.StatusOnFloor)
	}

	floor, err := repos.Items.CurrentFloor(context.Background())
	if err != nil {
		t.Fatalf("CurrentFloor() error = %v", err)
	}
	if floor.ID != item.ID {
		t.Errorf("CurrentFloor() = %q, want %q", floor.ID, item.ID)
	}
}

func TestEngine_BringToFloor_Occupied(t *testing.T) {
	eng, _ := newTestEngine(t)

	first, _ := eng.AddItem(context.Background(), "Arjun Patel", store.Batsman)
	second, _ := eng.AddItem(context.Background(), "Rohit Kumar", store.Bowler)

	if _, err := eng.BringToFloor(context.Background(), first.ID); err != nil {
		t.Fatalf("BringToFloor() error = %v", err)
	}
	if _, err := eng.BringToFloor(context.Background(), second.ID); !errors.Is(err, auction.ErrFloorOccupied) {
		t.Errorf("BringToFloor() error = %v, want ErrFloorOccupied", err)
	}
}

func TestEngine_BringToFloor_Sold(t *testing.T) {
	eng, _ := newTestEngine(t)
	item := sellItem(t, eng, "Kings", 10000, "Arjun Patel", 4000)

	if _, err := eng.BringToFloor(context.Background(), item.ID); !errors.Is(err, auction.ErrAlreadySold) {
		t.Errorf("BringToFloor() error = %v, want ErrAlreadySold", err)
	}
}

func TestEngine_BringRandomToFloor(t *testing.T) {
	// Deterministic pick: always choose the last unsold item.
	eng, _ := newTestEngine(t, auction.WithPick(func(n int) int { return n - 1 }))

	_, _ = eng.AddItem(context.Background(), "Arjun Patel", store.Batsman)
	second, _ := eng.AddItem(context.Background(), "Rohit Kumar", store.Bowler)

	got, err := eng.BringRandomToFloor(context.Background())
	if err != nil {
		t.Fatalf("BringRandomToFloor() error = %v", err)
	}
	if got.ID != second.ID {
		t.Errorf("picked %q, want %q", got.ID, second.ID)
	}
	if got.Status != store.StatusOnFloor {
		t.Errorf("Status = %q, want %q", got.Status, store.StatusOnFloor)
	}
}

func TestEngine_BringRandomToFloor_PoolExhausted(t *testing.T) {
	eng, _ := newTestEngine(t)

	if _, err := eng.BringRandomToFloor(context.Background()); !errors.Is(err, auction.ErrPoolExhausted) {
		t.Errorf("BringRandomToFloor() error = %v, want ErrPoolExhausted", err)
	}
}

func TestEngine_BringRandomToFloor_SkipsSold(t *testing.T) {
	eng, _ := newTestEngine(t, auction.WithPick(func(n int) int { return 0 }))
	sellItem(t, eng, "Kings", 10000, "Arjun Patel", 4000)
	remaining, _ := eng.AddItem(context.Background(), "Rohit Kumar", store.Bowler)

	got, err := eng.BringRandomToFloor(context.Background())
	if err != nil {
		t.Fatalf("BringRandomToFloor() error = %v", err)
	}
	if got.ID != remaining.ID {
		t.Errorf("picked %q, want the only unsold item %q", got.ID, remaining.ID)
	}
}

func TestEngine_PlaceBid_Sequence(t *testing.T) {
	eng, _ := newTestEngine(t)

	_, _ = eng.RegisterTeam(context.Background(), "Team A", 1000)
	_, _ = eng.RegisterTeam(context.Background(), "Team B", 1000)
	item, _ := eng.AddItem(context.Background(), "Arjun Patel", store.Batsman)
	if _, err := eng.BringToFloor(context.Background(), item.ID); err != nil {
		t.Fatalf("BringToFloor() error = %v", err)
	}

	got, err := eng.PlaceBid(context.Background(), item.ID, "Team A", 100)
	if err != nil {
		t.Fatalf("PlaceBid(A, 100) error = %v", err)
	}
	if got.CurrentBid != 100 || got.BidHolder == nil || *got.BidHolder != "Team A" {
		t.Errorf("after first bid: bid=%d holder=%v", got.CurrentBid, got.BidHolder)
	}

	// Not strictly higher than the standing bid.
	if _, err := eng.PlaceBid(context.Background(), item.ID, "Team B", 50); !errors.Is(err, auction.ErrBidNotIncreasing) {
		t.Errorf("PlaceBid(B, 50) error = %v, want ErrBidNotIncreasing", err)
	}
	if _, err := eng.PlaceBid(context.Background(), item.ID, "Team B", 100); !errors.Is(err, auction.ErrBidNotIncreasing) {
		t.Errorf("PlaceBid(B, 100) error = %v, want ErrBidNotIncreasing", err)
	}

	// Beyond the bidder's remaining purse.
	if _, err := eng.PlaceBid(context.Background(), item.ID, "Team B", 1500); !errors.Is(err, auction.ErrInsufficientPurse) {
		t.Errorf("PlaceBid(B, 1500) error = %v, want ErrInsufficientPurse", err)
	}

	got, err = eng.PlaceBid(context.Background(), item.ID, "Team B", 200)
	if err != nil {
		t.Fatalf("PlaceBid(B, 200) error = %v", err)
	}
	if got.CurrentBid != 200 || *got.BidHolder != "Team B" {
		t.Errorf("after outbid: bid=%d holder=%q", got.CurrentBid, *got.BidHolder)
	}
}

func TestEngine_PlaceBid_NotOnFloor(t *testing.T) {
	eng, _ := newTestEngine(t)

	_, _ = eng.RegisterTeam(context.Background(), "Kings", 1000)
	item, _ := eng.AddItem(context.Background(), "Arjun Patel", store.Batsman)

	if _, err := eng.PlaceBid(context.Background(), item.ID, "Kings", 100); !errors.Is(err, auction.ErrItemNotOnFloor) {
		t.Errorf("PlaceBid() error = %v, want ErrItemNotOnFloor", err)
	}
}

func TestEngine_PlaceBid_UnknownTeam(t *testing.T) {
	eng, _ := newTestEngine(t)

	item, _ := eng.AddItem(context.Background(), "Arjun Patel", store.Batsman)
	_, _ = eng.BringToFloor(context.Background(), item.ID)

	if _, err := eng.PlaceBid(context.Background(), item.ID, "Nobody", 100); !errors.Is(err, auction.ErrNoSuchTeam) {
		t.Errorf("PlaceBid() error = %v, want ErrNoSuchTeam", err)
	}
}

func TestEngine_PlaceBid_NoMoneyMoves(t *testing.T) {
	eng, repos := newTestEngine(t)

	_, _ = eng.RegisterTeam(context.Background(), "Kings", 1000)
	item, _ := eng.AddItem(context.Background(), "Arjun Patel", store.Batsman)
	_, _ = eng.BringToFloor(context.Background(), item.ID)
	if _, err := eng.PlaceBid(context.Background(), item.ID, "Kings", 800); err != nil {
		t.Fatalf("PlaceBid() error = %v", err)
	}

	team, err := repos.Teams.Get(context.Background(), "Kings")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if team.Spent != 0 {
		t.Errorf("Spent = %d after bid, want 0 until the sale is finalized", team.Spent)
	}
}

func TestEngine_FinalizeSale(t *testing.T) {
	eng, repos := newTestEngine(t)
	item := sellItem(t, eng, "Kings", 10000, "Arjun Patel", 4000)

	if item.Status != store.StatusSold {
		t.Errorf("Status = %q, want %q", item.Status, store.StatusSold)
	}
	if item.Price == nil || *item.Price != 4000 {
		t.Errorf("Price = %v, want 4000", item.Price)
	}
	if item.BoughtBy == nil || *item.BoughtBy != "Kings" {
		t.Errorf("BoughtBy = %v, want Kings", item.BoughtBy)
	}
	if item.SaleSeq == nil || *item.SaleSeq != 1 {
		t.Errorf("SaleSeq = %v, want 1", item.SaleSeq)
	}

	team, err := repos.Teams.Get(context.Background(), "Kings")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if team.Spent != 4000 || team.Purse() != 6000 {
		t.Errorf("team = spent %d purse %d, want spent 4000 purse 6000", team.Spent, team.Purse())
	}

	// The sale clears the floor for the next item.
	if _, err := repos.Items.CurrentFloor(context.Background()); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("CurrentFloor() after sale error = %v, want store.ErrNotFound", err)
	}
}

func TestEngine_FinalizeSale_NoBid(t *testing.T) {
	eng, _ := newTestEngine(t)

	item, _ := eng.AddItem(context.Background(), "Arjun Patel", store.Batsman)
	_, _ = eng.BringToFloor(context.Background(), item.ID)

	if _, err := eng.FinalizeSale(context.Background(), item.ID); !errors.Is(err, auction.ErrNoBidPlaced) {
		t.Errorf("FinalizeSale() error = %v, want ErrNoBidPlaced", err)
	}
}

func TestEngine_FinalizeSale_NotOnFloor(t *testing.T) {
	eng, _ := newTestEngine(t)

	item, _ := eng.AddItem(context.Background(), "Arjun Patel", store.Batsman)
	if _, err := eng.FinalizeSale(context.Background(), item.ID); !errors.Is(err, auction.ErrItemNotOnFloor) {
		t.Errorf("FinalizeSale() error = %v, want ErrItemNotOnFloor", err)
	}
}

func TestEngine_FinalizeSale_AlreadySold(t *testing.T) {
	eng, _ := newTestEngine(t)
	item := sellItem(t, eng, "Kings", 10000, "Arjun Patel", 4000)

	if _, err := eng.FinalizeSale(context.Background(), item.ID); !errors.Is(err, auction.ErrAlreadySold) {
		t.Errorf("FinalizeSale() error = %v, want ErrAlreadySold", err)
	}
}

func TestEngine_ReverseSale_RoundTrip(t *testing.T) {
	eng, repos := newTestEngine(t)
	item := sellItem(t, eng, "Kings", 10000, "Arjun Patel", 4000)

	if err := eng.ReverseSale(context.Background(), item.ID); err != nil {
		t.Fatalf("ReverseSale() error = %v", err)
	}

	team, err := repos.Teams.Get(context.Background(), "Kings")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if team.Spent != 0 || team.Purse() != 10000 {
		t.Errorf("after reversal: spent %d purse %d, want spent 0 purse 10000", team.Spent, team.Purse())
	}

	got, err := repos.Items.Get(context.Background(), item.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Status != store.StatusUnsold {
		t.Errorf("Status = %q, want %q", got.Status, store.StatusUnsold)
	}
	if got.Price != nil || got.BoughtBy != nil || got.SaleSeq != nil || got.BidHolder != nil || got.CurrentBid != 0 {
		t.Errorf("reversed item retains sale state: %+v", got)
	}

	// The item is auctionable again.
	if _, err := eng.BringToFloor(context.Background(), item.ID); err != nil {
		t.Errorf("BringToFloor() after reversal error = %v", err)
	}
}

func TestEngine_ReverseSale_NotSold(t *testing.T) {
	eng, _ := newTestEngine(t)

	item, _ := eng.AddItem(context.Background(), "Arjun Patel", store.Batsman)
	if err := eng.ReverseSale(context.Background(), item.ID); !errors.Is(err, auction.ErrNotSold) {
		t.Errorf("ReverseSale() error = %v, want ErrNotSold", err)
	}
}

func TestEngine_PassItem(t *testing.T) {
	eng, repos := newTestEngine(t)

	_, _ = eng.RegisterTeam(context.Background(), "Kings", 10000)
	item, _ := eng.AddItem(context.Background(), "Arjun Patel", store.Batsman)
	_, _ = eng.BringToFloor(context.Background(), item.ID)
	_, _ = eng.PlaceBid(context.Background(), item.ID, "Kings", 500)

	if err := eng.PassItem(context.Background(), item.ID); err != nil {
		t.Fatalf("PassItem() error = %v", err)
	}

	got, err := repos.Items.Get(context.Background(), item.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Status != store.StatusUnsold || got.CurrentBid != 0 || got.BidHolder != nil {
		t.Errorf("passed item = status %q bid %d holder %v, want unsold with cleared bid", got.Status, got.CurrentBid, got.BidHolder)
	}

	team, _ := repos.Teams.Get(context.Background(), "Kings")
	if team.Spent != 0 {
		t.Errorf("Spent = %d after pass, want 0", team.Spent)
	}
}

func TestEngine_PassItem_NotOnFloor(t *testing.T) {
	eng, _ := newTestEngine(t)

	item, _ := eng.AddItem(context.Background(), "Arjun Patel", store.Batsman)
	if err := eng.PassItem(context.Background(), item.ID); !errors.Is(err, auction.ErrItemNotOnFloor) {
		t.Errorf("PassItem() error = %v, want ErrItemNotOnFloor", err)
	}
}

func TestEngine_SaleSeq_Ordering(t *testing.T) {
	eng, repos := newTestEngine(t)

	_, _ = eng.RegisterTeam(context.Background(), "Kings", 10000)
	first, _ := eng.AddItem(context.Background(), "Arjun Patel", store.Batsman)
	second, _ := eng.AddItem(context.Background(), "Rohit Kumar", store.Bowler)

	for _, id := range []string{first.ID, second.ID} {
		if _, err := eng.BringToFloor(context.Background(), id); err != nil {
			t.Fatalf("BringToFloor(%s) error = %v", id, err)
		}
		if _, err := eng.PlaceBid(context.Background(), id, "Kings", 1000); err != nil {
			t.Fatalf("PlaceBid(%s) error = %v", id, err)
		}
		if _, err := eng.FinalizeSale(context.Background(), id); err != nil {
			t.Fatalf("FinalizeSale(%s) error = %v", id, err)
		}
	}

	sold, err := repos.Items.ListSold(context.Background(), 10)
	if err != nil {
		t.Fatalf("ListSold() error = %v", err)
	}
	if len(sold) != 2 {
		t.Fatalf("sold items = %d, want 2", len(sold))
	}
	// Most recent sale first.
	if sold[0].ID != second.ID || sold[1].ID != first.ID {
		t.Errorf("sold order = [%s %s], want [%s %s]", sold[0].ID, sold[1].ID, second.ID, first.ID)
	}
}

func TestEngine_Reset(t *testing.T) {
	eng, repos := newTestEngine(t)
	sellItem(t, eng, "Kings", 10000, "Arjun Patel", 4000)

	if err := eng.Reset(context.Background()); err != nil {
		t.Fatalf("Reset() error = %v", err)
	}

	teamList, err := repos.Teams.List(context.Background())
	if err != nil {
		t.Fatalf("Teams.List() error = %v", err)
	}
	itemList, err := repos.Items.List(context.Background())
	if err != nil {
		t.Fatalf("Items.List() error = %v", err)
	}
	if len(teamList) != 0 || len(itemList) != 0 {
		t.Errorf("after reset: %d teams, %d items, want 0 and 0", len(teamList), len(itemList))
	}

	// A fresh auction starts from a clean slate.
	if _, err := eng.RegisterTeam(context.Background(), "Kings", 5000); err != nil {
		t.Errorf("RegisterTeam() after reset error = %v", err)
	}
}

func TestEngine_ConcurrentRegister(t *testing.T) {
	eng, _ := newTestEngine(t)

	const n = 16
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = eng.RegisterTeam(context.Background(), "Kings", 5000)
		}()
	}
	wg.Wait()

	var ok, dup int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, auction.ErrDuplicateTeam):
			dup++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if ok != 1 || dup != n-1 {
		t.Errorf("results = %d ok, %d duplicate, want 1 and %d", ok, dup, n-1)
	}
}

func TestEngine_ConcurrentBids(t *testing.T) {
	eng, repos := newTestEngine(t)

	_, _ = eng.RegisterTeam(context.Background(), "Kings", 100000)
	item, _ := eng.AddItem(context.Background(), "Arjun Patel", store.Batsman)
	_, _ = eng.BringToFloor(context.Background(), item.ID)

	const n = 32
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			// Losing bids fail with ErrBidNotIncreasing; that is expected.
			_, _ = eng.PlaceBid(context.Background(), item.ID, "Kings", (i+1)*100)
		}()
	}
	wg.Wait()

	got, err := repos.Items.Get(context.Background(), item.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	// The highest submitted amount always lands, whatever the interleaving.
	if got.CurrentBid != n*100 {
		t.Errorf("CurrentBid = %d, want %d", got.CurrentBid, n*100)
	}

	if _, err := eng.FinalizeSale(context.Background(), item.ID); err != nil {
		t.Fatalf("FinalizeSale() error = %v", err)
	}
	team, _ := repos.Teams.Get(context.Background(), "Kings")
	if team.Spent != n*100 {
		t.Errorf("Spent = %d, want %d", team.Spent, n*100)
	}
}

// sellItem registers a team, adds an item and drives it through a complete
// sale at the given price.
func sellItem(t *testing.T, eng *auction.Engine, team string, budget int, itemName string, price int) *store.Item {
	t.Helper()
	ctx := context.Background()

	if _, err := eng.RegisterTeam(ctx, team, budget); err != nil {
		t.Fatalf("RegisterTeam() error = %v", err)
	}
	item, err := eng.AddItem(ctx, itemName, store.Batsman)
	if err != nil {
		t.Fatalf("AddItem() error = %v", err)
	}
	if _, err := eng.BringToFloor(ctx, item.ID); err != nil {
		t.Fatalf("BringToFloor() error = %v", err)
	}
	if _, err := eng.PlaceBid(ctx, item.ID, team, price); err != nil {
		t.Fatalf("PlaceBid() error = %v", err)
	}
	sold, err := eng.FinalizeSale(ctx, item.ID)
	if err != nil {
		t.Fatalf("FinalizeSale() error = %v", err)
	}
	return sold
}
