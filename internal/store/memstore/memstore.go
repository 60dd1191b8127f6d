// Package memstore provides a store.Driver backed by process memory. It is
// registered as the "memory" driver and is used by unit tests and by
// single-node runs that do not need durability.
//
// Transactions are implemented by deep-copying the state under a write lock
// and swapping the copy in on commit, so a failed transition leaves the
// visible state untouched and readers never observe a torn snapshot.
package memstore

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/jensholdgaard/auctionboard/internal/clock"
	"github.com/jensholdgaard/auctionboard/internal/config"
	"github.com/jensholdgaard/auctionboard/internal/event"
	"github.com/jensholdgaard/auctionboard/internal/store"
)

func init() {
	store.Register("memory", func(_ context.Context, _ config.DatabaseConfig, clk clock.Clock) (*store.Repositories, error) {
		return Open(clk), nil
	})
}

// Open returns Repositories backed by a fresh in-memory store.
func Open(clk clock.Clock) *store.Repositories {
	s := &Store{clk: clk}
	s.state = newState()
	return &store.Repositories{
		Teams:  &teams{s: s},
		Items:  &items{s: s},
		Users:  &users{s: s},
		Events: &eventLog{s: s},
		Tx:     s,
		Closer: s,
		Ping:   func(context.Context) error { return nil },
	}
}

type state struct {
	teams  map[string]*store.Team
	items  map[string]*store.Item
	users  map[string]*store.User
	seq    int64 // insertion order for stable listings
	orders map[string]int64
}

func newState() *state {
	return &state{
		teams:  make(map[string]*store.Team),
		items:  make(map[string]*store.Item),
		users:  make(map[string]*store.User),
		orders: make(map[string]int64),
	}
}

func (st *state) clone() *state {
	c := newState()
	c.seq = st.seq
	for k, v := range st.teams {
		t := *v
		c.teams[k] = &t
	}
	for k, v := range st.items {
		c.items[k] = copyItem(v)
	}
	for k, v := range st.users {
		u := *v
		c.users[k] = &u
	}
	for k, v := range st.orders {
		c.orders[k] = v
	}
	return c
}

func copyItem(i *store.Item) *store.Item {
	c := *i
	c.BidHolder = copyPtr(i.BidHolder)
	c.Price = copyPtr(i.Price)
	c.BoughtBy = copyPtr(i.BoughtBy)
	c.SaleSeq = copyPtr(i.SaleSeq)
	return &c
}

func copyPtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// Store holds the shared in-memory state.
type Store struct {
	mu     sync.RWMutex
	state  *state
	events []event.Event
	clk    clock.Clock
}

// Close implements io.Closer; memory needs no teardown.
func (s *Store) Close() error { return nil }

// WithinTx implements store.Transactor. fn runs against a private copy of
// the state; the copy replaces the live state only if fn succeeds.
func (s *Store) WithinTx(ctx context.Context, fn func(tx store.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	working := s.state.clone()
	t := &tx{st: working, clk: s.clk}
	if err := fn(t); err != nil {
		return err
	}
	s.state = working
	return nil
}

type tx struct {
	st  *state
	clk clock.Clock
}

func (t *tx) Teams() store.TeamRepository { return &teams{st: t.st, clk: t.clk} }
func (t *tx) Items() store.ItemRepository { return &items{st: t.st, clk: t.clk} }

// teams implements store.TeamRepository. When s is set, operations lock the
// shared store and act on the live state; when st is set they act directly
// on a transaction's working copy.
type teams struct {
	s   *Store
	st  *state
	clk clock.Clock
}

func (r *teams) run(write bool, fn func(st *state, clk clock.Clock) error) error {
	if r.st != nil {
		return fn(r.st, r.clk)
	}
	if write {
		r.s.mu.Lock()
		defer r.s.mu.Unlock()
	} else {
		r.s.mu.RLock()
		defer r.s.mu.RUnlock()
	}
	return fn(r.s.state, r.s.clk)
}

func (r *teams) Create(_ context.Context, team *store.Team) error {
	return r.run(true, func(st *state, clk clock.Clock) error {
		if _, ok := st.teams[team.Name]; ok {
			return store.ErrDuplicate
		}
		now := clk.Now().UTC()
		team.CreatedAt = now
		team.UpdatedAt = now
		cp := *team
		st.teams[team.Name] = &cp
		return nil
	})
}

func (r *teams) Get(_ context.Context, name string) (*store.Team, error) {
	var out *store.Team
	err := r.run(false, func(st *state, _ clock.Clock) error {
		t, ok := st.teams[name]
		if !ok {
			return store.ErrNotFound
		}
		cp := *t
		out = &cp
		return nil
	})
	return out, err
}

func (r *teams) List(_ context.Context) ([]store.Team, error) {
	var out []store.Team
	err := r.run(false, func(st *state, _ clock.Clock) error {
		for _, t := range st.teams {
			out = append(out, *t)
		}
		// Richest remaining purse first, matching the postgres driver.
		slices.SortFunc(out, func(a, b store.Team) int {
			if d := b.Purse() - a.Purse(); d != 0 {
				return d
			}
			return strings.Compare(a.Name, b.Name)
		})
		return nil
	})
	return out, err
}

func (r *teams) AdjustSpent(_ context.Context, name string, delta int) error {
	return r.run(true, func(st *state, clk clock.Clock) error {
		t, ok := st.teams[name]
		if !ok {
			return store.ErrNotFound
		}
		t.Spent += delta
		t.UpdatedAt = clk.Now().UTC()
		return nil
	})
}

func (r *teams) DeleteAll(_ context.Context) error {
	return r.run(true, func(st *state, _ clock.Clock) error {
		st.teams = make(map[string]*store.Team)
		return nil
	})
}

// items implements store.ItemRepository with the same live/tx duality as
// teams.
type items struct {
	s   *Store
	st  *state
	clk clock.Clock
}

func (r *items) run(write bool, fn func(st *state, clk clock.Clock) error) error {
	if r.st != nil {
		return fn(r.st, r.clk)
	}
	if write {
		r.s.mu.Lock()
		defer r.s.mu.Unlock()
	} else {
		r.s.mu.RLock()
		defer r.s.mu.RUnlock()
	}
	return fn(r.s.state, r.s.clk)
}

func (r *items) Create(_ context.Context, item *store.Item) error {
	return r.run(true, func(st *state, clk clock.Clock) error {
		if _, ok := st.items[item.ID]; ok {
			return store.ErrDuplicate
		}
		now := clk.Now().UTC()
		item.CreatedAt = now
		item.UpdatedAt = now
		st.seq++
		st.orders[item.ID] = st.seq
		st.items[item.ID] = copyItem(item)
		return nil
	})
}

func (r *items) Get(_ context.Context, id string) (*store.Item, error) {
	var out *store.Item
	err := r.run(false, func(st *state, _ clock.Clock) error {
		i, ok := st.items[id]
		if !ok {
			return store.ErrNotFound
		}
		out = copyItem(i)
		return nil
	})
	return out, err
}

func (r *items) Update(_ context.Context, item *store.Item) error {
	return r.run(true, func(st *state, clk clock.Clock) error {
		if _, ok := st.items[item.ID]; !ok {
			return store.ErrNotFound
		}
		item.UpdatedAt = clk.Now().UTC()
		st.items[item.ID] = copyItem(item)
		return nil
	})
}

func (r *items) Delete(_ context.Context, id string) error {
	return r.run(true, func(st *state, _ clock.Clock) error {
		if _, ok := st.items[id]; !ok {
			return store.ErrNotFound
		}
		delete(st.items, id)
		delete(st.orders, id)
		return nil
	})
}

func (r *items) List(_ context.Context) ([]store.Item, error) {
	return r.list(func(*store.Item) bool { return true }, byInsertion)
}

func (r *items) ListByStatus(_ context.Context, status store.ItemStatus) ([]store.Item, error) {
	return r.list(func(i *store.Item) bool { return i.Status == status }, byInsertion)
}

func (r *items) ListBoughtBy(_ context.Context, team string) ([]store.Item, error) {
	return r.list(func(i *store.Item) bool {
		return i.BoughtBy != nil && *i.BoughtBy == team
	}, bySaleSeqAsc)
}

func (r *items) CurrentFloor(_ context.Context) (*store.Item, error) {
	var out *store.Item
	err := r.run(false, func(st *state, _ clock.Clock) error {
		for _, i := range st.items {
			if i.Status == store.StatusOnFloor {
				out = copyItem(i)
				return nil
			}
		}
		return store.ErrNotFound
	})
	return out, err
}

func (r *items) ListSold(_ context.Context, limit int) ([]store.Item, error) {
	sold, err := r.list(func(i *store.Item) bool { return i.Status == store.StatusSold }, bySaleSeqDesc)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(sold) > limit {
		sold = sold[:limit]
	}
	return sold, nil
}

func (r *items) MaxSaleSeq(_ context.Context) (int64, error) {
	var max int64
	err := r.run(false, func(st *state, _ clock.Clock) error {
		for _, i := range st.items {
			if i.SaleSeq != nil && *i.SaleSeq > max {
				max = *i.SaleSeq
			}
		}
		return nil
	})
	return max, err
}

func (r *items) DeleteAll(_ context.Context) error {
	return r.run(true, func(st *state, _ clock.Clock) error {
		st.items = make(map[string]*store.Item)
		st.orders = make(map[string]int64)
		return nil
	})
}

type ordering int

const (
	byInsertion ordering = iota
	bySaleSeqAsc
	bySaleSeqDesc
)

func (r *items) list(keep func(*store.Item) bool, ord ordering) ([]store.Item, error) {
	var out []store.Item
	orders := map[string]int64{}
	err := r.run(false, func(st *state, _ clock.Clock) error {
		for id, i := range st.items {
			if keep(i) {
				out = append(out, *copyItem(i))
				orders[id] = st.orders[id]
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	slices.SortFunc(out, func(a, b store.Item) int {
		switch ord {
		case bySaleSeqAsc:
			return int(seqOf(a) - seqOf(b))
		case bySaleSeqDesc:
			return int(seqOf(b) - seqOf(a))
		default:
			return int(orders[a.ID] - orders[b.ID])
		}
	})
	return out, nil
}

func seqOf(i store.Item) int64 {
	if i.SaleSeq == nil {
		return 0
	}
	return *i.SaleSeq
}

// users implements store.UserRepository.
type users struct {
	s *Store
}

func (r *users) Upsert(_ context.Context, u *store.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if existing, ok := r.s.state.users[u.Username]; ok {
		u.CreatedAt = existing.CreatedAt
	} else {
		u.CreatedAt = r.s.clk.Now().UTC()
	}
	cp := *u
	r.s.state.users[u.Username] = &cp
	return nil
}

func (r *users) Get(_ context.Context, username string) (*store.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	u, ok := r.s.state.users[username]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

// eventLog implements event.Store as an append-only slice.
type eventLog struct {
	s *Store
}

func (l *eventLog) Append(_ context.Context, events ...event.Event) error {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()
	for _, e := range events {
		e.ID = uuid.NewString()
		e.CreatedAt = l.s.clk.Now().UTC()
		l.s.events = append(l.s.events, e)
	}
	return nil
}

func (l *eventLog) Load(_ context.Context, aggregateID string) ([]event.Event, error) {
	l.s.mu.RLock()
	defer l.s.mu.RUnlock()
	var out []event.Event
	for _, e := range l.s.events {
		if e.AggregateID == aggregateID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (l *eventLog) LoadByType(_ context.Context, t event.Type) ([]event.Event, error) {
	l.s.mu.RLock()
	defer l.s.mu.RUnlock()
	var out []event.Event
	for _, e := range l.s.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out, nil
}
