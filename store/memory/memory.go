/*
Package memory provides the in-memory store.

PURPOSE:
  Map-backed implementation of the mealcard, directory and menu store
  interfaces. Used by tests (fresh instance per test) and by demo mode
  (DB_PATH=memory). Nothing survives a restart.

CONCURRENCY:
  A single RWMutex guards all maps. WithTx snapshots the maps and
  restores them if fn fails, giving the same all-or-nothing behavior the
  SQLite store gets from sql.Tx.
*/
package memory

import (
	"context"
	"strings"
	"sync"

	"github.com/campuscard/server/directory"
	"github.com/campuscard/server/mealcard"
	"github.com/campuscard/server/menu"
)

// Store holds every collection in process memory.
type Store struct {
	mu           sync.RWMutex
	cards        map[mealcard.CardID]*mealcard.Card
	transactions map[mealcard.TransactionID]*mealcard.Transaction
	users        map[mealcard.UserID]*directory.User
	meals        map[mealcard.MealID]*menu.Meal
}

func New() *Store {
	return &Store{
		cards:        make(map[mealcard.CardID]*mealcard.Card),
		transactions: make(map[mealcard.TransactionID]*mealcard.Transaction),
		users:        make(map[mealcard.UserID]*directory.User),
		meals:        make(map[mealcard.MealID]*menu.Meal),
	}
}

// Close satisfies the lifecycle the SQLite store needs; nothing to do here.
func (s *Store) Close() error { return nil }

// =============================================================================
// CARDS
// =============================================================================

func (s *Store) SaveCard(_ context.Context, card *mealcard.Card) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cards[card.ID] = cloneCard(card)
	return nil
}

func (s *Store) GetCard(_ context.Context, id mealcard.CardID) (*mealcard.Card, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	card, ok := s.cards[id]
	if !ok {
		return nil, nil
	}
	return cloneCard(card), nil
}

func (s *Store) UpdateCard(_ context.Context, card *mealcard.Card) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cards[card.ID] = cloneCard(card)
	return nil
}

func (s *Store) ListCards(_ context.Context, filter mealcard.CardFilter) ([]*mealcard.Card, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return filterCards(s.cards, filter), nil
}

func (s *Store) ActiveCardForStudent(_ context.Context, studentID mealcard.StudentID) (*mealcard.Card, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.cards {
		if c.StudentID == studentID && c.Status == mealcard.CardActive {
			return cloneCard(c), nil
		}
	}
	return nil, nil
}

func filterCards(cards map[mealcard.CardID]*mealcard.Card, filter mealcard.CardFilter) []*mealcard.Card {
	var out []*mealcard.Card
	for _, c := range cards {
		if filter.Status != nil && c.Status != *filter.Status {
			continue
		}
		if filter.StudentID != nil && c.StudentID != *filter.StudentID {
			continue
		}
		out = append(out, cloneCard(c))
	}
	return out
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

func (s *Store) AppendTransaction(_ context.Context, tx *mealcard.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transactions[tx.ID] = cloneTransaction(tx)
	return nil
}

func (s *Store) GetTransaction(_ context.Context, id mealcard.TransactionID) (*mealcard.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tx, ok := s.transactions[id]
	if !ok {
		return nil, nil
	}
	return cloneTransaction(tx), nil
}

func (s *Store) UpdateTransaction(_ context.Context, tx *mealcard.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transactions[tx.ID] = cloneTransaction(tx)
	return nil
}

func (s *Store) ListTransactions(_ context.Context, filter mealcard.TransactionFilter) ([]*mealcard.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return filterTransactions(s.transactions, filter), nil
}

func filterTransactions(txs map[mealcard.TransactionID]*mealcard.Transaction, filter mealcard.TransactionFilter) []*mealcard.Transaction {
	var out []*mealcard.Transaction
	for _, tx := range txs {
		if filter.Type != nil && tx.Type != *filter.Type {
			continue
		}
		if filter.Status != nil && tx.Status != *filter.Status {
			continue
		}
		if filter.CardID != nil && tx.CardID != *filter.CardID {
			continue
		}
		if filter.From != nil && tx.CreatedAt.Before(*filter.From) {
			continue
		}
		if filter.To != nil && tx.CreatedAt.After(*filter.To) {
			continue
		}
		out = append(out, cloneTransaction(tx))
	}
	return out
}

// =============================================================================
// USERS
// =============================================================================

func (s *Store) SaveUser(_ context.Context, u *directory.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = cloneUser(u)
	return nil
}

func (s *Store) GetUser(_ context.Context, id mealcard.UserID) (*directory.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, nil
	}
	return cloneUser(u), nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (*directory.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			return cloneUser(u), nil
		}
	}
	return nil, nil
}

func (s *Store) UpdateUser(_ context.Context, u *directory.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = cloneUser(u)
	return nil
}

func (s *Store) ListUsers(_ context.Context) ([]*directory.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*directory.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, cloneUser(u))
	}
	return out, nil
}

// =============================================================================
// MEALS
// =============================================================================

func (s *Store) SaveMeal(_ context.Context, m *menu.Meal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.meals[m.ID] = cloneMeal(m)
	return nil
}

func (s *Store) GetMeal(_ context.Context, id mealcard.MealID) (*menu.Meal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.meals[id]
	if !ok {
		return nil, nil
	}
	return cloneMeal(m), nil
}

func (s *Store) UpdateMeal(_ context.Context, m *menu.Meal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.meals[m.ID] = cloneMeal(m)
	return nil
}

func (s *Store) DeleteMeal(_ context.Context, id mealcard.MealID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.meals, id)
	return nil
}

func (s *Store) ListMeals(_ context.Context) ([]*menu.Meal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*menu.Meal, 0, len(s.meals))
	for _, m := range s.meals {
		out = append(out, cloneMeal(m))
	}
	return out, nil
}

// =============================================================================
// TRANSACTIONAL VIEW
// =============================================================================

// WithTx executes fn with snapshot/rollback semantics: on error the card
// and transaction maps are restored to their pre-fn state.
func (s *Store) WithTx(ctx context.Context, fn func(mealcard.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.snapshotLocked()
	view := &txView{parent: s}

	if err := fn(view); err != nil {
		s.restoreLocked(snapshot)
		return err
	}
	return nil
}

type storeSnapshot struct {
	cards        map[mealcard.CardID]*mealcard.Card
	transactions map[mealcard.TransactionID]*mealcard.Transaction
}

func (s *Store) snapshotLocked() storeSnapshot {
	cards := make(map[mealcard.CardID]*mealcard.Card, len(s.cards))
	for k, v := range s.cards {
		cards[k] = cloneCard(v)
	}
	txs := make(map[mealcard.TransactionID]*mealcard.Transaction, len(s.transactions))
	for k, v := range s.transactions {
		txs[k] = cloneTransaction(v)
	}
	return storeSnapshot{cards: cards, transactions: txs}
}

func (s *Store) restoreLocked(snap storeSnapshot) {
	s.cards = snap.cards
	s.transactions = snap.transactions
}

// txView operates on the parent maps directly; the parent holds the write
// lock for the duration of WithTx.
type txView struct {
	parent *Store
}

func (tv *txView) SaveCard(_ context.Context, card *mealcard.Card) error {
	tv.parent.cards[card.ID] = cloneCard(card)
	return nil
}

func (tv *txView) GetCard(_ context.Context, id mealcard.CardID) (*mealcard.Card, error) {
	card, ok := tv.parent.cards[id]
	if !ok {
		return nil, nil
	}
	return cloneCard(card), nil
}

func (tv *txView) UpdateCard(_ context.Context, card *mealcard.Card) error {
	tv.parent.cards[card.ID] = cloneCard(card)
	return nil
}

func (tv *txView) ListCards(_ context.Context, filter mealcard.CardFilter) ([]*mealcard.Card, error) {
	return filterCards(tv.parent.cards, filter), nil
}

func (tv *txView) ActiveCardForStudent(_ context.Context, studentID mealcard.StudentID) (*mealcard.Card, error) {
	for _, c := range tv.parent.cards {
		if c.StudentID == studentID && c.Status == mealcard.CardActive {
			return cloneCard(c), nil
		}
	}
	return nil, nil
}

func (tv *txView) AppendTransaction(_ context.Context, tx *mealcard.Transaction) error {
	tv.parent.transactions[tx.ID] = cloneTransaction(tx)
	return nil
}

func (tv *txView) GetTransaction(_ context.Context, id mealcard.TransactionID) (*mealcard.Transaction, error) {
	tx, ok := tv.parent.transactions[id]
	if !ok {
		return nil, nil
	}
	return cloneTransaction(tx), nil
}

func (tv *txView) UpdateTransaction(_ context.Context, tx *mealcard.Transaction) error {
	tv.parent.transactions[tx.ID] = cloneTransaction(tx)
	return nil
}

func (tv *txView) ListTransactions(_ context.Context, filter mealcard.TransactionFilter) ([]*mealcard.Transaction, error) {
	return filterTransactions(tv.parent.transactions, filter), nil
}

func (tv *txView) WithTx(ctx context.Context, fn func(mealcard.Store) error) error {
	// Already inside a transaction; just run fn against the same view.
	return fn(tv)
}

// =============================================================================
// CLONES - Callers never share map-backed pointers
// =============================================================================

func cloneCard(c *mealcard.Card) *mealcard.Card {
	out := *c
	if c.LastUsedAt != nil {
		t := *c.LastUsedAt
		out.LastUsedAt = &t
	}
	return &out
}

func cloneTransaction(tx *mealcard.Transaction) *mealcard.Transaction {
	out := *tx
	return &out
}

func cloneUser(u *directory.User) *directory.User {
	out := *u
	return &out
}

func cloneMeal(m *menu.Meal) *menu.Meal {
	out := *m
	out.Ingredients = append([]string(nil), m.Ingredients...)
	out.Allergens = append([]string(nil), m.Allergens...)
	return &out
}
