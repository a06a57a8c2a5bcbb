/*
ledger.go - Card issuance and balance/status mutations

PURPOSE:
  CardLedger owns every mutation of a meal card: issuing, balance
  adjustments, and status changes. It is the only code path that writes
  card records, which is what lets it guarantee the balance invariant.

INVARIANTS:
  - Balance >= 0 after every successful mutation
  - A card whose status is not "active" rejects balance mutations
  - One active card per student at issuance time
  - A failed mutation leaves the stored card byte-for-byte unchanged

CONCURRENCY:
  Every mutation of a given card runs under that card's mutex, so two
  concurrent requests against the same card serialize instead of racing
  the read-modify-write. Different cards proceed in parallel. Issuance
  has no card to lock yet; its duplicate check and save share one store
  transaction instead.

STATUS TRANSITIONS:
  SetStatus overwrites unconditionally (expired -> active is allowed).
  The upstream system behaves this way; see DESIGN.md before tightening.

SEE ALSO:
  - transactions.go: TransactionLog, including the atomic purchase path
  - store.go: Persistence contract
*/
package mealcard

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// CARD LOCKS - Per-card mutation serialization
// =============================================================================

// cardLocks hands out one mutex per card ID. Entries are never removed;
// the card population is small and long-lived.
type cardLocks struct {
	mu    sync.Mutex
	locks map[CardID]*sync.Mutex
}

func newCardLocks() *cardLocks {
	return &cardLocks{locks: make(map[CardID]*sync.Mutex)}
}

func (c *cardLocks) lock(id CardID) func() {
	c.mu.Lock()
	l, ok := c.locks[id]
	if !ok {
		l = &sync.Mutex{}
		c.locks[id] = l
	}
	c.mu.Unlock()

	l.Lock()
	return l.Unlock
}

// =============================================================================
// CARD LEDGER
// =============================================================================

// CardLedger manages the meal-card collection.
type CardLedger struct {
	store Store
	locks *cardLocks

	// now is swappable for tests.
	now func() time.Time
}

func NewCardLedger(store Store) *CardLedger {
	return &CardLedger{
		store: store,
		locks: newCardLocks(),
		now:   time.Now,
	}
}

// CardValidity is how long an issued card remains valid.
const CardValidity = 365 * 24 * time.Hour

// IssueCard creates an active card for a student. Fails with
// ErrActiveCardExists if the student already holds an active card, and with
// ErrValidation if the initial balance is negative. The duplicate check and
// the save run inside one store transaction so two racing issuances for the
// same student cannot both pass the check.
func (cl *CardLedger) IssueCard(ctx context.Context, studentID StudentID, initialBalance Money) (*Card, error) {
	if studentID == "" {
		return nil, &ValidationError{Field: "studentId", Message: "Student ID is required"}
	}
	if initialBalance.IsNegative() {
		return nil, &ValidationError{Field: "initialBalance", Message: "Initial balance must not be negative"}
	}

	now := cl.now()
	card := &Card{
		ID:         NewCardID(),
		StudentID:  studentID,
		CardNumber: NewCardNumber(now),
		Balance:    initialBalance,
		Status:     CardActive,
		IssuedAt:   now,
		ExpiresAt:  now.Add(CardValidity),
		UpdatedAt:  now,
	}

	err := cl.store.WithTx(ctx, func(s Store) error {
		existing, err := s.ActiveCardForStudent(ctx, studentID)
		if err != nil {
			return fmt.Errorf("checking existing card: %w", err)
		}
		if existing != nil {
			return ErrActiveCardExists
		}
		if err := s.SaveCard(ctx, card); err != nil {
			return fmt.Errorf("saving card: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return card, nil
}

// AdjustBalance credits or debits an active card. The previous and new
// balance are returned for receipt display. On any failure the stored
// balance is unchanged.
func (cl *CardLedger) AdjustBalance(ctx context.Context, cardID CardID, amount Money, direction AdjustDirection) (*BalanceChange, error) {
	if !direction.Valid() {
		return nil, &ValidationError{Field: "type", Message: "Type must be either add or deduct"}
	}
	if amount.IsNegative() {
		return nil, &ValidationError{Field: "amount", Message: "Amount must not be negative"}
	}

	unlock := cl.locks.lock(cardID)
	defer unlock()

	card, err := cl.store.GetCard(ctx, cardID)
	if err != nil {
		return nil, fmt.Errorf("loading card: %w", err)
	}
	if card == nil {
		return nil, ErrCardNotFound
	}

	change, err := applyAdjustment(card, amount, direction, cl.now())
	if err != nil {
		return nil, err
	}

	if err := cl.store.UpdateCard(ctx, card); err != nil {
		return nil, fmt.Errorf("updating card: %w", err)
	}
	return change, nil
}

// applyAdjustment mutates card in place after validating state and funds.
// Pure computation over the loaded record; callers hold the card lock.
func applyAdjustment(card *Card, amount Money, direction AdjustDirection, now time.Time) (*BalanceChange, error) {
	if card.Status != CardActive {
		return nil, &CardStateError{CardID: card.ID, Status: card.Status}
	}

	previous := card.Balance
	var next Money
	if direction == AdjustAdd {
		next = previous.Add(amount)
	} else {
		next = previous.Sub(amount)
	}

	if next.IsNegative() {
		return nil, &InsufficientFundsError{
			CardID:    card.ID,
			Balance:   previous,
			Requested: amount,
			Shortfall: next.Neg(),
		}
	}

	card.Balance = next
	card.LastUsedAt = &now
	card.UpdatedAt = now

	return &BalanceChange{Card: card, PreviousBalance: previous, NewBalance: next}, nil
}

// SetStatus overwrites a card's status. No transition graph is enforced.
func (cl *CardLedger) SetStatus(ctx context.Context, cardID CardID, status CardStatus) (*Card, error) {
	if !status.Valid() {
		return nil, &ValidationError{Field: "status", Message: "Invalid status"}
	}

	unlock := cl.locks.lock(cardID)
	defer unlock()

	card, err := cl.store.GetCard(ctx, cardID)
	if err != nil {
		return nil, fmt.Errorf("loading card: %w", err)
	}
	if card == nil {
		return nil, ErrCardNotFound
	}

	card.Status = status
	card.UpdatedAt = cl.now()

	if err := cl.store.UpdateCard(ctx, card); err != nil {
		return nil, fmt.Errorf("updating card: %w", err)
	}
	return card, nil
}

// Get returns a single card.
func (cl *CardLedger) Get(ctx context.Context, cardID CardID) (*Card, error) {
	card, err := cl.store.GetCard(ctx, cardID)
	if err != nil {
		return nil, err
	}
	if card == nil {
		return nil, ErrCardNotFound
	}
	return card, nil
}

// CardPage is one page of the card listing.
type CardPage struct {
	Cards      []*Card
	TotalCards int
	Page       int
	TotalPages int
}

// List returns cards matching the filter, newest first, paginated.
func (cl *CardLedger) List(ctx context.Context, filter CardFilter, page, limit int) (*CardPage, error) {
	cards, err := cl.store.ListCards(ctx, filter)
	if err != nil {
		return nil, err
	}

	sort.Slice(cards, func(i, j int) bool {
		return cards[i].IssuedAt.After(cards[j].IssuedAt)
	})

	total := len(cards)
	paged, pages := paginate(cards, page, limit)
	return &CardPage{Cards: paged, TotalCards: total, Page: page, TotalPages: pages}, nil
}

// Stats summarizes the whole card collection.
func (cl *CardLedger) Stats(ctx context.Context) (*CardStats, error) {
	cards, err := cl.store.ListCards(ctx, CardFilter{})
	if err != nil {
		return nil, err
	}

	stats := &CardStats{TotalCards: len(cards), TotalBalance: ZeroMoney(), AverageBalance: ZeroMoney()}
	for _, c := range cards {
		switch c.Status {
		case CardActive:
			stats.ActiveCards++
		case CardBlocked:
			stats.BlockedCards++
		case CardExpired:
			stats.ExpiredCards++
		}
		stats.TotalBalance = stats.TotalBalance.Add(c.Balance)
	}
	if len(cards) > 0 {
		stats.AverageBalance = Money{Value: stats.TotalBalance.Value.DivRound(decimal.NewFromInt(int64(len(cards))), 2)}
	}
	return stats, nil
}

// ExpireOverdue marks active cards past their expiry as expired and returns
// how many were transitioned. Called by the background sweeper.
func (cl *CardLedger) ExpireOverdue(ctx context.Context, now time.Time) (int, error) {
	active := CardActive
	cards, err := cl.store.ListCards(ctx, CardFilter{Status: &active})
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, c := range cards {
		if c.ExpiresAt.After(now) {
			continue
		}
		if _, err := cl.SetStatus(ctx, c.ID, CardExpired); err != nil {
			return expired, fmt.Errorf("expiring card %s: %w", c.ID, err)
		}
		expired++
	}
	return expired, nil
}

// =============================================================================
// PAGINATION HELPER
// =============================================================================

// paginate slices one page out of items. Page numbers are 1-based; a
// non-positive limit falls back to 10, matching the HTTP defaults.
func paginate[T any](items []T, page, limit int) ([]T, int) {
	if limit <= 0 {
		limit = 10
	}
	if page <= 0 {
		page = 1
	}

	totalPages := (len(items) + limit - 1) / limit
	start := (page - 1) * limit
	if start >= len(items) {
		return []T{}, totalPages
	}
	end := start + limit
	if end > len(items) {
		end = len(items)
	}
	return items[start:end], totalPages
}
