/*
store.go - Storage interface for cards and transactions

PURPOSE:
  Defines the persistence contract the ledger and transaction log operate
  against. Implementations live in store/memory (tests, demo mode) and
  store/sqlite (file-backed).

CONVENTIONS:
  - Get* returns (nil, nil) when the entity does not exist; services
    translate that into the domain not-found errors.
  - List* applies filtering only. Sorting and pagination are service
    concerns so both backends behave identically.
  - WithTx runs fn against a transactional view of the store; all writes
    inside fn land together or not at all.

SEE ALSO:
  - store/memory/memory.go: Map-backed implementation
  - store/sqlite/sqlite.go: SQLite implementation
*/
package mealcard

import (
	"context"
	"time"
)

// CardFilter narrows ListCards. Nil fields match everything.
type CardFilter struct {
	Status    *CardStatus
	StudentID *StudentID
}

// TransactionFilter narrows ListTransactions. Nil fields match everything.
type TransactionFilter struct {
	Type   *TransactionType
	Status *TransactionStatus
	CardID *CardID
	From   *time.Time
	To     *time.Time
}

// Store persists cards and their transaction log.
type Store interface {
	SaveCard(ctx context.Context, card *Card) error
	GetCard(ctx context.Context, id CardID) (*Card, error)
	UpdateCard(ctx context.Context, card *Card) error
	ListCards(ctx context.Context, filter CardFilter) ([]*Card, error)

	// ActiveCardForStudent returns the student's active card, or nil.
	// Backs the one-active-card-per-student invariant.
	ActiveCardForStudent(ctx context.Context, studentID StudentID) (*Card, error)

	AppendTransaction(ctx context.Context, tx *Transaction) error
	GetTransaction(ctx context.Context, id TransactionID) (*Transaction, error)
	UpdateTransaction(ctx context.Context, tx *Transaction) error
	ListTransactions(ctx context.Context, filter TransactionFilter) ([]*Transaction, error)

	// WithTx executes fn atomically. The Store passed to fn sees writes
	// made earlier inside the same fn.
	WithTx(ctx context.Context, fn func(Store) error) error
}
