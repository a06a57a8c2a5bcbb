/*
Package mealcard provides the core card ledger and transaction log.

PURPOSE:
  This package contains the business logic of the campus meal-card system:
  issuing stored-value cards, adjusting balances, and recording the
  purchase/recharge transactions that reference them. HTTP, storage and
  authentication live elsewhere; this package only knows cards, money and
  the rules that bind them.

KEY CONCEPTS IN THIS FILE (types.go):
  - Money: A decimal currency amount (never float64 internally)
  - Card: A student's stored-value account with a lifecycle status
  - Transaction: A purchase or recharge referencing a card
  - Card/Transaction IDs: Type-safe identifiers

DESIGN PRINCIPLES:
  1. Precision: Uses decimal.Decimal to avoid floating-point errors
  2. Type Safety: Strong typing for IDs prevents mixing card/student IDs
  3. Invariants: Balance >= 0 after every successful mutation; terminal
     transaction statuses are immutable

SEE ALSO:
  - ledger.go: Card issuance and balance/status mutations
  - transactions.go: Transaction recording and approval
  - errors.go: Error taxonomy shared by both
*/
package mealcard

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =============================================================================
// MONEY - Decimal currency amount
// =============================================================================

// Money is a currency amount. Internally decimal; DTO layers convert to
// float64 only at the JSON boundary.
type Money struct {
	Value decimal.Decimal
}

func NewMoney(value float64) Money {
	return Money{Value: decimal.NewFromFloat(value)}
}

func MoneyFromString(s string) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return Money{Value: d}, nil
}

func ZeroMoney() Money { return Money{Value: decimal.Zero} }

func (m Money) Add(o Money) Money      { return Money{Value: m.Value.Add(o.Value)} }
func (m Money) Sub(o Money) Money      { return Money{Value: m.Value.Sub(o.Value)} }
func (m Money) Neg() Money             { return Money{Value: m.Value.Neg()} }
func (m Money) Abs() Money             { return Money{Value: m.Value.Abs()} }
func (m Money) IsNegative() bool       { return m.Value.IsNegative() }
func (m Money) IsPositive() bool       { return m.Value.IsPositive() }
func (m Money) IsZero() bool           { return m.Value.IsZero() }
func (m Money) Equal(o Money) bool     { return m.Value.Equal(o.Value) }
func (m Money) LessThan(o Money) bool  { return m.Value.LessThan(o.Value) }
func (m Money) Float64() float64       { f, _ := m.Value.Float64(); return f }
func (m Money) String() string         { return m.Value.StringFixed(2) }

// =============================================================================
// IDENTIFIERS
// =============================================================================

type CardID string
type StudentID string
type TransactionID string
type UserID string
type MealID string

func NewCardID() CardID               { return CardID(uuid.NewString()) }
func NewTransactionID() TransactionID { return TransactionID(uuid.NewString()) }

const cardNumberSuffixAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// NewCardNumber generates a human-displayed card number: "MC" + millis + 4
// random characters. Display-unique, not cryptographically unique.
func NewCardNumber(now time.Time) string {
	var sb strings.Builder
	sb.WriteString("MC")
	fmt.Fprintf(&sb, "%d", now.UnixMilli())
	for i := 0; i < 4; i++ {
		sb.WriteByte(cardNumberSuffixAlphabet[rand.Intn(len(cardNumberSuffixAlphabet))])
	}
	return sb.String()
}

// =============================================================================
// CARD - Stored-value account
// =============================================================================

type CardStatus string

const (
	CardActive  CardStatus = "active"
	CardBlocked CardStatus = "blocked"
	CardExpired CardStatus = "expired"
)

func (s CardStatus) Valid() bool {
	switch s {
	case CardActive, CardBlocked, CardExpired:
		return true
	}
	return false
}

// Card is a student's virtual stored-value account for cafeteria purchases.
// Cards are never deleted; status transitions model retirement.
type Card struct {
	ID         CardID
	StudentID  StudentID
	CardNumber string
	Balance    Money
	Status     CardStatus
	IssuedAt   time.Time
	ExpiresAt  time.Time
	LastUsedAt *time.Time
	UpdatedAt  time.Time
}

// =============================================================================
// TRANSACTION - Purchase or recharge referencing a card
// =============================================================================

type TransactionType string

const (
	TxPurchase TransactionType = "purchase" // instantaneous deduction, auto-completed
	TxRecharge TransactionType = "recharge" // top-up, gated by manager approval
)

func (t TransactionType) Valid() bool {
	return t == TxPurchase || t == TxRecharge
}

type TransactionStatus string

const (
	TxPending   TransactionStatus = "pending"
	TxCompleted TransactionStatus = "completed"
	TxRejected  TransactionStatus = "rejected"
)

func (s TransactionStatus) Valid() bool {
	switch s {
	case TxPending, TxCompleted, TxRejected:
		return true
	}
	return false
}

// Terminal reports whether a status allows no further transitions.
// The only legal transitions are pending -> completed and pending -> rejected.
func (s TransactionStatus) Terminal() bool {
	return s == TxCompleted || s == TxRejected
}

// Transaction records a single balance-affecting event against a card.
// Purchases carry negative amounts, recharges positive ones. Purchases are
// created already completed; recharges start pending and transition exactly
// once.
type Transaction struct {
	ID          TransactionID
	CardID      CardID
	Type        TransactionType
	Amount      Money // signed: purchases negative, recharges positive
	Description string
	Status      TransactionStatus
	Reference   string
	MealID      MealID // optional, purchases only
	CashierID   UserID // optional, purchases only
	ApprovedBy  UserID // optional, set on recharge approval/rejection
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewReference builds the human-readable reference code: PUR-/REF- plus a
// millisecond timestamp.
func NewReference(txType TransactionType, now time.Time) string {
	prefix := "PUR"
	if txType == TxRecharge {
		prefix = "REF"
	}
	return fmt.Sprintf("%s-%d", prefix, now.UnixMilli())
}

// =============================================================================
// RESULTS AND AGGREGATES
// =============================================================================

// AdjustDirection selects whether a balance adjustment credits or debits.
type AdjustDirection string

const (
	AdjustAdd    AdjustDirection = "add"
	AdjustDeduct AdjustDirection = "deduct"
)

func (d AdjustDirection) Valid() bool {
	return d == AdjustAdd || d == AdjustDeduct
}

// BalanceChange reports an applied adjustment for receipt display.
type BalanceChange struct {
	Card            *Card
	PreviousBalance Money
	NewBalance      Money
}

// CardStats summarizes the card collection.
type CardStats struct {
	TotalCards     int
	ActiveCards    int
	BlockedCards   int
	ExpiredCards   int
	TotalBalance   Money
	AverageBalance Money
}

// TransactionStats summarizes the transaction log.
type TransactionStats struct {
	TotalTransactions    int
	CompletedCount       int
	PendingCount         int
	RejectedCount        int
	PurchaseCount        int
	RechargeCount        int
	TotalRevenue         Money // completed purchases, absolute value
	TotalRecharges       Money // completed recharges
	AverageTransaction   Money // mean absolute amount
}

// DailyStats is one day of completed-transaction activity.
type DailyStats struct {
	Date         string // YYYY-MM-DD
	Transactions int
	Revenue      Money
	Recharges    Money
}
