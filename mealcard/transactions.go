/*
transactions.go - Transaction recording and recharge approval

PURPOSE:
  TransactionLog appends purchase and recharge records and drives the
  recharge approval workflow. It shares the per-card locks with CardLedger
  so the combined purchase (deduct + record) is a single atomic unit.

STATE MACHINE (recharge):
  pending ──▶ completed
     │
     └─────▶ rejected

  Terminal states never transition again. A purchase is born completed.

PURCHASE ATOMICITY:
  Purchase() holds the card mutex and runs the balance deduction and the
  transaction append inside one store transaction. If the card is not
  active, the funds are short, or either write fails, nothing is recorded.
  RecordPurchase() remains the log-only write for callers that deduct the
  balance themselves.

SEE ALSO:
  - ledger.go: CardLedger and the shared card locks
  - store.go: WithTx contract the purchase path relies on
*/
package mealcard

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// TransactionLog manages the append-only transaction collection.
type TransactionLog struct {
	store  Store
	ledger *CardLedger

	now func() time.Time
}

// NewTransactionLog creates a log sharing card locks with ledger.
func NewTransactionLog(store Store, ledger *CardLedger) *TransactionLog {
	return &TransactionLog{store: store, ledger: ledger, now: time.Now}
}

// =============================================================================
// RECORDING
// =============================================================================

// PurchaseParams describes a purchase to record.
type PurchaseParams struct {
	CardID      CardID
	Amount      Money // positive; stored negated
	Description string
	MealID      MealID
	CashierID   UserID
}

func (p PurchaseParams) validate() error {
	if p.CardID == "" {
		return &ValidationError{Field: "cardId", Message: "Card ID is required"}
	}
	if !p.Amount.IsPositive() {
		return &ValidationError{Field: "amount", Message: "Amount must be positive"}
	}
	if p.Description == "" {
		return &ValidationError{Field: "description", Message: "Description is required"}
	}
	return nil
}

// RecordPurchase appends a completed purchase without touching the card
// balance. The caller owns the deduction.
func (tl *TransactionLog) RecordPurchase(ctx context.Context, p PurchaseParams) (*Transaction, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}

	now := tl.now()
	tx := &Transaction{
		ID:          NewTransactionID(),
		CardID:      p.CardID,
		Type:        TxPurchase,
		Amount:      p.Amount.Abs().Neg(),
		Description: p.Description,
		Status:      TxCompleted,
		Reference:   NewReference(TxPurchase, now),
		MealID:      p.MealID,
		CashierID:   p.CashierID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := tl.store.AppendTransaction(ctx, tx); err != nil {
		return nil, fmt.Errorf("recording purchase: %w", err)
	}
	return tx, nil
}

// Purchase deducts the card balance and records the completed purchase as
// one atomic unit: both writes land, or neither does.
func (tl *TransactionLog) Purchase(ctx context.Context, p PurchaseParams) (*Transaction, *BalanceChange, error) {
	if err := p.validate(); err != nil {
		return nil, nil, err
	}

	unlock := tl.ledger.locks.lock(p.CardID)
	defer unlock()

	now := tl.now()
	var (
		tx     *Transaction
		change *BalanceChange
	)

	err := tl.store.WithTx(ctx, func(s Store) error {
		card, err := s.GetCard(ctx, p.CardID)
		if err != nil {
			return fmt.Errorf("loading card: %w", err)
		}
		if card == nil {
			return ErrCardNotFound
		}

		change, err = applyAdjustment(card, p.Amount, AdjustDeduct, now)
		if err != nil {
			return err
		}
		if err := s.UpdateCard(ctx, card); err != nil {
			return fmt.Errorf("updating card: %w", err)
		}

		tx = &Transaction{
			ID:          NewTransactionID(),
			CardID:      p.CardID,
			Type:        TxPurchase,
			Amount:      p.Amount.Abs().Neg(),
			Description: p.Description,
			Status:      TxCompleted,
			Reference:   NewReference(TxPurchase, now),
			MealID:      p.MealID,
			CashierID:   p.CashierID,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := s.AppendTransaction(ctx, tx); err != nil {
			return fmt.Errorf("recording purchase: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return tx, change, nil
}

// RecordRecharge appends a pending recharge awaiting manager approval.
func (tl *TransactionLog) RecordRecharge(ctx context.Context, cardID CardID, amount Money, description string) (*Transaction, error) {
	if cardID == "" {
		return nil, &ValidationError{Field: "cardId", Message: "Card ID is required"}
	}
	if !amount.IsPositive() {
		return nil, &ValidationError{Field: "amount", Message: "Amount must be positive"}
	}
	if description == "" {
		return nil, &ValidationError{Field: "description", Message: "Description is required"}
	}

	now := tl.now()
	tx := &Transaction{
		ID:          NewTransactionID(),
		CardID:      cardID,
		Type:        TxRecharge,
		Amount:      amount.Abs(),
		Description: description,
		Status:      TxPending,
		Reference:   NewReference(TxRecharge, now),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := tl.store.AppendTransaction(ctx, tx); err != nil {
		return nil, fmt.Errorf("recording recharge: %w", err)
	}
	return tx, nil
}

// =============================================================================
// APPROVAL
// =============================================================================

// SetStatus transitions a pending transaction to completed or rejected,
// recording the approving actor. Terminal transactions fail with
// ErrTransactionFinal and are left unchanged. The pending check and the
// write run inside one store transaction so two racing approvals cannot
// both observe pending; the loser sees the winner's terminal state.
func (tl *TransactionLog) SetStatus(ctx context.Context, txID TransactionID, status TransactionStatus, approvedBy UserID) (*Transaction, error) {
	if !status.Valid() {
		return nil, &ValidationError{Field: "status", Message: "Invalid status"}
	}
	if !status.Terminal() {
		return nil, &ValidationError{Field: "status", Message: "Status must be completed or rejected"}
	}

	var updated *Transaction
	err := tl.store.WithTx(ctx, func(s Store) error {
		tx, err := s.GetTransaction(ctx, txID)
		if err != nil {
			return fmt.Errorf("loading transaction: %w", err)
		}
		if tx == nil {
			return ErrTransactionNotFound
		}

		if tx.Status != TxPending {
			return &TransactionStateError{TransactionID: tx.ID, Status: tx.Status}
		}

		tx.Status = status
		tx.ApprovedBy = approvedBy
		tx.UpdatedAt = tl.now()

		if err := s.UpdateTransaction(ctx, tx); err != nil {
			return fmt.Errorf("updating transaction: %w", err)
		}
		updated = tx
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// =============================================================================
// READS
// =============================================================================

// Get returns a single transaction.
func (tl *TransactionLog) Get(ctx context.Context, txID TransactionID) (*Transaction, error) {
	tx, err := tl.store.GetTransaction(ctx, txID)
	if err != nil {
		return nil, err
	}
	if tx == nil {
		return nil, ErrTransactionNotFound
	}
	return tx, nil
}

// All returns every transaction matching the filter, unsorted and
// unpaginated. Used by aggregations that need the full set.
func (tl *TransactionLog) All(ctx context.Context, filter TransactionFilter) ([]*Transaction, error) {
	return tl.store.ListTransactions(ctx, filter)
}

// TransactionSort selects the list ordering.
type TransactionSort struct {
	By        string // "timestamp" (default) or "amount"
	Ascending bool
}

// TransactionPage is one page of the transaction listing.
type TransactionPage struct {
	Transactions      []*Transaction
	TotalTransactions int
	Page              int
	TotalPages        int
}

// List returns transactions matching the filter, sorted and paginated.
func (tl *TransactionLog) List(ctx context.Context, filter TransactionFilter, sortBy TransactionSort, page, limit int) (*TransactionPage, error) {
	txs, err := tl.store.ListTransactions(ctx, filter)
	if err != nil {
		return nil, err
	}

	less := func(a, b *Transaction) bool { return a.CreatedAt.Before(b.CreatedAt) }
	if sortBy.By == "amount" {
		less = func(a, b *Transaction) bool { return a.Amount.LessThan(b.Amount) }
	}
	sort.Slice(txs, func(i, j int) bool {
		if sortBy.Ascending {
			return less(txs[i], txs[j])
		}
		return less(txs[j], txs[i])
	})

	total := len(txs)
	paged, pages := paginate(txs, page, limit)
	return &TransactionPage{Transactions: paged, TotalTransactions: total, Page: page, TotalPages: pages}, nil
}

// Stats summarizes transactions in the optional date range.
func (tl *TransactionLog) Stats(ctx context.Context, from, to *time.Time) (*TransactionStats, error) {
	txs, err := tl.store.ListTransactions(ctx, TransactionFilter{From: from, To: to})
	if err != nil {
		return nil, err
	}

	stats := &TransactionStats{
		TotalTransactions:  len(txs),
		TotalRevenue:       ZeroMoney(),
		TotalRecharges:     ZeroMoney(),
		AverageTransaction: ZeroMoney(),
	}
	totalAbs := ZeroMoney()
	for _, tx := range txs {
		switch tx.Status {
		case TxCompleted:
			stats.CompletedCount++
		case TxPending:
			stats.PendingCount++
		case TxRejected:
			stats.RejectedCount++
		}
		switch tx.Type {
		case TxPurchase:
			stats.PurchaseCount++
			if tx.Status == TxCompleted {
				stats.TotalRevenue = stats.TotalRevenue.Add(tx.Amount.Abs())
			}
		case TxRecharge:
			stats.RechargeCount++
			if tx.Status == TxCompleted {
				stats.TotalRecharges = stats.TotalRecharges.Add(tx.Amount)
			}
		}
		totalAbs = totalAbs.Add(tx.Amount.Abs())
	}
	if len(txs) > 0 {
		stats.AverageTransaction = Money{Value: totalAbs.Value.DivRound(decimal.NewFromInt(int64(len(txs))), 2)}
	}
	return stats, nil
}

// Daily returns per-day completed-transaction summaries for the last days
// days, oldest first.
func (tl *TransactionLog) Daily(ctx context.Context, days int) ([]DailyStats, error) {
	if days <= 0 {
		days = 7
	}

	completed := TxCompleted
	txs, err := tl.store.ListTransactions(ctx, TransactionFilter{Status: &completed})
	if err != nil {
		return nil, err
	}

	byDay := make(map[string][]*Transaction)
	for _, tx := range txs {
		day := tx.CreatedAt.UTC().Format("2006-01-02")
		byDay[day] = append(byDay[day], tx)
	}

	now := tl.now().UTC()
	out := make([]DailyStats, 0, days)
	for i := days - 1; i >= 0; i-- {
		day := now.AddDate(0, 0, -i).Format("2006-01-02")
		ds := DailyStats{Date: day, Revenue: ZeroMoney(), Recharges: ZeroMoney()}
		for _, tx := range byDay[day] {
			ds.Transactions++
			if tx.Type == TxPurchase {
				ds.Revenue = ds.Revenue.Add(tx.Amount.Abs())
			} else {
				ds.Recharges = ds.Recharges.Add(tx.Amount)
			}
		}
		out = append(out, ds)
	}
	return out, nil
}
