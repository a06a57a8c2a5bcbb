package mealcard_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campuscard/server/mealcard"
	"github.com/campuscard/server/store/memory"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestLog(t *testing.T) (*mealcard.TransactionLog, *mealcard.CardLedger, *memory.Store) {
	t.Helper()
	store := memory.New()
	ledger := mealcard.NewCardLedger(store)
	return mealcard.NewTransactionLog(store, ledger), ledger, store
}

// =============================================================================
// PURCHASES
// =============================================================================

func TestTransactionLog_RecordPurchase_NegatesAmount(t *testing.T) {
	// GIVEN: A purchase submitted with a positive amount of 12.99
	// WHEN: Recording it
	// THEN: It is stored completed with amount -12.99 and a PUR- reference

	log, ledger, _ := newTestLog(t)
	ctx := context.Background()
	card, err := ledger.IssueCard(ctx, "STU001", mealcard.NewMoney(100))
	require.NoError(t, err)

	tx, err := log.RecordPurchase(ctx, mealcard.PurchaseParams{
		CardID:      card.ID,
		Amount:      mealcard.NewMoney(12.99),
		Description: "Chicken Burger",
		MealID:      "meal-1",
		CashierID:   "cashier-1",
	})
	require.NoError(t, err)

	assert.Equal(t, mealcard.TxPurchase, tx.Type)
	assert.Equal(t, mealcard.TxCompleted, tx.Status)
	assert.True(t, tx.Amount.Equal(mealcard.NewMoney(-12.99)), "stored amount should be -12.99, got %s", tx.Amount)
	assert.Equal(t, "PUR", tx.Reference[:3])
	assert.Equal(t, mealcard.MealID("meal-1"), tx.MealID)
	assert.Equal(t, mealcard.UserID("cashier-1"), tx.CashierID)

	// Round trip through the store keeps the sign.
	stored, err := log.Get(ctx, tx.ID)
	require.NoError(t, err)
	assert.True(t, stored.Amount.Equal(mealcard.NewMoney(-12.99)))
}

func TestTransactionLog_RecordPurchase_NegativeInputNormalized(t *testing.T) {
	// A caller passing a negative amount fails validation; amounts are
	// submitted positive and negated on storage.
	log, ledger, _ := newTestLog(t)
	ctx := context.Background()
	card, err := ledger.IssueCard(ctx, "STU001", mealcard.NewMoney(100))
	require.NoError(t, err)

	_, err = log.RecordPurchase(ctx, mealcard.PurchaseParams{
		CardID:      card.ID,
		Amount:      mealcard.NewMoney(-12.99),
		Description: "Chicken Burger",
	})
	assert.ErrorIs(t, err, mealcard.ErrValidation)
}

func TestTransactionLog_Purchase_DeductsAndRecordsAtomically(t *testing.T) {
	// GIVEN: A card with 150.75
	// WHEN: Purchasing for 12.99
	// THEN: The balance drops to 137.76 and a completed record exists

	log, ledger, store := newTestLog(t)
	ctx := context.Background()
	card, err := ledger.IssueCard(ctx, "STU001", mealcard.NewMoney(150.75))
	require.NoError(t, err)

	tx, change, err := log.Purchase(ctx, mealcard.PurchaseParams{
		CardID:      card.ID,
		Amount:      mealcard.NewMoney(12.99),
		Description: "Chicken Burger",
		MealID:      "meal-1",
		CashierID:   "cashier-1",
	})
	require.NoError(t, err)

	assert.True(t, change.PreviousBalance.Equal(mealcard.NewMoney(150.75)))
	assert.True(t, change.NewBalance.Equal(mealcard.NewMoney(137.76)))
	assert.True(t, tx.Amount.Equal(mealcard.NewMoney(-12.99)))
	assert.Equal(t, mealcard.TxCompleted, tx.Status)

	stored, err := store.GetCard(ctx, card.ID)
	require.NoError(t, err)
	assert.True(t, stored.Balance.Equal(mealcard.NewMoney(137.76)))
}

func TestTransactionLog_Purchase_InsufficientFunds_NothingRecorded(t *testing.T) {
	// GIVEN: A card with 10.00
	// WHEN: Purchasing for 10.01
	// THEN: The purchase fails, the balance is unchanged and no transaction exists

	log, ledger, store := newTestLog(t)
	ctx := context.Background()
	card, err := ledger.IssueCard(ctx, "STU001", mealcard.NewMoney(10.00))
	require.NoError(t, err)

	_, _, err = log.Purchase(ctx, mealcard.PurchaseParams{
		CardID:      card.ID,
		Amount:      mealcard.NewMoney(10.01),
		Description: "Grilled Salmon",
	})
	assert.ErrorIs(t, err, mealcard.ErrInsufficientFunds)

	stored, err := store.GetCard(ctx, card.ID)
	require.NoError(t, err)
	assert.True(t, stored.Balance.Equal(mealcard.NewMoney(10.00)))

	txs, err := log.All(ctx, mealcard.TransactionFilter{})
	require.NoError(t, err)
	assert.Empty(t, txs, "failed purchase must leave no transaction record")
}

func TestTransactionLog_Purchase_BlockedCard_NothingRecorded(t *testing.T) {
	log, ledger, _ := newTestLog(t)
	ctx := context.Background()
	card, err := ledger.IssueCard(ctx, "STU001", mealcard.NewMoney(50))
	require.NoError(t, err)
	_, err = ledger.SetStatus(ctx, card.ID, mealcard.CardBlocked)
	require.NoError(t, err)

	_, _, err = log.Purchase(ctx, mealcard.PurchaseParams{
		CardID:      card.ID,
		Amount:      mealcard.NewMoney(5),
		Description: "Caesar Salad",
	})
	assert.ErrorIs(t, err, mealcard.ErrCardNotActive)

	txs, err := log.All(ctx, mealcard.TransactionFilter{})
	require.NoError(t, err)
	assert.Empty(t, txs)
}

// =============================================================================
// RECHARGES AND APPROVAL
// =============================================================================

func TestTransactionLog_RecordRecharge_Pending(t *testing.T) {
	// GIVEN: A card
	// WHEN: Recording a 50.00 recharge
	// THEN: It is stored pending with a positive amount and a REF- reference

	log, ledger, _ := newTestLog(t)
	ctx := context.Background()
	card, err := ledger.IssueCard(ctx, "STU001", mealcard.NewMoney(20))
	require.NoError(t, err)

	tx, err := log.RecordRecharge(ctx, card.ID, mealcard.NewMoney(50.00), "Card recharge")
	require.NoError(t, err)

	assert.Equal(t, mealcard.TxRecharge, tx.Type)
	assert.Equal(t, mealcard.TxPending, tx.Status)
	assert.True(t, tx.Amount.Equal(mealcard.NewMoney(50.00)))
	assert.Equal(t, "REF", tx.Reference[:3])
	assert.Empty(t, tx.ApprovedBy)
}

func TestTransactionLog_SetStatus_ApproveOnce(t *testing.T) {
	// GIVEN: A pending recharge
	// WHEN: Approving it, then approving it again
	// THEN: The first transition sticks; the second fails and changes nothing

	log, ledger, _ := newTestLog(t)
	ctx := context.Background()
	card, err := ledger.IssueCard(ctx, "STU001", mealcard.NewMoney(20))
	require.NoError(t, err)
	pending, err := log.RecordRecharge(ctx, card.ID, mealcard.NewMoney(50), "Card recharge")
	require.NoError(t, err)

	approved, err := log.SetStatus(ctx, pending.ID, mealcard.TxCompleted, "manager-1")
	require.NoError(t, err)
	assert.Equal(t, mealcard.TxCompleted, approved.Status)
	assert.Equal(t, mealcard.UserID("manager-1"), approved.ApprovedBy)

	_, err = log.SetStatus(ctx, pending.ID, mealcard.TxRejected, "manager-2")
	assert.ErrorIs(t, err, mealcard.ErrTransactionFinal)

	stored, err := log.Get(ctx, pending.ID)
	require.NoError(t, err)
	assert.Equal(t, mealcard.TxCompleted, stored.Status)
	assert.Equal(t, mealcard.UserID("manager-1"), stored.ApprovedBy, "failed transition must not overwrite the approver")
}

func TestTransactionLog_SetStatus_ConcurrentApprovals(t *testing.T) {
	// GIVEN: Pending recharges
	// WHEN: An approval and a rejection race against each transaction
	// THEN: Exactly one transition lands; the stored record matches the winner

	log, ledger, _ := newTestLog(t)
	ctx := context.Background()
	card, err := ledger.IssueCard(ctx, "STU001", mealcard.NewMoney(20))
	require.NoError(t, err)

	for round := 0; round < 100; round++ {
		pending, err := log.RecordRecharge(ctx, card.ID, mealcard.NewMoney(50), "Card recharge")
		require.NoError(t, err)

		start := make(chan struct{})
		results := make(chan *mealcard.Transaction, 2)
		var wg sync.WaitGroup
		for _, attempt := range []struct {
			status   mealcard.TransactionStatus
			approver mealcard.UserID
		}{
			{mealcard.TxCompleted, "manager-1"},
			{mealcard.TxRejected, "manager-2"},
		} {
			wg.Add(1)
			go func(status mealcard.TransactionStatus, approver mealcard.UserID) {
				defer wg.Done()
				<-start
				tx, err := log.SetStatus(ctx, pending.ID, status, approver)
				if err == nil {
					results <- tx
				} else {
					assert.ErrorIs(t, err, mealcard.ErrTransactionFinal)
				}
			}(attempt.status, attempt.approver)
		}
		close(start)
		wg.Wait()
		close(results)

		var winners []*mealcard.Transaction
		for tx := range results {
			winners = append(winners, tx)
		}
		require.Len(t, winners, 1, "round %d: a pending transaction transitions exactly once", round)

		stored, err := log.Get(ctx, pending.ID)
		require.NoError(t, err)
		assert.Equal(t, winners[0].Status, stored.Status)
		assert.Equal(t, winners[0].ApprovedBy, stored.ApprovedBy)
	}
}

func TestTransactionLog_SetStatus_Reject(t *testing.T) {
	log, ledger, _ := newTestLog(t)
	ctx := context.Background()
	card, err := ledger.IssueCard(ctx, "STU001", mealcard.NewMoney(20))
	require.NoError(t, err)
	pending, err := log.RecordRecharge(ctx, card.ID, mealcard.NewMoney(50), "Card recharge")
	require.NoError(t, err)

	rejected, err := log.SetStatus(ctx, pending.ID, mealcard.TxRejected, "manager-1")
	require.NoError(t, err)
	assert.Equal(t, mealcard.TxRejected, rejected.Status)
}

func TestTransactionLog_SetStatus_Validation(t *testing.T) {
	log, ledger, _ := newTestLog(t)
	ctx := context.Background()
	card, err := ledger.IssueCard(ctx, "STU001", mealcard.NewMoney(20))
	require.NoError(t, err)
	pending, err := log.RecordRecharge(ctx, card.ID, mealcard.NewMoney(50), "Card recharge")
	require.NoError(t, err)

	// pending -> pending is not a transition.
	_, err = log.SetStatus(ctx, pending.ID, mealcard.TxPending, "manager-1")
	assert.ErrorIs(t, err, mealcard.ErrValidation)

	_, err = log.SetStatus(ctx, pending.ID, "refunded", "manager-1")
	assert.ErrorIs(t, err, mealcard.ErrValidation)

	_, err = log.SetStatus(ctx, "missing", mealcard.TxCompleted, "manager-1")
	assert.ErrorIs(t, err, mealcard.ErrTransactionNotFound)
}

// =============================================================================
// LISTING AND STATS
// =============================================================================

func seedTransactions(t *testing.T, log *mealcard.TransactionLog, ledger *mealcard.CardLedger) mealcard.CardID {
	t.Helper()
	ctx := context.Background()
	card, err := ledger.IssueCard(ctx, "STU001", mealcard.NewMoney(500))
	require.NoError(t, err)

	for _, p := range []struct {
		amount float64
		desc   string
	}{
		{12.99, "Chicken Burger"},
		{15.99, "Margherita Pizza"},
		{9.99, "Caesar Salad"},
	} {
		_, _, err := log.Purchase(ctx, mealcard.PurchaseParams{
			CardID: card.ID, Amount: mealcard.NewMoney(p.amount), Description: p.desc,
		})
		require.NoError(t, err)
	}

	recharge, err := log.RecordRecharge(ctx, card.ID, mealcard.NewMoney(100), "Card recharge")
	require.NoError(t, err)
	_, err = log.SetStatus(ctx, recharge.ID, mealcard.TxCompleted, "manager-1")
	require.NoError(t, err)

	_, err = log.RecordRecharge(ctx, card.ID, mealcard.NewMoney(50), "Card recharge")
	require.NoError(t, err)

	return card.ID
}

func TestTransactionLog_List_FilterSortPaginate(t *testing.T) {
	log, ledger, _ := newTestLog(t)
	ctx := context.Background()
	seedTransactions(t, log, ledger)

	all, err := log.List(ctx, mealcard.TransactionFilter{}, mealcard.TransactionSort{}, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 5, all.TotalTransactions)

	purchase := mealcard.TxPurchase
	purchases, err := log.List(ctx, mealcard.TransactionFilter{Type: &purchase}, mealcard.TransactionSort{}, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 3, purchases.TotalTransactions)

	pending := mealcard.TxPending
	pendings, err := log.List(ctx, mealcard.TransactionFilter{Status: &pending}, mealcard.TransactionSort{}, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, pendings.TotalTransactions)

	// Ascending by amount: purchases (negative) come first.
	byAmount, err := log.List(ctx, mealcard.TransactionFilter{}, mealcard.TransactionSort{By: "amount", Ascending: true}, 1, 10)
	require.NoError(t, err)
	assert.True(t, byAmount.Transactions[0].Amount.Equal(mealcard.NewMoney(-15.99)))
	assert.True(t, byAmount.Transactions[4].Amount.Equal(mealcard.NewMoney(100)))

	page2, err := log.List(ctx, mealcard.TransactionFilter{}, mealcard.TransactionSort{}, 2, 2)
	require.NoError(t, err)
	assert.Len(t, page2.Transactions, 2)
	assert.Equal(t, 3, page2.TotalPages)
}

func TestTransactionLog_Stats(t *testing.T) {
	log, ledger, _ := newTestLog(t)
	ctx := context.Background()
	seedTransactions(t, log, ledger)

	stats, err := log.Stats(ctx, nil, nil)
	require.NoError(t, err)

	assert.Equal(t, 5, stats.TotalTransactions)
	assert.Equal(t, 4, stats.CompletedCount)
	assert.Equal(t, 1, stats.PendingCount)
	assert.Equal(t, 3, stats.PurchaseCount)
	assert.Equal(t, 2, stats.RechargeCount)
	assert.True(t, stats.TotalRevenue.Equal(mealcard.NewMoney(38.97)), "revenue should be 38.97, got %s", stats.TotalRevenue)
	assert.True(t, stats.TotalRecharges.Equal(mealcard.NewMoney(100)), "only the approved recharge counts")
}

func TestTransactionLog_Stats_DateBounded(t *testing.T) {
	log, ledger, _ := newTestLog(t)
	ctx := context.Background()
	seedTransactions(t, log, ledger)

	future := time.Now().Add(time.Hour)
	stats, err := log.Stats(ctx, &future, nil)
	require.NoError(t, err)
	assert.Zero(t, stats.TotalTransactions)
}

func TestTransactionLog_Daily(t *testing.T) {
	// All seeded activity lands today; the daily series still covers the
	// requested window with zero-filled days.
	log, ledger, _ := newTestLog(t)
	ctx := context.Background()
	seedTransactions(t, log, ledger)

	daily, err := log.Daily(ctx, 7)
	require.NoError(t, err)
	require.Len(t, daily, 7)

	today := daily[6]
	assert.Equal(t, time.Now().UTC().Format("2006-01-02"), today.Date)
	assert.Equal(t, 4, today.Transactions, "three purchases plus one approved recharge")
	assert.True(t, today.Revenue.Equal(mealcard.NewMoney(38.97)))
	assert.True(t, today.Recharges.Equal(mealcard.NewMoney(100)))

	for _, d := range daily[:6] {
		assert.Zero(t, d.Transactions)
	}
}
