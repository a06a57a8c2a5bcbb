package mealcard_test

import (
	"context"
	"fmt"
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

func newTestLedger(t *testing.T) (*mealcard.CardLedger, *memory.Store) {
	t.Helper()
	store := memory.New()
	return mealcard.NewCardLedger(store), store
}

func issueCard(t *testing.T, ledger *mealcard.CardLedger, studentID string, balance float64) *mealcard.Card {
	t.Helper()
	card, err := ledger.IssueCard(context.Background(), mealcard.StudentID(studentID), mealcard.NewMoney(balance))
	require.NoError(t, err)
	return card
}

// =============================================================================
// ISSUANCE
// =============================================================================

func TestCardLedger_IssueCard(t *testing.T) {
	// GIVEN: A student with no card
	// WHEN: Issuing a card with an initial balance
	// THEN: The card is active, funded and expires in one year

	ledger, _ := newTestLedger(t)

	card := issueCard(t, ledger, "STU001", 150.75)

	assert.Equal(t, mealcard.StudentID("STU001"), card.StudentID)
	assert.Equal(t, mealcard.CardActive, card.Status)
	assert.True(t, card.Balance.Equal(mealcard.NewMoney(150.75)), "balance should be exactly 150.75")
	assert.NotEmpty(t, card.ID)
	assert.True(t, len(card.CardNumber) > 2 && card.CardNumber[:2] == "MC", "card number should start with MC")
	assert.WithinDuration(t, card.IssuedAt.Add(mealcard.CardValidity), card.ExpiresAt, time.Second)
	assert.Nil(t, card.LastUsedAt)
}

func TestCardLedger_IssueCard_SecondActiveCardRejected(t *testing.T) {
	// GIVEN: A student who already holds an active card
	// WHEN: Issuing another card for the same student
	// THEN: The issuance fails with ErrActiveCardExists

	ledger, _ := newTestLedger(t)
	issueCard(t, ledger, "STU001", 50)

	_, err := ledger.IssueCard(context.Background(), "STU001", mealcard.ZeroMoney())

	assert.ErrorIs(t, err, mealcard.ErrActiveCardExists)
}

func TestCardLedger_IssueCard_ConcurrentSameStudent(t *testing.T) {
	// GIVEN: A student with no card
	// WHEN: 8 concurrent issuances race for the same student
	// THEN: Exactly one card is created; the rest fail with ErrActiveCardExists

	ledger, store := newTestLedger(t)
	ctx := context.Background()

	for round := 0; round < 50; round++ {
		studentID := mealcard.StudentID(fmt.Sprintf("STU%03d", round))

		start := make(chan struct{})
		var wg sync.WaitGroup
		var mu sync.Mutex
		issued := 0
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				<-start
				_, err := ledger.IssueCard(ctx, studentID, mealcard.NewMoney(50))
				if err == nil {
					mu.Lock()
					issued++
					mu.Unlock()
				} else {
					assert.ErrorIs(t, err, mealcard.ErrActiveCardExists)
				}
			}()
		}
		close(start)
		wg.Wait()

		require.Equal(t, 1, issued, "round %d: one active card per student", round)
		active := mealcard.CardActive
		cards, err := store.ListCards(ctx, mealcard.CardFilter{Status: &active, StudentID: &studentID})
		require.NoError(t, err)
		require.Len(t, cards, 1, "round %d", round)
	}
}

func TestCardLedger_IssueCard_AllowedAfterBlock(t *testing.T) {
	// GIVEN: A student whose only card is blocked
	// WHEN: Issuing a new card
	// THEN: The issuance succeeds (uniqueness applies to active cards only)

	ledger, _ := newTestLedger(t)
	ctx := context.Background()
	first := issueCard(t, ledger, "STU001", 50)

	_, err := ledger.SetStatus(ctx, first.ID, mealcard.CardBlocked)
	require.NoError(t, err)

	second, err := ledger.IssueCard(ctx, "STU001", mealcard.ZeroMoney())
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestCardLedger_IssueCard_Validation(t *testing.T) {
	ledger, _ := newTestLedger(t)
	ctx := context.Background()

	_, err := ledger.IssueCard(ctx, "", mealcard.ZeroMoney())
	assert.ErrorIs(t, err, mealcard.ErrValidation, "empty student ID")

	_, err = ledger.IssueCard(ctx, "STU001", mealcard.NewMoney(-5))
	assert.ErrorIs(t, err, mealcard.ErrValidation, "negative initial balance")
}

// =============================================================================
// BALANCE ADJUSTMENTS
// =============================================================================

func TestCardLedger_AdjustBalance_AddAndDeduct(t *testing.T) {
	// GIVEN: A card with 150.75
	// WHEN: Adding 50.00 and then deducting 12.99
	// THEN: Each receipt reports the previous and new balance exactly

	ledger, _ := newTestLedger(t)
	ctx := context.Background()
	card := issueCard(t, ledger, "STU001", 150.75)

	change, err := ledger.AdjustBalance(ctx, card.ID, mealcard.NewMoney(50.00), mealcard.AdjustAdd)
	require.NoError(t, err)
	assert.True(t, change.PreviousBalance.Equal(mealcard.NewMoney(150.75)))
	assert.True(t, change.NewBalance.Equal(mealcard.NewMoney(200.75)))

	change, err = ledger.AdjustBalance(ctx, card.ID, mealcard.NewMoney(12.99), mealcard.AdjustDeduct)
	require.NoError(t, err)
	assert.True(t, change.PreviousBalance.Equal(mealcard.NewMoney(200.75)))
	assert.True(t, change.NewBalance.Equal(mealcard.NewMoney(187.76)))
	require.NotNil(t, change.Card.LastUsedAt)
}

func TestCardLedger_AdjustBalance_ToExactlyZero(t *testing.T) {
	// GIVEN: A card with 12.99
	// WHEN: Deducting exactly 12.99
	// THEN: The deduction succeeds and the balance is zero

	ledger, _ := newTestLedger(t)
	card := issueCard(t, ledger, "STU001", 12.99)

	change, err := ledger.AdjustBalance(context.Background(), card.ID, mealcard.NewMoney(12.99), mealcard.AdjustDeduct)

	require.NoError(t, err)
	assert.True(t, change.NewBalance.IsZero())
}

func TestCardLedger_AdjustBalance_InsufficientFunds(t *testing.T) {
	// GIVEN: A card with 10.00
	// WHEN: Deducting 10.01
	// THEN: The deduction fails and the stored balance is unchanged

	ledger, store := newTestLedger(t)
	ctx := context.Background()
	card := issueCard(t, ledger, "STU001", 10.00)

	_, err := ledger.AdjustBalance(ctx, card.ID, mealcard.NewMoney(10.01), mealcard.AdjustDeduct)

	assert.ErrorIs(t, err, mealcard.ErrInsufficientFunds)
	var fundsErr *mealcard.InsufficientFundsError
	require.ErrorAs(t, err, &fundsErr)
	assert.True(t, fundsErr.Shortfall.Equal(mealcard.NewMoney(0.01)))

	stored, err := store.GetCard(ctx, card.ID)
	require.NoError(t, err)
	assert.True(t, stored.Balance.Equal(mealcard.NewMoney(10.00)), "failed deduction must not move the balance")
	assert.Nil(t, stored.LastUsedAt, "failed deduction must not touch LastUsedAt")
}

func TestCardLedger_AdjustBalance_InactiveCardRejected(t *testing.T) {
	// GIVEN: A blocked card
	// WHEN: Crediting it
	// THEN: The mutation fails with a card state error

	ledger, _ := newTestLedger(t)
	ctx := context.Background()
	card := issueCard(t, ledger, "STU001", 25)
	_, err := ledger.SetStatus(ctx, card.ID, mealcard.CardBlocked)
	require.NoError(t, err)

	_, err = ledger.AdjustBalance(ctx, card.ID, mealcard.NewMoney(5), mealcard.AdjustAdd)

	assert.ErrorIs(t, err, mealcard.ErrCardNotActive)
	var stateErr *mealcard.CardStateError
	require.ErrorAs(t, err, &stateErr)
	assert.Equal(t, mealcard.CardBlocked, stateErr.Status)
}

func TestCardLedger_AdjustBalance_Validation(t *testing.T) {
	ledger, _ := newTestLedger(t)
	ctx := context.Background()
	card := issueCard(t, ledger, "STU001", 25)

	_, err := ledger.AdjustBalance(ctx, card.ID, mealcard.NewMoney(5), "multiply")
	assert.ErrorIs(t, err, mealcard.ErrValidation, "unknown direction")

	_, err = ledger.AdjustBalance(ctx, card.ID, mealcard.NewMoney(-5), mealcard.AdjustAdd)
	assert.ErrorIs(t, err, mealcard.ErrValidation, "negative amount")

	_, err = ledger.AdjustBalance(ctx, "missing", mealcard.NewMoney(5), mealcard.AdjustAdd)
	assert.ErrorIs(t, err, mealcard.ErrCardNotFound)
}

func TestCardLedger_AdjustBalance_ConcurrentDeductions(t *testing.T) {
	// GIVEN: A card with 100.00
	// WHEN: 20 concurrent deductions of 10.00 race against it
	// THEN: Exactly 10 succeed and the balance lands on zero

	ledger, store := newTestLedger(t)
	ctx := context.Background()
	card := issueCard(t, ledger, "STU001", 100.00)

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := ledger.AdjustBalance(ctx, card.ID, mealcard.NewMoney(10.00), mealcard.AdjustDeduct)
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, succeeded)
	stored, err := store.GetCard(ctx, card.ID)
	require.NoError(t, err)
	assert.True(t, stored.Balance.IsZero(), "balance should be exactly zero, got %s", stored.Balance)
}

// =============================================================================
// STATUS
// =============================================================================

func TestCardLedger_SetStatus(t *testing.T) {
	// GIVEN: An active card
	// WHEN: Blocking it, then reactivating it
	// THEN: Both transitions are applied (no transition graph is enforced)

	ledger, _ := newTestLedger(t)
	ctx := context.Background()
	card := issueCard(t, ledger, "STU001", 25)

	blocked, err := ledger.SetStatus(ctx, card.ID, mealcard.CardBlocked)
	require.NoError(t, err)
	assert.Equal(t, mealcard.CardBlocked, blocked.Status)

	active, err := ledger.SetStatus(ctx, card.ID, mealcard.CardActive)
	require.NoError(t, err)
	assert.Equal(t, mealcard.CardActive, active.Status)

	_, err = ledger.SetStatus(ctx, card.ID, "lost")
	assert.ErrorIs(t, err, mealcard.ErrValidation)
}

// =============================================================================
// LISTING AND STATS
// =============================================================================

func TestCardLedger_List_FilterAndPaginate(t *testing.T) {
	ledger, _ := newTestLedger(t)
	ctx := context.Background()

	for _, id := range []string{"STU001", "STU002", "STU003"} {
		issueCard(t, ledger, id, 10)
	}
	blockedCard := issueCard(t, ledger, "STU004", 10)
	_, err := ledger.SetStatus(ctx, blockedCard.ID, mealcard.CardBlocked)
	require.NoError(t, err)

	all, err := ledger.List(ctx, mealcard.CardFilter{}, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 4, all.TotalCards)

	blocked := mealcard.CardBlocked
	filtered, err := ledger.List(ctx, mealcard.CardFilter{Status: &blocked}, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, filtered.TotalCards)

	page2, err := ledger.List(ctx, mealcard.CardFilter{}, 2, 3)
	require.NoError(t, err)
	assert.Len(t, page2.Cards, 1)
	assert.Equal(t, 2, page2.TotalPages)
}

func TestCardLedger_Stats(t *testing.T) {
	ledger, _ := newTestLedger(t)
	ctx := context.Background()

	issueCard(t, ledger, "STU001", 150.75)
	issueCard(t, ledger, "STU002", 89.50)
	blockedCard := issueCard(t, ledger, "STU003", 9.75)
	_, err := ledger.SetStatus(ctx, blockedCard.ID, mealcard.CardBlocked)
	require.NoError(t, err)

	stats, err := ledger.Stats(ctx)
	require.NoError(t, err)

	assert.Equal(t, 3, stats.TotalCards)
	assert.Equal(t, 2, stats.ActiveCards)
	assert.Equal(t, 1, stats.BlockedCards)
	assert.True(t, stats.TotalBalance.Equal(mealcard.NewMoney(250.00)))
	assert.InDelta(t, 83.33, stats.AverageBalance.Float64(), 0.01)
}

// =============================================================================
// EXPIRY SWEEP
// =============================================================================

func TestCardLedger_ExpireOverdue(t *testing.T) {
	// GIVEN: Two active cards
	// WHEN: Sweeping past their expiry date
	// THEN: Both transition to expired; a second sweep finds nothing

	ledger, store := newTestLedger(t)
	ctx := context.Background()

	card1 := issueCard(t, ledger, "STU001", 10)
	issueCard(t, ledger, "STU002", 20)

	future := time.Now().Add(mealcard.CardValidity + 24*time.Hour)

	expired, err := ledger.ExpireOverdue(ctx, future)
	require.NoError(t, err)
	assert.Equal(t, 2, expired)

	stored, err := store.GetCard(ctx, card1.ID)
	require.NoError(t, err)
	assert.Equal(t, mealcard.CardExpired, stored.Status)

	expired, err = ledger.ExpireOverdue(ctx, future)
	require.NoError(t, err)
	assert.Zero(t, expired)
}

func TestCardLedger_ExpireOverdue_SkipsUnexpired(t *testing.T) {
	ledger, _ := newTestLedger(t)
	issueCard(t, ledger, "STU001", 10)

	expired, err := ledger.ExpireOverdue(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Zero(t, expired)
}
