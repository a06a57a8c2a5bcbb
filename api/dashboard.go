/*
dashboard.go - Role-specific dashboard aggregations

PURPOSE:
  One read-only endpoint per role, each assembling the numbers that role's
  dashboard renders. Everything is computed from the live ledger, log,
  directory and catalog; nothing here mutates state.

ENDPOINTS:
  GET /api/dashboard/admin                System-wide overview
  GET /api/dashboard/manager              Pending recharges and activity
  GET /api/dashboard/cashier              Today's till activity
  GET /api/dashboard/student/{studentId}  One student's card view

ACCESS:
  Each dashboard is gated to its role (plus admin). Students may only view
  their own dashboard.

SEE ALSO:
  - handlers.go: Stats endpoints these aggregations build on
  - server.go: Route and role wiring
*/
package api

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/campuscard/server/directory"
	"github.com/campuscard/server/mealcard"
	"github.com/campuscard/server/menu"
)

// AdminDashboard returns the system-wide overview.
// GET /api/dashboard/admin
func (h *Handler) AdminDashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userStats, err := h.Users.Stats(ctx)
	if err != nil {
		h.serverError(w, "Failed to build dashboard", err)
		return
	}
	cardStats, err := h.Ledger.Stats(ctx)
	if err != nil {
		h.serverError(w, "Failed to build dashboard", err)
		return
	}
	daily, err := h.Txns.Daily(ctx, 30)
	if err != nil {
		h.serverError(w, "Failed to build dashboard", err)
		return
	}

	var weeklyRevenue, monthlyRevenue float64
	todayTransactions := 0
	for i, d := range daily {
		monthlyRevenue += d.Revenue.Float64()
		if i >= len(daily)-7 {
			weeklyRevenue += d.Revenue.Float64()
		}
		if i == len(daily)-1 {
			todayTransactions = d.Transactions
		}
	}

	pendingRecharges, err := h.pendingRecharges(ctx)
	if err != nil {
		h.serverError(w, "Failed to build dashboard", err)
		return
	}

	popular, err := h.popularMeals(ctx, 4)
	if err != nil {
		h.serverError(w, "Failed to build dashboard", err)
		return
	}

	recent, err := h.Txns.List(ctx, mealcard.TransactionFilter{}, mealcard.TransactionSort{}, 1, 10)
	if err != nil {
		h.serverError(w, "Failed to build dashboard", err)
		return
	}

	writeData(w, http.StatusOK, "", map[string]any{
		"dashboard": map[string]any{
			"totalStudents":         userStats.ByRole[directory.RoleStudent],
			"totalUsers":            userStats.TotalUsers,
			"activeCards":           cardStats.ActiveCards,
			"totalBalance":          cardStats.TotalBalance.Float64(),
			"todayTransactions":     todayTransactions,
			"weeklyRevenue":         weeklyRevenue,
			"monthlyRevenue":        monthlyRevenue,
			"pendingRecharges":      len(pendingRecharges),
			"popularMeals":          popular,
			"recentTransactions":    toTransactionDTOs(recent.Transactions),
			"weeklyTransactionData": weeklyTransactionData(daily),
		},
	})
}

// ManagerDashboard returns the recharge approval queue and daily activity.
// GET /api/dashboard/manager
func (h *Handler) ManagerDashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	cardStats, err := h.Ledger.Stats(ctx)
	if err != nil {
		h.serverError(w, "Failed to build dashboard", err)
		return
	}
	daily, err := h.Txns.Daily(ctx, 7)
	if err != nil {
		h.serverError(w, "Failed to build dashboard", err)
		return
	}

	var weeklyRevenue float64
	todayTransactions := 0
	for i, d := range daily {
		weeklyRevenue += d.Revenue.Float64()
		if i == len(daily)-1 {
			todayTransactions = d.Transactions
		}
	}

	pending, err := h.pendingRecharges(ctx)
	if err != nil {
		h.serverError(w, "Failed to build dashboard", err)
		return
	}
	requests := make([]map[string]any, len(pending))
	for i, tx := range pending {
		entry := map[string]any{
			"id":        string(tx.ID),
			"cardId":    string(tx.CardID),
			"amount":    tx.Amount.Float64(),
			"status":    string(tx.Status),
			"timestamp": tx.CreatedAt.UTC().Format(time.RFC3339),
		}
		if card, err := h.Ledger.Get(ctx, tx.CardID); err == nil {
			entry["studentId"] = string(card.StudentID)
		}
		requests[i] = entry
	}

	writeData(w, http.StatusOK, "", map[string]any{
		"dashboard": map[string]any{
			"pendingRecharges":  len(pending),
			"rechargeRequests":  requests,
			"todayTransactions": todayTransactions,
			"weeklyRevenue":     weeklyRevenue,
			"activeCards":       cardStats.ActiveCards,
			"averageBalance":    cardStats.AverageBalance.Float64(),
		},
	})
}

// CashierDashboard returns today's till activity.
// GET /api/dashboard/cashier
func (h *Handler) CashierDashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	midnight := time.Now().UTC().Truncate(24 * time.Hour)
	purchase := mealcard.TxPurchase
	completed := mealcard.TxCompleted
	today, err := h.Txns.All(ctx, mealcard.TransactionFilter{
		Type:   &purchase,
		Status: &completed,
		From:   &midnight,
	})
	if err != nil {
		h.serverError(w, "Failed to build dashboard", err)
		return
	}

	revenue := mealcard.ZeroMoney()
	for _, tx := range today {
		revenue = revenue.Add(tx.Amount.Abs())
	}
	averageOrder := 0.0
	if len(today) > 0 {
		averageOrder = revenue.Float64() / float64(len(today))
	}

	sort.Slice(today, func(i, j int) bool { return today[i].CreatedAt.After(today[j].CreatedAt) })
	recent := today
	if len(recent) > 10 {
		recent = recent[:10]
	}

	popular, err := h.popularMeals(ctx, 3)
	if err != nil {
		h.serverError(w, "Failed to build dashboard", err)
		return
	}

	meals, err := h.Meals.List(ctx, menu.Filter{}, menu.Sort{Ascending: true}, 1, 50)
	if err != nil {
		h.serverError(w, "Failed to build dashboard", err)
		return
	}
	availability := make([]map[string]any, len(meals.Meals))
	for i, m := range meals.Meals {
		availability[i] = map[string]any{
			"name":      m.Name,
			"available": m.Available,
		}
	}

	writeData(w, http.StatusOK, "", map[string]any{
		"dashboard": map[string]any{
			"todayOrders":       len(today),
			"todayRevenue":      revenue.Float64(),
			"averageOrderValue": averageOrder,
			"popularItems":      popular,
			"recentOrders":      toTransactionDTOs(recent),
			"mealAvailability":  availability,
		},
	})
}

// pendingRecharges returns all recharges awaiting approval.
func (h *Handler) pendingRecharges(ctx context.Context) ([]*mealcard.Transaction, error) {
	recharge := mealcard.TxRecharge
	pending := mealcard.TxPending
	return h.Txns.All(ctx, mealcard.TransactionFilter{Type: &recharge, Status: &pending})
}

// popularMeals ranks the catalog by completed purchases.
func (h *Handler) popularMeals(ctx context.Context, limit int) ([]PopularMealDTO, error) {
	purchase := mealcard.TxPurchase
	completed := mealcard.TxCompleted
	txs, err := h.Txns.All(ctx, mealcard.TransactionFilter{Type: &purchase, Status: &completed})
	if err != nil {
		return nil, err
	}
	ranked, err := h.Meals.Popular(ctx, txs, limit)
	if err != nil {
		return nil, err
	}
	return toPopularMealDTOs(ranked), nil
}

// weeklyTransactionData shapes the last seven daily summaries for charting.
func weeklyTransactionData(daily []mealcard.DailyStats) []map[string]any {
	if len(daily) > 7 {
		daily = daily[len(daily)-7:]
	}
	out := make([]map[string]any, 0, len(daily))
	for _, d := range daily {
		day := d.Date
		if t, err := time.Parse("2006-01-02", d.Date); err == nil {
			day = t.Weekday().String()
		}
		out = append(out, map[string]any{
			"day":          day,
			"date":         d.Date,
			"transactions": d.Transactions,
			"revenue":      d.Revenue.Float64(),
		})
	}
	return out
}

// StudentDashboard returns one student's card, recent activity and
// spending summary. Students may only view their own.
// GET /api/dashboard/student/{studentId}
func (h *Handler) StudentDashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	studentID := mealcard.StudentID(chi.URLParam(r, "studentId"))

	if claims, ok := ClaimsFromContext(ctx); ok && claims.Role == directory.RoleStudent {
		user, err := h.Users.Get(ctx, claims.UserID)
		if err != nil {
			h.domainError(w, err)
			return
		}
		if user.StudentID != studentID {
			writeFailure(w, http.StatusForbidden, "Insufficient permissions")
			return
		}
	}

	cards, err := h.Ledger.List(ctx, mealcard.CardFilter{StudentID: &studentID}, 1, 1)
	if err != nil {
		h.serverError(w, "Failed to build dashboard", err)
		return
	}
	if len(cards.Cards) == 0 {
		writeFailure(w, http.StatusNotFound, "Meal card not found")
		return
	}
	card := cards.Cards[0]

	cardID := card.ID
	recent, err := h.Txns.List(ctx, mealcard.TransactionFilter{CardID: &cardID}, mealcard.TransactionSort{}, 1, 10)
	if err != nil {
		h.serverError(w, "Failed to build dashboard", err)
		return
	}

	now := time.Now().UTC()
	weekAgo := now.AddDate(0, 0, -7)
	twoWeeksAgo := now.AddDate(0, 0, -14)
	current, err := h.spentBetween(ctx, cardID, weekAgo, now)
	if err != nil {
		h.serverError(w, "Failed to build dashboard", err)
		return
	}
	previous, err := h.spentBetween(ctx, cardID, twoWeeksAgo, weekAgo)
	if err != nil {
		h.serverError(w, "Failed to build dashboard", err)
		return
	}

	dashboard := map[string]any{
		"cardBalance":        card.Balance.Float64(),
		"cardStatus":         string(card.Status),
		"cardNumber":         card.CardNumber,
		"expiryDate":         card.ExpiresAt.UTC().Format(time.RFC3339),
		"recentTransactions": toTransactionDTOs(recent.Transactions),
		"weeklySpending": map[string]any{
			"current":  current,
			"previous": previous,
		},
	}

	pending, err := h.pendingRecharges(ctx)
	if err != nil {
		h.serverError(w, "Failed to build dashboard", err)
		return
	}
	for _, tx := range pending {
		if tx.CardID == card.ID {
			dashboard["pendingRecharge"] = map[string]any{
				"amount":      tx.Amount.Float64(),
				"status":      string(tx.Status),
				"requestedAt": tx.CreatedAt.UTC().Format(time.RFC3339),
			}
			break
		}
	}

	writeData(w, http.StatusOK, "", map[string]any{"dashboard": dashboard})
}

// spentBetween sums a card's completed purchases in [from, to).
func (h *Handler) spentBetween(ctx context.Context, cardID mealcard.CardID, from, to time.Time) (float64, error) {
	purchase := mealcard.TxPurchase
	completed := mealcard.TxCompleted
	txs, err := h.Txns.All(ctx, mealcard.TransactionFilter{
		Type:   &purchase,
		Status: &completed,
		CardID: &cardID,
		From:   &from,
		To:     &to,
	})
	if err != nil {
		return 0, err
	}
	total := mealcard.ZeroMoney()
	for _, tx := range txs {
		total = total.Add(tx.Amount.Abs())
	}
	return total.Float64(), nil
}
