/*
handlers.go - HTTP handlers for the campus meal-card system

PURPOSE:
  Exposes the card ledger, transaction log, user directory and meal
  catalog over REST. Handles HTTP request/response, JSON serialization,
  and delegates to domain logic.

ENDPOINTS:
  Cards:
    GET    /api/cards                    List cards (filter + paginate)
    POST   /api/cards                    Issue a card
    GET    /api/cards/{id}               Get card details
    PUT    /api/cards/{id}/balance       Adjust balance (add/deduct)
    PUT    /api/cards/{id}/status        Change card status
    GET    /api/cards/stats/overview     Card statistics

  Transactions:
    GET    /api/transactions                  List (filter/sort/paginate)
    POST   /api/transactions                  Purchase or recharge
    GET    /api/transactions/{id}             Get transaction
    PUT    /api/transactions/{id}/status      Approve/reject recharge
    GET    /api/transactions/stats/overview   Transaction statistics
    GET    /api/transactions/stats/daily      Daily summaries

  Users, meals and dashboards follow the same shape; see server.go for
  the full route table.

REQUEST FLOW:
  1. Parse HTTP request
  2. Validate input
  3. Call domain logic (ledger, log, directory, catalog)
  4. Serialize response in the envelope
  5. Map domain errors to status codes

ERROR HANDLING:
  - 400: Validation errors, state errors, insufficient balance
  - 401: Missing/invalid credentials or token
  - 403: Role not allowed
  - 404: Entity not found
  - 409: Duplicate active card, duplicate email
  - 500: Everything else (logged, details withheld from the client)

SEE ALSO:
  - dto.go: Request/response data structures
  - auth.go: Login and token middleware
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/campuscard/server/directory"
	"github.com/campuscard/server/mealcard"
	"github.com/campuscard/server/menu"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Ledger *mealcard.CardLedger
	Txns   *mealcard.TransactionLog
	Users  *directory.Directory
	Meals  *menu.Catalog
	Tokens *directory.TokenIssuer
	Log    *logrus.Logger
}

// NewHandler creates a handler over the wired services.
func NewHandler(ledger *mealcard.CardLedger, txns *mealcard.TransactionLog, users *directory.Directory, meals *menu.Catalog, tokens *directory.TokenIssuer, log *logrus.Logger) *Handler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Handler{Ledger: ledger, Txns: txns, Users: users, Meals: meals, Tokens: tokens, Log: log}
}

// =============================================================================
// ERROR MAPPING
// =============================================================================

// domainError translates a domain error into an envelope response.
func (h *Handler) domainError(w http.ResponseWriter, err error) {
	var vErr *mealcard.ValidationError
	if errors.As(err, &vErr) {
		writeFieldErrors(w, FieldError{Field: vErr.Field, Message: vErr.Message})
		return
	}

	switch {
	case errors.Is(err, mealcard.ErrCardNotFound):
		writeFailure(w, http.StatusNotFound, "Meal card not found")
	case errors.Is(err, mealcard.ErrTransactionNotFound):
		writeFailure(w, http.StatusNotFound, "Transaction not found")
	case errors.Is(err, directory.ErrUserNotFound):
		writeFailure(w, http.StatusNotFound, "User not found")
	case errors.Is(err, menu.ErrMealNotFound):
		writeFailure(w, http.StatusNotFound, "Meal not found")
	case errors.Is(err, mealcard.ErrActiveCardExists):
		writeFailure(w, http.StatusConflict, "Student already has an active meal card")
	case errors.Is(err, directory.ErrEmailTaken):
		writeFailure(w, http.StatusConflict, "User already exists with this email")
	case errors.Is(err, mealcard.ErrCardNotActive):
		writeFailure(w, http.StatusBadRequest, "Cannot modify balance of inactive card")
	case errors.Is(err, mealcard.ErrInsufficientFunds):
		writeFailure(w, http.StatusBadRequest, "Insufficient balance")
	case errors.Is(err, mealcard.ErrTransactionFinal):
		writeFailure(w, http.StatusBadRequest, "Only pending transactions can be updated")
	case errors.Is(err, directory.ErrInvalidCredentials):
		writeFailure(w, http.StatusUnauthorized, "Invalid credentials")
	default:
		h.serverError(w, "Internal server error", err)
	}
}

func (h *Handler) serverError(w http.ResponseWriter, message string, err error) {
	h.Log.WithError(err).Error(message)
	writeFailure(w, http.StatusInternalServerError, "Internal server error")
}

// =============================================================================
// QUERY HELPERS
// =============================================================================

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}

// queryTime accepts RFC3339 or plain dates. Date-only values are taken as
// midnight UTC.
func queryTime(r *http.Request, key string) *time.Time {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t
	}
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return &t
	}
	return nil
}

// =============================================================================
// CARD HANDLERS
// =============================================================================

// ListCards returns cards matching the query filters, paginated.
// GET /api/cards
func (h *Handler) ListCards(w http.ResponseWriter, r *http.Request) {
	var filter mealcard.CardFilter
	if raw := r.URL.Query().Get("status"); raw != "" && raw != "all" {
		status := mealcard.CardStatus(raw)
		filter.Status = &status
	}
	if raw := r.URL.Query().Get("studentId"); raw != "" {
		studentID := mealcard.StudentID(raw)
		filter.StudentID = &studentID
	}

	page, err := h.Ledger.List(r.Context(), filter, queryInt(r, "page", 1), queryInt(r, "limit", 10))
	if err != nil {
		h.serverError(w, "Failed to list cards", err)
		return
	}

	writeData(w, http.StatusOK, "", map[string]any{
		"cards":       toCardDTOs(page.Cards),
		"totalCards":  page.TotalCards,
		"currentPage": page.Page,
		"totalPages":  page.TotalPages,
	})
}

// CreateCard issues a new card for a student.
// POST /api/cards
func (h *Handler) CreateCard(w http.ResponseWriter, r *http.Request) {
	var req CreateCardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFailure(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	balance := mealcard.ZeroMoney()
	if req.InitialBalance != nil {
		balance = mealcard.NewMoney(*req.InitialBalance)
	}

	card, err := h.Ledger.IssueCard(r.Context(), mealcard.StudentID(req.StudentID), balance)
	if err != nil {
		h.domainError(w, err)
		return
	}
	writeData(w, http.StatusCreated, "Meal card created successfully", map[string]any{"card": toCardDTO(card)})
}

// GetCard returns a single card.
// GET /api/cards/{id}
func (h *Handler) GetCard(w http.ResponseWriter, r *http.Request) {
	card, err := h.Ledger.Get(r.Context(), mealcard.CardID(chi.URLParam(r, "id")))
	if err != nil {
		h.domainError(w, err)
		return
	}
	writeData(w, http.StatusOK, "", map[string]any{"card": toCardDTO(card)})
}

// UpdateBalance credits or debits a card and returns the receipt.
// PUT /api/cards/{id}/balance
func (h *Handler) UpdateBalance(w http.ResponseWriter, r *http.Request) {
	var req UpdateBalanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFailure(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	change, err := h.Ledger.AdjustBalance(
		r.Context(),
		mealcard.CardID(chi.URLParam(r, "id")),
		mealcard.NewMoney(req.Amount),
		mealcard.AdjustDirection(req.Type),
	)
	if err != nil {
		h.domainError(w, err)
		return
	}

	writeData(w, http.StatusOK, "Balance updated successfully", toBalanceChangeDTO(change))
}

// UpdateCardStatus overwrites a card's status.
// PUT /api/cards/{id}/status
func (h *Handler) UpdateCardStatus(w http.ResponseWriter, r *http.Request) {
	var req UpdateCardStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFailure(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	card, err := h.Ledger.SetStatus(r.Context(), mealcard.CardID(chi.URLParam(r, "id")), mealcard.CardStatus(req.Status))
	if err != nil {
		h.domainError(w, err)
		return
	}
	writeData(w, http.StatusOK, "Card status updated successfully", map[string]any{"card": toCardDTO(card)})
}

// CardStats returns collection-wide card statistics.
// GET /api/cards/stats/overview
func (h *Handler) CardStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Ledger.Stats(r.Context())
	if err != nil {
		h.serverError(w, "Failed to get card stats", err)
		return
	}
	writeData(w, http.StatusOK, "", map[string]any{"stats": toCardStatsDTO(stats)})
}

// =============================================================================
// TRANSACTION HANDLERS
// =============================================================================

func transactionFilterFromQuery(r *http.Request) mealcard.TransactionFilter {
	var filter mealcard.TransactionFilter
	if raw := r.URL.Query().Get("type"); raw != "" && raw != "all" {
		txType := mealcard.TransactionType(raw)
		filter.Type = &txType
	}
	if raw := r.URL.Query().Get("status"); raw != "" && raw != "all" {
		status := mealcard.TransactionStatus(raw)
		filter.Status = &status
	}
	if raw := r.URL.Query().Get("cardId"); raw != "" {
		cardID := mealcard.CardID(raw)
		filter.CardID = &cardID
	}
	filter.From = queryTime(r, "startDate")
	filter.To = queryTime(r, "endDate")
	return filter
}

// ListTransactions returns transactions matching the query, sorted and
// paginated.
// GET /api/transactions
func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	sortBy := mealcard.TransactionSort{
		By:        r.URL.Query().Get("sortBy"),
		Ascending: r.URL.Query().Get("sortOrder") == "asc",
	}

	page, err := h.Txns.List(r.Context(), transactionFilterFromQuery(r), sortBy, queryInt(r, "page", 1), queryInt(r, "limit", 10))
	if err != nil {
		h.serverError(w, "Failed to list transactions", err)
		return
	}

	writeData(w, http.StatusOK, "", map[string]any{
		"transactions":      toTransactionDTOs(page.Transactions),
		"totalTransactions": page.TotalTransactions,
		"currentPage":       page.Page,
		"totalPages":        page.TotalPages,
	})
}

// CreateTransaction records a purchase or a recharge. Purchases deduct the
// card balance and append the record atomically; recharges are appended
// pending and credit nothing until approved.
// POST /api/transactions
func (h *Handler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req CreateTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFailure(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	cashierID := mealcard.UserID(req.CashierID)
	if cashierID == "" {
		if claims, ok := ClaimsFromContext(r.Context()); ok {
			cashierID = claims.UserID
		}
	}

	switch mealcard.TransactionType(req.Type) {
	case mealcard.TxPurchase:
		tx, change, err := h.Txns.Purchase(r.Context(), mealcard.PurchaseParams{
			CardID:      mealcard.CardID(req.CardID),
			Amount:      mealcard.NewMoney(req.Amount),
			Description: req.Description,
			MealID:      mealcard.MealID(req.MealID),
			CashierID:   cashierID,
		})
		if err != nil {
			h.domainError(w, err)
			return
		}
		writeData(w, http.StatusCreated, "Transaction created successfully", struct {
			Transaction TransactionDTO `json:"transaction"`
			BalanceChangeDTO
		}{toTransactionDTO(tx), toBalanceChangeDTO(change)})

	case mealcard.TxRecharge:
		tx, err := h.Txns.RecordRecharge(r.Context(), mealcard.CardID(req.CardID), mealcard.NewMoney(req.Amount), req.Description)
		if err != nil {
			h.domainError(w, err)
			return
		}
		writeData(w, http.StatusCreated, "Transaction created successfully", map[string]any{
			"transaction": toTransactionDTO(tx),
		})

	default:
		writeFieldErrors(w, FieldError{Field: "type", Message: "Invalid transaction type"})
	}
}

// GetTransaction returns a single transaction.
// GET /api/transactions/{id}
func (h *Handler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	tx, err := h.Txns.Get(r.Context(), mealcard.TransactionID(chi.URLParam(r, "id")))
	if err != nil {
		h.domainError(w, err)
		return
	}
	writeData(w, http.StatusOK, "", map[string]any{"transaction": toTransactionDTO(tx)})
}

// UpdateTransactionStatus approves or rejects a pending recharge.
// PUT /api/transactions/{id}/status
func (h *Handler) UpdateTransactionStatus(w http.ResponseWriter, r *http.Request) {
	var req UpdateTransactionStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFailure(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	approvedBy := mealcard.UserID(req.ApprovedBy)
	if approvedBy == "" {
		if claims, ok := ClaimsFromContext(r.Context()); ok {
			approvedBy = claims.UserID
		}
	}

	tx, err := h.Txns.SetStatus(
		r.Context(),
		mealcard.TransactionID(chi.URLParam(r, "id")),
		mealcard.TransactionStatus(req.Status),
		approvedBy,
	)
	if err != nil {
		h.domainError(w, err)
		return
	}
	writeData(w, http.StatusOK, "Transaction status updated successfully", map[string]any{
		"transaction": toTransactionDTO(tx),
	})
}

// TransactionStats returns log-wide statistics, optionally date-bounded.
// GET /api/transactions/stats/overview
func (h *Handler) TransactionStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Txns.Stats(r.Context(), queryTime(r, "startDate"), queryTime(r, "endDate"))
	if err != nil {
		h.serverError(w, "Failed to get transaction stats", err)
		return
	}
	writeData(w, http.StatusOK, "", map[string]any{"stats": toTransactionStatsDTO(stats)})
}

// DailyTransactionStats returns per-day summaries, oldest first.
// GET /api/transactions/stats/daily
func (h *Handler) DailyTransactionStats(w http.ResponseWriter, r *http.Request) {
	daily, err := h.Txns.Daily(r.Context(), queryInt(r, "days", 7))
	if err != nil {
		h.serverError(w, "Failed to get daily stats", err)
		return
	}
	writeData(w, http.StatusOK, "", map[string]any{"dailyStats": toDailyStatsDTOs(daily)})
}

// =============================================================================
// USER HANDLERS
// =============================================================================

// ListUsers returns users matching the query, paginated.
// GET /api/users
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	filter := directory.Filter{
		Search: r.URL.Query().Get("search"),
	}
	if raw := r.URL.Query().Get("role"); raw != "" && raw != "all" {
		filter.Role = directory.Role(raw)
	}

	page, err := h.Users.List(r.Context(), filter, queryInt(r, "page", 1), queryInt(r, "limit", 10))
	if err != nil {
		h.serverError(w, "Failed to list users", err)
		return
	}

	writeData(w, http.StatusOK, "", map[string]any{
		"users":       toUserDTOs(page.Users),
		"totalUsers":  page.TotalUsers,
		"currentPage": page.Page,
		"totalPages":  page.TotalPages,
	})
}

// GetUser returns a single user.
// GET /api/users/{id}
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.Users.Get(r.Context(), mealcard.UserID(chi.URLParam(r, "id")))
	if err != nil {
		h.domainError(w, err)
		return
	}
	writeData(w, http.StatusOK, "", map[string]any{"user": toUserDTO(user)})
}

// UpdateUser applies a partial profile update.
// PUT /api/users/{id}
func (h *Handler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	var req UpdateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFailure(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	params := directory.UpdateParams{
		Name:     req.Name,
		Email:    req.Email,
		IsActive: req.IsActive,
		Avatar:   req.Avatar,
	}
	if req.Role != nil {
		role := directory.Role(*req.Role)
		params.Role = &role
	}

	user, err := h.Users.Update(r.Context(), mealcard.UserID(chi.URLParam(r, "id")), params)
	if err != nil {
		h.domainError(w, err)
		return
	}
	writeData(w, http.StatusOK, "User updated successfully", map[string]any{"user": toUserDTO(user)})
}

// DeleteUser soft-deletes an account; the record is kept for audit.
// DELETE /api/users/{id}
func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.Users.Deactivate(r.Context(), mealcard.UserID(chi.URLParam(r, "id")))
	if err != nil {
		h.domainError(w, err)
		return
	}
	writeData(w, http.StatusOK, "User deactivated successfully", map[string]any{"user": toUserDTO(user)})
}

// UserStats returns user population statistics.
// GET /api/users/stats/overview
func (h *Handler) UserStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Users.Stats(r.Context())
	if err != nil {
		h.serverError(w, "Failed to get user stats", err)
		return
	}
	writeData(w, http.StatusOK, "", map[string]any{"stats": toUserStatsDTO(stats)})
}

// =============================================================================
// MEAL HANDLERS
// =============================================================================

// ListMeals returns catalog entries matching the query, sorted and
// paginated.
// GET /api/meals
func (h *Handler) ListMeals(w http.ResponseWriter, r *http.Request) {
	filter := menu.Filter{
		Search: r.URL.Query().Get("search"),
	}
	if raw := r.URL.Query().Get("category"); raw != "" && raw != "all" {
		filter.Category = menu.Category(raw)
	}
	if raw := r.URL.Query().Get("available"); raw != "" {
		available := raw == "true"
		filter.Available = &available
	}
	if raw := r.URL.Query().Get("minPrice"); raw != "" {
		if m, err := mealcard.MoneyFromString(raw); err == nil {
			filter.MinPrice = &m
		}
	}
	if raw := r.URL.Query().Get("maxPrice"); raw != "" {
		if m, err := mealcard.MoneyFromString(raw); err == nil {
			filter.MaxPrice = &m
		}
	}

	sortBy := menu.Sort{
		By:        r.URL.Query().Get("sortBy"),
		Ascending: r.URL.Query().Get("sortOrder") != "desc",
	}

	page, err := h.Meals.List(r.Context(), filter, sortBy, queryInt(r, "page", 1), queryInt(r, "limit", 10))
	if err != nil {
		h.serverError(w, "Failed to list meals", err)
		return
	}

	writeData(w, http.StatusOK, "", map[string]any{
		"meals":       toMealDTOs(page.Meals),
		"totalMeals":  page.TotalMeals,
		"currentPage": page.Page,
		"totalPages":  page.TotalPages,
	})
}

// GetMeal returns a single catalog entry.
// GET /api/meals/{id}
func (h *Handler) GetMeal(w http.ResponseWriter, r *http.Request) {
	meal, err := h.Meals.Get(r.Context(), mealcard.MealID(chi.URLParam(r, "id")))
	if err != nil {
		h.domainError(w, err)
		return
	}
	writeData(w, http.StatusOK, "", map[string]any{"meal": toMealDTO(meal)})
}

// CreateMeal adds a meal to the catalog.
// POST /api/meals
func (h *Handler) CreateMeal(w http.ResponseWriter, r *http.Request) {
	var req CreateMealRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFailure(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	meal, err := h.Meals.Create(r.Context(), menu.CreateParams{
		Name:        req.Name,
		Price:       mealcard.NewMoney(req.Price),
		Category:    menu.Category(req.Category),
		Image:       req.Image,
		Description: req.Description,
		Ingredients: req.Ingredients,
		Nutrition: menu.Nutrition{
			Calories: req.Nutrition.Calories,
			Protein:  req.Nutrition.Protein,
			Carbs:    req.Nutrition.Carbs,
			Fat:      req.Nutrition.Fat,
		},
		PreparationTime: req.PreparationTime,
		Allergens:       req.Allergens,
	})
	if err != nil {
		h.domainError(w, err)
		return
	}
	writeData(w, http.StatusCreated, "Meal created successfully", map[string]any{"meal": toMealDTO(meal)})
}

// UpdateMeal applies a partial catalog update.
// PUT /api/meals/{id}
func (h *Handler) UpdateMeal(w http.ResponseWriter, r *http.Request) {
	var req UpdateMealRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFailure(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	params := menu.UpdateParams{
		Name:            req.Name,
		Image:           req.Image,
		Description:     req.Description,
		Ingredients:     req.Ingredients,
		PreparationTime: req.PreparationTime,
		Allergens:       req.Allergens,
	}
	if req.Price != nil {
		price := mealcard.NewMoney(*req.Price)
		params.Price = &price
	}
	if req.Category != nil {
		category := menu.Category(*req.Category)
		params.Category = &category
	}
	if req.Nutrition != nil {
		nutrition := menu.Nutrition{
			Calories: req.Nutrition.Calories,
			Protein:  req.Nutrition.Protein,
			Carbs:    req.Nutrition.Carbs,
			Fat:      req.Nutrition.Fat,
		}
		params.Nutrition = &nutrition
	}

	meal, err := h.Meals.Update(r.Context(), mealcard.MealID(chi.URLParam(r, "id")), params)
	if err != nil {
		h.domainError(w, err)
		return
	}
	writeData(w, http.StatusOK, "Meal updated successfully", map[string]any{"meal": toMealDTO(meal)})
}

// DeleteMeal removes a meal from the catalog.
// DELETE /api/meals/{id}
func (h *Handler) DeleteMeal(w http.ResponseWriter, r *http.Request) {
	if err := h.Meals.Delete(r.Context(), mealcard.MealID(chi.URLParam(r, "id"))); err != nil {
		h.domainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Response{Success: true, Message: "Meal deleted successfully"})
}

// UpdateMealAvailability flips a meal on or off the menu.
// PUT /api/meals/{id}/availability
func (h *Handler) UpdateMealAvailability(w http.ResponseWriter, r *http.Request) {
	var req UpdateAvailabilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFailure(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	meal, err := h.Meals.SetAvailability(r.Context(), mealcard.MealID(chi.URLParam(r, "id")), req.Available)
	if err != nil {
		h.domainError(w, err)
		return
	}
	writeData(w, http.StatusOK, "Meal availability updated successfully", map[string]any{"meal": toMealDTO(meal)})
}

// MealStats returns catalog-wide statistics.
// GET /api/meals/stats/overview
func (h *Handler) MealStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Meals.Stats(r.Context())
	if err != nil {
		h.serverError(w, "Failed to get meal stats", err)
		return
	}
	writeData(w, http.StatusOK, "", map[string]any{"stats": toMealStatsDTO(stats)})
}

// PopularMeals ranks meals by completed purchase count.
// GET /api/meals/stats/popular
func (h *Handler) PopularMeals(w http.ResponseWriter, r *http.Request) {
	purchase := mealcard.TxPurchase
	completed := mealcard.TxCompleted
	txs, err := h.Txns.All(r.Context(), mealcard.TransactionFilter{Type: &purchase, Status: &completed})
	if err != nil {
		h.serverError(w, "Failed to get popular meals", err)
		return
	}

	popular, err := h.Meals.Popular(r.Context(), txs, queryInt(r, "limit", 5))
	if err != nil {
		h.serverError(w, "Failed to get popular meals", err)
		return
	}
	writeData(w, http.StatusOK, "", map[string]any{"popularMeals": toPopularMealDTOs(popular)})
}
