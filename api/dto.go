/*
dto.go - Data Transfer Objects and the response envelope

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract. Money crosses
  the boundary as float64 here and nowhere else; everything internal stays
  decimal.

ENVELOPE:
  Every response is wrapped:
    { "success": bool, "message": "...", "data": {...}, "errors": [...] }
  Failures carry success=false and a human-readable message; validation
  failures additionally carry per-field errors.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

SEE ALSO:
  - handlers.go: Uses these types
  - auth.go: Login/register request types
*/
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/campuscard/server/directory"
	"github.com/campuscard/server/mealcard"
	"github.com/campuscard/server/menu"
)

// =============================================================================
// ENVELOPE
// =============================================================================

// Response is the envelope every endpoint returns.
type Response struct {
	Success bool         `json:"success"`
	Message string       `json:"message,omitempty"`
	Data    any          `json:"data,omitempty"`
	Errors  []FieldError `json:"errors,omitempty"`
}

// FieldError reports one invalid request field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeData(w http.ResponseWriter, status int, message string, data any) {
	writeJSON(w, status, Response{Success: true, Message: message, Data: data})
}

func writeFailure(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, Response{Success: false, Message: message})
}

func writeFieldErrors(w http.ResponseWriter, errs ...FieldError) {
	writeJSON(w, http.StatusBadRequest, Response{
		Success: false,
		Message: "Validation errors",
		Errors:  errs,
	})
}

// =============================================================================
// CARDS
// =============================================================================

// CardDTO represents a meal card in API responses.
type CardDTO struct {
	ID         string  `json:"id"`
	StudentID  string  `json:"studentId"`
	CardNumber string  `json:"cardNumber"`
	Balance    float64 `json:"balance"`
	Status     string  `json:"status"`
	IssuedDate string  `json:"issuedDate"`
	ExpiryDate string  `json:"expiryDate"`
	LastUsed   *string `json:"lastUsed"`
	UpdatedAt  string  `json:"updatedAt,omitempty"`
}

func toCardDTO(c *mealcard.Card) CardDTO {
	dto := CardDTO{
		ID:         string(c.ID),
		StudentID:  string(c.StudentID),
		CardNumber: c.CardNumber,
		Balance:    c.Balance.Float64(),
		Status:     string(c.Status),
		IssuedDate: c.IssuedAt.UTC().Format(time.RFC3339),
		ExpiryDate: c.ExpiresAt.UTC().Format(time.RFC3339),
		UpdatedAt:  c.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if c.LastUsedAt != nil {
		s := c.LastUsedAt.UTC().Format(time.RFC3339)
		dto.LastUsed = &s
	}
	return dto
}

func toCardDTOs(cards []*mealcard.Card) []CardDTO {
	out := make([]CardDTO, len(cards))
	for i, c := range cards {
		out[i] = toCardDTO(c)
	}
	return out
}

// CreateCardRequest is the request to issue a new card.
type CreateCardRequest struct {
	StudentID      string   `json:"studentId"`
	InitialBalance *float64 `json:"initialBalance"`
}

// UpdateBalanceRequest adjusts a card balance.
type UpdateBalanceRequest struct {
	Amount float64 `json:"amount"`
	Type   string  `json:"type"` // "add" or "deduct"
}

// UpdateCardStatusRequest changes a card's lifecycle status.
type UpdateCardStatusRequest struct {
	Status string `json:"status"`
}

// BalanceChangeDTO is the receipt for a balance adjustment.
type BalanceChangeDTO struct {
	Card            CardDTO `json:"card"`
	PreviousBalance float64 `json:"previousBalance"`
	NewBalance      float64 `json:"newBalance"`
}

func toBalanceChangeDTO(bc *mealcard.BalanceChange) BalanceChangeDTO {
	return BalanceChangeDTO{
		Card:            toCardDTO(bc.Card),
		PreviousBalance: bc.PreviousBalance.Float64(),
		NewBalance:      bc.NewBalance.Float64(),
	}
}

// CardStatsDTO summarizes the card collection.
type CardStatsDTO struct {
	TotalCards     int     `json:"totalCards"`
	ActiveCards    int     `json:"activeCards"`
	BlockedCards   int     `json:"blockedCards"`
	ExpiredCards   int     `json:"expiredCards"`
	TotalBalance   float64 `json:"totalBalance"`
	AverageBalance float64 `json:"averageBalance"`
}

func toCardStatsDTO(s *mealcard.CardStats) CardStatsDTO {
	return CardStatsDTO{
		TotalCards:     s.TotalCards,
		ActiveCards:    s.ActiveCards,
		BlockedCards:   s.BlockedCards,
		ExpiredCards:   s.ExpiredCards,
		TotalBalance:   s.TotalBalance.Float64(),
		AverageBalance: s.AverageBalance.Float64(),
	}
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

// TransactionDTO represents a transaction in API responses. Amount is
// signed: purchases negative, recharges positive.
type TransactionDTO struct {
	ID          string  `json:"id"`
	CardID      string  `json:"cardId"`
	Type        string  `json:"type"`
	Amount      float64 `json:"amount"`
	Description string  `json:"description"`
	Status      string  `json:"status"`
	Reference   string  `json:"reference"`
	MealID      string  `json:"mealId,omitempty"`
	CashierID   string  `json:"cashierId,omitempty"`
	ApprovedBy  string  `json:"approvedBy,omitempty"`
	Timestamp   string  `json:"timestamp"`
	UpdatedAt   string  `json:"updatedAt,omitempty"`
}

func toTransactionDTO(tx *mealcard.Transaction) TransactionDTO {
	return TransactionDTO{
		ID:          string(tx.ID),
		CardID:      string(tx.CardID),
		Type:        string(tx.Type),
		Amount:      tx.Amount.Float64(),
		Description: tx.Description,
		Status:      string(tx.Status),
		Reference:   tx.Reference,
		MealID:      string(tx.MealID),
		CashierID:   string(tx.CashierID),
		ApprovedBy:  string(tx.ApprovedBy),
		Timestamp:   tx.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:   tx.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func toTransactionDTOs(txs []*mealcard.Transaction) []TransactionDTO {
	out := make([]TransactionDTO, len(txs))
	for i, tx := range txs {
		out[i] = toTransactionDTO(tx)
	}
	return out
}

// CreateTransactionRequest creates a purchase or a recharge.
type CreateTransactionRequest struct {
	CardID      string  `json:"cardId"`
	Type        string  `json:"type"`
	Amount      float64 `json:"amount"`
	Description string  `json:"description"`
	MealID      string  `json:"mealId,omitempty"`
	CashierID   string  `json:"cashierId,omitempty"`
}

// UpdateTransactionStatusRequest approves or rejects a pending recharge.
type UpdateTransactionStatusRequest struct {
	Status     string `json:"status"`
	ApprovedBy string `json:"approvedBy,omitempty"`
}

// TransactionStatsDTO summarizes the transaction log.
type TransactionStatsDTO struct {
	TotalTransactions        int            `json:"totalTransactions"`
	CompletedTransactions    int            `json:"completedTransactions"`
	PendingTransactions      int            `json:"pendingTransactions"`
	RejectedTransactions     int            `json:"rejectedTransactions"`
	TotalRevenue             float64        `json:"totalRevenue"`
	TotalRecharges           float64        `json:"totalRecharges"`
	AverageTransactionAmount float64        `json:"averageTransactionAmount"`
	TransactionsByType       map[string]int `json:"transactionsByType"`
}

func toTransactionStatsDTO(s *mealcard.TransactionStats) TransactionStatsDTO {
	return TransactionStatsDTO{
		TotalTransactions:        s.TotalTransactions,
		CompletedTransactions:    s.CompletedCount,
		PendingTransactions:      s.PendingCount,
		RejectedTransactions:     s.RejectedCount,
		TotalRevenue:             s.TotalRevenue.Float64(),
		TotalRecharges:           s.TotalRecharges.Float64(),
		AverageTransactionAmount: s.AverageTransaction.Float64(),
		TransactionsByType: map[string]int{
			"purchase": s.PurchaseCount,
			"recharge": s.RechargeCount,
		},
	}
}

// DailyStatsDTO is one day of completed-transaction activity.
type DailyStatsDTO struct {
	Date              string  `json:"date"`
	TotalTransactions int     `json:"totalTransactions"`
	TotalRevenue      float64 `json:"totalRevenue"`
	TotalRecharges    float64 `json:"totalRecharges"`
}

func toDailyStatsDTOs(days []mealcard.DailyStats) []DailyStatsDTO {
	out := make([]DailyStatsDTO, len(days))
	for i, d := range days {
		out[i] = DailyStatsDTO{
			Date:              d.Date,
			TotalTransactions: d.Transactions,
			TotalRevenue:      d.Revenue.Float64(),
			TotalRecharges:    d.Recharges.Float64(),
		}
	}
	return out
}

// =============================================================================
// USERS
// =============================================================================

// UserDTO represents a user in API responses. The password hash never
// leaves the server.
type UserDTO struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	Role      string `json:"role"`
	StudentID string `json:"studentId,omitempty"`
	Avatar    string `json:"avatar,omitempty"`
	IsActive  bool   `json:"isActive"`
	CreatedAt string `json:"createdAt,omitempty"`
}

func toUserDTO(u *directory.User) UserDTO {
	return UserDTO{
		ID:        string(u.ID),
		Email:     u.Email,
		Name:      u.Name,
		Role:      string(u.Role),
		StudentID: string(u.StudentID),
		Avatar:    u.Avatar,
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func toUserDTOs(users []*directory.User) []UserDTO {
	out := make([]UserDTO, len(users))
	for i, u := range users {
		out[i] = toUserDTO(u)
	}
	return out
}

// UpdateUserRequest is a partial profile update. Absent fields are left
// alone.
type UpdateUserRequest struct {
	Name     *string `json:"name"`
	Email    *string `json:"email"`
	Role     *string `json:"role"`
	IsActive *bool   `json:"isActive"`
	Avatar   *string `json:"avatar"`
}

// UserStatsDTO summarizes the user population.
type UserStatsDTO struct {
	TotalUsers    int            `json:"totalUsers"`
	ActiveUsers   int            `json:"activeUsers"`
	InactiveUsers int            `json:"inactiveUsers"`
	UsersByRole   map[string]int `json:"usersByRole"`
}

func toUserStatsDTO(s *directory.Stats) UserStatsDTO {
	byRole := make(map[string]int, len(s.ByRole))
	for role, n := range s.ByRole {
		byRole[string(role)] = n
	}
	return UserStatsDTO{
		TotalUsers:    s.TotalUsers,
		ActiveUsers:   s.ActiveUsers,
		InactiveUsers: s.InactiveUsers,
		UsersByRole:   byRole,
	}
}

// =============================================================================
// MEALS
// =============================================================================

// NutritionDTO is the per-serving nutritional breakdown.
type NutritionDTO struct {
	Calories int `json:"calories"`
	Protein  int `json:"protein"`
	Carbs    int `json:"carbs"`
	Fat      int `json:"fat"`
}

// MealDTO represents a catalog entry in API responses.
type MealDTO struct {
	ID              string       `json:"id"`
	Name            string       `json:"name"`
	Price           float64      `json:"price"`
	Category        string       `json:"category"`
	Image           string       `json:"image,omitempty"`
	Description     string       `json:"description,omitempty"`
	Available       bool         `json:"available"`
	Ingredients     []string     `json:"ingredients"`
	Nutrition       NutritionDTO `json:"nutritionalInfo"`
	PreparationTime int          `json:"preparationTime"`
	Allergens       []string     `json:"allergens"`
	CreatedAt       string       `json:"createdAt,omitempty"`
	UpdatedAt       string       `json:"updatedAt,omitempty"`
}

func toMealDTO(m *menu.Meal) MealDTO {
	return MealDTO{
		ID:          string(m.ID),
		Name:        m.Name,
		Price:       m.Price.Float64(),
		Category:    string(m.Category),
		Image:       m.Image,
		Description: m.Description,
		Available:   m.Available,
		Ingredients: m.Ingredients,
		Nutrition: NutritionDTO{
			Calories: m.Nutrition.Calories,
			Protein:  m.Nutrition.Protein,
			Carbs:    m.Nutrition.Carbs,
			Fat:      m.Nutrition.Fat,
		},
		PreparationTime: m.PreparationTime,
		Allergens:       m.Allergens,
		CreatedAt:       m.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:       m.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func toMealDTOs(meals []*menu.Meal) []MealDTO {
	out := make([]MealDTO, len(meals))
	for i, m := range meals {
		out[i] = toMealDTO(m)
	}
	return out
}

// CreateMealRequest adds a meal to the catalog.
type CreateMealRequest struct {
	Name            string       `json:"name"`
	Price           float64      `json:"price"`
	Category        string       `json:"category"`
	Image           string       `json:"image"`
	Description     string       `json:"description"`
	Ingredients     []string     `json:"ingredients"`
	Nutrition       NutritionDTO `json:"nutritionalInfo"`
	PreparationTime int          `json:"preparationTime"`
	Allergens       []string     `json:"allergens"`
}

// UpdateMealRequest is a partial meal update. Absent fields are left alone.
type UpdateMealRequest struct {
	Name            *string       `json:"name"`
	Price           *float64      `json:"price"`
	Category        *string       `json:"category"`
	Image           *string       `json:"image"`
	Description     *string       `json:"description"`
	Ingredients     *[]string     `json:"ingredients"`
	Nutrition       *NutritionDTO `json:"nutritionalInfo"`
	PreparationTime *int          `json:"preparationTime"`
	Allergens       *[]string     `json:"allergens"`
}

// UpdateAvailabilityRequest flips a meal on or off the menu.
type UpdateAvailabilityRequest struct {
	Available bool `json:"available"`
}

// MealStatsDTO summarizes the catalog.
type MealStatsDTO struct {
	TotalMeals      int            `json:"totalMeals"`
	AvailableMeals  int            `json:"availableMeals"`
	MealsByCategory map[string]int `json:"mealsByCategory"`
	AveragePrice    float64        `json:"averagePrice"`
}

func toMealStatsDTO(s *menu.Stats) MealStatsDTO {
	byCategory := make(map[string]int, len(s.ByCategory))
	for cat, n := range s.ByCategory {
		byCategory[string(cat)] = n
	}
	return MealStatsDTO{
		TotalMeals:      s.TotalMeals,
		AvailableMeals:  s.AvailableMeals,
		MealsByCategory: byCategory,
		AveragePrice:    s.AveragePrice.Float64(),
	}
}

// PopularMealDTO pairs a meal with its purchase activity.
type PopularMealDTO struct {
	Meal    MealDTO `json:"meal"`
	Count   int     `json:"count"`
	Revenue float64 `json:"revenue"`
}

func toPopularMealDTOs(populars []menu.PopularMeal) []PopularMealDTO {
	out := make([]PopularMealDTO, len(populars))
	for i, p := range populars {
		out[i] = PopularMealDTO{
			Meal:    toMealDTO(p.Meal),
			Count:   p.Count,
			Revenue: p.Revenue.Float64(),
		}
	}
	return out
}
