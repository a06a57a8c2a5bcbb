/*
Package menu manages the cafeteria meal catalog.

PURPOSE:
  CRUD over meals plus the filtered/sorted listing the dashboards browse.
  Prices are decimal Money; the catalog never touches card balances --
  purchases reference meals by ID only.

SEE ALSO:
  - mealcard/transactions.go: Purchases carrying an optional MealID
  - api/handlers.go: HTTP surface
*/
package menu

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/campuscard/server/mealcard"
)

// =============================================================================
// TYPES
// =============================================================================

type Category string

const (
	CategoryBreakfast Category = "breakfast"
	CategoryLunch     Category = "lunch"
	CategoryDinner    Category = "dinner"
	CategorySnacks    Category = "snacks"
)

func (c Category) Valid() bool {
	switch c {
	case CategoryBreakfast, CategoryLunch, CategoryDinner, CategorySnacks:
		return true
	}
	return false
}

// Nutrition is the per-serving nutritional breakdown.
type Nutrition struct {
	Calories int
	Protein  int
	Carbs    int
	Fat      int
}

// Meal is a catalog entry.
type Meal struct {
	ID              mealcard.MealID
	Name            string
	Price           mealcard.Money
	Category        Category
	Image           string
	Description     string
	Available       bool
	Ingredients     []string
	Nutrition       Nutrition
	PreparationTime int // minutes
	Allergens       []string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// ErrMealNotFound is returned when a referenced meal doesn't exist.
var ErrMealNotFound = errors.New("meal not found")

// =============================================================================
// STORE
// =============================================================================

// Store persists meal records.
type Store interface {
	SaveMeal(ctx context.Context, m *Meal) error
	GetMeal(ctx context.Context, id mealcard.MealID) (*Meal, error)
	UpdateMeal(ctx context.Context, m *Meal) error
	DeleteMeal(ctx context.Context, id mealcard.MealID) error
	ListMeals(ctx context.Context) ([]*Meal, error)
}

// =============================================================================
// CATALOG SERVICE
// =============================================================================

// Catalog is the meal management service.
type Catalog struct {
	store Store
	now   func() time.Time
}

func NewCatalog(store Store) *Catalog {
	return &Catalog{store: store, now: time.Now}
}

// CreateParams describes a new meal.
type CreateParams struct {
	Name            string
	Price           mealcard.Money
	Category        Category
	Image           string
	Description     string
	Ingredients     []string
	Nutrition       Nutrition
	PreparationTime int
	Allergens       []string
}

func (p CreateParams) validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return &mealcard.ValidationError{Field: "name", Message: "Name is required"}
	}
	if !p.Price.IsPositive() {
		return &mealcard.ValidationError{Field: "price", Message: "Price must be positive"}
	}
	if !p.Category.Valid() {
		return &mealcard.ValidationError{Field: "category", Message: "Invalid category"}
	}
	return nil
}

// Create adds a meal to the catalog, available by default.
func (c *Catalog) Create(ctx context.Context, p CreateParams) (*Meal, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}

	now := c.now()
	meal := &Meal{
		ID:              mealcard.MealID(uuid.NewString()),
		Name:            strings.TrimSpace(p.Name),
		Price:           p.Price,
		Category:        p.Category,
		Image:           p.Image,
		Description:     p.Description,
		Available:       true,
		Ingredients:     p.Ingredients,
		Nutrition:       p.Nutrition,
		PreparationTime: p.PreparationTime,
		Allergens:       p.Allergens,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := c.store.SaveMeal(ctx, meal); err != nil {
		return nil, fmt.Errorf("saving meal: %w", err)
	}
	return meal, nil
}

// Get returns a single meal.
func (c *Catalog) Get(ctx context.Context, id mealcard.MealID) (*Meal, error) {
	meal, err := c.store.GetMeal(ctx, id)
	if err != nil {
		return nil, err
	}
	if meal == nil {
		return nil, ErrMealNotFound
	}
	return meal, nil
}

// UpdateParams are the mutable meal fields. Nil fields are left alone.
type UpdateParams struct {
	Name            *string
	Price           *mealcard.Money
	Category        *Category
	Image           *string
	Description     *string
	Ingredients     *[]string
	Nutrition       *Nutrition
	PreparationTime *int
	Allergens       *[]string
}

// Update applies a partial meal update.
func (c *Catalog) Update(ctx context.Context, id mealcard.MealID, p UpdateParams) (*Meal, error) {
	meal, err := c.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if p.Name != nil {
		if strings.TrimSpace(*p.Name) == "" {
			return nil, &mealcard.ValidationError{Field: "name", Message: "Name is required"}
		}
		meal.Name = strings.TrimSpace(*p.Name)
	}
	if p.Price != nil {
		if !p.Price.IsPositive() {
			return nil, &mealcard.ValidationError{Field: "price", Message: "Price must be positive"}
		}
		meal.Price = *p.Price
	}
	if p.Category != nil {
		if !p.Category.Valid() {
			return nil, &mealcard.ValidationError{Field: "category", Message: "Invalid category"}
		}
		meal.Category = *p.Category
	}
	if p.Image != nil {
		meal.Image = *p.Image
	}
	if p.Description != nil {
		meal.Description = *p.Description
	}
	if p.Ingredients != nil {
		meal.Ingredients = *p.Ingredients
	}
	if p.Nutrition != nil {
		meal.Nutrition = *p.Nutrition
	}
	if p.PreparationTime != nil {
		meal.PreparationTime = *p.PreparationTime
	}
	if p.Allergens != nil {
		meal.Allergens = *p.Allergens
	}
	meal.UpdatedAt = c.now()

	if err := c.store.UpdateMeal(ctx, meal); err != nil {
		return nil, fmt.Errorf("updating meal: %w", err)
	}
	return meal, nil
}

// SetAvailability flips a meal on or off the menu.
func (c *Catalog) SetAvailability(ctx context.Context, id mealcard.MealID, available bool) (*Meal, error) {
	meal, err := c.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	meal.Available = available
	meal.UpdatedAt = c.now()

	if err := c.store.UpdateMeal(ctx, meal); err != nil {
		return nil, fmt.Errorf("updating meal: %w", err)
	}
	return meal, nil
}

// Delete removes a meal from the catalog.
func (c *Catalog) Delete(ctx context.Context, id mealcard.MealID) error {
	if _, err := c.Get(ctx, id); err != nil {
		return err
	}
	return c.store.DeleteMeal(ctx, id)
}

// =============================================================================
// LISTING
// =============================================================================

// Filter narrows List. Zero values match everything.
type Filter struct {
	Category  Category
	Available *bool
	Search    string
	MinPrice  *mealcard.Money
	MaxPrice  *mealcard.Money
}

// Sort selects the listing order.
type Sort struct {
	By        string // "name" (default) or "price"
	Ascending bool
}

// MealPage is one page of the meal listing.
type MealPage struct {
	Meals      []*Meal
	TotalMeals int
	Page       int
	TotalPages int
}

// List returns meals matching the filter, sorted and paginated.
func (c *Catalog) List(ctx context.Context, filter Filter, sortBy Sort, page, limit int) (*MealPage, error) {
	meals, err := c.store.ListMeals(ctx)
	if err != nil {
		return nil, err
	}

	needle := strings.ToLower(filter.Search)
	var matched []*Meal
	for _, m := range meals {
		if filter.Category != "" && m.Category != filter.Category {
			continue
		}
		if filter.Available != nil && m.Available != *filter.Available {
			continue
		}
		if needle != "" &&
			!strings.Contains(strings.ToLower(m.Name), needle) &&
			!strings.Contains(strings.ToLower(m.Description), needle) {
			continue
		}
		if filter.MinPrice != nil && m.Price.LessThan(*filter.MinPrice) {
			continue
		}
		if filter.MaxPrice != nil && filter.MaxPrice.LessThan(m.Price) {
			continue
		}
		matched = append(matched, m)
	}

	less := func(a, b *Meal) bool { return a.Name < b.Name }
	if sortBy.By == "price" {
		less = func(a, b *Meal) bool { return a.Price.LessThan(b.Price) }
	}
	sort.Slice(matched, func(i, j int) bool {
		if sortBy.Ascending {
			return less(matched[i], matched[j])
		}
		return less(matched[j], matched[i])
	})

	if limit <= 0 {
		limit = 10
	}
	if page <= 0 {
		page = 1
	}
	total := len(matched)
	totalPages := (total + limit - 1) / limit
	start := (page - 1) * limit
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}

	return &MealPage{Meals: matched[start:end], TotalMeals: total, Page: page, TotalPages: totalPages}, nil
}

// =============================================================================
// STATS
// =============================================================================

// Stats summarizes the catalog.
type Stats struct {
	TotalMeals     int
	AvailableMeals int
	ByCategory     map[Category]int
	AveragePrice   mealcard.Money
}

func (c *Catalog) Stats(ctx context.Context) (*Stats, error) {
	meals, err := c.store.ListMeals(ctx)
	if err != nil {
		return nil, err
	}

	stats := &Stats{
		TotalMeals:   len(meals),
		ByCategory:   make(map[Category]int),
		AveragePrice: mealcard.ZeroMoney(),
	}
	total := mealcard.ZeroMoney()
	for _, m := range meals {
		if m.Available {
			stats.AvailableMeals++
		}
		stats.ByCategory[m.Category]++
		total = total.Add(m.Price)
	}
	if len(meals) > 0 {
		stats.AveragePrice = mealcard.Money{
			Value: total.Value.Div(decimal.NewFromInt(int64(len(meals)))).Round(2),
		}
	}
	return stats, nil
}

// PopularMeal pairs a meal with its completed purchase activity.
type PopularMeal struct {
	Meal    *Meal
	Count   int
	Revenue mealcard.Money
}

// Popular ranks meals by completed purchase count, computed from the
// transaction log.
func (c *Catalog) Popular(ctx context.Context, txs []*mealcard.Transaction, limit int) ([]PopularMeal, error) {
	if limit <= 0 {
		limit = 5
	}

	counts := make(map[mealcard.MealID]*PopularMeal)
	for _, tx := range txs {
		if tx.Type != mealcard.TxPurchase || tx.Status != mealcard.TxCompleted || tx.MealID == "" {
			continue
		}
		entry, ok := counts[tx.MealID]
		if !ok {
			meal, err := c.store.GetMeal(ctx, tx.MealID)
			if err != nil {
				return nil, err
			}
			if meal == nil {
				continue // purchase references a meal since deleted
			}
			entry = &PopularMeal{Meal: meal, Revenue: mealcard.ZeroMoney()}
			counts[tx.MealID] = entry
		}
		entry.Count++
		entry.Revenue = entry.Revenue.Add(tx.Amount.Abs())
	}

	ranked := make([]PopularMeal, 0, len(counts))
	for _, p := range counts {
		ranked = append(ranked, *p)
	}
	sort.Slice(ranked, func(i, j int) bool { return ranked[i].Count > ranked[j].Count })
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked, nil
}
