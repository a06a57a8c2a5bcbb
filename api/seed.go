/*
seed.go - Demo dataset loader

PURPOSE:
  Populates an empty store with a small, coherent demo world: one account
  per role, two students with cards, a six-meal catalog and a few
  transactions including a pending recharge for the manager to approve.

IDEMPOTENCY:
  Seeding is skipped when the admin account already exists, so restarting
  against a persistent SQLite file does not duplicate data.

DEMO LOGINS (password = role + "123"):
  admin@university.edu / admin123
  manager@university.edu / manager123
  cashier@university.edu / cashier123
  student@university.edu / student123

SEE ALSO:
  - cmd/server/main.go: Calls Seed when SEED_DEMO_DATA is set
*/
package api

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/campuscard/server/directory"
	"github.com/campuscard/server/mealcard"
	"github.com/campuscard/server/menu"
)

// Seed loads the demo dataset. No-op when the demo admin already exists.
func Seed(ctx context.Context, h *Handler) error {
	if existing, err := h.Users.List(ctx, directory.Filter{Search: "admin@university.edu"}, 1, 1); err == nil && existing.TotalUsers > 0 {
		h.Log.Info("demo data already present, skipping seed")
		return nil
	}

	users := []directory.RegisterParams{
		{Email: "admin@university.edu", Password: "admin123", Name: "John Administrator", Role: directory.RoleAdmin},
		{Email: "manager@university.edu", Password: "manager123", Name: "Sarah Manager", Role: directory.RoleManager},
		{Email: "cashier@university.edu", Password: "cashier123", Name: "Mike Cashier", Role: directory.RoleCashier},
		{Email: "student@university.edu", Password: "student123", Name: "Emma Student", Role: directory.RoleStudent, StudentID: "STU001"},
		{Email: "student2@university.edu", Password: "student123", Name: "Alice Smith", Role: directory.RoleStudent, StudentID: "STU002"},
	}
	registered := make(map[string]*directory.User, len(users))
	for _, p := range users {
		u, err := h.Users.Register(ctx, p)
		if err != nil {
			return fmt.Errorf("seeding user %s: %w", p.Email, err)
		}
		registered[p.Email] = u
	}

	card1, err := h.Ledger.IssueCard(ctx, "STU001", mealcard.NewMoney(150.75))
	if err != nil {
		return fmt.Errorf("seeding card: %w", err)
	}
	if _, err := h.Ledger.IssueCard(ctx, "STU002", mealcard.NewMoney(89.50)); err != nil {
		return fmt.Errorf("seeding card: %w", err)
	}

	mealSeeds := []menu.CreateParams{
		{
			Name: "Chicken Burger", Price: mealcard.NewMoney(12.99), Category: menu.CategoryLunch,
			Description: "Juicy grilled chicken with fresh lettuce and tomatoes",
			Ingredients: []string{"Chicken breast", "Lettuce", "Tomato", "Cheese", "Mayo"},
			Nutrition:   menu.Nutrition{Calories: 520, Protein: 35, Carbs: 42, Fat: 22},
			PreparationTime: 8, Allergens: []string{"Gluten", "Dairy"},
		},
		{
			Name: "Margherita Pizza", Price: mealcard.NewMoney(15.99), Category: menu.CategoryLunch,
			Description: "Classic pizza with fresh mozzarella and basil",
			Ingredients: []string{"Dough", "Mozzarella", "Tomato sauce", "Basil"},
			Nutrition:   menu.Nutrition{Calories: 680, Protein: 28, Carbs: 72, Fat: 32},
			PreparationTime: 12, Allergens: []string{"Gluten", "Dairy"},
		},
		{
			Name: "Caesar Salad", Price: mealcard.NewMoney(9.99), Category: menu.CategoryLunch,
			Description: "Fresh romaine lettuce with caesar dressing and croutons",
			Ingredients: []string{"Romaine lettuce", "Croutons", "Parmesan", "Caesar dressing"},
			Nutrition:   menu.Nutrition{Calories: 320, Protein: 12, Carbs: 18, Fat: 24},
			PreparationTime: 5, Allergens: []string{"Dairy", "Eggs"},
		},
		{
			Name: "Pancakes", Price: mealcard.NewMoney(8.99), Category: menu.CategoryBreakfast,
			Description: "Fluffy pancakes with maple syrup and butter",
			Ingredients: []string{"Flour", "Eggs", "Milk", "Maple syrup", "Butter"},
			Nutrition:   menu.Nutrition{Calories: 450, Protein: 12, Carbs: 68, Fat: 16},
			PreparationTime: 6, Allergens: []string{"Gluten", "Dairy", "Eggs"},
		},
		{
			Name: "Grilled Salmon", Price: mealcard.NewMoney(18.99), Category: menu.CategoryDinner,
			Description: "Fresh Atlantic salmon with herbs and vegetables",
			Ingredients: []string{"Salmon fillet", "Herbs", "Vegetables", "Lemon"},
			Nutrition:   menu.Nutrition{Calories: 380, Protein: 42, Carbs: 8, Fat: 20},
			PreparationTime: 15, Allergens: []string{"Fish"},
		},
		{
			Name: "Chocolate Cake", Price: mealcard.NewMoney(6.99), Category: menu.CategorySnacks,
			Description: "Rich chocolate cake with cream frosting",
			Ingredients: []string{"Chocolate", "Flour", "Eggs", "Cream", "Sugar"},
			Nutrition:   menu.Nutrition{Calories: 420, Protein: 6, Carbs: 58, Fat: 20},
			PreparationTime: 3, Allergens: []string{"Gluten", "Dairy", "Eggs"},
		},
	}
	meals := make([]*menu.Meal, 0, len(mealSeeds))
	for _, p := range mealSeeds {
		m, err := h.Meals.Create(ctx, p)
		if err != nil {
			return fmt.Errorf("seeding meal %s: %w", p.Name, err)
		}
		meals = append(meals, m)
	}

	cashier := registered["cashier@university.edu"]
	manager := registered["manager@university.edu"]

	// An approved recharge so the first card has history on both sides.
	recharge, err := h.Txns.RecordRecharge(ctx, card1.ID, mealcard.NewMoney(100.00), "Card recharge")
	if err != nil {
		return fmt.Errorf("seeding recharge: %w", err)
	}
	if _, err := h.Txns.SetStatus(ctx, recharge.ID, mealcard.TxCompleted, manager.ID); err != nil {
		return fmt.Errorf("seeding recharge approval: %w", err)
	}
	if _, err := h.Ledger.AdjustBalance(ctx, card1.ID, mealcard.NewMoney(100.00), mealcard.AdjustAdd); err != nil {
		return fmt.Errorf("seeding recharge credit: %w", err)
	}

	// Two purchases at the till.
	for _, purchase := range []struct {
		meal   *menu.Meal
		amount float64
	}{
		{meals[0], 12.99},
		{meals[1], 15.99},
	} {
		if _, _, err := h.Txns.Purchase(ctx, mealcard.PurchaseParams{
			CardID:      card1.ID,
			Amount:      mealcard.NewMoney(purchase.amount),
			Description: purchase.meal.Name,
			MealID:      purchase.meal.ID,
			CashierID:   cashier.ID,
		}); err != nil {
			return fmt.Errorf("seeding purchase: %w", err)
		}
	}

	// A recharge awaiting approval, for the manager dashboard.
	if _, err := h.Txns.RecordRecharge(ctx, card1.ID, mealcard.NewMoney(50.00), "Card recharge"); err != nil {
		return fmt.Errorf("seeding pending recharge: %w", err)
	}

	h.Log.WithFields(logrus.Fields{
		"users": len(users),
		"meals": len(meals),
		"cards": 2,
	}).Info("demo data loaded")
	return nil
}
