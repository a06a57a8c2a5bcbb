/*
Package directory manages campus users and their credentials.

PURPOSE:
  Holds the user records behind the role-based dashboards: administrators,
  managers, cashiers and students. Registration, credential checks and the
  read/search surface live here; token minting is in token.go.

ROLES:
  admin    Full system access
  manager  Approves recharges, views manager dashboard
  cashier  Records purchases at the till
  student  Owns a meal card

PASSWORDS:
  bcrypt hashes only. Authenticate never reveals whether the email or the
  password was wrong.

SEE ALSO:
  - token.go: JWT issuing and validation
  - api/auth.go: HTTP login/register and middleware
*/
package directory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/campuscard/server/mealcard"
)

// =============================================================================
// TYPES
// =============================================================================

type Role string

const (
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
	RoleCashier Role = "cashier"
	RoleStudent Role = "student"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleCashier, RoleStudent:
		return true
	}
	return false
}

// User is a campus account. StudentID is set only for students.
type User struct {
	ID           mealcard.UserID
	Email        string
	Name         string
	Role         Role
	StudentID    mealcard.StudentID
	Avatar       string
	PasswordHash string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrUserNotFound is returned when a referenced user doesn't exist.
	ErrUserNotFound = errors.New("user not found")

	// ErrEmailTaken is returned when registering an email that already has
	// an account.
	ErrEmailTaken = errors.New("user already exists with this email")

	// ErrInvalidCredentials is returned for any failed login. Deliberately
	// does not distinguish unknown email from wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// =============================================================================
// STORE
// =============================================================================

// Filter narrows List. Zero values match everything.
type Filter struct {
	Role   Role
	Search string // matches name, email or student ID, case-insensitive
}

// Store persists user records.
type Store interface {
	SaveUser(ctx context.Context, u *User) error
	GetUser(ctx context.Context, id mealcard.UserID) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	UpdateUser(ctx context.Context, u *User) error
	ListUsers(ctx context.Context) ([]*User, error)
}

// =============================================================================
// DIRECTORY SERVICE
// =============================================================================

// Directory is the user management service.
type Directory struct {
	store Store
	now   func() time.Time
}

func New(store Store) *Directory {
	return &Directory{store: store, now: time.Now}
}

// bcryptCost keeps demo startup fast; production would use >= 12.
const bcryptCost = 10

// RegisterParams describes a new account.
type RegisterParams struct {
	Email     string
	Password  string
	Name      string
	Role      Role
	StudentID mealcard.StudentID
	Avatar    string
}

func (p RegisterParams) validate() error {
	if !strings.Contains(p.Email, "@") {
		return &mealcard.ValidationError{Field: "email", Message: "Valid email is required"}
	}
	if len(p.Password) < 6 {
		return &mealcard.ValidationError{Field: "password", Message: "Password must be at least 6 characters"}
	}
	if len(strings.TrimSpace(p.Name)) < 2 {
		return &mealcard.ValidationError{Field: "name", Message: "Name must be at least 2 characters"}
	}
	if !p.Role.Valid() {
		return &mealcard.ValidationError{Field: "role", Message: "Invalid role"}
	}
	return nil
}

// Register creates a new account. Fails with ErrEmailTaken on duplicates.
func (d *Directory) Register(ctx context.Context, p RegisterParams) (*User, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}

	email := normalizeEmail(p.Email)
	existing, err := d.store.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("checking email: %w", err)
	}
	if existing != nil {
		return nil, ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(p.Password), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	now := d.now()
	user := &User{
		ID:           mealcard.UserID(newUserID()),
		Email:        email,
		Name:         strings.TrimSpace(p.Name),
		Role:         p.Role,
		Avatar:       p.Avatar,
		PasswordHash: string(hash),
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if p.Role == RoleStudent {
		user.StudentID = p.StudentID
	}

	if err := d.store.SaveUser(ctx, user); err != nil {
		return nil, fmt.Errorf("saving user: %w", err)
	}
	return user, nil
}

// Authenticate checks credentials and returns the user on success.
func (d *Directory) Authenticate(ctx context.Context, email, password string) (*User, error) {
	user, err := d.store.GetUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, fmt.Errorf("loading user: %w", err)
	}
	if user == nil || !user.IsActive {
		return nil, ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// Get returns a single user.
func (d *Directory) Get(ctx context.Context, id mealcard.UserID) (*User, error) {
	user, err := d.store.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// UpdateParams are the mutable profile fields. Nil fields are left alone.
type UpdateParams struct {
	Name     *string
	Email    *string
	Role     *Role
	IsActive *bool
	Avatar   *string
}

// Update applies a partial profile update.
func (d *Directory) Update(ctx context.Context, id mealcard.UserID, p UpdateParams) (*User, error) {
	user, err := d.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if p.Name != nil {
		if len(strings.TrimSpace(*p.Name)) < 2 {
			return nil, &mealcard.ValidationError{Field: "name", Message: "Name must be at least 2 characters"}
		}
		user.Name = strings.TrimSpace(*p.Name)
	}
	if p.Email != nil {
		email := normalizeEmail(*p.Email)
		if !strings.Contains(email, "@") {
			return nil, &mealcard.ValidationError{Field: "email", Message: "Valid email is required"}
		}
		other, err := d.store.GetUserByEmail(ctx, email)
		if err != nil {
			return nil, fmt.Errorf("checking email: %w", err)
		}
		if other != nil && other.ID != user.ID {
			return nil, ErrEmailTaken
		}
		user.Email = email
	}
	if p.Role != nil {
		if !p.Role.Valid() {
			return nil, &mealcard.ValidationError{Field: "role", Message: "Invalid role"}
		}
		user.Role = *p.Role
	}
	if p.IsActive != nil {
		user.IsActive = *p.IsActive
	}
	if p.Avatar != nil {
		user.Avatar = *p.Avatar
	}
	user.UpdatedAt = d.now()

	if err := d.store.UpdateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("updating user: %w", err)
	}
	return user, nil
}

// Deactivate soft-deletes an account. Records are kept for audit.
func (d *Directory) Deactivate(ctx context.Context, id mealcard.UserID) (*User, error) {
	inactive := false
	return d.Update(ctx, id, UpdateParams{IsActive: &inactive})
}

// Page is one page of the user listing.
type Page struct {
	Users      []*User
	TotalUsers int
	Page       int
	TotalPages int
}

// List returns users matching the filter, oldest first, paginated.
func (d *Directory) List(ctx context.Context, filter Filter, page, limit int) (*Page, error) {
	users, err := d.store.ListUsers(ctx)
	if err != nil {
		return nil, err
	}

	var matched []*User
	needle := strings.ToLower(filter.Search)
	for _, u := range users {
		if filter.Role != "" && u.Role != filter.Role {
			continue
		}
		if needle != "" &&
			!strings.Contains(strings.ToLower(u.Name), needle) &&
			!strings.Contains(strings.ToLower(u.Email), needle) &&
			!strings.Contains(strings.ToLower(string(u.StudentID)), needle) {
			continue
		}
		matched = append(matched, u)
	}

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.Before(matched[j].CreatedAt)
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

	return &Page{Users: matched[start:end], TotalUsers: total, Page: page, TotalPages: totalPages}, nil
}

// Stats summarizes the user population by role.
type Stats struct {
	TotalUsers    int
	ActiveUsers   int
	InactiveUsers int
	ByRole        map[Role]int
}

func (d *Directory) Stats(ctx context.Context) (*Stats, error) {
	users, err := d.store.ListUsers(ctx)
	if err != nil {
		return nil, err
	}

	stats := &Stats{TotalUsers: len(users), ByRole: make(map[Role]int)}
	for _, u := range users {
		if u.IsActive {
			stats.ActiveUsers++
		} else {
			stats.InactiveUsers++
		}
		stats.ByRole[u.Role]++
	}
	return stats, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func newUserID() string { return uuid.NewString() }
