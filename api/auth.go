/*
auth.go - Login, registration and bearer-token middleware

PURPOSE:
  The authentication surface: POST /api/auth/login mints a JWT, the
  middleware validates it on every protected route, and RequireRole gates
  the admin/manager-only operations.

FLOW:
  1. Login: credentials -> directory.Authenticate -> TokenIssuer.Issue
  2. Protected request: "Authorization: Bearer <token>" -> ParseToken ->
     claims stored in the request context
  3. Role-gated request: claims role checked against the allow list

SEE ALSO:
  - directory/token.go: Token issuing and validation
  - server.go: Which routes get which middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/campuscard/server/directory"
	"github.com/campuscard/server/mealcard"
)

// contextKey avoids collisions with other packages' context values.
type contextKey string

const claimsKey contextKey = "authClaims"

// ClaimsFromContext returns the authenticated claims, if any.
func ClaimsFromContext(ctx context.Context) (*directory.Claims, bool) {
	claims, ok := ctx.Value(claimsKey).(*directory.Claims)
	return claims, ok
}

// =============================================================================
// HANDLERS
// =============================================================================

// LoginRequest carries login credentials.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse carries the minted token and the user profile.
type LoginResponse struct {
	Token string  `json:"token"`
	User  UserDTO `json:"user"`
}

// Login authenticates credentials and returns a bearer token.
// POST /api/auth/login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFailure(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if !strings.Contains(req.Email, "@") {
		writeFieldErrors(w, FieldError{Field: "email", Message: "Valid email is required"})
		return
	}
	if len(req.Password) < 6 {
		writeFieldErrors(w, FieldError{Field: "password", Message: "Password must be at least 6 characters"})
		return
	}

	user, err := h.Users.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, directory.ErrInvalidCredentials) {
			writeFailure(w, http.StatusUnauthorized, "Invalid credentials")
			return
		}
		h.serverError(w, "Login failed", err)
		return
	}

	token, err := h.Tokens.Issue(user)
	if err != nil {
		h.serverError(w, "Login failed", err)
		return
	}

	writeJSON(w, http.StatusOK, struct {
		Success bool    `json:"success"`
		Message string  `json:"message"`
		Token   string  `json:"token"`
		User    UserDTO `json:"user"`
	}{
		Success: true,
		Message: "Login successful",
		Token:   token,
		User:    toUserDTO(user),
	})
}

// RegisterRequest creates a new account.
type RegisterRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	Name      string `json:"name"`
	Role      string `json:"role"`
	StudentID string `json:"studentId,omitempty"`
	Avatar    string `json:"avatar,omitempty"`
}

// Register creates a new user account.
// POST /api/auth/register
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFailure(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, err := h.Users.Register(r.Context(), directory.RegisterParams{
		Email:     req.Email,
		Password:  req.Password,
		Name:      req.Name,
		Role:      directory.Role(req.Role),
		StudentID: mealcard.StudentID(req.StudentID),
		Avatar:    req.Avatar,
	})
	if err != nil {
		h.domainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, struct {
		Success bool    `json:"success"`
		Message string  `json:"message"`
		User    UserDTO `json:"user"`
	}{
		Success: true,
		Message: "User created successfully",
		User:    toUserDTO(user),
	})
}

// Logout acknowledges a client-side logout. Tokens are stateless; the
// client discards its copy.
// POST /api/auth/logout
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, Response{Success: true, Message: "Logged out successfully"})
}

// Me returns the profile behind the presented token.
// GET /api/auth/me
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	claims, ok := ClaimsFromContext(r.Context())
	if !ok {
		writeFailure(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	user, err := h.Users.Get(r.Context(), claims.UserID)
	if err != nil {
		h.domainError(w, err)
		return
	}
	writeData(w, http.StatusOK, "", map[string]any{"user": toUserDTO(user)})
}

// =============================================================================
// MIDDLEWARE
// =============================================================================

// Authenticate validates the bearer token and stores its claims in the
// request context. Requests without a valid token get 401.
func (h *Handler) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			writeFailure(w, http.StatusUnauthorized, "Authentication required")
			return
		}

		claims, err := h.Tokens.ParseToken(token)
		if err != nil {
			if errors.Is(err, directory.ErrExpiredToken) {
				writeFailure(w, http.StatusUnauthorized, "Token expired")
				return
			}
			writeFailure(w, http.StatusUnauthorized, "Invalid token")
			return
		}

		ctx := context.WithValue(r.Context(), claimsKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole allows only the listed roles through. Must run after
// Authenticate.
func RequireRole(roles ...directory.Role) func(http.Handler) http.Handler {
	allowed := make(map[directory.Role]bool, len(roles))
	for _, role := range roles {
		allowed[role] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := ClaimsFromContext(r.Context())
			if !ok || !allowed[claims.Role] {
				writeFailure(w, http.StatusForbidden, "Insufficient permissions")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
