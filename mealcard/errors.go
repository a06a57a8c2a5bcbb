/*
errors.go - Centralized error types for the meal-card domain

PURPOSE:
  All domain error types in one place for consistency and discoverability.
  The HTTP boundary maps these to status codes; nothing above this package
  inspects error strings.

ERROR CATEGORIES:
  1. Not-found errors   - Referenced card/transaction absent (404)
  2. State errors       - Operation illegal for current entity state (400)
  3. Conflict errors    - Duplicate active card (409)
  4. Funds errors       - Balance would go negative (400)
  5. Validation errors  - Malformed or missing input (400)

USAGE:
  if errors.Is(err, mealcard.ErrInsufficientFunds) { ... }

  var stateErr *mealcard.CardStateError
  if errors.As(err, &stateErr) { ... }

SEE ALSO:
  - ledger.go, transactions.go: Produce these errors
  - api/handlers.go: Converts them to HTTP responses
*/
package mealcard

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrCardNotFound is returned when a referenced card doesn't exist.
	ErrCardNotFound = errors.New("meal card not found")

	// ErrTransactionNotFound is returned when a referenced transaction doesn't exist.
	ErrTransactionNotFound = errors.New("transaction not found")

	// ErrActiveCardExists is returned when issuing a card for a student who
	// already holds an active one. One active card per student.
	ErrActiveCardExists = errors.New("student already has an active meal card")

	// ErrCardNotActive is returned when mutating the balance of a card whose
	// status is not active.
	ErrCardNotActive = errors.New("cannot modify balance of inactive card")

	// ErrInsufficientFunds is returned when a deduction would take the
	// balance below zero. The stored balance is left unchanged.
	ErrInsufficientFunds = errors.New("insufficient balance")

	// ErrTransactionFinal is returned when transitioning a transaction that
	// is no longer pending. Terminal states are immutable.
	ErrTransactionFinal = errors.New("only pending transactions can be updated")

	// ErrValidation is returned for malformed or missing input.
	ErrValidation = errors.New("validation failed")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InsufficientFundsError reports the shortfall of a rejected deduction.
type InsufficientFundsError struct {
	CardID    CardID
	Balance   Money
	Requested Money
	Shortfall Money
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient balance on card %s: have %s, need %s (short %s)",
		e.CardID, e.Balance, e.Requested, e.Shortfall)
}

func (e *InsufficientFundsError) Unwrap() error { return ErrInsufficientFunds }

// CardStateError reports a mutation attempted on a non-active card.
type CardStateError struct {
	CardID CardID
	Status CardStatus
}

func (e *CardStateError) Error() string {
	return fmt.Sprintf("card %s is %s: balance mutations require an active card", e.CardID, e.Status)
}

func (e *CardStateError) Unwrap() error { return ErrCardNotActive }

// TransactionStateError reports a transition attempted on a non-pending
// transaction.
type TransactionStateError struct {
	TransactionID TransactionID
	Status        TransactionStatus
}

func (e *TransactionStateError) Error() string {
	return fmt.Sprintf("transaction %s is %s: only pending transactions can transition", e.TransactionID, e.Status)
}

func (e *TransactionStateError) Unwrap() error { return ErrTransactionFinal }

// ValidationError reports a field-level input failure.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsNotFound returns true if the error indicates a missing entity.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrCardNotFound) || errors.Is(err, ErrTransactionNotFound)
}

// IsConflict returns true if the error indicates a uniqueness conflict.
func IsConflict(err error) bool {
	return errors.Is(err, ErrActiveCardExists)
}

// IsClientError returns true if the error is due to invalid client input or
// an operation illegal for the current entity state.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrCardNotActive) ||
		errors.Is(err, ErrInsufficientFunds) ||
		errors.Is(err, ErrTransactionFinal)
}
