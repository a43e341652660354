package domain

import (
	"errors"
	"fmt"
)

// Sentinels for errors.Is; the typed errors below match them via Is.
var (
	ErrDebtNotFound    = errors.New("debt not found")
	ErrPaymentNotFound = errors.New("payment not found")
	ErrInviteNotFound  = errors.New("invite not found")
	ErrUserNotFound    = errors.New("user not found")
	ErrDebtClosed      = errors.New("debt is closed")
)

// ErrNotFound indicates a resource was not found.
type ErrNotFound struct {
	Resource string
	ID       string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

func (e *ErrNotFound) Is(target error) bool {
	switch target {
	case ErrDebtNotFound:
		return e.Resource == "debt"
	case ErrPaymentNotFound:
		return e.Resource == "payment"
	case ErrInviteNotFound:
		return e.Resource == "invite"
	case ErrUserNotFound:
		return e.Resource == "user"
	}
	return false
}

func NotFound(resource string, id any) error {
	return &ErrNotFound{Resource: resource, ID: fmt.Sprint(id)}
}

// ErrValidation indicates bad input.
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error on '%s': %s", e.Field, e.Message)
}

// ErrForbidden indicates the user lacks permission for the operation.
type ErrForbidden struct {
	Action string
}

func (e *ErrForbidden) Error() string {
	return fmt.Sprintf("forbidden: %s", e.Action)
}

// ErrConflict indicates the operation clashes with the current state.
type ErrConflict struct {
	Message string
}

func (e *ErrConflict) Error() string {
	return e.Message
}
