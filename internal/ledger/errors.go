package ledger

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInsufficientStock rejects a sale or stock destruction larger
	// than the product's stock on hand.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrProductNotFound indicates an unknown product reference.
	ErrProductNotFound = errors.New("product not found")
	// ErrContainerNotFound indicates an unknown container reference.
	ErrContainerNotFound = errors.New("container not found")
	// ErrSaleNotFound indicates an unknown sale reference.
	ErrSaleNotFound = errors.New("sale not found")
	// ErrExpenseNotFound indicates an unknown expense reference.
	ErrExpenseNotFound = errors.New("expense not found")
	// ErrPartnerNotFound indicates an unknown partner reference.
	ErrPartnerNotFound = errors.New("partner not found")
	// ErrWithdrawalNotFound indicates an unknown withdrawal reference.
	ErrWithdrawalNotFound = errors.New("withdrawal not found")
	// ErrCashInjectionNotFound indicates an unknown cash injection reference.
	ErrCashInjectionNotFound = errors.New("cash injection not found")
	// ErrUnknownCommand rejects a command kind the handler does not know.
	ErrUnknownCommand = errors.New("unknown command")
)

// ValidationError reports a rejected command. The snapshot returned
// alongside it is the prior state, untouched.
type ValidationError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("ledger: %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("ledger: %s", e.Reason)
}

func (e *ValidationError) Unwrap() error { return e.Err }

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

func invalidErr(field string, err error) error {
	return &ValidationError{Field: field, Reason: err.Error(), Err: err}
}

// IntegrityGuardError blocks a deletion that would orphan references
// or drive stock negative. Offenders lists the entities in the way.
type IntegrityGuardError struct {
	Op        string
	Reason    string
	Offenders []string
}

func (e *IntegrityGuardError) Error() string {
	if len(e.Offenders) == 0 {
		return fmt.Sprintf("ledger: %s blocked: %s", e.Op, e.Reason)
	}
	return fmt.Sprintf("ledger: %s blocked: %s (%s)", e.Op, e.Reason, strings.Join(e.Offenders, ", "))
}

// IsValidation reports whether err is a command rejection rather than
// an infrastructure failure.
func IsValidation(err error) bool {
	var v *ValidationError
	var g *IntegrityGuardError
	return errors.As(err, &v) || errors.As(err, &g)
}
