package rules

import (
	"errors"
	"fmt"
)

// Sentinel error kinds. Every failure of a core operation leaves the game
// state unchanged.
var (
	ErrUnknownGenerator  = errors.New("unknown generator")
	ErrUnknownUpgrade    = errors.New("unknown upgrade")
	ErrGeneratorLocked   = errors.New("generator locked")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrAlreadyPurchased  = errors.New("upgrade already purchased")
	ErrPrestigeNotReady  = errors.New("prestige not ready")
	ErrPersistence       = errors.New("persistence failure")
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrInvalidCatalog    = errors.New("invalid catalog")
)

// InsufficientFundsError reports how much signal is missing for a purchase.
type InsufficientFundsError struct {
	Cost      float64
	Available float64
}

// Shortfall is the signal still needed.
func (e *InsufficientFundsError) Shortfall() float64 {
	return e.Cost - e.Available
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds: need %.2f more signal", e.Shortfall())
}

func (e *InsufficientFundsError) Is(target error) bool {
	return target == ErrInsufficientFunds
}

// PrestigeNotReadyError reports how much lifetime signal is missing before an
// ignite is allowed.
type PrestigeNotReadyError struct {
	Shortfall float64
}

func (e *PrestigeNotReadyError) Error() string {
	return fmt.Sprintf("prestige not ready: generate %.2f more signal", e.Shortfall)
}

func (e *PrestigeNotReadyError) Is(target error) bool {
	return target == ErrPrestigeNotReady
}

// PersistenceError wraps an environmental failure of the snapshot store.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

func (e *PersistenceError) Is(target error) bool {
	return target == ErrPersistence
}

// CatalogError describes why a catalog definition was rejected.
type CatalogError struct {
	Key    string
	Reason string
}

func (e *CatalogError) Error() string {
	if e.Key == "" {
		return "invalid catalog: " + e.Reason
	}
	return fmt.Sprintf("invalid catalog entry %q: %s", e.Key, e.Reason)
}

func (e *CatalogError) Is(target error) bool {
	return target == ErrInvalidCatalog
}
