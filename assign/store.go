package assign

import (
	"context"
	"time"

	"github.com/beesaferoot/lotassign/domain"
)

// Permissions answers capability checks for an actor.
type Permissions interface {
	HasCapability(actor domain.Actor, c domain.Capability) bool
}

// ClientDirectory resolves clients. GetClient returns an error wrapping
// domain.ErrClientNotFound for unknown identifiers.
type ClientDirectory interface {
	GetClient(ctx context.Context, id string) (*domain.Client, error)
}

// Store is the persistence the orchestrator reads from. Every write goes
// through Atomically.
type Store interface {
	// LoadLot returns an error wrapping domain.ErrLotNotFound when absent.
	LoadLot(ctx context.Context, id string) (*domain.Lot, error)
	// ActiveContract returns the lot's active contract, or nil when it has none.
	ActiveContract(ctx context.Context, lotID string) (*domain.Contract, error)
	// GetContract returns an error wrapping domain.ErrContractNotFound when absent.
	GetContract(ctx context.Context, id string) (*domain.Contract, error)
	// ExpiredReservations lists active reservations whose expiration date is before now.
	ExpiredReservations(ctx context.Context, now time.Time) ([]domain.Contract, error)
	// Atomically runs fn in one unit of work. Nothing fn did is visible
	// unless it returns nil.
	Atomically(ctx context.Context, fn func(tx Tx) error) error
}

// Tx is the write side of a unit of work.
type Tx interface {
	// CompareAndSwapLotStatus moves the lot to next only if it is still in
	// expected at expectedVersion, bumping the version. Otherwise it returns
	// domain.ErrConcurrentAssignmentConflict.
	CompareAndSwapLotStatus(lotID string, expected domain.LotStatus, expectedVersion int64, next domain.LotStatus) error
	SaveContract(c *domain.Contract) error
	// CloseContract moves an active contract to status. A contract that is
	// no longer active yields domain.ErrConcurrentAssignmentConflict.
	CloseContract(id string, status domain.ContractStatus, at time.Time) error
	// ReplaceTerms swaps the terms and schedule of an active contract.
	ReplaceTerms(id string, terms domain.Terms, s domain.Schedule, at time.Time) error
}
