// Package assign is the assignment orchestrator: it binds a client to a lot
// under a lease, sale or reservation, and drives the lot through its status
// machine with a compare-and-swap guard so a lot is never double-booked.
package assign

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/beesaferoot/lotassign/domain"
	"github.com/beesaferoot/lotassign/schedule"
	"github.com/beesaferoot/lotassign/validate"
)

// FieldClientID names the client in validation errors.
const FieldClientID = "clientId"

// Assigner runs assignments and the follow-up lifecycle operations.
type Assigner struct {
	store     Store
	clients   ClientDirectory
	perms     Permissions
	validator *validate.Validator
	calc      *schedule.Calculator
	now       func() time.Time
	newID     func() string
	logger    *log.Logger
}

// Option configures an Assigner.
type Option func(*Assigner)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(a *Assigner) { a.now = now }
}

// WithLogger sets the logger for assignment outcomes.
func WithLogger(l *log.Logger) Option {
	return func(a *Assigner) { a.logger = l }
}

// WithIDGenerator replaces the UUID contract identifier generator.
func WithIDGenerator(f func() string) Option {
	return func(a *Assigner) { a.newID = f }
}

// New creates an Assigner.
func New(store Store, clients ClientDirectory, perms Permissions, v *validate.Validator, calc *schedule.Calculator, opts ...Option) *Assigner {
	a := &Assigner{
		store:     store,
		clients:   clients,
		perms:     perms,
		validator: v,
		calc:      calc,
		now:       time.Now,
		newID:     uuid.NewString,
		logger:    log.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Request asks for a new contract on a lot.
type Request struct {
	LotID        string              `json:"lotId"`
	ClientID     string              `json:"clientId"`
	ContractType domain.ContractType `json:"contractType"`
	Terms        domain.RawTerms     `json:"terms"`
	Actor        domain.Actor        `json:"-"`
}

// Assign creates a contract for req and moves the lot to its next status.
// On success exactly one contract is saved and the lot status changes once;
// on any error nothing is written.
func (a *Assigner) Assign(ctx context.Context, req Request) (*domain.Contract, error) {
	if err := a.require(req.Actor, domain.CanEditProperties, domain.CanManageTenants); err != nil {
		return nil, err
	}

	lot, err := a.store.LoadLot(ctx, req.LotID)
	if err != nil {
		return nil, err
	}

	now := a.now()
	if !domain.Assignable(lot.Status) {
		return nil, fmt.Errorf("%w: lot %s is %s", domain.ErrLotNotAvailable, lot.ID, lot.Status)
	}
	var held *domain.Contract
	if lot.Status == domain.StatusReserve {
		held, err = a.heldFor(ctx, lot, req, now)
		if err != nil {
			return nil, err
		}
	}

	client, terms, err := a.check(ctx, req)
	if err != nil {
		return nil, err
	}

	sched, err := a.calc.Compute(terms)
	if err != nil {
		return nil, err
	}

	next, err := domain.Next(lot.Status, domain.TriggerFor(terms))
	if err != nil {
		return nil, err
	}

	contract := &domain.Contract{
		ID:         a.newID(),
		LotID:      lot.ID,
		ClientID:   client.ID,
		Type:       terms.ContractType(),
		Status:     domain.ContractActive,
		StartDate:  terms.Start(),
		EndDate:    domain.EndOf(terms),
		Currency:   a.validator.Config().Currency,
		Terms:      terms,
		Schedule:   sched,
		CreatedBy:  req.Actor,
		Advisories: advisories(client, terms.ContractType()),
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	err = a.store.Atomically(ctx, func(tx Tx) error {
		if err := tx.CompareAndSwapLotStatus(lot.ID, lot.Status, lot.Version, next); err != nil {
			return err
		}
		if held != nil {
			if err := tx.CloseContract(held.ID, domain.ContractConverted, now); err != nil {
				return err
			}
		}
		return tx.SaveContract(contract)
	})
	if err != nil {
		if domain.IsRetryable(err) {
			a.logger.Printf("assign: conflict on lot %s at version %d", lot.ID, lot.Version)
		}
		return nil, err
	}

	a.logger.Printf("assign: lot %s %s -> %s, %s contract %s for client %s by %s",
		lot.ID, lot.Status, next, contract.Type, contract.ID, client.ID, req.Actor)
	return contract, nil
}

// heldFor returns the reservation a reserve lot may be converted from. Only
// the reserving client may convert, into a lease or sale, before expiry.
func (a *Assigner) heldFor(ctx context.Context, lot *domain.Lot, req Request, now time.Time) (*domain.Contract, error) {
	active, err := a.store.ActiveContract(ctx, lot.ID)
	if err != nil {
		return nil, err
	}
	if active == nil || active.Type != domain.ContractReservation {
		return nil, fmt.Errorf("%w: lot %s is held by a sale in progress", domain.ErrLotNotAvailable, lot.ID)
	}
	if active.ClientID != req.ClientID {
		return nil, fmt.Errorf("%w: lot %s is reserved for another client", domain.ErrLotNotAvailable, lot.ID)
	}
	if req.ContractType == domain.ContractReservation {
		return nil, fmt.Errorf("%w: lot %s is already reserved", domain.ErrLotNotAvailable, lot.ID)
	}
	if exp, ok := active.ExpiresAt(); ok && !now.Before(exp) {
		return nil, fmt.Errorf("%w: reservation %s expired on %s", domain.ErrLotNotAvailable, active.ID, exp.Format(domain.DateLayout))
	}
	return active, nil
}

// check resolves the client and validates the terms, reporting both sets of
// problems in one ValidationError.
func (a *Assigner) check(ctx context.Context, req Request) (*domain.Client, domain.Terms, error) {
	var fields []domain.FieldError

	client, err := a.clients.GetClient(ctx, req.ClientID)
	if err != nil {
		if !errors.Is(err, domain.ErrClientNotFound) {
			return nil, nil, fmt.Errorf("failed to load client: %w", err)
		}
		fields = append(fields, domain.FieldError{
			Field:   FieldClientID,
			Code:    domain.CodeNotFound,
			Message: fmt.Sprintf("client %q does not exist", req.ClientID),
		})
	}

	terms, err := a.validator.Validate(req.ContractType, req.Terms)
	if err != nil {
		var ve *domain.ValidationError
		if !errors.As(err, &ve) {
			return nil, nil, err
		}
		fields = append(fields, ve.Errors...)
	}

	if len(fields) > 0 {
		return nil, nil, &domain.ValidationError{Errors: fields}
	}
	return client, terms, nil
}

func (a *Assigner) require(actor domain.Actor, caps ...domain.Capability) error {
	for _, c := range caps {
		if !a.perms.HasCapability(actor, c) {
			return fmt.Errorf("%w: %q lacks %s", domain.ErrPermissionDenied, actor, c)
		}
	}
	return nil
}

// advisories flags client types that do not match the contract. They never
// block the assignment.
func advisories(c *domain.Client, ct domain.ContractType) []string {
	var out []string
	switch {
	case c.Type == domain.ClientProspect:
		out = append(out, fmt.Sprintf("client %s is still a prospect", c.ID))
	case c.Type == domain.ClientTenant && ct == domain.ContractSale:
		out = append(out, fmt.Sprintf("client %s is registered as a tenant but signs a sale", c.ID))
	case c.Type == domain.ClientBuyer && ct == domain.ContractLease:
		out = append(out, fmt.Sprintf("client %s is registered as a buyer but signs a lease", c.ID))
	}
	return out
}
