package assign

import (
	"context"
	"fmt"
	"time"

	"github.com/beesaferoot/lotassign/domain"
	"github.com/beesaferoot/lotassign/validate"
)

// CompleteSale is the payment-completion hook: it moves a lot held by an
// installment sale to vendu and marks the sale contract completed.
func (a *Assigner) CompleteSale(ctx context.Context, lotID string, actor domain.Actor) (*domain.Contract, error) {
	if err := a.require(actor, domain.CanEditProperties); err != nil {
		return nil, err
	}

	lot, err := a.store.LoadLot(ctx, lotID)
	if err != nil {
		return nil, err
	}
	sale, err := a.store.ActiveContract(ctx, lot.ID)
	if err != nil {
		return nil, err
	}
	if sale == nil || sale.Type != domain.ContractSale {
		return nil, fmt.Errorf("%w: lot %s has no sale in progress", domain.ErrLotNotAvailable, lot.ID)
	}
	next, err := domain.Next(lot.Status, domain.TriggerSaleCompleted)
	if err != nil {
		return nil, err
	}

	now := a.now()
	err = a.store.Atomically(ctx, func(tx Tx) error {
		if err := tx.CompareAndSwapLotStatus(lot.ID, lot.Status, lot.Version, next); err != nil {
			return err
		}
		return tx.CloseContract(sale.ID, domain.ContractCompleted, now)
	})
	if err != nil {
		return nil, err
	}

	sale.Status = domain.ContractCompleted
	sale.UpdatedAt = now
	a.logger.Printf("assign: lot %s sold, contract %s completed by %s", lot.ID, sale.ID, actor)
	return sale, nil
}

// ExpireReservations releases every lot whose reservation expired before
// now. A lot that changed underneath (a conversion won the race) is skipped.
// It returns how many reservations were expired.
func (a *Assigner) ExpireReservations(ctx context.Context, now time.Time) (int, error) {
	expired, err := a.store.ExpiredReservations(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("failed to list expired reservations: %w", err)
	}

	count := 0
	for _, c := range expired {
		if err := ctx.Err(); err != nil {
			return count, err
		}
		lot, err := a.store.LoadLot(ctx, c.LotID)
		if err != nil {
			return count, err
		}
		next, err := domain.Next(lot.Status, domain.TriggerReservationExpiry)
		if err != nil {
			a.logger.Printf("assign: reservation %s on lot %s not expired: %v", c.ID, lot.ID, err)
			continue
		}

		contractID := c.ID
		err = a.store.Atomically(ctx, func(tx Tx) error {
			if err := tx.CompareAndSwapLotStatus(lot.ID, lot.Status, lot.Version, next); err != nil {
				return err
			}
			return tx.CloseContract(contractID, domain.ContractExpired, now)
		})
		if domain.IsRetryable(err) {
			a.logger.Printf("assign: reservation %s on lot %s changed concurrently, skipped", c.ID, lot.ID)
			continue
		}
		if err != nil {
			return count, err
		}
		count++
		a.logger.Printf("assign: reservation %s expired, lot %s is %s", c.ID, lot.ID, next)
	}
	return count, nil
}

// AmendRequest replaces the terms of an active contract.
type AmendRequest struct {
	ContractID string          `json:"contractId"`
	Terms      domain.RawTerms `json:"terms"`
	Actor      domain.Actor    `json:"-"`
}

// Amend re-validates new terms of the same contract type and regenerates the
// schedule. The lot status is untouched but its version is checked and
// bumped, so an amendment racing a status change loses with a conflict.
func (a *Assigner) Amend(ctx context.Context, req AmendRequest) (*domain.Contract, error) {
	if err := a.require(req.Actor, domain.CanManageTenants, domain.CanViewFinances); err != nil {
		return nil, err
	}

	c, err := a.store.GetContract(ctx, req.ContractID)
	if err != nil {
		return nil, err
	}
	if c.Status != domain.ContractActive {
		return nil, fmt.Errorf("%w: contract %s is %s", domain.ErrContractNotActive, c.ID, c.Status)
	}

	// The past-date rule is judged at signing time so a running lease can
	// still be amended.
	terms, err := a.validator.ValidateAt(c.Type, req.Terms, c.CreatedAt)
	if err != nil {
		return nil, err
	}
	if domain.TriggerFor(terms) != domain.TriggerFor(c.Terms) {
		return nil, &domain.ValidationError{Errors: []domain.FieldError{{
			Field:   validate.FieldPaymentMode,
			Code:    domain.CodeForbidden,
			Message: "payment mode cannot change on an existing sale",
		}}}
	}
	sched, err := a.calc.Compute(terms)
	if err != nil {
		return nil, err
	}
	lot, err := a.store.LoadLot(ctx, c.LotID)
	if err != nil {
		return nil, err
	}

	now := a.now()
	err = a.store.Atomically(ctx, func(tx Tx) error {
		if err := tx.CompareAndSwapLotStatus(lot.ID, lot.Status, lot.Version, lot.Status); err != nil {
			return err
		}
		return tx.ReplaceTerms(c.ID, terms, sched, now)
	})
	if err != nil {
		return nil, err
	}

	c.Terms = terms
	c.Schedule = sched
	c.StartDate = terms.Start()
	c.EndDate = domain.EndOf(terms)
	c.UpdatedAt = now
	a.logger.Printf("assign: contract %s amended by %s", c.ID, req.Actor)
	return c, nil
}
