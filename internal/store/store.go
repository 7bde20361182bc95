// Package store persists lots, clients and contracts with gorm. Lot status
// only changes through the compare-and-swap in Atomically.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/beesaferoot/lotassign/assign"
	"github.com/beesaferoot/lotassign/domain"
)

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// DB exposes the connection for migrations.
func (s *Store) DB() *gorm.DB { return s.db }

// CreateLot inserts lot as libre at version 1, assigning an ID if empty.
func (s *Store) CreateLot(ctx context.Context, lot *domain.Lot) error {
	if lot.ID == "" {
		lot.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	lot.Status = domain.StatusLibre
	lot.Version = 1
	lot.CreatedAt, lot.UpdatedAt = now, now

	rec := lotFromDomain(lot)
	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return fmt.Errorf("failed to create lot: %w", err)
	}
	return nil
}

// CreateClient inserts c, assigning an ID if empty.
func (s *Store) CreateClient(ctx context.Context, c *domain.Client) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	rec := ClientRecord{ID: c.ID, Name: c.Name, Type: string(c.Type), CreatedAt: time.Now().UTC()}
	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}
	return nil
}

func (s *Store) GetClient(ctx context.Context, id string) (*domain.Client, error) {
	var rec ClientRecord
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", domain.ErrClientNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get client: %w", err)
	}
	return rec.toDomain(), nil
}

func (s *Store) LoadLot(ctx context.Context, id string) (*domain.Lot, error) {
	var rec LotRecord
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", domain.ErrLotNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load lot: %w", err)
	}
	return rec.toDomain(), nil
}

func (s *Store) ActiveContract(ctx context.Context, lotID string) (*domain.Contract, error) {
	var rec ContractRecord
	err := s.withObligations(ctx).
		Where("lot_id = ? AND status = ?", lotID, domain.ContractActive).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get active contract: %w", err)
	}
	return rec.toDomain()
}

func (s *Store) GetContract(ctx context.Context, id string) (*domain.Contract, error) {
	var rec ContractRecord
	err := s.withObligations(ctx).Where("id = ?", id).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", domain.ErrContractNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get contract: %w", err)
	}
	return rec.toDomain()
}

// ListContracts returns every contract on lotID, oldest first.
func (s *Store) ListContracts(ctx context.Context, lotID string) ([]domain.Contract, error) {
	var recs []ContractRecord
	err := s.withObligations(ctx).Where("lot_id = ?", lotID).Order("created_at, id").Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list contracts: %w", err)
	}
	return toContracts(recs)
}

func (s *Store) ExpiredReservations(ctx context.Context, now time.Time) ([]domain.Contract, error) {
	var recs []ContractRecord
	err := s.withObligations(ctx).
		Where("type = ? AND status = ? AND expires_at < ?", domain.ContractReservation, domain.ContractActive, now.UTC()).
		Order("expires_at").
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list expired reservations: %w", err)
	}
	return toContracts(recs)
}

// Atomically runs fn inside one database transaction.
func (s *Store) Atomically(ctx context.Context, fn func(tx assign.Tx) error) error {
	return s.db.WithContext(ctx).Transaction(func(db *gorm.DB) error {
		return fn(&tx{db: db})
	})
}

func (s *Store) withObligations(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).Preload("Obligations", func(db *gorm.DB) *gorm.DB {
		return db.Order("seq")
	})
}

func toContracts(recs []ContractRecord) ([]domain.Contract, error) {
	out := make([]domain.Contract, 0, len(recs))
	for _, rec := range recs {
		c, err := rec.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, nil
}

type tx struct {
	db *gorm.DB
}

func (t *tx) CompareAndSwapLotStatus(lotID string, expected domain.LotStatus, expectedVersion int64, next domain.LotStatus) error {
	res := t.db.Model(&LotRecord{}).
		Where("id = ? AND status = ? AND version = ?", lotID, expected, expectedVersion).
		Updates(map[string]any{
			"status":     string(next),
			"version":    gorm.Expr("version + 1"),
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return fmt.Errorf("failed to update lot status: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return t.missingOr(&LotRecord{}, lotID, domain.ErrLotNotFound,
			fmt.Errorf("%w: lot %s left %s at version %d", domain.ErrConcurrentAssignmentConflict, lotID, expected, expectedVersion))
	}
	return nil
}

func (t *tx) SaveContract(c *domain.Contract) error {
	rec, err := contractFromDomain(c)
	if err != nil {
		return err
	}
	err = t.db.Create(&rec).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%w: lot %s already has an active contract", domain.ErrConcurrentAssignmentConflict, c.LotID)
	}
	if err != nil {
		return fmt.Errorf("failed to save contract: %w", err)
	}
	return nil
}

func (t *tx) CloseContract(id string, status domain.ContractStatus, at time.Time) error {
	res := t.db.Model(&ContractRecord{}).
		Where("id = ? AND status = ?", id, domain.ContractActive).
		Updates(map[string]any{"status": string(status), "updated_at": at})
	if res.Error != nil {
		return fmt.Errorf("failed to close contract: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return t.missingOr(&ContractRecord{}, id, domain.ErrContractNotFound,
			fmt.Errorf("%w: contract %s is no longer active", domain.ErrConcurrentAssignmentConflict, id))
	}
	return nil
}

func (t *tx) ReplaceTerms(id string, terms domain.Terms, sched domain.Schedule, at time.Time) error {
	encoded, err := encodeTerms(terms)
	if err != nil {
		return err
	}
	res := t.db.Model(&ContractRecord{}).
		Where("id = ? AND status = ?", id, domain.ContractActive).
		Updates(map[string]any{
			"terms":      encoded,
			"start_date": terms.Start(),
			"end_date":   domain.EndOf(terms),
			"expires_at": expiresAt(terms),
			"updated_at": at,
		})
	if res.Error != nil {
		return fmt.Errorf("failed to update contract terms: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return t.missingOr(&ContractRecord{}, id, domain.ErrContractNotFound,
			fmt.Errorf("%w: contract %s", domain.ErrContractNotActive, id))
	}

	if err := t.db.Where("contract_id = ?", id).Delete(&ObligationRecord{}).Error; err != nil {
		return fmt.Errorf("failed to clear obligations: %w", err)
	}
	if recs := obligationsFromDomain(id, sched); len(recs) > 0 {
		if err := t.db.Create(&recs).Error; err != nil {
			return fmt.Errorf("failed to write obligations: %w", err)
		}
	}
	return nil
}

// missingOr returns notFound when no row with id exists, otherwise other.
func (t *tx) missingOr(model any, id string, notFound, other error) error {
	var n int64
	if err := t.db.Model(model).Where("id = ?", id).Count(&n).Error; err != nil {
		return fmt.Errorf("failed to check %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", notFound, id)
	}
	return other
}
