package inmem

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beesaferoot/lotassign/assign"
	"github.com/beesaferoot/lotassign/domain"
)

var _ assign.Store = (*Store)(nil)
var _ assign.ClientDirectory = (*Store)(nil)

func seedLot(t *testing.T, s *Store) domain.Lot {
	t.Helper()
	lot := domain.Lot{BuildingID: "b-1", Type: domain.LotShop}
	require.NoError(t, s.CreateLot(context.Background(), &lot))
	return lot
}

func TestCreateLot(t *testing.T) {
	s := New()
	lot := seedLot(t, s)
	assert.NotEmpty(t, lot.ID)
	assert.Equal(t, domain.StatusLibre, lot.Status)
	assert.Equal(t, int64(1), lot.Version)

	dup := domain.Lot{ID: lot.ID}
	assert.Error(t, s.CreateLot(context.Background(), &dup))

	_, err := s.LoadLot(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrLotNotFound)
}

func TestAtomically_CompareAndSwap(t *testing.T) {
	ctx := context.Background()
	s := New()
	lot := seedLot(t, s)

	t.Run("stale version conflicts", func(t *testing.T) {
		err := s.Atomically(ctx, func(tx assign.Tx) error {
			return tx.CompareAndSwapLotStatus(lot.ID, domain.StatusLibre, lot.Version+1, domain.StatusLoue)
		})
		assert.ErrorIs(t, err, domain.ErrConcurrentAssignmentConflict)
	})

	t.Run("matching version bumps", func(t *testing.T) {
		err := s.Atomically(ctx, func(tx assign.Tx) error {
			return tx.CompareAndSwapLotStatus(lot.ID, domain.StatusLibre, lot.Version, domain.StatusLoue)
		})
		require.NoError(t, err)
		got, err := s.LoadLot(ctx, lot.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusLoue, got.Status)
		assert.Equal(t, lot.Version+1, got.Version)
	})
}

func TestAtomically_RollsBack(t *testing.T) {
	ctx := context.Background()
	s := New()
	lot := seedLot(t, s)
	boom := errors.New("boom")

	err := s.Atomically(ctx, func(tx assign.Tx) error {
		require.NoError(t, tx.CompareAndSwapLotStatus(lot.ID, domain.StatusLibre, lot.Version, domain.StatusLoue))
		require.NoError(t, tx.SaveContract(&domain.Contract{ID: "c-1", LotID: lot.ID, Status: domain.ContractActive}))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := s.LoadLot(ctx, lot.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusLibre, got.Status)
	assert.Equal(t, lot.Version, got.Version)
	_, err = s.GetContract(ctx, "c-1")
	assert.ErrorIs(t, err, domain.ErrContractNotFound)
}

func TestSaveContract_OneActivePerLot(t *testing.T) {
	ctx := context.Background()
	s := New()
	lot := seedLot(t, s)

	require.NoError(t, s.Atomically(ctx, func(tx assign.Tx) error {
		return tx.SaveContract(&domain.Contract{ID: "c-1", LotID: lot.ID, Status: domain.ContractActive})
	}))
	err := s.Atomically(ctx, func(tx assign.Tx) error {
		return tx.SaveContract(&domain.Contract{ID: "c-2", LotID: lot.ID, Status: domain.ContractActive})
	})
	assert.ErrorIs(t, err, domain.ErrConcurrentAssignmentConflict)

	active, err := s.ActiveContract(ctx, lot.ID)
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, "c-1", active.ID)
}

func TestExpiredReservations(t *testing.T) {
	ctx := context.Background()
	s := New()
	lot := seedLot(t, s)
	start := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)
	exp := time.Date(2026, time.March, 10, 0, 0, 0, 0, time.UTC)

	require.NoError(t, s.Atomically(ctx, func(tx assign.Tx) error {
		return tx.SaveContract(&domain.Contract{
			ID:     "r-1",
			LotID:  lot.ID,
			Type:   domain.ContractReservation,
			Status: domain.ContractActive,
			Terms:  domain.ReservationTerms{StartDate: start, ExpirationDate: exp},
		})
	}))

	got, err := s.ExpiredReservations(ctx, exp)
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = s.ExpiredReservations(ctx, exp.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "r-1", got[0].ID)

	require.NoError(t, s.Atomically(ctx, func(tx assign.Tx) error {
		return tx.CloseContract("r-1", domain.ContractExpired, exp)
	}))
	err = s.Atomically(ctx, func(tx assign.Tx) error {
		return tx.CloseContract("r-1", domain.ContractExpired, exp)
	})
	assert.ErrorIs(t, err, domain.ErrConcurrentAssignmentConflict)
}

func TestReplaceTerms_MovesExpiry(t *testing.T) {
	ctx := context.Background()
	s := New()
	lot := seedLot(t, s)
	start := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)
	exp := time.Date(2026, time.March, 10, 0, 0, 0, 0, time.UTC)
	extended := time.Date(2026, time.March, 25, 0, 0, 0, 0, time.UTC)

	require.NoError(t, s.Atomically(ctx, func(tx assign.Tx) error {
		return tx.SaveContract(&domain.Contract{
			ID:     "r-1",
			LotID:  lot.ID,
			Type:   domain.ContractReservation,
			Status: domain.ContractActive,
			Terms:  domain.ReservationTerms{StartDate: start, ExpirationDate: exp},
		})
	}))
	require.NoError(t, s.Atomically(ctx, func(tx assign.Tx) error {
		terms := domain.ReservationTerms{StartDate: start, ExpirationDate: extended}
		return tx.ReplaceTerms("r-1", terms, nil, start)
	}))

	got, err := s.ExpiredReservations(ctx, time.Date(2026, time.March, 15, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = s.ExpiredReservations(ctx, extended.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "r-1", got[0].ID)
}
