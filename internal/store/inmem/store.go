// Package inmem is a mutex-guarded in-memory store used by the engine and
// HTTP tests.
package inmem

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/beesaferoot/lotassign/assign"
	"github.com/beesaferoot/lotassign/domain"
)

// Store keeps lots, clients and contracts in maps.
type Store struct {
	mu        sync.RWMutex
	lots      map[string]domain.Lot
	clients   map[string]domain.Client
	contracts map[string]domain.Contract
	seq       map[string]int
	next      int
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		lots:      make(map[string]domain.Lot),
		clients:   make(map[string]domain.Client),
		contracts: make(map[string]domain.Contract),
		seq:       make(map[string]int),
	}
}

// CreateLot stores lot as libre at version 1, assigning an ID if empty.
func (s *Store) CreateLot(_ context.Context, lot *domain.Lot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if lot.ID == "" {
		lot.ID = uuid.NewString()
	}
	if _, ok := s.lots[lot.ID]; ok {
		return fmt.Errorf("lot %s already exists", lot.ID)
	}
	now := time.Now().UTC()
	lot.Status = domain.StatusLibre
	lot.Version = 1
	lot.CreatedAt, lot.UpdatedAt = now, now
	s.lots[lot.ID] = *lot
	return nil
}

// PutLot stores lot as given. Tests use it to seed statuses the engine
// never produces, such as hors_service.
func (s *Store) PutLot(lot domain.Lot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lots[lot.ID] = lot
}

// CreateClient stores c, assigning an ID if empty.
func (s *Store) CreateClient(_ context.Context, c *domain.Client) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	s.clients[c.ID] = *c
	return nil
}

func (s *Store) GetClient(_ context.Context, id string) (*domain.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.clients[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrClientNotFound, id)
	}
	return &c, nil
}

func (s *Store) LoadLot(_ context.Context, id string) (*domain.Lot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	lot, ok := s.lots[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrLotNotFound, id)
	}
	return &lot, nil
}

func (s *Store) ActiveContract(_ context.Context, lotID string) (*domain.Contract, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.contracts {
		if c.LotID == lotID && c.Status == domain.ContractActive {
			return cloneContract(c), nil
		}
	}
	return nil, nil
}

func (s *Store) GetContract(_ context.Context, id string) (*domain.Contract, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.contracts[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrContractNotFound, id)
	}
	return cloneContract(c), nil
}

// Contracts returns every contract on lotID in creation order.
func (s *Store) Contracts(lotID string) []domain.Contract {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Contract
	for _, c := range s.contracts {
		if c.LotID == lotID {
			out = append(out, *cloneContract(c))
		}
	}
	sort.Slice(out, func(i, j int) bool { return s.seq[out[i].ID] < s.seq[out[j].ID] })
	return out
}

func (s *Store) ExpiredReservations(_ context.Context, now time.Time) ([]domain.Contract, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Contract
	for _, c := range s.contracts {
		if c.Status != domain.ContractActive {
			continue
		}
		if exp, ok := c.ExpiresAt(); ok && exp.Before(now) {
			out = append(out, *cloneContract(c))
		}
	}
	sort.Slice(out, func(i, j int) bool { return s.seq[out[i].ID] < s.seq[out[j].ID] })
	return out, nil
}

// Atomically runs fn under the write lock against staged copies and applies
// them only when fn succeeds.
func (s *Store) Atomically(ctx context.Context, fn func(tx assign.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &tx{
		s:         s,
		lots:      make(map[string]domain.Lot),
		contracts: make(map[string]domain.Contract),
	}
	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	for id, lot := range tx.lots {
		s.lots[id] = lot
	}
	for _, id := range tx.order {
		if _, ok := s.seq[id]; !ok {
			s.next++
			s.seq[id] = s.next
		}
	}
	for id, c := range tx.contracts {
		s.contracts[id] = c
	}
	return nil
}

type tx struct {
	s         *Store
	lots      map[string]domain.Lot
	contracts map[string]domain.Contract
	order     []string
}

func (t *tx) lot(id string) (domain.Lot, bool) {
	if l, ok := t.lots[id]; ok {
		return l, true
	}
	l, ok := t.s.lots[id]
	return l, ok
}

func (t *tx) contract(id string) (domain.Contract, bool) {
	if c, ok := t.contracts[id]; ok {
		return c, true
	}
	c, ok := t.s.contracts[id]
	return c, ok
}

func (t *tx) CompareAndSwapLotStatus(lotID string, expected domain.LotStatus, expectedVersion int64, next domain.LotStatus) error {
	lot, ok := t.lot(lotID)
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrLotNotFound, lotID)
	}
	if lot.Status != expected || lot.Version != expectedVersion {
		return fmt.Errorf("%w: lot %s is %s at version %d", domain.ErrConcurrentAssignmentConflict, lotID, lot.Status, lot.Version)
	}
	lot.Status = next
	lot.Version++
	lot.UpdatedAt = time.Now().UTC()
	t.lots[lotID] = lot
	return nil
}

func (t *tx) SaveContract(c *domain.Contract) error {
	if _, ok := t.contract(c.ID); ok {
		return fmt.Errorf("contract %s already exists", c.ID)
	}
	if c.Status == domain.ContractActive {
		for _, other := range t.merged() {
			if other.LotID == c.LotID && other.Status == domain.ContractActive {
				return fmt.Errorf("%w: lot %s already has active contract %s", domain.ErrConcurrentAssignmentConflict, c.LotID, other.ID)
			}
		}
	}
	t.contracts[c.ID] = *cloneContract(*c)
	t.order = append(t.order, c.ID)
	return nil
}

func (t *tx) CloseContract(id string, status domain.ContractStatus, at time.Time) error {
	c, ok := t.contract(id)
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrContractNotFound, id)
	}
	if c.Status != domain.ContractActive {
		return fmt.Errorf("%w: contract %s is %s", domain.ErrConcurrentAssignmentConflict, id, c.Status)
	}
	c.Status = status
	c.UpdatedAt = at
	t.contracts[id] = c
	return nil
}

func (t *tx) ReplaceTerms(id string, terms domain.Terms, sched domain.Schedule, at time.Time) error {
	c, ok := t.contract(id)
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrContractNotFound, id)
	}
	if c.Status != domain.ContractActive {
		return fmt.Errorf("%w: contract %s is %s", domain.ErrContractNotActive, id, c.Status)
	}
	c.Terms = terms
	c.Schedule = append(domain.Schedule(nil), sched...)
	c.StartDate = terms.Start()
	c.EndDate = domain.EndOf(terms)
	c.UpdatedAt = at
	t.contracts[id] = c
	return nil
}

// merged is the committed contracts overlaid with the staged ones.
func (t *tx) merged() map[string]domain.Contract {
	out := make(map[string]domain.Contract, len(t.s.contracts)+len(t.contracts))
	for id, c := range t.s.contracts {
		out[id] = c
	}
	for id, c := range t.contracts {
		out[id] = c
	}
	return out
}

func cloneContract(c domain.Contract) *domain.Contract {
	c.Schedule = append(domain.Schedule(nil), c.Schedule...)
	c.Advisories = append([]string(nil), c.Advisories...)
	return &c
}
