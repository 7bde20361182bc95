// Package migration applies versioned schema changes and records each one in
// a bookkeeping table so it runs exactly once.
package migration

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"gorm.io/gorm"
)

type Migration struct {
	Version string
	Name    string
	Up      func(*gorm.DB) error
	Down    func(*gorm.DB) error
}

type MigrationRecord struct {
	Version   string    `gorm:"primaryKey"`
	Name      string    `gorm:"not null"`
	AppliedAt time.Time `gorm:"not null"`
}

// MigrationStatus pairs a registered migration with its applied state.
type MigrationStatus struct {
	Migration *Migration
	Applied   bool
	AppliedAt time.Time
}

type Migrator struct {
	db         *gorm.DB
	migrations []*Migration
}

// NewMigrator creates a Migrator over migrations, ordered by version.
func NewMigrator(db *gorm.DB, migrations ...*Migration) *Migrator {
	m := &Migrator{db: db}
	for _, mig := range migrations {
		m.Register(mig)
	}
	return m
}

func (m *Migrator) Register(migration *Migration) {
	m.migrations = append(m.migrations, migration)
	sort.SliceStable(m.migrations, func(i, j int) bool {
		return m.migrations[i].Version < m.migrations[j].Version
	})
}

// Migrations returns the registered migrations in version order.
func (m *Migrator) Migrations() []*Migration {
	out := make([]*Migration, len(m.migrations))
	copy(out, m.migrations)
	return out
}

func (m *Migrator) ensureVersionTable() error {
	return m.db.AutoMigrate(&MigrationRecord{})
}

func (m *Migrator) appliedRecords() (map[string]MigrationRecord, error) {
	if err := m.ensureVersionTable(); err != nil {
		return nil, fmt.Errorf("failed to create migration table: %w", err)
	}

	var records []MigrationRecord
	if err := m.db.Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to get applied migrations: %w", err)
	}

	applied := make(map[string]MigrationRecord, len(records))
	for _, record := range records {
		applied[record.Version] = record
	}
	return applied, nil
}

// Pending returns the migrations not yet applied, in version order.
func (m *Migrator) Pending() ([]*Migration, error) {
	applied, err := m.appliedRecords()
	if err != nil {
		return nil, err
	}

	var pending []*Migration
	for _, mig := range m.migrations {
		if _, ok := applied[mig.Version]; !ok {
			pending = append(pending, mig)
		}
	}
	return pending, nil
}

// Apply runs one migration and records it in the same transaction.
func (m *Migrator) Apply(mig *Migration) error {
	if err := m.ensureVersionTable(); err != nil {
		return fmt.Errorf("failed to create migration table: %w", err)
	}

	tx := m.db.Begin()
	if tx.Error != nil {
		return fmt.Errorf("failed to start transaction: %w", tx.Error)
	}

	if err := mig.Up(tx); err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to apply migration %s: %w", mig.Name, err)
	}

	record := MigrationRecord{
		Version:   mig.Version,
		Name:      mig.Name,
		AppliedAt: time.Now().UTC(),
	}
	if err := tx.Create(&record).Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to record migration %s: %w", mig.Name, err)
	}

	if err := tx.Commit().Error; err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Up applies every pending migration and returns those it applied.
func (m *Migrator) Up() ([]*Migration, error) {
	pending, err := m.Pending()
	if err != nil {
		return nil, err
	}

	var done []*Migration
	for _, mig := range pending {
		if err := m.Apply(mig); err != nil {
			return done, err
		}
		done = append(done, mig)
	}
	return done, nil
}

// Down rolls back the most recently applied migration. It returns nil when
// nothing is applied.
func (m *Migrator) Down() (*Migration, error) {
	if err := m.ensureVersionTable(); err != nil {
		return nil, fmt.Errorf("failed to create migration table: %w", err)
	}

	var lastRecord MigrationRecord
	err := m.db.Order("applied_at DESC").Order("version DESC").First(&lastRecord).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get last migration: %w", err)
	}

	var target *Migration
	for _, mig := range m.migrations {
		if mig.Version == lastRecord.Version {
			target = mig
			break
		}
	}
	if target == nil {
		return nil, fmt.Errorf("migration %s (%s) is applied but not registered", lastRecord.Name, lastRecord.Version)
	}

	tx := m.db.Begin()
	if tx.Error != nil {
		return nil, fmt.Errorf("failed to start transaction: %w", tx.Error)
	}
	if err := target.Down(tx); err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to roll back migration %s: %w", target.Name, err)
	}
	if err := tx.Delete(&lastRecord).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to remove migration record %s: %w", target.Name, err)
	}
	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return target, nil
}

// Status reports every registered migration with its applied state.
func (m *Migrator) Status() ([]MigrationStatus, error) {
	applied, err := m.appliedRecords()
	if err != nil {
		return nil, err
	}

	out := make([]MigrationStatus, 0, len(m.migrations))
	for _, mig := range m.migrations {
		record, ok := applied[mig.Version]
		out = append(out, MigrationStatus{Migration: mig, Applied: ok, AppliedAt: record.AppliedAt})
	}
	return out, nil
}

// History returns the applied migrations, most recent first.
func (m *Migrator) History() ([]MigrationRecord, error) {
	if err := m.ensureVersionTable(); err != nil {
		return nil, fmt.Errorf("failed to create migration table: %w", err)
	}

	var records []MigrationRecord
	if err := m.db.Order("applied_at DESC").Order("version DESC").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to get migration history: %w", err)
	}
	return records, nil
}
