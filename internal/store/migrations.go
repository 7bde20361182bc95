package store

import (
	"gorm.io/gorm"

	"github.com/beesaferoot/lotassign/migration"
)

// Migrations is the schema history, oldest first.
func Migrations() []*migration.Migration {
	return []*migration.Migration{
		{
			Version: "20260301000001",
			Name:    "create_lots_and_clients",
			Up: func(tx *gorm.DB) error {
				return tx.Migrator().CreateTable(&LotRecord{}, &ClientRecord{})
			},
			Down: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable(&ClientRecord{}, &LotRecord{})
			},
		},
		{
			Version: "20260301000002",
			Name:    "create_contracts_and_obligations",
			Up: func(tx *gorm.DB) error {
				return tx.Migrator().CreateTable(&ContractRecord{}, &ObligationRecord{})
			},
			Down: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable(&ObligationRecord{}, &ContractRecord{})
			},
		},
		{
			Version: "20260301000003",
			Name:    "one_active_contract_per_lot",
			Up: func(tx *gorm.DB) error {
				return tx.Exec(`
					CREATE UNIQUE INDEX IF NOT EXISTS idx_contracts_one_active
					ON contracts(lot_id) WHERE status = 'active'
				`).Error
			},
			Down: func(tx *gorm.DB) error {
				return tx.Exec(`DROP INDEX IF EXISTS idx_contracts_one_active`).Error
			},
		},
	}
}

// Migrator returns a migrator over the schema history.
func Migrator(db *gorm.DB) *migration.Migrator {
	return migration.NewMigrator(db, Migrations()...)
}

// Models lists the persisted record types, for drift checks.
func Models() []any {
	return []any{&LotRecord{}, &ClientRecord{}, &ContractRecord{}, &ObligationRecord{}}
}
