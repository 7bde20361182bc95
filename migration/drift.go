package migration

import (
	"fmt"
	"sort"

	"gorm.io/gorm"
)

// TableDrift is how one table in the database differs from its model.
type TableDrift struct {
	Table          string
	MissingTable   bool
	MissingColumns []string
	ExtraColumns   []string
}

func (d TableDrift) Clean() bool {
	return !d.MissingTable && len(d.MissingColumns) == 0 && len(d.ExtraColumns) == 0
}

// Drift compares each model's columns against the live schema. Relationship
// fields are not columns and are ignored.
func Drift(db *gorm.DB, models ...any) ([]TableDrift, error) {
	migrator := db.Migrator()

	out := make([]TableDrift, 0, len(models))
	for _, model := range models {
		stmt := &gorm.Statement{DB: db}
		if err := stmt.Parse(model); err != nil {
			return nil, fmt.Errorf("failed to parse model %T: %w", model, err)
		}
		s := stmt.Schema

		d := TableDrift{Table: s.Table}
		if !migrator.HasTable(s.Table) {
			d.MissingTable = true
			out = append(out, d)
			continue
		}

		columns, err := migrator.ColumnTypes(s.Table)
		if err != nil {
			return nil, fmt.Errorf("failed to read columns of %s: %w", s.Table, err)
		}
		live := make(map[string]bool, len(columns))
		for _, col := range columns {
			live[col.Name()] = true
		}

		want := make(map[string]bool, len(s.DBNames))
		for _, name := range s.DBNames {
			want[name] = true
			if !live[name] {
				d.MissingColumns = append(d.MissingColumns, name)
			}
		}
		for name := range live {
			if !want[name] {
				d.ExtraColumns = append(d.ExtraColumns, name)
			}
		}
		sort.Strings(d.ExtraColumns)

		out = append(out, d)
	}
	return out, nil
}
