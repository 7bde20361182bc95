package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/beesaferoot/lotassign/internal/store"
	"github.com/beesaferoot/lotassign/migration"
)

func MigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}
	cmd.AddCommand(UpCmd(), DownCmd(), StatusCmd(), HistoryCmd(), VerifyCmd())
	return cmd
}

func UpCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dryRun, _ := cmd.Flags().GetBool("dry-run")
			out := cmd.OutOrStdout()

			_, db, err := getDB()
			if err != nil {
				return err
			}
			migrator := store.Migrator(db)

			pending, err := migrator.Pending()
			if err != nil {
				return err
			}
			if len(pending) == 0 {
				fmt.Fprintln(out, "No pending migrations.")
				return nil
			}

			if dryRun {
				fmt.Fprintln(out, "Pending migrations:")
				for _, m := range pending {
					fmt.Fprintf(out, "- %s (%s)\n", m.Name, m.Version)
				}
				return nil
			}

			for _, m := range pending {
				fmt.Fprintf(out, "Applying migration: %s (%s)\n", m.Name, m.Version)
				if err := migrator.Apply(m); err != nil {
					return err
				}
				fmt.Fprintf(out, "Successfully applied migration: %s\n", m.Name)
			}
			return nil
		},
	}

	cmd.Flags().Bool("dry-run", false, "Show pending migrations without executing them")

	return cmd
}

func DownCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "down",
		Short: "Revert the last migration",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, db, err := getDB()
			if err != nil {
				return err
			}

			reverted, err := store.Migrator(db).Down()
			if err != nil {
				return err
			}
			if reverted == nil {
				return fmt.Errorf("no migrations to revert")
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Successfully reverted migration: %s\n", reverted.Name)
			return nil
		},
	}
}

func StatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show status of all migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, db, err := getDB()
			if err != nil {
				return err
			}

			statuses, err := store.Migrator(db).Status()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%-16s  %-36s  %-8s\n", "Version", "Name", "Status")
			for _, s := range statuses {
				status := "Pending"
				if s.Applied {
					status = "Applied"
				}
				fmt.Fprintf(out, "%-16s  %-36s  %-8s\n", s.Migration.Version, s.Migration.Name, status)
			}
			return nil
		},
	}
}

func HistoryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "Show migration history",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, db, err := getDB()
			if err != nil {
				return err
			}

			records, err := store.Migrator(db).History()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(records) == 0 {
				fmt.Fprintln(out, "No migrations have been applied yet.")
				return nil
			}

			fmt.Fprintf(out, "%-16s  %-36s  %-24s\n", "Version", "Name", "Applied At")
			for _, record := range records {
				fmt.Fprintf(out, "%-16s  %-36s  %-24s\n", record.Version, record.Name, record.AppliedAt.Format(time.RFC3339))
			}
			return nil
		},
	}
}

// VerifyCmd reports columns that differ between the models and the database.
func VerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Compare the database schema with the models",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, db, err := getDB()
			if err != nil {
				return err
			}

			drift, err := migration.Drift(db, store.Models()...)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			dirty := 0
			for _, d := range drift {
				switch {
				case d.MissingTable:
					fmt.Fprintf(out, "%-16s  missing table\n", d.Table)
				case !d.Clean():
					fmt.Fprintf(out, "%-16s  missing=%v  extra=%v\n", d.Table, d.MissingColumns, d.ExtraColumns)
				default:
					continue
				}
				dirty++
			}
			if dirty > 0 {
				return fmt.Errorf("schema drift in %d tables", dirty)
			}
			fmt.Fprintln(out, "Schema matches the models.")
			return nil
		},
	}
}
