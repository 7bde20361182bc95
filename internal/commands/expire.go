package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func ExpireCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "expire",
		Short: "Release lots whose reservation has expired",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}

			now := time.Now().UTC()
			if at, _ := cmd.Flags().GetString("at"); at != "" {
				if now, err = time.Parse(time.RFC3339, at); err != nil {
					return fmt.Errorf("invalid --at: %w", err)
				}
			}

			n, err := a.assigner.ExpireReservations(cmd.Context(), now)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Expired %d reservations\n", n)
			return nil
		},
	}

	cmd.Flags().String("at", "", "Reference time in RFC 3339 (defaults to now)")

	return cmd
}
