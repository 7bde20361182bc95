package commands

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/beesaferoot/lotassign/domain"
)

func LotCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lot",
		Short: "Register and inspect lots",
	}
	cmd.AddCommand(LotCreateCmd(), LotShowCmd())
	return cmd
}

func LotCreateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Register a new lot",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}

			flags := cmd.Flags()
			building, _ := flags.GetString("building")
			typ, _ := flags.GetString("type")
			rooms, _ := flags.GetInt("rooms")
			area, _ := flags.GetFloat64("area")
			installments, _ := flags.GetInt("installments")

			lot := &domain.Lot{
				BuildingID:               building,
				Type:                     domain.LotType(typ),
				FloorArea:                area,
				Rooms:                    rooms,
				DefaultInstallmentMonths: installments,
			}
			amounts := map[string]*domain.Money{
				"rent":    &lot.BaseRent,
				"charges": &lot.BaseCharges,
				"price":   &lot.BaseSalePrice,
			}
			for name, dst := range amounts {
				raw, _ := flags.GetString(name)
				if raw == "" {
					continue
				}
				if *dst, err = parseAmount(a.cfg.Currency, raw); err != nil {
					return fmt.Errorf("invalid --%s: %w", name, err)
				}
			}

			if err := a.store.CreateLot(cmd.Context(), lot); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created lot %s (%s, %s)\n", lot.ID, lot.Type, lot.Status)
			return nil
		},
	}

	cmd.Flags().String("building", "", "Building identifier")
	cmd.Flags().String("type", string(domain.LotApartment), "Lot type")
	cmd.Flags().Int("rooms", 0, "Number of rooms")
	cmd.Flags().Float64("area", 0, "Floor area in square metres")
	cmd.Flags().String("rent", "", "Base monthly rent")
	cmd.Flags().String("charges", "", "Base monthly charges")
	cmd.Flags().String("price", "", "Base sale price")
	cmd.Flags().Int("installments", 0, "Default number of installments for a sale")
	_ = cmd.MarkFlagRequired("building")

	return cmd
}

func LotShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show [lot-id]",
		Short: "Show a lot and its contracts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}

			lot, err := a.store.LoadLot(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			contracts, err := a.store.ListContracts(cmd.Context(), lot.ID)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Lot %s  building=%s  type=%s  status=%s  version=%d\n",
				lot.ID, lot.BuildingID, lot.Type, lot.Status, lot.Version)
			if len(contracts) == 0 {
				fmt.Fprintln(out, "No contracts.")
				return nil
			}
			fmt.Fprintf(out, "%-36s  %-12s  %-10s  %-10s  %-36s\n", "Contract", "Type", "Status", "Start", "Client")
			for _, c := range contracts {
				fmt.Fprintf(out, "%-36s  %-12s  %-10s  %-10s  %-36s\n",
					c.ID, c.Type, c.Status, c.StartDate.Format(domain.DateLayout), c.ClientID)
			}
			return nil
		},
	}
}

func parseAmount(cur domain.Currency, raw string) (domain.Money, error) {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return 0, err
	}
	if d.IsNegative() {
		return 0, fmt.Errorf("%s is negative", raw)
	}
	return cur.ToMinor(d)
}
