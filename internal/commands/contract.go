package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/beesaferoot/lotassign/assign"
	"github.com/beesaferoot/lotassign/domain"
)

func AssignCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "assign [lot-id]",
		Short: "Assign a lot to a client under a lease, sale or reservation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			clientID, _ := cmd.Flags().GetString("client")
			typ, _ := cmd.Flags().GetString("type")
			asJSON, _ := cmd.Flags().GetBool("json")

			terms, err := readTerms(cmd)
			if err != nil {
				return err
			}
			a, err := newApp()
			if err != nil {
				return err
			}

			contract, err := a.assigner.Assign(cmd.Context(), assign.Request{
				LotID:        args[0],
				ClientID:     clientID,
				ContractType: domain.ContractType(typ),
				Terms:        terms,
				Actor:        actorOf(cmd),
			})
			if err != nil {
				return explain(err)
			}
			return showContract(cmd, contract, asJSON)
		},
	}

	cmd.Flags().String("client", "", "Client identifier")
	cmd.Flags().String("type", "", "Contract type: lease, sale or reservation")
	cmd.Flags().Bool("json", false, "Print the contract as JSON")
	addTermsFlags(cmd)
	addActorFlag(cmd)
	_ = cmd.MarkFlagRequired("client")
	_ = cmd.MarkFlagRequired("type")

	return cmd
}

func CompleteSaleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "complete-sale [lot-id]",
		Short: "Record the final payment of an installment sale",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			contract, err := a.assigner.CompleteSale(cmd.Context(), args[0], actorOf(cmd))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Lot %s sold, contract %s completed\n", contract.LotID, contract.ID)
			return nil
		},
	}

	addActorFlag(cmd)

	return cmd
}

func AmendCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "amend [contract-id]",
		Short: "Replace the terms of an active contract and regenerate its schedule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			asJSON, _ := cmd.Flags().GetBool("json")

			terms, err := readTerms(cmd)
			if err != nil {
				return err
			}
			a, err := newApp()
			if err != nil {
				return err
			}

			contract, err := a.assigner.Amend(cmd.Context(), assign.AmendRequest{
				ContractID: args[0],
				Terms:      terms,
				Actor:      actorOf(cmd),
			})
			if err != nil {
				return explain(err)
			}
			return showContract(cmd, contract, asJSON)
		},
	}

	cmd.Flags().Bool("json", false, "Print the contract as JSON")
	addTermsFlags(cmd)
	addActorFlag(cmd)

	return cmd
}

func ContractShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "contract [contract-id]",
		Short: "Show a contract and its payment schedule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			asJSON, _ := cmd.Flags().GetBool("json")

			a, err := newApp()
			if err != nil {
				return err
			}
			actor := actorOf(cmd)
			if !a.perms.HasCapability(actor, domain.CanViewFinances) {
				return fmt.Errorf("%w: %q lacks %s", domain.ErrPermissionDenied, actor, domain.CanViewFinances)
			}

			contract, err := a.store.GetContract(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return showContract(cmd, contract, asJSON)
		},
	}

	cmd.Flags().Bool("json", false, "Print the contract as JSON")
	addActorFlag(cmd)

	return cmd
}

type contractOutput struct {
	*domain.Contract
	Terms domain.RawTerms `json:"terms"`
}

func showContract(cmd *cobra.Command, c *domain.Contract, asJSON bool) error {
	out := cmd.OutOrStdout()
	if asJSON {
		return printJSON(out, contractOutput{Contract: c, Terms: c.Terms.Raw(c.Currency)})
	}

	fmt.Fprintf(out, "Contract %s  type=%s  status=%s  lot=%s  client=%s\n",
		c.ID, c.Type, c.Status, c.LotID, c.ClientID)
	for _, note := range c.Advisories {
		fmt.Fprintf(out, "Note: %s\n", note)
	}
	printSchedule(out, c)
	return nil
}
