package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/beesaferoot/lotassign/domain"
)

func ClientCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "client",
		Short: "Manage clients",
	}
	cmd.AddCommand(ClientCreateCmd())
	return cmd
}

func ClientCreateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Register a new client",
		RunE: func(cmd *cobra.Command, args []string) error {
			name, _ := cmd.Flags().GetString("name")
			typ, _ := cmd.Flags().GetString("type")

			switch domain.ClientType(typ) {
			case domain.ClientTenant, domain.ClientBuyer, domain.ClientProspect:
			default:
				return fmt.Errorf("unknown client type %q, want tenant, buyer or prospect", typ)
			}

			a, err := newApp()
			if err != nil {
				return err
			}
			client := &domain.Client{Name: name, Type: domain.ClientType(typ)}
			if err := a.store.CreateClient(cmd.Context(), client); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created client %s (%s)\n", client.ID, client.Type)
			return nil
		},
	}

	cmd.Flags().String("name", "", "Client name")
	cmd.Flags().String("type", string(domain.ClientProspect), "Client type: tenant, buyer or prospect")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}
