package commands

import "github.com/spf13/cobra"

// RootCmd assembles the lotctl command tree.
func RootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "lotctl",
		Short:         "Lot assignment engine for property managers",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		MigrateCmd(),
		LotCmd(),
		ClientCmd(),
		AssignCmd(),
		CompleteSaleCmd(),
		AmendCmd(),
		ContractShowCmd(),
		ExpireCmd(),
		ServeCmd(),
	)
	return root
}
