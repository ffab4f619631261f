package estama

import (
	"portalbot-backend/cmd/portal-cli/globals"

	"github.com/spf13/cobra"
)

var RootCmd = &cobra.Command{
	Use:   "estama",
	Short: "Operations on the guidance portal (estama).",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		ctx, err := globals.Init(cmd.Context())
		if err != nil {
			return err
		}
		cmd.SetContext(ctx)
		return nil
	},
}
