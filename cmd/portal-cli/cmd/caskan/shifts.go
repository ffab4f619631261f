package caskan

import (
	"portalbot-backend/cmd/portal-cli/globals"
	"portalbot-backend/cmd/portal-cli/utils"

	"github.com/spf13/cobra"
)

func init() {
	RootCmd.AddCommand(shiftsCmd)
}

var shiftsCmd = &cobra.Command{
	Use:   "shifts <year> <month>",
	Short: "Aggregate the shifts of a whole month.",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		year, month, err := utils.ParseYearMonth(args)
		if err != nil {
			utils.Fatal(err)
		}
		svc := globals.Get(cmd.Context()).Service
		utils.Print(svc.CaskanMonthlyShift(cmd.Context(), year, month), utils.RenderMonth)
	},
}
