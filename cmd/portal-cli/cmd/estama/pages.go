package estama

import (
	"fmt"
	"portalbot-backend/cmd/portal-cli/globals"
	"portalbot-backend/cmd/portal-cli/utils"
	"portalbot-backend/internal/scrapers/estama"
	"portalbot-backend/internal/scrapers/extract"
	"portalbot-backend/internal/service"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	RootCmd.AddCommand(dashboardCmd)
	RootCmd.AddCommand(guidanceCmd)
	RootCmd.AddCommand(scheduleCmd)
	RootCmd.AddCommand(reservationsCmd)
	RootCmd.AddCommand(newsCmd)
	RootCmd.AddCommand(appealCmd)
}

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Show the shop, plan and point balance.",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		svc := globals.Get(cmd.Context()).Service
		utils.Print(svc.EstamaDashboard(cmd.Context()), func(d estama.Dashboard) {
			t := utils.NewTable()
			t.AppendRows([]table.Row{
				{"shop", d.ShopName},
				{"number", d.ShopNumber},
				{"plan", d.Plan},
				{"contract", d.ContractPeriod},
				{"points", d.Points},
			})
			t.Render()
			if len(d.Notifications) > 0 {
				utils.ListTable("notification", d.Notifications)
			}
		})
	},
}

var guidanceCmd = &cobra.Command{
	Use:   "guidance",
	Short: "Show the current guidance status and the therapists on duty.",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		svc := globals.Get(cmd.Context()).Service
		utils.Print(svc.EstamaGuidance(cmd.Context()), func(g estama.GuidanceStatus) {
			fmt.Println(g.Status)
			if len(g.Therapists) > 0 {
				utils.ListTable("therapist", g.Therapists)
			}
		})
	},
}

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Show the schedule page.",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		svc := globals.Get(cmd.Context()).Service
		utils.Print(svc.EstamaSchedule(cmd.Context()), func(s estama.ScheduleText) {
			utils.PrintText("schedule", s.ScheduleText)
		})
	},
}

var reservationsCmd = &cobra.Command{
	Use:   "reservations",
	Short: "List the reservations.",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		svc := globals.Get(cmd.Context()).Service
		utils.Print(svc.EstamaReservations(cmd.Context()), func(r extract.Reservations) {
			utils.ListTable("reservation", r.Reservations)
		})
	},
}

var newsCmd = &cobra.Command{
	Use:   "news",
	Short: "List the latest news.",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		svc := globals.Get(cmd.Context()).Service
		utils.Print(svc.EstamaNews(cmd.Context()), func(news []estama.NewsItem) {
			t := utils.NewTable()
			t.AppendHeader(table.Row{"date", "title"})
			for _, n := range news {
				t.AppendRow(table.Row{n.Date, n.Title})
			}
			t.Render()
		})
	},
}

var appealCmd = &cobra.Command{
	Use:   "appeal",
	Short: "Press the appeal button of the shop.",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		svc := globals.Get(cmd.Context()).Service
		utils.Print(svc.EstamaAppeal(cmd.Context()), func(r service.AppealResult) {
			if r.Clicked {
				fmt.Println("appeal sent")
				return
			}
			fmt.Println("appeal button not available")
		})
	},
}
