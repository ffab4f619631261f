package caskan

import (
	"portalbot-backend/cmd/portal-cli/globals"
	"portalbot-backend/cmd/portal-cli/utils"
	"portalbot-backend/internal/scrapers/caskan"
	"portalbot-backend/internal/scrapers/extract"
	"sort"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	RootCmd.AddCommand(homeCmd)
	RootCmd.AddCommand(scheduleCmd)
	RootCmd.AddCommand(reservationsCmd)
	RootCmd.AddCommand(roomsCmd)
	RootCmd.AddCommand(castsCmd)
}

var salesOrder = []string{"today", "yesterday", "this_month", "last_month"}

var homeCmd = &cobra.Command{
	Use:   "home",
	Short: "Show sales, attendance and guidance from the top page.",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		svc := globals.Get(cmd.Context()).Service
		utils.Print(svc.CaskanHome(cmd.Context()), func(home caskan.HomeInfo) {
			t := utils.NewTable()
			t.AppendHeader(table.Row{"period", "sales"})
			for _, period := range salesOrder {
				value, ok := home.Sales[period]
				if !ok {
					continue
				}
				t.AppendRow(table.Row{period, value})
			}
			t.Render()
			utils.PrintText("attendance", home.AttendanceText)
			utils.PrintText("guidance", home.GuidanceText)
		})
	},
}

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Show the booking schedule.",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		svc := globals.Get(cmd.Context()).Service
		utils.Print(svc.CaskanSchedule(cmd.Context()), func(s caskan.ScheduleText) {
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
		utils.Print(svc.CaskanReservations(cmd.Context()), func(r extract.Reservations) {
			utils.ListTable("reservation", r.Reservations)
		})
	},
}

var roomsCmd = &cobra.Command{
	Use:   "rooms",
	Short: "List the rooms of the shop.",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		svc := globals.Get(cmd.Context()).Service
		utils.Print(svc.CaskanRooms(cmd.Context()), func(rooms map[string]string) {
			ids := make([]string, 0, len(rooms))
			for id := range rooms {
				ids = append(ids, id)
			}
			sort.Strings(ids)

			t := utils.NewTable()
			t.AppendHeader(table.Row{"id", "name"})
			for _, id := range ids {
				t.AppendRow(table.Row{id, rooms[id]})
			}
			t.Render()
		})
	},
}

var castsCmd = &cobra.Command{
	Use:   "casts",
	Short: "List the casts and whether they are published.",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		svc := globals.Get(cmd.Context()).Service
		utils.Print(svc.CaskanCasts(cmd.Context()), func(casts []caskan.CastRecord) {
			t := utils.NewTable()
			t.AppendHeader(table.Row{"name", "status"})
			for _, c := range casts {
				t.AppendRow(table.Row{c.Name, c.Status})
			}
			t.Render()
		})
	},
}
