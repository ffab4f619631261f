package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"portalbot-backend/cmd/portal-cli/globals"
	"portalbot-backend/cmd/portal-cli/utils"
	"portalbot-backend/internal/store"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	RootCmd.AddCommand(showCmd)
	listCmd.Flags().IntVar(&listLimit, "limit", 20, "Maximum amount of snapshots to list.")
	RootCmd.AddCommand(listCmd)
}

var showCmd = &cobra.Command{
	Use:   "show <year> <month>",
	Short: "Show the latest snapshot of a month.",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		year, month, err := utils.ParseYearMonth(args)
		if err != nil {
			utils.Fatal(err)
		}
		snapshots, err := openStore()
		if err != nil {
			utils.Fatal(err)
		}
		defer snapshots.Close()

		snapshot, err := snapshots.Latest(cmd.Context(), year, month)
		if errors.Is(err, store.ErrNotFound) {
			utils.Fatal(fmt.Errorf("no snapshot of %d/%02d", year, month))
		}
		if err != nil {
			utils.Fatal(err)
		}

		if globals.JSON {
			out, err := json.MarshalIndent(snapshot, "", "  ")
			if err != nil {
				utils.Fatal(err)
			}
			fmt.Println(string(out))
			return
		}
		fmt.Printf("fetched at %s\n", snapshot.FetchedAt.Format(time.DateTime))
		utils.RenderMonth(snapshot.Shift)
	},
}

var listLimit int

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the saved snapshots, newest first.",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		snapshots, err := openStore()
		if err != nil {
			utils.Fatal(err)
		}
		defer snapshots.Close()

		infos, err := snapshots.List(cmd.Context(), listLimit)
		if err != nil {
			utils.Fatal(err)
		}

		t := utils.NewTable()
		t.AppendHeader(table.Row{"id", "month", "fetched at"})
		for _, info := range infos {
			t.AppendRow(table.Row{
				info.Id,
				fmt.Sprintf("%d/%02d", info.Year, info.Month),
				info.FetchedAt.Format(time.DateTime),
			})
		}
		t.Render()
	},
}
