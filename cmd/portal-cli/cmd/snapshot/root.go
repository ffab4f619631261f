package snapshot

import (
	"portalbot-backend/internal/components/chrono"
	"portalbot-backend/internal/store"

	"github.com/spf13/cobra"
)

var database string

var RootCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Inspect the monthly shift snapshots saved by portald.",
}

func init() {
	RootCmd.PersistentFlags().StringVar(&database, "db", "portald.db", "Path to the snapshot database.")
}

func openStore() (*store.Store, error) {
	clock, err := chrono.NewStandardImpl()
	if err != nil {
		return nil, err
	}
	return store.Open(database, clock, store.DefaultKeepPerMonth)
}
