package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/iliyamo/class-booking/internal/database"
	"github.com/iliyamo/class-booking/internal/repository"
	"github.com/iliyamo/class-booking/internal/slots"
)

func init() {
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(materializeCmd)

	materializeCmd.Flags().Int("days", 0, "Days ahead to persist (default MATERIALIZE_DAYS_AHEAD)")
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or upgrade the database schema",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		db, _, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()
		if err := database.Migrate(cmd.Context(), db); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "applied %d migrations\n", len(database.Migrations()))
		return nil
	},
}

var materializeCmd = &cobra.Command{
	Use:   "materialize",
	Short: "Persist upcoming sessions of every scheduled class",
	Long: `Expand the recurring schedule of every class and insert the sessions
that do not exist yet, from today through the given number of days.
Existing sessions and their reservation counts are left untouched.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		db, bcfg, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()
		days, _ := cmd.Flags().GetInt("days")
		if days <= 0 {
			days = bcfg.MaterializeDays
		}
		svc := slots.NewService(repository.NewStore(db), bcfg.Location, bcfg.MaxRangeDays)
		n := svc.MaterializeAll(cmd.Context(), time.Now(), days)
		fmt.Fprintf(cmd.OutOrStdout(), "created %d sessions\n", n)
		return nil
	},
}
