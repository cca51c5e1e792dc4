// Package cli implements bookingctl, the operator command line of the
// booking core: schema migration, slot materialization, schedule previews
// and development tokens.
package cli

import (
	"database/sql"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/iliyamo/class-booking/internal/config"
	"github.com/iliyamo/class-booking/internal/database"
)

var rootCmd = &cobra.Command{
	Use:          "bookingctl",
	Short:        "Operate the class booking core",
	SilenceUsage: true,
}

// Execute runs the command selected by os.Args.
func Execute() error {
	return rootCmd.Execute()
}

// openDB connects to the MySQL database described by the environment.
func openDB() (*sql.DB, config.BookingConfig, error) {
	bcfg, err := config.LoadBookingConfig()
	if err != nil {
		return nil, bcfg, err
	}
	cfg := config.Load(config.BackendMySQL)
	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName, database.Pool{
		MaxOpen:     2,
		MaxIdle:     2,
		MaxLifetime: bcfg.DBConnMaxLifetime,
	})
	if err != nil {
		return nil, bcfg, fmt.Errorf("db: %w", err)
	}
	return db, bcfg, nil
}
