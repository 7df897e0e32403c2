package main

import (
	"github.com/spf13/cobra"

	"github.com/carter2099/best-bets/internal/db"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := loadRuntime()
		if err != nil {
			return err
		}
		defer rt.log.Sync()
		conn, err := rt.openDB()
		if err != nil {
			return err
		}
		defer db.Close(conn)
		if err := db.AutoMigrate(conn); err != nil {
			return err
		}
		rt.log.Info("schema migrated")
		return nil
	},
}
