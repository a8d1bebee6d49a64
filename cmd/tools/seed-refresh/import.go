// cmd/tools/seed-refresh/import.go
package main

import (
	"fmt"

	"astroscope/internal/common/database"
	"astroscope/internal/lessonstore"
	"astroscope/pkg/seedfile"

	"github.com/spf13/cobra"
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Upsert the seed file into the Postgres lessons table",
	RunE:  runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.Database.Postgres.Host == "" {
		return fmt.Errorf("database.postgres.host is required for import")
	}

	sf, err := seedfile.Load(seedPath)
	if err != nil {
		return err
	}

	pg, err := database.NewPostgres(cfg.Database.Postgres)
	if err != nil {
		return err
	}
	defer pg.Close()

	ctx := cmd.Context()
	if err := pg.Ping(ctx); err != nil {
		return fmt.Errorf("postgres unreachable: %w", err)
	}
	if err := pg.EnsureLessonsSchema(ctx); err != nil {
		return err
	}
	if err := lessonstore.SaveToPostgres(ctx, pg.DB, sf.Lessons); err != nil {
		return err
	}

	fmt.Printf("Imported %d lessons into postgres\n", len(sf.Lessons))
	return nil
}
