package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vladimiradmaev/glucose-guide/internal/config"
	"github.com/vladimiradmaev/glucose-guide/internal/database"
	"github.com/vladimiradmaev/glucose-guide/internal/logger"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := logger.InitWithConfig(cfg.Logger.Logger()); err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}

			db, err := database.NewPostgresDB(cfg.DB)
			if err != nil {
				return err
			}
			defer database.Close(db)

			if err := database.Migrate(db); err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), `{"migrated": true}`)
			return err
		},
	}
}
