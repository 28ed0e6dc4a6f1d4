package migrate

import (
	"context"
	"fmt"

	"github.com/absolutastore/storefront-backend/pkg/config"
	"github.com/absolutastore/storefront-backend/pkg/db"
	"github.com/absolutastore/storefront-backend/pkg/logger"
)

// MaybeRun applies pending migrations at boot when STOREFRONT_DB_AUTO_MIGRATE is set.
func MaybeRun(ctx context.Context, cfg config.DBConfig, logg *logger.Logger, client *db.Client) error {
	if !cfg.AutoMigrate || client == nil {
		return nil
	}

	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}

	ctx = logg.WithFields(ctx, map[string]any{"db_driver": client.Dialect()})
	logg.Info(ctx, "running goose migrations (auto-run)")

	if err := Run(ctx, sqlDB, client.Dialect(), "up"); err != nil {
		return fmt.Errorf("running goose up: %w", err)
	}

	logg.Info(ctx, "goose migrations completed")
	return nil
}
