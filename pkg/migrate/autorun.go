package migrate

import (
	"context"
	"fmt"

	"github.com/angelmondragon/tripcrew-backend/pkg/config"
	"github.com/angelmondragon/tripcrew-backend/pkg/db"
	"github.com/angelmondragon/tripcrew-backend/pkg/logger"
)

// AutoRunEnabled reports whether a process should apply the embedded schema
// on boot. Only dev deployments with the auto-migrate flag qualify.
func AutoRunEnabled(cfg *config.Config) bool {
	return cfg != nil && cfg.App.IsDev() && cfg.FeatureFlags.AutoMigrate
}

// AutoRun brings the schema up to date from the embedded migrations when
// AutoRunEnabled allows it and logs the resulting version.
func AutoRun(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !AutoRunEnabled(cfg) {
		return nil
	}

	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("unwrap sql handle: %w", err)
	}
	dialect, err := DialectFor(client.Driver())
	if err != nil {
		return err
	}

	ctx = logg.WithField(ctx, "dialect", dialect)
	if err := UpEmbedded(ctx, sqlDB, dialect); err != nil {
		return err
	}

	version, err := CurrentVersion(ctx, sqlDB, dialect)
	if err != nil {
		return err
	}
	logg.Info(logg.WithField(ctx, "schema_version", version), "schema.auto_migrated")
	return nil
}
