// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"
	"fmt"

	sessionstore "github.com/dalemusser/cineshelf/internal/app/store/sessions"
	userstore "github.com/dalemusser/cineshelf/internal/app/store/users"
	"github.com/dalemusser/cineshelf/internal/app/system/timeouts"
	"github.com/dalemusser/cineshelf/internal/app/system/workers"
	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// Startup runs one-time application initialization after DB connections and
// schema setup are complete, but before the HTTP handler is built: it
// applies the configured deadlines, promotes the configured superadmin and
// starts the session cleanup worker.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	timeouts.Configure(timeouts.Config{
		Ping:   appCfg.TimeoutPing,
		Short:  appCfg.TimeoutShort,
		Medium: appCfg.TimeoutMedium,
		Long:   appCfg.TimeoutLong,
	})

	if appCfg.SuperAdminUsername != "" {
		if err := ensureSuperAdmin(ctx, deps, appCfg.SuperAdminUsername, logger); err != nil {
			return err
		}
	}

	if deps.Runtime != nil {
		w := workers.NewSessionCleanup(sessionstore.New(deps.MongoDatabase), logger, appCfg.SessionCleanupInterval)
		w.Start()
		deps.Runtime.SessionCleanup = w
	}
	return nil
}

// ensureSuperAdmin creates the user if needed and sets the admin flag.
func ensureSuperAdmin(ctx context.Context, deps DBDeps, username string, logger *zap.Logger) error {
	users := userstore.New(deps.MongoDatabase)
	if _, err := users.GetOrCreateByUsername(ctx, username); err != nil {
		logger.Error("superadmin lookup failed", zap.String("username", username), zap.Error(err))
		return fmt.Errorf("ensure superadmin %q: %w", username, err)
	}
	if err := users.SetAdmin(ctx, username, true); err != nil {
		logger.Error("superadmin promotion failed", zap.String("username", username), zap.Error(err))
		return fmt.Errorf("promote superadmin %q: %w", username, err)
	}
	logger.Info("superadmin ensured", zap.String("username", username))
	return nil
}
