// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"

	apifeature "github.com/dalemusser/cineshelf/internal/app/features/api"
	catalogfeature "github.com/dalemusser/cineshelf/internal/app/features/catalog"
	collectionfeature "github.com/dalemusser/cineshelf/internal/app/features/collection"
	groupsfeature "github.com/dalemusser/cineshelf/internal/app/features/groups"
	healthfeature "github.com/dalemusser/cineshelf/internal/app/features/health"
	lendingfeature "github.com/dalemusser/cineshelf/internal/app/features/lending"
	profilefeature "github.com/dalemusser/cineshelf/internal/app/features/profile"
	resolutionfeature "github.com/dalemusser/cineshelf/internal/app/features/resolution"
	systemusersfeature "github.com/dalemusser/cineshelf/internal/app/features/systemusers"
	wishlistfeature "github.com/dalemusser/cineshelf/internal/app/features/wishlist"
	auditstore "github.com/dalemusser/cineshelf/internal/app/store/audit"
	sessionstore "github.com/dalemusser/cineshelf/internal/app/store/sessions"
	userstore "github.com/dalemusser/cineshelf/internal/app/store/users"
	"github.com/dalemusser/cineshelf/internal/app/system/auditlog"
	"github.com/dalemusser/cineshelf/internal/app/system/auth"
	"github.com/dalemusser/cineshelf/internal/app/system/metrics"
	"github.com/dalemusser/cineshelf/internal/app/system/ratelimit"
	"github.com/dalemusser/cineshelf/internal/app/system/rpc"
	"github.com/dalemusser/cineshelf/internal/app/system/timeouts"
	"github.com/dalemusser/cineshelf/internal/app/system/tmdb"
	"github.com/dalemusser/waffle/config"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// the Startup hook have completed. CineShelf exposes three routes:
//   - /health: Mongo ping for load balancers
//   - /metrics: Prometheus exposition
//   - /api: the single action endpoint behind rate limiting and auth
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	// Secure cookies are enabled in production mode.
	secure := coreCfg.Env == "prod"
	sessionMgr, err := auth.NewSessionManager(appCfg.SessionKey, appCfg.SessionName, appCfg.SessionDomain, secure, logger)
	if err != nil {
		logger.Error("session manager init failed", zap.Error(err))
		return nil, err
	}

	db := deps.MongoDatabase
	m := metrics.New("cineshelf")

	src, err := metadataSource(appCfg, m, logger)
	if err != nil {
		logger.Error("tmdb client init failed", zap.Error(err))
		return nil, err
	}

	audit := auditlog.New(auditstore.New(db), logger, auditlog.Config{
		Groups:  appCfg.AuditLogGroups,
		Lending: appCfg.AuditLogLending,
		Catalog: appCfg.AuditLogCatalog,
	})

	reg := buildRegistry(db, src, audit, appCfg, logger)

	var legacy apifeature.LegacyResolver
	if appCfg.LegacyUserAuth {
		legacy = userstore.NewFetcher(db)
		logger.Warn("legacy `user` field authentication is enabled")
	}
	apiHandler := apifeature.NewHandler(reg, legacy, m, logger)

	authn := auth.NewAuthenticator(sessionMgr, sessionstore.New(db), userstore.NewFetcher(db), logger)
	apiMW := []func(http.Handler) http.Handler{}
	if appCfg.APIRPS > 0 {
		limiter := ratelimit.New(appCfg.APIRPS, appCfg.APIBurst)
		if deps.Runtime != nil {
			deps.Runtime.Limiter = limiter
		}
		apiMW = append(apiMW, limiter.Middleware)
	}
	apiMW = append(apiMW, authn.LoadPrincipal)

	r := chi.NewRouter()
	r.Use(m.Middleware)

	_, metadataOff := src.(tmdb.Disabled)
	healthHandler := healthfeature.NewHandler(deps.MongoClient, !metadataOff, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))

	r.Method(http.MethodGet, "/metrics", m.Handler())

	r.Mount("/api", apifeature.Routes(apiHandler, appCfg.CORSAllowedOrigins, apiMW...))

	logger.Info("api ready", zap.Int("actions", len(reg.Names())))
	return r, nil
}

// buildRegistry registers every feature's actions on one registry. The
// catalog handler is shared by the features that resolve entries.
func buildRegistry(db *mongo.Database, src catalogfeature.Source, audit *auditlog.Logger, appCfg AppConfig, logger *zap.Logger) *rpc.Registry {
	catalog := catalogfeature.NewHandler(db, src, audit, logger)
	groups := groupsfeature.NewHandler(db, audit, appCfg.InviteTTL, logger)

	return rpc.NewRegistry(
		catalog,
		collectionfeature.NewHandler(db, catalog, logger),
		wishlistfeature.NewHandler(db, catalog, logger),
		lendingfeature.NewHandler(db, audit, logger),
		resolutionfeature.NewHandler(db, catalog, audit, logger),
		groups,
		profilefeature.NewHandler(db, logger),
		systemusersfeature.NewHandler(db, groups, audit, logger),
	)
}

// metadataSource returns the TMDB client, or tmdb.Disabled when no
// credential is configured.
func metadataSource(appCfg AppConfig, m *metrics.Metrics, logger *zap.Logger) (catalogfeature.Source, error) {
	if appCfg.TMDBAPIKey == "" && appCfg.TMDBReadToken == "" {
		logger.Warn("no TMDB credential configured; metadata lookups will fail")
		return tmdb.Disabled{}, nil
	}
	return tmdb.New(tmdb.Config{
		APIKey:    appCfg.TMDBAPIKey,
		ReadToken: appCfg.TMDBReadToken,
		BaseURL:   appCfg.TMDBBaseURL,
		ImageBase: appCfg.TMDBImageBase,
		RPS:       appCfg.TMDBRPS,
		Timeout:   timeouts.Long(),
	}, m, logger)
}
