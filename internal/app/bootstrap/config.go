// internal/app/bootstrap/config.go
package bootstrap

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dalemusser/cineshelf/internal/app/features/groups"
	"github.com/dalemusser/cineshelf/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

// appConfigKeys defines the configuration keys for CineShelf.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, tmdb_api_key, etc.
//   - Environment variables: CINESHELF_MONGO_URI, CINESHELF_TMDB_API_KEY, etc.
//   - Command-line flags: --mongo_uri, --tmdb_api_key, etc.
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "cineshelf", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size (default: 100)"},
	{Name: "mongo_min_pool_size", Default: 10, Desc: "MongoDB min connection pool size (default: 10)"},
	{Name: "session_key", Default: "dev-only-change-me-please-0123456789ABCDEF", Desc: "Session signing key (must be strong in production)"},
	{Name: "session_name", Default: "cineshelf-session", Desc: "Session cookie name"},
	{Name: "session_domain", Default: "", Desc: "Session cookie domain (blank means current host)"},
	{Name: "legacy_user_auth", Default: false, Desc: "Accept the deprecated `user` body field when no auth token is sent"},

	// TMDB
	{Name: "tmdb_api_key", Default: "", Desc: "TMDB v3 API key"},
	{Name: "tmdb_read_token", Default: "", Desc: "TMDB v4 read access token (preferred over the API key)"},
	{Name: "tmdb_base_url", Default: "https://api.themoviedb.org/3", Desc: "TMDB API base URL"},
	{Name: "tmdb_image_base", Default: "https://image.tmdb.org/t/p/w500", Desc: "Prefix for poster paths"},
	{Name: "tmdb_rps", Default: "20", Desc: "Outbound TMDB requests per second (0 disables throttling)"},

	{Name: "invite_ttl", Default: "720h", Desc: "How long invite links stay valid"},

	// /api protection
	{Name: "api_rps", Default: "10", Desc: "Per-client /api requests per second (0 disables rate limiting)"},
	{Name: "api_burst", Default: 20, Desc: "Per-client /api burst"},
	{Name: "cors_allowed_origins", Default: "", Desc: "Comma-separated origins allowed to call /api from a browser"},

	// Audit logging settings
	{Name: "audit_log_groups", Default: "all", Desc: "Group event logging: 'all' (db+log), 'db', 'log', or 'off'"},
	{Name: "audit_log_lending", Default: "all", Desc: "Lending event logging: 'all' (db+log), 'db', 'log', or 'off'"},
	{Name: "audit_log_catalog", Default: "all", Desc: "Catalog event logging: 'all' (db+log), 'db', 'log', or 'off'"},

	{Name: "session_cleanup_interval", Default: "1h", Desc: "How often expired auth sessions are purged"},

	// Deadlines
	{Name: "timeout_ping", Default: "2s", Desc: "Health check ping timeout"},
	{Name: "timeout_short", Default: "5s", Desc: "Single-document operation timeout"},
	{Name: "timeout_medium", Default: "10s", Desc: "List operation timeout"},
	{Name: "timeout_long", Default: "30s", Desc: "Transaction and metadata fetch timeout"},

	// SuperAdmin bootstrap
	{Name: "superadmin_username", Default: "", Desc: "Username promoted to site admin on startup"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// WAFFLE's config.LoadWithAppConfig merges .env files, config files,
// CINESHELF_* environment variables and flags with precedence
// flags > env > files > defaults.
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "CINESHELF", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	tmdbRPS, err := parseRate("tmdb_rps", appValues.String("tmdb_rps"))
	if err != nil {
		return nil, AppConfig{}, err
	}
	apiRPS, err := parseRate("api_rps", appValues.String("api_rps"))
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),
		SessionKey:       appValues.String("session_key"),
		SessionName:      appValues.String("session_name"),
		SessionDomain:    appValues.String("session_domain"),
		LegacyUserAuth:   appValues.Bool("legacy_user_auth"),

		// TMDB
		TMDBAPIKey:    appValues.String("tmdb_api_key"),
		TMDBReadToken: appValues.String("tmdb_read_token"),
		TMDBBaseURL:   appValues.String("tmdb_base_url"),
		TMDBImageBase: appValues.String("tmdb_image_base"),
		TMDBRPS:       tmdbRPS,

		InviteTTL: appValues.Duration("invite_ttl", groups.DefaultInviteTTL),

		APIRPS:             apiRPS,
		APIBurst:           appValues.Int("api_burst"),
		CORSAllowedOrigins: splitList(appValues.String("cors_allowed_origins")),

		// Audit logging
		AuditLogGroups:  appValues.String("audit_log_groups"),
		AuditLogLending: appValues.String("audit_log_lending"),
		AuditLogCatalog: appValues.String("audit_log_catalog"),

		SessionCleanupInterval: appValues.Duration("session_cleanup_interval", time.Hour),

		TimeoutPing:   appValues.Duration("timeout_ping", timeouts.DefaultPing),
		TimeoutShort:  appValues.Duration("timeout_short", timeouts.DefaultShort),
		TimeoutMedium: appValues.Duration("timeout_medium", timeouts.DefaultMedium),
		TimeoutLong:   appValues.Duration("timeout_long", timeouts.DefaultLong),

		SuperAdminUsername: strings.TrimSpace(appValues.String("superadmin_username")),
	}

	return coreCfg, appCfg, nil
}

// ValidateConfig performs app-specific config validation.
//
// The Mongo URI is checked before any connection attempt. Production
// deployments must carry a TMDB credential; dev and test start without one
// and every metadata call fails upstream.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}

	if coreCfg.Env == "prod" && appCfg.TMDBAPIKey == "" && appCfg.TMDBReadToken == "" {
		return fmt.Errorf("tmdb_api_key or tmdb_read_token is required in prod")
	}

	for name, v := range map[string]string{
		"audit_log_groups":  appCfg.AuditLogGroups,
		"audit_log_lending": appCfg.AuditLogLending,
		"audit_log_catalog": appCfg.AuditLogCatalog,
	} {
		switch v {
		case "all", "db", "log", "off":
		default:
			return fmt.Errorf("%s must be one of all, db, log, off (got %q)", name, v)
		}
	}

	if appCfg.InviteTTL <= 0 {
		return fmt.Errorf("invite_ttl must be positive")
	}
	if appCfg.SessionCleanupInterval <= 0 {
		return fmt.Errorf("session_cleanup_interval must be positive")
	}
	return nil
}

func parseRate(name, raw string) (float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("%s must be a non-negative number (got %q)", name, raw)
	}
	return v, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if s := strings.TrimSpace(part); s != "" {
			out = append(out, s)
		}
	}
	return out
}
