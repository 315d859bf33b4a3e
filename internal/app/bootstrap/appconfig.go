// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// These values come from environment variables, configuration files, or
// command-line flags (loaded in LoadConfig). WAFFLE's CoreConfig covers the
// framework-level settings (ports, TLS, log level); everything specific to
// CineShelf lives here and is passed to the lifecycle hooks.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase    string // Database name within MongoDB
	MongoMaxPoolSize uint64
	MongoMinPoolSize uint64

	// Session cookie carrying the auth token
	SessionKey    string // Secret key for signing session cookies (must be strong in production)
	SessionName   string // Cookie name for sessions (default: cineshelf-session)
	SessionDomain string // Cookie domain (blank means current host)

	// LegacyUserAuth lets the deprecated `user` body field stand in for an
	// auth token. Off by default.
	LegacyUserAuth bool

	// TMDB metadata source
	TMDBAPIKey    string
	TMDBReadToken string
	TMDBBaseURL   string
	TMDBImageBase string
	TMDBRPS       float64

	InviteTTL time.Duration

	// /api protection
	APIRPS             float64
	APIBurst           int
	CORSAllowedOrigins []string

	// Audit logging: "all", "db", "log" or "off" per category
	AuditLogGroups  string
	AuditLogLending string
	AuditLogCatalog string

	SessionCleanupInterval time.Duration

	// Per-call deadlines (see system/timeouts)
	TimeoutPing   time.Duration
	TimeoutShort  time.Duration
	TimeoutMedium time.Duration
	TimeoutLong   time.Duration

	// SuperAdminUsername is promoted to site admin on startup when set.
	SuperAdminUsername string
}
