// internal/app/bootstrap/dbdeps.go
package bootstrap

import (
	"github.com/dalemusser/cineshelf/internal/app/system/ratelimit"
	"github.com/dalemusser/cineshelf/internal/app/system/workers"
	"go.mongodb.org/mongo-driver/mongo"
)

// DBDeps holds database/back-end dependencies for the app.
type DBDeps struct {
	MongoClient   *mongo.Client
	MongoDatabase *mongo.Database

	// Runtime collects the long-lived pieces started after connect so
	// Shutdown can stop them. Hooks receive DBDeps by value; the pointer is
	// shared.
	Runtime *Runtime
}

// Runtime is the set of background components owned by the app.
type Runtime struct {
	SessionCleanup *workers.SessionCleanup
	Limiter        *ratelimit.Limiter
}
