// internal/app/features/resolution/handler.go
package resolution

import (
	"github.com/dalemusser/cineshelf/internal/app/features/catalog"
	copystore "github.com/dalemusser/cineshelf/internal/app/store/copies"
	moviestore "github.com/dalemusser/cineshelf/internal/app/store/movies"
	"github.com/dalemusser/cineshelf/internal/app/system/auditlog"
	"github.com/dalemusser/cineshelf/internal/app/system/rpc"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler turns placeholder entries into canonical ones, either in place or
// by merging the caller's copies into an existing canonical entry.
type Handler struct {
	DB      *mongo.Database
	Catalog *catalog.Handler
	Movies  *moviestore.Store
	Copies  *copystore.Store
	Audit   *auditlog.Logger
	Log     *zap.Logger
}

// NewHandler constructs a resolution Handler.
func NewHandler(db *mongo.Database, cat *catalog.Handler, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		DB:      db,
		Catalog: cat,
		Movies:  moviestore.New(db),
		Copies:  copystore.New(db),
		Audit:   audit,
		Log:     logger,
	}
}

// Register adds the resolution actions to reg.
func (h *Handler) Register(reg *rpc.Registry) {
	reg.Handle("resolve_movie", h.resolveMovie)
	reg.Handle("add_unresolved", h.addUnresolved)
	reg.Handle("list_unresolved", h.listUnresolved)
}
