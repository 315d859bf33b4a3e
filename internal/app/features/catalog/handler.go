// internal/app/features/catalog/handler.go
package catalog

import (
	"context"

	moviestore "github.com/dalemusser/cineshelf/internal/app/store/movies"
	"github.com/dalemusser/cineshelf/internal/app/system/auditlog"
	"github.com/dalemusser/cineshelf/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Source is the external metadata source. system/tmdb.Client is the
// production implementation.
type Source interface {
	Fetch(ctx context.Context, externalID, mediaType string) (models.Metadata, error)
	Search(ctx context.Context, query string, multi bool) ([]models.SearchResult, error)
	Posters(ctx context.Context, externalID, mediaType string) ([]models.Poster, error)
	// ImageURL expands a poster path returned by Posters.
	ImageURL(path string) string
}

// Handler owns the shared catalog: canonical entries keyed by external id.
type Handler struct {
	Movies *moviestore.Store
	Source Source
	Audit  *auditlog.Logger
	Log    *zap.Logger
}

// NewHandler constructs a catalog Handler.
// audit may be nil.
func NewHandler(db *mongo.Database, src Source, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		Movies: moviestore.New(db),
		Source: src,
		Audit:  audit,
		Log:    logger,
	}
}
