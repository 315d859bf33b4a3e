// internal/app/features/collection/handler.go
package collection

import (
	"github.com/dalemusser/cineshelf/internal/app/features/catalog"
	borrowstore "github.com/dalemusser/cineshelf/internal/app/store/borrows"
	copystore "github.com/dalemusser/cineshelf/internal/app/store/copies"
	moviestore "github.com/dalemusser/cineshelf/internal/app/store/movies"
	wishliststore "github.com/dalemusser/cineshelf/internal/app/store/wishlist"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves the copy ledger: a user's physical copies.
type Handler struct {
	Catalog  *catalog.Handler
	Copies   *copystore.Store
	Movies   *moviestore.Store
	Wishlist *wishliststore.Store
	Borrows  *borrowstore.Store
	Log      *zap.Logger
}

// NewHandler constructs a collection Handler. Catalog entries are created
// through cat.
func NewHandler(db *mongo.Database, cat *catalog.Handler, logger *zap.Logger) *Handler {
	return &Handler{
		Catalog:  cat,
		Copies:   copystore.New(db),
		Movies:   moviestore.New(db),
		Wishlist: wishliststore.New(db),
		Borrows:  borrowstore.New(db),
		Log:      logger,
	}
}
