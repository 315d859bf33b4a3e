// internal/app/features/wishlist/handler.go
package wishlist

import (
	"github.com/dalemusser/cineshelf/internal/app/features/catalog"
	membershipstore "github.com/dalemusser/cineshelf/internal/app/store/memberships"
	moviestore "github.com/dalemusser/cineshelf/internal/app/store/movies"
	wishliststore "github.com/dalemusser/cineshelf/internal/app/store/wishlist"
	"github.com/dalemusser/cineshelf/internal/app/system/rpc"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves wishlist actions.
type Handler struct {
	Catalog     *catalog.Handler
	Items       *wishliststore.Store
	Movies      *moviestore.Store
	Memberships *membershipstore.Store
	Log         *zap.Logger
}

// NewHandler constructs a wishlist Handler.
func NewHandler(db *mongo.Database, cat *catalog.Handler, logger *zap.Logger) *Handler {
	return &Handler{
		Catalog:     cat,
		Items:       wishliststore.New(db),
		Movies:      moviestore.New(db),
		Memberships: membershipstore.New(db),
		Log:         logger,
	}
}

// Register adds the wishlist actions to reg.
func (h *Handler) Register(reg *rpc.Registry) {
	reg.Handle("add_wishlist", h.add)
	reg.Handle("list_wishlist", h.list)
	reg.Handle("remove_wishlist", h.remove)
	reg.Handle("get_user_wishlist", h.userWishlist)
}
