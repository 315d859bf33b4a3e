// internal/app/features/systemusers/handler.go
package systemusers

import (
	"github.com/dalemusser/cineshelf/internal/app/features/groups"
	copystore "github.com/dalemusser/cineshelf/internal/app/store/copies"
	groupstore "github.com/dalemusser/cineshelf/internal/app/store/groups"
	membershipstore "github.com/dalemusser/cineshelf/internal/app/store/memberships"
	userstore "github.com/dalemusser/cineshelf/internal/app/store/users"
	wishliststore "github.com/dalemusser/cineshelf/internal/app/store/wishlist"
	"github.com/dalemusser/cineshelf/internal/app/system/auditlog"
	"github.com/dalemusser/cineshelf/internal/app/system/rpc"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves the site-admin views over every user and group.
type Handler struct {
	Users       *userstore.Store
	Copies      *copystore.Store
	Wishlist    *wishliststore.Store
	Groups      *groupstore.Store
	Memberships *membershipstore.Store
	Summary     *groups.Handler
	Audit       *auditlog.Logger
	Log         *zap.Logger
}

// NewHandler constructs a System Users feature handler. gh supplies the
// group summaries shared with list_groups. audit may be nil.
func NewHandler(db *mongo.Database, gh *groups.Handler, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		Users:       userstore.New(db),
		Copies:      copystore.New(db),
		Wishlist:    wishliststore.New(db),
		Groups:      groupstore.New(db),
		Memberships: membershipstore.New(db),
		Summary:     gh,
		Audit:       audit,
		Log:         logger,
	}
}

// Register adds the admin actions to reg.
func (h *Handler) Register(reg *rpc.Registry) {
	reg.Handle("admin_list_users", h.listUsers)
	reg.Handle("admin_list_all_groups", h.listGroups)
	reg.Handle("admin_get_user_data", h.getUserData)
	reg.Handle("admin_clear_wishlist", h.clearWishlist)
	reg.Handle("admin_clear_collection", h.clearCollection)
}
