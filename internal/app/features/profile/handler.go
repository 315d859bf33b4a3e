// internal/app/features/profile/handler.go
package profile

import (
	userstore "github.com/dalemusser/cineshelf/internal/app/store/users"
	"github.com/dalemusser/cineshelf/internal/app/system/rpc"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler owns the caller's own profile and client settings.
type Handler struct {
	Users *userstore.Store
	Log   *zap.Logger
}

// NewHandler constructs a Handler bound to the given Mongo database and logger.
func NewHandler(db *mongo.Database, logger *zap.Logger) *Handler {
	return &Handler{
		Users: userstore.New(db),
		Log:   logger,
	}
}

// Register adds the profile actions to reg.
func (h *Handler) Register(reg *rpc.Registry) {
	reg.Handle("get_profile", h.getProfile)
	reg.Handle("update_profile", h.updateProfile)
	reg.Handle("get_user_settings", h.getSettings)
	reg.Handle("save_user_settings", h.saveSettings)
}
