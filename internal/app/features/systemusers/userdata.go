// internal/app/features/systemusers/userdata.go
package systemusers

import (
	"context"
	"errors"
	"sort"
	"strings"

	userstore "github.com/dalemusser/cineshelf/internal/app/store/users"
	"github.com/dalemusser/cineshelf/internal/app/system/apperr"
	"github.com/dalemusser/cineshelf/internal/app/system/auth"
	"github.com/dalemusser/cineshelf/internal/app/system/rpc"
	"github.com/dalemusser/cineshelf/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type userInput struct {
	UserID string `json:"user_id"`
}

func bindUser(p *auth.Principal, req rpc.Request) (primitive.ObjectID, error) {
	if err := requireSiteAdmin(p); err != nil {
		return primitive.NilObjectID, err
	}
	var in userInput
	if err := req.Bind(&in); err != nil {
		return primitive.NilObjectID, err
	}
	return rpc.ObjectID(in.UserID, "User ID")
}

// GroupRef names one group a user belongs to.
type GroupRef struct {
	ID   primitive.ObjectID `json:"id"`
	Name string             `json:"name"`
}

// UserData is the admin_get_user_data response.
type UserData struct {
	User            UserRow    `json:"user"`
	CollectionCount int64      `json:"collection_count"`
	WishlistCount   int64      `json:"wishlist_count"`
	Groups          []GroupRef `json:"groups"`
}

func (h *Handler) getUserData(ctx context.Context, p *auth.Principal, req rpc.Request) (any, error) {
	userID, err := bindUser(p, req)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, timeouts.Medium())
	defer cancel()

	u, err := h.Users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, userstore.ErrNotFound) {
			return nil, apperr.NotFound("User not found")
		}
		return nil, err
	}
	copies, err := h.Copies.CountByOwner(ctx, userID)
	if err != nil {
		return nil, err
	}
	wishes, err := h.Wishlist.CountByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	refs, err := h.groupsOf(ctx, userID)
	if err != nil {
		return nil, err
	}

	return UserData{
		User: UserRow{
			ID:              u.ID,
			Username:        u.Username,
			Email:           u.EmailAddress(),
			DisplayName:     u.Name(),
			IsAdmin:         u.IsAdmin,
			CreatedAt:       u.CreatedAt,
			CollectionCount: int(copies),
			WishlistCount:   int(wishes),
		},
		CollectionCount: copies,
		WishlistCount:   wishes,
		Groups:          refs,
	}, nil
}

// groupsOf lists the user's groups by name.
func (h *Handler) groupsOf(ctx context.Context, userID primitive.ObjectID) ([]GroupRef, error) {
	ms, err := h.Memberships.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	ids := make([]primitive.ObjectID, 0, len(ms))
	for _, m := range ms {
		ids = append(ids, m.GroupID)
	}
	byID, err := h.Groups.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	refs := make([]GroupRef, 0, len(byID))
	for _, id := range ids {
		if g, ok := byID[id]; ok {
			refs = append(refs, GroupRef{ID: g.ID, Name: g.Name})
		}
	}
	sort.SliceStable(refs, func(i, j int) bool {
		return strings.ToLower(refs[i].Name) < strings.ToLower(refs[j].Name)
	})
	return refs, nil
}

type clearResult struct {
	Message      string `json:"message"`
	ItemsDeleted int64  `json:"items_deleted"`
}

func (h *Handler) clearWishlist(ctx context.Context, p *auth.Principal, req rpc.Request) (any, error) {
	userID, err := bindUser(p, req)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, timeouts.Medium())
	defer cancel()

	n, err := h.Wishlist.DeleteByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	h.Audit.WishlistCleared(ctx, p.ID, userID, n)
	h.Log.Info("wishlist cleared by admin",
		zap.String("admin", p.Username),
		zap.String("user_id", userID.Hex()),
		zap.Int64("items_deleted", n))

	return clearResult{Message: "Wishlist cleared successfully", ItemsDeleted: n}, nil
}

// clearCollection deletes every copy the user owns. Loans of those copies
// stay in place; lending lists skip rows whose copy is gone.
func (h *Handler) clearCollection(ctx context.Context, p *auth.Principal, req rpc.Request) (any, error) {
	userID, err := bindUser(p, req)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, timeouts.Medium())
	defer cancel()

	n, err := h.Copies.DeleteByOwner(ctx, userID)
	if err != nil {
		return nil, err
	}
	h.Audit.CollectionCleared(ctx, p.ID, userID, n)
	h.Log.Info("collection cleared by admin",
		zap.String("admin", p.Username),
		zap.String("user_id", userID.Hex()),
		zap.Int64("items_deleted", n))

	return clearResult{Message: "Collection cleared successfully", ItemsDeleted: n}, nil
}
