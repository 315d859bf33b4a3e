// internal/app/features/systemusers/list.go
package systemusers

import (
	"context"
	"time"

	"github.com/dalemusser/cineshelf/internal/app/policy/accesspolicy"
	"github.com/dalemusser/cineshelf/internal/app/system/apperr"
	"github.com/dalemusser/cineshelf/internal/app/system/auth"
	"github.com/dalemusser/cineshelf/internal/app/system/rpc"
	"github.com/dalemusser/cineshelf/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UserRow is one user in admin_list_users.
type UserRow struct {
	ID              primitive.ObjectID `json:"id"`
	Username        string             `json:"username"`
	Email           string             `json:"email"`
	DisplayName     string             `json:"display_name"`
	IsAdmin         bool               `json:"is_admin"`
	CreatedAt       time.Time          `json:"created_at"`
	CollectionCount int                `json:"collection_count"`
	WishlistCount   int                `json:"wishlist_count"`
}

func requireSiteAdmin(p *auth.Principal) error {
	if !accesspolicy.IsSiteAdmin(p) {
		return apperr.Authorization("Admin access required")
	}
	return nil
}

func (h *Handler) listUsers(ctx context.Context, p *auth.Principal, _ rpc.Request) (any, error) {
	if err := requireSiteAdmin(p); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, timeouts.Long())
	defer cancel()

	users, err := h.Users.List(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]primitive.ObjectID, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.ID)
	}
	copies, err := h.Copies.CountByOwners(ctx, ids)
	if err != nil {
		return nil, err
	}
	wishes, err := h.Wishlist.CountByUsers(ctx, ids)
	if err != nil {
		return nil, err
	}

	rows := make([]UserRow, 0, len(users))
	for _, u := range users {
		rows = append(rows, UserRow{
			ID:              u.ID,
			Username:        u.Username,
			Email:           u.EmailAddress(),
			DisplayName:     u.Name(),
			IsAdmin:         u.IsAdmin,
			CreatedAt:       u.CreatedAt,
			CollectionCount: copies[u.ID],
			WishlistCount:   wishes[u.ID],
		})
	}
	return rows, nil
}

// listGroups returns every group regardless of the caller's membership.
func (h *Handler) listGroups(ctx context.Context, p *auth.Principal, _ rpc.Request) (any, error) {
	if err := requireSiteAdmin(p); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, timeouts.Long())
	defer cancel()

	gs, err := h.Groups.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	return h.Summary.Summaries(ctx, gs, nil)
}
