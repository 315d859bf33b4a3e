// internal/app/features/groups/collections.go
package groups

import (
	"context"

	"github.com/dalemusser/cineshelf/internal/app/features/shared/copyrows"
	"github.com/dalemusser/cineshelf/internal/app/system/apperr"
	"github.com/dalemusser/cineshelf/internal/app/system/auth"
	"github.com/dalemusser/cineshelf/internal/app/system/rpc"
	"github.com/dalemusser/cineshelf/internal/app/system/timeouts"
	"github.com/dalemusser/cineshelf/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// groupCollection lists every member's copies, each with its owner and
// any active borrow.
func (h *Handler) groupCollection(ctx context.Context, p *auth.Principal, req rpc.Request) (any, error) {
	var in groupRef
	if err := req.Bind(&in); err != nil {
		return nil, err
	}
	groupID, err := rpc.ObjectID(in.GroupID, "Group ID")
	if err != nil {
		return nil, err
	}

	ctx, cancel := timeouts.WithTimeout(ctx, timeouts.Long(), h.Log, "list_group_collection")
	defer cancel()

	if _, err := h.requireMember(ctx, groupID, p); err != nil {
		return nil, err
	}
	ms, err := h.Memberships.ListByGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	owners := make([]primitive.ObjectID, 0, len(ms))
	for _, m := range ms {
		owners = append(owners, m.UserID)
	}
	copies, err := h.Copies.ListByOwners(ctx, owners)
	if err != nil {
		return nil, err
	}
	return h.annotated(ctx, copies)
}

type memberCollectionInput struct {
	GroupID      string `json:"group_id"`
	MemberUserID string `json:"member_user_id"`
}

// memberCollection lists one member's copies. Caller and member must both
// belong to the group.
func (h *Handler) memberCollection(ctx context.Context, p *auth.Principal, req rpc.Request) (any, error) {
	var in memberCollectionInput
	if err := req.Bind(&in); err != nil {
		return nil, err
	}
	if in.GroupID == "" || in.MemberUserID == "" {
		return nil, apperr.Validation("Group ID and member user ID required")
	}
	groupID, err := rpc.ObjectID(in.GroupID, "Group ID")
	if err != nil {
		return nil, err
	}
	memberID, err := rpc.ObjectID(in.MemberUserID, "Member user ID")
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, timeouts.Medium())
	defer cancel()

	callerIn, err := h.Memberships.Exists(ctx, groupID, p.ID)
	if err != nil {
		return nil, err
	}
	memberIn, err := h.Memberships.Exists(ctx, groupID, memberID)
	if err != nil {
		return nil, err
	}
	if !callerIn || !memberIn {
		return nil, apperr.Authorization("Not authorized")
	}

	copies, err := h.Copies.ListByOwner(ctx, memberID)
	if err != nil {
		return nil, err
	}
	return h.annotated(ctx, copies)
}

// annotated builds sorted rows for copies with owner and borrow details.
func (h *Handler) annotated(ctx context.Context, copies []models.Copy) ([]copyrows.Row, error) {
	movieIDs := copyrows.MovieIDs(copies)
	movies, err := h.Movies.GetByIDs(ctx, movieIDs)
	if err != nil {
		return nil, err
	}
	counts, err := h.Copies.CountByMovies(ctx, movieIDs)
	if err != nil {
		return nil, err
	}

	copyIDs := make([]primitive.ObjectID, 0, len(copies))
	userIDs := make([]primitive.ObjectID, 0, len(copies))
	for _, c := range copies {
		copyIDs = append(copyIDs, c.ID)
		userIDs = append(userIDs, c.OwnerID)
	}
	borrows, err := h.Borrows.ActiveByCopies(ctx, copyIDs)
	if err != nil {
		return nil, err
	}
	for _, b := range borrows {
		userIDs = append(userIDs, b.BorrowerID)
	}
	users, err := h.Users.GetByIDs(ctx, userIDs)
	if err != nil {
		return nil, err
	}

	owners := make(map[primitive.ObjectID]primitive.ObjectID, len(copies))
	for _, c := range copies {
		owners[c.ID] = c.OwnerID
	}
	rows := copyrows.Build(copies, movies, counts)
	for i := range rows {
		r := &rows[i]
		r.SetOwner(users[owners[r.CopyID]])
		if b, ok := borrows[r.CopyID]; ok {
			r.SetBorrow(b, users[b.BorrowerID])
		}
	}
	copyrows.Sort(rows)
	return rows, nil
}
