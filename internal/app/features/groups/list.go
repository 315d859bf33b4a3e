// internal/app/features/groups/list.go
package groups

import (
	"context"
	"errors"
	"sort"
	"time"

	groupstore "github.com/dalemusser/cineshelf/internal/app/store/groups"
	"github.com/dalemusser/cineshelf/internal/app/system/apperr"
	"github.com/dalemusser/cineshelf/internal/app/system/auth"
	"github.com/dalemusser/cineshelf/internal/app/system/rpc"
	"github.com/dalemusser/cineshelf/internal/app/system/timeouts"
	"github.com/dalemusser/cineshelf/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Summary is a group row in the group lists.
type Summary struct {
	ID          primitive.ObjectID `json:"id"`
	Name        string             `json:"name"`
	Description string             `json:"description"`
	CreatedAt   time.Time          `json:"created_at"`
	CreatorName string             `json:"creator_name"`
	MemberCount int                `json:"member_count"`
	Role        string             `json:"role,omitempty"`
}

// Summaries joins groups with their creators and member counts. roles,
// when non-nil, supplies the caller's role per group.
func (h *Handler) Summaries(ctx context.Context, gs []models.Group, roles map[primitive.ObjectID]string) ([]Summary, error) {
	ids := make([]primitive.ObjectID, 0, len(gs))
	creatorIDs := make([]primitive.ObjectID, 0, len(gs))
	for _, g := range gs {
		ids = append(ids, g.ID)
		creatorIDs = append(creatorIDs, g.CreatedBy)
	}
	counts, err := h.Memberships.CountByGroups(ctx, ids)
	if err != nil {
		return nil, err
	}
	creators, err := h.Users.GetByIDs(ctx, creatorIDs)
	if err != nil {
		return nil, err
	}

	out := make([]Summary, 0, len(gs))
	for _, g := range gs {
		out = append(out, Summary{
			ID:          g.ID,
			Name:        g.Name,
			Description: g.Description,
			CreatedAt:   g.CreatedAt,
			CreatorName: creators[g.CreatedBy].Username,
			MemberCount: counts[g.ID],
			Role:        roles[g.ID],
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return text.Fold(out[i].Name) < text.Fold(out[j].Name)
	})
	return out, nil
}

// listGroups returns the caller's groups with their role in each.
func (h *Handler) listGroups(ctx context.Context, p *auth.Principal, _ rpc.Request) (any, error) {
	ctx, cancel := context.WithTimeout(ctx, timeouts.Medium())
	defer cancel()

	ms, err := h.Memberships.ListByUser(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	roles := make(map[primitive.ObjectID]string, len(ms))
	ids := make([]primitive.ObjectID, 0, len(ms))
	for _, m := range ms {
		roles[m.GroupID] = m.Role
		ids = append(ids, m.GroupID)
	}
	byID, err := h.Groups.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	gs := make([]models.Group, 0, len(byID))
	for _, id := range ids {
		if g, ok := byID[id]; ok {
			gs = append(gs, g)
		}
	}
	return h.Summaries(ctx, gs, roles)
}

// Member is one row of a group's member list.
type Member struct {
	UserID      primitive.ObjectID `json:"user_id"`
	Username    string             `json:"username"`
	DisplayName string             `json:"display_name"`
	Email       string             `json:"email"`
	Role        string             `json:"role"`
	JoinedAt    time.Time          `json:"joined_at"`
	CopyCount   int                `json:"copy_count"`
}

// members lists the group's members, admins first then by display name.
func (h *Handler) members(ctx context.Context, groupID primitive.ObjectID) ([]Member, error) {
	ms, err := h.Memberships.ListByGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	userIDs := make([]primitive.ObjectID, 0, len(ms))
	for _, m := range ms {
		userIDs = append(userIDs, m.UserID)
	}
	users, err := h.Users.GetByIDs(ctx, userIDs)
	if err != nil {
		return nil, err
	}
	counts, err := h.Copies.CountByOwners(ctx, userIDs)
	if err != nil {
		return nil, err
	}

	out := make([]Member, 0, len(ms))
	for _, m := range ms {
		u, ok := users[m.UserID]
		if !ok {
			continue
		}
		out = append(out, Member{
			UserID:      u.ID,
			Username:    u.Username,
			DisplayName: u.Name(),
			Email:       u.EmailAddress(),
			Role:        m.Role,
			JoinedAt:    m.JoinedAt,
			CopyCount:   counts[u.ID],
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		ai, aj := out[i].Role == models.RoleAdmin, out[j].Role == models.RoleAdmin
		if ai != aj {
			return ai
		}
		return text.Fold(out[i].DisplayName) < text.Fold(out[j].DisplayName)
	})
	return out, nil
}

// Detail is the get_group response.
type Detail struct {
	ID          primitive.ObjectID `json:"id"`
	Name        string             `json:"name"`
	Description string             `json:"description"`
	CreatedAt   time.Time          `json:"created_at"`
	CreatedBy   primitive.ObjectID `json:"created_by"`
	CreatorName string             `json:"creator_name"`
	Role        string             `json:"role"`
	Members     []Member           `json:"members"`
}

func (h *Handler) getGroup(ctx context.Context, p *auth.Principal, req rpc.Request) (any, error) {
	var in groupRef
	if err := req.Bind(&in); err != nil {
		return nil, err
	}
	groupID, err := rpc.ObjectID(in.GroupID, "Group ID")
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, timeouts.Medium())
	defer cancel()

	role, err := h.requireMember(ctx, groupID, p)
	if err != nil {
		return nil, err
	}
	g, err := h.Groups.GetByID(ctx, groupID)
	if errors.Is(err, groupstore.ErrNotFound) {
		return nil, apperr.NotFound("Group not found")
	}
	if err != nil {
		return nil, err
	}
	creator, _ := h.Users.GetByID(ctx, g.CreatedBy)

	members, err := h.members(ctx, groupID)
	if err != nil {
		return nil, err
	}
	return Detail{
		ID:          g.ID,
		Name:        g.Name,
		Description: g.Description,
		CreatedAt:   g.CreatedAt,
		CreatedBy:   g.CreatedBy,
		CreatorName: creator.Username,
		Role:        role,
		Members:     members,
	}, nil
}

func (h *Handler) listMembers(ctx context.Context, p *auth.Principal, req rpc.Request) (any, error) {
	var in groupRef
	if err := req.Bind(&in); err != nil {
		return nil, err
	}
	groupID, err := rpc.ObjectID(in.GroupID, "Group ID")
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, timeouts.Medium())
	defer cancel()

	if _, err := h.requireMember(ctx, groupID, p); err != nil {
		return nil, err
	}
	return h.members(ctx, groupID)
}
