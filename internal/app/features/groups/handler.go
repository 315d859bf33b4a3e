// internal/app/features/groups/handler.go
package groups

import (
	"context"
	"time"

	"github.com/dalemusser/cineshelf/internal/app/policy/accesspolicy"
	borrowstore "github.com/dalemusser/cineshelf/internal/app/store/borrows"
	copystore "github.com/dalemusser/cineshelf/internal/app/store/copies"
	groupstore "github.com/dalemusser/cineshelf/internal/app/store/groups"
	invitestore "github.com/dalemusser/cineshelf/internal/app/store/invites"
	membershipstore "github.com/dalemusser/cineshelf/internal/app/store/memberships"
	moviestore "github.com/dalemusser/cineshelf/internal/app/store/movies"
	userstore "github.com/dalemusser/cineshelf/internal/app/store/users"
	"github.com/dalemusser/cineshelf/internal/app/system/apperr"
	"github.com/dalemusser/cineshelf/internal/app/system/auditlog"
	"github.com/dalemusser/cineshelf/internal/app/system/auth"
	"github.com/dalemusser/cineshelf/internal/app/system/rpc"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// DefaultInviteTTL is how long a freshly minted invite link stays valid.
const DefaultInviteTTL = 30 * 24 * time.Hour

// Handler is the shared dependency container for the groups feature:
// groups, memberships, invite links and the shared collection views.
type Handler struct {
	DB          *mongo.Database
	Groups      *groupstore.Store
	Memberships *membershipstore.Store
	Invites     *invitestore.Store
	Users       *userstore.Store
	Copies      *copystore.Store
	Movies      *moviestore.Store
	Borrows     *borrowstore.Store
	Audit       *auditlog.Logger
	Log         *zap.Logger

	// InviteTTL is the lifetime of new invite links.
	InviteTTL time.Duration

	now func() time.Time
}

// NewHandler constructs a groups Handler. A zero inviteTTL selects
// DefaultInviteTTL.
func NewHandler(db *mongo.Database, audit *auditlog.Logger, inviteTTL time.Duration, logger *zap.Logger) *Handler {
	if inviteTTL <= 0 {
		inviteTTL = DefaultInviteTTL
	}
	return &Handler{
		DB:          db,
		Groups:      groupstore.New(db),
		Memberships: membershipstore.New(db),
		Invites:     invitestore.New(db),
		Users:       userstore.New(db),
		Copies:      copystore.New(db),
		Movies:      moviestore.New(db),
		Borrows:     borrowstore.New(db),
		Audit:       audit,
		Log:         logger,
		InviteTTL:   inviteTTL,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Register adds the group actions to reg.
func (h *Handler) Register(reg *rpc.Registry) {
	reg.Handle("create_group", h.createGroup)
	reg.Handle("list_groups", h.listGroups)
	reg.Handle("get_group", h.getGroup)
	reg.Handle("update_group", h.updateGroup)
	reg.Handle("delete_group", h.deleteGroup)

	reg.Handle("create_group_invite", h.createInvite)
	reg.Handle("accept_group_invite", h.acceptInvite)
	reg.Handle("list_group_invites", h.listInvites)
	reg.Handle("cancel_group_invite", h.cancelInvite)

	reg.Handle("list_group_members", h.listMembers)
	reg.Handle("remove_group_member", h.removeMember)
	reg.Handle("add_group_member", h.addMember)

	reg.Handle("list_group_collection", h.groupCollection)
	reg.Handle("list_member_collection", h.memberCollection)
}

// roleOf returns the caller's role in the group ("" when not a member).
func (h *Handler) roleOf(ctx context.Context, groupID primitive.ObjectID, p *auth.Principal) (string, error) {
	return h.Memberships.Role(ctx, groupID, p.ID)
}

// requireMember fails with "Not a member of this group" unless the caller
// belongs to the group.
func (h *Handler) requireMember(ctx context.Context, groupID primitive.ObjectID, p *auth.Principal) (string, error) {
	role, err := h.roleOf(ctx, groupID, p)
	if err != nil {
		return "", err
	}
	if !accesspolicy.CanViewGroup(p, role) {
		return "", apperr.Authorization("Not a member of this group")
	}
	return role, nil
}

type groupRef struct {
	GroupID string `json:"group_id"`
}
