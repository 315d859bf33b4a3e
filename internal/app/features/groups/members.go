// internal/app/features/groups/members.go
package groups

import (
	"context"

	"github.com/dalemusser/cineshelf/internal/app/policy/accesspolicy"
	"github.com/dalemusser/cineshelf/internal/app/system/apperr"
	"github.com/dalemusser/cineshelf/internal/app/system/auth"
	"github.com/dalemusser/cineshelf/internal/app/system/rpc"
	"github.com/dalemusser/cineshelf/internal/app/system/timeouts"
)

type removeMemberInput struct {
	GroupID string `json:"group_id"`
	UserID  string `json:"user_id"`
}

// removeMember removes a member. Site admins and group admins may remove
// anyone; everyone else may only leave. The last admin is allowed to leave.
func (h *Handler) removeMember(ctx context.Context, p *auth.Principal, req rpc.Request) (any, error) {
	var in removeMemberInput
	if err := req.Bind(&in); err != nil {
		return nil, err
	}
	if in.GroupID == "" || in.UserID == "" {
		return nil, apperr.Validation("Group ID and user ID required")
	}
	groupID, err := rpc.ObjectID(in.GroupID, "Group ID")
	if err != nil {
		return nil, err
	}
	target, err := rpc.ObjectID(in.UserID, "User ID")
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, timeouts.Short())
	defer cancel()

	role, err := h.roleOf(ctx, groupID, p)
	if err != nil {
		return nil, err
	}
	if !accesspolicy.CanRemoveMember(p, role, target) {
		h.Audit.AccessDenied(ctx, p.ID, groupID, "remove_group_member")
		if role == "" {
			return nil, apperr.Authorization("Not a member of this group")
		}
		return nil, apperr.Authorization("Only admins can remove other members")
	}

	if _, err := h.Memberships.Remove(ctx, groupID, target); err != nil {
		return nil, err
	}

	h.Audit.MemberRemoved(ctx, p.ID, groupID, target)
	return map[string]any{"removed": target}, nil
}

// addMember is kept for old clients; membership is by invite only.
func (h *Handler) addMember(context.Context, *auth.Principal, rpc.Request) (any, error) {
	return nil, apperr.Validation("This endpoint is deprecated. Use invite links instead.")
}
