// internal/app/features/groups/groupedit.go
package groups

import (
	"context"
	"errors"

	"github.com/dalemusser/cineshelf/internal/app/policy/accesspolicy"
	groupstore "github.com/dalemusser/cineshelf/internal/app/store/groups"
	"github.com/dalemusser/cineshelf/internal/app/system/apperr"
	"github.com/dalemusser/cineshelf/internal/app/system/auth"
	"github.com/dalemusser/cineshelf/internal/app/system/rpc"
	"github.com/dalemusser/cineshelf/internal/app/system/sanitize"
	"github.com/dalemusser/cineshelf/internal/app/system/timeouts"
	"github.com/dalemusser/cineshelf/internal/app/system/txn"
	"github.com/dalemusser/cineshelf/internal/domain/models"
	"go.uber.org/zap"
)

type groupInput struct {
	GroupID     string `json:"group_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// createGroup creates the group and makes the caller its admin.
func (h *Handler) createGroup(ctx context.Context, p *auth.Principal, req rpc.Request) (any, error) {
	var in groupInput
	if err := req.Bind(&in); err != nil {
		return nil, err
	}
	name := sanitize.Text(in.Name, 100)
	if name == "" {
		return nil, apperr.Validation("Group name required")
	}
	desc := sanitize.Text(in.Description, 500)

	ctx, cancel := context.WithTimeout(ctx, timeouts.Short())
	defer cancel()

	var g models.Group
	err := txn.Run(ctx, h.DB, h.Log, func(ctx context.Context) error {
		var err error
		g, err = h.Groups.Create(ctx, models.Group{Name: name, Description: desc, CreatedBy: p.ID})
		if err != nil {
			return err
		}
		return h.Memberships.Add(ctx, g.ID, p.ID, models.RoleAdmin)
	})
	if err != nil {
		h.Log.Error("create group failed", zap.String("name", name), zap.Error(err))
		return nil, err
	}

	h.Audit.GroupCreated(ctx, p.ID, g.ID, g.Name)
	return map[string]any{"group_id": g.ID, "name": g.Name}, nil
}

// updateGroup renames a group. Group admins only; site admins get no bypass.
func (h *Handler) updateGroup(ctx context.Context, p *auth.Principal, req rpc.Request) (any, error) {
	var in groupInput
	if err := req.Bind(&in); err != nil {
		return nil, err
	}
	name := sanitize.Text(in.Name, 100)
	if in.GroupID == "" || name == "" {
		return nil, apperr.Validation("Group ID and name required")
	}
	groupID, err := rpc.ObjectID(in.GroupID, "Group ID")
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, timeouts.Short())
	defer cancel()

	role, err := h.roleOf(ctx, groupID, p)
	if err != nil {
		return nil, err
	}
	if !accesspolicy.CanEditGroup(p, role) {
		h.Audit.AccessDenied(ctx, p.ID, groupID, "update_group")
		return nil, apperr.Authorization("Only group admins can update group details")
	}

	err = h.Groups.UpdateInfo(ctx, groupID, name, sanitize.Text(in.Description, 500))
	if errors.Is(err, groupstore.ErrNotFound) {
		return nil, apperr.NotFound("Group not found")
	}
	if err != nil {
		return nil, err
	}

	h.Audit.GroupUpdated(ctx, p.ID, groupID, name)
	return map[string]any{"message": "Group updated successfully"}, nil
}

// deleteGroup removes the group and its memberships. Invites stay behind
// and fail at accept time.
func (h *Handler) deleteGroup(ctx context.Context, p *auth.Principal, req rpc.Request) (any, error) {
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

	role, err := h.roleOf(ctx, groupID, p)
	if err != nil {
		return nil, err
	}
	if !accesspolicy.CanDeleteGroup(p, role) {
		h.Audit.AccessDenied(ctx, p.ID, groupID, "delete_group")
		return nil, apperr.Authorization("Only group admins can delete groups")
	}

	g, err := h.Groups.GetByID(ctx, groupID)
	if errors.Is(err, groupstore.ErrNotFound) {
		return nil, apperr.NotFound("Group not found")
	}
	if err != nil {
		return nil, err
	}

	var removed int64
	err = txn.Run(ctx, h.DB, h.Log, func(ctx context.Context) error {
		n, err := h.Memberships.DeleteByGroup(ctx, groupID)
		if err != nil {
			return err
		}
		removed = n
		_, err = h.Groups.Delete(ctx, groupID)
		return err
	})
	if err != nil {
		h.Log.Error("delete group failed", zap.String("group_id", groupID.Hex()), zap.Error(err))
		return nil, err
	}

	h.Audit.GroupDeleted(ctx, p.ID, groupID, g.Name, removed)
	return map[string]any{"message": "Group deleted successfully"}, nil
}
