// internal/app/features/groups/invites.go
package groups

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/cineshelf/internal/app/policy/accesspolicy"
	groupstore "github.com/dalemusser/cineshelf/internal/app/store/groups"
	invitestore "github.com/dalemusser/cineshelf/internal/app/store/invites"
	membershipstore "github.com/dalemusser/cineshelf/internal/app/store/memberships"
	"github.com/dalemusser/cineshelf/internal/app/system/apperr"
	"github.com/dalemusser/cineshelf/internal/app/system/auth"
	"github.com/dalemusser/cineshelf/internal/app/system/rpc"
	"github.com/dalemusser/cineshelf/internal/app/system/sanitize"
	"github.com/dalemusser/cineshelf/internal/app/system/timeouts"
	"github.com/dalemusser/cineshelf/internal/app/system/tokens"
	"github.com/dalemusser/cineshelf/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// mintAttempts bounds retries on the (practically impossible) token
// collision.
const mintAttempts = 3

type createInviteInput struct {
	GroupID string `json:"group_id"`
	Email   string `json:"email"`
}

// createInvite returns the group's active group-wide link, minting one if
// there is none. An email makes a new single-address invite instead.
func (h *Handler) createInvite(ctx context.Context, p *auth.Principal, req rpc.Request) (any, error) {
	var in createInviteInput
	if err := req.Bind(&in); err != nil {
		return nil, err
	}
	groupID, err := rpc.ObjectID(in.GroupID, "Group ID")
	if err != nil {
		return nil, err
	}
	email := sanitize.Text(in.Email, 255)

	ctx, cancel := context.WithTimeout(ctx, timeouts.Short())
	defer cancel()

	role, err := h.roleOf(ctx, groupID, p)
	if err != nil {
		return nil, err
	}
	if !accesspolicy.CanManageInvites(p, role) {
		h.Audit.AccessDenied(ctx, p.ID, groupID, "create_group_invite")
		return nil, apperr.Authorization("Only group admins can create invites")
	}

	now := h.now()
	if email == "" {
		existing, err := h.Invites.FindActiveGroupWide(ctx, groupID, now)
		if err == nil {
			h.Audit.InviteCreated(ctx, p.ID, groupID, existing.ID, true)
			return map[string]any{
				"invite_token": existing.Token,
				"expires_at":   existing.ExpiresAt,
				"message":      "Using existing group invite link",
				"existing":     true,
			}, nil
		}
		if !errors.Is(err, invitestore.ErrNotFound) {
			return nil, err
		}
	}

	inv := models.GroupInvite{
		GroupID:   groupID,
		InvitedBy: p.ID,
		ExpiresAt: now.Add(h.InviteTTL),
		CreatedAt: now,
	}
	if email != "" {
		inv.InvitedEmail = &email
	}
	inv, err = h.mint(ctx, inv)
	if err != nil {
		h.Log.Error("create invite failed", zap.String("group_id", groupID.Hex()), zap.Error(err))
		return nil, err
	}

	h.Audit.InviteCreated(ctx, p.ID, groupID, inv.ID, false)
	return map[string]any{"invite_token": inv.Token, "expires_at": inv.ExpiresAt}, nil
}

func (h *Handler) mint(ctx context.Context, inv models.GroupInvite) (models.GroupInvite, error) {
	var lastErr error
	for i := 0; i < mintAttempts; i++ {
		tok, err := tokens.New(tokens.InviteBytes)
		if err != nil {
			return models.GroupInvite{}, err
		}
		inv.Token = tok
		out, err := h.Invites.Create(ctx, inv)
		if err == nil {
			return out, nil
		}
		if !errors.Is(err, invitestore.ErrDuplicateToken) {
			return models.GroupInvite{}, err
		}
		lastErr = err
	}
	return models.GroupInvite{}, lastErr
}

type acceptInput struct {
	InviteToken string `json:"invite_token"`
}

// acceptInvite joins the caller to the invite's group as a member.
// Accepting twice is harmless.
func (h *Handler) acceptInvite(ctx context.Context, p *auth.Principal, req rpc.Request) (any, error) {
	var in acceptInput
	if err := req.Bind(&in); err != nil {
		return nil, err
	}
	token := sanitize.Text(in.InviteToken, 64)
	if token == "" {
		return nil, apperr.Validation("Invite token required")
	}

	ctx, cancel := context.WithTimeout(ctx, timeouts.Short())
	defer cancel()

	inv, err := h.Invites.GetByToken(ctx, token)
	if errors.Is(err, invitestore.ErrNotFound) {
		h.Audit.InviteRejected(ctx, p.ID, "invalid token")
		return nil, apperr.NotFound("Invalid invite link")
	}
	if err != nil {
		return nil, err
	}
	now := h.now()
	if inv.Expired(now) {
		h.Audit.InviteRejected(ctx, p.ID, "expired")
		return nil, apperr.Expired("This invite link has expired")
	}
	if !inv.GroupWide() && text.Fold(*inv.InvitedEmail) != text.Fold(p.Email) {
		h.Audit.InviteRejected(ctx, p.ID, "email mismatch")
		return nil, apperr.Authorization("This invite was sent to a different email address")
	}

	g, err := h.Groups.GetByID(ctx, inv.GroupID)
	if errors.Is(err, groupstore.ErrNotFound) {
		h.Audit.InviteRejected(ctx, p.ID, "group deleted")
		return nil, apperr.NotFound("Group not found")
	}
	if err != nil {
		return nil, err
	}

	err = h.Memberships.Add(ctx, g.ID, p.ID, models.RoleMember)
	if errors.Is(err, membershipstore.ErrDuplicateMembership) {
		return map[string]any{
			"group_id":       g.ID,
			"group_name":     g.Name,
			"already_member": true,
			"message":        "You are already a member of " + g.Name,
		}, nil
	}
	if err != nil {
		return nil, err
	}

	if err := h.Invites.MarkAccepted(ctx, inv.ID, p.ID, now); err != nil {
		// The membership stands; the acceptance marker is informational.
		h.Log.Warn("mark invite accepted failed", zap.String("invite_id", inv.ID.Hex()), zap.Error(err))
	}
	h.Audit.InviteAccepted(ctx, p.ID, g.ID, inv.ID)
	return map[string]any{
		"group_id":   g.ID,
		"group_name": g.Name,
		"message":    "Successfully joined " + g.Name,
	}, nil
}

// InviteRow is one invite in list_group_invites.
type InviteRow struct {
	ID                 primitive.ObjectID `json:"id"`
	InvitedEmail       *string            `json:"invited_email"`
	InviteToken        string             `json:"invite_token"`
	CreatedAt          time.Time          `json:"created_at"`
	ExpiresAt          time.Time          `json:"expires_at"`
	AcceptedAt         *time.Time         `json:"accepted_at"`
	InvitedByUsername  string             `json:"invited_by_username"`
	AcceptedByUsername string             `json:"accepted_by_username,omitempty"`
	Expired            bool               `json:"expired"`
}

func (h *Handler) listInvites(ctx context.Context, p *auth.Principal, req rpc.Request) (any, error) {
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
	if !accesspolicy.CanManageInvites(p, role) {
		return nil, apperr.Authorization("Only group admins can view invites")
	}

	invites, err := h.Invites.ListByGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	userIDs := make([]primitive.ObjectID, 0, len(invites)*2)
	for _, inv := range invites {
		userIDs = append(userIDs, inv.InvitedBy)
		if inv.AcceptedBy != nil {
			userIDs = append(userIDs, *inv.AcceptedBy)
		}
	}
	users, err := h.Users.GetByIDs(ctx, userIDs)
	if err != nil {
		return nil, err
	}

	now := h.now()
	rows := make([]InviteRow, 0, len(invites))
	for _, inv := range invites {
		row := InviteRow{
			ID:                inv.ID,
			InvitedEmail:      inv.InvitedEmail,
			InviteToken:       inv.Token,
			CreatedAt:         inv.CreatedAt,
			ExpiresAt:         inv.ExpiresAt,
			AcceptedAt:        inv.AcceptedAt,
			InvitedByUsername: users[inv.InvitedBy].Username,
			Expired:           inv.Expired(now),
		}
		if inv.AcceptedBy != nil {
			row.AcceptedByUsername = users[*inv.AcceptedBy].Username
		}
		rows = append(rows, row)
	}
	return rows, nil
}

type cancelInput struct {
	InviteID string `json:"invite_id"`
}

func (h *Handler) cancelInvite(ctx context.Context, p *auth.Principal, req rpc.Request) (any, error) {
	var in cancelInput
	if err := req.Bind(&in); err != nil {
		return nil, err
	}
	inviteID, err := rpc.ObjectID(in.InviteID, "Invite ID")
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, timeouts.Short())
	defer cancel()

	inv, err := h.Invites.GetByID(ctx, inviteID)
	if errors.Is(err, invitestore.ErrNotFound) {
		return nil, apperr.NotFound("Invite not found")
	}
	if err != nil {
		return nil, err
	}
	role, err := h.roleOf(ctx, inv.GroupID, p)
	if err != nil {
		return nil, err
	}
	if !accesspolicy.CanManageInvites(p, role) {
		h.Audit.AccessDenied(ctx, p.ID, inv.GroupID, "cancel_group_invite")
		return nil, apperr.Authorization("Not authorized")
	}

	if _, err := h.Invites.Delete(ctx, inviteID); err != nil {
		return nil, err
	}
	h.Audit.InviteCancelled(ctx, p.ID, inv.GroupID, inviteID)
	return map[string]any{"message": "Invite cancelled"}, nil
}
