// internal/app/policy/accesspolicy/accesspolicy.go
package accesspolicy

import (
	"github.com/dalemusser/cineshelf/internal/app/system/auth"
	"github.com/dalemusser/cineshelf/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Every predicate here is pure: callers look up the actor's role in the
// group (models.RoleAdmin, models.RoleMember or "" for non-members) and
// pass it in.

// IsSiteAdmin reports whether p carries the site-wide admin flag.
func IsSiteAdmin(p *auth.Principal) bool {
	return p != nil && p.IsAdmin
}

// CanEditGroup reports whether the actor may rename or re-describe a group.
// Only group admins may; site admins get no bypass here.
func CanEditGroup(p *auth.Principal, role string) bool {
	return p != nil && role == models.RoleAdmin
}

// CanDeleteGroup reports whether the actor may delete a group:
// site admins or group admins.
func CanDeleteGroup(p *auth.Principal, role string) bool {
	return IsSiteAdmin(p) || (p != nil && role == models.RoleAdmin)
}

// CanRemoveMember reports whether the actor may remove target from a group:
// site admins, group admins, or the target themselves (leaving).
func CanRemoveMember(p *auth.Principal, role string, target primitive.ObjectID) bool {
	if p == nil {
		return false
	}
	return p.IsAdmin || role == models.RoleAdmin || p.ID == target
}

// CanManageInvites reports whether the actor may create, list or cancel a
// group's invites.
func CanManageInvites(p *auth.Principal, role string) bool {
	return p != nil && role == models.RoleAdmin
}

// CanViewGroup reports whether the actor may read a group's details,
// members and collections.
func CanViewGroup(p *auth.Principal, role string) bool {
	return p != nil && role != ""
}

// CanEditCopy reports whether the actor owns c.
func CanEditCopy(p *auth.Principal, c models.Copy) bool {
	return p != nil && c.OwnerID == p.ID
}

// CanBorrow reports whether the actor may borrow c: anyone but its owner.
func CanBorrow(p *auth.Principal, c models.Copy) bool {
	return p != nil && c.OwnerID != p.ID
}

// CanReturn reports whether the actor is a party to b.
func CanReturn(p *auth.Principal, b models.Borrow) bool {
	return p != nil && b.Involves(p.ID)
}
