// internal/app/system/auditlog/logger.go
package auditlog

import (
	"context"
	"net/http"
	"strconv"

	"github.com/dalemusser/cineshelf/internal/app/store/audit"
	"github.com/dalemusser/cineshelf/internal/app/system/ratelimit"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Config holds audit logging configuration. Each field takes
// "all" (MongoDB + zap), "db" (MongoDB only), "log" (zap only) or "off".
type Config struct {
	// Groups covers group, membership and invite changes.
	Groups string
	// Lending covers borrow and return.
	Lending string
	// Catalog covers resolution and merges of catalog entries.
	Catalog string
}

// Logger writes audit events to MongoDB (via audit.Store) and to zap.
type Logger struct {
	store  *audit.Store
	zapLog *zap.Logger
	config Config
}

// New creates a new audit Logger.
func New(store *audit.Store, zapLog *zap.Logger, config Config) *Logger {
	return &Logger{
		store:  store,
		zapLog: zapLog,
		config: config,
	}
}

type requestMetaKey struct{}

type requestMeta struct {
	ip        string
	userAgent string
}

// WithRequest records the caller's address and user agent on ctx so events
// logged while serving r carry them.
func WithRequest(ctx context.Context, r *http.Request) context.Context {
	return context.WithValue(ctx, requestMetaKey{}, requestMeta{ip: ratelimit.ClientIP(r), userAgent: r.UserAgent()})
}

// logToZap logs the event to zap with consistent structure.
func (l *Logger) logToZap(event audit.Event) {
	fields := []zap.Field{
		zap.Bool("audit", true),
		zap.String("category", event.Category),
		zap.String("event_type", event.EventType),
		zap.Bool("success", event.Success),
	}
	if event.IP != "" {
		fields = append(fields, zap.String("ip", event.IP))
	}
	if event.ActorID != nil {
		fields = append(fields, zap.String("actor_id", event.ActorID.Hex()))
	}
	if event.UserID != nil {
		fields = append(fields, zap.String("user_id", event.UserID.Hex()))
	}
	if event.GroupID != nil {
		fields = append(fields, zap.String("group_id", event.GroupID.Hex()))
	}
	if event.TargetID != nil {
		fields = append(fields, zap.String("target_id", event.TargetID.Hex()))
	}
	if event.FailureReason != "" {
		fields = append(fields, zap.String("failure_reason", event.FailureReason))
	}
	for k, v := range event.Details {
		fields = append(fields, zap.String("detail_"+k, v))
	}

	if event.Success {
		l.zapLog.Info("audit event", fields...)
	} else {
		l.zapLog.Warn("audit event", fields...)
	}
}

// Log records an audit event based on configuration.
// If the logger is nil, this is a no-op (allows tests to use nil audit logger).
func (l *Logger) Log(ctx context.Context, event audit.Event) {
	if l == nil {
		return
	}

	var setting string
	switch event.Category {
	case audit.CategoryGroups:
		setting = l.config.Groups
	case audit.CategoryLending:
		setting = l.config.Lending
	case audit.CategoryCatalog:
		setting = l.config.Catalog
	default:
		setting = "all"
	}
	if setting == "off" {
		return
	}

	if meta, ok := ctx.Value(requestMetaKey{}).(requestMeta); ok {
		if event.IP == "" {
			event.IP = meta.ip
		}
		if event.UserAgent == "" {
			event.UserAgent = meta.userAgent
		}
	}

	if setting == "all" || setting == "log" {
		l.logToZap(event)
	}

	if (setting == "all" || setting == "db") && l.store != nil {
		if err := l.store.Log(ctx, event); err != nil {
			l.zapLog.Error("failed to store audit event",
				zap.Error(err),
				zap.String("event_type", event.EventType),
			)
		}
	}
}

func ptr(id primitive.ObjectID) *primitive.ObjectID { return &id }

// --- Group Events ---

// GroupCreated logs creation of a group by its first admin.
func (l *Logger) GroupCreated(ctx context.Context, actorID, groupID primitive.ObjectID, name string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryGroups,
		EventType: audit.EventGroupCreated,
		ActorID:   ptr(actorID),
		GroupID:   ptr(groupID),
		Success:   true,
		Details:   map[string]string{"name": name},
	})
}

// GroupUpdated logs a name/description change.
func (l *Logger) GroupUpdated(ctx context.Context, actorID, groupID primitive.ObjectID, name string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryGroups,
		EventType: audit.EventGroupUpdated,
		ActorID:   ptr(actorID),
		GroupID:   ptr(groupID),
		Success:   true,
		Details:   map[string]string{"name": name},
	})
}

// GroupDeleted logs deletion of a group and how many memberships went with it.
func (l *Logger) GroupDeleted(ctx context.Context, actorID, groupID primitive.ObjectID, name string, memberships int64) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryGroups,
		EventType: audit.EventGroupDeleted,
		ActorID:   ptr(actorID),
		GroupID:   ptr(groupID),
		Success:   true,
		Details: map[string]string{
			"name":                name,
			"memberships_removed": strconv.FormatInt(memberships, 10),
		},
	})
}

// InviteCreated logs a new (or reused) invite link.
func (l *Logger) InviteCreated(ctx context.Context, actorID, groupID, inviteID primitive.ObjectID, reused bool) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryGroups,
		EventType: audit.EventInviteCreated,
		ActorID:   ptr(actorID),
		GroupID:   ptr(groupID),
		TargetID:  ptr(inviteID),
		Success:   true,
		Details:   map[string]string{"reused": strconv.FormatBool(reused)},
	})
}

// InviteCancelled logs deletion of an invite by a group admin.
func (l *Logger) InviteCancelled(ctx context.Context, actorID, groupID, inviteID primitive.ObjectID) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryGroups,
		EventType: audit.EventInviteCancelled,
		ActorID:   ptr(actorID),
		GroupID:   ptr(groupID),
		TargetID:  ptr(inviteID),
		Success:   true,
	})
}

// InviteAccepted logs a user joining a group through an invite.
func (l *Logger) InviteAccepted(ctx context.Context, userID, groupID, inviteID primitive.ObjectID) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryGroups,
		EventType: audit.EventInviteAccepted,
		ActorID:   ptr(userID),
		GroupID:   ptr(groupID),
		TargetID:  ptr(inviteID),
		Success:   true,
	})
}

// InviteRejected logs a failed redemption (expired, wrong email, ...).
func (l *Logger) InviteRejected(ctx context.Context, userID primitive.ObjectID, reason string) {
	l.Log(ctx, audit.Event{
		Category:      audit.CategoryGroups,
		EventType:     audit.EventInviteRejected,
		ActorID:       ptr(userID),
		Success:       false,
		FailureReason: reason,
	})
}

// MemberRemoved logs a removal; a user removing themselves is logged as
// leaving the group.
func (l *Logger) MemberRemoved(ctx context.Context, actorID, groupID, targetID primitive.ObjectID) {
	eventType := audit.EventMemberRemoved
	if actorID == targetID {
		eventType = audit.EventMemberLeftGroup
	}
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryGroups,
		EventType: eventType,
		ActorID:   ptr(actorID),
		UserID:    ptr(targetID),
		GroupID:   ptr(groupID),
		Success:   true,
	})
}

// AccessDenied logs a group action refused by the access policy.
func (l *Logger) AccessDenied(ctx context.Context, actorID, groupID primitive.ObjectID, action string) {
	l.Log(ctx, audit.Event{
		Category:      audit.CategoryGroups,
		EventType:     audit.EventAccessDenied,
		ActorID:       ptr(actorID),
		GroupID:       ptr(groupID),
		Success:       false,
		FailureReason: "policy denied",
		Details:       map[string]string{"action": action},
	})
}

// AdminFlagChanged logs a grant or revoke of the site-wide admin flag.
func (l *Logger) AdminFlagChanged(ctx context.Context, username string, granted bool) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryGroups,
		EventType: audit.EventAdminFlagChanged,
		Success:   true,
		Details: map[string]string{
			"username": username,
			"granted":  strconv.FormatBool(granted),
		},
	})
}

// WishlistCleared logs a site admin emptying another user's wishlist.
func (l *Logger) WishlistCleared(ctx context.Context, actorID, userID primitive.ObjectID, deleted int64) {
	l.userDataCleared(ctx, audit.EventWishlistCleared, actorID, userID, deleted)
}

// CollectionCleared logs a site admin deleting every copy a user owns.
func (l *Logger) CollectionCleared(ctx context.Context, actorID, userID primitive.ObjectID, deleted int64) {
	l.userDataCleared(ctx, audit.EventCollectionCleared, actorID, userID, deleted)
}

func (l *Logger) userDataCleared(ctx context.Context, eventType string, actorID, userID primitive.ObjectID, deleted int64) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryGroups,
		EventType: eventType,
		ActorID:   ptr(actorID),
		UserID:    ptr(userID),
		Success:   true,
		Details:   map[string]string{"items_deleted": strconv.FormatInt(deleted, 10)},
	})
}

// --- Lending Events ---

// CopyBorrowed logs the start of a loan.
func (l *Logger) CopyBorrowed(ctx context.Context, borrowerID, ownerID, copyID, borrowID primitive.ObjectID) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryLending,
		EventType: audit.EventCopyBorrowed,
		ActorID:   ptr(borrowerID),
		UserID:    ptr(ownerID),
		TargetID:  ptr(borrowID),
		Success:   true,
		Details:   map[string]string{"copy_id": copyID.Hex()},
	})
}

// CopyReturned logs the end of a loan.
func (l *Logger) CopyReturned(ctx context.Context, actorID, borrowID primitive.ObjectID) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryLending,
		EventType: audit.EventCopyReturned,
		ActorID:   ptr(actorID),
		TargetID:  ptr(borrowID),
		Success:   true,
	})
}

// --- Catalog Events ---

// EntryResolved logs an unresolved entry becoming canonical in place.
func (l *Logger) EntryResolved(ctx context.Context, actorID, movieID primitive.ObjectID, externalID string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryCatalog,
		EventType: audit.EventEntryResolved,
		ActorID:   ptr(actorID),
		TargetID:  ptr(movieID),
		Success:   true,
		Details:   map[string]string{"external_id": externalID},
	})
}

// EntryMerged logs copies moving from an unresolved entry to a canonical one.
func (l *Logger) EntryMerged(ctx context.Context, actorID, fromID, toID primitive.ObjectID, moved int64, deleted bool) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryCatalog,
		EventType: audit.EventEntryMerged,
		ActorID:   ptr(actorID),
		TargetID:  ptr(toID),
		Success:   true,
		Details: map[string]string{
			"from_movie_id":       fromID.Hex(),
			"copies_moved":        strconv.FormatInt(moved, 10),
			"placeholder_deleted": strconv.FormatBool(deleted),
		},
	})
}

// PosterUpdated logs a new poster chosen for an entry.
func (l *Logger) PosterUpdated(ctx context.Context, actorID, movieID primitive.ObjectID, posterURL string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryCatalog,
		EventType: audit.EventPosterUpdated,
		ActorID:   ptr(actorID),
		TargetID:  ptr(movieID),
		Success:   true,
		Details:   map[string]string{"poster_url": posterURL},
	})
}
