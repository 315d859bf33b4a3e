// internal/app/store/audit/store.go
package audit

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Event categories
const (
	CategoryGroups  = "groups"
	CategoryLending = "lending"
	CategoryCatalog = "catalog"
)

// Group event types
const (
	EventGroupCreated     = "group_created"
	EventGroupUpdated     = "group_updated"
	EventGroupDeleted     = "group_deleted"
	EventInviteCreated    = "invite_created"
	EventInviteCancelled  = "invite_cancelled"
	EventInviteAccepted   = "invite_accepted"
	EventInviteRejected   = "invite_rejected"
	EventMemberRemoved    = "member_removed"
	EventMemberLeftGroup  = "member_left_group"
	EventAccessDenied     = "access_denied"
	EventAdminFlagChanged = "admin_flag_changed"

	EventWishlistCleared   = "admin_cleared_wishlist"
	EventCollectionCleared = "admin_cleared_collection"
)

// Lending event types
const (
	EventCopyBorrowed = "copy_borrowed"
	EventCopyReturned = "copy_returned"
)

// Catalog event types
const (
	EventEntryResolved = "entry_resolved"
	EventEntryMerged   = "entry_merged"
	EventPosterUpdated = "poster_updated"
)

// Event represents an audit event.
type Event struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Timestamp time.Time          `bson:"timestamp"`

	// Event classification
	Category  string `bson:"category"`
	EventType string `bson:"event_type"`

	// Who
	ActorID *primitive.ObjectID `bson:"actor_id,omitempty"` // who performed the action
	UserID  *primitive.ObjectID `bson:"user_id,omitempty"`  // affected user, when different

	// What
	GroupID  *primitive.ObjectID `bson:"group_id,omitempty"`
	TargetID *primitive.ObjectID `bson:"target_id,omitempty"` // copy, borrow, invite or movie

	// Context
	IP        string `bson:"ip,omitempty"`
	UserAgent string `bson:"user_agent,omitempty"`

	// Outcome
	Success       bool   `bson:"success"`
	FailureReason string `bson:"failure_reason,omitempty"`

	// Additional details (varies by event type)
	Details map[string]string `bson:"details,omitempty"`
}

// QueryFilter defines filters for querying audit events.
type QueryFilter struct {
	ActorID   *primitive.ObjectID
	GroupID   *primitive.ObjectID
	Category  string
	EventType string
	Since     *time.Time
	Limit     int64
}

// Store manages audit event records.
type Store struct {
	c *mongo.Collection
}

// New creates a new audit Store.
func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("audit_events")}
}

// Log records an audit event.
func (s *Store) Log(ctx context.Context, event Event) error {
	if event.ID.IsZero() {
		event.ID = primitive.NewObjectID()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	_, err := s.c.InsertOne(ctx, event)
	return err
}

// Query retrieves audit events matching the filter, most recent first.
func (s *Store) Query(ctx context.Context, filter QueryFilter) ([]Event, error) {
	query := bson.M{}
	if filter.ActorID != nil {
		query["actor_id"] = *filter.ActorID
	}
	if filter.GroupID != nil {
		query["group_id"] = *filter.GroupID
	}
	if filter.Category != "" {
		query["category"] = filter.Category
	}
	if filter.EventType != "" {
		query["event_type"] = filter.EventType
	}
	if filter.Since != nil {
		query["timestamp"] = bson.M{"$gte": *filter.Since}
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(limit)

	cursor, err := s.c.Find(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var events []Event
	if err := cursor.All(ctx, &events); err != nil {
		return nil, err
	}
	return events, nil
}
