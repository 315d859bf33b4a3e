// internal/app/system/indexes/indexes.go
package indexes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

/*
EnsureAll is called at startup and by `cineshelfctl indexes ensure`. Each
ensure* function is idempotent. We aggregate errors so any problem is
visible and startup can fail fast.

Several invariants live here rather than in code:
  - borrows.copy_id is unique among active borrows (one loan per copy)
  - group_invites.token is unique
  - group_memberships (group_id, user_id) is unique
  - movies.external_id is unique among resolved entries
*/
func EnsureAll(ctx context.Context, db *mongo.Database, log *zap.Logger) error {
	sets := []struct {
		coll   string
		models []mongo.IndexModel
	}{
		{"users", usersIndexes()},
		{"movies", moviesIndexes()},
		{"copies", copiesIndexes()},
		{"wishlist", wishlistIndexes()},
		{"groups", groupsIndexes()},
		{"group_memberships", membershipsIndexes()},
		{"group_invites", invitesIndexes()},
		{"borrows", borrowsIndexes()},
		{"auth_sessions", sessionsIndexes()},
		{"audit_events", auditIndexes()},
	}

	var problems []string
	for _, s := range sets {
		if err := ensureIndexSet(ctx, db.Collection(s.coll), s.models, log); err != nil {
			problems = append(problems, s.coll+": "+err.Error())
		}
	}
	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

/* -------------------------------------------------------------------------- */
/* Core helper: reconcile a set of desired indexes for one collection         */
/* -------------------------------------------------------------------------- */

type existingIndex struct {
	Name        string   `bson:"name"`
	Key         bson.D   `bson:"key"`
	Unique      *bool    `bson:"unique,omitempty"`
	Partial     bson.Raw `bson:"partialFilterExpression,omitempty"`
	ExpireAfter *int32   `bson:"expireAfterSeconds,omitempty"`
}

func keySig(keys bson.D) string {
	parts := make([]string, 0, len(keys))
	for _, kv := range keys {
		parts = append(parts, fmt.Sprintf("%s:%v", kv.Key, kv.Value))
	}
	return strings.Join(parts, ", ")
}

// optsSig summarizes the options we care about so a changed partial
// filter, uniqueness or TTL triggers a rebuild.
func optsSig(unique bool, partial any, ttl *int32) string {
	p := ""
	if partial != nil {
		if raw, err := bson.MarshalExtJSON(partial, true, false); err == nil {
			p = string(raw)
		}
	}
	t := "-"
	if ttl != nil {
		t = fmt.Sprint(*ttl)
	}
	return fmt.Sprintf("unique=%v partial=%s ttl=%s", unique, p, t)
}

func desiredSig(m mongo.IndexModel) (name, keys, opts string) {
	keys = keySig(m.Keys.(bson.D))
	var unique bool
	var partial any
	var ttl *int32
	if o := m.Options; o != nil {
		if o.Name != nil {
			name = *o.Name
		}
		unique = o.Unique != nil && *o.Unique
		partial = o.PartialFilterExpression
		ttl = o.ExpireAfterSeconds
	}
	return name, keys, optsSig(unique, partial, ttl)
}

func existingSig(ex existingIndex) string {
	var partial any
	if len(ex.Partial) > 0 {
		var d bson.D
		if err := bson.Unmarshal(ex.Partial, &d); err == nil {
			partial = d
		}
	}
	return optsSig(ex.Unique != nil && *ex.Unique, partial, ex.ExpireAfter)
}

func listIndexes(ctx context.Context, coll *mongo.Collection, log *zap.Logger) map[string]existingIndex {
	out := map[string]existingIndex{} // key sig -> index
	cur, err := coll.Indexes().List(ctx)
	if err != nil {
		return out
	}
	defer cur.Close(ctx)
	for cur.Next(ctx) {
		var idx existingIndex
		if err := cur.Decode(&idx); err != nil {
			log.Warn("failed to decode existing index",
				zap.String("collection", coll.Name()),
				zap.Error(err))
			continue
		}
		out[keySig(idx.Key)] = idx
	}
	return out
}

func ensureIndexSet(ctx context.Context, coll *mongo.Collection, models []mongo.IndexModel, log *zap.Logger) error {
	var errs []string
	existing := listIndexes(ctx, coll, log)

	for _, m := range models {
		name, keys, opts := desiredSig(m)
		start := time.Now()

		if ex, ok := existing[keys]; ok {
			if existingSig(ex) == opts && (name == "" || ex.Name == name) {
				log.Debug("reusing existing index",
					zap.String("collection", coll.Name()),
					zap.String("name", ex.Name),
					zap.String("keys", keys))
				continue
			}
			// Options or name differ. Drop & recreate.
			if _, err := coll.Indexes().DropOne(ctx, ex.Name); err != nil {
				log.Warn("drop existing index failed",
					zap.String("collection", coll.Name()),
					zap.String("name", ex.Name),
					zap.Error(err))
				errs = append(errs, fmt.Sprintf("%s(%s): drop failed: %v", coll.Name(), name, err))
				continue
			}
		}

		if _, err := coll.Indexes().CreateOne(ctx, m); err != nil {
			if wafflemongo.IsDup(err) {
				errs = append(errs, fmt.Sprintf("%s(%s): cannot create unique index (duplicates present)", coll.Name(), name))
			} else {
				errs = append(errs, fmt.Sprintf("%s(%s): %v", coll.Name(), name, err))
			}
			log.Warn("index ensure failed",
				zap.String("collection", coll.Name()),
				zap.String("name", name),
				zap.String("keys", keys),
				zap.Error(err))
			continue
		}
		log.Info("index ensured",
			zap.String("collection", coll.Name()),
			zap.String("name", name),
			zap.String("keys", keys),
			zap.String("options", opts),
			zap.String("took", time.Since(start).String()))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

/* -------------------------------------------------------------------------- */
/* Collection-specific index sets                                              */
/* -------------------------------------------------------------------------- */

func usersIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "username", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_users_username"),
		},
		// Email is optional (legacy users have none); unique only when present.
		{
			Keys: bson.D{{Key: "email_ci", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_users_emailci").
				SetPartialFilterExpression(bson.D{{Key: "email_ci", Value: bson.D{{Key: "$type", Value: "string"}}}}),
		},
	}
}

func moviesIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "external_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_movies_external_id").
				SetPartialFilterExpression(bson.D{{Key: "state", Value: "resolved"}}),
		},
		{
			Keys: bson.D{{Key: "placeholder_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_movies_placeholder_id").
				SetPartialFilterExpression(bson.D{{Key: "state", Value: "unresolved"}}),
		},
		{
			Keys:    bson.D{{Key: "title_ci", Value: 1}, {Key: "_id", Value: 1}},
			Options: options.Index().SetName("idx_movies_titleci__id"),
		},
	}
}

func copiesIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		// A user's collection, and their copies of one entry.
		{
			Keys:    bson.D{{Key: "owner_id", Value: 1}, {Key: "movie_id", Value: 1}},
			Options: options.Index().SetName("idx_copies_owner_movie"),
		},
		// Global per-entry counts and merge reassignment.
		{
			Keys:    bson.D{{Key: "movie_id", Value: 1}},
			Options: options.Index().SetName("idx_copies_movie"),
		},
	}
}

func wishlistIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "movie_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_wishlist_user_movie"),
		},
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "priority", Value: -1}},
			Options: options.Index().SetName("idx_wishlist_user_priority"),
		},
	}
}

func groupsIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "name_ci", Value: 1}, {Key: "_id", Value: 1}},
			Options: options.Index().SetName("idx_groups_nameci__id"),
		},
	}
}

func membershipsIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "group_id", Value: 1}, {Key: "user_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_gm_group_user"),
		},
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}},
			Options: options.Index().SetName("idx_gm_user"),
		},
	}
}

func invitesIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "token", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_invites_token"),
		},
		// Reuse lookup: active group-wide invite, newest expiry first.
		{
			Keys:    bson.D{{Key: "group_id", Value: 1}, {Key: "expires_at", Value: -1}},
			Options: options.Index().SetName("idx_invites_group_expires"),
		},
	}
}

func borrowsIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		// At most one active borrow per copy. `active` is unset on return.
		{
			Keys: bson.D{{Key: "copy_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_borrows_active_copy").
				SetPartialFilterExpression(bson.D{{Key: "active", Value: true}}),
		},
		{
			Keys:    bson.D{{Key: "borrower_id", Value: 1}, {Key: "active", Value: 1}},
			Options: options.Index().SetName("idx_borrows_borrower_active"),
		},
		{
			Keys:    bson.D{{Key: "owner_id", Value: 1}, {Key: "active", Value: 1}},
			Options: options.Index().SetName("idx_borrows_owner_active"),
		},
	}
}

func sessionsIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "token", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_auth_sessions_token"),
		},
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0).SetName("ttl_auth_sessions_expires"),
		},
	}
}

func auditIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "timestamp", Value: -1}},
			Options: options.Index().SetName("idx_audit_ts"),
		},
		{
			Keys:    bson.D{{Key: "actor_id", Value: 1}, {Key: "timestamp", Value: -1}},
			Options: options.Index().SetName("idx_audit_actor_ts"),
		},
		{
			Keys:    bson.D{{Key: "group_id", Value: 1}, {Key: "timestamp", Value: -1}},
			Options: options.Index().SetName("idx_audit_group_ts"),
		},
		{
			Keys:    bson.D{{Key: "category", Value: 1}, {Key: "timestamp", Value: -1}},
			Options: options.Index().SetName("idx_audit_category_ts"),
		},
	}
}
