// internal/app/system/validators/validators.go
package validators

import (
	"context"
	"errors"
	"strings"

	"github.com/dalemusser/cineshelf/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// EnsureAll creates collections (if missing) and tries to attach JSON-Schema
// validators. On servers that don't support collMod/validators (e.g. some
// DocumentDB versions), we log and skip gracefully.
func EnsureAll(ctx context.Context, db *mongo.Database, log *zap.Logger) error {
	var problems []string

	ensure := func(coll string, schema bson.M) {
		if _, err := ensureCollection(ctx, db, coll, log); err != nil {
			problems = append(problems, coll+": "+err.Error())
			return
		}
		if schema == nil {
			return
		}
		if err := setValidator(ctx, db, coll, schema, log); err != nil {
			if isNoSuchCommand(err) || isNotImplemented(err) {
				log.Info("validator skipped (unsupported)", zap.String("collection", coll))
				return
			}
			problems = append(problems, coll+": "+err.Error())
		}
	}

	ensure("users", usersSchema())
	ensure("movies", moviesSchema())
	ensure("copies", copiesSchema())
	ensure("groups", groupsSchema())
	ensure("group_memberships", groupMembershipsSchema())
	ensure("group_invites", groupInvitesSchema())
	ensure("borrows", borrowsSchema())

	// These don't strictly need validators; we still ensure the collections exist.
	ensure("wishlist", nil)
	ensure("auth_sessions", nil)
	ensure("audit_events", nil)

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

/* ---------------------- collection helpers & logging ---------------------- */

func collectionExists(ctx context.Context, db *mongo.Database, name string) (bool, error) {
	names, err := db.ListCollectionNames(ctx, bson.M{"name": name})
	if err != nil {
		return false, err
	}
	return len(names) > 0, nil
}

// ensureCollection idempotently makes sure <name> exists.
// Returns created==true only if we actually created it.
func ensureCollection(ctx context.Context, db *mongo.Database, name string, log *zap.Logger) (created bool, err error) {
	if exists, listErr := collectionExists(ctx, db, name); listErr == nil && exists {
		log.Debug("collection exists", zap.String("collection", name))
		return false, nil
	}
	// If listing failed, fall back to create-and-handle-race.
	if err := db.CreateCollection(ctx, name); err != nil {
		if isNamespaceExistsErr(err) {
			return false, nil
		}
		log.Warn("createCollection failed", zap.String("collection", name), zap.Error(err))
		return false, err
	}
	log.Info("created collection", zap.String("collection", name))
	return true, nil
}

/* ------------------------------ validators ------------------------------- */

func setValidator(ctx context.Context, db *mongo.Database, name string, validator bson.M, log *zap.Logger) error {
	cmd := bson.D{
		{Key: "collMod", Value: name},
		{Key: "validator", Value: validator},
		{Key: "validationLevel", Value: "moderate"},
		{Key: "validationAction", Value: "error"},
	}
	if err := db.RunCommand(ctx, cmd).Err(); err != nil {
		return err
	}
	log.Debug("validator ensured", zap.String("collection", name))
	return nil
}

/* ------------------------- error helpers ------------------------- */

func commandMatches(err error, code int32, phrases ...string) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && ce.Code == code {
		return true
	}
	s := strings.ToLower(err.Error())
	for _, p := range phrases {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}

func isNamespaceExistsErr(err error) bool {
	return commandMatches(err, 48, "already exists", "namespace exists")
}

func isNoSuchCommand(err error) bool {
	return commandMatches(err, 59, "no such command")
}

func isNotImplemented(err error) bool {
	return commandMatches(err, 115, "not implemented", "not supported")
}

/* ------------------------- JSON-Schema docs ---------------------- */

var nonBlank = bson.M{"bsonType": "string", "minLength": 1, "pattern": ".*\\S.*"}

func usersSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"username", "is_admin", "created_at"},
			"properties": bson.M{
				"username":     nonBlank,
				"email":        bson.M{"bsonType": bson.A{"string", "null"}},
				"email_ci":     bson.M{"bsonType": bson.A{"string", "null"}},
				"display_name": bson.M{"bsonType": bson.A{"string", "null"}},
				"is_admin":     bson.M{"bsonType": "bool"},
				"settings":     bson.M{"bsonType": "object"},
			},
		},
	}
}

func moviesSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"state", "title", "title_ci", "media_type"},
			"properties": bson.M{
				"state":          bson.M{"enum": bson.A{string(models.IdentityResolved), string(models.IdentityUnresolved)}},
				"external_id":    bson.M{"bsonType": "string", "minLength": 1},
				"placeholder_id": bson.M{"bsonType": "string", "minLength": 1},
				"title":          bson.M{"bsonType": "string"},
				"title_ci":       bson.M{"bsonType": "string"},
				"media_type":     bson.M{"enum": bson.A{models.MediaMovie, models.MediaTV}},
			},
			// A resolved entry carries its external id; a placeholder its placeholder id.
			"oneOf": bson.A{
				bson.M{"properties": bson.M{"state": bson.M{"enum": bson.A{"resolved"}}}, "required": bson.A{"external_id"}},
				bson.M{"properties": bson.M{"state": bson.M{"enum": bson.A{"unresolved"}}}, "required": bson.A{"placeholder_id"}},
			},
		},
	}
}

func copiesSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"owner_id", "movie_id", "format"},
			"properties": bson.M{
				"owner_id": bson.M{"bsonType": "objectId"},
				"movie_id": bson.M{"bsonType": "objectId"},
				"format":   nonBlank,
			},
		},
	}
}

func groupsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"name", "name_ci", "created_by"},
			"properties": bson.M{
				"name":       nonBlank,
				"name_ci":    bson.M{"bsonType": "string"},
				"created_by": bson.M{"bsonType": "objectId"},
			},
		},
	}
}

func groupMembershipsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"user_id", "group_id", "role"},
			"properties": bson.M{
				"user_id":   bson.M{"bsonType": "objectId"},
				"group_id":  bson.M{"bsonType": "objectId"},
				"role":      bson.M{"enum": bson.A{models.RoleAdmin, models.RoleMember}},
				"joined_at": bson.M{"bsonType": "date"},
			},
		},
	}
}

func groupInvitesSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"token", "group_id", "invited_by", "expires_at"},
			"properties": bson.M{
				"token":         bson.M{"bsonType": "string", "minLength": 32},
				"group_id":      bson.M{"bsonType": "objectId"},
				"invited_by":    bson.M{"bsonType": "objectId"},
				"invited_email": bson.M{"bsonType": bson.A{"string", "null"}},
				"expires_at":    bson.M{"bsonType": "date"},
			},
		},
	}
}

func borrowsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"copy_id", "owner_id", "borrower_id", "borrowed_at"},
			"properties": bson.M{
				"copy_id":     bson.M{"bsonType": "objectId"},
				"owner_id":    bson.M{"bsonType": "objectId"},
				"borrower_id": bson.M{"bsonType": "objectId"},
				"borrowed_at": bson.M{"bsonType": "date"},
				"due_date":    bson.M{"bsonType": "date"},
				"returned_at": bson.M{"bsonType": "date"},
				"active":      bson.M{"enum": bson.A{true}},
			},
		},
	}
}
