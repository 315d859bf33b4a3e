package models

import (
	"encoding/json"
	"testing"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestIdentity_WireKeyRoundTrip(t *testing.T) {
	tests := []struct {
		name     string
		id       Identity
		key      string
		resolved bool
	}{
		{"resolved", Resolved("603"), "603", true},
		{"unresolved", Unresolved("abc"), "unresolved_abc", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.id.WireKey(); got != tt.key {
				t.Errorf("WireKey() = %q, want %q", got, tt.key)
			}
			back := ParseWireKey(tt.key)
			if back != tt.id {
				t.Errorf("ParseWireKey(%q) = %+v, want %+v", tt.key, back, tt.id)
			}
			if back.IsResolved() != tt.resolved {
				t.Errorf("IsResolved() = %v, want %v", back.IsResolved(), tt.resolved)
			}
		})
	}
}

func TestMovie_MarshalJSONIncludesWireIdentity(t *testing.T) {
	m := Movie{ID: primitive.NewObjectID(), Identity: Unresolved("xyz"), Title: "Home Video"}
	b, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var out map[string]any
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out["tmdb_id"] != "unresolved_xyz" {
		t.Errorf("tmdb_id = %v, want unresolved_xyz", out["tmdb_id"])
	}
	if out["resolved"] != false {
		t.Errorf("resolved = %v, want false", out["resolved"])
	}
	if _, ok := out["state"]; ok {
		t.Error("storage identity fields must not leak into JSON")
	}
}

func TestMovie_IdentityStoredInline(t *testing.T) {
	m := Movie{ID: primitive.NewObjectID(), Identity: Resolved("603"), Title: "The Matrix"}
	raw, err := bson.Marshal(m)
	if err != nil {
		t.Fatalf("bson marshal: %v", err)
	}
	var doc bson.M
	if err := bson.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("bson unmarshal: %v", err)
	}
	if doc["state"] != string(IdentityResolved) || doc["external_id"] != "603" {
		t.Errorf("unexpected identity fields: %v", doc)
	}
	if _, ok := doc["placeholder_id"]; ok {
		t.Error("placeholder_id should be omitted for resolved entries")
	}
}

func TestMovie_EffectiveTitle(t *testing.T) {
	override := "Matrix, The"
	empty := ""
	if got := (Movie{Title: "The Matrix"}).EffectiveTitle(); got != "The Matrix" {
		t.Errorf("got %q", got)
	}
	if got := (Movie{Title: "The Matrix", DisplayTitle: &override}).EffectiveTitle(); got != override {
		t.Errorf("got %q", got)
	}
	if got := (Movie{Title: "The Matrix", DisplayTitle: &empty}).EffectiveTitle(); got != "The Matrix" {
		t.Errorf("got %q", got)
	}
}
