package audit_test

import (
	"testing"
	"time"

	"github.com/dalemusser/cineshelf/internal/app/store/audit"
	"github.com/dalemusser/cineshelf/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestStore_LogAndQuery(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := audit.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	actor := primitive.NewObjectID()
	group := primitive.NewObjectID()

	events := []audit.Event{
		{Category: audit.CategoryGroups, EventType: audit.EventGroupCreated, ActorID: &actor, GroupID: &group, Success: true},
		{Category: audit.CategoryLending, EventType: audit.EventCopyBorrowed, ActorID: &actor, Success: true},
		{Category: audit.CategoryGroups, EventType: audit.EventInviteCreated, GroupID: &group, Success: true},
	}
	for _, e := range events {
		if err := store.Log(ctx, e); err != nil {
			t.Fatalf("Log failed: %v", err)
		}
	}

	byActor, err := store.Query(ctx, audit.QueryFilter{ActorID: &actor})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(byActor) != 2 {
		t.Errorf("expected 2 events for actor, got %d", len(byActor))
	}

	byGroup, err := store.Query(ctx, audit.QueryFilter{GroupID: &group, Category: audit.CategoryGroups})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(byGroup) != 2 {
		t.Errorf("expected 2 group events, got %d", len(byGroup))
	}
	for _, e := range byGroup {
		if e.ID.IsZero() {
			t.Error("expected ID to be generated")
		}
		if e.Timestamp.IsZero() {
			t.Error("expected timestamp to be set")
		}
	}
}

func TestStore_Query_SinceAndLimit(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := audit.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	old := time.Now().Add(-48 * time.Hour).UTC()
	_ = store.Log(ctx, audit.Event{Category: audit.CategoryCatalog, EventType: audit.EventEntryMerged, Timestamp: old, Success: true})
	for i := 0; i < 3; i++ {
		_ = store.Log(ctx, audit.Event{Category: audit.CategoryCatalog, EventType: audit.EventEntryResolved, Success: true})
	}

	since := time.Now().Add(-time.Hour)
	got, err := store.Query(ctx, audit.QueryFilter{Category: audit.CategoryCatalog, Since: &since, Limit: 2})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected limit of 2, got %d", len(got))
	}
	for _, e := range got {
		if e.EventType != audit.EventEntryResolved {
			t.Errorf("unexpected event %q before since", e.EventType)
		}
	}
}
