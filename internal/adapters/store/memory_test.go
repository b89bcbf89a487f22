package store

import (
	"context"
	"errors"
	"testing"

	"github.com/aakashbhandari1000/Meeting/internal/core"
)

func TestMemoryGetMissing(t *testing.T) {
	m := NewMemory()
	if _, err := m.Get(context.Background(), "meetings", "nope"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestMemorySetGetIsolation(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	doc := core.Document{"host": "alice", "settings": map[string]any{"allowChat": true}}
	if err := m.Set(ctx, "meetings", "m1", doc); err != nil {
		t.Fatalf("Set: %v", err)
	}

	// Mutating the original after Set must not leak into the store.
	doc["host"] = "mallory"

	got, err := m.Get(ctx, "meetings", "m1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got["host"] != "alice" {
		t.Fatalf("host = %v, want alice", got["host"])
	}

	// Nor must mutating the returned copy.
	got["host"] = "eve"
	again, _ := m.Get(ctx, "meetings", "m1")
	if again["host"] != "alice" {
		t.Fatalf("host after caller mutation = %v, want alice", again["host"])
	}
}

func TestMemoryUpdateDottedPath(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	if err := m.Set(ctx, "meetings", "m1", core.Document{
		"participants": map[string]any{
			"alice": map[string]any{"audioEnabled": true},
		},
	}); err != nil {
		t.Fatalf("Set: %v", err)
	}

	patch := map[string]any{
		"participants.alice.audioEnabled": false,
		"participants.bob":                map[string]any{"audioEnabled": true},
	}
	if err := m.Update(ctx, "meetings", "m1", patch); err != nil {
		t.Fatalf("Update: %v", err)
	}

	got, _ := m.Get(ctx, "meetings", "m1")
	parts := got["participants"].(map[string]any)
	alice := parts["alice"].(map[string]any)
	if alice["audioEnabled"] != false {
		t.Fatalf("alice.audioEnabled = %v, want false", alice["audioEnabled"])
	}
	if _, ok := parts["bob"]; !ok {
		t.Fatal("bob not added")
	}
}

func TestMemoryUpdateDeleteField(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	_ = m.Set(ctx, "meetings", "m1", core.Document{
		"participants": map[string]any{
			"alice": map[string]any{},
			"bob":   map[string]any{},
		},
	})

	if err := m.Update(ctx, "meetings", "m1", map[string]any{
		"participants.bob": core.DeleteField{},
	}); err != nil {
		t.Fatalf("Update: %v", err)
	}

	got, _ := m.Get(ctx, "meetings", "m1")
	parts := got["participants"].(map[string]any)
	if _, ok := parts["bob"]; ok {
		t.Fatal("bob still present after delete")
	}
	if _, ok := parts["alice"]; !ok {
		t.Fatal("alice removed by unrelated delete")
	}
}

func TestMemoryUpdateMissingDoc(t *testing.T) {
	m := NewMemory()
	err := m.Update(context.Background(), "meetings", "nope", map[string]any{"x": 1})
	if !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestMemoryDelete(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	_ = m.Set(ctx, "meetings", "m1", core.Document{})

	if err := m.Delete(ctx, "meetings", "m1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := m.Get(ctx, "meetings", "m1"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("err after delete = %v, want ErrNotFound", err)
	}
	if err := m.Delete(ctx, "meetings", "m1"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("second delete err = %v, want ErrNotFound", err)
	}
}

func TestMemoryQuery(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	_ = m.Set(ctx, "meetings", "m1", core.Document{"status": "active", "createdAt": 3.0})
	_ = m.Set(ctx, "meetings", "m2", core.Document{"status": "active", "createdAt": 1.0})
	_ = m.Set(ctx, "meetings", "m3", core.Document{"status": "ended", "createdAt": 2.0})

	docs, err := m.Query(ctx, "meetings",
		[]core.Predicate{{Field: "status", Op: core.OpEqual, Value: "active"}},
		&core.Order{Field: "createdAt"}, 0)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("got %d docs, want 2", len(docs))
	}
	if docs[0]["createdAt"] != 1.0 || docs[1]["createdAt"] != 3.0 {
		t.Fatalf("bad order: %v then %v", docs[0]["createdAt"], docs[1]["createdAt"])
	}

	docs, err = m.Query(ctx, "meetings", nil, &core.Order{Field: "createdAt", Descending: true}, 1)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(docs) != 1 || docs[0]["createdAt"] != 3.0 {
		t.Fatalf("limit+desc gave %v", docs)
	}
}

func TestMemoryUnavailable(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	_ = m.Set(ctx, "meetings", "m1", core.Document{})
	m.SetFailing(true)

	if _, err := m.Get(ctx, "meetings", "m1"); !errors.Is(err, core.ErrUnavailable) {
		t.Fatalf("Get err = %v, want ErrUnavailable", err)
	}
	if err := m.Set(ctx, "meetings", "m2", core.Document{}); !errors.Is(err, core.ErrUnavailable) {
		t.Fatalf("Set err = %v, want ErrUnavailable", err)
	}
	if err := m.Update(ctx, "meetings", "m1", map[string]any{"x": 1}); !errors.Is(err, core.ErrUnavailable) {
		t.Fatalf("Update err = %v, want ErrUnavailable", err)
	}

	m.SetFailing(false)
	if _, err := m.Get(ctx, "meetings", "m1"); err != nil {
		t.Fatalf("Get after recovery: %v", err)
	}
}
