package artifacts

import (
	"context"
	"testing"

	"github.com/haasonsaas/docops/internal/storage"
)

func newSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	db, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := storage.Migrate(context.Background(), db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return NewSQLiteStore(db)
}

func TestSQLiteAppendAndList(t *testing.T) {
	store := newSQLiteStore(t)
	ctx := context.Background()

	a := &Artifact{JobID: "j1", Name: "extracted_json", Payload: map[string]any{"fields": map[string]any{"x": "1"}}}
	if err := store.Append(ctx, a); err != nil {
		t.Fatalf("append: %v", err)
	}
	if a.ID == 0 {
		t.Fatal("id not assigned")
	}

	list, err := store.ListByJob(ctx, "j1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0].Name != "extracted_json" {
		t.Fatalf("unexpected listing: %v", list)
	}
	fields, _ := list[0].Payload["fields"].(map[string]any)
	if fields["x"] != "1" {
		t.Fatalf("payload lost: %v", list[0].Payload)
	}
}

func TestLatestPrefersNewestID(t *testing.T) {
	store := newSQLiteStore(t)
	ctx := context.Background()

	old := &Artifact{JobID: "j1", Name: "verification_report", Payload: map[string]any{"verdict": "FAIL"}}
	if err := store.Append(ctx, old); err != nil {
		t.Fatalf("append: %v", err)
	}
	replacement := &Artifact{JobID: "j1", Name: "verification_report", Payload: map[string]any{"verdict": "PASS"}}
	if err := store.Append(ctx, replacement); err != nil {
		t.Fatalf("append: %v", err)
	}

	list, err := store.ListByJob(ctx, "j1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	latest := Latest(list, "verification_report")
	if latest == nil || latest.Payload["verdict"] != "PASS" {
		t.Fatalf("unexpected latest: %v", latest)
	}
}
