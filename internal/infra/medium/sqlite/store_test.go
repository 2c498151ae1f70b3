package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"aeracore/internal/medium/core"
)

func TestStore_WriteReadDelete(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "aera.db")
	store, err := New(ctx, path)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	if store.Driver() != core.DriverSQLite || store.Path() != path {
		t.Fatalf("unexpected driver/path %s %s", store.Driver(), store.Path())
	}
	if _, err := store.Read(ctx, "doc"); !errors.Is(err, core.ErrNotExist) {
		t.Fatalf("expected ErrNotExist, got %v", err)
	}
	if err := store.Write(ctx, "doc", []byte(`{"revision":1}`)); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := store.Write(ctx, "doc", []byte(`{"revision":2}`)); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	got, err := store.Read(ctx, "doc")
	if err != nil || string(got) != `{"revision":2}` {
		t.Fatalf("read = %q, %v", got, err)
	}
	var rows int
	if err := store.DB().GetContext(ctx, &rows, `SELECT COUNT(*) FROM documents`); err != nil || rows != 1 {
		t.Fatalf("expected exactly one row, got %d (%v)", rows, err)
	}
	if err := store.Delete(ctx, "doc"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.Read(ctx, "doc"); !errors.Is(err, core.ErrNotExist) {
		t.Fatalf("expected ErrNotExist after delete, got %v", err)
	}
}

func TestStore_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "aera.db")
	first, err := New(ctx, path)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := first.Write(ctx, "doc", []byte("kept")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	second, err := New(ctx, path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer func() { _ = second.Close() }()
	got, err := second.Read(ctx, "doc")
	if err != nil || string(got) != "kept" {
		t.Fatalf("read after reopen = %q, %v", got, err)
	}
}

func TestStore_ClosedDatabaseErrors(t *testing.T) {
	ctx := context.Background()
	store, err := New(ctx, ":memory:")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_ = store.Close()
	if _, err := store.Read(ctx, "doc"); err == nil || errors.Is(err, core.ErrNotExist) {
		t.Fatalf("expected hard error on closed db, got %v", err)
	}
	if err := store.Write(ctx, "doc", []byte("x")); err == nil {
		t.Fatalf("expected write error on closed db")
	}
}
