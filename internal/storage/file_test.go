package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestFileStoreSnapshotRoundTrip(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "snapshots")
	store := NewFileStore(dir)
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}

	want := testSnapshot(t, "snap-1", 91.67, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	if err := store.SaveSnapshot(ctx, want); err != nil {
		t.Fatalf("save snapshot: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, want.Name+".json")); err != nil {
		t.Fatalf("expected snapshot file named after the snapshot: %v", err)
	}

	got, ok, err := store.GetSnapshot(ctx, "snap-1")
	if err != nil {
		t.Fatalf("get snapshot: %v", err)
	}
	if !ok {
		t.Fatal("expected persisted snapshot")
	}
	assertSnapshotEqual(t, got, want)

	if _, ok, err := store.GetSnapshot(ctx, "missing"); err != nil || ok {
		t.Fatalf("expected missing snapshot; ok=%t err=%v", ok, err)
	}
}

func TestFileStoreListSkipsForeignFiles(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store := NewFileStore(dir)
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	if err := store.SaveSnapshot(ctx, testSnapshot(t, "old", 90, base)); err != nil {
		t.Fatalf("save old: %v", err)
	}
	if err := store.SaveSnapshot(ctx, testSnapshot(t, "new", 95, base.Add(time.Minute))); err != nil {
		t.Fatalf("save new: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644); err != nil {
		t.Fatalf("write foreign file: %v", err)
	}

	summaries, err := store.ListSnapshots(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(summaries) != 2 || summaries[0].ID != "new" || summaries[1].ID != "old" {
		t.Fatalf("unexpected summaries: %+v", summaries)
	}
}

func TestFileStoreRejectsStaleVersion(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store := NewFileStore(dir)
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}
	stale := testSnapshot(t, "stale", 90, time.Now())
	stale.CodecVersion = CurrentCodecVersion + 1
	if err := store.SaveSnapshot(ctx, stale); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := store.ListSnapshots(ctx); !errors.Is(err, ErrVersionMismatch) {
		t.Fatalf("expected version mismatch, got %v", err)
	}
}

func TestFileStoreRejectsBadInput(t *testing.T) {
	ctx := context.Background()
	if err := NewFileStore("").Init(ctx); err == nil {
		t.Fatal("expected missing directory error")
	}

	store := NewFileStore(t.TempDir())
	if err := store.SaveSnapshot(ctx, testSnapshot(t, "early", 90, time.Now())); err == nil {
		t.Fatal("expected uninitialized store error")
	}
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}
	bad := testSnapshot(t, "bad", 90, time.Now())
	bad.Name = "../escape"
	if err := store.SaveSnapshot(ctx, bad); err == nil {
		t.Fatal("expected invalid name error")
	}
}

func TestFileStoreListMissingDirectory(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "absent"))
	summaries, err := store.ListSnapshots(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(summaries) != 0 {
		t.Fatalf("expected no summaries, got %+v", summaries)
	}
}
