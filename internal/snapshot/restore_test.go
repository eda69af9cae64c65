package snapshot

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap/zaptest"

	"launchsync/internal/model"
	"launchsync/internal/state"
)

func TestRestore_FromLatestManifest(t *testing.T) {
	ctx := context.Background()
	base := t.TempDir()
	src := state.NewInMemoryStore()
	fill(t, src, "1", "2", "3")

	snap := NewFilesystemSnapshotter(base)
	n, err := snap.WriteSnapshot(ctx, "sid-001", src)
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	mf := NewFilesystemManifest(base)
	if err := mf.PublishLatest(ctx, Manifest{SnapshotID: "sid-001", Items: n}); err != nil {
		t.Fatalf("publish: %v", err)
	}

	dst := state.NewInMemoryStore()
	res, err := NewRestorer(dst, snap, mf, zaptest.NewLogger(t)).Restore(ctx, "")
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if res.SnapshotID != "sid-001" || res.Applied != 3 || res.Failed != 0 {
		t.Fatalf("unexpected result: %+v", res)
	}
	l, ok, err := dst.Get(ctx, "2")
	if err != nil || !ok || l.MissionName != "m-2" || l.FlightNumber == nil || *l.FlightNumber != 2 {
		t.Fatalf("restored launch mismatch: %+v ok=%v err=%v", l, ok, err)
	}
}

func TestRestore_ExplicitIDOverwrites(t *testing.T) {
	ctx := context.Background()
	base := t.TempDir()
	src := state.NewInMemoryStore()
	fill(t, src, "7")
	snap := NewFilesystemSnapshotter(base)
	if _, err := snap.WriteSnapshot(ctx, "old", src); err != nil {
		t.Fatalf("write: %v", err)
	}

	dst := state.NewInMemoryStore()
	if err := dst.Put(ctx, model.Launch{LaunchID: "7", MissionName: "newer"}); err != nil {
		t.Fatal(err)
	}
	// no manifest: explicit id must not need one
	res, err := NewRestorer(dst, snap, NewFilesystemManifest(base), nil).Restore(ctx, "old")
	if err != nil || res.Applied != 1 {
		t.Fatalf("res=%+v err=%v", res, err)
	}
	l, _, _ := dst.Get(ctx, "7")
	if l.MissionName != "m-7" {
		t.Fatalf("want full replace, got %+v", l)
	}
}

func TestRestore_Missing(t *testing.T) {
	base := t.TempDir()
	r := NewRestorer(state.NewInMemoryStore(), NewFilesystemSnapshotter(base), NewFilesystemManifest(base), nil)
	if _, err := r.Restore(context.Background(), ""); !Error.Has(err) {
		t.Fatalf("missing manifest: %v", err)
	}
	if _, err := r.Restore(context.Background(), "nope"); !Error.Has(err) {
		t.Fatalf("missing snapshot: %v", err)
	}

	if err := os.MkdirAll(filepath.Join(base, "bad"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(base, "bad", DataFile), []byte("{"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := r.Restore(context.Background(), "bad"); !Error.Has(err) {
		t.Fatalf("corrupt snapshot: %v", err)
	}
}

type rejectStore struct {
	*state.InMemoryStore
	reject string
}

func (r rejectStore) Put(ctx context.Context, l model.Launch) error {
	if l.LaunchID == r.reject {
		return errors.New("throttled")
	}
	return r.InMemoryStore.Put(ctx, l)
}

func TestRestore_CountsFailedWrites(t *testing.T) {
	ctx := context.Background()
	base := t.TempDir()
	src := state.NewInMemoryStore()
	fill(t, src, "1", "2", "3")
	snap := NewFilesystemSnapshotter(base)
	if _, err := snap.WriteSnapshot(ctx, "s", src); err != nil {
		t.Fatal(err)
	}
	dst := rejectStore{InMemoryStore: state.NewInMemoryStore(), reject: "2"}
	res, err := NewRestorer(dst, snap, nil, nil).Restore(ctx, "s")
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if res.Applied != 2 || res.Failed != 1 || dst.Len() != 2 {
		t.Fatalf("unexpected: %+v len=%d", res, dst.Len())
	}
}
