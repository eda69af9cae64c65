package state

import (
	"context"
	"testing"

	"launchsync/internal/model"
)

func TestBadgerStore_UpsertRange(t *testing.T) {
	ctx := context.Background()
	st, err := NewBadgerStore(t.TempDir())
	if err != nil {
		t.Fatalf("badger open: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	if out, err := Upsert(ctx, st, launch("1", 1, model.StatusSuccess), nil); err != nil || out != Created {
		t.Fatalf("first: out=%s err=%v", out, err)
	}
	if out, err := Upsert(ctx, st, launch("1", 1, model.StatusFailed), nil); err != nil || out != Updated {
		t.Fatalf("second: out=%s err=%v", out, err)
	}
	if err := st.Put(ctx, launch("2", 2, model.StatusUpcoming)); err != nil {
		t.Fatalf("put: %v", err)
	}

	seen := map[string]model.Status{}
	if err := st.Range(ctx, func(l model.Launch) error { seen[l.LaunchID] = l.Status; return nil }); err != nil {
		t.Fatalf("range: %v", err)
	}
	if len(seen) != 2 || seen["1"] != model.StatusFailed || seen["2"] != model.StatusUpcoming {
		t.Fatalf("unexpected scan: %v", seen)
	}
}
