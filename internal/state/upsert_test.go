package state

import (
	"context"
	"testing"

	"go.uber.org/zap/zaptest"

	"launchsync/internal/model"
)

func TestUpsert_CreatedThenUpdated(t *testing.T) {
	ctx := context.Background()
	log := zaptest.NewLogger(t)
	s := NewInMemoryStore()

	out, err := Upsert(ctx, s, launch("99", 99, model.StatusUpcoming), log)
	if err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	if out != Created {
		t.Fatalf("first upsert: got=%s want=created", out)
	}

	out, err = Upsert(ctx, s, launch("99", 99, model.StatusSuccess), log)
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	if out != Updated {
		t.Fatalf("second upsert: got=%s want=updated", out)
	}
	if s.Len() != 1 {
		t.Fatalf("want exactly one item, got %d", s.Len())
	}
	got, _, _ := s.Get(ctx, "99")
	if got.Status != model.StatusSuccess {
		t.Fatalf("second write should win: %+v", got)
	}
}

func TestUpsert_FailedCheckReportsCreated(t *testing.T) {
	ctx := context.Background()
	inner := NewInMemoryStore()
	_ = inner.Put(ctx, launch("5", 5, model.StatusSuccess))
	s := &flakyStore{Store: inner, failGet: true}

	out, err := Upsert(ctx, s, launch("5", 5, model.StatusFailed), zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if out != Created {
		t.Fatalf("failed existence check should report created, got %s", out)
	}
	got, _, _ := inner.Get(ctx, "5")
	if got.Status != model.StatusFailed {
		t.Fatalf("write should still happen: %+v", got)
	}
}

func TestUpsert_WriteFailurePropagates(t *testing.T) {
	s := &flakyStore{Store: NewInMemoryStore(), failPut: true}
	out, err := Upsert(context.Background(), s, launch("7", 7, model.StatusSuccess), zaptest.NewLogger(t))
	if err == nil {
		t.Fatalf("expected error")
	}
	if !Error.Has(err) {
		t.Fatalf("expected state error class, got %v", err)
	}
	if out != "" {
		t.Fatalf("no outcome on failure, got %s", out)
	}
}

func TestUpsert_EmptyLaunchID(t *testing.T) {
	s := NewInMemoryStore()
	if _, err := Upsert(context.Background(), s, model.Launch{}, nil); err == nil {
		t.Fatalf("expected error for empty launch_id")
	}
	if s.Len() != 0 {
		t.Fatalf("nothing should be written")
	}
}
