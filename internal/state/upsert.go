package state

import (
	"context"

	"go.uber.org/zap"

	"launchsync/internal/model"
)

// Outcome reports which branch an upsert took.
type Outcome string

const (
	Created Outcome = "created"
	Updated Outcome = "updated"
)

// Upsert writes l under its launch_id, replacing any existing item.
//
// The existence check is best effort: a failed lookup is logged and treated
// as "absent", and nothing isolates the check from concurrent writers, so the
// Outcome may be wrong while the stored value is always the last write.
// Write failures are returned as Error and never swallowed.
func Upsert(ctx context.Context, st Store, l model.Launch, log *zap.Logger) (Outcome, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if l.LaunchID == "" {
		return "", Error.New("launch has no launch_id")
	}

	_, exists, err := st.Get(ctx, l.LaunchID)
	if err != nil {
		log.Error("existence check failed, assuming new item",
			zap.String("launch_id", l.LaunchID), zap.Error(err))
		exists = false
	}

	if err := st.Put(ctx, l); err != nil {
		log.Error("write failed", zap.String("launch_id", l.LaunchID), zap.Error(err))
		if !Error.Has(err) {
			err = Error.Wrap(err)
		}
		return "", err
	}

	out := Created
	if exists {
		out = Updated
	}
	log.Info("launch written", zap.String("launch_id", l.LaunchID), zap.String("result", string(out)))
	return out, nil
}
