package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"

	"go.uber.org/zap"

	"launchsync/internal/model"
	"launchsync/internal/state"
)

// Restorer loads a snapshot back into a store with full-replace writes.
type Restorer struct {
	store  state.Store
	snap   *FilesystemSnapshotter
	reader Reader
	log    *zap.Logger
}

func NewRestorer(st state.Store, snap *FilesystemSnapshotter, r Reader, log *zap.Logger) *Restorer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Restorer{store: st, snap: snap, reader: r, log: log}
}

type RestoreResult struct {
	SnapshotID string
	Applied    int
	Failed     int
}

// Restore loads snapshotID, or the manifest's latest snapshot when it is
// empty. A launch that fails to write is logged and counted; the rest still load.
func (r *Restorer) Restore(ctx context.Context, snapshotID string) (RestoreResult, error) {
	if snapshotID == "" {
		m, err := r.reader.ReadLatest(ctx)
		if err != nil {
			return RestoreResult{}, err
		}
		snapshotID = m.SnapshotID
	}
	res := RestoreResult{SnapshotID: snapshotID}

	path := r.snap.Path(snapshotID)
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return res, Error.New("snapshot %s not found at %s", snapshotID, path)
	}
	if err != nil {
		return res, Error.New("read snapshot: %v", err)
	}
	var launches []model.Launch
	if err := json.Unmarshal(data, &launches); err != nil {
		return res, Error.New("unmarshal snapshot: %v", err)
	}

	for _, l := range launches {
		if err := ctx.Err(); err != nil {
			return res, Error.Wrap(err)
		}
		if err := r.store.Put(ctx, l); err != nil {
			r.log.Error("restore write failed", zap.String("launch_id", l.LaunchID), zap.Error(err))
			res.Failed++
			continue
		}
		res.Applied++
	}
	r.log.Info("snapshot restored",
		zap.String("snapshot_id", snapshotID), zap.Int("applied", res.Applied), zap.Int("failed", res.Failed))
	return res, nil
}
