// Package snapshot dumps the launches table to disk, tracks the latest dump
// in a manifest and loads a dump back into any state.Store.
package snapshot

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"

	"github.com/zeebo/errs"

	"launchsync/internal/model"
	"launchsync/internal/state"
)

// Error is the class of snapshot failures.
var Error = errs.Class("snapshot")

// DataFile is the per-snapshot file name under <baseDir>/<snapshotID>/.
const DataFile = "launches.json"

type Snapshotter interface {
	WriteSnapshot(ctx context.Context, snapshotID string, st state.Store) (int, error)
}

type FilesystemSnapshotter struct {
	baseDir string
}

func NewFilesystemSnapshotter(baseDir string) *FilesystemSnapshotter {
	return &FilesystemSnapshotter{baseDir: baseDir}
}

// Path returns where snapshotID is stored.
func (f *FilesystemSnapshotter) Path(snapshotID string) string {
	return filepath.Join(f.baseDir, snapshotID, DataFile)
}

// WriteSnapshot scans st and writes every launch, ordered by launch_id, as a
// JSON array. The file is written to a temp name and renamed into place so a
// reader never sees a partial snapshot. It returns the number of launches.
func (f *FilesystemSnapshotter) WriteSnapshot(ctx context.Context, snapshotID string, st state.Store) (int, error) {
	if snapshotID == "" {
		return 0, Error.New("empty snapshot id")
	}
	var all []model.Launch
	if err := st.Range(ctx, func(l model.Launch) error {
		all = append(all, l)
		return nil
	}); err != nil {
		return 0, Error.Wrap(err)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].LaunchID < all[j].LaunchID })
	if all == nil {
		all = []model.Launch{}
	}

	dir := filepath.Join(f.baseDir, snapshotID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, Error.New("mkdir: %v", err)
	}
	b, err := json.MarshalIndent(all, "", "  ")
	if err != nil {
		return 0, Error.New("encode: %v", err)
	}
	if err := writeAtomic(f.Path(snapshotID), b); err != nil {
		return 0, err
	}
	return len(all), nil
}

func writeAtomic(path string, b []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return Error.New("write: %v", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return Error.New("rename: %v", err)
	}
	return nil
}
