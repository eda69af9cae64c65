package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"launchsync/internal/changelog"
	"launchsync/internal/config"
	"launchsync/internal/snapshot"
)

const manifestKey = "launchsync-manifest-latest"

type options struct {
	op             string
	snapshotID     string
	manifestSink   string
	manifestSource string
	topicSnapshots string
}

func main() {
	os.Exit(snapshotMain(os.Args[1:]))
}

// snapshotMain returns the process exit code once the store is closed and the log flushed.
func snapshotMain(args []string) int {
	fs := flag.NewFlagSet("snapshot", flag.ContinueOnError)
	flags := config.BindFlags(fs)
	var opts options
	fs.StringVar(&opts.op, "op", "write", "operation: write|restore")
	fs.StringVar(&opts.snapshotID, "id", "", "snapshot id (write: defaults to a UTC timestamp; restore: defaults to the manifest's latest)")
	fs.StringVar(&opts.manifestSink, "manifest-sink", "file", "manifest sink: file|kafka|both")
	fs.StringVar(&opts.manifestSource, "manifest-source", "file", "manifest source for restore: file|kafka")
	fs.StringVar(&opts.topicSnapshots, "topic-snapshots", "launchsync.snapshots", "kafka topic for the manifest (compacted)")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg, err := flags.Load()
	if err != nil {
		log.Printf("config: %v", err)
		return 1
	}
	logger, err := cfg.Logger()
	if err != nil {
		log.Printf("logger: %v", err)
		return 1
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, opts, logger); err != nil {
		logger.Error("snapshot failed", zap.String("op", opts.op), zap.Error(err))
		return 1
	}
	return 0
}

func run(cfg config.Config, opts options, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, closeStore, err := cfg.OpenStore(ctx)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() { _ = closeStore() }()

	snap := snapshot.NewFilesystemSnapshotter(cfg.SnapshotDir)
	fileManifest := snapshot.NewFilesystemManifest(cfg.SnapshotDir)

	switch opts.op {
	case "write":
		snapshotID := opts.snapshotID
		if snapshotID == "" {
			snapshotID = time.Now().UTC().Format("20060102T150405Z")
		}
		pub, closePub, err := publisher(cfg, fileManifest, opts.manifestSink, opts.topicSnapshots)
		if err != nil {
			return fmt.Errorf("manifest sink: %w", err)
		}
		defer func() { _ = closePub() }()
		if cfg.SnapshotS3.Bucket != "" {
			mirror, err := snapshot.NewS3Mirror(ctx, cfg.S3(), snap)
			if err != nil {
				return fmt.Errorf("s3 mirror: %w", err)
			}
			// local manifest first, then the bucket copy
			pub = snapshot.NewMultiPublisher(pub, mirror)
		}

		n, err := snap.WriteSnapshot(ctx, snapshotID, st)
		if err != nil {
			return fmt.Errorf("write snapshot: %w", err)
		}
		if err := pub.PublishLatest(ctx, snapshot.Manifest{SnapshotID: snapshotID, Items: n, Table: cfg.Table}); err != nil {
			return fmt.Errorf("publish manifest: %w", err)
		}
		logger.Info("snapshot written", zap.String("snapshot_id", snapshotID), zap.Int("items", n), zap.String("path", snap.Path(snapshotID)))
		return nil
	case "restore":
		var reader snapshot.Reader = fileManifest
		if opts.manifestSource == "kafka" {
			if cfg.KafkaBootstrap == "" {
				return fmt.Errorf("manifest-source=kafka needs -kafka-bootstrap")
			}
			reader = snapshot.NewKafkaReader(changelog.SplitBrokers(cfg.KafkaBootstrap), opts.topicSnapshots, manifestKey)
		}
		t0 := time.Now()
		res, err := snapshot.NewRestorer(st, snap, reader, logger).Restore(ctx, opts.snapshotID)
		if err != nil {
			return fmt.Errorf("restore: %w", err)
		}
		logger.Info("restore finished", zap.String("snapshot_id", res.SnapshotID),
			zap.Int("applied", res.Applied), zap.Int("failed", res.Failed), zap.Duration("took", time.Since(t0)))
		if res.Failed > 0 {
			return fmt.Errorf("%d launches failed to restore", res.Failed)
		}
		return nil
	}
	return fmt.Errorf("unknown op %q", opts.op)
}

func publisher(cfg config.Config, fileManifest *snapshot.FilesystemManifest, sink, topic string) (snapshot.Publisher, func() error, error) {
	nop := func() error { return nil }
	if sink == "file" || sink == "" {
		return fileManifest, nop, nil
	}
	if cfg.KafkaBootstrap == "" {
		return nil, nil, fmt.Errorf("manifest sink %q needs -kafka-bootstrap", sink)
	}
	km := snapshot.NewKafkaManifest(cfg.KafkaBootstrap, topic, manifestKey)
	switch sink {
	case "kafka":
		return km, km.Close, nil
	case "both":
		return snapshot.NewMultiPublisher(fileManifest, km), km.Close, nil
	}
	return nil, nil, fmt.Errorf("unknown manifest sink %q", sink)
}
