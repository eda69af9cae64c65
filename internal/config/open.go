package config

import (
	"context"

	"github.com/zeebo/errs"
	"go.uber.org/zap"

	"launchsync/internal/changelog"
	"launchsync/internal/state"
)

// OpenStore constructs the configured backend once per process. The returned
// close func is safe to call for backends that hold nothing open.
func (c Config) OpenStore(ctx context.Context) (state.Store, func() error, error) {
	nop := func() error { return nil }
	switch c.StateBackend {
	case "dynamodb":
		st, err := state.NewDynamoStore(ctx, c.Dynamo())
		if err != nil {
			return nil, nil, err
		}
		return st, nop, nil
	case "pebble":
		st, err := state.NewPebbleStore(c.PebbleDir)
		if err != nil {
			return nil, nil, err
		}
		return st, st.Close, nil
	case "badger":
		st, err := state.NewBadgerStore(c.BadgerDir)
		if err != nil {
			return nil, nil, err
		}
		return st, st.Close, nil
	case "redis":
		st, err := state.NewRedisStore(ctx, c.Redis, c.Table)
		if err != nil {
			return nil, nil, err
		}
		return st, st.Close, nil
	case "memory":
		return state.NewInMemoryStore(), nop, nil
	}
	return nil, nil, Error.New("unknown state backend %q", c.StateBackend)
}

// OpenChangelog returns nil when no sink is configured.
func (c Config) OpenChangelog(log *zap.Logger) (changelog.Writer, func() error, error) {
	var (
		writers []changelog.Writer
		closers []func() error
	)
	if c.ChangelogSink == "file" || c.ChangelogSink == "both" {
		fw, err := changelog.NewFileWriter(c.ChangelogDir, c.Table+".jsonl")
		if err != nil {
			return nil, nil, Error.Wrap(err)
		}
		writers = append(writers, fw)
	}
	if c.ChangelogSink == "kafka" || c.ChangelogSink == "both" {
		if c.KafkaBootstrap == "" {
			return nil, nil, Error.New("changelog sink %q needs a kafka bootstrap", c.ChangelogSink)
		}
		kw := changelog.NewKafkaWriter(c.KafkaBootstrap, c.ChangelogTopic)
		writers = append(writers, kw)
		closers = append(closers, kw.Close)
	}
	closeAll := func() error {
		var group errs.Group
		for _, fn := range closers {
			group.Add(fn())
		}
		return group.Err()
	}
	switch len(writers) {
	case 0:
		return nil, closeAll, nil
	case 1:
		log.Info("changelog enabled", zap.String("sink", c.ChangelogSink))
		return writers[0], closeAll, nil
	}
	log.Info("changelog enabled", zap.String("sink", c.ChangelogSink))
	return changelog.NewMultiWriter(writers...), closeAll, nil
}
