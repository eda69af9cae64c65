package state

import (
	"context"
	"errors"

	"launchsync/internal/model"
)

func launch(id string, fn int64, status model.Status) model.Launch {
	return model.Launch{
		LaunchID:     id,
		FlightNumber: &fn,
		MissionName:  "M" + id,
		RocketName:   "Falcon 9",
		Status:       status,
		Payloads:     []model.Payload{},
		APIVersion:   model.APIVersion,
	}
}

// flakyStore wraps a Store and fails Get or Put on demand.
type flakyStore struct {
	Store
	failGet bool
	failPut bool
}

func (f *flakyStore) Get(ctx context.Context, id string) (model.Launch, bool, error) {
	if f.failGet {
		return model.Launch{}, false, errors.New("connection reset")
	}
	return f.Store.Get(ctx, id)
}

func (f *flakyStore) Put(ctx context.Context, l model.Launch) error {
	if f.failPut {
		return errors.New("throughput exceeded")
	}
	return f.Store.Put(ctx, l)
}
