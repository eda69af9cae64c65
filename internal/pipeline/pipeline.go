// Package pipeline drives normalize and upsert over one fetched batch.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"launchsync/internal/changelog"
	"launchsync/internal/metrics"
	"launchsync/internal/model"
	"launchsync/internal/state"
)

// Stats are the per-run counters. Processed = Created + Updated; Errors are not processed.
type Stats struct {
	Processed int `json:"processed"`
	Created   int `json:"created"`
	Updated   int `json:"updated"`
	Errors    int `json:"errors"`
}

// Orchestrator processes records strictly one at a time, in source order.
type Orchestrator struct {
	store   state.Store
	clog    changelog.Writer
	metrics *metrics.Registry
	log     *zap.Logger
}

// NewOrchestrator wires the store and optional changelog/metrics (nil disables them).
func NewOrchestrator(st state.Store, clog changelog.Writer, m *metrics.Registry, log *zap.Logger) *Orchestrator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Orchestrator{store: st, clog: clog, metrics: m, log: log}
}

// Run normalizes and upserts every record. A failing record is logged and
// counted; it never stops the batch.
func (o *Orchestrator) Run(ctx context.Context, raws []model.RawLaunch) Stats {
	t0 := time.Now()
	var st Stats
	for _, raw := range raws {
		out, err := o.processOne(ctx, raw)
		if err != nil {
			o.log.Error("launch failed", zap.String("flight_number", raw.FlightLabel()), zap.Error(err))
			st.Errors++
			continue
		}
		st.Processed++
		switch out {
		case state.Created:
			st.Created++
		case state.Updated:
			st.Updated++
		}
	}
	if o.metrics != nil {
		o.metrics.Processed.Add(float64(st.Processed))
		o.metrics.Created.Add(float64(st.Created))
		o.metrics.Updated.Add(float64(st.Updated))
		o.metrics.Errors.Add(float64(st.Errors))
		o.metrics.RunSec.Observe(time.Since(t0).Seconds())
	}
	o.log.Info("batch finished",
		zap.Int("processed", st.Processed), zap.Int("created", st.Created),
		zap.Int("updated", st.Updated), zap.Int("errors", st.Errors))
	return st
}

func (o *Orchestrator) processOne(ctx context.Context, raw model.RawLaunch) (out state.Outcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	l := model.Normalize(raw)
	out, err = state.Upsert(ctx, o.store, l, o.log)
	if err != nil {
		return "", err
	}
	o.appendChange(ctx, l, out)
	return out, nil
}

// appendChange publishes the change; failures only show up in logs and metrics.
func (o *Orchestrator) appendChange(ctx context.Context, l model.Launch, out state.Outcome) {
	if o.clog == nil {
		return
	}
	c := changelog.Change{
		LaunchID:     l.LaunchID,
		FlightNumber: l.FlightNumber,
		Outcome:      string(out),
		Status:       string(l.Status),
		TS:           l.LastUpdated,
	}
	if err := o.clog.Append(ctx, c); err != nil {
		o.log.Warn("changelog append failed", zap.String("launch_id", l.LaunchID), zap.Error(err))
		if o.metrics != nil {
			o.metrics.ChangelogFailures.Inc()
		}
		return
	}
	if o.metrics != nil {
		o.metrics.ChangelogAppended.Inc()
	}
}
