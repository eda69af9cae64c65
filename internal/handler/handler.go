// Package handler is the invocation entry point shared by the Lambda runtime,
// the HTTP server and the one-shot CLI run.
package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"go.uber.org/zap"

	"launchsync/internal/metrics"
	"launchsync/internal/model"
	"launchsync/internal/pipeline"
	"launchsync/internal/report"
	"launchsync/internal/state"
)

const (
	msgSuccess     = "Procesamiento exitoso"
	msgSourceEmpty = "Error obteniendo datos de SpaceX"
	msgInternal    = "Error interno: "
)

// Fetcher is the source read used by Handle.
type Fetcher interface {
	Fetch(ctx context.Context) []model.RawLaunch
	URL() string
}

// Response is the HTTP-shaped result; it is exactly what API Gateway expects from a Lambda.
type Response = events.APIGatewayProxyResponse

type Summary struct {
	TotalProcessed int    `json:"total_processed"`
	NewRecords     int    `json:"new_records"`
	UpdatedRecords int    `json:"updated_records"`
	Errors         int    `json:"errors"`
	APIEndpoint    string `json:"api_endpoint"`
	TableName      string `json:"table_name"`
}

// SuccessBody is the JSON document in a 200 response.
type SuccessBody struct {
	Message       string          `json:"message"`
	ExecutionType Mode            `json:"execution_type"`
	Timestamp     string          `json:"timestamp"`
	Summary       Summary         `json:"summary"`
	Details       *report.Details `json:"details,omitempty"`
}

// Handler runs one invocation: fetch, process, respond.
type Handler struct {
	fetcher Fetcher
	orch    *pipeline.Orchestrator
	store   state.Store
	table   string
	metrics *metrics.Registry
	log     *zap.Logger
}

// New builds a Handler. The store is shared with orch and read for manual summaries.
func New(f Fetcher, orch *pipeline.Orchestrator, st state.Store, table string, m *metrics.Registry, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{fetcher: f, orch: orch, store: st, table: table, metrics: m, log: log}
}

// HandleEvent is the Lambda entry point.
func (h *Handler) HandleEvent(ctx context.Context, ev json.RawMessage) (Response, error) {
	return h.Handle(ctx, DecodeTrigger(ev)), nil
}

// Handle never fails: every error, and any panic, becomes a 500 response.
func (h *Handler) Handle(ctx context.Context, t Trigger) (resp Response) {
	mode := t.Mode()
	log := h.log.With(zap.String("execution_type", string(mode)))
	if rule, ok := t.manualRule(); ok {
		log = log.With(zap.String("manual_rule", rule))
	}
	defer func() {
		if r := recover(); r != nil {
			log.Error("invocation panicked", zap.Any("panic", r), zap.Stack("stack"))
			resp = errorResponse(http.StatusInternalServerError, msgInternal+fmt.Sprint(r))
		}
		if h.metrics != nil {
			h.metrics.Invocations.WithLabelValues(string(mode), strconv.Itoa(resp.StatusCode)).Inc()
		}
	}()

	log.Info("starting launch sync")
	resp, err := h.run(ctx, mode, log)
	if err != nil {
		log.Error("invocation failed", zap.Error(err))
		return errorResponse(http.StatusInternalServerError, msgInternal+err.Error())
	}
	return resp
}

func (h *Handler) run(ctx context.Context, mode Mode, log *zap.Logger) (Response, error) {
	t0 := time.Now()
	raws := h.fetcher.Fetch(ctx)
	if h.metrics != nil {
		h.metrics.FetchSec.Observe(time.Since(t0).Seconds())
		h.metrics.Fetched.Add(float64(len(raws)))
	}
	if len(raws) == 0 {
		// zero launches and an unreachable source look the same here
		log.Error("no launches from source", zap.String("url", h.fetcher.URL()))
		if h.metrics != nil {
			h.metrics.FetchFailures.Inc()
		}
		return errorResponse(http.StatusInternalServerError, msgSourceEmpty), nil
	}

	stats := h.orch.Run(ctx, raws)
	log.Info("processing complete",
		zap.Int("processed", stats.Processed), zap.Int("created", stats.Created),
		zap.Int("updated", stats.Updated), zap.Int("errors", stats.Errors))

	body := SuccessBody{
		Message:       msgSuccess,
		ExecutionType: mode,
		Timestamp:     model.Now().UTC().Format(time.RFC3339Nano),
		Summary: Summary{
			TotalProcessed: stats.Processed,
			NewRecords:     stats.Created,
			UpdatedRecords: stats.Updated,
			Errors:         stats.Errors,
			APIEndpoint:    h.fetcher.URL(),
			TableName:      h.table,
		},
	}
	if mode == Manual {
		d, err := report.Summarize(ctx, h.store, report.LatestN)
		if err != nil {
			return Response{}, fmt.Errorf("table summary: %w", err)
		}
		body.Details = &d
	}
	if h.metrics != nil {
		h.metrics.LastSuccessUnix.SetToCurrentTime()
	}
	return jsonResponse(http.StatusOK, body)
}

// ServeHTTP turns an HTTP request into a Trigger, so POST /invoke behaves like a manual Lambda call.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	t := Trigger{HTTPMethod: r.Method, Source: r.URL.Query().Get("source")}
	if len(body) > 0 {
		// presence is all that matters; keep it valid JSON either way
		t.Body, _ = json.Marshal(string(body))
	}
	resp := h.Handle(r.Context(), t)
	for k, v := range resp.Headers {
		w.Header().Set(k, v)
	}
	w.WriteHeader(resp.StatusCode)
	_, _ = io.WriteString(w, resp.Body)
}

func headers() map[string]string {
	return map[string]string{
		"Content-Type":                "application/json",
		"Access-Control-Allow-Origin": "*",
	}
}

func jsonResponse(code int, body any) (Response, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return Response{}, fmt.Errorf("encode response: %w", err)
	}
	return Response{StatusCode: code, Headers: headers(), Body: string(b)}, nil
}

// errorResponse bodies are a bare JSON string, for both modes.
func errorResponse(code int, msg string) Response {
	b, _ := json.Marshal(msg)
	return Response{StatusCode: code, Headers: headers(), Body: string(b)}
}
