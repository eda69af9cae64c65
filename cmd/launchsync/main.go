package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"go.uber.org/zap"

	"launchsync/internal/config"
	"launchsync/internal/handler"
	"launchsync/internal/metrics"
	"launchsync/internal/pipeline"
	"launchsync/internal/source"
)

func main() {
	os.Exit(launch(os.Args[1:]))
}

// launch returns the process exit code. Every deferred close and the logger
// flush have run by the time it returns.
func launch(args []string) int {
	fs := flag.NewFlagSet("launchsync", flag.ContinueOnError)
	flags := config.BindFlags(fs)
	mode := fs.String("mode", "once", "run mode: lambda|serve|once")
	manual := fs.Bool("manual", false, "once mode: run as a manual invocation with table details")
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

	if err := run(cfg, *mode, *manual, logger); err != nil {
		logger.Error("launchsync failed", zap.Error(err))
		return 1
	}
	return 0
}

func run(cfg config.Config, mode string, manual bool, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// one storage client per process, reused by every invocation
	st, closeStore, err := cfg.OpenStore(ctx)
	if err != nil {
		return fmt.Errorf("open %s store: %w", cfg.StateBackend, err)
	}
	defer func() { _ = closeStore() }()

	clog, closeClog, err := cfg.OpenChangelog(logger)
	if err != nil {
		return fmt.Errorf("open changelog: %w", err)
	}
	defer func() { _ = closeClog() }()

	mreg := metrics.NewRegistry()
	fetcher := source.New(cfg.SourceURL, cfg.FetchTimeout, logger.Named("source"))
	orch := pipeline.NewOrchestrator(st, clog, mreg, logger.Named("pipeline"))
	h := handler.New(fetcher, orch, st, cfg.Table, mreg, logger.Named("handler"))

	logger.Info("starting launchsync",
		zap.String("mode", mode), zap.String("backend", cfg.StateBackend),
		zap.String("table", cfg.Table), zap.String("source", cfg.SourceURL))

	switch mode {
	case "lambda":
		lambda.StartWithOptions(h.HandleEvent, lambda.WithContext(ctx))
		return nil
	case "serve":
		return serve(ctx, cfg, h, mreg, logger)
	case "once":
		trig := handler.ScheduledTrigger
		if manual {
			trig = handler.Trigger{Source: handler.ManualSource}
		}
		return printResponse(h.Handle(ctx, trig))
	}
	return fmt.Errorf("unknown mode %q", mode)
}

// printResponse writes the response with its body expanded, the way a person reading a terminal wants it.
func printResponse(resp handler.Response) error {
	out := struct {
		StatusCode int               `json:"statusCode"`
		Headers    map[string]string `json:"headers"`
		Body       json.RawMessage   `json:"body"`
	}{resp.StatusCode, resp.Headers, json.RawMessage(resp.Body)}
	b, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("encode response: %w", err)
	}
	fmt.Println(string(b))
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("invocation returned %d", resp.StatusCode)
	}
	return nil
}

// serialHandler keeps scheduled and HTTP-triggered runs from overlapping.
type serialHandler struct {
	mu sync.Mutex
	h  *handler.Handler
}

func (s *serialHandler) Handle(ctx context.Context, t handler.Trigger) handler.Response {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.h.Handle(ctx, t)
}

func (s *serialHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.h.ServeHTTP(w, r)
}

func serve(ctx context.Context, cfg config.Config, h *handler.Handler, mreg *metrics.Registry, logger *zap.Logger) error {
	sh := &serialHandler{h: h}

	mux := http.NewServeMux()
	mux.Handle("POST /invoke", sh)
	mux.Handle("GET /metrics", mreg.Handler())
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"status": "ok"})
	})
	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(cfg.ScheduleInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				resp := sh.Handle(ctx, handler.ScheduledTrigger)
				logger.Info("scheduled run finished", zap.Int("status", resp.StatusCode))
			}
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http listening", zap.String("addr", cfg.HTTPAddr), zap.Duration("schedule", cfg.ScheduleInterval))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
		logger.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	wg.Wait()
	return err
}
