package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"expansioncore/internal/blob"
	"expansioncore/internal/config"
	"expansioncore/internal/core"
	"expansioncore/pkg/domain"
)

// runtime holds everything one command invocation needs.
type runtime struct {
	cfg      config.Config
	store    domain.PersistentStore
	blobs    blob.Store
	svc      *core.Service
	operator string
	metrics  *http.Server
}

func openRuntime(cmd *cobra.Command, opts *rootOptions) (*runtime, error) {
	ctx := cmd.Context()
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}
	slogger, err := cfg.Log.NewLogger(cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}
	logger := core.NewSlogLogger(slogger)

	registry := prometheus.NewRegistry()
	recorder, err := core.NewPrometheusMetricsRecorder(registry)
	if err != nil {
		return nil, err
	}

	blobs, err := blob.Open(ctx, cfg.BlobConfig())
	if err != nil {
		return nil, fmt.Errorf("open blob store: %w", err)
	}
	store, err := core.OpenPersistentStore(ctx, cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	rt := &runtime{
		cfg:      cfg,
		store:    store,
		blobs:    blobs,
		operator: opts.operator,
		svc: core.NewService(store,
			core.WithLogger(logger),
			core.WithMetricsRecorder(recorder),
			core.WithAuditRecorder(core.NewLogAuditRecorder(logger)),
			core.WithBlobStore(blobs),
			core.WithBatchConcurrency(cfg.Batch.Concurrency),
		),
	}
	if opts.metricsAddr != "" {
		if err := rt.serveMetrics(opts.metricsAddr, registry); err != nil {
			_ = store.Close()
			return nil, err
		}
		slogger.Info("serving metrics", "addr", opts.metricsAddr)
	}
	return rt, nil
}

func (rt *runtime) serveMetrics(addr string, registry *prometheus.Registry) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen metrics: %w", err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{EnableOpenMetrics: true}))
	rt.metrics = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() { _ = rt.metrics.Serve(ln) }()
	return nil
}

func (rt *runtime) close() error {
	var errs []error
	if err := core.SaveSnapshot(rt.store, rt.cfg.Storage.SnapshotPath); err != nil {
		errs = append(errs, err)
	}
	if err := rt.store.Close(); err != nil {
		errs = append(errs, err)
	}
	if rt.metrics != nil {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = rt.metrics.Shutdown(ctx)
	}
	return errors.Join(errs...)
}

// run opens the runtime, calls fn and always persists and closes the store,
// so committed writes survive a failing command.
func run(cmd *cobra.Command, opts *rootOptions, fn func(ctx context.Context, rt *runtime) error) (err error) {
	rt, err := openRuntime(cmd, opts)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := rt.close(); cerr != nil {
			err = errors.Join(err, cerr)
		}
	}()
	return fn(cmd.Context(), rt)
}
