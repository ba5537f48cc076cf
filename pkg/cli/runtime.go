package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/nimburion/documentdb/pkg/config"
	"github.com/nimburion/documentdb/pkg/observability/logger"
	"github.com/nimburion/documentdb/pkg/observability/metrics"
	"github.com/nimburion/documentdb/pkg/observability/tracing"
	"github.com/nimburion/documentdb/pkg/repository/document"
	"github.com/nimburion/documentdb/pkg/resilience"
	"github.com/nimburion/documentdb/pkg/security"
	"github.com/nimburion/documentdb/pkg/store"
	"github.com/nimburion/documentdb/pkg/version"
	"github.com/spf13/cobra"
)

// Runtime is everything one command invocation needs. Close releases it and
// writes the metrics snapshot.
type Runtime struct {
	Config  *config.Config
	Log     logger.Logger
	Adapter store.Adapter
	Metrics *metrics.Registry
	Tracing *tracing.TracerProvider

	printer     Printer
	zap         *logger.ZapLogger
	metricsFile string
	breaker     *resilience.Breaker
}

// Open loads configuration, the logger, tracing and the store adapter. The returned
// context carries the --timeout deadline.
func (a *App) Open(cmd *cobra.Command) (*Runtime, context.Context, context.CancelFunc, error) {
	printer, err := NewPrinter(a.output)
	if err != nil {
		return nil, nil, nil, err
	}
	cfg, log, err := LoadConfigAndLogger(a.configFile, a.envPrefix, a.secretFile)
	if err != nil {
		return nil, nil, nil, err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), a.timeout)
	rt := &Runtime{
		Config:      cfg,
		Log:         log.With("service", cfg.Service.Name, "command", cmd.Name()),
		Metrics:     metrics.NewRegistry(),
		printer:     printer,
		zap:         log,
		metricsFile: a.metricsFile,
	}
	if rt.metricsFile == "" {
		rt.metricsFile = cfg.Observability.MetricsFile
	}
	if rt.metricsFile != "" {
		if rt.metricsFile, err = security.CleanFilePath(rt.metricsFile); err != nil {
			cancel()
			return nil, nil, nil, fmt.Errorf("metrics file: %w", err)
		}
	}
	if cb := cfg.Store.CircuitBreaker; cb.MaxFailures > 0 {
		rt.breaker = document.NewStoreBreaker(cb.MaxFailures, cb.ResetTimeout)
	}

	rt.Tracing, err = tracing.NewTracerProvider(ctx, tracing.TracerConfig{
		ServiceName:    cfg.Service.Name,
		ServiceVersion: version.Current(cfg.Service.Name).Version,
		Environment:    cfg.Service.Environment,
		Endpoint:       cfg.Observability.TracingEndpoint,
		SampleRate:     cfg.Observability.TracingSampleRate,
		Enabled:        cfg.Observability.TracingEnabled,
	})
	if err != nil {
		cancel()
		return nil, nil, nil, fmt.Errorf("create tracer provider: %w", err)
	}

	rt.Adapter, err = a.opts.AdapterFactory(cfg.Store, rt.Log)
	if err != nil {
		cancel()
		_ = rt.Close()
		return nil, nil, nil, fmt.Errorf("open document store: %w", err)
	}
	if cfg.Store.EnsureSchema {
		if err := document.EnsureContainer(ctx, rt.Adapter, rt.ConnectorOptions()); err != nil {
			cancel()
			_ = rt.Close()
			return nil, nil, nil, err
		}
	}
	return rt, ctx, cancel, nil
}

// ConnectorOptions locates the configured container.
func (rt *Runtime) ConnectorOptions() document.ConnectorOptions {
	return document.ConnectorOptions{
		Container:         rt.Config.Store.Container,
		PartitionKeyField: rt.Config.Store.PartitionKeyField,
		IDField:           rt.Config.Store.IDField,
	}
}

// RepositoryOptions are the repository options the configuration implies.
func (rt *Runtime) RepositoryOptions() []document.Option {
	return []document.Option{
		document.WithLogger(rt.Log),
		document.WithContainer(rt.Config.Store.Container),
		document.WithMaxItemCount(rt.Config.Store.MaxItemCount),
	}
}

// Connector builds the instrumented connector for documents of type D, guarded by
// the store circuit breaker when one is configured.
func Connector[D document.Document](rt *Runtime) (document.Connector[D], error) {
	connector, err := document.NewConnector[D](rt.Adapter, rt.ConnectorOptions())
	if err != nil {
		return nil, err
	}
	if rt.breaker != nil {
		connector = document.Guard(connector, rt.breaker)
	}
	return document.Instrument(connector, document.InstrumentOptions{
		System:     document.SystemOf(rt.Adapter),
		Collection: rt.Config.Store.Container,
		Metrics:    rt.Metrics.Documents(),
		Tracer:     rt.Tracing.Tracer(tracing.InstrumentationName),
	}), nil
}

// Print renders v in the selected output format.
func (rt *Runtime) Print(w io.Writer, v any) error {
	return rt.printer.Print(w, v)
}

// Close releases the adapter, flushes spans and writes the metrics snapshot.
func (rt *Runtime) Close() error {
	var errs []error
	if rt.Adapter != nil {
		if err := rt.Adapter.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close document store: %w", err))
		}
	}
	if rt.Tracing != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := rt.Tracing.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown tracer provider: %w", err))
		}
	}
	if rt.metricsFile != "" {
		if err := rt.Metrics.WriteTextfile(rt.metricsFile); err != nil {
			errs = append(errs, err)
		}
	}
	if rt.zap != nil {
		// Sync on a terminal stderr reports ENOTTY; there is nothing to flush then.
		_ = rt.zap.Sync()
	}
	return errors.Join(errs...)
}

func (rt *Runtime) closeInto(err *error) {
	if cerr := rt.Close(); cerr != nil && *err == nil {
		*err = cerr
	}
}
