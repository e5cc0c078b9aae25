// Command graphd is the property-graph service's server entrypoint: a
// single cobra command that loads configuration, opens the store, runs
// recovery, builds the cache, and serves HTTP until an interrupt or
// SIGTERM triggers a graceful shutdown.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/elo-graph/elo/internal/config"
	"github.com/elo-graph/elo/internal/graph"
	"github.com/elo-graph/elo/internal/httpapi"
	"github.com/elo-graph/elo/internal/kv"
	"github.com/elo-graph/elo/internal/logging"
	"github.com/elo-graph/elo/internal/queryengine"
	"github.com/elo-graph/elo/internal/recovery"
	"github.com/elo-graph/elo/internal/whitelist"
	"github.com/elo-graph/elo/internal/writepath"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

var whitelistFile string

var rootCmd = &cobra.Command{
	Use:   "graphd",
	Short: "graphd - property-graph service",
	Long:  "A single-process property-graph service backed by an embedded ordered key-value store.",
	RunE:  runServe,
}

func init() {
	rootCmd.Flags().StringVar(&whitelistFile, "whitelist-file", "", "optional YAML file seeding/watching the field whitelist")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		logging.Errorf("graphd: %v", err)
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("graphd: loading config: %w", err)
	}

	store, err := kv.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("graphd: opening store: %w", err)
	}
	defer func() { _ = store.Close() }()

	if err := recovery.Run(store); err != nil {
		return fmt.Errorf("graphd: recovery: %w", err)
	}

	wl, err := whitelist.Load(store)
	if err != nil {
		return fmt.Errorf("graphd: loading whitelist: %w", err)
	}

	cache, err := graph.Build(store, wl)
	if err != nil {
		return fmt.Errorf("graphd: building cache: %w", err)
	}

	path := writepath.New(store, cache, wl)

	if whitelistFile != "" {
		fileCfg, err := whitelist.LoadFile(whitelistFile)
		if err != nil {
			return fmt.Errorf("graphd: reading whitelist file: %w", err)
		}
		rebuild := func() {
			next, err := graph.Build(store, wl)
			if err != nil {
				logging.Errorf("graphd: whitelist rebuild failed: %v", err)
				return
			}
			cache.Replace(next)
		}
		wl.Apply(fileCfg, rebuild)

		watcher, err := whitelist.WatchFile(whitelistFile, wl, rebuild)
		if err != nil {
			return fmt.Errorf("graphd: watching whitelist file: %w", err)
		}
		defer func() { _ = watcher.Close() }()
	}

	meterProvider, err := newMeterProvider()
	if err != nil {
		return fmt.Errorf("graphd: setting up metrics: %w", err)
	}
	defer func() { _ = meterProvider.Shutdown(context.Background()) }()
	otel.SetMeterProvider(meterProvider)

	qe := queryengine.New(store, cache)
	server := httpapi.New(store, path, qe, cache, cfg.APIKey, meterProvider.Meter("graphd"))

	httpSrv := &http.Server{
		Addr:    cfg.Addr(),
		Handler: server.Handler(),
	}

	serveErr := make(chan error, 1)
	go func() {
		logging.Infof("graphd: listening on %s", cfg.Addr())
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
			return
		}
		serveErr <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		return httpSrv.Shutdown(shutdownCtx)
	case err := <-serveErr:
		return err
	}
}

func newMeterProvider() (*sdkmetric.MeterProvider, error) {
	exporter, err := stdoutmetric.New(stdoutmetric.WithoutTimestamps())
	if err != nil {
		return nil, err
	}
	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(60*time.Second))
	return sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)), nil
}
