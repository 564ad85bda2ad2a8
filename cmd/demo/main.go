// Command demo wires the mutable table up into the LSM tree host: load
// config, stand up logging and metrics, drive some writes, flush, and
// serve a debug endpoint until interrupted.
package main

import (
	"context"
	"flag"
	"fmt"
	"hash/fnv"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"lsmtable/pkg/config"
	"lsmtable/pkg/kvrecord"
	"lsmtable/pkg/lsmhost"
	"lsmtable/pkg/metrics"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file (optional)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "load config:", err)
		os.Exit(1)
	}
	initLogger(cfg)

	registry := prometheus.NewRegistry()
	collector := metrics.NewPrometheusCollector(registry)

	desc := kvrecord.Descriptor{
		ValueCountMaxPerBlock: cfg.Data.ValueCountMax,
		BlockCountMax:         cfg.Data.BlockCountMax,
	}

	host, err := lsmhost.New[string, kvrecord.Record](lsmhost.Options[string, kvrecord.Record]{
		Descriptor:     desc,
		ShardFunc:      shardByFNV,
		ShardCount:     cfg.Host.Shards,
		CommitCountMax: cfg.Table.CommitCountMax,
		BatchMultiple:  cfg.Table.BatchMultiple,
		FlushWorkers:   cfg.Host.FlushWorkers,
		Metrics:        collector,
	})
	if err != nil {
		slog.Error("failed to construct host", "err", err)
		os.Exit(1)
	}
	defer host.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	host.StartSoftFlushTicker(ctx, 5*time.Second, cfg.Table.CommitCountMax)

	seedDemoData(host)

	srv := &http.Server{
		Addr:    cfg.Host.DebugAddr,
		Handler: host.DebugRouter(registry),
	}
	go func() {
		slog.Info("debug server listening", "addr", cfg.Host.DebugAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("debug server error", "err", err)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)

	if err := host.FlushAll(shutdownCtx); err != nil {
		slog.Error("final flush failed", "err", err)
	}
}

func shardByFNV(k string, shardCount int) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(k))
	return int(h.Sum32()) % shardCount
}

func seedDemoData(host *lsmhost.Host[string, kvrecord.Record]) {
	host.Put(kvrecord.NewRecord("user:1", []byte("Alice")))
	host.Put(kvrecord.NewRecord("user:2", []byte("Bob")))
	host.Put(kvrecord.NewRecord("config:timeout", []byte("30s")))
	host.Delete("user:2")
	slog.Info("seeded demo data", "stats", host.Stats())
}

func initLogger(cfg config.Config) {
	var handler slog.Handler
	opts := &slog.HandlerOptions{AddSource: true}
	if cfg.Logger.JSON {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)
	slog.Info("logger initialized", "level", cfg.Logger.Level, "json", cfg.Logger.JSON)
}
