// Command indexer runs the live ingestion path: it consumes spans from
// Kafka, admits them through the PreprocessorRateLimiter, and drives an
// IndexingManager's write/rollover state machine.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/segmentio/kafka-go"

	"github.com/ingestcluster/core/internal/chunkmanager"
	"github.com/ingestcluster/core/internal/config"
	"github.com/ingestcluster/core/internal/coordination"
	"github.com/ingestcluster/core/internal/logging"
	"github.com/ingestcluster/core/internal/metadata"
	"github.com/ingestcluster/core/internal/metrics"
	"github.com/ingestcluster/core/internal/objectstore"
	"github.com/ingestcluster/core/internal/ratelimit"
	"github.com/ingestcluster/core/internal/span"
)

func main() {
	cfg, err := config.LoadIndexer()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	log := logging.New(cfg.LogLevel)
	slog.SetDefault(log)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	coordClient, err := coordination.NewEtcdClient(cfg.CoordinationEndpoints, cfg.CoordinationTimeout, log)
	if err != nil {
		log.Error("failed to connect to coordination service", "error", err)
		os.Exit(1)
	}
	defer coordClient.Close()

	store, err := objectstore.NewDiskClient(cfg.ObjectStoreRoot)
	if err != nil {
		log.Error("failed to open object store", "error", err)
		os.Exit(1)
	}

	snapshots := metadata.NewSnapshotMetadataStore(coordClient, "snapshots", log)
	search := metadata.NewSearchMetadataStore(coordClient, "search", log)
	services := metadata.NewServiceMetadataStore(coordClient, "services", log)

	cmMetrics := metrics.NewChunkManagerMetrics()
	rlMetrics := metrics.NewRateLimiterMetrics()

	advertiseAddr := cfg.KafkaGroupID + ":indexer"
	manager := chunkmanager.NewIndexingManagerFromConfig(cfg, store, snapshots, search, advertiseAddr, cmMetrics, log)

	limiter, err := buildRateLimiter(ctx, services, cfg, rlMetrics, log)
	if err != nil {
		log.Error("failed to build rate limiter", "error", err)
		os.Exit(1)
	}

	adminMux := http.NewServeMux()
	adminMux.Handle("/metrics", promhttp.Handler())
	adminServer := &http.Server{Addr: cfg.MetricsAddr, Handler: adminMux}
	go func() {
		log.Info("starting metrics server", "addr", adminServer.Addr)
		if err := adminServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server failed", "error", err)
		}
	}()

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers: cfg.KafkaBrokers,
		Topic:   cfg.KafkaTopic,
		GroupID: cfg.KafkaGroupID,
	})
	defer reader.Close()

	log.Info("indexer started", "topic", cfg.KafkaTopic, "group_id", cfg.KafkaGroupID)

	go consumeLoop(ctx, reader, limiter, manager, log)

	<-ctx.Done()
	log.Info("shutdown signal received, draining rollovers")

	ok := manager.WaitForRollovers(context.Background())
	manager.ShutDown()
	_ = adminServer.Shutdown(context.Background())

	if !ok {
		log.Error("indexer shut down with a failed rollover in flight")
		os.Exit(1)
	}
	log.Info("indexer shut down cleanly")
}

func consumeLoop(ctx context.Context, reader *kafka.Reader, limiter *ratelimit.PreprocessorRateLimiter, manager *chunkmanager.IndexingManager, log *slog.Logger) {
	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Error("kafka read failed", "error", err)
			continue
		}

		rec, ok := span.FromKafkaMessage(&msg)
		if !ok {
			continue
		}
		if !limiter.Admit(&rec) {
			continue
		}

		if err := manager.AddMessage(ctx, rec.Bytes, rec.Size, rec.PartitionID, rec.Offset); err != nil {
			log.Error("ingestion stopped", "partition_id", rec.PartitionID, "error", err)
			return
		}
	}
}

func buildRateLimiter(ctx context.Context, services *metadata.ServiceMetadataStore, cfg *config.IndexerConfig, m *metrics.RateLimiterMetrics, log *slog.Logger) (*ratelimit.PreprocessorRateLimiter, error) {
	svcs := services.ListCached(ctx)

	configs := make([]ratelimit.ServiceConfig, 0, len(svcs))
	for _, svc := range svcs {
		rate := float64(svc.ThroughputBytes)
		if rate <= 0 {
			rate = float64(cfg.DefaultBucketRateBytesPerSec)
		}
		configs = append(configs, ratelimit.ServiceConfig{
			ServiceName:      svc.Name,
			PermitsPerSecond: rate,
			MaxBurstSeconds:  cfg.DefaultBucketBurstSeconds,
			InitializeWarm:   true,
		})
	}

	preprocessorCount := len(cfg.KafkaBrokers)
	if preprocessorCount < 1 {
		preprocessorCount = 1
	}
	return ratelimit.New(configs, preprocessorCount, m, log), nil
}
