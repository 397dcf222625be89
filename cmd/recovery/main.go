// Command recovery re-indexes a bounded range of already-published spans
// into fresh chunks: unlike cmd/indexer it runs no rate limiter and drives
// multiple writer goroutines (one per partition) against a RecoveryManager,
// whose rollover executor stays single-threaded since upload is the
// bottleneck regardless of writer concurrency.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
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
	"github.com/ingestcluster/core/internal/span"
)

// task describes one partition's recovery range, read from
// RecoveryConfig.RecoveryTaskPath. The original offset bookkeeping lives
// entirely outside the core (it is reconstructed from the last committed
// SnapshotMetadata.maxOffset by an operator or a future automation layer);
// this file is the hand-off format between that layer and this process.
type task struct {
	Brokers []string    `json:"brokers"`
	Topic   string      `json:"topic"`
	Ranges  []taskRange `json:"ranges"`
}

type taskRange struct {
	PartitionID string `json:"partition_id"`
	Partition   int    `json:"partition"`
	StartOffset int64  `json:"start_offset"`
	EndOffset   int64  `json:"end_offset"`
}

func main() {
	cfg, err := config.LoadRecovery()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	log := logging.New(cfg.LogLevel)
	slog.SetDefault(log)

	if cfg.RecoveryTaskPath == "" {
		log.Error("RECOVERY_TASK_PATH is required")
		os.Exit(1)
	}
	t, err := loadTask(cfg.RecoveryTaskPath)
	if err != nil {
		log.Error("failed to load recovery task", "path", cfg.RecoveryTaskPath, "error", err)
		os.Exit(1)
	}

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
	cmMetrics := metrics.NewChunkManagerMetrics()

	manager := chunkmanager.NewRecoveryManagerFromConfig(cfg, store, snapshots, search, "recovery:"+cfg.RecoveryTaskPath, cmMetrics, log)

	adminMux := http.NewServeMux()
	adminMux.Handle("/metrics", promhttp.Handler())
	adminServer := &http.Server{Addr: cfg.MetricsAddr, Handler: adminMux}
	go func() {
		log.Info("starting metrics server", "addr", adminServer.Addr)
		if err := adminServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server failed", "error", err)
		}
	}()

	var wg sync.WaitGroup
	for _, r := range t.Ranges {
		wg.Add(1)
		go func(r taskRange) {
			defer wg.Done()
			recoverRange(ctx, t.Brokers, t.Topic, r, manager, log)
		}(r)
	}
	wg.Wait()

	ok := manager.WaitForRollovers(context.Background())
	manager.ShutDown()
	_ = adminServer.Shutdown(context.Background())

	if !ok {
		log.Error("recovery finished with a failed rollover")
		os.Exit(1)
	}
	log.Info("recovery finished cleanly")
}

func recoverRange(ctx context.Context, brokers []string, topic string, r taskRange, manager *chunkmanager.RecoveryManager, log *slog.Logger) {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:   brokers,
		Topic:     topic,
		Partition: r.Partition,
	})
	defer reader.Close()

	if err := reader.SetOffset(r.StartOffset); err != nil {
		log.Error("recovery: set offset failed", "partition_id", r.PartitionID, "error", err)
		return
	}

	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Error("recovery: kafka read failed", "partition_id", r.PartitionID, "error", err)
			return
		}
		if msg.Offset >= r.EndOffset {
			return
		}

		rec, ok := span.FromKafkaMessage(&msg)
		if !ok {
			continue
		}
		rec.PartitionID = r.PartitionID

		if err := manager.AddMessage(ctx, rec.Bytes, rec.Size, rec.PartitionID, rec.Offset); err != nil {
			log.Error("recovery: ingestion stopped", "partition_id", r.PartitionID, "error", err)
			return
		}
	}
}

func loadTask(path string) (task, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return task{}, err
	}
	var t task
	if err := json.Unmarshal(data, &t); err != nil {
		return task{}, err
	}
	return t, nil
}
