// Command manager runs the cluster-wide reconciliation loop and hosts the
// ServiceMetadataStore-backed admin use cases. It owns no chunks itself;
// its only job is comparing object storage against declared snapshots and
// serving the semantics of the service-provisioning surface described in
// spec.md §6 (the HTTP/RPC transport for that surface is out of core scope).
package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ingestcluster/core/internal/chunkmanager"
	"github.com/ingestcluster/core/internal/clustererr"
	"github.com/ingestcluster/core/internal/config"
	"github.com/ingestcluster/core/internal/coordination"
	"github.com/ingestcluster/core/internal/logging"
	"github.com/ingestcluster/core/internal/metadata"
	"github.com/ingestcluster/core/internal/metrics"
	"github.com/ingestcluster/core/internal/objectstore"
	"github.com/ingestcluster/core/internal/reconcile"
	"github.com/ingestcluster/core/internal/serviceadmin"
)

func main() {
	cfg, err := config.LoadManager()
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
	services := metadata.NewServiceMetadataStore(coordClient, "services", log)
	admin := serviceadmin.NewUseCase(services)

	reconcileMetrics := metrics.NewReconcileMetrics()
	reconciler := reconcile.New(store, snapshots, chunkmanager.ChunkDataPrefix, cfg.ReconcileInterval, reconcileMetrics, log)

	adminMux := http.NewServeMux()
	adminMux.Handle("/metrics", promhttp.Handler())
	adminMux.HandleFunc("/services", servicesHandler(admin, log))
	adminServer := &http.Server{Addr: cfg.MetricsAddr, Handler: adminMux}
	go func() {
		log.Info("starting metrics server", "addr", adminServer.Addr)
		if err := adminServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server failed", "error", err)
		}
	}()

	log.Info("manager started", "reconcile_interval", cfg.ReconcileInterval)
	reconciler.Run(ctx)

	_ = adminServer.Shutdown(context.Background())
	log.Info("manager shut down cleanly")
}

// servicesHandler exposes the bare minimum of serviceadmin.UseCase over
// plain net/http: list and create, the two operations an operator needs to
// bootstrap throughput provisioning for a new service. Everything else in
// the admin surface (update owner, update partition assignment, delete)
// stays behind UseCase for now, reachable only from tests and future
// transport work.
func servicesHandler(admin *serviceadmin.UseCase, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		switch r.Method {
		case http.MethodGet:
			json.NewEncoder(w).Encode(admin.ListServices(ctx))
		case http.MethodPost:
			var body struct {
				Name  string `json:"name"`
				Owner string `json:"owner"`
			}
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				http.Error(w, "invalid request body", http.StatusBadRequest)
				return
			}
			if err := admin.CreateService(ctx, body.Name, body.Owner); err != nil {
				if errors.Is(err, clustererr.ErrAlreadyExists) {
					http.Error(w, err.Error(), http.StatusConflict)
					return
				}
				log.Error("create service failed", "name", body.Name, "error", err)
				http.Error(w, "internal error", http.StatusInternalServerError)
				return
			}
			w.WriteHeader(http.StatusCreated)
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	}
}
