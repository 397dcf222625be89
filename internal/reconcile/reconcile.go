// Package reconcile implements the Reconciliation service (spec.md §4.4):
// a periodic comparison of object-storage listings against declared
// snapshots, flagging orphans in either direction.
package reconcile

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"

	"github.com/ingestcluster/core/internal/metadata"
	"github.com/ingestcluster/core/internal/metrics"
	"github.com/ingestcluster/core/internal/objectstore"
)

// Result is one reconciliation pass's output. FilesWithoutSnapshots are
// deletion candidates (spec.md §9 open question: kept report-only here,
// see DESIGN.md decision 3). SnapshotsWithoutFiles indicate metadata drift
// and are reported only.
type Result struct {
	FilesWithoutSnapshots []string
	SnapshotsWithoutFiles []metadata.SnapshotMetadata
}

// Reconciler runs the reconciliation loop on a fixed schedule.
type Reconciler struct {
	store       objectstore.Client
	snapshots   *metadata.SnapshotMetadataStore
	chunkPrefix string
	interval    time.Duration
	metrics     *metrics.ReconcileMetrics
	log         *slog.Logger

	now func() time.Time
}

// New builds a Reconciler that lists chunkPrefix in store and compares
// against snapshots every interval.
func New(store objectstore.Client, snapshots *metadata.SnapshotMetadataStore, chunkPrefix string, interval time.Duration, m *metrics.ReconcileMetrics, log *slog.Logger) *Reconciler {
	return &Reconciler{
		store:       store,
		snapshots:   snapshots,
		chunkPrefix: chunkPrefix,
		interval:    interval,
		metrics:     m,
		log:         log,
		now:         time.Now,
	}
}

// Run blocks, executing one pass immediately and then every interval,
// until ctx is canceled.
func (r *Reconciler) Run(ctx context.Context) {
	r.runOnce(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.runOnce(ctx)
		}
	}
}

// runOnce executes exactly one reconciliation pass: spec.md §4.4 mandates
// listing files before snapshotting metadata, so a concurrent new-snapshot
// publication can at worst transiently appear as a file without a
// snapshot — never the reverse, which would be unsafe to ignore.
func (r *Reconciler) runOnce(ctx context.Context) {
	ctx, span := otel.Tracer("reconcile").Start(ctx, "Reconciler.runOnce")
	defer span.End()

	start := r.now()

	filePaths, err := r.store.List(ctx, r.chunkPrefix)
	if err != nil {
		r.log.Error("reconcile: list object store failed", "error", err)
		return
	}

	snapshots := r.snapshots.ListCached(ctx)

	result := Compare(filePaths, snapshots)

	r.metrics.RunsCompleted.Inc()
	r.metrics.OrphanFilesFound.Set(float64(len(result.FilesWithoutSnapshots)))
	r.metrics.OrphanSnapsFound.Set(float64(len(result.SnapshotsWithoutFiles)))
	r.metrics.LastRunDurationMs.Set(float64(r.now().Sub(start).Milliseconds()))

	if len(result.FilesWithoutSnapshots) > 0 {
		r.log.Warn("reconcile: files without snapshots", "count", len(result.FilesWithoutSnapshots))
	}
	if len(result.SnapshotsWithoutFiles) > 0 {
		r.log.Warn("reconcile: snapshots without files", "count", len(result.SnapshotsWithoutFiles))
	}
}

// Compare computes FilesWithoutSnapshots and SnapshotsWithoutFiles from
// plain slices, independent of any running object store or coordination
// client, so the comparison logic is unit-testable in isolation — carried
// over from the original's protected, independently-tested methods (see
// SPEC_FULL.md supplemented features).
func Compare(filePaths []string, snapshots []metadata.SnapshotMetadata) Result {
	snapshotPaths := make(map[string]struct{}, len(snapshots))
	for _, s := range snapshots {
		snapshotPaths[strings.Trim(s.SnapshotPath, "/")] = struct{}{}
	}

	var filesWithoutSnapshots []string
	for _, f := range filePaths {
		matched := false
		for _, p := range explodePath(f) {
			if _, ok := snapshotPaths[p]; ok {
				matched = true
				break
			}
		}
		if !matched {
			filesWithoutSnapshots = append(filesWithoutSnapshots, f)
		}
	}

	filePrefixes := make(map[string]struct{}, len(filePaths)*2)
	for _, f := range filePaths {
		for _, p := range explodePath(f) {
			filePrefixes[p] = struct{}{}
		}
	}

	var snapshotsWithoutFiles []metadata.SnapshotMetadata
	for _, s := range snapshots {
		if _, ok := filePrefixes[s.SnapshotPath]; !ok {
			snapshotsWithoutFiles = append(snapshotsWithoutFiles, s)
		}
	}

	return Result{
		FilesWithoutSnapshots: filesWithoutSnapshots,
		SnapshotsWithoutFiles: snapshotsWithoutFiles,
	}
}

// explodePath decomposes "a/b/c" into {"a", "a/b", "a/b/c"} so a
// directory-level snapshot path can match any file listed below it.
func explodePath(p string) []string {
	p = strings.Trim(p, "/")
	if p == "" {
		return nil
	}
	segments := strings.Split(p, "/")
	prefixes := make([]string, 0, len(segments))
	for i := range segments {
		prefixes = append(prefixes, strings.Join(segments[:i+1], "/"))
	}
	return prefixes
}
