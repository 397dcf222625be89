package metadata

import (
	"context"
	"log/slog"
	"sync"

	"github.com/ingestcluster/core/internal/coordination"
)

// watchCache maintains an eventually-consistent in-memory copy of every
// entity under a storeFolder, fed by the coordination client's watch
// stream. On session loss the cache is emptied and flagged stale: listCached
// returns empty until a fresh watch rebuilds it from scratch, per the
// documented failure semantics of listCached.
type watchCache[T any] struct {
	mu    sync.RWMutex
	byKey map[string]T
	stale bool

	client     coordination.Client
	prefix     string
	serializer Serializer[T]
	log        *slog.Logger
}

func newWatchCache[T any](ctx context.Context, client coordination.Client, prefix string, ser Serializer[T], log *slog.Logger) *watchCache[T] {
	c := &watchCache[T]{
		byKey:      make(map[string]T),
		client:     client,
		prefix:     prefix,
		serializer: ser,
		log:        log,
	}
	c.run(ctx)
	return c
}

func (c *watchCache[T]) snapshot() []T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.stale {
		return nil
	}
	out := make([]T, 0, len(c.byKey))
	for _, v := range c.byKey {
		out = append(out, v)
	}
	return out
}

func (c *watchCache[T]) run(ctx context.Context) {
	events, errs := c.client.Watch(ctx, c.prefix)
	go func() {
		for {
			select {
			case ev, ok := <-events:
				if !ok {
					return
				}
				c.apply(ev)
			case err, ok := <-errs:
				if !ok {
					return
				}
				c.log.Warn("metadata cache watch lost session", "prefix", c.prefix, "error", err)
				c.markStaleAndRewatch(ctx)
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

func (c *watchCache[T]) apply(ev coordination.Event) {
	switch ev.Type {
	case coordination.EventPut:
		entity, err := c.serializer.Deserialize(ev.Node.Value)
		if err != nil {
			c.log.Error("metadata cache deserialize failed", "path", ev.Node.Path, "error", err)
			return
		}
		c.mu.Lock()
		c.byKey[ev.Node.Path] = entity
		c.stale = false
		c.mu.Unlock()
	case coordination.EventDelete:
		c.mu.Lock()
		delete(c.byKey, ev.Node.Path)
		c.mu.Unlock()
	}
}

// markStaleAndRewatch empties the cache and flags it stale (subsequent
// listCached calls return empty), then immediately installs a fresh watch;
// the cache is rebuilt from that watch's events and the stale flag clears
// on the first node it applies.
func (c *watchCache[T]) markStaleAndRewatch(ctx context.Context) {
	c.mu.Lock()
	c.stale = true
	c.byKey = make(map[string]T)
	c.mu.Unlock()
	c.run(ctx)
}
