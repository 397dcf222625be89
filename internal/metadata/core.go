package metadata

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/ingestcluster/core/internal/clustererr"
	"github.com/ingestcluster/core/internal/coordination"
)

// Serializer is the (de)serialize contract for one entity type: encode to a
// canonical UTF-8 string, decode the same, and ignore unknown fields on
// decode so older writers and newer readers stay forward compatible.
type Serializer[T any] interface {
	Serialize(entity T) ([]byte, error)
	Deserialize(data []byte) (T, error)
}

// jsonSerializer implements Serializer via encoding/json, which already
// ignores unknown fields on decode and produces canonical output for a
// struct with stable field order.
type jsonSerializer[T any] struct{}

func (jsonSerializer[T]) Serialize(entity T) ([]byte, error) { return json.Marshal(entity) }

func (jsonSerializer[T]) Deserialize(data []byte) (T, error) {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		var zero T
		return zero, err
	}
	return v, nil
}

// core is the generic layer every entity store embeds. It is unexported so
// that only the entity-specific wrapper types (SnapshotMetadataStore,
// SearchMetadataStore, ServiceMetadataStore) can reach it, and each wrapper
// exposes only the subset of methods its entity is allowed to use.
type core[T any] struct {
	client      coordination.Client
	storeFolder string
	serializer  Serializer[T]
	log         *slog.Logger

	cache *watchCache[T]
}

func newCore[T any](client coordination.Client, storeFolder string, log *slog.Logger) *core[T] {
	return &core[T]{
		client:      client,
		storeFolder: storeFolder,
		serializer:  jsonSerializer[T]{},
		log:         log,
	}
}

func (c *core[T]) path(entityName string) string {
	return nodePath(c.storeFolder, entityName)
}

func (c *core[T]) create(ctx context.Context, entityName string, entity T) error {
	data, err := c.serializer.Serialize(entity)
	if err != nil {
		return errors.Join(clustererr.ErrCorrupt, err)
	}
	err = c.client.Create(ctx, c.path(entityName), data)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, coordination.ErrNodeExists):
		return clustererr.ErrAlreadyExists
	case errors.Is(err, coordination.ErrUnavailable):
		return clustererr.ErrStoreUnavailable
	default:
		return err
	}
}

// get fetches and deserializes an entity. Per the store's documented
// contract (decided once, here, for every entity type — see DESIGN.md),
// a deserialize failure is surfaced as ErrCorrupt rather than silently
// treated as missing.
func (c *core[T]) get(ctx context.Context, entityName string) (T, error) {
	var zero T
	node, err := c.client.Get(ctx, c.path(entityName))
	switch {
	case err == nil:
		// fallthrough to deserialize below
	case errors.Is(err, coordination.ErrNodeNotFound):
		return zero, clustererr.ErrNotFound
	case errors.Is(err, coordination.ErrUnavailable):
		return zero, clustererr.ErrStoreUnavailable
	default:
		return zero, err
	}

	entity, err := c.serializer.Deserialize(node.Value)
	if err != nil {
		c.log.Error("metadata deserialize failed", "path", c.path(entityName), "error", err)
		return zero, clustererr.ErrCorrupt
	}
	return entity, nil
}

func (c *core[T]) update(ctx context.Context, entityName string, entity T) error {
	data, err := c.serializer.Serialize(entity)
	if err != nil {
		return errors.Join(clustererr.ErrCorrupt, err)
	}
	err = c.client.Update(ctx, c.path(entityName), data)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, coordination.ErrNodeNotFound):
		return clustererr.ErrNotFound
	case errors.Is(err, coordination.ErrUnavailable):
		return clustererr.ErrStoreUnavailable
	default:
		return err
	}
}

// delete removes entityName. ignoreMissing controls whether an absent node
// is treated as success (idempotent callers) or ErrNotFound (callers for
// whom a double-delete is a bug) — each entity store decides this for its
// own callers in DESIGN.md's open-question resolution.
func (c *core[T]) delete(ctx context.Context, entityName string, ignoreMissing bool) error {
	err := c.client.Delete(ctx, c.path(entityName))
	switch {
	case err == nil:
		return nil
	case errors.Is(err, coordination.ErrNodeNotFound):
		if ignoreMissing {
			return nil
		}
		return clustererr.ErrNotFound
	case errors.Is(err, coordination.ErrUnavailable):
		return clustererr.ErrStoreUnavailable
	default:
		return err
	}
}

func (c *core[T]) listCached(ctx context.Context) []T {
	c.ensureCache(ctx)
	return c.cache.snapshot()
}

func (c *core[T]) ensureCache(ctx context.Context) {
	if c.cache == nil {
		c.cache = newWatchCache(ctx, c.client, c.storeFolder, c.serializer, c.log)
	}
}

func (c *core[T]) list(ctx context.Context) ([]string, error) {
	paths, err := c.client.List(ctx, c.storeFolder)
	if err != nil {
		if errors.Is(err, coordination.ErrUnavailable) {
			return nil, clustererr.ErrStoreUnavailable
		}
		return nil, err
	}
	return paths, nil
}
