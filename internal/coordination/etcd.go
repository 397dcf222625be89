package coordination

import (
	"context"
	"errors"
	"log/slog"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"
)

// EtcdClient backs Client with a real etcd cluster, standing in for the
// ZooKeeper-style coordination service the design assumes: both give
// strongly-consistent paths with watches and a monotonic per-node version.
type EtcdClient struct {
	cli *clientv3.Client
	log *slog.Logger
}

// NewEtcdClient dials the given endpoints.
func NewEtcdClient(endpoints []string, dialTimeout time.Duration, log *slog.Logger) (*EtcdClient, error) {
	cli, err := clientv3.New(clientv3.Config{
		Endpoints:   endpoints,
		DialTimeout: dialTimeout,
	})
	if err != nil {
		return nil, errors.Join(ErrUnavailable, err)
	}
	return &EtcdClient{cli: cli, log: log}, nil
}

func (e *EtcdClient) Create(ctx context.Context, path string, value []byte) error {
	resp, err := e.cli.Txn(ctx).
		If(clientv3.Compare(clientv3.CreateRevision(path), "=", 0)).
		Then(clientv3.OpPut(path, string(value))).
		Commit()
	if err != nil {
		return errors.Join(ErrUnavailable, err)
	}
	if !resp.Succeeded {
		return ErrNodeExists
	}
	return nil
}

func (e *EtcdClient) Get(ctx context.Context, path string) (Node, error) {
	resp, err := e.cli.Get(ctx, path)
	if err != nil {
		return Node{}, errors.Join(ErrUnavailable, err)
	}
	if len(resp.Kvs) == 0 {
		return Node{}, ErrNodeNotFound
	}
	kv := resp.Kvs[0]
	return Node{Path: path, Value: kv.Value, Version: kv.Version}, nil
}

func (e *EtcdClient) Update(ctx context.Context, path string, value []byte) error {
	resp, err := e.cli.Txn(ctx).
		If(clientv3.Compare(clientv3.CreateRevision(path), "!=", 0)).
		Then(clientv3.OpPut(path, string(value))).
		Commit()
	if err != nil {
		return errors.Join(ErrUnavailable, err)
	}
	if !resp.Succeeded {
		return ErrNodeNotFound
	}
	return nil
}

func (e *EtcdClient) Delete(ctx context.Context, path string) error {
	resp, err := e.cli.Delete(ctx, path)
	if err != nil {
		return errors.Join(ErrUnavailable, err)
	}
	if resp.Deleted == 0 {
		return ErrNodeNotFound
	}
	return nil
}

func (e *EtcdClient) List(ctx context.Context, prefix string) ([]string, error) {
	resp, err := e.cli.Get(ctx, prefix, clientv3.WithPrefix(), clientv3.WithKeysOnly())
	if err != nil {
		return nil, errors.Join(ErrUnavailable, err)
	}
	out := make([]string, 0, len(resp.Kvs))
	for _, kv := range resp.Kvs {
		out = append(out, string(kv.Key))
	}
	return out, nil
}

func (e *EtcdClient) Watch(ctx context.Context, prefix string) (<-chan Event, <-chan error) {
	events := make(chan Event, 64)
	errs := make(chan error, 1)

	initial, err := e.cli.Get(ctx, prefix, clientv3.WithPrefix())
	if err != nil {
		errs <- errors.Join(ErrUnavailable, err)
		close(events)
		return events, errs
	}
	for _, kv := range initial.Kvs {
		events <- Event{Type: EventPut, Node: Node{Path: string(kv.Key), Value: kv.Value, Version: kv.Version}}
	}

	watchCh := e.cli.Watch(ctx, prefix, clientv3.WithPrefix(), clientv3.WithRev(initial.Header.Revision+1))

	go func() {
		defer close(events)
		for resp := range watchCh {
			if resp.Canceled {
				errs <- ErrSessionLost
				return
			}
			if err := resp.Err(); err != nil {
				e.log.Warn("coordination watch error", "prefix", prefix, "error", err)
				errs <- ErrSessionLost
				return
			}
			for _, ev := range resp.Events {
				evType := EventPut
				if ev.Type == clientv3.EventTypeDelete {
					evType = EventDelete
				}
				events <- Event{
					Type: evType,
					Node: Node{Path: string(ev.Kv.Key), Value: ev.Kv.Value, Version: ev.Kv.Version},
				}
			}
		}
	}()

	return events, errs
}

func (e *EtcdClient) Close() error {
	return e.cli.Close()
}
