package memstore

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/libranexus/eventcore/pkg/eventstore"
)

// Relations is an in-memory eventstore.RelationsProvider.
type Relations struct {
	mu    sync.RWMutex
	pairs map[eventstore.Pair]struct{}
}

func NewRelations() *Relations {
	return &Relations{pairs: make(map[eventstore.Pair]struct{})}
}

func (r *Relations) Apply(ctx context.Context, ops []eventstore.RelationOp, batchSize int) error {
	var inserts, removes []eventstore.Pair
	for _, op := range ops {
		if op.Remove {
			removes = append(removes, op.Pair)
		} else {
			inserts = append(inserts, op.Pair)
		}
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return r.InsertMany(ctx, inserts, batchSize) })
	g.Go(func() error { return r.RemoveMany(ctx, removes, batchSize) })
	return g.Wait()
}

func (r *Relations) Insert(_ context.Context, key, stream string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pairs[eventstore.Pair{Key: key, Stream: stream}] = struct{}{}
	return nil
}

func (r *Relations) Remove(_ context.Context, key, stream string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.pairs, eventstore.Pair{Key: key, Stream: stream})
	return nil
}

func (r *Relations) InsertMany(_ context.Context, pairs []eventstore.Pair, _ int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range pairs {
		r.pairs[p] = struct{}{} // duplicates silently skipped: map insert is idempotent
	}
	return nil
}

func (r *Relations) RemoveMany(_ context.Context, pairs []eventstore.Pair, _ int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range pairs {
		delete(r.pairs, p)
	}
	return nil
}

func (r *Relations) GetByKey(_ context.Context, key string) ([]eventstore.Pair, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []eventstore.Pair
	for p := range r.pairs {
		if p.Key == key {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *Relations) GetByKeys(_ context.Context, keys []string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keySet := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		keySet[k] = struct{}{}
	}
	streamSet := make(map[string]struct{})
	for p := range r.pairs {
		if _, ok := keySet[p.Key]; ok {
			streamSet[p.Stream] = struct{}{}
		}
	}
	out := make([]string, 0, len(streamSet))
	for s := range streamSet {
		out = append(out, s)
	}
	return out, nil
}

func (r *Relations) RemoveByKeys(_ context.Context, keys []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	keySet := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		keySet[k] = struct{}{}
	}
	for p := range r.pairs {
		if _, ok := keySet[p.Key]; ok {
			delete(r.pairs, p)
		}
	}
	return nil
}

func (r *Relations) RemoveByStreams(_ context.Context, streams []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	streamSet := make(map[string]struct{}, len(streams))
	for _, s := range streams {
		streamSet[s] = struct{}{}
	}
	for p := range r.pairs {
		if _, ok := streamSet[p.Stream]; ok {
			delete(r.pairs, p)
		}
	}
	return nil
}
