// Package redisstore implements the remote store contract on Redis.
// Each collection lives in one hash (document id -> JSON), every write
// publishes the document id on the collection's change channel, and
// subscribers re-query on each message to deliver full result-set
// snapshots. Transactions use WATCH/MULTI/EXEC with transparent retries on
// contention.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/go-redis/redis/v8"

	"github.com/m4rcusml/event-planner/internal/domain"
)

// txMaxRetries bounds WATCH retry attempts before surfacing contention to
// the caller.
const txMaxRetries = 5

// Store is a Redis-backed document store.
type Store struct {
	client *redis.Client
	log    *slog.Logger

	mu             sync.Mutex
	networkEnabled bool
	// cache holds the last JSON seen per document, served to reads while
	// the network is disabled.
	cache map[string]map[string]string
}

// Open connects to the Redis instance at url and verifies the connection.
func Open(ctx context.Context, url string, log *slog.Logger) (*Store, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", translate(err))
	}
	return New(client, log), nil
}

// New wraps an existing client. The network starts enabled.
func New(client *redis.Client, log *slog.Logger) *Store {
	return &Store{
		client:         client,
		log:            log,
		networkEnabled: true,
		cache:          make(map[string]map[string]string),
	}
}

// Close releases the underlying client.
func (s *Store) Close() error {
	return s.client.Close()
}

func hashKey(collection string) string {
	return "docs:" + collection
}

func changeChannel(collection string) string {
	return "changes:" + collection
}

func (s *Store) Get(ctx context.Context, collection, id string) (*domain.Document, error) {
	if !s.online() {
		return s.cachedGet(collection, id)
	}
	raw, err := s.client.HGet(ctx, hashKey(collection), id).Result()
	if err != nil {
		return nil, translate(err)
	}
	s.remember(collection, id, raw)
	return decodeDocument(id, raw)
}

func (s *Store) Query(ctx context.Context, collection string, filters ...domain.Filter) ([]*domain.Document, error) {
	if !s.online() {
		return s.cachedQuery(collection, filters)
	}
	raw, err := s.client.HGetAll(ctx, hashKey(collection)).Result()
	if err != nil {
		return nil, translate(err)
	}
	docs := make([]*domain.Document, 0, len(raw))
	for id, value := range raw {
		s.remember(collection, id, value)
		doc, err := decodeDocument(id, value)
		if err != nil {
			return nil, err
		}
		if matches(doc.Data, filters) {
			docs = append(docs, doc)
		}
	}
	return docs, nil
}

func (s *Store) Set(ctx context.Context, collection, id string, data map[string]any, merge bool) error {
	if !s.online() {
		return fmt.Errorf("%w: network disabled", domain.ErrUnavailable)
	}
	next := data
	if merge {
		existing, err := s.client.HGet(ctx, hashKey(collection), id).Result()
		switch {
		case err == nil:
			doc, decErr := decodeDocument(id, existing)
			if decErr != nil {
				return decErr
			}
			merged := doc.Data
			for k, v := range data {
				merged[k] = v
			}
			next = merged
		case errors.Is(err, redis.Nil):
			// No existing document; plain set.
		default:
			return translate(err)
		}
	}
	raw, err := json.Marshal(next)
	if err != nil {
		return fmt.Errorf("encode document %s/%s: %w", collection, id, err)
	}
	if err := s.client.HSet(ctx, hashKey(collection), id, raw).Err(); err != nil {
		return translate(err)
	}
	s.remember(collection, id, string(raw))
	s.publish(ctx, collection, id)
	return nil
}

func (s *Store) Update(ctx context.Context, collection, id string, partial map[string]any) error {
	if !s.online() {
		return fmt.Errorf("%w: network disabled", domain.ErrUnavailable)
	}
	// Guarded read-merge-write; full serialization goes through
	// RunTransaction instead.
	existing, err := s.client.HGet(ctx, hashKey(collection), id).Result()
	if err != nil {
		return translate(err)
	}
	doc, err := decodeDocument(id, existing)
	if err != nil {
		return err
	}
	for k, v := range partial {
		doc.Data[k] = v
	}
	raw, err := json.Marshal(doc.Data)
	if err != nil {
		return fmt.Errorf("encode document %s/%s: %w", collection, id, err)
	}
	if err := s.client.HSet(ctx, hashKey(collection), id, raw).Err(); err != nil {
		return translate(err)
	}
	s.remember(collection, id, string(raw))
	s.publish(ctx, collection, id)
	return nil
}

func (s *Store) Delete(ctx context.Context, collection, id string) error {
	if !s.online() {
		return fmt.Errorf("%w: network disabled", domain.ErrUnavailable)
	}
	removed, err := s.client.HDel(ctx, hashKey(collection), id).Result()
	if err != nil {
		return translate(err)
	}
	if removed == 0 {
		return domain.ErrNotFound
	}
	s.forget(collection, id)
	s.publish(ctx, collection, id)
	return nil
}

type redisTx struct {
	ctx    context.Context
	tx     *redis.Tx
	writes []txWrite
}

type txWrite struct {
	collection string
	id         string
	raw        []byte
}

func (t *redisTx) Get(collection, id string) (*domain.Document, error) {
	for i := len(t.writes) - 1; i >= 0; i-- {
		w := t.writes[i]
		if w.collection == collection && w.id == id {
			return decodeDocument(id, string(w.raw))
		}
	}
	raw, err := t.tx.HGet(t.ctx, hashKey(collection), id).Result()
	if err != nil {
		return nil, translate(err)
	}
	return decodeDocument(id, raw)
}

func (t *redisTx) Set(collection, id string, data map[string]any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode document %s/%s: %w", collection, id, err)
	}
	t.writes = append(t.writes, txWrite{collection: collection, id: id, raw: raw})
	return nil
}

// RunTransaction watches the collection hashes touched by fn and commits
// its staged writes atomically. On contention the whole function is re-run,
// up to txMaxRetries times.
//
// Watching the collection hash is coarser than per-document watches, but it
// is what guarantees the read-modify-write of a guest list never commits
// over a concurrent change.
func (s *Store) RunTransaction(ctx context.Context, fn func(tx domain.Tx) error) error {
	if !s.online() {
		return fmt.Errorf("%w: network disabled", domain.ErrUnavailable)
	}
	watched := []string{hashKey(domain.CollectionEvents), hashKey(domain.CollectionUsers)}

	for attempt := 0; attempt < txMaxRetries; attempt++ {
		var staged []txWrite
		err := s.client.Watch(ctx, func(tx *redis.Tx) error {
			wrapped := &redisTx{ctx: ctx, tx: tx}
			if err := fn(wrapped); err != nil {
				return err
			}
			staged = wrapped.writes
			_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				for _, w := range wrapped.writes {
					pipe.HSet(ctx, hashKey(w.collection), w.id, w.raw)
				}
				return nil
			})
			return err
		}, watched...)

		if errors.Is(err, redis.TxFailedErr) {
			s.log.Debug("transaction contention, retrying", "attempt", attempt+1)
			continue
		}
		if err != nil {
			return translate(err)
		}
		for _, w := range staged {
			s.remember(w.collection, w.id, string(w.raw))
			s.publish(ctx, w.collection, w.id)
		}
		return nil
	}
	return fmt.Errorf("%w: transaction contention persisted after %d attempts", domain.ErrUnavailable, txMaxRetries)
}

// Subscribe delivers the current result set immediately, then re-queries
// and delivers a fresh snapshot on every change published for the
// collection. The stream does not self-heal: on error the subscriber loop
// stops after onError, and the caller resubscribes.
func (s *Store) Subscribe(ctx context.Context, collection string, filters []domain.Filter, onSnapshot func([]*domain.Document), onError func(error)) (domain.UnsubscribeFunc, error) {
	if !s.online() {
		return nil, fmt.Errorf("%w: network disabled", domain.ErrUnavailable)
	}
	pubsub := s.client.Subscribe(ctx, changeChannel(collection))
	// Force the subscription onto the wire before the first snapshot, so no
	// change between snapshot and subscribe is missed.
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, translate(err)
	}

	initial, err := s.Query(ctx, collection, filters...)
	if err != nil {
		pubsub.Close()
		return nil, err
	}
	onSnapshot(initial)

	done := make(chan struct{})
	var closeOnce sync.Once
	unsubscribe := func() {
		closeOnce.Do(func() {
			close(done)
			pubsub.Close()
		})
	}

	go func() {
		ch := pubsub.Channel()
		for {
			select {
			case <-done:
				return
			case _, ok := <-ch:
				if !ok {
					select {
					case <-done:
						// Explicit unsubscribe; not an error.
					default:
						onError(fmt.Errorf("%w: change stream closed", domain.ErrUnavailable))
					}
					return
				}
				snapshot, err := s.Query(ctx, collection, filters...)
				if err != nil {
					onError(err)
					unsubscribe()
					return
				}
				onSnapshot(snapshot)
			}
		}
	}()

	return unsubscribe, nil
}

func (s *Store) SetNetworkEnabled(ctx context.Context, enabled bool) error {
	s.mu.Lock()
	s.networkEnabled = enabled
	s.mu.Unlock()
	s.log.Debug("store network state changed", "enabled", enabled)
	return nil
}

func (s *Store) online() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.networkEnabled
}

func (s *Store) publish(ctx context.Context, collection, id string) {
	if err := s.client.Publish(ctx, changeChannel(collection), id).Err(); err != nil {
		// Subscribers miss this change until the next one or a resubscribe;
		// the write itself already committed.
		s.log.Warn("publish change notification failed", "collection", collection, "id", id, "error", err)
	}
}

func (s *Store) remember(collection, id, raw string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	docs, ok := s.cache[collection]
	if !ok {
		docs = make(map[string]string)
		s.cache[collection] = docs
	}
	docs[id] = raw
}

func (s *Store) forget(collection, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.cache[collection], id)
}

func (s *Store) cachedGet(collection, id string) (*domain.Document, error) {
	s.mu.Lock()
	raw, ok := s.cache[collection][id]
	s.mu.Unlock()
	if !ok {
		return nil, domain.ErrNotFound
	}
	return decodeDocument(id, raw)
}

// cachedQuery serves last-known documents while offline. The cache only
// holds what this client has read, so results may be incomplete; that is
// within the adapter contract for disabled-network reads.
func (s *Store) cachedQuery(collection string, filters []domain.Filter) ([]*domain.Document, error) {
	s.mu.Lock()
	raws := make(map[string]string, len(s.cache[collection]))
	for id, raw := range s.cache[collection] {
		raws[id] = raw
	}
	s.mu.Unlock()

	var docs []*domain.Document
	for id, raw := range raws {
		doc, err := decodeDocument(id, raw)
		if err != nil {
			return nil, err
		}
		if matches(doc.Data, filters) {
			docs = append(docs, doc)
		}
	}
	return docs, nil
}

func decodeDocument(id, raw string) (*domain.Document, error) {
	var data map[string]any
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return nil, fmt.Errorf("decode document %s: %w", id, err)
	}
	return &domain.Document{ID: id, Data: data}, nil
}

func matches(data map[string]any, filters []domain.Filter) bool {
	for _, f := range filters {
		if fmt.Sprint(data[f.Field]) != fmt.Sprint(f.Value) {
			return false
		}
	}
	return true
}

// translate maps driver errors onto the domain taxonomy.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, redis.Nil):
		return domain.ErrNotFound
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %v", domain.ErrUnavailable, err)
	default:
		return fmt.Errorf("%w: %v", domain.ErrUnavailable, err)
	}
}
