// Package memstore is an in-process implementation of the remote store
// contract. It backs the test suite and doubles as a reference for adapter
// semantics: snapshot-on-subscribe, snapshot-on-change, atomic transactions,
// and cached reads with fail-fast writes while the network is disabled.
//
// Documents round-trip through JSON on every read and write, so callers see
// the same wire-shaped values (strings, float64s, []any) a real remote
// adapter would deliver.
package memstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/m4rcusml/event-planner/internal/domain"
)

type subscriber struct {
	id         int
	collection string
	filters    []domain.Filter
	onSnapshot func([]*domain.Document)
	onError    func(error)
}

// Store is a goroutine-safe in-memory document store.
type Store struct {
	mu             sync.Mutex
	collections    map[string]map[string]map[string]any
	subscribers    []*subscriber
	nextSubID      int
	networkEnabled bool
}

// NewStore returns an empty store with the network enabled.
func NewStore() *Store {
	return &Store{
		collections:    make(map[string]map[string]map[string]any),
		networkEnabled: true,
	}
}

func (s *Store) Get(ctx context.Context, collection, id string) (*domain.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.collections[collection][id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &domain.Document{ID: id, Data: deepCopy(data)}, nil
}

func (s *Store) Query(ctx context.Context, collection string, filters ...domain.Filter) ([]*domain.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queryLocked(collection, filters), nil
}

func (s *Store) Set(ctx context.Context, collection, id string, data map[string]any, merge bool) error {
	s.mu.Lock()
	if err := s.writableLocked(); err != nil {
		s.mu.Unlock()
		return err
	}
	docs := s.collectionLocked(collection)
	next := deepCopy(data)
	if merge {
		if existing, ok := docs[id]; ok {
			merged := deepCopy(existing)
			for k, v := range next {
				merged[k] = v
			}
			next = merged
		}
	}
	docs[id] = next
	subs := s.subscribersForLocked(collection)
	s.mu.Unlock()

	s.notify(subs)
	return nil
}

func (s *Store) Update(ctx context.Context, collection, id string, partial map[string]any) error {
	s.mu.Lock()
	if err := s.writableLocked(); err != nil {
		s.mu.Unlock()
		return err
	}
	docs := s.collectionLocked(collection)
	existing, ok := docs[id]
	if !ok {
		s.mu.Unlock()
		return domain.ErrNotFound
	}
	merged := deepCopy(existing)
	for k, v := range deepCopy(partial) {
		merged[k] = v
	}
	docs[id] = merged
	subs := s.subscribersForLocked(collection)
	s.mu.Unlock()

	s.notify(subs)
	return nil
}

func (s *Store) Delete(ctx context.Context, collection, id string) error {
	s.mu.Lock()
	if err := s.writableLocked(); err != nil {
		s.mu.Unlock()
		return err
	}
	docs := s.collectionLocked(collection)
	if _, ok := docs[id]; !ok {
		s.mu.Unlock()
		return domain.ErrNotFound
	}
	delete(docs, id)
	subs := s.subscribersForLocked(collection)
	s.mu.Unlock()

	s.notify(subs)
	return nil
}

type memTx struct {
	store  *Store
	writes []txWrite
}

type txWrite struct {
	collection string
	id         string
	data       map[string]any
}

func (t *memTx) Get(collection, id string) (*domain.Document, error) {
	// Reads observe staged writes so a transaction sees its own effects.
	for i := len(t.writes) - 1; i >= 0; i-- {
		w := t.writes[i]
		if w.collection == collection && w.id == id {
			return &domain.Document{ID: id, Data: deepCopy(w.data)}, nil
		}
	}
	data, ok := t.store.collections[collection][id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &domain.Document{ID: id, Data: deepCopy(data)}, nil
}

func (t *memTx) Set(collection, id string, data map[string]any) error {
	t.writes = append(t.writes, txWrite{collection: collection, id: id, data: deepCopy(data)})
	return nil
}

// RunTransaction executes fn under the store lock, so transactions are fully
// serialized: reads and writes commit atomically and concurrent transactions
// on the same document cannot interleave.
func (s *Store) RunTransaction(ctx context.Context, fn func(tx domain.Tx) error) error {
	s.mu.Lock()
	if err := s.writableLocked(); err != nil {
		s.mu.Unlock()
		return err
	}
	tx := &memTx{store: s}
	if err := fn(tx); err != nil {
		s.mu.Unlock()
		return err
	}
	touched := make(map[string]bool)
	for _, w := range tx.writes {
		s.collectionLocked(w.collection)[w.id] = w.data
		touched[w.collection] = true
	}
	var subs []*subscriber
	for collection := range touched {
		subs = append(subs, s.subscribersForLocked(collection)...)
	}
	s.mu.Unlock()

	s.notify(subs)
	return nil
}

func (s *Store) Subscribe(ctx context.Context, collection string, filters []domain.Filter, onSnapshot func([]*domain.Document), onError func(error)) (domain.UnsubscribeFunc, error) {
	s.mu.Lock()
	s.nextSubID++
	sub := &subscriber{
		id:         s.nextSubID,
		collection: collection,
		filters:    filters,
		onSnapshot: onSnapshot,
		onError:    onError,
	}
	s.subscribers = append(s.subscribers, sub)
	initial := s.queryLocked(collection, filters)
	s.mu.Unlock()

	// Initial full-result-set delivery happens before Subscribe returns.
	onSnapshot(initial)

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, existing := range s.subscribers {
			if existing.id == sub.id {
				s.subscribers = append(s.subscribers[:i], s.subscribers[i+1:]...)
				return
			}
		}
	}, nil
}

func (s *Store) SetNetworkEnabled(ctx context.Context, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.networkEnabled = enabled
	return nil
}

// FailStreams invokes every active subscriber's onError, simulating a
// permission failure or stream teardown, and drops the subscriptions.
func (s *Store) FailStreams(err error) {
	s.mu.Lock()
	subs := s.subscribers
	s.subscribers = nil
	s.mu.Unlock()
	for _, sub := range subs {
		if sub.onError != nil {
			sub.onError(err)
		}
	}
}

func (s *Store) writableLocked() error {
	if !s.networkEnabled {
		return fmt.Errorf("%w: network disabled", domain.ErrUnavailable)
	}
	return nil
}

func (s *Store) collectionLocked(name string) map[string]map[string]any {
	docs, ok := s.collections[name]
	if !ok {
		docs = make(map[string]map[string]any)
		s.collections[name] = docs
	}
	return docs
}

func (s *Store) queryLocked(collection string, filters []domain.Filter) []*domain.Document {
	var out []*domain.Document
	for id, data := range s.collections[collection] {
		if matches(data, filters) {
			out = append(out, &domain.Document{ID: id, Data: deepCopy(data)})
		}
	}
	return out
}

func (s *Store) subscribersForLocked(collection string) []*subscriber {
	var out []*subscriber
	for _, sub := range s.subscribers {
		if sub.collection == collection {
			out = append(out, sub)
		}
	}
	return out
}

// notify delivers a fresh full result set to each subscriber. Result sets
// are computed per subscriber under the lock, but delivery runs outside it
// so a snapshot handler may call back into the store.
func (s *Store) notify(subs []*subscriber) {
	for _, sub := range subs {
		s.mu.Lock()
		snapshot := s.queryLocked(sub.collection, sub.filters)
		s.mu.Unlock()
		sub.onSnapshot(snapshot)
	}
}

func matches(data map[string]any, filters []domain.Filter) bool {
	for _, f := range filters {
		if fmt.Sprint(data[f.Field]) != fmt.Sprint(f.Value) {
			return false
		}
	}
	return true
}

// deepCopy round-trips v through JSON so stored data never aliases caller
// memory and reads come back wire-shaped.
func deepCopy(v map[string]any) map[string]any {
	raw, err := json.Marshal(v)
	if err != nil {
		// Document data is JSON-like by contract; non-serializable values
		// are a programming error.
		panic(fmt.Sprintf("memstore: non-JSON document data: %v", err))
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		panic(fmt.Sprintf("memstore: decode document data: %v", err))
	}
	return out
}
