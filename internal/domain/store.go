package domain

import "context"

// Collection names used by the sync core.
const (
	CollectionEvents = "events"
	CollectionUsers  = "users"
)

// Document is a JSON-like record addressed by collection and id.
type Document struct {
	ID   string
	Data map[string]any
}

// Filter is a field-equality predicate for queries and subscriptions.
type Filter struct {
	Field string
	Value any
}

// Tx exposes reads and writes inside a store transaction. All reads and
// writes in one transaction commit atomically; the store may re-run the
// transaction function on contention, so it must be side-effect free apart
// from its Tx calls.
type Tx interface {
	Get(collection, id string) (*Document, error)
	Set(collection, id string, data map[string]any) error
}

// UnsubscribeFunc stops snapshot delivery and releases the server-side
// channel. Safe to call more than once.
type UnsubscribeFunc func()

// RemoteStore abstracts the remote document store: keyed CRUD, equality
// queries, atomic read-modify-write transactions, and live queries that push
// the full matching result set on every change.
//
// When the network is disabled via SetNetworkEnabled(false), reads may serve
// cached data and writes may queue or fail fast with ErrUnavailable; callers
// must not assume which.
type RemoteStore interface {
	Get(ctx context.Context, collection, id string) (*Document, error)
	Query(ctx context.Context, collection string, filters ...Filter) ([]*Document, error)
	Set(ctx context.Context, collection, id string, data map[string]any, merge bool) error
	Update(ctx context.Context, collection, id string, partial map[string]any) error
	Delete(ctx context.Context, collection, id string) error
	RunTransaction(ctx context.Context, fn func(tx Tx) error) error
	// Subscribe invokes onSnapshot with the full current result set once
	// immediately and again on every subsequent change to any matching
	// document. onError fires on permission failure or stream teardown.
	Subscribe(ctx context.Context, collection string, filters []Filter, onSnapshot func([]*Document), onError func(error)) (UnsubscribeFunc, error)
	SetNetworkEnabled(ctx context.Context, enabled bool) error
}
