package persistence

import "context"

// DocumentStore persists one opaque JSON document per collection with
// replace semantics.
type DocumentStore interface {
	Put(ctx context.Context, name Collection, doc []byte) error
	Get(ctx context.Context, name Collection) ([]byte, error)
	Name() string
}

// Broadcaster delivers change notifications for a collection. Delivery is
// best effort, unordered and at most once.
type Broadcaster interface {
	Publish(ctx context.Context, name Collection, doc []byte) error
	Subscribe(ctx context.Context, name Collection) (<-chan []byte, func() error, error)
}
