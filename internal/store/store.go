// Package store is the persistence boundary: a key-value store of JSON
// documents keyed by logical collection name. Mutations go through Update,
// which holds every named key for the duration of the callback so that
// multi-collection writes commit together or not at all.
package store

import "context"

// Collection keys.
const (
	Assets        = "assets"
	Requests      = "requests"
	LoanRequests  = "loanRequests"
	AssetReturns  = "assetReturns"
	Handovers     = "handovers"
	Dismantles    = "dismantles"
	Installations = "installations"
	Maintenance   = "maintenance"
	Users         = "users"
	Sequences     = "sequences"
)

// Tx is the view inside an Update callback. Get always reflects the latest
// committed state plus this transaction's own Puts.
type Tx interface {
	Get(key string, v any) error
	Put(key string, v any) error
}

// Store is the system of record. Implementations must guarantee that a
// reader never observes a subset of the writes made by one Update call.
type Store interface {
	// Get decodes the document under key into v. A missing key leaves v at
	// its zero value.
	Get(ctx context.Context, key string, v any) error
	// Update runs fn while holding every listed key. fn may only touch the
	// listed keys; returning an error discards all staged writes.
	Update(ctx context.Context, keys []string, fn func(tx Tx) error) error
	Close() error
}
