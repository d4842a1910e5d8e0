// Package kvstore is durable string storage for widget state: cart orders
// keyed by widget id and the catalog cache under its fixed key.
package kvstore

import "context"

// Store is the persistence contract. Get reports presence explicitly so an
// absent key is not confused with an empty value.
type Store interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
}
