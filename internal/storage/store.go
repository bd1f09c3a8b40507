// Package storage provides the persistent key-value stores that stand in for
// browser-local storage: one synchronous Get/Set surface over memory, a JSON
// file, BadgerDB, Redis or Postgres.
package storage

import (
	"errors"
	"strings"
)

// ErrUnavailable is wrapped by every driver error caused by the backing
// medium rather than by the caller
var ErrUnavailable = errors.New("storage unavailable")

// Store is a synchronous string key-value store
type Store interface {
	// Get returns the value under key and whether it was present
	Get(key string) (string, bool, error)
	Set(key, value string) error
}

// Driver is a Store that holds external resources
type Driver interface {
	Store
	Close() error
}

// namespaced joins a namespace prefix and a key for shared stores
func namespaced(namespace, key string) string {
	namespace = strings.TrimSpace(namespace)
	if namespace == "" {
		return key
	}
	return namespace + ":" + key
}
