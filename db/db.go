package db

import (
	"fmt"
)

// Getter reads key/value pairs from a bucket. A missing key yields a
// nil value, not an error.
type Getter interface {
	Get(bucket string, key []byte) ([]byte, error)
	GetAll(bucket string, keyPrefix []byte) ([][]byte, error)
}

// Putter writes key/value pairs to a bucket.
type Putter interface {
	Put(bucket string, key, value []byte) error
	Delete(bucket string, key []byte) error
}

// Database is the generic operation interface a storage backend
// has to provide.
type Database interface {
	Getter
	Putter
	NewBucket(name string) error
	Close() error
}

// Ctor creates a backend instance at the specified file path.
type Ctor func(path string) Database

var constructors = make(map[string]Ctor)

// Register makes a backend available under the given name. Backends
// call this from their init function.
func Register(name string, ctor Ctor) {
	constructors[name] = ctor
}

// GetDB looks up the constructor of a registered backend.
func GetDB(name string) (Ctor, error) {
	ctor, ok := constructors[name]
	if !ok {
		return nil, fmt.Errorf("database %s not registered", name)
	}
	return ctor, nil
}
