package memdb

import (
	"fmt"
	"strings"
	"sync"

	"github.com/lumechain/go-lume/db"
)

func init() {
	db.Register("memdb", func(path string) db.Database { return New() })
}

type memdb struct {
	db map[string][]byte
	sync.RWMutex
}

// New creates a memory-based key-value store
// which is mainly used for testing.
func New() db.Database {
	return &memdb{db: make(map[string][]byte)}
}

func (m *memdb) NewBucket(name string) error {
	return nil
}

// Put writes the key/value pair to database.
func (m *memdb) Put(bucket string, key, value []byte) error {
	m.Lock()
	defer m.Unlock()

	if m.db == nil {
		return fmt.Errorf("memdb is closed")
	}

	v := make([]byte, len(value))
	copy(v, value)
	m.db[bucket+"/"+string(key)] = v
	return nil
}

// Delete deletes the key from the database.
func (m *memdb) Delete(bucket string, key []byte) error {
	m.Lock()
	defer m.Unlock()

	if m.db == nil {
		return fmt.Errorf("memdb is closed")
	}

	delete(m.db, bucket+"/"+string(key))
	return nil
}

// Get retrieves the value of the key from database.
func (m *memdb) Get(bucket string, key []byte) ([]byte, error) {
	m.RLock()
	defer m.RUnlock()

	if m.db == nil {
		return nil, fmt.Errorf("memdb is closed")
	}

	if val, ok := m.db[bucket+"/"+string(key)]; ok {
		return val, nil
	}
	return nil, nil
}

// GetAll retrieves the values of the keys with prefix from database.
func (m *memdb) GetAll(bucket string, keyPrefix []byte) ([][]byte, error) {
	m.RLock()
	defer m.RUnlock()

	if m.db == nil {
		return nil, fmt.Errorf("memdb is closed")
	}

	prefix := bucket + "/" + string(keyPrefix)
	var vals [][]byte
	for k, v := range m.db {
		if strings.HasPrefix(k, prefix) {
			vals = append(vals, v)
		}
	}
	return vals, nil
}

// Close closes the underlying database.
func (m *memdb) Close() error {
	m.Lock()
	defer m.Unlock()

	m.db = nil
	return nil
}
