package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumechain/go-lume/db/memdb"
)

func key(b byte) []byte {
	return []byte{b, b, b, b}
}

func TestVersionedReadAtHeight(t *testing.T) {
	memorydb := memdb.New()
	height := int64(0)
	v, err := NewVersioned(memorydb, "TEST", func() int64 { return height })
	require.Nil(t, err)

	height = 1
	require.Nil(t, v.Insert(key(1), []byte("one")))
	height = 5
	require.Nil(t, v.Insert(key(1), []byte("five")))

	// Current read sees the newest version.
	b, err := v.Get(key(1))
	assert.Nil(t, err)
	assert.Equal(t, []byte("five"), b)

	// Point-in-time reads see the version live at that height.
	b, err = v.GetAt(key(1), 3)
	assert.Nil(t, err)
	assert.Equal(t, []byte("one"), b)

	b, err = v.GetAt(key(1), 0)
	assert.Nil(t, err)
	assert.Nil(t, b)

	// Unknown keys read as nil.
	b, err = v.Get(key(9))
	assert.Nil(t, err)
	assert.Nil(t, b)
}

func TestVersionedSameHeightReplaces(t *testing.T) {
	memorydb := memdb.New()
	height := int64(7)
	v, err := NewVersioned(memorydb, "TEST", func() int64 { return height })
	require.Nil(t, err)

	require.Nil(t, v.Insert(key(1), []byte("a")))
	require.Nil(t, v.Insert(key(1), []byte("b")))

	b, err := v.Get(key(1))
	assert.Nil(t, err)
	assert.Equal(t, []byte("b"), b)

	records, err := memorydb.GetAll("TEST", key(1))
	assert.Nil(t, err)
	assert.Equal(t, 1, len(records))
}

func TestVersionedDeleteAndRollback(t *testing.T) {
	memorydb := memdb.New()
	height := int64(0)
	v, err := NewVersioned(memorydb, "TEST", func() int64 { return height })
	require.Nil(t, err)

	height = 2
	require.Nil(t, v.Insert(key(1), []byte("live")))
	height = 4
	require.Nil(t, v.Delete(key(1)))

	b, err := v.Get(key(1))
	assert.Nil(t, err)
	assert.Nil(t, b)

	// The entity is still visible before the tombstone height.
	b, err = v.GetAt(key(1), 3)
	assert.Nil(t, err)
	assert.Equal(t, []byte("live"), b)

	// Rollback drops the tombstone and revives the entity.
	require.Nil(t, v.Rollback(3))
	b, err = v.Get(key(1))
	assert.Nil(t, err)
	assert.Equal(t, []byte("live"), b)

	// Rolling back below the insert removes it entirely.
	require.Nil(t, v.Rollback(1))
	b, err = v.Get(key(1))
	assert.Nil(t, err)
	assert.Nil(t, b)
}

func TestVersionedTrim(t *testing.T) {
	memorydb := memdb.New()
	height := int64(0)
	v, err := NewVersioned(memorydb, "TEST", func() int64 { return height })
	require.Nil(t, err)

	for _, h := range []int64{1, 2, 3} {
		height = h
		require.Nil(t, v.Insert(key(1), []byte{byte(h)}))
	}

	height = 10
	require.Nil(t, v.Trim(3))

	// The newest version below the boundary survives for current reads.
	b, err := v.Get(key(1))
	assert.Nil(t, err)
	assert.Equal(t, []byte{3}, b)

	// But history below the horizon is gone.
	_, err = v.GetAt(key(1), 1)
	assert.Equal(t, ErrHeightUnavailable, err)

	records, err := memorydb.GetAll("TEST", key(1))
	assert.Nil(t, err)
	assert.Equal(t, 1, len(records))
}

func TestVersionedTrimDropsDeadTombstones(t *testing.T) {
	memorydb := memdb.New()
	height := int64(0)
	v, err := NewVersioned(memorydb, "TEST", func() int64 { return height })
	require.Nil(t, err)

	height = 1
	require.Nil(t, v.Insert(key(1), []byte("x")))
	height = 2
	require.Nil(t, v.Delete(key(1)))

	height = 10
	require.Nil(t, v.Trim(5))

	records, err := memorydb.GetAll("TEST", key(1))
	assert.Nil(t, err)
	assert.Equal(t, 0, len(records))
}

func TestVersionedPersistentSkipsTrim(t *testing.T) {
	memorydb := memdb.New()
	height := int64(0)
	v, err := NewVersionedPersistent(memorydb, "TEST", func() int64 { return height })
	require.Nil(t, err)

	height = 1
	require.Nil(t, v.Insert(key(1), []byte("a")))
	height = 2
	require.Nil(t, v.Insert(key(1), []byte("b")))

	height = 10
	require.Nil(t, v.Trim(5))

	b, err := v.GetAt(key(1), 1)
	assert.Nil(t, err)
	assert.Equal(t, []byte("a"), b)
}
