package memdb

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMemdb(t *testing.T) {
	m := New()
	assert.Nil(t, m.NewBucket("TEST"))

	assert.Nil(t, m.Put("TEST", []byte("alpha"), []byte("1")))
	assert.Nil(t, m.Put("TEST", []byte("alps"), []byte("2")))
	assert.Nil(t, m.Put("TEST", []byte("beta"), []byte("3")))

	v, err := m.Get("TEST", []byte("alpha"))
	assert.Nil(t, err)
	assert.Equal(t, []byte("1"), v)

	v, err = m.Get("TEST", []byte("missing"))
	assert.Nil(t, err)
	assert.Nil(t, v)

	vals, err := m.GetAll("TEST", []byte("al"))
	assert.Nil(t, err)
	assert.Equal(t, 2, len(vals))

	assert.Nil(t, m.Delete("TEST", []byte("alpha")))
	v, err = m.Get("TEST", []byte("alpha"))
	assert.Nil(t, err)
	assert.Nil(t, v)

	assert.Nil(t, m.Close())
	_, err = m.Get("TEST", []byte("beta"))
	assert.NotNil(t, err)
}

func TestBucketIsolation(t *testing.T) {
	m := New()
	assert.Nil(t, m.Put("A", []byte("k"), []byte("a")))
	assert.Nil(t, m.Put("B", []byte("k"), []byte("b")))

	v, err := m.Get("A", []byte("k"))
	assert.Nil(t, err)
	assert.Equal(t, []byte("a"), v)

	v, err = m.Get("B", []byte("k"))
	assert.Nil(t, err)
	assert.Equal(t, []byte("b"), v)
}
