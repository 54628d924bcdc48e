// Copyright 2026 The go-lume Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package boltdb

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBoltdb(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	bt := New(path)
	defer bt.Close()

	require.Nil(t, bt.NewBucket("TEST"))

	assert.Nil(t, bt.Put("TEST", []byte("alpha"), []byte("1")))
	assert.Nil(t, bt.Put("TEST", []byte("alps"), []byte("2")))
	assert.Nil(t, bt.Put("TEST", []byte("beta"), []byte("3")))

	v, err := bt.Get("TEST", []byte("alpha"))
	assert.Nil(t, err)
	assert.Equal(t, []byte("1"), v)

	v, err = bt.Get("TEST", []byte("missing"))
	assert.Nil(t, err)
	assert.Nil(t, v)

	vals, err := bt.GetAll("TEST", []byte("al"))
	assert.Nil(t, err)
	assert.Equal(t, 2, len(vals))

	assert.Nil(t, bt.Delete("TEST", []byte("alpha")))
	v, err = bt.Get("TEST", []byte("alpha"))
	assert.Nil(t, err)
	assert.Nil(t, v)
}
