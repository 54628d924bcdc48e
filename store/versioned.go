// Package store implements height-versioned entity storage on top of
// the generic db bucket interface. Every write opens a new version
// stamped with the current chain height, which makes point-in-time
// reads and rollback to an earlier height possible without touching
// the entities themselves.
package store

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/lumechain/go-lume/db"
)

var (
	// ErrHeightUnavailable reports a historical read below the
	// retained rollback horizon.
	ErrHeightUnavailable = errors.New("height not available for historical read")
)

// HeightFunc supplies the current chain height. Versioned tables call
// it on every write to stamp the new version.
type HeightFunc func() int64

// row is the stored envelope of one entity version. The entity key
// and height are embedded so that full-bucket scans used by trim and
// rollback can recover the db key of every row.
type row struct {
	Key     []byte `codec:"k"`
	Height  int64  `codec:"h"`
	Deleted bool   `codec:"d"`
	Payload []byte `codec:"p"`
}

// Versioned is one height-versioned table. Entity keys within a table
// must have a fixed length, otherwise prefix reads would be ambiguous.
type Versioned struct {
	database db.Database
	bucket   string
	height   HeightFunc

	// persistent tables keep their full version history and are
	// never trimmed (public keys).
	persistent bool

	trimFloor int64
}

// NewVersioned creates a versioned table in the named bucket.
func NewVersioned(d db.Database, bucket string, height HeightFunc) (*Versioned, error) {
	v := &Versioned{database: d, bucket: bucket, height: height}
	if err := d.NewBucket(bucket); err != nil {
		return nil, fmt.Errorf("create bucket %s failed: %v", bucket, err)
	}
	return v, nil
}

// NewVersionedPersistent creates a versioned table whose history
// survives trimming.
func NewVersionedPersistent(d db.Database, bucket string, height HeightFunc) (*Versioned, error) {
	v, err := NewVersioned(d, bucket, height)
	if err != nil {
		return nil, err
	}
	v.persistent = true
	return v, nil
}

func dbKey(key []byte, height int64) []byte {
	k := make([]byte, len(key)+8)
	copy(k, key)
	binary.BigEndian.PutUint64(k[len(key):], uint64(height))
	return k
}

func (v *Versioned) versions(key []byte) ([]row, error) {
	vals, err := v.database.GetAll(v.bucket, key)
	if err != nil {
		return nil, fmt.Errorf("scan bucket %s failed: %v", v.bucket, err)
	}
	rows := make([]row, 0, len(vals))
	for _, val := range vals {
		var r row
		if err := Decode(val, &r); err != nil {
			return nil, fmt.Errorf("decode row in bucket %s failed: %v", v.bucket, err)
		}
		rows = append(rows, r)
	}
	return rows, nil
}

func latestAtOrBelow(rows []row, height int64) *row {
	var best *row
	for i := range rows {
		if rows[i].Height > height {
			continue
		}
		if best == nil || rows[i].Height > best.Height {
			best = &rows[i]
		}
	}
	return best
}

// Get returns the current version of the entity, or nil if the entity
// does not exist or has been deleted.
func (v *Versioned) Get(key []byte) ([]byte, error) {
	return v.GetAt(key, v.height())
}

// GetAt returns the entity exactly as it existed at the given height.
// Heights below the retained rollback horizon fail with
// ErrHeightUnavailable.
func (v *Versioned) GetAt(key []byte, height int64) ([]byte, error) {
	if height < v.trimFloor {
		return nil, ErrHeightUnavailable
	}
	rows, err := v.versions(key)
	if err != nil {
		return nil, err
	}
	r := latestAtOrBelow(rows, height)
	if r == nil || r.Deleted {
		return nil, nil
	}
	return r.Payload, nil
}

// Insert upserts the entity at the current height. Writing twice at
// the same height replaces the version instead of stacking a new one.
func (v *Versioned) Insert(key, payload []byte) error {
	h := v.height()
	b, err := Encode(&row{Key: key, Height: h, Payload: payload})
	if err != nil {
		return fmt.Errorf("encode row failed: %v", err)
	}
	if err := v.database.Put(v.bucket, dbKey(key, h), b); err != nil {
		return fmt.Errorf("save row in bucket %s failed: %v", v.bucket, err)
	}
	return nil
}

// Delete marks the entity absent from the current height onward.
// Earlier versions stay in place for rollback.
func (v *Versioned) Delete(key []byte) error {
	h := v.height()
	b, err := Encode(&row{Key: key, Height: h, Deleted: true})
	if err != nil {
		return fmt.Errorf("encode tombstone failed: %v", err)
	}
	if err := v.database.Put(v.bucket, dbKey(key, h), b); err != nil {
		return fmt.Errorf("save tombstone in bucket %s failed: %v", v.bucket, err)
	}
	return nil
}

// Trim irreversibly discards versions strictly below the given height,
// keeping for every entity the newest version at or below it so that
// current reads are unaffected. A kept tombstone with no later version
// is dropped entirely. Persistent tables ignore trimming.
func (v *Versioned) Trim(height int64) error {
	if v.persistent {
		return nil
	}
	vals, err := v.database.GetAll(v.bucket, nil)
	if err != nil {
		return fmt.Errorf("scan bucket %s failed: %v", v.bucket, err)
	}
	type keptInfo struct {
		kept     row
		hasLater bool
	}
	latest := make(map[string]*keptInfo)
	var stale []row
	for _, val := range vals {
		var r row
		if err := Decode(val, &r); err != nil {
			return fmt.Errorf("decode row in bucket %s failed: %v", v.bucket, err)
		}
		if r.Height >= height {
			info := latest[string(r.Key)]
			if info == nil {
				latest[string(r.Key)] = &keptInfo{hasLater: true}
			} else {
				info.hasLater = true
			}
			continue
		}
		info := latest[string(r.Key)]
		if info == nil {
			latest[string(r.Key)] = &keptInfo{kept: r}
			continue
		}
		if info.kept.Key == nil || r.Height > info.kept.Height {
			if info.kept.Key != nil {
				stale = append(stale, info.kept)
			}
			info.kept = r
		} else {
			stale = append(stale, r)
		}
	}
	for _, r := range stale {
		if err := v.database.Delete(v.bucket, dbKey(r.Key, r.Height)); err != nil {
			return fmt.Errorf("trim bucket %s failed: %v", v.bucket, err)
		}
	}
	// The kept below-boundary row survives only when it still backs
	// current reads: a version at or above the boundary supersedes
	// it, and a tombstone with nothing newer is dead weight.
	for _, info := range latest {
		if info.kept.Key == nil {
			continue
		}
		if info.hasLater || info.kept.Deleted {
			if err := v.database.Delete(v.bucket, dbKey(info.kept.Key, info.kept.Height)); err != nil {
				return fmt.Errorf("trim bucket %s failed: %v", v.bucket, err)
			}
		}
	}
	if height > v.trimFloor {
		v.trimFloor = height
	}
	return nil
}

// Rollback deletes every version above the target height, restoring
// each entity to its state at that height.
func (v *Versioned) Rollback(height int64) error {
	vals, err := v.database.GetAll(v.bucket, nil)
	if err != nil {
		return fmt.Errorf("scan bucket %s failed: %v", v.bucket, err)
	}
	for _, val := range vals {
		var r row
		if err := Decode(val, &r); err != nil {
			return fmt.Errorf("decode row in bucket %s failed: %v", v.bucket, err)
		}
		if r.Height > height {
			if err := v.database.Delete(v.bucket, dbKey(r.Key, r.Height)); err != nil {
				return fmt.Errorf("rollback bucket %s failed: %v", v.bucket, err)
			}
		}
	}
	return nil
}
