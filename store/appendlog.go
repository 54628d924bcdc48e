package store

import (
	"fmt"

	"github.com/lumechain/go-lume/db"
)

// Record is one entry of an append log.
type Record struct {
	Key     []byte `codec:"k"`
	Height  int64  `codec:"h"`
	Payload []byte `codec:"p"`
}

// AppendLog is an append-only, height-stamped table. Unlike Versioned
// it stores independent records rather than versions of one entity:
// the guaranteed-balance delta log and the account ledger are built
// on it. Records are keyed by (key, height); writing the same pair
// again replaces the record.
type AppendLog struct {
	database db.Database
	bucket   string
}

// NewAppendLog creates an append log in the named bucket.
func NewAppendLog(d db.Database, bucket string) (*AppendLog, error) {
	if err := d.NewBucket(bucket); err != nil {
		return nil, fmt.Errorf("create bucket %s failed: %v", bucket, err)
	}
	return &AppendLog{database: d, bucket: bucket}, nil
}

// Put writes the record for (key, height).
func (l *AppendLog) Put(key []byte, height int64, payload []byte) error {
	b, err := Encode(&Record{Key: key, Height: height, Payload: payload})
	if err != nil {
		return fmt.Errorf("encode record failed: %v", err)
	}
	if err := l.database.Put(l.bucket, dbKey(key, height), b); err != nil {
		return fmt.Errorf("save record in bucket %s failed: %v", l.bucket, err)
	}
	return nil
}

// Get returns the payload stored for (key, height), or nil.
func (l *AppendLog) Get(key []byte, height int64) ([]byte, error) {
	b, err := l.database.Get(l.bucket, dbKey(key, height))
	if err != nil {
		return nil, fmt.Errorf("get record in bucket %s failed: %v", l.bucket, err)
	}
	if b == nil {
		return nil, nil
	}
	var r Record
	if err := Decode(b, &r); err != nil {
		return nil, fmt.Errorf("decode record in bucket %s failed: %v", l.bucket, err)
	}
	return r.Payload, nil
}

// Scan returns every record whose key starts with the prefix. A nil
// prefix scans the whole log.
func (l *AppendLog) Scan(keyPrefix []byte) ([]Record, error) {
	vals, err := l.database.GetAll(l.bucket, keyPrefix)
	if err != nil {
		return nil, fmt.Errorf("scan bucket %s failed: %v", l.bucket, err)
	}
	records := make([]Record, 0, len(vals))
	for _, val := range vals {
		var r Record
		if err := Decode(val, &r); err != nil {
			return nil, fmt.Errorf("decode record in bucket %s failed: %v", l.bucket, err)
		}
		records = append(records, r)
	}
	return records, nil
}

// Trim deletes records strictly below the given height.
func (l *AppendLog) Trim(belowHeight int64) error {
	records, err := l.Scan(nil)
	if err != nil {
		return err
	}
	for _, r := range records {
		if r.Height < belowHeight {
			if err := l.database.Delete(l.bucket, dbKey(r.Key, r.Height)); err != nil {
				return fmt.Errorf("trim bucket %s failed: %v", l.bucket, err)
			}
		}
	}
	return nil
}

// Rollback deletes records strictly above the target height.
func (l *AppendLog) Rollback(height int64) error {
	records, err := l.Scan(nil)
	if err != nil {
		return err
	}
	for _, r := range records {
		if r.Height > height {
			if err := l.database.Delete(l.bucket, dbKey(r.Key, r.Height)); err != nil {
				return fmt.Errorf("rollback bucket %s failed: %v", l.bucket, err)
			}
		}
	}
	return nil
}
