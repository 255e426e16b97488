package storage

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"github.com/boltdb/bolt"
	"time"
)

const (
	PACKAGE_BUCKET     = "packages"
	EVENT_BUCKET       = "events"
	STAGED_FILE_BUCKET = "staged_files"
)

// BoltDB represents a bolt database, which is a single-file key-value
// store. The ingest services keep in-flight packages and their event
// logs here, so a worker can pick a package up where it left off
// after a crash. Bolt allows only one process at a time to open the
// file. A second process trying to open it gives up after one second.
type BoltDB struct {
	db       *bolt.DB
	filePath string
}

// NewBoltDB opens a bolt database, creating the DB file if it doesn't
// already exist, and creates any of the named buckets that don't
// exist yet.
func NewBoltDB(filePath string, buckets ...string) (boltDB *BoltDB, err error) {
	db, err := bolt.Open(filePath, 0644, &bolt.Options{Timeout: 1 * time.Second})
	if err == nil {
		boltDB = &BoltDB{
			db:       db,
			filePath: filePath,
		}
		err = boltDB.initBuckets(buckets)
	}
	return boltDB, err
}

// CreateBuckets creates any of the named buckets that don't exist.
func (boltDB *BoltDB) CreateBuckets(buckets ...string) error {
	return boltDB.initBuckets(buckets)
}

func (boltDB *BoltDB) initBuckets(buckets []string) error {
	return boltDB.db.Update(func(tx *bolt.Tx) error {
		for _, name := range buckets {
			_, err := tx.CreateBucketIfNotExists([]byte(name))
			if err != nil {
				return fmt.Errorf("Error creating bucket %s: %s", name, err)
			}
		}
		return nil
	})
}

// FilePath returns the path to the bolt DB file.
func (boltDB *BoltDB) FilePath() string {
	return boltDB.filePath
}

// Close closes the bolt database.
func (boltDB *BoltDB) Close() {
	boltDB.db.Close()
}

// Update runs fn in a read-write transaction.
func (boltDB *BoltDB) Update(fn func(tx *bolt.Tx) error) error {
	return boltDB.db.Update(fn)
}

// View runs fn in a read-only transaction.
func (boltDB *BoltDB) View(fn func(tx *bolt.Tx) error) error {
	return boltDB.db.View(fn)
}

// Save saves value to the bucket as JSON.
func (boltDB *BoltDB) Save(bucketName, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return boltDB.db.Update(func(tx *bolt.Tx) error {
		bucket, err := existingBucket(tx, bucketName)
		if err != nil {
			return err
		}
		return bucket.Put([]byte(key), data)
	})
}

// Load reads the JSON value stored under key into value. It returns
// false and no error if the key isn't there.
func (boltDB *BoltDB) Load(bucketName, key string, value interface{}) (found bool, err error) {
	err = boltDB.db.View(func(tx *bolt.Tx) error {
		bucket, err := existingBucket(tx, bucketName)
		if err != nil {
			return err
		}
		data := bucket.Get([]byte(key))
		if len(data) == 0 {
			return nil
		}
		found = true
		return json.Unmarshal(data, value)
	})
	return found, err
}

// Delete removes key from the bucket. Deleting a key that isn't
// there is not an error.
func (boltDB *BoltDB) Delete(bucketName, key string) error {
	return boltDB.db.Update(func(tx *bolt.Tx) error {
		bucket, err := existingBucket(tx, bucketName)
		if err != nil {
			return err
		}
		return bucket.Delete([]byte(key))
	})
}

// ForEach calls the specified function for each key in the bucket.
func (boltDB *BoltDB) ForEach(bucketName string, fn func(k, v []byte) error) error {
	return boltDB.db.View(func(tx *bolt.Tx) error {
		bucket, err := existingBucket(tx, bucketName)
		if err != nil {
			return err
		}
		return bucket.ForEach(fn)
	})
}

// Keys returns a list of all keys in the bucket.
func (boltDB *BoltDB) Keys(bucketName string) []string {
	keys := make([]string, 0)
	boltDB.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		if b == nil {
			return nil
		}
		c := b.Cursor()
		for k, _ := c.First(); k != nil; k, _ = c.Next() {
			keys = append(keys, string(k))
		}
		return nil
	})
	return keys
}

// KeyBatch returns keys from offset (zero-based) up to limit,
// or end of list.
func (boltDB *BoltDB) KeyBatch(bucketName string, offset, limit int) []string {
	if offset < 0 {
		offset = 0
	}
	if limit < 0 {
		limit = 0
	}
	index := 0
	end := offset + limit
	keys := make([]string, 0)
	boltDB.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		if b == nil {
			return nil
		}
		c := b.Cursor()
		for k, _ := c.First(); k != nil && index < end; k, _ = c.Next() {
			if index >= offset {
				keys = append(keys, string(k))
			}
			index++
		}
		return nil
	})
	return keys
}

func existingBucket(tx *bolt.Tx, name string) (*bolt.Bucket, error) {
	bucket := tx.Bucket([]byte(name))
	if bucket == nil {
		return nil, fmt.Errorf("Bucket %s does not exist", name)
	}
	return bucket, nil
}

// sequenceKey turns a bolt bucket sequence number into a key that
// sorts in numeric order.
func sequenceKey(seq uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, seq)
	return key
}
