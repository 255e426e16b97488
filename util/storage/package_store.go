package storage

import (
	"fmt"
	"github.com/boltdb/bolt"
	"github.com/dataconservancy/ingest/codec"
	"github.com/dataconservancy/ingest/models"
	"github.com/satori/go.uuid"
)

/*
PackageStore holds in-flight packages, keyed by an opaque reference.
Writes are last-writer-wins. Callers that read, change and write a
package must hold the package's lock (see the locks package).
*/
type PackageStore struct {
	db    *BoltDB
	codec codec.Codec
}

// NewPackageStore returns a store that keeps packages in db, encoded
// with c. It creates the buckets it needs.
func NewPackageStore(db *BoltDB, c codec.Codec) (*PackageStore, error) {
	if err := db.initBuckets([]string{PACKAGE_BUCKET, EVENT_BUCKET}); err != nil {
		return nil, err
	}
	return &PackageStore{db: db, codec: c}, nil
}

// Add stores pkg under a new reference and returns the reference.
func (store *PackageStore) Add(pkg *models.Package) (string, error) {
	ref := uuid.NewV4().String()
	if err := store.Update(pkg, ref); err != nil {
		return "", err
	}
	return ref, nil
}

// Get returns the package stored under ref, or nil and no error if
// there isn't one.
func (store *PackageStore) Get(ref string) (*models.Package, error) {
	var data []byte
	err := store.db.View(func(tx *bolt.Tx) error {
		value := tx.Bucket([]byte(PACKAGE_BUCKET)).Get([]byte(ref))
		if value != nil {
			// Bolt values are only valid inside the transaction.
			data = make([]byte, len(value))
			copy(data, value)
		}
		return nil
	})
	if err != nil || data == nil {
		return nil, err
	}
	return store.codec.Deserialize(data)
}

// Update replaces whatever is stored under ref with pkg.
func (store *PackageStore) Update(pkg *models.Package, ref string) error {
	return store.Commit(ref, pkg, nil)
}

// Remove deletes the package stored under ref. Removing a package
// that isn't there is not an error. The package's events are not
// touched; see EventLog.RemoveEvents.
func (store *PackageStore) Remove(ref string) error {
	return store.db.Delete(PACKAGE_BUCKET, ref)
}

// Refs returns the references of all stored packages.
func (store *PackageStore) Refs() []string {
	return store.db.Keys(PACKAGE_BUCKET)
}

// Commit writes pkg under ref and appends events to ref's event log
// in a single transaction, so either both land or neither does.
// If pkg is nil, only the events are written.
func (store *PackageStore) Commit(ref string, pkg *models.Package, events []*models.Event) error {
	if ref == "" {
		return fmt.Errorf("Param ref cannot be empty.")
	}
	var data []byte
	var err error
	if pkg != nil {
		data, err = store.codec.Serialize(pkg)
		if err != nil {
			return err
		}
	}
	return store.db.Update(func(tx *bolt.Tx) error {
		if data != nil {
			if err := tx.Bucket([]byte(PACKAGE_BUCKET)).Put([]byte(ref), data); err != nil {
				return err
			}
		}
		return appendEvents(tx, ref, events)
	})
}
