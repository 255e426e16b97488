package staging

import (
	"fmt"
	"github.com/dataconservancy/ingest/util/fileutil"
	"github.com/minio/minio-go"
	"io"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
)

// ContentStore keeps the bytes of staged files under opaque keys.
type ContentStore interface {
	// Put stores everything it reads from reader under key. Param
	// size is the number of bytes to expect, or -1 if unknown. It
	// returns the number of bytes stored.
	Put(key string, reader io.Reader, size int64) (int64, error)

	// Open returns a reader over the content stored under key.
	// The caller must close it.
	Open(key string) (io.ReadCloser, error)

	// Delete removes the content under key. Deleting content
	// that isn't there is not an error.
	Delete(key string) error

	Exists(key string) (bool, error)
}

const (
	minDeletePathLength     = 8
	minDeletePathSeparators = 2
)

// DirectoryContentStore keeps staged content as plain files in one
// directory. Several processes may share the directory.
type DirectoryContentStore struct {
	Root string
}

// NewDirectoryContentStore returns a store in dir, creating dir if
// it doesn't exist.
func NewDirectoryContentStore(dir string) (*DirectoryContentStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("Param dir cannot be empty.")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	return &DirectoryContentStore{Root: dir}, nil
}

func (store *DirectoryContentStore) pathTo(key string) (string, error) {
	if key == "" || strings.ContainsAny(key, `/\`) || key == "." || key == ".." {
		return "", fmt.Errorf("Invalid content key '%s'", key)
	}
	return filepath.Join(store.Root, key), nil
}

// Put writes to a temp file in Root and renames it into place, so
// readers never see partial content.
func (store *DirectoryContentStore) Put(key string, reader io.Reader, size int64) (int64, error) {
	path, err := store.pathTo(key)
	if err != nil {
		return 0, err
	}
	tmp, err := ioutil.TempFile(store.Root, ".partial-")
	if err != nil {
		return 0, err
	}
	written, err := io.Copy(tmp, reader)
	closeErr := tmp.Close()
	if err == nil {
		err = closeErr
	}
	if err == nil && size >= 0 && written != size {
		err = fmt.Errorf("Expected %d bytes for %s, got %d", size, key, written)
	}
	if err != nil {
		os.Remove(tmp.Name())
		return written, err
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return written, err
	}
	return written, nil
}

func (store *DirectoryContentStore) Open(key string) (io.ReadCloser, error) {
	path, err := store.pathTo(key)
	if err != nil {
		return nil, err
	}
	return os.Open(path)
}

// Delete refuses paths short enough to be system directories, in
// case Root was misconfigured as "/" or similar.
func (store *DirectoryContentStore) Delete(key string) error {
	path, err := store.pathTo(key)
	if err != nil {
		return err
	}
	if !fileutil.LooksSafeToDelete(path, minDeletePathLength, minDeletePathSeparators) {
		return fmt.Errorf("Refusing to delete '%s'", path)
	}
	err = os.Remove(path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

func (store *DirectoryContentStore) Exists(key string) (bool, error) {
	path, err := store.pathTo(key)
	if err != nil {
		return false, err
	}
	return fileutil.FileExists(path), nil
}

// MinioContentStore keeps staged content in an S3-compatible bucket.
type MinioContentStore struct {
	client *minio.Client
	bucket string
}

// NewMinioContentStore connects to the minio (or S3) server at
// endpoint. The bucket must already exist.
func NewMinioContentStore(endpoint, accessKey, secretKey, bucket string, useSSL bool) (*MinioContentStore, error) {
	if bucket == "" {
		return nil, fmt.Errorf("Param bucket cannot be empty.")
	}
	client, err := minio.New(endpoint, accessKey, secretKey, useSSL)
	if err != nil {
		return nil, fmt.Errorf("Cannot create minio client for %s: %v", endpoint, err)
	}
	return &MinioContentStore{client: client, bucket: bucket}, nil
}

func (store *MinioContentStore) Put(key string, reader io.Reader, size int64) (int64, error) {
	return store.client.PutObject(store.bucket, key, reader, size,
		minio.PutObjectOptions{ContentType: "application/octet-stream"})
}

// Open stats the object first, because minio's GetObject doesn't
// report a missing key until the first read.
func (store *MinioContentStore) Open(key string) (io.ReadCloser, error) {
	if _, err := store.client.StatObject(store.bucket, key, minio.StatObjectOptions{}); err != nil {
		return nil, err
	}
	return store.client.GetObject(store.bucket, key, minio.GetObjectOptions{})
}

func (store *MinioContentStore) Delete(key string) error {
	return store.client.RemoveObject(store.bucket, key)
}

func (store *MinioContentStore) Exists(key string) (bool, error) {
	_, err := store.client.StatObject(store.bucket, key, minio.StatObjectOptions{})
	if err == nil {
		return true, nil
	}
	if minio.ToErrorResponse(err).Code == "NoSuchKey" {
		return false, nil
	}
	return false, err
}
