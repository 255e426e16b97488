package archive

import (
	"bytes"
	"errors"
	"fmt"
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"io"
	"io/ioutil"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ErrNotFound is returned by backends for keys they don't have.
var ErrNotFound = errors.New("not found")

// Backend is the object storage under an Archive. Keys are
// slash-separated paths.
type Backend interface {
	Put(key string, reader io.Reader) error
	Get(key string) (io.ReadCloser, error)
	Exists(key string) (bool, error)

	// List returns all keys that start with prefix, sorted.
	List(prefix string) ([]string, error)
}

// FileBackend keeps archive objects as files under Root.
type FileBackend struct {
	Root string
}

func NewFileBackend(root string) (*FileBackend, error) {
	if root == "" {
		return nil, fmt.Errorf("Param root cannot be empty.")
	}
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, err
	}
	return &FileBackend{Root: root}, nil
}

func (backend *FileBackend) pathTo(key string) (string, error) {
	cleaned := filepath.Clean(filepath.FromSlash(key))
	if key == "" || filepath.IsAbs(cleaned) || strings.HasPrefix(cleaned, "..") {
		return "", fmt.Errorf("Invalid archive key '%s'", key)
	}
	return filepath.Join(backend.Root, cleaned), nil
}

func (backend *FileBackend) Put(key string, reader io.Reader) error {
	path, err := backend.pathTo(key)
	if err != nil {
		return err
	}
	if err = os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	tmp, err := ioutil.TempFile(filepath.Dir(path), ".partial-")
	if err != nil {
		return err
	}
	_, err = io.Copy(tmp, reader)
	closeErr := tmp.Close()
	if err == nil {
		err = closeErr
	}
	if err == nil {
		err = os.Rename(tmp.Name(), path)
	}
	if err != nil {
		os.Remove(tmp.Name())
	}
	return err
}

func (backend *FileBackend) Get(key string) (io.ReadCloser, error) {
	path, err := backend.pathTo(key)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, ErrNotFound
	}
	return file, err
}

func (backend *FileBackend) Exists(key string) (bool, error) {
	path, err := backend.pathTo(key)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	return err == nil, err
}

func (backend *FileBackend) List(prefix string) ([]string, error) {
	keys := make([]string, 0)
	err := filepath.Walk(backend.Root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || strings.HasPrefix(info.Name(), ".partial-") {
			return nil
		}
		rel, err := filepath.Rel(backend.Root, path)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
		return nil
	})
	sort.Strings(keys)
	return keys, err
}

// S3Backend keeps archive objects in an S3 bucket.
type S3Backend struct {
	client s3iface.S3API
	bucket string
}

func NewS3Backend(client s3iface.S3API, bucket string) (*S3Backend, error) {
	if bucket == "" {
		return nil, fmt.Errorf("Param bucket cannot be empty.")
	}
	return &S3Backend{client: client, bucket: bucket}, nil
}

// Put reads the whole object into memory, because PutObject needs
// a ReadSeeker.
func (backend *S3Backend) Put(key string, reader io.Reader) error {
	data, err := ioutil.ReadAll(reader)
	if err != nil {
		return err
	}
	_, err = backend.client.PutObject(&s3.PutObjectInput{
		Bucket: aws.String(backend.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	})
	return err
}

func (backend *S3Backend) Get(key string) (io.ReadCloser, error) {
	output, err := backend.client.GetObject(&s3.GetObjectInput{
		Bucket: aws.String(backend.bucket),
		Key:    aws.String(key),
	})
	if isS3NotFound(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return output.Body, nil
}

func (backend *S3Backend) Exists(key string) (bool, error) {
	_, err := backend.client.HeadObject(&s3.HeadObjectInput{
		Bucket: aws.String(backend.bucket),
		Key:    aws.String(key),
	})
	if isS3NotFound(err) {
		return false, nil
	}
	return err == nil, err
}

func (backend *S3Backend) List(prefix string) ([]string, error) {
	keys := make([]string, 0)
	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(backend.bucket),
		Prefix: aws.String(prefix),
	}
	for {
		output, err := backend.client.ListObjectsV2(input)
		if err != nil {
			return nil, err
		}
		for _, obj := range output.Contents {
			keys = append(keys, aws.StringValue(obj.Key))
		}
		if !aws.BoolValue(output.IsTruncated) {
			break
		}
		input.ContinuationToken = output.NextContinuationToken
	}
	sort.Strings(keys)
	return keys, nil
}

func isS3NotFound(err error) bool {
	if awsErr, ok := err.(awserr.Error); ok {
		return awsErr.Code() == s3.ErrCodeNoSuchKey || awsErr.Code() == "NotFound"
	}
	return false
}
