package archive_test

import (
	"bytes"
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/dataconservancy/ingest/archive"
	"github.com/dataconservancy/ingest/codec"
	"github.com/dataconservancy/ingest/testdata"
	"github.com/dataconservancy/ingest/util/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"io/ioutil"
	"os"
	"sort"
	"strings"
	"sync"
	"testing"
)

// fakeS3 keeps objects in memory. Calls it doesn't implement panic
// on the nil embedded interface.
type fakeS3 struct {
	s3iface.S3API
	mutex    sync.Mutex
	objects  map[string][]byte
	pageSize int
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: make(map[string][]byte), pageSize: 2}
}

func (f *fakeS3) PutObject(input *s3.PutObjectInput) (*s3.PutObjectOutput, error) {
	data, err := ioutil.ReadAll(input.Body)
	if err != nil {
		return nil, err
	}
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.objects[aws.StringValue(input.Key)] = data
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(input *s3.GetObjectInput) (*s3.GetObjectOutput, error) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	data, ok := f.objects[aws.StringValue(input.Key)]
	if !ok {
		return nil, awserr.New(s3.ErrCodeNoSuchKey, "The specified key does not exist.", nil)
	}
	return &s3.GetObjectOutput{Body: ioutil.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeS3) HeadObject(input *s3.HeadObjectInput) (*s3.HeadObjectOutput, error) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	data, ok := f.objects[aws.StringValue(input.Key)]
	if !ok {
		return nil, awserr.New("NotFound", "Not Found", nil)
	}
	return &s3.HeadObjectOutput{ContentLength: aws.Int64(int64(len(data)))}, nil
}

// ListObjectsV2 pages through the sorted keys pageSize at a time,
// using the last key as the continuation token.
func (f *fakeS3) ListObjectsV2(input *s3.ListObjectsV2Input) (*s3.ListObjectsV2Output, error) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	keys := make([]string, 0)
	for key := range f.objects {
		if strings.HasPrefix(key, aws.StringValue(input.Prefix)) &&
			key > aws.StringValue(input.ContinuationToken) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	output := &s3.ListObjectsV2Output{IsTruncated: aws.Bool(false)}
	if len(keys) > f.pageSize {
		keys = keys[:f.pageSize]
		output.IsTruncated = aws.Bool(true)
		output.NextContinuationToken = aws.String(keys[len(keys)-1])
	}
	for _, key := range keys {
		output.Contents = append(output.Contents, &s3.Object{Key: aws.String(key)})
	}
	return output, nil
}

func TestS3Backend(t *testing.T) {
	client := newFakeS3()
	backend, err := archive.NewS3Backend(client, "archive-bucket")
	require.Nil(t, err)

	for _, key := range []string{"entities/b", "entities/a", "entities/c", "content/a"} {
		require.Nil(t, backend.Put(key, strings.NewReader("data for "+key)))
	}
	keys, err := backend.List("entities/")
	require.Nil(t, err)
	assert.Equal(t, []string{"entities/a", "entities/b", "entities/c"}, keys)

	exists, err := backend.Exists("content/a")
	require.Nil(t, err)
	assert.True(t, exists)
	exists, err = backend.Exists("content/z")
	require.Nil(t, err)
	assert.False(t, exists)

	reader, err := backend.Get("content/a")
	require.Nil(t, err)
	data, _ := ioutil.ReadAll(reader)
	assert.Equal(t, "data for content/a", string(data))
	_, err = backend.Get("content/z")
	assert.Equal(t, archive.ErrNotFound, err)

	_, err = archive.NewS3Backend(client, "")
	assert.NotNil(t, err)
}

func TestArchiveOverS3Backend(t *testing.T) {
	backend, err := archive.NewS3Backend(newFakeS3(), "archive-bucket")
	require.Nil(t, err)
	a := archive.New(backend, codec.NewJSONCodec(), nil, logger.DiscardLogger("archive_test"))
	pkg := testdata.MakePackage(2, 2)
	require.Nil(t, a.PutPackage(serialize(t, pkg)))
	for _, id := range pkg.EntityIds() {
		found, err := a.Lookup(id)
		require.Nil(t, err)
		assert.NotNil(t, found, id)
	}
}

func TestFileBackend(t *testing.T) {
	dir, err := ioutil.TempDir("", "file_backend_test")
	require.Nil(t, err)
	defer os.RemoveAll(dir)
	backend, err := archive.NewFileBackend(dir)
	require.Nil(t, err)

	require.Nil(t, backend.Put("entities/x.json", strings.NewReader("x")))
	require.Nil(t, backend.Put("deposits/d.json", strings.NewReader("d")))
	keys, err := backend.List("entities/")
	require.Nil(t, err)
	assert.Equal(t, []string{"entities/x.json"}, keys)
	all, err := backend.List("")
	require.Nil(t, err)
	assert.Equal(t, []string{"deposits/d.json", "entities/x.json"}, all)

	_, err = backend.Get("entities/y.json")
	assert.Equal(t, archive.ErrNotFound, err)
	assert.NotNil(t, backend.Put("../escape", strings.NewReader("x")))
	assert.NotNil(t, backend.Put("", strings.NewReader("x")))
	_, err = archive.NewFileBackend("")
	assert.NotNil(t, err)
}
