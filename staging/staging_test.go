package staging_test

import (
	"fmt"
	"github.com/dataconservancy/ingest/codec"
	"github.com/dataconservancy/ingest/constants"
	"github.com/dataconservancy/ingest/identifier"
	"github.com/dataconservancy/ingest/models"
	"github.com/dataconservancy/ingest/staging"
	"github.com/dataconservancy/ingest/util/logger"
	"github.com/dataconservancy/ingest/util/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"io"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const (
	helloMd5    = "5eb63bbbe01eeed093cb22bb8f5acdc3"
	helloSha256 = "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9"
)

type testEnv struct {
	dir      string
	svc      *staging.FileStagingService
	content  *staging.DirectoryContentStore
	packages *storage.PackageStore
	events   *storage.EventLog
	db       *storage.BoltDB
}

func (env *testEnv) cleanup() {
	env.db.Close()
	os.RemoveAll(env.dir)
}

func newTestEnv(t *testing.T) *testEnv {
	dir, err := ioutil.TempDir("", "staging_test")
	require.Nil(t, err)
	db, err := storage.NewBoltDB(filepath.Join(dir, "packages.db"))
	require.Nil(t, err)
	packages, err := storage.NewPackageStore(db, codec.NewJSONCodec())
	require.Nil(t, err)
	events, err := storage.NewEventLog(db, identifier.NewUUIDService("http://localhost/ids"))
	require.Nil(t, err)
	content, err := staging.NewDirectoryContentStore(filepath.Join(dir, "content"))
	require.Nil(t, err)
	svc, err := staging.NewFileStagingService("http://localhost/staged/", content, db,
		packages, events, logger.DiscardLogger("staging_test"))
	require.Nil(t, err)
	return &testEnv{dir: dir, svc: svc, content: content, packages: packages, events: events, db: db}
}

func TestNewFileStagingServiceRequiresBaseURL(t *testing.T) {
	env := newTestEnv(t)
	defer env.cleanup()
	_, err := staging.NewFileStagingService("", env.content, env.db, env.packages, env.events,
		logger.DiscardLogger("staging_test"))
	assert.NotNil(t, err)
}

func TestAddAndGet(t *testing.T) {
	env := newTestEnv(t)
	defer env.cleanup()

	meta := &models.StagedFileMetadata{Name: "hello.txt", ContentType: "text/plain", Source: "http://example.com/hello.txt"}
	stagedFile, err := env.svc.Add(strings.NewReader("hello world"), meta)
	require.Nil(t, err)
	require.NotNil(t, stagedFile)

	assert.True(t, strings.HasPrefix(stagedFile.ReferenceURI, constants.StagedReferenceScheme))
	assert.Equal(t, "http://localhost/staged/"+stagedFile.ContentKey, stagedFile.AccessURI)
	assert.EqualValues(t, 11, stagedFile.SizeBytes)
	assert.Equal(t, "hello.txt", stagedFile.Name)
	assert.False(t, stagedFile.StagedAt.IsZero())
	assert.NotEqual(t, "", stagedFile.SipRef)

	fetched, err := env.svc.Get(stagedFile.ReferenceURI)
	require.Nil(t, err)
	require.NotNil(t, fetched)
	assert.Equal(t, stagedFile.SipRef, fetched.SipRef)
	assert.Equal(t, stagedFile.AccessURI, fetched.AccessURI)

	missing, err := env.svc.Get("staged:no-such-thing")
	require.Nil(t, err)
	assert.Nil(t, missing)
}

func TestShadowPackage(t *testing.T) {
	env := newTestEnv(t)
	defer env.cleanup()
	meta := &models.StagedFileMetadata{Name: "hello.txt", ContentType: "text/plain"}
	stagedFile, err := env.svc.Add(strings.NewReader("hello world"), meta)
	require.Nil(t, err)

	shadow, err := env.packages.Get(stagedFile.SipRef)
	require.Nil(t, err)
	require.NotNil(t, shadow)
	require.Equal(t, 1, len(shadow.Files))
	file := shadow.Files[0]
	assert.Equal(t, stagedFile.ReferenceURI, file.Id)
	assert.Equal(t, "hello.txt", file.Name)
	assert.True(t, file.Extant)
	assert.EqualValues(t, 11, file.SizeBytes)
	assert.Equal(t, helloMd5, file.GetFixity("md5").Value)
	assert.Equal(t, helloSha256, file.GetFixity("sha256").Value)
	assert.True(t, file.HasFormatScheme(constants.FormatSchemeMime))

	events, err := env.events.GetEvents(stagedFile.SipRef)
	require.Nil(t, err)
	require.Equal(t, 3, len(events))
	assert.Equal(t, constants.EventFileUpload, events[0].Type)
	assert.Equal(t, "11", events[0].Outcome)
	assert.Equal(t, constants.EventFixityDigest, events[1].Type)
	assert.Equal(t, "md5:"+helloMd5, events[1].Outcome)
	assert.Equal(t, "sha256:"+helloSha256, events[2].Outcome)
	for _, event := range events {
		assert.Equal(t, []string{stagedFile.ReferenceURI}, event.TargetIds())
	}
}

func TestContainsAndOpen(t *testing.T) {
	env := newTestEnv(t)
	defer env.cleanup()
	stagedFile, err := env.svc.Add(strings.NewReader("hello world"), nil)
	require.Nil(t, err)

	assert.True(t, env.svc.Contains(stagedFile.ReferenceURI))
	assert.True(t, env.svc.Contains(stagedFile.AccessURI))
	assert.False(t, env.svc.Contains("staged:nope"))
	assert.False(t, env.svc.Contains("http://example.com/hello.txt"))
	assert.False(t, env.svc.Contains(""))

	reader, err := env.svc.Open(stagedFile.ReferenceURI)
	require.Nil(t, err)
	data, err := ioutil.ReadAll(reader)
	reader.Close()
	require.Nil(t, err)
	assert.Equal(t, "hello world", string(data))

	reader, err = env.svc.Open(stagedFile.AccessURI)
	require.Nil(t, err)
	data, _ = ioutil.ReadAll(reader)
	reader.Close()
	assert.Equal(t, "hello world", string(data))

	_, err = env.svc.Open("staged:nope")
	assert.NotNil(t, err)
}

func TestReferenceURIFor(t *testing.T) {
	env := newTestEnv(t)
	defer env.cleanup()
	assert.Equal(t, "staged:abc", env.svc.ReferenceURIFor("staged:abc"))
	assert.Equal(t, "staged:abc", env.svc.ReferenceURIFor("http://localhost/staged/abc"))
	assert.Equal(t, "", env.svc.ReferenceURIFor("http://localhost/staged/a/b"))
	assert.Equal(t, "", env.svc.ReferenceURIFor("http://localhost/other/abc"))
}

func TestRetire(t *testing.T) {
	env := newTestEnv(t)
	defer env.cleanup()
	stagedFile, err := env.svc.Add(strings.NewReader("hello world"), nil)
	require.Nil(t, err)

	require.Nil(t, env.svc.Retire(stagedFile.ReferenceURI))

	fetched, err := env.svc.Get(stagedFile.ReferenceURI)
	require.Nil(t, err)
	assert.Nil(t, fetched)
	assert.False(t, env.svc.Contains(stagedFile.ReferenceURI))
	shadow, err := env.packages.Get(stagedFile.SipRef)
	require.Nil(t, err)
	assert.Nil(t, shadow)
	events, err := env.events.GetEvents(stagedFile.SipRef)
	require.Nil(t, err)
	assert.Empty(t, events)
	exists, err := env.content.Exists(stagedFile.ContentKey)
	require.Nil(t, err)
	assert.False(t, exists)

	// Again, and something that was never there.
	assert.Nil(t, env.svc.Retire(stagedFile.ReferenceURI))
	assert.Nil(t, env.svc.Retire("staged:never-was"))
}

func TestAddRejectsNilReader(t *testing.T) {
	env := newTestEnv(t)
	defer env.cleanup()
	_, err := env.svc.Add(nil, nil)
	assert.NotNil(t, err)
}

type stringOpener string

func (opener stringOpener) OpenContent(uri string) (io.ReadCloser, error) {
	if uri != "http://example.com/remote.txt" {
		return nil, fmt.Errorf("not found: %s", uri)
	}
	return ioutil.NopCloser(strings.NewReader(string(opener))), nil
}

func TestContentSource(t *testing.T) {
	env := newTestEnv(t)
	defer env.cleanup()
	stagedFile, err := env.svc.Add(strings.NewReader("hello world"), nil)
	require.Nil(t, err)

	source := staging.NewContentSource(env.svc, stringOpener("remote content"))
	for uri, expected := range map[string]string{
		stagedFile.ReferenceURI:          "hello world",
		stagedFile.AccessURI:             "hello world",
		"http://example.com/remote.txt": "remote content",
	} {
		reader, err := source.OpenContent(uri)
		require.Nil(t, err, uri)
		data, _ := ioutil.ReadAll(reader)
		reader.Close()
		assert.Equal(t, expected, string(data))
	}
	_, err = source.OpenContent("http://example.com/missing.txt")
	assert.NotNil(t, err)

	stagedOnly := staging.NewContentSource(env.svc, nil)
	_, err = stagedOnly.OpenContent("http://example.com/remote.txt")
	assert.NotNil(t, err)
}
