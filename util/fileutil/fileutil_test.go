package fileutil_test

import (
	"github.com/dataconservancy/ingest/constants"
	"github.com/dataconservancy/ingest/util/fileutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"io"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// Digests of "hello world"
const (
	helloMd5    = "5eb63bbbe01eeed093cb22bb8f5acdc3"
	helloSha1   = "2aae6c35c94fcfb415dbe95f408b9ce91ee846ed"
	helloSha256 = "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9"
)

func TestIngestHome(t *testing.T) {
	ingestHome := os.Getenv("INGEST_HOME")
	defer os.Setenv("INGEST_HOME", ingestHome)

	// Should use INGEST_HOME, if it's set...
	os.Setenv("INGEST_HOME", "/ingest_home")
	home, err := fileutil.IngestHome()
	require.Nil(t, err)
	assert.Equal(t, "/ingest_home", home)

	// Otherwise, should find the directory containing go.mod
	os.Setenv("INGEST_HOME", "")
	home, err = fileutil.IngestHome()
	require.Nil(t, err)
	assert.True(t, fileutil.FileExists(filepath.Join(home, "go.mod")))
}

func TestLoadRelativeFile(t *testing.T) {
	path := filepath.Join("config", "test.json")
	data, err := fileutil.LoadRelativeFile(path)
	require.Nil(t, err)
	assert.NotEmpty(t, data)
}

func TestRelativeToAbsPath(t *testing.T) {
	abs, err := fileutil.RelativeToAbsPath("/already/absolute")
	require.Nil(t, err)
	assert.Equal(t, "/already/absolute", abs)

	abs, err = fileutil.RelativeToAbsPath("config")
	require.Nil(t, err)
	assert.True(t, filepath.IsAbs(abs))
	assert.True(t, strings.HasSuffix(abs, "config"))
}

func TestFileExists(t *testing.T) {
	assert.True(t, fileutil.FileExists("fileutil_test.go"))
	assert.False(t, fileutil.FileExists("NonExistentFile.xyz"))
}

func TestExpandTilde(t *testing.T) {
	expanded, err := fileutil.ExpandTilde("~/tmp")
	require.Nil(t, err)
	assert.True(t, len(expanded) > 5)
	assert.True(t, strings.HasSuffix(expanded, "tmp"))

	expanded, err = fileutil.ExpandTilde("/nothing/to/expand")
	require.Nil(t, err)
	assert.Equal(t, "/nothing/to/expand", expanded)
}

func TestLooksSafeToDelete(t *testing.T) {
	assert.True(t, fileutil.LooksSafeToDelete("/mnt/apt/data/some_dir", 15, 3))
	assert.False(t, fileutil.LooksSafeToDelete("/usr/local", 12, 3))
}

func TestCalculateChecksum(t *testing.T) {
	tmp, err := ioutil.TempFile("", "checksum")
	require.Nil(t, err)
	defer os.Remove(tmp.Name())
	_, err = tmp.WriteString("hello world")
	require.Nil(t, err)
	tmp.Close()

	digest, err := fileutil.CalculateChecksum(tmp.Name(), constants.AlgMd5)
	require.Nil(t, err)
	assert.Equal(t, helloMd5, digest)

	digest, err = fileutil.CalculateChecksum(tmp.Name(), constants.AlgSha256)
	require.Nil(t, err)
	assert.Equal(t, helloSha256, digest)

	_, err = fileutil.CalculateChecksum(tmp.Name(), "crc32")
	assert.NotNil(t, err)
}

func TestDigester(t *testing.T) {
	digester, err := fileutil.NewDigester(constants.AlgSha256, constants.AlgMd5, constants.AlgSha1, constants.AlgMd5)
	require.Nil(t, err)
	assert.Equal(t, []string{"md5", "sha1", "sha256"}, digester.Algorithms())

	reader := io.TeeReader(strings.NewReader("hello world"), digester)
	_, err = ioutil.ReadAll(reader)
	require.Nil(t, err)

	digests := digester.Digests()
	assert.Equal(t, helloMd5, digests[constants.AlgMd5])
	assert.Equal(t, helloSha1, digests[constants.AlgSha1])
	assert.Equal(t, helloSha256, digests[constants.AlgSha256])
	assert.EqualValues(t, 11, digester.Size())

	_, err = fileutil.NewDigester("crc32")
	assert.NotNil(t, err)
}
