package fileutil

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"github.com/dataconservancy/ingest/constants"
	"hash"
	"io"
	"io/ioutil"
	"os"
	"os/user"
	"path/filepath"
	"sort"
	"strings"
)

// IngestHome returns the absolute path to the project root directory,
// which contains source, config and test files. You can set this
// explicitly by defining an environment variable called INGEST_HOME.
// Otherwise, this function walks up from the current working directory
// until it finds a go.mod file. If neither works, this returns an error.
func IngestHome() (ingestHome string, err error) {
	ingestHome = os.Getenv("INGEST_HOME")
	if ingestHome != "" {
		return filepath.Abs(ingestHome)
	}
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for {
		if FileExists(filepath.Join(dir, "go.mod")) {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", fmt.Errorf("Cannot determine ingest home because INGEST_HOME " +
		"is not set and no go.mod was found above the working directory.")
}

// LoadRelativeFile reads the file at the specified path
// relative to INGEST_HOME and returns the contents as a byte array.
func LoadRelativeFile(relativePath string) ([]byte, error) {
	absPath, err := RelativeToAbsPath(relativePath)
	if err != nil {
		return nil, err
	}
	return ioutil.ReadFile(absPath)
}

// Reads data from the file at absPath (an absolute path)
// and coverts it to an object of whatever type param obj
// is. Returns an error if there's a problem reading the
// file or unmarshalling the data into the type you passed in.
// On success, this returns nil and your object will contain
// the data from the file.
func JsonFileToObject(absPath string, obj interface{}) error {
	data, err := ioutil.ReadFile(absPath)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, obj)
}

// Converts a relative path within the project directory tree
// to an absolute path.
func RelativeToAbsPath(relativePath string) (string, error) {
	if filepath.IsAbs(relativePath) {
		return relativePath, nil
	}
	ingestHome, err := IngestHome()
	if err != nil {
		return "", err
	}
	return filepath.Join(ingestHome, relativePath), nil
}

// Returns true if the file at path exists, false if not.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	if err != nil && os.IsNotExist(err) {
		return false
	}
	return true
}

// Expands the tilde in a directory path to the current
// user's home directory. For example, on Linux, ~/data
// would expand to something like /home/josie/data
func ExpandTilde(filePath string) (string, error) {
	if strings.Index(filePath, "~") < 0 {
		return filePath, nil
	}
	usr, err := user.Current()
	if err != nil {
		return "", err
	}
	homeDir := usr.HomeDir + "/"
	expandedDir := strings.Replace(filePath, "~/", homeDir, 1)
	return expandedDir, nil
}

// Returns true if the path specified by dir has at least minLength
// characters and at least minSeparators path separators. This is
// for testing paths you want pass into os.RemoveAll(), so you don't
// wind up deleting "/" or "/etc" or something catastrophic like that.
func LooksSafeToDelete(dir string, minLength, minSeparators int) bool {
	separator := string(os.PathSeparator)
	separatorCount := (len(dir) - len(strings.Replace(dir, separator, "", -1)))
	return len(dir) >= minLength && separatorCount >= minSeparators
}

func newHash(algorithm string) (hash.Hash, error) {
	switch algorithm {
	case constants.AlgMd5:
		return md5.New(), nil
	case constants.AlgSha1:
		return sha1.New(), nil
	case constants.AlgSha256:
		return sha256.New(), nil
	}
	return nil, fmt.Errorf("Unsupported algorithm: %s", algorithm)
}

// CalculateChecksum calculates the md5, sha1 or sha256 checksum of a
// file. Param pathToFile is the path the file, and algorithm should
// be one of constants.ChecksumAlgorithms. Returns the hex-encoded
// digest or an error.
func CalculateChecksum(pathToFile, algorithm string) (string, error) {
	_hash, err := newHash(algorithm)
	if err != nil {
		return "", err
	}
	inputFile, err := os.Open(pathToFile)
	if err != nil {
		return "", err
	}
	defer inputFile.Close()
	if _, err = io.Copy(_hash, inputFile); err != nil {
		return "", err
	}
	return fmt.Sprintf("%x", _hash.Sum(nil)), nil
}

/*
Digester is an io.Writer that calculates several digests of the
same stream at once. Wrap a reader with io.TeeReader, or pass the
Digester to io.MultiWriter, then call Digests when the stream is
done.
*/
type Digester struct {
	hashes map[string]hash.Hash
	writer io.Writer
	size   int64
}

// NewDigester returns a Digester for the specified algorithms.
func NewDigester(algorithms ...string) (*Digester, error) {
	hashes := make(map[string]hash.Hash, len(algorithms))
	writers := make([]io.Writer, 0, len(algorithms))
	for _, alg := range algorithms {
		if _, ok := hashes[alg]; ok {
			continue
		}
		h, err := newHash(alg)
		if err != nil {
			return nil, err
		}
		hashes[alg] = h
		writers = append(writers, h)
	}
	return &Digester{
		hashes: hashes,
		writer: io.MultiWriter(writers...),
	}, nil
}

func (digester *Digester) Write(p []byte) (int, error) {
	n, err := digester.writer.Write(p)
	digester.size += int64(n)
	return n, err
}

// Size returns the number of bytes written so far.
func (digester *Digester) Size() int64 {
	return digester.size
}

// Algorithms returns the digester's algorithms, sorted.
func (digester *Digester) Algorithms() []string {
	algs := make([]string, 0, len(digester.hashes))
	for alg := range digester.hashes {
		algs = append(algs, alg)
	}
	sort.Strings(algs)
	return algs
}

// Digests returns hex-encoded digests keyed by algorithm.
func (digester *Digester) Digests() map[string]string {
	digests := make(map[string]string, len(digester.hashes))
	for alg, h := range digester.hashes {
		digests[alg] = fmt.Sprintf("%x", h.Sum(nil))
	}
	return digests
}
