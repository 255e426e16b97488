package testutil

import (
	"github.com/dataconservancy/ingest/codec"
	"github.com/dataconservancy/ingest/models"
	"github.com/dataconservancy/ingest/util/fileutil"
	"github.com/nsqio/go-nsq"
	"os"
)

// Loads a package fixture (a serialized package) from the
// testdata directory for testing.
func LoadPackageFixture(filename string) (*models.Package, error) {
	data, err := fileutil.LoadRelativeFile(filename)
	if err != nil {
		return nil, err
	}
	return codec.NewJSONCodec().Deserialize(data)
}

// MakeNsqMessage returns an NSQ message with the specified body.
// Messages made this way have no delegate; set one before calling
// Finish, Requeue or Touch.
func MakeNsqMessage(body string) *nsq.Message {
	messageId := [nsq.MsgIDLength]byte{'0', '1', '2', '3', '4', '5', '6', '7', '8', '9', 'A', 'B', 'C', 'D', 'E', 'F'}
	return nsq.NewMessage(messageId, []byte(body))
}

// ShouldRunIntegrationTests returns true if the environment
// variable RUN_INGEST_INTEGRATION is set to "true".
func ShouldRunIntegrationTests() bool {
	return os.Getenv("RUN_INGEST_INTEGRATION") == "true"
}

// CanTestS3 returns true if the AWS credentials and a test bucket
// are in the environment.
func CanTestS3() bool {
	return os.Getenv("AWS_ACCESS_KEY_ID") != "" &&
		os.Getenv("AWS_SECRET_ACCESS_KEY") != "" &&
		os.Getenv("INGEST_TEST_S3_BUCKET") != ""
}

// CanTestMinio returns true if a minio endpoint, its credentials
// and a test bucket are in the environment.
func CanTestMinio() bool {
	return os.Getenv("MINIO_ENDPOINT") != "" &&
		os.Getenv("MINIO_ACCESS_KEY") != "" &&
		os.Getenv("MINIO_SECRET_KEY") != "" &&
		os.Getenv("INGEST_TEST_MINIO_BUCKET") != ""
}
