package network

import (
	"fmt"
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"os"
)

// Returns an S3 session for the specified region, with credentials
// from the environment.
func GetS3Session(awsRegion string) (*session.Session, error) {
	if os.Getenv("AWS_ACCESS_KEY_ID") == "" || os.Getenv("AWS_SECRET_ACCESS_KEY") == "" {
		return nil, fmt.Errorf("AWS_ACCESS_KEY_ID and/or " +
			"AWS_SECRET_ACCESS_KEY not set in environment")
	}
	if awsRegion == "" {
		return nil, fmt.Errorf("Param awsRegion cannot be empty.")
	}
	creds := credentials.NewEnvCredentials()
	_session, err := session.NewSession(&aws.Config{
		Region:      aws.String(awsRegion),
		Credentials: creds,
	})
	if err != nil {
		return nil, err
	}
	if _session == nil {
		return nil, fmt.Errorf("AWS Session returned nil")
	}
	return _session, nil
}

// NewS3Client returns an S3 client for the specified region.
func NewS3Client(awsRegion string) (*s3.S3, error) {
	_session, err := GetS3Session(awsRegion)
	if err != nil {
		return nil, err
	}
	return s3.New(_session), nil
}
