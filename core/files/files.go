// Package files stores the binary content of file and image fields outside
// of the model backends. There are currently two drivers: a local file
// system and AWS S3.
package files

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
)

// Method is the HTTP method a pre-signed URL is valid for
type Method string

// methods supported for pre-signing
const (
	Get Method = "GET"
	Put Method = "PUT"
)

// ErrPresignNotSupported is returned by drivers that cannot hand out
// pre-signed URLs. The admin then streams the content itself.
var ErrPresignNotSupported = errors.New("driver does not support pre-signed URLs")

// Driver is the storage interface for file field content. Keys are
// slash-separated paths of the form {identity}/{pk}/{field}.
type Driver interface {
	Put(ctx context.Context, key string, data io.Reader) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	DeleteAllWithPrefix(ctx context.Context, prefix string) error
	// PresignedURL returns a URL that can be used with the given method
	// until expireIn has passed, or ErrPresignNotSupported.
	PresignedURL(ctx context.Context, method Method, key string, expireIn time.Duration) (string, error)
}

// DriverType selects a driver implementation
type DriverType string

// the available driver types
const (
	// None disables file handling
	None DriverType = ""
	// DriverTypeLocal is the local filesystem driver
	DriverTypeLocal DriverType = "Local"
	// DriverTypeAWSS3 is the AWS S3 driver
	DriverTypeAWSS3 DriverType = "AWSS3"
)

// Configuration selects and configures a driver
type Configuration struct {
	DriverType         DriverType
	LocalConfiguration *LocalConfiguration
	S3Configuration    *S3Configuration
}

// NewDriver creates the driver selected by the configuration. A None
// configuration yields a nil driver.
func NewDriver(config Configuration) (Driver, error) {
	switch config.DriverType {
	case None:
		return nil, nil
	case DriverTypeLocal:
		if config.LocalConfiguration == nil {
			return nil, fmt.Errorf("local driver needs a LocalConfiguration")
		}
		return NewLocalFilesystem(config.LocalConfiguration.BasePath)
	case DriverTypeAWSS3:
		if config.S3Configuration == nil {
			return nil, fmt.Errorf("s3 driver needs a S3Configuration")
		}
		return NewS3(*config.S3Configuration)
	}
	return nil, fmt.Errorf("unknown driver type %q", config.DriverType)
}

// validKey rejects keys that could escape the storage prefix
func validKey(key string) error {
	if key == "" {
		return fmt.Errorf("empty key")
	}
	if strings.Contains(key, "..") {
		return fmt.Errorf("'..' is not allowed in a key")
	}
	if strings.HasPrefix(key, "/") {
		return fmt.Errorf("keys must be relative")
	}
	return nil
}
