package files

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/relabs-tech/adminkit/core/logger"
)

// S3 stores file content in an AWS S3 bucket and hands out pre-signed URLs
// for upload and download
type S3 struct {
	client    *s3.Client
	presign   *s3.PresignClient
	bucket    string
	keyPrefix string
}

// S3Configuration contains the configuration for the AWS S3 driver
type S3Configuration struct {
	AWSBucketName string
	AWSRegion     string
	AccessID      string
	AccessKey     string
	KeyPrefix     string
}

// NewS3 returns a new S3 driver
func NewS3(s3Config S3Configuration) (*S3, error) {
	if s3Config.AWSBucketName == "" {
		return nil, fmt.Errorf("AWSBucketName must not be empty")
	}
	cfg, err := config.LoadDefaultConfig(
		context.TODO(),
		config.WithRegion(s3Config.AWSRegion),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(s3Config.AccessID, s3Config.AccessKey, "")),
	)
	if err != nil {
		return nil, err
	}
	client := s3.NewFromConfig(cfg)
	logger.Default().Debugln("s3 file storage enabled for bucket ", s3Config.AWSBucketName)
	return &S3{
		client:    client,
		presign:   s3.NewPresignClient(client),
		bucket:    s3Config.AWSBucketName,
		keyPrefix: s3Config.KeyPrefix,
	}, nil
}

// Put uploads the data into the key object
func (s *S3) Put(ctx context.Context, key string, data io.Reader) error {
	if err := validKey(key); err != nil {
		return err
	}
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.keyPrefix + key),
		Body:   data,
	})
	if err != nil {
		return fmt.Errorf("cannot upload %s: %w", key, err)
	}
	return nil
}

// Get downloads the key object
func (s *S3) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	if err := validKey(key); err != nil {
		return nil, err
	}
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.keyPrefix + key),
	})
	if err != nil {
		return nil, err
	}
	return out.Body, nil
}

// Delete deletes the key object
func (s *S3) Delete(ctx context.Context, key string) error {
	if err := validKey(key); err != nil {
		return err
	}
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.keyPrefix + key),
	})
	if err != nil {
		logger.FromContext(ctx).Error("could not delete ", s.keyPrefix+key)
	}
	return err
}

// DeleteAllWithPrefix deletes all keys starting with prefix. Keys are listed
// page by page, large prefixes take several round trips.
func (s *S3) DeleteAllWithPrefix(ctx context.Context, prefix string) error {
	if err := validKey(prefix); err != nil {
		return err
	}
	var continuationToken *string
	for {
		page, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(s.bucket),
			Prefix:            aws.String(s.keyPrefix + prefix),
			ContinuationToken: continuationToken,
		})
		if err != nil {
			return err
		}
		for _, item := range page.Contents {
			_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
				Bucket: aws.String(s.bucket),
				Key:    item.Key,
			})
			if err != nil {
				logger.FromContext(ctx).Error("could not delete ", *item.Key)
				return err
			}
		}
		continuationToken = page.NextContinuationToken
		if continuationToken == nil {
			return nil
		}
	}
}

// PresignedURL returns a pre-signed URL that can be used with the given
// method until expireIn has passed
func (s *S3) PresignedURL(ctx context.Context, method Method, key string, expireIn time.Duration) (string, error) {
	if err := validKey(key); err != nil {
		return "", err
	}
	switch method {
	case Get:
		resp, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(s.keyPrefix + key),
		}, s3.WithPresignExpires(expireIn))
		if err != nil {
			return "", err
		}
		return resp.URL, nil
	case Put:
		resp, err := s.presign.PresignPutObject(ctx, &s3.PutObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(s.keyPrefix + key),
		}, s3.WithPresignExpires(expireIn))
		if err != nil {
			return "", err
		}
		return resp.URL, nil
	}
	return "", fmt.Errorf("unsupported method %s for pre-signing %s", method, key)
}
