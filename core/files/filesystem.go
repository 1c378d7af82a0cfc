package files

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/relabs-tech/adminkit/core/logger"
)

// LocalFilesystem stores file content below a base folder. It does not
// support pre-signed URLs; the admin streams the content itself.
type LocalFilesystem struct {
	baseFolder string
}

// LocalConfiguration contains the configuration for the local filesystem
// driver
type LocalConfiguration struct {
	BasePath string
}

// NewLocalFilesystem returns a new LocalFilesystem rooted at baseFolder,
// creating the folder if necessary
func NewLocalFilesystem(baseFolder string) (*LocalFilesystem, error) {
	if err := os.MkdirAll(baseFolder, 0700); err != nil {
		return nil, err
	}
	logger.Default().Debugln("local file storage enabled at ", baseFolder)
	return &LocalFilesystem{baseFolder: baseFolder}, nil
}

func (f LocalFilesystem) path(key string) string {
	return filepath.Join(f.baseFolder, filepath.FromSlash(key))
}

// Put stores the data under key, replacing any previous content
func (f LocalFilesystem) Put(ctx context.Context, key string, data io.Reader) error {
	if err := validKey(key); err != nil {
		return err
	}
	filePath := f.path(key)
	if err := os.MkdirAll(filepath.Dir(filePath), 0700); err != nil {
		return err
	}
	dst, err := os.Create(filePath)
	if err != nil {
		return err
	}
	defer dst.Close()
	_, err = io.Copy(dst, data)
	return err
}

// Get opens the content stored under key
func (f LocalFilesystem) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	if err := validKey(key); err != nil {
		return nil, err
	}
	return os.Open(f.path(key))
}

// Delete deletes the key file
func (f LocalFilesystem) Delete(ctx context.Context, key string) error {
	if err := validKey(key); err != nil {
		return err
	}
	return os.Remove(f.path(key))
}

// DeleteAllWithPrefix deletes all keys starting with prefix
func (f LocalFilesystem) DeleteAllWithPrefix(ctx context.Context, prefix string) error {
	if err := validKey(prefix); err != nil {
		return err
	}
	return os.RemoveAll(f.path(prefix))
}

// PresignedURL always returns ErrPresignNotSupported for the local driver
func (f LocalFilesystem) PresignedURL(ctx context.Context, method Method, key string, expireIn time.Duration) (string, error) {
	return "", ErrPresignNotSupported
}
