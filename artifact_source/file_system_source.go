package artifact_source

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"iter"
	"os"
	"path/filepath"
	"strings"

	"github.com/turbot/trail-inspector/constants"
	"github.com/turbot/trail-inspector/types"
)

// FileSystemSource is an [ObjectStore] implementation that reads objects from a local directory tree.
// The bucket is the root directory and keys are slash separated paths relative to it.
// Directories are listed as placeholder keys with a trailing slash, the way S3 lists folders.
type FileSystemSource struct{}

func NewFileSystemSource() *FileSystemSource {
	return &FileSystemSource{}
}

func (s *FileSystemSource) Identifier() string {
	return constants.SourceTypeFileSystem
}

func (s *FileSystemSource) Close() error {
	return nil
}

func (s *FileSystemSource) CheckAccess(_ context.Context, bucket string) error {
	info, err := os.Stat(bucket)
	if err != nil {
		return &BucketAccessError{Bucket: bucket, Err: err}
	}
	if !info.IsDir() {
		return &BucketAccessError{Bucket: bucket, Err: errors.New("not a directory")}
	}
	return nil
}

// ListObjects implements [ObjectLister]
// keys are returned in lexical order
func (s *FileSystemSource) ListObjects(ctx context.Context, bucket, prefix string) iter.Seq2[*types.ObjectInfo, error] {
	return func(yield func(*types.ObjectInfo, error) bool) {
		stopped := false
		err := filepath.WalkDir(bucket, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			rel, err := filepath.Rel(bucket, path)
			if err != nil {
				return err
			}
			if rel == "." {
				return nil
			}
			key := filepath.ToSlash(rel)
			if d.IsDir() {
				key += "/"
			}
			if !strings.HasPrefix(key, prefix) {
				if d.IsDir() && !mayContainPrefix(key, prefix) {
					return filepath.SkipDir
				}
				return nil
			}

			info := types.NewObjectInfo(key)
			if fi, err := d.Info(); err == nil {
				info.LastModified = fi.ModTime()
				if !d.IsDir() {
					info.Size = fi.Size()
				}
			}
			if !yield(info, nil) {
				stopped = true
				return filepath.SkipAll
			}
			return nil
		})
		if err != nil && !stopped {
			yield(nil, fmt.Errorf("failed to list files in %s, %w", bucket, err))
		}
	}
}

// mayContainPrefix reports whether keys under the directory key could start with prefix
func mayContainPrefix(dirKey, prefix string) bool {
	return strings.HasPrefix(dirKey, prefix) || strings.HasPrefix(prefix, dirKey)
}

// FetchObject implements [ObjectFetcher]
func (s *FileSystemSource) FetchObject(_ context.Context, bucket, key string) ([]byte, error) {
	if types.NewObjectInfo(key).IsDirectory() {
		return nil, NewNotFoundError(key, ErrDirectoryPlaceholder)
	}

	path := filepath.Join(bucket, filepath.FromSlash(key))
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, NewNotFoundError(key, err)
		}
		return nil, NewTransientIOError(key, err)
	}
	if info.IsDir() {
		return nil, NewNotFoundError(key, ErrDirectoryPlaceholder)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, NewTransientIOError(key, err)
	}
	return data, nil
}
