package storage

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// FileStore maps logical store paths to physical file operations under a
// configured root. Every parent directory is created before the I/O that
// needs it; creating an existing directory is not an error.
type FileStore struct {
	fs   afero.Fs
	root string
}

// NewFileStore creates a file store rooted at root
func NewFileStore(fs afero.Fs, root string) *FileStore {
	return &FileStore{fs: fs, root: root}
}

// FileInfo describes one stored file
type FileInfo struct {
	Path      string // logical path as given
	Name      string // base name without extension
	Extension string // extension without the leading dot
	ByteSize  int64
}

// Resolve joins a logical path against the store root
func (s *FileStore) Resolve(logicalPath string) string {
	return filepath.Join(s.root, filepath.FromSlash(logicalPath))
}

// Read copies store content to destination, creating destination's parent
// directories first
func (s *FileStore) Read(logicalPath, destination string) error {
	src, err := s.OpenReadStream(logicalPath)
	if err != nil {
		return err
	}
	defer src.Close()

	if err := s.fs.MkdirAll(filepath.Dir(destination), 0o755); err != nil {
		return err
	}
	dst, err := s.fs.Create(destination)
	if err != nil {
		return err
	}
	defer dst.Close()

	_, err = io.Copy(dst, src)
	return err
}

// Write copies source content into the store at logicalPath
func (s *FileStore) Write(source, logicalPath string) error {
	src, err := s.fs.Open(source)
	if err != nil {
		if os.IsNotExist(err) {
			return &NotFoundError{Path: source}
		}
		return err
	}
	defer src.Close()

	dst, err := s.OpenWriteStream(logicalPath)
	if err != nil {
		return err
	}
	defer dst.Close()

	_, err = io.Copy(dst, src)
	return err
}

// WriteFrom streams reader content into the store at logicalPath
func (s *FileStore) WriteFrom(source io.Reader, logicalPath string) error {
	dst, err := s.OpenWriteStream(logicalPath)
	if err != nil {
		return err
	}
	defer dst.Close()

	_, err = io.Copy(dst, source)
	return err
}

// Move renames a stored file, creating destination parent directories first
func (s *FileStore) Move(sourceLogical, destLogical string) error {
	src := s.Resolve(sourceLogical)
	if _, err := s.fs.Stat(src); err != nil {
		return &NotFoundError{Path: sourceLogical}
	}

	dst := s.Resolve(destLogical)
	if err := s.fs.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	return s.fs.Rename(src, dst)
}

// Delete removes a stored file
func (s *FileStore) Delete(logicalPath string) error {
	physical := s.Resolve(logicalPath)
	if _, err := s.fs.Stat(physical); err != nil {
		return &NotFoundError{Path: logicalPath}
	}
	return s.fs.Remove(physical)
}

// Stat returns byte size and derived name components for a stored file
func (s *FileStore) Stat(logicalPath string) (*FileInfo, error) {
	info, err := s.fs.Stat(s.Resolve(logicalPath))
	if err != nil {
		return nil, &NotFoundError{Path: logicalPath}
	}

	base := filepath.Base(logicalPath)
	ext := strings.TrimPrefix(filepath.Ext(base), ".")
	name := strings.TrimSuffix(base, filepath.Ext(base))

	return &FileInfo{
		Path:      logicalPath,
		Name:      name,
		Extension: ext,
		ByteSize:  info.Size(),
	}, nil
}

// OpenReadStream opens a stored file for reading
func (s *FileStore) OpenReadStream(logicalPath string) (io.ReadCloser, error) {
	f, err := s.fs.Open(s.Resolve(logicalPath))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &NotFoundError{Path: logicalPath}
		}
		return nil, err
	}
	return f, nil
}

// OpenWriteStream opens a stored file for writing, guaranteeing parent
// directories exist before the stream is handed to the caller
func (s *FileStore) OpenWriteStream(logicalPath string) (io.WriteCloser, error) {
	physical := s.Resolve(logicalPath)
	if err := s.fs.MkdirAll(filepath.Dir(physical), 0o755); err != nil {
		return nil, err
	}
	return s.fs.Create(physical)
}
