package index

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/dchest/safefile"
	"github.com/pkg/errors"
)

type FileReader interface {
	io.Reader
	io.ReaderAt
	io.Seeker
	io.Closer
}

type FileWriter interface {
	io.Writer
	io.Closer
	Commit() error
}

// Dir is the place where index artifacts live. Files written through
// CreateFile only become visible after Commit.
type Dir interface {
	Path() string
	OpenFile(name string) (FileReader, error)
	CreateFile(name string) (FileWriter, error)
}

type fsDir struct {
	path string
}

var ErrNotDirectory = errors.New("not a directory")

// IsNotExist reports whether the error says that an artifact is missing.
func IsNotExist(err error) bool {
	return os.IsNotExist(errors.Cause(err))
}

// OpenDir opens a directory on the filesystem, optionally also create it if it does not exist.
func OpenDir(path string, create bool) (Dir, error) {
	path, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	if stat, err := os.Stat(path); err != nil {
		if create && os.IsNotExist(err) {
			err = os.MkdirAll(path, 0750)
			if err != nil {
				return nil, err
			}
		} else {
			return nil, err
		}
	} else if !stat.IsDir() {
		return nil, ErrNotDirectory
	}

	return &fsDir{path: path}, nil
}

func (d *fsDir) OpenFile(name string) (FileReader, error) {
	return os.Open(filepath.Join(d.path, name))
}

func (d *fsDir) CreateFile(name string) (FileWriter, error) {
	return safefile.Create(filepath.Join(d.path, name), 0644)
}

func (d *fsDir) Path() string {
	return d.path
}

func (d *fsDir) String() string {
	return d.path
}

type memDir struct {
	mu      sync.RWMutex
	entries map[string][]byte
}

type memFileReader struct {
	*bytes.Reader
}

type memFileWriter struct {
	bytes.Buffer
	dir  *memDir
	name string
}

// NewMemDir creates a directory that only lives in the memory.
func NewMemDir() Dir {
	return &memDir{
		entries: make(map[string][]byte),
	}
}

func (d *memDir) OpenFile(name string) (FileReader, error) {
	d.mu.RLock()
	entry, ok := d.entries[name]
	d.mu.RUnlock()
	if !ok {
		return nil, &os.PathError{Op: "open", Path: name, Err: os.ErrNotExist}
	}
	return &memFileReader{Reader: bytes.NewReader(entry)}, nil
}

func (d *memDir) CreateFile(name string) (FileWriter, error) {
	return &memFileWriter{dir: d, name: name}, nil
}

func (d *memDir) Path() string {
	return ""
}

func (d *memDir) String() string {
	return "memory"
}

func (f *memFileReader) Close() error {
	return nil
}

func (f *memFileWriter) Commit() error {
	data := make([]byte, f.Len())
	copy(data, f.Bytes())
	f.dir.mu.Lock()
	f.dir.entries[f.name] = data
	f.dir.mu.Unlock()
	return nil
}

func (f *memFileWriter) Close() error {
	return nil
}

// ReadFile reads the whole content of a file from the directory.
func ReadFile(dir Dir, name string) ([]byte, error) {
	file, err := dir.OpenFile(name)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %v", name)
	}
	return data, nil
}

// WriteFile atomically replaces a file in the directory with whatever write produces.
func WriteFile(dir Dir, name string, write func(w io.Writer) error) error {
	file, err := dir.CreateFile(name)
	if err != nil {
		return errors.Wrap(err, "create failed")
	}
	defer file.Close()

	err = write(file)
	if err != nil {
		return errors.Wrap(err, "write failed")
	}

	err = file.Commit()
	if err != nil {
		return errors.Wrap(err, "commit failed")
	}

	return nil
}
