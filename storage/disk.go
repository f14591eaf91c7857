package storage

import (
	"fmt"
	"os"
	"path/filepath"
)

// DiskStore implements Store on a host directory, typically a volume shared
// with other services. A name maps to the path of the same name under the
// root directory.
type DiskStore struct {
	dir string
}

func NewDiskStore(dir string) *DiskStore {
	return &DiskStore{dir: dir}
}

// Put creates any missing parent directories and writes data as the full
// content of the file. A failed write may leave a truncated file behind.
func (s *DiskStore) Put(name string, data []byte) (err error) {
	valpath, err := s.pathFor(name)
	if err != nil {
		return fmt.Errorf("%q: %w", name, err)
	}
	err = os.WriteFile(valpath, data, 0644)
	if err == nil {
		return nil
	}
	if !os.IsNotExist(err) {
		return fmt.Errorf("could not write %q: %w", valpath, err)
	}
	if err = os.MkdirAll(filepath.Dir(valpath), 0755); err != nil {
		return fmt.Errorf("could not make dir for %q: %w", valpath, err)
	}
	if err = os.WriteFile(valpath, data, 0644); err != nil {
		return fmt.Errorf("could not write %q: %w", valpath, err)
	}
	return nil
}

// Get reads the whole file. Directories count as not found, as do names that
// cannot be stored in the first place.
func (s *DiskStore) Get(name string) (data []byte, err error) {
	valpath, err := s.pathFor(name)
	if err != nil {
		return nil, fmt.Errorf("%q: %v: %w", name, err, ErrNotFound)
	}
	data, err = os.ReadFile(valpath)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%q: %w", name, ErrNotFound)
	}
	if err != nil {
		if info, serr := os.Stat(valpath); serr == nil && info.IsDir() {
			return nil, fmt.Errorf("%q is a directory: %w", name, ErrNotFound)
		}
		return nil, fmt.Errorf("could not read %q: %w", valpath, err)
	}
	return data, nil
}

// Exists opens the file rather than probing the path, so that anything that
// would fail a read, other than absence, is reported as an error.
func (s *DiskStore) Exists(name string) (ok bool, err error) {
	valpath, err := s.pathFor(name)
	if err != nil {
		return false, nil
	}
	f, err := os.Open(valpath)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("could not open %q: %w", valpath, err)
	}
	defer func() {
		_ = f.Close()
	}()
	info, err := f.Stat()
	if err != nil {
		return false, fmt.Errorf("could not stat %q: %w", valpath, err)
	}
	return !info.IsDir(), nil
}

func (s *DiskStore) pathFor(name string) (string, error) {
	cleaned, err := cleanName(name)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.dir, filepath.FromSlash(cleaned)), nil
}
