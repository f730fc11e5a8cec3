package artifacts

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

var ErrInvalidName = errors.New("invalid artifact name")

// Store owns the upload and generated directories. Generated artifacts are
// served back by name, so names never carry a directory component.
type Store struct {
	uploadDir    string
	generatedDir string
	now          func() time.Time
}

func NewStore(uploadDir, generatedDir string) (*Store, error) {
	for _, dir := range []string{uploadDir, generatedDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	return &Store{uploadDir: uploadDir, generatedDir: generatedDir, now: time.Now}, nil
}

func (s *Store) GeneratedDir() string { return s.generatedDir }

// SaveUpload keeps the original upload as <id><ext>.
func (s *Store) SaveUpload(id, filename string, blob []byte) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	path := filepath.Join(s.uploadDir, id+ext)
	if err := os.WriteFile(path, blob, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

// Create opens a new generated artifact for writing.
func (s *Store) Create(name string) (*os.File, error) {
	if !validName(name) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return os.Create(filepath.Join(s.generatedDir, name))
}

// Resolve maps an artifact name to its path, refusing anything that would
// leave the generated directory.
func (s *Store) Resolve(name string) (string, error) {
	if !validName(name) {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	path := filepath.Join(s.generatedDir, name)
	info, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	if !info.Mode().IsRegular() {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return path, nil
}

func (s *Store) Remove(name string) error {
	if !validName(name) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	err := os.Remove(filepath.Join(s.generatedDir, name))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

type SweepResult struct {
	Uploads   int
	Generated int
}

// Sweep deletes uploads and generated files last modified before the
// retention window.
func (s *Store) Sweep(olderThan time.Duration) (SweepResult, error) {
	cutoff := s.now().Add(-olderThan)
	var res SweepResult
	var err error
	if res.Uploads, err = sweepDir(s.uploadDir, cutoff); err != nil {
		return res, err
	}
	if res.Generated, err = sweepDir(s.generatedDir, cutoff); err != nil {
		return res, err
	}
	return res, nil
}

func sweepDir(dir string, cutoff time.Time) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return 0, err
	}
	removed := 0
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(filepath.Join(dir, e.Name())); err != nil && !errors.Is(err, os.ErrNotExist) {
				return removed, err
			}
			removed++
		}
	}
	return removed, nil
}

func validName(name string) bool {
	if name == "" || name == "." || name == ".." || strings.HasPrefix(name, ".") {
		return false
	}
	if strings.ContainsAny(name, `/\`) || strings.ContainsRune(name, 0) {
		return false
	}
	return filepath.Base(name) == name
}
