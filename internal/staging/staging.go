package staging

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

const defaultExt = ".wav"

var safeExt = regexp.MustCompile(`^\.[a-z0-9]{1,8}$`)

// Stager writes uploads to unique scratch files under dir.
type Stager struct {
	dir string
}

func NewStager(dir string) (*Stager, error) {
	if dir == "" {
		dir = filepath.Join(os.TempDir(), "voicetasks")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("NewStager(): failed to create staging directory: %w", err)
	}
	return &Stager{dir: dir}, nil
}

func (s *Stager) Dir() string {
	return s.dir
}

// File is one staged upload. Callers must defer Remove.
type File struct {
	Path string
	Size int64
}

// Stage copies r into a new file named after a random UUID. The original
// filename only contributes its extension. On error nothing is left on disk.
func (s *Stager) Stage(r io.Reader, originalName string) (*File, error) {
	path := filepath.Join(s.dir, uuid.NewString()+extensionOf(originalName))

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("Stager.Stage(): failed to create staging file: %w", err)
	}

	size, copyErr := io.Copy(f, r)
	closeErr := f.Close()
	if err := errors.Join(copyErr, closeErr); err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("Stager.Stage(): failed to write staging file: %w", err)
	}
	return &File{Path: path, Size: size}, nil
}

// Remove deletes the staged file. Removing twice is not an error.
func (f *File) Remove() error {
	if f == nil {
		return nil
	}
	if err := os.Remove(f.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func extensionOf(name string) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(name)))
	if !safeExt.MatchString(ext) {
		return defaultExt
	}
	return ext
}
