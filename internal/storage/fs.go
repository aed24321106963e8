package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/DominiquePaul/thisiscrispin/internal/index"
)

// Ext is the extension of every exported post.
const Ext = ".md"

const tmpPrefix = ".export-"

// ErrNotMarkdown is returned for writes and moves to a non-Markdown path.
var ErrNotMarkdown = errors.New("storage: export paths must end in " + Ext)

// FS is a Provider over a local directory. All access goes through an
// os.Root, so symlinks and ".." cannot leave the export directory.
type FS struct {
	dir  string
	root *os.Root
}

// NewFS opens dir as an export root, creating it when missing.
func NewFS(dir string) (*FS, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("storage: create export dir: %w", err)
	}
	root, err := os.OpenRoot(dir)
	if err != nil {
		return nil, fmt.Errorf("storage: open export dir: %w", err)
	}
	return &FS{dir: dir, root: root}, nil
}

// Dir returns the directory the FS was opened on.
func (f *FS) Dir() string { return f.dir }

// Close releases the export root.
func (f *FS) Close() error { return f.root.Close() }

// List returns every exported post under dir. In-flight temp files are
// skipped.
func (f *FS) List(dir string) ([]FileInfo, error) {
	start := "."
	if dir != "" {
		start = filepath.ToSlash(filepath.Clean(dir))
	}
	var out []FileInfo
	err := fs.WalkDir(f.root.FS(), start, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || path.Ext(p) != Ext || strings.HasPrefix(d.Name(), tmpPrefix) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		data, err := f.root.ReadFile(p)
		if err != nil {
			return err
		}
		out = append(out, FileInfo{Path: p, Checksum: index.Checksum(data), UpdatedAt: info.ModTime()})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("storage: list %s: %w", start, err)
	}
	return out, nil
}

// Read returns the bytes of an exported file.
func (f *FS) Read(name string) ([]byte, error) {
	data, err := f.root.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("storage: read: %w", err)
	}
	return data, nil
}

// Write replaces name with content. The content lands in a temp file first
// and is renamed into place, so readers see the old or the new post, never
// a torn one.
func (f *FS) Write(name string, content []byte) error {
	if path.Ext(filepath.ToSlash(name)) != Ext {
		return ErrNotMarkdown
	}
	dir := filepath.Dir(name)
	if err := f.root.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("storage: write %s: %w", name, err)
	}

	tmp := filepath.Join(dir, tmpPrefix+uuid.NewString()+".tmp")
	file, err := f.root.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("storage: write %s: %w", name, err)
	}
	if err := writeSync(file, content); err != nil {
		_ = f.root.Remove(tmp)
		return fmt.Errorf("storage: write %s: %w", name, err)
	}
	if err := f.root.Rename(tmp, name); err != nil {
		_ = f.root.Remove(tmp)
		return fmt.Errorf("storage: write %s: %w", name, err)
	}
	return nil
}

func writeSync(file *os.File, content []byte) error {
	_, err := file.Write(content)
	if err == nil {
		err = file.Sync()
	}
	if cerr := file.Close(); err == nil {
		err = cerr
	}
	return err
}

// Delete removes an exported file.
func (f *FS) Delete(name string) error {
	if err := f.root.Remove(name); err != nil {
		return fmt.Errorf("storage: delete: %w", err)
	}
	return nil
}

// Move renames an exported post, as after a slug change.
func (f *FS) Move(oldName, newName string) error {
	if path.Ext(filepath.ToSlash(newName)) != Ext {
		return ErrNotMarkdown
	}
	if err := f.root.MkdirAll(filepath.Dir(newName), 0o755); err != nil {
		return fmt.Errorf("storage: move: %w", err)
	}
	if err := f.root.Rename(oldName, newName); err != nil {
		return fmt.Errorf("storage: move: %w", err)
	}
	return nil
}

var _ Provider = (*FS)(nil)
