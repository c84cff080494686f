package blob

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
)

// Disk stores blobs under a root directory on the local filesystem.
type Disk struct {
	root string
}

// NewDisk creates a disk store rooted at dir, creating it if needed.
func NewDisk(dir string) (*Disk, error) {
	if dir == "" {
		return nil, eris.New("blob: root directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, eris.Wrapf(err, "blob: create root %s", dir)
	}
	return &Disk{root: dir}, nil
}

func (d *Disk) Save(path string, data []byte) error {
	full := d.LocalPath(path)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return eris.Wrapf(err, "blob: create directory for %s", path)
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return eris.Wrapf(err, "blob: write %s", path)
	}
	return nil
}

func (d *Disk) Exists(path string) bool {
	info, err := os.Stat(d.LocalPath(path))
	return err == nil && !info.IsDir()
}

func (d *Disk) LocalPath(path string) string {
	return filepath.Join(d.root, filepath.FromSlash(path))
}

func (d *Disk) Delete(path string) error {
	err := os.Remove(d.LocalPath(path))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return eris.Wrapf(err, "blob: delete %s", path)
	}
	return nil
}
