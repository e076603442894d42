package snapshot

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const diskExt = ".json"

// DiskStore stores snapshots as files in a directory.
type DiskStore struct {
	dir     string
	maxSize int64
}

// NewDiskStore creates a new DiskStore.
//
// Parameters:
//   - dir: Directory holding the snapshot files, created if missing
//   - maxSize: Maximum encoded snapshot size in bytes (0 = no limit)
func NewDiskStore(dir string, maxSize int64) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	return &DiskStore{dir: dir, maxSize: maxSize}, nil
}

// Dir returns the directory holding the snapshots.
func (s *DiskStore) Dir() string {
	return s.dir
}

// Save writes doc to <dir>/<name>.json. The file is replaced atomically.
func (s *DiskStore) Save(ctx context.Context, name string, doc any) (Info, error) {
	if err := checkName(name); err != nil {
		return Info{}, err
	}
	data, err := Encode(doc)
	if err != nil {
		return Info{}, err
	}
	if s.maxSize > 0 && int64(len(data)) > s.maxSize {
		return Info{}, ErrTooLarge
	}
	if err := ctx.Err(); err != nil {
		return Info{}, err
	}

	f, err := os.CreateTemp(s.dir, "."+name+".*.tmp")
	if err != nil {
		return Info{}, err
	}
	tmp := f.Name()
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return Info{}, err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return Info{}, err
	}
	if err := os.Rename(tmp, s.path(name)); err != nil {
		os.Remove(tmp)
		return Info{}, err
	}

	st, err := os.Stat(s.path(name))
	if err != nil {
		return Info{}, err
	}
	return Info{Name: name, Size: st.Size(), CreatedAt: st.ModTime()}, nil
}

// Load reads and decodes <dir>/<name>.json.
func (s *DiskStore) Load(ctx context.Context, name string) (any, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.path(name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return Decode(data)
}

// List returns the snapshots in the directory. Files that are not valid
// snapshot names are skipped.
func (s *DiskStore) List(ctx context.Context) ([]Info, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}

	var infos []Info
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name, ok := strings.CutSuffix(entry.Name(), diskExt)
		if !ok || !ValidName(name) {
			continue
		}
		st, err := entry.Info()
		if err != nil {
			// Removed since ReadDir.
			continue
		}
		infos = append(infos, Info{Name: name, Size: st.Size(), CreatedAt: st.ModTime()})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos, ctx.Err()
}

// Delete removes <dir>/<name>.json.
func (s *DiskStore) Delete(ctx context.Context, name string) error {
	if err := checkName(name); err != nil {
		return err
	}
	err := os.Remove(s.path(name))
	if errors.Is(err, fs.ErrNotExist) {
		return ErrNotFound
	}
	return err
}

func (s *DiskStore) path(name string) string {
	return filepath.Join(s.dir, name+diskExt)
}
