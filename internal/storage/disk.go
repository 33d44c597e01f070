package storage

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
)

// Usage is the on-disk footprint of a set of paths.
type Usage struct {
	Total  int64            `json:"total_bytes"`
	ByPath map[string]int64 `json:"by_path"`
}

// DiskUsage sums the size of each path. Directories are walked recursively and
// missing paths count as zero. The SQLite WAL and shared-memory siblings of a file
// path are included when present.
func DiskUsage(paths ...string) (Usage, error) {
	u := Usage{ByPath: make(map[string]int64, len(paths))}
	for _, p := range paths {
		if p == "" {
			continue
		}
		var size int64
		for _, candidate := range []string{p, p + "-wal", p + "-shm"} {
			n, err := pathSize(candidate)
			if err != nil {
				return Usage{}, err
			}
			size += n
		}
		u.ByPath[p] = size
		u.Total += size
	}
	return u, nil
}

// DiskUsageBytes returns the total size in bytes of the given paths.
func DiskUsageBytes(paths ...string) (int64, error) {
	u, err := DiskUsage(paths...)
	return u.Total, err
}

func pathSize(p string) (int64, error) {
	info, err := os.Stat(p)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	if !info.IsDir() {
		return info.Size(), nil
	}
	var total int64
	err = filepath.WalkDir(p, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		fi, err := d.Info()
		if err != nil {
			return err
		}
		total += fi.Size()
		return nil
	})
	return total, err
}
