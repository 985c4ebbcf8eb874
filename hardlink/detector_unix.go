//go:build !windows

package hardlink

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"syscall"
)

// HasHardlinks reports whether the file at path has more than one link. For a
// directory, such as a multi-file torrent's content path, it reports whether
// any regular file beneath it does.
func HasHardlinks(path string) (bool, error) {
	fi, err := os.Lstat(path)
	if err != nil {
		return false, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	if !fi.IsDir() {
		count, err := linkCount(path, fi)
		return count > 1, err
	}

	found := false
	err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		count, err := linkCount(p, info)
		if err != nil {
			return err
		}
		if count > 1 {
			found = true
			return fs.SkipAll
		}
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to walk %s: %w", path, err)
	}
	return found, nil
}

// GetHardlinkCount returns the number of hardlinks for a file
func GetHardlinkCount(path string) (uint64, error) {
	fi, err := os.Lstat(path)
	if err != nil {
		return 0, fmt.Errorf("failed to stat file %s: %w", path, err)
	}
	return linkCount(path, fi)
}

func linkCount(path string, fi fs.FileInfo) (uint64, error) {
	stat, ok := fi.Sys().(*syscall.Stat_t)
	if !ok {
		return 0, fmt.Errorf("cannot convert to syscall.Stat_t for %s", path)
	}
	return uint64(stat.Nlink), nil
}
