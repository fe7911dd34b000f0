package reconciler

import (
	"os"
	"path/filepath"
	"syscall"
)

// discoverManifests walks base recursively, following symlinks but guarding
// against cycles with a visited-inode set (spec §4.5 Discovery), and returns
// every path whose base name equals manifestName.
func discoverManifests(base, manifestName string) ([]string, error) {
	visited := make(map[uint64]bool)
	var found []string

	var walk func(dir string) error
	walk = func(dir string) error {
		info, err := os.Stat(dir)
		if err != nil {
			return nil // race-tolerant: directory vanished between discovery steps
		}
		if ino, ok := inodeOf(info); ok {
			if visited[ino] {
				return nil
			}
			visited[ino] = true
		}

		entries, err := os.ReadDir(dir)
		if err != nil {
			return nil
		}
		for _, entry := range entries {
			full := filepath.Join(dir, entry.Name())
			if entry.Type()&os.ModeSymlink != 0 {
				target, err := os.Stat(full)
				if err != nil {
					continue
				}
				if target.IsDir() {
					if err := walk(full); err != nil {
						return err
					}
					continue
				}
				if entry.Name() == manifestName {
					found = append(found, full)
				}
				continue
			}
			if entry.IsDir() {
				if err := walk(full); err != nil {
					return err
				}
				continue
			}
			if entry.Name() == manifestName {
				found = append(found, full)
			}
		}
		return nil
	}

	if err := walk(base); err != nil {
		return nil, err
	}
	return found, nil
}

func inodeOf(info os.FileInfo) (uint64, bool) {
	stat, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return 0, false
	}
	return stat.Ino, true
}
