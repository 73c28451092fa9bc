package storage

import (
	"fmt"
	"os"
	"path/filepath"
)

// RemoveTree deletes a directory tree depth-first. Symbolic links are
// deleted as leaf entries and never followed, so a link planted inside the
// tree cannot direct the walk outside it. A missing path is a no-op.
func RemoveTree(dir string) error {
	info, err := os.Lstat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to stat %s: %w", dir, err)
	}

	// The target itself may be a symlink or a plain file; remove it
	// without recursing.
	if !info.IsDir() {
		if err := os.Remove(dir); err != nil {
			return fmt.Errorf("failed to remove %s: %w", dir, err)
		}
		return nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", dir, err)
	}

	for _, entry := range entries {
		path := filepath.Join(dir, entry.Name())
		// entry.IsDir is false for symlinks to directories, so links fall
		// through to plain removal.
		if entry.IsDir() {
			if err := RemoveTree(path); err != nil {
				return err
			}
			continue
		}
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("failed to remove %s: %w", path, err)
		}
	}

	if err := os.Remove(dir); err != nil {
		return fmt.Errorf("failed to remove %s: %w", dir, err)
	}
	return nil
}
