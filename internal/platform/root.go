package platform

import (
	"errors"
	"os"
	"path/filepath"
)

// ErrRootNotFound is returned by FindRoot when no store marker exists in
// startDir or any of its parents.
var ErrRootNotFound = errors.New("store root not found")

// FindRoot walks upwards from startDir looking for a store root. A
// directory is a root when it holds a .setlist directory, a config file or
// a setlist.db database.
func FindRoot(startDir string) (string, error) {
	abs, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	markers := append([]string{".setlist", "setlist.db"}, ConfigFileNames...)
	dir := abs
	for {
		for _, m := range markers {
			if hasFile(dir, m) {
				return dir, nil
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", ErrRootNotFound
}

func hasFile(dir, name string) bool {
	_, err := os.Stat(filepath.Join(dir, name))
	return err == nil
}
