package resolve

import (
	"os"
	"path/filepath"
)

// Namespace is the view of /dev the resolver needs
type Namespace interface {
	// ReadLinks returns link name -> resolved target for the symlinks in dir
	ReadLinks(dir string) (map[string]string, error)
	// Exists reports whether a device node (or link to one) is present
	Exists(path string) bool
}

// DevNamespace reads the host's /dev
type DevNamespace struct{}

// ReadLinks reads all symlinks in a directory and returns a map of link
// name -> resolved path
func (DevNamespace) ReadLinks(dir string) (map[string]string, error) {
	result := make(map[string]string)

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return result, nil
		}
		return nil, err
	}

	for _, entry := range entries {
		if entry.Type()&os.ModeSymlink == 0 {
			continue
		}

		linkPath := filepath.Join(dir, entry.Name())
		target, err := filepath.EvalSymlinks(linkPath)
		if err != nil {
			// Dangling while udev is still working; fall back to the raw link
			raw, rerr := os.Readlink(linkPath)
			if rerr != nil {
				continue
			}
			target = raw
		}

		result[entry.Name()] = target
	}

	return result, nil
}

// Exists stats path, following symlinks
func (DevNamespace) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
