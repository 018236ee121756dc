package utils

import (
	"fmt"
	"os"
	"path/filepath"
)

// WriteRename writes data to a temporary file in the target directory
// and renames it into place, so readers never observe a partial write.
func WriteRename(path, prefix string, data []byte) error {
	dir := filepath.Dir(path)
	fd, err := os.CreateTemp(dir, fmt.Sprintf(".%s_*", prefix))
	if err != nil {
		return err
	}
	tmp := fd.Name()
	if _, err = fd.Write(data); err != nil {
		fd.Close()
		os.Remove(tmp)
		return err
	}
	if err = fd.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	if err = os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}
