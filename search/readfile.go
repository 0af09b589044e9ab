package search

import (
	"fmt"
	"io"
	"os"
)

// readFileCapped reads at most limit bytes of path and advises the kernel
// to drop the pages afterwards.
func readFileCapped(path string, limit int64) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if stat.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}

	data, err := io.ReadAll(io.LimitReader(f, limit))
	dropPageCache(f)
	if err != nil {
		return nil, err
	}
	return data, nil
}
