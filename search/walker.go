package search

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/rs/zerolog"

	"docsearch/config"
	"docsearch/obs"
)

// ErrCorpusUnavailable is returned when the corpus root cannot be listed.
var ErrCorpusUnavailable = errors.New("corpus unavailable")

// FileWalker enumerates the corpus
type FileWalker struct {
	includeHidden bool
	logger        zerolog.Logger
}

// NewFileWalker creates a new file walker. Hidden entries are skipped unless
// includeHidden is set.
func NewFileWalker(includeHidden bool) *FileWalker {
	return &FileWalker{
		includeHidden: includeHidden,
		logger:        obs.Logger("walker"),
	}
}

// List returns every non-directory file under root as a slash-separated
// path relative to root, sorted. A missing or unreadable root is an error;
// unreadable entries below it are logged and skipped.
func (fw *FileWalker) List(root string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorpusUnavailable, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrCorpusUnavailable, root)
	}

	var files []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			fw.logger.Warn().Err(err).Str("path", path).Msg("skipping unreadable entry")
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		// Skip hidden and excluded directories
		if d.IsDir() {
			if path != root && config.ShouldSkipDirectory(d.Name(), fw.includeHidden) {
				return filepath.SkipDir
			}
			return nil
		}

		if !fw.includeHidden && config.IsHiddenFile(d.Name()) {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorpusUnavailable, err)
	}

	sort.Strings(files)
	return files, nil
}
