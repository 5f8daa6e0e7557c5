// Package scanner locates LLVM IR files under a directory tree.
// Hidden directories and common build-output directories are skipped;
// results come back sorted so downstream analysis order is stable.
package scanner

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// FileInfo describes one discovered IR file.
type FileInfo struct {
	Path     string // relative to the scan root
	FullPath string // absolute
	Size     int64
}

// Options configures the scanner.
type Options struct {
	// SkipHidden skips dot-files and dot-directories.
	SkipHidden bool
	// Excludes are directory names pruned from the walk.
	Excludes []string
}

// DefaultOptions returns scanner options with sensible defaults.
func DefaultOptions() Options {
	return Options{
		SkipHidden: true,
		Excludes:   []string{"node_modules", "target", "build", "dist", "obj", "CMakeFiles"},
	}
}

// Scanner walks directory trees for .ll files.
type Scanner struct {
	opts Options
}

// New creates a Scanner with the given options.
func New(opts Options) *Scanner {
	return &Scanner{opts: opts}
}

// Scan returns every .ll file under root, sorted by relative path.
func (s *Scanner) Scan(root string) ([]FileInfo, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", root, err)
	}
	st, err := os.Stat(absRoot)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", root, err)
	}
	if !st.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", root)
	}

	var files []FileInfo
	err = filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		name := d.Name()
		if d.IsDir() {
			if path == absRoot {
				return nil
			}
			if s.opts.SkipHidden && strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			if s.isExcluded(name) {
				return filepath.SkipDir
			}
			return nil
		}
		if s.opts.SkipHidden && strings.HasPrefix(name, ".") {
			return nil
		}
		if filepath.Ext(name) != ".ll" {
			return nil
		}
		rel, relErr := filepath.Rel(absRoot, path)
		if relErr != nil {
			return nil
		}
		info, infoErr := d.Info()
		var size int64
		if infoErr == nil {
			size = info.Size()
		}
		files = append(files, FileInfo{Path: rel, FullPath: path, Size: size})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", root, err)
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, nil
}

func (s *Scanner) isExcluded(name string) bool {
	for _, e := range s.opts.Excludes {
		if name == e {
			return true
		}
	}
	return false
}
