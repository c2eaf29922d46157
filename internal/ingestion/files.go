package ingestion

import (
	"io/fs"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/thoas/go-funk"
)

// ListFiles returns the regular files under root as sorted slash separated relative paths.
// Anything inside a .git directory is skipped.
func ListFiles(root string) ([]string, error) {
	files := []string{}
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(files)
	return files, nil
}

// ExtensionHistogram counts files per lower-cased extension. Files without one are counted
// under the empty key.
func ExtensionHistogram(files []string) map[string]int {
	exts := funk.Map(files, func(f string) string {
		return strings.ToLower(path.Ext(f))
	}).([]string)

	hist := make(map[string]int)
	for _, e := range exts {
		hist[e]++
	}
	return hist
}
