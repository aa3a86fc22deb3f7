package bundle

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// File name conventions inside the pages directory.
const (
	EntrySuffix      = ".entry.js"
	DescriptorSuffix = ".json"
	entryPattern     = "**/*" + EntrySuffix
	descPattern      = "**/*" + DescriptorSuffix
)

// ErrPagesDirMissing is returned when the pages directory does not exist.
var ErrPagesDirMissing = errors.New("pages directory does not exist")

// Page is one page discovered from its JSON descriptor.
type Page struct {
	Name       string // slash-separated, relative to the pages dir, no extension
	Descriptor string // absolute path of the JSON descriptor
	HTML       string // emitted HTML asset, e.g. "home/index.html"
	Script     string // page bundle referenced from the HTML, e.g. "home/index.js"
}

// glob returns the slash-separated matches of pattern under dir, sorted.
func glob(dir, pattern string) ([]string, error) {
	info, err := os.Stat(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrPagesDirMissing, dir)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("pages path is not a directory: %s", dir)
	}

	matches, err := doublestar.Glob(os.DirFS(dir), pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("failed to glob %s in %s: %w", pattern, dir, err)
	}
	sort.Strings(matches)
	return matches, nil
}

// DiscoverEntries maps every "<name>.entry.js" under pagesDir to its absolute path,
// keyed by name.
func DiscoverEntries(pagesDir string) (map[string]string, error) {
	matches, err := glob(pagesDir, entryPattern)
	if err != nil {
		return nil, err
	}

	entries := make(map[string]string, len(matches))
	for _, m := range matches {
		name := strings.TrimSuffix(m, EntrySuffix)
		entries[name] = filepath.Join(pagesDir, filepath.FromSlash(m))
	}
	return entries, nil
}

// DiscoverPages returns one Page per JSON descriptor under pagesDir in lexical order.
func DiscoverPages(pagesDir string) ([]Page, error) {
	matches, err := glob(pagesDir, descPattern)
	if err != nil {
		return nil, err
	}

	pages := make([]Page, 0, len(matches))
	for _, m := range matches {
		name := strings.TrimSuffix(m, DescriptorSuffix)
		pages = append(pages, Page{
			Name:       name,
			Descriptor: filepath.Join(pagesDir, filepath.FromSlash(m)),
			HTML:       name + ".html",
			Script:     name + ".js",
		})
	}
	return pages, nil
}

// entryName returns the page name for an entry file path, or "" if p is not an entry.
func entryName(pagesDir, p string) string {
	if !strings.HasSuffix(p, EntrySuffix) {
		return ""
	}
	rel, err := filepath.Rel(pagesDir, p)
	if err != nil || !filepath.IsLocal(rel) {
		return ""
	}
	return strings.TrimSuffix(path.Clean(filepath.ToSlash(rel)), EntrySuffix)
}
