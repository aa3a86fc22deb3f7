package bundle

import (
	"sort"
	"strings"
)

// Assets is the in-memory emission of one build, keyed by slash-separated
// path relative to the output directory.
type Assets map[string][]byte

// Names returns the asset paths sorted.
func (a Assets) Names() []string {
	names := make([]string, 0, len(a))
	for name := range a {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// WithPrefix returns the sorted asset paths under dir.
func (a Assets) WithPrefix(dir string) []string {
	var names []string
	for _, name := range a.Names() {
		if strings.HasPrefix(name, dir) {
			names = append(names, name)
		}
	}
	return names
}

// Size returns the total byte size of all assets.
func (a Assets) Size() int {
	n := 0
	for _, data := range a {
		n += len(data)
	}
	return n
}
