package bundle

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/leapstack-labs/frame/internal/testutil"
	"github.com/stretchr/testify/require"
)

const basicLayout = `<!DOCTYPE html>
<html>
<head><title>basic</title></head>
<body>
<div id="app"></div>
<!--placeholder-->
<script src="/old/bundle.js"></script>
</body>
</html>
`

// fixture is a throwaway front-end project on disk.
type fixture struct {
	root string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{root: t.TempDir()}
	f.write(t, "templates/basic/layout.html", basicLayout)
	require.NoError(t, os.MkdirAll(filepath.Join(f.root, "src", "pages"), 0o750))
	return f
}

func (f *fixture) write(t *testing.T, rel, content string) {
	t.Helper()
	p := filepath.Join(f.root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o750))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
}

func (f *fixture) path(rel string) string {
	return filepath.Join(f.root, filepath.FromSlash(rel))
}

// page writes an entry and a descriptor for name using the basic template.
func (f *fixture) page(t *testing.T, name, entry string) {
	t.Helper()
	f.write(t, "src/pages/"+name+".entry.js", entry)
	f.write(t, "src/pages/"+name+".json", `{"template": "basic"}`)
}

func (f *fixture) options(env string) Options {
	return Options{
		Root:         f.root,
		PagesDir:     "src/pages",
		TemplatesDir: "templates",
		OutDir:       "dist",
		Environment:  env,
		PublicPath:   DefaultPublicPath,
		DevServer:    DefaultDevServer(),
		OpenURL:      func(string) error { return nil },
	}
}

func (f *fixture) compose(t *testing.T, env string) *Config {
	t.Helper()
	cfg, err := Compose(f.options(env))
	require.NoError(t, err)
	return cfg
}

func (f *fixture) builder(t *testing.T, cfg *Config) *Builder {
	t.Helper()
	b := NewBuilder(cfg, testutil.NewTestLogger(t))
	t.Cleanup(b.Close)
	return b
}
