// Package testutil provides test utilities for CLI testing.
package testutil

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/leapstack-labs/frame/internal/cli/output"
)

// Layout is the layout.html of the "basic" template SetupTestProject creates.
const Layout = `<!DOCTYPE html>
<html>
<body>
<div id="app"></div>
<!--placeholder-->
</body>
</html>
`

// SetupTestProject creates a temporary project with a "basic" template under
// templates/ and one page per name under src/pages.
func SetupTestProject(t *testing.T, pages ...string) string {
	t.Helper()

	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "src", "pages"), 0o750); err != nil {
		t.Fatalf("failed to create pages directory: %v", err)
	}
	WriteFile(t, root, "templates/basic/layout.html", Layout)

	for _, name := range pages {
		WritePage(t, root, name)
	}
	return root
}

// WritePage writes an entry and a descriptor using the basic template for name.
func WritePage(t *testing.T, root, name string) {
	t.Helper()
	WriteFile(t, root, "src/pages/"+name+".entry.js", `console.log("`+name+`");`+"\n")
	WriteFile(t, root, "src/pages/"+name+".json", `{"template": "basic"}`)
}

// WriteFile writes content to the slash-separated path rel under root.
func WriteFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		t.Fatalf("failed to create directory for %s: %v", rel, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write %s: %v", rel, err)
	}
}

// TestRenderer wraps a Renderer for testing with captured output buffers.
type TestRenderer struct {
	*output.Renderer
	Out    *bytes.Buffer
	ErrOut *bytes.Buffer
}

// NewTestRenderer creates a new test renderer with the specified mode and TTY state.
func NewTestRenderer(mode output.OutputMode, isTTY bool) *TestRenderer {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	return &TestRenderer{
		Renderer: output.NewRendererWithTTY(out, errOut, isTTY, mode),
		Out:      out,
		ErrOut:   errOut,
	}
}

// Output returns the captured standard output.
func (tr *TestRenderer) Output() string {
	return tr.Out.String()
}

// ErrorOutput returns the captured error output.
func (tr *TestRenderer) ErrorOutput() string {
	return tr.ErrOut.String()
}
