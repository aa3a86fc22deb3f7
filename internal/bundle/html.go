package bundle

import (
	"bytes"
	"fmt"
	"os"
	"regexp"
)

// Placeholder marks where generated script tags go in a layout.
const Placeholder = "<!--placeholder-->"

// ReloadEndpoint is the dev-server path the live-reload client listens on.
const ReloadEndpoint = "/__reload"

var placeholderPattern = regexp.MustCompile(`(?is)<!--placeholder-->.*`)

// ScriptTags returns what replaces the placeholder and everything after it:
// the shared bundle, the page bundle, then the closing tags.
func ScriptTags(base, common, script string) string {
	return fmt.Sprintf(`<script type="module" src="%[1]s/%[2]s"></script>
<script type="module" src="%[1]s/%[3]s"></script>
</body>
</html>
`, base, common, script)
}

// ReplacePlaceholder keeps layout up to the first placeholder and replaces the
// rest with tail. A layout without a placeholder is returned unchanged.
func ReplacePlaceholder(layout []byte, tail string) []byte {
	loc := placeholderPattern.FindIndex(layout)
	if loc == nil {
		return bytes.Clone(layout)
	}
	out := make([]byte, 0, loc[0]+len(tail))
	out = append(out, layout[:loc[0]]...)
	return append(out, tail...)
}

// RenderPage reads the page's descriptor and layout and returns the page HTML.
func RenderPage(cfg *Config, page Page) ([]byte, error) {
	desc, err := ReadDescriptor(page.Descriptor)
	if err != nil {
		return nil, err
	}

	layoutPath := LayoutPath(cfg.TemplatesDir, desc.Template)
	layout, err := os.ReadFile(layoutPath) //nolint:gosec // G304: template name validated by ReadDescriptor
	if err != nil {
		return nil, fmt.Errorf("failed to read layout for template %q: %w", desc.Template, err)
	}

	return ReplacePlaceholder(layout, ScriptTags(cfg.ScriptBase(), cfg.CommonChunk, page.Script)), nil
}

// InjectReloadClient inserts the live-reload client before the last </body>,
// or appends it when there is none.
func InjectReloadClient(html []byte) []byte {
	tag := []byte("<script>" + reloadClient + "</script>\n")
	i := bytes.LastIndex(bytes.ToLower(html), []byte("</body>"))
	if i < 0 {
		return append(bytes.Clone(html), tag...)
	}
	out := make([]byte, 0, len(html)+len(tag))
	out = append(out, html[:i]...)
	out = append(out, tag...)
	return append(out, html[i:]...)
}

const reloadClient = `
(function() {
  var es = new EventSource('` + ReloadEndpoint + `');
  es.addEventListener('reload', function() {
    console.log('[frame] rebuilt, reloading');
    window.location.reload();
  });
  es.addEventListener('build-error', function(e) {
    console.error('[frame] build failed:\n' + e.data);
  });
  es.onerror = function() {
    console.log('[frame] connection lost, retrying');
  };
})();
`
