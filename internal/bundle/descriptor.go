package bundle

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// LayoutFile is the file looked up inside each template directory.
const LayoutFile = "layout.html"

// Descriptor is a page's JSON configuration file.
type Descriptor struct {
	Template string `json:"template"`
	Title    string `json:"title,omitempty"`
}

// ReadDescriptor parses the descriptor at path and checks that it names a template.
func ReadDescriptor(path string) (*Descriptor, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: descriptor paths come from discovery
	if err != nil {
		return nil, fmt.Errorf("failed to read page descriptor: %w", err)
	}

	var d Descriptor
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("failed to parse page descriptor %s: %w", path, err)
	}
	if d.Template == "" {
		return nil, fmt.Errorf("page descriptor %s: template is required", path)
	}
	if !filepath.IsLocal(d.Template) {
		return nil, fmt.Errorf("page descriptor %s: template %q must stay inside the templates directory", path, d.Template)
	}
	return &d, nil
}

// LayoutPath returns where the layout for template lives under templatesDir.
func LayoutPath(templatesDir, template string) string {
	return filepath.Join(templatesDir, template, LayoutFile)
}
