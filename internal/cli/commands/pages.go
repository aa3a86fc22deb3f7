package commands

import (
	"fmt"
	"path/filepath"

	"github.com/leapstack-labs/frame/internal/bundle"
	"github.com/leapstack-labs/frame/internal/cli/output"
	"github.com/spf13/cobra"
)

// NewPagesCommand creates the pages command.
func NewPagesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "pages",
		Short: "List the pages that would be emitted",
		Long: `List every page descriptor under the pages directory with its entry,
template and the HTML file it produces. Pages whose descriptor cannot be read
are listed with the error instead of a template.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPages(cmd)
		},
	}
}

// pageInfo is one row of the pages listing.
type pageInfo struct {
	Name     string `json:"name"`
	Entry    string `json:"entry,omitempty"`
	Template string `json:"template,omitempty"`
	HTML     string `json:"html"`
	Script   string `json:"script"`
	Error    string `json:"error,omitempty"`
}

func collectPages(c *bundle.Config) ([]pageInfo, error) {
	pages, err := c.Pages()
	if err != nil {
		return nil, err
	}

	infos := make([]pageInfo, 0, len(pages))
	for _, p := range pages {
		info := pageInfo{Name: p.Name, HTML: p.HTML, Script: p.Script}
		if entry, ok := c.Entries[p.Name]; ok {
			if rel, err := filepath.Rel(c.PagesDir, entry); err == nil {
				entry = filepath.ToSlash(rel)
			}
			info.Entry = entry
		}
		if d, err := bundle.ReadDescriptor(p.Descriptor); err != nil {
			info.Error = err.Error()
		} else {
			info.Template = d.Template
		}
		infos = append(infos, info)
	}
	return infos, nil
}

func runPages(cmd *cobra.Command) error {
	cc, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}

	bcfg, err := cc.composeBundle()
	if err != nil {
		return err
	}
	infos, err := collectPages(bcfg)
	if err != nil {
		return err
	}

	r := cc.Renderer
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(infos)
	}

	r.Header(1, fmt.Sprintf("Pages (%d total)", len(infos)))
	if len(infos) == 0 {
		r.Muted("No *.json page descriptors under " + bcfg.PagesDir)
		return nil
	}

	rows := make([][]string, len(infos))
	for i, p := range infos {
		template := p.Template
		if p.Error != "" {
			template = "error: " + p.Error
		}
		entry := p.Entry
		if entry == "" {
			entry = "-"
		}
		rows[i] = []string{p.Name, entry, template, p.HTML}
	}
	r.Table([]string{"Page", "Entry", "Template", "HTML"}, rows)
	return nil
}
