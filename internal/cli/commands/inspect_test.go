package commands

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestInspectCommand_YAML(t *testing.T) {
	p := newTestProject(t)
	p.page(t, "home")

	out, err := execute(t, NewInspectCommand(), p.cfg)
	require.NoError(t, err)

	var view inspectView
	require.NoError(t, yaml.Unmarshal([]byte(out), &view))
	assert.Equal(t, "debug", view.Mode)
	assert.Contains(t, view.Entries, "home")
	assert.Equal(t, "[name].js", view.Output.Filename)
	assert.Equal(t, []string{"commons", "html", "open-browser", "hot-reload"}, view.Plugins)
	assert.Equal(t, "http://localhost:9876", view.ScriptBase)
	assert.Equal(t, map[string]string{"vue$": "vue/dist/vue.common.js"}, view.Alias)
	require.Len(t, view.Rules, 3)
	assert.Equal(t, `\.jsx?$`, view.Rules[0].Test)
	assert.Equal(t, "node_modules", view.Rules[0].Exclude)
	assert.Equal(t, "jsx", view.Rules[0].Loader)
}

func TestInspectCommand_ReleaseJSON(t *testing.T) {
	p := newTestProject(t)
	p.cfg.Environment = "production"
	p.cfg.OutputFormat = "json"

	out, err := execute(t, NewInspectCommand(), p.cfg)
	require.NoError(t, err)

	var view inspectView
	require.NoError(t, json.Unmarshal([]byte(out), &view))
	assert.Equal(t, "release", view.Mode)
	assert.Equal(t, []string{"commons", "html", "clean", "minify"}, view.Plugins)
	assert.Equal(t, "/fe/dist", view.ScriptBase)
	assert.Empty(t, view.Entries)
}
