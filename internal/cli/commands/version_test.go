package commands

import (
	"bytes"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewVersionCommand(t *testing.T) {
	cmd := NewVersionCommand(VersionInfo{Version: "1.2.3", GitCommit: "abc1234", BuildDate: "2026-01-02"})
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetArgs(nil)

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "frame v1.2.3\n")
	assert.Contains(t, out.String(), "commit:  abc1234")
	assert.Contains(t, out.String(), "built:   2026-01-02")
	assert.Contains(t, out.String(), "go:      "+runtime.Version())
	assert.Contains(t, out.String(), "esbuild: ")
}

func TestWriteVersion(t *testing.T) {
	tests := []struct {
		name    string
		info    VersionInfo
		esbuild string
		want    []string
	}{
		{
			name:    "full",
			info:    VersionInfo{Version: "0.1.0", GitCommit: "deadbee", BuildDate: "today"},
			esbuild: "v0.27.2",
			want:    []string{"frame v0.1.0", "commit:  deadbee", "built:   today", "esbuild: v0.27.2"},
		},
		{
			name: "missing fields",
			info: VersionInfo{Version: "dev"},
			want: []string{"frame vdev", "commit:  unknown", "built:   unknown", "esbuild: unknown"},
		},
		{
			name: "empty version",
			want: []string{"frame vunknown"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			writeVersion(buf, tt.info, tt.esbuild)
			for _, want := range tt.want {
				assert.Contains(t, buf.String(), want)
			}
		})
	}
}

func TestVersionCommandRejectsArgs(t *testing.T) {
	cmd := NewVersionCommand(VersionInfo{Version: "test"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"extra"})
	assert.Error(t, cmd.Execute())
}
