package commands

import (
	"fmt"
	"io"
	"runtime"
	"runtime/debug"

	"github.com/spf13/cobra"
)

const esbuildModule = "github.com/evanw/esbuild"

// VersionInfo describes the running binary. Fields left empty print as "unknown".
type VersionInfo struct {
	Version   string
	GitCommit string
	BuildDate string
}

// NewVersionCommand creates the version command.
func NewVersionCommand(info VersionInfo) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long: `Display the frame version, the commit and date it was built from, and the
Go and esbuild versions compiled into it.`,
		Args: cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			writeVersion(cmd.OutOrStdout(), info, bundlerVersion())
		},
	}
}

func writeVersion(w io.Writer, info VersionInfo, esbuild string) {
	_, _ = fmt.Fprintf(w, "frame v%s\n", orUnknown(info.Version))
	_, _ = fmt.Fprintf(w, "  commit:  %s\n", orUnknown(info.GitCommit))
	_, _ = fmt.Fprintf(w, "  built:   %s\n", orUnknown(info.BuildDate))
	_, _ = fmt.Fprintf(w, "  go:      %s\n", runtime.Version())
	_, _ = fmt.Fprintf(w, "  esbuild: %s\n", orUnknown(esbuild))
}

// bundlerVersion reads the esbuild module version from the build info.
// Test binaries and `go run` builds may not carry it.
func bundlerVersion() string {
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	for _, dep := range bi.Deps {
		if dep.Path == esbuildModule {
			if dep.Replace != nil {
				return dep.Replace.Version
			}
			return dep.Version
		}
	}
	return ""
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
