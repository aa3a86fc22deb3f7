package commands

import (
	"log/slog"
	"os"

	"github.com/leapstack-labs/frame/internal/counter"
	"github.com/spf13/cobra"
)

// NewCountCommand creates the count command.
func NewCountCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "count <path>",
		Short: "Count the entries of a directory",
		Long: `Count the files and subdirectories directly inside a directory.

Hidden entries are included and subdirectories are not descended into.
Use --lang zh for the Chinese message.`,
		Example: `  frame count ./src
  frame count --lang zh ./src`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCount(cmd, args[0])
		},
	}
}

func runCount(cmd *cobra.Command, path string) error {
	cc, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	cc.Logger.Debug("count", slog.Any("argv", os.Args), slog.String("path", path))

	res, err := counter.Run(path)
	if err != nil {
		return err
	}

	p := counter.NewPrinter(cc.Cfg.Lang)
	cc.Renderer.Println(counter.Format(p, res))
	return nil
}
