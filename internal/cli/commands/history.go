package commands

import (
	"fmt"
	"time"

	"github.com/leapstack-labs/frame/internal/cli/output"
	"github.com/leapstack-labs/frame/internal/state"
	"github.com/spf13/cobra"
)

// NewHistoryCommand creates the history command.
func NewHistoryCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent builds",
		Long:  `Show builds recorded by 'frame build', newest first.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runHistory(cmd, limit)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of builds to show")
	return cmd
}

// historyEntry is the JSON shape of a recorded build.
type historyEntry struct {
	ID          string    `json:"id"`
	Mode        string    `json:"mode"`
	Environment string    `json:"environment"`
	Status      string    `json:"status"`
	StartedAt   time.Time `json:"started_at"`
	DurationMS  int64     `json:"duration_ms"`
	Pages       int       `json:"pages"`
	Assets      int       `json:"assets"`
	Bytes       int       `json:"bytes"`
	Error       string    `json:"error,omitempty"`
}

func runHistory(cmd *cobra.Command, limit int) error {
	cc, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}

	store, err := cc.openStateStore()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	builds, err := store.ListBuilds(cmd.Context(), limit)
	if err != nil {
		return err
	}
	return renderHistory(cc.Renderer, builds)
}

func renderHistory(r *output.Renderer, builds []*state.Build) error {
	if r.EffectiveMode() == output.ModeJSON {
		entries := make([]historyEntry, len(builds))
		for i, b := range builds {
			entries[i] = historyEntry{
				ID:          b.ID,
				Mode:        b.Mode,
				Environment: b.Environment,
				Status:      string(b.Status),
				StartedAt:   b.StartedAt,
				DurationMS:  b.Duration.Milliseconds(),
				Pages:       b.Pages,
				Assets:      b.Assets,
				Bytes:       b.Bytes,
				Error:       b.Error,
			}
		}
		return r.JSON(entries)
	}

	r.Header(1, fmt.Sprintf("Builds (%d)", len(builds)))
	if len(builds) == 0 {
		r.Muted("No builds recorded yet. Run 'frame build' first.")
		return nil
	}

	rows := make([][]string, len(builds))
	for i, b := range builds {
		rows[i] = []string{
			shortID(b.ID),
			b.StartedAt.Local().Format("2006-01-02 15:04:05"),
			b.Mode,
			b.Environment,
			string(b.Status),
			b.Duration.String(),
			fmt.Sprintf("%d", b.Pages),
			fmt.Sprintf("%d", b.Assets),
			formatBytes(b.Bytes),
		}
	}
	r.Table([]string{"ID", "Started", "Mode", "Environment", "Status", "Duration", "Pages", "Assets", "Size"}, rows)
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
