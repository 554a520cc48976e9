package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/GregMSThompson/utilization-pilot/internal/buildinfo"
	"github.com/GregMSThompson/utilization-pilot/pkg/helpers"
)

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "utilctl",
		Short:   "Offline credit utilization and paydown calculator",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", buildinfo.Version, buildinfo.Commit, buildinfo.Date),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}

	rootCmd.AddCommand(newEvaluateCommand())
	rootCmd.AddCommand(newPaydownCommand())
	rootCmd.AddCommand(newCloseDateCommand())

	return rootCmd
}

// parseNow reads a --now flag value; empty means today.
func parseNow(s string) (time.Time, error) {
	if s == "" {
		return time.Now(), nil
	}
	t, err := helpers.ParseDate(s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --now %q: want YYYY-MM-DD", s)
	}
	return *t, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
