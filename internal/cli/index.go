package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"ragagent/internal/service"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Build, inspect or clear the document index",
}

var indexBuildCmd = &cobra.Command{
	Use:   "build <file or glob>...",
	Short: "Index .txt, .md and .pdf files",
	Example: `  ragagent index build docs/*.txt
  ragagent index build report.pdf notes.md`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIndexBuild,
}

var indexClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove the persisted index",
	Args:  cobra.NoArgs,
	RunE:  runIndexClear,
}

var indexInfoCmd = &cobra.Command{
	Use:   "info",
	Short: "Describe the persisted index",
	Args:  cobra.NoArgs,
	RunE:  runIndexInfo,
}

func init() {
	indexCmd.AddCommand(indexBuildCmd, indexClearCmd, indexInfoCmd)
}

func runIndexBuild(cmd *cobra.Command, args []string) error {
	a, done, err := setup(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer done()
	m, err := a.Index.Build(cmd.Context(), args)
	if err != nil {
		return fmt.Errorf("index build failed: %w", err)
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Index built: %d documents, %d chunks.\n", len(m.Documents), m.Chunks)
	if m.Summary != "" {
		fmt.Fprintf(out, "Summary: %s\n", m.Summary)
	}
	return nil
}

func runIndexClear(cmd *cobra.Command, _ []string) error {
	a, done, err := setup(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer done()
	cleared, err := a.Index.Clear(cmd.Context())
	if err != nil {
		return err
	}
	if cleared {
		fmt.Fprintln(cmd.OutOrStdout(), "Index cleared.")
	} else {
		fmt.Fprintln(cmd.OutOrStdout(), "Nothing to clear.")
	}
	return nil
}

func runIndexInfo(cmd *cobra.Command, _ []string) error {
	a, done, err := setup(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer done()
	m, err := a.Index.Load(cmd.Context())
	if errors.Is(err, service.ErrNoIndex) {
		fmt.Fprintln(cmd.OutOrStdout(), "No index found.")
		return nil
	}
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Directory: %s\n", a.Config.Index.PersistDir)
	fmt.Fprintf(out, "Embedder:  %s (dimension %d)\n", m.Embedder, m.Dimension)
	fmt.Fprintf(out, "Store:     %s\n", m.Store)
	fmt.Fprintf(out, "Chunks:    %d\n", m.Chunks)
	fmt.Fprintf(out, "Documents: %s\n", strings.Join(m.Documents, ", "))
	fmt.Fprintf(out, "Built:     %s\n", m.BuiltAt.Format("2006-01-02 15:04:05 MST"))
	if m.Summary != "" {
		fmt.Fprintf(out, "Summary:   %s\n", m.Summary)
	}
	return nil
}
