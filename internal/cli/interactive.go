package cli

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"ragagent/internal/server"
	"ragagent/internal/tui"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Open the interactive agent console",
	Args:  cobra.NoArgs,
	RunE:  runTUI,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

var serveAddr string

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default server.addr)")
}

func runTUI(cmd *cobra.Command, _ []string) error {
	// The terminal belongs to the UI; logs only go to log.file when set.
	a, done, err := setup(nil)
	if err != nil {
		return err
	}
	defer done()
	if err := a.LoadIndex(cmd.Context()); err != nil {
		a.Log.Warn("index not loaded", "error", err)
	}
	m := tui.New(cmd.Context(), tui.FromApp(a), a.Config.Index.TopK)
	if _, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(cmd.Context())).Run(); err != nil {
		return fmt.Errorf("tui: %w", err)
	}
	return nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	a, done, err := setup(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer done()
	if serveAddr != "" {
		a.Config.Server.Addr = serveAddr
	}
	if err := a.LoadIndex(cmd.Context()); err != nil {
		a.Log.Warn("index not loaded", "error", err)
	}
	return server.New(a).Run(cmd.Context())
}
