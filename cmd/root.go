package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/tuannvm/mcpscope/internal/api"
	"github.com/tuannvm/mcpscope/internal/appconfig"
	"github.com/tuannvm/mcpscope/internal/log"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "mcpscope",
	Short: "View and edit MCP server configurations across AI clients and scopes.",
	Long: `mcpscope manages Model Context Protocol (MCP) server entries for clients
like Claude Desktop, Cursor, VS Code, Windsurf and Codex CLI, each of which
keeps its configuration in a different well-known location. Entries from the
global, user, local and project scopes are merged into one effective view;
edits are routed back to the scope that owns each entry, with a timestamped
backup taken before every write.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose output")

	// Disable the auto-generated completion command
	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// newHandler builds the request handler from the settings file, exiting on
// failure since no command can run without it.
func newHandler() *api.Handler {
	handler, _ := newHandlerWithSettings()
	return handler
}

func newHandlerWithSettings() (*api.Handler, *appconfig.Settings) {
	handler, settings, err := api.Default()
	if err != nil {
		log.Fatal("Error loading settings: %v", err)
	}
	return handler, settings
}
