package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/tuannvm/mcpscope/internal/log"
	"github.com/tuannvm/mcpscope/internal/paths"
	"github.com/tuannvm/mcpscope/internal/registry"
)

// clientsCmd represents the clients command
var clientsCmd = &cobra.Command{
	Use:   "clients",
	Short: "Lists the supported MCP clients and their configuration paths.",
	Long: `Prints every client in the registry with the resolved configuration path
for each scope it supports, and whether a file currently exists there.`,
	Run: func(cmd *cobra.Command, args []string) {
		handler := newHandler()
		resolver := paths.NewResolver(handler.Registry())

		for _, client := range handler.Registry().Clients() {
			log.Printf(log.InfoColor, "%s (%s)\n", client.DisplayName, client.ID)
			for _, scope := range registry.Scopes() {
				if !client.Supports(scope) {
					continue
				}
				res, err := resolver.Resolve(client.ID, scope)
				if err != nil {
					log.Warn("  %s: %v", scope, err)
					continue
				}
				marker := " "
				if _, err := os.Stat(res.Primary); err == nil {
					marker = "*"
				}
				log.Detail("  %s %-8s %s", marker, scope, res.Primary)
			}
		}
		log.Info("\n* marks paths where a configuration file exists.")
	},
}

func init() {
	rootCmd.AddCommand(clientsCmd)
}
