package cmd

import (
	"github.com/spf13/cobra"

	"github.com/tuannvm/mcpscope/internal/api"
	"github.com/tuannvm/mcpscope/internal/log"
	"github.com/tuannvm/mcpscope/internal/reconcile"
)

// removeCmd represents the remove command
var removeCmd = &cobra.Command{
	Use:   "remove [client] [name]",
	Short: "Removes an MCP server entry from its owning scope.",
	Long: `Deletes the named server entry from the scope that owns it. Definitions of
the same name in lower scopes are left in place and become visible again.`,
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		clientID, name := args[0], args[1]

		handler := newHandler()
		resp := handler.Handle(api.Request{Operation: api.OpReadEffective, Client: clientID})
		if !resp.OK {
			log.Fatal("%s: %s", resp.ErrorKind, resp.Message)
		}
		eff := resp.Result.(*reconcile.Effective)

		entry, ok := eff.Servers[name]
		if !ok {
			log.Fatal("No server named %q configured for %s.", name, clientID)
		}
		delete(eff.Servers, name)

		resp = handler.Handle(api.Request{
			Operation: api.OpSaveEffective,
			Client:    clientID,
			Effective: eff,
		})
		if !resp.OK {
			log.Fatal("%s: %s", resp.ErrorKind, resp.Message)
		}
		log.Success("Removed server %q from %s scope of %s.", name, entry.Scope, clientID)
	},
}

func init() {
	rootCmd.AddCommand(removeCmd)
}
