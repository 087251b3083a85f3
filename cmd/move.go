package cmd

import (
	"github.com/spf13/cobra"

	"github.com/tuannvm/mcpscope/internal/api"
	"github.com/tuannvm/mcpscope/internal/log"
	"github.com/tuannvm/mcpscope/internal/reconcile"
	"github.com/tuannvm/mcpscope/internal/registry"
)

// moveCmd represents the move command
var moveCmd = &cobra.Command{
	Use:   "move [client] [name] [scope]",
	Short: "Moves an MCP server entry to a different scope.",
	Long: `Moves the named entry from the scope that currently owns it to the target
scope. The move is two coordinated writes (removal from the old scope, then
addition to the new one); if the second write fails the first is not rolled
back and the partial result is reported.`,
	Args: cobra.ExactArgs(3),
	Run: func(cmd *cobra.Command, args []string) {
		clientID, name := args[0], args[1]
		scope, err := registry.ParseScope(args[2])
		if err != nil {
			log.Fatal("%v", err)
		}

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
		if entry.Scope == scope {
			log.Info("Server %q is already in %s scope.", name, scope)
			return
		}
		from := entry.Scope
		entry.Scope = scope
		eff.Servers[name] = entry

		resp = handler.Handle(api.Request{
			Operation: api.OpSaveEffective,
			Client:    clientID,
			Effective: eff,
		})
		if !resp.OK {
			if resp.ErrorKind == api.KindPartialWrite {
				log.Error("Partial move: %s", resp.Message)
				log.Warn("The entry may be missing from both scopes; check %s and restore from backup if needed.", clientID)
			}
			log.Fatal("%s: %s", resp.ErrorKind, resp.Message)
		}
		log.Success("Moved server %q from %s to %s scope of %s.", name, from, scope, clientID)
	},
}

func init() {
	rootCmd.AddCommand(moveCmd)
}
