package cmd

import (
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tuannvm/mcpscope/internal/api"
	"github.com/tuannvm/mcpscope/internal/log"
	"github.com/tuannvm/mcpscope/internal/reconcile"
)

// showCmd represents the show command
var showCmd = &cobra.Command{
	Use:   "show [client]",
	Short: "Shows the effective MCP configuration for a client.",
	Long: `Merges the client's configuration fragments from all scopes (global, user,
local, project) into the effective view and prints each server with the scope
it comes from. Entries defined in a lower scope but overridden by a higher one
are listed as shadowed.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		handler := newHandler()

		resp := handler.Handle(api.Request{
			Operation: api.OpReadEffective,
			Client:    args[0],
		})
		if !resp.OK {
			log.Fatal("%s: %s", resp.ErrorKind, resp.Message)
		}

		eff := resp.Result.(*reconcile.Effective)
		for _, w := range eff.Warnings {
			log.Warn("%s", w.Message)
		}

		if len(eff.Servers) == 0 {
			log.Info("No MCP servers configured for %s.", args[0])
			return
		}

		names := make([]string, 0, len(eff.Servers))
		for name := range eff.Servers {
			names = append(names, name)
		}
		sort.Strings(names)

		log.Info("MCP servers for %s:", args[0])
		for _, name := range names {
			entry := eff.Servers[name]
			state := ""
			if entry.Server.Disabled() {
				state = " (disabled)"
			}
			log.Printf(log.InfoColor, "- %s [%s]%s\n", name, entry.Scope, state)
			command := entry.Server.Command
			if len(entry.Server.Args) > 0 {
				command += " " + strings.Join(entry.Server.Args, " ")
			}
			log.Detail("    command: %s", command)
			if entry.Server.Description != "" {
				log.Detail("    description: %s", entry.Server.Description)
			}
			if len(entry.Server.Env) > 0 {
				keys := make([]string, 0, len(entry.Server.Env))
				for k := range entry.Server.Env {
					keys = append(keys, k)
				}
				sort.Strings(keys)
				log.Detail("    env: %s", strings.Join(keys, ", "))
			}
			for _, shadowed := range eff.Shadowed[name] {
				log.Printf(log.WarnColor, "    shadows definition in %s scope\n", shadowed.Scope)
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(showCmd)
}
