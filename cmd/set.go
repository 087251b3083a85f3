package cmd

import (
	"errors"
	"strings"

	"github.com/kballard/go-shellquote"
	"github.com/spf13/cobra"

	"github.com/tuannvm/mcpscope/internal/api"
	"github.com/tuannvm/mcpscope/internal/log"
	"github.com/tuannvm/mcpscope/internal/reconcile"
	"github.com/tuannvm/mcpscope/internal/registry"
	"github.com/tuannvm/mcpscope/internal/store"
)

var (
	setScope       string
	setEnv         []string
	setDescription string
	setDisabled    bool
	setAutoApprove []string
)

// setCmd represents the set command
var setCmd = &cobra.Command{
	Use:   "set [client] [name] [command...]",
	Short: "Creates or updates an MCP server entry for a client.",
	Long: `Creates or updates the named MCP server entry. The command can be given as
separate arguments or as a single quoted string, which is split with shell
quoting rules:

  mcpscope set cursor github npx -y @modelcontextprotocol/server-github
  mcpscope set cursor github "npx -y @modelcontextprotocol/server-github"

New entries go to the default write scope (user) unless --scope is given;
existing entries stay in the scope that owns them.`,
	Args: func(cmd *cobra.Command, args []string) error {
		if len(args) < 3 {
			return errors.New("requires a client, a server name and a command")
		}
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		clientID, name := args[0], args[1]

		command := args[2]
		cmdArgs := args[3:]
		if len(cmdArgs) == 0 && strings.ContainsAny(command, " \t") {
			words, err := shellquote.Split(command)
			if err != nil {
				log.Fatal("Invalid command string: %v", err)
			}
			command = words[0]
			cmdArgs = words[1:]
		}

		env := make(map[string]string)
		for _, pair := range setEnv {
			key, value, found := strings.Cut(pair, "=")
			if !found || key == "" {
				log.Fatal("Invalid --env value %q, expected KEY=VALUE", pair)
			}
			env[key] = value
		}

		handler := newHandler()
		resp := handler.Handle(api.Request{Operation: api.OpReadEffective, Client: clientID})
		if !resp.OK {
			log.Fatal("%s: %s", resp.ErrorKind, resp.Message)
		}
		eff := resp.Result.(*reconcile.Effective)
		for _, w := range eff.Warnings {
			log.Warn("%s", w.Message)
		}

		entry := reconcile.Entry{Name: name, Server: store.ServerEntry{Command: command}}
		if existing, ok := eff.Servers[name]; ok {
			entry = existing
			entry.Server.Command = command
		}
		entry.Server.Args = cmdArgs
		if len(env) > 0 {
			entry.Server.Env = env
		}
		if setDescription != "" {
			entry.Server.Description = setDescription
		}
		if cmd.Flags().Changed("disabled") {
			enabled := !setDisabled
			entry.Server.Enabled = &enabled
		}
		if len(setAutoApprove) > 0 {
			entry.Server.AutoApprove = setAutoApprove
		}
		if setScope != "" {
			scope, err := registry.ParseScope(setScope)
			if err != nil {
				log.Fatal("%v", err)
			}
			entry.Scope = scope
		}
		eff.Servers[name] = entry

		resp = handler.Handle(api.Request{
			Operation: api.OpSaveEffective,
			Client:    clientID,
			Effective: eff,
		})
		if !resp.OK {
			log.Fatal("%s: %s", resp.ErrorKind, resp.Message)
		}
		log.Success("Saved server %q for %s.", name, clientID)
	},
}

func init() {
	rootCmd.AddCommand(setCmd)

	setCmd.Flags().StringVar(&setScope, "scope", "", "Scope to write the entry to (global, user, local, project)")
	setCmd.Flags().StringArrayVar(&setEnv, "env", nil, "Environment variable as KEY=VALUE (repeatable)")
	setCmd.Flags().StringVar(&setDescription, "description", "", "Human-readable description")
	setCmd.Flags().BoolVar(&setDisabled, "disabled", false, "Mark the entry as disabled")
	setCmd.Flags().StringSliceVar(&setAutoApprove, "auto-approve", nil, "Tool names to auto-approve")
}
