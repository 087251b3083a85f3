package cmd

import (
	"fmt"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"

	"github.com/tuannvm/mcpscope/internal/api"
	"github.com/tuannvm/mcpscope/internal/log"
	"github.com/tuannvm/mcpscope/internal/registry"
)

var (
	pruneScope  string
	pruneMaxAge int
	pruneMaxCnt int
	pruneAll    bool
)

// pruneCmd represents the prune command
var pruneCmd = &cobra.Command{
	Use:   "prune [client]",
	Short: "Deletes old backups for a client's configuration.",
	Long: `Removes backups older than --max-age-days and keeps at most --max-count of
the remainder; both thresholds apply independently. --all deletes every backup
for the client. Without --scope, every scope the client supports is pruned.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		clientID := args[0]
		var scope registry.Scope
		if pruneScope != "" {
			parsed, err := registry.ParseScope(pruneScope)
			if err != nil {
				log.Fatal("%v", err)
			}
			scope = parsed
		}

		handler, settings := newHandlerWithSettings()

		// Flags win over the settings file, which wins over the built-ins.
		retention := &api.Retention{MaxAgeDays: settings.Backups.MaxAgeDays, MaxCount: settings.Backups.MaxCount}
		if cmd.Flags().Changed("max-age-days") {
			retention.MaxAgeDays = pruneMaxAge
		}
		if cmd.Flags().Changed("max-count") {
			retention.MaxCount = pruneMaxCnt
		}
		message := fmt.Sprintf("Delete backups for %s older than %d days, keeping at most %d?",
			clientID, retention.MaxAgeDays, retention.MaxCount)
		if pruneAll {
			retention = &api.Retention{}
			message = fmt.Sprintf("Delete ALL backups for %s?", clientID)
		}

		var confirm bool
		prompt := &survey.Confirm{
			Message: message,
			Default: false,
		}
		if err := survey.AskOne(prompt, &confirm); err != nil {
			log.Fatal("Error during confirmation: %v", err)
		}
		if !confirm {
			log.Info("Operation cancelled by user.")
			return
		}

		resp := handler.Handle(api.Request{
			Operation: api.OpCleanupBackups,
			Client:    clientID,
			Scope:     scope,
			Retention: retention,
		})
		if !resp.OK {
			log.Fatal("%s: %s", resp.ErrorKind, resp.Message)
		}
		result := resp.Result.(api.CleanupResult)
		if len(result.Removed) == 0 {
			log.Info("No backups needed pruning.")
			return
		}
		for _, rec := range result.Removed {
			log.Detail("- removed %s", rec.Path)
		}
		log.Success("Removed %d backup(s) for %s.", len(result.Removed), clientID)
	},
}

func init() {
	rootCmd.AddCommand(pruneCmd)

	pruneCmd.Flags().StringVar(&pruneScope, "scope", "", "Scope whose backups to prune (default: all supported scopes)")
	pruneCmd.Flags().IntVar(&pruneMaxAge, "max-age-days", 30, "Delete backups older than this many days")
	pruneCmd.Flags().IntVar(&pruneMaxCnt, "max-count", 50, "Keep at most this many backups")
	pruneCmd.Flags().BoolVar(&pruneAll, "all", false, "Delete every backup for the client")
}
