package cmd

import (
	"fmt"
	"time"

	"github.com/AlecAivazis/survey/v2"
	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"

	"github.com/tuannvm/mcpscope/internal/api"
	"github.com/tuannvm/mcpscope/internal/backup"
	"github.com/tuannvm/mcpscope/internal/log"
	"github.com/tuannvm/mcpscope/internal/registry"
)

var (
	restoreScope  string
	restoreLatest bool
)

// restoreCmd represents the restore command
var restoreCmd = &cobra.Command{
	Use:   "restore [client]",
	Short: "Restores a client's configuration from a backup.",
	Long: `Overwrites the client's configuration file at the chosen scope with the
content of a backup. With --latest the most recent usable backup is taken;
otherwise the retained backups are listed for interactive selection. The
current file is backed up implicitly by the next write, and the restore itself
replaces the file atomically.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		clientID := args[0]
		var scope registry.Scope
		if restoreScope != "" {
			parsed, err := registry.ParseScope(restoreScope)
			if err != nil {
				log.Fatal("%v", err)
			}
			scope = parsed
		}

		handler := newHandler()

		var selected string
		if !restoreLatest {
			resp := handler.Handle(api.Request{
				Operation: api.OpListBackups,
				Client:    clientID,
				Scope:     scope,
			})
			if !resp.OK {
				log.Fatal("%s: %s", resp.ErrorKind, resp.Message)
			}
			records := resp.Result.([]backup.Record)
			if len(records) == 0 {
				log.Warn("No backups found for %s. Nothing to restore.", clientID)
				return
			}

			options := make([]string, len(records))
			byOption := make(map[string]string, len(records))
			for i, rec := range records {
				options[i] = fmt.Sprintf("%s  %s", rec.CreatedAt.Format("2006-01-02 15:04:05"), rec.Path)
				byOption[options[i]] = rec.Path
			}
			var choice string
			prompt := &survey.Select{
				Message:  "Choose a backup to restore:",
				Options:  options,
				PageSize: 15,
			}
			if err := survey.AskOne(prompt, &choice); err != nil {
				log.Fatal("Error during selection: %v", err)
			}
			selected = byOption[choice]
		}

		var confirm bool
		confirmPrompt := &survey.Confirm{
			Message: fmt.Sprintf("This will overwrite the current %s configuration. Continue?", clientID),
			Default: false, // Safer default - user must explicitly choose yes
		}
		if err := survey.AskOne(confirmPrompt, &confirm); err != nil {
			log.Fatal("Error during confirmation: %v", err)
		}
		if !confirm {
			log.Info("Operation cancelled by user.")
			return
		}

		s := spinner.New(spinner.CharSets[9], 100*time.Millisecond)
		s.Suffix = " Restoring..."
		s.Start()
		resp := handler.Handle(api.Request{
			Operation: api.OpRestoreBackup,
			Client:    clientID,
			Scope:     scope,
			Backup:    &api.BackupSelector{Path: selected},
		})
		s.Stop()

		if !resp.OK {
			log.Fatal("%s: %s", resp.ErrorKind, resp.Message)
		}
		result := resp.Result.(api.RestoreResult)
		log.Success("Restored %s configuration from %s.", clientID, result.BackupPath)
	},
}

func init() {
	rootCmd.AddCommand(restoreCmd)

	restoreCmd.Flags().StringVar(&restoreScope, "scope", "", "Scope to restore (defaults to the client's write scope)")
	restoreCmd.Flags().BoolVar(&restoreLatest, "latest", false, "Restore the most recent usable backup without prompting")
}
