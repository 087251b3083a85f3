package cmd

import (
	"github.com/spf13/cobra"

	"github.com/tuannvm/mcpscope/internal/api"
	"github.com/tuannvm/mcpscope/internal/backup"
	"github.com/tuannvm/mcpscope/internal/log"
	"github.com/tuannvm/mcpscope/internal/registry"
)

var backupsScope string

// backupsCmd represents the backups command
var backupsCmd = &cobra.Command{
	Use:   "backups [client]",
	Short: "Lists retained backups for a client's configuration.",
	Long: `Lists the backups kept in the .mcp-backups directory next to the client's
configuration file, most recent first. Defaults to the user scope; pass
--scope to inspect another one.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		clientID := args[0]
		var scope registry.Scope
		if backupsScope != "" {
			parsed, err := registry.ParseScope(backupsScope)
			if err != nil {
				log.Fatal("%v", err)
			}
			scope = parsed
		}

		handler := newHandler()
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
			log.Info("No backups found for %s.", clientID)
			return
		}

		log.Info("Backups for %s (newest first):", clientID)
		for _, rec := range records {
			log.Detail("- %s  %s", rec.CreatedAt.Format("2006-01-02 15:04:05"), rec.Path)
		}
	},
}

func init() {
	rootCmd.AddCommand(backupsCmd)

	backupsCmd.Flags().StringVar(&backupsScope, "scope", "", "Scope whose backups to list (defaults to the client's write scope)")
}
