package cmd

import (
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var auditLogLimit uint

var auditLogCmd = &cobra.Command{
	Use:     "log",
	Aliases: []string{"logs", "list"},
	Short:   "List the latest audit entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		cli, err := f.GetClient()
		if err != nil {
			return err
		}

		log.Debug().Msgf("Retrieving up to %d audit entries...", auditLogLimit)
		entries, correlation, err := cli.ListAudits(cmd.Context(), auditLogLimit)
		if err != nil {
			return logError(err, correlation, "failed to list audit entries")
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Time", "Action", "Principal", "Resource", "Result"})

		for _, entry := range entries {
			result := greenCheck + " granted"
			if !entry.Granted {
				result = redCross + " " + truncate(entry.Error, 40)
			}

			principal := entry.PrincipalID
			if principal == "" {
				principal = entry.ClientID
			}

			t.AppendRow(table.Row{
				entry.Time.Format("2006-01-02 15:04:05"),
				entry.Action,
				truncate(principal, 40),
				entry.Resource,
				result,
			})
		}

		applyTableFormat(t)
		t.Render()
		return nil
	},
}

func init() {
	auditCmd.AddCommand(auditLogCmd)

	auditLogCmd.Flags().UintVar(&auditLogLimit, "limit", 50, "maximum number of entries to fetch")
}
