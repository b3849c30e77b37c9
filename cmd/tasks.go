package cmd

import (
	"github.com/spf13/cobra"
)

var tasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "Administer background tasks",
	Long:  `List, trigger and inspect background tasks on the server. Requires an authenticated admin session (vouchd login).`,
}

func init() {
	rootCmd.AddCommand(tasksCmd)
}
