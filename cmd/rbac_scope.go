package cmd

import (
	"strings"

	"github.com/spf13/cobra"
)

var rbacScopeCmd = &cobra.Command{
	Use:     "scope",
	Aliases: []string{"scopes"},
	Short:   "Manage scopes on a resource",
}

var rbacScopeCreateCmd = &cobra.Command{
	Use:   "create RESOURCE SCOPE",
	Short: "Register a scope on a resource",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cli, err := f.GetClient()
		if err != nil {
			return err
		}
		correlation, err := cli.CreateScope(cmd.Context(), args[0], args[1])
		if err != nil {
			return logError(err, correlation, "failed to create scope")
		}
		logSuccess("created scope %s on %s", bold(args[1]), bold(args[0]))
		return nil
	},
}

var rbacScopeDeleteCmd = &cobra.Command{
	Use:   "delete RESOURCE SCOPE",
	Short: "Delete a scope and its assignments",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cli, err := f.GetClient()
		if err != nil {
			return err
		}
		correlation, err := cli.DeleteScope(cmd.Context(), args[0], args[1])
		if err != nil {
			return logError(err, correlation, "failed to delete scope")
		}
		logSuccess("deleted scope %s from %s", bold(args[1]), bold(args[0]))
		return nil
	},
}

func joinOrDash(values []string) string {
	if len(values) == 0 {
		return "-"
	}
	return strings.Join(values, ", ")
}

func init() {
	rbacCmd.AddCommand(rbacScopeCmd)
	rbacScopeCmd.AddCommand(rbacScopeCreateCmd)
	rbacScopeCmd.AddCommand(rbacScopeDeleteCmd)
}
