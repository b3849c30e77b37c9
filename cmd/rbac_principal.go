package cmd

import (
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var rbacPrincipalCmd = &cobra.Command{
	Use:     "principal",
	Aliases: []string{"principals"},
	Short:   "Inspect and remove principals",
}

var principalAccessScope string

var rbacPrincipalAccessCmd = &cobra.Command{
	Use:   "access RESOURCE PRINCIPAL",
	Short: "Show the scopes and roles a principal holds on a resource",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cli, err := f.GetClient()
		if err != nil {
			return err
		}
		access, correlation, err := cli.GetPrincipalAccess(cmd.Context(), args[0], args[1], principalAccessScope)
		if err != nil {
			return logError(err, correlation, "failed to get principal access")
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Principal", "Resource", "Scopes", "Roles"})
		t.AppendRow(table.Row{
			bold(truncate(access.PrincipalID, 48)),
			access.ResourceName,
			joinOrDash(access.ScopeNames),
			joinOrDash(access.RoleNames),
		})
		applyTableFormat(t)
		t.Render()
		return nil
	},
}

var rbacPrincipalDeleteCmd = &cobra.Command{
	Use:   "delete PRINCIPAL",
	Short: "Remove every assignment mentioning a principal",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cli, err := f.GetClient()
		if err != nil {
			return err
		}
		correlation, err := cli.DeletePrincipal(cmd.Context(), args[0])
		if err != nil {
			return logError(err, correlation, "failed to delete principal")
		}
		logSuccess("removed all assignments for %s", bold(args[0]))
		return nil
	},
}

func init() {
	rbacCmd.AddCommand(rbacPrincipalCmd)
	rbacPrincipalCmd.AddCommand(rbacPrincipalAccessCmd)
	rbacPrincipalCmd.AddCommand(rbacPrincipalDeleteCmd)

	rbacPrincipalAccessCmd.Flags().StringVar(&principalAccessScope, "scope", "", "narrow the result to one scope")
}
