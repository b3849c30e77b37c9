package cmd

import (
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var rbacResourceCmd = &cobra.Command{
	Use:     "resource",
	Aliases: []string{"resources"},
	Short:   "Manage resources",
}

var rbacResourceCreateCmd = &cobra.Command{
	Use:   "create NAME",
	Short: "Register a resource",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cli, err := f.GetClient()
		if err != nil {
			return err
		}
		correlation, err := cli.CreateResource(cmd.Context(), args[0])
		if err != nil {
			return logError(err, correlation, "failed to create resource")
		}
		logSuccess("created resource %s", bold(args[0]))
		return nil
	},
}

var rbacResourceDeleteCmd = &cobra.Command{
	Use:   "delete NAME",
	Short: "Delete a resource and everything attached to it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cli, err := f.GetClient()
		if err != nil {
			return err
		}
		correlation, err := cli.DeleteResource(cmd.Context(), args[0])
		if err != nil {
			return logError(err, correlation, "failed to delete resource")
		}
		logSuccess("deleted resource %s and its scopes, roles and assignments", bold(args[0]))
		return nil
	},
}

var rbacResourceGetCmd = &cobra.Command{
	Use:   "get NAME",
	Short: "Show a resource with its scopes and roles",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cli, err := f.GetClient()
		if err != nil {
			return err
		}
		resource, correlation, err := cli.GetResource(cmd.Context(), args[0])
		if err != nil {
			return logError(err, correlation, "failed to get resource")
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Resource", "Scopes", "Roles"})
		t.AppendRow(table.Row{
			bold(resource.ResourceName),
			joinOrDash(resource.ScopeNames),
			joinOrDash(resource.RoleNames),
		})
		applyTableFormat(t)
		t.Render()
		return nil
	},
}

func init() {
	rbacCmd.AddCommand(rbacResourceCmd)
	rbacResourceCmd.AddCommand(rbacResourceCreateCmd)
	rbacResourceCmd.AddCommand(rbacResourceDeleteCmd)
	rbacResourceCmd.AddCommand(rbacResourceGetCmd)
}
