package cmd

import (
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var rbacRoleCmd = &cobra.Command{
	Use:     "role",
	Aliases: []string{"roles"},
	Short:   "Manage roles on a resource",
}

var rbacRoleCreateCmd = &cobra.Command{
	Use:   "create RESOURCE ROLE",
	Short: "Register a role on a resource",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cli, err := f.GetClient()
		if err != nil {
			return err
		}
		correlation, err := cli.CreateRole(cmd.Context(), args[0], args[1])
		if err != nil {
			return logError(err, correlation, "failed to create role")
		}
		logSuccess("created role %s on %s", bold(args[1]), bold(args[0]))
		return nil
	},
}

var rbacRoleDeleteCmd = &cobra.Command{
	Use:   "delete RESOURCE ROLE",
	Short: "Delete a role and its assignments",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cli, err := f.GetClient()
		if err != nil {
			return err
		}
		correlation, err := cli.DeleteRole(cmd.Context(), args[0], args[1])
		if err != nil {
			return logError(err, correlation, "failed to delete role")
		}
		logSuccess("deleted role %s from %s", bold(args[1]), bold(args[0]))
		return nil
	},
}

var rbacRoleMembersCmd = &cobra.Command{
	Use:   "members RESOURCE ROLE",
	Short: "List the principals holding a role",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cli, err := f.GetClient()
		if err != nil {
			return err
		}
		listing, correlation, err := cli.GetRoleAssignments(cmd.Context(), args[0], args[1])
		if err != nil {
			return logError(err, correlation, "failed to list role assignments")
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Principal"})
		for _, principal := range listing.PrincipalIDs {
			t.AppendRow(table.Row{principal})
		}
		applyTableFormat(t)
		t.Render()
		return nil
	},
}

func init() {
	rbacCmd.AddCommand(rbacRoleCmd)
	rbacRoleCmd.AddCommand(rbacRoleCreateCmd)
	rbacRoleCmd.AddCommand(rbacRoleDeleteCmd)
	rbacRoleCmd.AddCommand(rbacRoleMembersCmd)
}
