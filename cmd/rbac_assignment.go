package cmd

import (
	"github.com/spf13/cobra"
)

var rbacAssignCmd = &cobra.Command{
	Use:   "assign",
	Short: "Grant roles and scopes to principals",
}

var rbacUnassignCmd = &cobra.Command{
	Use:   "unassign",
	Short: "Revoke roles and scopes from principals",
}

var rbacAssignRoleCmd = &cobra.Command{
	Use:   "role RESOURCE ROLE PRINCIPAL",
	Short: "Assign a role to a principal",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		cli, err := f.GetClient()
		if err != nil {
			return err
		}
		correlation, err := cli.CreateRoleAssignment(cmd.Context(), args[0], args[1], args[2])
		if err != nil {
			return logError(err, correlation, "failed to assign role")
		}
		logSuccess("assigned role %s on %s to %s", bold(args[1]), bold(args[0]), bold(args[2]))
		return nil
	},
}

var rbacUnassignRoleCmd = &cobra.Command{
	Use:   "role RESOURCE ROLE PRINCIPAL",
	Short: "Remove a role assignment",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		cli, err := f.GetClient()
		if err != nil {
			return err
		}
		correlation, err := cli.DeleteRoleAssignment(cmd.Context(), args[0], args[1], args[2])
		if err != nil {
			return logError(err, correlation, "failed to unassign role")
		}
		logSuccess("removed role %s on %s from %s", bold(args[1]), bold(args[0]), bold(args[2]))
		return nil
	},
}

var rbacAssignScopeCmd = &cobra.Command{
	Use:   "scope RESOURCE SCOPE PRINCIPAL",
	Short: "Assign a scope to a principal",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		cli, err := f.GetClient()
		if err != nil {
			return err
		}
		correlation, err := cli.CreateScopeAssignment(cmd.Context(), args[0], args[1], args[2])
		if err != nil {
			return logError(err, correlation, "failed to assign scope")
		}
		logSuccess("assigned scope %s on %s to %s", bold(args[1]), bold(args[0]), bold(args[2]))
		return nil
	},
}

var rbacUnassignScopeCmd = &cobra.Command{
	Use:   "scope RESOURCE SCOPE PRINCIPAL",
	Short: "Remove a scope assignment",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		cli, err := f.GetClient()
		if err != nil {
			return err
		}
		correlation, err := cli.DeleteScopeAssignment(cmd.Context(), args[0], args[1], args[2])
		if err != nil {
			return logError(err, correlation, "failed to unassign scope")
		}
		logSuccess("removed scope %s on %s from %s", bold(args[1]), bold(args[0]), bold(args[2]))
		return nil
	},
}

func init() {
	rbacCmd.AddCommand(rbacAssignCmd)
	rbacCmd.AddCommand(rbacUnassignCmd)
	rbacAssignCmd.AddCommand(rbacAssignRoleCmd)
	rbacAssignCmd.AddCommand(rbacAssignScopeCmd)
	rbacUnassignCmd.AddCommand(rbacUnassignRoleCmd)
	rbacUnassignCmd.AddCommand(rbacUnassignScopeCmd)
}
