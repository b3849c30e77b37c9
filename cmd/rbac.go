package cmd

import (
	"github.com/spf13/cobra"
)

var rbacCmd = &cobra.Command{
	Use:   "rbac",
	Short: "Administer resources, scopes, roles and assignments",
	Long:  `Manage the RBAC model on the server. Requires an authenticated session (vouchd login) with the matching rbac.* role.`,
}

func init() {
	rootCmd.AddCommand(rbacCmd)
}
