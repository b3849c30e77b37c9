package cmd

import (
	"github.com/spf13/cobra"
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Administrative audit commands",
	Long:  `View token issuance and RBAC mutation audit logs on the server. Requires an authenticated admin session (vouchd login).`,
}

func init() {
	rootCmd.AddCommand(auditCmd)
}
