package cmd

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/vouchd/vouchd/pkg/client"
)

var (
	issueClientID     string
	issueClientSecret string
	issueScope        string
	issueSignRegion   string
)

var tokenIssueCmd = &cobra.Command{
	Use:   "issue",
	Short: "Request an access token from the server",
	Long: `Runs the OAuth2 client-credentials flow against the server. If no
	--client-secret is given, one is built on the fly from the local AWS
	credential chain (same as 'vouchd secret encode').`,
	RunE: func(cmd *cobra.Command, args []string) error {
		server, err := f.ServerAddr()
		if err != nil {
			return err
		}

		secret := issueClientSecret
		if secret == "" {
			log.Debug().Msgf("signing caller identity for region %s...", issueSignRegion)
			if secret, err = encodeSecret(issueSignRegion); err != nil {
				return fmt.Errorf("building client secret: %w", err)
			}
		}

		cli := client.New(server)
		resp, correlation, err := cli.RequestToken(cmd.Context(), issueClientID, secret, issueScope)
		if err != nil {
			return logError(err, correlation, "failed to issue token")
		}

		logSuccess("issued token (type %s, expires in %ds)", resp.TokenType, resp.ExpiresIn)
		fmt.Println(resp.AccessToken)
		return nil
	},
}

func init() {
	tokenCmd.AddCommand(tokenIssueCmd)

	tokenIssueCmd.Flags().StringVar(&issueClientID, "client-id", "", "principal ARN to request the token as")
	tokenIssueCmd.Flags().StringVar(&issueClientSecret, "client-secret", "", "pre-encoded client secret (optional)")
	tokenIssueCmd.Flags().StringVar(&issueScope, "scope", "", "requested scope as {resource}/{scope}")
	tokenIssueCmd.Flags().StringVar(&issueSignRegion, "region", "us-east-1", "STS region to sign for when no secret is given")

	_ = tokenIssueCmd.MarkFlagRequired("client-id")
	_ = tokenIssueCmd.MarkFlagRequired("scope")
}
