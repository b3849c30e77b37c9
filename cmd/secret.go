package cmd

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws/session"
	v4 "github.com/aws/aws-sdk-go/aws/signer/v4"
	"github.com/spf13/cobra"

	"github.com/vouchd/vouchd/internal/core"
	"github.com/vouchd/vouchd/internal/signature"
)

var secretRegion string

var secretCmd = &cobra.Command{
	Use:   "secret",
	Short: "Work with client secrets",
}

var secretEncodeCmd = &cobra.Command{
	Use:   "encode",
	Short: "Build a client_secret from the local AWS credentials",
	Long: `Pre-signs an STS GetCallerIdentity request with the credentials from the
	default AWS credential chain and encodes the signed headers as an opaque
	client_secret. The secret never contains the credentials themselves, only
	a signature the server can relay to STS.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		secret, err := encodeSecret(secretRegion)
		if err != nil {
			return err
		}
		fmt.Println(secret)
		return nil
	},
}

// encodeSecret signs a GetCallerIdentity request and packs the resulting
// headers into the opaque client_secret format.
func encodeSecret(region string) (string, error) {
	sess, err := session.NewSessionWithOptions(session.Options{
		SharedConfigState: session.SharedConfigEnable,
	})
	if err != nil {
		return "", fmt.Errorf("loading AWS session: %w", err)
	}

	body := "Action=GetCallerIdentity&Version=2011-06-15"
	endpoint := fmt.Sprintf("https://sts.%s.amazonaws.com/", region)

	req, err := http.NewRequest(http.MethodPost, endpoint, strings.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded; charset=utf-8")

	signer := v4.NewSigner(sess.Config.Credentials)
	if _, err := signer.Sign(req, strings.NewReader(body), "sts", region, time.Now()); err != nil {
		return "", fmt.Errorf("signing request: %w", err)
	}

	headers := map[string]string{
		"Host": req.URL.Host,
	}
	for name := range req.Header {
		headers[name] = req.Header.Get(name)
	}

	return signature.Encode(&core.CallerIdentitySignature{
		Region:  region,
		Headers: headers,
	})
}

func init() {
	rootCmd.AddCommand(secretCmd)
	secretCmd.AddCommand(secretEncodeCmd)

	secretEncodeCmd.PersistentFlags().StringVar(&secretRegion, "region", "us-east-1", "STS region to sign for")
}
