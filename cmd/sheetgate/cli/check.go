package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/frotaops/sheetgate/internal/credentials"
)

func newCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Validate the configured credentials",
		Long: `Validate the service-account configuration without calling upstream.

Reports which inputs are present and whether the private key can be
coerced into a usable RSA key. Exits non-zero on any problem.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd)
		},
	}
	return cmd
}

func runCheck(cmd *cobra.Command) error {
	out := cmd.OutOrStdout()

	present := func(key string) string {
		if viper.GetString(key) != "" {
			return "set"
		}
		return "MISSING"
	}
	fmt.Fprintf(out, "service account email: %s\n", present(credentials.KeyServiceAccountEmail))
	fmt.Fprintf(out, "private key:           %s\n", present(credentials.KeyPrivateKey))
	fmt.Fprintf(out, "workbook id:           %s\n", present(credentials.KeyWorkbookID))

	creds, err := credentials.Load()
	if err != nil {
		return fmt.Errorf("configuration is not usable: %w", err)
	}

	fmt.Fprintf(out, "\nkey parses as RSA (%d bits), issuer %s, workbook %s\n",
		creds.PrivateKey.N.BitLen(), creds.Issuer, creds.WorkbookID)
	fmt.Fprintln(out, "configuration OK")
	return nil
}
