// Package credentials resolves the service-account identity the gateway
// authenticates with: issuer email, RSA private key, and target workbook id.
package credentials

import (
	"crypto/rsa"

	"github.com/spf13/viper"

	"github.com/frotaops/sheetgate/internal/model"
)

// Viper keys (environment: SHEETGATE_SERVICE_ACCOUNT_EMAIL, etc).
const (
	KeyServiceAccountEmail = "service_account_email"
	KeyPrivateKey          = "private_key"
	KeyWorkbookID          = "workbook_id"
)

// Credentials is a resolved, validated service-account identity.
type Credentials struct {
	Issuer     string
	PrivateKey *rsa.PrivateKey
	WorkbookID string
}

// Load reads and validates credentials from viper-managed configuration.
// Absence of any input is a ConfigurationError: fatal, not retried, and
// surfaced at first use rather than process start.
func Load() (*Credentials, error) {
	issuer := viper.GetString(KeyServiceAccountEmail)
	rawKey := viper.GetString(KeyPrivateKey)
	workbookID := viper.GetString(KeyWorkbookID)

	if issuer == "" {
		return nil, &model.ConfigurationError{Reason: "service account email is not set"}
	}
	if rawKey == "" {
		return nil, &model.ConfigurationError{Reason: "service account private key is not set"}
	}
	if workbookID == "" {
		return nil, &model.ConfigurationError{Reason: "workbook id is not set"}
	}

	key, err := CoercePrivateKey(rawKey)
	if err != nil {
		return nil, &model.ConfigurationError{Reason: "service account private key is unusable", Err: err}
	}

	return &Credentials{
		Issuer:     issuer,
		PrivateKey: key,
		WorkbookID: workbookID,
	}, nil
}
