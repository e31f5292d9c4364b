package credentials

import (
	"testing"

	"github.com/spf13/viper"

	"github.com/frotaops/sheetgate/internal/model"
)

func TestLoad(t *testing.T) {
	pemText, _ := testKeyPEM(t)

	setAll := func(email, key, workbook string) {
		viper.Set(KeyServiceAccountEmail, email)
		viper.Set(KeyPrivateKey, key)
		viper.Set(KeyWorkbookID, workbook)
	}
	t.Cleanup(viper.Reset)

	t.Run("complete configuration", func(t *testing.T) {
		setAll("svc@example.iam.gserviceaccount.com", pemText, "wb-123")
		creds, err := Load()
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if creds.Issuer != "svc@example.iam.gserviceaccount.com" {
			t.Errorf("Issuer = %q", creds.Issuer)
		}
		if creds.WorkbookID != "wb-123" {
			t.Errorf("WorkbookID = %q", creds.WorkbookID)
		}
		if creds.PrivateKey == nil {
			t.Error("PrivateKey is nil")
		}
	})

	missing := []struct {
		name                 string
		email, key, workbook string
	}{
		{"no email", "", pemText, "wb-123"},
		{"no key", "svc@example.com", "", "wb-123"},
		{"no workbook", "svc@example.com", pemText, ""},
		{"mangled key", "svc@example.com", "not a key", "wb-123"},
	}
	for _, tt := range missing {
		t.Run(tt.name, func(t *testing.T) {
			setAll(tt.email, tt.key, tt.workbook)
			_, err := Load()
			if err == nil {
				t.Fatal("Load accepted incomplete configuration")
			}
			if _, ok := model.AsConfiguration(err); !ok {
				t.Errorf("error is %T, want ConfigurationError", err)
			}
		})
	}
}
