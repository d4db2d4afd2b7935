package common

import (
	"testing"

	"github.com/spf13/viper"
)

func serverViper() *viper.Viper {
	v := viper.New()
	v.Set("http_addr", ":8080")
	v.Set("db.dsn", "file::memory:")
	v.Set("db.driver", "sqlite")
	v.Set("auth.jwt_secret", "s3cret")
	return v
}

func TestValidateServerConfigOK(t *testing.T) {
	if err := ValidateServerConfig(serverViper()); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}
}

func TestValidateServerConfigMissingKeys(t *testing.T) {
	cases := []struct {
		key string
		val any
	}{
		{"http_addr", ""},
		{"db.dsn", ""},
		{"db.driver", "oracle"},
		{"auth.jwt_secret", ""},
	}
	for _, tc := range cases {
		v := serverViper()
		v.Set(tc.key, tc.val)
		if err := ValidateServerConfig(v); err == nil {
			t.Errorf("%s=%v: expected error", tc.key, tc.val)
		}
	}
}

func TestValidateSyncConfig(t *testing.T) {
	v := viper.New()
	v.Set("db.dsn", "file::memory:")
	v.Set("igdb.client_id", "cid")
	v.Set("igdb.client_secret", "secret")
	if err := ValidateSyncConfig(v); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}
	v.Set("igdb.client_secret", "")
	if err := ValidateSyncConfig(v); err == nil {
		t.Fatalf("expected error for missing client secret")
	}
}

func TestValidateAddr(t *testing.T) {
	if err := ValidateAddr(":8080"); err != nil {
		t.Fatalf(":8080 rejected: %v", err)
	}
	if err := ValidateAddr(""); err == nil {
		t.Fatalf("empty addr accepted")
	}
}
