package common

import (
	"fmt"
	"net"

	"github.com/spf13/viper"
)

func ValidateAddr(addr string) error {
	if addr == "" {
		return fmt.Errorf("empty address")
	}
	if _, err := net.ResolveTCPAddr("tcp", addr); err != nil {
		return err
	}
	return nil
}

// ValidateServerConfig checks the keys the server command needs before it
// opens any connection.
func ValidateServerConfig(v *viper.Viper) error {
	if err := ValidateAddr(v.GetString("http_addr")); err != nil {
		return fmt.Errorf("http_addr: %w", err)
	}
	if v.GetString("db.dsn") == "" {
		return fmt.Errorf("db.dsn missing")
	}
	switch d := v.GetString("db.driver"); d {
	case "", "postgres", "sqlite":
	default:
		return fmt.Errorf("db.driver: unsupported %q", d)
	}
	if v.GetString("auth.jwt_secret") == "" {
		return fmt.Errorf("auth.jwt_secret missing")
	}
	return nil
}

// ValidateSyncConfig checks the keys the sync command needs.
func ValidateSyncConfig(v *viper.Viper) error {
	if v.GetString("db.dsn") == "" {
		return fmt.Errorf("db.dsn missing")
	}
	if v.GetString("igdb.client_id") == "" {
		return fmt.Errorf("igdb.client_id missing")
	}
	if v.GetString("igdb.client_secret") == "" {
		return fmt.Errorf("igdb.client_secret missing")
	}
	return nil
}
