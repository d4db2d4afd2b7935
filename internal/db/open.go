// Package db opens the gorm connection both commands share.
package db

import (
	"fmt"
	"strings"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Open selects the gorm driver from the configured name, falling back to
// DSN-prefix detection when driver is empty. Postgres backs production;
// sqlite covers dev and tests.
func Open(driver, dsn string) (*gorm.DB, error) {
	switch driver {
	case "postgres":
		return gorm.Open(postgres.Open(dsn), &gorm.Config{})
	case "sqlite":
		return gorm.Open(sqlite.Open(sqliteDSN(dsn)), &gorm.Config{})
	case "":
		if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
			return gorm.Open(postgres.Open(dsn), &gorm.Config{})
		}
		return gorm.Open(sqlite.Open(sqliteDSN(dsn)), &gorm.Config{})
	default:
		return nil, fmt.Errorf("unsupported db driver %q", driver)
	}
}

func sqliteDSN(dsn string) string {
	if strings.HasPrefix(dsn, "sqlite:///") {
		return "file:" + strings.TrimPrefix(dsn, "sqlite:///")
	}
	return dsn
}
