package db

import (
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/anef-maroc/pdfcp-backend/internal/platform/logger"
	"github.com/anef-maroc/pdfcp-backend/internal/utils"
)

const (
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
	DriverSQLite   = "sqlite"
)

// Open connects to the database selected by driver.
func Open(driver string, log *logger.Logger) (*gorm.DB, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", DriverPostgres, "postgresql":
		svc, err := NewPostgresService(log)
		if err != nil {
			return nil, err
		}
		return svc.DB(), nil
	case DriverMySQL:
		svc, err := NewMySQLService(log)
		if err != nil {
			return nil, err
		}
		return svc.DB(), nil
	case DriverSQLite:
		svc, err := NewSQLiteService(log)
		if err != nil {
			return nil, err
		}
		return svc.DB(), nil
	default:
		return nil, fmt.Errorf("unknown DB_DRIVER %q", driver)
	}
}

func IsSQLite(db *gorm.DB) bool {
	return db != nil && db.Dialector != nil && db.Dialector.Name() == "sqlite"
}

// configurePool applies DB_MAX_OPEN_CONNS, DB_MAX_IDLE_CONNS and DB_CONN_MAX_LIFETIME_SECONDS.
func configurePool(db *gorm.DB, log *logger.Logger) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("sql handle: %w", err)
	}
	sqlDB.SetMaxOpenConns(utils.GetEnvAsInt("DB_MAX_OPEN_CONNS", 20, log))
	sqlDB.SetMaxIdleConns(utils.GetEnvAsInt("DB_MAX_IDLE_CONNS", 5, log))
	sqlDB.SetConnMaxLifetime(time.Duration(utils.GetEnvAsInt("DB_CONN_MAX_LIFETIME_SECONDS", 1800, log)) * time.Second)
	return nil
}
