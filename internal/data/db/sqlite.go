package db

import (
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/anef-maroc/pdfcp-backend/internal/platform/logger"
	"github.com/anef-maroc/pdfcp-backend/internal/utils"
)

type SQLiteService struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSQLiteService(logg *logger.Logger) (*SQLiteService, error) {
	serviceLog := logg.With("service", "SQLiteService")

	path := utils.GetEnv("SQLITE_PATH", "pdfcp.db", logg)
	db, err := OpenSQLite(path + "?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}
	serviceLog.Info("opened", "path", path)
	return &SQLiteService{db: db, log: serviceLog}, nil
}

// OpenSQLite opens a sqlite DSN with a single connection; sqlite serializes writers anyway.
func OpenSQLite(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(dsn), gormConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("sqlite handle: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)
	return db, nil
}

func (s *SQLiteService) DB() *gorm.DB { return s.db }
