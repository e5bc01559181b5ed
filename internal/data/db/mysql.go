package db

import (
	"fmt"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/anef-maroc/pdfcp-backend/internal/platform/logger"
	"github.com/anef-maroc/pdfcp-backend/internal/utils"
)

// MySQLService backs the deployment that replaced the hosted Postgres with a self-hosted MySQL.
type MySQLService struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewMySQLService(logg *logger.Logger) (*MySQLService, error) {
	serviceLog := logg.With("service", "MySQLService")

	host := utils.GetEnv("MYSQL_HOST", "localhost", logg)
	port := utils.GetEnv("MYSQL_PORT", "3306", logg)
	user := utils.GetEnv("MYSQL_USER", "root", logg)
	password := utils.GetEnv("MYSQL_PASSWORD", "", logg)
	name := utils.GetEnv("MYSQL_DATABASE", "anef_pdfcp", logg)

	dsn := fmt.Sprintf(
		"%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		user, password, host, port, name,
	)

	db, err := gorm.Open(mysql.Open(dsn), gormConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MySQL: %w", err)
	}
	if err := configurePool(db, logg); err != nil {
		return nil, err
	}
	serviceLog.Info("connected", "host", host, "database", name)

	return &MySQLService{db: db, log: serviceLog}, nil
}

func (s *MySQLService) DB() *gorm.DB { return s.db }
