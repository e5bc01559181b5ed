package db

import (
	"fmt"
	"net/url"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/anef-maroc/pdfcp-backend/internal/platform/logger"
	"github.com/anef-maroc/pdfcp-backend/internal/utils"
)

// PostgresService connects to the hosted Postgres that holds the BaaS schema.
// POSTGRES_DSN wins over the discrete POSTGRES_* settings.
type PostgresService struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPostgresService(logg *logger.Logger) (*PostgresService, error) {
	serviceLog := logg.With("service", "PostgresService")

	dsn := utils.GetEnv("POSTGRES_DSN", "", logg)
	target := "dsn"
	if dsn == "" {
		host := utils.GetEnv("POSTGRES_HOST", "localhost", logg)
		port := utils.GetEnv("POSTGRES_PORT", "5432", logg)
		name := utils.GetEnv("POSTGRES_NAME", "pdfcp", logg)
		u := url.URL{
			Scheme:   "postgres",
			User:     url.UserPassword(utils.GetEnv("POSTGRES_USER", "postgres", logg), utils.GetEnv("POSTGRES_PASSWORD", "", logg)),
			Host:     host + ":" + port,
			Path:     "/" + name,
			RawQuery: url.Values{"sslmode": {utils.GetEnv("POSTGRES_SSLMODE", "disable", logg)}}.Encode(),
		}
		dsn = u.String()
		target = host + "/" + name
	}

	db, err := gorm.Open(postgres.Open(dsn), gormConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Postgres: %w", err)
	}
	if err := configurePool(db, logg); err != nil {
		return nil, err
	}
	serviceLog.Info("connected", "target", target)

	return &PostgresService{db: db, log: serviceLog}, nil
}

func (s *PostgresService) DB() *gorm.DB { return s.db }
