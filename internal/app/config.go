package app

import (
	"strings"
	"time"

	"github.com/anef-maroc/pdfcp-backend/internal/platform/logger"
	"github.com/anef-maroc/pdfcp-backend/internal/utils"
)

type Config struct {
	Port    string
	LogMode string

	JWTSecretKey   string
	AccessTokenTTL time.Duration

	DBDriver string

	RedisAddr    string
	RedisChannel string

	SyncWorkerEnabled bool
	SyncReplayDelay   time.Duration
	SyncIdlePoll      time.Duration

	SeedTerritory     bool
	TerritorySeedFile string
	TerritoryCacheTTL time.Duration

	MetricsAddr string
	ServiceName string
	Environment string
	CORSOrigins []string
}

func LoadConfig(log *logger.Logger) Config {
	accessTokenTTLSeconds := utils.GetEnvAsInt("ACCESS_TOKEN_TTL", 7*24*3600, log)
	replayDelayMS := utils.GetEnvAsInt("SYNC_REPLAY_DELAY_MS", 500, log)
	idlePollMS := utils.GetEnvAsInt("SYNC_IDLE_POLL_MS", 5000, log)
	territoryTTLSeconds := utils.GetEnvAsInt("TERRITORY_CACHE_TTL", 300, log)
	return Config{
		Port:    utils.GetEnv("PORT", "8080", log),
		LogMode: utils.GetEnv("LOG_MODE", "development", log),

		JWTSecretKey:   utils.GetEnv("JWT_SECRET_KEY", "defaultsecret", log),
		AccessTokenTTL: time.Duration(accessTokenTTLSeconds) * time.Second,

		DBDriver: utils.GetEnv("DB_DRIVER", "postgres", log),

		RedisAddr:    strings.TrimSpace(utils.GetEnv("REDIS_ADDR", "", log)),
		RedisChannel: utils.GetEnv("REDIS_CHANNEL", "pdfcp:sse", log),

		SyncWorkerEnabled: utils.GetEnvAsBool("SYNC_WORKER_ENABLED", true, log),
		SyncReplayDelay:   time.Duration(replayDelayMS) * time.Millisecond,
		SyncIdlePoll:      time.Duration(idlePollMS) * time.Millisecond,

		SeedTerritory:     utils.GetEnvAsBool("SEED_TERRITORY", false, log),
		TerritorySeedFile: utils.GetEnv("TERRITORY_SEED_FILE", "", log),
		TerritoryCacheTTL: time.Duration(territoryTTLSeconds) * time.Second,

		MetricsAddr: utils.GetEnv("METRICS_ADDR", ":9090", log),
		ServiceName: utils.GetEnv("OTEL_SERVICE_NAME", "pdfcp-backend", log),
		Environment: utils.GetEnv("APP_ENV", "development", log),
		CORSOrigins: splitList(utils.GetEnv("CORS_ALLOWED_ORIGINS", "", log)),
	}
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
