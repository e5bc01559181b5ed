package observability

import (
	"context"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"gorm.io/gorm"

	types "github.com/anef-maroc/pdfcp-backend/internal/domain"
	"github.com/anef-maroc/pdfcp-backend/internal/platform/envutil"
	"github.com/anef-maroc/pdfcp-backend/internal/platform/logger"
)

type Metrics struct {
	apiRequests *CounterVec
	apiLatency  *HistogramVec
	apiInflight *Gauge

	transitions   *CounterVec
	syncReplays   *CounterVec
	notifications *CounterVec

	queueDepth *GaugeVec
	dbStats    *GaugeVec
	redisUp    *Gauge
	redisPing  *Gauge
}

var (
	initOnce sync.Once
	instance *Metrics
)

func Enabled() bool { return envutil.Bool("METRICS_ENABLED", false) }

// Current is nil unless Init ran with metrics enabled. Every method accepts a nil receiver.
func Current() *Metrics {
	return instance
}

func scrapeInterval() time.Duration {
	n := envutil.Int("METRICS_SCRAPE_INTERVAL_SECONDS", 10)
	if n <= 0 {
		n = 10
	}
	return time.Duration(n) * time.Second
}

func Init(log *logger.Logger) *Metrics {
	if !Enabled() {
		return nil
	}
	initOnce.Do(func() {
		instance = New()
		if log != nil {
			log.Info("metrics enabled")
		}
	})
	return instance
}

// New builds an unregistered metrics set; Init installs the process-wide one.
func New() *Metrics {
	return &Metrics{
		apiRequests: NewCounterVec("pdfcp_api_requests_total", "Total API requests by method/route/status.", []string{"method", "route", "status"}),
		apiLatency: NewHistogramVec(
			"pdfcp_api_request_duration_seconds",
			"API request latency in seconds by method/route/status.",
			[]string{"method", "route", "status"},
			[]float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		),
		apiInflight:   NewGauge("pdfcp_api_inflight_requests", "In-flight API requests."),
		transitions:   NewCounterVec("pdfcp_validation_transitions_total", "Program validation moves by target status and outcome.", []string{"target", "outcome"}),
		syncReplays:   NewCounterVec("pdfcp_sync_replays_total", "Offline sync replays by table and resulting status.", []string{"table", "status"}),
		notifications: NewCounterVec("pdfcp_notifications_total", "Notifications persisted by type.", []string{"type"}),
		queueDepth:    NewGaugeVec("pdfcp_sync_queue_depth", "Offline sync queue items by status.", []string{"status"}),
		dbStats:       NewGaugeVec("pdfcp_db_pool", "Database pool statistics.", []string{"stat"}),
		redisUp:       NewGauge("pdfcp_redis_up", "Redis reachability (1 up, 0 down)."),
		redisPing:     NewGauge("pdfcp_redis_ping_seconds", "Last redis ping latency in seconds."),
	}
}

func (m *Metrics) StartServer(ctx context.Context, log *logger.Logger, addr string) {
	if m == nil {
		return
	}
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           http.HandlerFunc(m.WriteHTTP),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = srv.Shutdown(shutdownCtx)
		cancel()
	}()
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			if log != nil {
				log.Error("metrics server failed", "error", err, "addr", addr)
			}
		}
	}()
}

func (m *Metrics) WriteHTTP(w http.ResponseWriter, r *http.Request) {
	if m == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	_ = m.WritePrometheus(w)
}

type promWriter interface {
	WritePrometheus(w io.Writer) error
}

func (m *Metrics) WritePrometheus(w io.Writer) error {
	if m == nil {
		return nil
	}
	for _, pw := range []promWriter{
		m.apiRequests, m.apiLatency, m.apiInflight,
		m.transitions, m.syncReplays, m.notifications,
		m.queueDepth, m.dbStats, m.redisUp, m.redisPing,
	} {
		if err := pw.WritePrometheus(w); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) ObserveAPI(method, route, status string, dur time.Duration) {
	if m == nil {
		return
	}
	if method == "" {
		method = "UNKNOWN"
	}
	if route == "" {
		route = "unknown"
	}
	if status == "" {
		status = "0"
	}
	m.apiRequests.Inc(method, route, status)
	m.apiLatency.Observe(dur.Seconds(), method, route, status)
}

func (m *Metrics) ApiInflightInc() {
	if m == nil {
		return
	}
	m.apiInflight.Inc()
}

func (m *Metrics) ApiInflightDec() {
	if m == nil {
		return
	}
	m.apiInflight.Dec()
}

// IncTransition counts a validation move; outcome is "ok" or an error code.
func (m *Metrics) IncTransition(target, outcome string) {
	if m == nil {
		return
	}
	if outcome == "" {
		outcome = "ok"
	}
	m.transitions.Inc(strings.ToLower(target), outcome)
}

func (m *Metrics) IncSyncReplay(table, status string) {
	if m == nil {
		return
	}
	m.syncReplays.Inc(table, status)
}

func (m *Metrics) IncNotification(kind string) {
	if m == nil {
		return
	}
	m.notifications.Inc(kind)
}

// every runs fn on each scrape tick until ctx ends.
func every(ctx context.Context, fn func()) {
	go func() {
		ticker := time.NewTicker(scrapeInterval())
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				fn()
			}
		}
	}()
}

func (m *Metrics) StartDBCollector(ctx context.Context, log *logger.Logger, db *gorm.DB) {
	if m == nil || db == nil {
		return
	}
	every(ctx, func() {
		if err := m.collectDBPool(db); err != nil && log != nil {
			log.Warn("metrics: db stats unavailable", "error", err)
		}
	})
}

func (m *Metrics) collectDBPool(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	st := sqlDB.Stats()
	for stat, v := range map[string]float64{
		"open_connections":      float64(st.OpenConnections),
		"in_use":                float64(st.InUse),
		"idle":                  float64(st.Idle),
		"wait_count":            float64(st.WaitCount),
		"wait_duration_seconds": st.WaitDuration.Seconds(),
		"max_open_connections":  float64(st.MaxOpenConnections),
	} {
		m.dbStats.Set(v, stat)
	}
	return nil
}

// Pinger is satisfied by the redis-backed realtime bus.
type Pinger interface {
	Ping(ctx context.Context) error
}

func (m *Metrics) StartRedisCollector(ctx context.Context, log *logger.Logger, p Pinger) {
	if m == nil || p == nil {
		return
	}
	every(ctx, func() { m.observeRedis(ctx, log, p) })
}

func (m *Metrics) observeRedis(ctx context.Context, log *logger.Logger, p Pinger) {
	start := time.Now()
	if err := p.Ping(ctx); err != nil {
		m.redisUp.Set(0)
		if log != nil {
			log.Warn("metrics: redis ping failed", "error", err)
		}
		return
	}
	m.redisUp.Set(1)
	m.redisPing.Set(time.Since(start).Seconds())
}

var syncStatuses = []string{types.SyncPending, types.SyncProcessing, types.SyncSynced, types.SyncError, types.SyncConflict}

// StartSyncQueueCollector exports queue depth per status; statuses with no rows read 0.
func (m *Metrics) StartSyncQueueCollector(ctx context.Context, log *logger.Logger, db *gorm.DB) {
	if m == nil || db == nil {
		return
	}
	every(ctx, func() {
		if err := m.collectSyncQueue(ctx, db); err != nil && log != nil {
			log.Warn("metrics: sync queue depth query failed", "error", err)
		}
	})
}

func (m *Metrics) collectSyncQueue(ctx context.Context, db *gorm.DB) error {
	var rows []struct {
		SyncStatus string
		Count      int64
	}
	if err := db.WithContext(ctx).
		Model(&types.SyncItem{}).
		Select("sync_status, count(*) as count").
		Group("sync_status").
		Scan(&rows).Error; err != nil {
		return err
	}
	for _, s := range syncStatuses {
		m.queueDepth.Set(0, s)
	}
	for _, row := range rows {
		status := strings.TrimSpace(row.SyncStatus)
		if status == "" {
			status = "unknown"
		}
		m.queueDepth.Set(float64(row.Count), status)
	}
	return nil
}
