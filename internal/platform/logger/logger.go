package logger

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Logger struct {
	SugaredLogger *zap.SugaredLogger
}

// New builds a logger for the given mode ("prod", "test" or anything else for development).
// LOG_LEVEL overrides the mode's default level.
func New(mode string) (*Logger, error) {
	var cfg zap.Config
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "prod", "production":
		cfg = zap.NewProductionConfig()
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "test":
		cfg = zap.NewDevelopmentConfig()
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	default:
		cfg = zap.NewDevelopmentConfig()
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	if raw := strings.TrimSpace(os.Getenv("LOG_LEVEL")); raw != "" {
		var lvl zapcore.Level
		if err := lvl.UnmarshalText([]byte(strings.ToLower(raw))); err == nil {
			cfg.Level = zap.NewAtomicLevelAt(lvl)
		}
	}
	zapLogger, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return &Logger{SugaredLogger: zapLogger.Sugar()}, nil
}

// NewNop returns a logger that discards everything.
func NewNop() *Logger {
	return &Logger{SugaredLogger: zap.NewNop().Sugar()}
}

func (l *Logger) Sync() {
	_ = l.SugaredLogger.Sync()
}

func (l *Logger) Debug(msg string, keysAndValues ...interface{}) {
	l.SugaredLogger.Debugw(msg, sanitizeKVs(keysAndValues)...)
}
func (l *Logger) Info(msg string, keysAndValues ...interface{}) {
	l.SugaredLogger.Infow(msg, sanitizeKVs(keysAndValues)...)
}
func (l *Logger) Warn(msg string, keysAndValues ...interface{}) {
	l.SugaredLogger.Warnw(msg, sanitizeKVs(keysAndValues)...)
}
func (l *Logger) Error(msg string, keysAndValues ...interface{}) {
	l.SugaredLogger.Errorw(msg, sanitizeKVs(keysAndValues)...)
}
func (l *Logger) Fatal(msg string, keysAndValues ...interface{}) {
	l.SugaredLogger.Fatalw(msg, sanitizeKVs(keysAndValues)...)
}
func (l *Logger) With(keysAndValues ...interface{}) *Logger {
	return &Logger{SugaredLogger: l.SugaredLogger.With(sanitizeKVs(keysAndValues)...)}
}

// Keys are matched lowercased. Field agents' contact data (CIN, phone, email)
// never reaches the logs; user ids are hashed so lines stay joinable.
var (
	redactFragments = []string{
		"token", "authorization", "password", "secret", "cookie",
		"api_key", "apikey", "email", "phone", "telephone", "cin", "dsn",
	}
	hashSuffixes = []string{"user_id", "actor_id", "requester_id", "decided_by", "session_id"}
)

type redactionPolicy struct {
	enabled bool
	salt    string
}

var (
	policyOnce sync.Once
	policy     redactionPolicy
)

func currentPolicy() redactionPolicy {
	policyOnce.Do(func() {
		switch strings.ToLower(strings.TrimSpace(os.Getenv("LOG_REDACTION_ENABLED"))) {
		case "0", "false", "no", "off":
			policy.enabled = false
		default:
			policy.enabled = true
		}
		policy.salt = strings.TrimSpace(os.Getenv("LOG_HASH_SALT"))
	})
	return policy
}

func sanitizeKVs(kv []interface{}) []interface{} {
	p := currentPolicy()
	if len(kv) == 0 || !p.enabled {
		return kv
	}
	out := make([]interface{}, 0, len(kv))
	for i := 0; i+1 < len(kv); i += 2 {
		name := toString(kv[i])
		out = append(out, name, p.value(normalizeKey(name), kv[i+1]))
	}
	if len(kv)%2 == 1 {
		out = append(out, kv[len(kv)-1])
	}
	return out
}

func normalizeKey(k string) string { return strings.ToLower(strings.TrimSpace(k)) }

func (p redactionPolicy) value(key string, val interface{}) interface{} {
	switch {
	case key == "":
		return val
	case shouldRedact(key):
		return redacted
	case shouldHash(key):
		return p.hash(val)
	}
	switch v := val.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(v))
		for k, inner := range v {
			out[k] = p.value(normalizeKey(k), inner)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, inner := range v {
			out[i] = scrubJWT(inner)
		}
		return out
	default:
		return scrubJWT(val)
	}
}

const redacted = "[REDACTED]"

func scrubJWT(v interface{}) interface{} {
	if s, ok := v.(string); ok && looksLikeJWT(s) {
		return redacted
	}
	return v
}

// "cin" is matched as a whole segment so keys like "decision" pass through.
func shouldRedact(key string) bool {
	for _, f := range redactFragments {
		if f == "cin" {
			if key == "cin" || strings.HasPrefix(key, "cin_") || strings.HasSuffix(key, "_cin") {
				return true
			}
			continue
		}
		if strings.Contains(key, f) {
			return true
		}
	}
	return false
}

func shouldHash(key string) bool {
	for _, suf := range hashSuffixes {
		if strings.HasSuffix(key, suf) {
			return true
		}
	}
	return false
}

func (p redactionPolicy) hash(val interface{}) string {
	raw := toString(val)
	if raw == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(p.salt + raw))
	return "hash:" + hex.EncodeToString(sum[:])[:12]
}

func looksLikeJWT(s string) bool {
	parts := strings.Split(s, ".")
	return len(parts) == 3 && len(parts[0]) > 10 && len(parts[1]) > 10
}

func toString(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	case fmt.Stringer:
		return t.String()
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}
