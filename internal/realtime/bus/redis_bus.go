package bus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/anef-maroc/pdfcp-backend/internal/platform/logger"
	"github.com/anef-maroc/pdfcp-backend/internal/realtime"
)

const (
	DefaultChannel = "pdfcp:sse"
	connectTimeout = 5 * time.Second
)

var errNotConnected = errors.New("redis bus not connected")

// envelope tags each event with the publishing instance for log correlation.
type envelope struct {
	Origin uuid.UUID           `json:"origin"`
	SentAt time.Time           `json:"sent_at"`
	Msg    realtime.SSEMessage `json:"msg"`
}

type redisBus struct {
	log      *logger.Logger
	rdb      *goredis.Client
	channel  string
	instance uuid.UUID
}

// NewRedisBus accepts host:port or a redis:// URL and fails fast when the
// server does not answer a ping.
func NewRedisBus(log *logger.Logger, addr, channel string) (Bus, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	opts, err := redisOptions(addr)
	if err != nil {
		return nil, err
	}
	if channel = strings.TrimSpace(channel); channel == "" {
		channel = DefaultChannel
	}

	rdb := goredis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", opts.Addr, err)
	}

	instance := uuid.New()
	return &redisBus{
		log:      log.With("component", "RedisBus", "channel", channel, "instance", instance),
		rdb:      rdb,
		channel:  channel,
		instance: instance,
	}, nil
}

func redisOptions(addr string) (*goredis.Options, error) {
	addr = strings.TrimSpace(addr)
	switch {
	case addr == "":
		return nil, fmt.Errorf("missing redis address")
	case strings.HasPrefix(addr, "redis://"), strings.HasPrefix(addr, "rediss://"):
		opts, err := goredis.ParseURL(addr)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		return opts, nil
	default:
		return &goredis.Options{Addr: addr, DialTimeout: connectTimeout}, nil
	}
}

func (b *redisBus) Publish(ctx context.Context, msg realtime.SSEMessage) error {
	if b == nil || b.rdb == nil {
		return errNotConnected
	}
	raw, err := json.Marshal(envelope{Origin: b.instance, SentAt: time.Now().UTC(), Msg: msg})
	if err != nil {
		return fmt.Errorf("encode %s event: %w", msg.Event, err)
	}
	if err := b.rdb.Publish(ctx, b.channel, raw).Err(); err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}
	return nil
}

// StartForwarder subscribes synchronously, then delivers on a goroutine until
// ctx ends or the subscription closes.
func (b *redisBus) StartForwarder(ctx context.Context, onMsg func(m realtime.SSEMessage)) error {
	if b == nil || b.rdb == nil {
		return errNotConnected
	}
	if onMsg == nil {
		return fmt.Errorf("onMsg callback required")
	}
	sub := b.rdb.Subscribe(ctx, b.channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("redis subscribe: %w", err)
	}
	go b.forward(ctx, sub, onMsg)
	return nil
}

func (b *redisBus) forward(ctx context.Context, sub *goredis.PubSub, onMsg func(m realtime.SSEMessage)) {
	defer sub.Close()
	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case m, ok := <-ch:
			if !ok {
				b.log.Warn("redis subscription closed")
				return
			}
			var env envelope
			if err := json.Unmarshal([]byte(m.Payload), &env); err != nil {
				b.log.Warn("dropping undecodable realtime event", "error", err)
				continue
			}
			if env.Origin != b.instance {
				b.log.Debug("realtime event from peer", "origin", env.Origin, "event", env.Msg.Event)
			}
			onMsg(env.Msg)
		}
	}
}

func (b *redisBus) Ping(ctx context.Context) error {
	if b == nil || b.rdb == nil {
		return errNotConnected
	}
	return b.rdb.Ping(ctx).Err()
}

func (b *redisBus) Close() error {
	if b == nil || b.rdb == nil {
		return nil
	}
	return b.rdb.Close()
}
