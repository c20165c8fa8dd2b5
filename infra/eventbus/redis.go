package eventbus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/amirasaad/presale/pkg/config"
	"github.com/amirasaad/presale/pkg/domain/events"
	"github.com/amirasaad/presale/pkg/eventbus"
	"github.com/redis/go-redis/v9"
)

// RedisEventBus implements eventbus.Bus on Redis Streams, one stream per
// event type. Failed deliveries are copied to a per-type DLQ stream.
type RedisEventBus struct {
	client *redis.Client
	prefix string
	logger *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewWithRedis creates a Redis-backed event bus and checks connectivity.
func NewWithRedis(cfg *config.Redis, logger *slog.Logger) (*RedisEventBus, error) {
	if cfg == nil || cfg.URL == "" {
		return nil, fmt.Errorf("redis event bus: url is required")
	}
	opt, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("redis event bus: invalid URL: %w", err)
	}
	if cfg.PoolSize > 0 {
		opt.PoolSize = cfg.PoolSize
	}
	if cfg.DialTimeout > 0 {
		opt.DialTimeout = cfg.DialTimeout
	}
	if cfg.ReadTimeout > 0 {
		opt.ReadTimeout = cfg.ReadTimeout
	}
	if cfg.WriteTimeout > 0 {
		opt.WriteTimeout = cfg.WriteTimeout
	}

	client := redis.NewClient(opt)
	if err := client.Ping(context.Background()).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis event bus: connection failed: %w", err)
	}
	return newRedisEventBus(client, cfg.KeyPrefix, logger), nil
}

func newRedisEventBus(client *redis.Client, prefix string, logger *slog.Logger) *RedisEventBus {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &RedisEventBus{
		client: client,
		prefix: prefix,
		logger: logger.With("bus", "redis"),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Emit publishes an event to its Redis stream.
func (b *RedisEventBus) Emit(ctx context.Context, event events.Event) error {
	envBytes, err := encodeEnvelope(event)
	if err != nil {
		b.logger.Error("failed to encode event", "error", err, "type", event.Type())
		return fmt.Errorf("redis event bus: %w", err)
	}
	stream := streamNameFor(b.prefix, event.Type())
	if err := b.client.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		Values: map[string]any{"event": string(envBytes)},
	}).Err(); err != nil {
		b.logger.Error("failed to emit event", "error", err, "type", event.Type())
		return fmt.Errorf("redis event bus: emit failed: %w", err)
	}
	b.logger.Debug("event emitted", "type", event.Type(), "stream", stream)
	return nil
}

// Register starts a consumer-group reader for the event type's stream.
func (b *RedisEventBus) Register(eventType string, handler eventbus.HandlerFunc) {
	stream := streamNameFor(b.prefix, eventType)
	group := groupNameFor(b.prefix, eventType)
	consumer := fmt.Sprintf("consumer-%d", time.Now().UnixNano())

	if err := b.client.XGroupCreateMkStream(b.ctx, stream, group, "0").Err(); err != nil &&
		!redis.HasErrorPrefix(err, "BUSYGROUP") {
		b.logger.Error("failed to create consumer group", "error", err, "stream", stream)
	}
	b.logger.Info("registering handler", "event_type", eventType, "stream", stream, "consumer", consumer)

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		b.consume(stream, group, consumer, eventType, handler)
	}()
}

func (b *RedisEventBus) consume(stream, group, consumer, eventType string, handler eventbus.HandlerFunc) {
	for {
		res, err := b.client.XReadGroup(b.ctx, &redis.XReadGroupArgs{
			Group:    group,
			Consumer: consumer,
			Streams:  []string{stream, ">"},
			Count:    10,
			Block:    5 * time.Second,
		}).Result()
		if err != nil {
			if b.ctx.Err() != nil {
				return
			}
			if !errors.Is(err, redis.Nil) {
				b.logger.Error("error reading from stream", "error", err, "stream", stream)
				time.Sleep(time.Second)
			}
			continue
		}

		for _, s := range res {
			for _, msg := range s.Messages {
				b.handleMessage(stream, group, eventType, msg, handler)
			}
		}
	}
}

func (b *RedisEventBus) handleMessage(
	stream, group, eventType string,
	msg redis.XMessage,
	handler eventbus.HandlerFunc,
) {
	defer func() {
		if err := b.client.XAck(b.ctx, stream, group, msg.ID).Err(); err != nil {
			b.logger.Error("failed to acknowledge message", "error", err, "msg_id", msg.ID)
		}
	}()

	raw, ok := msg.Values["event"].(string)
	if !ok {
		b.pushToDLQ(eventType, msg.Values)
		return
	}
	evt, err := decodeEnvelope([]byte(raw))
	if err != nil {
		b.logger.Error("failed to decode event", "error", err, "msg_id", msg.ID)
		b.pushToDLQ(eventType, msg.Values)
		return
	}

	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("handler panic recovered", "panic", r, "event_type", eventType)
			b.pushToDLQ(eventType, msg.Values)
		}
	}()
	if err := handler(b.ctx, evt); err != nil {
		b.logger.Error("handler error", "error", err, "event_type", eventType)
		b.pushToDLQ(eventType, msg.Values)
	}
}

// pushToDLQ copies the raw message to the DLQ stream for inspection or reprocessing.
func (b *RedisEventBus) pushToDLQ(eventType string, values map[string]any) {
	dlq := dlqStreamName(b.prefix, eventType)
	if err := b.client.XAdd(b.ctx, &redis.XAddArgs{Stream: dlq, Values: values}).Err(); err != nil {
		b.logger.Error("failed to push to DLQ", "error", err, "stream", dlq)
		return
	}
	b.logger.Warn("event pushed to DLQ", "stream", dlq)
}

// Close stops the consumers and closes the client.
func (b *RedisEventBus) Close() error {
	b.cancel()
	b.wg.Wait()
	return b.client.Close()
}

var _ eventbus.Bus = (*RedisEventBus)(nil)
