package eventbus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/amirasaad/presale/pkg/config"
	"github.com/amirasaad/presale/pkg/domain/events"
	"github.com/amirasaad/presale/pkg/eventbus"
	"github.com/segmentio/kafka-go"
)

// KafkaEventBus implements eventbus.Bus on Kafka, one topic per event type.
type KafkaEventBus struct {
	brokers     []string
	groupID     string
	topicPrefix string
	writer      *kafka.Writer
	dialer      *kafka.Dialer

	handlers    map[string][]eventbus.HandlerFunc
	handlersMtx sync.RWMutex
	readers     map[string]*kafka.Reader
	readersMtx  sync.Mutex

	logger *slog.Logger
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewWithKafka creates a Kafka-backed event bus and checks connectivity.
func NewWithKafka(cfg *config.Kafka, logger *slog.Logger) (*KafkaEventBus, error) {
	if cfg == nil {
		return nil, fmt.Errorf("kafka event bus: config is required")
	}
	brokers := parseBrokers(cfg.Brokers)
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka event bus: brokers are required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	groupID := cfg.GroupID
	if groupID == "" {
		groupID = "presale"
	}
	topicPrefix := strings.TrimSpace(cfg.Topic)
	if topicPrefix == "" {
		topicPrefix = "presale.events"
	}

	dialer := &kafka.Dialer{Timeout: 5 * time.Second}
	ctx, cancel := context.WithCancel(context.Background())
	bus := &KafkaEventBus{
		brokers:     brokers,
		groupID:     groupID,
		topicPrefix: topicPrefix,
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			AllowAutoTopicCreation: true,
			RequiredAcks:           kafka.RequireOne,
			Balancer:               &kafka.Hash{},
		},
		dialer:   dialer,
		handlers: make(map[string][]eventbus.HandlerFunc),
		readers:  make(map[string]*kafka.Reader),
		logger:   logger.With("bus", "kafka"),
		ctx:      ctx,
		cancel:   cancel,
	}

	conn, err := dialer.DialContext(ctx, "tcp", brokers[0])
	if err != nil {
		_ = bus.Close()
		return nil, fmt.Errorf("kafka event bus: connection failed: %w", err)
	}
	_ = conn.Close()

	bus.logger.Info("🚀 Kafka event bus initialized", "group_id", groupID, "brokers", brokers)
	return bus, nil
}

// Emit publishes an event to its Kafka topic.
func (b *KafkaEventBus) Emit(ctx context.Context, event events.Event) error {
	envBytes, err := encodeEnvelope(event)
	if err != nil {
		return fmt.Errorf("kafka event bus: %w", err)
	}
	msg := kafka.Message{
		Topic: topicNameFor(b.topicPrefix, event.Type()),
		Key:   []byte(event.Type()),
		Value: envBytes,
		Time:  time.Now(),
	}
	if err := b.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka event bus: publish failed: %w", err)
	}
	return nil
}

// Register registers an event handler and starts a reader for its topic.
func (b *KafkaEventBus) Register(eventType string, handler eventbus.HandlerFunc) {
	b.handlersMtx.Lock()
	b.handlers[eventType] = append(b.handlers[eventType], handler)
	b.handlersMtx.Unlock()

	b.readersMtx.Lock()
	defer b.readersMtx.Unlock()
	if _, exists := b.readers[eventType]; exists {
		return
	}
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     b.brokers,
		GroupID:     b.groupID,
		Topic:       topicNameFor(b.topicPrefix, eventType),
		StartOffset: kafka.FirstOffset,
		MinBytes:    1,
		MaxBytes:    10e6,
		MaxWait:     time.Second,
		Dialer:      b.dialer,
	})
	b.readers[eventType] = reader

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		b.consumeLoop(eventType, reader)
	}()
}

func (b *KafkaEventBus) consumeLoop(eventType string, reader *kafka.Reader) {
	for {
		msg, err := reader.FetchMessage(b.ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || b.ctx.Err() != nil {
				return
			}
			b.logger.Error("kafka consume error", "error", err, "event_type", eventType)
			time.Sleep(500 * time.Millisecond)
			continue
		}

		b.process(eventType, msg)
		if err := reader.CommitMessages(b.ctx, msg); err != nil {
			b.logger.Error("kafka commit error", "error", err, "topic", msg.Topic, "offset", msg.Offset)
		}
	}
}

func (b *KafkaEventBus) process(eventType string, msg kafka.Message) {
	evt, err := decodeEnvelope(msg.Value)
	if err != nil {
		b.logger.Error("failed to decode event", "error", err, "topic", msg.Topic, "offset", msg.Offset)
		return
	}

	b.handlersMtx.RLock()
	handlers := append([]eventbus.HandlerFunc{}, b.handlers[eventType]...)
	b.handlersMtx.RUnlock()

	failed := false
	for _, handler := range handlers {
		func() {
			defer func() {
				if r := recover(); r != nil {
					b.logger.Error("handler panic recovered", "panic", r, "event_type", eventType)
					failed = true
				}
			}()
			if err := handler(b.ctx, evt); err != nil {
				b.logger.Error("handler error", "error", err, "event_type", eventType)
				failed = true
			}
		}()
	}
	if failed {
		b.publishToDLQ(eventType, msg.Value)
	}
}

func (b *KafkaEventBus) publishToDLQ(eventType string, raw []byte) {
	topic := topicNameFor(b.topicPrefix+".dlq", eventType)
	err := b.writer.WriteMessages(b.ctx, kafka.Message{
		Topic: topic,
		Key:   []byte(eventType),
		Value: raw,
		Time:  time.Now(),
	})
	if err != nil {
		b.logger.Error("kafka dlq publish failed", "error", err, "topic", topic)
		return
	}
	b.logger.Warn("message sent to DLQ", "event_type", eventType, "dlq_topic", topic)
}

// Close stops background readers and closes the writer.
func (b *KafkaEventBus) Close() error {
	b.cancel()
	b.readersMtx.Lock()
	for _, r := range b.readers {
		_ = r.Close()
	}
	b.readersMtx.Unlock()
	b.wg.Wait()
	return b.writer.Close()
}

func parseBrokers(brokers string) []string {
	var out []string
	for _, b := range strings.Split(brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

var _ eventbus.Bus = (*KafkaEventBus)(nil)
