package ingest

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"example.com/wearsync/internal/domain"
	"example.com/wearsync/internal/transfer"
)

// Kafka topics mirrored by the companion for downstream consumers.
const (
	TopicLiveTelemetry   = "telemetry_live"
	TopicSessionReceived = "session_received"
)

// SessionReceived is the event emitted after a bulk payload is durably
// stored.
type SessionReceived struct {
	SessionID       int64     `json:"session_id"`
	CloudID         string    `json:"cloud_id"`
	SourceSessionID int64     `json:"source_session_id"`
	UserID          string    `json:"user_id"`
	DataPointCount  int       `json:"data_point_count"`
	ReceivedAt      time.Time `json:"received_at"`
}

type messageWriter interface {
	WriteMessages(ctx context.Context, topic string, msgs ...kafka.Message) error
}

// Mirror republishes ingestion outcomes onto Kafka so display and analytics
// consumers never touch the companion store directly.
type Mirror struct {
	writer messageWriter
}

// NewMirror constructs a Mirror over the given writer.
func NewMirror(writer messageWriter) *Mirror {
	return &Mirror{writer: writer}
}

// PublishLive mirrors one decoded live sample.
func (m *Mirror) PublishLive(ctx context.Context, sample transfer.LiveSample) error {
	data, err := json.Marshal(sample)
	if err != nil {
		return err
	}
	return m.writer.WriteMessages(ctx, TopicLiveTelemetry, kafka.Message{
		Value: data,
		Time:  time.Now().UTC(),
	})
}

// PublishSessionReceived mirrors a completed bulk ingestion.
func (m *Mirror) PublishSessionReceived(ctx context.Context, session domain.CompanionSession) error {
	data, err := json.Marshal(SessionReceived{
		SessionID:       session.ID,
		CloudID:         session.CloudID,
		SourceSessionID: session.SourceSessionID,
		UserID:          session.UserID,
		DataPointCount:  session.DataPointCount,
		ReceivedAt:      session.ReceivedAt,
	})
	if err != nil {
		return err
	}
	return m.writer.WriteMessages(ctx, TopicSessionReceived, kafka.Message{
		Key:   []byte(session.CloudID),
		Value: data,
		Time:  time.Now().UTC(),
	})
}

// KafkaWriter lazily manages one kafka.Writer per topic.
type KafkaWriter struct {
	brokers []string
	mu      sync.Mutex
	writers map[string]*kafka.Writer
}

// NewKafkaWriter creates a KafkaWriter.
func NewKafkaWriter(brokers []string) *KafkaWriter {
	return &KafkaWriter{
		brokers: brokers,
		writers: make(map[string]*kafka.Writer),
	}
}

// WriteMessages writes messages to the given topic, creating a writer if
// necessary.
func (w *KafkaWriter) WriteMessages(ctx context.Context, topic string, msgs ...kafka.Message) error {
	return w.writerForTopic(topic).WriteMessages(ctx, msgs...)
}

func (w *KafkaWriter) writerForTopic(topic string) *kafka.Writer {
	w.mu.Lock()
	defer w.mu.Unlock()

	if writer, ok := w.writers[topic]; ok {
		return writer
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(w.brokers...),
		Topic:        topic,
		RequiredAcks: kafka.RequireOne,
		Compression:  kafka.Snappy,
		Async:        false,
	}
	w.writers[topic] = writer
	return writer
}

// Close releases all writers.
func (w *KafkaWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	var firstErr error
	for topic, writer := range w.writers {
		if err := writer.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(w.writers, topic)
	}
	return firstErr
}
