// Package event publishes usage events to Kafka when brokers are
// configured. Publishing is best-effort: a broker outage degrades to a
// logged warning, never a failed request.
package event

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// AnalysisCompleted is the payload for an analysis usage event
type AnalysisCompleted struct {
	Symbol  string `json:"symbol"`
	UserID  int    `json:"user_id"`
	Premium bool   `json:"premium"`
	At      string `json:"at"`
}

// BacktestCompleted is the payload for a backtest usage event
type BacktestCompleted struct {
	Symbol         string  `json:"symbol"`
	UserID         int     `json:"user_id"`
	Strategy       string  `json:"strategy"`
	NumTrades      int     `json:"num_trades"`
	TotalReturnPct float64 `json:"total_return_pct"`
	At             string  `json:"at"`
}

// Producer writes usage events to Kafka topics
type Producer struct {
	mu       sync.Mutex
	writers  map[string]*kafka.Writer
	brokers  []string
	clientID string
	logger   *zap.Logger
}

// NewProducer creates a new usage-event producer
func NewProducer(brokers []string, clientID string, logger *zap.Logger) *Producer {
	return &Producer{
		writers:  make(map[string]*kafka.Writer),
		brokers:  brokers,
		clientID: clientID,
		logger:   logger,
	}
}

// getWriter returns the writer for a topic, creating it on first use
func (p *Producer) getWriter(topic string) *kafka.Writer {
	p.mu.Lock()
	defer p.mu.Unlock()

	if writer, exists := p.writers[topic]; exists {
		return writer
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(p.brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		BatchSize:    100,
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
		Transport: &kafka.Transport{
			ClientID: p.clientID,
		},
	}

	p.writers[topic] = writer
	return writer
}

// Publish sends one event to a topic, keyed for partition affinity
func (p *Producer) Publish(ctx context.Context, topic, key string, payload interface{}) error {
	value, err := json.Marshal(payload)
	if err != nil {
		p.logger.Error("Failed to marshal event",
			zap.String("topic", topic),
			zap.Error(err))
		return err
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: value,
		Time:  time.Now(),
	}

	if err := p.getWriter(topic).WriteMessages(ctx, msg); err != nil {
		p.logger.Warn("Failed to publish event",
			zap.String("topic", topic),
			zap.String("key", key),
			zap.Error(err))
		return err
	}

	p.logger.Debug("Event published",
		zap.String("topic", topic),
		zap.String("key", key))

	return nil
}

// Close closes all topic writers
func (p *Producer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for topic, writer := range p.writers {
		if err := writer.Close(); err != nil {
			p.logger.Error("Failed to close event writer",
				zap.String("topic", topic),
				zap.Error(err))
		}
	}
	return nil
}
