// Package kafka publishes computed risk readings to a topic for downstream
// consumers (dashboards, alerting). Publishing is optional and runs on the
// deferred persistence path, never blocking a caller.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/respiratory-risk-service/internal/domain"
)

// Writer produces risk reading events to a Kafka topic.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the risk topic.
func NewWriter(brokers []string, topic string, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// Publish serializes an assessment into a risk event and writes it to the
// topic. The message key groups events by location so per-location ordering
// holds within a partition.
func (w *Writer) Publish(ctx context.Context, a domain.Assessment) error {
	msg, err := serializeToMessage(a)
	if err != nil {
		return err
	}
	return w.writer.WriteMessages(ctx, msg)
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// riskEvent is the wire shape published to the topic.
type riskEvent struct {
	Location   domain.Coordinate        `json:"location"`
	MeasuredAt time.Time                `json:"measured_at"`
	RiskIndex  float64                  `json:"risk_index"`
	RiskLabel  domain.RiskLabel         `json:"risk_label"`
	Norm       domain.NormalizedFactors `json:"norm"`
}

// serializeToMessage marshals an assessment into a Kafka message.
func serializeToMessage(a domain.Assessment) (kafkago.Message, error) {
	event := riskEvent{
		Location:   a.Location,
		MeasuredAt: a.MeasuredAt(),
		RiskIndex:  a.RiskIndex,
		RiskLabel:  a.RiskLabel,
		Norm:       a.Norm,
	}
	data, err := json.Marshal(event)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize risk event: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(fmt.Sprintf("%.4f,%.4f", a.Location.Latitude, a.Location.Longitude)),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "risk_label", Value: []byte(a.RiskLabel)},
			{Key: "measured_at", Value: []byte(event.MeasuredAt.Format(time.RFC3339))},
		},
	}, nil
}
