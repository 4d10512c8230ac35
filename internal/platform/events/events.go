// Package events announces finished reports to downstream consumers.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
)

// ReportGenerated is emitted once per successful generation.
type ReportGenerated struct {
	PatientID  string    `json:"patient_id"`
	FileName   string    `json:"file_name"`
	Link       string    `json:"link"`
	ReportedOn string    `json:"reported_on"`
	EmittedAt  time.Time `json:"emitted_at"`
}

type Publisher interface {
	PublishReportGenerated(ctx context.Context, evt ReportGenerated) error
	Close() error
}

// NopPublisher discards events. It is used when no brokers are configured.
type NopPublisher struct{}

func (NopPublisher) PublishReportGenerated(context.Context, ReportGenerated) error { return nil }
func (NopPublisher) Close() error                                                  { return nil }

// MessageWriter is the part of kafka.Writer the publisher uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes events as JSON keyed by patient id, so every report
// for one patient lands on the same partition.
type KafkaPublisher struct {
	w MessageWriter
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{w: &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
		WriteTimeout: 10 * time.Second,
	}}
}

// NewKafkaPublisherWithWriter wraps an existing writer.
func NewKafkaPublisherWithWriter(w MessageWriter) *KafkaPublisher {
	return &KafkaPublisher{w: w}
}

func (p *KafkaPublisher) PublishReportGenerated(ctx context.Context, evt ReportGenerated) error {
	if evt.EmittedAt.IsZero() {
		evt.EmittedAt = time.Now().UTC()
	}
	value, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	msg := kafka.Message{
		Key:   []byte(evt.PatientID),
		Value: value,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte("report.generated")},
		},
	}
	if err := p.w.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write report event: %w", err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error { return p.w.Close() }

// Recorder keeps events in memory for tests and local runs.
type Recorder struct {
	mu     sync.Mutex
	events []ReportGenerated
}

func (r *Recorder) PublishReportGenerated(_ context.Context, evt ReportGenerated) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
	return nil
}

func (r *Recorder) Close() error { return nil }

func (r *Recorder) Events() []ReportGenerated {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]ReportGenerated(nil), r.events...)
}
