package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	f.msgs = append(f.msgs, msgs...)
	return f.err
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func TestKafkaPublisher_Publish(t *testing.T) {
	w := &fakeWriter{}
	p := NewKafkaPublisherWithWriter(w)

	evt := ReportGenerated{PatientID: "p1", FileName: "p1_Report.pdf", Link: "https://example.com/p1_Report.pdf", ReportedOn: "05/03/2025 10:30 AM"}
	if err := p.PublishReportGenerated(context.Background(), evt); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(w.msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(w.msgs))
	}
	msg := w.msgs[0]
	if string(msg.Key) != "p1" {
		t.Errorf("expected patient id as key, got %q", msg.Key)
	}
	var got ReportGenerated
	if err := json.Unmarshal(msg.Value, &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.FileName != "p1_Report.pdf" || got.EmittedAt.IsZero() {
		t.Errorf("unexpected event %+v", got)
	}

	p.Close()
	if !w.closed {
		t.Error("expected writer closed")
	}
}

func TestKafkaPublisher_Error(t *testing.T) {
	p := NewKafkaPublisherWithWriter(&fakeWriter{err: errors.New("broker down")})
	if err := p.PublishReportGenerated(context.Background(), ReportGenerated{PatientID: "p1"}); err == nil {
		t.Error("expected error")
	}
}

func TestRecorderAndNop(t *testing.T) {
	var r Recorder
	r.PublishReportGenerated(context.Background(), ReportGenerated{PatientID: "p1"})
	if len(r.Events()) != 1 {
		t.Error("expected recorded event")
	}
	if err := (NopPublisher{}).PublishReportGenerated(context.Background(), ReportGenerated{}); err != nil {
		t.Error("expected nil from nop publisher")
	}
}
