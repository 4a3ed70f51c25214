package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/yizeng/gab/gin/gorm/attendance/internal/domain"
)

type Producer struct {
	writer *kafka.Writer
}

// NewProducer initializes a writer for attendance-recorded messages. Writes
// are bounded so a down broker gives up well inside the caller's timeout.
func NewProducer(brokers []string, topic string) *Producer {
	return &Producer{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			BatchTimeout: 50 * time.Millisecond,
			MaxAttempts:  3,
			WriteTimeout: 5 * time.Second,
			RequiredAcks: kafka.RequireOne,
		},
	}
}

type attendanceRecorded struct {
	ID         string    `json:"id"`
	EventID    string    `json:"event_id"`
	SubjectID  string    `json:"subject_id"`
	Method     string    `json:"method"`
	RecordedAt time.Time `json:"recorded_at"`
}

// recordedMessage is keyed by event id so a consumer sees an event's
// records in order.
func recordedMessage(a domain.Attendance) (kafka.Message, error) {
	value, err := json.Marshal(attendanceRecorded{
		ID:         a.ID.String(),
		EventID:    a.EventID.String(),
		SubjectID:  a.SubjectID,
		Method:     string(a.Method),
		RecordedAt: a.RecordedAt.UTC(),
	})
	if err != nil {
		return kafka.Message{}, fmt.Errorf("json.Marshal -> %w", err)
	}

	return kafka.Message{
		Key:   []byte(a.EventID.String()),
		Value: value,
	}, nil
}

// PublishRecorded emits one message for a newly committed attendance record.
func (p *Producer) PublishRecorded(ctx context.Context, a domain.Attendance) error {
	msg, err := recordedMessage(a)
	if err != nil {
		return fmt.Errorf("recordedMessage -> %w", err)
	}

	if err = p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("p.writer.WriteMessages -> %w", err)
	}

	return nil
}

func (p *Producer) Close() error {
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("p.writer.Close -> %w", err)
	}

	return nil
}
