package results

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"
)

// Record is the tuple handed to the persistence collaborator when an
// exercise attempt ends. The store's format is its own business.
type Record struct {
	ID        string    `json:"id"`
	Exercise  string    `json:"exercise"`
	Level     int       `json:"level"`
	Completed bool      `json:"completed"`
	Score     float64   `json:"score"`
	Timestamp time.Time `json:"timestamp"`
}

// NewRecord stamps a record with identity and time.
func NewRecord(exercise string, level int, completed bool, score float64) Record {
	return Record{
		ID:        uuid.NewString(),
		Exercise:  exercise,
		Level:     level,
		Completed: completed,
		Score:     score,
		Timestamp: time.Now(),
	}
}

// Sink is the persistence boundary. The core tolerates a missing sink by
// degrading to silent operation; implementations must not panic.
type Sink interface {
	Save(ctx context.Context, rec Record) error
}

// NullSink discards every record.
type NullSink struct{}

func (NullSink) Save(ctx context.Context, rec Record) error { return nil }

// LogSink writes records to the logger; useful without a store attached.
type LogSink struct {
	Logger *log.Logger
}

func (s LogSink) Save(ctx context.Context, rec Record) error {
	logger := s.Logger
	if logger == nil {
		logger = log.Default()
	}
	logger.Printf("[Results] %s level=%d completed=%t score=%.2f", rec.Exercise, rec.Level, rec.Completed, rec.Score)
	return nil
}
