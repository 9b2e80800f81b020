// Package journal archives settled bills outside the server process.
//
// The server itself forgets a bill as soon as it has been sent to the paying
// terminal. Sinks in this package keep a copy for accounting: PostgresSink
// stores it, AMQPSink publishes it for other services.
package journal

import (
	"context"
	"time"

	"tablepos/internal/pkg/billing"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var logger logrus.FieldLogger = logrus.StandardLogger()

// Sink archives a bill. It satisfies billing.Archiver.
type Sink interface {
	Archive(ctx context.Context, bill billing.Bill) error
	Close() error
}

// Discard drops every bill.
type Discard struct{}

func (Discard) Archive(context.Context, billing.Bill) error { return nil }
func (Discard) Close() error                                { return nil }

// Multi hands a bill to every sink, even if one of them fails.
type Multi []Sink

func (m Multi) Archive(ctx context.Context, bill billing.Bill) error {
	var first error
	for _, s := range m {
		if err := s.Archive(ctx, bill); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (m Multi) Close() error {
	var first error
	for _, s := range m {
		if err := s.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Message is the JSON form of a settled bill.
type Message struct {
	ID        string        `json:"id"`
	Table     int           `json:"table"`
	Lines     []MessageLine `json:"lines"`
	Total     int64         `json:"total"`
	SettledAt time.Time     `json:"settled_at"`
}

// MessageLine is one line of a Message.
type MessageLine struct {
	ItemID    int    `json:"item_id"`
	Name      string `json:"name"`
	Price     int64  `json:"price"`
	Quantity  int    `json:"quantity"`
	LineTotal int64  `json:"line_total"`
}

// NewMessage converts a bill to its JSON form.
func NewMessage(bill billing.Bill) Message {
	msg := Message{
		ID:        bill.ID.String(),
		Table:     bill.Table,
		Lines:     make([]MessageLine, 0, len(bill.Lines)),
		Total:     bill.Total,
		SettledAt: bill.SettledAt.UTC(),
	}
	for _, line := range bill.Lines {
		msg.Lines = append(msg.Lines, MessageLine{
			ItemID:    line.ItemID,
			Name:      line.Name,
			Price:     line.Price,
			Quantity:  line.Quantity,
			LineTotal: line.Total(),
		})
	}
	return msg
}

// withRetry calls fn up to attempts times, waiting longer after each failure.
func withRetry(ctx context.Context, what string, attempts int, fn func() error) error {
	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(); err == nil {
			return nil
		}
		if i == attempts-1 {
			break
		}
		wait := time.Duration(i+1) * 2 * time.Second
		logger.WithError(err).WithField("retry", wait).Warnf("%s failed", what)
		select {
		case <-ctx.Done():
			return errors.Wrap(ctx.Err(), what+" cancelled")
		case <-time.After(wait):
		}
	}
	return errors.Wrapf(err, "%s failed after %d attempts", what, attempts)
}
