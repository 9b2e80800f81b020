package journal

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"tablepos/internal/pkg/billing"

	"github.com/pkg/errors"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

// BillsExchange is the fanout exchange settled bills are published to.
const BillsExchange = "bills_fanout"

// AMQPSink publishes settled bills as persistent JSON messages.
type AMQPSink struct {
	url string

	mu      sync.Mutex
	conn    *amqp.Connection
	channel *amqp.Channel
}

// NewAMQPSink connects to the broker at url and declares BillsExchange.
func NewAMQPSink(ctx context.Context, url string) (*AMQPSink, error) {
	s := &AMQPSink{url: url}
	if err := withRetry(ctx, "connect broker", 5, s.connect); err != nil {
		return nil, err
	}
	return s, nil
}

// connect must be called with mu held or before the sink is shared.
func (s *AMQPSink) connect() error {
	conn, err := amqp.Dial(s.url)
	if err != nil {
		return errors.Wrap(err, "dial broker failed")
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return errors.Wrap(err, "open channel failed")
	}
	err = ch.ExchangeDeclare(
		BillsExchange, // name
		"fanout",      // type
		true,          // durable
		false,         // auto-deleted
		false,         // internal
		false,         // no-wait
		nil,           // arguments
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return errors.Wrapf(err, "declare %s failed", BillsExchange)
	}
	s.conn, s.channel = conn, ch
	return nil
}

func (s *AMQPSink) closed() bool {
	return s.conn == nil || s.conn.IsClosed() || s.channel == nil || s.channel.IsClosed()
}

// Archive publishes bill, reconnecting once if the broker connection dropped.
func (s *AMQPSink) Archive(ctx context.Context, bill billing.Bill) error {
	body, err := json.Marshal(NewMessage(bill))
	if err != nil {
		return errors.Wrap(err, "marshal bill failed")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed() {
		s.closeLocked()
		if err := s.connect(); err != nil {
			return errors.Wrap(err, "reconnect broker failed")
		}
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	err = s.channel.PublishWithContext(ctx,
		BillsExchange, // exchange
		"",            // routing key, ignored by fanout
		false,         // mandatory
		false,         // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    bill.ID.String(),
			Timestamp:    bill.SettledAt,
			Body:         body,
		},
	)
	if err != nil {
		return errors.Wrap(err, "publish bill failed")
	}
	logger.WithFields(logrus.Fields{
		"bill":  bill.ID.String(),
		"table": bill.Table,
		"size":  len(body),
	}).Debug("bill published")
	return nil
}

// Close closes the channel and the connection.
func (s *AMQPSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closeLocked()
}

func (s *AMQPSink) closeLocked() error {
	if s.channel != nil {
		s.channel.Close()
		s.channel = nil
	}
	var err error
	if s.conn != nil {
		if !s.conn.IsClosed() {
			err = s.conn.Close()
		}
		s.conn = nil
	}
	return err
}
