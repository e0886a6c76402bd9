package notifier

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

const defaultAMQPRetryDelay = 5 * time.Second

var errBridgeClosed = errors.New("amqp bridge closed")

// AMQPDialer opens a fresh broker connection. The bridge calls it again
// whenever the current connection has dropped.
type AMQPDialer func() (*amqp.Connection, error)

// AMQPBridge publishes to a fanout exchange; every instance binds its own
// exclusive queue and relays into its hub.
type AMQPBridge struct {
	dial       AMQPDialer
	exchange   string
	hub        *Hub
	log        logrus.FieldLogger
	retryDelay time.Duration

	mu     sync.Mutex
	conn   *amqp.Connection
	closed bool
}

func NewAMQPBridge(dial AMQPDialer, exchange string, hub *Hub, log logrus.FieldLogger) *AMQPBridge {
	return &AMQPBridge{
		dial:       dial,
		exchange:   exchange,
		hub:        hub,
		log:        log.WithField("bridge", "amqp"),
		retryDelay: defaultAMQPRetryDelay,
	}
}

var _ Publisher = (*AMQPBridge)(nil)

// Connect dials eagerly so startup can fail fast on a bad URL.
func (b *AMQPBridge) Connect() error {
	_, err := b.connection()
	return err
}

// connection returns the live connection, redialing when it has dropped.
func (b *AMQPBridge) connection() (*amqp.Connection, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, errBridgeClosed
	}
	if b.conn != nil && !b.conn.IsClosed() {
		return b.conn, nil
	}
	conn, err := b.dial()
	if err != nil {
		return nil, fmt.Errorf("dial amqp: %w", err)
	}
	b.conn = conn
	return conn, nil
}

// Close stops reconnecting and closes the current connection.
func (b *AMQPBridge) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.closed = true
	if b.conn != nil && !b.conn.IsClosed() {
		return b.conn.Close()
	}
	return nil
}

func (b *AMQPBridge) declare(ch *amqp.Channel) error {
	if err := ch.ExchangeDeclare(b.exchange, "fanout", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange %s: %w", b.exchange, err)
	}
	return nil
}

func (b *AMQPBridge) Publish(ctx context.Context, ev Event) error {
	frame, err := Encode(ev)
	if err != nil {
		return err
	}

	conn, err := b.connection()
	if err != nil {
		return err
	}
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("open channel: %w", err)
	}
	defer ch.Close()

	if err := b.declare(ch); err != nil {
		return err
	}

	err = ch.PublishWithContext(ctx, b.exchange, "", false, false, amqp.Publishing{
		ContentType: "application/json",
		Type:        ev.Name,
		Body:        frame,
	})
	if err != nil {
		return fmt.Errorf("amqp publish %s: %w", ev.Name, err)
	}
	return nil
}

// Run relays deliveries into the local hub until ctx is done or the bridge
// is closed. A dropped connection or channel is redialed after retryDelay.
func (b *AMQPBridge) Run(ctx context.Context) error {
	for {
		err := b.relay(ctx)
		if ctx.Err() != nil || errors.Is(err, errBridgeClosed) {
			return nil
		}

		b.log.WithError(err).WithField("retry_in", b.retryDelay.String()).Warn("amqp relay interrupted, reconnecting")

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(b.retryDelay):
		}
	}
}

// relay runs one consume session: channel, exchange, exclusive queue, bind.
func (b *AMQPBridge) relay(ctx context.Context) error {
	conn, err := b.connection()
	if err != nil {
		return err
	}

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("open channel: %w", err)
	}
	defer ch.Close()

	closed := ch.NotifyClose(make(chan *amqp.Error, 1))

	if err := b.declare(ch); err != nil {
		return err
	}

	q, err := ch.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}
	if err := ch.QueueBind(q.Name, "", b.exchange, false, nil); err != nil {
		return fmt.Errorf("bind queue %s: %w", q.Name, err)
	}

	deliveries, err := ch.Consume(q.Name, "", true, true, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", q.Name, err)
	}
	b.log.WithFields(logrus.Fields{"exchange": b.exchange, "queue": q.Name}).Info("relaying order events")

	for {
		select {
		case <-ctx.Done():
			return nil
		case aerr := <-closed:
			if aerr == nil {
				return errors.New("amqp channel closed")
			}
			return fmt.Errorf("amqp channel closed: %w", aerr)
		case d, ok := <-deliveries:
			if !ok {
				return errors.New("amqp deliveries closed")
			}
			b.hub.Broadcast(d.Body)
		}
	}
}
