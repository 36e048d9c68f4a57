package queue

import (
	"context"
	"fmt"

	"github.com/labstack/gommon/log"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/table-service/internal/model"
)

// channel is the part of *amqp.Channel the publisher needs.
type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Publisher forwards lifecycle events to EventsQueue.  Notify only
// enqueues; Run does the network I/O, so a slow or absent broker never
// delays a request.  Events that do not fit in the buffer are dropped
// with a warning.
type Publisher struct {
	events chan model.Event
	open   func() (channel, error)
	log    *log.Logger
}

// NewPublisher returns a publisher for the broker at url with room for
// buffer pending events.
func NewPublisher(url string, buffer int, logger *log.Logger) *Publisher {
	if buffer < 1 {
		buffer = 256
	}
	if logger == nil {
		logger = log.New("queue")
	}
	return &Publisher{
		events: make(chan model.Event, buffer),
		open:   func() (channel, error) { return dial(url) },
		log:    logger,
	}
}

// Notify enqueues ev for publishing.
func (p *Publisher) Notify(_ context.Context, ev model.Event) {
	select {
	case p.events <- ev:
	default:
		p.log.Warnj(log.JSON{"action": "queue.publish", "kind": ev.Kind, "dropped": true})
	}
}

// Run publishes queued events until ctx is done.  A failed publish drops
// the event and the channel, which is reopened for the next one.
func (p *Publisher) Run(ctx context.Context) {
	var ch channel
	defer func() {
		if ch != nil {
			_ = ch.Close()
		}
	}()
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-p.events:
			if ch == nil {
				var err error
				if ch, err = p.open(); err != nil {
					p.log.Errorj(log.JSON{"action": "queue.dial", "error": err.Error()})
					ch = nil
					continue
				}
			}
			if err := publish(ctx, ch, ev); err != nil {
				p.log.Errorj(log.JSON{"action": "queue.publish", "kind": ev.Kind, "error": err.Error()})
				_ = ch.Close()
				ch = nil
			}
		}
	}
}

func publish(ctx context.Context, ch channel, ev model.Event) error {
	msg, err := encode(ev)
	if err != nil {
		return err
	}
	return ch.PublishWithContext(ctx, "", EventsQueue, false, false, msg)
}

// amqpChannel closes its connection together with the channel.
type amqpChannel struct {
	*amqp.Channel
	conn *amqp.Connection
}

func (c amqpChannel) Close() error {
	_ = c.Channel.Close()
	return c.conn.Close()
}

func dial(url string) (channel, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial broker: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("channel open: %w", err)
	}
	if _, err := ch.QueueDeclare(EventsQueue, true, false, false, false, nil); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("queue declare: %w", err)
	}
	return amqpChannel{Channel: ch, conn: conn}, nil
}
