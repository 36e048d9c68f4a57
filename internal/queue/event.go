// Package queue carries lifecycle events over RabbitMQ: a buffered
// publisher fed by the services and a consumer that appends each event to
// logs/activity.log.
package queue

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/table-service/internal/model"
)

// EventsQueue is the durable queue every lifecycle event is published to.
const EventsQueue = "table_service.events"

// encode wraps ev in a persistent JSON message.
func encode(ev model.Event) (amqp.Publishing, error) {
	body, err := json.Marshal(ev)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("marshal event: %w", err)
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    ev.At,
		Type:         ev.Kind,
		Body:         body,
	}, nil
}

// decode parses a message body back into an event.
func decode(body []byte) (model.Event, error) {
	var ev model.Event
	if err := json.Unmarshal(body, &ev); err != nil {
		return ev, fmt.Errorf("unmarshal: %w", err)
	}
	if ev.Kind == "" {
		return ev, fmt.Errorf("event without kind")
	}
	return ev, nil
}

// activityLine renders ev as one line of the activity log.  Zero ids are
// omitted.
func activityLine(ev model.Event) string {
	parts := []string{fmt.Sprintf("[%s] %s", ev.At.UTC().Format(time.RFC3339Nano), ev.Kind)}
	add := func(k string, v uint64) {
		if v != 0 {
			parts = append(parts, fmt.Sprintf("%s=%d", k, v))
		}
	}
	add("restaurant_id", ev.RestaurantID)
	add("table_id", ev.TableID)
	add("order_id", ev.OrderID)
	add("call_id", ev.CallID)
	if ev.Status != "" {
		parts = append(parts, "status="+ev.Status)
	}
	add("actor_id", ev.ActorID)
	return strings.Join(parts, " | ") + "\n"
}
