package live

import (
	"context"
	"strconv"

	"github.com/labstack/gommon/log"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/table-service/internal/model"
)

// DefaultBridgeChannel is the pub/sub channel used between API instances.
const DefaultBridgeChannel = "table_service:live"

// RedisBridge spreads nudges across API instances.  Notify nudges the
// local Hub and publishes the restaurant id; Run relays every published id
// into the local Hub.  The relayed copy of a local nudge coalesces with it.
type RedisBridge struct {
	rdb     *redis.Client
	channel string
	hub     *Hub
	log     *log.Logger
}

// NewRedisBridge returns a bridge between rdb and hub.
func NewRedisBridge(rdb *redis.Client, channel string, hub *Hub, logger *log.Logger) *RedisBridge {
	if channel == "" {
		channel = DefaultBridgeChannel
	}
	if logger == nil {
		logger = log.New("live-bridge")
	}
	return &RedisBridge{rdb: rdb, channel: channel, hub: hub, log: logger}
}

// Notify nudges local subscribers and publishes the event's restaurant to
// other instances.  A publish failure is logged and dropped; remote views
// catch up on their next poll.
func (b *RedisBridge) Notify(ctx context.Context, ev model.Event) {
	b.hub.Nudge(ev.RestaurantID)
	id := strconv.FormatUint(ev.RestaurantID, 10)
	if err := b.rdb.Publish(ctx, b.channel, id).Err(); err != nil {
		b.log.Warnj(log.JSON{"action": "live.bridge.publish", "restaurant_id": ev.RestaurantID, "error": err.Error()})
	}
}

// Run relays published nudges into the hub until ctx is done.  It returns
// an error only if the subscription cannot be established.
func (b *RedisBridge) Run(ctx context.Context) error {
	sub := b.rdb.Subscribe(ctx, b.channel)
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		return err
	}
	msgs := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			id, err := strconv.ParseUint(msg.Payload, 10, 64)
			if err != nil {
				b.log.Warnj(log.JSON{"action": "live.bridge.receive", "payload": msg.Payload})
				continue
			}
			b.hub.Nudge(id)
		}
	}
}
