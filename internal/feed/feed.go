// Package feed delivers row-change events for the messages table over
// Redis Pub/Sub. The server publishes a change after every accepted
// write; live inbox sessions subscribe and feed the payloads into their
// reconciliation pipelines.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/redis/go-redis/v9"

	"bebusy.app/inbox/internal/inbox"
)

// Feed is one Pub/Sub channel carrying message row changes.
type Feed struct {
	client  *redis.Client
	channel string
	logger  *slog.Logger
}

func New(client *redis.Client, channel string, logger *slog.Logger) *Feed {
	return &Feed{client: client, channel: channel, logger: logger}
}

// PublishChange broadcasts one row change to every subscriber. The feed
// is best-effort: a publish failure is the caller's to log, readers
// recover by reloading.
func (f *Feed) PublishChange(ctx context.Context, ev inbox.RawEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshaling change event: %w", err)
	}
	if err := f.client.Publish(ctx, f.channel, payload).Err(); err != nil {
		return fmt.Errorf("publishing change event: %w", err)
	}
	return nil
}

// Subscribe starts a reader goroutine invoking onEvent for each decoded
// change. The returned func cancels the subscription and waits for the
// reader to exit; it is safe to call more than once.
func (f *Feed) Subscribe(ctx context.Context, onEvent func(inbox.RawEvent)) (func(), error) {
	sub := f.client.Subscribe(ctx, f.channel)

	// Confirm the subscription before returning, so no change published
	// after Subscribe returns can be missed.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("subscribing to channel %s: %w", f.channel, err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for msg := range sub.Channel() {
			var ev inbox.RawEvent
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				f.logger.WarnContext(ctx, "dropping undecodable feed payload",
					"channel", f.channel, "error", err)
				continue
			}
			onEvent(ev)
		}
	}()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			_ = sub.Close()
			<-done
		})
	}
	return cancel, nil
}
