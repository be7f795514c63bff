package persist

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"realtime-canvas/internal/model"
)

// Feed is the durable change-notification channel for board objects, backed
// by Redis pub/sub. Delivery is at-least-once, best-effort: subscribers that
// were disconnected must resync from the relational store.
type Feed struct {
	client *redis.Client
}

// NewFeed connects a change feed client.
func NewFeed(addr, password string, db int) (*Feed, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	log.Printf("[Feed] Connected to %s", addr)
	return &Feed{client: client}, nil
}

func feedChannel(boardID string) string {
	return "board:" + boardID + ":changes"
}

// Publish emits a change notification for one board object.
func (f *Feed) Publish(ctx context.Context, n model.ChangeNotification) error {
	data, err := json.Marshal(n)
	if err != nil {
		return err
	}
	return f.client.Publish(ctx, feedChannel(n.BoardID), data).Err()
}

// Subscribe delivers change notifications for one board until ctx is done.
// Malformed payloads are dropped.
func (f *Feed) Subscribe(ctx context.Context, boardID string) <-chan model.ChangeNotification {
	sub := f.client.Subscribe(ctx, feedChannel(boardID))
	out := make(chan model.ChangeNotification, 64)

	go func() {
		defer close(out)
		defer sub.Close()

		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var n model.ChangeNotification
				if err := json.Unmarshal([]byte(msg.Payload), &n); err != nil {
					log.Printf("[Feed] Dropping malformed notification: %v", err)
					continue
				}
				select {
				case out <- n:
				default:
					log.Printf("[Feed] Notification buffer full, dropping %s for %s", n.EventType, n.ObjectID)
				}
			}
		}
	}()

	return out
}

// Close releases the underlying Redis connection.
func (f *Feed) Close() error {
	return f.client.Close()
}
