// Package cache publishes per-action history records to Redis for an
// external historian to consume. The client is optional: when Rdb is nil
// every publish is skipped and rooms run fully in memory.
package cache

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Rdb is the shared Redis client. Nil when Redis is not configured;
// callers must nil-check before publishing.
var Rdb *redis.Client

// actionListKey is the list the historian drains.
const actionListKey = "hearts:actions"

// ActionRecord captures one applied room action for the history stream.
type ActionRecord struct {
	RoomID      string                 `json:"roomId"`
	ActionIndex int                    `json:"actionIndex"`
	ActorID     string                 `json:"actorId,omitempty"`
	ActionType  string                 `json:"actionType"`
	Payload     map[string]interface{} `json:"payload,omitempty"`
	Timestamp   int64                  `json:"timestamp"`
}

// InitRedis connects the shared client and verifies the connection with a
// ping. Leaves Rdb nil on failure so the service degrades to no history.
func InitRedis(ctx context.Context, addr string) error {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping %s: %w", addr, err)
	}
	Rdb = client
	return nil
}

// PublishAction pushes one record onto the historian list.
func PublishAction(ctx context.Context, rec ActionRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal action record: %w", err)
	}
	if err := Rdb.LPush(ctx, actionListKey, data).Err(); err != nil {
		return fmt.Errorf("lpush action record: %w", err)
	}
	return nil
}

// Close releases the shared client.
func Close() error {
	if Rdb == nil {
		return nil
	}
	err := Rdb.Close()
	Rdb = nil
	return err
}
