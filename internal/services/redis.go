package services

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

var RedisClient *redis.Client

// Channel published on every driver/assignment mutation; the reconciler
// consumes it as its change trigger.
const assignmentUpdatesChannel = "dispatch:assignment:updates"

// Channel carrying aggregate status changes for live consumers
const statusUpdatesChannel = "dispatch:status:updates"

// InitRedis initializes the Redis client
func InitRedis() error {
	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		redisURL = "redis://redis:6379" // Default Redis address for Docker
	}

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return fmt.Errorf("failed to parse Redis URL: %v", err)
	}

	RedisClient = redis.NewClient(opt)

	// Test the connection
	ctx := context.Background()
	_, err = RedisClient.Ping(ctx).Result()
	if err != nil {
		return fmt.Errorf("failed to connect to Redis: %v", err)
	}

	return nil
}

// SetDriverAvailability stores driver availability status
func SetDriverAvailability(ctx context.Context, driverID uint, isAvailable bool) error {
	key := fmt.Sprintf("driver:availability:%d", driverID)
	value := "true"
	if !isAvailable {
		value = "false"
	}
	return RedisClient.Set(ctx, key, value, time.Hour).Err()
}

// GetDriverAvailability retrieves driver availability status
func GetDriverAvailability(ctx context.Context, driverID uint) (bool, error) {
	key := fmt.Sprintf("driver:availability:%d", driverID)
	result, err := RedisClient.Get(ctx, key).Result()
	if err != nil {
		return false, err
	}
	return result == "true", nil
}

// GetDispatchStatus reads the cached aggregate status for a dispatch
func GetDispatchStatus(ctx context.Context, dispatchID uint) (string, error) {
	key := fmt.Sprintf("dispatch:status:%d", dispatchID)
	return RedisClient.Get(ctx, key).Result()
}

// PublishAssignmentUpdate announces that a dispatch's driver records changed
// so the trigger loop reconciles it. Fire-and-forget; the periodic sweep
// covers a lost message.
func PublishAssignmentUpdate(ctx context.Context, dispatchID uint) {
	if RedisClient == nil {
		return
	}
	if err := RedisClient.Publish(ctx, assignmentUpdatesChannel, strconv.FormatUint(uint64(dispatchID), 10)).Err(); err != nil {
		log.Printf("Failed to publish assignment update for dispatch %d: %v", dispatchID, err)
	}
}

// SubscribeAssignmentUpdates subscribes to the assignment-update channel and
// returns a channel of dispatch IDs. The returned channel closes when ctx is
// cancelled.
func SubscribeAssignmentUpdates(ctx context.Context) <-chan uint {
	out := make(chan uint, 64)
	sub := RedisClient.Subscribe(ctx, assignmentUpdatesChannel)

	go func() {
		defer close(out)
		defer sub.Close()

		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-sub.Channel():
				if !ok {
					return
				}
				id, err := strconv.ParseUint(msg.Payload, 10, 32)
				if err != nil {
					log.Printf("Ignoring malformed assignment update payload %q", msg.Payload)
					continue
				}
				out <- uint(id)
			}
		}
	}()

	return out
}

// RedisEvents publishes aggregate status changes to the cache and the status
// channel. Implements the reconciler's Events collaborator.
type RedisEvents struct{}

// PublishDispatchStatus caches the new status and announces it on pub/sub
func (RedisEvents) PublishDispatchStatus(ctx context.Context, dispatchID uint, status string) error {
	if RedisClient == nil {
		return nil
	}

	key := fmt.Sprintf("dispatch:status:%d", dispatchID)
	if err := RedisClient.Set(ctx, key, status, time.Hour).Err(); err != nil {
		return err
	}

	payload := fmt.Sprintf("%d:%s", dispatchID, status)
	return RedisClient.Publish(ctx, statusUpdatesChannel, payload).Err()
}
