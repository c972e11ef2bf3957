package services

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gatherly-app/gatherly-backend/internal/database"
	"github.com/google/uuid"
)

// Chat event types broadcast over Redis and WebSocket.
const (
	EventTypeMessage     = "message"
	EventTypeMessageAck  = "message_ack"
	EventTypeTypingStart = "typing_start"
	EventTypeTypingStop  = "typing_stop"
	EventTypeError       = "error"
)

// ChatEvent is the payload broadcast over Redis and fanned out to WebSocket
// connections. DisplayName is the sender's resolved display name - raw
// usernames never travel through the chat pipeline.
type ChatEvent struct {
	Type        string       `json:"type"`
	GroupID     string       `json:"group_id,omitempty"`
	SenderID    string       `json:"sender_id,omitempty"`
	DisplayName string       `json:"display_name,omitempty"`
	Message     *ChatMessage `json:"message,omitempty"`
	Error       string       `json:"error,omitempty"`
	Timestamp   time.Time    `json:"timestamp,omitempty"`
}

// chatHub tracks per-group subscriber channels on this instance. The Redis
// subscriber feeds it; WebSocket handlers read from it.
type chatHub struct {
	mu   sync.RWMutex
	subs map[string]map[chan ChatEvent]struct{} // group id -> subscriber channels
}

var (
	hub          = &chatHub{subs: make(map[string]map[chan ChatEvent]struct{})}
	redisStarted sync.Once
)

// SubscribeGroup registers a local subscriber for a group's events.
// The returned cancel func must be called on disconnect.
func SubscribeGroup(groupID string) (<-chan ChatEvent, func()) {
	ch := make(chan ChatEvent, 16)

	hub.mu.Lock()
	if hub.subs[groupID] == nil {
		hub.subs[groupID] = make(map[chan ChatEvent]struct{})
	}
	hub.subs[groupID][ch] = struct{}{}
	hub.mu.Unlock()

	cancel := func() {
		hub.mu.Lock()
		if set, ok := hub.subs[groupID]; ok {
			delete(set, ch)
			if len(set) == 0 {
				delete(hub.subs, groupID)
			}
		}
		hub.mu.Unlock()
		close(ch)
	}
	return ch, cancel
}

// fanOut delivers an event to all local subscribers of its group.
// Slow consumers are skipped rather than blocking the subscriber loop.
func fanOut(event ChatEvent) {
	if event.GroupID == "" {
		return
	}

	hub.mu.RLock()
	defer hub.mu.RUnlock()

	for ch := range hub.subs[event.GroupID] {
		select {
		case ch <- event:
		default:
		}
	}
}

// StartRedisChatSubscriber ensures a single shared Redis listener per instance.
func StartRedisChatSubscriber(ctx context.Context) {
	redisStarted.Do(func() {
		go runRedisSubscriber(ctx)
	})
}

func runRedisSubscriber(ctx context.Context) {
	client := database.RedisClient
	if client == nil {
		log.Println("Redis client not initialized; chat subscriber not started")
		return
	}

	backoff := time.Second

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		func() {
			pubsub := client.PSubscribe(ctx, "chat:group:*")
			defer pubsub.Close()

			log.Println("✅ Chat Redis subscriber started (pattern: chat:group:*)")

			for {
				msg, err := pubsub.ReceiveMessage(ctx)
				if err != nil {
					log.Printf("Redis subscriber error: %v", err)
					time.Sleep(backoff)
					backoff *= 2
					if backoff > 30*time.Second {
						backoff = 30 * time.Second
					}
					return
				}

				backoff = time.Second

				var event ChatEvent
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					log.Printf("failed to unmarshal chat event: %v", err)
					continue
				}

				fanOut(event)
			}
		}()
	}
}

// PublishChatEvent publishes an event to the group's Redis channel so every
// instance (including this one) can fan it out to local connections.
func PublishChatEvent(ctx context.Context, event ChatEvent) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	channel := "chat:group:" + event.GroupID
	return database.RedisClient.Publish(ctx, channel, data).Err()
}

const (
	presenceKeyPrefix = "presence:"
	presenceTTL       = 2 * time.Minute
)

// SetUserPresence marks a user online with a TTL; refreshed by client pings,
// expiry handles disconnects without explicit cleanup.
func SetUserPresence(ctx context.Context, userID uuid.UUID, status string) {
	if database.RedisClient == nil {
		return
	}
	key := presenceKeyPrefix + userID.String()
	if err := database.RedisClient.Set(ctx, key, status, presenceTTL).Err(); err != nil {
		log.Printf("failed to set presence for %s: %v", userID, err)
	}
}
