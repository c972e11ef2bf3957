package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gatherly-app/gatherly-backend/internal/services"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var chatUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// CORS for WebSocket is handled at the HTTP layer already.
		return true
	},
}

// ChatClientMessage represents messages coming from the frontend over WebSocket.
type ChatClientMessage struct {
	Type    string `json:"type"` // "message", "typing_start", "typing_stop", "ping"
	GroupID string `json:"group_id"`
	Text    string `json:"text,omitempty"`
}

// ChatWebSocket handles real-time group chat over WebSocket. Authentication
// uses the session token (Authorization header or `token` query parameter
// for browser clients). Each connection is bound to one group via the
// `group_id` query parameter; membership is checked before the upgrade.
//
// The sender's display name is resolved once at connect time with anonymity
// forced, and that resolved name is what travels with every message. Raw
// usernames never enter the chat pipeline.
func ChatWebSocket(w http.ResponseWriter, r *http.Request) {
	token := extractBearerToken(r)
	if token == "" {
		token = r.URL.Query().Get("token")
	}
	if token == "" {
		http.Error(w, "missing session token", http.StatusUnauthorized)
		return
	}

	userID, ok, err := services.ValidateSession(token)
	if err != nil || !ok {
		http.Error(w, "invalid session token", http.StatusUnauthorized)
		return
	}

	groupID := r.URL.Query().Get("group_id")
	if groupID == "" {
		http.Error(w, "group_id is required", http.StatusBadRequest)
		return
	}

	member, err := isGroupMember(r, groupID, userID.String())
	if err != nil || !member {
		http.Error(w, "you must be a member of this group", http.StatusForbidden)
		return
	}

	display := displayResolver.ResolveUser(r.Context(), userID.String(), userID.String(), true)

	conn, err := chatUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	services.SetUserPresence(ctx, userID, "online")

	eventsCh, unsubscribe := services.SubscribeGroup(groupID)
	defer unsubscribe()

	// Writer goroutine: forward hub events to this connection.
	go func() {
		for evt := range eventsCh {
			if err := conn.WriteJSON(evt); err != nil {
				return
			}
		}
	}()

	conn.SetReadLimit(64 * 1024)
	_ = conn.SetReadDeadline(time.Now().Add(90 * time.Second))
	conn.SetPongHandler(func(appData string) error {
		_ = conn.SetReadDeadline(time.Now().Add(90 * time.Second))
		return nil
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			// On disconnect, presence expires via its TTL.
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(90 * time.Second))

		var msg ChatClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}
		if msg.GroupID == "" {
			msg.GroupID = groupID
		}
		if msg.GroupID != groupID {
			// A connection is bound to one group.
			continue
		}

		switch msg.Type {
		case "message":
			handleIncomingChatMessage(ctx, conn, userID, display.DisplayName, msg)
		case "typing_start":
			_ = services.PublishChatEvent(ctx, services.ChatEvent{
				Type:        services.EventTypeTypingStart,
				GroupID:     groupID,
				SenderID:    userID.String(),
				DisplayName: display.DisplayName,
				Timestamp:   time.Now().UTC(),
			})
		case "typing_stop":
			_ = services.PublishChatEvent(ctx, services.ChatEvent{
				Type:        services.EventTypeTypingStop,
				GroupID:     groupID,
				SenderID:    userID.String(),
				DisplayName: display.DisplayName,
				Timestamp:   time.Now().UTC(),
			})
		case "ping":
			services.SetUserPresence(ctx, userID, "online")
		default:
			// Ignore unknown types.
		}
	}
}

// handleIncomingChatMessage validates, persists to MongoDB, publishes via
// Redis, and sends an acknowledgement back to the sender.
func handleIncomingChatMessage(
	ctx context.Context,
	conn *websocket.Conn,
	userID uuid.UUID,
	displayName string,
	msg ChatClientMessage,
) {
	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return
	}

	chatMsg := &services.ChatMessage{
		GroupID:     msg.GroupID,
		SenderID:    userID.String(),
		DisplayName: displayName,
		Text:        text,
		CreatedAt:   time.Now().UTC(),
		Status:      "sent",
	}

	saved, err := services.SaveChatMessage(ctx, chatMsg)
	if err != nil {
		_ = conn.WriteJSON(services.ChatEvent{
			Type:      services.EventTypeError,
			GroupID:   msg.GroupID,
			Error:     "failed to persist message",
			Timestamp: time.Now().UTC(),
		})
		return
	}

	services.PushMessageToRecentCache(*saved)

	_ = services.PublishChatEvent(ctx, services.ChatEvent{
		Type:    services.EventTypeMessage,
		GroupID: msg.GroupID,
		Message: saved,
	})

	_ = conn.WriteJSON(services.ChatEvent{
		Type:    services.EventTypeMessageAck,
		GroupID: msg.GroupID,
		Message: saved,
	})
}
