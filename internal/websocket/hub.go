package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"

	"bloom-backend/internal/logger"
	"bloom-backend/internal/middleware"
	"bloom-backend/internal/models"
)

// GalleryChannel carries full gallery lists as websocket-ready JSON.
const GalleryChannel = "gallery_updates"

const writeWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type Hub struct {
	mu              sync.RWMutex
	connections     map[uuid.UUID][]*websocket.Conn
	redisClient     *redis.Client
	jwt             *middleware.JWTAuth
	identityChannel string
	log             *logger.Logger
}

func NewHub(redisClient *redis.Client, jwt *middleware.JWTAuth, identityChannel string, log *logger.Logger) *Hub {
	return &Hub{
		connections:     make(map[uuid.UUID][]*websocket.Conn),
		redisClient:     redisClient,
		jwt:             jwt,
		identityChannel: identityChannel,
		log:             log.With("component", "websocket"),
	}
}

// PublishGallery announces a freshly read gallery list to every instance.
func (h *Hub) PublishGallery(ctx context.Context, images []models.GalleryImage) error {
	data, err := json.Marshal(models.WSMessage{Type: models.WSGalleryUpdated, Payload: images})
	if err != nil {
		return fmt.Errorf("failed to encode gallery update: %w", err)
	}
	return h.redisClient.Publish(ctx, GalleryChannel, data).Err()
}

// Run relays the gallery and identity channels to connected sockets until
// ctx is cancelled. It is the only goroutine writing to connections.
func (h *Hub) Run(ctx context.Context) {
	pubsub := h.redisClient.Subscribe(ctx, GalleryChannel, h.identityChannel)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			switch msg.Channel {
			case GalleryChannel:
				h.broadcastAll([]byte(msg.Payload))
			case h.identityChannel:
				userID, err := uuid.Parse(msg.Payload)
				if err != nil {
					continue
				}
				h.SendToUser(userID, models.WSMessage{Type: models.WSIdentityChanged, Payload: userID})
			}
		}
	}
}

func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	// Browsers cannot set headers on websocket upgrades, so the token rides in the query.
	tokenStr := r.URL.Query().Get("token")
	if tokenStr == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	userID, err := h.jwt.ParseAccessToken(tokenStr)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", "error", err)
		return
	}

	h.registerConnection(userID, conn)

	go func() {
		defer h.unregisterConnection(userID, conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
	}()
}

func (h *Hub) registerConnection(userID uuid.UUID, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.connections[userID] = append(h.connections[userID], conn)
	h.log.Debug("websocket connected", "user_id", userID, "total", len(h.connections[userID]))
}

func (h *Hub) unregisterConnection(userID uuid.UUID, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	conn.Close()

	conns := h.connections[userID]
	for i, c := range conns {
		if c == conn {
			h.connections[userID] = append(conns[:i], conns[i+1:]...)
			break
		}
	}
	if len(h.connections[userID]) == 0 {
		delete(h.connections, userID)
	}

	h.log.Debug("websocket disconnected", "user_id", userID)
}

// ConnectionCount reports the number of open sockets.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, conns := range h.connections {
		n += len(conns)
	}
	return n
}

func (h *Hub) broadcastAll(data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, conns := range h.connections {
		for _, conn := range conns {
			h.write(conn, data)
		}
	}
}

func (h *Hub) broadcast(userID uuid.UUID, data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, conn := range h.connections[userID] {
		h.write(conn, data)
	}
}

func (h *Hub) write(conn *websocket.Conn, data []byte) {
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		h.log.Debug("websocket write failed", "error", err)
	}
}

// SendToUser sends a message directly to a user (for use outside pub/sub)
func (h *Hub) SendToUser(userID uuid.UUID, msg interface{}) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	h.broadcast(userID, data)
}
