package websocket

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bloom-backend/internal/logger"
	"bloom-backend/internal/middleware"
	"bloom-backend/internal/models"
)

func newTestHub() (*Hub, *middleware.JWTAuth) {
	jwt := middleware.NewJWTAuth("test-secret")
	return NewHub(nil, jwt, "identity_changed", logger.Nop()), jwt
}

func TestHandleWebSocket_RequiresToken(t *testing.T) {
	hub, _ := newTestHub()

	for _, target := range []string{"/api/v1/ws", "/api/v1/ws?token=garbage"} {
		rr := httptest.NewRecorder()
		hub.HandleWebSocket(rr, httptest.NewRequest(http.MethodGet, target, nil))
		assert.Equal(t, http.StatusUnauthorized, rr.Code, target)
	}
}

func dial(t *testing.T, srv *httptest.Server, token string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestHub_FansOutToConnections(t *testing.T) {
	hub, jwt := newTestHub()
	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWebSocket))
	defer srv.Close()

	alice, bob := uuid.New(), uuid.New()
	aliceToken, err := jwt.GenerateAccessToken(alice, "alice@example.com")
	require.NoError(t, err)
	bobToken, err := jwt.GenerateAccessToken(bob, "bob@example.com")
	require.NoError(t, err)

	aliceConn := dial(t, srv, aliceToken)
	bobConn := dial(t, srv, bobToken)
	require.Eventually(t, func() bool { return hub.ConnectionCount() == 2 }, time.Second, 10*time.Millisecond)

	payload, err := json.Marshal(models.WSMessage{Type: models.WSGalleryUpdated, Payload: []models.GalleryImage{}})
	require.NoError(t, err)
	hub.broadcastAll(payload)

	for _, conn := range []*websocket.Conn{aliceConn, bobConn} {
		conn.SetReadDeadline(time.Now().Add(time.Second))
		var msg models.WSMessage
		require.NoError(t, conn.ReadJSON(&msg))
		assert.Equal(t, models.WSGalleryUpdated, msg.Type)
	}

	hub.SendToUser(bob, models.WSMessage{Type: models.WSIdentityChanged, Payload: bob})
	bobConn.SetReadDeadline(time.Now().Add(time.Second))
	var msg models.WSMessage
	require.NoError(t, bobConn.ReadJSON(&msg))
	assert.Equal(t, models.WSIdentityChanged, msg.Type)

	aliceConn.Close()
	require.Eventually(t, func() bool { return hub.ConnectionCount() == 1 }, time.Second, 10*time.Millisecond)
}
