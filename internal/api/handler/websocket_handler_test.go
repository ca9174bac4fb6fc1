package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"parkflow/internal/domain"
	"parkflow/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const wsTestSecret = "ws-test-secret"

func wsToken(t *testing.T, contractorID string) string {
	t.Helper()
	claims := service.AttendantClaims{
		ContractorID:     contractorID,
		Role:             "attendant",
		RegisteredClaims: jwt.RegisteredClaims{Subject: "att-" + contractorID, ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(wsTestSecret))
	require.NoError(t, err)
	return signed
}

func newWSServer(t *testing.T) (*WebSocketManager, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctx, cancel := context.WithCancel(context.Background())
	wsm := NewWebSocketManager()
	go wsm.Start(ctx)

	r := gin.New()
	r.GET("/ws", NewWebSocketHandler(wsm, service.NewAuthService(wsTestSecret), nil).HandleWebSocket)
	srv := httptest.NewServer(r)
	t.Cleanup(func() {
		srv.Close()
		cancel()
	})
	return wsm, "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func TestWebSocket_RejectsBadToken(t *testing.T) {
	_, url := newWSServer(t)
	_, resp, err := websocket.DefaultDialer.Dial(url+"?token=garbage", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestWebSocket_DeliversOnlyOwnContractor(t *testing.T) {
	wsm, url := newWSServer(t)

	own, _, err := websocket.DefaultDialer.Dial(url+"?token="+wsToken(t, "con-1"), nil)
	require.NoError(t, err)
	defer own.Close()
	other, _, err := websocket.DefaultDialer.Dial(url+"?token="+wsToken(t, "con-2"), nil)
	require.NoError(t, err)
	defer other.Close()

	require.Eventually(t, func() bool { return wsm.ClientCount() == 2 }, 2*time.Second, 10*time.Millisecond)

	wsm.Broadcast(domain.CheckoutNotification{
		EventType:    domain.CheckoutEventUpdated,
		SessionID:    "sess-1",
		ContractorID: "con-1",
		VehicleID:    "veh-1",
	})

	_ = own.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := own.ReadMessage()
	require.NoError(t, err)
	var got domain.CheckoutNotification
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, "sess-1", got.SessionID)
	assert.Equal(t, domain.CheckoutEventUpdated, got.EventType)

	_ = other.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	_, _, err = other.ReadMessage()
	assert.Error(t, err, "other contractor must not receive the notification")
}

func TestWebSocket_UnregistersOnDisconnect(t *testing.T) {
	wsm, url := newWSServer(t)

	conn, _, err := websocket.DefaultDialer.Dial(url+"?token="+wsToken(t, "con-1"), nil)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return wsm.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return wsm.ClientCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}
