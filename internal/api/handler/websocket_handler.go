package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"parkflow/internal/domain"
	"parkflow/internal/logger"
	"parkflow/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = (wsPongWait * 9) / 10
	wsSendBuffer = 32
)

// wsClient is one connected attendant screen. It only receives notifications for its contractor.
type wsClient struct {
	conn         *websocket.Conn
	contractorID string
	send         chan []byte
}

type wsMessage struct {
	contractorID string
	payload      []byte
}

// WebSocketManager fans checkout notifications out to connected clients.
type WebSocketManager struct {
	clients    map[*wsClient]bool
	register   chan *wsClient
	unregister chan *wsClient
	broadcast  chan wsMessage
	done       chan struct{}
	mutex      sync.RWMutex
}

func NewWebSocketManager() *WebSocketManager {
	return &WebSocketManager{
		clients:    make(map[*wsClient]bool),
		register:   make(chan *wsClient),
		unregister: make(chan *wsClient),
		broadcast:  make(chan wsMessage, 256),
		done:       make(chan struct{}),
	}
}

func (wsm *WebSocketManager) Start(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			wsm.mutex.Lock()
			for client := range wsm.clients {
				close(client.send)
				delete(wsm.clients, client)
			}
			wsm.mutex.Unlock()
			close(wsm.done)
			return

		case client := <-wsm.register:
			wsm.mutex.Lock()
			wsm.clients[client] = true
			total := len(wsm.clients)
			wsm.mutex.Unlock()
			logger.Info("WebSocket client connected", zap.String("contractor_id", client.contractorID), zap.Int("total", total))

		case client := <-wsm.unregister:
			wsm.mutex.Lock()
			if _, ok := wsm.clients[client]; ok {
				delete(wsm.clients, client)
				close(client.send)
			}
			total := len(wsm.clients)
			wsm.mutex.Unlock()
			logger.Info("WebSocket client disconnected", zap.Int("total", total))

		case message := <-wsm.broadcast:
			wsm.mutex.Lock()
			for client := range wsm.clients {
				if client.contractorID != message.contractorID {
					continue
				}
				select {
				case client.send <- message.payload:
				default:
					logger.Warn("WebSocket client too slow, dropping connection", zap.String("contractor_id", client.contractorID))
					delete(wsm.clients, client)
					close(client.send)
				}
			}
			wsm.mutex.Unlock()
		}
	}
}

// Broadcast queues a notification for every client of the notification's contractor.
func (wsm *WebSocketManager) Broadcast(n domain.CheckoutNotification) {
	payload, err := json.Marshal(n)
	if err != nil {
		logger.Error("Error marshaling checkout notification", zap.Error(err))
		return
	}

	select {
	case wsm.broadcast <- wsMessage{contractorID: n.ContractorID, payload: payload}:
	default:
		logger.Warn("Broadcast channel is full, dropping message", zap.String("event_type", string(n.EventType)))
	}
}

func (wsm *WebSocketManager) join(client *wsClient) bool {
	select {
	case wsm.register <- client:
		return true
	case <-wsm.done:
		return false
	}
}

func (wsm *WebSocketManager) leave(client *wsClient) {
	select {
	case wsm.unregister <- client:
	case <-wsm.done:
	}
}

func (wsm *WebSocketManager) ClientCount() int {
	wsm.mutex.RLock()
	defer wsm.mutex.RUnlock()
	return len(wsm.clients)
}

type WebSocketHandler struct {
	wsManager   *WebSocketManager
	authService *service.AuthService
	upgrader    websocket.Upgrader
}

func NewWebSocketHandler(wsManager *WebSocketManager, authService *service.AuthService, allowedOrigins []string) *WebSocketHandler {
	return &WebSocketHandler{
		wsManager:   wsManager,
		authService: authService,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" {
					return true
				}
				for _, allowed := range allowedOrigins {
					if allowed == "*" || allowed == origin {
						return true
					}
				}
				return false
			},
		},
	}
}

// GET /ws?token=...
// Browsers cannot set headers on a WebSocket handshake, so the token comes as a query parameter.
func (h *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	actor, err := h.authService.ValidateToken(c.Query("token"))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token", "details": err.Error()})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Warn("Failed to upgrade to WebSocket", zap.Error(err))
		return
	}

	client := &wsClient{conn: conn, contractorID: actor.ContractorID, send: make(chan []byte, wsSendBuffer)}
	if !h.wsManager.join(client) {
		conn.Close()
		return
	}

	go h.writePump(client)
	go h.readPump(client)
}

func (h *WebSocketHandler) readPump(client *wsClient) {
	defer func() {
		h.wsManager.leave(client)
		client.conn.Close()
	}()

	client.conn.SetReadLimit(512)
	_ = client.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	client.conn.SetPongHandler(func(string) error {
		return client.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	for {
		if _, _, err := client.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Warn("WebSocket error", zap.Error(err))
			}
			return
		}
	}
}

func (h *WebSocketHandler) writePump(client *wsClient) {
	ticker := time.NewTicker(wsPingPeriod)
	defer func() {
		ticker.Stop()
		client.conn.Close()
	}()

	for {
		select {
		case message, ok := <-client.send:
			_ = client.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if !ok {
				_ = client.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := client.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				logger.Warn("Error writing to WebSocket client", zap.Error(err))
				return
			}
		case <-ticker.C:
			_ = client.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
