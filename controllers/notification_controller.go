package controllers

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/kendall-kelly/service-marketplace-api/services"
	"github.com/rs/zerolog/log"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = (wsPongWait * 9) / 10
	wsMaxMessage = 4096
)

// MessageRequest carries the text of an admin notification
type MessageRequest struct {
	Message string `json:"message" binding:"required"`
}

// NotificationController serves the /notifications endpoints
type NotificationController struct {
	notifications *services.NotificationService
	upgrader      websocket.Upgrader
}

// NewNotificationController builds the controller. allowedOrigins is the
// CORS origin list; "*" accepts any origin.
func NewNotificationController(notifications *services.NotificationService, allowedOrigins []string) *NotificationController {
	return &NotificationController{
		notifications: notifications,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, o := range allowed {
			if o == "*" || o == origin {
				return true
			}
		}
		return false
	}
}

// Connect handles GET /api/v1/notifications/ws/:username. The connection
// stays registered in the hub until the client goes away.
func (h *NotificationController) Connect(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	if c.Param("username") != user.Username {
		respondErrorCode(c, http.StatusForbidden, "FORBIDDEN", "Cannot subscribe to another user's notifications")
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade has already written the HTTP error
		log.Warn().Err(err).Str("username", user.Username).Msg("WebSocket upgrade failed")
		return
	}

	ch := newWSChannel(conn)
	hub := h.notifications.Hub()
	hub.Connect(user.Username, ch)
	log.Info().Str("username", user.Username).Int("connections", hub.Connections(user.Username)).Msg("Notification channel opened")

	ch.run()

	hub.Disconnect(user.Username, ch)
	log.Info().Str("username", user.Username).Msg("Notification channel closed")
}

// List handles GET /api/v1/notifications
func (h *NotificationController) List(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	list, err := h.notifications.List(c.Request.Context(), user.ID,
		queryInt(c, "limit", services.DefaultNotificationLimit))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, list)
}

// MarkRead handles PATCH /api/v1/notifications/:id/read
func (h *NotificationController) MarkRead(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	n, err := h.notifications.MarkRead(c.Request.Context(), user.ID, id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, n)
}

// Send handles POST /api/v1/notifications/send-notification/:username
func (h *NotificationController) Send(c *gin.Context) {
	var req MessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	n, delivered, err := h.notifications.NotifyUsername(c.Request.Context(), c.Param("username"), "Message", req.Message)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{
		"notification": n,
		"delivered":    delivered,
	})
}

// Broadcast handles POST /api/v1/notifications/broadcast
func (h *NotificationController) Broadcast(c *gin.Context) {
	var req MessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	delivered, err := h.notifications.Broadcast(req.Message)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"delivered": delivered})
}

// wsChannel adapts a websocket connection to services.Channel. gorilla
// connections allow one concurrent writer, so writes are serialized.
type wsChannel struct {
	conn *websocket.Conn
	mu   sync.Mutex
	done chan struct{}
}

func newWSChannel(conn *websocket.Conn) *wsChannel {
	return &wsChannel{conn: conn, done: make(chan struct{})}
}

func (w *wsChannel) Deliver(payload []byte) error {
	return w.write(websocket.TextMessage, payload)
}

func (w *wsChannel) write(messageType int, data []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.conn.SetWriteDeadline(time.Now().Add(wsWriteWait)); err != nil {
		return err
	}
	return w.conn.WriteMessage(messageType, data)
}

// run pings the client and drains its frames until the connection fails
func (w *wsChannel) run() {
	defer w.conn.Close()

	go w.keepAlive()
	defer close(w.done)

	w.conn.SetReadLimit(wsMaxMessage)
	_ = w.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	w.conn.SetPongHandler(func(string) error {
		return w.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	for {
		if _, _, err := w.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug().Err(err).Msg("Notification channel read failed")
			}
			return
		}
	}
}

func (w *wsChannel) keepAlive() {
	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := w.write(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-w.done:
			return
		}
	}
}
