package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/cppla/quitmate/events"
	"github.com/cppla/quitmate/utils"
)

const (
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

// EventsController upgrades authenticated requests to a websocket that receives milestone events.
type EventsController struct {
	hub      *events.Hub
	upgrader websocket.Upgrader
}

// NewEventsController creates a new controller instance. Origins are checked by the CORS layer.
func NewEventsController(hub *events.Hub) *EventsController {
	return &EventsController{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// Subscribe serves GET /events/ws until the client goes away.
func (e *EventsController) Subscribe(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}
	conn, err := e.upgrader.Upgrade(ctx.Writer, ctx.Request, nil)
	if err != nil {
		utils.LoggerFrom(ctx.Request.Context()).Warn("websocket upgrade failed", zap.String("user_id", userID), zap.Error(err))
		return
	}

	client := events.NewClient(conn, userID)
	e.hub.Register(client)
	defer e.hub.Unregister(client)

	_ = client.SafeWriteJSON(events.Message{Type: "connected", UserID: userID, Timestamp: time.Now()})

	done := make(chan struct{})
	defer close(done)
	go e.keepAlive(client, done)

	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				utils.Logger.Debug("websocket closed", zap.String("user_id", userID), zap.Error(err))
			}
			return
		}
	}
}

func (e *EventsController) keepAlive(client *events.Client, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := client.Conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
				return
			}
		}
	}
}
