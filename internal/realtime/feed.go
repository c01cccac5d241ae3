package realtime

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// Feed bridges a gallery's redis activity channel to a websocket. One
// subscription per connected socket; the connection closes when either
// side goes away.
type Feed struct {
	rdb      *redis.Client
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

func NewFeed(rdb *redis.Client, logger *zap.Logger) *Feed {
	return &Feed{
		rdb: rdb,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The gallery session token is the access control here;
			// dashboards connect from tenant custom domains, so origin
			// checks cannot be a fixed allowlist.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger: logger,
	}
}

// Serve upgrades the request and streams the gallery's activity events
// until the client disconnects. The caller has already authenticated
// the session and verified the gallery belongs to the scoped tenant.
func (f *Feed) Serve(c *gin.Context, tenantID, galleryID uuid.UUID) {
	if f.rdb == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "activity feed unavailable"})
		return
	}

	conn, err := f.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error response.
		f.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	sub := f.rdb.Subscribe(c.Request.Context(), channelFor(tenantID, galleryID))
	defer sub.Close()

	// Reader goroutine: the client never sends data frames, but reading
	// is what surfaces close frames and pong responses.
	done := make(chan struct{})
	go func() {
		defer close(done)
		conn.SetReadLimit(512)
		conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	events := sub.Channel()
	for {
		select {
		case msg, ok := <-events:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, []byte(msg.Payload)); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		case <-c.Request.Context().Done():
			return
		}
	}
}
