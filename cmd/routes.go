package cmd

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/luma/ibzmq/decoder"
	"github.com/luma/ibzmq/internal/meta"
	"github.com/luma/ibzmq/storage"
)

const (
	streamWriteTimeout = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// StatusSource reports the state of the gateway session.
type StatusSource interface {
	Status() decoder.Status
}

// MessageStore is what the HTTP API reads messages from.
type MessageStore interface {
	storage.Store
	storage.Listener
	Backup() ([]byte, error)
}

type RouterOptions struct {
	DebugHTTP bool
	Status    StatusSource
	Store     MessageStore
	Log       *zap.Logger
}

// NewRouter builds the status API:
//
//	GET /ping             liveness
//	GET /health           build info and gateway session status
//	GET /messages         latest message of every type
//	GET /messages/:type   latest message of one type
//	GET /stream           websocket of stored messages, ?type= filters
func NewRouter(options RouterOptions) *gin.Engine {
	router := setupRouter(options.DebugHTTP, options.Log)

	router.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, "pong")
	})

	router.GET("/health", healthHandler(options.Status))
	router.GET("/messages", snapshotHandler(options.Store))
	router.GET("/messages/:type", latestHandler(options.Store))
	router.GET("/stream", streamHandler(options.Store, options.Log.Named("stream")))

	return router
}

func setupRouter(debugHTTP bool, log *zap.Logger) *gin.Engine {
	gin.DisableConsoleColor()
	if !debugHTTP {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Access log, RFC3339 UTC timestamps. Health checks are too noisy to log.
	r.Use(ginzap.GinzapWithConfig(log, &ginzap.Config{
		TimeFormat: time.RFC3339,
		UTC:        true,
		SkipPaths:  []string{"/health", "/ping"},
	}))

	// Logs all panic to error log
	//   - stack means whether output the stack info.
	r.Use(ginzap.RecoveryWithZap(log, true))

	return r
}

func healthHandler(source StatusSource) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := source.Status()

		code := http.StatusOK
		switch status.State {
		case string(decoder.AwaitingMessageHeader), string(decoder.AwaitingContinuation):
		default:
			code = http.StatusServiceUnavailable
		}

		c.JSON(code, gin.H{
			"meta":     meta.GetInfo(),
			"upstream": status,
		})
	}
}

func snapshotHandler(store MessageStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		data, err := store.Backup()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		c.Data(http.StatusOK, "application/json", data)
	}
}

func latestHandler(store MessageStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		typeID, err := strconv.Atoi(c.Param("type"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "message type must be a number"})
			return
		}

		msg, err := store.Latest(c.Request.Context(), typeID)
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		} else if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		data, err := msg.Marshal()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		c.Data(http.StatusOK, "application/json", data)
	}
}

func streamHandler(store MessageStore, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var key string
		if t := c.Query("type"); t != "" {
			typeID, err := strconv.Atoi(t)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "message type must be a number"})
				return
			}

			key = storage.LatestKey(typeID)
		}

		// Listen before the upgrade so nothing stored after the handshake
		// is missed.
		updates := store.ListenToUpdates()
		defer store.Unlisten(updates)

		ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Warn("Failed to upgrade stream", zap.Error(err))
			return
		}
		defer ws.Close()

		// The client sends nothing; reading is how a close is noticed.
		closed := make(chan struct{})
		go func() {
			defer close(closed)
			for {
				if _, _, err := ws.ReadMessage(); err != nil {
					return
				}
			}
		}()

		for {
			select {
			case <-closed:
				return

			case update, ok := <-updates:
				if !ok {
					return
				}

				if key != "" && string(update.Key) != key {
					continue
				}

				ws.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
				if err := ws.WriteMessage(websocket.TextMessage, update.Value); err != nil {
					log.Debug("Stream closed", zap.Error(err))
					return
				}
			}
		}
	}
}
