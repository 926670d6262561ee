package websocketPkg

import (
	"PerfectFit/internal/entity"
	"PerfectFit/pkg/log"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	jsoniter "github.com/json-iterator/go"
	"golang.org/x/net/context"
)

// ILandmarkProvider sends one encoded image per call to the face mesh service
// and returns its reading.
type ILandmarkProvider interface {
	DetectLandmarks(ctx context.Context, frame []byte) (*entity.LandmarkResult, error)
	IsConnected() bool
	Reconnect() error
	Close()
}

type landmarkClient struct {
	url          string
	conn         *websocket.Conn
	mu           sync.Mutex
	reqMu        sync.Mutex
	pingInterval time.Duration
	readTimeout  time.Duration
	writeTimeout time.Duration
}

func NewLandmarkClient() ILandmarkProvider {
	client := newLandmarkClient(getWebSocketURL())
	go client.connectInBackground()
	return client
}

func newLandmarkClient(url string) *landmarkClient {
	return &landmarkClient{
		url:          url,
		pingInterval: 30 * time.Second,
		readTimeout:  10 * time.Second,
		writeTimeout: 5 * time.Second,
	}
}

func (c *landmarkClient) connectInBackground() {
	if err := c.Reconnect(); err != nil {
		log.Warn(log.Fields{
			"url":   c.url,
			"error": err.Error(),
		}, "[websocket.connectInBackground] initial connection to landmark provider failed, will retry on demand")
		return
	}
	log.Info(log.Fields{"url": c.url}, "[websocket.connectInBackground] connected to landmark provider")
}

func (c *landmarkClient) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

func (c *landmarkClient) Reconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}

	if c.url == "" {
		return fmt.Errorf("landmark provider URL not configured")
	}

	dialer := *websocket.DefaultDialer
	dialer.HandshakeTimeout = 10 * time.Second

	conn, _, err := dialer.Dial(c.url, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", c.url, err)
	}

	conn.SetPingHandler(func(appData string) error {
		err := conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(c.writeTimeout))
		if err != nil {
			log.Warn(log.Fields{"error": err.Error()}, "[websocket.Reconnect] failed to send pong")
		}
		return nil
	})

	c.conn = conn
	go c.keepAlive(conn)

	return nil
}

func (c *landmarkClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
}

func (c *landmarkClient) keepAlive(conn *websocket.Conn) {
	ticker := time.NewTicker(c.pingInterval)
	defer ticker.Stop()

	for range ticker.C {
		c.mu.Lock()
		if c.conn != conn {
			c.mu.Unlock()
			return
		}

		err := conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(c.writeTimeout))
		if err != nil {
			log.Warn(log.Fields{"error": err.Error()}, "[websocket.keepAlive] ping failed, marking connection as dead")
			c.conn = nil
			conn.Close()
			c.mu.Unlock()
			return
		}

		c.mu.Unlock()
	}
}

func (c *landmarkClient) getConnection() (*websocket.Conn, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return nil, fmt.Errorf("not connected to landmark provider")
	}
	return c.conn, nil
}

func (c *landmarkClient) dropConnection(conn *websocket.Conn) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == conn {
		c.conn = nil
	}
	conn.Close()
}

func (c *landmarkClient) DetectLandmarks(ctx context.Context, frame []byte) (*entity.LandmarkResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	conn, err := c.getConnection()
	if err != nil {
		if err := c.Reconnect(); err != nil {
			return nil, fmt.Errorf("cannot connect to landmark provider: %w", err)
		}
		if conn, err = c.getConnection(); err != nil {
			return nil, err
		}
	}

	// one request/response pair at a time on the shared connection
	c.reqMu.Lock()
	defer c.reqMu.Unlock()

	writeDeadline := time.Now().Add(c.writeTimeout)
	readDeadline := time.Now().Add(c.readTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(readDeadline) {
		readDeadline = d
		if d.Before(writeDeadline) {
			writeDeadline = d
		}
	}

	c.mu.Lock()
	conn.SetWriteDeadline(writeDeadline)
	err = conn.WriteMessage(websocket.BinaryMessage, frame)
	c.mu.Unlock()
	if err != nil {
		c.dropConnection(conn)
		return nil, fmt.Errorf("error sending frame: %w", err)
	}

	conn.SetReadDeadline(readDeadline)
	_, message, err := conn.ReadMessage()
	if err != nil {
		c.dropConnection(conn)
		return nil, fmt.Errorf("error reading landmark response: %w", err)
	}
	conn.SetReadDeadline(time.Time{})

	var result entity.LandmarkResult
	if err := jsoniter.Unmarshal(message, &result); err != nil {
		return nil, fmt.Errorf("error unmarshaling landmark response: %w", err)
	}
	result.Normalize()

	log.Debug(log.Fields{
		"status":     result.Status,
		"face_count": result.FaceCount,
		"bytes":      len(frame),
	}, "[websocket.DetectLandmarks] landmark provider responded")

	return &result, nil
}

func getWebSocketURL() string {
	url := os.Getenv("LANDMARK_PROVIDER_URL")
	if url == "" {
		url = "ws://localhost:8000/api/v1/face-mesh/ws"
	}
	return url
}
