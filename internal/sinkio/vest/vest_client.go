// Package vest sends stimulus commands to the vendor vest runtime over its
// local WebSocket endpoint.
package vest

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/hapticbridge/hapticbridge/internal/sinkio"
	"github.com/lxzan/gws"
	"go.uber.org/zap"
)

type Config struct {
	// URL of the vest runtime endpoint, e.g. ws://127.0.0.1:15881/feedback.
	URL string `json:"url"`
}

type Client struct {
	log *zap.Logger
	url string

	mu   sync.Mutex
	conn *gws.Conn
}

func New(log *zap.Logger, cfg Config) *Client {
	return &Client{
		log: log,
		url: cfg.URL,
	}
}

// NewFromConfig is the sink registry creator.
func NewFromConfig(config json.RawMessage, log *zap.Logger) (sinkio.VestSink, error) {
	var cfg Config
	if err := json.Unmarshal(config, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse vest sink config: %w", err)
	}
	if cfg.URL == "" {
		return nil, fmt.Errorf("vest sink config has no url")
	}
	return New(log.Named("vest"), cfg), nil
}

// stimulusFrame is the wire message. The runtime expects intensity as an
// integer percentage.
type stimulusFrame struct {
	Node       int `json:"node"`
	Intensity  int `json:"intensity"`
	DurationMs int `json:"durationMs"`
}

// SendStimulus writes one frame. Connection failures surface as
// ErrDeviceUnreachable; the connection is dropped and re-dialed lazily on
// the next send.
func (c *Client) SendStimulus(node int, intensity float64, durationMs int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	conn, err := c.ensureConn()
	if err != nil {
		return fmt.Errorf("%w: %v", sinkio.ErrDeviceUnreachable, err)
	}
	frame := stimulusFrame{
		Node:       node,
		Intensity:  int(intensity * 100),
		DurationMs: durationMs,
	}
	b, err := json.Marshal(frame)
	if err != nil {
		return err
	}
	if err := conn.WriteString(string(b)); err != nil {
		c.conn = nil
		return fmt.Errorf("%w: %v", sinkio.ErrDeviceUnreachable, err)
	}
	return nil
}

func (c *Client) ensureConn() (*gws.Conn, error) {
	if c.conn != nil {
		return c.conn, nil
	}
	conn, _, err := gws.NewClient(&gws.BuiltinEventHandler{}, &gws.ClientOption{
		Addr: c.url,
	})
	if err != nil {
		return nil, err
	}
	go conn.ReadLoop()
	c.conn = conn
	c.log.Info("Connected to vest runtime", zap.String("url", c.url))
	return conn, nil
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		c.conn.WriteClose(1000, nil)
		c.conn = nil
	}
	return nil
}
