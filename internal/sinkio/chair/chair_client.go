// Package chair sends the motion chair's utility commands (power, park,
// lights) over its vendor TCP/UDP protocol. Motion itself is driven
// through the virtual gamepad, not through this client.
package chair

import (
	"fmt"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"
)

type Config struct {
	Address string `json:"address"`
	TCPPort int    `json:"tcpPort"`
	UDPPort int    `json:"udpPort"`
}

// Vendor command bytes.
var (
	cmdOn        = []byte{0xa1}
	cmdOff       = []byte{0xa2}
	cmdPark      = []byte{0xa2, 0x01}
	cmdLightsOff = []byte{0xb2, 0x01, 0x01, 0x00, 0xff, 0x00}
)

type Client struct {
	log *zap.Logger
	cfg Config

	mu   sync.Mutex
	conn net.Conn
}

func New(log *zap.Logger, cfg Config) *Client {
	if cfg.TCPPort == 0 {
		cfg.TCPPort = 50020
	}
	if cfg.UDPPort == 0 {
		cfg.UDPPort = 50010
	}
	return &Client{log: log, cfg: cfg}
}

func (c *Client) PowerOn() error   { return c.sendTCP(cmdOn) }
func (c *Client) PowerOff() error  { return c.sendTCP(cmdOff) }
func (c *Client) Park() error      { return c.sendTCP(cmdPark) }
func (c *Client) LightsOff() error { return c.sendUDP(cmdLightsOff) }

// sendTCP writes a command, reconnecting once on a stale connection.
func (c *Client) sendTCP(payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		if err := c.connect(); err != nil {
			return err
		}
	}
	if _, err := c.conn.Write(payload); err != nil {
		c.conn.Close()
		c.conn = nil
		if err := c.connect(); err != nil {
			return err
		}
		if _, err := c.conn.Write(payload); err != nil {
			return fmt.Errorf("failed to send chair command: %w", err)
		}
	}
	return nil
}

func (c *Client) connect() error {
	addr := fmt.Sprintf("%s:%d", c.cfg.Address, c.cfg.TCPPort)
	conn, err := net.DialTimeout("tcp", addr, time.Second)
	if err != nil {
		return fmt.Errorf("failed to connect to chair at %s: %w", addr, err)
	}
	c.conn = conn
	c.log.Info("Connected to chair", zap.String("addr", addr))
	return nil
}

func (c *Client) sendUDP(payload []byte) error {
	addr := fmt.Sprintf("%s:%d", c.cfg.Address, c.cfg.UDPPort)
	conn, err := net.Dial("udp", addr)
	if err != nil {
		return fmt.Errorf("failed to reach chair at %s: %w", addr, err)
	}
	defer conn.Close()
	if _, err := conn.Write(payload); err != nil {
		return fmt.Errorf("failed to send chair command: %w", err)
	}
	return nil
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		err := c.conn.Close()
		c.conn = nil
		return err
	}
	return nil
}
