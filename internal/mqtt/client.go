package mqtt

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/TeamLLMTech/mottag-iot-sprint4/internal/config"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// ErrStopped is returned by Connect once Disconnect has been called.
var ErrStopped = errors.New("mqtt client stopped")

// ErrNotConnected is returned by Publish when no session is up.
var ErrNotConnected = errors.New("mqtt client not connected")

// Client is the uplink session: one broker connection, owned by the process.
// Reconnection is left to the caller; paho's auto-reconnect is off.
type Client struct {
	client    mqtt.Client
	cfg       config.MQTT
	logger    *slog.Logger
	mu        sync.RWMutex
	connected bool

	stopCh   chan struct{}
	stopOnce sync.Once
}

func NewClient(cfg config.MQTT, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Client{
		cfg:    cfg,
		logger: logger,
		stopCh: make(chan struct{}),
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(brokerURL(cfg))
	opts.SetClientID(cfg.ClientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}

	// Session settings
	opts.SetCleanSession(true)

	opts.SetAutoReconnect(false)
	opts.SetConnectRetry(false)
	opts.SetConnectTimeout(10 * time.Second)

	// Keepalive / timeouts
	opts.SetKeepAlive(30 * time.Second)
	opts.SetPingTimeout(10 * time.Second)

	// Callbacks keep internal state accurate
	opts.SetOnConnectHandler(func(_ mqtt.Client) {
		c.setConnected(true)
		logger.Info("mqtt connected", "broker", cfg.Broker, "port", cfg.Port, "client_id", cfg.ClientID)
	})

	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		c.setConnected(false)
		logger.Warn("mqtt connection lost", "error", err)
	})

	c.client = mqtt.NewClient(opts)
	return c
}

func brokerURL(cfg config.MQTT) string {
	return fmt.Sprintf("tcp://%s:%d", cfg.Broker, cfg.Port)
}

// Connect makes a single connection attempt, respecting ctx and Disconnect().
func (c *Client) Connect(ctx context.Context) error {
	// Fail fast if already stopped.
	select {
	case <-c.stopCh:
		return ErrStopped
	default:
	}

	// Fast path.
	if c.IsConnected() {
		return nil
	}

	token := c.client.Connect()

	select {
	case <-token.Done():
		if err := token.Error(); err != nil {
			return fmt.Errorf("mqtt connect %s: %w", brokerURL(c.cfg), err)
		}
		// OnConnectHandler runs asynchronously; record the session now so a
		// publish right after Connect does not see a stale flag.
		c.setConnected(true)
		return nil
	case <-ctx.Done():
		c.client.Disconnect(0)
		return ctx.Err()
	case <-c.stopCh:
		c.client.Disconnect(0)
		return ErrStopped
	}
}

// Publish sends payload to topic and waits for the transport's success
// signal, ctx's deadline, or the configured publish timeout, whichever is first.
func (c *Client) Publish(ctx context.Context, topic string, payload []byte) error {
	if !c.IsConnected() {
		return ErrNotConnected
	}

	timeout := c.cfg.PublishTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	token := c.client.Publish(topic, c.cfg.QoS, false, payload)
	select {
	case <-token.Done():
	case <-ctx.Done():
		return fmt.Errorf("publish to %s: %w", topic, ctx.Err())
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}

	c.logger.Debug("mqtt published", "topic", topic, "bytes", len(payload), "qos", c.cfg.QoS)
	return nil
}

// IsConnected returns whether the client is connected.
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	connected := c.connected
	c.mu.RUnlock()
	return connected && c.client.IsConnected()
}

// Disconnect stops the client and closes the MQTT connection.
// Idempotent and safe to call multiple times.
// After Disconnect, Connect() returns ErrStopped.
func (c *Client) Disconnect() {
	c.stopOnce.Do(func() { close(c.stopCh) })

	// Paho Disconnect quiesces in-flight work for the given ms.
	if c.client != nil {
		c.client.Disconnect(250)
	}

	c.setConnected(false)
	c.logger.Info("mqtt disconnected")
}

func (c *Client) setConnected(v bool) {
	c.mu.Lock()
	c.connected = v
	c.mu.Unlock()
}
