package mqtt

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/TeamLLMTech/mottag-iot-sprint4/internal/config"
	"github.com/TeamLLMTech/mottag-iot-sprint4/internal/telemetry"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// BatchHandler is called for each valid batch received on the feed topic.
type BatchHandler func(batch telemetry.Batch) error

// MQTTSubscriber interface for attaching message handlers
type MQTTSubscriber interface {
	SetMessageHandler(handler BatchHandler)
}

const defaultConnectRetryInterval = 5 * time.Second

// Subscriber consumes the feed topic. Unlike Client it lets paho reconnect on
// its own and resubscribes from the connect callback.
type Subscriber struct {
	client    mqtt.Client
	cfg       config.MQTT
	logger    *slog.Logger
	mu        sync.RWMutex
	connected bool
	handler   BatchHandler

	stopCh   chan struct{}
	stopOnce sync.Once
}

func NewSubscriber(cfg config.MQTT, logger *slog.Logger) *Subscriber {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Subscriber{
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

	// The collector may start before the broker: the first connect keeps
	// retrying until it succeeds or Disconnect is called.
	retryInterval := cfg.ReconnectInterval
	if retryInterval <= 0 {
		retryInterval = defaultConnectRetryInterval
	}
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(retryInterval)
	opts.SetMaxReconnectInterval(retryInterval)

	// Keepalive / timeouts
	opts.SetKeepAlive(30 * time.Second)
	opts.SetPingTimeout(10 * time.Second)

	opts.SetOnConnectHandler(func(c mqtt.Client) {
		s.setConnected(true)
		logger.Info("mqtt connected", "broker", cfg.Broker, "port", cfg.Port, "client_id", cfg.ClientID)
		// A clean session loses subscriptions across reconnects.
		if err := s.subscribe(c); err != nil {
			logger.Error("mqtt subscribe failed", "topic", cfg.Topic, "error", err)
		}
	})

	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		s.setConnected(false)
		logger.Warn("mqtt connection lost", "error", err)
	})

	s.client = mqtt.NewClient(opts)
	return s
}

// SetMessageHandler sets the handler for decoded batches. Call it before Connect.
func (s *Subscriber) SetMessageHandler(handler BatchHandler) {
	s.mu.Lock()
	s.handler = handler
	s.mu.Unlock()
}

// Connect establishes the connection; the topic is subscribed from the
// connect callback. If ctx ends first, Connect returns its error while the
// client goes on retrying in the background.
func (s *Subscriber) Connect(ctx context.Context) error {
	select {
	case <-s.stopCh:
		return ErrStopped
	default:
	}

	if s.IsConnected() {
		return nil
	}

	token := s.client.Connect()

	// Wait in a ctx/stop-aware loop.
	const poll = 200 * time.Millisecond
	for {
		if token.WaitTimeout(poll) {
			if err := token.Error(); err != nil {
				return fmt.Errorf("mqtt connect %s: %w", brokerURL(s.cfg), err)
			}
			return nil
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("mqtt connect %s: %w", brokerURL(s.cfg), ctx.Err())
		case <-s.stopCh:
			s.client.Disconnect(0)
			return ErrStopped
		default:
		}
	}
}

func (s *Subscriber) subscribe(c mqtt.Client) error {
	topic := s.cfg.Topic
	qos := s.cfg.QoS

	token := c.Subscribe(topic, qos, func(_ mqtt.Client, msg mqtt.Message) {
		s.handleMessage(msg.Topic(), msg.Payload())
	})
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("subscribe timeout for topic %s", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("subscribe to %s: %w", topic, err)
	}

	s.logger.Info("subscribed to mqtt topic", "topic", topic, "qos", qos)
	return nil
}

func (s *Subscriber) handleMessage(topic string, payload []byte) {
	s.logger.Debug("received mqtt message", "topic", topic, "size", len(payload))

	// Decode also validates: aid, at least one event, addr on every event.
	batch, err := telemetry.Decode(payload)
	if err != nil {
		s.logger.Warn("invalid batch",
			"topic", topic,
			"error", err,
			"payload", string(payload),
		)
		return
	}

	s.mu.RLock()
	handler := s.handler
	s.mu.RUnlock()
	if handler == nil {
		return
	}

	if err := handler(batch); err != nil {
		s.logger.Error("message handler failed",
			"topic", topic,
			"aid", batch.AntennaID,
			"error", err,
		)
		return
	}
	s.logger.Debug("processed batch",
		"aid", batch.AntennaID,
		"time", batch.Time,
		"events", len(batch.Events),
	)
}

// IsConnected returns whether the client is connected.
func (s *Subscriber) IsConnected() bool {
	s.mu.RLock()
	connected := s.connected
	s.mu.RUnlock()
	return connected && s.client.IsConnected()
}

// Disconnect stops the subscriber and closes the MQTT connection.
// Idempotent and safe to call multiple times.
func (s *Subscriber) Disconnect() {
	s.stopOnce.Do(func() { close(s.stopCh) })

	if s.client != nil && s.IsConnected() {
		token := s.client.Unsubscribe(s.cfg.Topic)
		token.WaitTimeout(2 * time.Second)
	}

	if s.client != nil {
		s.client.Disconnect(250)
	}

	s.setConnected(false)
	s.logger.Info("mqtt subscriber disconnected")
}

func (s *Subscriber) setConnected(v bool) {
	s.mu.Lock()
	s.connected = v
	s.mu.Unlock()
}
