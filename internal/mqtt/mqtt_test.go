package mqtt

import (
	"context"
	"io"
	"log/slog"
	"net"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/TeamLLMTech/mottag-iot-sprint4/internal/config"
	"github.com/TeamLLMTech/mottag-iot-sprint4/internal/telemetry"

	mochi "github.com/mochi-mqtt/server/v2"
	"github.com/mochi-mqtt/server/v2/hooks/auth"
	"github.com/mochi-mqtt/server/v2/listeners"
	"github.com/stretchr/testify/require"
)

const (
	brokerUser     = "antenna"
	brokerPassword = "s3cret"
	feedTopic      = "mottag/feed"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	require.NoError(t, l.Close())
	return port
}

// startBroker runs an in-process broker that only admits brokerUser.
func startBroker(t *testing.T) int {
	t.Helper()
	port := freePort(t)
	startBrokerOn(t, port)
	return port
}

func startBrokerOn(t *testing.T, port int) {
	t.Helper()
	server := mochi.New(&mochi.Options{InlineClient: false, Logger: discardLogger()})
	err := server.AddHook(new(auth.Hook), &auth.Options{
		Ledger: &auth.Ledger{
			Auth: auth.AuthRules{
				{Username: auth.RString(brokerUser), Password: auth.RString(brokerPassword), Allow: true},
			},
		},
	})
	require.NoError(t, err)

	tcp := listeners.NewTCP(listeners.Config{
		Type:    "tcp",
		ID:      "t1",
		Address: "127.0.0.1:" + strconv.Itoa(port),
	})
	require.NoError(t, server.AddListener(tcp))
	require.NoError(t, server.Serve())
	t.Cleanup(func() { _ = server.Close() })
}

func testConfig(port int, clientID string) config.MQTT {
	return config.MQTT{
		Broker:            "127.0.0.1",
		Port:              port,
		ClientID:          clientID,
		Username:          brokerUser,
		Password:          brokerPassword,
		Topic:             feedTopic,
		QoS:               1,
		PublishTimeout:    2 * time.Second,
		ReconnectInterval: time.Second,
	}
}

type received struct {
	mu      sync.Mutex
	batches []telemetry.Batch
}

func (r *received) handle(b telemetry.Batch) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batches = append(r.batches, b)
	return nil
}

func (r *received) snapshot() []telemetry.Batch {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]telemetry.Batch(nil), r.batches...)
}

func TestClientPublish_ReachesSubscriber(t *testing.T) {
	port := startBroker(t)
	ctx := context.Background()

	var got received
	sub := NewSubscriber(testConfig(port, "collector-test"), discardLogger())
	sub.SetMessageHandler(got.handle)
	require.NoError(t, sub.Connect(ctx))
	t.Cleanup(sub.Disconnect)

	client := NewClient(testConfig(port, "antenna-test"), discardLogger())
	require.NoError(t, client.Connect(ctx))
	t.Cleanup(client.Disconnect)
	require.True(t, client.IsConnected())

	batch := telemetry.Batch{
		AntennaID: "node1",
		Time:      5000,
		Events:    []telemetry.Sample{{Address: "AA:BB:CC:DD:EE:FF", RSSI: -60, ObservedAt: 4200}},
	}
	payload, err := telemetry.Encode(batch)
	require.NoError(t, err)

	// The subscription is made from the connect callback; publish until it lands.
	require.Eventually(t, func() bool {
		if err := client.Publish(ctx, feedTopic, payload); err != nil {
			return false
		}
		return len(got.snapshot()) > 0
	}, 5*time.Second, 100*time.Millisecond)

	require.Equal(t, batch, got.snapshot()[0])
}

func TestSubscriber_ConnectsOnceBrokerComesUp(t *testing.T) {
	port := freePort(t)
	cfg := testConfig(port, "collector-test")
	cfg.ReconnectInterval = 100 * time.Millisecond

	var got received
	sub := NewSubscriber(cfg, discardLogger())
	sub.SetMessageHandler(got.handle)
	t.Cleanup(sub.Disconnect)

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, sub.Connect(ctx), context.DeadlineExceeded)
	require.False(t, sub.IsConnected())

	startBrokerOn(t, port)
	require.Eventually(t, sub.IsConnected, 5*time.Second, 50*time.Millisecond)

	client := NewClient(testConfig(port, "antenna-test"), discardLogger())
	require.NoError(t, client.Connect(context.Background()))
	t.Cleanup(client.Disconnect)

	batch := telemetry.Batch{
		AntennaID: "node3",
		Time:      9000,
		Events:    []telemetry.Sample{{Address: "AA:BB:CC:DD:EE:03", RSSI: -55, ObservedAt: 8800}},
	}
	payload, err := telemetry.Encode(batch)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		if err := client.Publish(context.Background(), feedTopic, payload); err != nil {
			return false
		}
		return len(got.snapshot()) > 0
	}, 5*time.Second, 100*time.Millisecond)
	require.Equal(t, batch, got.snapshot()[0])
}

func TestSubscriber_DropsInvalidPayloads(t *testing.T) {
	port := startBroker(t)
	ctx := context.Background()

	var got received
	sub := NewSubscriber(testConfig(port, "collector-test"), discardLogger())
	sub.SetMessageHandler(got.handle)
	require.NoError(t, sub.Connect(ctx))
	t.Cleanup(sub.Disconnect)

	client := NewClient(testConfig(port, "antenna-test"), discardLogger())
	require.NoError(t, client.Connect(ctx))
	t.Cleanup(client.Disconnect)

	valid := []byte(`{"aid":"node2","time":10,"events":[{"addr":"AA:BB:CC:DD:EE:01","rssi":-70,"t":9}]}`)
	invalid := [][]byte{
		[]byte(`not json`),
		[]byte(`{"aid":"","time":1,"events":[{"addr":"X","rssi":-1,"t":1}]}`),
		[]byte(`{"aid":"node2","time":1,"events":[]}`),
	}

	require.Eventually(t, func() bool {
		for _, p := range invalid {
			if err := client.Publish(ctx, feedTopic, p); err != nil {
				return false
			}
		}
		if err := client.Publish(ctx, feedTopic, valid); err != nil {
			return false
		}
		return len(got.snapshot()) > 0
	}, 5*time.Second, 100*time.Millisecond)

	for _, b := range got.snapshot() {
		require.Equal(t, "node2", b.AntennaID)
		require.Len(t, b.Events, 1)
	}
}

func TestClientConnect_RejectedCredentials(t *testing.T) {
	port := startBroker(t)

	cfg := testConfig(port, "intruder")
	cfg.Password = "wrong"
	client := NewClient(cfg, discardLogger())
	t.Cleanup(client.Disconnect)

	err := client.Connect(context.Background())
	require.Error(t, err)
	require.False(t, client.IsConnected())
}

func TestClientConnect_NoBroker(t *testing.T) {
	client := NewClient(testConfig(freePort(t), "antenna-test"), discardLogger())
	t.Cleanup(client.Disconnect)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.Error(t, client.Connect(ctx))
}

func TestClientPublish_NotConnected(t *testing.T) {
	client := NewClient(testConfig(freePort(t), "antenna-test"), discardLogger())
	t.Cleanup(client.Disconnect)

	err := client.Publish(context.Background(), feedTopic, []byte("{}"))
	require.ErrorIs(t, err, ErrNotConnected)
}

func TestClientConnect_AfterDisconnect(t *testing.T) {
	port := startBroker(t)
	client := NewClient(testConfig(port, "antenna-test"), discardLogger())
	client.Disconnect()
	client.Disconnect()

	require.ErrorIs(t, client.Connect(context.Background()), ErrStopped)
}
