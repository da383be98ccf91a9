package config

import (
	"fmt"
	"log/slog"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/TeamLLMTech/mottag-iot-sprint4/internal/batch"
)

// Config holds the settings every binary shares.
type Config struct {
	AppEnv   string
	LogLevel slog.Level
	MQTT     MQTT
}

// MQTT describes the broker session and the single feed topic.
type MQTT struct {
	Broker   string
	Port     int
	ClientID string
	Username string
	Password string
	Topic    string
	QoS      byte

	PublishTimeout time.Duration

	// ReconnectInterval is the fixed delay between connect attempts.
	ReconnectInterval time.Duration
	// ReconnectMaxAttempts bounds connect attempts per outage; 0 retries forever.
	ReconnectMaxAttempts uint64
}

func LoadFromEnv(defaultClientID string) (Config, error) {
	appEnv := strings.TrimSpace(os.Getenv("APP_ENV"))
	if appEnv == "" {
		appEnv = "dev"
	}
	switch appEnv {
	case "dev", "prod":
	default:
		return Config{}, fmt.Errorf("invalid APP_ENV %q (allowed: dev, prod)", appEnv)
	}

	logLevelStr := strings.TrimSpace(os.Getenv("LOG_LEVEL"))
	if logLevelStr == "" {
		logLevelStr = "info"
	}
	level, err := parseLogLevel(logLevelStr)
	if err != nil {
		return Config{}, err
	}

	mqttCfg, err := loadMQTT(defaultClientID)
	if err != nil {
		return Config{}, err
	}

	return Config{
		AppEnv:   appEnv,
		LogLevel: level,
		MQTT:     mqttCfg,
	}, nil
}

func loadMQTT(defaultClientID string) (MQTT, error) {
	broker := envOr("MQTT_BROKER", "localhost")

	port, err := envInt("MQTT_PORT", 1883)
	if err != nil {
		return MQTT{}, err
	}
	if port <= 0 || port > 65535 {
		return MQTT{}, fmt.Errorf("MQTT_PORT must be in 1..65535, got %d", port)
	}

	clientID := envOr("MQTT_CLIENT_ID", defaultClientID)

	topic := envOr("MQTT_TOPIC", "mottag/feed")
	if strings.ContainsAny(topic, "+#") {
		return MQTT{}, fmt.Errorf("invalid MQTT_TOPIC %q: wildcards are not allowed", topic)
	}

	qos, err := envInt("MQTT_QOS", 1)
	if err != nil {
		return MQTT{}, err
	}
	if qos < 0 || qos > 2 {
		return MQTT{}, fmt.Errorf("MQTT_QOS must be 0, 1 or 2, got %d", qos)
	}

	publishTimeout, err := envPositiveDuration("MQTT_PUBLISH_TIMEOUT", 5*time.Second)
	if err != nil {
		return MQTT{}, err
	}

	reconnectInterval, err := envPositiveDuration("MQTT_RECONNECT_INTERVAL", 5*time.Second)
	if err != nil {
		return MQTT{}, err
	}

	maxAttemptsStr := envOr("MQTT_RECONNECT_MAX_ATTEMPTS", "0")
	maxAttempts, err := strconv.ParseUint(maxAttemptsStr, 10, 64)
	if err != nil {
		return MQTT{}, fmt.Errorf("invalid MQTT_RECONNECT_MAX_ATTEMPTS %q: %w", maxAttemptsStr, err)
	}

	return MQTT{
		Broker:               broker,
		Port:                 port,
		ClientID:             clientID,
		Username:             strings.TrimSpace(os.Getenv("MQTT_USERNAME")),
		Password:             os.Getenv("MQTT_PASSWORD"),
		Topic:                topic,
		QoS:                  byte(qos),
		PublishTimeout:       publishTimeout,
		ReconnectInterval:    reconnectInterval,
		ReconnectMaxAttempts: maxAttempts,
	}, nil
}

// Antenna is the configuration of the scanning node.
type Antenna struct {
	Config

	NodeID        string
	KnownDevices  []string
	RSSICeiling   int
	ScanWindow    time.Duration
	BatchCapacity int
	BatchOverflow batch.OverflowPolicy
	BLEAdapter    string
}

var defaultKnownDevices = []string{
	"7C:EC:79:47:6C:5E",
	"7C:EC:79:47:89:BB",
	"D4:F5:13:79:E2:39",
	"51:00:24:06:00:FD",
}

func LoadAntennaFromEnv() (Antenna, error) {
	nodeID := envOr("NODE_ID", "antenna-1")

	base, err := LoadFromEnv("antenna-" + nodeID)
	if err != nil {
		return Antenna{}, err
	}

	known := defaultKnownDevices
	if s := strings.TrimSpace(os.Getenv("KNOWN_DEVICES")); s != "" {
		known, err = parseAddressList(s)
		if err != nil {
			return Antenna{}, err
		}
	}

	ceiling, err := envInt("RSSI_CEILING", -35)
	if err != nil {
		return Antenna{}, err
	}

	window, err := envPositiveDuration("SCAN_WINDOW", 3*time.Second)
	if err != nil {
		return Antenna{}, err
	}
	if window < time.Millisecond {
		return Antenna{}, fmt.Errorf("SCAN_WINDOW must be at least 1ms, got %v", window)
	}

	capacity, err := envInt("BATCH_CAPACITY", 512)
	if err != nil {
		return Antenna{}, err
	}
	if capacity <= 0 {
		return Antenna{}, fmt.Errorf("BATCH_CAPACITY must be positive, got %d", capacity)
	}

	overflow, err := batch.ParseOverflowPolicy(envOr("BATCH_OVERFLOW", "drop-oldest"))
	if err != nil {
		return Antenna{}, fmt.Errorf("BATCH_OVERFLOW: %w", err)
	}

	return Antenna{
		Config:        base,
		NodeID:        nodeID,
		KnownDevices:  known,
		RSSICeiling:   ceiling,
		ScanWindow:    window,
		BatchCapacity: capacity,
		BatchOverflow: overflow,
		BLEAdapter:    envOr("BLE_ADAPTER", "hci0"),
	}, nil
}

// Beacon is the configuration of the announcing companion device.
type Beacon struct {
	Config

	Name         string
	BLEAdapter   string
	LEDPin       string
	BuzzerPins   []string
	PollInterval time.Duration
}

func LoadBeaconFromEnv() (Beacon, error) {
	base, err := LoadFromEnv("beacon")
	if err != nil {
		return Beacon{}, err
	}

	var buzzers []string
	for _, p := range strings.Split(envOr("BEACON_BUZZER_PINS", "GPIO25,GPIO26"), ",") {
		if p = strings.TrimSpace(p); p != "" {
			buzzers = append(buzzers, p)
		}
	}
	if len(buzzers) == 0 {
		return Beacon{}, fmt.Errorf("BEACON_BUZZER_PINS must name at least one pin")
	}

	poll, err := envPositiveDuration("BEACON_POLL_INTERVAL", 20*time.Millisecond)
	if err != nil {
		return Beacon{}, err
	}

	return Beacon{
		Config:       base,
		Name:         envOr("BEACON_NAME", "ESP32"),
		BLEAdapter:   envOr("BLE_ADAPTER", "hci0"),
		LEDPin:       envOr("BEACON_LED_PIN", "GPIO18"),
		BuzzerPins:   buzzers,
		PollInterval: poll,
	}, nil
}

// Collector is the configuration of the feed ingest service.
type Collector struct {
	Config

	HTTPAddr string

	Driver          string
	DSN             string
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

func LoadCollectorFromEnv() (Collector, error) {
	base, err := LoadFromEnv("collector")
	if err != nil {
		return Collector{}, err
	}

	maxOpenConns, err := envInt("DB_MAX_OPEN_CONNS", 1)
	if err != nil {
		return Collector{}, err
	}
	maxIdleConns, err := envInt("DB_MAX_IDLE_CONNS", 1)
	if err != nil {
		return Collector{}, err
	}

	connMaxLifetimeStr := envOr("DB_CONN_MAX_LIFETIME", "0s")
	connMaxLifetime, err := time.ParseDuration(connMaxLifetimeStr)
	if err != nil {
		return Collector{}, fmt.Errorf("invalid DB_CONN_MAX_LIFETIME %q: %w", connMaxLifetimeStr, err)
	}

	return Collector{
		Config:          base,
		HTTPAddr:        envOr("HTTP_ADDR", ":8080"),
		Driver:          envOr("DB_DRIVER", "sqlite3"),
		DSN:             strings.TrimSpace(os.Getenv("DB_DSN")),
		Path:            envOr("SQLITE_PATH", "dev/sqlite/presence.db"),
		MaxOpenConns:    maxOpenConns,
		MaxIdleConns:    maxIdleConns,
		ConnMaxLifetime: connMaxLifetime,
	}, nil
}

// Simulator is the configuration of the synthetic antenna feed.
type Simulator struct {
	Config

	Antennas  [][2]float64
	TagAddr   string
	Delay     time.Duration
	Speed     float64
	Noise     float64
	RSSIAt1m  float64
	PathLossN float64
	Threshold float64
}

func LoadSimulatorFromEnv() (Simulator, error) {
	base, err := LoadFromEnv("simulator")
	if err != nil {
		return Simulator{}, err
	}

	antennas, err := parseAntennas(envOr("SIM_ANTENNAS", "10,0;0,0;0,10;10,10"))
	if err != nil {
		return Simulator{}, err
	}

	tag := envOr("SIM_TAG_ADDR", "7C:EC:79:47:89:BB")
	if _, err := parseAddressList(tag); err != nil {
		return Simulator{}, err
	}

	delay, err := envPositiveDuration("SIM_DELAY", 500*time.Millisecond)
	if err != nil {
		return Simulator{}, err
	}

	sim := Simulator{
		Config:  base,
		TagAddr: strings.ToUpper(tag),
		Delay:   delay,
	}
	defaults := []struct {
		key string
		dst *float64
		def float64
	}{
		{"SIM_SPEED", &sim.Speed, 2.0},
		{"SIM_NOISE", &sim.Noise, 1.0},
		{"SIM_RSSI_1M", &sim.RSSIAt1m, -40.0},
		{"SIM_PATHLOSS_N", &sim.PathLossN, 2.0},
		{"SIM_THRESHOLD", &sim.Threshold, 2.0},
	}
	for _, d := range defaults {
		v, err := envFloat(d.key, d.def)
		if err != nil {
			return Simulator{}, err
		}
		*d.dst = v
	}
	if sim.Speed <= 0 {
		return Simulator{}, fmt.Errorf("SIM_SPEED must be positive, got %v", sim.Speed)
	}
	if sim.Noise < 0 {
		return Simulator{}, fmt.Errorf("SIM_NOISE must not be negative, got %v", sim.Noise)
	}
	sim.Antennas = antennas
	return sim, nil
}

func parseAntennas(s string) ([][2]float64, error) {
	var out [][2]float64
	for _, pair := range strings.Split(s, ";") {
		pair = strings.Trim(strings.TrimSpace(pair), "()")
		if pair == "" {
			continue
		}
		xs, ys, ok := strings.Cut(pair, ",")
		if !ok {
			return nil, fmt.Errorf("invalid SIM_ANTENNAS entry %q (expected x,y)", pair)
		}
		x, err := strconv.ParseFloat(strings.TrimSpace(xs), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid SIM_ANTENNAS entry %q: %w", pair, err)
		}
		y, err := strconv.ParseFloat(strings.TrimSpace(ys), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid SIM_ANTENNAS entry %q: %w", pair, err)
		}
		out = append(out, [2]float64{x, y})
	}
	if len(out) < 4 {
		return nil, fmt.Errorf("SIM_ANTENNAS needs at least 4 antennas, got %d", len(out))
	}
	return out, nil
}

// parseAddressList parses a comma-separated list of colon-hex BLE addresses
// and returns them upper-cased.
func parseAddressList(s string) ([]string, error) {
	var out []string
	for _, a := range strings.Split(s, ",") {
		a = strings.TrimSpace(a)
		if a == "" {
			continue
		}
		hw, err := net.ParseMAC(a)
		if err != nil || len(hw) != 6 || strings.Count(a, ":") != 5 {
			return nil, fmt.Errorf("invalid device address %q (expected AA:BB:CC:DD:EE:FF)", a)
		}
		out = append(out, strings.ToUpper(a))
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("device address list is empty")
	}
	return out, nil
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q (allowed: debug, info, warn, error)", s)
	}
}

func envOr(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func envInt(key string, def int) (int, error) {
	s := strings.TrimSpace(os.Getenv(key))
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, s, err)
	}
	return n, nil
}

func envFloat(key string, def float64) (float64, error) {
	s := strings.TrimSpace(os.Getenv(key))
	if s == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, s, err)
	}
	return f, nil
}

func envPositiveDuration(key string, def time.Duration) (time.Duration, error) {
	s := strings.TrimSpace(os.Getenv(key))
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, s, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %v", key, d)
	}
	return d, nil
}
