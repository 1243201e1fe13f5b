package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/elvisdt/HT-MONITOR-BLE/internal/beacon"
	"github.com/elvisdt/HT-MONITOR-BLE/internal/config"
	"github.com/elvisdt/HT-MONITOR-BLE/pkg/types"
)

const publishTimeout = 5 * time.Second

// Client forwards accepted tablet records to the broker. It satisfies
// beacon.Sink.
type Client struct {
	client    mqtt.Client
	cfg       config.Config
	logger    *slog.Logger
	mu        sync.RWMutex
	connected bool

	stopCh   chan struct{}
	stopOnce sync.Once
}

func NewClient(cfg config.Config, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MQTTClientID == "" {
		cfg.MQTTClientID = "ht-monitor-" + uuid.NewString()[:8]
	}

	c := &Client{
		cfg:    cfg,
		logger: logger,
		stopCh: make(chan struct{}),
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(BrokerURL(cfg.MQTTBroker, cfg.MQTTPort))
	opts.SetClientID(cfg.MQTTClientID)

	opts.SetCleanSession(true)

	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)
	opts.SetMaxReconnectInterval(60 * time.Second)

	opts.SetKeepAlive(30 * time.Second)
	opts.SetPingTimeout(10 * time.Second)

	opts.SetOnConnectHandler(func(_ mqtt.Client) {
		c.setConnected(true)
		logger.Info("mqtt connected", "broker", cfg.MQTTBroker, "port", cfg.MQTTPort, "client_id", cfg.MQTTClientID)
	})

	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		c.setConnected(false)
		logger.Warn("mqtt connection lost", "error", err)
	})

	c.client = mqtt.NewClient(opts)
	return c, nil
}

// ClientID returns the identifier presented to the broker.
func (c *Client) ClientID() string { return c.cfg.MQTTClientID }

// Connect waits for the initial connection, respecting ctx and Disconnect().
func (c *Client) Connect(ctx context.Context) error {
	select {
	case <-c.stopCh:
		return fmt.Errorf("client stopped")
	default:
	}

	if c.IsConnected() {
		return nil
	}

	// With ConnectRetry(true) the token may stay pending while paho retries.
	token := c.client.Connect()

	const poll = 200 * time.Millisecond
	for {
		if token.WaitTimeout(poll) {
			if err := token.Error(); err != nil {
				return fmt.Errorf("mqtt connect: %w", err)
			}
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.stopCh:
			return fmt.Errorf("client stopped")
		default:
		}
	}
}

// Publish sends one accepted record to <prefix>/<tablet_id>/battery.
func (c *Client) Publish(obs beacon.Observation, rec beacon.Record) error {
	if !c.IsConnected() {
		return fmt.Errorf("mqtt client not connected")
	}

	topic := BatteryTopic(c.cfg.MQTTTopicPrefix, rec.TabletID)
	data, err := json.Marshal(NewBatteryTelemetry(obs, rec))
	if err != nil {
		return fmt.Errorf("marshal telemetry: %w", err)
	}

	token := c.client.Publish(topic, 1, false, data)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publish timeout for topic %s", topic)
	}
	if token.Error() != nil {
		return fmt.Errorf("publish telemetry: %w", token.Error())
	}

	c.logger.Debug("published telemetry", "topic", topic, "tablet_id", rec.TabletID, "seq", rec.Seq)
	return nil
}

func (c *Client) IsConnected() bool {
	c.mu.RLock()
	connected := c.connected
	c.mu.RUnlock()
	return connected && c.client.IsConnected()
}

// Disconnect is idempotent. After it, Connect returns "client stopped".
func (c *Client) Disconnect() {
	c.stopOnce.Do(func() { close(c.stopCh) })

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

func BrokerURL(host string, port int) string {
	return fmt.Sprintf("tcp://%s:%d", host, port)
}

func BatteryTopic(prefix string, tabletID uint16) string {
	if prefix == "" {
		return fmt.Sprintf("%d/battery", tabletID)
	}
	return fmt.Sprintf("%s/%d/battery", prefix, tabletID)
}

func NewBatteryTelemetry(obs beacon.Observation, rec beacon.Record) types.BatteryTelemetry {
	ts := obs.SeenAt
	if ts.IsZero() {
		ts = time.Now()
	}
	return types.BatteryTelemetry{
		TabletID:       rec.TabletID,
		Address:        obs.Address,
		Name:           obs.Name,
		RSSI:           obs.RSSI,
		Timestamp:      ts.UTC(),
		BatteryPercent: rec.BatteryPercent,
		Charging:       rec.Flags.Charging(),
		Full:           rec.Flags.Full(),
		Plugged:        rec.Flags.Plugged(),
		Temperature:    rec.TempC,
		Voltage:        rec.VoltageMV,
		Sequence:       rec.Seq,
	}
}
