// Package mqttingest bridges MQTT telemetry into the hub. Machines on the
// shop floor that cannot hold a WebSocket open publish readings to the broker
// instead; the bridge subscribes and feeds each payload through the same
// ingest path as a WebSocket frame.
//
// The bridge is one-way. MQTT-fed machines register no command channel, so
// routing a command to one reports the machine as not connected.
package mqttingest

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/factorypulse/factorypulse/server/internal/config"
	"github.com/factorypulse/factorypulse/server/internal/hub"
)

const (
	connectTimeout = 10 * time.Second
	keepAlive      = 60 * time.Second
	pingTimeout    = 10 * time.Second
	subscribeQoS   = 1
)

// Bridge is a running MQTT subscription feeding the hub.
type Bridge struct {
	client mqtt.Client
	topic  string
}

// Start connects to the broker and subscribes to the configured topic.
// It returns once the subscription is live; reconnects are handled by the
// client in the background.
func Start(cfg config.MQTTConfig, h *hub.Hub) (*Bridge, error) {
	topic := cfg.EffectiveTopic()

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID("factorypulse-" + strings.Split(uuid.NewString(), "-")[0])
	opts.SetUsername(cfg.Username())
	opts.SetPassword(cfg.Password())
	opts.SetAutoReconnect(true)
	opts.SetConnectTimeout(connectTimeout)
	opts.SetKeepAlive(keepAlive)
	opts.SetPingTimeout(pingTimeout)
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		slog.Warn("mqtt: connection lost", "err", err)
	})
	opts.SetOnConnectHandler(func(c mqtt.Client) {
		// Runs on every (re)connect, so the subscription survives broker
		// restarts.
		token := c.Subscribe(topic, subscribeQoS, func(_ mqtt.Client, msg mqtt.Message) {
			h.HandleMachineMessage(nil, msg.Payload())
		})
		token.Wait()
		if err := token.Error(); err != nil {
			slog.Error("mqtt: subscribe failed", "topic", topic, "err", err)
			return
		}
		slog.Info("mqtt: subscribed", "topic", topic)
	})

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt: connect to %q: %w", cfg.Broker, token.Error())
	}
	slog.Info("mqtt: connected", "broker", cfg.Broker)

	return &Bridge{client: client, topic: topic}, nil
}

// Close unsubscribes and disconnects from the broker.
func (b *Bridge) Close() {
	b.client.Unsubscribe(b.topic).Wait()
	b.client.Disconnect(250)
	slog.Info("mqtt: disconnected")
}
