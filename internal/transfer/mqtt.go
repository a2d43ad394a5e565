package transfer

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

const (
	topicRoot     = "wearsync"
	presenceTopic = topicRoot + "/presence/"
)

// MQTTConfig configures the broker connection.
type MQTTConfig struct {
	Broker   string
	ClientID string
	DeviceID string
	Username string
	Password string
}

// MQTTTransport implements Transport over an MQTT broker. Retained publishes
// give PutItem its overwrite semantics; per-peer topics give SendMessage its
// addressing. Peer liveness comes from retained presence markers with a
// last-will that clears them on disconnect.
type MQTTTransport struct {
	client   mqtt.Client
	deviceID string
	logger   *zap.Logger

	mu    sync.Mutex
	peers map[string]bool
}

// NewMQTTTransport connects to the broker, announces presence, and starts
// tracking peers.
func NewMQTTTransport(cfg MQTTConfig, logger *zap.Logger) (*MQTTTransport, error) {
	t := &MQTTTransport{
		deviceID: cfg.DeviceID,
		logger:   logger,
		peers:    make(map[string]bool),
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}
	opts.SetAutoReconnect(true)
	opts.SetCleanSession(true)
	opts.SetWill(presenceTopic+cfg.DeviceID, "", 1, true)

	t.client = mqtt.NewClient(opts)
	if token := t.client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("connect to MQTT broker: %w", token.Error())
	}

	if token := t.client.Subscribe(presenceTopic+"+", 1, t.onPresence); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("subscribe to presence: %w", token.Error())
	}
	if token := t.client.Publish(presenceTopic+cfg.DeviceID, 1, true, "online"); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("announce presence: %w", token.Error())
	}

	return t, nil
}

func (t *MQTTTransport) onPresence(_ mqtt.Client, msg mqtt.Message) {
	peer := msg.Topic()[len(presenceTopic):]
	if peer == t.deviceID {
		return
	}
	t.mu.Lock()
	if len(msg.Payload()) == 0 {
		delete(t.peers, peer)
	} else {
		t.peers[peer] = true
	}
	t.mu.Unlock()
}

// PutItem publishes the keyed fields retained at QoS 0: latest write wins,
// no acknowledgment, no retry.
func (t *MQTTTransport) PutItem(_ context.Context, path string, fields map[string]any) error {
	data, err := json.Marshal(fields)
	if err != nil {
		return err
	}
	token := t.client.Publish(topicRoot+path, 0, true, data)
	token.Wait()
	return token.Error()
}

// SendMessage publishes data at QoS 1 to the peer's addressed topic.
func (t *MQTTTransport) SendMessage(_ context.Context, peerID, path string, data []byte) error {
	token := t.client.Publish(peerTopic(peerID, path), 1, false, data)
	token.Wait()
	if token.Error() != nil {
		return fmt.Errorf("send to peer %s: %w", peerID, token.Error())
	}
	return nil
}

// ConnectedPeers lists peers with a live presence marker.
func (t *MQTTTransport) ConnectedPeers(context.Context) ([]string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	peers := make([]string, 0, len(t.peers))
	for peer := range t.peers {
		peers = append(peers, peer)
	}
	return peers, nil
}

// Subscribe registers a handler for an absolute path on this device's
// receiving side. Used by the companion's ingestion service.
func (t *MQTTTransport) Subscribe(topic string, handler func(topic string, payload []byte)) error {
	token := t.client.Subscribe(topic, 1, func(_ mqtt.Client, msg mqtt.Message) {
		handler(msg.Topic(), msg.Payload())
	})
	if token.Wait(); token.Error() != nil {
		return fmt.Errorf("subscribe to %s: %w", topic, token.Error())
	}
	return nil
}

// LiveTopic is the broadcast topic carrying live telemetry.
func LiveTopic() string { return topicRoot + LiveTelemetryPath }

// InboxTopic is the addressed topic this device receives bulk transfers on.
func InboxTopic(deviceID string) string { return peerTopic(deviceID, SessionTransferPath) }

func peerTopic(peerID, path string) string {
	return fmt.Sprintf("%s/peer/%s%s", topicRoot, peerID, path)
}

// Close clears this device's presence marker and disconnects.
func (t *MQTTTransport) Close() {
	token := t.client.Publish(presenceTopic+t.deviceID, 1, true, "")
	token.Wait()
	t.client.Disconnect(250)
}
