// Package bridge exposes the modem session over MQTT.
package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	uuid "github.com/google/uuid"

	"psm-modem-console/internal/atcmd"
	"psm-modem-console/internal/config"
	"psm-modem-console/internal/modem"
)

type Sender interface {
	Send(cmd atcmd.Command) ([]byte, error)
	State() modem.State
}

type CommandResult struct {
	ID        string `json:"id"`
	Command   string `json:"command"`
	Response  string `json:"response"`
	State     string `json:"state"`
	Error     string `json:"error,omitempty"`
	Timestamp string `json:"timestamp"`
}

type Topics struct {
	Command  string
	Response string
	State    string
	URC      string
}

func NewTopics(base string) Topics {
	base = strings.TrimSuffix(base, "/")
	return Topics{
		Command:  base + "/command",
		Response: base + "/response",
		State:    base + "/state",
		URC:      base + "/urc",
	}
}

// Bridge subscribes to the command topic, runs each payload through the
// session and publishes the result, the PSM state and unsolicited output.
type Bridge struct {
	cfg    config.MQTTConfig
	topics Topics
	sender Sender
	client mqtt.Client
	logger *log.Logger
}

func New(cfg config.MQTTConfig, sender Sender, logger *log.Logger) *Bridge {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	b := &Bridge{
		cfg:    cfg,
		topics: NewTopics(cfg.BaseTopic),
		sender: sender,
		logger: logger,
	}
	// One client for the life of the bridge; Connect is retried on it.
	b.client = mqtt.NewClient(b.clientOptions())
	return b
}

func (b *Bridge) Topics() Topics {
	return b.topics
}

// ConnectWithRetry keeps trying to reach the broker every RetryInterval
// seconds, giving up after MaxRetries attempts (0 means never) or when ctx
// is done.
func (b *Bridge) ConnectWithRetry(ctx context.Context) error {
	retryCount := 0

	for {
		err := b.connect()
		if err == nil {
			return nil
		}

		retryCount++

		if b.cfg.MaxRetries > 0 && retryCount >= b.cfg.MaxRetries {
			return fmt.Errorf("failed to connect to MQTT after %d attempts: %w", retryCount, err)
		}

		b.logger.Printf("Failed to connect to MQTT (attempt %d): %v", retryCount, err)
		b.logger.Printf("Waiting %d seconds before retry...", b.cfg.RetryInterval)

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(time.Duration(b.cfg.RetryInterval) * time.Second):
		}
	}
}

func (b *Bridge) brokerURL() string {
	return fmt.Sprintf("tcp://%s:%d", b.cfg.Broker, b.cfg.Port)
}

func (b *Bridge) clientOptions() *mqtt.ClientOptions {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(b.brokerURL())

	clientID := b.cfg.ClientID
	if clientID == "" {
		clientID = fmt.Sprintf("psm_bridge_%d", time.Now().Unix())
	}
	opts.SetClientID(clientID)
	if b.cfg.Username != "" {
		opts.SetUsername(b.cfg.Username)
	}
	if b.cfg.Password != "" {
		opts.SetPassword(b.cfg.Password)
	}

	opts.SetConnectTimeout(10 * time.Second)
	opts.SetKeepAlive(30 * time.Second)
	opts.SetPingTimeout(5 * time.Second)
	opts.SetAutoReconnect(true)
	opts.SetMaxReconnectInterval(time.Duration(b.cfg.RetryInterval) * time.Second)
	// Commands block on the modem; each message gets its own goroutine.
	opts.SetOrderMatters(false)

	opts.SetConnectionLostHandler(func(client mqtt.Client, err error) {
		b.logger.Printf("MQTT connection lost: %v", err)
	})

	// Resubscribe after every (re)connect
	opts.SetOnConnectHandler(func(client mqtt.Client) {
		b.logger.Println("Connected to MQTT broker")
		token := client.Subscribe(b.topics.Command, 1, func(client mqtt.Client, msg mqtt.Message) {
			b.handleMessage(msg.Payload())
		})
		if token.Wait() && token.Error() != nil {
			b.logger.Printf("Failed to subscribe to %s: %v", b.topics.Command, token.Error())
			return
		}
		b.logger.Printf("Subscribed to command topic: %s", b.topics.Command)
		b.publishState()
	})

	return opts
}

func (b *Bridge) connect() error {
	b.logger.Printf("Attempting to connect to MQTT broker at %s...", b.brokerURL())
	if token := b.client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	return nil
}

func (b *Bridge) handleMessage(payload []byte) {
	result, ok := b.execute(payload)
	if !ok {
		return
	}

	jsonResult, err := json.Marshal(result)
	if err != nil {
		b.logger.Printf("Error marshaling result: %v", err)
		return
	}
	b.publish(b.topics.Response, false, jsonResult)
	b.publishState()
}

// execute runs one command payload through the session. Empty payloads are
// ignored.
func (b *Bridge) execute(payload []byte) (CommandResult, bool) {
	line := atcmd.Sanitize(string(payload))
	if line == "" {
		b.logger.Printf("Ignoring empty command on %s", b.topics.Command)
		return CommandResult{}, false
	}

	id := uuid.NewString()
	if err := atcmd.Validate(line); err != nil {
		b.logger.Printf("Rejected command %s: %v", id, err)
		return CommandResult{
			ID:        id,
			Command:   line,
			State:     b.sender.State().String(),
			Error:     err.Error(),
			Timestamp: time.Now().Format(time.RFC3339),
		}, true
	}

	cmd := atcmd.New(line)
	b.logger.Printf("Received command %s: %q", id, cmd)

	resp, err := b.sender.Send(cmd)
	result := CommandResult{
		ID:        id,
		Command:   cmd.Text(),
		Response:  string(resp),
		State:     b.sender.State().String(),
		Timestamp: time.Now().Format(time.RFC3339),
	}
	if err != nil {
		b.logger.Printf("Command %s failed: %v", id, err)
		result.Error = err.Error()
	}
	return result, true
}

// Unsolicited publishes background reader output on the URC topic.
func (b *Bridge) Unsolicited(data []byte) {
	b.publish(b.topics.URC, false, data)
}

func (b *Bridge) publishState() {
	b.publish(b.topics.State, true, []byte(b.sender.State().String()))
}

func (b *Bridge) publish(topic string, retained bool, payload []byte) {
	if !b.client.IsConnected() {
		b.logger.Printf("Not connected, dropping message for %s", topic)
		return
	}
	token := b.client.Publish(topic, 1, retained, payload)
	if token.Wait() && token.Error() != nil {
		b.logger.Printf("Error publishing to %s: %v", topic, token.Error())
	}
}

func (b *Bridge) Disconnect() {
	if b.client.IsConnected() {
		b.client.Disconnect(250)
		b.logger.Println("Disconnected from MQTT broker")
	}
}
