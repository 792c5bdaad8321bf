package config

import (
	"encoding/xml"
	"fmt"
	"log"
	"os"

	"psm-modem-console/internal/atcmd"
	"psm-modem-console/internal/serialport"
)

// Config is the XML configuration shared by the console, the web server, the
// MQTT bridge and the script runner.
type Config struct {
	XMLName           xml.Name      `xml:"config"`
	Serial            SerialConfig  `xml:"serial"`
	Network           NetworkConfig `xml:"network"`
	MQTT              MQTTConfig    `xml:"mqtt"`
	Web               WebConfig     `xml:"web"`
	Script            string        `xml:"script"`
	SuppressTimestamp bool          `xml:"suppressTimestamp,attr"`
	LogSize           int           `xml:"logSize,attr"`
}

// SerialConfig only names the device; the line settings are fixed.
type SerialConfig struct {
	Device string `xml:"device,attr"`
}

type NetworkConfig struct {
	APN       string `xml:"apn,attr"`
	Server    string `xml:"server,attr"`
	Port      int    `xml:"port,attr"`
	PIN       string `xml:"pin,attr"`
	Context   int    `xml:"context,attr"`
	Socket    int    `xml:"socket,attr"`
	PSMRingMs int    `xml:"psmRingMs,attr"` // ring indicator pulse while in PSM
}

type MQTTConfig struct {
	Broker        string `xml:"broker,attr"`
	Port          int    `xml:"port,attr"`
	Username      string `xml:"username,attr"`
	Password      string `xml:"password,attr"`
	ClientID      string `xml:"clientId,attr"`
	BaseTopic     string `xml:"baseTopic,attr"`
	RetryInterval int    `xml:"retryInterval,attr"` // seconds between connection attempts
	MaxRetries    int    `xml:"maxRetries,attr"`    // 0 = infinite retries
}

type WebConfig struct {
	Listen string `xml:"listen,attr"`
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads filename and fills in defaults for everything left unset.
func Load(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", filename, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}

	log.Printf("Loaded configuration from: %s", filename)
	return cfg, nil
}

func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := xml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse XML config: %w", err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Serial.Device == "" {
		c.Serial.Device = serialport.DefaultDevice
	}
	if c.LogSize <= 0 {
		c.LogSize = 50
	}

	n := &c.Network
	if n.APN == "" {
		n.APN = "internet"
	}
	if n.Server == "" {
		n.Server = "161.230.159.26"
	}
	if n.Port == 0 {
		n.Port = 5000
	}
	if n.PIN == "" {
		n.PIN = "0000"
	}
	if n.Context == 0 {
		n.Context = 2
	}
	if n.Socket == 0 {
		n.Socket = 5
	}
	if n.PSMRingMs == 0 {
		n.PSMRingMs = 500
	}

	m := &c.MQTT
	if m.Broker == "" {
		m.Broker = "localhost"
	}
	if m.Port == 0 {
		m.Port = 1883
	}
	if m.BaseTopic == "" {
		m.BaseTopic = "modem"
	}
	if m.RetryInterval == 0 {
		m.RetryInterval = 5 // default 5 seconds
	}

	if c.Web.Listen == "" {
		c.Web.Listen = ":8080"
	}
}

// AtNetwork converts the network section for the command builders.
func (n NetworkConfig) AtNetwork() atcmd.Network {
	return atcmd.Network{
		APN:       n.APN,
		Server:    n.Server,
		Port:      n.Port,
		PIN:       n.PIN,
		Context:   n.Context,
		Socket:    n.Socket,
		PSMRingMs: n.PSMRingMs,
	}
}
