package main

import (
	"flag"
	"log"
	"os"

	"psm-modem-console/internal/console"
	"psm-modem-console/internal/daemon"
	"psm-modem-console/internal/modem"
)

func main() {
	configFile := flag.String("config", "", "Path to configuration file (defaults are used if omitted)")
	device := flag.String("device", "", "Serial device, overrides the configuration")
	suppressTimestamp := flag.Bool("no-timestamp", false, "Suppress timestamps in log output")
	flag.Parse()

	cfg, err := daemon.LoadConfig(*configFile, *device)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := daemon.NewLogger(*suppressTimestamp || cfg.SuppressTimestamp)

	session, err := daemon.OpenSession(cfg.Serial.Device, logger)
	if err != nil {
		logger.Fatalf("Failed to open modem: %v", err)
	}
	session.StartReader(modem.LogSink(logger))

	c := console.New(session, cfg.Network.AtNetwork(), os.Stdin, os.Stdout, logger)
	if err := c.Run(); err != nil {
		logger.Printf("Exit sequence: %v", err)
	}

	if err := session.Shutdown(); err != nil {
		logger.Printf("Error closing %s: %v", cfg.Serial.Device, err)
	}
	logger.Println("Serial port closed.")
}
