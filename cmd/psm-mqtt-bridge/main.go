package main

import (
	"context"
	"flag"
	"log"

	"golang.org/x/sync/errgroup"

	"psm-modem-console/internal/bridge"
	"psm-modem-console/internal/daemon"
	"psm-modem-console/internal/modem"
)

func main() {
	configFile := flag.String("config", "config.xml", "Path to configuration file")
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

	b := bridge.New(cfg.MQTT, session, logger)
	session.StartReader(modem.MultiSink(modem.LogSink(logger), b))

	ctx, stop := daemon.SignalContext(context.Background())
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return b.ConnectWithRetry(ctx)
	})
	g.Go(func() error {
		<-ctx.Done()
		return nil
	})

	logger.Printf("PSM MQTT bridge on %s, command topic %s", cfg.Serial.Device, b.Topics().Command)

	if err := g.Wait(); err != nil {
		logger.Printf("Bridge stopped: %v", err)
	}

	logger.Println("Shutting down...")
	b.Disconnect()
	if err := session.Shutdown(); err != nil {
		logger.Printf("Error closing %s: %v", cfg.Serial.Device, err)
	}
}
