// Command psm-modem-console serves the modem session over HTTP: a web page
// and JSON API to send AT commands, and a WebSocket feed of all modem
// traffic including unsolicited output.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"psm-modem-console/internal/daemon"
	"psm-modem-console/internal/modem"
	"psm-modem-console/internal/web"
)

func main() {
	configFile := flag.String("config", "", "Path to configuration file (defaults are used if omitted)")
	device := flag.String("device", "", "Serial device, overrides the configuration")
	listen := flag.String("listen", "", "HTTP listen address, overrides the configuration")
	suppressTimestamp := flag.Bool("no-timestamp", false, "Suppress timestamps in log output")
	flag.Parse()

	cfg, err := daemon.LoadConfig(*configFile, *device)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *listen != "" {
		cfg.Web.Listen = *listen
	}

	logger := daemon.NewLogger(*suppressTimestamp || cfg.SuppressTimestamp)

	session, err := daemon.OpenSession(cfg.Serial.Device, logger)
	if err != nil {
		logger.Fatalf("Failed to open modem: %v", err)
	}

	webServer := web.NewServer(session, cfg.LogSize, logger)
	session.StartReader(modem.MultiSink(modem.LogSink(logger), webServer))

	httpServer := &http.Server{
		Addr:    cfg.Web.Listen,
		Handler: webServer.Handler(),
	}

	ctx, stop := daemon.SignalContext(context.Background())
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Printf("Starting server on %s", cfg.Web.Listen)
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.Println("Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Printf("Server stopped: %v", err)
	}

	if err := session.Shutdown(); err != nil {
		logger.Printf("Error closing %s: %v", cfg.Serial.Device, err)
	}
}
