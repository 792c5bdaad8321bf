package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"psm-modem-console/internal/daemon"
	"psm-modem-console/internal/modem"
	"psm-modem-console/internal/script"
)

func main() {
	configFile := flag.String("config", "", "XML configuration file")
	device := flag.String("device", "", "Serial device, overrides the configuration")
	noTimestamp := flag.Bool("no-timestamp", false, "Disable timestamp in log output")
	dryRun := flag.String("dry-run", "", "Dry run mode: specify text file with captured serial input")
	timeout := flag.Duration("timeout", script.DefaultExpectTimeout, "How long each expect waits")
	flag.Parse()

	if *configFile == "" {
		fmt.Fprintf(os.Stderr, "Usage: %s -config <xml-file> [-device <tty>] [-no-timestamp] [-dry-run <input-file>]\n", os.Args[0])
		os.Exit(1)
	}

	cfg, err := daemon.LoadConfig(*configFile, *device)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to parse config: %v\n", err)
		os.Exit(1)
	}

	logger := daemon.NewLogger(*noTimestamp || cfg.SuppressTimestamp)

	steps, err := script.Parse(cfg.Script)
	if err != nil {
		logger.Fatalf("Failed to parse script: %v", err)
	}

	if *dryRun != "" {
		logger.Printf("Running in dry-run mode with input file: %s", *dryRun)
		input, err := os.ReadFile(*dryRun)
		if err != nil {
			logger.Fatalf("Failed to read dry-run input: %v", err)
		}
		if err := script.DryRun(steps, string(input), os.Stdout, logger); err != nil {
			logger.Fatalf("Dry run failed: %v", err)
		}
		logger.Println("Script completed successfully")
		return
	}

	session, err := daemon.OpenSession(cfg.Serial.Device, logger)
	if err != nil {
		logger.Fatalf("Failed to open serial port: %v", err)
	}

	runner := script.NewRunner(session, *timeout, logger)
	session.StartReader(modem.MultiSink(modem.LogSink(logger), runner))

	start := time.Now()
	runErr := runner.Run(steps)
	if err := session.Shutdown(); err != nil {
		logger.Printf("Error closing %s: %v", cfg.Serial.Device, err)
	}
	if runErr != nil {
		logger.Fatalf("Script execution failed: %v", runErr)
	}

	logger.Printf("Script completed successfully in %s", time.Since(start).Round(time.Millisecond))
}
