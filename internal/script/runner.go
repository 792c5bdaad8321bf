package script

import (
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"psm-modem-console/internal/atcmd"
)

const DefaultExpectTimeout = 30 * time.Second

type Sender interface {
	Send(cmd atcmd.Command) ([]byte, error)
}

// Runner executes steps through the session. Expect steps are matched
// against what the session returned for the preceding sends plus any
// unsolicited output delivered through Unsolicited.
type Runner struct {
	sender   Sender
	logger   *log.Logger
	timeout  time.Duration
	readChan chan []byte
	received strings.Builder
}

func NewRunner(sender Sender, timeout time.Duration, logger *log.Logger) *Runner {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	if timeout <= 0 {
		timeout = DefaultExpectTimeout
	}
	return &Runner{
		sender:   sender,
		logger:   logger,
		timeout:  timeout,
		readChan: make(chan []byte, 100),
	}
}

// Unsolicited queues background reader output for pending expects. Output
// that arrives while the queue is full is dropped.
func (r *Runner) Unsolicited(data []byte) {
	select {
	case r.readChan <- data:
	default:
		r.logger.Printf("Dropping unsolicited output: %q", data)
	}
}

func (r *Runner) Run(steps []Step) error {
	for _, step := range steps {
		switch step.Type {
		case Send:
			if err := r.handleSend(step.Value); err != nil {
				return err
			}
		case Expect:
			if err := r.handleExpect(step.Value); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *Runner) handleSend(value string) error {
	cmd := SendCommand(value)
	resp, err := r.sender.Send(cmd)
	r.received.Write(resp)
	if err != nil {
		return fmt.Errorf("failed to send %q: %w", cmd.Text(), err)
	}
	return nil
}

func (r *Runner) handleExpect(value string) error {
	pattern, err := ParsePattern(value)
	if err != nil {
		return fmt.Errorf("invalid expect pattern %q: %w", value, err)
	}

	r.logger.Printf("EXPECT: %s", value)

	timeout := time.After(r.timeout)
	for {
		if pattern.Match(r.received.String()) {
			r.logger.Printf("MATCHED: %s", value)
			r.received.Reset()
			return nil
		}

		select {
		case data := <-r.readChan:
			r.received.Write(data)
		case <-timeout:
			return fmt.Errorf("timeout waiting for pattern: %s", value)
		}
	}
}

// DryRun replays captured modem output line by line against the script,
// printing what would be sent, without touching a device.
func DryRun(steps []Step, input string, out io.Writer, logger *log.Logger) error {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	lines := strings.Split(input, "\n")
	lineIndex := 0

	logger.Println("=== DRY RUN MODE ===")

	for _, step := range steps {
		switch step.Type {
		case Send:
			fmt.Fprintf(out, "\033[1mTX: %q\033[0m\n", SendCommand(step.Value))

		case Expect:
			pattern, err := ParsePattern(step.Value)
			if err != nil {
				return fmt.Errorf("invalid expect pattern %q: %w", step.Value, err)
			}
			logger.Printf("EXPECT: %s", step.Value)

			found := false
			for lineIndex < len(lines) {
				line := strings.TrimRight(lines[lineIndex], "\r")
				lineIndex++
				logger.Printf("RX: %s", line)
				if pattern.MatchLine(line) {
					logger.Printf("MATCHED: %s", step.Value)
					found = true
					break
				}
			}
			if !found {
				return fmt.Errorf("pattern not found in remaining input: %s", step.Value)
			}
		}
	}

	logger.Println("=== DRY RUN COMPLETED ===")
	return nil
}
