package atcmd

import (
	"fmt"
	"strings"
)

// MaxLength is the longest command line accepted from remote clients,
// terminator excluded.
const MaxLength = 80

// Sanitize strips NUL bytes, surrounding whitespace and a trailing line
// terminator. Inner spacing is kept since some commands depend on it.
func Sanitize(input string) string {
	input = strings.ReplaceAll(input, "\u0000", "")
	return strings.TrimSpace(input)
}

// Validate checks a command line received from a remote client. It must be a
// single AT command: no embedded line breaks or control characters.
func Validate(line string) error {
	if line == "" {
		return fmt.Errorf("command cannot be empty")
	}

	if len(line) > MaxLength {
		return fmt.Errorf("command too long (max %d characters)", MaxLength)
	}

	for _, r := range line {
		if r < 0x20 || r == 0x7f {
			return fmt.Errorf("command contains control character %q", r)
		}
	}

	if len(line) < 2 || !strings.EqualFold(line[:2], "AT") {
		return fmt.Errorf("command must start with AT")
	}

	return nil
}
