// Package script runs send/expect scripts against the modem session.
//
// A script is a list of lines:
//
//	send 'AT'          single quotes: text plus CR
//	send "AT\r\n"      double quotes: \r and \n escapes, sent as written
//	send AT            bare: literal text plus CR
//	expect 'ok'        case-insensitive, anywhere in the received text
//	expect "+CPIN:"    case-sensitive, at the start of a line
//	expect /^\+CSQ/    regular expression, per line
//
// A send whose text does not already end in CR or LF is terminated with CR.
package script

import (
	"fmt"
	"regexp"
	"strings"

	"psm-modem-console/internal/atcmd"
)

type StepType string

const (
	Send   StepType = "send"
	Expect StepType = "expect"
)

type Step struct {
	Type  StepType
	Value string
}

type MatchType int

// Expect matching types
const (
	MatchCaseInsensitive MatchType = iota // single quotes 'text'
	MatchCaseSensitive                    // double quotes "text"
	MatchRegex                            // forward slashes /regex/
)

type Pattern struct {
	Raw       string
	Text      string
	MatchType MatchType
	Regex     *regexp.Regexp
}

// Parse splits script text into steps, skipping blank lines.
func Parse(text string) ([]Step, error) {
	var steps []Step
	lines := strings.Split(strings.TrimSpace(text), "\n")

	for i, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		switch {
		case strings.HasPrefix(line, "send "):
			steps = append(steps, Step{Type: Send, Value: strings.TrimPrefix(line, "send ")})
		case strings.HasPrefix(line, "expect "):
			value := strings.TrimPrefix(line, "expect ")
			if _, err := ParsePattern(value); err != nil {
				return nil, fmt.Errorf("line %d: invalid expect pattern %q: %w", i+1, value, err)
			}
			steps = append(steps, Step{Type: Expect, Value: value})
		default:
			return nil, fmt.Errorf("invalid command on line %d: %s", i+1, line)
		}
	}

	return steps, nil
}

// FormatSend resolves the quoting of a send value into the bytes to write.
func FormatSend(value string) string {
	if len(value) < 2 {
		return value
	}

	first := value[0]
	last := value[len(value)-1]
	content := value[1 : len(value)-1]

	switch {
	case first == '\'' && last == '\'':
		return content + "\r"
	case first == '"' && last == '"':
		toSend := strings.ReplaceAll(content, "\\r", "\r")
		return strings.ReplaceAll(toSend, "\\n", "\n")
	default:
		return value
	}
}

// SendCommand is the command line written for a send value.
func SendCommand(value string) atcmd.Command {
	text := FormatSend(value)
	if strings.HasSuffix(text, "\n") {
		return atcmd.Command(text)
	}
	return atcmd.New(text)
}

func ParsePattern(pattern string) (*Pattern, error) {
	if len(pattern) < 2 {
		return nil, fmt.Errorf("pattern too short")
	}

	first := pattern[0]
	last := pattern[len(pattern)-1]
	content := pattern[1 : len(pattern)-1]

	p := &Pattern{Raw: pattern, Text: content}

	switch {
	case first == '\'' && last == '\'':
		p.MatchType = MatchCaseInsensitive
	case first == '"' && last == '"':
		p.MatchType = MatchCaseSensitive
	case first == '/' && last == '/':
		regex, err := regexp.Compile(content)
		if err != nil {
			return nil, fmt.Errorf("invalid regex: %w", err)
		}
		p.MatchType = MatchRegex
		p.Regex = regex
	default:
		return nil, fmt.Errorf("invalid pattern format")
	}

	return p, nil
}

// Match reports whether received text satisfies the pattern. Line-based
// patterns look at every line, split on CR and LF.
func (p *Pattern) Match(received string) bool {
	if p.MatchType == MatchCaseInsensitive {
		return strings.Contains(strings.ToLower(received), strings.ToLower(p.Text))
	}

	lines := strings.FieldsFunc(received, func(r rune) bool { return r == '\r' || r == '\n' })
	for _, line := range lines {
		if p.MatchLine(line) {
			return true
		}
	}
	return false
}

func (p *Pattern) MatchLine(line string) bool {
	switch p.MatchType {
	case MatchCaseInsensitive:
		return strings.Contains(strings.ToLower(line), strings.ToLower(p.Text))
	case MatchCaseSensitive:
		return strings.HasPrefix(strings.TrimSpace(line), p.Text)
	case MatchRegex:
		return p.Regex.MatchString(line)
	}
	return false
}
