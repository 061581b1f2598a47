package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/joseph-ayodele/debitsheet-import/internal/common"
)

// MaxSampleChars bounds the raw reply kept on errors and audit rows.
const MaxSampleChars = 500

// UnparsableReplyError means no repair stage produced a JSON object.
type UnparsableReplyError struct {
	Sample string
	Cause  error
}

func (e *UnparsableReplyError) Error() string {
	return fmt.Sprintf("unparsable model reply: %v", e.Cause)
}

func (e *UnparsableReplyError) Unwrap() error { return e.Cause }

func (e *UnparsableReplyError) Is(target error) bool {
	return target == common.ErrUnparsableReply
}

// RepairStage is one textual fix applied before a parse retry.
type RepairStage struct {
	Name  string
	Apply func(string) string
}

// RepairLadder is applied in order and cumulatively: each stage sees the
// output of the previous ones.
var RepairLadder = []RepairStage{
	{Name: "strip_control_chars", Apply: stripControlChars},
	{Name: "escape_strings", Apply: escapeStrings},
	{Name: "greedy_object", Apply: greedyObject},
}

var (
	fenceOpen  = regexp.MustCompile("^```[A-Za-z0-9_-]*[ \t]*\r?\n?")
	fenceClose = regexp.MustCompile("\r?\n?```[ \t]*$")
)

// StripCodeFences removes a leading ``` fence with an optional language tag and
// the matching trailing fence.
func StripCodeFences(s string) string {
	t := strings.TrimSpace(s)
	if !strings.HasPrefix(t, "```") {
		return t
	}
	t = fenceOpen.ReplaceAllString(t, "")
	t = fenceClose.ReplaceAllString(t, "")
	return strings.TrimSpace(t)
}

// ParseJSONReply decodes the model reply into a JSON object, trying the repair
// ladder when the direct parse fails. It returns the name of the stage that
// succeeded ("direct" when no repair was needed).
func ParseJSONReply(reply string) (map[string]any, string, error) {
	text := StripCodeFences(reply)
	m, err := decodeObject(text)
	if err == nil {
		return m, "direct", nil
	}
	lastErr := err
	for _, stage := range RepairLadder {
		text = stage.Apply(text)
		m, err := decodeObject(text)
		if err == nil {
			return m, stage.Name, nil
		}
		lastErr = err
	}
	return nil, "", &UnparsableReplyError{Sample: Sample(reply, MaxSampleChars), Cause: lastErr}
}

func decodeObject(s string) (map[string]any, error) {
	var m map[string]any
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		return nil, err
	}
	if m == nil {
		return nil, errors.New("reply is not a JSON object")
	}
	return m, nil
}

// Sample returns at most n runes of s.
func Sample(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}

// stripControlChars drops C0 controls other than \n \r \t, DEL, and C1 controls.
func stripControlChars(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r == '\n' || r == '\r' || r == '\t':
			return r
		case r < 0x20, r == 0x7f, r >= 0x80 && r <= 0x9f:
			return -1
		default:
			return r
		}
	}, s)
}

// escapeStrings fixes string literals: raw newlines, carriage returns and tabs
// become escapes, and a backslash that does not start a valid escape is doubled.
func escapeStrings(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 16)
	inString := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !inString {
			if c == '"' {
				inString = true
			}
			b.WriteByte(c)
			continue
		}
		switch c {
		case '"':
			inString = false
			b.WriteByte(c)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		case '\\':
			if n := validEscapeLen(s[i:]); n > 0 {
				b.WriteString(s[i : i+n])
				i += n - 1
			} else {
				b.WriteString(`\\`)
			}
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// validEscapeLen returns the length of the escape sequence at the start of s, or 0.
func validEscapeLen(s string) int {
	if len(s) < 2 {
		return 0
	}
	switch s[1] {
	case '"', '\\', '/', 'b', 'f', 'n', 'r', 't':
		return 2
	case 'u':
		if len(s) < 6 {
			return 0
		}
		for _, h := range s[2:6] {
			if !strings.ContainsRune("0123456789abcdefABCDEF", h) {
				return 0
			}
		}
		return 6
	}
	return 0
}

// greedyObject keeps the text from the first '{' to the last '}'.
func greedyObject(s string) string {
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end <= start {
		return s
	}
	return s[start : end+1]
}
