package renderer

import (
	"fmt"
	"strings"
)

// ErrorKind separates markup the renderer rejected from renderer trouble.
type ErrorKind int

const (
	KindRender ErrorKind = iota
	KindParse
	KindUnavailable
)

func (k ErrorKind) String() string {
	switch k {
	case KindParse:
		return "parse"
	case KindUnavailable:
		return "unavailable"
	default:
		return "render"
	}
}

const (
	msgParse       = "Syntax Error: Failed to parse diagram structure."
	msgInvalidCode = "Syntax Error: The AI generated invalid diagram code."
	msgUnavailable = "Diagram renderer is not available."
)

// Error is a failed render. Message is shown to users, Detail is the
// renderer's own output and only logged.
type Error struct {
	Kind    ErrorKind
	Message string
	Detail  string
	Err     error
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Err }

// classify turns mmdc stderr into a user-facing render error.
func classify(stderr string, err error) *Error {
	detail := strings.TrimSpace(stderr)
	switch {
	case strings.Contains(detail, "Parse error"):
		return &Error{Kind: KindParse, Message: msgParse, Detail: detail, Err: err}
	case detail != "":
		return &Error{Kind: KindRender, Message: fmt.Sprintf("Render Error: %s", firstErrorLine(detail)), Detail: detail, Err: err}
	default:
		return &Error{Kind: KindRender, Message: msgInvalidCode, Err: err}
	}
}

// firstErrorLine picks the most telling line of a multi-line stderr dump.
func firstErrorLine(detail string) string {
	lines := strings.Split(detail, "\n")
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if strings.Contains(strings.ToLower(line), "error") {
			return line
		}
	}
	return strings.TrimSpace(lines[0])
}
