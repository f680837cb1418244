package generator

import (
	"encoding/json"
	"errors"
	"io"
	"regexp"
	"strings"
)

var (
	trailingSemicolons = regexp.MustCompile(`(?m)(?:;[ \t]*)+$`)
	jsonFence          = regexp.MustCompile("(?s)^```(?:json)?\\s*(.*?)\\s*```$")
)

var lineBreaks = strings.NewReplacer("\r\n", "\n", "\r", "\n")

// Sanitize normalizes model-written Mermaid markup before it reaches the
// renderer: code fences go, trailing semicolons go, and mindmaps lose any
// classDef/style lines. Sanitize(Sanitize(x)) == Sanitize(x).
//
// A single pass can expose work for another one (a removed fence leaves a
// lone \r before \n, trimming \v uncovers a trailing ';'), so passes repeat
// until the text stops changing. Every pass that changes the text either
// shortens it or turns a \r into \n, so the loop ends.
func Sanitize(raw string) string {
	code := raw
	for {
		next := sanitizePass(code)
		if next == code {
			return code
		}
		code = next
	}
}

func sanitizePass(code string) string {
	code = removeAll(code, "```mermaid")
	code = removeAll(code, "```")
	code = lineBreaks.Replace(code)
	code = strings.TrimSpace(code)

	code = trailingSemicolons.ReplaceAllString(code, "")
	code = strings.TrimSpace(code)

	if strings.HasPrefix(code, "mindmap") {
		code = dropMindmapStyling(code)
	}
	return code
}

// removeAll deletes token until none is left, so removals that join two
// fragments into a new token are caught too.
func removeAll(s, token string) string {
	for strings.Contains(s, token) {
		s = strings.ReplaceAll(s, token, "")
	}
	return s
}

// Mindmaps reject classDef and style directives outright.
func dropMindmapStyling(code string) string {
	lines := strings.Split(code, "\n")
	kept := lines[:0]
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "classDef") || strings.HasPrefix(trimmed, "style") {
			continue
		}
		kept = append(kept, line)
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}

// ParseResult decodes the model's JSON answer into a DiagramResult.
func ParseResult(raw string) (DiagramResult, error) {
	body := strings.TrimSpace(raw)
	if body == "" {
		return DiagramResult{}, ErrEmptyResponse
	}
	if m := jsonFence.FindStringSubmatch(body); len(m) == 2 {
		body = m[1]
	}

	var res DiagramResult
	if err := json.Unmarshal([]byte(body), &res); err != nil {
		var syntaxErr *json.SyntaxError
		truncated := errors.Is(err, io.ErrUnexpectedEOF) ||
			(errors.As(err, &syntaxErr) && syntaxErr.Offset >= int64(len(body)))
		return DiagramResult{}, &ResponseError{Truncated: truncated, Err: err}
	}
	if strings.TrimSpace(res.Markup) == "" {
		return DiagramResult{}, &ResponseError{Err: errors.New(`missing "code" field`)}
	}
	return res, nil
}
