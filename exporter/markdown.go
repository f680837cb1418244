package exporter

import (
	"bytes"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
)

var (
	explanationPolicyOnce sync.Once
	explanationPolicy     *bluemonday.Policy
)

// RenderExplanation converts the model's explanation (Markdown) to HTML that
// is safe to embed in a page. Model output is untrusted, so everything goes
// through a UGC policy after conversion.
func RenderExplanation(md string) (string, error) {
	md = strings.TrimSpace(md)
	if md == "" {
		return "", nil
	}
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(md), &buf); err != nil {
		return "", err
	}
	return strings.TrimSpace(sanitizer().Sanitize(buf.String())), nil
}

func sanitizer() *bluemonday.Policy {
	explanationPolicyOnce.Do(func() {
		explanationPolicy = bluemonday.UGCPolicy()
	})
	return explanationPolicy
}
