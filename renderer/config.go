package renderer

import (
	"encoding/json"
	"time"
)

// Config is the renderer's session-wide setup. It is copied into the CLI at
// construction and never changes afterwards.
type Config struct {
	// Command is the mermaid-cli executable, "mmdc" when empty.
	Command string
	// Args are prepended to every invocation, e.g. ["-y", "@mermaid-js/mermaid-cli"] for npx.
	Args []string
	// PuppeteerConfig is an optional puppeteer JSON file passed with -p.
	PuppeteerConfig string

	Theme         string
	SecurityLevel string
	FontFamily    string
	Curve         string
	MaxTextSize   int

	Timeout time.Duration
}

// DefaultConfig matches the dark UI: dark theme, loose security, Inter font.
func DefaultConfig() Config {
	return Config{
		Command:       "mmdc",
		Theme:         "dark",
		SecurityLevel: "loose",
		FontFamily:    "Inter, sans-serif",
		Curve:         "basis",
		MaxTextSize:   50000,
		Timeout:       30 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Command == "" {
		c.Command = d.Command
	}
	if c.Theme == "" {
		c.Theme = d.Theme
	}
	if c.SecurityLevel == "" {
		c.SecurityLevel = d.SecurityLevel
	}
	if c.FontFamily == "" {
		c.FontFamily = d.FontFamily
	}
	if c.Curve == "" {
		c.Curve = d.Curve
	}
	if c.MaxTextSize <= 0 {
		c.MaxTextSize = d.MaxTextSize
	}
	if c.Timeout <= 0 {
		c.Timeout = d.Timeout
	}
	c.Args = append([]string(nil), c.Args...)
	return c
}

type mermaidConfig struct {
	StartOnLoad   bool             `json:"startOnLoad"`
	Theme         string           `json:"theme"`
	SecurityLevel string           `json:"securityLevel"`
	FontFamily    string           `json:"fontFamily"`
	MaxTextSize   int              `json:"maxTextSize"`
	Flowchart     flowchartOptions `json:"flowchart"`
}

type flowchartOptions struct {
	Curve string `json:"curve"`
}

// mermaidJSON is the file handed to mmdc with -c.
func (c Config) mermaidJSON() ([]byte, error) {
	return json.MarshalIndent(mermaidConfig{
		Theme:         c.Theme,
		SecurityLevel: c.SecurityLevel,
		FontFamily:    c.FontFamily,
		MaxTextSize:   c.MaxTextSize,
		Flowchart:     flowchartOptions{Curve: c.Curve},
	}, "", "  ")
}
