package renderer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Result is one rendered diagram.
type Result struct {
	// ID is unique per render call and doubles as the SVG element id.
	ID  string
	SVG string
}

// CLI renders Mermaid markup by running mermaid-cli (mmdc) in a scratch
// directory per call. It is safe for concurrent use.
type CLI struct {
	cfg        Config
	exe        string
	configJSON []byte
	log        logrus.FieldLogger
}

// New resolves the executable and freezes cfg for the lifetime of the CLI.
func New(cfg Config, log logrus.FieldLogger) (*CLI, error) {
	cfg = cfg.withDefaults()
	exe, err := exec.LookPath(cfg.Command)
	if err != nil {
		return nil, &Error{
			Kind:    KindUnavailable,
			Message: msgUnavailable,
			Detail:  fmt.Sprintf("mermaid-cli %q not found", cfg.Command),
			Err:     err,
		}
	}
	configJSON, err := cfg.mermaidJSON()
	if err != nil {
		return nil, fmt.Errorf("failed to encode mermaid config: %w", err)
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &CLI{
		cfg:        cfg,
		exe:        exe,
		configJSON: configJSON,
		log:        log.WithField("component", "renderer"),
	}, nil
}

// Config returns a copy of the frozen configuration.
func (c *CLI) Config() Config {
	cfg := c.cfg
	cfg.Args = append([]string(nil), c.cfg.Args...)
	return cfg
}

// NewRenderID returns a fresh element id so repeated renders never collide.
func NewRenderID() string {
	return "mermaid-" + uuid.NewString()
}

// Render turns markup into a responsive SVG.
func (c *CLI) Render(ctx context.Context, markup string) (Result, error) {
	id := NewRenderID()
	out, err := c.run(ctx, id, markup, "svg", "-I", id, "-b", "transparent")
	if err != nil {
		return Result{}, err
	}
	return Result{ID: id, SVG: StripDimensions(string(out))}, nil
}

// Rasterize renders markup to PNG at the given scale on a solid background.
func (c *CLI) Rasterize(ctx context.Context, markup string, scale float64, background string) ([]byte, error) {
	if scale <= 0 {
		scale = 1
	}
	if background == "" {
		background = "white"
	}
	id := NewRenderID()
	return c.run(ctx, id, markup, "png",
		"-I", id,
		"-s", strconv.FormatFloat(scale, 'f', -1, 64),
		"-b", background,
	)
}

func (c *CLI) run(ctx context.Context, id, markup, ext string, extra ...string) ([]byte, error) {
	workDir, err := os.MkdirTemp("", "chartmaster-")
	if err != nil {
		return nil, fmt.Errorf("failed to create work dir: %w", err)
	}
	defer os.RemoveAll(workDir)

	inputPath := filepath.Join(workDir, "diagram.mmd")
	if err := os.WriteFile(inputPath, []byte(markup), 0o644); err != nil {
		return nil, fmt.Errorf("failed to write input file: %w", err)
	}
	configPath := filepath.Join(workDir, "mermaid.json")
	if err := os.WriteFile(configPath, c.configJSON, 0o644); err != nil {
		return nil, fmt.Errorf("failed to write mermaid config: %w", err)
	}
	outputPath := filepath.Join(workDir, "diagram."+ext)

	args := append([]string(nil), c.cfg.Args...)
	args = append(args, "-q", "-i", inputPath, "-o", outputPath, "-c", configPath, "-t", c.cfg.Theme)
	if c.cfg.PuppeteerConfig != "" {
		args = append(args, "-p", c.cfg.PuppeteerConfig)
	}
	args = append(args, extra...)

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, c.exe, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.Dir = workDir
	// mmdc spawns a headless browser; don't wait on its pipes forever once killed.
	cmd.WaitDelay = 2 * time.Second

	log := c.log.WithField("render_id", id)
	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			log.WithError(ctxErr).Warn("render aborted")
			return nil, &Error{Kind: KindRender, Message: "Render Error: renderer timed out", Err: ctxErr}
		}
		rerr := classify(stderr.String()+stdout.String(), err)
		log.WithField("kind", rerr.Kind.String()).Warnf("render failed: %s", rerr.Detail)
		return nil, rerr
	}

	data, err := os.ReadFile(outputPath)
	if err != nil {
		return nil, &Error{Kind: KindRender, Message: msgInvalidCode, Detail: "no output generated", Err: err}
	}
	if len(data) == 0 {
		return nil, &Error{Kind: KindRender, Message: msgInvalidCode, Detail: "empty output", Err: errors.New("empty output")}
	}
	log.Debugf("rendered %s (%d bytes)", ext, len(data))
	return data, nil
}
