package exporter

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/flosch/pongo2/v6"

	"chartmaster/renderer"
)

//go:embed templates/*.html
var templateFiles embed.FS

// Export settings shared by every artifact.
const (
	RasterScale      = 2.0
	RasterBackground = "#1e293b"
	PageBackground   = "#0f172a"
	MermaidCDN       = "https://cdn.jsdelivr.net/npm/mermaid@10/dist/mermaid.esm.min.mjs"

	baseName = "chart-master"
)

// Format names an export artifact type.
type Format string

const (
	FormatSVG  Format = "svg"
	FormatPNG  Format = "png"
	FormatHTML Format = "html"
	FormatCode Format = "code"
)

// ParseFormat accepts the format names used in URLs and CLI flags.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatSVG, FormatPNG, FormatHTML, FormatCode:
		return f, nil
	case "mmd", "mermaid":
		return FormatCode, nil
	default:
		return "", fmt.Errorf("unknown export format %q (want svg, png, html or code)", s)
	}
}

// Artifact is a file ready to hand to the user.
type Artifact struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Rasterizer draws markup into a PNG.
type Rasterizer interface {
	Rasterize(ctx context.Context, markup string, scale float64, background string) ([]byte, error)
}

// ErrNoRasterizer is returned by PNG when the exporter has no renderer.
var ErrNoRasterizer = errors.New("png export needs a diagram renderer")

// ErrNothingToExport is returned when the diagram has no usable content.
var ErrNothingToExport = errors.New("nothing to export")

// Exporter produces the downloadable artifacts for a rendered diagram.
type Exporter struct {
	raster Rasterizer
	page   *pongo2.Template
	theme  string
}

// New builds an Exporter. raster may be nil, in which case PNG export fails
// with ErrNoRasterizer. theme is the mermaid theme for the standalone page.
func New(raster Rasterizer, theme string) (*Exporter, error) {
	sub, err := fs.Sub(templateFiles, "templates")
	if err != nil {
		return nil, err
	}
	set := pongo2.NewSet("exporter", pongo2.NewFSLoader(sub))
	page, err := set.FromFile("standalone.html")
	if err != nil {
		return nil, fmt.Errorf("exporter: load standalone template: %w", err)
	}
	if theme == "" {
		theme = "dark"
	}
	return &Exporter{raster: raster, page: page, theme: theme}, nil
}

// Export dispatches to the artifact builder for format.
func (e *Exporter) Export(ctx context.Context, format Format, markup, explanation, svg string) (Artifact, error) {
	switch format {
	case FormatSVG:
		return e.SVG(svg)
	case FormatPNG:
		return e.PNG(ctx, markup)
	case FormatHTML:
		return e.HTML(markup, explanation)
	case FormatCode:
		return e.Code(markup)
	default:
		return Artifact{}, fmt.Errorf("unknown export format %q", format)
	}
}

// SVG packages rendered SVG as a standalone vector file.
func (e *Exporter) SVG(svg string) (Artifact, error) {
	if strings.TrimSpace(svg) == "" {
		return Artifact{}, ErrNothingToExport
	}
	return Artifact{
		Filename:    baseName + ".svg",
		ContentType: "image/svg+xml;charset=utf-8",
		Data:        []byte(renderer.EnsureNamespace(svg)),
	}, nil
}

// PNG rasterizes the markup at 2x on the dark card background.
func (e *Exporter) PNG(ctx context.Context, markup string) (Artifact, error) {
	if strings.TrimSpace(markup) == "" {
		return Artifact{}, ErrNothingToExport
	}
	if e.raster == nil {
		return Artifact{}, ErrNoRasterizer
	}
	data, err := e.raster.Rasterize(ctx, markup, RasterScale, RasterBackground)
	if err != nil {
		return Artifact{}, err
	}
	return Artifact{
		Filename:    baseName + ".png",
		ContentType: "image/png",
		Data:        data,
	}, nil
}

// HTML builds a self-contained page that re-renders the markup client-side
// with mermaid from the CDN.
func (e *Exporter) HTML(markup, explanation string) (Artifact, error) {
	if strings.TrimSpace(markup) == "" {
		return Artifact{}, ErrNothingToExport
	}
	explanationHTML, err := RenderExplanation(explanation)
	if err != nil {
		return Artifact{}, fmt.Errorf("exporter: render explanation: %w", err)
	}
	out, err := e.page.Execute(pongo2.Context{
		"title":            "ChartMaster Export",
		"mermaid_url":      MermaidCDN,
		"theme":            e.theme,
		"page_background":  PageBackground,
		"card_background":  RasterBackground,
		"code":             markup,
		"explanation_html": explanationHTML,
	})
	if err != nil {
		return Artifact{}, fmt.Errorf("exporter: execute standalone template: %w", err)
	}
	return Artifact{
		Filename:    baseName + ".html",
		ContentType: "text/html; charset=utf-8",
		Data:        []byte(out),
	}, nil
}

// Code returns the markup itself as a .mmd file.
func (e *Exporter) Code(markup string) (Artifact, error) {
	if strings.TrimSpace(markup) == "" {
		return Artifact{}, ErrNothingToExport
	}
	return Artifact{
		Filename:    baseName + ".mmd",
		ContentType: "text/plain; charset=utf-8",
		Data:        []byte(markup + "\n"),
	}, nil
}
