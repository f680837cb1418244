package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"chartmaster/config"
	"chartmaster/exporter"
	"chartmaster/generator"
	"chartmaster/renderer"
)

func buildLLM(cfg config.Config, log logrus.FieldLogger) (generator.LLMClient, error) {
	if cfg.LLM == nil || cfg.LLM.Provider == "" {
		return nil, fmt.Errorf("llm config missing; please set llm.provider/model/api_key_env in config")
	}

	var client generator.LLMClient
	switch cfg.LLM.Provider {
	case generator.ProviderGemini, generator.ProviderOpenAI, generator.ProviderDeepSeek:
		if cfg.LLM.APIKey == "" {
			return nil, fmt.Errorf("llm api key missing; set llm.api_key or the %s environment variable", cfg.LLM.APIKeyEnv)
		}
		// 三者都走 OpenAI 兼容接口，只是默认 base_url / model 不同。
		llm, err := generator.NewOpenAILLMFromConfig(&generator.LLMSettings{
			Provider: cfg.LLM.Provider,
			Model:    cfg.LLM.Model,
			APIKey:   cfg.LLM.APIKey,
			BaseURL:  cfg.LLM.BaseURL,
			Timeout:  cfg.LLM.Timeout(),
		})
		if err != nil {
			return nil, err
		}
		client = llm
	case generator.ProviderMock:
		client = generator.MockLLM{}
	default:
		return nil, fmt.Errorf("llm provider %s not supported", cfg.LLM.Provider)
	}

	if !cfg.Breaker.Enabled {
		return client, nil
	}
	breaker, err := generator.NewBreakerLLM(client, generator.BreakerSettings{
		ConsecutiveFailures: cfg.Breaker.ConsecutiveFailures,
		OpenTimeout:         cfg.Breaker.OpenTimeout(),
	}, log)
	if err != nil {
		return nil, err
	}
	return breaker, nil
}

func buildAgent(cfg config.Config, log logrus.FieldLogger) (*generator.Agent, error) {
	llm, err := buildLLM(cfg, log)
	if err != nil {
		return nil, err
	}
	return generator.NewAgent(llm,
		generator.WithMaxAttempts(cfg.Retry.MaxAttempts),
		generator.WithBaseDelay(cfg.Retry.BaseDelay()),
		generator.WithLogger(log),
	)
}

func rendererConfig(c config.RenderConfig) renderer.Config {
	return renderer.Config{
		Command:         c.Command,
		Args:            c.Args,
		PuppeteerConfig: c.PuppeteerConfig,
		Theme:           c.Theme,
		SecurityLevel:   c.SecurityLevel,
		FontFamily:      c.FontFamily,
		Curve:           c.Curve,
		MaxTextSize:     c.MaxTextSize,
		Timeout:         c.Timeout(),
	}
}

// buildRenderer returns nil when mermaid-cli is not installed; callers fall
// back to browser rendering or refuse formats that need it.
func buildRenderer(cfg config.Config, log logrus.FieldLogger) *renderer.CLI {
	rend, err := renderer.New(rendererConfig(cfg.Renderer), log)
	if err != nil {
		log.WithError(err).Warn("mermaid-cli unavailable; diagrams will be drawn in the browser")
		return nil
	}
	return rend
}

func rasterizerOf(rend *renderer.CLI) exporter.Rasterizer {
	if rend == nil {
		return nil
	}
	return rend
}

// exportMarkup writes one artifact for markup. Formats that need a rendered
// diagram start mermaid-cli on demand.
func exportMarkup(cmd *cobra.Command, format exporter.Format, markup, explanation, out string) error {
	var rend *renderer.CLI
	if format == exporter.FormatSVG || format == exporter.FormatPNG {
		if rend = buildRenderer(cfg, log); rend == nil {
			return fmt.Errorf("%s output needs mermaid-cli (%s) on PATH", format, cfg.Renderer.Command)
		}
	}
	exp, err := exporter.New(rasterizerOf(rend), cfg.Renderer.Theme)
	if err != nil {
		return err
	}

	var svg string
	if format == exporter.FormatSVG {
		res, err := rend.Render(cmd.Context(), markup)
		if err != nil {
			return err
		}
		svg = res.SVG
	}

	art, err := exp.Export(cmd.Context(), format, markup, explanation, svg)
	if err != nil {
		return err
	}
	if out == "-" || (out == "" && format == exporter.FormatCode) {
		_, err = cmd.OutOrStdout().Write(art.Data)
		return err
	}
	if out == "" {
		out = art.Filename
	}
	if err := os.WriteFile(out, art.Data, 0o644); err != nil {
		return err
	}
	log.WithField("format", string(format)).Infof("wrote %s (%d bytes)", out, len(art.Data))
	return nil
}
