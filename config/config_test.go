package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("API_KEY", " secret ")

	cfg, err := Load("does-not-exist.json")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := Default()
	want.LLM.APIKey = "secret"
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Fatalf("config mismatch (-want +got):\n%s", diff)
	}
	if cfg.Retry.BaseDelay() != time.Second || cfg.Renderer.Timeout() != 30*time.Second {
		t.Fatalf("durations = %s, %s", cfg.Retry.BaseDelay(), cfg.Renderer.Timeout())
	}
}

func TestLoadYAML(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("CHART_KEY", "from-env")
	path := writeFile(t, dir, "chartmaster.yaml", `
server_addr: ":9090"
llm:
  provider: openai
  model: gpt-4o-mini
  api_key_env: CHART_KEY
retry:
  max_attempts: 5
renderer:
  command: npx
  args: ["-y", "@mermaid-js/mermaid-cli"]
  theme: forest
log:
  level: debug
store_size: 4
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ServerAddr != ":9090" || cfg.StoreSize != 4 || cfg.Log.Level != "debug" {
		t.Fatalf("top level = %+v", cfg)
	}
	wantLLM := LLMConfig{Provider: "openai", Model: "gpt-4o-mini", APIKey: "from-env", APIKeyEnv: "CHART_KEY"}
	if diff := cmp.Diff(wantLLM, *cfg.LLM); diff != "" {
		t.Fatalf("llm mismatch (-want +got):\n%s", diff)
	}
	if cfg.Retry.MaxAttempts != 5 || cfg.Retry.BaseDelayMS != 1000 {
		t.Fatalf("retry = %+v", cfg.Retry)
	}
	if diff := cmp.Diff([]string{"-y", "@mermaid-js/mermaid-cli"}, cfg.Renderer.Args); diff != "" {
		t.Fatalf("renderer args (-want +got):\n%s", diff)
	}
	if cfg.Renderer.Theme != "forest" || cfg.Renderer.TimeoutMS != 30000 {
		t.Fatalf("renderer = %+v", cfg.Renderer)
	}
}

func TestLoadJSONWithInlineKey(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	path := writeFile(t, dir, "config.json", `{"llm":{"provider":"gemini","api_key":"inline"}}`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LLM.APIKey != "inline" || cfg.LLM.APIKeyEnv != DefaultAPIKeyEnv {
		t.Fatalf("llm = %+v", cfg.LLM)
	}
}

func TestLoadReadsDotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("DOTENV_KEY", "")
	os.Unsetenv("DOTENV_KEY")
	writeFile(t, dir, ".env", "DOTENV_KEY=from-dotenv\n")
	path := writeFile(t, dir, "config.json", `{"llm":{"api_key_env":"DOTENV_KEY"}}`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LLM.APIKey != "from-dotenv" {
		t.Fatalf("api key = %q", cfg.LLM.APIKey)
	}
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("API_KEY", "")

	cases := []struct {
		name, file, body, want string
	}{
		{"bad json", "c.json", `{"llm":`, "parse"},
		{"bad yaml", "c.yml", "llm: [", "parse"},
		{"unknown provider", "c.json", `{"llm":{"provider":"bard","api_key":"k"}}`, "not supported"},
		{"too many attempts", "c.json", `{"llm":{"provider":"mock"},"retry":{"max_attempts":50}}`, "too large"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeFile(t, dir, tc.file, tc.body)
			_, err := Load(path)
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("Load err = %v, want containing %q", err, tc.want)
			}
		})
	}
}

func TestLoadWithoutKey(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("API_KEY", "")
	path := writeFile(t, dir, "c.json", `{"llm":{"provider":"gemini"}}`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LLM.APIKey != "" {
		t.Fatalf("api key = %q", cfg.LLM.APIKey)
	}
}
