package generator

import (
	"context"
	"time"
)

// LLMClient 抽象大模型客户端：一次调用对应一次请求，不做重试（重试由 Agent 负责）。
type LLMClient interface {
	Complete(ctx context.Context, prompt Prompt) (string, error)
}

const (
	ProviderGemini   = "gemini"
	ProviderOpenAI   = "openai"
	ProviderDeepSeek = "deepseek"
	ProviderMock     = "mock"

	// GeminiBaseURL is Gemini's OpenAI-compatible chat completions endpoint.
	GeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai/"
	GeminiModel   = "gemini-2.5-flash"
)

// LLMSettings configures a concrete client.
type LLMSettings struct {
	Provider string
	Model    string
	APIKey   string
	BaseURL  string
	// Timeout bounds a single request; zero leaves it to the caller's context.
	Timeout time.Duration
}
