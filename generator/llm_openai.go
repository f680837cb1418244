package generator

import (
	"context"
	"errors"
	"net/http"
	"strings"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAILLM implements LLMClient using the official openai-go SDK (chat
// completions). Gemini and DeepSeek are reached through their
// OpenAI-compatible endpoints.
type OpenAILLM struct {
	Model string
	Opts  []option.RequestOption
}

func NewOpenAILLMFromConfig(cfg *LLMSettings) (*OpenAILLM, error) {
	if cfg == nil {
		return nil, errors.New("llm config is nil")
	}
	if cfg.APIKey == "" {
		return nil, errors.New("llm api key missing; provide llm.api_key or set llm.api_key_env")
	}

	model, baseURL := cfg.Model, cfg.BaseURL
	switch cfg.Provider {
	case ProviderGemini:
		if model == "" {
			model = GeminiModel
		}
		if baseURL == "" {
			baseURL = GeminiBaseURL
		}
	case ProviderDeepSeek:
		// DeepSeek only speaks the OpenAI protocol through an explicit gateway.
		if baseURL == "" {
			return nil, errors.New("llm provider deepseek requires base_url (OpenAI-compatible endpoint)")
		}
	}
	if model == "" {
		return nil, errors.New("llm model is required")
	}

	// Agent owns the retry policy; the SDK must not retry underneath it.
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}
	return &OpenAILLM{Model: model, Opts: opts}, nil
}

func (o *OpenAILLM) Complete(ctx context.Context, prompt Prompt) (string, error) {
	client := openai.NewClient(o.Opts...)

	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(o.Model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(prompt.System),
			openai.UserMessage(prompt.User),
		},
	}
	if prompt.Schema != nil {
		name := prompt.SchemaName
		if name == "" {
			name = "response"
		}
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
				JSONSchema: openai.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:   name,
					Schema: prompt.Schema,
					Strict: openai.Bool(true),
				},
			},
		}
	}

	resp, err := client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", translateSDKError(err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	choice := resp.Choices[0]
	content := choice.Message.Content
	if strings.TrimSpace(content) == "" {
		return "", ErrEmptyResponse
	}
	if choice.FinishReason == "length" {
		return "", &ResponseError{Truncated: true, Err: errors.New("finish_reason=length")}
	}
	return content, nil
}

// translateSDKError turns SDK API errors into StatusError so retry decisions
// are made on the status code rather than on message text.
func translateSDKError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		code := apiErr.StatusCode
		if code == 0 && apiErr.Response != nil {
			code = apiErr.Response.StatusCode
		}
		if code == 0 {
			code = http.StatusBadGateway
		}
		return &StatusError{StatusCode: code, Err: err}
	}
	return err
}
