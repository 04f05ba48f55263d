package llm

import (
	"context"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

type openAIBackend struct {
	client openai.Client
	cfg    BackendConfig
}

func newOpenAI(key string, cfg BackendConfig) *openAIBackend {
	opts := []option.RequestOption{option.WithAPIKey(key), option.WithMaxRetries(1)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &openAIBackend{client: openai.NewClient(opts...), cfg: cfg}
}

func (b *openAIBackend) Name() string { return "openai" }

func (b *openAIBackend) Complete(ctx context.Context, req Request) ([]string, error) {
	resp, err := b.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: shared.ChatModel(b.cfg.Model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(userPrompt(req)),
		},
		MaxCompletionTokens: openai.Int(int64(b.cfg.MaxTokens)),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		},
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, ErrBadResponse
	}
	return parseCompletions(resp.Choices[0].Message.Content, req.Word, req.Max)
}
