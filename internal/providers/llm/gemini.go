package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

type geminiBackend struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

func newGemini(ctx context.Context, key string, cfg BackendConfig) (*geminiBackend, error) {
	opts := []option.ClientOption{option.WithAPIKey(key)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithEndpoint(cfg.BaseURL))
	}
	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("llm: gemini client: %w", err)
	}
	model := client.GenerativeModel(cfg.Model)
	model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(systemPrompt)}}
	model.ResponseMIMEType = "application/json"
	model.SetMaxOutputTokens(int32(cfg.MaxTokens))
	return &geminiBackend{client: client, model: model}, nil
}

func (b *geminiBackend) Name() string { return "gemini" }

func (b *geminiBackend) Complete(ctx context.Context, req Request) ([]string, error) {
	resp, err := b.model.GenerateContent(ctx, genai.Text(userPrompt(req)))
	if err != nil {
		return nil, err
	}
	return parseCompletions(responseText(resp), req.Word, req.Max)
}

// Close releases the client's connections.
func (b *geminiBackend) Close() error { return b.client.Close() }

// responseText joins the text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			sb.WriteString(string(t))
		}
	}
	return sb.String()
}
