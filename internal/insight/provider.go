package insight

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	openai "github.com/sashabaranov/go-openai"
)

const systemPrompt = `You are a specialized legal document assistant. ` +
	`Analyze the provided legal document and answer the user's question ` +
	`accurately, citing the relevant clauses where possible. If the ` +
	`document does not contain the answer, say so plainly.`

// Documents can be long; keep the prompt inside model context.
const maxDocumentChars = 8000

const (
	defaultMaxTokens   = 1500
	defaultTemperature = 0.3
)

// Analyzer answers a query against extracted document text.
type Analyzer interface {
	Analyze(ctx context.Context, documentText, query string) (string, error)
	Name() string
}

// NewAnalyzer selects a provider. Without an API key it falls back to
// the mock analyzer so the app stays runnable in local sandboxes.
func NewAnalyzer(provider, model, openAIKey, anthropicKey string) Analyzer {
	switch provider {
	case "anthropic":
		if anthropicKey != "" {
			return &anthropicAnalyzer{
				client: anthropic.NewClient(option.WithAPIKey(anthropicKey)),
				model:  model,
			}
		}
	default:
		if openAIKey != "" {
			return &openAIAnalyzer{
				client: openai.NewClient(openAIKey),
				model:  model,
			}
		}
	}
	return &mockAnalyzer{}
}

func userPrompt(documentText, query string) string {
	if len(documentText) > maxDocumentChars {
		documentText = documentText[:maxDocumentChars]
	}
	return fmt.Sprintf("Legal Document Content:\n%s\n\nUser Query: %s\n\nPlease analyze the document and provide a comprehensive response to the user's query.", documentText, query)
}

type openAIAnalyzer struct {
	client *openai.Client
	model  string
}

func (a *openAIAnalyzer) Name() string { return "openai" }

func (a *openAIAnalyzer) Analyze(ctx context.Context, documentText, query string) (string, error) {
	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: a.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt(documentText, query)},
		},
		MaxTokens:   defaultMaxTokens,
		Temperature: defaultTemperature,
	})
	if err != nil {
		return "", fmt.Errorf("openai analysis: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai analysis: empty response")
	}
	return resp.Choices[0].Message.Content, nil
}

type anthropicAnalyzer struct {
	client anthropic.Client
	model  string
}

func (a *anthropicAnalyzer) Name() string { return "anthropic" }

func (a *anthropicAnalyzer) Analyze(ctx context.Context, documentText, query string) (string, error) {
	resp, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(a.model),
		MaxTokens: defaultMaxTokens,
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt(documentText, query))),
		},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic analysis: %w", err)
	}

	var out string
	for _, block := range resp.Content {
		if block.Type == "text" {
			out += block.Text
		}
	}
	if out == "" {
		return "", fmt.Errorf("anthropic analysis: empty response")
	}
	return out, nil
}

// mockAnalyzer produces deterministic output for runs without an API
// key, such as local sandboxes and CI.
type mockAnalyzer struct{}

func (a *mockAnalyzer) Name() string { return "mock" }

func (a *mockAnalyzer) Analyze(_ context.Context, documentText, query string) (string, error) {
	return fmt.Sprintf("Mock Analysis: This would analyze the document for query: %q. Document length: %d characters.", query, len(documentText)), nil
}
