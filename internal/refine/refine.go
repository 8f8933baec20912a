package refine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/conneroisu/groq-go"

	"storyvis/internal/media"
	"storyvis/pkg/prompts"
)

// Refiner rewrites a story excerpt into a prompt suited to the target media.
type Refiner interface {
	Refine(ctx context.Context, kind media.Kind, excerpt string) (string, error)
}

var _ Refiner = (*Client)(nil)

type Client struct {
	client  *groq.Client
	model   groq.ChatModel
	prompts *prompts.Prompts
}

func NewClient(apiKey, model string, p *prompts.Prompts) (*Client, error) {
	client, err := groq.NewClient(apiKey)
	if err != nil {
		return nil, fmt.Errorf("create groq client: %w", err)
	}

	return &Client{
		client:  client,
		model:   groq.ChatModel(model),
		prompts: p,
	}, nil
}

func (c *Client) Refine(ctx context.Context, kind media.Kind, excerpt string) (string, error) {
	params := prompts.RefineParams{Context: excerpt}

	var (
		prompt string
		err    error
	)
	switch kind {
	case media.KindVideo:
		prompt, err = c.prompts.RenderRefineVideo(params)
	default:
		prompt, err = c.prompts.RenderRefineImage(params)
	}
	if err != nil {
		return "", fmt.Errorf("render prompt: %w", err)
	}

	content, err := c.generate(ctx, c.prompts.System.Refine, prompt)
	if err != nil {
		return "", err
	}

	refined := cleanPrompt(content)
	slog.Debug("Refined prompt", "type", kind, "prompt", refined)
	return refined, nil
}

func cleanPrompt(raw string) string {
	p := strings.TrimSpace(raw)
	p = strings.Trim(p, "\"'")
	p = strings.TrimPrefix(p, "Prompt:")
	return strings.TrimSpace(p)
}

func (c *Client) generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	resp, err := c.client.ChatCompletion(ctx, groq.ChatCompletionRequest{
		Model: c.model,
		Messages: []groq.ChatCompletionMessage{
			{Role: groq.RoleSystem, Content: systemPrompt},
			{Role: groq.RoleUser, Content: userPrompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("generate: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response")
	}

	content := resp.Choices[0].Message.Content
	if strings.TrimSpace(content) == "" {
		return "", fmt.Errorf("empty response")
	}

	return content, nil
}
