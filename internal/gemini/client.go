package gemini

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"google.golang.org/genai"

	"storyvis/internal/media"
)

var _ media.Provider = (*Client)(nil)

type Client struct {
	client *genai.Client
}

type Options struct {
	BaseURL    string
	HTTPClient *http.Client
}

func NewClient(ctx context.Context, apiKey string, opts Options) (*Client, error) {
	cfg := &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: opts.HTTPClient,
	}
	if opts.BaseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: opts.BaseURL}
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	return &Client{client: client}, nil
}

// Factory returns a media.ProviderFactory that builds a new client per call.
func Factory(opts Options) media.ProviderFactory {
	return func(ctx context.Context, apiKey string) (media.Provider, error) {
		return NewClient(ctx, apiKey, opts)
	}
}

func (c *Client) GenerateImages(ctx context.Context, req media.ImageRequest) ([][]byte, error) {
	resp, err := c.client.Models.GenerateImages(ctx, req.Model, req.Prompt, &genai.GenerateImagesConfig{
		NumberOfImages: int32(req.NumberOfImages),
		OutputMIMEType: req.MIMEType,
		AspectRatio:    req.AspectRatio,
	})
	if err != nil {
		return nil, err
	}

	images := make([][]byte, 0, len(resp.GeneratedImages))
	for _, img := range resp.GeneratedImages {
		if img == nil || img.Image == nil || len(img.Image.ImageBytes) == 0 {
			continue
		}
		images = append(images, img.Image.ImageBytes)
	}

	return images, nil
}

func (c *Client) GenerateVideos(ctx context.Context, req media.VideoRequest) (*media.Operation, error) {
	op, err := c.client.Models.GenerateVideos(ctx, req.Model, req.Prompt, nil, &genai.GenerateVideosConfig{
		NumberOfVideos: int32(req.NumberOfVideos),
		Resolution:     req.Resolution,
		AspectRatio:    req.AspectRatio,
	})
	if err != nil {
		return nil, err
	}
	return toOperation(op), nil
}

func (c *Client) GetVideosOperation(ctx context.Context, op *media.Operation) (*media.Operation, error) {
	handle, ok := op.Handle.(*genai.GenerateVideosOperation)
	if !ok || handle == nil {
		return nil, fmt.Errorf("operation %q has no gemini handle", op.Name)
	}

	next, err := c.client.Operations.GetVideosOperation(ctx, handle, nil)
	if err != nil {
		return nil, err
	}
	return toOperation(next), nil
}

func toOperation(op *genai.GenerateVideosOperation) *media.Operation {
	if op == nil {
		return nil
	}

	out := &media.Operation{
		Name:   op.Name,
		Done:   op.Done,
		Error:  formatError(op.Error),
		Handle: op,
	}

	if op.Response != nil && len(op.Response.GeneratedVideos) > 0 {
		if v := op.Response.GeneratedVideos[0]; v != nil && v.Video != nil {
			out.VideoURI = v.Video.URI
		}
	}

	return out
}

func formatError(e map[string]any) string {
	if len(e) == 0 {
		return ""
	}
	if msg, ok := e["message"].(string); ok && msg != "" {
		return msg
	}

	keys := make([]string, 0, len(e))
	for k := range e {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, e[k]))
	}
	return strings.Join(parts, ", ")
}
