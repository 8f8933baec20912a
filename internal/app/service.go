package app

import (
	"context"
	"fmt"
	"strings"

	"storyvis/internal/apperr"
	"storyvis/internal/keys"
	"storyvis/internal/media"
	"storyvis/internal/refine"
	"storyvis/internal/story"
)

type Generator interface {
	GenerateImage(ctx context.Context, prompt string) (*media.Result, error)
	GenerateVideo(ctx context.Context, prompt string, onProgress func(string), opts ...media.VideoOption) (*media.Result, error)
}

// Request is one submission from the user. When Sentence is set the prompt is
// the context window around it in Story, otherwise Prompt is used verbatim.
type Request struct {
	Story    string `json:"story"`
	Sentence string `json:"sentence"`
	Prompt   string `json:"prompt"`
	Type     string `json:"type"`
	Refine   bool   `json:"refine"`
}

type Service struct {
	generator Generator
	refiner   refine.Refiner
	selector  keys.Selector
	keyStore  *keys.Store
}

type ServiceOptions struct {
	Generator Generator
	Refiner   refine.Refiner
	Selector  keys.Selector
	KeyStore  *keys.Store
}

func NewService(opts ServiceOptions) *Service {
	return &Service{
		generator: opts.Generator,
		refiner:   opts.Refiner,
		selector:  opts.Selector,
		keyStore:  opts.KeyStore,
	}
}

func (s *Service) Selector() keys.Selector {
	return s.selector
}

func (s *Service) KeyStore() *keys.Store {
	return s.keyStore
}

func (s *Service) CanRefine() bool {
	return s.refiner != nil
}

func (s *Service) ExtractContext(fullText, sentence string) (story.ContextWindow, error) {
	return story.ExtractContext(fullText, sentence)
}

// Prompt resolves the text that will be sent to the provider for req.
func (s *Service) Prompt(req Request) (string, error) {
	if strings.TrimSpace(req.Sentence) != "" {
		window, err := story.ExtractContext(req.Story, req.Sentence)
		if err != nil {
			return "", err
		}
		return window.Text, nil
	}

	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return "", fmt.Errorf("%w: please provide a scenario or prompt", apperr.ErrValidation)
	}
	return prompt, nil
}

func (s *Service) Refine(ctx context.Context, kind media.Kind, prompt string) (string, error) {
	if s.refiner == nil {
		return "", fmt.Errorf("%w: prompt refinement requires GROQ_API_KEY", apperr.ErrConfig)
	}
	refined, err := s.refiner.Refine(ctx, kind, prompt)
	if err != nil {
		return "", fmt.Errorf("refine prompt: %w", err)
	}
	return refined, nil
}

func (s *Service) GenerateImage(ctx context.Context, prompt string) (*media.Result, error) {
	return s.generator.GenerateImage(ctx, prompt)
}

func (s *Service) GenerateVideo(ctx context.Context, prompt string, onProgress func(string), opts ...media.VideoOption) (*media.Result, error) {
	return s.generator.GenerateVideo(ctx, prompt, onProgress, opts...)
}
