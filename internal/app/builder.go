package app

import (
	"context"
	"log/slog"

	"storyvis/internal/gemini"
	"storyvis/internal/keys"
	"storyvis/internal/media"
	"storyvis/internal/refine"
	"storyvis/internal/storage"
	"storyvis/pkg/config"
	"storyvis/pkg/prompts"
)

type BuildOptions struct {
	// KeyPrompt is used when the user asks to pick a key. Nil means keys
	// arrive through the key store directly, as from the web page.
	KeyPrompt keys.PromptFunc
	// MediaBaseURL prefixes stored video names in result URLs.
	MediaBaseURL string
}

type BuildResult struct {
	Service *Service
	Local   *storage.LocalStorage

	closers []func() error
}

func (r *BuildResult) Close() {
	for _, c := range r.closers {
		if err := c(); err != nil {
			slog.Warn("Failed to close resource", "error", err)
		}
	}
}

func BuildService(ctx context.Context, cfg *config.Config, opts BuildOptions) (*BuildResult, error) {
	result := &BuildResult{}

	keyStore := keys.NewStore("")
	var fallback keys.Chain
	if cfg.GeminiAPIKey != "" {
		fallback = append(fallback, keys.Static(cfg.GeminiAPIKey))
	}
	if cfg.GeminiAPIKeySecret != "" {
		sm := keys.NewSecretManagerSource(cfg.GCPProject, cfg.GeminiAPIKeySecret)
		slog.Debug("Using Secret Manager for API key", "secret", sm.Name())
		fallback = append(fallback, sm)
	}
	source := keys.Chain{keyStore, fallback}
	selector := keys.NewPicker(keyStore, fallback, opts.KeyPrompt)

	local := storage.NewLocalStorage(cfg.Output.Dir)
	if err := local.EnsureDirectories(); err != nil {
		return nil, err
	}
	result.Local = local

	var store media.Store = local
	if cfg.GCS.Enabled && cfg.GCSBucket != "" {
		gcs, err := storage.NewGCSStorage(ctx, cfg.GCSBucket, cfg.GCS.Prefix, cfg.GCS.CredentialsFile)
		if err != nil {
			return nil, err
		}
		result.closers = append(result.closers, gcs.Close)
		store = storage.NewMirrored(local, gcs)
	}

	generator := media.NewGenerator(source, gemini.Factory(gemini.Options{BaseURL: cfg.Gemini.BaseURL}), store, media.Options{
		ImageModel:   cfg.Gemini.ImageModel,
		VideoModel:   cfg.Gemini.VideoModel,
		PollInterval: cfg.Polling.Interval,
		MaxWait:      cfg.Polling.MaxWait,
		MediaBaseURL: opts.MediaBaseURL,
	})

	var refiner refine.Refiner
	if cfg.GroqAPIKey != "" {
		p, err := prompts.LoadFrom(cfg.Refine.PromptsPath)
		if err != nil {
			return nil, err
		}
		client, err := refine.NewClient(cfg.GroqAPIKey, cfg.Refine.Model, p)
		if err != nil {
			return nil, err
		}
		refiner = client
	}

	result.Service = NewService(ServiceOptions{
		Generator: generator,
		Refiner:   refiner,
		Selector:  selector,
		KeyStore:  keyStore,
	})

	return result, nil
}
