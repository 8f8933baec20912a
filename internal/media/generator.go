package media

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"storyvis/internal/apperr"
)

const (
	DefaultImageModel   = "imagen-4.0-generate-001"
	DefaultVideoModel   = "veo-3.1-fast-generate-preview"
	DefaultPollInterval = 10 * time.Second
	DefaultMaxWait      = 10 * time.Minute

	imageMIMEType   = "image/png"
	videoMIMEType   = "video/mp4"
	aspectRatio     = "16:9"
	videoResolution = "720p"
)

var ErrPollTimeout = errors.New("video generation did not finish in time")

type Options struct {
	ImageModel   string
	VideoModel   string
	PollInterval time.Duration
	MaxWait      time.Duration
	// MediaBaseURL, when set, is prefixed to stored file names to build
	// result URLs instead of returning the store location.
	MediaBaseURL string
	HTTPClient   *http.Client
}

type Generator struct {
	keys        KeySource
	newProvider ProviderFactory
	store       Store
	opts        Options
	now         func() time.Time
}

func NewGenerator(keys KeySource, factory ProviderFactory, store Store, opts Options) *Generator {
	if opts.ImageModel == "" {
		opts.ImageModel = DefaultImageModel
	}
	if opts.VideoModel == "" {
		opts.VideoModel = DefaultVideoModel
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.MaxWait <= 0 {
		opts.MaxWait = DefaultMaxWait
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 5 * time.Minute}
	}

	return &Generator{
		keys:        keys,
		newProvider: factory,
		store:       store,
		opts:        opts,
		now:         time.Now,
	}
}

func (g *Generator) GenerateImage(ctx context.Context, prompt string) (*Result, error) {
	_, provider, err := g.connect(ctx)
	if err != nil {
		return nil, err
	}

	slog.Debug("Generating image", "model", g.opts.ImageModel, "prompt", prompt)

	images, err := provider.GenerateImages(ctx, ImageRequest{
		Model:          g.opts.ImageModel,
		Prompt:         prompt,
		NumberOfImages: 1,
		MIMEType:       imageMIMEType,
		AspectRatio:    aspectRatio,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: generate image: %w", apperr.ErrProvider, err)
	}

	if len(images) == 0 || len(images[0]) == 0 {
		return nil, fmt.Errorf("%w: image generation failed or returned no images", apperr.ErrProvider)
	}

	data := images[0]
	result := &Result{
		Kind:     KindImage,
		URL:      "data:" + imageMIMEType + ";base64," + base64.StdEncoding.EncodeToString(data),
		MIMEType: imageMIMEType,
		Data:     data,
	}

	if g.store != nil {
		path, err := g.store.Save(ctx, g.fileName("image", ".png"), data)
		if err != nil {
			return nil, fmt.Errorf("save image: %w", err)
		}
		result.Path = path
	}

	return result, nil
}

// GenerateVideo submits a video job and polls it every PollInterval until it
// completes or MaxWait elapses. onProgress receives one message per poll.
func (g *Generator) GenerateVideo(ctx context.Context, prompt string, onProgress func(string), opts ...VideoOption) (*Result, error) {
	call := NewVideoOptions(opts...)

	key, provider, err := g.connect(ctx)
	if err != nil {
		return nil, err
	}

	slog.Debug("Submitting video job", "model", g.opts.VideoModel, "prompt", prompt)

	op, err := provider.GenerateVideos(ctx, VideoRequest{
		Model:          g.opts.VideoModel,
		Prompt:         prompt,
		NumberOfVideos: 1,
		Resolution:     videoResolution,
		AspectRatio:    aspectRatio,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: start video: %w", apperr.ErrProvider, err)
	}

	op, err = g.poll(ctx, provider, op, onProgress)
	if err != nil {
		return nil, err
	}

	if op.Error != "" {
		return nil, fmt.Errorf("%w: video generation failed: %s", apperr.ErrProvider, op.Error)
	}
	if op.VideoURI == "" {
		return nil, fmt.Errorf("%w: video generation completed, but no download link was found", apperr.ErrProvider)
	}

	slog.Info("Fetching video", "operation", op.Name)
	if call.OnFetch != nil {
		call.OnFetch()
	}

	data, err := g.download(ctx, op.VideoURI, key)
	if err != nil {
		return nil, err
	}

	return g.videoResult(ctx, data)
}

func (g *Generator) poll(ctx context.Context, provider Provider, op *Operation, onProgress func(string)) (*Operation, error) {
	if op == nil {
		return nil, fmt.Errorf("%w: no operation returned", apperr.ErrProvider)
	}

	deadline := g.now().Add(g.opts.MaxWait)

	for i := 0; !op.Done; i++ {
		if onProgress != nil {
			onProgress(ProgressMessage(i))
		}

		if g.now().Add(g.opts.PollInterval).After(deadline) {
			return nil, fmt.Errorf("%w: %w after %s", apperr.ErrProvider, ErrPollTimeout, g.opts.MaxWait)
		}

		if err := sleep(ctx, g.opts.PollInterval); err != nil {
			return nil, err
		}

		next, err := provider.GetVideosOperation(ctx, op)
		if err != nil {
			return nil, fmt.Errorf("%w: poll video: %w", apperr.ErrProvider, err)
		}
		if next == nil {
			return nil, fmt.Errorf("%w: poll returned no operation", apperr.ErrProvider)
		}
		op = next

		slog.Debug("Polled video job", "operation", op.Name, "done", op.Done, "poll", i+1)
	}

	return op, nil
}

func (g *Generator) download(ctx context.Context, uri, key string) ([]byte, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid download link: %w", apperr.ErrProvider, err)
	}
	q := u.Query()
	q.Set("key", key)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := g.opts.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: download video: %w", apperr.ErrTransport, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: failed to download video: %s", apperr.ErrTransport, resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read video: %w", apperr.ErrTransport, err)
	}

	return data, nil
}

func (g *Generator) videoResult(ctx context.Context, data []byte) (*Result, error) {
	result := &Result{
		Kind:     KindVideo,
		MIMEType: videoMIMEType,
		Data:     data,
	}

	if g.store == nil {
		result.URL = "data:" + videoMIMEType + ";base64," + base64.StdEncoding.EncodeToString(data)
		return result, nil
	}

	name := g.fileName("video", ".mp4")
	path, err := g.store.Save(ctx, name, data)
	if err != nil {
		return nil, fmt.Errorf("save video: %w", err)
	}
	result.Path = path
	result.URL = path
	if g.opts.MediaBaseURL != "" {
		result.URL = strings.TrimRight(g.opts.MediaBaseURL, "/") + "/" + name
	}

	return result, nil
}

func (g *Generator) connect(ctx context.Context) (string, Provider, error) {
	if g.keys == nil {
		return "", nil, fmt.Errorf("%w: API key is not set", apperr.ErrConfig)
	}
	key, err := g.keys.APIKey(ctx)
	if err != nil {
		return "", nil, fmt.Errorf("%w: resolve API key: %w", apperr.ErrConfig, err)
	}
	if strings.TrimSpace(key) == "" {
		return "", nil, fmt.Errorf("%w: API key is not set", apperr.ErrConfig)
	}

	provider, err := g.newProvider(ctx, key)
	if err != nil {
		return "", nil, fmt.Errorf("create provider: %w", err)
	}

	return key, provider, nil
}

func (g *Generator) fileName(prefix, ext string) string {
	return fmt.Sprintf("%s-%d%s", prefix, g.now().UnixNano(), ext)
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
