package media

import (
	"context"
	"fmt"
	"strings"

	"storyvis/internal/apperr"
)

type Kind string

const (
	KindImage Kind = "image"
	KindVideo Kind = "video"
)

func ParseKind(s string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(s))) {
	case KindImage, "":
		return KindImage, nil
	case KindVideo:
		return KindVideo, nil
	default:
		return "", fmt.Errorf("%w: unknown generation type %q", apperr.ErrValidation, s)
	}
}

// Result is a renderable image or playable video. URL is either a data URI or
// a locally addressable location of the stored bytes.
type Result struct {
	Kind     Kind   `json:"type"`
	URL      string `json:"url"`
	MIMEType string `json:"mimeType"`
	Path     string `json:"path,omitempty"`
	Data     []byte `json:"-"`
}

type ImageRequest struct {
	Model          string
	Prompt         string
	NumberOfImages int
	MIMEType       string
	AspectRatio    string
}

type VideoRequest struct {
	Model          string
	Prompt         string
	NumberOfVideos int
	Resolution     string
	AspectRatio    string
}

// Operation is a handle to a long-running video job. Handle carries the
// provider's own representation and must be passed back unchanged on poll.
type Operation struct {
	Name     string
	Done     bool
	VideoURI string
	Error    string
	Handle   any
}

type Provider interface {
	GenerateImages(ctx context.Context, req ImageRequest) ([][]byte, error)
	GenerateVideos(ctx context.Context, req VideoRequest) (*Operation, error)
	GetVideosOperation(ctx context.Context, op *Operation) (*Operation, error)
}

// ProviderFactory builds a provider bound to apiKey. It is invoked once per
// request so a freshly selected key takes effect immediately.
type ProviderFactory func(ctx context.Context, apiKey string) (Provider, error)

type KeySource interface {
	APIKey(ctx context.Context) (string, error)
}

type Store interface {
	Save(ctx context.Context, name string, data []byte) (string, error)
}

// FetchingMessage is shown once the job is done and the video is downloading.
const FetchingMessage = "Fetching your video..."

// VideoOptions holds optional per-call hooks for GenerateVideo.
type VideoOptions struct {
	// OnFetch runs once, after polling completes and before the download.
	OnFetch func()
}

type VideoOption func(*VideoOptions)

func WithFetchNotice(fn func()) VideoOption {
	return func(o *VideoOptions) { o.OnFetch = fn }
}

func NewVideoOptions(opts ...VideoOption) VideoOptions {
	var o VideoOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

var progressMessages = []string{
	"Warming up the virtual cameras...",
	"Rendering the first few frames...",
	"Consulting with the digital director...",
	"Adding special effects...",
	"Finalizing the color grade...",
	"Almost ready for the premiere...",
}

// ProgressMessage returns the status line shown on the i-th poll.
func ProgressMessage(i int) string {
	if i < 0 {
		i = -i
	}
	return progressMessages[i%len(progressMessages)]
}
