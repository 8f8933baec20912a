package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"storyvis/internal/apperr"
	"storyvis/internal/keys"
	"storyvis/internal/media"
)

var ErrBusy = errors.New("a generation is already in progress")

const (
	messageImage  = "Crafting your image..."
	messageVideo  = "Initializing video generation..."
	messageRefine = "Refining your prompt..."
)

// State is what the front end renders.
type State struct {
	Type      media.Kind `json:"type"`
	Prompt    string     `json:"prompt,omitempty"`
	Loading   bool       `json:"loading"`
	Message   string     `json:"message"`
	OutputURL string     `json:"outputUrl"`
	Error     string     `json:"error"`
	KeyReady  bool       `json:"keyReady"`
}

// Session owns the single in-flight generation and the view state around it.
type Session struct {
	svc *Service

	mu       sync.Mutex
	state    State
	cancel   context.CancelFunc
	observer func(State)
}

type job struct {
	ctx    context.Context
	cancel context.CancelFunc
	kind   media.Kind
	prompt string
	refine bool
}

func NewSession(svc *Service) *Session {
	return &Session{
		svc:   svc,
		state: State{Type: media.KindImage, KeyReady: true},
	}
}

func (s *Session) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// SetType switches the generation type and re-checks the credential, which is
// only required up front for video.
func (s *Session) SetType(ctx context.Context, raw string) error {
	if s.Snapshot().Loading {
		return ErrBusy
	}

	kind, err := media.ParseKind(raw)
	if err != nil {
		return err
	}

	ready := true
	if kind == media.KindVideo {
		ready, err = keys.Ready(ctx, s.svc.Selector())
		if err != nil {
			slog.Warn("Failed to check API key", "error", err)
			ready = false
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Loading {
		return ErrBusy
	}
	s.state.Type = kind
	s.state.KeyReady = ready
	return nil
}

// SelectAPIKey opens the host key picker. The key is assumed usable once the
// picker returns without error.
func (s *Session) SelectAPIKey(ctx context.Context) error {
	sel := s.svc.Selector()
	if sel == nil {
		return nil
	}

	if err := sel.OpenSelectKey(ctx); err != nil {
		slog.Error("Error opening API key selection", "error", err)
		s.mu.Lock()
		s.state.Error = "Could not select API key. Please try again."
		s.mu.Unlock()
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.KeyReady = true
	s.state.Error = ""
	return nil
}

// Generate runs a request to completion on the calling goroutine.
func (s *Session) Generate(ctx context.Context, req Request) (*media.Result, error) {
	j, err := s.begin(ctx, req)
	if err != nil {
		return nil, err
	}
	return s.run(j)
}

// Start validates req and runs the generation in the background. Progress is
// observed through Snapshot.
func (s *Session) Start(ctx context.Context, req Request) error {
	j, err := s.begin(ctx, req)
	if err != nil {
		return err
	}
	go func() { _, _ = s.run(j) }()
	return nil
}

// Cancel aborts the running generation, if any.
func (s *Session) Cancel() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel == nil {
		return false
	}
	s.cancel()
	return true
}

func (s *Session) begin(ctx context.Context, req Request) (*job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Loading {
		return nil, ErrBusy
	}

	kind, err := media.ParseKind(req.Type)
	if err != nil {
		s.state.Error, _ = apperr.UserMessage(err)
		return nil, err
	}
	s.state.Type = kind

	if kind == media.KindVideo && !s.state.KeyReady {
		err := fmt.Errorf("%w: select an API key before generating video", apperr.ErrConfig)
		s.state.Error, _ = apperr.UserMessage(err)
		return nil, err
	}

	prompt, err := s.svc.Prompt(req)
	if err != nil {
		s.state.Error, _ = apperr.UserMessage(err)
		return nil, err
	}
	if req.Refine && !s.svc.CanRefine() {
		err := fmt.Errorf("%w: prompt refinement requires GROQ_API_KEY", apperr.ErrConfig)
		s.state.Error, _ = apperr.UserMessage(err)
		return nil, err
	}

	jobCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.state.Loading = true
	s.state.Error = ""
	s.state.OutputURL = ""
	s.state.Prompt = prompt
	s.state.Message = startMessage(kind, req.Refine)

	return &job{ctx: jobCtx, cancel: cancel, kind: kind, prompt: prompt, refine: req.Refine}, nil
}

func (s *Session) run(j *job) (*media.Result, error) {
	defer j.cancel()

	result, err := s.generate(j)
	s.finish(result, err)
	return result, err
}

func (s *Session) generate(j *job) (*media.Result, error) {
	prompt := j.prompt
	if j.refine {
		refined, err := s.svc.Refine(j.ctx, j.kind, prompt)
		if err != nil {
			return nil, err
		}
		prompt = refined
		s.update(func(st *State) {
			st.Prompt = prompt
			st.Message = startMessage(j.kind, false)
		})
	}

	slog.Info("Generating", "type", j.kind, "prompt", prompt)

	if j.kind == media.KindVideo {
		return s.svc.GenerateVideo(j.ctx, prompt, func(msg string) {
			s.update(func(st *State) { st.Message = msg })
		}, media.WithFetchNotice(func() {
			s.update(func(st *State) { st.Message = media.FetchingMessage })
		}))
	}
	return s.svc.GenerateImage(j.ctx, prompt)
}

func (s *Session) finish(result *media.Result, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.Loading = false
	s.state.Message = ""
	s.cancel = nil

	if err != nil {
		slog.Error("Generation failed", "type", s.state.Type, "error", err)
		msg, keyInvalid := apperr.UserMessage(err)
		s.state.Error = msg
		if keyInvalid {
			s.state.KeyReady = false
		}
		return
	}

	s.state.OutputURL = result.URL
	slog.Info("Generation complete", "type", result.Kind, "path", result.Path)
}

// Observe registers fn to receive the state after every progress update.
func (s *Session) Observe(fn func(State)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observer = fn
}

func (s *Session) update(fn func(*State)) {
	s.mu.Lock()
	fn(&s.state)
	st, observer := s.state, s.observer
	s.mu.Unlock()

	if observer != nil {
		observer(st)
	}
}

func startMessage(kind media.Kind, refine bool) string {
	switch {
	case refine:
		return messageRefine
	case kind == media.KindVideo:
		return messageVideo
	default:
		return messageImage
	}
}
