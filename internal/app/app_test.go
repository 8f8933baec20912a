package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"storyvis/internal/apperr"
	"storyvis/internal/keys"
	"storyvis/internal/media"
)

type fakeGenerator struct {
	mu       sync.Mutex
	prompts  []string
	result   *media.Result
	err      error
	progress []string
	block    chan struct{}
}

func (f *fakeGenerator) record(prompt string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, prompt)
}

func (f *fakeGenerator) lastPrompt() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.prompts) == 0 {
		return ""
	}
	return f.prompts[len(f.prompts)-1]
}

func (f *fakeGenerator) GenerateImage(ctx context.Context, prompt string) (*media.Result, error) {
	f.record(prompt)
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.result, f.err
}

func (f *fakeGenerator) GenerateVideo(_ context.Context, prompt string, onProgress func(string), opts ...media.VideoOption) (*media.Result, error) {
	f.record(prompt)
	for _, msg := range f.progress {
		onProgress(msg)
	}
	if call := media.NewVideoOptions(opts...); call.OnFetch != nil && f.err == nil {
		call.OnFetch()
	}
	return f.result, f.err
}

type fakeRefiner struct {
	err error
}

func (f *fakeRefiner) Refine(_ context.Context, kind media.Kind, excerpt string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return "refined " + string(kind) + ": " + excerpt, nil
}

type fakeSelector struct {
	ready   bool
	openErr error
	opened  int
}

func (f *fakeSelector) HasSelectedAPIKey(context.Context) (bool, error) { return f.ready, nil }

func (f *fakeSelector) OpenSelectKey(context.Context) error {
	f.opened++
	return f.openErr
}

func newTestSession(gen *fakeGenerator, sel keys.Selector, ref *fakeRefiner) *Session {
	opts := ServiceOptions{Generator: gen, Selector: sel}
	if ref != nil {
		opts.Refiner = ref
	}
	return NewSession(NewService(opts))
}

func TestGenerateImage(t *testing.T) {
	gen := &fakeGenerator{result: &media.Result{Kind: media.KindImage, URL: "data:image/png;base64,AAAA"}}
	s := newTestSession(gen, nil, nil)

	got, err := s.Generate(context.Background(), Request{Prompt: "a fox", Type: "image"})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if got.URL != "data:image/png;base64,AAAA" {
		t.Errorf("URL = %q", got.URL)
	}

	st := s.Snapshot()
	if st.Loading || st.Message != "" || st.Error != "" {
		t.Errorf("unexpected state after success: %+v", st)
	}
	if st.OutputURL != got.URL {
		t.Errorf("OutputURL = %q, want %q", st.OutputURL, got.URL)
	}
}

func TestGenerateUsesContextWindow(t *testing.T) {
	gen := &fakeGenerator{result: &media.Result{URL: "u"}}
	s := newTestSession(gen, nil, nil)

	req := Request{
		Story:    "One.\n\nTwo has the key line.\n\nThree.\n\nFour.",
		Sentence: "key line",
		Prompt:   "ignored",
	}
	if _, err := s.Generate(context.Background(), req); err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	want := "One.\n\nTwo has the key line.\n\nThree."
	if gen.lastPrompt() != want {
		t.Errorf("prompt = %q, want %q", gen.lastPrompt(), want)
	}
}

func TestGenerateValidation(t *testing.T) {
	tests := []struct {
		name string
		req  Request
	}{
		{name: "emptyPrompt", req: Request{Prompt: "  "}},
		{name: "sentenceNotFound", req: Request{Story: "hello world", Sentence: "goodbye"}},
		{name: "unknownType", req: Request{Prompt: "x", Type: "audio"}},
		{name: "refineUnavailable", req: Request{Prompt: "x", Refine: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := &fakeGenerator{}
			s := newTestSession(gen, nil, nil)

			_, err := s.Generate(context.Background(), tt.req)
			if err == nil {
				t.Fatal("Generate() expected error")
			}
			if len(gen.prompts) != 0 {
				t.Error("generator should not be called on invalid input")
			}
			st := s.Snapshot()
			if st.Error == "" || st.Loading {
				t.Errorf("unexpected state: %+v", st)
			}
		})
	}
}

func TestGenerateVideoProgress(t *testing.T) {
	gen := &fakeGenerator{
		result:   &media.Result{Kind: media.KindVideo, URL: "/media/video-1.mp4"},
		progress: []string{media.ProgressMessage(0), media.ProgressMessage(1)},
	}
	s := newTestSession(gen, nil, nil)

	var seen []string
	s.Observe(func(st State) { seen = append(seen, st.Message) })

	got, err := s.Generate(context.Background(), Request{Prompt: "dragon", Type: "video"})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	want := []string{media.ProgressMessage(0), media.ProgressMessage(1), media.FetchingMessage}
	if len(seen) != len(want) {
		t.Fatalf("observed messages = %q, want %q", seen, want)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Errorf("observed[%d] = %q, want %q", i, seen[i], want[i])
		}
	}
	if s.Snapshot().OutputURL != got.URL {
		t.Errorf("OutputURL = %q, want %q", s.Snapshot().OutputURL, got.URL)
	}
	if s.Snapshot().Type != media.KindVideo {
		t.Errorf("Type = %q, want video", s.Snapshot().Type)
	}
}

func TestGenerateKeyNotFoundFlagsKey(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("start video: Requested entity was not found.")}
	s := newTestSession(gen, &fakeSelector{ready: true}, nil)

	_, err := s.Generate(context.Background(), Request{Prompt: "x", Type: "video"})
	if err == nil {
		t.Fatal("Generate() expected error")
	}

	st := s.Snapshot()
	if st.KeyReady {
		t.Error("KeyReady = true, want false after key-not-found")
	}
	if st.Error != "API Key not found or invalid. Please select a valid API key for video generation." {
		t.Errorf("Error = %q", st.Error)
	}

	_, err = s.Generate(context.Background(), Request{Prompt: "x", Type: "video"})
	if !errors.Is(err, apperr.ErrConfig) {
		t.Errorf("second Generate() error = %v, want ErrConfig until a key is selected", err)
	}

	if err := s.SelectAPIKey(context.Background()); err != nil {
		t.Fatalf("SelectAPIKey() error = %v", err)
	}
	if !s.Snapshot().KeyReady {
		t.Error("KeyReady = false after selecting a key")
	}
}

func TestSelectAPIKeyFailure(t *testing.T) {
	sel := &fakeSelector{openErr: errors.New("dismissed")}
	s := newTestSession(&fakeGenerator{}, sel, nil)

	if err := s.SelectAPIKey(context.Background()); err == nil {
		t.Fatal("SelectAPIKey() expected error")
	}
	if s.Snapshot().Error != "Could not select API key. Please try again." {
		t.Errorf("Error = %q", s.Snapshot().Error)
	}
}

func TestSetType(t *testing.T) {
	tests := []struct {
		name      string
		selector  keys.Selector
		kind      string
		wantReady bool
	}{
		{name: "imageAlwaysReady", selector: &fakeSelector{ready: false}, kind: "image", wantReady: true},
		{name: "videoWithoutKey", selector: &fakeSelector{ready: false}, kind: "video", wantReady: false},
		{name: "videoWithKey", selector: &fakeSelector{ready: true}, kind: "video", wantReady: true},
		{name: "videoWithoutHostPicker", selector: nil, kind: "video", wantReady: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestSession(&fakeGenerator{}, tt.selector, nil)
			if err := s.SetType(context.Background(), tt.kind); err != nil {
				t.Fatalf("SetType() error = %v", err)
			}
			if got := s.Snapshot().KeyReady; got != tt.wantReady {
				t.Errorf("KeyReady = %v, want %v", got, tt.wantReady)
			}
		})
	}
}

func TestSetTypeWhileBusy(t *testing.T) {
	gen := &fakeGenerator{result: &media.Result{URL: "u"}, block: make(chan struct{})}
	s := newTestSession(gen, nil, nil)

	if err := s.Start(context.Background(), Request{Prompt: "first", Type: "image"}); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	if err := s.SetType(context.Background(), "video"); !errors.Is(err, ErrBusy) {
		t.Errorf("SetType() error = %v, want ErrBusy", err)
	}
	if s.Snapshot().Type != media.KindImage {
		t.Errorf("Type = %q, want image while running", s.Snapshot().Type)
	}

	close(gen.block)
	waitFor(t, func() bool { return !s.Snapshot().Loading })

	if err := s.SetType(context.Background(), "video"); err != nil {
		t.Errorf("SetType() after finish error = %v", err)
	}
}

func TestRefine(t *testing.T) {
	gen := &fakeGenerator{result: &media.Result{URL: "u"}}
	s := newTestSession(gen, nil, &fakeRefiner{})

	if _, err := s.Generate(context.Background(), Request{Prompt: "a fox", Refine: true}); err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if gen.lastPrompt() != "refined image: a fox" {
		t.Errorf("prompt = %q", gen.lastPrompt())
	}
	if s.Snapshot().Prompt != "refined image: a fox" {
		t.Errorf("state prompt = %q", s.Snapshot().Prompt)
	}
}

func TestRefineFailure(t *testing.T) {
	gen := &fakeGenerator{result: &media.Result{URL: "u"}}
	s := newTestSession(gen, nil, &fakeRefiner{err: errors.New("groq down")})

	if _, err := s.Generate(context.Background(), Request{Prompt: "a fox", Refine: true}); err == nil {
		t.Fatal("Generate() expected error")
	}
	if len(gen.prompts) != 0 {
		t.Error("generator should not run when refinement fails")
	}
	if s.Snapshot().Loading {
		t.Error("Loading = true after failure")
	}
}

func TestStartRejectsConcurrentRequests(t *testing.T) {
	gen := &fakeGenerator{result: &media.Result{URL: "u"}, block: make(chan struct{})}
	s := newTestSession(gen, nil, nil)

	if err := s.Start(context.Background(), Request{Prompt: "first"}); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if !s.Snapshot().Loading {
		t.Error("Loading = false while a generation runs")
	}

	if err := s.Start(context.Background(), Request{Prompt: "second"}); !errors.Is(err, ErrBusy) {
		t.Errorf("second Start() error = %v, want ErrBusy", err)
	}

	close(gen.block)
	waitFor(t, func() bool { return !s.Snapshot().Loading })

	if s.Snapshot().OutputURL != "u" {
		t.Errorf("OutputURL = %q, want u", s.Snapshot().OutputURL)
	}
}

func TestCancel(t *testing.T) {
	gen := &fakeGenerator{block: make(chan struct{})}
	s := newTestSession(gen, nil, nil)

	if s.Cancel() {
		t.Error("Cancel() = true with nothing running")
	}

	if err := s.Start(context.Background(), Request{Prompt: "first"}); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if !s.Cancel() {
		t.Error("Cancel() = false while running")
	}

	waitFor(t, func() bool { return !s.Snapshot().Loading })
	if s.Snapshot().Error != context.Canceled.Error() {
		t.Errorf("Error = %q, want %q", s.Snapshot().Error, context.Canceled.Error())
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}
