package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/charmbracelet/huh/spinner"
	"github.com/spf13/cobra"

	"storyvis/internal/app"
	"storyvis/internal/apperr"
	"storyvis/internal/keys"
	"storyvis/internal/media"
	"storyvis/pkg/config"
)

var (
	genStoryFile string
	genSentence  string
	genPrompt    string
	genRefine    bool
)

var imageCmd = &cobra.Command{
	Use:   "image",
	Short: "Generate an image",
	Long:  `Generate a 16:9 image from --prompt, or from the paragraphs around --sentence in --story.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runGenerate(cmd, media.KindImage)
	},
}

var videoCmd = &cobra.Command{
	Use:   "video",
	Short: "Generate a video",
	Long: `Generate a 720p 16:9 video from --prompt, or from the paragraphs around --sentence in --story.
Video generation takes a few minutes; progress is printed while the job runs.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runGenerate(cmd, media.KindVideo)
	},
}

func init() {
	for _, c := range []*cobra.Command{imageCmd, videoCmd} {
		c.Flags().StringVarP(&genStoryFile, "story", "s", "", "Story file (- for stdin)")
		c.Flags().StringVarP(&genSentence, "sentence", "k", "", "Key sentence to locate in the story")
		c.Flags().StringVarP(&genPrompt, "prompt", "p", "", "Free-form scenario to visualize")
		c.Flags().BoolVarP(&genRefine, "refine", "r", false, "Rewrite the prompt with Groq before generating")
		rootCmd.AddCommand(c)
	}
}

func runGenerate(cmd *cobra.Command, kind media.Kind) error {
	ctx := cmd.Context()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	text, err := readStory(genStoryFile)
	if err != nil {
		return err
	}

	built, err := app.BuildService(ctx, cfg, app.BuildOptions{KeyPrompt: keys.TerminalPrompt})
	if err != nil {
		return err
	}
	defer built.Close()

	session := app.NewSession(built.Service)
	if err := session.SetType(ctx, string(kind)); err != nil {
		return err
	}

	if !session.Snapshot().KeyReady || !cfg.HasCredential() {
		fmt.Println(warnStyle.Render("No Gemini API key configured."))
		if err := session.SelectAPIKey(ctx); err != nil {
			return err
		}
	}

	req := app.Request{
		Story:    text,
		Sentence: genSentence,
		Prompt:   genPrompt,
		Type:     string(kind),
		Refine:   genRefine || (cfg.Refine.Enabled && built.Service.CanRefine()),
	}

	result, err := generateWithFeedback(ctx, session, req, kind)
	if err != nil {
		msg, keyInvalid := apperr.UserMessage(err)
		fmt.Println(errorStyle.Render("✗ Generation failed: " + msg))
		if keyInvalid {
			fmt.Println(infoStyle.Render("  Run: storyvis auth key"))
		}
		return err
	}

	if result == nil {
		return errors.New("generation finished without a result")
	}
	fmt.Println(successStyle.Render(fmt.Sprintf("✓ %s saved to %s", kind, result.Path)))
	return nil
}

func generateWithFeedback(ctx context.Context, session *app.Session, req app.Request, kind media.Kind) (*media.Result, error) {
	if kind == media.KindVideo {
		last := ""
		session.Observe(func(st app.State) {
			if st.Loading && st.Message != "" && st.Message != last {
				last = st.Message
				fmt.Println(infoStyle.Render("… " + st.Message))
			}
		})
		slog.Debug("Submitting video job", "prompt_chars", len(req.Prompt))
		return session.Generate(ctx, req)
	}

	show := func(wait func()) error {
		return spinner.New().
			Title("Crafting your image...").
			Context(ctx).
			Action(wait).
			Run()
	}
	return awaitGeneration(show, func() (*media.Result, error) {
		return session.Generate(ctx, req)
	})
}

// awaitGeneration runs gen in the background while show renders feedback.
// show gets a func that blocks until gen returns and may give up early, as the
// spinner does on interrupt. The result is only read after gen has returned.
func awaitGeneration(show func(wait func()) error, gen func() (*media.Result, error)) (*media.Result, error) {
	var (
		result *media.Result
		genErr error
	)
	done := make(chan struct{})
	go func() {
		defer close(done)
		result, genErr = gen()
	}()

	showErr := show(func() { <-done })
	<-done

	if genErr != nil {
		return nil, genErr
	}
	if showErr != nil && !errors.Is(showErr, context.Canceled) {
		return nil, showErr
	}
	if result == nil {
		return nil, errors.New("generation finished without a result")
	}
	return result, nil
}
