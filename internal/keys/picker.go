package keys

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/joho/godotenv"
)

type PromptFunc func(ctx context.Context) (string, error)

// Picker is a Selector backed by a Store. When prompt is nil the key is
// expected to arrive out of band through Store.Set.
type Picker struct {
	store    *Store
	fallback Source
	prompt   PromptFunc
}

func NewPicker(store *Store, fallback Source, prompt PromptFunc) *Picker {
	return &Picker{store: store, fallback: fallback, prompt: prompt}
}

func (p *Picker) HasSelectedAPIKey(ctx context.Context) (bool, error) {
	if p.store.HasKey() {
		return true, nil
	}
	if p.fallback == nil {
		return false, nil
	}
	key, err := p.fallback.APIKey(ctx)
	if err != nil {
		return false, err
	}
	return key != "", nil
}

func (p *Picker) OpenSelectKey(ctx context.Context) error {
	if p.prompt == nil {
		return nil
	}
	key, err := p.prompt(ctx)
	if err != nil {
		return fmt.Errorf("select key: %w", err)
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return errors.New("no key entered")
	}
	p.store.Set(key)
	return nil
}

// TerminalPrompt asks for the key on the terminal with masked input.
func TerminalPrompt(ctx context.Context) (string, error) {
	var key string
	input := huh.NewInput().
		Title("Gemini API key").
		Description("Video generation requires a paid Gemini API key. See https://ai.google.dev/gemini-api/docs/billing").
		EchoMode(huh.EchoModePassword).
		Value(&key).
		Validate(func(s string) error {
			if strings.TrimSpace(s) == "" {
				return errors.New("key cannot be empty")
			}
			return nil
		})

	if err := huh.NewForm(huh.NewGroup(input)).RunWithContext(ctx); err != nil {
		return "", err
	}
	return key, nil
}

// SaveEnv writes key=value into the dotenv file at path, keeping other entries.
func SaveEnv(path, key, value string) error {
	env, err := godotenv.Read(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("read %s: %w", path, err)
		}
		env = make(map[string]string)
	}

	env[key] = value

	if err := godotenv.Write(env, path); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return os.Chmod(path, 0600)
}
