package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/huh/spinner"
	"github.com/spf13/cobra"

	"storyvis/internal/keys"
	"storyvis/pkg/config"
)

const configFile = "config.yaml"

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Interactive setup wizard for storyvis",
	Long:  `Configure API keys, create the output directory and write a default config.yaml.`,
	RunE:  runSetup,
}

func init() {
	rootCmd.AddCommand(setupCmd)
}

func runSetup(cmd *cobra.Command, args []string) error {
	fmt.Println(titleStyle.Render("🎬 storyvis Setup"))

	cfg := config.Default()

	steps := []struct {
		name string
		fn   func(*config.Config) error
	}{
		{"Creating directories", createDirectories},
		{"Configuring environment", configureEnv},
		{"Writing config", writeConfigFile},
	}

	for _, step := range steps {
		if err := step.fn(cfg); err != nil {
			return fmt.Errorf("%s: %w", step.name, err)
		}
	}

	printNextSteps()
	return nil
}

func createDirectories(cfg *config.Config) error {
	if err := os.MkdirAll(cfg.Output.Dir, 0755); err != nil {
		return fmt.Errorf("create %s: %w", cfg.Output.Dir, err)
	}
	fmt.Println(successStyle.Render("✓ Created " + cfg.Output.Dir))
	return nil
}

func configureEnv(cfg *config.Config) error {
	if _, err := os.Stat(envFile); err == nil {
		var overwrite bool
		if err := huh.NewConfirm().
			Title("Found existing .env file").
			Description("Update it? Entries you leave blank are kept.").
			Value(&overwrite).
			Run(); err != nil {
			return err
		}
		if !overwrite {
			fmt.Println(infoStyle.Render("Kept existing .env"))
			return nil
		}
	}

	env := make(map[string]string)

	if err := configureKeys(env); err != nil {
		return err
	}

	if err := configureGCP(cfg, env); err != nil {
		return err
	}

	return writeEnvFile(env)
}

func configureKeys(env map[string]string) error {
	var geminiKey, groqKey string

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Gemini API Key").
				Description("https://aistudio.google.com/apikey (leave blank to use Secret Manager)").
				EchoMode(huh.EchoModePassword).
				Value(&geminiKey),
			huh.NewInput().
				Title("Groq API Key (optional)").
				Description("Enables prompt refinement → https://console.groq.com/keys").
				EchoMode(huh.EchoModePassword).
				Value(&groqKey),
		),
	)

	if err := form.Run(); err != nil {
		return err
	}

	env["GEMINI_API_KEY"] = strings.TrimSpace(geminiKey)
	env["GROQ_API_KEY"] = strings.TrimSpace(groqKey)
	return nil
}

func configureGCP(cfg *config.Config, env map[string]string) error {
	var setupGCP bool
	if err := huh.NewConfirm().
		Title("Setup Google Cloud?").
		Description("For Secret Manager keys and mirroring media to Cloud Storage (optional)").
		Value(&setupGCP).
		Run(); err != nil {
		return err
	}

	if !setupGCP {
		return nil
	}

	if !commandExists("gcloud") {
		fmt.Println(warnStyle.Render("gcloud CLI not found - install from https://cloud.google.com/sdk/docs/install"))
		return nil
	}

	project, err := selectGCPProject()
	if err != nil {
		fmt.Println(warnStyle.Render(fmt.Sprintf("GCP setup skipped: %v", err)))
		return nil
	}
	env["GOOGLE_CLOUD_PROJECT"] = project

	if err := enableGCPAPIs(project); err != nil {
		fmt.Println(warnStyle.Render(fmt.Sprintf("API enablement failed: %v", err)))
	}

	var secret, bucket string
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Secret Manager secret").
				Description("Secret holding the Gemini API key (optional)").
				Placeholder("gemini-api-key").
				Value(&secret),
			huh.NewInput().
				Title("Cloud Storage bucket").
				Description("Generated media is mirrored here (optional)").
				Value(&bucket),
		),
	)

	if err := form.Run(); err != nil {
		return err
	}

	env["GEMINI_API_KEY_SECRET"] = strings.TrimSpace(secret)
	if bucket = strings.TrimPrefix(strings.TrimSpace(bucket), "gs://"); bucket != "" {
		env["GCS_BUCKET"] = bucket
		cfg.GCS.Enabled = true
	}
	return nil
}

func selectGCPProject() (string, error) {
	existing := getActiveProject()

	var choice string
	options := []huh.Option[string]{
		huh.NewOption("Enter project ID manually", "manual"),
	}

	if existing != "" {
		options = append([]huh.Option[string]{
			huh.NewOption(fmt.Sprintf("Use current: %s", existing), existing),
		}, options...)
	}

	if err := huh.NewSelect[string]().
		Title("Google Cloud Project").
		Options(options...).
		Value(&choice).
		Run(); err != nil {
		return "", err
	}

	if choice != "manual" {
		return choice, nil
	}

	var projectID string
	if err := huh.NewInput().
		Title("Project ID").
		Value(&projectID).
		Validate(required("Project ID")).
		Run(); err != nil {
		return "", err
	}
	return strings.TrimSpace(projectID), nil
}

func getActiveProject() string {
	out, err := exec.Command("gcloud", "config", "get-value", "project").Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}

func enableGCPAPIs(project string) error {
	apis := []string{
		"generativelanguage.googleapis.com",
		"secretmanager.googleapis.com",
		"storage.googleapis.com",
	}

	return runWithSpinner("Enabling APIs", func() error {
		args := append([]string{"services", "enable"}, apis...)
		args = append(args, "--project", project)
		return runSetupCmd("gcloud", args...)
	})
}

func writeEnvFile(env map[string]string) error {
	order := []string{
		"GEMINI_API_KEY",
		"GEMINI_API_KEY_SECRET",
		"GOOGLE_CLOUD_PROJECT",
		"GCS_BUCKET",
		"GROQ_API_KEY",
	}

	written := 0
	for _, key := range order {
		val := env[key]
		if val == "" {
			continue
		}
		if err := keys.SaveEnv(envFile, key, val); err != nil {
			return err
		}
		written++
	}

	if written == 0 {
		fmt.Println(warnStyle.Render("No keys entered, .env left unchanged"))
		return nil
	}
	fmt.Println(successStyle.Render(fmt.Sprintf("✓ Wrote %d value(s) to %s", written, envFile)))
	return nil
}

func writeConfigFile(cfg *config.Config) error {
	if _, err := os.Stat(configFile); err == nil {
		var overwrite bool
		if err := huh.NewConfirm().
			Title("Found existing " + configFile).
			Description("Overwrite with defaults?").
			Value(&overwrite).
			Run(); err != nil {
			return err
		}
		if !overwrite {
			fmt.Println(infoStyle.Render("Kept existing " + configFile))
			return nil
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return err
	}

	if err := cfg.Save(configFile); err != nil {
		return err
	}
	fmt.Println(successStyle.Render("✓ Created " + configFile))
	return nil
}

func printNextSteps() {
	fmt.Println()
	fmt.Println(titleStyle.Render("Next steps:"))
	fmt.Println("  1. Check credentials: storyvis auth status")
	fmt.Println("  2. Open the web page: storyvis serve --open")
	fmt.Println("  3. Or from the terminal: storyvis image -p \"a lighthouse in a storm\"")
}

func required(field string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", field)
		}
		return nil
	}
}

func commandExists(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}

func runSetupCmd(name string, args ...string) error {
	cmd := exec.Command(name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s: %s", err, stderr.String())
	}
	return nil
}

func runWithSpinner(title string, fn func() error) error {
	var err error
	_ = spinner.New().
		Title(title).
		Action(func() { err = fn() }).
		Run()
	if err != nil {
		return err
	}
	fmt.Println(successStyle.Render("✓ " + title))
	return nil
}
