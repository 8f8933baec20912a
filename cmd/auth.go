package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"storyvis/internal/keys"
	"storyvis/internal/storage"
	"storyvis/pkg/config"
)

const envFile = ".env"

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage API credentials",
	Long:  `Check which credentials are configured and store a Gemini API key in .env`,
}

var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check credential status for all services",
	Long:  `Verify which services are configured. A Secret Manager key is resolved to confirm access.`,
	RunE:  runAuthStatus,
}

var authKeyCmd = &cobra.Command{
	Use:   "key",
	Short: "Enter a Gemini API key",
	Long:  `Prompt for a Gemini API key and save it as GEMINI_API_KEY in .env`,
	RunE:  runAuthKey,
}

func init() {
	authCmd.AddCommand(authStatusCmd)
	authCmd.AddCommand(authKeyCmd)
	rootCmd.AddCommand(authCmd)
}

func runAuthStatus(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	fmt.Println(infoStyle.Render("\nService Credential Status:\n"))

	switch {
	case cfg.GeminiAPIKey != "":
		fmt.Println(successStyle.Render("✓ Gemini: API key configured"))
	case cfg.GeminiAPIKeySecret != "":
		sm := keys.NewSecretManagerSource(cfg.GCPProject, cfg.GeminiAPIKeySecret)
		if _, err := sm.APIKey(ctx); err != nil {
			fmt.Println(errorStyle.Render("✗ Gemini: cannot read " + sm.Name()))
			fmt.Println(infoStyle.Render("  " + err.Error()))
		} else {
			fmt.Println(successStyle.Render("✓ Gemini: API key from " + sm.Name()))
		}
	default:
		fmt.Println(errorStyle.Render("✗ Gemini: missing GEMINI_API_KEY"))
		fmt.Println(infoStyle.Render("  Run: storyvis auth key"))
	}

	if cfg.GroqAPIKey != "" {
		fmt.Println(successStyle.Render("✓ Groq: API key configured (prompt refinement)"))
	} else {
		fmt.Println(infoStyle.Render("○ Groq: not configured (optional)"))
	}

	switch {
	case cfg.GCSBucket != "" && cfg.GCS.Enabled:
		printGCSStatus(cmd.Context(), cfg)
	case cfg.GCSBucket != "":
		fmt.Println(warnStyle.Render("○ Cloud Storage: bucket set, enable gcs.enabled in config.yaml"))
	default:
		fmt.Println(infoStyle.Render("○ Cloud Storage: not configured (optional)"))
	}

	fmt.Println()
	return nil
}

func printGCSStatus(ctx context.Context, cfg *config.Config) {
	gcs, err := storage.NewGCSStorage(ctx, cfg.GCSBucket, cfg.GCS.Prefix, cfg.GCS.CredentialsFile)
	if err != nil {
		fmt.Println(errorStyle.Render("✗ Cloud Storage: " + err.Error()))
		return
	}
	defer func() { _ = gcs.Close() }()

	names, err := gcs.List(ctx)
	if err != nil {
		fmt.Println(errorStyle.Render("✗ Cloud Storage: cannot list gs://" + cfg.GCSBucket))
		fmt.Println(infoStyle.Render("  " + err.Error()))
		return
	}
	fmt.Println(successStyle.Render(fmt.Sprintf("✓ Cloud Storage: mirroring to gs://%s (%d object(s))", cfg.GCSBucket, len(names))))
}

func runAuthKey(cmd *cobra.Command, args []string) error {
	key, err := keys.TerminalPrompt(cmd.Context())
	if err != nil {
		return err
	}

	if err := keys.SaveEnv(envFile, "GEMINI_API_KEY", key); err != nil {
		return err
	}

	fmt.Println(successStyle.Render("✓ Saved GEMINI_API_KEY to " + envFile))
	return nil
}
