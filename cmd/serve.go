package cmd

import (
	"fmt"
	"log/slog"
	"net"

	"github.com/pkg/browser"
	"github.com/spf13/cobra"

	"storyvis/internal/app"
	"storyvis/internal/web"
	"storyvis/pkg/config"
)

var (
	serveAddr string
	serveOpen bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the storyvis web page",
	Long: `Start the web front end. Paste a story, pick a sentence and generate an image or video.
The API key can be entered on the page when none is configured.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVarP(&serveAddr, "addr", "a", "", "Listen address (default from config, localhost:8080)")
	serveCmd.Flags().BoolVarP(&serveOpen, "open", "o", false, "Open the page in a browser")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}

	built, err := app.BuildService(ctx, cfg, app.BuildOptions{MediaBaseURL: web.MediaPrefix})
	if err != nil {
		return err
	}
	defer built.Close()

	session := app.NewSession(built.Service)
	server := web.NewServer(ctx, built.Service, session, built.Local)

	l, err := net.Listen("tcp", cfg.Server.Addr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	url := "http://" + l.Addr().String()
	fmt.Println(successStyle.Render("✓ Serving on " + url))
	if !cfg.HasCredential() {
		fmt.Println(warnStyle.Render("No Gemini API key configured, enter one on the page"))
	}

	if serveOpen {
		if err := browser.OpenURL(url); err != nil {
			slog.Warn("Failed to open browser", "error", err)
		}
	}

	if err := server.Serve(ctx, l); err != nil {
		return err
	}
	fmt.Println(infoStyle.Render("Stopped"))
	return nil
}
