package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"storyvis/internal/story"
)

var (
	contextStoryFile string
	contextSentence  string
)

var contextCmd = &cobra.Command{
	Use:   "context",
	Short: "Print the paragraphs surrounding a sentence",
	Long:  `Find the first paragraph containing --sentence and print it with its neighbours.`,
	RunE:  runContext,
}

func init() {
	contextCmd.Flags().StringVarP(&contextStoryFile, "story", "s", "", "Story file (- for stdin)")
	contextCmd.Flags().StringVarP(&contextSentence, "sentence", "k", "", "Key sentence to locate")
	_ = contextCmd.MarkFlagRequired("story")
	_ = contextCmd.MarkFlagRequired("sentence")
	rootCmd.AddCommand(contextCmd)
}

func runContext(cmd *cobra.Command, args []string) error {
	text, err := readStory(contextStoryFile)
	if err != nil {
		return err
	}

	window, err := story.ExtractContext(text, contextSentence)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(cmd.OutOrStdout(), window.Text)
	return err
}

func readStory(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	if path == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read story: %w", err)
	}
	return string(data), nil
}
