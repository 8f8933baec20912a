package cmd

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"

	"storyvis/internal/apperr"
)

const testStory = "The harbor was quiet.\n\nA red lantern swung above the door.\r\n\r\nNobody answered the knock.\n\nMorning came late."

func writeStory(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "story.txt")
	if err := os.WriteFile(path, []byte(testStory), 0644); err != nil {
		t.Fatalf("write story: %v", err)
	}
	return path
}

func TestReadStory(t *testing.T) {
	path := writeStory(t)

	tests := []struct {
		name    string
		path    string
		want    string
		wantErr bool
	}{
		{name: "file", path: path, want: testStory},
		{name: "noFile", path: "", want: ""},
		{name: "missingFile", path: filepath.Join(t.TempDir(), "nope.txt"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := readStory(tt.path)
			if (err != nil) != tt.wantErr {
				t.Fatalf("readStory() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("readStory() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRunContext(t *testing.T) {
	path := writeStory(t)

	tests := []struct {
		name     string
		sentence string
		want     string
		wantErr  error
	}{
		{
			name:     "middleParagraph",
			sentence: "red LANTERN",
			want:     "The harbor was quiet.\n\nA red lantern swung above the door.\n\nNobody answered the knock.\n",
		},
		{
			name:     "firstParagraph",
			sentence: "harbor",
			want:     "The harbor was quiet.\n\nA red lantern swung above the door.\n",
		},
		{
			name:     "notFound",
			sentence: "a green door",
			wantErr:  apperr.ErrValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			contextStoryFile, contextSentence = path, tt.sentence
			t.Cleanup(func() { contextStoryFile, contextSentence = "", "" })

			var out bytes.Buffer
			c := &cobra.Command{}
			c.SetOut(&out)

			err := runContext(c, nil)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("runContext() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("runContext() error = %v", err)
			}
			if out.String() != tt.want {
				t.Errorf("output = %q, want %q", out.String(), tt.want)
			}
		})
	}
}
