package story

import (
	"errors"
	"strings"
	"testing"

	"storyvis/internal/apperr"
)

func TestSplit(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{
			name:  "singleNewlines",
			input: "one\ntwo\nthree",
			want:  []string{"one", "two", "three"},
		},
		{
			name:  "blankLinesCollapsed",
			input: "one\n\n\n\ntwo",
			want:  []string{"one", "two"},
		},
		{
			name:  "whitespaceOnlyDropped",
			input: "  one  \n   \n\ttwo\t\n",
			want:  []string{"one", "two"},
		},
		{
			name:  "windowsLineEndings",
			input: "one\r\n\r\ntwo",
			want:  []string{"one", "two"},
		},
		{
			name:  "empty",
			input: "",
			want:  []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Split(tt.input).Paragraphs
			if len(got) != len(tt.want) {
				t.Fatalf("Split() = %q, want %q", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("Split()[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestExtractContext(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		sentence string
		want     string
		wantIdx  int
	}{
		{
			name:     "middleParagraph",
			text:     "The night was cold.\n\nA fox crept through the garden.\n\nMorning came slowly.",
			sentence: "a fox crept",
			want:     "The night was cold.\n\nA fox crept through the garden.\n\nMorning came slowly.",
			wantIdx:  1,
		},
		{
			name:     "lastOfTwo",
			text:     "First paragraph.\n\nThe dragon woke up.",
			sentence: "dragon woke",
			want:     "First paragraph.\n\nThe dragon woke up.",
			wantIdx:  1,
		},
		{
			name:     "firstParagraph",
			text:     "The dragon woke up.\n\nIt was hungry.\n\nThe village trembled.",
			sentence: "THE DRAGON",
			want:     "The dragon woke up.\n\nIt was hungry.",
			wantIdx:  0,
		},
		{
			name:     "firstOccurrenceWins",
			text:     "intro\nthe bell rang\nmiddle\nthe bell rang\noutro",
			sentence: "the bell rang",
			want:     "intro\n\nthe bell rang\n\nmiddle",
			wantIdx:  1,
		},
		{
			name:     "onlyNeighboursIncluded",
			text:     "a\nb\nc\nneedle here\nd\ne",
			sentence: "  needle  ",
			want:     "c\n\nneedle here\n\nd",
			wantIdx:  3,
		},
		{
			name:     "singleParagraph",
			text:     "hello world",
			sentence: "world",
			want:     "hello world",
			wantIdx:  0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractContext(tt.text, tt.sentence)
			if err != nil {
				t.Fatalf("ExtractContext() error = %v", err)
			}
			if got.Text != tt.want {
				t.Errorf("ExtractContext() = %q, want %q", got.Text, tt.want)
			}
			if got.Index != tt.wantIdx {
				t.Errorf("ExtractContext() index = %d, want %d", got.Index, tt.wantIdx)
			}
			if !strings.Contains(strings.ToLower(got.Text), strings.ToLower(strings.TrimSpace(tt.sentence))) {
				t.Errorf("ExtractContext() = %q does not contain %q", got.Text, tt.sentence)
			}
		})
	}
}

func TestExtractContextErrors(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		sentence string
		wantErr  error
	}{
		{name: "emptyStory", text: "", sentence: "x", wantErr: apperr.ErrValidation},
		{name: "whitespaceStory", text: " \n\t ", sentence: "x", wantErr: apperr.ErrValidation},
		{name: "emptySentence", text: "hello world", sentence: "", wantErr: apperr.ErrValidation},
		{name: "whitespaceSentence", text: "hello world", sentence: "   ", wantErr: apperr.ErrValidation},
		{name: "notFound", text: "hello world", sentence: "goodbye", wantErr: apperr.ErrValidation},
		{name: "spansParagraphs", text: "hello\nworld", sentence: "hello\nworld", wantErr: ErrExtraction},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ExtractContext(tt.text, tt.sentence)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ExtractContext() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
