package story

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"storyvis/internal/apperr"
)

// ErrExtraction is returned when the key sentence occurs in the raw text but
// not inside any single paragraph, e.g. when it spans a line break.
var ErrExtraction = errors.New("could not find the sentence inside a single paragraph")

const paragraphSeparator = "\n\n"

var newlinePattern = regexp.MustCompile(`(\r?\n)+`)

type Document struct {
	Paragraphs []string
}

type ContextWindow struct {
	Text       string   `json:"context"`
	Index      int      `json:"index"`
	Paragraphs []string `json:"paragraphs"`
}

// Split breaks text into paragraphs on runs of newlines, dropping blank ones.
func Split(text string) Document {
	parts := newlinePattern.Split(text, -1)
	doc := Document{Paragraphs: make([]string, 0, len(parts))}

	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		doc.Paragraphs = append(doc.Paragraphs, p)
	}

	return doc
}

// Find returns the index of the first paragraph containing sentence,
// ignoring case, or -1.
func (d Document) Find(sentence string) int {
	needle := strings.ToLower(strings.TrimSpace(sentence))
	if needle == "" {
		return -1
	}
	for i, p := range d.Paragraphs {
		if strings.Contains(strings.ToLower(p), needle) {
			return i
		}
	}
	return -1
}

// Window returns the paragraph at index together with its direct neighbours.
func (d Document) Window(index int) ContextWindow {
	start := max(index-1, 0)
	end := min(index+2, len(d.Paragraphs))

	paragraphs := make([]string, 0, end-start)
	for _, p := range d.Paragraphs[start:end] {
		paragraphs = append(paragraphs, strings.TrimSpace(p))
	}

	return ContextWindow{
		Text:       strings.Join(paragraphs, paragraphSeparator),
		Index:      index,
		Paragraphs: paragraphs,
	}
}

func ExtractContext(fullText, keySentence string) (ContextWindow, error) {
	if strings.TrimSpace(fullText) == "" {
		return ContextWindow{}, fmt.Errorf("%w: story is empty", apperr.ErrValidation)
	}

	sentence := strings.TrimSpace(keySentence)
	if sentence == "" {
		return ContextWindow{}, fmt.Errorf("%w: sentence is empty", apperr.ErrValidation)
	}

	if !strings.Contains(strings.ToLower(fullText), strings.ToLower(sentence)) {
		return ContextWindow{}, fmt.Errorf("%w: sentence not found in story", apperr.ErrValidation)
	}

	doc := Split(fullText)
	idx := doc.Find(sentence)
	if idx < 0 {
		return ContextWindow{}, ErrExtraction
	}

	return doc.Window(idx), nil
}
