package prompts

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"text/template"

	"gopkg.in/yaml.v3"
)

//go:embed default_prompts.yaml
var defaultPrompts []byte

type Prompts struct {
	System SystemPrompts `yaml:"system"`
	Refine RefinePrompts `yaml:"refine"`
}

type SystemPrompts struct {
	Refine string `yaml:"refine"`
}

type RefinePrompts struct {
	Image string `yaml:"image"`
	Video string `yaml:"video"`
}

type RefineParams struct {
	Context string
}

// Default returns the prompts compiled into the binary.
func Default() *Prompts {
	p, err := parse(defaultPrompts)
	if err != nil {
		panic(fmt.Sprintf("embedded prompts: %v", err))
	}
	return p
}

// LoadFrom reads prompts from path. A missing file yields the defaults; any
// template left empty in the file falls back to its default.
func LoadFrom(path string) (*Prompts, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read prompts file: %w", err)
	}

	p, err := parse(data)
	if err != nil {
		return nil, err
	}
	p.fillFrom(Default())
	return p, nil
}

func parse(data []byte) (*Prompts, error) {
	var p Prompts
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse prompts file: %w", err)
	}
	return &p, nil
}

func (p *Prompts) fillFrom(d *Prompts) {
	if p.System.Refine == "" {
		p.System.Refine = d.System.Refine
	}
	if p.Refine.Image == "" {
		p.Refine.Image = d.Refine.Image
	}
	if p.Refine.Video == "" {
		p.Refine.Video = d.Refine.Video
	}
}

func (p *Prompts) RenderRefineImage(params RefineParams) (string, error) {
	return render(p.Refine.Image, params)
}

func (p *Prompts) RenderRefineVideo(params RefineParams) (string, error) {
	return render(p.Refine.Video, params)
}

func render(tmpl string, data any) (string, error) {
	t, err := template.New("prompt").Parse(tmpl)
	if err != nil {
		return "", fmt.Errorf("failed to parse template: %w", err)
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}

	return buf.String(), nil
}
