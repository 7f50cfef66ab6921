// Package textgen runs prompts through a locally installed Ollama model.
package textgen

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

var ErrNoModel = errors.New("no model name set")

const DefaultModel = "phi3"

// Ollama generates text by shelling out to the ollama CLI. The zero value is
// not usable; construct with NewOllama.
type Ollama struct {
	Model string
}

func NewOllama(model string) *Ollama {
	if model == "" {
		model = DefaultModel
	}
	return &Ollama{Model: model}
}

// Generate runs the prompt through `ollama run <model>` and returns the
// trimmed stdout.
func (o *Ollama) Generate(ctx context.Context, prompt string) (string, error) {
	if o.Model == "" {
		return "", ErrNoModel
	}

	cmd := exec.CommandContext(ctx, "ollama", "run", o.Model, prompt)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("ollama run %s failed, %w, %s", o.Model, err, strings.TrimSpace(stderr.String()))
	}
	return strings.TrimSpace(stdout.String()), nil
}
