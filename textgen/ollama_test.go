package textgen

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewOllama(t *testing.T) {
	testData := map[string]struct {
		model    string
		expected string
	}{
		"explicit model": {
			model:    "llama3",
			expected: "llama3",
		},
		"default model": {
			model:    "",
			expected: DefaultModel,
		},
	}
	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, td.expected, NewOllama(td.model).Model)
		})
	}
}

func TestGenerateNoModel(t *testing.T) {
	o := &Ollama{}
	_, err := o.Generate(context.Background(), "prompt")
	require.ErrorIs(t, err, ErrNoModel)
}
