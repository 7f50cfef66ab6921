// Package experts generates expert-voiced analyses of simulation results
// through a pluggable text generator and records them in a conversation log.
package experts

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

// Generator produces text for a prompt. Implementations wrap a local model
// runtime or a canned responder in tests.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Entry is one expert message in the conversation log.
type Entry struct {
	Timestamp time.Time
	Expert    string
	Message   string
}

// Log is an append-only conversation log safe for concurrent use.
type Log struct {
	mu      sync.Mutex
	entries []Entry

	nowFunc func() time.Time
}

func NewLog() *Log {
	return &Log{nowFunc: time.Now}
}

// Add appends a message from an expert to the log.
func (l *Log) Add(expert, message string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, Entry{
		Timestamp: l.nowFunc(),
		Expert:    expert,
		Message:   message,
	})
}

// Entries returns a copy of the logged messages in order.
func (l *Log) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Panel asks experts for analyses and records their responses.
type Panel struct {
	gen Generator
	log *Log
}

func NewPanel(gen Generator, log *Log) *Panel {
	return &Panel{gen: gen, log: log}
}

// Respond prompts the generator in the voice of the named expert. A
// non-empty data summary is folded into the prompt; otherwise the expert is
// asked to work from the context text alone. The response is appended to the
// conversation log.
func (p *Panel) Respond(ctx context.Context, expert, contextText, dataSummary string) (string, error) {
	var prompt string
	if strings.TrimSpace(dataSummary) != "" {
		prompt = fmt.Sprintf(
			"You are %s, a seasoned expert in environmental sensor data analysis. "+
				"Based on the following summarized data and context, provide a detailed, actionable analysis and forecast. "+
				"Data Summary: %s\nContext: %s\n\nProvide your expert analysis:",
			expert, dataSummary, contextText)
	} else {
		prompt = fmt.Sprintf(
			"You are %s, a seasoned expert in environmental sensor data analysis. "+
				"Based on the following context, provide a detailed, actionable, and specific forecast and analysis. "+
				"Do not include generic placeholders or incomplete ranges. "+
				"Context: %s\n\nProvide your expert analysis:",
			expert, contextText)
	}

	response, err := p.gen.Generate(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("unable to generate response for %q, %w", expert, err)
	}
	p.log.Add(expert, response)
	return response, nil
}

// Summarize asks the generator for a natural language summary of simulation
// results.
func Summarize(ctx context.Context, gen Generator, results string) (string, error) {
	prompt := "Summarize the following simulation results: " + results
	summary, err := gen.Generate(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("unable to generate summary, %w", err)
	}
	return strings.TrimSpace(summary), nil
}
