// Package knowledge implements the Knowledge Summary Service (C10): a
// small, cached corpus overview regenerated at (re)index time, with a
// delete-before-rebuild, regenerate-at-end lifecycle so the artifact is
// never served stale across a rebuild.
package knowledge

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/regulon-ai/regulon/pkg/llms"
)

// Summary is the persisted artifact, serialized as YAML at a configured path.
type Summary struct {
	Overview           string    `yaml:"overview"`
	Topics             []string  `yaml:"topics"`
	SuggestedQuestions []string  `yaml:"suggested_questions"`
	GeneratedAt        time.Time `yaml:"generated_at"`
}

// fallbackDrawingQuestions are always present in SuggestedQuestions so a
// Tier-4 response nudges the caller toward the hybrid capability, per
// §4.10's "at least three drawing-oriented prompts" invariant.
var fallbackDrawingQuestions = []string{
	"Describe my drawing and list its layers.",
	"What is the plot area and building height shown in my drawing?",
	"Does my drawing's extension depth comply with current regulations?",
}

func fallbackSummary() Summary {
	return Summary{
		Overview: "This corpus covers residential and light-commercial building regulations, " +
			"including setback, height, and extension-depth requirements.",
		Topics:             []string{"setbacks", "building height", "extensions", "plot coverage"},
		SuggestedQuestions: append([]string{}, fallbackDrawingQuestions...),
	}
}

// Completer is the subset of llms.Provider the summary generator needs.
type Completer interface {
	Complete(ctx context.Context, messages []llms.Message) (string, error)
}

// Service holds the current Summary, guarded for concurrent reads from
// many in-flight requests against the rare write at (re)index time.
type Service struct {
	path string
	mu   sync.RWMutex
	cur  *Summary
}

// NewService builds a Service backed by path, loading any existing
// artifact found there. A missing or corrupt file is not an error — the
// service simply starts without a current summary, serving the
// hard-coded fallback until the next regeneration.
func NewService(path string) *Service {
	s := &Service{path: path}
	if data, err := os.ReadFile(path); err == nil {
		var loaded Summary
		if yaml.Unmarshal(data, &loaded) == nil {
			s.cur = &loaded
		}
	}
	return s
}

// Current returns the current artifact, or the stable hard-coded
// fallback object when none has been generated yet.
func (s *Service) Current() Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.cur == nil {
		return fallbackSummary()
	}
	return *s.cur
}

// Delete removes the artifact, both on disk and in memory. This MUST be
// called before any (re)index begins writing new content, so a
// concurrent reader never observes a summary describing a corpus that
// no longer matches the index (§3's KnowledgeSummary invariant).
func (s *Service) Delete() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cur = nil
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("knowledge: delete artifact: %w", err)
	}
	return nil
}

const summaryGenerationSystemPrompt = `You are summarizing a corpus of building regulation documents for end users.

Respond with nothing but a JSON object of the exact shape:
{"overview": "...", "topics": ["...", ...], "suggested_questions": ["...", ...]}

Write 5-8 topics and 5-8 suggested questions a user might ask about these regulations.`

// Regenerate must be the final step of an (re)index. It sends the
// caller-supplied sampleChunks to the model, asks for an overview, and
// atomically replaces the persisted artifact.
func (s *Service) Regenerate(ctx context.Context, llm Completer, sampleChunks []string) (Summary, error) {
	messages := []llms.Message{
		{Role: llms.RoleSystem, Content: summaryGenerationSystemPrompt},
		{Role: llms.RoleUser, Content: "Corpus sample:\n\n" + strings.Join(sampleChunks, "\n---\n")},
	}

	text, err := llm.Complete(ctx, messages)
	if err != nil {
		return Summary{}, fmt.Errorf("knowledge: generate summary: %w", err)
	}

	summary, err := parseSummary(text)
	if err != nil {
		return Summary{}, err
	}
	summary.GeneratedAt = time.Now()
	summary.SuggestedQuestions = ensureDrawingQuestions(summary.SuggestedQuestions)

	if err := s.persist(summary); err != nil {
		return Summary{}, err
	}

	s.mu.Lock()
	s.cur = &summary
	s.mu.Unlock()

	return summary, nil
}

// ensureDrawingQuestions pads suggested with fallbackDrawingQuestions
// until at least three drawing-oriented prompts are present.
func ensureDrawingQuestions(suggested []string) []string {
	drawingCount := 0
	for _, q := range suggested {
		if containsDrawingWord(q) {
			drawingCount++
		}
	}
	out := append([]string{}, suggested...)
	for _, q := range fallbackDrawingQuestions {
		if drawingCount >= 3 {
			break
		}
		out = append(out, q)
		drawingCount++
	}
	return out
}

func containsDrawingWord(q string) bool {
	lower := strings.ToLower(q)
	for _, word := range []string{"drawing", "plot area", "building height", "extension depth"} {
		if strings.Contains(lower, word) {
			return true
		}
	}
	return false
}

func parseSummary(text string) (Summary, error) {
	var s Summary
	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start == -1 || end == -1 || end < start {
		return s, fmt.Errorf("knowledge: model did not return a JSON summary")
	}
	var raw struct {
		Overview           string   `json:"overview"`
		Topics             []string `json:"topics"`
		SuggestedQuestions []string `json:"suggested_questions"`
	}
	if err := json.Unmarshal([]byte(text[start:end+1]), &raw); err != nil {
		return s, fmt.Errorf("knowledge: unparseable summary: %w", err)
	}
	s.Overview, s.Topics, s.SuggestedQuestions = raw.Overview, raw.Topics, raw.SuggestedQuestions
	return s, nil
}

// persist writes summary to s.path via write-to-temp-then-rename, so a
// reader never observes a half-written artifact.
func (s *Service) persist(summary Summary) error {
	data, err := yaml.Marshal(summary)
	if err != nil {
		return fmt.Errorf("knowledge: marshal artifact: %w", err)
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("knowledge: create artifact directory: %w", err)
		}
	}

	tempPath := s.path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return fmt.Errorf("knowledge: write artifact: %w", err)
	}
	if err := os.Rename(tempPath, s.path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("knowledge: rename artifact into place: %w", err)
	}
	return nil
}
