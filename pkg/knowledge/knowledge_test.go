package knowledge

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/regulon-ai/regulon/pkg/llms"
)

type fakeCompleter struct {
	text string
	err  error
}

func (f *fakeCompleter) Complete(ctx context.Context, messages []llms.Message) (string, error) {
	return f.text, f.err
}

func TestCurrentFallsBackWhenAbsent(t *testing.T) {
	s := NewService(filepath.Join(t.TempDir(), "missing.yaml"))
	summary := s.Current()
	assert.NotEmpty(t, summary.Overview)
	assert.GreaterOrEqual(t, len(summary.SuggestedQuestions), 3)
}

func TestRegenerateEnsuresThreeDrawingQuestions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "summary.yaml")
	s := NewService(path)
	completer := &fakeCompleter{text: `{"overview":"o","topics":["t1"],"suggested_questions":["What is the max height?"]}`}

	summary, err := s.Regenerate(context.Background(), completer, []string{"chunk one"})
	require.NoError(t, err)

	drawingCount := 0
	for _, q := range summary.SuggestedQuestions {
		if containsDrawingWord(q) {
			drawingCount++
		}
	}
	assert.GreaterOrEqual(t, drawingCount, 3)
	assert.False(t, summary.GeneratedAt.IsZero())
}

func TestRegeneratePersistsAndDeleteClearsCurrent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "summary.yaml")
	s := NewService(path)
	completer := &fakeCompleter{text: `{"overview":"o","topics":["t1"],"suggested_questions":[]}`}

	_, err := s.Regenerate(context.Background(), completer, []string{"chunk"})
	require.NoError(t, err)

	reloaded := NewService(path)
	assert.Equal(t, "o", reloaded.Current().Overview)

	require.NoError(t, s.Delete())
	assert.NotEqual(t, "o", s.Current().Overview)
}
