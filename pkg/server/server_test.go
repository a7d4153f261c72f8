package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/regulon-ai/regulon/pkg/agentic"
	"github.com/regulon-ai/regulon/pkg/knowledge"
	"github.com/regulon-ai/regulon/pkg/llms"
	"github.com/regulon-ai/regulon/pkg/orchestrator"
	"github.com/regulon-ai/regulon/pkg/prompt"
	"github.com/regulon-ai/regulon/pkg/tool"
	"github.com/regulon-ai/regulon/pkg/vector"
)

type fakeBackend struct{}

func (fakeBackend) Search(ctx context.Context, queryText string, topK int) ([]vector.Hit, error) {
	return nil, nil
}
func (fakeBackend) Healthy(ctx context.Context) (bool, bool) { return true, true }

type fakeProvider struct{ text string }

func (p fakeProvider) Complete(ctx context.Context, messages []llms.Message) (string, error) {
	return p.text, nil
}
func (p fakeProvider) CompleteWithTools(ctx context.Context, messages []llms.Message, tools []llms.ToolDefinition) (llms.Completion, error) {
	return llms.Completion{Text: p.text}, nil
}
func (p fakeProvider) Name() string { return "fake" }

func newTestServer(t *testing.T) *Server {
	t.Helper()
	provider := fakeProvider{text: "I don't have enough information"}
	gateway := vector.NewGateway(fakeBackend{}, vector.GatewayConfig{})
	assembler, err := prompt.NewAssembler("gpt-4o", 12000)
	require.NoError(t, err)
	tools := tool.NewRegistry()
	know := knowledge.NewService(filepath.Join(t.TempDir(), "summary.yaml"))
	loop := agentic.NewLoop(provider, tools, assembler, 10)
	orch := orchestrator.New(orchestrator.Services{
		Gateway: gateway, Assembler: assembler, LLM: provider, Tools: tools, Loop: loop, Knowledge: know,
	})

	return New(Config{Addr: ":0", Orch: orch, Loop: loop, Gateway: gateway, Knowledge: know, LLM: provider})
}

func TestHandleHealth(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest("GET", "/health", nil)
	rec := httptest.NewRecorder()
	s.router().ServeHTTP(rec, req)
	assert.Equal(t, 200, rec.Code)
}

func TestHandleKnowledgeSummary(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest("GET", "/knowledge-summary", nil)
	rec := httptest.NewRecorder()
	s.router().ServeHTTP(rec, req)
	assert.Equal(t, 200, rec.Code)

	var summary knowledge.Summary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.NotEmpty(t, summary.Overview)
}

func TestHandleQueryRejectsEmptyQuestion(t *testing.T) {
	s := newTestServer(t)
	body, _ := json.Marshal(queryRequest{Question: ""})
	req := httptest.NewRequest("POST", "/query", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	s.router().ServeHTTP(rec, req)
	assert.Equal(t, 400, rec.Code)
}

func TestHandleQueryReturnsAnswer(t *testing.T) {
	s := newTestServer(t)
	body, _ := json.Marshal(queryRequest{Question: "what is the max building height?"})
	req := httptest.NewRequest("POST", "/query", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	s.router().ServeHTTP(rec, req)
	require.Equal(t, 200, rec.Code)

	var resp queryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.KnowledgeSummary)
}

func TestHandleReindexRebuildsSummary(t *testing.T) {
	s := newTestServer(t)
	s.llm = fakeProvider{text: `{"overview":"rebuilt","topics":["t"],"suggested_questions":["What is my plot area?"]}`}

	body, _ := json.Marshal(reindexRequest{SampleChunks: []string{"chunk"}})
	req := httptest.NewRequest("POST", "/internal/reindex", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	s.router().ServeHTTP(rec, req)
	require.Equal(t, 200, rec.Code)

	var summary knowledge.Summary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.Equal(t, "rebuilt", summary.Overview)
}
