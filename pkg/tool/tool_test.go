package tool

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/regulon-ai/regulon/pkg/drawing"
	"github.com/regulon-ai/regulon/pkg/llms"
	"github.com/regulon-ai/regulon/pkg/prompt"
	"github.com/regulon-ai/regulon/pkg/vector"
)

type fakeRetriever struct {
	hits []vector.Hit
	err  error
	topK int
}

func (f *fakeRetriever) Retrieve(ctx context.Context, queryText string, topK int) ([]vector.Hit, error) {
	f.topK = topK
	return f.hits, f.err
}

type fakeCompleter struct {
	text string
	err  error
}

func (f *fakeCompleter) Complete(ctx context.Context, messages []llms.Message) (string, error) {
	return f.text, f.err
}

func emptyContext(d *drawing.Drawing) Context {
	return Context{Context: context.Background(), Drawing: d}
}

func TestRetrieveRegulationsToolDefaultsTopK(t *testing.T) {
	rt := &fakeRetriever{hits: []vector.Hit{{Document: "doc-a", Page: 1, Content: "text", Score: 0.9}}}
	tl := NewRetrieveRegulationsTool(rt)

	result, err := tl.Call(emptyContext(nil), map[string]any{"query": "extension depth"})
	require.NoError(t, err)
	assert.Equal(t, true, result["success"])
	assert.Equal(t, 1, result["count"])
	assert.Equal(t, 5, rt.topK)
}

func TestCalculateDrawingDimensionsRequiresDrawing(t *testing.T) {
	tl := NewCalculateDrawingDimensionsTool()

	result, err := tl.Call(emptyContext(nil), map[string]any{"dimension_type": "all"})
	require.NoError(t, err)
	assert.Equal(t, false, result["success"])
	assert.Contains(t, result["error"], "no drawing")
}

func TestCalculateDrawingDimensionsAll(t *testing.T) {
	d := &drawing.Drawing{Objects: []drawing.Object{
		{
			Kind:   drawing.KindPolyline,
			Layer:  "Plot Boundary",
			Closed: true,
			Points: []drawing.Point{
				{X: 0, Y: 0}, {X: 20000, Y: 0}, {X: 20000, Y: 20000}, {X: 0, Y: 20000},
			},
		},
	}}
	tl := NewCalculateDrawingDimensionsTool()

	result, err := tl.Call(emptyContext(d), map[string]any{"dimension_type": "all"})
	require.NoError(t, err)
	require.Equal(t, true, result["success"])
	dims := result["dimensions"].(map[string]any)
	assert.Equal(t, 400.0, dims["plot_area_m2"])
}

func TestAnalyzeDrawingComplianceParsesVerdict(t *testing.T) {
	d := &drawing.Drawing{Objects: []drawing.Object{{Kind: drawing.KindPolyline, Layer: "Plot Boundary", Closed: true, Points: []drawing.Point{
		{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 10}, {X: 0, Y: 10},
	}}}}
	completer := &fakeCompleter{text: `{"violations":["max height 8m"],"compliant":["min setback 2m"]}`}
	tl := NewAnalyzeDrawingComplianceTool(completer)

	result, err := tl.Call(emptyContext(d), map[string]any{"regulations": []string{"max height 8m", "min setback 2m"}})
	require.NoError(t, err)
	require.Equal(t, true, result["success"])
	assert.Equal(t, []string{"max height 8m"}, result["violations"])
	assert.Equal(t, []string{"min setback 2m"}, result["compliant"])
}

func TestAnalyzeDrawingComplianceReportsMalformedVerdict(t *testing.T) {
	d := &drawing.Drawing{Objects: []drawing.Object{{Kind: drawing.KindLine, Layer: "Walls", Points: []drawing.Point{{X: 0, Y: 0}, {X: 1, Y: 1}}}}}
	completer := &fakeCompleter{text: "not json at all"}
	tl := NewAnalyzeDrawingComplianceTool(completer)

	result, err := tl.Call(emptyContext(d), map[string]any{"regulations": []string{"r1"}})
	require.NoError(t, err)
	assert.Equal(t, false, result["success"])
}

func TestVerifyComplianceParsesReport(t *testing.T) {
	d := &drawing.Drawing{Objects: []drawing.Object{{Kind: drawing.KindLine, Layer: "Walls", Points: []drawing.Point{{X: 0, Y: 0}, {X: 1, Y: 1}}}}}
	completer := &fakeCompleter{text: `{"compliant":true,"explanation":"within limits","remaining_issues":[]}`}
	tl := NewVerifyComplianceTool(completer)

	result, err := tl.Call(emptyContext(d), map[string]any{"regulations": []string{"r1"}})
	require.NoError(t, err)
	require.Equal(t, true, result["success"])
	assert.Equal(t, true, result["compliant"])
}

func TestRegistryDispatchUnknownTool(t *testing.T) {
	r := NewRegistry()
	result := r.Dispatch(emptyContext(nil), "does_not_exist", nil)
	assert.Equal(t, false, result["success"])
}

func TestRegistryDefinitionsIncludesAllFive(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(NewRetrieveRegulationsTool(&fakeRetriever{})))
	require.NoError(t, r.Register(NewAnalyzeDrawingComplianceTool(&fakeCompleter{})))
	require.NoError(t, r.Register(NewCalculateDrawingDimensionsTool()))
	assembler, err := prompt.NewAssembler("claude-3-5-sonnet-latest", 0)
	require.NoError(t, err)
	require.NoError(t, r.Register(NewGenerateCompliantDesignTool(assembler, &fakeCompleter{})))
	require.NoError(t, r.Register(NewVerifyComplianceTool(&fakeCompleter{})))

	defs := r.Definitions()
	require.Len(t, defs, 5)
	names := map[string]bool{}
	for _, d := range defs {
		names[d.Name] = true
		require.NotNil(t, d.Parameters)
	}
	for _, want := range []string{
		"retrieve_regulations", "analyze_drawing_compliance", "calculate_drawing_dimensions",
		"generate_compliant_design", "verify_compliance",
	} {
		assert.True(t, names[want], "missing tool %s", want)
	}
}
