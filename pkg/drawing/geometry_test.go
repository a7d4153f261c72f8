package drawing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func rectPolyline(layer string, xmin, ymin, xmax, ymax float64) Object {
	return Object{
		Kind:   KindPolyline,
		Layer:  layer,
		Closed: true,
		Points: []Point{
			{X: xmin, Y: ymin},
			{X: xmax, Y: ymin},
			{X: xmax, Y: ymax},
			{X: xmin, Y: ymax},
		},
	}
}

func TestPlotArea(t *testing.T) {
	t.Run("single plot boundary", func(t *testing.T) {
		d := &Drawing{Objects: []Object{
			rectPolyline("Plot Boundary", 0, 0, 20000, 20000),
		}}
		area := PlotArea(d)
		assert.InDelta(t, 400.0, area, 0.001)
	})

	t.Run("absent layer returns not determinable", func(t *testing.T) {
		d := &Drawing{Objects: []Object{rectPolyline("Walls", 0, 0, 1000, 1000)}}
		assert.Equal(t, NotDeterminable, PlotArea(d))
	})

	t.Run("empty drawing returns not determinable", func(t *testing.T) {
		assert.Equal(t, NotDeterminable, PlotArea(&Drawing{}))
	})

	t.Run("tie-break picks largest absolute area", func(t *testing.T) {
		d := &Drawing{Objects: []Object{
			rectPolyline("Plot Boundary", 0, 0, 5000, 5000),
			rectPolyline("Plot Boundary", 0, 0, 20000, 20000),
		}}
		area := PlotArea(d)
		assert.InDelta(t, 400.0, area, 0.001)
	})

	t.Run("fewer than three points not determinable", func(t *testing.T) {
		d := &Drawing{Objects: []Object{{
			Kind:   KindPolyline,
			Layer:  "Plot Boundary",
			Closed: true,
			Points: []Point{{X: 0, Y: 0}, {X: 1000, Y: 1000}},
		}}}
		assert.Equal(t, NotDeterminable, PlotArea(d))
	})

	t.Run("duplicate consecutive points collapsed without affecting area", func(t *testing.T) {
		d := &Drawing{Objects: []Object{{
			Kind:   KindPolyline,
			Layer:  "Plot Boundary",
			Closed: true,
			Points: []Point{
				{X: 0, Y: 0}, {X: 0, Y: 0},
				{X: 20000, Y: 0},
				{X: 20000, Y: 20000}, {X: 20000, Y: 20000},
				{X: 0, Y: 20000},
			},
		}}}
		assert.InDelta(t, 400.0, PlotArea(d), 0.001)
	})
}

func TestExtensionDepth(t *testing.T) {
	t.Run("two walls polylines use the second", func(t *testing.T) {
		d := &Drawing{Objects: []Object{
			rectPolyline("Walls", 0, 0, 10000, 8000),
			rectPolyline("Walls", 0, 8000, 6000, 15000),
		}}
		depth := ExtensionDepth(d)
		assert.InDelta(t, 7.0, depth, 0.001)
	})

	t.Run("fewer than two walls not determinable", func(t *testing.T) {
		d := &Drawing{Objects: []Object{rectPolyline("Walls", 0, 0, 10000, 8000)}}
		assert.Equal(t, NotDeterminable, ExtensionDepth(d))
	})
}

func TestBuildingHeight(t *testing.T) {
	t.Run("from height property", func(t *testing.T) {
		d := &Drawing{Objects: []Object{{
			Kind:       KindOther,
			Properties: map[string]interface{}{"height": 9000.0},
		}}}
		assert.InDelta(t, 9.0, BuildingHeight(d), 0.001)
	})

	t.Run("from max z coordinate", func(t *testing.T) {
		d := &Drawing{Objects: []Object{{
			Kind: KindPolyline,
			Points: []Point{
				{X: 0, Y: 0, Z: 3000, HasZ: true},
				{X: 0, Y: 0, Z: 9000, HasZ: true},
			},
		}}}
		assert.InDelta(t, 9.0, BuildingHeight(d), 0.001)
	})

	t.Run("neither present not determinable", func(t *testing.T) {
		d := &Drawing{Objects: []Object{{Kind: KindPolyline, Points: []Point{{X: 0, Y: 0}}}}}
		assert.Equal(t, NotDeterminable, BuildingHeight(d))
	})
}

func TestAllDimensionsIdempotent(t *testing.T) {
	d := &Drawing{Objects: []Object{
		rectPolyline("Plot Boundary", 0, 0, 20000, 20000),
		rectPolyline("Walls", 0, 0, 10000, 8000),
		rectPolyline("Walls", 0, 8000, 6000, 15000),
	}}

	first := AllDimensions(d)
	second := AllDimensions(d)
	assert.Equal(t, first, second)
}

func TestPlotAreaRotationInvariant(t *testing.T) {
	base := []Point{
		{X: 0, Y: 0}, {X: 20000, Y: 0}, {X: 20000, Y: 20000}, {X: 0, Y: 20000},
	}

	rotated := append(append([]Point{}, base[2:]...), base[:2]...)

	d1 := &Drawing{Objects: []Object{{Kind: KindPolyline, Layer: "Plot Boundary", Closed: true, Points: base}}}
	d2 := &Drawing{Objects: []Object{{Kind: KindPolyline, Layer: "Plot Boundary", Closed: true, Points: rotated}}}

	assert.Equal(t, PlotArea(d1), PlotArea(d2))
}

func TestUnknownKindAndMissingLayerIgnored(t *testing.T) {
	d := &Drawing{Objects: []Object{
		{Kind: "weird-future-kind", Layer: "Plot Boundary", Closed: true, Points: []Point{
			{X: 0, Y: 0}, {X: 1000, Y: 0}, {X: 1000, Y: 1000},
		}},
		{Kind: KindPolyline, Points: []Point{{X: 0, Y: 0}}},
	}}

	assert.NotPanics(t, func() {
		AllDimensions(d)
	})
	assert.Equal(t, NotDeterminable, PlotArea(d))
}
