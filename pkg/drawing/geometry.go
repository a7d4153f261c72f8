package drawing

import "math"

// NotDeterminable is the sentinel result string for every measurement
// that cannot be computed from the supplied drawing — never a panic,
// never an error return.
const NotDeterminable = "not determinable"

const (
	plotBoundaryLayer = "Plot Boundary"
	wallsLayer        = "Walls"
	mmPerMeter        = 1000.0
)

// Dimensions is the union of every C1 measurement, keyed the way
// all_dimensions reports them. A value is either a float64 or the
// NotDeterminable string.
type Dimensions struct {
	PlotAreaM2        interface{} `json:"plot_area_m2"`
	ExtensionDepthM   interface{} `json:"extension_depth_m"`
	BuildingHeightM   interface{} `json:"building_height_m"`
}

// BoundingBox is an axis-aligned box in the drawing's native unit.
type BoundingBox struct {
	XMin, YMin, XMax, YMax float64
}

// boundingBox computes the bounding box of a (deduplicated) point list.
// Callers must guarantee points is non-empty.
func boundingBox(points []Point) BoundingBox {
	bb := BoundingBox{XMin: points[0].X, YMin: points[0].Y, XMax: points[0].X, YMax: points[0].Y}
	for _, p := range points[1:] {
		bb.XMin = math.Min(bb.XMin, p.X)
		bb.YMin = math.Min(bb.YMin, p.Y)
		bb.XMax = math.Max(bb.XMax, p.X)
		bb.YMax = math.Max(bb.YMax, p.Y)
	}
	return bb
}

// ObjectBoundingBox returns the bounding box of obj's points, and false
// if obj has no points.
func ObjectBoundingBox(obj Object) (BoundingBox, bool) {
	pts := dedupConsecutive(obj.Points)
	if len(pts) == 0 {
		return BoundingBox{}, false
	}
	return boundingBox(pts), true
}

// shoelaceArea returns the signed area of the polygon described by
// points using the shoelace formula. Self-intersecting polygons are
// accepted; callers take the absolute value.
func shoelaceArea(points []Point) float64 {
	n := len(points)
	if n < 3 {
		return 0
	}
	var sum float64
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		sum += points[i].X*points[j].Y - points[j].X*points[i].Y
	}
	return sum / 2
}

// PlotArea computes the area in square meters of the "Plot Boundary"
// closed polyline with the largest absolute area, assuming millimeter
// coordinates. Returns NotDeterminable when no qualifying polyline
// exists.
func PlotArea(d *Drawing) interface{} {
	if d.IsEmpty() {
		return NotDeterminable
	}

	best := math.Inf(-1)
	found := false
	for _, obj := range d.ObjectsOnLayer(plotBoundaryLayer) {
		if obj.Kind != KindPolyline || !obj.Closed {
			continue
		}
		pts := dedupConsecutive(obj.Points)
		if len(pts) < 3 {
			continue
		}
		area := math.Abs(shoelaceArea(pts))
		if area > best {
			best = area
			found = true
		}
	}
	if !found {
		return NotDeterminable
	}
	areaM2 := best / (mmPerMeter * mmPerMeter)
	return areaM2
}

// ExtensionDepth returns, in meters, the absolute y-extent of the
// second "Walls" polyline's bounding box — the spec's convention for
// treating that polyline as the building extension. Returns
// NotDeterminable when fewer than two "Walls" polylines exist.
func ExtensionDepth(d *Drawing) interface{} {
	if d.IsEmpty() {
		return NotDeterminable
	}

	var walls []Object
	for _, obj := range d.ObjectsOnLayer(wallsLayer) {
		if obj.Kind == KindPolyline {
			walls = append(walls, obj)
		}
	}
	if len(walls) < 2 {
		return NotDeterminable
	}

	bb, ok := ObjectBoundingBox(walls[1])
	if !ok {
		return NotDeterminable
	}
	depthMM := math.Abs(bb.YMax - bb.YMin)
	return depthMM / mmPerMeter
}

// BuildingHeight returns the height in meters, read from a `height`
// property on any object, or the maximum z-coordinate across all
// 3-D points when present. Returns NotDeterminable otherwise.
func BuildingHeight(d *Drawing) interface{} {
	if d.IsEmpty() {
		return NotDeterminable
	}

	for _, obj := range d.Objects {
		if obj.Properties == nil {
			continue
		}
		raw, ok := obj.Properties["height"]
		if !ok {
			continue
		}
		if h, ok := toFloat(raw); ok {
			return h / mmPerMeter
		}
	}

	maxZ := math.Inf(-1)
	foundZ := false
	for _, obj := range d.Objects {
		for _, p := range obj.Points {
			if p.HasZ {
				foundZ = true
				if p.Z > maxZ {
					maxZ = p.Z
				}
			}
		}
	}
	if foundZ {
		return maxZ / mmPerMeter
	}

	return NotDeterminable
}

// AllDimensions computes the union of every C1 measurement. It is pure
// and idempotent: calling it twice on the same drawing, or on a
// cyclically rotated copy of any polyline's points, yields identical
// results.
func AllDimensions(d *Drawing) Dimensions {
	return Dimensions{
		PlotAreaM2:      PlotArea(d),
		ExtensionDepthM: ExtensionDepth(d),
		BuildingHeightM: BuildingHeight(d),
	}
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}
