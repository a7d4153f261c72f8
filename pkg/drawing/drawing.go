// Package drawing implements the ephemeral per-request geometric payload
// and the pure geometry functions tools call to measure it. Nothing here
// touches the network or the vector index; a Drawing lives only for the
// duration of one request and is never indexed.
package drawing

import "encoding/json"

// Kind distinguishes the small set of object shapes the analyzer
// understands. Unknown kinds are tolerated and simply ignored by every
// measurement — spec invariant: missing layers and unknown kinds never
// fail the analyzer.
type Kind string

const (
	KindPolyline Kind = "polyline"
	KindLine     Kind = "line"
	KindOther    Kind = "other"
)

// Point is a 2-D or 3-D vertex. HasZ distinguishes "z is 0" from
// "z was never supplied", since BuildingHeight only consults 3-D points.
type Point struct {
	X    float64
	Y    float64
	Z    float64
	HasZ bool
}

type pointWire struct {
	X float64  `json:"x"`
	Y float64  `json:"y"`
	Z *float64 `json:"z,omitempty"`
}

// MarshalJSON serializes a Point, omitting z when not supplied.
func (p Point) MarshalJSON() ([]byte, error) {
	w := pointWire{X: p.X, Y: p.Y}
	if p.HasZ {
		z := p.Z
		w.Z = &z
	}
	return json.Marshal(w)
}

// UnmarshalJSON parses a Point, recording whether z was present.
func (p *Point) UnmarshalJSON(data []byte) error {
	var w pointWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	p.X, p.Y = w.X, w.Y
	if w.Z != nil {
		p.Z = *w.Z
		p.HasZ = true
	}
	return nil
}

// Object is one drawn entity: a polyline, a line, or an unrecognized
// kind carried through for completeness.
type Object struct {
	Kind       Kind                   `json:"kind"`
	Layer      string                 `json:"layer"`
	Points     []Point                `json:"points"`
	Closed     bool                   `json:"closed,omitempty"`
	Properties map[string]interface{} `json:"properties,omitempty"`
}

// Drawing is an ordered list of Objects, supplied fresh with each
// request and never persisted inside the retrieval index.
type Drawing struct {
	Objects []Object `json:"objects"`
}

// IsEmpty reports whether the drawing carries no objects at all.
func (d *Drawing) IsEmpty() bool {
	return d == nil || len(d.Objects) == 0
}

// ObjectsOnLayer returns, in order, every object whose Layer exactly
// matches layer.
func (d *Drawing) ObjectsOnLayer(layer string) []Object {
	if d == nil {
		return nil
	}
	var out []Object
	for _, o := range d.Objects {
		if o.Layer == layer {
			out = append(out, o)
		}
	}
	return out
}

// dedupConsecutive collapses runs of repeated consecutive points, per
// the spec's edge case for duplicate vertices.
func dedupConsecutive(points []Point) []Point {
	if len(points) < 2 {
		return points
	}
	out := make([]Point, 0, len(points))
	out = append(out, points[0])
	for _, p := range points[1:] {
		last := out[len(out)-1]
		if p.X == last.X && p.Y == last.Y && p.Z == last.Z {
			continue
		}
		out = append(out, p)
	}
	return out
}
