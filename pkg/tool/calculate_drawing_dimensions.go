package tool

import (
	"fmt"

	"github.com/regulon-ai/regulon/pkg/drawing"
)

type calculateDrawingDimensionsArgs struct {
	DimensionType string `json:"dimension_type" jsonschema:"required,enum=plot_area,enum=extension_depth,enum=building_height,enum=all,description=Which measurement to compute"`
}

// CalculateDrawingDimensionsTool implements tool 3 of §4.5: a pure
// geometry call against the request's Drawing, with no LLM round-trip.
type CalculateDrawingDimensionsTool struct{}

// NewCalculateDrawingDimensionsTool builds the calculate_drawing_dimensions tool.
func NewCalculateDrawingDimensionsTool() *CalculateDrawingDimensionsTool {
	return &CalculateDrawingDimensionsTool{}
}

func (t *CalculateDrawingDimensionsTool) Name() string { return "calculate_drawing_dimensions" }

func (t *CalculateDrawingDimensionsTool) Description() string {
	return "Measure the current drawing: plot area, extension depth, building height, or all three."
}

func (t *CalculateDrawingDimensionsTool) Schema() map[string]any {
	schema, err := generateSchema[calculateDrawingDimensionsArgs]()
	if err != nil {
		return map[string]any{"type": "object"}
	}
	return schema
}

func (t *CalculateDrawingDimensionsTool) Call(ctx Context, rawArgs map[string]any) (map[string]any, error) {
	args, err := decodeArgs[calculateDrawingDimensionsArgs](rawArgs)
	if err != nil {
		return errorResult(err), nil
	}
	if ctx.Drawing == nil {
		return errorResult(fmt.Errorf("no drawing attached to this request")), nil
	}

	dims := map[string]any{}
	all := drawing.AllDimensions(ctx.Drawing)
	switch args.DimensionType {
	case "plot_area":
		dims["plot_area_m2"] = all.PlotAreaM2
	case "extension_depth":
		dims["extension_depth_m"] = all.ExtensionDepthM
	case "building_height":
		dims["building_height_m"] = all.BuildingHeightM
	case "all", "":
		dims["plot_area_m2"] = all.PlotAreaM2
		dims["extension_depth_m"] = all.ExtensionDepthM
		dims["building_height_m"] = all.BuildingHeightM
	default:
		return errorResult(fmt.Errorf("unknown dimension_type %q", args.DimensionType)), nil
	}

	return map[string]any{
		"success":    true,
		"dimensions": dims,
	}, nil
}
