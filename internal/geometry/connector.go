package geometry

import (
	"math"

	"realtime-canvas/internal/model"
)

// ArrowPlacement is the result of deriving a connector's absolute geometry
// from its bindings. Points holds [x1, y1, x2, y2] relative to (X, Y).
type ArrowPlacement struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
	Points [4]float64
}

// Patch converts a placement into a store patch for the connector.
func (p ArrowPlacement) Patch() model.Patch {
	points := append([]float64(nil), p.Points[:]...)
	return model.Patch{
		X:      model.F64(p.X),
		Y:      model.F64(p.Y),
		Width:  model.F64(p.Width),
		Height: model.F64(p.Height),
		Props:  &model.Props{Points: points},
	}
}

// RecomputeArrow derives a connector's absolute endpoints from the current
// transforms of the shapes it is bound to. A bound endpoint resolves to the
// remembered anchor side on its shape (or the closest anchor toward the
// opposite endpoint when the side is missing); an unbound endpoint keeps the
// arrow's own stored relative point. Returns false when the connector has no
// usable geometry.
func RecomputeArrow(arrow *model.CanvasObject, objects map[string]*model.CanvasObject) (ArrowPlacement, bool) {
	if arrow == nil || !arrow.Kind.IsConnector() {
		return ArrowPlacement{}, false
	}

	rawSX, rawSY := endpointRaw(arrow, true)
	rawEX, rawEY := endpointRaw(arrow, false)

	sx, sy := resolveEndpoint(arrow, objects, true, rawSX, rawSY, rawEX, rawEY)
	ex, ey := resolveEndpoint(arrow, objects, false, rawEX, rawEY, rawSX, rawSY)

	x := math.Min(sx, ex)
	y := math.Min(sy, ey)
	return ArrowPlacement{
		X:      x,
		Y:      y,
		Width:  math.Abs(ex - sx),
		Height: math.Abs(ey - sy),
		Points: [4]float64{sx - x, sy - y, ex - x, ey - y},
	}, true
}

// ConnectedArrows returns every connector whose start or end binding
// references shapeID.
func ConnectedArrows(objects map[string]*model.CanvasObject, shapeID string) []*model.CanvasObject {
	var arrows []*model.CanvasObject
	for _, obj := range objects {
		if !obj.Kind.IsConnector() {
			continue
		}
		if obj.Props.Binding(true) == shapeID || obj.Props.Binding(false) == shapeID {
			arrows = append(arrows, obj)
		}
	}
	return arrows
}

func resolveEndpoint(arrow *model.CanvasObject, objects map[string]*model.CanvasObject, start bool, rawX, rawY, towardX, towardY float64) (float64, float64) {
	boundID := arrow.Props.Binding(start)
	if boundID == "" {
		return rawX, rawY
	}
	shape, ok := objects[boundID]
	if !ok {
		// Bound shape gone; fall back to the stored point.
		return rawX, rawY
	}

	side := arrow.Props.AnchorSide(start)
	if side != "" {
		if a, ok := AnchorForSide(shape, side, towardX, towardY); ok {
			return a.X, a.Y
		}
	}
	if a, ok := ClosestAnchor(shape, towardX, towardY); ok {
		return a.X, a.Y
	}
	return rawX, rawY
}

// endpointRaw returns a connector endpoint's absolute position from its own
// stored relative points.
func endpointRaw(arrow *model.CanvasObject, start bool) (float64, float64) {
	pts := arrow.Props.Points
	if start {
		if len(pts) >= 2 {
			return arrow.X + pts[0], arrow.Y + pts[1]
		}
		return arrow.X, arrow.Y
	}
	if len(pts) >= 4 {
		return arrow.X + pts[2], arrow.Y + pts[3]
	}
	return arrow.X + arrow.Width, arrow.Y + arrow.Height
}
