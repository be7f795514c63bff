package geometry

import (
	"math"

	"realtime-canvas/internal/model"
)

// Anchor is a named point on a shape's boundary that a connector endpoint
// can bind to.
type Anchor struct {
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Side string  `json:"side"`
}

// GlobalAnchor is an anchor together with the object that owns it.
type GlobalAnchor struct {
	ObjectID string
	Anchor   Anchor
}

// Circle anchor sides, clockwise from 3 o'clock.
var circleSides = []string{
	"right", "bottom-right", "bottom", "bottom-left",
	"left", "top-left", "top", "top-right",
}

// AnchorsOf returns the bindable anchor points of a shape in board space.
// Rectangular shapes expose 16 points (4 corners plus 3 evenly spaced points
// per edge), circles expose 8 points around the ellipse. All points are
// rotated about the shape's pivot when the shape has nonzero rotation.
func AnchorsOf(shape *model.CanvasObject) []Anchor {
	if shape == nil {
		return nil
	}
	if shape.Kind == model.KindCircle {
		return circleAnchors(shape)
	}
	return rectAnchors(shape)
}

func rectAnchors(shape *model.CanvasObject) []Anchor {
	x, y, w, h := shape.X, shape.Y, shape.Width, shape.Height
	anchors := make([]Anchor, 0, 16)

	anchors = append(anchors,
		Anchor{x, y, "top-left"},
		Anchor{x + w, y, "top-right"},
		Anchor{x + w, y + h, "bottom-right"},
		Anchor{x, y + h, "bottom-left"},
	)

	// 3 interior points per edge at 1/4, 1/2, 3/4
	for i := 1; i <= 3; i++ {
		t := float64(i) / 4
		anchors = append(anchors,
			Anchor{x + w*t, y, "top"},
			Anchor{x + w, y + h*t, "right"},
			Anchor{x + w*t, y + h, "bottom"},
			Anchor{x, y + h*t, "left"},
		)
	}

	if shape.Rotation != 0 {
		// Rectangular shapes pivot about their top-left corner.
		for i := range anchors {
			anchors[i].X, anchors[i].Y = rotatePoint(anchors[i].X, anchors[i].Y, x, y, shape.Rotation)
		}
	}
	return anchors
}

func circleAnchors(shape *model.CanvasObject) []Anchor {
	cx := shape.X + shape.Width/2
	cy := shape.Y + shape.Height/2
	rx := shape.Width / 2
	ry := shape.Height / 2

	anchors := make([]Anchor, 0, 8)
	for i := 0; i < 8; i++ {
		rad := float64(i) * 45 * math.Pi / 180
		anchors = append(anchors, Anchor{
			X:    cx + rx*math.Cos(rad),
			Y:    cy + ry*math.Sin(rad),
			Side: circleSides[i],
		})
	}

	if shape.Rotation != 0 {
		// Circles pivot about their center.
		for i := range anchors {
			anchors[i].X, anchors[i].Y = rotatePoint(anchors[i].X, anchors[i].Y, cx, cy, shape.Rotation)
		}
	}
	return anchors
}

// ClosestAnchor returns the anchor of shape nearest to (px, py).
func ClosestAnchor(shape *model.CanvasObject, px, py float64) (Anchor, bool) {
	anchors := AnchorsOf(shape)
	if len(anchors) == 0 {
		return Anchor{}, false
	}
	best := anchors[0]
	bestDist := sqDist(best.X, best.Y, px, py)
	for _, a := range anchors[1:] {
		if d := sqDist(a.X, a.Y, px, py); d < bestDist {
			best, bestDist = a, d
		}
	}
	return best, true
}

// AnchorForSide resolves a remembered anchor side on a shape. Sides with
// several anchors (rect edges) resolve to the one nearest the toward point.
// Falls back to the overall closest anchor when the side is unknown.
func AnchorForSide(shape *model.CanvasObject, side string, towardX, towardY float64) (Anchor, bool) {
	var best *Anchor
	bestDist := math.MaxFloat64
	for _, a := range AnchorsOf(shape) {
		if a.Side != side {
			continue
		}
		if d := sqDist(a.X, a.Y, towardX, towardY); d < bestDist {
			c := a
			best, bestDist = &c, d
		}
	}
	if best != nil {
		return *best, true
	}
	return ClosestAnchor(shape, towardX, towardY)
}

// NearestAnchorGlobal scans every eligible object's anchors and returns the
// globally nearest one within maxRadius of (px, py). Used for snap-to-anchor
// while drawing or dragging a connector endpoint.
func NearestAnchorGlobal(objects map[string]*model.CanvasObject, px, py float64, excludeKinds []model.Kind, maxRadius float64, skipIDs map[string]bool) (GlobalAnchor, bool) {
	excluded := make(map[model.Kind]bool, len(excludeKinds))
	for _, k := range excludeKinds {
		excluded[k] = true
	}

	var best GlobalAnchor
	bestDist := maxRadius * maxRadius
	found := false

	for id, obj := range objects {
		if skipIDs[id] || excluded[obj.Kind] {
			continue
		}
		for _, a := range AnchorsOf(obj) {
			if d := sqDist(a.X, a.Y, px, py); d <= bestDist {
				best = GlobalAnchor{ObjectID: id, Anchor: a}
				bestDist = d
				found = true
			}
		}
	}
	return best, found
}

func rotatePoint(x, y, cx, cy, deg float64) (float64, float64) {
	rad := deg * math.Pi / 180
	sin, cos := math.Sin(rad), math.Cos(rad)
	dx, dy := x-cx, y-cy
	return cx + dx*cos - dy*sin, cy + dx*sin + dy*cos
}

func sqDist(x1, y1, x2, y2 float64) float64 {
	dx, dy := x2-x1, y2-y1
	return dx*dx + dy*dy
}
