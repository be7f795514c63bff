package model

import (
	"time"
)

// Kind 캔버스 오브젝트 종류
type Kind string

const (
	KindNote      Kind = "note"
	KindRectangle Kind = "rectangle"
	KindCircle    Kind = "circle"
	KindFrame     Kind = "frame"
	KindArrow     Kind = "arrow"
	KindLine      Kind = "line"
	KindText      Kind = "text"
)

// IsConnector reports whether the kind is an arrow or line.
func (k Kind) IsConnector() bool {
	return k == KindArrow || k == KindLine
}

// Props type-specific property bag. Fields are pointers so partial updates
// can distinguish "absent" from "set"; a connector binding pointing at an
// empty string means the binding was cleared.
type Props struct {
	Color       *string  `json:"color,omitempty"`
	Stroke      *string  `json:"stroke,omitempty"`
	StrokeWidth *float64 `json:"strokeWidth,omitempty"`
	Text        *string  `json:"text,omitempty"`
	FontSize    *float64 `json:"fontSize,omitempty"`
	FontFamily  *string  `json:"fontFamily,omitempty"`

	// Connector-only fields. Points holds [x1, y1, x2, y2] offsets from the
	// object origin.
	Points          []float64 `json:"points,omitempty"`
	StartObjectID   *string   `json:"startObjectId,omitempty"`
	EndObjectID     *string   `json:"endObjectId,omitempty"`
	StartAnchorSide *string   `json:"startAnchorSide,omitempty"`
	EndAnchorSide   *string   `json:"endAnchorSide,omitempty"`
}

// CanvasObject is the unit of synchronization for a board.
type CanvasObject struct {
	ID        string  `json:"id"`
	BoardID   string  `json:"boardId"`
	Kind      Kind    `json:"kind"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Width     float64 `json:"width"`
	Height    float64 `json:"height"`
	Rotation  float64 `json:"rotation"`
	Props     Props   `json:"props"`
	UpdatedBy string  `json:"updatedBy"`
	UpdatedAt int64   `json:"updatedAt"` // unix milliseconds
	Version   int64   `json:"version"`
}

// Patch is a partial update for a CanvasObject. Top-level fields are
// shallow-merged, Props are deep-merged so partial prop updates do not
// clobber sibling props.
type Patch struct {
	X         *float64 `json:"x,omitempty"`
	Y         *float64 `json:"y,omitempty"`
	Width     *float64 `json:"width,omitempty"`
	Height    *float64 `json:"height,omitempty"`
	Rotation  *float64 `json:"rotation,omitempty"`
	Props     *Props   `json:"props,omitempty"`
	UpdatedBy *string  `json:"updatedBy,omitempty"`
	UpdatedAt *int64   `json:"updatedAt,omitempty"`
	Version   *int64   `json:"version,omitempty"`
}

// NowMillis current wall clock as unix milliseconds.
func NowMillis() int64 {
	return time.Now().UnixMilli()
}

// Clone returns a deep copy of the object.
func (o *CanvasObject) Clone() *CanvasObject {
	if o == nil {
		return nil
	}
	c := *o
	c.Props = o.Props.Clone()
	return &c
}

// Clone returns a deep copy of the property bag.
func (p Props) Clone() Props {
	c := p
	c.Color = cloneString(p.Color)
	c.Stroke = cloneString(p.Stroke)
	c.StrokeWidth = cloneFloat(p.StrokeWidth)
	c.Text = cloneString(p.Text)
	c.FontSize = cloneFloat(p.FontSize)
	c.FontFamily = cloneString(p.FontFamily)
	if p.Points != nil {
		c.Points = append([]float64(nil), p.Points...)
	}
	c.StartObjectID = cloneString(p.StartObjectID)
	c.EndObjectID = cloneString(p.EndObjectID)
	c.StartAnchorSide = cloneString(p.StartAnchorSide)
	c.EndAnchorSide = cloneString(p.EndAnchorSide)
	return c
}

// Apply merges a patch into the object. Top-level fields are replaced when
// present; Props are merged field by field.
func (o *CanvasObject) Apply(p Patch) {
	if p.X != nil {
		o.X = *p.X
	}
	if p.Y != nil {
		o.Y = *p.Y
	}
	if p.Width != nil {
		o.Width = *p.Width
	}
	if p.Height != nil {
		o.Height = *p.Height
	}
	if p.Rotation != nil {
		o.Rotation = *p.Rotation
	}
	if p.Props != nil {
		o.Props.Merge(*p.Props)
	}
	if p.UpdatedBy != nil {
		o.UpdatedBy = *p.UpdatedBy
	}
	if p.UpdatedAt != nil {
		o.UpdatedAt = *p.UpdatedAt
	}
	if p.Version != nil {
		o.Version = *p.Version
	}
}

// Merge copies every set field of in over the receiver. A binding set to the
// empty string clears that binding.
func (p *Props) Merge(in Props) {
	if in.Color != nil {
		p.Color = cloneString(in.Color)
	}
	if in.Stroke != nil {
		p.Stroke = cloneString(in.Stroke)
	}
	if in.StrokeWidth != nil {
		p.StrokeWidth = cloneFloat(in.StrokeWidth)
	}
	if in.Text != nil {
		p.Text = cloneString(in.Text)
	}
	if in.FontSize != nil {
		p.FontSize = cloneFloat(in.FontSize)
	}
	if in.FontFamily != nil {
		p.FontFamily = cloneString(in.FontFamily)
	}
	if in.Points != nil {
		p.Points = append([]float64(nil), in.Points...)
	}
	p.StartObjectID = mergeBinding(p.StartObjectID, in.StartObjectID)
	p.EndObjectID = mergeBinding(p.EndObjectID, in.EndObjectID)
	p.StartAnchorSide = mergeBinding(p.StartAnchorSide, in.StartAnchorSide)
	p.EndAnchorSide = mergeBinding(p.EndAnchorSide, in.EndAnchorSide)
}

// Binding returns the bound object id for an endpoint, or "" when free.
func (p Props) Binding(start bool) string {
	ref := p.EndObjectID
	if start {
		ref = p.StartObjectID
	}
	if ref == nil {
		return ""
	}
	return *ref
}

// AnchorSide returns the remembered anchor side for an endpoint, or "".
func (p Props) AnchorSide(start bool) string {
	side := p.EndAnchorSide
	if start {
		side = p.StartAnchorSide
	}
	if side == nil {
		return ""
	}
	return *side
}

// FullPatch builds a patch that makes any object equal to o, including
// explicit clears for absent connector bindings. Used when a restored
// snapshot must fully supersede whatever is persisted.
func FullPatch(o *CanvasObject) Patch {
	props := o.Props.Clone()
	if props.StartObjectID == nil {
		props.StartObjectID = Str("")
	}
	if props.EndObjectID == nil {
		props.EndObjectID = Str("")
	}
	if props.StartAnchorSide == nil {
		props.StartAnchorSide = Str("")
	}
	if props.EndAnchorSide == nil {
		props.EndAnchorSide = Str("")
	}
	return Patch{
		X:         F64(o.X),
		Y:         F64(o.Y),
		Width:     F64(o.Width),
		Height:    F64(o.Height),
		Rotation:  F64(o.Rotation),
		Props:     &props,
		UpdatedBy: Str(o.UpdatedBy),
		UpdatedAt: I64(o.UpdatedAt),
		Version:   I64(o.Version),
	}
}

// Str pointer helper for Props/Patch literals.
func Str(s string) *string { return &s }

// F64 pointer helper for Props/Patch literals.
func F64(f float64) *float64 { return &f }

// I64 pointer helper for Patch literals.
func I64(i int64) *int64 { return &i }

func mergeBinding(cur, in *string) *string {
	if in == nil {
		return cur
	}
	if *in == "" {
		return nil // explicit clear
	}
	return cloneString(in)
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneFloat(f *float64) *float64 {
	if f == nil {
		return nil
	}
	v := *f
	return &v
}
