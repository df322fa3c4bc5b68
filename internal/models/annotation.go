package models

import (
	"fmt"

	"github.com/goccy/go-json"
)

// ShapeKind discriminates the annotation shape variants the canvas can draw.
type ShapeKind string

const (
	ShapePencil ShapeKind = "pencil"
	ShapeRect   ShapeKind = "rect"
	ShapeLine   ShapeKind = "line"
)

// Point is a canvas coordinate normalized to [0,1] so annotations scale
// with the rendered image size.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Shape is one drawn annotation element. The Type field selects the
// point-list interpretation: pencil is a freehand polyline of at least one
// point, rect and line are defined by their first and last points.
type Shape struct {
	Type        ShapeKind `json:"type"`
	Color       string    `json:"color,omitempty"`
	Points      []Point   `json:"points"`
	Highlighted bool      `json:"isHighlighted,omitempty"`
}

// Validate checks the shape structurally: a known discriminant and enough
// points for that variant.
func (s Shape) Validate() error {
	switch s.Type {
	case ShapePencil:
		if len(s.Points) < 1 {
			return fmt.Errorf("pencil shape requires at least 1 point, got %d", len(s.Points))
		}
	case ShapeRect, ShapeLine:
		if len(s.Points) < 2 {
			return fmt.Errorf("%s shape requires at least 2 points, got %d", s.Type, len(s.Points))
		}
	default:
		return fmt.Errorf("unknown shape type %q", s.Type)
	}
	for _, p := range s.Points {
		if p.X < 0 || p.X > 1 || p.Y < 0 || p.Y > 1 {
			return fmt.Errorf("%s shape point (%v,%v) outside normalized bounds", s.Type, p.X, p.Y)
		}
	}
	return nil
}

// Annotation is the drawing payload attached to a comment. The web client
// historically sent either a single shape object or an array of shapes; both
// forms decode into the same slice.
type Annotation []Shape

// UnmarshalJSON accepts a single shape object, an array of shapes, or null.
func (a *Annotation) UnmarshalJSON(data []byte) error {
	if len(data) == 0 || string(data) == "null" {
		*a = nil
		return nil
	}
	if data[0] == '[' {
		var shapes []Shape
		if err := json.Unmarshal(data, &shapes); err != nil {
			return err
		}
		*a = shapes
		return nil
	}
	var single Shape
	if err := json.Unmarshal(data, &single); err != nil {
		return err
	}
	*a = Annotation{single}
	return nil
}

// Validate checks every shape in the annotation.
func (a Annotation) Validate() error {
	for i, s := range a {
		if err := s.Validate(); err != nil {
			return fmt.Errorf("shape %d: %w", i, err)
		}
	}
	return nil
}
