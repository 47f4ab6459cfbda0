package kpi

import (
	"fmt"
	"strings"
)

// Shape identifies the record schema and metric rules of a dataset.
type Shape string

const (
	ShapeEmail       Shape = "email"
	ShapeLinkedIn    Shape = "linkedin"
	ShapeConnections Shape = "connections"
)

// Shapes lists every supported shape.
var Shapes = []Shape{ShapeEmail, ShapeLinkedIn, ShapeConnections}

// ParseShape returns the Shape named s (case-insensitive).
func ParseShape(s string) (Shape, error) {
	shape := Shape(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Shapes {
		if shape == known {
			return shape, nil
		}
	}
	return "", fmt.Errorf("unknown shape %q (valid: email, linkedin, connections)", s)
}

// EmptyPolicy decides what a data source does when a fetch returns no records.
type EmptyPolicy string

const (
	// EmptyKeep leaves the previous records and snapshot in place.
	EmptyKeep EmptyPolicy = "keep"
	// EmptyClear drops the snapshot so the view shows no data.
	EmptyClear EmptyPolicy = "clear"
	// EmptyCompute builds a snapshot from the empty list.
	EmptyCompute EmptyPolicy = "compute"
)

// ParseEmptyPolicy returns the policy named s. An empty s yields "".
func ParseEmptyPolicy(s string) (EmptyPolicy, error) {
	p := EmptyPolicy(strings.ToLower(strings.TrimSpace(s)))
	switch p {
	case "", EmptyKeep, EmptyClear, EmptyCompute:
		return p, nil
	}
	return "", fmt.Errorf("unknown empty policy %q (valid: keep, clear, compute)", s)
}

// DefaultEmptyPolicy returns the empty-result behavior of a shape.
func (s Shape) DefaultEmptyPolicy() EmptyPolicy {
	switch s {
	case ShapeEmail:
		return EmptyKeep
	case ShapeLinkedIn:
		return EmptyClear
	default:
		return EmptyCompute
	}
}
