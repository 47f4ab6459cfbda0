// Package kpi derives outreach metrics from a record list.
//
// Every computation is a pure function of its input: records are never
// mutated and the same input always yields an identical Snapshot.
package kpi

import (
	"fmt"

	"github.com/dbsmedya/outreachkpi/internal/record"
)

// Options carries the per-dataset business constants and formula choices.
// Unset business fields fall back to the shape defaults.
type Options struct {
	Business BusinessOverride
	Formulas Formulas
}

// Calculator computes snapshots for one dataset shape.
type Calculator struct {
	shape    Shape
	business Business
	formulas Formulas
}

// NewCalculator builds a Calculator for shape with opts merged over the shape defaults.
func NewCalculator(shape Shape, opts Options) (*Calculator, error) {
	if _, err := ParseShape(string(shape)); err != nil {
		return nil, err
	}
	formulas, err := ResolveFormulas(shape, opts.Formulas)
	if err != nil {
		return nil, fmt.Errorf("invalid formulas: %w", err)
	}
	return &Calculator{
		shape:    shape,
		business: DefaultBusiness(shape).Merge(opts.Business),
		formulas: formulas,
	}, nil
}

// Shape returns the shape the calculator was built for.
func (c *Calculator) Shape() Shape { return c.shape }

// Business returns the effective business constants.
func (c *Calculator) Business() Business { return c.business }

// Compute derives a snapshot of dataset from records.
func (c *Calculator) Compute(dataset string, records []record.Record) *Snapshot {
	snap := &Snapshot{
		Dataset:     dataset,
		Shape:       c.shape,
		RecordCount: len(records),
		Business:    c.business,
		Formulas:    c.copyFormulas(),
	}
	switch c.shape {
	case ShapeEmail:
		snap.Email = computeEmail(records, c.business)
	case ShapeLinkedIn:
		snap.LinkedIn = computeLinkedIn(records, c.business, c.formulas)
	case ShapeConnections:
		snap.Connections = computeConnections(records, c.business, c.formulas)
	}
	return snap
}

func (c *Calculator) copyFormulas() Formulas {
	if len(c.formulas) == 0 {
		return nil
	}
	out := make(Formulas, len(c.formulas))
	for k, v := range c.formulas {
		out[k] = v
	}
	return out
}
