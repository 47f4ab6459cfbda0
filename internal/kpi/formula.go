package kpi

import (
	"fmt"
	"sort"
	"strings"
)

// Metrics whose formula can be selected per dataset.
const (
	MetricResponseRate   = "response_rate"
	MetricAcceptanceRate = "acceptance_rate"
)

// Formula variant names.
const (
	ByTotal    = "by_total"
	BySent     = "by_sent"
	ByAccepted = "by_accepted"
)

// Formulas maps a metric name to the selected variant.
type Formulas map[string]string

// formulaVariants lists, per shape and metric, the allowed variants.
// The first variant is the default.
var formulaVariants = map[Shape]map[string][]string{
	ShapeLinkedIn: {
		MetricResponseRate: {BySent, ByTotal},
	},
	ShapeConnections: {
		MetricAcceptanceRate: {ByTotal, BySent},
		MetricResponseRate:   {ByAccepted, ByTotal},
	},
}

// DefaultFormulas returns the default variant of every selectable metric of shape.
func DefaultFormulas(shape Shape) Formulas {
	out := Formulas{}
	for metric, variants := range formulaVariants[shape] {
		out[metric] = variants[0]
	}
	return out
}

// ResolveFormulas validates selected against shape and fills in defaults.
func ResolveFormulas(shape Shape, selected Formulas) (Formulas, error) {
	out := DefaultFormulas(shape)
	allowed := formulaVariants[shape]

	metrics := make([]string, 0, len(selected))
	for m := range selected {
		metrics = append(metrics, m)
	}
	sort.Strings(metrics)

	for _, metric := range metrics {
		variant := strings.ToLower(strings.TrimSpace(selected[metric]))
		variants, ok := allowed[metric]
		if !ok {
			return nil, fmt.Errorf("metric %q has no selectable formula for shape %s", metric, shape)
		}
		if variant == "" {
			continue
		}
		if !contains(variants, variant) {
			return nil, fmt.Errorf("unknown formula %q for %s (valid: %s)", variant, metric, strings.Join(variants, ", "))
		}
		out[metric] = variant
	}
	return out, nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
