package kpi

// FunnelStage is one named step of a funnel.
type FunnelStage struct {
	Name       string  `json:"name" yaml:"name"`
	Value      int     `json:"value" yaml:"value"`
	Percentage float64 `json:"percentage" yaml:"percentage"`
}

// Stage names a count to place in a funnel.
type Stage struct {
	Name  string
	Value int
}

// BuildFunnel computes stage percentages relative to the first stage.
// The first stage is always 100; the rest are 0 when the first value is 0.
func BuildFunnel(stages ...Stage) []FunnelStage {
	out := make([]FunnelStage, len(stages))
	if len(stages) == 0 {
		return out
	}
	base := stages[0].Value
	for i, s := range stages {
		pct := 100.0
		if i > 0 {
			pct = Rate(s.Value, base)
		}
		out[i] = FunnelStage{Name: s.Name, Value: s.Value, Percentage: pct}
	}
	return out
}
