package kpi

// Business holds the constants the derived business figures are computed from.
type Business struct {
	HourlyRate       float64 `json:"hourlyRate" yaml:"hourlyRate"`
	MinutesPerRecord float64 `json:"minutesPerRecord" yaml:"minutesPerRecord"`
	AvgDealSize      float64 `json:"avgDealSize" yaml:"avgDealSize"`
	CloseRate        float64 `json:"closeRate" yaml:"closeRate"`
	SystemCost       float64 `json:"systemCost" yaml:"systemCost"`
}

// DefaultBusiness returns the business constants of a shape.
func DefaultBusiness(shape Shape) Business {
	switch shape {
	case ShapeEmail:
		return Business{
			HourlyRate:       60,
			MinutesPerRecord: 30,
			AvgDealSize:      15000,
			CloseRate:        0.25,
		}
	case ShapeLinkedIn:
		return Business{
			HourlyRate:       60,
			MinutesPerRecord: 20,
			AvgDealSize:      20000,
			CloseRate:        0.15,
			SystemCost:       1500,
		}
	default:
		return Business{
			HourlyRate:       60,
			MinutesPerRecord: 5,
			AvgDealSize:      20000,
			CloseRate:        0.15,
			SystemCost:       1500,
		}
	}
}

// BusinessOverride holds per-dataset business constants. Nil fields keep
// the shape default; a zero value is applied like any other.
type BusinessOverride struct {
	HourlyRate       *float64
	MinutesPerRecord *float64
	AvgDealSize      *float64
	CloseRate        *float64
	SystemCost       *float64
}

// Merge returns b with every set, non-negative field of override applied.
func (b Business) Merge(override BusinessOverride) Business {
	apply := func(dst *float64, v *float64) {
		if v != nil && *v >= 0 {
			*dst = *v
		}
	}
	apply(&b.HourlyRate, override.HourlyRate)
	apply(&b.MinutesPerRecord, override.MinutesPerRecord)
	apply(&b.AvgDealSize, override.AvgDealSize)
	apply(&b.CloseRate, override.CloseRate)
	apply(&b.SystemCost, override.SystemCost)
	return b
}

func (b Business) hoursFor(records int) float64 {
	return float64(records) * b.MinutesPerRecord / 60
}

func (b Business) revenueFor(wins int) float64 {
	return float64(wins) * b.AvgDealSize * b.CloseRate
}
