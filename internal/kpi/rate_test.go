package kpi

import (
	"testing"

	"github.com/dbsmedya/outreachkpi/internal/record"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRate(t *testing.T) {
	tests := []struct {
		name     string
		num, den int
		expected float64
	}{
		{"half", 2, 4, 50},
		{"zero denominator", 3, 0, 0},
		{"zero numerator", 0, 10, 0},
		{"negative denominator", 1, -2, 0},
		{"above denominator clamps", 5, 4, 100},
		{"whole", 7, 7, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Rate(tt.num, tt.den))
		})
	}
}

func TestROI(t *testing.T) {
	assert.Equal(t, 0.0, ROI(1000, 1500))
	assert.Equal(t, 100.0, ROI(3000, 1500))
	assert.Equal(t, 0.0, ROI(3000, 0))
	assert.Equal(t, 900.0, ROI(15000, 1500))
}

func TestBreakdown_TiesKeepFirstSeenOrder(t *testing.T) {
	records := []record.Record{
		{"f": "c"}, {"f": "a"}, {"f": "b"}, {"f": "a"}, {"f": "c"}, {"f": "b"}, {"f": "d"},
	}

	for i := 0; i < 5; i++ {
		got := Breakdown(records, "f", 3, nil)
		assert.Equal(t, []Bucket{{"c", 2}, {"a", 2}, {"b", 2}}, got)
	}
}

func TestBreakdown_TopNZeroKeepsAll(t *testing.T) {
	records := []record.Record{{"f": "x"}, {"f": "y"}, {"f": "x"}, {"f": nil}, {}}
	assert.Equal(t, []Bucket{{"x", 2}, {"y", 1}}, Breakdown(records, "f", 0, nil))
}

func TestBreakdown_Filter(t *testing.T) {
	records := []record.Record{
		{"f": "x", "keep": "yes"},
		{"f": "y"},
		{"f": "y", "keep": "1"},
	}
	got := Breakdown(records, "f", 5, func(r record.Record) bool { return r.Bool("keep") })
	assert.Equal(t, []Bucket{{"x", 1}, {"y", 1}}, got)
}

func TestDistinct(t *testing.T) {
	records := []record.Record{{"f": "Acme"}, {"f": " Acme "}, {"f": "acme"}, {"f": ""}, {}}
	assert.Equal(t, 2, Distinct(records, "f"))
	assert.Equal(t, 0, Distinct(nil, "f"))
}

func TestBuildFunnel(t *testing.T) {
	got := BuildFunnel(Stage{"a", 200}, Stage{"b", 50}, Stage{"c", 0})
	require.Len(t, got, 3)
	assert.Equal(t, FunnelStage{"a", 200, 100}, got[0])
	assert.Equal(t, FunnelStage{"b", 50, 25}, got[1])
	assert.Equal(t, FunnelStage{"c", 0, 0}, got[2])

	zero := BuildFunnel(Stage{"a", 0}, Stage{"b", 0})
	assert.Equal(t, 100.0, zero[0].Percentage)
	assert.Equal(t, 0.0, zero[1].Percentage)

	assert.Empty(t, BuildFunnel())
}

func TestParseShapeAndPolicy(t *testing.T) {
	s, err := ParseShape(" LinkedIn ")
	require.NoError(t, err)
	assert.Equal(t, ShapeLinkedIn, s)

	_, err = ParseShape("crm")
	assert.Error(t, err)

	assert.Equal(t, EmptyKeep, ShapeEmail.DefaultEmptyPolicy())
	assert.Equal(t, EmptyClear, ShapeLinkedIn.DefaultEmptyPolicy())
	assert.Equal(t, EmptyCompute, ShapeConnections.DefaultEmptyPolicy())

	p, err := ParseEmptyPolicy("Clear")
	require.NoError(t, err)
	assert.Equal(t, EmptyClear, p)

	p, err = ParseEmptyPolicy("")
	require.NoError(t, err)
	assert.Equal(t, EmptyPolicy(""), p)

	_, err = ParseEmptyPolicy("drop")
	assert.Error(t, err)
}

func ptr(v float64) *float64 { return &v }

func TestBusiness_Merge(t *testing.T) {
	b := DefaultBusiness(ShapeLinkedIn).Merge(BusinessOverride{CloseRate: ptr(0.3), AvgDealSize: ptr(-1)})
	assert.Equal(t, 0.3, b.CloseRate)
	assert.Equal(t, 20000.0, b.AvgDealSize)
	assert.Equal(t, 1500.0, b.SystemCost)
	assert.Equal(t, 20.0, b.MinutesPerRecord)
}

func TestBusiness_MergeExplicitZero(t *testing.T) {
	b := DefaultBusiness(ShapeLinkedIn).Merge(BusinessOverride{SystemCost: ptr(0), CloseRate: ptr(0)})
	assert.Equal(t, 0.0, b.SystemCost)
	assert.Equal(t, 0.0, b.CloseRate)
	assert.Equal(t, 60.0, b.HourlyRate)
}

func TestResolveFormulas(t *testing.T) {
	f, err := ResolveFormulas(ShapeConnections, nil)
	require.NoError(t, err)
	assert.Equal(t, Formulas{MetricAcceptanceRate: ByTotal, MetricResponseRate: ByAccepted}, f)

	f, err = ResolveFormulas(ShapeConnections, Formulas{MetricAcceptanceRate: " BY_SENT ", MetricResponseRate: ""})
	require.NoError(t, err)
	assert.Equal(t, BySent, f[MetricAcceptanceRate])
	assert.Equal(t, ByAccepted, f[MetricResponseRate])

	_, err = ResolveFormulas(ShapeLinkedIn, Formulas{MetricAcceptanceRate: ByTotal})
	assert.Error(t, err)

	f, err = ResolveFormulas(ShapeEmail, Formulas{})
	require.NoError(t, err)
	assert.Empty(t, f)
}
