package kpi

import (
	"sort"

	"github.com/dbsmedya/outreachkpi/internal/record"
	"github.com/elliotchance/orderedmap/v2"
)

// Bucket is one ranked category of a breakdown.
type Bucket struct {
	Name  string `json:"name" yaml:"name"`
	Value int    `json:"value" yaml:"value"`
}

// Filter selects the records a breakdown counts. A nil Filter counts every record.
type Filter func(record.Record) bool

// Breakdown groups records by the trimmed, non-empty value of field and
// returns the topN most frequent values. Ties keep first-seen order.
// topN <= 0 keeps every value. The result is never nil.
func Breakdown(records []record.Record, field string, topN int, filter Filter) []Bucket {
	counts := countValues(records, field, filter)

	buckets := make([]Bucket, 0, counts.Len())
	for el := counts.Front(); el != nil; el = el.Next() {
		buckets = append(buckets, Bucket{Name: el.Key, Value: el.Value})
	}

	sort.SliceStable(buckets, func(i, j int) bool {
		return buckets[i].Value > buckets[j].Value
	})

	if topN > 0 && len(buckets) > topN {
		buckets = buckets[:topN]
	}
	return buckets
}

// Distinct counts the distinct trimmed, non-empty values of field.
func Distinct(records []record.Record, field string) int {
	return countValues(records, field, nil).Len()
}

func countValues(records []record.Record, field string, filter Filter) *orderedmap.OrderedMap[string, int] {
	counts := orderedmap.NewOrderedMap[string, int]()
	for _, r := range records {
		if filter != nil && !filter(r) {
			continue
		}
		v := r.String(field)
		if v == "" {
			continue
		}
		n, _ := counts.Get(v)
		counts.Set(v, n+1)
	}
	return counts
}
