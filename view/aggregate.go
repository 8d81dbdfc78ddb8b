package view

import (
	"csrdesk/model"
)

// Aggregator adds its rollups over the filtered set to out.
type Aggregator func(rows []model.Record, out map[string]float64)

func aggregate(rows []model.Record, aggs []Aggregator) map[string]float64 {
	out := map[string]float64{"count": float64(len(rows))}
	for _, a := range aggs {
		a(rows, out)
	}
	return out
}

// Sum totals a numeric field. Non-numeric values are skipped.
func Sum(name, field string) Aggregator {
	return SumFunc(name, func(r model.Record) (float64, bool) { return r.Float(field) })
}

func SumFunc(name string, value func(model.Record) (float64, bool)) Aggregator {
	return func(rows []model.Record, out map[string]float64) {
		var total float64
		for _, r := range rows {
			if v, ok := value(r); ok {
				total += v
			}
		}
		out[name] = total
	}
}

// CountBy emits one "<prefix>.<value>" counter per distinct field value.
func CountBy(prefix, field string) Aggregator {
	return func(rows []model.Record, out map[string]float64) {
		for _, r := range rows {
			v, ok := r.String(field)
			if !ok || v == "" {
				continue
			}
			out[prefix+"."+v]++
		}
	}
}

// CountIf counts records matching p.
func CountIf(name string, p Predicate) Aggregator {
	return func(rows []model.Record, out map[string]float64) {
		var n float64
		for _, r := range rows {
			if p(r) {
				n++
			}
		}
		out[name] = n
	}
}
