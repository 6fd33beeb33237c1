package stats

import (
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/sveturs/mapsearch/internal/model"
)

// PriceSummary describes the price distribution of one result set.
type PriceSummary struct {
	Count  int
	Min    float64
	Max    float64
	Mean   float64
	Median float64
}

// Summarize computes price statistics over the published markers.
// Zero-priced listings are unpriced and excluded from the numbers,
// though they still count toward Count.
func Summarize(markers []model.Marker) PriceSummary {
	s := PriceSummary{Count: len(markers)}

	prices := make([]float64, 0, len(markers))
	for _, m := range markers {
		if m.Price > 0 {
			prices = append(prices, m.Price)
		}
	}
	if len(prices) == 0 {
		return s
	}

	sort.Float64s(prices)
	s.Min = floats.Min(prices)
	s.Max = floats.Max(prices)
	s.Mean = stat.Mean(prices, nil)
	s.Median = stat.Quantile(0.5, stat.Empirical, prices, nil)
	return s
}
