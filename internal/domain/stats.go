package domain

import "math"

// MaxRating is the top of the rating scale stars are measured against.
const MaxRating = 5

// Stats are derived from a car's reviews and never stored.
type Stats struct {
	AvgRating    float64 `json:"avg_rating"`
	ReviewCount  int     `json:"review_count"`
	StarsPercent int     `json:"stars_percent"`
}

// ComputeStats aggregates one car's reviews. Reviews without a rating count
// towards ReviewCount but not towards the average.
func ComputeStats(reviews []Review) Stats {
	var sum, rated int
	for _, r := range reviews {
		if r.Rating != nil {
			sum += *r.Rating
			rated++
		}
	}
	var avg float64
	if rated > 0 {
		avg = float64(sum) / float64(rated)
	}
	return newStats(avg, len(reviews))
}

// StatsFromAggregate builds Stats from a grouped SQL result. A NULL average
// (no rated reviews) becomes 0, matching ComputeStats.
func StatsFromAggregate(avg *float64, count int) Stats {
	var a float64
	if avg != nil {
		a = *avg
	}
	return newStats(a, count)
}

func newStats(avg float64, count int) Stats {
	if count <= 0 {
		return Stats{}
	}
	return Stats{
		AvgRating:    avg,
		ReviewCount:  count,
		StarsPercent: int(math.Round(avg / MaxRating * 100)),
	}
}
