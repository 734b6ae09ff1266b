package retrieval

import "github.com/knova-io/knova/internal/models"

// Assess scores how well a result set supports an answer. An empty set is a
// valid "no knowledge found" outcome and scores zero rather than erroring.
func Assess(results []models.SearchResult) models.Confidence {
	if len(results) == 0 {
		return models.Confidence{Level: models.ConfidenceLow, Score: 0}
	}

	top := results[0].Similarity
	sum := 0.0
	for _, r := range results {
		if r.Similarity > top {
			top = r.Similarity
		}
		sum += r.Similarity
	}
	avg := sum / float64(len(results))

	score := top*0.6 + avg*0.4

	level := models.ConfidenceLow
	switch {
	case score >= 0.7:
		level = models.ConfidenceHigh
	case score >= 0.4:
		level = models.ConfidenceMedium
	}
	return models.Confidence{Level: level, Score: score}
}
