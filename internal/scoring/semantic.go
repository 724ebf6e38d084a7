package scoring

import (
	"context"
	"math"
	"strings"

	"github.com/Texasdada13/procurement-intel-tool/internal/engine"
)

// Semantic scores by term-frequency cosine similarity between an opportunity
// and a fixed corpus of exemplar solicitations. The best exemplar similarity
// is pushed through a calibration curve so mid-range similarities spread
// across the useful part of the 0-100 scale.
type Semantic struct {
	exemplars []map[string]float64
}

func NewSemantic(exemplars []string) *Semantic {
	s := &Semantic{}
	for _, text := range exemplars {
		vec := termVector(text)
		if len(vec) > 0 {
			s.exemplars = append(s.exemplars, vec)
		}
	}
	return s
}

func (s *Semantic) Name() string { return "semantic" }

func (s *Semantic) Score(_ context.Context, record engine.OpportunityRecord) (float64, error) {
	if len(s.exemplars) == 0 {
		return 0, engine.ErrStrategyUnavailable
	}
	vec := termVector(record.Title + " " + record.Description)
	if len(vec) == 0 {
		return 0, nil
	}

	var best float64
	for _, exemplar := range s.exemplars {
		if sim := cosine(vec, exemplar); sim > best {
			best = sim
		}
	}
	return calibrate(best), nil
}

// calibrate maps cosine similarity to 0-100. Raw similarities rarely exceed
// 0.6 for related documents, so the curve saturates early: 0.5 maps to ~91.
func calibrate(sim float64) float64 {
	score := 100 * (1 - math.Exp(-5*sim))
	if score > 100 {
		return 100
	}
	return score
}

var stopwords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "with": {}, "from": {}, "that": {},
	"this": {}, "will": {}, "are": {}, "all": {}, "its": {}, "any": {},
	"per": {}, "shall": {}, "must": {},
}

func termVector(text string) map[string]float64 {
	vec := make(map[string]float64)
	for _, field := range strings.Fields(strings.ToLower(text)) {
		term := strings.Trim(field, ".,;:()[]\"'")
		if len(term) < 3 {
			continue
		}
		if _, stop := stopwords[term]; stop {
			continue
		}
		vec[term]++
	}
	return vec
}

func cosine(a, b map[string]float64) float64 {
	var dot, normA, normB float64
	for term, av := range a {
		normA += av * av
		if bv, ok := b[term]; ok {
			dot += av * bv
		}
	}
	for _, bv := range b {
		normB += bv * bv
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
