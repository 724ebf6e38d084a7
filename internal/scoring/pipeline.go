package scoring

import (
	"context"
	"errors"
	"math"

	"go.uber.org/zap"

	"github.com/Texasdada13/procurement-intel-tool/internal/engine"
	"github.com/Texasdada13/procurement-intel-tool/internal/metrics"
)

// Weights assigns the configured blend weight to each strategy by name.
type Weights map[string]float64

// Pipeline runs every registered strategy and blends the available results.
// Weights are renormalized over the strategies that produced a score, so a
// single enabled strategy always determines the final score alone. Scoring
// never fails: a record with zero available strategies scores 0.
type Pipeline struct {
	strategies []engine.Strategy
	weights    Weights
	logger     *zap.Logger
}

func NewPipeline(strategies []engine.Strategy, weights Weights, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{strategies: strategies, weights: weights, logger: logger}
}

// Score produces the combined relevance for a record. The model strategy may
// also refine the category; the breakdown carries it back to the caller.
func (p *Pipeline) Score(ctx context.Context, record engine.OpportunityRecord) engine.ScoreBreakdown {
	breakdown := engine.ScoreBreakdown{}
	var weightedSum, availableWeight, plainSum float64
	var available int

	for _, strategy := range p.strategies {
		entry := engine.StrategyScore{
			Strategy: strategy.Name(),
			Weight:   p.weights[strategy.Name()],
		}

		var score float64
		var err error
		if llm, ok := strategy.(*LLM); ok {
			var category engine.Category
			score, category, err = llm.Judge(ctx, record)
			if err == nil && category != "" {
				breakdown.Category = category
			}
		} else {
			score, err = strategy.Score(ctx, record)
		}

		switch {
		case err == nil:
			entry.Score = score
			entry.Available = true
			weightedSum += score * entry.Weight
			availableWeight += entry.Weight
			plainSum += score
			available++
		case errors.Is(err, engine.ErrStrategyUnavailable):
			metrics.ObserveStrategyUnavailable(strategy.Name())
			p.logger.Debug("strategy unavailable",
				zap.String("strategy", strategy.Name()),
				zap.Error(err))
		default:
			metrics.ObserveStrategyUnavailable(strategy.Name())
			p.logger.Warn("strategy failed",
				zap.String("strategy", strategy.Name()),
				zap.Error(err))
		}
		breakdown.Strategies = append(breakdown.Strategies, entry)
	}

	switch {
	case availableWeight > 0:
		breakdown.Final = roundHalfUp(weightedSum / availableWeight)
	case available > 0:
		// Every configured weight was zero; blend the available scores
		// equally instead of collapsing them to 0.
		breakdown.Final = roundHalfUp(plainSum / float64(available))
	}
	return breakdown
}

// roundHalfUp rounds to the nearest integer with .5 going up, then clamps to
// the 0-100 scale.
func roundHalfUp(v float64) int {
	rounded := int(math.Floor(v + 0.5))
	if rounded < 0 {
		return 0
	}
	if rounded > 100 {
		return 100
	}
	return rounded
}
