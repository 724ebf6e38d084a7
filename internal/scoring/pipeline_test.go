package scoring

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Texasdada13/procurement-intel-tool/internal/engine"
)

// fixedStrategy returns a constant score, or a constant error.
type fixedStrategy struct {
	name  string
	score float64
	err   error
}

func (f fixedStrategy) Name() string { return f.name }

func (f fixedStrategy) Score(context.Context, engine.OpportunityRecord) (float64, error) {
	return f.score, f.err
}

var defaultWeights = Weights{"lexical": 0.30, "semantic": 0.35, "llm": 0.35}

func TestPipelineBlendsAvailableStrategies(t *testing.T) {
	t.Parallel()

	p := NewPipeline([]engine.Strategy{
		fixedStrategy{name: "lexical", score: 60},
		fixedStrategy{name: "semantic", score: 80},
		fixedStrategy{name: "llm", score: 90},
	}, defaultWeights, nil)

	breakdown := p.Score(context.Background(), engine.OpportunityRecord{})
	// (60*0.30 + 80*0.35 + 90*0.35) / 1.0 = 77.5, rounded half up
	assert.Equal(t, 78, breakdown.Final)
	require.Len(t, breakdown.Strategies, 3)
	for _, s := range breakdown.Strategies {
		assert.True(t, s.Available, s.Strategy)
	}
}

func TestPipelineRenormalizesOverAvailable(t *testing.T) {
	t.Parallel()

	p := NewPipeline([]engine.Strategy{
		fixedStrategy{name: "lexical", score: 64},
		fixedStrategy{name: "semantic", err: engine.ErrStrategyUnavailable},
		fixedStrategy{name: "llm", err: engine.ErrStrategyUnavailable},
	}, defaultWeights, nil)

	breakdown := p.Score(context.Background(), engine.OpportunityRecord{})
	// lexical alone determines the score when the others are unavailable
	assert.Equal(t, 64, breakdown.Final)
	assert.True(t, breakdown.Strategies[0].Available)
	assert.False(t, breakdown.Strategies[1].Available)
	assert.False(t, breakdown.Strategies[2].Available)
}

func TestPipelineAllUnavailableScoresZero(t *testing.T) {
	t.Parallel()

	p := NewPipeline([]engine.Strategy{
		fixedStrategy{name: "semantic", err: engine.ErrStrategyUnavailable},
	}, defaultWeights, nil)

	breakdown := p.Score(context.Background(), engine.OpportunityRecord{})
	assert.Equal(t, 0, breakdown.Final)
}

func TestPipelineZeroWeightsBlendEqually(t *testing.T) {
	t.Parallel()

	p := NewPipeline([]engine.Strategy{
		fixedStrategy{name: "lexical", score: 60},
		fixedStrategy{name: "semantic", score: 90},
	}, Weights{}, nil)

	breakdown := p.Score(context.Background(), engine.OpportunityRecord{})
	// Unconfigured weights fall back to an equal blend, not zero.
	assert.Equal(t, 75, breakdown.Final)
}

func TestPipelineIdempotent(t *testing.T) {
	t.Parallel()

	p := NewPipeline([]engine.Strategy{
		NewLexical(KeywordTiers{High: map[string]float64{"cybersecurity": 10, "cloud": 5}}),
		NewSemantic(exemplars),
	}, defaultWeights, nil)

	record := engine.OpportunityRecord{
		Title:       "Cybersecurity Monitoring Services",
		Description: "Continuous security monitoring for county systems.",
	}
	first := p.Score(context.Background(), record)
	second := p.Score(context.Background(), record)
	assert.Equal(t, first.Final, second.Final)
}

func TestRoundHalfUp(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   float64
		want int
	}{
		{77.5, 78},
		{77.4, 77},
		{0.5, 1},
		{-3, 0},
		{104.2, 100},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, roundHalfUp(tc.in))
	}
}
