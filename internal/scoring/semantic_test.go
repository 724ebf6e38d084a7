package scoring

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Texasdada13/procurement-intel-tool/internal/engine"
)

var exemplars = []string{
	"IT strategic planning and technology assessment for county government",
	"Cybersecurity risk assessment and penetration testing services",
	"ERP system implementation and software modernization",
}

func TestSemanticRelatedScoresHigherThanUnrelated(t *testing.T) {
	t.Parallel()

	s := NewSemantic(exemplars)
	ctx := context.Background()

	related, err := s.Score(ctx, engine.OpportunityRecord{
		Title:       "Cybersecurity Assessment Services",
		Description: "Risk assessment and penetration testing for city systems.",
	})
	require.NoError(t, err)

	unrelated, err := s.Score(ctx, engine.OpportunityRecord{
		Title:       "Mowing and Landscape Maintenance",
		Description: "Seasonal grounds upkeep at parks.",
	})
	require.NoError(t, err)

	assert.Greater(t, related, unrelated)
	assert.Greater(t, related, 50.0)
	assert.Less(t, unrelated, 20.0)
}

func TestSemanticIdenticalTextSaturates(t *testing.T) {
	t.Parallel()

	s := NewSemantic(exemplars)
	score, err := s.Score(context.Background(), engine.OpportunityRecord{
		Title: exemplars[1],
	})
	require.NoError(t, err)
	assert.Greater(t, score, 95.0)
}

func TestSemanticNoExemplarsUnavailable(t *testing.T) {
	t.Parallel()

	s := NewSemantic(nil)
	_, err := s.Score(context.Background(), engine.OpportunityRecord{Title: "Anything"})
	assert.ErrorIs(t, err, engine.ErrStrategyUnavailable)
}

func TestSemanticEmptyRecordScoresZero(t *testing.T) {
	t.Parallel()

	s := NewSemantic(exemplars)
	score, err := s.Score(context.Background(), engine.OpportunityRecord{})
	require.NoError(t, err)
	assert.Equal(t, 0.0, score)
}
