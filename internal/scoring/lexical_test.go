package scoring

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Texasdada13/procurement-intel-tool/internal/engine"
)

func TestLexicalFullCoverage(t *testing.T) {
	t.Parallel()

	l := NewLexical(KeywordTiers{
		High:   map[string]float64{"cybersecurity": 10},
		Medium: map[string]float64{"IT": 5},
	})
	score, err := l.Score(context.Background(), engine.OpportunityRecord{
		Title:       "Cybersecurity Program for County IT",
		Description: "",
	})
	require.NoError(t, err)
	assert.Equal(t, 100.0, score)
}

func TestLexicalPartialCoverage(t *testing.T) {
	t.Parallel()

	l := NewLexical(KeywordTiers{
		High:   map[string]float64{"cybersecurity": 10, "penetration testing": 10},
		Medium: map[string]float64{"consulting": 5},
	})
	score, err := l.Score(context.Background(), engine.OpportunityRecord{
		Title: "Cybersecurity Consulting Services",
	})
	require.NoError(t, err)
	assert.Equal(t, 60.0, score)
}

func TestLexicalNegativeTerms(t *testing.T) {
	t.Parallel()

	l := NewLexical(KeywordTiers{
		High:     map[string]float64{"software": 10},
		Negative: map[string]float64{"janitorial": 40},
	})

	score, err := l.Score(context.Background(), engine.OpportunityRecord{
		Title: "Janitorial Management Software",
	})
	require.NoError(t, err)
	assert.Equal(t, 60.0, score)

	// penalties floor at zero
	harsh := NewLexical(KeywordTiers{
		High:     map[string]float64{"software": 10},
		Negative: map[string]float64{"janitorial": 150},
	})
	score, err = harsh.Score(context.Background(), engine.OpportunityRecord{
		Title: "Janitorial Management Software",
	})
	require.NoError(t, err)
	assert.Equal(t, 0.0, score)
}

func TestLexicalNoKeywordsConfigured(t *testing.T) {
	t.Parallel()

	l := NewLexical(KeywordTiers{})
	score, err := l.Score(context.Background(), engine.OpportunityRecord{Title: "Anything"})
	require.NoError(t, err)
	assert.Equal(t, 0.0, score)
}

func TestLexicalCaseInsensitive(t *testing.T) {
	t.Parallel()

	l := NewLexical(KeywordTiers{High: map[string]float64{"Cloud Migration": 10}})
	score, err := l.Score(context.Background(), engine.OpportunityRecord{
		Title: "CLOUD MIGRATION ASSESSMENT",
	})
	require.NoError(t, err)
	assert.Equal(t, 100.0, score)
}
