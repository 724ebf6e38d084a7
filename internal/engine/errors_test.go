package engine

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSourceUnavailableErrorUnwraps(t *testing.T) {
	t.Parallel()

	inner := errors.New("dial tcp: connection refused")
	err := fmt.Errorf("fetch: %w", &SourceUnavailableError{SourceID: "mfmp", Err: inner})

	var srcErr *SourceUnavailableError
	require.True(t, errors.As(err, &srcErr))
	require.Equal(t, "mfmp", srcErr.SourceID)
	require.ErrorIs(t, err, inner)
}

func TestParseSampleTruncates(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("x", 1024)
	require.Len(t, ParseSample([]byte(long)), 256)
	require.Equal(t, "short", ParseSample([]byte("short")))
}

func TestRelevanceTier(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		score *int
		want  string
	}{
		{name: "unscored", score: nil, want: "unscored"},
		{name: "high", score: ptr(70), want: "high"},
		{name: "medium", score: ptr(40), want: "medium"},
		{name: "low", score: ptr(39), want: "low"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			rec := OpportunityRecord{RelevanceScore: tc.score}
			require.Equal(t, tc.want, rec.RelevanceTier())
		})
	}
}

func ptr(v int) *int { return &v }
