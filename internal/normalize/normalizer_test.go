package normalize

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Texasdada13/procurement-intel-tool/internal/engine"
)

var testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func TestNormalizeFullCandidate(t *testing.T) {
	t.Parallel()

	n := NewNormalizer(nil)
	raw := engine.RawCandidate{
		SourceID:           "mfmp",
		Title:              "  Cybersecurity   Assessment Services  ",
		Body:               "Countywide security audit, budget $1.2 million.",
		Agency:             "Orange County",
		SolicitationNumber: "RFP-26-041",
		PostedDateRaw:      "03/01/2026",
		DueDateRaw:         "Due: April 15, 2026",
		URL:                "https://procurement.example.gov/rfp/26-041",
	}

	rec, err := n.Normalize(raw, testNow)
	require.NoError(t, err)

	assert.Equal(t, "Cybersecurity Assessment Services", rec.Title)
	assert.Equal(t, engine.CategoryCybersecurity, rec.Category)
	assert.Equal(t, engine.StatusOpen, rec.Status)
	assert.Equal(t, 1_200_000.0, rec.EstimatedValue)
	require.NotNil(t, rec.PostedDate)
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), *rec.PostedDate)
	require.NotNil(t, rec.DueDate)
	assert.Equal(t, time.Date(2026, 4, 15, 0, 0, 0, 0, time.UTC), *rec.DueDate)
	assert.NotEmpty(t, rec.Fingerprint)
	assert.Equal(t, testNow, rec.DiscoveredAt)
}

func TestNormalizeMalformed(t *testing.T) {
	t.Parallel()

	n := NewNormalizer(nil)

	_, err := n.Normalize(engine.RawCandidate{SourceID: "mfmp"}, testNow)
	assert.ErrorIs(t, err, engine.ErrMalformedRecord)

	_, err = n.Normalize(engine.RawCandidate{SourceID: "mfmp", URL: "https://example.gov/x"}, testNow)
	assert.ErrorIs(t, err, engine.ErrMalformedRecord)
}

func TestNormalizePastDueIsClosed(t *testing.T) {
	t.Parallel()

	n := NewNormalizer(nil)
	rec, err := n.Normalize(engine.RawCandidate{
		SourceID:   "demandstar",
		Title:      "Road Resurfacing Program Phase II",
		DueDateRaw: "2026-01-05",
	}, testNow)
	require.NoError(t, err)
	assert.Equal(t, engine.StatusClosed, rec.Status)
}

func TestNormalizeFingerprintStableAcrossFormatting(t *testing.T) {
	t.Parallel()

	n := NewNormalizer(nil)
	a, err := n.Normalize(engine.RawCandidate{
		SourceID: "mfmp", Title: "ERP Modernization", Agency: "City of Tampa", DueDateRaw: "2026-05-01",
	}, testNow)
	require.NoError(t, err)
	b, err := n.Normalize(engine.RawCandidate{
		SourceID: "bonfire", Title: "  erp   MODERNIZATION ", Agency: "CITY OF TAMPA", DueDateRaw: "05/01/2026",
	}, testNow)
	require.NoError(t, err)

	assert.Equal(t, a.Fingerprint, b.Fingerprint)
}

func TestParseDate(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		raw  string
		want *time.Time
	}{
		{"rfc3339", "2026-04-15T17:00:00Z", timePtr(2026, time.April, 15, 17)},
		{"iso", "2026-04-15", timePtr(2026, time.April, 15, 0)},
		{"us numeric", "04/15/2026", timePtr(2026, time.April, 15, 0)},
		{"long month", "April 15, 2026", timePtr(2026, time.April, 15, 0)},
		{"short month", "Apr 15, 2026", timePtr(2026, time.April, 15, 0)},
		{"day first", "15 April 2026", timePtr(2026, time.April, 15, 0)},
		{"labelled", "Closing: 04/15/2026", timePtr(2026, time.April, 15, 0)},
		{"garbage", "when ready", nil},
		{"empty", "   ", nil},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := ParseDate(tc.raw)
			if tc.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, *tc.want, *got)
		})
	}
}

func TestExtractEstimatedValue(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 250_000.0, ExtractEstimatedValue("not to exceed $250,000 annually"))
	assert.Equal(t, 3_500_000.0, ExtractEstimatedValue("budget of $3.5 million over five years"))
	assert.Equal(t, 75_000.0, ExtractEstimatedValue("approx $75k"))
	assert.Equal(t, 0.0, ExtractEstimatedValue("no budget disclosed"))
}

func TestInferCategory(t *testing.T) {
	t.Parallel()

	cases := []struct {
		title string
		want  engine.Category
	}{
		{"IT Strategic Plan Development", engine.CategoryITConsulting},
		{"Penetration Testing Services", engine.CategoryCybersecurity},
		{"ERP Software Implementation", engine.CategorySoftware},
		{"Cloud Migration Services", engine.CategoryCloud},
		{"Business Intelligence Dashboard", engine.CategoryData},
		{"Organizational Assessment", engine.CategoryProfessionalServices},
		{"Janitorial Services", engine.CategoryOther},
		// cybersecurity outranks the broad professional-services bucket
		{"Cybersecurity Assessment", engine.CategoryCybersecurity},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, InferCategory(tc.title, ""), tc.title)
	}
}

func timePtr(y int, m time.Month, d, h int) *time.Time {
	t := time.Date(y, m, d, h, 0, 0, 0, time.UTC)
	return &t
}
