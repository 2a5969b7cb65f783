package answer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Olivia98106/semi-code/internal/model"
)

func TestParse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string
		want ParsedAnswer
	}{
		{
			name: "clean object",
			raw:  `{"result": "survey", "confidence_level": "high", "evidence": "Section 3 describes the survey."}`,
			want: ParsedAnswer{
				Result:     "survey",
				Confidence: model.ConfidenceHigh,
				Evidence:   "Section 3 describes the survey.",
			},
		},
		{
			name: "fenced with prose",
			raw: "Sure, here is the answer:\n```json\n" +
				`{"result": "content analysis", "confidence level": "middle", "evidence": "see methods"}` +
				"\n```\nLet me know if you need more.",
			want: ParsedAnswer{
				Result:     "content analysis",
				Confidence: model.ConfidenceMiddle,
				Evidence:   "see methods",
			},
		},
		{
			name: "verbose confidence key",
			raw:  `{"result": "no", "your confidence level(high/middle/low)": "low", "evidence": ""}`,
			want: ParsedAnswer{
				Result:     "no",
				Confidence: model.ConfidenceLow,
			},
		},
		{
			name: "non-string result is kept as compact json",
			raw:  `{"result": ["survey", "interview"], "confidence_level": "high"}`,
			want: ParsedAnswer{
				Result:     `["survey", "interview"]`,
				Confidence: model.ConfidenceHigh,
			},
		},
		{
			name: "tabs normalized in result and evidence",
			raw:  "{\"result\": \"a\tb\", \"confidence_level\": \"high\", \"evidence\": \"x\ty\"}",
			want: ParsedAnswer{
				Result:     "a b",
				Confidence: model.ConfidenceHigh,
				Evidence:   "x y",
			},
		},
		{
			name: "unknown confidence value left empty",
			raw:  `{"result": "yes", "confidence_level": "certain"}`,
			want: ParsedAnswer{Result: "yes"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got := Parse(tc.raw)
			assert.False(t, got.ParseFailed)
			assert.Equal(t, tc.want.Result, got.Result)
			assert.Equal(t, tc.want.Confidence, got.Confidence)
			assert.Equal(t, tc.want.Evidence, got.Evidence)
			assert.Equal(t, tc.raw, got.Raw)
		})
	}
}

func TestParse_Degraded(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string
	}{
		{"plain prose", "The paper uses a survey methodology."},
		{"broken json", `{"result": "survey{`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got := Parse(tc.raw)
			assert.True(t, got.ParseFailed)
			assert.Empty(t, got.Result)
			assert.Empty(t, got.Confidence)
			assert.Equal(t, tc.raw, got.Raw)
		})
	}
}

func TestParse_ProseLeavesResultEmpty(t *testing.T) {
	t.Parallel()

	raw := "The paper clearly uses a longitudinal survey design, " +
		"following the same panel of respondents across three waves."
	got := Parse(raw)
	assert.True(t, got.ParseFailed)
	assert.Empty(t, got.Result)
	assert.Equal(t, raw, got.Raw)
}

func TestParse_MissingResultKeyRecordsFallback(t *testing.T) {
	t.Parallel()

	got := Parse(`{"answer": "survey", "confidence_level": "high"}`)
	assert.False(t, got.ParseFailed)
	assert.Equal(t, Fallback, got.Result)
}

func TestParseList(t *testing.T) {
	t.Parallel()

	raw := "```json\n" +
		"[{\"result\": \"framing\teffects\", \"reference\": \"p. 12\"}," +
		`{"result": "agenda setting", "reference": "p. 14"}]` + "\n```"

	hits, ok := ParseList(raw)
	require.True(t, ok)
	require.Len(t, hits, 2)
	assert.Equal(t, "framing effects", hits[0].Result)
	assert.Equal(t, "p. 12", hits[0].Reference)
	assert.Equal(t, "agenda setting", hits[1].Result)
}

func TestParseList_NotAnArray(t *testing.T) {
	t.Parallel()

	_, ok := ParseList(`{"result": "x"}`)
	assert.False(t, ok)

	_, ok = ParseList("no structure at all")
	assert.False(t, ok)

	_, ok = ParseList(`[1, "mixed", {"bad": true}]`)
	assert.False(t, ok)
}
