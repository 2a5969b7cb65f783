package prompt

import (
	"strings"
	"testing"
)

func TestBuildTerminatesBareQuestions(t *testing.T) {
	got := Build("What is the sample size")
	if !strings.HasPrefix(got, "What is the sample size.") {
		t.Errorf("expected terminating period, got %q", got)
	}
	if !strings.HasSuffix(got, JSONSuffix) {
		t.Errorf("missing JSON suffix: %q", got)
	}
}

func TestBuildKeepsExistingPunctuation(t *testing.T) {
	for _, q := range []string{"What is the sample size?", "Count the participants."} {
		got := Build(q)
		if !strings.HasPrefix(got, q) {
			t.Errorf("Build(%q) altered the question: %q", q, got)
		}
	}
	if got := Build("What is the sample size?"); strings.Contains(got, "?.") {
		t.Errorf("question mark followed by period: %q", got)
	}
}

func TestBuildIdempotent(t *testing.T) {
	once := Build("Which statistical model is used")
	twice := Build(once)
	if once != twice {
		t.Errorf("Build is not idempotent:\nonce:  %q\ntwice: %q", once, twice)
	}
}

func TestBuildDeterministic(t *testing.T) {
	a := Build("How many waves of data collection were there?")
	b := Build("How many waves of data collection were there?")
	if a != b {
		t.Errorf("same input produced different prompts")
	}
}

func TestBuildKeywordSearch(t *testing.T) {
	got := BuildKeywordSearch("time phrases")
	if !strings.Contains(got, "What are the time phrases in the article?") {
		t.Errorf("keyword not interpolated: %q", got)
	}
	if !strings.Contains(got, "json array") || !strings.Contains(got, "result and reference") {
		t.Errorf("array contract missing: %q", got)
	}
}
