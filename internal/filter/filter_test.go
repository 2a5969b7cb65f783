package filter

import (
	"testing"

	"github.com/Olivia98106/semi-code/internal/model"
)

func span(t model.AnnotationType, page int) model.AnnotationSpan {
	return model.AnnotationSpan{Type: t, Page: page}
}

func TestApplyKeepsOnlyEnabled(t *testing.T) {
	spans := []model.AnnotationSpan{
		span(model.TypeTitle, 1),
		span(model.TypeSentence, 1),
		span(model.TypeFigure, 2),
		span(model.TypeCitation, 3),
	}
	cfg := model.FilterConfig{model.TypeSentence: true, model.TypeFigure: true}

	got := Apply(spans, cfg)
	if len(got) != 2 {
		t.Fatalf("got %d spans, want 2", len(got))
	}
	if got[0].Type != model.TypeSentence || got[1].Type != model.TypeFigure {
		t.Errorf("unexpected spans: %+v", got)
	}
}

func TestApplyStableOrder(t *testing.T) {
	spans := []model.AnnotationSpan{
		span(model.TypeParagraph, 3),
		span(model.TypeParagraph, 1),
		span(model.TypeSentence, 2),
		span(model.TypeParagraph, 2),
	}
	cfg := model.FilterConfig{model.TypeParagraph: true}

	got := Apply(spans, cfg)
	pages := []int{3, 1, 2}
	if len(got) != len(pages) {
		t.Fatalf("got %d spans, want %d", len(got), len(pages))
	}
	for i, p := range pages {
		if got[i].Page != p {
			t.Errorf("span %d: page %d, want %d (relative order must be preserved)", i, got[i].Page, p)
		}
	}
}

func TestApplySubsequenceProperty(t *testing.T) {
	spans := []model.AnnotationSpan{
		span(model.TypeTitle, 1),
		span(model.TypeHead, 1),
		span(model.TypeNote, 2),
		span(model.TypeFormula, 2),
		span(model.TypePersonName, 1),
	}

	configs := []model.FilterConfig{
		{},
		model.DefaultFilterConfig(),
		{model.TypeTitle: true, model.TypeNote: true, model.TypePersonName: true},
		{model.TypeHead: false, model.TypeFormula: true},
	}

	for _, cfg := range configs {
		got := Apply(spans, cfg)
		// Every returned span is enabled.
		for _, s := range got {
			if !cfg.Enabled(s.Type) {
				t.Errorf("config %v returned disabled span %v", cfg, s.Type)
			}
		}
		// Output is a subsequence of the input.
		j := 0
		for _, s := range spans {
			if j < len(got) && got[j] == s {
				j++
			}
		}
		if j != len(got) {
			t.Errorf("config %v output is not a subsequence of input", cfg)
		}
	}
}

func TestApplyEmptyInput(t *testing.T) {
	got := Apply(nil, model.DefaultFilterConfig())
	if len(got) != 0 {
		t.Errorf("expected empty result, got %v", got)
	}
}

func TestCounts(t *testing.T) {
	spans := []model.AnnotationSpan{
		span(model.TypeSentence, 1),
		span(model.TypeSentence, 2),
		span(model.TypeFigure, 1),
	}
	counts := Counts(spans)
	if counts[model.TypeSentence] != 2 || counts[model.TypeFigure] != 1 {
		t.Errorf("unexpected counts: %v", counts)
	}
}
