package model

import "testing"

func TestNormalizeTag(t *testing.T) {
	tests := []struct {
		tag  string
		want AnnotationType
		ok   bool
	}{
		{"p", TypeParagraph, true},
		{"s", TypeSentence, true},
		{"persName", TypePersonName, true},
		{"biblStruct", TypeCitation, true},
		{"ref", TypeReferenceCallout, true},
		{"affiliation", TypeAffiliation, true},
		{"table", "", false},
		{"", "", false},
		{"P", "", false}, // tag matching is case-sensitive
	}
	for _, tt := range tests {
		got, ok := NormalizeTag(tt.tag)
		if ok != tt.ok || got != tt.want {
			t.Errorf("NormalizeTag(%q) = (%q, %v), want (%q, %v)", tt.tag, got, ok, tt.want, tt.ok)
		}
	}
}

func TestTEITagRoundTrip(t *testing.T) {
	for _, typ := range AllAnnotationTypes {
		tag := typ.TEITag()
		if tag == "" {
			t.Fatalf("no TEI tag for %q", typ)
		}
		back, ok := NormalizeTag(tag)
		if !ok || back != typ {
			t.Errorf("round trip %q -> %q -> %q", typ, tag, back)
		}
	}
}

func TestFilterConfigFailsClosed(t *testing.T) {
	cfg := FilterConfig{TypeTitle: true}
	if !cfg.Enabled(TypeTitle) {
		t.Error("title should be enabled")
	}
	if cfg.Enabled(TypeFormula) {
		t.Error("absent type should be disabled")
	}
	if cfg.Enabled(AnnotationType("bogus")) {
		t.Error("unknown type should be disabled")
	}
}

func TestParseConfidenceLevel(t *testing.T) {
	tests := []struct {
		in   string
		want ConfidenceLevel
		ok   bool
	}{
		{"high", ConfidenceHigh, true},
		{"High", ConfidenceHigh, true},
		{" middle ", ConfidenceMiddle, true},
		{"medium", ConfidenceMiddle, true},
		{"LOW", ConfidenceLow, true},
		{"certain", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseConfidenceLevel(tt.in)
		if ok != tt.ok || got != tt.want {
			t.Errorf("ParseConfidenceLevel(%q) = (%q, %v), want (%q, %v)", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}
