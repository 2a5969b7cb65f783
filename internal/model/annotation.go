package model

// AnnotationType classifies a structural region of a parsed document.
type AnnotationType string

// The closed set of structural annotation types.
const (
	TypeParagraph        AnnotationType = "paragraph"
	TypeSentence         AnnotationType = "sentence"
	TypeTitle            AnnotationType = "title"
	TypeHead             AnnotationType = "head"
	TypePersonName       AnnotationType = "person_name"
	TypeAffiliation      AnnotationType = "affiliation"
	TypeNote             AnnotationType = "note"
	TypeFormula          AnnotationType = "formula"
	TypeFigure           AnnotationType = "figure"
	TypeCitation         AnnotationType = "citation"
	TypeReferenceCallout AnnotationType = "reference_callout"
)

// AllAnnotationTypes lists every known type in a stable order.
var AllAnnotationTypes = []AnnotationType{
	TypeParagraph, TypeSentence, TypeTitle, TypeHead, TypePersonName,
	TypeAffiliation, TypeNote, TypeFormula, TypeFigure, TypeCitation,
	TypeReferenceCallout,
}

// teiTagTypes maps TEI coordinate element names onto the closed enum.
var teiTagTypes = map[string]AnnotationType{
	"p":           TypeParagraph,
	"s":           TypeSentence,
	"title":       TypeTitle,
	"head":        TypeHead,
	"persName":    TypePersonName,
	"affiliation": TypeAffiliation,
	"note":        TypeNote,
	"formula":     TypeFormula,
	"figure":      TypeFigure,
	"biblStruct":  TypeCitation,
	"ref":         TypeReferenceCallout,
}

// NormalizeTag converts an external parser tag into an AnnotationType.
// Unrecognized tags return ok=false and are dropped by the caller.
func NormalizeTag(tag string) (AnnotationType, bool) {
	t, ok := teiTagTypes[tag]
	return t, ok
}

// TEITag returns the TEI element name for a type, for export round-trips.
func (t AnnotationType) TEITag() string {
	for tag, typ := range teiTagTypes {
		if typ == t {
			return tag
		}
	}
	return ""
}

// Geometry is the bounding box reported by the structural parser.
// Coordinates are passed through untouched; only Page is interpreted.
type Geometry struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// AnnotationSpan is a page-anchored region tagged with a structural type.
// Page is 1-indexed and never exceeds the document's page count.
type AnnotationSpan struct {
	Type     AnnotationType `json:"type"`
	Page     int            `json:"page"`
	Geometry Geometry       `json:"geometry"`
	Text     string         `json:"text,omitempty"`
}

// FilterConfig maps annotation types to their display toggle. Types absent
// from the map are treated as disabled.
type FilterConfig map[AnnotationType]bool

// Enabled reports whether spans of the given type should be kept.
// Unknown types fail closed.
func (c FilterConfig) Enabled(t AnnotationType) bool {
	return c[t]
}

// DefaultFilterConfig mirrors the default highlight toggles: sentences,
// paragraphs, and figures on, everything else off.
func DefaultFilterConfig() FilterConfig {
	return FilterConfig{
		TypeSentence:  true,
		TypeParagraph: true,
		TypeFigure:    true,
	}
}
