// Package filter narrows an annotation list to the enabled display types.
package filter

import "github.com/Olivia98106/semi-code/internal/model"

// Apply returns the spans whose type is enabled in cfg, preserving input
// order. Rendering stacks highlights in list order, so the filter must be
// stable. Types missing from cfg are treated as disabled.
func Apply(spans []model.AnnotationSpan, cfg model.FilterConfig) []model.AnnotationSpan {
	out := make([]model.AnnotationSpan, 0, len(spans))
	for _, s := range spans {
		if cfg.Enabled(s.Type) {
			out = append(out, s)
		}
	}
	return out
}

// Counts tallies spans per type, in the enum's stable order. Used by the
// annotate command's summary output.
func Counts(spans []model.AnnotationSpan) map[model.AnnotationType]int {
	counts := make(map[model.AnnotationType]int)
	for _, s := range spans {
		counts[s.Type]++
	}
	return counts
}
