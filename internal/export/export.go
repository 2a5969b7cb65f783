// Package export renders annotations and labels into the formats the
// downstream analysis tools consume: TEI passthrough, filtered content, and
// label tables.
package export

import (
	"bytes"
	"encoding/json"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/Olivia98106/semi-code/internal/annotate"
	"github.com/Olivia98106/semi-code/internal/filter"
	"github.com/Olivia98106/semi-code/internal/model"
)

// Content is the filtered structural view of one document.
type Content struct {
	DocID string                 `json:"doc_id"`
	Title string                 `json:"title,omitempty"`
	Spans []model.AnnotationSpan `json:"spans"`
}

// BuildContent assembles the filtered view of a parsed document. The title
// is surfaced separately even when title spans are filtered out of the body.
func BuildContent(docID string, res *annotate.Result, cfg model.FilterConfig) Content {
	c := Content{DocID: docID}
	for _, s := range res.Spans {
		if s.Type == model.TypeTitle && s.Text != "" {
			c.Title = s.Text
			break
		}
	}
	c.Spans = filter.Apply(res.Spans, cfg)
	return c
}

// FilteredJSON renders the filtered view as indented JSON.
func FilteredJSON(docID string, res *annotate.Result, cfg model.FilterConfig) ([]byte, error) {
	out, err := json.MarshalIndent(BuildContent(docID, res, cfg), "", "  ")
	return out, eris.Wrap(err, "export: marshal content")
}

// FilteredText renders the filtered view as plain text: the title first,
// then each span's text. Multi-box spans repeat their text per box, so
// consecutive duplicates collapse.
func FilteredText(docID string, res *annotate.Result, cfg model.FilterConfig) string {
	c := BuildContent(docID, res, cfg)

	var b strings.Builder
	if c.Title != "" {
		b.WriteString(c.Title)
		b.WriteString("\n\n")
	}
	var prev string
	for _, s := range c.Spans {
		if s.Text == "" || s.Text == prev {
			continue
		}
		b.WriteString(s.Text)
		b.WriteString("\n")
		prev = s.Text
	}
	return b.String()
}

// pivot arranges label records into one row per document and one column per
// variable, sorted for stable output.
func pivot(records []model.LabelRecord) (docs, vars []string, cells map[string]map[string]string) {
	docSet := map[string]bool{}
	varSet := map[string]bool{}
	cells = map[string]map[string]string{}

	for _, rec := range records {
		docSet[rec.DocID] = true
		varSet[rec.Variable] = true
		if cells[rec.DocID] == nil {
			cells[rec.DocID] = map[string]string{}
		}
		cells[rec.DocID][rec.Variable] = rec.Label
	}

	for d := range docSet {
		docs = append(docs, d)
	}
	for v := range varSet {
		vars = append(vars, v)
	}
	sort.Strings(docs)
	sort.Strings(vars)
	return docs, vars, cells
}

// LabelTable renders the doc × variable label pivot as TSV. Missing pairs
// produce empty cells.
func LabelTable(records []model.LabelRecord) []byte {
	docs, vars, cells := pivot(records)

	var b bytes.Buffer
	b.WriteString("doc_id")
	for _, v := range vars {
		b.WriteByte('\t')
		b.WriteString(v)
	}
	b.WriteByte('\n')

	for _, d := range docs {
		b.WriteString(d)
		for _, v := range vars {
			b.WriteByte('\t')
			b.WriteString(cells[d][v])
		}
		b.WriteByte('\n')
	}
	return b.Bytes()
}

// LabelTableXLSX writes the same pivot as a spreadsheet.
func LabelTableXLSX(records []model.LabelRecord, w io.Writer) error {
	docs, vars, cells := pivot(records)

	file := xlsx.NewFile()
	sheet, err := file.AddSheet("labels")
	if err != nil {
		return eris.Wrap(err, "export: add sheet")
	}

	header := sheet.AddRow()
	header.AddCell().Value = "doc_id"
	for _, v := range vars {
		header.AddCell().Value = v
	}

	for _, d := range docs {
		row := sheet.AddRow()
		row.AddCell().Value = d
		for _, v := range vars {
			row.AddCell().Value = cells[d][v]
		}
	}

	return eris.Wrap(file.Write(w), "export: write xlsx")
}

// auditColumns is the audit log column order.
var auditColumns = []string{
	"doc_id", "variable", "label", "ai_label", "manual_label",
	"prompt_version", "source", "updated_at",
}

// AuditLog renders every label row as TSV, one line per record, for
// reviewing who (model or human) set what and when.
func AuditLog(records []model.LabelRecord) []byte {
	var b bytes.Buffer
	b.WriteString(strings.Join(auditColumns, "\t"))
	b.WriteByte('\n')

	sorted := make([]model.LabelRecord, len(records))
	copy(sorted, records)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].DocID != sorted[j].DocID {
			return sorted[i].DocID < sorted[j].DocID
		}
		return sorted[i].Variable < sorted[j].Variable
	})

	for _, rec := range sorted {
		fields := []string{
			rec.DocID, rec.Variable, rec.Label, rec.AILabel, rec.ManualLabel,
			rec.PromptVersion, string(rec.Source),
			rec.UpdatedAt.UTC().Format(time.RFC3339),
		}
		b.WriteString(strings.Join(fields, "\t"))
		b.WriteByte('\n')
	}
	return b.Bytes()
}
