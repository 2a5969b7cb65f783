package annotate

import (
	"bytes"
	"encoding/xml"
	"io"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/Olivia98106/semi-code/internal/model"
)

// Result holds the structural annotations parsed out of a TEI document,
// along with the raw XML for export.
type Result struct {
	PageCount int
	Spans     []model.AnnotationSpan
	TEI       []byte

	// Dropped counts coordinate boxes discarded because their page fell
	// outside the document.
	Dropped int
}

// ParseTEI extracts coordinate-bearing elements from a GROBID TEI document.
// Every element carrying a coords attribute whose tag maps onto a known
// annotation type yields one span per bounding box; unrecognized tags and
// out-of-range pages are dropped.
func ParseTEI(tei []byte) (*Result, error) {
	dec := xml.NewDecoder(bytes.NewReader(tei))

	res := &Result{TEI: tei}

	type pending struct {
		typ   model.AnnotationType
		boxes []box
		depth int
		text  strings.Builder
	}

	var depth int
	var open []*pending

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrap(err, "annotate: parse tei document")
		}

		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			if t.Name.Local == "surface" {
				res.PageCount++
			}
			typ, known := model.NormalizeTag(t.Name.Local)
			if !known {
				continue
			}
			coords := attrValue(t, "coords")
			if coords == "" {
				continue
			}
			boxes, err := parseCoords(coords)
			if err != nil {
				// malformed coords, skip the element but keep parsing
				continue
			}
			open = append(open, &pending{typ: typ, boxes: boxes, depth: depth})

		case xml.CharData:
			for _, p := range open {
				p.text.Write(t)
			}

		case xml.EndElement:
			if n := len(open); n > 0 && open[n-1].depth == depth {
				p := open[n-1]
				open = open[:n-1]
				text := strings.Join(strings.Fields(p.text.String()), " ")
				for _, b := range p.boxes {
					res.Spans = append(res.Spans, model.AnnotationSpan{
						Type: p.typ,
						Page: b.page,
						Geometry: model.Geometry{
							X: b.x, Y: b.y, Width: b.w, Height: b.h,
						},
						Text: text,
					})
				}
			}
			depth--
		}
	}

	kept := res.Spans[:0]
	for _, s := range res.Spans {
		if s.Page < 1 || (res.PageCount > 0 && s.Page > res.PageCount) {
			res.Dropped++
			continue
		}
		kept = append(kept, s)
	}
	res.Spans = kept

	if res.PageCount == 0 && len(res.Spans) > 0 {
		zap.L().Warn("tei has no facsimile surfaces, page upper bound unvalidated",
			zap.Int("spans", len(res.Spans)))
	}

	return res, nil
}

type box struct {
	page       int
	x, y, w, h float64
}

// parseCoords parses a GROBID coords attribute: semicolon-separated boxes,
// each "page,x,y,width,height".
func parseCoords(coords string) ([]box, error) {
	var boxes []box
	for _, raw := range strings.Split(coords, ";") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		parts := strings.Split(raw, ",")
		if len(parts) < 5 {
			return nil, eris.Errorf("annotate: malformed coordinate box %q", raw)
		}
		page, err := strconv.Atoi(parts[0])
		if err != nil {
			return nil, eris.Wrapf(err, "annotate: parse page in %q", raw)
		}
		vals := make([]float64, 4)
		for i := 0; i < 4; i++ {
			v, err := strconv.ParseFloat(parts[i+1], 64)
			if err != nil {
				return nil, eris.Wrapf(err, "annotate: parse coordinate in %q", raw)
			}
			vals[i] = v
		}
		boxes = append(boxes, box{page: page, x: vals[0], y: vals[1], w: vals[2], h: vals[3]})
	}
	if len(boxes) == 0 {
		return nil, eris.New("annotate: empty coords attribute")
	}
	return boxes, nil
}

func attrValue(el xml.StartElement, name string) string {
	for _, a := range el.Attr {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}
