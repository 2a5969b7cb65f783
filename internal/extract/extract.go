// Package extract derives the plain-text knowledge base from a PDF.
//
// The knowledge base feeds the completion backend, so extraction favors
// information density over completeness: ranged mode skips front matter and
// trailing references, and abstract bias always includes the first two pages
// regardless of the window.
package extract

import (
	"context"
	"math"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tsawler/tabula"
	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"

	"github.com/Olivia98106/semi-code/internal/config"
)

// ErrCorruptDocument indicates the byte stream could not be parsed as a PDF
// at all (unreadable header or end-of-file trailer). There is no partial
// result in this case.
var ErrCorruptDocument = eris.New("extract: corrupt document")

// Default window ratios for ranged extraction.
const (
	DefaultStartRatio = 0.30
	DefaultEndRatio   = 0.76
)

// Mode selects which pages contribute to the knowledge base.
type Mode struct {
	// Ranged restricts extraction to the ratio window; false means all pages.
	Ranged bool

	// StartRatio and EndRatio bound the window as fractions of the page
	// count. Zero values fall back to the defaults.
	StartRatio float64
	EndRatio   float64

	// AbstractBias always includes the first two pages, even outside the
	// window.
	AbstractBias bool
}

// FullText is the mode used for whole-document extraction with bias on.
func FullText() Mode {
	return Mode{AbstractBias: true}
}

// RangedText is the default ranged mode.
func RangedText() Mode {
	return Mode{Ranged: true, StartRatio: DefaultStartRatio, EndRatio: DefaultEndRatio, AbstractBias: true}
}

// Extractor turns PDF bytes into knowledge-base text.
type Extractor struct {
	cfg config.ExtractConfig
}

// New creates an Extractor with the configured default ratios.
func New(cfg config.ExtractConfig) *Extractor {
	return &Extractor{cfg: cfg}
}

// DefaultMode builds a ranged Mode from the configured ratios.
func (e *Extractor) DefaultMode() Mode {
	return Mode{
		Ranged:       true,
		StartRatio:   e.cfg.StartRatio,
		EndRatio:     e.cfg.EndRatio,
		AbstractBias: e.cfg.AbstractBias,
	}
}

// Extract produces the plain-text knowledge base for a PDF. Individual pages
// that yield no text contribute an empty string; only a document that cannot
// be opened as a PDF fails, with ErrCorruptDocument.
func (e *Extractor) Extract(ctx context.Context, pdf []byte, mode Mode) (string, error) {
	path, cleanup, err := writeTemp(pdf)
	if err != nil {
		return "", err
	}
	defer cleanup()

	pageCount, err := tabula.Open(path).PageCount()
	if err != nil {
		return "", eris.Wrap(ErrCorruptDocument, err.Error())
	}
	if pageCount == 0 {
		return "", nil
	}

	pages := SelectPages(pageCount, mode)

	var sb strings.Builder
	for _, page := range pages {
		if err := ctx.Err(); err != nil {
			return "", eris.Wrap(err, "extract: cancelled")
		}
		text, _, err := tabula.Open(path).Pages(page + 1).Text()
		if err != nil {
			// A single unextractable page must not abort the whole call.
			zap.L().Debug("page extraction failed",
				zap.Int("page", page),
				zap.Error(err),
			)
			continue
		}
		sb.WriteString(text)
	}

	return norm.NFC.String(sb.String()), nil
}

// SelectPages returns the 0-indexed pages a mode covers, in reading order,
// each page at most once. Bias pages come first, then the window. The ranged
// window runs from floor(start×n) through floor(end×n) inclusive.
func SelectPages(pageCount int, mode Mode) []int {
	start, end := 0, pageCount-1
	if mode.Ranged {
		startRatio := mode.StartRatio
		endRatio := mode.EndRatio
		if startRatio == 0 && endRatio == 0 {
			startRatio, endRatio = DefaultStartRatio, DefaultEndRatio
		}
		start = int(math.Floor(startRatio * float64(pageCount)))
		end = int(math.Floor(endRatio * float64(pageCount)))
	}

	included := make(map[int]bool, pageCount)
	var pages []int
	add := func(p int) {
		if p < 0 || p >= pageCount || included[p] {
			return
		}
		included[p] = true
		pages = append(pages, p)
	}

	if mode.AbstractBias {
		add(0)
		add(1)
	}
	for p := start; p <= end; p++ {
		add(p)
	}

	return pages
}

func writeTemp(pdf []byte) (string, func(), error) {
	f, err := os.CreateTemp("", "semicode-*.pdf")
	if err != nil {
		return "", nil, eris.Wrap(err, "extract: create temp file")
	}
	if _, err := f.Write(pdf); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", nil, eris.Wrap(err, "extract: write temp file")
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", nil, eris.Wrap(err, "extract: close temp file")
	}
	return f.Name(), func() { os.Remove(f.Name()) }, nil
}
