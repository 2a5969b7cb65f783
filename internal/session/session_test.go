package session

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Olivia98106/semi-code/internal/annotate"
	"github.com/Olivia98106/semi-code/internal/config"
	"github.com/Olivia98106/semi-code/internal/extract"
	"github.com/Olivia98106/semi-code/internal/model"
)

const minimalTEI = `<TEI xmlns="http://www.tei-c.org/ns/1.0">
  <facsimile><surface n="1"/></facsimile>
  <text><body><p coords="1,10,10,100,20">One paragraph.</p></body></text>
</TEI>`

type stubGrobid struct {
	calls atomic.Int32
}

func (s *stubGrobid) IsAlive(ctx context.Context) error { return nil }

func (s *stubGrobid) ProcessFulltext(ctx context.Context, pdf []byte) ([]byte, error) {
	s.calls.Add(1)
	return []byte(minimalTEI), nil
}

func newTestManager(t *testing.T) (*Manager, *stubGrobid, string) {
	t.Helper()

	dir := t.TempDir()
	stub := &stubGrobid{}
	extractor := extract.New(config.ExtractConfig{
		StartRatio:   extract.DefaultStartRatio,
		EndRatio:     extract.DefaultEndRatio,
		AbstractBias: true,
	})
	return NewManager(dir, extractor, annotate.New(stub)), stub, dir
}

func TestManagerOpen(t *testing.T) {
	t.Parallel()

	m, _, dir := newTestManager(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "paper.pdf"), []byte("%PDF-fake"), 0o644))

	doc := model.Document{DocID: "doc-1", Filename: "paper.pdf"}
	s, err := m.Open(context.Background(), doc)
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF-fake"), s.PDF)
	assert.NotEmpty(t, s.ID)

	again, err := m.Open(context.Background(), doc)
	require.NoError(t, err)
	assert.Same(t, s, again)

	got, ok := m.Get("doc-1")
	assert.True(t, ok)
	assert.Same(t, s, got)
}

func TestManagerOpen_MissingFile(t *testing.T) {
	t.Parallel()

	m, _, _ := newTestManager(t)
	_, err := m.Open(context.Background(), model.Document{DocID: "doc-x", Filename: "nope.pdf"})
	require.Error(t, err)
}

func TestManagerInvalidate(t *testing.T) {
	t.Parallel()

	m, stub, dir := newTestManager(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "paper.pdf"), []byte("%PDF-fake"), 0o644))

	doc := model.Document{DocID: "doc-1", Filename: "paper.pdf"}
	s, err := m.Open(context.Background(), doc)
	require.NoError(t, err)

	_, err = s.Annotations(context.Background())
	require.NoError(t, err)

	m.Invalidate("doc-1")
	_, ok := m.Get("doc-1")
	assert.False(t, ok)

	// reopening re-reads and re-annotates
	s2, err := m.Open(context.Background(), doc)
	require.NoError(t, err)
	_, err = s2.Annotations(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), stub.calls.Load())
}

func TestSessionAnnotations_Cached(t *testing.T) {
	t.Parallel()

	m, stub, dir := newTestManager(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "paper.pdf"), []byte("%PDF-fake"), 0o644))

	s, err := m.Open(context.Background(), model.Document{DocID: "doc-1", Filename: "paper.pdf"})
	require.NoError(t, err)

	res, err := s.Annotations(context.Background())
	require.NoError(t, err)
	require.Len(t, res.Spans, 1)
	assert.Equal(t, model.TypeParagraph, res.Spans[0].Type)

	_, err = s.Annotations(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), stub.calls.Load())
}

func TestSessionKB_CorruptPDF(t *testing.T) {
	t.Parallel()

	m, _, dir := newTestManager(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "paper.pdf"), []byte("not a pdf"), 0o644))

	s, err := m.Open(context.Background(), model.Document{DocID: "doc-1", Filename: "paper.pdf"})
	require.NoError(t, err)

	_, err = s.KB(context.Background(), extract.RangedText())
	require.Error(t, err)
	assert.True(t, errors.Is(err, extract.ErrCorruptDocument))
}

func TestModeKey_DistinguishesModes(t *testing.T) {
	t.Parallel()

	assert.NotEqual(t, modeKey(extract.FullText()), modeKey(extract.RangedText()))
	assert.Equal(t, modeKey(extract.RangedText()), modeKey(extract.RangedText()))
}
