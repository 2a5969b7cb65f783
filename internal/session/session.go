// Package session holds per-document working state for the interactive
// workflow: the loaded PDF bytes, lazily built knowledge-base text, and the
// structural annotation cache.
package session

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/Olivia98106/semi-code/internal/annotate"
	"github.com/Olivia98106/semi-code/internal/extract"
	"github.com/Olivia98106/semi-code/internal/model"
)

// Session is the working state for one selected document. PDF bytes are
// immutable for the session's lifetime; derived data is built on demand and
// cached. Safe for concurrent readers.
type Session struct {
	ID  string
	Doc model.Document
	PDF []byte

	extractor *extract.Extractor
	annotator *annotate.Annotator

	mu sync.Mutex
	kb map[string]string // mode key → extracted text
}

// KB returns the knowledge-base text for the given extraction mode, building
// it on first use.
func (s *Session) KB(ctx context.Context, mode extract.Mode) (string, error) {
	key := modeKey(mode)

	s.mu.Lock()
	defer s.mu.Unlock()
	if text, ok := s.kb[key]; ok {
		return text, nil
	}

	text, err := s.extractor.Extract(ctx, s.PDF, mode)
	if err != nil {
		return "", eris.Wrapf(err, "session: build knowledge base for %s", s.Doc.DocID)
	}
	s.kb[key] = text
	return text, nil
}

// Annotations returns the structural annotations for the document, running
// the parser on first use.
func (s *Session) Annotations(ctx context.Context) (*annotate.Result, error) {
	return s.annotator.Annotate(ctx, s.Doc.DocID, s.PDF)
}

func modeKey(mode extract.Mode) string {
	return fmt.Sprintf("r=%t:s=%g:e=%g:b=%t",
		mode.Ranged, mode.StartRatio, mode.EndRatio, mode.AbstractBias)
}

// Manager tracks open sessions by document id.
type Manager struct {
	pdfDir    string
	extractor *extract.Extractor
	annotator *annotate.Annotator

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewManager creates a Manager that loads PDFs from pdfDir.
func NewManager(pdfDir string, extractor *extract.Extractor, annotator *annotate.Annotator) *Manager {
	return &Manager{
		pdfDir:    pdfDir,
		extractor: extractor,
		annotator: annotator,
		sessions:  make(map[string]*Session),
	}
}

// Open returns the session for a document, loading its PDF from disk on
// first selection.
func (m *Manager) Open(ctx context.Context, doc model.Document) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[doc.DocID]
	m.mu.RUnlock()
	if ok {
		return s, nil
	}

	pdf, err := os.ReadFile(filepath.Join(m.pdfDir, doc.Filename))
	if err != nil {
		return nil, eris.Wrapf(err, "session: read pdf for %s", doc.DocID)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[doc.DocID]; ok {
		return s, nil
	}

	s = &Session{
		ID:        uuid.New().String(),
		Doc:       doc,
		PDF:       pdf,
		extractor: m.extractor,
		annotator: m.annotator,
		kb:        make(map[string]string),
	}
	m.sessions[doc.DocID] = s

	zap.L().Info("session opened",
		zap.String("session_id", s.ID),
		zap.String("doc_id", doc.DocID),
		zap.Int("pdf_bytes", len(pdf)))
	return s, nil
}

// Get returns an already-open session.
func (m *Manager) Get(docID string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[docID]
	return s, ok
}

// Invalidate drops a session and its annotation cache. Call when the
// underlying PDF is replaced.
func (m *Manager) Invalidate(docID string) {
	m.mu.Lock()
	delete(m.sessions, docID)
	m.mu.Unlock()
	m.annotator.Invalidate(docID)
}
