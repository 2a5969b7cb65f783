// Package annotate turns PDFs into typed structural annotations by running
// them through GROBID and normalizing the resulting TEI coordinates.
package annotate

import (
	"context"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/Olivia98106/semi-code/pkg/grobid"
)

// Annotator parses documents and caches the results per document id.
// Concurrent requests for the same document share a single GROBID call.
type Annotator struct {
	client grobid.Client
	group  singleflight.Group

	mu    sync.RWMutex
	cache map[string]*Result
}

// New creates an Annotator backed by the given GROBID client.
func New(client grobid.Client) *Annotator {
	return &Annotator{
		client: client,
		cache:  make(map[string]*Result),
	}
}

// Annotate returns the structural annotations for a document, parsing it on
// first use and serving from cache afterwards.
func (a *Annotator) Annotate(ctx context.Context, docID string, pdf []byte) (*Result, error) {
	a.mu.RLock()
	res, ok := a.cache[docID]
	a.mu.RUnlock()
	if ok {
		return res, nil
	}

	v, err, shared := a.group.Do(docID, func() (interface{}, error) {
		return a.process(ctx, docID, pdf)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		zap.L().Debug("annotation shared with concurrent request", zap.String("doc_id", docID))
	}
	return v.(*Result), nil
}

func (a *Annotator) process(ctx context.Context, docID string, pdf []byte) (*Result, error) {
	tei, err := a.client.ProcessFulltext(ctx, pdf)
	if err != nil {
		return nil, eris.Wrapf(err, "annotate: process document %s", docID)
	}

	res, err := ParseTEI(tei)
	if err != nil {
		return nil, eris.Wrapf(err, "annotate: parse document %s", docID)
	}
	if res.Dropped > 0 {
		zap.L().Warn("dropped annotations with out-of-range pages",
			zap.String("doc_id", docID),
			zap.Int("dropped", res.Dropped),
			zap.Int("page_count", res.PageCount))
	}

	a.mu.Lock()
	a.cache[docID] = res
	a.mu.Unlock()

	zap.L().Info("document annotated",
		zap.String("doc_id", docID),
		zap.Int("pages", res.PageCount),
		zap.Int("spans", len(res.Spans)))
	return res, nil
}

// Cached returns the cached result for a document, if present.
func (a *Annotator) Cached(docID string) (*Result, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	res, ok := a.cache[docID]
	return res, ok
}

// Invalidate drops the cached result for a document. Call after replacing
// the underlying PDF.
func (a *Annotator) Invalidate(docID string) {
	a.mu.Lock()
	delete(a.cache, docID)
	a.mu.Unlock()
}
