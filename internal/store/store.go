package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/Olivia98106/semi-code/internal/model"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = eris.New("store: not found")

// ErrConnection is returned when the backing database cannot be reached.
var ErrConnection = eris.New("store: connection failed")

// ErrConstraintViolation is returned when a write breaks a schema constraint.
var ErrConstraintViolation = eris.New("store: constraint violation")

// LabelFilter specifies criteria for listing labels.
type LabelFilter struct {
	DocID    string `json:"doc_id,omitempty"`
	Variable string `json:"variable,omitempty"`
	Limit    int    `json:"limit,omitempty"`
	Offset   int    `json:"offset,omitempty"`
}

// Store defines the persistence interface for the labeling workflow.
type Store interface {
	// Documents
	UpsertDocument(ctx context.Context, doc model.Document) error
	GetDocument(ctx context.Context, docID string) (*model.Document, error)
	ListDocuments(ctx context.Context) ([]model.Document, error)
	ImportDocuments(ctx context.Context, docs []model.Document) (int, error)

	// Chains
	UpsertChain(ctx context.Context, chain model.Chain) error
	GetChain(ctx context.Context, variable string) (*model.Chain, error)
	ListChains(ctx context.Context) ([]model.Chain, error)
	DeleteChain(ctx context.Context, variable string) error

	// Labels
	UpsertLabel(ctx context.Context, rec model.LabelRecord) error
	GetLabel(ctx context.Context, docID, variable string) (*model.LabelRecord, error)
	ListLabels(ctx context.Context, filter LabelFilter) ([]model.LabelRecord, error)
	LabelValues(ctx context.Context, variable string) ([]string, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
