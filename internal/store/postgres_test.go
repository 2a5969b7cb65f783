package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Olivia98106/semi-code/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	s := &PostgresStore{pool: mock}
	return s, mock
}

func TestPostgresStore_GetDocument_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT doc_id, filename FROM pdf WHERE doc_id = \$1`).
		WithArgs("nonexistent").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetDocument(context.Background(), "nonexistent")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetDocument(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT doc_id, filename FROM pdf WHERE doc_id = \$1`).
		WithArgs("doc-1").
		WillReturnRows(pgxmock.NewRows([]string{"doc_id", "filename"}).
			AddRow("doc-1", "paper_one.pdf"))

	doc, err := s.GetDocument(context.Background(), "doc-1")
	require.NoError(t, err)
	assert.Equal(t, "paper_one.pdf", doc.Filename)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpsertLabel(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`ON CONFLICT \(doc_id, variable\) DO UPDATE`).
		WithArgs("doc-1", "method", "survey", "survey", "", "v2", "ai", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := s.UpsertLabel(context.Background(), model.LabelRecord{
		DocID:         "doc-1",
		Variable:      "method",
		Label:         "survey",
		AILabel:       "survey",
		PromptVersion: "v2",
		Source:        model.SourceAI,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetLabel(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	updated := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`FROM label WHERE doc_id = \$1 AND variable = \$2`).
		WithArgs("doc-1", "method").
		WillReturnRows(pgxmock.NewRows([]string{
			"doc_id", "variable", "label", "ai_label", "manual_label",
			"prompt_version", "source", "updated_at",
		}).AddRow("doc-1", "method", "survey", "survey", "", "v2", "ai", updated))

	rec, err := s.GetLabel(context.Background(), "doc-1", "method")
	require.NoError(t, err)
	assert.Equal(t, "survey", rec.Label)
	assert.Equal(t, model.SourceAI, rec.Source)
	assert.Equal(t, updated, rec.UpdatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListLabels_Filtered(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`FROM label WHERE 1=1 AND doc_id = \$1 ORDER BY doc_id, variable LIMIT \$2`).
		WithArgs("doc-1", 1000).
		WillReturnRows(pgxmock.NewRows([]string{
			"doc_id", "variable", "label", "ai_label", "manual_label",
			"prompt_version", "source", "updated_at",
		}).
			AddRow("doc-1", "country", "Japan", "Japan", "", "v2", "ai", time.Now()).
			AddRow("doc-1", "method", "survey", "survey", "", "v2", "ai", time.Now()))

	recs, err := s.ListLabels(context.Background(), LabelFilter{DocID: "doc-1"})
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "country", recs[0].Variable)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_DeleteChain_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`DELETE FROM chain WHERE variable = \$1`).
		WithArgs("missing").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	err := s.DeleteChain(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ImportDocuments(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TEMP TABLE`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_tmp_upsert_pdf"}, []string{"doc_id", "filename"}).
		WillReturnResult(2)
	mock.ExpectExec(`INSERT INTO "pdf"`).
		WillReturnResult(pgxmock.NewResult("INSERT", 2))
	mock.ExpectCommit()
	mock.ExpectRollback()

	n, err := s.ImportDocuments(context.Background(), []model.Document{
		{DocID: "doc-1", Filename: "a.pdf"},
		{DocID: "doc-2", Filename: "b.pdf"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpsertDocument_ConstraintViolation(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO pdf`).
		WithArgs("doc-1", "a.pdf").
		WillReturnError(&pgconn.PgError{Code: "23502", Message: "null value in column"})

	err := s.UpsertDocument(context.Background(), model.Document{DocID: "doc-1", Filename: "a.pdf"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConstraintViolation))
	assert.NoError(t, mock.ExpectationsWereMet())
}
