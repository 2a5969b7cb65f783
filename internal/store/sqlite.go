package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	"modernc.org/sqlite"

	"github.com/Olivia98106/semi-code/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS pdf (
	doc_id   TEXT PRIMARY KEY,
	filename TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS chain (
	variable TEXT PRIMARY KEY,
	prompt   TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS label (
	doc_id         TEXT NOT NULL,
	variable       TEXT NOT NULL,
	label          TEXT NOT NULL DEFAULT '',
	ai_label       TEXT NOT NULL DEFAULT '',
	manual_label   TEXT NOT NULL DEFAULT '',
	prompt_version TEXT NOT NULL DEFAULT '',
	source         TEXT NOT NULL DEFAULT 'ai',
	updated_at     DATETIME NOT NULL DEFAULT (datetime('now')),
	PRIMARY KEY (doc_id, variable)
);

CREATE INDEX IF NOT EXISTS idx_label_variable ON label(variable);
CREATE INDEX IF NOT EXISTS idx_label_doc_id ON label(doc_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) UpsertDocument(ctx context.Context, doc model.Document) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO pdf (doc_id, filename) VALUES (?, ?)
		 ON CONFLICT(doc_id) DO UPDATE SET filename = excluded.filename`,
		doc.DocID, doc.Filename,
	)
	return eris.Wrapf(sqliteClassify(err), "sqlite: upsert document %s", doc.DocID)
}

func (s *SQLiteStore) GetDocument(ctx context.Context, docID string) (*model.Document, error) {
	var doc model.Document
	err := s.db.QueryRowContext(ctx,
		`SELECT doc_id, filename FROM pdf WHERE doc_id = ?`, docID,
	).Scan(&doc.DocID, &doc.Filename)
	if err == sql.ErrNoRows {
		return nil, eris.Wrapf(ErrNotFound, "document %s", docID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get document %s", docID)
	}
	return &doc, nil
}

func (s *SQLiteStore) ListDocuments(ctx context.Context) ([]model.Document, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT doc_id, filename FROM pdf ORDER BY doc_id`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list documents")
	}
	defer rows.Close()

	var docs []model.Document
	for rows.Next() {
		var doc model.Document
		if err := rows.Scan(&doc.DocID, &doc.Filename); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan document")
		}
		docs = append(docs, doc)
	}
	return docs, eris.Wrap(rows.Err(), "sqlite: list documents iterate")
}

func (s *SQLiteStore) ImportDocuments(ctx context.Context, docs []model.Document) (int, error) {
	if len(docs) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin import tx")
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO pdf (doc_id, filename) VALUES (?, ?)
		 ON CONFLICT(doc_id) DO UPDATE SET filename = excluded.filename`)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare import")
	}
	defer stmt.Close()

	for _, doc := range docs {
		if _, err := stmt.ExecContext(ctx, doc.DocID, doc.Filename); err != nil {
			return 0, eris.Wrapf(sqliteClassify(err), "sqlite: import document %s", doc.DocID)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit import tx")
	}
	return len(docs), nil
}

func (s *SQLiteStore) UpsertChain(ctx context.Context, chain model.Chain) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO chain (variable, prompt) VALUES (?, ?)
		 ON CONFLICT(variable) DO UPDATE SET prompt = excluded.prompt`,
		chain.Variable, chain.Prompt,
	)
	return eris.Wrapf(sqliteClassify(err), "sqlite: upsert chain %s", chain.Variable)
}

func (s *SQLiteStore) GetChain(ctx context.Context, variable string) (*model.Chain, error) {
	var chain model.Chain
	err := s.db.QueryRowContext(ctx,
		`SELECT variable, prompt FROM chain WHERE variable = ?`, variable,
	).Scan(&chain.Variable, &chain.Prompt)
	if err == sql.ErrNoRows {
		return nil, eris.Wrapf(ErrNotFound, "chain %s", variable)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get chain %s", variable)
	}
	return &chain, nil
}

func (s *SQLiteStore) ListChains(ctx context.Context) ([]model.Chain, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT variable, prompt FROM chain ORDER BY variable`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list chains")
	}
	defer rows.Close()

	var chains []model.Chain
	for rows.Next() {
		var chain model.Chain
		if err := rows.Scan(&chain.Variable, &chain.Prompt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan chain")
		}
		chains = append(chains, chain)
	}
	return chains, eris.Wrap(rows.Err(), "sqlite: list chains iterate")
}

func (s *SQLiteStore) DeleteChain(ctx context.Context, variable string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM chain WHERE variable = ?`, variable)
	if err != nil {
		return eris.Wrapf(err, "sqlite: delete chain %s", variable)
	}
	return checkRowsAffected(res, "chain", variable)
}

func (s *SQLiteStore) UpsertLabel(ctx context.Context, rec model.LabelRecord) error {
	now := rec.UpdatedAt
	if now.IsZero() {
		now = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO label (doc_id, variable, label, ai_label, manual_label, prompt_version, source, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(doc_id, variable) DO UPDATE SET
			label = excluded.label,
			ai_label = excluded.ai_label,
			manual_label = excluded.manual_label,
			prompt_version = excluded.prompt_version,
			source = excluded.source,
			updated_at = excluded.updated_at`,
		rec.DocID, rec.Variable, rec.Label, rec.AILabel, rec.ManualLabel,
		rec.PromptVersion, string(rec.Source), now,
	)
	return eris.Wrapf(sqliteClassify(err), "sqlite: upsert label %s/%s", rec.DocID, rec.Variable)
}

func (s *SQLiteStore) GetLabel(ctx context.Context, docID, variable string) (*model.LabelRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT doc_id, variable, label, ai_label, manual_label, prompt_version, source, updated_at
		 FROM label WHERE doc_id = ? AND variable = ?`,
		docID, variable,
	)

	var rec model.LabelRecord
	var source string
	err := row.Scan(&rec.DocID, &rec.Variable, &rec.Label, &rec.AILabel,
		&rec.ManualLabel, &rec.PromptVersion, &source, &rec.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, eris.Wrapf(ErrNotFound, "label %s/%s", docID, variable)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get label %s/%s", docID, variable)
	}
	rec.Source = model.LabelSource(source)
	return &rec, nil
}

func (s *SQLiteStore) ListLabels(ctx context.Context, filter LabelFilter) ([]model.LabelRecord, error) {
	query := `SELECT doc_id, variable, label, ai_label, manual_label, prompt_version, source, updated_at
		 FROM label WHERE 1=1`
	var args []any

	if filter.DocID != "" {
		query += ` AND doc_id = ?`
		args = append(args, filter.DocID)
	}
	if filter.Variable != "" {
		query += ` AND variable = ?`
		args = append(args, filter.Variable)
	}
	query += ` ORDER BY doc_id, variable`

	limit := filter.Limit
	if limit <= 0 {
		limit = 1000
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list labels")
	}
	defer rows.Close()

	var recs []model.LabelRecord
	for rows.Next() {
		var rec model.LabelRecord
		var source string
		if err := rows.Scan(&rec.DocID, &rec.Variable, &rec.Label, &rec.AILabel,
			&rec.ManualLabel, &rec.PromptVersion, &source, &rec.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan label")
		}
		rec.Source = model.LabelSource(source)
		recs = append(recs, rec)
	}
	return recs, eris.Wrap(rows.Err(), "sqlite: list labels iterate")
}

func (s *SQLiteStore) LabelValues(ctx context.Context, variable string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT label FROM label WHERE variable = ? AND label != '' ORDER BY label`,
		variable)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: label values %s", variable)
	}
	defer rows.Close()

	var values []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan label value")
		}
		values = append(values, v)
	}
	return values, eris.Wrap(rows.Err(), "sqlite: label values iterate")
}

// helpers

// sqliteClassify maps driver errors onto store sentinels so callers can
// switch on errors.Is without knowing the backend. SQLITE_CONSTRAINT is 19;
// extended constraint codes keep it in the low byte.
func sqliteClassify(err error) error {
	var se *sqlite.Error
	if errors.As(err, &se) && se.Code()&0xff == 19 {
		return eris.Wrap(ErrConstraintViolation, se.Error())
	}
	return err
}

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "%s %s", entity, id)
	}
	return nil
}
