package store

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/Olivia98106/semi-code/internal/db"
	"github.com/Olivia98106/semi-code/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the most frequently used store operations.
var preparedStatements = map[string]string{
	"upsert_document": `INSERT INTO pdf (doc_id, filename) VALUES ($1, $2)
		ON CONFLICT (doc_id) DO UPDATE SET filename = EXCLUDED.filename`,
	"get_document": `SELECT doc_id, filename FROM pdf WHERE doc_id = $1`,
	"upsert_chain": `INSERT INTO chain (variable, prompt) VALUES ($1, $2)
		ON CONFLICT (variable) DO UPDATE SET prompt = EXCLUDED.prompt`,
	"get_chain": `SELECT variable, prompt FROM chain WHERE variable = $1`,
	"upsert_label": `INSERT INTO label (doc_id, variable, label, ai_label, manual_label, prompt_version, source, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (doc_id, variable) DO UPDATE SET
			label = EXCLUDED.label,
			ai_label = EXCLUDED.ai_label,
			manual_label = EXCLUDED.manual_label,
			prompt_version = EXCLUDED.prompt_version,
			source = EXCLUDED.source,
			updated_at = EXCLUDED.updated_at`,
	"get_label": `SELECT doc_id, variable, label, ai_label, manual_label, prompt_version, source, updated_at
		FROM label WHERE doc_id = $1 AND variable = $2`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	// Prepare frequently-used statements on each new connection.
	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrapf(ErrConnection, "postgres: ping: %v", err)
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresFromPool wraps an existing pool, mainly for tests.
func NewPostgresFromPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool, closeFn: pool.Close}
}

const postgresMigration = `
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
	updated_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (doc_id, variable)
);

CREATE INDEX IF NOT EXISTS idx_label_variable ON label(variable);
CREATE INDEX IF NOT EXISTS idx_label_doc_id ON label(doc_id);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) UpsertDocument(ctx context.Context, doc model.Document) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO pdf (doc_id, filename) VALUES ($1, $2)
		 ON CONFLICT (doc_id) DO UPDATE SET filename = EXCLUDED.filename`,
		doc.DocID, doc.Filename,
	)
	return eris.Wrapf(pgClassify(err), "postgres: upsert document %s", doc.DocID)
}

func (s *PostgresStore) GetDocument(ctx context.Context, docID string) (*model.Document, error) {
	var doc model.Document
	err := s.pool.QueryRow(ctx,
		`SELECT doc_id, filename FROM pdf WHERE doc_id = $1`, docID,
	).Scan(&doc.DocID, &doc.Filename)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "document %s", docID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get document %s", docID)
	}
	return &doc, nil
}

func (s *PostgresStore) ListDocuments(ctx context.Context) ([]model.Document, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT doc_id, filename FROM pdf ORDER BY doc_id`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list documents")
	}
	defer rows.Close()

	var docs []model.Document
	for rows.Next() {
		var doc model.Document
		if err := rows.Scan(&doc.DocID, &doc.Filename); err != nil {
			return nil, eris.Wrap(err, "postgres: scan document")
		}
		docs = append(docs, doc)
	}
	return docs, eris.Wrap(rows.Err(), "postgres: list documents iterate")
}

func (s *PostgresStore) ImportDocuments(ctx context.Context, docs []model.Document) (int, error) {
	if len(docs) == 0 {
		return 0, nil
	}

	rows := make([][]any, len(docs))
	for i, doc := range docs {
		rows[i] = []any{doc.DocID, doc.Filename}
	}

	n, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "pdf",
		Columns:      []string{"doc_id", "filename"},
		ConflictKeys: []string{"doc_id"},
	}, rows)
	if err != nil {
		return 0, eris.Wrap(pgClassify(err), "postgres: import documents")
	}
	return int(n), nil
}

func (s *PostgresStore) UpsertChain(ctx context.Context, chain model.Chain) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO chain (variable, prompt) VALUES ($1, $2)
		 ON CONFLICT (variable) DO UPDATE SET prompt = EXCLUDED.prompt`,
		chain.Variable, chain.Prompt,
	)
	return eris.Wrapf(pgClassify(err), "postgres: upsert chain %s", chain.Variable)
}

func (s *PostgresStore) GetChain(ctx context.Context, variable string) (*model.Chain, error) {
	var chain model.Chain
	err := s.pool.QueryRow(ctx,
		`SELECT variable, prompt FROM chain WHERE variable = $1`, variable,
	).Scan(&chain.Variable, &chain.Prompt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "chain %s", variable)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get chain %s", variable)
	}
	return &chain, nil
}

func (s *PostgresStore) ListChains(ctx context.Context) ([]model.Chain, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT variable, prompt FROM chain ORDER BY variable`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list chains")
	}
	defer rows.Close()

	var chains []model.Chain
	for rows.Next() {
		var chain model.Chain
		if err := rows.Scan(&chain.Variable, &chain.Prompt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan chain")
		}
		chains = append(chains, chain)
	}
	return chains, eris.Wrap(rows.Err(), "postgres: list chains iterate")
}

func (s *PostgresStore) DeleteChain(ctx context.Context, variable string) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM chain WHERE variable = $1`, variable)
	if err != nil {
		return eris.Wrapf(err, "postgres: delete chain %s", variable)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "chain %s", variable)
	}
	return nil
}

func (s *PostgresStore) UpsertLabel(ctx context.Context, rec model.LabelRecord) error {
	now := rec.UpdatedAt
	if now.IsZero() {
		now = time.Now().UTC()
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO label (doc_id, variable, label, ai_label, manual_label, prompt_version, source, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (doc_id, variable) DO UPDATE SET
			label = EXCLUDED.label,
			ai_label = EXCLUDED.ai_label,
			manual_label = EXCLUDED.manual_label,
			prompt_version = EXCLUDED.prompt_version,
			source = EXCLUDED.source,
			updated_at = EXCLUDED.updated_at`,
		rec.DocID, rec.Variable, rec.Label, rec.AILabel, rec.ManualLabel,
		rec.PromptVersion, string(rec.Source), now,
	)
	return eris.Wrapf(pgClassify(err), "postgres: upsert label %s/%s", rec.DocID, rec.Variable)
}

func (s *PostgresStore) GetLabel(ctx context.Context, docID, variable string) (*model.LabelRecord, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT doc_id, variable, label, ai_label, manual_label, prompt_version, source, updated_at
		 FROM label WHERE doc_id = $1 AND variable = $2`,
		docID, variable,
	)

	var rec model.LabelRecord
	var source string
	err := row.Scan(&rec.DocID, &rec.Variable, &rec.Label, &rec.AILabel,
		&rec.ManualLabel, &rec.PromptVersion, &source, &rec.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "label %s/%s", docID, variable)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get label %s/%s", docID, variable)
	}
	rec.Source = model.LabelSource(source)
	return &rec, nil
}

func (s *PostgresStore) ListLabels(ctx context.Context, filter LabelFilter) ([]model.LabelRecord, error) {
	query := `SELECT doc_id, variable, label, ai_label, manual_label, prompt_version, source, updated_at
		 FROM label WHERE 1=1`
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return placeholder(len(args))
	}

	if filter.DocID != "" {
		query += ` AND doc_id = ` + arg(filter.DocID)
	}
	if filter.Variable != "" {
		query += ` AND variable = ` + arg(filter.Variable)
	}
	query += ` ORDER BY doc_id, variable`

	limit := filter.Limit
	if limit <= 0 {
		limit = 1000
	}
	query += ` LIMIT ` + arg(limit)

	if filter.Offset > 0 {
		query += ` OFFSET ` + arg(filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list labels")
	}
	defer rows.Close()

	var recs []model.LabelRecord
	for rows.Next() {
		var rec model.LabelRecord
		var source string
		if err := rows.Scan(&rec.DocID, &rec.Variable, &rec.Label, &rec.AILabel,
			&rec.ManualLabel, &rec.PromptVersion, &source, &rec.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan label")
		}
		rec.Source = model.LabelSource(source)
		recs = append(recs, rec)
	}
	return recs, eris.Wrap(rows.Err(), "postgres: list labels iterate")
}

func (s *PostgresStore) LabelValues(ctx context.Context, variable string) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT DISTINCT label FROM label WHERE variable = $1 AND label != '' ORDER BY label`,
		variable)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: label values %s", variable)
	}
	defer rows.Close()

	var values []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, eris.Wrap(err, "postgres: scan label value")
		}
		values = append(values, v)
	}
	return values, eris.Wrap(rows.Err(), "postgres: label values iterate")
}

func placeholder(n int) string {
	return "$" + strconv.Itoa(n)
}

// pgClassify maps server error codes onto store sentinels. Class 23 is
// integrity constraint violation, class 08 is connection exception.
func pgClassify(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case strings.HasPrefix(pgErr.Code, "23"):
			return eris.Wrap(ErrConstraintViolation, pgErr.Message)
		case strings.HasPrefix(pgErr.Code, "08"):
			return eris.Wrap(ErrConnection, pgErr.Message)
		}
	}
	return err
}
