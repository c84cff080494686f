package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/lexdesk/expedientes-cli/internal/model"
)

// Pool is the subset of pgxpool.Pool the store uses. pgxmock's PgxPoolIface
// satisfies it in tests.
type Pool interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool Pool
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	pgxCfg.MaxConns = 10
	pgxCfg.MinConns = 2
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS juicio_updates (
	id              TEXT PRIMARY KEY,
	juicio_id       TEXT NOT NULL,
	tipo            TEXT,
	titulo          TEXT,
	sintesis        TEXT,
	fecha_documento DATE,
	documento_path  TEXT,
	documento_nombre TEXT,
	ai_analyzed     BOOLEAN NOT NULL DEFAULT FALSE,
	ai_raw_response JSONB,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_juicio_updates_juicio_id ON juicio_updates(juicio_id);
CREATE INDEX IF NOT EXISTS idx_juicio_updates_fecha ON juicio_updates(juicio_id, fecha_documento DESC);
`

const updateColumns = `id, juicio_id, tipo, titulo, sintesis, fecha_documento, documento_path, documento_nombre, ai_analyzed, ai_raw_response, created_at, updated_at`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) CreateUpdate(ctx context.Context, u *model.Update) (*model.Update, error) {
	rec := *u
	rec.ID = uuid.New().String()
	now := time.Now().UTC()
	rec.CreatedAt = now
	rec.UpdatedAt = now

	_, err := s.pool.Exec(ctx,
		`INSERT INTO juicio_updates (`+updateColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		rec.ID, rec.JuicioID,
		nullString(string(rec.Category)), nullString(rec.Title), nullString(rec.Summary),
		nullTime(rec.DocumentDate),
		nullString(rec.DocumentPath), nullString(rec.DocumentName),
		rec.AIAnalyzed, nullJSON(rec.AIRawResponse),
		rec.CreatedAt, rec.UpdatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert update")
	}
	return &rec, nil
}

func (s *PostgresStore) GetUpdate(ctx context.Context, id string) (*model.Update, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+updateColumns+` FROM juicio_updates WHERE id = $1`, id)

	u, err := scanUpdate(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, eris.Wrapf(err, "postgres: get update %s", id)
	}
	return u, nil
}

func (s *PostgresStore) ListUpdates(ctx context.Context, juicioID string) ([]model.Update, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+updateColumns+` FROM juicio_updates
		 WHERE juicio_id = $1
		 ORDER BY fecha_documento DESC NULLS LAST, created_at DESC`,
		juicioID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list updates")
	}
	defer rows.Close()

	var updates []model.Update
	for rows.Next() {
		u, err := scanUpdate(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan update")
		}
		updates = append(updates, *u)
	}
	return updates, eris.Wrap(rows.Err(), "postgres: list updates rows")
}

func (s *PostgresStore) EditUpdate(ctx context.Context, id string, fields UpdateFields) (*model.Update, error) {
	sets := []string{}
	args := []any{}
	argIdx := 1

	add := func(col string, val any) {
		sets = append(sets, fmt.Sprintf("%s = $%d", col, argIdx))
		args = append(args, val)
		argIdx++
	}

	if fields.Category != nil {
		add("tipo", nullString(string(*fields.Category)))
	}
	if fields.Title != nil {
		add("titulo", nullString(*fields.Title))
	}
	if fields.Summary != nil {
		add("sintesis", nullString(*fields.Summary))
	}
	if fields.DocumentDate != nil {
		add("fecha_documento", nullTime(*fields.DocumentDate))
	}

	if len(sets) == 0 {
		return s.GetUpdate(ctx, id)
	}

	add("updated_at", time.Now().UTC())
	args = append(args, id)

	query := "UPDATE juicio_updates SET " + strings.Join(sets, ", ") + fmt.Sprintf(" WHERE id = $%d", argIdx)
	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: edit update %s", id)
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrNotFound
	}

	return s.GetUpdate(ctx, id)
}

func (s *PostgresStore) SaveAnalysis(ctx context.Context, id string, a AnalysisFields) (*model.Update, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE juicio_updates
		 SET tipo = $1, titulo = $2, sintesis = $3, ai_analyzed = $4, ai_raw_response = $5, updated_at = $6
		 WHERE id = $7`,
		nullString(string(a.Category)), nullString(a.Title), nullString(a.Summary),
		a.AIAnalyzed, nullJSON(a.Raw), time.Now().UTC(), id,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: save analysis %s", id)
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrNotFound
	}
	return s.GetUpdate(ctx, id)
}

func (s *PostgresStore) DeleteUpdate(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM juicio_updates WHERE id = $1`, id)
	if err != nil {
		return eris.Wrapf(err, "postgres: delete update %s", id)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) DeleteUpdatesByJuicio(ctx context.Context, juicioID string) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`DELETE FROM juicio_updates WHERE juicio_id = $1 RETURNING documento_path`, juicioID)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: delete updates by juicio")
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var p *string
		if err := rows.Scan(&p); err != nil {
			return nil, eris.Wrap(err, "postgres: scan deleted path")
		}
		if p != nil && *p != "" {
			paths = append(paths, *p)
		}
	}
	return paths, eris.Wrap(rows.Err(), "postgres: delete updates rows")
}

// scanUpdate reads one juicio_updates row in updateColumns order.
func scanUpdate(row pgx.Row) (*model.Update, error) {
	var u model.Update
	var tipo, titulo, sintesis, docPath, docName *string
	var fecha *time.Time
	var raw []byte

	err := row.Scan(
		&u.ID, &u.JuicioID, &tipo, &titulo, &sintesis, &fecha,
		&docPath, &docName, &u.AIAnalyzed, &raw, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if tipo != nil {
		u.Category = model.Category(*tipo)
	}
	u.Title = derefString(titulo)
	u.Summary = derefString(sintesis)
	u.DocumentDate = derefTime(fecha)
	u.DocumentPath = derefString(docPath)
	u.DocumentName = derefString(docName)
	if len(raw) > 0 {
		u.AIRawResponse = raw
	}
	return &u, nil
}

