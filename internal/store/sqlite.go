package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/lexdesk/expedientes-cli/internal/model"
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

const sqliteMigrationStmts = `
CREATE TABLE IF NOT EXISTS juicio_updates (
	id              TEXT PRIMARY KEY,
	juicio_id       TEXT NOT NULL,
	tipo            TEXT,
	titulo          TEXT,
	sintesis        TEXT,
	fecha_documento DATETIME,
	documento_path  TEXT,
	documento_nombre TEXT,
	ai_analyzed     INTEGER NOT NULL DEFAULT 0,
	ai_raw_response TEXT,
	created_at      DATETIME NOT NULL,
	updated_at      DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_juicio_updates_juicio_id ON juicio_updates(juicio_id);
CREATE INDEX IF NOT EXISTS idx_juicio_updates_fecha ON juicio_updates(juicio_id, fecha_documento DESC);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigrationStmts)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateUpdate(ctx context.Context, u *model.Update) (*model.Update, error) {
	rec := *u
	rec.ID = uuid.New().String()
	now := time.Now().UTC()
	rec.CreatedAt = now
	rec.UpdatedAt = now

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO juicio_updates (`+updateColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.JuicioID,
		nullString(string(rec.Category)), nullString(rec.Title), nullString(rec.Summary),
		nullTime(rec.DocumentDate),
		nullString(rec.DocumentPath), nullString(rec.DocumentName),
		rec.AIAnalyzed, nullJSON(rec.AIRawResponse),
		rec.CreatedAt, rec.UpdatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert update")
	}
	return &rec, nil
}

func (s *SQLiteStore) GetUpdate(ctx context.Context, id string) (*model.Update, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+updateColumns+` FROM juicio_updates WHERE id = ?`, id)

	u, err := scanUpdateRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, eris.Wrapf(err, "sqlite: get update %s", id)
	}
	return u, nil
}

func (s *SQLiteStore) ListUpdates(ctx context.Context, juicioID string) ([]model.Update, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+updateColumns+` FROM juicio_updates
		 WHERE juicio_id = ?
		 ORDER BY fecha_documento IS NULL, fecha_documento DESC, created_at DESC`,
		juicioID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list updates")
	}
	defer rows.Close()

	var updates []model.Update
	for rows.Next() {
		u, err := scanUpdateRow(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan update")
		}
		updates = append(updates, *u)
	}
	return updates, eris.Wrap(rows.Err(), "sqlite: list updates iterate")
}

func (s *SQLiteStore) EditUpdate(ctx context.Context, id string, fields UpdateFields) (*model.Update, error) {
	query := `UPDATE juicio_updates SET `
	var sets []string
	var args []any

	if fields.Category != nil {
		sets = append(sets, "tipo = ?")
		args = append(args, nullString(string(*fields.Category)))
	}
	if fields.Title != nil {
		sets = append(sets, "titulo = ?")
		args = append(args, nullString(*fields.Title))
	}
	if fields.Summary != nil {
		sets = append(sets, "sintesis = ?")
		args = append(args, nullString(*fields.Summary))
	}
	if fields.DocumentDate != nil {
		sets = append(sets, "fecha_documento = ?")
		args = append(args, nullTime(*fields.DocumentDate))
	}

	if len(sets) == 0 {
		return s.GetUpdate(ctx, id)
	}

	sets = append(sets, "updated_at = ?")
	args = append(args, time.Now().UTC(), id)

	query += strings.Join(sets, ", ") + ` WHERE id = ?`
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: edit update %s", id)
	}
	if err := checkRowsAffected(res, id); err != nil {
		return nil, err
	}
	return s.GetUpdate(ctx, id)
}

func (s *SQLiteStore) SaveAnalysis(ctx context.Context, id string, a AnalysisFields) (*model.Update, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE juicio_updates
		 SET tipo = ?, titulo = ?, sintesis = ?, ai_analyzed = ?, ai_raw_response = ?, updated_at = ?
		 WHERE id = ?`,
		nullString(string(a.Category)), nullString(a.Title), nullString(a.Summary),
		a.AIAnalyzed, nullJSON(a.Raw), time.Now().UTC(), id,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: save analysis %s", id)
	}
	if err := checkRowsAffected(res, id); err != nil {
		return nil, err
	}
	return s.GetUpdate(ctx, id)
}

func (s *SQLiteStore) DeleteUpdate(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM juicio_updates WHERE id = ?`, id)
	if err != nil {
		return eris.Wrapf(err, "sqlite: delete update %s", id)
	}
	return checkRowsAffected(res, id)
}

func (s *SQLiteStore) DeleteUpdatesByJuicio(ctx context.Context, juicioID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT documento_path FROM juicio_updates WHERE juicio_id = ? AND documento_path IS NOT NULL`,
		juicioID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: select paths for juicio")
	}
	var paths []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			rows.Close()
			return nil, eris.Wrap(err, "sqlite: scan document path")
		}
		if p != "" {
			paths = append(paths, p)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: select paths iterate")
	}

	_, err = s.db.ExecContext(ctx, `DELETE FROM juicio_updates WHERE juicio_id = ?`, juicioID)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: delete updates by juicio")
	}
	return paths, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUpdateRow(row rowScanner) (*model.Update, error) {
	var u model.Update
	var tipo, titulo, sintesis, docPath, docName sql.NullString
	var fecha sql.NullTime
	var raw sql.NullString

	err := row.Scan(
		&u.ID, &u.JuicioID, &tipo, &titulo, &sintesis, &fecha,
		&docPath, &docName, &u.AIAnalyzed, &raw, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if tipo.Valid {
		u.Category = model.Category(tipo.String)
	}
	u.Title = titulo.String
	u.Summary = sintesis.String
	if fecha.Valid {
		u.DocumentDate = fecha.Time
	}
	u.DocumentPath = docPath.String
	u.DocumentName = docName.String
	if raw.Valid && raw.String != "" {
		u.AIRawResponse = []byte(raw.String)
	}
	return &u, nil
}

func checkRowsAffected(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrapf(err, "sqlite: rows affected for %s", id)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
