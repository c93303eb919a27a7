package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/ajuntament-olot/pla-usos/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite. It carries only the
// consultation log; the reference catalog and the spatial registry stay in
// PostgreSQL. Intended for small deployments and local development.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL
// mode.
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
CREATE TABLE IF NOT EXISTS consultations (
	id                TEXT PRIMARY KEY,
	requester_dni     TEXT NOT NULL,
	requester_name    TEXT NOT NULL,
	requester_role    TEXT NOT NULL DEFAULT '',
	dom_code          TEXT NOT NULL,
	street_line       TEXT NOT NULL DEFAULT '',
	heading_id        INTEGER,
	other_activity    INTEGER NOT NULL DEFAULT 0,
	other_description TEXT,
	condition_code    INTEGER,
	condition_value   INTEGER,
	verdict           TEXT NOT NULL,
	created_at        TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_consultations_created_at ON consultations(created_at DESC);
`

// Migrate creates the consultation log schema.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, sqliteMigration); err != nil {
		return eris.Wrap(err, "sqlite: migrate")
	}
	return nil
}

// InsertConsultation writes one record and returns its generated id.
func (s *SQLiteStore) InsertConsultation(ctx context.Context, c model.Consultation) (string, error) {
	id := uuid.NewString()
	createdAt := c.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO consultations
			(id, requester_dni, requester_name, requester_role, dom_code, street_line,
			 heading_id, other_activity, other_description, condition_code, condition_value,
			 verdict, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, c.Requester.DNI, c.Requester.Name, c.Requester.Role, c.DomCode, c.StreetLine,
		c.HeadingID, c.OtherActivity, nilIfEmpty(c.OtherDescription),
		c.ConditionCode, c.ConditionValue, string(c.Verdict), createdAt,
	)
	if err != nil {
		return "", eris.Wrap(ErrWriteFailed, err.Error())
	}
	return id, nil
}

// GetConsultation loads one record by id.
func (s *SQLiteStore) GetConsultation(ctx context.Context, id string) (*model.Consultation, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, requester_dni, requester_name, requester_role, dom_code, street_line,
		       heading_id, other_activity, other_description, condition_code, condition_value,
		       verdict, created_at
		FROM consultations WHERE id = ?`, id)

	c, err := scanSQLiteConsultation(row)
	if err != nil {
		if eris.Is(err, sql.ErrNoRows) {
			return nil, eris.Wrapf(ErrNotFound, "consultation %s", id)
		}
		return nil, eris.Wrap(err, "sqlite: get consultation")
	}
	return c, nil
}

// ListConsultations returns records newest first.
func (s *SQLiteStore) ListConsultations(ctx context.Context, f Filter) ([]model.Consultation, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, requester_dni, requester_name, requester_role, dom_code, street_line,
		       heading_id, other_activity, other_description, condition_code, condition_value,
		       verdict, created_at
		FROM consultations
		WHERE (? = '' OR dom_code = ?)
		  AND (? = '' OR verdict = ?)
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?`,
		f.DomCode, f.DomCode, f.Verdict, f.Verdict, limit, f.Offset)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list consultations")
	}
	defer rows.Close()

	var out []model.Consultation
	for rows.Next() {
		c, err := scanSQLiteConsultation(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan consultation")
		}
		out = append(out, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: iterate consultations")
	}
	return out, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error { return s.db.Close() }

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteConsultation(row rowScanner) (*model.Consultation, error) {
	var (
		c     model.Consultation
		other *string
	)
	err := row.Scan(
		&c.ID, &c.Requester.DNI, &c.Requester.Name, &c.Requester.Role,
		&c.DomCode, &c.StreetLine, &c.HeadingID, &c.OtherActivity, &other,
		&c.ConditionCode, &c.ConditionValue, &c.Verdict, &c.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if other != nil {
		c.OtherDescription = *other
	}
	return &c, nil
}
