package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"

	"github.com/ajuntament-olot/pla-usos/internal/db"
	"github.com/ajuntament-olot/pla-usos/internal/model"
)

// PostgresStore implements Store on the shared pgx pool.
type PostgresStore struct {
	pool db.Pool
}

// NewPostgres creates a PostgresStore.
func NewPostgres(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS zones (
	id          BIGSERIAL PRIMARY KEY,
	code        INT NOT NULL UNIQUE,
	description TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS treatment_areas (
	id          BIGSERIAL PRIMARY KEY,
	zone_id     BIGINT NOT NULL REFERENCES zones(id),
	code        INT NOT NULL,
	description TEXT NOT NULL,
	UNIQUE (zone_id, code)
);

CREATE TABLE IF NOT EXISTS activity_groups (
	code        INT PRIMARY KEY,
	description TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS activity_subgroups (
	id          BIGSERIAL PRIMARY KEY,
	code        INT NOT NULL,
	group_code  INT NOT NULL REFERENCES activity_groups(code),
	description TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS activity_headings (
	id          BIGSERIAL PRIMARY KEY,
	code        TEXT NOT NULL,
	subgroup_id BIGINT NOT NULL REFERENCES activity_subgroups(id),
	description TEXT NOT NULL,
	displayable BOOLEAN NOT NULL DEFAULT true
);

CREATE TABLE IF NOT EXISTS conditions (
	code        INT PRIMARY KEY,
	description TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS zone_condition_rules (
	id             BIGSERIAL PRIMARY KEY,
	zone_id        BIGINT NOT NULL REFERENCES zones(id),
	heading_id     BIGINT NOT NULL REFERENCES activity_headings(id),
	condition_code INT NOT NULL REFERENCES conditions(code),
	value          INT,
	UNIQUE (zone_id, heading_id)
);

CREATE TABLE IF NOT EXISTS area_condition_rules (
	id             BIGSERIAL PRIMARY KEY,
	area_id        BIGINT NOT NULL REFERENCES treatment_areas(id),
	heading_id     BIGINT NOT NULL REFERENCES activity_headings(id),
	condition_code INT NOT NULL REFERENCES conditions(code),
	value          INT,
	UNIQUE (area_id, heading_id)
);

CREATE TABLE IF NOT EXISTS addresses (
	dom_code      TEXT PRIMARY KEY,
	street_name   TEXT NOT NULL,
	street_number TEXT NOT NULL DEFAULT '',
	street_search TEXT NOT NULL DEFAULT '',
	street_width  DOUBLE PRECISION,
	floor         INT,
	x             DOUBLE PRECISION NOT NULL,
	y             DOUBLE PRECISION NOT NULL,
	zone_id       BIGINT NOT NULL REFERENCES zones(id),
	area_id       BIGINT REFERENCES treatment_areas(id)
);

CREATE INDEX IF NOT EXISTS idx_addresses_street_search ON addresses(street_search);

CREATE TABLE IF NOT EXISTS registered_activities (
	id         BIGSERIAL PRIMARY KEY,
	dom_code   TEXT NOT NULL,
	group_code INT NOT NULL,
	status     TEXT NOT NULL,
	geom       geometry(Point, 25831) NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_registered_activities_geom ON registered_activities USING GIST (geom);
CREATE INDEX IF NOT EXISTS idx_registered_activities_group ON registered_activities(group_code, status);

CREATE TABLE IF NOT EXISTS consultations (
	id                TEXT PRIMARY KEY,
	requester_dni     TEXT NOT NULL,
	requester_name    TEXT NOT NULL,
	requester_role    TEXT NOT NULL DEFAULT '',
	dom_code          TEXT NOT NULL,
	heading_id        BIGINT,
	other_activity    BOOLEAN NOT NULL DEFAULT false,
	other_description TEXT,
	condition_code    INT,
	condition_value   INT,
	verdict           TEXT NOT NULL,
	created_at        TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_consultations_created_at ON consultations(created_at DESC);
`

// Migrate creates the schema. The spatial registry table needs the PostGIS
// extension, created separately so deployments without it can still run in
// degraded mode with proximity disabled.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, `CREATE EXTENSION IF NOT EXISTS postgis`); err != nil {
		return eris.Wrap(err, "postgres: create postgis extension")
	}
	if _, err := s.pool.Exec(ctx, postgresMigration); err != nil {
		return eris.Wrap(err, "postgres: migrate")
	}
	return nil
}

const insertConsultationSQL = `
	INSERT INTO consultations
		(id, requester_dni, requester_name, requester_role, dom_code, heading_id,
		 other_activity, other_description, condition_code, condition_value, verdict, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
`

// InsertConsultation writes one record and returns its generated id.
func (s *PostgresStore) InsertConsultation(ctx context.Context, c model.Consultation) (string, error) {
	id := uuid.NewString()
	createdAt := c.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := s.pool.Exec(ctx, insertConsultationSQL,
		id, c.Requester.DNI, c.Requester.Name, c.Requester.Role,
		c.DomCode, c.HeadingID, c.OtherActivity, nilIfEmpty(c.OtherDescription),
		c.ConditionCode, c.ConditionValue, string(c.Verdict), createdAt,
	)
	if err != nil {
		return "", eris.Wrap(ErrWriteFailed, err.Error())
	}
	return id, nil
}

const getConsultationSQL = `
	SELECT c.id, c.requester_dni, c.requester_name, c.requester_role,
	       c.dom_code, c.heading_id, c.other_activity, c.other_description,
	       c.condition_code, c.condition_value, c.verdict, c.created_at,
	       COALESCE(a.street_name || ', ' || a.street_number, '')
	FROM consultations c
	LEFT JOIN addresses a ON a.dom_code = c.dom_code
	WHERE c.id = $1
`

// GetConsultation loads one record by id.
func (s *PostgresStore) GetConsultation(ctx context.Context, id string) (*model.Consultation, error) {
	var (
		c     model.Consultation
		other *string
	)
	err := s.pool.QueryRow(ctx, getConsultationSQL, id).Scan(
		&c.ID, &c.Requester.DNI, &c.Requester.Name, &c.Requester.Role,
		&c.DomCode, &c.HeadingID, &c.OtherActivity, &other,
		&c.ConditionCode, &c.ConditionValue, &c.Verdict, &c.CreatedAt,
		&c.StreetLine,
	)
	if err != nil {
		if eris.Is(err, pgx.ErrNoRows) {
			return nil, eris.Wrapf(ErrNotFound, "consultation %s", id)
		}
		return nil, eris.Wrap(err, "postgres: get consultation")
	}
	if other != nil {
		c.OtherDescription = *other
	}
	return &c, nil
}

const listConsultationsSQL = `
	SELECT c.id, c.requester_dni, c.requester_name, c.requester_role,
	       c.dom_code, c.heading_id, c.other_activity, c.other_description,
	       c.condition_code, c.condition_value, c.verdict, c.created_at,
	       COALESCE(a.street_name || ', ' || a.street_number, '')
	FROM consultations c
	LEFT JOIN addresses a ON a.dom_code = c.dom_code
	WHERE ($1 = '' OR c.dom_code = $1)
	  AND ($2 = '' OR c.verdict = $2)
	ORDER BY c.created_at DESC
	LIMIT $3 OFFSET $4
`

// ListConsultations returns records newest first.
func (s *PostgresStore) ListConsultations(ctx context.Context, f Filter) ([]model.Consultation, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.pool.Query(ctx, listConsultationsSQL, f.DomCode, f.Verdict, limit, f.Offset)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list consultations")
	}
	defer rows.Close()

	var out []model.Consultation
	for rows.Next() {
		var (
			c     model.Consultation
			other *string
		)
		if err := rows.Scan(
			&c.ID, &c.Requester.DNI, &c.Requester.Name, &c.Requester.Role,
			&c.DomCode, &c.HeadingID, &c.OtherActivity, &other,
			&c.ConditionCode, &c.ConditionValue, &c.Verdict, &c.CreatedAt,
			&c.StreetLine,
		); err != nil {
			return nil, eris.Wrap(err, "postgres: scan consultation")
		}
		if other != nil {
			c.OtherDescription = *other
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: iterate consultations")
	}
	return out, nil
}

// Close is a no-op; the shared pool is owned by the caller.
func (s *PostgresStore) Close() error { return nil }

func nilIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
