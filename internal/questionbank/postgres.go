package questionbank

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Schema is the SQL DDL for the question bank tables. Execute it via
// [PostgresStore.Migrate] or apply it manually during deployment.
const Schema = `
CREATE TABLE IF NOT EXISTS destinations (
    country_code VARCHAR(3) PRIMARY KEY,
    name         TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS visa_questions (
    id                  SERIAL PRIMARY KEY,
    destination_country VARCHAR(3) NOT NULL REFERENCES destinations(country_code),
    category            VARCHAR(50) NOT NULL,
    difficulty_level    INT NOT NULL CHECK (difficulty_level BETWEEN 1 AND 3),
    question_en         TEXT NOT NULL,
    hint_hi             TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS followups (
    id                 SERIAL PRIMARY KEY,
    parent_question_id INT NOT NULL REFERENCES visa_questions(id),
    question_en        TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS risk_factors (
    id                  SERIAL PRIMARY KEY,
    destination_country VARCHAR(3) NOT NULL REFERENCES destinations(country_code),
    origin_country      VARCHAR(100) NOT NULL,
    description         TEXT NOT NULL DEFAULT '',
    scrutiny_level      INT NOT NULL CHECK (scrutiny_level BETWEEN 1 AND 3)
);
CREATE INDEX IF NOT EXISTS idx_visa_questions_dest_cat ON visa_questions(destination_country, category);
CREATE INDEX IF NOT EXISTS idx_followups_parent ON followups(parent_question_id);
CREATE INDEX IF NOT EXISTS idx_risk_factors_dest ON risk_factors(destination_country);
`

// DB is the database interface used by [PostgresStore]. Both *pgxpool.Pool
// and *pgx.Conn satisfy this interface.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresStore is a [Store] backed by a PostgreSQL database.
type PostgresStore struct {
	db DB
}

// Compile-time interface check.
var _ Store = (*PostgresStore)(nil)

// NewPostgresStore creates a store over the given connection or pool. The
// caller is responsible for calling [PostgresStore.Migrate] before issuing
// queries against a fresh database.
func NewPostgresStore(db DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate executes the [Schema] DDL, creating the question bank tables and
// indexes if they do not already exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("questionbank: migrate: %w", err)
	}
	return nil
}

// Seed loads the built-in question bank into the database. Rows that already
// exist (by primary key) are left untouched.
func (s *PostgresStore) Seed(ctx context.Context) error {
	for _, d := range seedDestinations {
		_, err := s.db.Exec(ctx,
			`INSERT INTO destinations (country_code, name) VALUES ($1, $2)
			 ON CONFLICT (country_code) DO NOTHING`,
			d.CountryCode, d.Name)
		if err != nil {
			return fmt.Errorf("questionbank: seed destination %s: %w", d.CountryCode, err)
		}
	}
	for _, q := range seedQuestions {
		_, err := s.db.Exec(ctx,
			`INSERT INTO visa_questions (id, destination_country, category, difficulty_level, question_en, hint_hi)
			 VALUES ($1, $2, $3, $4, $5, $6) ON CONFLICT (id) DO NOTHING`,
			q.ID, q.Destination, q.Category, q.Difficulty, q.TextEN, q.HintHI)
		if err != nil && !isDuplicateKeyError(err) {
			return fmt.Errorf("questionbank: seed question %d: %w", q.ID, err)
		}
	}
	for _, f := range seedFollowups {
		_, err := s.db.Exec(ctx,
			`INSERT INTO followups (id, parent_question_id, question_en)
			 VALUES ($1, $2, $3) ON CONFLICT (id) DO NOTHING`,
			f.ID, f.ParentID, f.TextEN)
		if err != nil && !isDuplicateKeyError(err) {
			return fmt.Errorf("questionbank: seed followup %d: %w", f.ID, err)
		}
	}
	for _, r := range seedRiskFactors {
		_, err := s.db.Exec(ctx,
			`INSERT INTO risk_factors (id, destination_country, origin_country, description, scrutiny_level)
			 VALUES ($1, $2, $3, $4, $5) ON CONFLICT (id) DO NOTHING`,
			r.ID, r.Destination, r.Origin, r.Description, r.ScrutinyLevel)
		if err != nil && !isDuplicateKeyError(err) {
			return fmt.Errorf("questionbank: seed risk factor %d: %w", r.ID, err)
		}
	}
	return nil
}

// Questions returns the bank questions for a destination, optionally
// filtered, ordered by difficulty then ID.
func (s *PostgresStore) Questions(ctx context.Context, destination string, filter Filter) ([]Question, error) {
	if err := ValidateCountry(destination); err != nil {
		return nil, err
	}
	if err := ValidateFilter(filter); err != nil {
		return nil, err
	}

	query := `SELECT id, destination_country, category, difficulty_level, question_en, hint_hi
		FROM visa_questions WHERE destination_country = $1`
	args := []any{destination}
	if filter.Category != "" {
		args = append(args, filter.Category)
		query += fmt.Sprintf(" AND category = $%d", len(args))
	}
	if filter.Difficulty != 0 {
		args = append(args, filter.Difficulty)
		query += fmt.Sprintf(" AND difficulty_level = $%d", len(args))
	}
	query += " ORDER BY difficulty_level, id"

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("questionbank: query questions: %w", err)
	}
	defer rows.Close()

	var out []Question
	for rows.Next() {
		var q Question
		if err := rows.Scan(&q.ID, &q.Destination, &q.Category, &q.Difficulty, &q.TextEN, &q.HintHI); err != nil {
			return nil, fmt.Errorf("questionbank: scan question: %w", err)
		}
		out = append(out, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("questionbank: iterate questions: %w", err)
	}
	return out, nil
}

// QuestionByID returns a single question, or nil when it does not exist.
func (s *PostgresStore) QuestionByID(ctx context.Context, id int) (*Question, error) {
	var q Question
	err := s.db.QueryRow(ctx,
		`SELECT id, destination_country, category, difficulty_level, question_en, hint_hi
		 FROM visa_questions WHERE id = $1`, id,
	).Scan(&q.ID, &q.Destination, &q.Category, &q.Difficulty, &q.TextEN, &q.HintHI)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("questionbank: question %d: %w", id, err)
	}
	return &q, nil
}

// Followups returns the follow-up questions for a parent question.
func (s *PostgresStore) Followups(ctx context.Context, parentID int) ([]Followup, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, parent_question_id, question_en FROM followups
		 WHERE parent_question_id = $1 ORDER BY id`, parentID)
	if err != nil {
		return nil, fmt.Errorf("questionbank: query followups: %w", err)
	}
	defer rows.Close()

	var out []Followup
	for rows.Next() {
		var f Followup
		if err := rows.Scan(&f.ID, &f.ParentID, &f.TextEN); err != nil {
			return nil, fmt.Errorf("questionbank: scan followup: %w", err)
		}
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("questionbank: iterate followups: %w", err)
	}
	return out, nil
}

// RiskFactors returns the risk factors for a destination, optionally filtered
// by origin, ordered by scrutiny level descending.
func (s *PostgresStore) RiskFactors(ctx context.Context, destination, origin string) ([]RiskFactor, error) {
	if err := ValidateCountry(destination); err != nil {
		return nil, err
	}

	query := `SELECT id, destination_country, origin_country, description, scrutiny_level
		FROM risk_factors WHERE destination_country = $1`
	args := []any{destination}
	if origin != "" {
		args = append(args, origin)
		query += fmt.Sprintf(" AND origin_country = $%d", len(args))
	}
	query += " ORDER BY scrutiny_level DESC"

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("questionbank: query risk factors: %w", err)
	}
	defer rows.Close()

	var out []RiskFactor
	for rows.Next() {
		var r RiskFactor
		if err := rows.Scan(&r.ID, &r.Destination, &r.Origin, &r.Description, &r.ScrutinyLevel); err != nil {
			return nil, fmt.Errorf("questionbank: scan risk factor: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("questionbank: iterate risk factors: %w", err)
	}
	return out, nil
}

// Destinations returns the supported destinations, ordered by country code.
func (s *PostgresStore) Destinations(ctx context.Context) ([]Destination, error) {
	rows, err := s.db.Query(ctx, `SELECT country_code, name FROM destinations ORDER BY country_code`)
	if err != nil {
		return nil, fmt.Errorf("questionbank: query destinations: %w", err)
	}
	defer rows.Close()

	var out []Destination
	for rows.Next() {
		var d Destination
		if err := rows.Scan(&d.CountryCode, &d.Name); err != nil {
			return nil, fmt.Errorf("questionbank: scan destination: %w", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("questionbank: iterate destinations: %w", err)
	}
	return out, nil
}

// isDuplicateKeyError reports whether err is a PostgreSQL unique-violation
// (SQLSTATE 23505).
func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
