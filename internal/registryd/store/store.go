// Package store persists registry person records in SQLite. The database
// is a single local file so the development server needs no external
// services.
package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite" // pure go sqlite driver

	"github.com/harunwdi/hrds/internal/domain"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const peopleTable = "people"

var peopleColumns = []string{
	"id", "full_name", "population_id", "family_id", "gender",
	"date_of_birth", "place_of_birth", "religion", "blood_type",
}

// Store provides person persistence backed by SQLite.
type Store struct {
	db *sql.DB
	sb squirrel.StatementBuilderType
}

// Open opens (or creates) the database at path and applies pending
// migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// modernc sqlite serializes writes itself; a single connection avoids
	// SQLITE_BUSY under concurrent handlers.
	db.SetMaxOpenConns(1)

	fsys, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("sub fs: %w", err)
	}
	provider, err := goose.NewProvider(goose.DialectSQLite3, db, fsys)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("goose new provider: %w", err)
	}
	if _, err := provider.Up(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("goose up: %w", err)
	}

	return &Store{
		db: db,
		sb: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question),
	}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks database liveness for the health endpoint.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// List returns all person records ordered by insertion (rowid).
func (s *Store) List(ctx context.Context) ([]domain.PersonRecord, error) {
	query, args, err := s.sb.
		Select(peopleColumns...).
		From(peopleTable).
		OrderBy("rowid ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list people: %w", err)
	}
	defer rows.Close()

	var records []domain.PersonRecord
	for rows.Next() {
		p, err := scanPerson(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate people: %w", err)
	}
	return records, nil
}

// Get returns the person record with the given id.
func (s *Store) Get(ctx context.Context, id string) (domain.PersonRecord, error) {
	query, args, err := s.sb.
		Select(peopleColumns...).
		From(peopleTable).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return domain.PersonRecord{}, fmt.Errorf("build query: %w", err)
	}

	p, err := scanPerson(s.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		return domain.PersonRecord{}, mapError(err, id)
	}
	return p, nil
}

// Insert stores a new person record under a fresh server-assigned id and
// returns the stored record.
func (s *Store) Insert(ctx context.Context, p domain.PersonRecord) (domain.PersonRecord, error) {
	p.ID = uuid.New().String()

	query, args, err := s.sb.
		Insert(peopleTable).
		Columns(peopleColumns...).
		Values(p.ID, p.FullName, p.PopulationID, p.FamilyID, p.Gender.String(),
			p.DateOfBirth, p.PlaceOfBirth, p.Religion, p.BloodType.String()).
		ToSql()
	if err != nil {
		return domain.PersonRecord{}, fmt.Errorf("build insert: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return domain.PersonRecord{}, mapError(err, p.ID)
	}
	return p, nil
}

// Update replaces the record with the given id and returns the stored
// result.
func (s *Store) Update(ctx context.Context, id string, p domain.PersonRecord) (domain.PersonRecord, error) {
	query, args, err := s.sb.
		Update(peopleTable).
		Set("full_name", p.FullName).
		Set("population_id", p.PopulationID).
		Set("family_id", p.FamilyID).
		Set("gender", p.Gender.String()).
		Set("date_of_birth", p.DateOfBirth).
		Set("place_of_birth", p.PlaceOfBirth).
		Set("religion", p.Religion).
		Set("blood_type", p.BloodType.String()).
		Set("updated_at", squirrel.Expr("datetime('now')")).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return domain.PersonRecord{}, fmt.Errorf("build update: %w", err)
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return domain.PersonRecord{}, mapError(err, id)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return domain.PersonRecord{}, fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return domain.PersonRecord{}, fmt.Errorf("person %s: %w", id, domain.ErrNotFound)
	}

	p.ID = id
	return p, nil
}

// Delete removes the record with the given id.
func (s *Store) Delete(ctx context.Context, id string) error {
	query, args, err := s.sb.
		Delete(peopleTable).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return mapError(err, id)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("person %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// HasPopulationID reports whether a record other than exceptID already
// holds populationID.
func (s *Store) HasPopulationID(ctx context.Context, populationID, exceptID string) (bool, error) {
	query, args, err := s.sb.
		Select("COUNT(*)").
		From(peopleTable).
		Where(squirrel.Eq{"population_id": populationID}).
		Where(squirrel.NotEq{"id": exceptID}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build query: %w", err)
	}

	var count int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return false, fmt.Errorf("count population id: %w", err)
	}
	return count > 0, nil
}

// Seed inserts the given records with their existing ids if the table is
// empty. Used to give a fresh database something to serve.
func (s *Store) Seed(ctx context.Context, records []domain.PersonRecord) error {
	query, args, err := s.sb.Select("COUNT(*)").From(peopleTable).ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}
	var count int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return fmt.Errorf("count people: %w", err)
	}
	if count > 0 {
		return nil
	}

	for _, p := range records {
		query, args, err := s.sb.
			Insert(peopleTable).
			Columns(peopleColumns...).
			Values(p.ID, p.FullName, p.PopulationID, p.FamilyID, p.Gender.String(),
				p.DateOfBirth, p.PlaceOfBirth, p.Religion, p.BloodType.String()).
			ToSql()
		if err != nil {
			return fmt.Errorf("build seed insert: %w", err)
		}
		if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("seed person %s: %w", p.ID, err)
		}
	}
	return nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanPerson(row rowScanner) (domain.PersonRecord, error) {
	var p domain.PersonRecord
	var gender, blood string
	err := row.Scan(&p.ID, &p.FullName, &p.PopulationID, &p.FamilyID, &gender,
		&p.DateOfBirth, &p.PlaceOfBirth, &p.Religion, &blood)
	if err != nil {
		return domain.PersonRecord{}, err
	}
	p.Gender = domain.Gender(gender)
	p.BloodType = domain.BloodType(blood)
	return p, nil
}

// mapError translates sqlite errors into the domain taxonomy. The modernc
// driver exposes constraint failures only through the error text.
func mapError(err error, id string) error {
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("person %s: %w", id, domain.ErrNotFound)
	case strings.Contains(err.Error(), "UNIQUE constraint failed"):
		return fmt.Errorf("person %s: %w", id, domain.ErrConflict)
	default:
		return fmt.Errorf("person %s: %w", id, err)
	}
}
