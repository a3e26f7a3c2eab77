package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sqlite3 "github.com/mattn/go-sqlite3"
	"github.com/tbxark/intakebot/worker"
)

// Store keeps worker records in a sqlite "workers" table. availability is an integer
// flag and createdAt an RFC 3339 string.
type Store struct {
	db *sql.DB
}

var _ worker.Store = (*Store)(nil)

// Open opens the database at path and creates the table when missing.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %s: %w", path, err)
	}
	// sqlite allows one writer at a time.
	db.SetMaxOpenConns(1)
	s := NewStore(db)
	if err := s.Init(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Init(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("sqlite: ping: %w", err)
	}
	const sqlstr = `CREATE TABLE IF NOT EXISTS workers (
  id TEXT PRIMARY KEY,
  fullName TEXT NOT NULL,
  category TEXT NOT NULL,
  location TEXT NOT NULL,
  phoneNumber TEXT NOT NULL,
  experience INTEGER NOT NULL,
  rating REAL NOT NULL DEFAULT 0,
  reviewCount INTEGER NOT NULL DEFAULT 0,
  availability INTEGER NOT NULL DEFAULT 1,
  createdAt TEXT NOT NULL
);`
	if _, err := s.db.ExecContext(ctx, sqlstr); err != nil {
		return fmt.Errorf("sqlite: create table: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Create(ctx context.Context, r worker.Record) error {
	if err := worker.Validate(r); err != nil {
		return err
	}
	const sqlstr = `INSERT INTO workers (` +
		`id, fullName, category, location, phoneNumber, experience, rating, reviewCount, availability, createdAt` +
		`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, sqlstr, r.ID, r.FullName, string(r.Category), r.Location, r.PhoneNumber,
		r.Experience, r.Rating, r.ReviewCount, boolToInt(r.Availability), r.CreatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey {
			return fmt.Errorf("%w: %s", worker.ErrDuplicateID, r.ID)
		}
		return fmt.Errorf("sqlite: insert %s: %w", r.ID, err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, id string) (worker.Record, bool, error) {
	const sqlstr = `SELECT ` + columns + ` FROM workers WHERE id = ?`
	r, err := scanRecord(s.db.QueryRowContext(ctx, sqlstr, id))
	if errors.Is(err, sql.ErrNoRows) {
		return worker.Record{}, false, nil
	}
	if err != nil {
		return worker.Record{}, false, fmt.Errorf("sqlite: get %s: %w", id, err)
	}
	return r, true, nil
}

func (s *Store) Update(ctx context.Context, r worker.Record) error {
	if err := worker.Validate(r); err != nil {
		return err
	}
	const sqlstr = `UPDATE workers SET ` +
		`fullName = ?, category = ?, location = ?, phoneNumber = ?, experience = ?, ` +
		`rating = ?, reviewCount = ?, availability = ? WHERE id = ?`
	res, err := s.db.ExecContext(ctx, sqlstr, r.FullName, string(r.Category), r.Location, r.PhoneNumber,
		r.Experience, r.Rating, r.ReviewCount, boolToInt(r.Availability), r.ID)
	if err != nil {
		return fmt.Errorf("sqlite: update %s: %w", r.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: update %s: %w", r.ID, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", worker.ErrNotFound, r.ID)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM workers WHERE id = ?`, id); err != nil {
		return fmt.Errorf("sqlite: delete %s: %w", id, err)
	}
	return nil
}

func (s *Store) List(ctx context.Context, category worker.Category) ([]worker.Record, error) {
	sqlstr := `SELECT ` + columns + ` FROM workers`
	var args []any
	if category != "" {
		sqlstr += ` WHERE category = ?`
		args = append(args, string(category))
	}
	sqlstr += ` ORDER BY rowid`

	rows, err := s.db.QueryContext(ctx, sqlstr, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list: %w", err)
	}
	defer rows.Close()

	out := []worker.Record{}
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: list: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

const columns = `id, fullName, category, location, phoneNumber, experience, rating, reviewCount, availability, createdAt`

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (worker.Record, error) {
	var (
		r            worker.Record
		category     string
		availability int
		createdAt    string
	)
	err := row.Scan(&r.ID, &r.FullName, &category, &r.Location, &r.PhoneNumber,
		&r.Experience, &r.Rating, &r.ReviewCount, &availability, &createdAt)
	if err != nil {
		return worker.Record{}, err
	}
	r.Category = worker.Category(category)
	r.Availability = availability != 0
	r.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return worker.Record{}, fmt.Errorf("parse createdAt %q: %w", createdAt, err)
	}
	return r, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
