package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"

	_ "github.com/mattn/go-sqlite3" // database/sql driver

	"github.com/okian/chartmeta/internal/domain/types"
)

const createResults = `
create table if not exists results
  (
	  id integer not null primary key,
	  run_id text not null,
	  name text not null,
	  diff text not null,
	  level integer not null,
	  fever_mode integer not null,
	  fever real not null,
	  base real not null,
	  skill1 real not null,
	  skill2 real not null,
	  skill3 real not null,
	  skill4 real not null,
	  skill5 real not null,
	  skill6 real not null,
	  skills real not null
  );
create index if not exists results_name_diff on results(name, diff);
`

const insertResult = `insert into results
  (run_id, name, diff, level, fever_mode, fever, base, skill1, skill2, skill3, skill4, skill5, skill6, skills)
  values (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

// SQLiteStore keeps rows in a SQLite database.
type SQLiteStore struct {
	mu    sync.Mutex
	db    *sql.DB
	runID string
}

// NewSQLiteStore opens path (":memory:" is accepted) and creates the
// results table when missing.
func NewSQLiteStore(ctx context.Context, path string, opts ...SQLiteOption) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	// a single connection keeps ":memory:" databases shared
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, createResults); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init %s: %w", path, err)
	}

	s := &SQLiteStore{db: db}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *SQLiteStore) Name() string { return "sqlite" }

// RunID returns the tag written with each row.
func (s *SQLiteStore) RunID() string { return s.runID }

func (s *SQLiteStore) Append(ctx context.Context, rows ...types.Row) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return ErrClosed
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, insertResult)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for _, r := range rows {
		m := r.Meta
		_, err := stmt.ExecContext(ctx, s.runID, r.Name, r.Diff, r.Level, r.FeverMode,
			m.Fever, m.Base, m.Skill[0], m.Skill[1], m.Skill[2], m.Skill[3], m.Skill[4], m.Skill[5], m.Skills)
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert %s/%s: %w", r.Name, r.Diff, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (s *SQLiteStore) List(ctx context.Context, f Filter) ([]types.Row, error) {
	if err := f.validate(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil, ErrClosed
	}

	var (
		where []string
		args  []any
	)
	if f.Song != "" {
		where = append(where, "name = ?")
		args = append(args, f.Song)
	}
	if f.Diff != "" {
		where = append(where, "diff = ?")
		args = append(args, f.Diff)
	}
	q := "select name, diff, level, fever_mode, fever, base, skill1, skill2, skill3, skill4, skill5, skill6, skills from results"
	if len(where) > 0 {
		q += " where " + strings.Join(where, " and ")
	}
	q += " order by id"
	if f.Limit > 0 {
		q += " limit ?"
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query results: %w", err)
	}
	defer rows.Close()

	var out []types.Row
	for rows.Next() {
		var r types.Row
		m := &r.Meta
		if err := rows.Scan(&r.Name, &r.Diff, &r.Level, &r.FeverMode, &m.Fever, &m.Base,
			&m.Skill[0], &m.Skill[1], &m.Skill[2], &m.Skill[3], &m.Skill[4], &m.Skill[5], &m.Skills); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Count(ctx context.Context) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return 0
	}
	var n int
	if err := s.db.QueryRowContext(ctx, "select count(*) from results").Scan(&n); err != nil {
		return 0
	}
	return n
}

func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}
