package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
)

// Querier is an interface for executing SQL statements, allowing for testing
// and instrumentation
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// Dialect is the placeholder style of a driver
type Dialect int

const (
	// Question uses ? placeholders (sqlite3)
	Question Dialect = iota
	// Dollar uses $1, $2, ... placeholders (postgres, pgx)
	Dollar
)

// DialectFor returns the dialect of a database/sql driver name
func DialectFor(driver string) (Dialect, error) {
	switch driver {
	case "sqlite3":
		return Question, nil
	case "postgres", "pgx":
		return Dollar, nil
	default:
		return Question, fmt.Errorf("unsupported database driver: %s", driver)
	}
}

// Rebind rewrites ? placeholders for the dialect
func (d Dialect) Rebind(query string) string {
	if d != Dollar {
		return query
	}
	var b strings.Builder
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		uid TEXT PRIMARY KEY,
		first_name TEXT NOT NULL,
		last_name TEXT NOT NULL,
		email TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS actors (
		uid TEXT PRIMARY KEY,
		first_name TEXT NOT NULL,
		last_name TEXT NOT NULL,
		email TEXT NOT NULL,
		favorite_movie_id TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS movies (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		release_year INTEGER NOT NULL,
		owner_uid TEXT,
		actor_or_user_type TEXT,
		actor_or_user_id TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS movie_actors (
		movie_id TEXT NOT NULL,
		actor_uid TEXT NOT NULL,
		position INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS movie_polymorphics (
		movie_id TEXT NOT NULL,
		record_type TEXT NOT NULL,
		record_id TEXT NOT NULL,
		position INTEGER NOT NULL
	)`,
}

// tables in deletion order
var tables = []string{"movie_polymorphics", "movie_actors", "movies", "actors", "users"}

// SQLStore persists catalog snapshots in a relational database
type SQLStore struct {
	db      *sql.DB
	dialect Dialect
}

// NewSQLStore wraps db opened with the named driver
func NewSQLStore(db *sql.DB, driver string) (*SQLStore, error) {
	dialect, err := DialectFor(driver)
	if err != nil {
		return nil, err
	}
	return &SQLStore{db: db, dialect: dialect}, nil
}

// Migrate creates the catalog tables when they do not exist
func (s *SQLStore) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to migrate catalog schema: %w", err)
		}
	}
	return nil
}

// Save replaces the stored catalog with snap in one transaction
func (s *SQLStore) Save(ctx context.Context, snap Snapshot) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = s.save(ctx, tx, snap); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit catalog: %w", err)
	}
	return nil
}

func (s *SQLStore) save(ctx context.Context, q Querier, snap Snapshot) error {
	exec := func(query string, args ...interface{}) error {
		if _, err := q.ExecContext(ctx, s.dialect.Rebind(query), args...); err != nil {
			return fmt.Errorf("failed to save catalog: %w", err)
		}
		return nil
	}

	for _, table := range tables {
		if err := exec("DELETE FROM " + table); err != nil {
			return err
		}
	}

	for _, u := range snap.Users {
		if err := exec("INSERT INTO users (uid, first_name, last_name, email) VALUES (?, ?, ?, ?)",
			u.UID, u.FirstName, u.LastName, u.Email); err != nil {
			return err
		}
	}

	for _, a := range snap.Actors {
		if err := exec("INSERT INTO actors (uid, first_name, last_name, email, favorite_movie_id) VALUES (?, ?, ?, ?, ?)",
			a.UID, a.FirstName, a.LastName, a.Email, nullable(a.FavoriteMovie)); err != nil {
			return err
		}
	}

	for _, m := range snap.Movies {
		var refType, refID sql.NullString
		if m.ActorOrUser != nil {
			refType = nullable(m.ActorOrUser.Type)
			refID = nullable(m.ActorOrUser.ID)
		}
		if err := exec("INSERT INTO movies (id, name, release_year, owner_uid, actor_or_user_type, actor_or_user_id) VALUES (?, ?, ?, ?, ?, ?)",
			m.ID, m.Name, m.ReleaseYear, nullable(m.Owner), refType, refID); err != nil {
			return err
		}

		for i, uid := range m.Actors {
			if err := exec("INSERT INTO movie_actors (movie_id, actor_uid, position) VALUES (?, ?, ?)", m.ID, uid, i); err != nil {
				return err
			}
		}
		for i, ref := range m.Polymorphics {
			if err := exec("INSERT INTO movie_polymorphics (movie_id, record_type, record_id, position) VALUES (?, ?, ?, ?)",
				m.ID, ref.Type, ref.ID, i); err != nil {
				return err
			}
		}
	}
	return nil
}

// Snapshot reads the stored catalog
func (s *SQLStore) Snapshot(ctx context.Context) (Snapshot, error) {
	return readSnapshot(ctx, s.db)
}

// LoadSQL reads and links the stored catalog
func LoadSQL(ctx context.Context, s *SQLStore) (*Store, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return snap.Build()
}

func readSnapshot(ctx context.Context, q Querier) (Snapshot, error) {
	var snap Snapshot

	err := scanRows(ctx, q, "SELECT uid, first_name, last_name, email FROM users ORDER BY uid", func(rows *sql.Rows) error {
		var u UserRow
		if err := rows.Scan(&u.UID, &u.FirstName, &u.LastName, &u.Email); err != nil {
			return err
		}
		snap.Users = append(snap.Users, u)
		return nil
	})
	if err != nil {
		return Snapshot{}, err
	}

	err = scanRows(ctx, q, "SELECT uid, first_name, last_name, email, favorite_movie_id FROM actors ORDER BY uid", func(rows *sql.Rows) error {
		var a ActorRow
		var favorite sql.NullString
		if err := rows.Scan(&a.UID, &a.FirstName, &a.LastName, &a.Email, &favorite); err != nil {
			return err
		}
		a.FavoriteMovie = favorite.String
		snap.Actors = append(snap.Actors, a)
		return nil
	})
	if err != nil {
		return Snapshot{}, err
	}

	index := make(map[string]int)
	err = scanRows(ctx, q, "SELECT id, name, release_year, owner_uid, actor_or_user_type, actor_or_user_id FROM movies ORDER BY id", func(rows *sql.Rows) error {
		var m MovieRow
		var owner, refType, refID sql.NullString
		if err := rows.Scan(&m.ID, &m.Name, &m.ReleaseYear, &owner, &refType, &refID); err != nil {
			return err
		}
		m.Owner = owner.String
		if refType.Valid && refID.Valid {
			m.ActorOrUser = &Ref{Type: refType.String, ID: refID.String}
		}
		index[m.ID] = len(snap.Movies)
		snap.Movies = append(snap.Movies, m)
		return nil
	})
	if err != nil {
		return Snapshot{}, err
	}

	err = scanRows(ctx, q, "SELECT movie_id, actor_uid FROM movie_actors ORDER BY movie_id, position", func(rows *sql.Rows) error {
		var movieID, uid string
		if err := rows.Scan(&movieID, &uid); err != nil {
			return err
		}
		i, ok := index[movieID]
		if !ok {
			return fmt.Errorf("%w: movie %s", ErrUnknownReference, movieID)
		}
		snap.Movies[i].Actors = append(snap.Movies[i].Actors, uid)
		return nil
	})
	if err != nil {
		return Snapshot{}, err
	}

	err = scanRows(ctx, q, "SELECT movie_id, record_type, record_id FROM movie_polymorphics ORDER BY movie_id, position", func(rows *sql.Rows) error {
		var movieID string
		var ref Ref
		if err := rows.Scan(&movieID, &ref.Type, &ref.ID); err != nil {
			return err
		}
		i, ok := index[movieID]
		if !ok {
			return fmt.Errorf("%w: movie %s", ErrUnknownReference, movieID)
		}
		snap.Movies[i].Polymorphics = append(snap.Movies[i].Polymorphics, ref)
		return nil
	})
	if err != nil {
		return Snapshot{}, err
	}

	return snap, nil
}

func scanRows(ctx context.Context, q Querier, query string, scan func(*sql.Rows) error) error {
	rows, err := q.QueryContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to load catalog: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		if err := scan(rows); err != nil {
			return fmt.Errorf("failed to load catalog: %w", err)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to load catalog: %w", err)
	}
	return nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
