package catalog

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/conduit-lang/projector/internal/record"
)

var (
	// ErrNotFound is returned when a record does not exist in the store
	ErrNotFound = errors.New("record not found")

	// ErrUnknownReference is returned when a snapshot refers to a missing record
	ErrUnknownReference = errors.New("unknown reference")
)

// Store is an in-memory, fully linked catalog graph. It is read-only once
// built.
type Store struct {
	mu     sync.RWMutex
	movies map[string]*Movie
	actors map[string]*Actor
	users  map[string]*User
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		movies: make(map[string]*Movie),
		actors: make(map[string]*Actor),
		users:  make(map[string]*User),
	}
}

// Movie returns the movie with the given id
func (s *Store) Movie(id string) (*Movie, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.movies[id]
	if !ok {
		return nil, fmt.Errorf("%w: movie %s", ErrNotFound, id)
	}
	return m, nil
}

// Actor returns the actor with the given uid
func (s *Store) Actor(uid string) (*Actor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.actors[uid]
	if !ok {
		return nil, fmt.Errorf("%w: actor %s", ErrNotFound, uid)
	}
	return a, nil
}

// User returns the user with the given uid
func (s *Store) User(uid string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[uid]
	if !ok {
		return nil, fmt.Errorf("%w: user %s", ErrNotFound, uid)
	}
	return u, nil
}

// Movies returns every movie ordered by id
func (s *Store) Movies() []*Movie {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Movie, 0, len(s.movies))
	for _, m := range s.movies {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Find returns the record of a record type ("movie", "actor" or "user")
func (s *Store) Find(recordType, id string) (record.Record, error) {
	switch recordType {
	case "movie":
		return s.Movie(id)
	case "actor":
		return s.Actor(id)
	case "user":
		return s.User(id)
	}
	return nil, fmt.Errorf("%w: unknown record type %q", ErrNotFound, recordType)
}

// IDs returns the sorted ids of a record type
func (s *Store) IDs(recordType string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	switch recordType {
	case "movie":
		return sortedKeys(s.movies)
	case "actor":
		return sortedKeys(s.actors)
	case "user":
		return sortedKeys(s.users)
	}
	return nil
}

// Counts returns the number of movies, actors and users
func (s *Store) Counts() (movies, actors, users int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.movies), len(s.actors), len(s.users)
}

// Ref points at an actor or a user
type Ref struct {
	Type string `yaml:"type"`
	ID   string `yaml:"id"`
}

// UserRow is the flat form of a user
type UserRow struct {
	UID       string `yaml:"uid"`
	FirstName string `yaml:"first_name"`
	LastName  string `yaml:"last_name"`
	Email     string `yaml:"email"`
}

// ActorRow is the flat form of an actor
type ActorRow struct {
	UID           string `yaml:"uid"`
	FirstName     string `yaml:"first_name"`
	LastName      string `yaml:"last_name"`
	Email         string `yaml:"email"`
	FavoriteMovie string `yaml:"favorite_movie,omitempty"`
}

// MovieRow is the flat form of a movie. Actor lists refer to actor uids.
type MovieRow struct {
	ID           string   `yaml:"id"`
	Name         string   `yaml:"name"`
	ReleaseYear  int      `yaml:"release_year"`
	Owner        string   `yaml:"owner,omitempty"`
	Actors       []string `yaml:"actors,omitempty"`
	ActorOrUser  *Ref     `yaml:"actor_or_user,omitempty"`
	Polymorphics []Ref    `yaml:"polymorphics,omitempty"`
}

// Snapshot is the flat, reference-by-id form of a catalog. It is what seed
// files and database tables hold.
type Snapshot struct {
	Users  []UserRow  `yaml:"users"`
	Actors []ActorRow `yaml:"actors"`
	Movies []MovieRow `yaml:"movies"`
}

// Build links a snapshot into a store. An actor's played movies are the
// movies listing the actor, in movie order.
func (snap Snapshot) Build() (*Store, error) {
	s := NewStore()

	for _, row := range snap.Users {
		s.users[row.UID] = &User{UID: row.UID, FirstName: row.FirstName, LastName: row.LastName, Email: row.Email}
	}
	for _, row := range snap.Actors {
		s.actors[row.UID] = &Actor{UID: row.UID, FirstName: row.FirstName, LastName: row.LastName, Email: row.Email}
	}
	for _, row := range snap.Movies {
		s.movies[row.ID] = &Movie{ID: row.ID, Name: row.Name, ReleaseYear: row.ReleaseYear}
	}

	for _, row := range snap.Movies {
		m := s.movies[row.ID]

		var err error
		if m.Owner, err = s.userRef(row.Owner); err != nil {
			return nil, fmt.Errorf("movie %s owner: %w", row.ID, err)
		}

		for _, uid := range row.Actors {
			a, ok := s.actors[uid]
			if !ok {
				return nil, fmt.Errorf("movie %s actors: %w: actor %s", row.ID, ErrUnknownReference, uid)
			}
			m.Actors = append(m.Actors, a)
			a.Movies = append(a.Movies, m)
		}

		if row.ActorOrUser != nil {
			if m.ActorOrUser, err = s.resolve(*row.ActorOrUser); err != nil {
				return nil, fmt.Errorf("movie %s actor_or_user: %w", row.ID, err)
			}
		}
		for _, ref := range row.Polymorphics {
			rec, err := s.resolve(ref)
			if err != nil {
				return nil, fmt.Errorf("movie %s polymorphics: %w", row.ID, err)
			}
			m.Polymorphics = append(m.Polymorphics, rec)
		}
	}

	for _, row := range snap.Actors {
		if row.FavoriteMovie == "" {
			continue
		}
		m, ok := s.movies[row.FavoriteMovie]
		if !ok {
			return nil, fmt.Errorf("actor %s favorite_movie: %w: movie %s", row.UID, ErrUnknownReference, row.FavoriteMovie)
		}
		s.actors[row.UID].FavoriteMovie = m
	}

	return s, nil
}

func (s *Store) userRef(uid string) (*User, error) {
	if uid == "" {
		return nil, nil
	}
	u, ok := s.users[uid]
	if !ok {
		return nil, fmt.Errorf("%w: user %s", ErrUnknownReference, uid)
	}
	return u, nil
}

func (s *Store) resolve(ref Ref) (record.Record, error) {
	switch ref.Type {
	case "actor":
		if a, ok := s.actors[ref.ID]; ok {
			return a, nil
		}
	case "user":
		if u, ok := s.users[ref.ID]; ok {
			return u, nil
		}
	default:
		return nil, fmt.Errorf("%w: type %q", ErrUnknownReference, ref.Type)
	}
	return nil, fmt.Errorf("%w: %s %s", ErrUnknownReference, ref.Type, ref.ID)
}

// Snapshot flattens the store, ordered by id
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var snap Snapshot
	for _, uid := range sortedKeys(s.users) {
		u := s.users[uid]
		snap.Users = append(snap.Users, UserRow{UID: u.UID, FirstName: u.FirstName, LastName: u.LastName, Email: u.Email})
	}
	for _, uid := range sortedKeys(s.actors) {
		a := s.actors[uid]
		row := ActorRow{UID: a.UID, FirstName: a.FirstName, LastName: a.LastName, Email: a.Email}
		if a.FavoriteMovie != nil {
			row.FavoriteMovie = a.FavoriteMovie.ID
		}
		snap.Actors = append(snap.Actors, row)
	}
	for _, id := range sortedKeys(s.movies) {
		m := s.movies[id]
		row := MovieRow{ID: m.ID, Name: m.Name, ReleaseYear: m.ReleaseYear}
		if m.Owner != nil {
			row.Owner = m.Owner.UID
		}
		for _, a := range m.Actors {
			row.Actors = append(row.Actors, a.UID)
		}
		if m.ActorOrUser != nil {
			ref := refOf(m.ActorOrUser)
			row.ActorOrUser = &ref
		}
		for _, rec := range m.Polymorphics {
			row.Polymorphics = append(row.Polymorphics, refOf(rec))
		}
		snap.Movies = append(snap.Movies, row)
	}
	return snap
}

func refOf(rec record.Record) Ref {
	switch v := rec.(type) {
	case *Actor:
		return Ref{Type: "actor", ID: v.UID}
	case *User:
		return Ref{Type: "user", ID: v.UID}
	}
	return Ref{}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
