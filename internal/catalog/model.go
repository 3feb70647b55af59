// Package catalog is a small movie database whose records are projected by
// the serializer package: movies, the actors who play in them and the users
// who own them.
package catalog

import (
	"github.com/conduit-lang/projector/internal/record"
)

// User owns and creates movies
type User struct {
	UID       string
	FirstName string
	LastName  string
	Email     string
}

// Type returns "User"
func (u *User) Type() string { return "User" }

// Access dispatches a named accessor
func (u *User) Access(name string) (any, error) {
	switch name {
	case "uid", "id":
		return u.UID, nil
	case "first_name":
		return u.FirstName, nil
	case "last_name":
		return u.LastName, nil
	case "email":
		return u.Email, nil
	case "url":
		return "/users/" + u.UID, nil
	}
	return nil, record.MissingAccessor(u.Type(), name)
}

// Actor plays in movies
type Actor struct {
	UID           string
	FirstName     string
	LastName      string
	Email         string
	Movies        []*Movie
	FavoriteMovie *Movie
}

// Type returns "Actor"
func (a *Actor) Type() string { return "Actor" }

// Access dispatches a named accessor
func (a *Actor) Access(name string) (any, error) {
	switch name {
	case "uid", "id":
		return a.UID, nil
	case "first_name":
		return a.FirstName, nil
	case "last_name":
		return a.LastName, nil
	case "email":
		return a.Email, nil
	case "url":
		return "/actors/" + a.UID, nil
	case "played_movies":
		return a.Movies, nil
	case "played_movie_ids":
		return movieIDs(a.Movies), nil
	case "favorite_movie":
		return a.FavoriteMovie, nil
	case "favorite_movie_id":
		if a.FavoriteMovie == nil {
			return nil, nil
		}
		return a.FavoriteMovie.ID, nil
	}
	return nil, record.MissingAccessor(a.Type(), name)
}

// Movie is the root record of the catalog
type Movie struct {
	ID          string
	Name        string
	ReleaseYear int
	Owner       *User
	Actors      []*Actor
	// ActorOrUser is either an *Actor or a *User
	ActorOrUser record.Record
	// Polymorphics mixes actors and users
	Polymorphics []record.Record
}

// Type returns "Movie"
func (m *Movie) Type() string { return "Movie" }

// Access dispatches a named accessor
func (m *Movie) Access(name string) (any, error) {
	switch name {
	case "id":
		return m.ID, nil
	case "name":
		return m.Name, nil
	case "release_year":
		return m.ReleaseYear, nil
	case "url":
		return "/movies/" + m.ID, nil
	case "owner":
		return m.Owner, nil
	case "owner_id":
		if m.Owner == nil {
			return nil, nil
		}
		return m.Owner.UID, nil
	case "actors":
		return m.Actors, nil
	case "actor_ids":
		ids := make([]string, 0, len(m.Actors))
		for _, a := range m.Actors {
			ids = append(ids, a.UID)
		}
		return ids, nil
	case "actor_or_user":
		return m.ActorOrUser, nil
	case "polymorphics":
		return m.Polymorphics, nil
	}
	return nil, record.MissingAccessor(m.Type(), name)
}

func movieIDs(movies []*Movie) []string {
	ids := make([]string, 0, len(movies))
	for _, m := range movies {
		ids = append(ids, m.ID)
	}
	return ids
}
