package server

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/conduit-lang/projector/internal/catalog"
	"github.com/conduit-lang/projector/internal/fields"
	"github.com/conduit-lang/projector/internal/record"
	"github.com/conduit-lang/projector/internal/serializer"
	"github.com/conduit-lang/projector/internal/web/middleware"
	"github.com/conduit-lang/projector/internal/web/query"
	"github.com/conduit-lang/projector/internal/web/response"
)

// Handlers serves catalog records as projected documents
type Handlers struct {
	store       *catalog.Store
	serializers *catalog.Serializers
	defaults    serializer.Options
	logger      *zap.Logger
}

// NewHandlers creates handlers rendering with defaults as the base options
// of every request
func NewHandlers(store *catalog.Store, serializers *catalog.Serializers, defaults serializer.Options, logger *zap.Logger) *Handlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{
		store:       store,
		serializers: serializers,
		defaults:    defaults,
		logger:      logger,
	}
}

// Router mounts the catalog routes under prefix ("" or "/api")
func (h *Handlers) Router(prefix string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.NewChain(
		middleware.RequestID(),
		middleware.Logging(h.logger, "/health"),
		middleware.Recovery(h.logger),
	).Middlewares()...)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		response.RenderNotFound(w, "")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		response.RenderMethodNotAllowed(w)
	})

	r.Get("/health", h.Health)

	routes := func(r chi.Router) {
		r.Get("/movies", h.ListMovies)
		r.Get("/movies/{id}", h.ShowMovie)
		r.Get("/actors/{id}", h.ShowActor)
		r.Get("/users/{id}", h.ShowUser)
	}
	if prefix == "" {
		routes(r)
	} else {
		r.Route(prefix, routes)
	}
	return r
}

// Health reports the number of loaded records
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	movies, actors, users := h.store.Counts()
	_ = response.RenderDocument(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"movies": movies,
		"actors": actors,
		"users":  users,
	})
}

// ListMovies renders every movie
func (h *Handlers) ListMovies(w http.ResponseWriter, r *http.Request) {
	opts, ok := h.options(w, r)
	if !ok {
		return
	}

	movies := h.store.Movies()
	recs := make([]record.Record, len(movies))
	for i, m := range movies {
		recs[i] = m
	}

	docs, err := h.serializers.Movie.SerializeMany(r.Context(), recs, opts)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.render(w, r, docs)
}

// ShowMovie renders one movie
func (h *Handlers) ShowMovie(w http.ResponseWriter, r *http.Request) {
	h.show(w, r, h.serializers.Movie, func(id string) (record.Record, error) {
		return h.store.Movie(id)
	})
}

// ShowActor renders one actor
func (h *Handlers) ShowActor(w http.ResponseWriter, r *http.Request) {
	h.show(w, r, h.serializers.Actor, func(id string) (record.Record, error) {
		return h.store.Actor(id)
	})
}

// ShowUser renders one user
func (h *Handlers) ShowUser(w http.ResponseWriter, r *http.Request) {
	h.show(w, r, h.serializers.User, func(id string) (record.Record, error) {
		return h.store.User(id)
	})
}

func (h *Handlers) show(w http.ResponseWriter, r *http.Request, s *serializer.Serializer, find func(string) (record.Record, error)) {
	opts, ok := h.options(w, r)
	if !ok {
		return
	}

	rec, err := find(chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	doc, err := s.Serialize(r.Context(), rec, opts)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.render(w, r, doc)
}

func (h *Handlers) options(w http.ResponseWriter, r *http.Request) (serializer.Options, bool) {
	if !response.Accepts(r) {
		response.RenderError(w, response.NewHTTPError(http.StatusNotAcceptable, "only "+response.MediaType+" is supported", nil))
		return serializer.Options{}, false
	}

	opts, err := query.Options(r, h.defaults)
	if err != nil {
		if errors.Is(err, fields.ErrSyntax) {
			response.RenderError(w, response.NewHTTPError(http.StatusBadRequest, "invalid fields parameter", err))
			return serializer.Options{}, false
		}
		response.RenderError(w, response.NewHTTPError(http.StatusBadRequest, "invalid query", err))
		return serializer.Options{}, false
	}
	return opts, true
}

func (h *Handlers) render(w http.ResponseWriter, r *http.Request, payload interface{}) {
	if err := response.RenderDocument(w, http.StatusOK, payload); err != nil {
		h.fail(w, r, err)
	}
}

func (h *Handlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, catalog.ErrNotFound) {
		response.RenderError(w, response.NewHTTPError(http.StatusNotFound, err.Error(), nil))
		return
	}

	h.logger.Error("render failed",
		zap.String("request_id", middleware.GetRequestID(r.Context())),
		zap.String("path", r.URL.Path),
		zap.Error(err),
	)
	response.RenderInternalError(w, err)
}
