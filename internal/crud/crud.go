// Package crud provides generic list, read, create, update and delete
// handlers over any store that understands a query.Query.
package crud

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"slices"

	"github.com/go-chi/chi/v5"

	"github.com/redmonkez12/natours-api/internal/apperror"
	"github.com/redmonkez12/natours-api/internal/httputil"
	"github.com/redmonkez12/natours-api/internal/logging"
	"github.com/redmonkez12/natours-api/internal/query"
)

// Store persists documents of type T.
type Store[T any] interface {
	Find(ctx context.Context, q query.Query) ([]T, error)
	Get(ctx context.Context, id string) (*T, error)
	Create(ctx context.Context, doc *T) (*T, error)
	Update(ctx context.Context, id string, doc *T, fields []string) (*T, error)
	Delete(ctx context.Context, id string) error
}

// Validator is implemented by documents with field constraints.
type Validator interface {
	Validate() error
}

// Normalizer is implemented by documents with derived or canonical fields.
type Normalizer interface {
	Normalize()
}

// Resource configures the handlers for one document type.
type Resource[T any] struct {
	Name  string
	Store Store[T]
	Query query.Options
	// Updatable lists the body keys an update may change.
	Updatable []string
	// Derived lists fields recomputed by Normalize when a key changes, e.g. name -> slug.
	Derived map[string][]string
	// Scope adds trusted conditions to list queries.
	Scope func(r *http.Request, b query.Builder) query.Builder
	// Prepare fills server-controlled fields before a create.
	Prepare func(r *http.Request, doc *T) error
	// Authorize checks the caller may change an existing document.
	Authorize func(r *http.Request, doc *T) error
}

// Handler serves a Resource.
type Handler[T any] struct {
	res  Resource[T]
	errs *httputil.ErrorWriter
}

func NewHandler[T any](res Resource[T], errs *httputil.ErrorWriter) *Handler[T] {
	return &Handler[T]{res: res, errs: errs}
}

// GetAll lists documents filtered, sorted, projected and paginated by the query string.
func (h *Handler[T]) GetAll(w http.ResponseWriter, r *http.Request) {
	b := query.New(r.URL.Query(), h.res.Query)
	if h.res.Scope != nil {
		b = h.res.Scope(r, b)
	}

	q, err := b.Features().Build()
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}

	docs, err := h.res.Store.Find(r.Context(), q)
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}

	httputil.RespondList(w, docs)
}

// GetOne returns the document named by the id URL parameter.
func (h *Handler[T]) GetOne(w http.ResponseWriter, r *http.Request) {
	doc, err := h.res.Store.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}
	httputil.RespondData(w, doc, http.StatusOK)
}

// CreateOne decodes the body into a new document and stores it.
func (h *Handler[T]) CreateOne(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r)
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}

	doc := new(T)
	if err := decode(body, doc); err != nil {
		h.errs.Write(w, r, err)
		return
	}

	if h.res.Prepare != nil {
		if err := h.res.Prepare(r, doc); err != nil {
			h.errs.Write(w, r, err)
			return
		}
	}

	if err := check(doc); err != nil {
		h.errs.Write(w, r, err)
		return
	}

	created, err := h.res.Store.Create(r.Context(), doc)
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}

	logging.GetLoggerFromContext(r.Context()).Info("document created", "resource", h.res.Name)
	httputil.RespondData(w, created, http.StatusCreated)
}

// UpdateOne applies the updatable keys present in the body to an existing document.
func (h *Handler[T]) UpdateOne(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	body, err := readBody(r)
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}

	fields, err := h.changedFields(body)
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}

	doc, err := h.res.Store.Get(r.Context(), id)
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}

	if h.res.Authorize != nil {
		if err := h.res.Authorize(r, doc); err != nil {
			h.errs.Write(w, r, err)
			return
		}
	}

	if err := decode(body, doc); err != nil {
		h.errs.Write(w, r, err)
		return
	}

	if err := check(doc); err != nil {
		h.errs.Write(w, r, err)
		return
	}

	updated, err := h.res.Store.Update(r.Context(), id, doc, fields)
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}

	httputil.RespondData(w, updated, http.StatusOK)
}

// DeleteOne removes the document named by the id URL parameter.
func (h *Handler[T]) DeleteOne(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if h.res.Authorize != nil {
		doc, err := h.res.Store.Get(r.Context(), id)
		if err != nil {
			h.errs.Write(w, r, err)
			return
		}
		if err := h.res.Authorize(r, doc); err != nil {
			h.errs.Write(w, r, err)
			return
		}
	}

	if err := h.res.Store.Delete(r.Context(), id); err != nil {
		h.errs.Write(w, r, err)
		return
	}

	logging.GetLoggerFromContext(r.Context()).Info("document deleted", "resource", h.res.Name, "id", id)
	httputil.RespondNoContent(w)
}

func (h *Handler[T]) changedFields(body []byte) ([]string, error) {
	var present map[string]json.RawMessage
	if err := json.Unmarshal(body, &present); err != nil {
		return nil, apperror.Validation("Invalid request body")
	}

	var fields []string
	for _, key := range h.res.Updatable {
		if _, ok := present[key]; !ok {
			continue
		}
		fields = append(fields, key)
		for _, derived := range h.res.Derived[key] {
			if !slices.Contains(fields, derived) {
				fields = append(fields, derived)
			}
		}
	}

	if len(fields) == 0 {
		return nil, apperror.Validation("No updatable fields provided")
	}
	return fields, nil
}

func readBody(r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, apperror.Validation("Request body too large").WithStatus(http.StatusRequestEntityTooLarge)
		}
		return nil, apperror.Validation("Invalid request body")
	}
	return body, nil
}

func decode(body []byte, doc any) error {
	if err := json.Unmarshal(body, doc); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field != "" {
			return apperror.Validation("Invalid %s: %v", typeErr.Field, typeErr.Value)
		}
		return apperror.Validation("Invalid request body")
	}
	return nil
}

func check(doc any) error {
	if n, ok := doc.(Normalizer); ok {
		n.Normalize()
	}
	if v, ok := doc.(Validator); ok {
		return v.Validate()
	}
	return nil
}

// DecodeJSON reads and decodes the request body into v.
func DecodeJSON(r *http.Request, v any) error {
	body, err := readBody(r)
	if err != nil {
		return err
	}
	return decode(body, v)
}
