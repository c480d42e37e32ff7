package review

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/redmonkez12/natours-api/internal/apperror"
	"github.com/redmonkez12/natours-api/internal/crud"
	"github.com/redmonkez12/natours-api/internal/httputil"
	"github.com/redmonkez12/natours-api/internal/mongostore"
	"github.com/redmonkez12/natours-api/internal/query"
	"github.com/redmonkez12/natours-api/internal/user"
)

// TourParam names the URL parameter of the nested /tours/{tourId}/reviews routes.
const TourParam = "tourId"

var errNotAuthor = apperror.Forbidden("You do not have permission to perform this action")

// NewHandler serves reviews, both top level and nested under a tour.
func NewHandler(svc *Service, errs *httputil.ErrorWriter) *crud.Handler[Review] {
	return crud.NewHandler(crud.Resource[Review]{
		Name:      "review",
		Store:     svc,
		Query:     QueryOptions,
		Updatable: Updatable,
		Scope:     scopeToTour,
		Prepare:   prepare,
		Authorize: authorize,
	}, errs)
}

func scopeToTour(r *http.Request, b query.Builder) query.Builder {
	if id := chi.URLParam(r, TourParam); id != "" {
		return b.Where("tour", query.OpEq, id)
	}
	return b
}

// prepare takes the tour from the route when nested and the author from the session.
func prepare(r *http.Request, rev *Review) error {
	if id := chi.URLParam(r, TourParam); id != "" {
		oid, err := mongostore.ParseID(id)
		if err != nil {
			return err
		}
		rev.Tour = oid
	}

	current, ok := user.FromContext(r.Context())
	if !ok {
		return apperror.Authentication("You are not logged in! Please log in to get access.")
	}
	rev.User = current.ID
	return nil
}

// authorize lets authors change their own reviews and admins change any.
func authorize(r *http.Request, rev *Review) error {
	current, ok := user.FromContext(r.Context())
	if !ok {
		return apperror.Authentication("You are not logged in! Please log in to get access.")
	}
	if current.Role == user.RoleAdmin || current.ID == rev.User {
		return nil
	}
	return errNotAuthor
}
