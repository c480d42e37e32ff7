package user

import (
	"context"
	"net/http"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/redmonkez12/natours-api/internal/apperror"
	"github.com/redmonkez12/natours-api/internal/crud"
	"github.com/redmonkez12/natours-api/internal/httputil"
	"github.com/redmonkez12/natours-api/internal/logging"
	"github.com/redmonkez12/natours-api/internal/query"
)

// ProfileStore is the persistence needed by the self-service handlers.
type ProfileStore interface {
	GetByID(ctx context.Context, id primitive.ObjectID, scope Scope) (*User, error)
	UpdateProfile(ctx context.Context, id primitive.ObjectID, p Profile) (*User, error)
	Deactivate(ctx context.Context, id primitive.ObjectID) error
}

// Handler contains HTTP handlers for user endpoints
type Handler struct {
	*crud.Handler[User]
	unscoped *crud.Handler[User]
	store    ProfileStore
	errs     *httputil.ErrorWriter
}

// NewHandler builds the self-service and administrative user handlers.
// Administrative updates may change name, email, photo and role.
func NewHandler(repo *Repository, errs *httputil.ErrorWriter) *Handler {
	return newHandler(repo, repo, errs)
}

func newHandler(accounts crud.Store[User], profiles ProfileStore, errs *httputil.ErrorWriter) *Handler {
	res := crud.Resource[User]{
		Name:      "user",
		Store:     accounts,
		Query:     QueryOptions,
		Updatable: []string{"name", "email", "photo", "role"},
		Scope: func(r *http.Request, b query.Builder) query.Builder {
			return b.Where("active", query.OpNe, false)
		},
	}
	all := res
	all.Scope = nil
	return &Handler{
		Handler:  crud.NewHandler(res, errs),
		unscoped: crud.NewHandler(all, errs),
		store:    profiles,
		errs:     errs,
	}
}

// GetAll lists active accounts. Admins may add inactive=true to include
// deactivated ones.
func (h *Handler) GetAll(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	if _, ok := params["inactive"]; !ok {
		h.Handler.GetAll(w, r)
		return
	}

	include := params.Get("inactive") == "true"
	params.Del("inactive")
	r = r.Clone(r.Context())
	r.URL.RawQuery = params.Encode()

	if !include {
		h.Handler.GetAll(w, r)
		return
	}
	if current, ok := FromContext(r.Context()); !ok || current.Role != RoleAdmin {
		h.errs.Write(w, r, apperror.Forbidden("You do not have permission to perform this action"))
		return
	}
	h.unscoped.GetAll(w, r)
}

// UpdateMeRequest represents the self-service profile update body
type UpdateMeRequest struct {
	Name            *string `json:"name"`
	Email           *string `json:"email"`
	Password        *string `json:"password"`
	PasswordConfirm *string `json:"passwordConfirm"`
}

// Me returns the signed-in user
// @Summary      Current user
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} httputil.Envelope
// @Failure      401 {object} httputil.ErrorResponse
// @Router       /api/v1/users/me [get]
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	current, ok := FromContext(r.Context())
	if !ok {
		h.errs.Write(w, r, apperror.Authentication("You are not logged in! Please log in to get access."))
		return
	}

	u, err := h.store.GetByID(r.Context(), current.ID, ScopeActive)
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}
	httputil.RespondData(w, u, http.StatusOK)
}

// UpdateMe changes the signed-in user's name and email
// @Summary      Update current user
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body UpdateMeRequest true "Profile fields"
// @Success      200 {object} httputil.Envelope
// @Failure      400 {object} httputil.ErrorResponse
// @Router       /api/v1/users/updateMe [patch]
func (h *Handler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	current, ok := FromContext(r.Context())
	if !ok {
		h.errs.Write(w, r, apperror.Authentication("You are not logged in! Please log in to get access."))
		return
	}

	var req UpdateMeRequest
	if err := crud.DecodeJSON(r, &req); err != nil {
		h.errs.Write(w, r, err)
		return
	}

	if req.Password != nil || req.PasswordConfirm != nil {
		h.errs.Write(w, r, apperror.Validation("This route is not for password updates. Please use /updateMyPassword."))
		return
	}

	// validate the merged profile with the same rules as signup
	candidate := *current
	if req.Name != nil {
		candidate.Name = *req.Name
	}
	if req.Email != nil {
		candidate.Email = *req.Email
	}
	candidate.Normalize()
	if err := candidate.Validate(); err != nil {
		h.errs.Write(w, r, err)
		return
	}

	p := Profile{}
	if req.Name != nil {
		p.Name = &candidate.Name
	}
	if req.Email != nil {
		p.Email = &candidate.Email
	}

	updated, err := h.store.UpdateProfile(r.Context(), current.ID, p)
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}

	logging.GetLoggerFromContext(r.Context()).Info("profile updated", "user_id", current.ID.Hex())
	httputil.RespondJSON(w, httputil.Envelope{
		Status: "success",
		Data:   map[string]any{"user": updated},
	}, http.StatusOK)
}

// DeleteMe soft-deletes the signed-in user
// @Summary      Deactivate current user
// @Tags         users
// @Security     BearerAuth
// @Success      204
// @Router       /api/v1/users/deleteMe [delete]
func (h *Handler) DeleteMe(w http.ResponseWriter, r *http.Request) {
	current, ok := FromContext(r.Context())
	if !ok {
		h.errs.Write(w, r, apperror.Authentication("You are not logged in! Please log in to get access."))
		return
	}

	if err := h.store.Deactivate(r.Context(), current.ID); err != nil {
		h.errs.Write(w, r, err)
		return
	}

	logging.GetLoggerFromContext(r.Context()).Info("user deactivated", "user_id", current.ID.Hex())
	httputil.RespondNoContent(w)
}

// CreateUser points callers at the signup route.
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	h.errs.Write(w, r, apperror.Validation("This route is not defined! Please use /signup instead").
		WithStatus(http.StatusInternalServerError))
}

