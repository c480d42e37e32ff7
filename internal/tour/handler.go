package tour

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/redmonkez12/natours-api/internal/apperror"
	"github.com/redmonkez12/natours-api/internal/crud"
	"github.com/redmonkez12/natours-api/internal/httputil"
	"github.com/redmonkez12/natours-api/internal/review"
)

// Store is the persistence used by the tour handlers.
type Store interface {
	crud.Store[Tour]
	GetBySlug(ctx context.Context, slug string) (*Tour, error)
	Guides(ctx context.Context, ids []primitive.ObjectID) ([]Guide, error)
	Stats(ctx context.Context) ([]DifficultyStats, error)
	MonthlyPlan(ctx context.Context, year int) ([]MonthPlan, error)
	Within(ctx context.Context, lat, lng, distance float64, unit Unit) ([]Tour, error)
	Distances(ctx context.Context, lat, lng float64, unit Unit) ([]Distance, error)
}

// ReviewLister returns the reviews written for a tour.
type ReviewLister interface {
	ForTour(ctx context.Context, tourID primitive.ObjectID) ([]review.Review, error)
}

// Detail is a tour with its guides and reviews resolved.
type Detail struct {
	Tour
	DurationWeeks float64         `json:"durationWeeks"`
	Guides        []Guide         `json:"guides"`
	Reviews       []review.Review `json:"reviews"`
}

type Handler struct {
	*crud.Handler[Tour]
	store   Store
	reviews ReviewLister
	errs    *httputil.ErrorWriter
}

func NewHandler(store Store, reviews ReviewLister, errs *httputil.ErrorWriter) *Handler {
	res := crud.Resource[Tour]{
		Name:      "tour",
		Store:     store,
		Query:     QueryOptions,
		Updatable: Updatable,
		Derived:   map[string][]string{"name": {"slug"}},
	}
	return &Handler{
		Handler: crud.NewHandler(res, errs),
		store:   store,
		reviews: reviews,
		errs:    errs,
	}
}

// AliasTopTours presets the query for the five best-value tours.
func AliasTopTours(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		q.Set("limit", "5")
		q.Set("sort", "price,-ratingsAverage")
		q.Set("fields", "name,price,ratingsAverage,summary,difficulty")

		r2 := r.Clone(r.Context())
		r2.URL.RawQuery = q.Encode()
		next.ServeHTTP(w, r2)
	})
}

// GetTour returns a tour with guides and reviews
// @Summary      Get tour
// @Tags         tours
// @Produce      json
// @Param        id path string true "Tour ID"
// @Success      200 {object} httputil.Envelope
// @Failure      404 {object} httputil.ErrorResponse
// @Router       /api/v1/tours/{id} [get]
func (h *Handler) GetTour(w http.ResponseWriter, r *http.Request) {
	t, err := h.store.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}
	h.respondDetail(w, r, t)
}

// GetTourBySlug returns a public tour by its slug
// @Summary      Get tour by slug
// @Tags         tours
// @Produce      json
// @Param        slug path string true "Tour slug"
// @Success      200 {object} httputil.Envelope
// @Failure      404 {object} httputil.ErrorResponse
// @Router       /api/v1/tours/slug/{slug} [get]
func (h *Handler) GetTourBySlug(w http.ResponseWriter, r *http.Request) {
	t, err := h.store.GetBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		if apperror.IsKind(err, apperror.KindNotFound) {
			err = apperror.NotFound("There is no tour with that name.")
		}
		h.errs.Write(w, r, err)
		return
	}
	h.respondDetail(w, r, t)
}

func (h *Handler) respondDetail(w http.ResponseWriter, r *http.Request, t *Tour) {
	guides, err := h.store.Guides(r.Context(), t.Guides)
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}
	reviews, err := h.reviews.ForTour(r.Context(), t.ID)
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}
	httputil.RespondData(w, Detail{
		Tour:          *t,
		DurationWeeks: t.DurationWeeks(),
		Guides:        guides,
		Reviews:       reviews,
	}, http.StatusOK)
}

// Stats groups highly rated tours by difficulty
// @Summary      Tour statistics
// @Tags         tours
// @Produce      json
// @Success      200 {object} httputil.Envelope
// @Router       /api/v1/tours/tour-stats [get]
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.store.Stats(r.Context())
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}
	httputil.RespondJSON(w, httputil.Envelope{
		Status: "success",
		Data:   map[string]any{"stats": stats},
	}, http.StatusOK)
}

// MonthlyPlan counts tour starts per month of a year
// @Summary      Monthly plan
// @Tags         tours
// @Produce      json
// @Security     BearerAuth
// @Param        year path int true "Year"
// @Success      200 {object} httputil.Envelope
// @Failure      400 {object} httputil.ErrorResponse
// @Router       /api/v1/tours/monthly-plan/{year} [get]
func (h *Handler) MonthlyPlan(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "year")
	year, err := strconv.Atoi(raw)
	if err != nil || year < 1 || year > 9999 {
		h.errs.Write(w, r, apperror.Validation("Invalid year: %s", raw))
		return
	}

	plan, err := h.store.MonthlyPlan(r.Context(), year)
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}
	httputil.RespondJSON(w, httputil.Envelope{
		Status: "success",
		Data:   map[string]any{"plan": plan},
	}, http.StatusOK)
}

// Within lists tours starting within a distance of a point
// @Summary      Tours within radius
// @Tags         tours
// @Produce      json
// @Param        distance path number true "Radius"
// @Param        latlng path string true "lat,lng"
// @Param        unit path string true "mi or km"
// @Success      200 {object} httputil.Envelope
// @Failure      400 {object} httputil.ErrorResponse
// @Router       /api/v1/tours/tours-within/{distance}/center/{latlng}/unit/{unit} [get]
func (h *Handler) Within(w http.ResponseWriter, r *http.Request) {
	lat, lng, unit, err := geoParams(r)
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}

	distance, err := ParseDistance(chi.URLParam(r, "distance"))
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}

	tours, err := h.store.Within(r.Context(), lat, lng, distance, unit)
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}
	httputil.RespondList(w, tours)
}

// Distances reports the distance from a point to every tour start
// @Summary      Tour distances
// @Tags         tours
// @Produce      json
// @Param        latlng path string true "lat,lng"
// @Param        unit path string true "mi or km"
// @Success      200 {object} httputil.Envelope
// @Failure      400 {object} httputil.ErrorResponse
// @Router       /api/v1/tours/distances/{latlng}/unit/{unit} [get]
func (h *Handler) Distances(w http.ResponseWriter, r *http.Request) {
	lat, lng, unit, err := geoParams(r)
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}

	distances, err := h.store.Distances(r.Context(), lat, lng, unit)
	if err != nil {
		h.errs.Write(w, r, err)
		return
	}
	httputil.RespondJSON(w, httputil.Envelope{
		Status: "success",
		Data:   map[string]any{"data": distances},
	}, http.StatusOK)
}

func geoParams(r *http.Request) (lat, lng float64, unit Unit, err error) {
	lat, lng, err = ParseLatLng(chi.URLParam(r, "latlng"))
	if err != nil {
		return 0, 0, "", err
	}
	unit, err = ParseUnit(chi.URLParam(r, "unit"))
	if err != nil {
		return 0, 0, "", err
	}
	return lat, lng, unit, nil
}
