package tour

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/redmonkez12/natours-api/internal/apperror"
	"github.com/redmonkez12/natours-api/internal/httputil"
	"github.com/redmonkez12/natours-api/internal/query"
	"github.com/redmonkez12/natours-api/internal/review"
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) Find(ctx context.Context, q query.Query) ([]Tour, error) {
	args := m.Called(ctx, q)
	return args.Get(0).([]Tour), args.Error(1)
}

func (m *mockStore) Get(ctx context.Context, id string) (*Tour, error) {
	args := m.Called(ctx, id)
	if t := args.Get(0); t != nil {
		return t.(*Tour), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockStore) Create(ctx context.Context, t *Tour) (*Tour, error) {
	args := m.Called(ctx, t)
	return t, args.Error(0)
}

func (m *mockStore) Update(ctx context.Context, id string, t *Tour, fields []string) (*Tour, error) {
	args := m.Called(ctx, id, t, fields)
	return t, args.Error(0)
}

func (m *mockStore) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockStore) GetBySlug(ctx context.Context, slug string) (*Tour, error) {
	args := m.Called(ctx, slug)
	if t := args.Get(0); t != nil {
		return t.(*Tour), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockStore) Guides(ctx context.Context, ids []primitive.ObjectID) ([]Guide, error) {
	args := m.Called(ctx, ids)
	return args.Get(0).([]Guide), args.Error(1)
}

func (m *mockStore) Stats(ctx context.Context) ([]DifficultyStats, error) {
	args := m.Called(ctx)
	return args.Get(0).([]DifficultyStats), args.Error(1)
}

func (m *mockStore) MonthlyPlan(ctx context.Context, year int) ([]MonthPlan, error) {
	args := m.Called(ctx, year)
	return args.Get(0).([]MonthPlan), args.Error(1)
}

func (m *mockStore) Within(ctx context.Context, lat, lng, distance float64, unit Unit) ([]Tour, error) {
	args := m.Called(ctx, lat, lng, distance, unit)
	return args.Get(0).([]Tour), args.Error(1)
}

func (m *mockStore) Distances(ctx context.Context, lat, lng float64, unit Unit) ([]Distance, error) {
	args := m.Called(ctx, lat, lng, unit)
	return args.Get(0).([]Distance), args.Error(1)
}

type stubReviews []review.Review

func (s stubReviews) ForTour(_ context.Context, _ primitive.ObjectID) ([]review.Review, error) {
	return s, nil
}

func tourRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.With(AliasTopTours).Get("/top-5-cheap", h.GetAll)
	r.Get("/monthly-plan/{year}", h.MonthlyPlan)
	r.Get("/tours-within/{distance}/center/{latlng}/unit/{unit}", h.Within)
	r.Get("/distances/{latlng}/unit/{unit}", h.Distances)
	r.Get("/{id}", h.GetTour)
	return r
}

func get(h http.Handler, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestTopFiveCheapAlias(t *testing.T) {
	store := new(mockStore)
	var got query.Query
	store.On("Find", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { got = args.Get(1).(query.Query) }).
		Return([]Tour{}, nil)

	h := NewHandler(store, stubReviews{}, httputil.NewErrorWriter(true))
	rec := get(tourRouter(h), "/top-5-cheap?limit=50&difficulty=easy")

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 5, got.Limit)
	assert.Equal(t, []query.SortField{{Field: "price"}, {Field: "ratingsAverage", Desc: true}}, got.Sort)
	assert.Equal(t, []string{"name", "price", "ratingsAverage", "summary", "difficulty"}, got.Fields)
	require.Len(t, got.Conditions, 1)
	assert.Equal(t, "difficulty", got.Conditions[0].Field)
}

func TestGetTourResolvesGuidesAndReviews(t *testing.T) {
	store := new(mockStore)
	tr := validTour()
	tr.Normalize()
	tr.ID = primitive.NewObjectID()
	tr.Duration = 14
	guideID := primitive.NewObjectID()
	tr.Guides = []primitive.ObjectID{guideID}

	store.On("Get", mock.Anything, tr.ID.Hex()).Return(&tr, nil)
	store.On("Guides", mock.Anything, tr.Guides).Return([]Guide{{ID: guideID, Name: "Lisa Brown", Role: "lead-guide"}}, nil)
	reviews := stubReviews{{Review: "Loved it", Rating: 5, Tour: tr.ID}}

	rec := get(tourRouter(NewHandler(store, reviews, httputil.NewErrorWriter(true))), "/"+tr.ID.Hex())
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body struct {
		Data struct {
			Data struct {
				Slug          string           `json:"slug"`
				DurationWeeks float64          `json:"durationWeeks"`
				Guides        []map[string]any `json:"guides"`
				Reviews       []map[string]any `json:"reviews"`
			} `json:"data"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	d := body.Data.Data
	assert.Equal(t, "the-forest-hiker", d.Slug)
	assert.Equal(t, 2.0, d.DurationWeeks)
	require.Len(t, d.Guides, 1)
	assert.Equal(t, "Lisa Brown", d.Guides[0]["name"])
	require.Len(t, d.Reviews, 1)
	assert.Equal(t, "Loved it", d.Reviews[0]["review"])
	store.AssertExpectations(t)
}

func TestGetTourNotFound(t *testing.T) {
	store := new(mockStore)
	id := primitive.NewObjectID().Hex()
	store.On("Get", mock.Anything, id).Return(nil, apperror.NotFound("No tour found with that ID"))

	rec := get(tourRouter(NewHandler(store, stubReviews{}, httputil.NewErrorWriter(true))), "/"+id)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "No tour found with that ID")
}

func TestMonthlyPlanRejectsBadYear(t *testing.T) {
	store := new(mockStore)
	store.On("MonthlyPlan", mock.Anything, 2021).Return([]MonthPlan{{Month: 7, NumTourStarts: 3, Tours: []string{"A", "B", "C"}}}, nil)
	router := tourRouter(NewHandler(store, stubReviews{}, httputil.NewErrorWriter(true)))

	rec := get(router, "/monthly-plan/2021")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"plan":[{"month":7,"numTourStarts":3`)

	rec = get(router, "/monthly-plan/twenty")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	store.AssertNumberOfCalls(t, "MonthlyPlan", 1)
}

func TestGeoEndpoints(t *testing.T) {
	store := new(mockStore)
	store.On("Within", mock.Anything, 34.1, -118.1, 200.0, UnitMiles).Return([]Tour{validTour()}, nil)
	store.On("Distances", mock.Anything, 34.1, -118.1, UnitKilometers).Return([]Distance{{Name: "The Forest Hiker", Distance: 12.5}}, nil)
	router := tourRouter(NewHandler(store, stubReviews{}, httputil.NewErrorWriter(true)))

	rec := get(router, "/tours-within/200/center/34.1,-118.1/unit/mi")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"results":1`)

	rec = get(router, "/distances/34.1,-118.1/unit/km")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"distance":12.5`)

	rec = get(router, "/tours-within/200/center/34.1/unit/mi")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Please provide latitude and longitude in the format lat,lng.")

	rec = get(router, "/distances/34.1,-118.1/unit/ly")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = get(router, "/tours-within/-5/center/34.1,-118.1/unit/mi")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = get(router, "/tours-within/Inf/center/34.1,-118.1/unit/mi")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid distance: Inf")

	rec = get(router, "/distances/NaN,NaN/unit/km")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	store.AssertNumberOfCalls(t, "Within", 1)
	store.AssertNumberOfCalls(t, "Distances", 1)
}
