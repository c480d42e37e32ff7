package crud

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redmonkez12/natours-api/internal/apperror"
	"github.com/redmonkez12/natours-api/internal/httputil"
	"github.com/redmonkez12/natours-api/internal/query"
)

type item struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Slug  string  `json:"slug"`
	Price float64 `json:"price"`
	Owner string  `json:"owner"`
}

func (i *item) Normalize() {
	i.Slug = strings.ToLower(strings.ReplaceAll(i.Name, " ", "-"))
}

func (i *item) Validate() error {
	if i.Name == "" {
		return apperror.Validation("A item must have a name")
	}
	return nil
}

type memStore struct {
	items      map[string]item
	next       int
	lastQuery  query.Query
	lastFields []string
}

func newMemStore() *memStore {
	return &memStore{items: map[string]item{}}
}

func (s *memStore) Find(_ context.Context, q query.Query) ([]item, error) {
	s.lastQuery = q
	out := []item{}
	for _, it := range s.items {
		out = append(out, it)
	}
	return out, nil
}

func (s *memStore) Get(_ context.Context, id string) (*item, error) {
	it, ok := s.items[id]
	if !ok {
		return nil, apperror.NotFound("No item found with that ID")
	}
	return &it, nil
}

func (s *memStore) Create(_ context.Context, doc *item) (*item, error) {
	s.next++
	doc.ID = fmt.Sprint(s.next)
	s.items[doc.ID] = *doc
	return doc, nil
}

func (s *memStore) Update(_ context.Context, id string, doc *item, fields []string) (*item, error) {
	s.lastFields = fields
	s.items[id] = *doc
	return doc, nil
}

func (s *memStore) Delete(_ context.Context, id string) error {
	if _, ok := s.items[id]; !ok {
		return apperror.NotFound("No item found with that ID")
	}
	delete(s.items, id)
	return nil
}

func newTestRouter(store *memStore, res Resource[item]) http.Handler {
	res.Store = store
	h := NewHandler(res, httputil.NewErrorWriter(false))

	r := chi.NewRouter()
	r.Get("/items", h.GetAll)
	r.Post("/items", h.CreateOne)
	r.Get("/items/{id}", h.GetOne)
	r.Patch("/items/{id}", h.UpdateOne)
	r.Delete("/items/{id}", h.DeleteOne)
	return r
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestCreateNormalizesAndValidates(t *testing.T) {
	store := newMemStore()
	h := newTestRouter(store, Resource[item]{Name: "item"})

	rec := do(t, h, http.MethodPost, "/items", `{"name":"Sea Explorer","price":497}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp struct {
		Status string `json:"status"`
		Data   struct {
			Data item `json:"data"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "success", resp.Status)
	assert.Equal(t, "sea-explorer", resp.Data.Data.Slug)

	rec = do(t, h, http.MethodPost, "/items", `{"price":497}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "must have a name")
}

func TestCreateRejectsWrongTypes(t *testing.T) {
	h := newTestRouter(newMemStore(), Resource[item]{Name: "item"})

	rec := do(t, h, http.MethodPost, "/items", `{"name":"x","price":"free"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid price")
}

func TestGetAllScopesAndReportsResults(t *testing.T) {
	store := newMemStore()
	store.items["1"] = item{ID: "1", Name: "a"}
	store.items["2"] = item{ID: "2", Name: "b"}

	h := newTestRouter(store, Resource[item]{
		Name: "item",
		Scope: func(r *http.Request, b query.Builder) query.Builder {
			return b.Where("owner", query.OpEq, "me")
		},
	})

	rec := do(t, h, http.MethodGet, "/items?price[lt]=100&sort=name", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"results":2`)

	require.Len(t, store.lastQuery.Conditions, 2)
	assert.Equal(t, "owner", store.lastQuery.Conditions[0].Field)
	assert.Equal(t, "price", store.lastQuery.Conditions[1].Field)
}

func TestGetAllRejectsInjectedOperators(t *testing.T) {
	h := newTestRouter(newMemStore(), Resource[item]{Name: "item"})

	rec := do(t, h, http.MethodGet, "/items?price[$where]=1", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateOnlyPersistsUpdatableKeysAndDerivedFields(t *testing.T) {
	store := newMemStore()
	store.items["1"] = item{ID: "1", Name: "old", Slug: "old", Owner: "me"}

	h := newTestRouter(store, Resource[item]{
		Name:      "item",
		Updatable: []string{"name", "price"},
		Derived:   map[string][]string{"name": {"slug"}},
	})

	rec := do(t, h, http.MethodPatch, "/items/1", `{"name":"New Name","owner":"you"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"name", "slug"}, store.lastFields)

	rec = do(t, h, http.MethodPatch, "/items/1", `{"owner":"you"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "No updatable fields provided")
}

func TestUpdateAndDeleteAuthorize(t *testing.T) {
	store := newMemStore()
	store.items["1"] = item{ID: "1", Name: "mine", Owner: "someone-else"}

	h := newTestRouter(store, Resource[item]{
		Name:      "item",
		Updatable: []string{"name"},
		Authorize: func(r *http.Request, doc *item) error {
			if doc.Owner != "me" {
				return apperror.Forbidden("You do not have permission to perform this action")
			}
			return nil
		},
	})

	rec := do(t, h, http.MethodPatch, "/items/1", `{"name":"theirs"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(t, h, http.MethodDelete, "/items/1", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, store.items, "1")
}

func TestDelete(t *testing.T) {
	store := newMemStore()
	store.items["1"] = item{ID: "1", Name: "x"}
	h := newTestRouter(store, Resource[item]{Name: "item"})

	rec := do(t, h, http.MethodDelete, "/items/1", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())

	rec = do(t, h, http.MethodDelete, "/items/1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
