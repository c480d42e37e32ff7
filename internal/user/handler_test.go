package user

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/redmonkez12/natours-api/internal/httputil"
	"github.com/redmonkez12/natours-api/internal/query"
)

type mockProfileStore struct {
	mock.Mock
}

func (m *mockProfileStore) GetByID(ctx context.Context, id primitive.ObjectID, scope Scope) (*User, error) {
	args := m.Called(ctx, id, scope)
	u, _ := args.Get(0).(*User)
	return u, args.Error(1)
}

func (m *mockProfileStore) UpdateProfile(ctx context.Context, id primitive.ObjectID, p Profile) (*User, error) {
	args := m.Called(ctx, id, p)
	u, _ := args.Get(0).(*User)
	return u, args.Error(1)
}

func (m *mockProfileStore) Deactivate(ctx context.Context, id primitive.ObjectID) error {
	return m.Called(ctx, id).Error(0)
}

func signedIn(method, body string, u *User) *http.Request {
	req := httptest.NewRequest(method, "/", strings.NewReader(body))
	return req.WithContext(WithContext(req.Context(), u))
}

func TestUpdateMeRejectsPasswordFields(t *testing.T) {
	store := new(mockProfileStore)
	h := &Handler{store: store, errs: httputil.NewErrorWriter(true)}
	u := &User{ID: primitive.NewObjectID(), Name: "Jonas", Email: "jonas@example.com", Role: RoleUser}

	rec := httptest.NewRecorder()
	h.UpdateMe(rec, signedIn(http.MethodPatch, `{"password":"newpass123"}`, u))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "/updateMyPassword")
	store.AssertNotCalled(t, "UpdateProfile", mock.Anything, mock.Anything, mock.Anything)
}

func TestUpdateMeOnlyChangesNameAndEmail(t *testing.T) {
	store := new(mockProfileStore)
	h := &Handler{store: store, errs: httputil.NewErrorWriter(true)}
	u := &User{ID: primitive.NewObjectID(), Name: "Jonas", Email: "jonas@example.com", Role: RoleUser}

	store.On("UpdateProfile", mock.Anything, u.ID, mock.MatchedBy(func(p Profile) bool {
		return p.Name == nil && p.Email != nil && *p.Email == "new@example.com"
	})).Return(&User{ID: u.ID, Name: "Jonas", Email: "new@example.com", Role: RoleUser}, nil)

	rec := httptest.NewRecorder()
	h.UpdateMe(rec, signedIn(http.MethodPatch, `{"email":"NEW@example.com","role":"admin"}`, u))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "new@example.com")
	assert.NotContains(t, rec.Body.String(), `"admin"`)
	store.AssertExpectations(t)
}

func TestUpdateMeValidatesEmail(t *testing.T) {
	store := new(mockProfileStore)
	h := &Handler{store: store, errs: httputil.NewErrorWriter(true)}
	u := &User{ID: primitive.NewObjectID(), Name: "Jonas", Email: "jonas@example.com", Role: RoleUser}

	rec := httptest.NewRecorder()
	h.UpdateMe(rec, signedIn(http.MethodPatch, `{"email":"not-an-email"}`, u))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeleteMeSoftDeletes(t *testing.T) {
	store := new(mockProfileStore)
	h := &Handler{store: store, errs: httputil.NewErrorWriter(true)}
	u := &User{ID: primitive.NewObjectID(), Name: "Jonas", Email: "jonas@example.com", Role: RoleUser}
	store.On("Deactivate", mock.Anything, u.ID).Return(nil)

	rec := httptest.NewRecorder()
	h.DeleteMe(rec, signedIn(http.MethodDelete, "", u))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	store.AssertExpectations(t)
}

func TestMeRequiresIdentity(t *testing.T) {
	h := &Handler{store: new(mockProfileStore), errs: httputil.NewErrorWriter(true)}

	rec := httptest.NewRecorder()
	h.Me(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestValidateAndNormalize(t *testing.T) {
	u := &User{Name: " Jonas ", Email: " Jonas@Example.COM "}
	u.Normalize()
	require.NoError(t, u.Validate())

	assert.Equal(t, "Jonas", u.Name)
	assert.Equal(t, "jonas@example.com", u.Email)
	assert.Equal(t, RoleUser, u.Role)
	assert.Equal(t, DefaultPhoto, u.Photo)
	assert.True(t, u.IsActive())

	u.Role = "superuser"
	assert.Error(t, u.Validate())
}

// listStore records the query of the last Find.
type listStore struct {
	last query.Query
}

func (s *listStore) Find(_ context.Context, q query.Query) ([]User, error) {
	s.last = q
	return []User{}, nil
}

func (s *listStore) Get(context.Context, string) (*User, error) { return nil, nil }
func (s *listStore) Create(_ context.Context, u *User) (*User, error) {
	return u, nil
}
func (s *listStore) Update(_ context.Context, _ string, u *User, _ []string) (*User, error) {
	return u, nil
}
func (s *listStore) Delete(context.Context, string) error { return nil }

func scopedToActive(q query.Query) bool {
	for _, c := range q.Conditions {
		if c.Field == "active" && c.Op == query.OpNe && c.Value == false {
			return true
		}
	}
	return false
}

func TestListUsersScoping(t *testing.T) {
	store := &listStore{}
	h := newHandler(store, new(mockProfileStore), httputil.NewErrorWriter(true))
	admin := &User{ID: primitive.NewObjectID(), Role: RoleAdmin}
	guide := &User{ID: primitive.NewObjectID(), Role: RoleGuide}

	list := func(target string, u *User) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, target, nil)
		req = req.WithContext(WithContext(req.Context(), u))
		rec := httptest.NewRecorder()
		h.GetAll(rec, req)
		return rec
	}

	rec := list("/api/v1/users?role=guide", admin)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, scopedToActive(store.last), "active accounts only by default")

	rec = list("/api/v1/users?inactive=true&role=guide", admin)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, scopedToActive(store.last))
	assert.Len(t, store.last.Conditions, 1)

	rec = list("/api/v1/users?inactive=false", admin)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, scopedToActive(store.last))

	rec = list("/api/v1/users?inactive=true", guide)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
