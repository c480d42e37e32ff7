package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redmonkez12/natours-api/internal/httputil"
	"github.com/redmonkez12/natours-api/internal/user"
)

type accessFixture struct {
	users  *memUsers
	tokens *JWTService
	clock  *fakeClock
	mw     *Middleware
}

func newAccessFixture(t *testing.T) *accessFixture {
	t.Helper()
	clock := &fakeClock{t: time.Now().Truncate(time.Second)}
	users := newMemUsers()
	tokens := newTestJWT(t, clock)
	return &accessFixture{
		users:  users,
		tokens: tokens,
		clock:  clock,
		mw:     NewMiddleware(NewAuthenticator(tokens, users), httputil.NewErrorWriter(true)),
	}
}

func (f *accessFixture) tokenFor(t *testing.T, u *user.User) string {
	t.Helper()
	token, err := f.tokens.CreateToken(u.ID.Hex())
	require.NoError(t, err)
	return token
}

// echoUser answers 200 with the email of the identity in the context, or "anonymous".
var echoUser = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	if u, ok := user.FromContext(r.Context()); ok {
		_, _ = w.Write([]byte(u.Email))
		return
	}
	_, _ = w.Write([]byte("anonymous"))
})

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func bearer(token string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func withCookie(value string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: value})
	return req
}

func TestProtectOutcomes(t *testing.T) {
	f := newAccessFixture(t)
	u := f.users.add(user.User{Email: "jonas@example.com", Role: user.RoleUser})
	token := f.tokenFor(t, u)
	h := f.mw.Protect(echoUser)

	t.Run("no token", func(t *testing.T) {
		rec := serve(h, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Body.String(), "You are not logged in!")
	})

	t.Run("logout sentinel", func(t *testing.T) {
		rec := serve(h, withCookie(LoggedOutValue))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Body.String(), "You are not logged in!")
	})

	t.Run("malformed", func(t *testing.T) {
		rec := serve(h, bearer("not.a.token"))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Body.String(), "Invalid token")
	})

	t.Run("bearer header", func(t *testing.T) {
		rec := serve(h, bearer(token))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "jonas@example.com", rec.Body.String())
	})

	t.Run("cookie", func(t *testing.T) {
		rec := serve(h, withCookie(token))
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("header wins over cookie", func(t *testing.T) {
		req := bearer("garbage")
		req.AddCookie(&http.Cookie{Name: CookieName, Value: token})
		rec := serve(h, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestProtectExpiredToken(t *testing.T) {
	f := newAccessFixture(t)
	u := f.users.add(user.User{Email: "jonas@example.com", Role: user.RoleUser})
	token := f.tokenFor(t, u)

	f.clock.Advance(2 * time.Hour)
	rec := serve(f.mw.Protect(echoUser), bearer(token))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Your token has expired!")
}

func TestProtectUserGone(t *testing.T) {
	f := newAccessFixture(t)
	inactive := false
	u := f.users.add(user.User{Email: "gone@example.com", Role: user.RoleUser, Active: &inactive})

	rec := serve(f.mw.Protect(echoUser), bearer(f.tokenFor(t, u)))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "no longer exists")
}

func TestProtectRejectsTokensIssuedBeforePasswordChange(t *testing.T) {
	f := newAccessFixture(t)
	u := f.users.add(user.User{Email: "jonas@example.com", Role: user.RoleUser})
	old := f.tokenFor(t, u)

	f.clock.Advance(5 * time.Second)
	stored := f.users.get(u.ID)
	MarkPasswordChanged(&stored, f.clock.Now())
	f.users.add(stored)

	rec := serve(f.mw.Protect(echoUser), bearer(old))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "User recently changed password!")

	fresh := f.tokenFor(t, u)
	rec = serve(f.mw.Protect(echoUser), bearer(fresh))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestIsLoggedInDegradesToAnonymous(t *testing.T) {
	f := newAccessFixture(t)
	u := f.users.add(user.User{Email: "jonas@example.com", Role: user.RoleUser})
	h := f.mw.IsLoggedIn(echoUser)

	assert.Equal(t, "jonas@example.com", serve(h, withCookie(f.tokenFor(t, u))).Body.String())
	assert.Equal(t, "anonymous", serve(h, withCookie("garbage")).Body.String())
	assert.Equal(t, "anonymous", serve(h, withCookie(LoggedOutValue)).Body.String())
	assert.Equal(t, "anonymous", serve(h, bearer(f.tokenFor(t, u))).Body.String(), "headers are ignored")
}

func TestRestrictTo(t *testing.T) {
	f := newAccessFixture(t)
	admin := f.users.add(user.User{Email: "admin@example.com", Role: user.RoleAdmin})
	guide := f.users.add(user.User{Email: "guide@example.com", Role: user.RoleGuide})

	h := f.mw.Protect(f.mw.RestrictTo(user.RoleAdmin, user.RoleLeadGuide)(echoUser))

	rec := serve(h, bearer(f.tokenFor(t, admin)))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = serve(h, bearer(f.tokenFor(t, guide)))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "You do not have permission to perform this action")
}

func TestPermits(t *testing.T) {
	assert.True(t, Permits(user.RoleAdmin, user.RoleAdmin, user.RoleLeadGuide))
	assert.False(t, Permits(user.RoleGuide, user.RoleAdmin, user.RoleLeadGuide))
	assert.False(t, Permits(user.RoleAdmin))
}
