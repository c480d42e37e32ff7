package auth

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/redmonkez12/natours-api/internal/apperror"
	"github.com/redmonkez12/natours-api/internal/user"
)

// memUsers is an in-memory UserStore.
type memUsers struct {
	mu    sync.Mutex
	users map[primitive.ObjectID]user.User
}

func newMemUsers() *memUsers {
	return &memUsers{users: map[primitive.ObjectID]user.User{}}
}

func notFound() error {
	return apperror.NotFound("No user found with that ID")
}

func (m *memUsers) add(u user.User) *user.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	m.users[u.ID] = u
	return &u
}

func (m *memUsers) get(id primitive.ObjectID) user.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.users[id]
}

func (m *memUsers) Create(_ context.Context, u *user.User) (*user.User, error) {
	for _, existing := range m.users {
		if existing.Email == u.Email {
			return nil, apperror.Conflict("email", "Duplicate field value")
		}
	}
	created := m.add(*u)
	created.Password = ""
	return created, nil
}

func (m *memUsers) GetByID(_ context.Context, id primitive.ObjectID, scope user.Scope) (*user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok || (scope == user.ScopeActive && !u.IsActive()) {
		return nil, notFound()
	}
	u.Password = ""
	return &u, nil
}

func (m *memUsers) GetByIDWithPassword(_ context.Context, id primitive.ObjectID) (*user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok || !u.IsActive() {
		return nil, notFound()
	}
	return &u, nil
}

func (m *memUsers) byEmail(email string) (*user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email && u.IsActive() {
			return &u, nil
		}
	}
	return nil, notFound()
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (*user.User, error) {
	u, err := m.byEmail(email)
	if err != nil {
		return nil, err
	}
	u.Password = ""
	return u, nil
}

func (m *memUsers) GetByEmailWithPassword(_ context.Context, email string) (*user.User, error) {
	return m.byEmail(email)
}

func (m *memUsers) FindByResetToken(_ context.Context, hash string, now time.Time) (*user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.PasswordResetToken == hash && u.PasswordResetExpires != nil && u.PasswordResetExpires.After(now) {
			return &u, nil
		}
	}
	return nil, notFound()
}

func (m *memUsers) SetResetToken(_ context.Context, id primitive.ObjectID, hash string, expires *time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return notFound()
	}
	if expires == nil {
		u.PasswordResetToken = ""
		u.PasswordResetExpires = nil
	} else {
		u.PasswordResetToken = hash
		u.PasswordResetExpires = expires
	}
	m.users[id] = u
	return nil
}

func (m *memUsers) UpdatePassword(_ context.Context, id primitive.ObjectID, hash string, changedAt *time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return notFound()
	}
	u.Password = hash
	u.PasswordChangedAt = changedAt
	u.PasswordResetToken = ""
	u.PasswordResetExpires = nil
	m.users[id] = u
	return nil
}

type sentMail struct {
	kind string
	to   string
	url  string
}

// memMailer records sent emails and optionally fails.
type memMailer struct {
	sent []sentMail
	fail bool
}

func (m *memMailer) SendWelcome(_ context.Context, to *user.User, url string) error {
	if m.fail {
		return errors.New("smtp unavailable")
	}
	m.sent = append(m.sent, sentMail{kind: "welcome", to: to.Email, url: url})
	return nil
}

func (m *memMailer) SendPasswordReset(_ context.Context, to *user.User, url string) error {
	if m.fail {
		return errors.New("smtp unavailable")
	}
	m.sent = append(m.sent, sentMail{kind: "reset", to: to.Email, url: url})
	return nil
}

// fakeClock is a settable time source.
type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time { return c.t }

func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }
