package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"storefront-backend/internal/auth"
	"storefront-backend/internal/models"
	"storefront-backend/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// stubUserStore keeps users by email, the way registration and login
// exercise the repository.
type stubUserStore struct {
	byEmail map[string]*models.User
	nextID  int
}

func newStubUserStore() *stubUserStore {
	return &stubUserStore{byEmail: map[string]*models.User{}, nextID: 1}
}

func (s *stubUserStore) Create(_ context.Context, u *models.User) error {
	if _, exists := s.byEmail[u.Email]; exists {
		return repository.ErrUserExists
	}
	u.UserID = s.nextID
	s.nextID++
	s.byEmail[u.Email] = u
	return nil
}

func (s *stubUserStore) GetByID(_ context.Context, id int) (*models.User, error) {
	for _, u := range s.byEmail {
		if u.UserID == id {
			return u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *stubUserStore) GetByEmail(_ context.Context, email string) (*models.User, error) {
	u, ok := s.byEmail[email]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return u, nil
}

func newAuthHandler(t *testing.T, users repository.UserRepository) *AuthHandler {
	t.Helper()
	tm, err := auth.NewTokenManager("test-secret")
	require.NoError(t, err)
	return NewAuthHandler(users, tm)
}

func postJSON(h http.HandlerFunc, path, body string) *httptest.ResponseRecorder {
	r := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	w := httptest.NewRecorder()
	h(w, r)
	return w
}

func TestRegister(t *testing.T) {
	t.Run("creates customer and returns token", func(t *testing.T) {
		users := newStubUserStore()
		h := newAuthHandler(t, users)

		w := postJSON(h.Register, "/api/auth/register",
			`{"full_name":"Ana García","email":"ana@example.com","password":"secret1"}`)

		require.Equal(t, http.StatusCreated, w.Code)

		var resp AuthResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.NotEmpty(t, resp.Token)
		assert.Equal(t, models.RoleCustomer, resp.User.Role)
		assert.NotContains(t, w.Body.String(), "PasswordHash")

		stored := users.byEmail["ana@example.com"]
		require.NotNil(t, stored)
		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("secret1")))
	})

	t.Run("short password rejected", func(t *testing.T) {
		h := newAuthHandler(t, newStubUserStore())

		w := postJSON(h.Register, "/api/auth/register",
			`{"full_name":"Ana","email":"ana@example.com","password":"123"}`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("duplicate email conflicts", func(t *testing.T) {
		users := newStubUserStore()
		h := newAuthHandler(t, users)

		body := `{"full_name":"Ana García","email":"ana@example.com","password":"secret1"}`
		require.Equal(t, http.StatusCreated, postJSON(h.Register, "/api/auth/register", body).Code)

		w := postJSON(h.Register, "/api/auth/register", body)
		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Contains(t, w.Body.String(), "user_exists")
	})
}

func TestLogin(t *testing.T) {
	users := newStubUserStore()
	hash, err := bcrypt.GenerateFromPassword([]byte("secret1"), bcryptCost)
	require.NoError(t, err)
	require.NoError(t, users.Create(context.Background(), &models.User{
		FullName:     "Ana García",
		Email:        "ana@example.com",
		PasswordHash: string(hash),
		Role:         models.RoleCustomer,
	}))

	h := newAuthHandler(t, users)

	t.Run("valid credentials", func(t *testing.T) {
		w := postJSON(h.Login, "/api/auth/login",
			`{"email":"ana@example.com","password":"secret1"}`)

		require.Equal(t, http.StatusOK, w.Code)

		var resp AuthResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.NotEmpty(t, resp.Token)
		assert.Equal(t, "ana@example.com", resp.User.Email)
	})

	t.Run("wrong password", func(t *testing.T) {
		w := postJSON(h.Login, "/api/auth/login",
			`{"email":"ana@example.com","password":"wrong99"}`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "invalid_credentials")
	})

	t.Run("unknown email gets the same response", func(t *testing.T) {
		w := postJSON(h.Login, "/api/auth/login",
			`{"email":"nobody@example.com","password":"secret1"}`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "invalid_credentials")
	})
}
