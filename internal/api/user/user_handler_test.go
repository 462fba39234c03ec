package user

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/sports-card-catalog/internal/types"
)

// MockUserService is a mock implementation of the UserService interface
type MockUserService struct {
	mock.Mock
}

func (m *MockUserService) Register(ctx context.Context, email, username, password string) (*types.User, error) {
	args := m.Called(ctx, email, username, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.User), args.Error(1)
}

func (m *MockUserService) Login(ctx context.Context, username, password string) (*types.PublicUser, error) {
	args := m.Called(ctx, username, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.PublicUser), args.Error(1)
}

func (m *MockUserService) GetUser(ctx context.Context, userID int64) (*types.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.User), args.Error(1)
}

func (m *MockUserService) DeleteUser(ctx context.Context, userID int64) (*types.UserDeletion, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.UserDeletion), args.Error(1)
}

func setupUserRouter() (*chi.Mux, *MockUserService) {
	service := new(MockUserService)
	h := NewHandlerImpl(service, slog.New(slog.NewTextHandler(io.Discard, nil)))
	r := chi.NewRouter()
	r.Post("/users/register", h.Register)
	r.Post("/users/login", h.Login)
	r.Get("/users/{id}", h.GetUser)
	r.Delete("/users/{id}", h.DeleteUser)
	return r, service
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestHandler_Register(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		r, service := setupUserRouter()
		created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
		service.On("Register", mock.Anything, "a@example.com", "alice", "pw").
			Return(&types.User{ID: 1, Email: "a@example.com", Username: "alice", PasswordHash: "h", CreatedAt: created}, nil).Once()

		rr := do(t, r, http.MethodPost, "/users/register", types.RegisterRequest{Email: "a@example.com", Username: "alice", Password: "pw"})

		assert.Equal(t, http.StatusOK, rr.Code)
		var body map[string]any
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
		assert.Equal(t, float64(1), body["id"])
		assert.Equal(t, "alice", body["username"])
		assert.Equal(t, "2026-01-02T03:04:05Z", body["createdAt"])
		assert.NotContains(t, body, "PasswordHash")
		assert.NotContains(t, body, "password_hash")
		service.AssertExpectations(t)
	})

	t.Run("DuplicateEmail", func(t *testing.T) {
		r, service := setupUserRouter()
		service.On("Register", mock.Anything, "a@example.com", "alice", "pw").Return(nil, types.ErrConflict).Once()

		rr := do(t, r, http.MethodPost, "/users/register", types.RegisterRequest{Email: "a@example.com", Username: "alice", Password: "pw"})

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Contains(t, rr.Body.String(), "Email already registered")
	})

	t.Run("UnknownField", func(t *testing.T) {
		r, service := setupUserRouter()

		rr := do(t, r, http.MethodPost, "/users/register", map[string]string{"email": "a@example.com", "role": "admin"})

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		service.AssertNotCalled(t, "Register", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestHandler_Login(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		r, service := setupUserRouter()
		service.On("Login", mock.Anything, "alice", "pw").
			Return(&types.PublicUser{ID: 1, Username: "alice", Email: "a@example.com"}, nil).Once()

		rr := do(t, r, http.MethodPost, "/users/login", types.LoginRequest{Username: "alice", Password: "pw"})

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `{"id":1,"username":"alice","email":"a@example.com"}`, rr.Body.String())
	})

	t.Run("MissingFields", func(t *testing.T) {
		r, service := setupUserRouter()

		rr := do(t, r, http.MethodPost, "/users/login", types.LoginRequest{Username: "alice"})

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		service.AssertNotCalled(t, "Login", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("InvalidCredentials", func(t *testing.T) {
		r, service := setupUserRouter()
		service.On("Login", mock.Anything, "alice", "bad").Return(nil, types.ErrUnauthenticated).Once()

		rr := do(t, r, http.MethodPost, "/users/login", types.LoginRequest{Username: "alice", Password: "bad"})

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		var body map[string]any
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
		assert.Equal(t, false, body["success"])
	})
}

func TestHandler_GetUser(t *testing.T) {
	r, service := setupUserRouter()
	service.On("GetUser", mock.Anything, int64(7)).Return(&types.User{ID: 7, Username: "g"}, nil).Once()
	service.On("GetUser", mock.Anything, int64(8)).Return(nil, types.ErrNotFound).Once()

	assert.Equal(t, http.StatusOK, do(t, r, http.MethodGet, "/users/7", nil).Code)
	assert.Equal(t, http.StatusNotFound, do(t, r, http.MethodGet, "/users/8", nil).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, r, http.MethodGet, "/users/abc", nil).Code)
	service.AssertExpectations(t)
}

func TestHandler_DeleteUser(t *testing.T) {
	r, service := setupUserRouter()
	service.On("DeleteUser", mock.Anything, int64(3)).
		Return(&types.UserDeletion{User: types.User{ID: 3}, DeletedCardCount: 4}, nil).Once()
	service.On("DeleteUser", mock.Anything, int64(9)).Return(nil, types.ErrNotFound).Once()

	rr := do(t, r, http.MethodDelete, "/users/3", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"message":"User 3 and 4 associated cards deleted successfully"}`, rr.Body.String())

	assert.Equal(t, http.StatusNotFound, do(t, r, http.MethodDelete, "/users/9", nil).Code)
	service.AssertExpectations(t)
}
