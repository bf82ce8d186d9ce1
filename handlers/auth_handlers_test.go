package handlers

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"partnerdash/api/models"
	"partnerdash/api/store"
	"partnerdash/api/utils"
)

type memoryUsers struct {
	mu    sync.Mutex
	users map[string]*models.User
}

func (m *memoryUsers) CreateUser(_ context.Context, email, role string, hashed []byte) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[email]; ok {
		return nil, fmt.Errorf("%w: %s", store.ErrUserExists, email)
	}
	u := &models.User{ID: len(m.users) + 1, Email: email, Role: role, HashedPassword: hashed}
	m.users[email] = u
	return u, nil
}

func (m *memoryUsers) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[email]
	if !ok {
		return nil, fmt.Errorf("%w: %s", store.ErrUserNotFound, email)
	}
	return u, nil
}

func postJSON(r http.Handler, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestSignupAndLogin(t *testing.T) {
	gin.SetMode(gin.TestMode)
	utils.ConfigureJWT("auth-test")
	users := &memoryUsers{users: map[string]*models.User{}}
	h := NewAuthHandlers(users, func(email string) bool { return email == "ops@example.com" }, nil)

	r := gin.New()
	r.POST("/signup", h.Signup)
	r.POST("/login", h.Login)

	w := postJSON(r, "/signup", `{"email":"partner@example.com","password":"longenough"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), models.RoleBrandPartner)

	w = postJSON(r, "/signup", `{"email":"partner@example.com","password":"longenough"}`)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = postJSON(r, "/signup", `{"email":"ops@example.com","password":"longenough"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), models.RoleAdmin)

	w = postJSON(r, "/signup", `{"email":"bad","password":"short"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = postJSON(r, "/login", `{"email":"partner@example.com","password":"wrong-password"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = postJSON(r, "/login", `{"email":"partner@example.com","password":"longenough"}`)
	require.Equal(t, http.StatusOK, w.Code)
	var token string
	for _, c := range w.Result().Cookies() {
		if c.Name == "jwt_token" {
			token = c.Value
		}
	}
	require.NotEmpty(t, token)
	claims, err := utils.ValidateJWT(token)
	require.NoError(t, err)
	assert.Equal(t, models.RoleBrandPartner, claims.Role)
}
