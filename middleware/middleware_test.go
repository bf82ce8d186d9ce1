package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"partnerdash/api/metrics"
	"partnerdash/api/models"
	"partnerdash/api/utils"
)

func newRouter(m *metrics.Metrics) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestMetrics(m), CORSMiddleware("http://localhost:3000"))
	protected := r.Group("/", AuthRequired("svc-key", nil))
	protected.GET("/me", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"role": c.GetString(KeyUserRole)})
	})
	protected.GET("/admin", RequireRole(models.RoleAdmin), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return r
}

func do(r http.Handler, method, path string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthRequired(t *testing.T) {
	utils.ConfigureJWT("mw-secret")
	r := newRouter(nil)

	assert.Equal(t, http.StatusUnauthorized, do(r, http.MethodGet, "/me", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, http.MethodGet, "/me", map[string]string{"Authorization": "Bearer junk"}).Code)

	token, err := utils.GenerateJWT(&models.User{ID: 3, Email: "bp@example.com", Role: models.RoleBrandPartner})
	require.NoError(t, err)
	w := do(r, http.MethodGet, "/me", map[string]string{"Authorization": "Bearer " + token})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"role":"brand_partner"}`, w.Body.String())

	assert.Equal(t, http.StatusForbidden, do(r, http.MethodGet, "/admin", map[string]string{"Authorization": "Bearer " + token}).Code)
	assert.Equal(t, http.StatusNoContent, do(r, http.MethodGet, "/admin", map[string]string{"X-API-KEY": "svc-key"}).Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, http.MethodGet, "/admin", map[string]string{"X-API-KEY": "wrong"}).Code)
}

func TestCORSPreflight(t *testing.T) {
	r := newRouter(nil)
	w := do(r, http.MethodOptions, "/me", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), "X-Session-ID")
}

func TestRequestMetrics(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	r := newRouter(m)
	do(r, http.MethodGet, "/me", nil)
	assert.Equal(t, 1, testutil.CollectAndCount(m.RequestDuration))
}
