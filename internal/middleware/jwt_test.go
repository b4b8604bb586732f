package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/classtrack/classtrack-api/internal/models"
	"github.com/classtrack/classtrack-api/internal/service"
)

const testSecret = "middleware-test-secret"

func newTestAuthService() *service.AuthService {
	return service.NewAuthService(nil, nil, nil, zap.NewNop(), service.AuthConfig{
		Secret:     testSecret,
		Expiration: time.Hour,
		Issuer:     "classtrack",
	})
}

func signedToken(t *testing.T, role string, userID int64) string {
	t.Helper()
	now := time.Now().UTC()
	claims := &models.JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "classtrack",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
		Role:   role,
		UserID: userID,
		Name:   "Test User",
	}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return raw
}

func runProtected(t *testing.T, authHeader string, handlers ...gin.HandlerFunc) (*httptest.ResponseRecorder, bool) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	_, r := gin.CreateTestContext(rec)

	reached := false
	chain := append(handlers, func(c *gin.Context) {
		reached = true
		c.Status(http.StatusOK)
	})
	r.GET("/protected", chain...)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	r.ServeHTTP(rec, req)
	return rec, reached
}

func TestJWTMissingHeader(t *testing.T) {
	rec, reached := runProtected(t, "", JWT(newTestAuthService()))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, reached)
}

func TestJWTMalformedHeader(t *testing.T) {
	rec, reached := runProtected(t, "Basic abc123", JWT(newTestAuthService()))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, reached)
}

func TestJWTInvalidToken(t *testing.T) {
	rec, reached := runProtected(t, "Bearer not-a-token", JWT(newTestAuthService()))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, reached)
}

func TestJWTValidToken(t *testing.T) {
	token := signedToken(t, models.RoleStudent, 11)
	rec, reached := runProtected(t, "Bearer "+token, JWT(newTestAuthService()))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, reached)
}

func TestRequireRolesAllows(t *testing.T) {
	token := signedToken(t, models.RoleTeacher, 3)
	rec, reached := runProtected(t, "Bearer "+token,
		JWT(newTestAuthService()), RequireRoles(models.RoleTeacher))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, reached)
}

func TestRequireRolesBlocksWrongRole(t *testing.T) {
	token := signedToken(t, models.RoleStudent, 11)
	rec, reached := runProtected(t, "Bearer "+token,
		JWT(newTestAuthService()), RequireRoles(models.RoleTeacher))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.False(t, reached)
}

func TestRequireRolesWithoutClaims(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	_, r := gin.CreateTestContext(rec)
	r.GET("/protected", RequireRoles(models.RoleTeacher), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/protected", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
