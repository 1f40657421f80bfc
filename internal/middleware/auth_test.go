package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"field-smart-go/pkg/token"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuthRouter(jwtManager *token.JWTManager) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/me", AuthMiddleware(jwtManager), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"userId": UserID(c), "role": Role(c)})
	})
	return r
}

func TestAuthMiddlewareValidToken(t *testing.T) {
	jwtManager := token.NewJWTManager("test-secret", 1)
	router := newAuthRouter(jwtManager)

	tokenString, err := jwtManager.GenerateToken(42, token.RoleTechnician)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+tokenString)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"userId":42`)
	assert.Contains(t, w.Body.String(), `"role":"technician"`)
}

func TestAuthMiddlewareRejectsBadRequests(t *testing.T) {
	jwtManager := token.NewJWTManager("test-secret", 1)
	router := newAuthRouter(jwtManager)

	otherManager := token.NewJWTManager("another-secret", 1)
	forged, err := otherManager.GenerateToken(42, token.RoleAdmin)
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
	}{
		{"缺少授权头", ""},
		{"缺少 Bearer 前缀", "just-a-token"},
		{"非法 token", "Bearer not.a.jwt"},
		{"错误密钥签名", "Bearer " + forged},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			router.ServeHTTP(w, req)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}
}
