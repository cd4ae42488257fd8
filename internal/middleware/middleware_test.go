package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/lalith-99/boardsync/internal/auth"
	"github.com/lalith-99/boardsync/internal/models"
	"github.com/lalith-99/boardsync/internal/repository/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const secret = "mw-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

func newRouter(handlers ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(handlers...)
	r.GET("/whoami", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": GetUserID(c).String(), "email": GetEmail(c)})
	})
	return r
}

func TestAuthMiddleware(t *testing.T) {
	userID := uuid.New()
	token, err := auth.GenerateToken(userID, "a@example.com", models.GlobalUser, secret, time.Hour)
	require.NoError(t, err)

	r := newRouter(AuthMiddleware(secret))

	tests := []struct {
		name   string
		url    string
		header string
		status int
	}{
		{"bearer header", "/whoami", "Bearer " + token, http.StatusOK},
		{"query token", "/whoami?access_token=" + token, "", http.StatusOK},
		{"missing", "/whoami", "", http.StatusUnauthorized},
		{"wrong scheme", "/whoami", "Basic " + token, http.StatusUnauthorized},
		{"garbage token", "/whoami", "Bearer nope", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.url, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.status, w.Code)
			if tt.status == http.StatusOK {
				assert.Contains(t, w.Body.String(), userID.String())
			}
		})
	}
}

func TestBanMiddleware(t *testing.T) {
	ctx := context.Background()
	repos := memory.New()
	u, err := repos.Users.Create(ctx, "b@example.com", "B", "hash")
	require.NoError(t, err)

	token, err := auth.GenerateToken(u.ID, u.Email, u.Role, secret, time.Hour)
	require.NoError(t, err)
	r := newRouter(AuthMiddleware(secret), BanMiddleware(repos.Users, zap.NewNop()))

	do := func() int {
		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, do())
	require.NoError(t, repos.Users.SetBanned(ctx, u.ID, true))
	assert.Equal(t, http.StatusForbidden, do())
}

func TestRequestLoggerEchoesRequestID(t *testing.T) {
	r := newRouter(RequestLogger(zap.NewNop()))

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set(HeaderRequestID, "abc123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "abc123", w.Header().Get(HeaderRequestID))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/whoami", nil))
	assert.NotEmpty(t, w.Header().Get(HeaderRequestID))
}
