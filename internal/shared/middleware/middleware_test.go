package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"stablehub/internal/access"
	"stablehub/internal/shared/config"
	"stablehub/internal/users"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuthRouter(cfg *config.Config) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/me", JWTAuthWithConfig(cfg), func(c *gin.Context) {
		actor, ok := RequireActor(c)
		if !ok {
			return
		}
		c.JSON(http.StatusOK, actor)
	})
	return r
}

func call(r *gin.Engine, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestJWTAuthResolvesActor(t *testing.T) {
	cfg := &config.Config{JWT: config.JWTConfig{Secret: "s3cret", Issuer: "stablehub"}}
	actor := access.Actor{ID: uuid.New(), Role: users.RoleAdmin, Email: "admin@example.com"}

	token, err := IssueAccessToken(cfg.JWT, actor, time.Minute)
	require.NoError(t, err)

	w := call(newAuthRouter(cfg), "Bearer "+token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), actor.ID.String())
	// display name falls back to the email
	assert.Contains(t, w.Body.String(), `"displayName":"admin@example.com"`)
}

func TestJWTAuthRejects(t *testing.T) {
	cfg := &config.Config{JWT: config.JWTConfig{Secret: "s3cret", Issuer: "stablehub"}}
	actor := access.Actor{ID: uuid.New(), Role: users.RoleUser, Email: "rider@example.com"}

	expired, err := IssueAccessToken(cfg.JWT, actor, -time.Minute)
	require.NoError(t, err)
	forged, err := IssueAccessToken(config.JWTConfig{Secret: "other"}, actor, time.Minute)
	require.NoError(t, err)

	r := newAuthRouter(cfg)
	for name, header := range map[string]string{
		"missing":   "",
		"no bearer": "Token abc",
		"garbage":   "Bearer not-a-jwt",
		"expired":   "Bearer " + expired,
		"forged":    "Bearer " + forged,
	} {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, http.StatusUnauthorized, call(r, header).Code)
		})
	}
}

func TestUnknownRoleBecomesUser(t *testing.T) {
	cfg := &config.Config{JWT: config.JWTConfig{Secret: "s3cret"}}
	token, err := IssueAccessToken(cfg.JWT, access.Actor{ID: uuid.New(), Role: "ROOT", Email: "x@example.com"}, time.Minute)
	require.NoError(t, err)

	w := call(newAuthRouter(cfg), "Bearer "+token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"role":"USER"`)
}
