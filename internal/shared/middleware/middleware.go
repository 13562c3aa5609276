package middleware

import (
	"net/http"
	"strings"
	"time"

	"stablehub/internal/access"
	"stablehub/internal/shared/config"
	"stablehub/internal/shared/utils/response"
	"stablehub/internal/users"
	"stablehub/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

const actorKey = "actor"

// AccessClaims is the payload of an access token issued by the identity provider.
type AccessClaims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	Name   string `json:"name,omitempty"`
	Type   string `json:"type"`
	jwt.RegisteredClaims
}

// IssueAccessToken signs an access token for actor.
func IssueAccessToken(cfg config.JWTConfig, actor access.Actor, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := AccessClaims{
		UserID: actor.ID.String(),
		Email:  actor.Email,
		Role:   string(actor.Role),
		Name:   actor.DisplayName,
		Type:   "access",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    cfg.Issuer,
			Subject:   actor.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.Secret))
}

// JWTAuthWithConfig validates the bearer token and stores the resolved actor
// in the gin context.
func JWTAuthWithConfig(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			reject(c, "Authorization header is required")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			reject(c, "authorization header format must be Bearer {token}")
			return
		}

		claims := &AccessClaims{}
		token, err := jwt.ParseWithClaims(parts[1], claims, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(cfg.JWT.Secret), nil
		})
		if err != nil || !token.Valid {
			reject(c, "invalid or expired token")
			return
		}

		if claims.Type != "access" {
			reject(c, "invalid token type")
			return
		}

		userID, err := uuid.Parse(claims.UserID)
		if err != nil {
			reject(c, "invalid user id in token")
			return
		}

		role := users.RoleUser
		if users.IsValidRole(claims.Role) {
			role = users.Role(claims.Role)
		}
		name := claims.Name
		if name == "" {
			name = claims.Email
		}

		c.Set("user_id", claims.UserID)
		c.Set("user_email", claims.Email)
		c.Set("user_role", string(role))
		c.Set(actorKey, access.Actor{ID: userID, Role: role, Email: claims.Email, DisplayName: name})

		c.Next()
	}
}

func reject(c *gin.Context, reason string) {
	logger.GetDefault().LogAuthFailure(c.Request.Context(), reason, c.ClientIP())
	response.RespondJSON(c, "error", http.StatusUnauthorized, reason, nil, nil)
	c.Abort()
}

// ActorFromContext returns the actor stored by JWTAuth.
func ActorFromContext(c *gin.Context) (access.Actor, bool) {
	v, ok := c.Get(actorKey)
	if !ok {
		return access.Actor{}, false
	}
	actor, ok := v.(access.Actor)
	return actor, ok
}

// RequireActor aborts with 401 when no actor was resolved. It returns false
// when the handler must stop.
func RequireActor(c *gin.Context) (access.Actor, bool) {
	actor, ok := ActorFromContext(c)
	if !ok {
		response.RespondJSON(c, "error", http.StatusUnauthorized, "User not authenticated", nil, nil)
		c.Abort()
	}
	return actor, ok
}
