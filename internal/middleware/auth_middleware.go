package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	appAuth "github.com/yigit/coursereg/internal/app/auth"
	"github.com/yigit/coursereg/internal/app/models"
	"github.com/yigit/coursereg/internal/app/models/dto"
	"github.com/yigit/coursereg/internal/pkg/auth"
)

// AuthMiddleware for authentication and authorization
type AuthMiddleware struct {
	jwtService *auth.JWTService
}

// NewAuthMiddleware creates a new AuthMiddleware
func NewAuthMiddleware(jwtService *auth.JWTService) *AuthMiddleware {
	return &AuthMiddleware{
		jwtService: jwtService,
	}
}

// tokenFromRequest reads the bearer token from the Authorization header. The
// Swagger UI sometimes sends a raw JWT or puts it in the query string, so
// those forms are accepted too.
func tokenFromRequest(c *gin.Context) (string, error) {
	header := c.GetHeader("Authorization")
	if header == "" {
		header = c.Query("token")
	}
	if header == "" {
		return "", errNoToken
	}

	header = strings.Trim(strings.TrimSpace(header), "\"'")
	if strings.Count(header, ".") == 2 && !strings.Contains(header, " ") {
		return header, nil
	}
	return auth.ExtractBearerToken(header)
}

var errNoToken = errors.New("authorization header missing")

// identityFromClaims maps token claims onto the request identity.
func identityFromClaims(claims *auth.Claims) appAuth.Identity {
	roles := make([]models.RoleType, 0, len(claims.Roles))
	for _, r := range claims.Roles {
		roles = append(roles, models.RoleType(r))
	}
	return appAuth.Identity{
		UserID:   claims.UserID,
		Username: claims.Username,
		Roles:    roles,
		TokenID:  claims.ID,
	}
}

// JWTAuth middleware for JWT token validation
func (m *AuthMiddleware) JWTAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, err := tokenFromRequest(c)
		if err != nil {
			resp := dto.NewErrorResponse(dto.ErrorCodeUnauthorized, "Authentication required")
			if errors.Is(err, errNoToken) {
				resp.WithDetails("Authorization header missing")
			} else {
				resp.WithDetails("Invalid token format")
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, resp)
			return
		}

		claims, err := m.jwtService.ValidateAndExtractClaims(tokenString)
		if err != nil {
			code := dto.ErrorCodeInvalidToken
			details := "Invalid token"
			if errors.Is(err, auth.ErrExpiredToken) {
				code = dto.ErrorCodeExpiredToken
				details = "Token has expired"
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				dto.NewErrorResponse(code, "Authentication failed").WithDetails(details))
			return
		}

		appAuth.SetIdentity(c, identityFromClaims(claims))
		c.Next()
	}
}

// OptionalAuth attaches the identity when a valid token is present and
// otherwise lets the request through anonymously.
func (m *AuthMiddleware) OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if tokenString, err := tokenFromRequest(c); err == nil {
			if claims, err := m.jwtService.ValidateAndExtractClaims(tokenString); err == nil {
				appAuth.SetIdentity(c, identityFromClaims(claims))
			}
		}
		c.Next()
	}
}

// RoleRequired middleware to check if user has one of the required roles.
// It must run after JWTAuth.
func (m *AuthMiddleware) RoleRequired(roles ...models.RoleType) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := appAuth.IdentityFrom(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				dto.NewErrorResponse(dto.ErrorCodeUnauthorized, "Authentication required").WithDetails("User role not found"))
			return
		}

		if !id.HasAnyRole(roles...) {
			c.AbortWithStatusJSON(http.StatusForbidden,
				dto.NewErrorResponse(dto.ErrorCodeForbidden, "Access denied").
					WithDetails("You don't have sufficient permissions for this operation"))
			return
		}

		c.Next()
	}
}
