// Package auth carries the authenticated caller through a request.
package auth

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/yigit/coursereg/internal/app/models"
	"github.com/yigit/coursereg/internal/pkg/apperrors"
)

// Identity is the request-scoped view of the authenticated user, built from
// the access token claims.
type Identity struct {
	UserID   int64
	Username string
	Roles    []models.RoleType
	TokenID  string
}

// HasRole reports whether the identity holds role.
func (i Identity) HasRole(role models.RoleType) bool {
	for _, r := range i.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// HasAnyRole reports whether the identity holds at least one of roles.
func (i Identity) HasAnyRole(roles ...models.RoleType) bool {
	for _, r := range roles {
		if i.HasRole(r) {
			return true
		}
	}
	return false
}

type identityKey struct{}

// ginIdentityKey is where the middleware stores the identity on gin.Context.
const ginIdentityKey = "identity"

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// SetIdentity attaches id to both the gin context and its request context so
// services called with c.Request.Context() see the same caller.
func SetIdentity(c *gin.Context, id Identity) {
	c.Set(ginIdentityKey, id)
	c.Request = c.Request.WithContext(WithIdentity(c.Request.Context(), id))
}

// IdentityFrom returns the caller stored in ctx. It accepts a *gin.Context or
// any context derived from a request that went through the auth middleware.
func IdentityFrom(ctx context.Context) (Identity, bool) {
	if c, ok := ctx.(*gin.Context); ok {
		if v, exists := c.Get(ginIdentityKey); exists {
			id, ok := v.(Identity)
			return id, ok
		}
		if c.Request == nil {
			return Identity{}, false
		}
		ctx = c.Request.Context()
	}
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok
}

// MustIdentity is IdentityFrom for handlers behind the auth middleware. A
// missing identity is reported as ErrUnauthenticated.
func MustIdentity(ctx context.Context) (Identity, error) {
	id, ok := IdentityFrom(ctx)
	if !ok || id.UserID <= 0 {
		return Identity{}, apperrors.ErrUnauthenticated
	}
	return id, nil
}
