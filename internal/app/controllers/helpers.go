// Package controllers handles HTTP request handling
package controllers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	appAuth "github.com/yigit/coursereg/internal/app/auth"
	"github.com/yigit/coursereg/internal/pkg/apperrors"
	"github.com/yigit/coursereg/internal/pkg/logger"
	"github.com/yigit/coursereg/internal/middleware"
)

// parseIDParam reads a positive integer path parameter. On failure the
// error response has already been written.
func parseIDParam(ctx *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(ctx.Param(name), 10, 64)
	if err != nil || id <= 0 {
		middleware.HandleAPIError(ctx, apperrors.NewBadRequestError("invalid "+name+": must be a positive integer"))
		return 0, false
	}
	return id, true
}

// requireIdentity returns the authenticated caller. On failure the error
// response has already been written.
func requireIdentity(ctx *gin.Context) (appAuth.Identity, bool) {
	id, err := appAuth.MustIdentity(ctx)
	if err != nil {
		logger.Ctx(ctx.Request.Context()).Warn().Str("path", ctx.FullPath()).Msg("Identity missing on authenticated route")
		middleware.HandleAPIError(ctx, err)
		return appAuth.Identity{}, false
	}
	return id, true
}
