package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yigit/coursereg/internal/app/models/dto"
	"github.com/yigit/coursereg/internal/pkg/apperrors"
	"github.com/yigit/coursereg/internal/pkg/logger"
)

type errorMapping struct {
	err    error
	status int
	code   dto.ErrorCode
}

// errorMappings is checked in order; the first sentinel found in the error
// chain decides the response.
var errorMappings = []errorMapping{
	// Enrollment rules
	{apperrors.ErrCourseClosed, http.StatusBadRequest, dto.ErrorCodeCourseClosed},
	{apperrors.ErrCourseFull, http.StatusBadRequest, dto.ErrorCodeCourseFull},
	{apperrors.ErrAlreadyEnrolled, http.StatusBadRequest, dto.ErrorCodeAlreadyEnrolled},
	{apperrors.ErrAlreadyPassed, http.StatusBadRequest, dto.ErrorCodeAlreadyPassed},
	{apperrors.ErrTimeConflict, http.StatusBadRequest, dto.ErrorCodeTimeConflict},
	{apperrors.ErrNotEnrolled, http.StatusBadRequest, dto.ErrorCodeNotEnrolled},

	// Not found
	{apperrors.ErrCourseNotFound, http.StatusNotFound, dto.ErrorCodeResourceNotFound},
	{apperrors.ErrUserNotFound, http.StatusNotFound, dto.ErrorCodeResourceNotFound},
	{apperrors.ErrTeacherNotFound, http.StatusNotFound, dto.ErrorCodeResourceNotFound},
	{apperrors.ErrEnrollmentNotFound, http.StatusNotFound, dto.ErrorCodeResourceNotFound},
	{apperrors.ErrResourceNotFound, http.StatusNotFound, dto.ErrorCodeResourceNotFound},

	// Authentication
	{apperrors.ErrInvalidCredentials, http.StatusUnauthorized, dto.ErrorCodeInvalidCredentials},
	{apperrors.ErrAccountDisabled, http.StatusUnauthorized, dto.ErrorCodeAccountDisabled},
	{apperrors.ErrUnauthenticated, http.StatusUnauthorized, dto.ErrorCodeUnauthorized},
	{apperrors.ErrTokenExpired, http.StatusUnauthorized, dto.ErrorCodeExpiredToken},
	{apperrors.ErrTokenInvalid, http.StatusUnauthorized, dto.ErrorCodeInvalidToken},
	{apperrors.ErrTokenNotFound, http.StatusUnauthorized, dto.ErrorCodeTokenNotFound},
	{apperrors.ErrTokenRevoked, http.StatusUnauthorized, dto.ErrorCodeInvalidToken},
	{apperrors.ErrPermissionDenied, http.StatusForbidden, dto.ErrorCodeForbidden},

	// Conflicts with existing data
	{apperrors.ErrUsernameExists, http.StatusBadRequest, dto.ErrorCodeResourceAlreadyExists},
	{apperrors.ErrStudentIDExists, http.StatusBadRequest, dto.ErrorCodeResourceAlreadyExists},
	{apperrors.ErrCourseCodeExists, http.StatusBadRequest, dto.ErrorCodeResourceAlreadyExists},
	{apperrors.ErrResourceAlreadyExists, http.StatusBadRequest, dto.ErrorCodeResourceAlreadyExists},
	{apperrors.ErrUserHasEnrollment, http.StatusBadRequest, dto.ErrorCodeConflict},
	{apperrors.ErrTeacherHasCourses, http.StatusBadRequest, dto.ErrorCodeConflict},
	{apperrors.ErrConflict, http.StatusBadRequest, dto.ErrorCodeConflict},

	// Validation
	{apperrors.ErrInvalidPassword, http.StatusBadRequest, dto.ErrorCodeInvalidPassword},
	{apperrors.ErrValidationFailed, http.StatusBadRequest, dto.ErrorCodeValidationFailed},
	{apperrors.ErrBadRequest, http.StatusBadRequest, dto.ErrorCodeValidationFailed},
}

// HandleAPIError writes the response for err. Known errors keep their
// message; anything else is logged and reported as an opaque 500.
func HandleAPIError(c *gin.Context, err error) {
	for _, m := range errorMappings {
		if errors.Is(err, m.err) {
			resp := dto.NewErrorResponse(m.code, apperrors.MessageOf(err))
			if details := apperrors.DetailsOf(err); details != nil {
				resp.WithDetails(details)
			}
			c.AbortWithStatusJSON(m.status, resp)
			return
		}
	}

	logger.Ctx(c.Request.Context()).Error().
		Err(err).
		Str("method", c.Request.Method).
		Str("path", c.FullPath()).
		Msg("Unhandled error")
	_ = c.Error(err)
	c.AbortWithStatusJSON(http.StatusInternalServerError,
		dto.NewErrorResponse(dto.ErrorCodeInternalServer, "Internal server error"))
}

// HandleBindError reports a request that failed binding or validation.
func HandleBindError(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, dto.HandleValidationError(err))
}
