package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/yigit/coursereg/internal/app/models"
	"github.com/yigit/coursereg/internal/app/models/dto"
	"github.com/yigit/coursereg/internal/app/services"
	"github.com/yigit/coursereg/internal/middleware"
)

// EnrollmentController serves a student's registration actions
type EnrollmentController struct {
	enrollmentService services.EnrollmentService
	favoriteService   services.FavoriteService
	creditService     services.CreditService
	logger            zerolog.Logger
}

// NewEnrollmentController creates a new EnrollmentController
func NewEnrollmentController(
	enrollmentService services.EnrollmentService,
	favoriteService services.FavoriteService,
	creditService services.CreditService,
	logger zerolog.Logger,
) *EnrollmentController {
	return &EnrollmentController{
		enrollmentService: enrollmentService,
		favoriteService:   favoriteService,
		creditService:     creditService,
		logger:            logger,
	}
}

// Enroll handles course enrollment
// @Summary Enroll in a course
// @Description Takes a seat in the offering. Fails when the course is closed or full, the student is already enrolled or has passed it, or the schedule overlaps an enrolled course.
// @Tags enrollment
// @Produce json
// @Security BearerAuth
// @Param id path int true "Course ID"
// @Success 200 {object} dto.EnrollmentResponse "Enrolled"
// @Failure 400 {object} dto.ErrorResponse "Enrollment rule violated"
// @Failure 401 {object} dto.ErrorResponse "Unauthorized"
// @Failure 404 {object} dto.ErrorResponse "Course not found"
// @Router /courses/{id}/enroll [post]
func (c *EnrollmentController) Enroll(ctx *gin.Context) {
	id, ok := requireIdentity(ctx)
	if !ok {
		return
	}
	courseID, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}

	course, err := c.enrollmentService.Enroll(ctx.Request.Context(), id.UserID, courseID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.EnrollmentResponse{Message: "Enrolled", CourseName: course.CourseName})
}

// Drop handles dropping a course
// @Summary Drop a course
// @Tags enrollment
// @Produce json
// @Security BearerAuth
// @Param id path int true "Course ID"
// @Success 200 {object} dto.EnrollmentResponse "Dropped"
// @Failure 400 {object} dto.ErrorResponse "Not enrolled"
// @Failure 401 {object} dto.ErrorResponse "Unauthorized"
// @Failure 404 {object} dto.ErrorResponse "Course not found"
// @Router /courses/{id}/drop [post]
func (c *EnrollmentController) Drop(ctx *gin.Context) {
	id, ok := requireIdentity(ctx)
	if !ok {
		return
	}
	courseID, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}

	course, err := c.enrollmentService.Drop(ctx.Request.Context(), id.UserID, courseID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.EnrollmentResponse{Message: "Dropped", CourseName: course.CourseName})
}

// ToggleFavorite adds or removes a course from the caller's favorites
// @Summary Toggle favorite
// @Tags enrollment
// @Produce json
// @Security BearerAuth
// @Param id path int true "Course ID"
// @Success 200 {object} dto.FavoriteResponse "Favorite state"
// @Failure 401 {object} dto.ErrorResponse "Unauthorized"
// @Failure 404 {object} dto.ErrorResponse "Course not found"
// @Router /courses/{id}/favorite [post]
func (c *EnrollmentController) ToggleFavorite(ctx *gin.Context) {
	id, ok := requireIdentity(ctx)
	if !ok {
		return
	}
	courseID, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}

	resp, err := c.favoriteService.Toggle(ctx.Request.Context(), id.UserID, courseID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, resp)
}

// Favorites lists the caller's favorite courses
// @Summary List favorites
// @Tags enrollment
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.CourseListResponse "Favorite courses"
// @Failure 401 {object} dto.ErrorResponse "Unauthorized"
// @Router /courses/favorites [get]
func (c *EnrollmentController) Favorites(ctx *gin.Context) {
	id, ok := requireIdentity(ctx)
	if !ok {
		return
	}

	resp, err := c.favoriteService.List(ctx.Request.Context(), id.UserID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, resp)
}

// Enrolled lists the courses the caller is enrolled in for a term
// @Summary List enrolled courses
// @Description Defaults to the current term
// @Tags enrollment
// @Produce json
// @Security BearerAuth
// @Param academic_year query int false "Academic year"
// @Param semester query int false "Semester (1 or 2)"
// @Success 200 {object} dto.CourseListResponse "Enrolled courses with total credits"
// @Failure 401 {object} dto.ErrorResponse "Unauthorized"
// @Router /courses/enrolled [get]
func (c *EnrollmentController) Enrolled(ctx *gin.Context) {
	id, ok := requireIdentity(ctx)
	if !ok {
		return
	}

	var query dto.EnrolledQuery
	if err := ctx.ShouldBindQuery(&query); err != nil {
		middleware.HandleBindError(ctx, err)
		return
	}
	term := c.creditService.CurrentTerm()
	if query.AcademicYear != 0 {
		term.AcademicYear = query.AcademicYear
	}
	if query.Semester != 0 {
		term.Semester = query.Semester
	}

	resp, err := c.creditService.EnrolledCourses(ctx.Request.Context(), id.UserID, term)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, resp)
}

// CreditSummary reports the caller's earned and current credits
// @Summary Credit summary
// @Description total_credits sums passed courses from earlier terms; semester_credits sums the current term's enrolled courses
// @Tags enrollment
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.CreditSummaryResponse "Credit summary"
// @Failure 401 {object} dto.ErrorResponse "Unauthorized"
// @Router /user/credit-summary [get]
func (c *EnrollmentController) CreditSummary(ctx *gin.Context) {
	id, ok := requireIdentity(ctx)
	if !ok {
		return
	}

	resp, err := c.creditService.Summary(ctx.Request.Context(), id.UserID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, resp)
}

// SetResult records the grade status of an enrollment
// @Summary Record an enrollment result
// @Description Moves an enrolled record to passed or failed
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Enrollment ID"
// @Param request body dto.SetEnrollmentResultRequest true "Result"
// @Success 200 {object} models.Enrollment "Updated record"
// @Failure 400 {object} dto.ErrorResponse "Record is not enrolled"
// @Failure 404 {object} dto.ErrorResponse "Enrollment not found"
// @Router /enrollments/{id}/result [put]
func (c *EnrollmentController) SetResult(ctx *gin.Context) {
	enrollmentID, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}

	var req dto.SetEnrollmentResultRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		middleware.HandleBindError(ctx, err)
		return
	}

	record, err := c.enrollmentService.SetResult(ctx.Request.Context(), enrollmentID, models.EnrollmentStatus(req.Status))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, record)
}
