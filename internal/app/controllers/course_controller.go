package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	appAuth "github.com/yigit/coursereg/internal/app/auth"
	"github.com/yigit/coursereg/internal/app/models"
	"github.com/yigit/coursereg/internal/app/models/dto"
	"github.com/yigit/coursereg/internal/app/services"
	"github.com/yigit/coursereg/internal/middleware"
	"github.com/yigit/coursereg/internal/pkg/apperrors"
	"github.com/yigit/coursereg/internal/pkg/helpers"
)

// CourseController handles catalog queries and course management
type CourseController struct {
	courseService services.CourseService
	logger        zerolog.Logger
}

// NewCourseController creates a new CourseController
func NewCourseController(courseService services.CourseService, logger zerolog.Logger) *CourseController {
	return &CourseController{
		courseService: courseService,
		logger:        logger,
	}
}

// Search handles course search
// @Summary Search courses
// @Description Filters the catalog. academic_year defaults to the current year. Weekdays and periods are comma separated lists. With a valid token each course carries is_favorited and is_enrolled.
// @Tags courses
// @Produce json
// @Param academic_year query int false "Academic year"
// @Param semester query int false "Semester (1 or 2)"
// @Param department query string false "Department"
// @Param course_type query string false "required, elective, general_required or general_elective"
// @Param grade_level query int false "Grade level (1-4)"
// @Param weekdays query string false "Weekdays, e.g. 1,3"
// @Param periods query string false "Periods, e.g. 2,3"
// @Param search_type query string false "course_code, course_name or teacher_name"
// @Param search_query query string false "Substring to search for"
// @Success 200 {object} dto.CourseListResponse "Matching courses"
// @Failure 400 {object} dto.ErrorResponse "Invalid filter"
// @Router /courses/search [get]
func (c *CourseController) Search(ctx *gin.Context) {
	var query dto.CourseSearchQuery
	if err := ctx.ShouldBindQuery(&query); err != nil {
		middleware.HandleBindError(ctx, err)
		return
	}

	var viewerID int64
	if id, ok := appAuth.IdentityFrom(ctx); ok {
		viewerID = id.UserID
	}

	resp, err := c.courseService.Search(ctx.Request.Context(), &query, viewerID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, resp)
}

// FilterOptions lists the values offered by the search form
// @Summary Search filter options
// @Tags courses
// @Produce json
// @Param academic_year query int false "Academic year, defaults to the current one"
// @Success 200 {object} dto.FilterOptionsResponse "Filter options"
// @Router /courses/filter-options [get]
func (c *CourseController) FilterOptions(ctx *gin.Context) {
	year := 0
	if raw := ctx.Query("academic_year"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 {
			middleware.HandleAPIError(ctx, apperrors.NewBadRequestError("academic_year must be a positive integer"))
			return
		}
		year = v
	}

	resp, err := c.courseService.FilterOptions(ctx.Request.Context(), year)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, resp)
}

// List returns all courses page by page
// @Summary List courses
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number (1-based)" default(1)
// @Param size query int false "Page size" default(10)
// @Success 200 {object} dto.APIResponse{data=dto.PaginatedResponse} "Courses"
// @Failure 401 {object} dto.ErrorResponse "Unauthorized"
// @Failure 403 {object} dto.ErrorResponse "Forbidden"
// @Router /courses [get]
func (c *CourseController) List(ctx *gin.Context) {
	page, size := helpers.ParsePaginationParams(ctx)

	resp, err := c.courseService.List(ctx.Request.Context(), page, size)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewAPIResponse(resp))
}

// Create adds a course offering
// @Summary Create a course
// @Description Creates an open offering with an empty enrollment counter. max_students defaults to the configured value.
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.CreateCourseRequest true "Course"
// @Success 201 {object} dto.CreateCourseResponse "Course created"
// @Failure 400 {object} dto.ErrorResponse "Invalid request or duplicate course code"
// @Failure 404 {object} dto.ErrorResponse "Teacher not found"
// @Router /courses/create [post]
func (c *CourseController) Create(ctx *gin.Context) {
	var req dto.CreateCourseRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		middleware.HandleBindError(ctx, err)
		return
	}

	course, err := c.courseService.Create(ctx.Request.Context(), &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, dto.CreateCourseResponse{
		Message:    "Course created",
		CourseID:   course.ID,
		CourseCode: course.CourseCode,
		CourseName: course.CourseName,
	})
}

// Update edits a course offering
// @Summary Update a course
// @Description Updates the editable fields. max_students cannot drop below the enrolled count.
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Course ID"
// @Param request body dto.UpdateCourseRequest true "Course"
// @Success 200 {object} dto.CourseResponse "Updated course"
// @Failure 400 {object} dto.ErrorResponse "Invalid request"
// @Failure 404 {object} dto.ErrorResponse "Course or teacher not found"
// @Router /courses/{id} [put]
func (c *CourseController) Update(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}

	var req dto.UpdateCourseRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		middleware.HandleBindError(ctx, err)
		return
	}

	course, err := c.courseService.Update(ctx.Request.Context(), id, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewCourseResponse(course))
}

// UpdateStatus opens or closes a course offering
// @Summary Open or close a course
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Course ID"
// @Param request body dto.UpdateCourseStatusRequest true "Status"
// @Success 200 {object} dto.CourseResponse "Updated course"
// @Failure 400 {object} dto.ErrorResponse "Invalid status"
// @Failure 404 {object} dto.ErrorResponse "Course not found"
// @Router /courses/{id}/status [patch]
func (c *CourseController) UpdateStatus(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}

	var req dto.UpdateCourseStatusRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		middleware.HandleBindError(ctx, err)
		return
	}

	course, err := c.courseService.UpdateStatus(ctx.Request.Context(), id, models.CourseStatus(req.Status))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewCourseResponse(course))
}

// Delete removes a course offering
// @Summary Delete a course
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param id path int true "Course ID"
// @Success 200 {object} dto.MessageResponse "Course deleted"
// @Failure 404 {object} dto.ErrorResponse "Course not found"
// @Router /courses/{id}/delete [delete]
func (c *CourseController) Delete(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}

	if err := c.courseService.Delete(ctx.Request.Context(), id); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.MessageResponse{Message: "Course deleted"})
}

// ListTeachers lists teacher accounts for course assignment
// @Summary List teachers
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 200 {array} dto.TeacherAccountResponse "Teachers"
// @Router /teachers [get]
func (c *CourseController) ListTeachers(ctx *gin.Context) {
	teachers, err := c.courseService.ListTeachers(ctx.Request.Context())
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, teachers)
}
