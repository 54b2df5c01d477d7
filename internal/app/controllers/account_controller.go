package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/yigit/coursereg/internal/app/models/dto"
	"github.com/yigit/coursereg/internal/app/services"
	"github.com/yigit/coursereg/internal/middleware"
)

// AccountController lets administrators manage student and teacher accounts
type AccountController struct {
	accountService services.AccountService
	logger         zerolog.Logger
}

// NewAccountController creates a new AccountController
func NewAccountController(accountService services.AccountService, logger zerolog.Logger) *AccountController {
	return &AccountController{
		accountService: accountService,
		logger:         logger,
	}
}

// ListStudents lists student accounts
// @Summary List students
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 200 {array} dto.StudentAccountResponse "Students"
// @Router /accounts/students [get]
func (c *AccountController) ListStudents(ctx *gin.Context) {
	students, err := c.accountService.ListStudents(ctx.Request.Context())
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, students)
}

// ListTeachers lists teacher accounts
// @Summary List teacher accounts
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 200 {array} dto.TeacherAccountResponse "Teachers"
// @Router /accounts/teachers [get]
func (c *AccountController) ListTeachers(ctx *gin.Context) {
	teachers, err := c.accountService.ListTeachers(ctx.Request.Context())
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, teachers)
}

// UpdateStudent edits a student account
// @Summary Update a student
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Param request body dto.UpdateStudentRequest true "Fields to change"
// @Success 200 {object} dto.MessageResponse "Updated"
// @Failure 400 {object} dto.ErrorResponse "Invalid request or student ID taken"
// @Failure 404 {object} dto.ErrorResponse "Student not found"
// @Router /accounts/students/{id} [put]
func (c *AccountController) UpdateStudent(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}
	var req dto.UpdateStudentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		middleware.HandleBindError(ctx, err)
		return
	}

	if err := c.accountService.UpdateStudent(ctx.Request.Context(), id, &req); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.MessageResponse{Message: "Student updated"})
}

// UpdateTeacher edits a teacher account
// @Summary Update a teacher
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Param request body dto.UpdateTeacherRequest true "Fields to change"
// @Success 200 {object} dto.MessageResponse "Updated"
// @Failure 404 {object} dto.ErrorResponse "Teacher not found"
// @Router /accounts/teachers/{id} [put]
func (c *AccountController) UpdateTeacher(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}
	var req dto.UpdateTeacherRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		middleware.HandleBindError(ctx, err)
		return
	}

	if err := c.accountService.UpdateTeacher(ctx.Request.Context(), id, &req); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.MessageResponse{Message: "Teacher updated"})
}

// DeleteStudent removes a student account without active enrollments
// @Summary Delete a student
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Success 200 {object} dto.MessageResponse "Deleted"
// @Failure 400 {object} dto.ErrorResponse "Student still enrolled"
// @Failure 404 {object} dto.ErrorResponse "Student not found"
// @Router /accounts/students/{id} [delete]
func (c *AccountController) DeleteStudent(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}
	if err := c.accountService.DeleteStudent(ctx.Request.Context(), id); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.MessageResponse{Message: "Student deleted"})
}

// DeleteTeacher removes a teacher account without assigned courses
// @Summary Delete a teacher
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Success 200 {object} dto.MessageResponse "Deleted"
// @Failure 400 {object} dto.ErrorResponse "Teacher still assigned to courses"
// @Failure 404 {object} dto.ErrorResponse "Teacher not found"
// @Router /accounts/teachers/{id} [delete]
func (c *AccountController) DeleteTeacher(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}
	if err := c.accountService.DeleteTeacher(ctx.Request.Context(), id); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.MessageResponse{Message: "Teacher deleted"})
}
