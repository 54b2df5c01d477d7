package services

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/yigit/coursereg/internal/app/models"
	"github.com/yigit/coursereg/internal/app/models/dto"
	"github.com/yigit/coursereg/internal/app/repositories"
	"github.com/yigit/coursereg/internal/pkg/apperrors"
)

// AccountService lets administrators manage student and teacher accounts
type AccountService interface {
	ListStudents(ctx context.Context) ([]dto.StudentAccountResponse, error)
	ListTeachers(ctx context.Context) ([]dto.TeacherAccountResponse, error)
	UpdateStudent(ctx context.Context, id int64, req *dto.UpdateStudentRequest) error
	UpdateTeacher(ctx context.Context, id int64, req *dto.UpdateTeacherRequest) error
	DeleteStudent(ctx context.Context, id int64) error
	DeleteTeacher(ctx context.Context, id int64) error
}

type accountServiceImpl struct {
	userRepo       repositories.IUserRepository
	courseRepo     repositories.ICourseRepository
	enrollmentRepo repositories.IEnrollmentRepository
	logger         zerolog.Logger
}

// NewAccountService creates a new AccountService
func NewAccountService(
	userRepo repositories.IUserRepository,
	courseRepo repositories.ICourseRepository,
	enrollmentRepo repositories.IEnrollmentRepository,
	logger zerolog.Logger,
) AccountService {
	return &accountServiceImpl{
		userRepo:       userRepo,
		courseRepo:     courseRepo,
		enrollmentRepo: enrollmentRepo,
		logger:         logger,
	}
}

func toStudentResponses(users []*models.User) []dto.StudentAccountResponse {
	out := make([]dto.StudentAccountResponse, 0, len(users))
	for _, u := range users {
		out = append(out, dto.StudentAccountResponse{
			ID:         u.ID,
			Username:   u.Username,
			RealName:   u.RealName,
			StudentID:  u.StudentID,
			Department: u.Department,
			Grade:      u.Grade,
		})
	}
	return out
}

func toTeacherResponses(users []*models.User) []dto.TeacherAccountResponse {
	out := make([]dto.TeacherAccountResponse, 0, len(users))
	for _, u := range users {
		out = append(out, dto.TeacherAccountResponse{
			ID:       u.ID,
			Username: u.Username,
			RealName: u.RealName,
			Office:   u.Office,
			Title:    u.Title,
		})
	}
	return out
}

func (s *accountServiceImpl) ListStudents(ctx context.Context) ([]dto.StudentAccountResponse, error) {
	users, err := s.userRepo.ListByRole(ctx, models.RoleStudent)
	if err != nil {
		return nil, err
	}
	return toStudentResponses(users), nil
}

func (s *accountServiceImpl) ListTeachers(ctx context.Context) ([]dto.TeacherAccountResponse, error) {
	users, err := s.userRepo.ListByRole(ctx, models.RoleTeacher)
	if err != nil {
		return nil, err
	}
	return toTeacherResponses(users), nil
}

// UpdateStudent changes the profile of a student account
func (s *accountServiceImpl) UpdateStudent(ctx context.Context, id int64, req *dto.UpdateStudentRequest) error {
	if err := s.userRepo.UpdateProfile(ctx, id, models.RoleStudent, repositories.UserProfileUpdate{
		RealName:   req.RealName,
		StudentID:  req.StudentID,
		Department: req.Department,
		Grade:      req.Grade,
	}); err != nil {
		return err
	}
	s.logger.Info().Int64("userID", id).Msg("Student account updated")
	return nil
}

// UpdateTeacher changes the profile of a teacher account
func (s *accountServiceImpl) UpdateTeacher(ctx context.Context, id int64, req *dto.UpdateTeacherRequest) error {
	if err := s.userRepo.UpdateProfile(ctx, id, models.RoleTeacher, repositories.UserProfileUpdate{
		RealName: req.RealName,
		Office:   req.Office,
		Title:    req.Title,
	}); err != nil {
		return err
	}
	s.logger.Info().Int64("userID", id).Msg("Teacher account updated")
	return nil
}

// DeleteStudent removes a student account. Students holding an enrolled seat
// cannot be removed until they drop it.
func (s *accountServiceImpl) DeleteStudent(ctx context.Context, id int64) error {
	n, err := s.enrollmentRepo.CountByStudentAndStatus(ctx, id, models.EnrollmentStatusEnrolled)
	if err != nil {
		return err
	}
	if n > 0 {
		return apperrors.ErrUserHasEnrollment
	}
	if err := s.userRepo.DeleteWithRole(ctx, id, models.RoleStudent); err != nil {
		return err
	}
	s.logger.Info().Int64("userID", id).Msg("Student account deleted")
	return nil
}

// DeleteTeacher removes a teacher account that no longer teaches any offering.
func (s *accountServiceImpl) DeleteTeacher(ctx context.Context, id int64) error {
	n, err := s.courseRepo.CountByTeacher(ctx, id)
	if err != nil {
		return err
	}
	if n > 0 {
		return apperrors.ErrTeacherHasCourses
	}
	if err := s.userRepo.DeleteWithRole(ctx, id, models.RoleTeacher); err != nil {
		return err
	}
	s.logger.Info().Int64("userID", id).Msg("Teacher account deleted")
	return nil
}
