package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/yigit/coursereg/internal/app/models"
	"github.com/yigit/coursereg/internal/app/repositories"
	"github.com/yigit/coursereg/internal/pkg/apperrors"
	"github.com/yigit/coursereg/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// EnrollmentService owns the enrollment ledger and the capacity counter
type EnrollmentService interface {
	Enroll(ctx context.Context, studentID, courseID int64) (*models.Course, error)
	Drop(ctx context.Context, studentID, courseID int64) (*models.Course, error)
	SetResult(ctx context.Context, enrollmentID int64, status models.EnrollmentStatus) (*models.Enrollment, error)
}

type enrollmentServiceImpl struct {
	enrollmentRepo repositories.IEnrollmentRepository
	tracer         trace.Tracer
	logger         zerolog.Logger
}

// NewEnrollmentService creates a new EnrollmentService
func NewEnrollmentService(enrollmentRepo repositories.IEnrollmentRepository, logger zerolog.Logger) EnrollmentService {
	return &enrollmentServiceImpl{
		enrollmentRepo: enrollmentRepo,
		tracer:         telemetry.Tracer(),
		logger:         logger,
	}
}

func (s *enrollmentServiceImpl) startSpan(ctx context.Context, name string, studentID, courseID int64) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, name, trace.WithAttributes(
		attribute.Int64("student.id", studentID),
		attribute.Int64("course.id", courseID),
	))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// Enroll admits the student into the offering. Checks run in this order and
// the first failure wins: closed, full, already enrolled, already passed,
// time conflict. The whole operation is one transaction holding the student
// and offering row locks.
func (s *enrollmentServiceImpl) Enroll(ctx context.Context, studentID, courseID int64) (course *models.Course, err error) {
	ctx, span := s.startSpan(ctx, "enrollment.enroll", studentID, courseID)
	defer func() { endSpan(span, err) }()

	err = s.enrollmentRepo.WithinTx(ctx, func(ctx context.Context, tx repositories.EnrollmentTx) error {
		if err := tx.LockStudent(ctx, studentID); err != nil {
			return err
		}
		c, err := tx.LockCourse(ctx, courseID)
		if err != nil {
			return err
		}
		term := c.Term()

		if c.Status == models.CourseStatusClosed {
			return apperrors.ErrCourseClosed
		}
		if c.Status == models.CourseStatusFull || c.IsFull() {
			return apperrors.ErrCourseFull
		}

		existing, err := tx.FindRecord(ctx, studentID, c.ID, term, models.EnrollmentStatusEnrolled)
		if err != nil {
			return err
		}
		if existing != nil {
			return apperrors.ErrAlreadyEnrolled
		}
		passed, err := tx.FindRecord(ctx, studentID, c.ID, term, models.EnrollmentStatusPassed)
		if err != nil {
			return err
		}
		if passed != nil {
			return apperrors.ErrAlreadyPassed
		}

		enrolled, err := tx.ListEnrolledCourses(ctx, studentID, term)
		if err != nil {
			return err
		}
		for _, other := range enrolled {
			if other.ID != c.ID && other.Overlaps(c) {
				return apperrors.NewCustomError(apperrors.ErrTimeConflict,
					fmt.Sprintf("time conflict with %s (%s)", other.CourseName, other.TimeDisplay())).
					WithDetails(map[string]interface{}{
						"conflicting_course_id":   other.ID,
						"conflicting_course_name": other.CourseName,
						"time_display":            other.TimeDisplay(),
					})
			}
		}

		record := &models.Enrollment{
			StudentID:    studentID,
			CourseID:     c.ID,
			AcademicYear: term.AcademicYear,
			Semester:     term.Semester,
			Status:       models.EnrollmentStatusEnrolled,
		}
		if err := tx.InsertRecord(ctx, record); err != nil {
			return err
		}

		c.Admit()
		if err := tx.SaveCourseCounter(ctx, c); err != nil {
			return err
		}
		course = c
		return nil
	})
	if err != nil {
		s.logRejection(ctx, "enroll", studentID, courseID, err)
		return nil, err
	}

	span.SetAttributes(attribute.Int("course.current_students", course.CurrentStudents))
	s.logger.Info().
		Int64("studentID", studentID).
		Int64("courseID", courseID).
		Int("currentStudents", course.CurrentStudents).
		Str("status", string(course.Status)).
		Msg("Student enrolled")
	return course, nil
}

// Drop marks the student's enrolled record as dropped and frees the seat
func (s *enrollmentServiceImpl) Drop(ctx context.Context, studentID, courseID int64) (course *models.Course, err error) {
	ctx, span := s.startSpan(ctx, "enrollment.drop", studentID, courseID)
	defer func() { endSpan(span, err) }()

	err = s.enrollmentRepo.WithinTx(ctx, func(ctx context.Context, tx repositories.EnrollmentTx) error {
		if err := tx.LockStudent(ctx, studentID); err != nil {
			return err
		}
		c, err := tx.LockCourse(ctx, courseID)
		if err != nil {
			return err
		}

		record, err := tx.FindRecord(ctx, studentID, c.ID, c.Term(), models.EnrollmentStatusEnrolled)
		if err != nil {
			return err
		}
		if record == nil {
			return apperrors.ErrNotEnrolled
		}

		if err := tx.SetRecordStatus(ctx, record.ID, models.EnrollmentStatusDropped); err != nil {
			return err
		}

		c.Release()
		if err := tx.SaveCourseCounter(ctx, c); err != nil {
			return err
		}
		course = c
		return nil
	})
	if err != nil {
		s.logRejection(ctx, "drop", studentID, courseID, err)
		return nil, err
	}

	s.logger.Info().
		Int64("studentID", studentID).
		Int64("courseID", courseID).
		Int("currentStudents", course.CurrentStudents).
		Msg("Student dropped course")
	return course, nil
}

// logRejection logs business rule failures at info and everything else at error.
func (s *enrollmentServiceImpl) logRejection(ctx context.Context, op string, studentID, courseID int64, err error) {
	event := s.logger.Error()
	if isEnrollmentRuleError(err) {
		event = s.logger.Info()
	}
	event.Err(err).Str("op", op).Int64("studentID", studentID).Int64("courseID", courseID).Msg("Enrollment request rejected")
}

func isEnrollmentRuleError(err error) bool {
	return apperrors.Is(err, apperrors.ErrCourseClosed,
		apperrors.ErrCourseFull,
		apperrors.ErrAlreadyEnrolled,
		apperrors.ErrAlreadyPassed,
		apperrors.ErrTimeConflict,
		apperrors.ErrNotEnrolled,
		apperrors.ErrCourseNotFound,
		apperrors.ErrUserNotFound,
	)
}

// SetResult records the grading outcome of an enrolled record
func (s *enrollmentServiceImpl) SetResult(ctx context.Context, enrollmentID int64, status models.EnrollmentStatus) (*models.Enrollment, error) {
	if status != models.EnrollmentStatusPassed && status != models.EnrollmentStatusFailed {
		return nil, apperrors.NewBadRequestError("status must be passed or failed")
	}
	e, err := s.enrollmentRepo.SetResult(ctx, enrollmentID, status)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotEnrolled) {
			return nil, apperrors.NewCustomError(apperrors.ErrNotEnrolled, "only enrolled records can be graded")
		}
		return nil, err
	}
	s.logger.Info().Int64("enrollmentID", enrollmentID).Str("status", string(status)).Msg("Enrollment result recorded")
	return e, nil
}
