package services

import (
	"context"
	"strconv"

	"github.com/rs/zerolog"
	"github.com/yigit/coursereg/internal/app/models"
	"github.com/yigit/coursereg/internal/app/models/dto"
	"github.com/yigit/coursereg/internal/app/repositories"
	"golang.org/x/sync/errgroup"
)

// CreditService aggregates a student's credits
type CreditService interface {
	Summary(ctx context.Context, userID int64) (*dto.CreditSummaryResponse, error)
	EnrolledCourses(ctx context.Context, studentID int64, term models.Term) (*dto.CourseListResponse, error)
	CurrentTerm() models.Term
}

type creditServiceImpl struct {
	userRepo       repositories.IUserRepository
	enrollmentRepo repositories.IEnrollmentRepository
	term           TermSettings
	logger         zerolog.Logger
}

// NewCreditService creates a new CreditService
func NewCreditService(
	userRepo repositories.IUserRepository,
	enrollmentRepo repositories.IEnrollmentRepository,
	term TermSettings,
	logger zerolog.Logger,
) CreditService {
	return &creditServiceImpl{
		userRepo:       userRepo,
		enrollmentRepo: enrollmentRepo,
		term:           term,
		logger:         logger,
	}
}

func (s *creditServiceImpl) CurrentTerm() models.Term {
	return s.term.Current
}

func bucketsOf(sums map[models.CourseType]int) dto.CreditBuckets {
	var b dto.CreditBuckets
	for ct, credits := range sums {
		b.Add(string(ct), credits)
	}
	return b
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// Summary sums passed credits from earlier terms and the credits the student
// is enrolled in for the current term. Both are recomputed on every call.
func (s *creditServiceImpl) Summary(ctx context.Context, userID int64) (*dto.CreditSummaryResponse, error) {
	current := s.term.Current

	var (
		user             *models.User
		passed, semester map[models.CourseType]int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		user, err = s.userRepo.GetByID(gctx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		passed, err = s.enrollmentRepo.CreditsByType(gctx, repositories.EnrollmentFilter{
			StudentID:   userID,
			Status:      models.EnrollmentStatusPassed,
			ExcludeTerm: &current,
		})
		return err
	})
	g.Go(func() error {
		var err error
		semester, err = s.enrollmentRepo.CreditsByType(gctx, repositories.EnrollmentFilter{
			StudentID: userID,
			Status:    models.EnrollmentStatusEnrolled,
			Term:      &current,
		})
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	info := dto.CreditUserInfo{
		RealName:   user.RealName,
		StudentID:  deref(user.StudentID),
		Department: deref(user.Department),
	}
	if user.Grade != nil {
		info.Grade = strconv.Itoa(*user.Grade)
	}

	return &dto.CreditSummaryResponse{
		UserInfo:        info,
		TotalCredits:    bucketsOf(passed),
		SemesterCredits: bucketsOf(semester),
	}, nil
}

// EnrolledCourses lists the offerings a student is enrolled in for term with
// the credit total.
func (s *creditServiceImpl) EnrolledCourses(ctx context.Context, studentID int64, term models.Term) (*dto.CourseListResponse, error) {
	records, err := s.enrollmentRepo.ListWithCourses(ctx, repositories.EnrollmentFilter{
		StudentID: studentID,
		Status:    models.EnrollmentStatusEnrolled,
		Term:      &term,
	})
	if err != nil {
		return nil, err
	}

	total := 0
	resp := &dto.CourseListResponse{Courses: make([]dto.CourseResponse, 0, len(records))}
	for _, e := range records {
		cr := dto.NewCourseResponse(e.Course)
		enrolledAt := e.EnrolledAt
		cr.IsEnrolled = true
		cr.EnrolledDate = &enrolledAt
		resp.Courses = append(resp.Courses, cr)
		total += e.Course.Credits
	}
	resp.Count = len(resp.Courses)
	resp.TotalCredits = &total
	return resp, nil
}
