package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/yigit/coursereg/internal/app/models"
	"github.com/yigit/coursereg/internal/app/models/dto"
	"github.com/yigit/coursereg/internal/app/repositories"
	"github.com/yigit/coursereg/internal/pkg/apperrors"
	"github.com/yigit/coursereg/internal/pkg/helpers"
	"golang.org/x/sync/errgroup"
)

// CourseService defines catalog queries and staff course management
type CourseService interface {
	Search(ctx context.Context, query *dto.CourseSearchQuery, viewerID int64) (*dto.CourseListResponse, error)
	FilterOptions(ctx context.Context, academicYear int) (*dto.FilterOptionsResponse, error)
	GetByID(ctx context.Context, id int64) (*models.Course, error)
	List(ctx context.Context, page, size int) (*dto.PaginatedResponse, error)
	Create(ctx context.Context, req *dto.CreateCourseRequest) (*models.Course, error)
	Update(ctx context.Context, id int64, req *dto.UpdateCourseRequest) (*models.Course, error)
	UpdateStatus(ctx context.Context, id int64, status models.CourseStatus) (*models.Course, error)
	Delete(ctx context.Context, id int64) error
	ListTeachers(ctx context.Context) ([]dto.TeacherAccountResponse, error)
}

type courseServiceImpl struct {
	courseRepo     repositories.ICourseRepository
	enrollmentRepo repositories.IEnrollmentRepository
	favoriteRepo   repositories.IFavoriteRepository
	userRepo       repositories.IUserRepository
	term           TermSettings
	logger         zerolog.Logger
}

// NewCourseService creates a new CourseService
func NewCourseService(
	courseRepo repositories.ICourseRepository,
	enrollmentRepo repositories.IEnrollmentRepository,
	favoriteRepo repositories.IFavoriteRepository,
	userRepo repositories.IUserRepository,
	term TermSettings,
	logger zerolog.Logger,
) CourseService {
	return &courseServiceImpl{
		courseRepo:     courseRepo,
		enrollmentRepo: enrollmentRepo,
		favoriteRepo:   favoriteRepo,
		userRepo:       userRepo,
		term:           term,
		logger:         logger,
	}
}

func parseRangedList(name, raw string, min, max int) ([]int, error) {
	values, err := helpers.ParseIntList(raw)
	if err != nil {
		return nil, apperrors.NewBadRequestError(fmt.Sprintf("%s must be a comma separated list of numbers", name))
	}
	for _, v := range values {
		if v < min || v > max {
			return nil, apperrors.NewBadRequestError(fmt.Sprintf("%s values must be between %d and %d", name, min, max))
		}
	}
	return values, nil
}

// Search runs the catalog filter. A non-zero viewerID marks the offerings
// the viewer has favorited or is enrolled in.
func (s *courseServiceImpl) Search(ctx context.Context, query *dto.CourseSearchQuery, viewerID int64) (*dto.CourseListResponse, error) {
	weekdays, err := parseRangedList("weekdays", query.Weekdays, 1, 7)
	if err != nil {
		return nil, err
	}
	periods, err := parseRangedList("periods", query.Periods, 1, 14)
	if err != nil {
		return nil, err
	}

	filter := repositories.CourseFilter{
		AcademicYear: query.AcademicYear,
		Semester:     query.Semester,
		Department:   strings.TrimSpace(query.Department),
		CourseType:   query.CourseType,
		GradeLevel:   query.GradeLevel,
		Weekdays:     weekdays,
		Periods:      periods,
		SearchQuery:  strings.TrimSpace(query.SearchQuery),
		SearchType:   query.SearchType,
	}
	if filter.AcademicYear == 0 {
		filter.AcademicYear = s.term.Current.AcademicYear
	}
	if filter.SearchQuery != "" && filter.SearchType == "" {
		filter.SearchType = repositories.SearchByName
	}

	courses, err := s.courseRepo.Search(ctx, filter)
	if err != nil {
		return nil, err
	}

	var favorites, enrolled map[int64]time.Time
	if viewerID > 0 {
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			var err error
			favorites, err = s.favoriteRepo.CourseIDs(gctx, viewerID)
			return err
		})
		g.Go(func() error {
			var err error
			enrolled, err = s.enrollmentRepo.EnrolledCourseIDs(gctx, viewerID, nil)
			return err
		})
		if err := g.Wait(); err != nil {
			return nil, err
		}
	}

	resp := &dto.CourseListResponse{Courses: make([]dto.CourseResponse, 0, len(courses))}
	for _, c := range courses {
		cr := dto.NewCourseResponse(c)
		if at, ok := favorites[c.ID]; ok {
			cr.IsFavorited = true
			cr.FavoritedAt = &at
		}
		if at, ok := enrolled[c.ID]; ok {
			cr.IsEnrolled = true
			cr.EnrolledDate = &at
		}
		resp.Courses = append(resp.Courses, cr)
	}
	resp.Count = len(resp.Courses)
	return resp, nil
}

var (
	semesterOptions = []dto.Option{
		{Value: "1", Label: "First semester"},
		{Value: "2", Label: "Second semester"},
	}
	courseTypeLabels = map[models.CourseType]string{
		models.CourseTypeRequired:        "Required",
		models.CourseTypeElective:        "Elective",
		models.CourseTypeGeneralRequired: "General education (required)",
		models.CourseTypeGeneralElective: "General education (elective)",
	}
)

// FilterOptions lists the departments offering courses in academicYear (the
// current year when zero) together with the static option lists.
func (s *courseServiceImpl) FilterOptions(ctx context.Context, academicYear int) (*dto.FilterOptionsResponse, error) {
	if academicYear == 0 {
		academicYear = s.term.Current.AcademicYear
	}
	departments, err := s.courseRepo.Departments(ctx, academicYear)
	if err != nil {
		return nil, err
	}
	if departments == nil {
		departments = []string{}
	}

	resp := &dto.FilterOptionsResponse{
		Departments: departments,
		Semesters:   semesterOptions,
	}
	for _, ct := range models.CourseTypes {
		resp.CourseTypes = append(resp.CourseTypes, dto.Option{Value: string(ct), Label: courseTypeLabels[ct]})
	}
	for d := 1; d <= 7; d++ {
		resp.Weekdays = append(resp.Weekdays, dto.Option{Value: strconv.Itoa(d), Label: models.WeekdayName(d)})
	}
	for g := 1; g <= 4; g++ {
		resp.GradeLevels = append(resp.GradeLevels, dto.Option{Value: strconv.Itoa(g), Label: fmt.Sprintf("Year %d", g)})
	}
	return resp, nil
}

// GetByID retrieves one offering
func (s *courseServiceImpl) GetByID(ctx context.Context, id int64) (*models.Course, error) {
	return s.courseRepo.GetByID(ctx, id)
}

// List returns one page of all offerings for staff
func (s *courseServiceImpl) List(ctx context.Context, page, size int) (*dto.PaginatedResponse, error) {
	offset, limit := helpers.CalculateOffsetLimit(page, size)
	courses, total, err := s.courseRepo.List(ctx, offset, limit)
	if err != nil {
		return nil, err
	}
	items := make([]dto.CourseResponse, 0, len(courses))
	for _, c := range courses {
		items = append(items, dto.NewCourseResponse(c))
	}
	return &dto.PaginatedResponse{
		Items:      items,
		Pagination: helpers.NewPaginationInfo(total, page, limit),
	}, nil
}

// requireTeacher checks that teacherID names an account holding the teacher role.
func (s *courseServiceImpl) requireTeacher(ctx context.Context, teacherID int64) error {
	u, err := s.userRepo.GetByID(ctx, teacherID)
	if err != nil {
		if errors.Is(err, apperrors.ErrUserNotFound) {
			return apperrors.ErrTeacherNotFound
		}
		return err
	}
	if !u.HasRole(models.RoleTeacher) {
		return apperrors.NewCustomError(apperrors.ErrTeacherNotFound, "the assigned user is not a teacher")
	}
	return nil
}

// Create adds a new offering. It starts open with an empty counter.
func (s *courseServiceImpl) Create(ctx context.Context, req *dto.CreateCourseRequest) (*models.Course, error) {
	if err := s.requireTeacher(ctx, req.TeacherID); err != nil {
		return nil, err
	}

	maxStudents := req.MaxStudents
	if maxStudents == 0 {
		maxStudents = s.term.DefaultMaxStudents
	}
	teacherID := req.TeacherID
	course := &models.Course{
		CourseCode:   strings.TrimSpace(req.CourseCode),
		CourseName:   strings.TrimSpace(req.CourseName),
		CourseType:   models.CourseType(req.CourseType),
		Description:  req.Description,
		Credits:      req.Credits,
		Hours:        req.Hours,
		AcademicYear: req.AcademicYear,
		Semester:     req.Semester,
		Department:   strings.TrimSpace(req.Department),
		GradeLevel:   req.GradeLevel,
		TeacherID:    &teacherID,
		Classroom:    strings.TrimSpace(req.Classroom),
		Weekday:      req.Weekday,
		StartPeriod:  req.StartPeriod,
		EndPeriod:    req.EndPeriod,
		MaxStudents:  maxStudents,
		Status:       models.CourseStatusOpen,
	}
	if err := s.courseRepo.Create(ctx, course); err != nil {
		return nil, err
	}

	s.logger.Info().Int64("courseID", course.ID).Str("courseCode", course.CourseCode).Msg("Course created")
	return course, nil
}

// Update rewrites the editable fields of an offering
func (s *courseServiceImpl) Update(ctx context.Context, id int64, req *dto.UpdateCourseRequest) (*models.Course, error) {
	course, err := s.courseRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.MaxStudents < course.CurrentStudents {
		return nil, apperrors.NewBadRequestError("max_students cannot be lower than the number of enrolled students")
	}
	if course.CurrentStudents > 0 &&
		(req.Weekday != course.Weekday || req.StartPeriod != course.StartPeriod || req.EndPeriod != course.EndPeriod) {
		return nil, apperrors.NewBadRequestError("weekday and periods cannot change while students are enrolled")
	}
	if course.TeacherID == nil || *course.TeacherID != req.TeacherID {
		if err := s.requireTeacher(ctx, req.TeacherID); err != nil {
			return nil, err
		}
	}

	teacherID := req.TeacherID
	course.CourseName = strings.TrimSpace(req.CourseName)
	course.CourseType = models.CourseType(req.CourseType)
	course.Description = req.Description
	course.Credits = req.Credits
	course.Hours = req.Hours
	course.Department = strings.TrimSpace(req.Department)
	course.GradeLevel = req.GradeLevel
	course.TeacherID = &teacherID
	course.Classroom = strings.TrimSpace(req.Classroom)
	course.Weekday = req.Weekday
	course.StartPeriod = req.StartPeriod
	course.EndPeriod = req.EndPeriod
	course.MaxStudents = req.MaxStudents

	if err := s.courseRepo.Update(ctx, course); err != nil {
		return nil, err
	}
	return s.courseRepo.GetByID(ctx, id)
}

// UpdateStatus opens or closes an offering. Opening an offering at capacity
// leaves it full.
func (s *courseServiceImpl) UpdateStatus(ctx context.Context, id int64, status models.CourseStatus) (*models.Course, error) {
	if status != models.CourseStatusOpen && status != models.CourseStatusClosed {
		return nil, apperrors.NewBadRequestError("status must be open or closed")
	}

	if err := s.courseRepo.UpdateStatus(ctx, id, status); err != nil {
		return nil, err
	}
	course, err := s.courseRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.logger.Info().Int64("courseID", id).Str("status", string(course.Status)).Msg("Course status changed")
	return course, nil
}

// Delete removes an offering
func (s *courseServiceImpl) Delete(ctx context.Context, id int64) error {
	if err := s.courseRepo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info().Int64("courseID", id).Msg("Course deleted")
	return nil
}

// ListTeachers lists every teacher account
func (s *courseServiceImpl) ListTeachers(ctx context.Context) ([]dto.TeacherAccountResponse, error) {
	users, err := s.userRepo.ListByRole(ctx, models.RoleTeacher)
	if err != nil {
		return nil, err
	}
	return toTeacherResponses(users), nil
}
