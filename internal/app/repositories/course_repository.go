package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/yigit/coursereg/internal/app/models"
	"github.com/yigit/coursereg/internal/pkg/apperrors"
	"github.com/yigit/coursereg/internal/pkg/dberrors"
	"github.com/yigit/coursereg/internal/pkg/logger"
)

// ICourseRepository defines the operations on course offerings
type ICourseRepository interface {
	Search(ctx context.Context, filter CourseFilter) ([]*models.Course, error)
	List(ctx context.Context, offset uint64, limit int) ([]*models.Course, int64, error)
	GetByID(ctx context.Context, id int64) (*models.Course, error)
	Create(ctx context.Context, course *models.Course) error
	Update(ctx context.Context, course *models.Course) error
	UpdateStatus(ctx context.Context, id int64, status models.CourseStatus) error
	Delete(ctx context.Context, id int64) error
	Departments(ctx context.Context, academicYear int) ([]string, error)
	CountByTeacher(ctx context.Context, teacherID int64) (int, error)
}

// Search types accepted by CourseFilter.SearchType.
const (
	SearchByCode    = "course_code"
	SearchByName    = "course_name"
	SearchByTeacher = "teacher_name"
)

// CourseFilter is a conjunction of optional predicates. Zero values are
// ignored. Weekdays match any listed day; Periods match offerings whose range
// covers any listed period.
type CourseFilter struct {
	AcademicYear int
	Semester     int
	Department   string
	CourseType   string
	GradeLevel   int
	Weekdays     []int
	Periods      []int
	SearchType   string
	SearchQuery  string
}

var courseColumns = []string{
	"c.id", "c.course_code", "c.course_name", "c.course_type", "c.description",
	"c.credits", "c.hours", "c.academic_year", "c.semester", "c.department", "c.grade_level",
	"c.teacher_id", "c.classroom", "c.weekday", "c.start_period", "c.end_period",
	"c.max_students", "c.current_students", "c.status", "c.created_at", "c.updated_at",
	"COALESCE(t.real_name, '') AS teacher_name",
}

func scanCourse(row pgx.Row, extra ...any) (*models.Course, error) {
	var c models.Course
	dest := []any{
		&c.ID, &c.CourseCode, &c.CourseName, &c.CourseType, &c.Description,
		&c.Credits, &c.Hours, &c.AcademicYear, &c.Semester, &c.Department, &c.GradeLevel,
		&c.TeacherID, &c.Classroom, &c.Weekday, &c.StartPeriod, &c.EndPeriod,
		&c.MaxStudents, &c.CurrentStudents, &c.Status, &c.CreatedAt, &c.UpdatedAt,
		&c.TeacherName,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	return &c, nil
}

func collectCourses(rows pgx.Rows) ([]*models.Course, error) {
	defer rows.Close()
	var courses []*models.Course
	for rows.Next() {
		c, err := scanCourse(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning course: %w", err)
		}
		courses = append(courses, c)
	}
	return courses, rows.Err()
}

// selectCourses is the base query joining the teacher's name.
func selectCourses(sb squirrel.StatementBuilderType) squirrel.SelectBuilder {
	return sb.Select(courseColumns...).
		From("courses c").
		LeftJoin("users t ON t.id = c.teacher_id")
}

// buildSearchQuery turns f into a SELECT over courses ordered by code.
func buildSearchQuery(sb squirrel.StatementBuilderType, f CourseFilter) squirrel.SelectBuilder {
	q := selectCourses(sb)

	if f.AcademicYear > 0 {
		q = q.Where(squirrel.Eq{"c.academic_year": f.AcademicYear})
	}
	if f.Semester > 0 {
		q = q.Where(squirrel.Eq{"c.semester": f.Semester})
	}
	if f.Department != "" {
		q = q.Where(squirrel.Eq{"c.department": f.Department})
	}
	if f.CourseType != "" {
		q = q.Where(squirrel.Eq{"c.course_type": f.CourseType})
	}
	if f.GradeLevel > 0 {
		q = q.Where(squirrel.Eq{"c.grade_level": f.GradeLevel})
	}
	if len(f.Weekdays) > 0 {
		q = q.Where(squirrel.Eq{"c.weekday": f.Weekdays})
	}
	if len(f.Periods) > 0 {
		covers := squirrel.Or{}
		for _, p := range f.Periods {
			covers = append(covers, squirrel.And{
				squirrel.LtOrEq{"c.start_period": p},
				squirrel.GtOrEq{"c.end_period": p},
			})
		}
		q = q.Where(covers)
	}
	if query := strings.TrimSpace(f.SearchQuery); query != "" {
		pattern := "%" + escapeLike(query) + "%"
		switch f.SearchType {
		case SearchByCode:
			q = q.Where(squirrel.ILike{"c.course_code": pattern})
		case SearchByTeacher:
			q = q.Where(squirrel.ILike{"t.real_name": pattern})
		default:
			q = q.Where(squirrel.ILike{"c.course_name": pattern})
		}
	}

	return q.OrderBy("c.course_code", "c.id")
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// CourseRepository handles course offering database operations
type CourseRepository struct {
	db *pgxpool.Pool
	sb squirrel.StatementBuilderType
}

// NewCourseRepository creates a new CourseRepository
func NewCourseRepository(db *pgxpool.Pool) *CourseRepository {
	return &CourseRepository{
		db: db,
		sb: newStatementBuilder(),
	}
}

// Search returns the offerings matching filter ordered by course code
func (r *CourseRepository) Search(ctx context.Context, filter CourseFilter) ([]*models.Course, error) {
	sql, args, err := buildSearchQuery(r.sb, filter).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build search courses query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		logger.Ctx(ctx).Error().Err(err).Msg("Error executing search courses query")
		return nil, fmt.Errorf("error searching courses: %w", err)
	}
	return collectCourses(rows)
}

// List returns one page of offerings, newest term first, and the total count
func (r *CourseRepository) List(ctx context.Context, offset uint64, limit int) ([]*models.Course, int64, error) {
	countSQL, countArgs, err := r.sb.Select("COUNT(*)").From("courses").ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build count courses query: %w", err)
	}
	var total int64
	if err := r.db.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("error counting courses: %w", err)
	}

	sql, args, err := selectCourses(r.sb).
		OrderBy("c.academic_year DESC", "c.semester DESC", "c.course_code").
		Offset(offset).
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build list courses query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("error listing courses: %w", err)
	}
	courses, err := collectCourses(rows)
	return courses, total, err
}

// GetByID retrieves a single offering
func (r *CourseRepository) GetByID(ctx context.Context, id int64) (*models.Course, error) {
	return getCourse(ctx, r.db, r.sb, id, false)
}

// getCourse loads one offering on q. With forUpdate the courses row stays
// locked until q's transaction ends.
func getCourse(ctx context.Context, q querier, sb squirrel.StatementBuilderType, id int64, forUpdate bool) (*models.Course, error) {
	query := selectCourses(sb).Where(squirrel.Eq{"c.id": id})
	if forUpdate {
		query = query.Suffix("FOR UPDATE OF c")
	}
	sql, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get course query: %w", err)
	}

	c, err := scanCourse(q.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrCourseNotFound
		}
		return nil, fmt.Errorf("error retrieving course: %w", err)
	}
	return c, nil
}

func mapCourseWriteError(err error) error {
	switch {
	case dberrors.IsDuplicateConstraintError(err, "uq_courses_code_term"):
		return apperrors.ErrCourseCodeExists
	case dberrors.IsForeignKeyError(err):
		return apperrors.ErrTeacherNotFound
	}
	return err
}

// Create inserts a new offering and fills in its ID and timestamps
func (r *CourseRepository) Create(ctx context.Context, c *models.Course) error {
	now := time.Now()
	sql, args, err := r.sb.Insert("courses").
		Columns("course_code", "course_name", "course_type", "description", "credits", "hours",
			"academic_year", "semester", "department", "grade_level", "teacher_id", "classroom",
			"weekday", "start_period", "end_period", "max_students", "current_students", "status",
			"created_at", "updated_at").
		Values(c.CourseCode, c.CourseName, c.CourseType, c.Description, c.Credits, c.Hours,
			c.AcademicYear, c.Semester, c.Department, c.GradeLevel, c.TeacherID, c.Classroom,
			c.Weekday, c.StartPeriod, c.EndPeriod, c.MaxStudents, c.CurrentStudents, c.Status,
			now, now).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build create course query: %w", err)
	}

	if err := r.db.QueryRow(ctx, sql, args...).Scan(&c.ID); err != nil {
		if mapped := mapCourseWriteError(err); mapped != err {
			return mapped
		}
		logger.Ctx(ctx).Error().Err(err).Str("courseCode", c.CourseCode).Msg("Error creating course")
		return fmt.Errorf("error creating course: %w", err)
	}
	c.CreatedAt, c.UpdatedAt = now, now
	return nil
}

// errScheduleLocked is returned when a time slot edit hits an offering that
// already has enrolled students.
var errScheduleLocked = apperrors.NewBadRequestError("weekday and periods cannot change while students are enrolled")

// buildUpdateCourseQuery writes the editable fields of an offering. The
// counter and status are owned by enrollment and status changes; the
// capacity may not drop below the current count and the time slot is frozen
// once anyone is enrolled.
func buildUpdateCourseQuery(sb squirrel.StatementBuilderType, c *models.Course) squirrel.UpdateBuilder {
	return sb.Update("courses").
		SetMap(map[string]interface{}{
			"course_name":  c.CourseName,
			"course_type":  c.CourseType,
			"description":  c.Description,
			"credits":      c.Credits,
			"hours":        c.Hours,
			"department":   c.Department,
			"grade_level":  c.GradeLevel,
			"teacher_id":   c.TeacherID,
			"classroom":    c.Classroom,
			"weekday":      c.Weekday,
			"start_period": c.StartPeriod,
			"end_period":   c.EndPeriod,
			"max_students": c.MaxStudents,
			"status": squirrel.Expr(
				"CASE WHEN status = 'closed' THEN status WHEN current_students >= ? THEN 'full' ELSE 'open' END",
				c.MaxStudents),
			"updated_at": time.Now(),
		}).
		Where(squirrel.Eq{"id": c.ID}).
		Where(squirrel.LtOrEq{"current_students": c.MaxStudents}).
		Where(squirrel.Or{
			squirrel.Eq{"current_students": 0},
			squirrel.Eq{"weekday": c.Weekday, "start_period": c.StartPeriod, "end_period": c.EndPeriod},
		})
}

// Update writes the editable fields of an offering
func (r *CourseRepository) Update(ctx context.Context, c *models.Course) error {
	sql, args, err := buildUpdateCourseQuery(r.sb, c).ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update course query: %w", err)
	}

	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		if mapped := mapCourseWriteError(err); mapped != err {
			return mapped
		}
		return fmt.Errorf("error updating course: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// The row is gone or one of the guards failed.
		current, getErr := r.GetByID(ctx, c.ID)
		if getErr != nil {
			return getErr
		}
		if current.CurrentStudents > c.MaxStudents {
			return apperrors.NewBadRequestError("max_students cannot be lower than the number of enrolled students")
		}
		return errScheduleLocked
	}
	return nil
}

// buildUpdateStatusQuery sets the status of an offering. Reopening derives
// open or full from the row's own counter so a concurrent drop is not lost.
func buildUpdateStatusQuery(sb squirrel.StatementBuilderType, id int64, status models.CourseStatus) squirrel.UpdateBuilder {
	var value interface{} = status
	if status == models.CourseStatusOpen {
		value = squirrel.Expr("CASE WHEN current_students >= max_students THEN 'full' ELSE 'open' END")
	}
	return sb.Update("courses").
		Set("status", value).
		Set("updated_at", time.Now()).
		Where(squirrel.Eq{"id": id})
}

// UpdateStatus sets the registration status of an offering
func (r *CourseRepository) UpdateStatus(ctx context.Context, id int64, status models.CourseStatus) error {
	sql, args, err := buildUpdateStatusQuery(r.sb, id, status).ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update course status query: %w", err)
	}
	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("error updating course status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrCourseNotFound
	}
	return nil
}

// Delete removes an offering together with its ledger rows and favorites
func (r *CourseRepository) Delete(ctx context.Context, id int64) error {
	sql, args, err := r.sb.Delete("courses").Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("failed to build delete course query: %w", err)
	}
	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("error deleting course: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrCourseNotFound
	}
	return nil
}

// Departments lists the distinct departments offering courses in a year
func (r *CourseRepository) Departments(ctx context.Context, academicYear int) ([]string, error) {
	q := r.sb.Select("DISTINCT department").From("courses").OrderBy("department")
	if academicYear > 0 {
		q = q.Where(squirrel.Eq{"academic_year": academicYear})
	}
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build departments query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error listing departments: %w", err)
	}
	departments, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("error scanning departments: %w", err)
	}
	return departments, nil
}

// CountByTeacher counts the offerings assigned to a teacher
func (r *CourseRepository) CountByTeacher(ctx context.Context, teacherID int64) (int, error) {
	sql, args, err := r.sb.Select("COUNT(*)").From("courses").Where(squirrel.Eq{"teacher_id": teacherID}).ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build count teacher courses query: %w", err)
	}
	var n int
	if err := r.db.QueryRow(ctx, sql, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("error counting teacher courses: %w", err)
	}
	return n, nil
}
