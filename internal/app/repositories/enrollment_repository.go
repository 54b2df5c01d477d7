package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/yigit/coursereg/internal/app/models"
	"github.com/yigit/coursereg/internal/db"
	"github.com/yigit/coursereg/internal/pkg/apperrors"
	"github.com/yigit/coursereg/internal/pkg/dberrors"
	"github.com/yigit/coursereg/internal/pkg/logger"
)

// EnrollmentTx is the unit of work used by enroll and drop. Rows returned by
// the Lock methods stay locked until the transaction ends.
type EnrollmentTx interface {
	LockStudent(ctx context.Context, studentID int64) error
	LockCourse(ctx context.Context, courseID int64) (*models.Course, error)
	FindRecord(ctx context.Context, studentID, courseID int64, term models.Term, status models.EnrollmentStatus) (*models.Enrollment, error)
	ListEnrolledCourses(ctx context.Context, studentID int64, term models.Term) ([]*models.Course, error)
	InsertRecord(ctx context.Context, e *models.Enrollment) error
	SetRecordStatus(ctx context.Context, enrollmentID int64, status models.EnrollmentStatus) error
	SaveCourseCounter(ctx context.Context, course *models.Course) error
}

// IEnrollmentRepository defines ledger operations
type IEnrollmentRepository interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx EnrollmentTx) error) error
	ListWithCourses(ctx context.Context, filter EnrollmentFilter) ([]*models.Enrollment, error)
	EnrolledCourseIDs(ctx context.Context, studentID int64, term *models.Term) (map[int64]time.Time, error)
	CreditsByType(ctx context.Context, filter EnrollmentFilter) (map[models.CourseType]int, error)
	CountByStudentAndStatus(ctx context.Context, studentID int64, status models.EnrollmentStatus) (int, error)
	SetResult(ctx context.Context, enrollmentID int64, status models.EnrollmentStatus) (*models.Enrollment, error)
}

// EnrollmentFilter selects ledger rows of one student. Term restricts to a
// single term; ExcludeTerm drops one.
type EnrollmentFilter struct {
	StudentID   int64
	Status      models.EnrollmentStatus
	Term        *models.Term
	ExcludeTerm *models.Term
}

func (f EnrollmentFilter) where() squirrel.And {
	w := squirrel.And{squirrel.Eq{"e.student_id": f.StudentID}}
	if f.Status != "" {
		w = append(w, squirrel.Eq{"e.status": f.Status})
	}
	if f.Term != nil {
		w = append(w, squirrel.Eq{"e.academic_year": f.Term.AcademicYear, "e.semester": f.Term.Semester})
	}
	if f.ExcludeTerm != nil {
		w = append(w, squirrel.Expr("(e.academic_year, e.semester) <> (?, ?)", f.ExcludeTerm.AcademicYear, f.ExcludeTerm.Semester))
	}
	return w
}

var enrollmentColumns = []string{
	"e.id", "e.student_id", "e.course_id", "e.academic_year", "e.semester",
	"e.status", "e.enrolled_at", "e.updated_at",
}

func scanEnrollment(row pgx.Row) (*models.Enrollment, error) {
	var e models.Enrollment
	err := row.Scan(&e.ID, &e.StudentID, &e.CourseID, &e.AcademicYear, &e.Semester,
		&e.Status, &e.EnrolledAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// EnrollmentRepository handles the enrollment ledger
type EnrollmentRepository struct {
	db *pgxpool.Pool
	sb squirrel.StatementBuilderType
}

// NewEnrollmentRepository creates a new EnrollmentRepository
func NewEnrollmentRepository(db *pgxpool.Pool) *EnrollmentRepository {
	return &EnrollmentRepository{
		db: db,
		sb: newStatementBuilder(),
	}
}

// WithinTx runs fn in a database transaction. fn's error rolls it back.
func (r *EnrollmentRepository) WithinTx(ctx context.Context, fn func(ctx context.Context, tx EnrollmentTx) error) error {
	return db.WithTransaction(ctx, r.db, func(ctx context.Context, tx pgx.Tx) error {
		return fn(ctx, &enrollmentTx{tx: tx, sb: r.sb})
	})
}

// ListWithCourses returns the matching ledger rows with their offering,
// ordered by weekday and start period.
func (r *EnrollmentRepository) ListWithCourses(ctx context.Context, filter EnrollmentFilter) ([]*models.Enrollment, error) {
	cols := append(append([]string{}, courseColumns...), enrollmentColumns...)
	sql, args, err := r.sb.Select(cols...).
		From("enrollments e").
		Join("courses c ON c.id = e.course_id").
		LeftJoin("users t ON t.id = c.teacher_id").
		Where(filter.where()).
		OrderBy("c.weekday", "c.start_period", "c.course_code").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build list enrollments query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error listing enrollments: %w", err)
	}
	defer rows.Close()

	var out []*models.Enrollment
	for rows.Next() {
		var e models.Enrollment
		c, err := scanCourse(rows, &e.ID, &e.StudentID, &e.CourseID, &e.AcademicYear, &e.Semester,
			&e.Status, &e.EnrolledAt, &e.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("error scanning enrollment: %w", err)
		}
		e.Course = c
		out = append(out, &e)
	}
	return out, rows.Err()
}

// EnrolledCourseIDs maps the offerings a student is currently enrolled in to
// the enrollment time. A nil term covers every term.
func (r *EnrollmentRepository) EnrolledCourseIDs(ctx context.Context, studentID int64, term *models.Term) (map[int64]time.Time, error) {
	filter := EnrollmentFilter{StudentID: studentID, Status: models.EnrollmentStatusEnrolled, Term: term}
	sql, args, err := r.sb.Select("e.course_id", "e.enrolled_at").
		From("enrollments e").
		Where(filter.where()).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build enrolled course ids query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error listing enrolled course ids: %w", err)
	}
	defer rows.Close()

	ids := make(map[int64]time.Time)
	for rows.Next() {
		var (
			id int64
			at time.Time
		)
		if err := rows.Scan(&id, &at); err != nil {
			return nil, fmt.Errorf("error scanning enrolled course id: %w", err)
		}
		ids[id] = at
	}
	return ids, rows.Err()
}

// CreditsByType sums the credits of the matching rows per course type
func (r *EnrollmentRepository) CreditsByType(ctx context.Context, filter EnrollmentFilter) (map[models.CourseType]int, error) {
	sql, args, err := r.sb.Select("c.course_type", "COALESCE(SUM(c.credits), 0)").
		From("enrollments e").
		Join("courses c ON c.id = e.course_id").
		Where(filter.where()).
		GroupBy("c.course_type").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build credits query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error summing credits: %w", err)
	}
	defer rows.Close()

	sums := make(map[models.CourseType]int)
	for rows.Next() {
		var (
			ct      models.CourseType
			credits int
		)
		if err := rows.Scan(&ct, &credits); err != nil {
			return nil, fmt.Errorf("error scanning credits: %w", err)
		}
		sums[ct] = credits
	}
	return sums, rows.Err()
}

// CountByStudentAndStatus counts a student's ledger rows in one status
func (r *EnrollmentRepository) CountByStudentAndStatus(ctx context.Context, studentID int64, status models.EnrollmentStatus) (int, error) {
	sql, args, err := r.sb.Select("COUNT(*)").
		From("enrollments").
		Where(squirrel.Eq{"student_id": studentID, "status": status}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build count enrollments query: %w", err)
	}
	var n int
	if err := r.db.QueryRow(ctx, sql, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("error counting enrollments: %w", err)
	}
	return n, nil
}

// SetResult records passed or failed on an enrolled row. The seat stays
// consumed, so the offering counter is unchanged.
func (r *EnrollmentRepository) SetResult(ctx context.Context, enrollmentID int64, status models.EnrollmentStatus) (*models.Enrollment, error) {
	sql, args, err := r.sb.Update("enrollments").
		Set("status", status).
		Set("updated_at", time.Now()).
		Where(squirrel.Eq{"id": enrollmentID, "status": models.EnrollmentStatusEnrolled}).
		Suffix("RETURNING id, student_id, course_id, academic_year, semester, status, enrolled_at, updated_at").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build set result query: %w", err)
	}

	e, err := scanEnrollment(r.db.QueryRow(ctx, sql, args...))
	if err == nil {
		return e, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("error setting enrollment result: %w", err)
	}

	// Tell a missing row apart from one that is not enrolled.
	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM enrollments WHERE id = $1)`, enrollmentID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("error checking enrollment: %w", err)
	}
	if !exists {
		return nil, apperrors.ErrEnrollmentNotFound
	}
	return nil, apperrors.ErrNotEnrolled
}

type enrollmentTx struct {
	tx pgx.Tx
	sb squirrel.StatementBuilderType
}

// LockStudent serialises enroll/drop calls of one student so two concurrent
// requests cannot both pass the time-conflict scan.
func (t *enrollmentTx) LockStudent(ctx context.Context, studentID int64) error {
	sql, args, err := t.sb.Select("id").From("users").Where(squirrel.Eq{"id": studentID}).Suffix("FOR UPDATE").ToSql()
	if err != nil {
		return fmt.Errorf("failed to build lock student query: %w", err)
	}
	var id int64
	if err := t.tx.QueryRow(ctx, sql, args...).Scan(&id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.ErrUserNotFound
		}
		return fmt.Errorf("error locking student: %w", err)
	}
	return nil
}

func (t *enrollmentTx) LockCourse(ctx context.Context, courseID int64) (*models.Course, error) {
	return getCourse(ctx, t.tx, t.sb, courseID, true)
}

func (t *enrollmentTx) FindRecord(ctx context.Context, studentID, courseID int64, term models.Term, status models.EnrollmentStatus) (*models.Enrollment, error) {
	sql, args, err := t.sb.Select(enrollmentColumns...).
		From("enrollments e").
		Where(squirrel.Eq{
			"e.student_id":    studentID,
			"e.course_id":     courseID,
			"e.academic_year": term.AcademicYear,
			"e.semester":      term.Semester,
			"e.status":        status,
		}).
		OrderBy("e.id DESC").
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build find enrollment query: %w", err)
	}

	e, err := scanEnrollment(t.tx.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("error finding enrollment: %w", err)
	}
	return e, nil
}

func (t *enrollmentTx) ListEnrolledCourses(ctx context.Context, studentID int64, term models.Term) ([]*models.Course, error) {
	filter := EnrollmentFilter{StudentID: studentID, Status: models.EnrollmentStatusEnrolled, Term: &term}
	sql, args, err := selectCourses(t.sb).
		Join("enrollments e ON e.course_id = c.id").
		Where(filter.where()).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build enrolled courses query: %w", err)
	}

	rows, err := t.tx.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error listing enrolled courses: %w", err)
	}
	return collectCourses(rows)
}

func (t *enrollmentTx) InsertRecord(ctx context.Context, e *models.Enrollment) error {
	now := time.Now()
	sql, args, err := t.sb.Insert("enrollments").
		Columns("student_id", "course_id", "academic_year", "semester", "status", "enrolled_at", "updated_at").
		Values(e.StudentID, e.CourseID, e.AcademicYear, e.Semester, e.Status, now, now).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build insert enrollment query: %w", err)
	}

	if err := t.tx.QueryRow(ctx, sql, args...).Scan(&e.ID); err != nil {
		if dberrors.IsDuplicateConstraintError(err, "uq_enrollments_active") {
			return apperrors.ErrAlreadyEnrolled
		}
		logger.Ctx(ctx).Error().Err(err).Int64("studentID", e.StudentID).Int64("courseID", e.CourseID).Msg("Error inserting enrollment")
		return fmt.Errorf("error inserting enrollment: %w", err)
	}
	e.EnrolledAt, e.UpdatedAt = now, now
	return nil
}

func (t *enrollmentTx) SetRecordStatus(ctx context.Context, enrollmentID int64, status models.EnrollmentStatus) error {
	sql, args, err := t.sb.Update("enrollments").
		Set("status", status).
		Set("updated_at", time.Now()).
		Where(squirrel.Eq{"id": enrollmentID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update enrollment query: %w", err)
	}
	tag, err := t.tx.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("error updating enrollment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrEnrollmentNotFound
	}
	return nil
}

// SaveCourseCounter writes the counter and status of a locked offering. The
// capacity guard in the WHERE clause backs up the row lock.
func (t *enrollmentTx) SaveCourseCounter(ctx context.Context, c *models.Course) error {
	sql, args, err := t.sb.Update("courses").
		Set("current_students", c.CurrentStudents).
		Set("status", c.Status).
		Set("updated_at", time.Now()).
		Where(squirrel.Eq{"id": c.ID}).
		Where(squirrel.GtOrEq{"max_students": c.CurrentStudents}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update course counter query: %w", err)
	}
	tag, err := t.tx.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("error updating course counter: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrCourseFull
	}
	return nil
}
