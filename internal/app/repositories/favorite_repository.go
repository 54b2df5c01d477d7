package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/yigit/coursereg/internal/app/models"
	"github.com/yigit/coursereg/internal/db"
	"github.com/yigit/coursereg/internal/pkg/apperrors"
	"github.com/yigit/coursereg/internal/pkg/dberrors"
)

// IFavoriteRepository stores course bookmarks
type IFavoriteRepository interface {
	Toggle(ctx context.Context, studentID, courseID int64) (bool, error)
	ListWithCourses(ctx context.Context, studentID int64) ([]*models.Favorite, error)
	CourseIDs(ctx context.Context, studentID int64) (map[int64]time.Time, error)
}

// FavoriteRepository handles favorites database operations
type FavoriteRepository struct {
	db *pgxpool.Pool
	sb squirrel.StatementBuilderType
}

// NewFavoriteRepository creates a new FavoriteRepository
func NewFavoriteRepository(db *pgxpool.Pool) *FavoriteRepository {
	return &FavoriteRepository{
		db: db,
		sb: newStatementBuilder(),
	}
}

// Toggle removes the bookmark when it exists and adds it otherwise. It
// reports whether the course is a favorite afterwards.
func (r *FavoriteRepository) Toggle(ctx context.Context, studentID, courseID int64) (bool, error) {
	var favorited bool
	err := db.WithTransaction(ctx, r.db, func(ctx context.Context, tx pgx.Tx) error {
		del, args, err := r.sb.Delete("favorites").
			Where(squirrel.Eq{"student_id": studentID, "course_id": courseID}).
			ToSql()
		if err != nil {
			return fmt.Errorf("failed to build delete favorite query: %w", err)
		}
		tag, err := tx.Exec(ctx, del, args...)
		if err != nil {
			return err
		}
		if tag.RowsAffected() > 0 {
			favorited = false
			return nil
		}

		ins, args, err := r.sb.Insert("favorites").
			Columns("student_id", "course_id", "created_at").
			Values(studentID, courseID, time.Now()).
			Suffix("ON CONFLICT DO NOTHING").
			ToSql()
		if err != nil {
			return fmt.Errorf("failed to build insert favorite query: %w", err)
		}
		if _, err := tx.Exec(ctx, ins, args...); err != nil {
			return err
		}
		favorited = true
		return nil
	})
	if err != nil {
		if dberrors.IsForeignKeyError(err) {
			return false, apperrors.ErrCourseNotFound
		}
		return false, fmt.Errorf("error toggling favorite: %w", err)
	}
	return favorited, nil
}

// ListWithCourses returns a student's favorites, newest first
func (r *FavoriteRepository) ListWithCourses(ctx context.Context, studentID int64) ([]*models.Favorite, error) {
	cols := append(append([]string{}, courseColumns...), "f.student_id", "f.course_id", "f.created_at")
	sql, args, err := r.sb.Select(cols...).
		From("favorites f").
		Join("courses c ON c.id = f.course_id").
		LeftJoin("users t ON t.id = c.teacher_id").
		Where(squirrel.Eq{"f.student_id": studentID}).
		OrderBy("f.created_at DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build list favorites query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error listing favorites: %w", err)
	}
	defer rows.Close()

	var out []*models.Favorite
	for rows.Next() {
		var f models.Favorite
		c, err := scanCourse(rows, &f.StudentID, &f.CourseID, &f.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("error scanning favorite: %w", err)
		}
		f.Course = c
		out = append(out, &f)
	}
	return out, rows.Err()
}

// CourseIDs maps a student's favorite courses to when they were added
func (r *FavoriteRepository) CourseIDs(ctx context.Context, studentID int64) (map[int64]time.Time, error) {
	sql, args, err := r.sb.Select("course_id", "created_at").
		From("favorites").
		Where(squirrel.Eq{"student_id": studentID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build favorite ids query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error listing favorite ids: %w", err)
	}
	defer rows.Close()

	ids := make(map[int64]time.Time)
	for rows.Next() {
		var (
			id int64
			at time.Time
		)
		if err := rows.Scan(&id, &at); err != nil {
			return nil, fmt.Errorf("error scanning favorite id: %w", err)
		}
		ids[id] = at
	}
	return ids, rows.Err()
}
