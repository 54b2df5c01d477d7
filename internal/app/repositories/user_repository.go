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

// IUserRepository defines the interface for user-related database operations
type IUserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	UsernameExists(ctx context.Context, username string) (bool, error)
	UpdateLastLogin(ctx context.Context, userID int64) error
	UpdatePassword(ctx context.Context, userID int64, passwordHash string) error
	ListByRole(ctx context.Context, role models.RoleType) ([]*models.User, error)
	UpdateProfile(ctx context.Context, userID int64, role models.RoleType, upd UserProfileUpdate) error
	DeleteWithRole(ctx context.Context, userID int64, role models.RoleType) error
}

// UserProfileUpdate lists the profile columns an administrator may change.
// Nil fields are left untouched.
type UserProfileUpdate struct {
	RealName   *string
	StudentID  *string
	Department *string
	Grade      *int
	Office     *string
	Title      *string
}

func (u UserProfileUpdate) setMap() map[string]interface{} {
	m := map[string]interface{}{}
	if u.RealName != nil {
		m["real_name"] = *u.RealName
	}
	if u.StudentID != nil {
		m["student_id"] = *u.StudentID
	}
	if u.Department != nil {
		m["department"] = *u.Department
	}
	if u.Grade != nil {
		m["grade"] = *u.Grade
	}
	if u.Office != nil {
		m["office"] = *u.Office
	}
	if u.Title != nil {
		m["title"] = *u.Title
	}
	return m
}

var userColumns = []string{
	"u.id", "u.username", "u.password", "u.real_name",
	"u.student_id", "u.teacher_id", "u.department", "u.grade", "u.office", "u.title",
	"u.force_password_change", "u.is_active", "u.last_login_at", "u.created_at", "u.updated_at",
	"ARRAY(SELECT ur.role FROM user_roles ur WHERE ur.user_id = u.id ORDER BY ur.role) AS roles",
}

func scanUser(row pgx.Row) (*models.User, error) {
	var (
		u     models.User
		roles []string
	)
	err := row.Scan(
		&u.ID, &u.Username, &u.Password, &u.RealName,
		&u.StudentID, &u.TeacherID, &u.Department, &u.Grade, &u.Office, &u.Title,
		&u.ForcePasswordChange, &u.IsActive, &u.LastLoginAt, &u.CreatedAt, &u.UpdatedAt,
		&roles,
	)
	if err != nil {
		return nil, err
	}
	u.Roles = make([]models.RoleType, 0, len(roles))
	for _, r := range roles {
		u.Roles = append(u.Roles, models.RoleType(r))
	}
	return &u, nil
}

// UserRepository handles users and their roles
type UserRepository struct {
	db *pgxpool.Pool
	sb squirrel.StatementBuilderType
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{
		db: db,
		sb: newStatementBuilder(),
	}
}

// Create inserts the user and its roles in one transaction and sets user.ID.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	now := time.Now()
	insertUser, args, err := r.sb.Insert("users").
		Columns("username", "password", "real_name", "student_id", "teacher_id", "department",
			"grade", "office", "title", "force_password_change", "is_active", "created_at", "updated_at").
		Values(user.Username, user.Password, user.RealName, user.StudentID, user.TeacherID, user.Department,
			user.Grade, user.Office, user.Title, user.ForcePasswordChange, true, now, now).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build create user query: %w", err)
	}

	err = db.WithTransaction(ctx, r.db, func(ctx context.Context, tx pgx.Tx) error {
		if err := tx.QueryRow(ctx, insertUser, args...).Scan(&user.ID); err != nil {
			return err
		}
		roles := r.sb.Insert("user_roles").Columns("user_id", "role")
		for _, role := range user.Roles {
			roles = roles.Values(user.ID, string(role))
		}
		sql, args, err := roles.ToSql()
		if err != nil {
			return fmt.Errorf("failed to build user roles query: %w", err)
		}
		_, err = tx.Exec(ctx, sql, args...)
		return err
	})
	if err != nil {
		switch {
		case dberrors.IsDuplicateConstraintError(err, "users_username_key"):
			return apperrors.ErrUsernameExists
		case dberrors.IsDuplicateConstraintError(err, "uq_users_student_id"):
			return apperrors.ErrStudentIDExists
		}
		logger.Ctx(ctx).Error().Err(err).Str("username", user.Username).Msg("Error creating user")
		return fmt.Errorf("error creating user: %w", err)
	}
	user.IsActive = true
	user.CreatedAt, user.UpdatedAt = now, now
	return nil
}

func (r *UserRepository) getOne(ctx context.Context, where squirrel.Sqlizer) (*models.User, error) {
	sql, args, err := r.sb.Select(userColumns...).From("users u").Where(where).Limit(1).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get user query: %w", err)
	}
	u, err := scanUser(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, fmt.Errorf("error retrieving user: %w", err)
	}
	return u, nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	return r.getOne(ctx, squirrel.Eq{"u.id": id})
}

// GetByUsername retrieves a user by username
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.getOne(ctx, squirrel.Eq{"u.username": username})
}

// UsernameExists checks if a username is taken
func (r *UserRepository) UsernameExists(ctx context.Context, username string) (bool, error) {
	sql, args, err := r.sb.Select("1").From("users").Where(squirrel.Eq{"username": username}).Prefix("SELECT EXISTS(").Suffix(")").ToSql()
	if err != nil {
		return false, fmt.Errorf("failed to build username exists query: %w", err)
	}
	var exists bool
	if err := r.db.QueryRow(ctx, sql, args...).Scan(&exists); err != nil {
		return false, fmt.Errorf("error checking username: %w", err)
	}
	return exists, nil
}

// UpdateLastLogin updates the last login time
func (r *UserRepository) UpdateLastLogin(ctx context.Context, userID int64) error {
	sql, args, err := r.sb.Update("users").
		Set("last_login_at", time.Now()).
		Where(squirrel.Eq{"id": userID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update last login query: %w", err)
	}
	if _, err := r.db.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("error updating last login: %w", err)
	}
	return nil
}

// UpdatePassword stores a new hash and clears the forced change flag.
func (r *UserRepository) UpdatePassword(ctx context.Context, userID int64, passwordHash string) error {
	sql, args, err := r.sb.Update("users").
		Set("password", passwordHash).
		Set("force_password_change", false).
		Set("updated_at", time.Now()).
		Where(squirrel.Eq{"id": userID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update password query: %w", err)
	}
	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("error updating password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrUserNotFound
	}
	return nil
}

func hasRole(role models.RoleType) squirrel.Sqlizer {
	return squirrel.Expr("EXISTS (SELECT 1 FROM user_roles r WHERE r.user_id = users.id AND r.role = ?)", string(role))
}

// ListByRole lists every user holding role, ordered by username.
func (r *UserRepository) ListByRole(ctx context.Context, role models.RoleType) ([]*models.User, error) {
	sql, args, err := r.sb.Select(userColumns...).
		From("users u").
		Join("user_roles ro ON ro.user_id = u.id").
		Where(squirrel.Eq{"ro.role": string(role)}).
		OrderBy("u.username").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build list users query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error listing users: %w", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// UpdateProfile changes the given columns of a user holding role.
func (r *UserRepository) UpdateProfile(ctx context.Context, userID int64, role models.RoleType, upd UserProfileUpdate) error {
	set := upd.setMap()
	if len(set) == 0 {
		_, err := r.getOne(ctx, squirrel.And{squirrel.Eq{"u.id": userID}, squirrel.Expr("EXISTS (SELECT 1 FROM user_roles r WHERE r.user_id = u.id AND r.role = ?)", string(role))})
		return err
	}
	set["updated_at"] = time.Now()

	sql, args, err := r.sb.Update("users").
		SetMap(set).
		Where(squirrel.Eq{"id": userID}).
		Where(hasRole(role)).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update profile query: %w", err)
	}
	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		if dberrors.IsDuplicateConstraintError(err, "uq_users_student_id") {
			return apperrors.ErrStudentIDExists
		}
		return fmt.Errorf("error updating profile: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrUserNotFound
	}
	return nil
}

// DeleteWithRole deletes a user holding role. Roles, tokens, favorites and
// ledger rows cascade.
func (r *UserRepository) DeleteWithRole(ctx context.Context, userID int64, role models.RoleType) error {
	sql, args, err := r.sb.Delete("users").
		Where(squirrel.Eq{"id": userID}).
		Where(hasRole(role)).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build delete user query: %w", err)
	}
	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("error deleting user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrUserNotFound
	}
	return nil
}
