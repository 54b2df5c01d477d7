package models

import (
	"time"
)

// User defines the user model based on the 'users' table. Profile fields that
// only apply to one role are nullable.
type User struct {
	ID                  int64      `json:"id" db:"id" example:"1"`
	Username            string     `json:"username" db:"username" example:"B11234567"`
	Password            string     `json:"-" db:"password"`
	RealName            string     `json:"real_name" db:"real_name" example:"Lin Mei"`
	Roles               []RoleType `json:"roles" db:"-"`
	StudentID           *string    `json:"student_id,omitempty" db:"student_id" example:"B11234567"`
	TeacherID           *string    `json:"teacher_id,omitempty" db:"teacher_id" example:"T0042"`
	Department          *string    `json:"department,omitempty" db:"department" example:"Computer Science"`
	Grade               *int       `json:"grade,omitempty" db:"grade" example:"3"`
	Office              *string    `json:"office,omitempty" db:"office"`
	Title               *string    `json:"title,omitempty" db:"title" example:"Associate Professor"`
	ForcePasswordChange bool       `json:"force_password_change" db:"force_password_change"`
	IsActive            bool       `json:"is_active" db:"is_active"`
	LastLoginAt         *time.Time `json:"last_login_at,omitempty" db:"last_login_at"`
	CreatedAt           time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at" db:"updated_at"`
}

// HasRole reports whether the user holds role.
func (u *User) HasRole(role RoleType) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// PrimaryRole picks the role shown to clients: student wins over teacher,
// teacher over admin. Empty when the user holds no role.
func (u *User) PrimaryRole() RoleType {
	for _, r := range []RoleType{RoleStudent, RoleTeacher, RoleAdmin} {
		if u.HasRole(r) {
			return r
		}
	}
	return ""
}

// RoleStrings returns the roles as plain strings.
func (u *User) RoleStrings() []string {
	out := make([]string, 0, len(u.Roles))
	for _, r := range u.Roles {
		out = append(out, string(r))
	}
	return out
}
