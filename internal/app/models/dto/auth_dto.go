package dto

import "github.com/yigit/coursereg/internal/app/models"

// LoginRequest represents login credentials
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// TokenResponse represents JWT token information
type TokenResponse struct {
	AccessToken           string `json:"accessToken"`
	TokenType             string `json:"tokenType" example:"Bearer"`
	ExpiresIn             int64  `json:"expiresIn"`
	RefreshToken          string `json:"refreshToken,omitempty"`
	RefreshTokenExpiresIn int64  `json:"refreshTokenExpiresIn,omitempty"`
	TokenID               string `json:"-"`
}

// LoginResponse is returned after a successful login.
type LoginResponse struct {
	Username            string        `json:"username" example:"B11234567"`
	RealName            string        `json:"real_name" example:"Lin Mei"`
	Role                string        `json:"role,omitempty" example:"student"`
	Roles               []string      `json:"roles"`
	ForcePasswordChange bool          `json:"force_password_change"`
	CSRFToken           string        `json:"csrfToken"`
	Token               TokenResponse `json:"token"`
}

// RefreshTokenRequest represents refresh token request
type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

// RegisterRequest carries the role specific identifiers: students register
// with StudentID and teachers with TeacherID, which become the username.
type RegisterRequest struct {
	Username   string          `json:"username"`
	Password   string          `json:"password" binding:"required,min=8"`
	Role       models.RoleType `json:"role" binding:"required,oneof=student teacher"`
	RealName   string          `json:"real_name"`
	StudentID  string          `json:"student_id"`
	Department string          `json:"department"`
	Grade      *int            `json:"grade" binding:"omitempty,min=1,max=4"`
	TeacherID  string          `json:"teacher_id"`
	Office     string          `json:"office"`
	Title      string          `json:"title"`
}

// ChangePasswordRequest represents a password change by the logged in user
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=8"`
}

// ProfileResponse represents the authenticated user's profile
type ProfileResponse struct {
	ID                  int64    `json:"id"`
	Username            string   `json:"username"`
	RealName            string   `json:"real_name"`
	Role                string   `json:"role,omitempty"`
	Roles               []string `json:"roles"`
	StudentID           *string  `json:"student_id,omitempty"`
	TeacherID           *string  `json:"teacher_id,omitempty"`
	Department          *string  `json:"department,omitempty"`
	Grade               *int     `json:"grade,omitempty"`
	Office              *string  `json:"office,omitempty"`
	Title               *string  `json:"title,omitempty"`
	ForcePasswordChange bool     `json:"force_password_change"`
}

// NewProfileResponse maps a user onto its public profile.
func NewProfileResponse(u *models.User) ProfileResponse {
	return ProfileResponse{
		ID:                  u.ID,
		Username:            u.Username,
		RealName:            u.RealName,
		Role:                string(u.PrimaryRole()),
		Roles:               u.RoleStrings(),
		StudentID:           u.StudentID,
		TeacherID:           u.TeacherID,
		Department:          u.Department,
		Grade:               u.Grade,
		Office:              u.Office,
		Title:               u.Title,
		ForcePasswordChange: u.ForcePasswordChange,
	}
}
