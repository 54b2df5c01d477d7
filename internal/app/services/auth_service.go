package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/yigit/coursereg/internal/app/models"
	"github.com/yigit/coursereg/internal/app/models/dto"
	"github.com/yigit/coursereg/internal/app/repositories"
	"github.com/yigit/coursereg/internal/pkg/apperrors"
	"github.com/yigit/coursereg/internal/pkg/auth"
	"github.com/yigit/coursereg/internal/pkg/validation"
)

// defaultStudentGrade applies when a student registers without a grade.
const defaultStudentGrade = 3

// AuthService defines registration, sign-in and account self-service
type AuthService interface {
	Register(ctx context.Context, req *dto.RegisterRequest) (*models.User, error)
	Login(ctx context.Context, req *dto.LoginRequest) (*dto.LoginResponse, error)
	RefreshToken(ctx context.Context, refreshToken string) (*dto.TokenResponse, error)
	Logout(ctx context.Context, userID int64) error
	ChangePassword(ctx context.Context, userID int64, req *dto.ChangePasswordRequest) error
	GetProfile(ctx context.Context, userID int64) (*dto.ProfileResponse, error)
}

// PasswordHasher hashes and checks passwords
type PasswordHasher interface {
	Hash(password string) (string, error)
	Check(hash, password string) bool
}

type bcryptHasher struct{}

func (bcryptHasher) Hash(password string) (string, error) { return auth.HashPassword(password) }
func (bcryptHasher) Check(hash, password string) bool     { return auth.CheckPassword(hash, password) }

// BcryptHasher is the production PasswordHasher
var BcryptHasher PasswordHasher = bcryptHasher{}

type authServiceImpl struct {
	userRepo   repositories.IUserRepository
	tokenRepo  repositories.ITokenRepository
	jwtService *auth.JWTService
	hasher     PasswordHasher
	logger     zerolog.Logger
}

// NewAuthService creates a new AuthService
func NewAuthService(
	userRepo repositories.IUserRepository,
	tokenRepo repositories.ITokenRepository,
	jwtService *auth.JWTService,
	hasher PasswordHasher,
	logger zerolog.Logger,
) AuthService {
	return &authServiceImpl{
		userRepo:   userRepo,
		tokenRepo:  tokenRepo,
		jwtService: jwtService,
		hasher:     hasher,
		logger:     logger,
	}
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// Register creates a student or teacher account. The username is the student
// or teacher number for those roles.
func (s *authServiceImpl) Register(ctx context.Context, req *dto.RegisterRequest) (*models.User, error) {
	username := strings.TrimSpace(req.Username)
	switch req.Role {
	case models.RoleStudent:
		if strings.TrimSpace(req.StudentID) == "" {
			return nil, apperrors.NewBadRequestError("student_id is required for students")
		}
		username = strings.TrimSpace(req.StudentID)
	case models.RoleTeacher:
		if strings.TrimSpace(req.TeacherID) == "" {
			return nil, apperrors.NewBadRequestError("teacher_id is required for teachers")
		}
		username = strings.TrimSpace(req.TeacherID)
	default:
		return nil, apperrors.NewBadRequestError("role must be student or teacher")
	}

	if !validation.ValidUsername(username) {
		return nil, apperrors.NewBadRequestError("username may only contain letters, digits, '.', '_' or '-' (3-50 characters)")
	}
	if !validation.ValidPassword(req.Password) {
		return nil, apperrors.NewCustomError(apperrors.ErrInvalidPassword, "password must be 8 to 72 characters long")
	}

	exists, err := s.userRepo.UsernameExists(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("error checking if username exists: %w", err)
	}
	if exists {
		return nil, apperrors.ErrUsernameExists
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, fmt.Errorf("error hashing password: %w", err)
	}

	realName := strings.TrimSpace(req.RealName)
	if realName == "" {
		realName = username
	}

	user := &models.User{
		Username:   username,
		Password:   hash,
		RealName:   realName,
		Roles:      []models.RoleType{req.Role},
		Department: optional(req.Department),
	}
	if req.Role == models.RoleStudent {
		user.StudentID = optional(req.StudentID)
		grade := defaultStudentGrade
		if req.Grade != nil {
			grade = *req.Grade
		}
		user.Grade = &grade
	} else {
		user.TeacherID = optional(req.TeacherID)
		user.Office = optional(req.Office)
		user.Title = optional(req.Title)
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info().Int64("userID", user.ID).Str("username", user.Username).Str("role", string(req.Role)).Msg("User registered")
	return user, nil
}

// Login checks the credentials and issues a token pair
func (s *authServiceImpl) Login(ctx context.Context, req *dto.LoginRequest) (*dto.LoginResponse, error) {
	user, err := s.userRepo.GetByUsername(ctx, strings.TrimSpace(req.Username))
	if err != nil {
		if errors.Is(err, apperrors.ErrUserNotFound) {
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, err
	}

	if !s.hasher.Check(user.Password, req.Password) {
		return nil, apperrors.ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, apperrors.ErrAccountDisabled
	}

	token, err := s.generateTokenResponse(ctx, user)
	if err != nil {
		return nil, err
	}

	if err := s.userRepo.UpdateLastLogin(ctx, user.ID); err != nil {
		s.logger.Warn().Err(err).Int64("userID", user.ID).Msg("Could not record last login")
	}

	// Administrators are never forced through the password change flow.
	force := user.ForcePasswordChange && !user.HasRole(models.RoleAdmin)

	return &dto.LoginResponse{
		Username:            user.Username,
		RealName:            user.RealName,
		Role:                string(user.PrimaryRole()),
		Roles:               user.RoleStrings(),
		ForcePasswordChange: force,
		CSRFToken:           token.TokenID,
		Token:               *token,
	}, nil
}

// RefreshToken rotates a refresh token into a new token pair
func (s *authServiceImpl) RefreshToken(ctx context.Context, refreshToken string) (*dto.TokenResponse, error) {
	if strings.TrimSpace(refreshToken) == "" {
		return nil, apperrors.ErrTokenInvalid
	}

	userID, err := s.tokenRepo.GetUserIDByToken(ctx, refreshToken)
	if err != nil {
		return nil, err
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, apperrors.ErrAccountDisabled
	}

	// Revoked before issuing the new pair so a token is never reusable.
	if err := s.tokenRepo.RevokeToken(ctx, refreshToken); err != nil {
		return nil, fmt.Errorf("failed to revoke old token: %w", err)
	}

	return s.generateTokenResponse(ctx, user)
}

// Logout revokes every refresh token of the user. Access tokens expire on
// their own.
func (s *authServiceImpl) Logout(ctx context.Context, userID int64) error {
	if err := s.tokenRepo.RevokeAllUserTokens(ctx, userID); err != nil {
		return err
	}
	s.logger.Info().Int64("userID", userID).Msg("User logged out")
	return nil
}

// ChangePassword verifies the old password, stores the new one and signs
// out other sessions.
func (s *authServiceImpl) ChangePassword(ctx context.Context, userID int64, req *dto.ChangePasswordRequest) error {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if !s.hasher.Check(user.Password, req.OldPassword) {
		return apperrors.NewCustomError(apperrors.ErrInvalidPassword, "old password is incorrect")
	}
	if !validation.ValidPassword(req.NewPassword) {
		return apperrors.NewCustomError(apperrors.ErrInvalidPassword, "password must be 8 to 72 characters long")
	}
	if req.NewPassword == req.OldPassword {
		return apperrors.NewBadRequestError("new password must differ from the old one")
	}

	hash, err := s.hasher.Hash(req.NewPassword)
	if err != nil {
		return fmt.Errorf("error hashing password: %w", err)
	}
	if err := s.userRepo.UpdatePassword(ctx, userID, hash); err != nil {
		return err
	}
	if err := s.tokenRepo.RevokeAllUserTokens(ctx, userID); err != nil {
		s.logger.Warn().Err(err).Int64("userID", userID).Msg("Could not revoke tokens after password change")
	}
	return nil
}

// GetProfile returns the caller's profile
func (s *authServiceImpl) GetProfile(ctx context.Context, userID int64) (*dto.ProfileResponse, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	profile := dto.NewProfileResponse(user)
	return &profile, nil
}

// generateTokenResponse issues a token pair and stores the refresh token
func (s *authServiceImpl) generateTokenResponse(ctx context.Context, user *models.User) (*dto.TokenResponse, error) {
	pair, err := s.jwtService.GenerateTokenPair(user)
	if err != nil {
		return nil, fmt.Errorf("token generation error: %w", err)
	}

	if err := s.tokenRepo.CreateToken(ctx, pair.RefreshToken, user.ID, s.jwtService.GetRefreshTokenExpiry()); err != nil {
		return nil, fmt.Errorf("token saving error: %w", err)
	}

	return &dto.TokenResponse{
		AccessToken:           pair.AccessToken,
		TokenType:             "Bearer",
		ExpiresIn:             int64(pair.ExpiresIn),
		RefreshToken:          pair.RefreshToken,
		RefreshTokenExpiresIn: int64(pair.RefreshExpiresIn),
		TokenID:               pair.TokenID,
	}, nil
}
