package seed

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	appModels "github.com/yigit/coursereg/internal/app/models"
	appRepos "github.com/yigit/coursereg/internal/app/repositories"
	"github.com/yigit/coursereg/internal/pkg/apperrors"
	"github.com/yigit/coursereg/internal/pkg/auth"
)

// AdminAccount describes the administrator created on first start.
type AdminAccount struct {
	Username string
	Password string
	RealName string
}

// CreateDefaultAdmin creates the administrator account when no user with that
// username exists yet. An empty password is replaced by a random one that is
// logged once; the account must change it on first login either way.
func CreateDefaultAdmin(ctx context.Context, userRepo appRepos.IUserRepository, admin AdminAccount, lgr zerolog.Logger) error {
	if admin.Username == "" {
		return errors.New("admin username is empty")
	}

	exists, err := userRepo.UsernameExists(ctx, admin.Username)
	if err != nil {
		return fmt.Errorf("failed to check admin account: %w", err)
	}
	if exists {
		lgr.Debug().Str("username", admin.Username).Msg("Admin account already present")
		return nil
	}

	password := admin.Password
	generated := password == ""
	if generated {
		password = uuid.NewString()
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("failed to hash admin password: %w", err)
	}

	user := &appModels.User{
		Username:            admin.Username,
		Password:            hash,
		RealName:            admin.RealName,
		Roles:               []appModels.RoleType{appModels.RoleAdmin},
		ForcePasswordChange: true,
	}
	if err := userRepo.Create(ctx, user); err != nil {
		// Another instance won the race.
		if errors.Is(err, apperrors.ErrUsernameExists) {
			return nil
		}
		return fmt.Errorf("failed to create admin account: %w", err)
	}

	event := lgr.Warn().Str("username", admin.Username).Int64("userID", user.ID)
	if generated {
		event = event.Str("password", password)
	}
	event.Msg("Default admin account created, password change required on first login")
	return nil
}
