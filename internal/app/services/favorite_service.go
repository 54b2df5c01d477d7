package services

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/yigit/coursereg/internal/app/models/dto"
	"github.com/yigit/coursereg/internal/app/repositories"
)

// FavoriteService manages course bookmarks
type FavoriteService interface {
	Toggle(ctx context.Context, studentID, courseID int64) (*dto.FavoriteResponse, error)
	List(ctx context.Context, studentID int64) (*dto.CourseListResponse, error)
}

type favoriteServiceImpl struct {
	favoriteRepo   repositories.IFavoriteRepository
	courseRepo     repositories.ICourseRepository
	enrollmentRepo repositories.IEnrollmentRepository
	logger         zerolog.Logger
}

// NewFavoriteService creates a new FavoriteService
func NewFavoriteService(
	favoriteRepo repositories.IFavoriteRepository,
	courseRepo repositories.ICourseRepository,
	enrollmentRepo repositories.IEnrollmentRepository,
	logger zerolog.Logger,
) FavoriteService {
	return &favoriteServiceImpl{
		favoriteRepo:   favoriteRepo,
		courseRepo:     courseRepo,
		enrollmentRepo: enrollmentRepo,
		logger:         logger,
	}
}

// Toggle adds the course to the student's favorites, or removes it when it
// is already there.
func (s *favoriteServiceImpl) Toggle(ctx context.Context, studentID, courseID int64) (*dto.FavoriteResponse, error) {
	if _, err := s.courseRepo.GetByID(ctx, courseID); err != nil {
		return nil, err
	}

	favorited, err := s.favoriteRepo.Toggle(ctx, studentID, courseID)
	if err != nil {
		return nil, err
	}

	s.logger.Debug().Int64("studentID", studentID).Int64("courseID", courseID).Bool("favorited", favorited).Msg("Favorite toggled")
	if favorited {
		return &dto.FavoriteResponse{Message: "Added to favorites", IsFavorited: true}, nil
	}
	return &dto.FavoriteResponse{Message: "Removed from favorites", IsFavorited: false}, nil
}

// List returns the student's favorites, newest first, marking the ones the
// student is enrolled in.
func (s *favoriteServiceImpl) List(ctx context.Context, studentID int64) (*dto.CourseListResponse, error) {
	favorites, err := s.favoriteRepo.ListWithCourses(ctx, studentID)
	if err != nil {
		return nil, err
	}
	enrolled, err := s.enrollmentRepo.EnrolledCourseIDs(ctx, studentID, nil)
	if err != nil {
		return nil, err
	}

	resp := &dto.CourseListResponse{Courses: make([]dto.CourseResponse, 0, len(favorites))}
	for _, f := range favorites {
		if f.Course == nil {
			continue
		}
		cr := dto.NewCourseResponse(f.Course)
		favoritedAt := f.CreatedAt
		cr.IsFavorited = true
		cr.FavoritedAt = &favoritedAt
		if at, ok := enrolled[f.CourseID]; ok {
			cr.IsEnrolled = true
			cr.EnrolledDate = &at
		}
		resp.Courses = append(resp.Courses, cr)
	}
	resp.Count = len(resp.Courses)
	return resp, nil
}
