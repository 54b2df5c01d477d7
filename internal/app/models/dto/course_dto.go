package dto

import (
	"time"

	"github.com/yigit/coursereg/internal/app/models"
)

// CourseSearchQuery is bound from the query string of GET /courses/search.
// Weekdays and Periods are comma separated lists.
type CourseSearchQuery struct {
	AcademicYear int    `form:"academic_year" binding:"omitempty,min=1"`
	Department   string `form:"department"`
	Semester     int    `form:"semester" binding:"omitempty,oneof=1 2"`
	CourseType   string `form:"course_type" binding:"omitempty,course_type"`
	GradeLevel   int    `form:"grade_level" binding:"omitempty,min=1,max=4"`
	Weekdays     string `form:"weekdays"`
	Periods      string `form:"periods"`
	SearchType   string `form:"search_type" binding:"omitempty,oneof=course_code course_name teacher_name"`
	SearchQuery  string `form:"search_query"`
}

// CourseResponse is the public representation of an offering.
type CourseResponse struct {
	ID              int64  `json:"id" example:"12"`
	CourseCode      string `json:"course_code" example:"CS301"`
	CourseName      string `json:"course_name" example:"Operating Systems"`
	CourseType      string `json:"course_type" example:"required"`
	Description     string `json:"description"`
	Credits         int    `json:"credits" example:"3"`
	Hours           int    `json:"hours" example:"3"`
	AcademicYear    int    `json:"academic_year" example:"114"`
	Semester        int    `json:"semester" example:"1"`
	Department      string `json:"department" example:"Computer Science"`
	GradeLevel      int    `json:"grade_level" example:"3"`
	TeacherID       *int64 `json:"teacher_id,omitempty"`
	TeacherName     string `json:"teacher_name" example:"Chen Wei"`
	Classroom       string `json:"classroom" example:"E-301"`
	Weekday         int    `json:"weekday" example:"2"`
	TimeDisplay     string `json:"time_display" example:"Tue 3-4"`
	StartPeriod     int    `json:"start_period" example:"3"`
	EndPeriod       int    `json:"end_period" example:"4"`
	MaxStudents     int    `json:"max_students" example:"50"`
	CurrentStudents int    `json:"current_students" example:"12"`
	Status          string `json:"status" example:"open"`
	IsFull          bool   `json:"is_full"`
	IsFavorited     bool   `json:"is_favorited"`
	IsEnrolled      bool   `json:"is_enrolled"`

	FavoritedAt  *time.Time `json:"favorited_at,omitempty"`
	EnrolledDate *time.Time `json:"enrolled_date,omitempty"`
}

// NewCourseResponse maps an offering onto its response shape.
func NewCourseResponse(c *models.Course) CourseResponse {
	teacherName := c.TeacherName
	if teacherName == "" {
		teacherName = "unassigned"
	}
	return CourseResponse{
		ID:              c.ID,
		CourseCode:      c.CourseCode,
		CourseName:      c.CourseName,
		CourseType:      string(c.CourseType),
		Description:     c.Description,
		Credits:         c.Credits,
		Hours:           c.Hours,
		AcademicYear:    c.AcademicYear,
		Semester:        c.Semester,
		Department:      c.Department,
		GradeLevel:      c.GradeLevel,
		TeacherID:       c.TeacherID,
		TeacherName:     teacherName,
		Classroom:       c.Classroom,
		Weekday:         c.Weekday,
		TimeDisplay:     c.TimeDisplay(),
		StartPeriod:     c.StartPeriod,
		EndPeriod:       c.EndPeriod,
		MaxStudents:     c.MaxStudents,
		CurrentStudents: c.CurrentStudents,
		Status:          string(c.Status),
		IsFull:          c.IsFull(),
	}
}

// CourseListResponse is returned by search, favorites and enrolled listings.
type CourseListResponse struct {
	Courses      []CourseResponse `json:"courses"`
	Count        int              `json:"count" example:"1"`
	TotalCredits *int             `json:"total_credits,omitempty"`
}

// CreateCourseRequest represents the payload for creating an offering
type CreateCourseRequest struct {
	CourseCode   string `json:"course_code" binding:"required,max=20"`
	CourseName   string `json:"course_name" binding:"required,max=200"`
	CourseType   string `json:"course_type" binding:"required,course_type"`
	Description  string `json:"description"`
	Credits      int    `json:"credits" binding:"required,min=1,max=10"`
	Hours        int    `json:"hours" binding:"required,min=1,max=20"`
	AcademicYear int    `json:"academic_year" binding:"required,min=1"`
	Semester     int    `json:"semester" binding:"required,oneof=1 2"`
	Department   string `json:"department" binding:"required"`
	GradeLevel   int    `json:"grade_level" binding:"required,min=1,max=4"`
	TeacherID    int64  `json:"teacher_id" binding:"required,min=1"`
	Classroom    string `json:"classroom" binding:"required"`
	Weekday      int    `json:"weekday" binding:"required,weekday"`
	StartPeriod  int    `json:"start_period" binding:"required,min=1,max=14"`
	EndPeriod    int    `json:"end_period" binding:"required,min=1,max=14,gtefield=StartPeriod"`
	MaxStudents  int    `json:"max_students" binding:"omitempty,min=1"`
}

// UpdateCourseRequest represents the editable fields of an offering. The
// capacity counter and status are not editable here.
type UpdateCourseRequest struct {
	CourseName  string `json:"course_name" binding:"required,max=200"`
	CourseType  string `json:"course_type" binding:"required,course_type"`
	Description string `json:"description"`
	Credits     int    `json:"credits" binding:"required,min=1,max=10"`
	Hours       int    `json:"hours" binding:"required,min=1,max=20"`
	Department  string `json:"department" binding:"required"`
	GradeLevel  int    `json:"grade_level" binding:"required,min=1,max=4"`
	TeacherID   int64  `json:"teacher_id" binding:"required,min=1"`
	Classroom   string `json:"classroom" binding:"required"`
	Weekday     int    `json:"weekday" binding:"required,weekday"`
	StartPeriod int    `json:"start_period" binding:"required,min=1,max=14"`
	EndPeriod   int    `json:"end_period" binding:"required,min=1,max=14,gtefield=StartPeriod"`
	MaxStudents int    `json:"max_students" binding:"required,min=1"`
}

// UpdateCourseStatusRequest opens or closes an offering.
type UpdateCourseStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=open closed"`
}

// CreateCourseResponse is returned after an offering is created.
type CreateCourseResponse struct {
	Message    string `json:"message" example:"Course created"`
	CourseID   int64  `json:"course_id" example:"12"`
	CourseCode string `json:"course_code" example:"CS301"`
	CourseName string `json:"course_name" example:"Operating Systems"`
}

// Option is a value/label pair used by filter options.
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// FilterOptionsResponse lists the values the search form can offer.
type FilterOptionsResponse struct {
	Departments []string `json:"departments"`
	Semesters   []Option `json:"semesters"`
	CourseTypes []Option `json:"course_types"`
	Weekdays    []Option `json:"weekdays"`
	GradeLevels []Option `json:"grade_levels"`
}
