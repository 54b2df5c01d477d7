package dto

// EnrollmentResponse is returned by enroll and drop.
type EnrollmentResponse struct {
	Message    string `json:"message" example:"Enrolled"`
	CourseName string `json:"course_name" example:"Operating Systems"`
}

// FavoriteResponse is returned when a favorite is toggled.
type FavoriteResponse struct {
	Message     string `json:"message" example:"Added to favorites"`
	IsFavorited bool   `json:"is_favorited"`
}

// EnrolledQuery selects the term of GET /courses/enrolled.
type EnrolledQuery struct {
	AcademicYear int `form:"academic_year" binding:"omitempty,min=1"`
	Semester     int `form:"semester" binding:"omitempty,oneof=1 2"`
}

// SetEnrollmentResultRequest records the final grade status of a record.
type SetEnrollmentResultRequest struct {
	Status string `json:"status" binding:"required,oneof=passed failed"`
}
