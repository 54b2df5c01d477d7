package models

import "time"

// Enrollment is one ledger record for (student, course, term). Records are
// never deleted; dropping flips the status.
type Enrollment struct {
	ID           int64            `json:"id" db:"id"`
	StudentID    int64            `json:"student_id" db:"student_id"`
	CourseID     int64            `json:"course_id" db:"course_id"`
	AcademicYear int              `json:"academic_year" db:"academic_year"`
	Semester     int              `json:"semester" db:"semester"`
	Status       EnrollmentStatus `json:"status" db:"status"`
	EnrolledAt   time.Time        `json:"enrolled_at" db:"enrolled_at"`
	UpdatedAt    time.Time        `json:"updated_at" db:"updated_at"`

	Course *Course `json:"course,omitempty" db:"-"`
}

// Term returns the registration period of the record.
func (e *Enrollment) Term() Term {
	return Term{AcademicYear: e.AcademicYear, Semester: e.Semester}
}

// Favorite is a bookmark of a course by a student.
type Favorite struct {
	StudentID int64     `json:"student_id" db:"student_id"`
	CourseID  int64     `json:"course_id" db:"course_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	Course *Course `json:"course,omitempty" db:"-"`
}
