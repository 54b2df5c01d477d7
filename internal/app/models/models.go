package models

import "fmt"

// RoleType defines the user role type
type RoleType string

const (
	RoleStudent RoleType = "student"
	RoleTeacher RoleType = "teacher"
	RoleAdmin   RoleType = "admin"
)

// Valid reports whether r is a known role.
func (r RoleType) Valid() bool {
	switch r {
	case RoleStudent, RoleTeacher, RoleAdmin:
		return true
	}
	return false
}

// Term identifies a registration period, e.g. academic year 114 semester 1.
type Term struct {
	AcademicYear int `json:"academic_year" db:"academic_year"`
	Semester     int `json:"semester" db:"semester"`
}

func (t Term) String() string {
	return fmt.Sprintf("%d-%d", t.AcademicYear, t.Semester)
}

// Semester values
const (
	SemesterFirst  = 1
	SemesterSecond = 2
)

// CourseType classifies an offering for credit accounting.
type CourseType string

const (
	CourseTypeRequired        CourseType = "required"
	CourseTypeElective        CourseType = "elective"
	CourseTypeGeneralRequired CourseType = "general_required"
	CourseTypeGeneralElective CourseType = "general_elective"
)

// CourseTypes lists every course type in display order.
var CourseTypes = []CourseType{
	CourseTypeRequired,
	CourseTypeElective,
	CourseTypeGeneralRequired,
	CourseTypeGeneralElective,
}

// Valid reports whether t is a known course type.
func (t CourseType) Valid() bool {
	for _, ct := range CourseTypes {
		if ct == t {
			return true
		}
	}
	return false
}

// IsGeneral reports whether the type counts towards general education credits.
func (t CourseType) IsGeneral() bool {
	return t == CourseTypeGeneralRequired || t == CourseTypeGeneralElective
}

// CourseStatus is the registration state of an offering.
type CourseStatus string

const (
	CourseStatusOpen   CourseStatus = "open"
	CourseStatusFull   CourseStatus = "full"
	CourseStatusClosed CourseStatus = "closed"
)

// EnrollmentStatus is the state of a single enrollment record.
type EnrollmentStatus string

const (
	EnrollmentStatusEnrolled EnrollmentStatus = "enrolled"
	EnrollmentStatusDropped  EnrollmentStatus = "dropped"
	EnrollmentStatusPassed   EnrollmentStatus = "passed"
	EnrollmentStatusFailed   EnrollmentStatus = "failed"
)
