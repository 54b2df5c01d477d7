package models

import (
	"fmt"
	"time"
)

// Course is a scheduled offering of a course in one term. The capacity counter
// (CurrentStudents/MaxStudents) gates new enrollments.
type Course struct {
	ID              int64        `json:"id" db:"id"`
	CourseCode      string       `json:"course_code" db:"course_code"`
	CourseName      string       `json:"course_name" db:"course_name"`
	CourseType      CourseType   `json:"course_type" db:"course_type"`
	Description     string       `json:"description" db:"description"`
	Credits         int          `json:"credits" db:"credits"`
	Hours           int          `json:"hours" db:"hours"`
	AcademicYear    int          `json:"academic_year" db:"academic_year"`
	Semester        int          `json:"semester" db:"semester"`
	Department      string       `json:"department" db:"department"`
	GradeLevel      int          `json:"grade_level" db:"grade_level"`
	TeacherID       *int64       `json:"teacher_id,omitempty" db:"teacher_id"`
	Classroom       string       `json:"classroom" db:"classroom"`
	Weekday         int          `json:"weekday" db:"weekday"`
	StartPeriod     int          `json:"start_period" db:"start_period"`
	EndPeriod       int          `json:"end_period" db:"end_period"`
	MaxStudents     int          `json:"max_students" db:"max_students"`
	CurrentStudents int          `json:"current_students" db:"current_students"`
	Status          CourseStatus `json:"status" db:"status"`
	CreatedAt       time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at" db:"updated_at"`

	// Joined from users, empty when no teacher is assigned.
	TeacherName string `json:"teacher_name,omitempty" db:"-"`
}

// Term returns the registration period of the offering.
func (c *Course) Term() Term {
	return Term{AcademicYear: c.AcademicYear, Semester: c.Semester}
}

// IsFull reports whether the capacity counter is exhausted.
func (c *Course) IsFull() bool {
	return c.CurrentStudents >= c.MaxStudents
}

// Overlaps reports whether both offerings meet on the same weekday with
// intersecting period ranges. Ranges are inclusive: [1,2] and [2,3] share period 2.
func (c *Course) Overlaps(other *Course) bool {
	if c.Weekday != other.Weekday {
		return false
	}
	return PeriodsOverlap(c.StartPeriod, c.EndPeriod, other.StartPeriod, other.EndPeriod)
}

// PeriodsOverlap reports whether two inclusive period ranges intersect.
func PeriodsOverlap(aStart, aEnd, bStart, bEnd int) bool {
	return aStart <= bEnd && aEnd >= bStart
}

// TimeDisplay renders the weekday and period range, e.g. "Mon 3-4".
func (c *Course) TimeDisplay() string {
	return fmt.Sprintf("%s %d-%d", WeekdayName(c.Weekday), c.StartPeriod, c.EndPeriod)
}

var weekdayNames = [...]string{"", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}

// WeekdayName maps 1..7 to a short English name.
func WeekdayName(weekday int) string {
	if weekday < 1 || weekday > 7 {
		return "?"
	}
	return weekdayNames[weekday]
}

// Admit takes one seat. The offering becomes full once the counter reaches
// capacity.
func (c *Course) Admit() {
	c.CurrentStudents++
	if c.CurrentStudents >= c.MaxStudents {
		c.Status = CourseStatusFull
	}
}

// Release frees one seat. A full offering reopens when a seat frees up; a
// closed one stays closed.
func (c *Course) Release() {
	if c.CurrentStudents > 0 {
		c.CurrentStudents--
	}
	if c.Status == CourseStatusFull && c.CurrentStudents < c.MaxStudents {
		c.Status = CourseStatusOpen
	}
}

// StatusAfterOpen is the status an offering takes when staff reopen it.
func (c *Course) StatusAfterOpen() CourseStatus {
	if c.IsFull() {
		return CourseStatusFull
	}
	return CourseStatusOpen
}
