package models

import "testing"

func TestCourseOverlaps(t *testing.T) {
	tests := []struct {
		name string
		a, b Course
		want bool
	}{
		{
			name: "shared boundary period conflicts",
			a:    Course{Weekday: 2, StartPeriod: 1, EndPeriod: 2},
			b:    Course{Weekday: 2, StartPeriod: 2, EndPeriod: 3},
			want: true,
		},
		{
			name: "adjacent ranges do not conflict",
			a:    Course{Weekday: 2, StartPeriod: 1, EndPeriod: 2},
			b:    Course{Weekday: 2, StartPeriod: 3, EndPeriod: 4},
			want: false,
		},
		{
			name: "containment conflicts",
			a:    Course{Weekday: 5, StartPeriod: 1, EndPeriod: 6},
			b:    Course{Weekday: 5, StartPeriod: 3, EndPeriod: 3},
			want: true,
		},
		{
			name: "different weekday never conflicts",
			a:    Course{Weekday: 1, StartPeriod: 1, EndPeriod: 4},
			b:    Course{Weekday: 3, StartPeriod: 1, EndPeriod: 4},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Overlaps(&tt.b); got != tt.want {
				t.Fatalf("Overlaps() = %v, want %v", got, tt.want)
			}
			if got := tt.b.Overlaps(&tt.a); got != tt.want {
				t.Fatalf("Overlaps() is not symmetric: got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestUserPrimaryRole(t *testing.T) {
	u := &User{Roles: []RoleType{RoleAdmin, RoleTeacher}}
	if got := u.PrimaryRole(); got != RoleTeacher {
		t.Fatalf("PrimaryRole() = %q, want teacher", got)
	}
	u.Roles = append(u.Roles, RoleStudent)
	if got := u.PrimaryRole(); got != RoleStudent {
		t.Fatalf("PrimaryRole() = %q, want student", got)
	}
	if (&User{}).PrimaryRole() != "" {
		t.Fatal("expected empty role for user without roles")
	}
}

func TestCourseTimeDisplay(t *testing.T) {
	c := Course{Weekday: 3, StartPeriod: 5, EndPeriod: 7}
	if got := c.TimeDisplay(); got != "Wed 5-7" {
		t.Fatalf("TimeDisplay() = %q", got)
	}
	if WeekdayName(9) != "?" {
		t.Fatal("out of range weekday should render as ?")
	}
}

func TestCourseAdmitRelease(t *testing.T) {
	c := Course{MaxStudents: 2, Status: CourseStatusOpen}

	c.Admit()
	if c.CurrentStudents != 1 || c.Status != CourseStatusOpen {
		t.Fatalf("after first admit: %d %s", c.CurrentStudents, c.Status)
	}
	c.Admit()
	if c.CurrentStudents != 2 || c.Status != CourseStatusFull {
		t.Fatalf("after second admit: %d %s", c.CurrentStudents, c.Status)
	}
	c.Release()
	if c.CurrentStudents != 1 || c.Status != CourseStatusOpen {
		t.Fatalf("after release: %d %s", c.CurrentStudents, c.Status)
	}

	closed := Course{MaxStudents: 1, CurrentStudents: 1, Status: CourseStatusClosed}
	closed.Release()
	if closed.Status != CourseStatusClosed || closed.CurrentStudents != 0 {
		t.Fatalf("closed offering reopened: %+v", closed)
	}

	empty := Course{MaxStudents: 1, Status: CourseStatusOpen}
	empty.Release()
	if empty.CurrentStudents != 0 {
		t.Fatalf("counter went negative: %d", empty.CurrentStudents)
	}
}

func TestStatusAfterOpen(t *testing.T) {
	c := Course{MaxStudents: 1, CurrentStudents: 1, Status: CourseStatusClosed}
	if c.StatusAfterOpen() != CourseStatusFull {
		t.Fatal("reopening a course at capacity should yield full")
	}
	c.CurrentStudents = 0
	if c.StatusAfterOpen() != CourseStatusOpen {
		t.Fatal("reopening a course with seats should yield open")
	}
}
