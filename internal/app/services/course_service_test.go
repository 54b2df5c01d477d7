package services

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/yigit/coursereg/internal/app/models"
	"github.com/yigit/coursereg/internal/app/models/dto"
	"github.com/yigit/coursereg/internal/pkg/apperrors"
)

func newCourseFixture() (*memStore, CourseService) {
	store := newMemStore()
	svc := NewCourseService(
		&fakeCourseRepo{s: store},
		&fakeEnrollmentRepo{s: store},
		&fakeFavoriteRepo{s: store},
		&fakeUserRepo{s: store},
		TermSettings{Current: models.Term{AcademicYear: 114, Semester: 1}, DefaultMaxStudents: 40},
		zerolog.Nop(),
	)
	return store, svc
}

func TestSearchDefaultsToCurrentYearAndMarksViewer(t *testing.T) {
	store, svc := newCourseFixture()
	ctx := context.Background()
	st := store.addStudent("alice")
	a := store.addCourse(offering("CS200", 1, 1, 2, 10))
	b := store.addCourse(offering("CS100", 2, 1, 2, 10))
	old := offering("CS050", 1, 1, 2, 10)
	old.AcademicYear = 113
	store.addCourse(old)

	store.addRecord(st.ID, a.ID, models.EnrollmentStatusEnrolled)
	if _, err := (&fakeFavoriteRepo{s: store}).Toggle(ctx, st.ID, b.ID); err != nil {
		t.Fatal(err)
	}

	anon, err := svc.Search(ctx, &dto.CourseSearchQuery{}, 0)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if anon.Count != 2 || anon.Courses[0].CourseCode != "CS100" {
		t.Fatalf("unexpected anonymous result: %+v", anon)
	}
	if anon.Courses[0].IsFavorited || anon.Courses[1].IsEnrolled {
		t.Fatal("anonymous search must not carry viewer flags")
	}

	mine, err := svc.Search(ctx, &dto.CourseSearchQuery{}, st.ID)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if !mine.Courses[0].IsFavorited || mine.Courses[0].IsEnrolled {
		t.Fatalf("CS100 flags: %+v", mine.Courses[0])
	}
	if !mine.Courses[1].IsEnrolled || mine.Courses[1].IsFavorited {
		t.Fatalf("CS200 flags: %+v", mine.Courses[1])
	}
}

func TestSearchRejectsBadLists(t *testing.T) {
	_, svc := newCourseFixture()
	for _, q := range []dto.CourseSearchQuery{{Weekdays: "1,x"}, {Weekdays: "8"}, {Periods: "0"}} {
		if _, err := svc.Search(context.Background(), &q, 0); !errors.Is(err, apperrors.ErrBadRequest) {
			t.Errorf("query %+v: err = %v, want bad request", q, err)
		}
	}
}

func TestCreateCourseRequiresTeacher(t *testing.T) {
	store, svc := newCourseFixture()
	ctx := context.Background()
	st := store.addStudent("alice")
	teacher := store.addUser(&models.User{Username: "T01", RealName: "Chen Wei", Roles: []models.RoleType{models.RoleTeacher}})

	req := &dto.CreateCourseRequest{
		CourseCode: "CS301", CourseName: "Operating Systems", CourseType: "required",
		Credits: 3, Hours: 3, AcademicYear: 114, Semester: 1, Department: "CS",
		GradeLevel: 3, TeacherID: st.ID, Classroom: "E-301", Weekday: 2, StartPeriod: 3, EndPeriod: 4,
	}
	if _, err := svc.Create(ctx, req); !errors.Is(err, apperrors.ErrTeacherNotFound) {
		t.Fatalf("student as teacher: err = %v", err)
	}

	req.TeacherID = teacher.ID
	c, err := svc.Create(ctx, req)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if c.MaxStudents != 40 || c.Status != models.CourseStatusOpen || c.CurrentStudents != 0 {
		t.Fatalf("unexpected course: %+v", c)
	}

	if _, err := svc.Create(ctx, req); !errors.Is(err, apperrors.ErrCourseCodeExists) {
		t.Fatalf("duplicate code: err = %v", err)
	}
}

func TestUpdateCourseCapacityFloor(t *testing.T) {
	store, svc := newCourseFixture()
	teacher := store.addUser(&models.User{Username: "T01", Roles: []models.RoleType{models.RoleTeacher}})
	tid := teacher.ID
	c := offering("CS301", 1, 1, 2, 10)
	c.TeacherID = &tid
	c.CurrentStudents = 5
	c = store.addCourse(c)

	req := &dto.UpdateCourseRequest{
		CourseName: "Renamed", CourseType: "elective", Credits: 2, Hours: 2, Department: "CS",
		GradeLevel: 2, TeacherID: tid, Classroom: "E-1", Weekday: 1, StartPeriod: 1, EndPeriod: 2, MaxStudents: 4,
	}
	if _, err := svc.Update(context.Background(), c.ID, req); !errors.Is(err, apperrors.ErrBadRequest) {
		t.Fatalf("shrinking below count: err = %v", err)
	}

	req.MaxStudents = 5
	got, err := svc.Update(context.Background(), c.ID, req)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got.CourseName != "Renamed" || got.CurrentStudents != 5 || got.Status != models.CourseStatusFull {
		t.Fatalf("unexpected course after update: %+v", got)
	}
}

func TestUpdateCourseScheduleFrozenWhileEnrolled(t *testing.T) {
	store, svc := newCourseFixture()
	ctx := context.Background()
	teacher := store.addUser(&models.User{Username: "T01", Roles: []models.RoleType{models.RoleTeacher}})
	tid := teacher.ID
	c := offering("CS301", 1, 1, 2, 10)
	c.TeacherID = &tid
	c.CurrentStudents = 1
	c = store.addCourse(c)

	req := &dto.UpdateCourseRequest{
		CourseName: "Course CS301", CourseType: "required", Credits: 3, Hours: 3, Department: "CS",
		GradeLevel: 2, TeacherID: tid, Classroom: "E-1", Weekday: 2, StartPeriod: 1, EndPeriod: 2, MaxStudents: 10,
	}
	if _, err := svc.Update(ctx, c.ID, req); !errors.Is(err, apperrors.ErrBadRequest) {
		t.Fatalf("moving an occupied course: err = %v", err)
	}
	req.Weekday, req.EndPeriod = 1, 3
	if _, err := svc.Update(ctx, c.ID, req); !errors.Is(err, apperrors.ErrBadRequest) {
		t.Fatalf("stretching an occupied course: err = %v", err)
	}
	if got := store.course(c.ID); got.Weekday != 1 || got.EndPeriod != 2 {
		t.Fatalf("schedule changed: %+v", got)
	}

	// Other fields stay editable.
	req.EndPeriod, req.Classroom = 2, "E-9"
	got, err := svc.Update(ctx, c.ID, req)
	if err != nil || got.Classroom != "E-9" {
		t.Fatalf("update = %+v, %v", got, err)
	}

	empty := offering("CS302", 1, 1, 2, 10)
	empty.TeacherID = &tid
	empty = store.addCourse(empty)
	req.Weekday, req.StartPeriod, req.EndPeriod = 4, 5, 6
	got, err = svc.Update(ctx, empty.ID, req)
	if err != nil || got.Weekday != 4 || got.StartPeriod != 5 {
		t.Fatalf("empty course reschedule = %+v, %v", got, err)
	}
}

func TestUpdateCourseStatus(t *testing.T) {
	store, svc := newCourseFixture()
	ctx := context.Background()
	c := offering("CS301", 1, 1, 2, 2)
	c.CurrentStudents = 2
	c.Status = models.CourseStatusFull
	c = store.addCourse(c)

	got, err := svc.UpdateStatus(ctx, c.ID, models.CourseStatusClosed)
	if err != nil || got.Status != models.CourseStatusClosed {
		t.Fatalf("close: %v %v", got, err)
	}
	got, err = svc.UpdateStatus(ctx, c.ID, models.CourseStatusOpen)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if got.Status != models.CourseStatusFull {
		t.Fatalf("reopening a course at capacity should leave it full, got %s", got.Status)
	}
	if _, err := svc.UpdateStatus(ctx, c.ID, models.CourseStatusFull); !errors.Is(err, apperrors.ErrBadRequest) {
		t.Fatalf("setting full directly: err = %v", err)
	}
	if _, err := svc.UpdateStatus(ctx, 999, models.CourseStatusOpen); !errors.Is(err, apperrors.ErrCourseNotFound) {
		t.Fatalf("unknown course: err = %v", err)
	}
}

// dropOnStatusWrite drops a student's seat just before the status write,
// the way a concurrent drop transaction would commit.
type dropOnStatusWrite struct {
	*fakeCourseRepo
	drop func()
}

func (r *dropOnStatusWrite) UpdateStatus(ctx context.Context, id int64, status models.CourseStatus) error {
	if r.drop != nil {
		r.drop()
		r.drop = nil
	}
	return r.fakeCourseRepo.UpdateStatus(ctx, id, status)
}

func TestReopenAfterConcurrentDropIsOpen(t *testing.T) {
	store, enrollment := newEnrollmentFixture()
	ctx := context.Background()
	alice := store.addStudent("alice")
	bob := store.addStudent("bob")
	c := store.addCourse(offering("CS301", 1, 1, 2, 1))

	if _, err := enrollment.Enroll(ctx, alice.ID, c.ID); err != nil {
		t.Fatalf("enroll alice: %v", err)
	}

	repo := &dropOnStatusWrite{fakeCourseRepo: &fakeCourseRepo{s: store}}
	svc := NewCourseService(
		repo,
		&fakeEnrollmentRepo{s: store},
		&fakeFavoriteRepo{s: store},
		&fakeUserRepo{s: store},
		TermSettings{Current: models.Term{AcademicYear: 114, Semester: 1}, DefaultMaxStudents: 40},
		zerolog.Nop(),
	)
	if _, err := svc.UpdateStatus(ctx, c.ID, models.CourseStatusClosed); err != nil {
		t.Fatalf("close: %v", err)
	}

	repo.drop = func() {
		if _, err := enrollment.Drop(ctx, alice.ID, c.ID); err != nil {
			t.Errorf("drop alice: %v", err)
		}
	}
	got, err := svc.UpdateStatus(ctx, c.ID, models.CourseStatusOpen)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if got.CurrentStudents != 0 || got.Status != models.CourseStatusOpen {
		t.Fatalf("after reopen: current=%d status=%s, want 0 open", got.CurrentStudents, got.Status)
	}
	if stored := store.course(c.ID); stored.Status != models.CourseStatusOpen {
		t.Fatalf("stored status = %s, want open", stored.Status)
	}
	if _, err := enrollment.Enroll(ctx, bob.ID, c.ID); err != nil {
		t.Fatalf("bob should get the free seat: %v", err)
	}
}

func TestFilterOptions(t *testing.T) {
	store, svc := newCourseFixture()
	a := offering("A", 1, 1, 2, 10)
	a.Department = "Physics"
	store.addCourse(a)
	b := offering("B", 1, 1, 2, 10)
	b.Department = "Chemistry"
	store.addCourse(b)

	got, err := svc.FilterOptions(context.Background(), 0)
	if err != nil {
		t.Fatalf("filter options: %v", err)
	}
	if len(got.Departments) != 2 || got.Departments[0] != "Chemistry" {
		t.Fatalf("departments = %v", got.Departments)
	}
	if len(got.Weekdays) != 7 || len(got.CourseTypes) != 4 || len(got.GradeLevels) != 4 || len(got.Semesters) != 2 {
		t.Fatalf("unexpected option lists: %+v", got)
	}
}

func TestListCoursesPaginates(t *testing.T) {
	store, svc := newCourseFixture()
	for _, code := range []string{"A", "B", "C"} {
		store.addCourse(offering(code, 1, 1, 2, 10))
	}
	got, err := svc.List(context.Background(), 2, 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	items := got.Items.([]dto.CourseResponse)
	if len(items) != 1 || items[0].CourseCode != "C" {
		t.Fatalf("page 2 = %+v", items)
	}
	if got.Pagination.TotalItems != 3 || got.Pagination.TotalPages != 2 {
		t.Fatalf("pagination = %+v", got.Pagination)
	}
}
