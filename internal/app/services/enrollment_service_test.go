package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/yigit/coursereg/internal/app/models"
	"github.com/yigit/coursereg/internal/pkg/apperrors"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func newEnrollmentFixture() (*memStore, EnrollmentService) {
	store := newMemStore()
	return store, NewEnrollmentService(&fakeEnrollmentRepo{s: store}, zerolog.Nop())
}

func offering(code string, weekday, start, end, max int) *models.Course {
	return &models.Course{
		CourseCode:   code,
		CourseName:   "Course " + code,
		Credits:      3,
		AcademicYear: 114,
		Semester:     1,
		Weekday:      weekday,
		StartPeriod:  start,
		EndPeriod:    end,
		MaxStudents:  max,
	}
}

func TestEnrollTakesSeatAndFillsCourse(t *testing.T) {
	store, svc := newEnrollmentFixture()
	ctx := context.Background()
	c := store.addCourse(offering("CS101", 1, 1, 2, 2))
	alice, bob := store.addStudent("alice"), store.addStudent("bob")

	got, err := svc.Enroll(ctx, alice.ID, c.ID)
	if err != nil {
		t.Fatalf("enroll alice: %v", err)
	}
	if got.CurrentStudents != 1 || got.Status != models.CourseStatusOpen {
		t.Fatalf("after first enroll: %d %s", got.CurrentStudents, got.Status)
	}

	if _, err := svc.Enroll(ctx, bob.ID, c.ID); err != nil {
		t.Fatalf("enroll bob: %v", err)
	}
	stored := store.course(c.ID)
	if stored.CurrentStudents != 2 || stored.Status != models.CourseStatusFull {
		t.Fatalf("after second enroll: %d %s", stored.CurrentStudents, stored.Status)
	}

	records := store.records(alice.ID, c.ID)
	if len(records) != 1 || records[0].Status != models.EnrollmentStatusEnrolled || records[0].AcademicYear != 114 {
		t.Fatalf("unexpected records: %+v", records)
	}
}

func TestEnrollRejections(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name  string
		setup func(s *memStore, student *models.User) int64
		want  error
	}{
		{
			name: "closed",
			setup: func(s *memStore, _ *models.User) int64 {
				c := offering("C1", 1, 1, 2, 10)
				c.Status = models.CourseStatusClosed
				return s.addCourse(c).ID
			},
			want: apperrors.ErrCourseClosed,
		},
		{
			name: "status full",
			setup: func(s *memStore, _ *models.User) int64 {
				c := offering("C1", 1, 1, 2, 10)
				c.Status = models.CourseStatusFull
				return s.addCourse(c).ID
			},
			want: apperrors.ErrCourseFull,
		},
		{
			name: "counter at capacity",
			setup: func(s *memStore, _ *models.User) int64 {
				c := offering("C1", 1, 1, 2, 3)
				c.CurrentStudents = 3
				return s.addCourse(c).ID
			},
			want: apperrors.ErrCourseFull,
		},
		{
			name: "closed wins over full",
			setup: func(s *memStore, _ *models.User) int64 {
				c := offering("C1", 1, 1, 2, 1)
				c.CurrentStudents = 1
				c.Status = models.CourseStatusClosed
				return s.addCourse(c).ID
			},
			want: apperrors.ErrCourseClosed,
		},
		{
			name: "already passed",
			setup: func(s *memStore, st *models.User) int64 {
				c := s.addCourse(offering("C1", 1, 1, 2, 10))
				s.addRecord(st.ID, c.ID, models.EnrollmentStatusPassed)
				return c.ID
			},
			want: apperrors.ErrAlreadyPassed,
		},
		{
			name: "overlapping period on the same weekday",
			setup: func(s *memStore, st *models.User) int64 {
				taken := s.addCourse(offering("C1", 3, 1, 2, 10))
				taken.CurrentStudents = 1
				s.addRecord(st.ID, taken.ID, models.EnrollmentStatusEnrolled)
				return s.addCourse(offering("C2", 3, 2, 3, 10)).ID
			},
			want: apperrors.ErrTimeConflict,
		},
		{
			name: "unknown course",
			setup: func(s *memStore, _ *models.User) int64 {
				return 9999
			},
			want: apperrors.ErrCourseNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, svc := newEnrollmentFixture()
			student := store.addStudent("s1")
			courseID := tt.setup(store, student)
			known := tt.want != apperrors.ErrCourseNotFound
			var before models.Course
			if known {
				before = store.course(courseID)
			}

			_, err := svc.Enroll(ctx, student.ID, courseID)
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
			if known {
				after := store.course(courseID)
				if after.CurrentStudents != before.CurrentStudents || after.Status != before.Status {
					t.Fatalf("rejected enroll changed the offering: %+v -> %+v", before, after)
				}
			}
		})
	}
}

func TestEnrollTwiceWithoutDrop(t *testing.T) {
	store, svc := newEnrollmentFixture()
	ctx := context.Background()
	c := store.addCourse(offering("CS101", 1, 1, 2, 10))
	st := store.addStudent("alice")

	if _, err := svc.Enroll(ctx, st.ID, c.ID); err != nil {
		t.Fatalf("first enroll: %v", err)
	}
	if _, err := svc.Enroll(ctx, st.ID, c.ID); !errors.Is(err, apperrors.ErrAlreadyEnrolled) {
		t.Fatalf("second enroll err = %v, want ErrAlreadyEnrolled", err)
	}
	if got := store.course(c.ID).CurrentStudents; got != 1 {
		t.Fatalf("current_students = %d, want 1", got)
	}
}

func TestEnrollTimeConflictBoundaries(t *testing.T) {
	tests := []struct {
		name                string
		weekday, start, end int
		conflict            bool
	}{
		{"shared boundary period", 1, 2, 3, true},
		{"adjacent periods", 1, 3, 4, false},
		{"contained range", 1, 1, 1, true},
		{"other weekday", 2, 1, 2, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, svc := newEnrollmentFixture()
			ctx := context.Background()
			st := store.addStudent("alice")
			first := store.addCourse(offering("A", 1, 1, 2, 10))
			second := store.addCourse(offering("B", tt.weekday, tt.start, tt.end, 10))

			if _, err := svc.Enroll(ctx, st.ID, first.ID); err != nil {
				t.Fatalf("enroll first: %v", err)
			}
			_, err := svc.Enroll(ctx, st.ID, second.ID)
			if tt.conflict {
				if !errors.Is(err, apperrors.ErrTimeConflict) {
					t.Fatalf("err = %v, want ErrTimeConflict", err)
				}
				msg := apperrors.MessageOf(err)
				if !strings.Contains(msg, first.CourseName) || !strings.Contains(msg, "Mon 1-2") {
					t.Fatalf("conflict message %q should name %q and its time", msg, first.CourseName)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestEnrollIgnoresOtherTermsForConflicts(t *testing.T) {
	store, svc := newEnrollmentFixture()
	ctx := context.Background()
	st := store.addStudent("alice")
	old := offering("A", 1, 1, 2, 10)
	old.AcademicYear = 113
	old = store.addCourse(old)
	store.addRecord(st.ID, old.ID, models.EnrollmentStatusEnrolled)

	c := store.addCourse(offering("B", 1, 1, 2, 10))
	if _, err := svc.Enroll(ctx, st.ID, c.ID); err != nil {
		t.Fatalf("enroll: %v", err)
	}
}

func TestDropReleasesSeat(t *testing.T) {
	store, svc := newEnrollmentFixture()
	ctx := context.Background()
	c := store.addCourse(offering("CS101", 1, 1, 2, 1))
	st := store.addStudent("alice")

	if _, err := svc.Enroll(ctx, st.ID, c.ID); err != nil {
		t.Fatalf("enroll: %v", err)
	}
	if s := store.course(c.ID).Status; s != models.CourseStatusFull {
		t.Fatalf("status = %s, want full", s)
	}

	got, err := svc.Drop(ctx, st.ID, c.ID)
	if err != nil {
		t.Fatalf("drop: %v", err)
	}
	if got.CurrentStudents != 0 || got.Status != models.CourseStatusOpen {
		t.Fatalf("after drop: %d %s", got.CurrentStudents, got.Status)
	}
	records := store.records(st.ID, c.ID)
	if len(records) != 1 || records[0].Status != models.EnrollmentStatusDropped {
		t.Fatalf("record should be kept as dropped: %+v", records)
	}

	if _, err := svc.Drop(ctx, st.ID, c.ID); !errors.Is(err, apperrors.ErrNotEnrolled) {
		t.Fatalf("second drop err = %v, want ErrNotEnrolled", err)
	}
	if got := store.course(c.ID).CurrentStudents; got != 0 {
		t.Fatalf("current_students = %d after failed drop", got)
	}

	// Re-enrolling after a drop creates a new record.
	if _, err := svc.Enroll(ctx, st.ID, c.ID); err != nil {
		t.Fatalf("re-enroll: %v", err)
	}
}

func TestDropNeverEnrolled(t *testing.T) {
	store, svc := newEnrollmentFixture()
	c := store.addCourse(offering("CS101", 1, 1, 2, 10))
	st := store.addStudent("alice")

	if _, err := svc.Drop(context.Background(), st.ID, c.ID); !errors.Is(err, apperrors.ErrNotEnrolled) {
		t.Fatalf("err = %v, want ErrNotEnrolled", err)
	}
}

func TestDropKeepsClosedCourseClosed(t *testing.T) {
	store, svc := newEnrollmentFixture()
	ctx := context.Background()
	c := store.addCourse(offering("CS101", 1, 1, 2, 2))
	st := store.addStudent("alice")
	if _, err := svc.Enroll(ctx, st.ID, c.ID); err != nil {
		t.Fatalf("enroll: %v", err)
	}
	store.dataMu.Lock()
	store.courses[c.ID].Status = models.CourseStatusClosed
	store.dataMu.Unlock()

	got, err := svc.Drop(ctx, st.ID, c.ID)
	if err != nil {
		t.Fatalf("drop: %v", err)
	}
	if got.Status != models.CourseStatusClosed {
		t.Fatalf("status = %s, want closed", got.Status)
	}
}

func TestConcurrentEnrollLastSeat(t *testing.T) {
	store, svc := newEnrollmentFixture()
	c := store.addCourse(offering("CS101", 1, 1, 2, 1))
	students := []*models.User{store.addStudent("alice"), store.addStudent("bob")}

	var wg sync.WaitGroup
	errs := make([]error, len(students))
	start := make(chan struct{})
	for i, st := range students {
		wg.Add(1)
		go func(i int, id int64) {
			defer wg.Done()
			<-start
			_, errs[i] = svc.Enroll(context.Background(), id, c.ID)
		}(i, st.ID)
	}
	close(start)
	wg.Wait()

	successes, full := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			successes++
		case errors.Is(err, apperrors.ErrCourseFull):
			full++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if successes != 1 || full != 1 {
		t.Fatalf("successes = %d, full = %d; want exactly one of each", successes, full)
	}
	if got := store.course(c.ID).CurrentStudents; got != 1 {
		t.Fatalf("current_students = %d, want 1", got)
	}
}

func TestConcurrentEnrollAndDropNeverOverbooks(t *testing.T) {
	store, svc := newEnrollmentFixture()
	const capacity = 5
	c := store.addCourse(offering("CS101", 1, 1, 2, capacity))

	var students []*models.User
	for i := 0; i < 30; i++ {
		students = append(students, store.addStudent(fmt.Sprintf("s%02d", i)))
	}

	var wg sync.WaitGroup
	for i, st := range students {
		wg.Add(1)
		go func(i int, id int64) {
			defer wg.Done()
			ctx := context.Background()
			if _, err := svc.Enroll(ctx, id, c.ID); err != nil {
				return
			}
			if i%3 == 0 {
				_, _ = svc.Drop(ctx, id, c.ID)
			}
		}(i, st.ID)
	}
	wg.Wait()

	stored := store.course(c.ID)
	if stored.CurrentStudents > capacity {
		t.Fatalf("current_students = %d exceeds capacity %d", stored.CurrentStudents, capacity)
	}
	enrolled := 0
	for _, st := range students {
		for _, r := range store.records(st.ID, c.ID) {
			if r.Status == models.EnrollmentStatusEnrolled {
				enrolled++
			}
		}
	}
	if enrolled != stored.CurrentStudents {
		t.Fatalf("enrolled records = %d, counter = %d", enrolled, stored.CurrentStudents)
	}
}

func TestSetResult(t *testing.T) {
	store, svc := newEnrollmentFixture()
	ctx := context.Background()
	c := store.addCourse(offering("CS101", 1, 1, 2, 10))
	st := store.addStudent("alice")
	if _, err := svc.Enroll(ctx, st.ID, c.ID); err != nil {
		t.Fatalf("enroll: %v", err)
	}
	rec := store.records(st.ID, c.ID)[0]

	if _, err := svc.SetResult(ctx, rec.ID, models.EnrollmentStatusDropped); !errors.Is(err, apperrors.ErrBadRequest) {
		t.Fatalf("dropped as a result: err = %v", err)
	}

	got, err := svc.SetResult(ctx, rec.ID, models.EnrollmentStatusPassed)
	if err != nil {
		t.Fatalf("set result: %v", err)
	}
	if got.Status != models.EnrollmentStatusPassed {
		t.Fatalf("status = %s", got.Status)
	}
	if n := store.course(c.ID).CurrentStudents; n != 1 {
		t.Fatalf("grading must not change the counter, got %d", n)
	}

	if _, err := svc.SetResult(ctx, rec.ID, models.EnrollmentStatusFailed); !errors.Is(err, apperrors.ErrNotEnrolled) {
		t.Fatalf("regrading err = %v, want ErrNotEnrolled", err)
	}
	if _, err := svc.Enroll(ctx, st.ID, c.ID); !errors.Is(err, apperrors.ErrAlreadyPassed) {
		t.Fatalf("enroll after pass err = %v, want ErrAlreadyPassed", err)
	}
	if _, err := svc.SetResult(ctx, 424242, models.EnrollmentStatusPassed); !errors.Is(err, apperrors.ErrEnrollmentNotFound) {
		t.Fatalf("missing record err = %v", err)
	}
}

func TestEnrollRecordsSpan(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	store := newMemStore()
	svc := &enrollmentServiceImpl{
		enrollmentRepo: &fakeEnrollmentRepo{s: store},
		tracer:         tp.Tracer("test"),
		logger:         zerolog.Nop(),
	}
	c := store.addCourse(offering("CS101", 1, 1, 2, 10))
	c.Status = models.CourseStatusClosed
	st := store.addStudent("alice")

	_, _ = svc.Enroll(context.Background(), st.ID, c.ID)

	spans := recorder.Ended()
	if len(spans) != 1 || spans[0].Name() != "enrollment.enroll" {
		t.Fatalf("unexpected spans: %v", spans)
	}
	if len(spans[0].Events()) == 0 {
		t.Fatal("rejected enroll should record the error on the span")
	}
}
