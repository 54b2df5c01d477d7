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

func newAccountFixture() (*memStore, AccountService) {
	store := newMemStore()
	return store, NewAccountService(&fakeUserRepo{s: store}, &fakeCourseRepo{s: store}, &fakeEnrollmentRepo{s: store}, zerolog.Nop())
}

func TestDeleteStudentBlockedByEnrollment(t *testing.T) {
	store, svc := newAccountFixture()
	ctx := context.Background()
	st := store.addStudent("alice")
	c := store.addCourse(offering("A", 1, 1, 2, 10))
	rec := store.addRecord(st.ID, c.ID, models.EnrollmentStatusEnrolled)

	if err := svc.DeleteStudent(ctx, st.ID); !errors.Is(err, apperrors.ErrUserHasEnrollment) {
		t.Fatalf("err = %v, want ErrUserHasEnrollment", err)
	}

	rec.Status = models.EnrollmentStatusDropped
	if err := svc.DeleteStudent(ctx, st.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := svc.DeleteStudent(ctx, st.ID); !errors.Is(err, apperrors.ErrUserNotFound) {
		t.Fatalf("second delete err = %v", err)
	}
}

func TestDeleteTeacherBlockedByCourses(t *testing.T) {
	store, svc := newAccountFixture()
	ctx := context.Background()
	teacher := store.addUser(&models.User{Username: "T01", Roles: []models.RoleType{models.RoleTeacher}})
	tid := teacher.ID
	c := offering("A", 1, 1, 2, 10)
	c.TeacherID = &tid
	c = store.addCourse(c)

	if err := svc.DeleteTeacher(ctx, teacher.ID); !errors.Is(err, apperrors.ErrTeacherHasCourses) {
		t.Fatalf("err = %v, want ErrTeacherHasCourses", err)
	}
	delete(store.courses, c.ID)
	if err := svc.DeleteTeacher(ctx, teacher.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
}

func TestUpdateStudentOnlyTouchesStudents(t *testing.T) {
	store, svc := newAccountFixture()
	ctx := context.Background()
	st := store.addStudent("alice")
	teacher := store.addUser(&models.User{Username: "T01", Roles: []models.RoleType{models.RoleTeacher}})

	name := "Alice Lin"
	grade := 2
	if err := svc.UpdateStudent(ctx, st.ID, &dto.UpdateStudentRequest{RealName: &name, Grade: &grade}); err != nil {
		t.Fatalf("update: %v", err)
	}
	list, err := svc.ListStudents(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || list[0].RealName != name || *list[0].Grade != 2 {
		t.Fatalf("students = %+v", list)
	}

	if err := svc.UpdateStudent(ctx, teacher.ID, &dto.UpdateStudentRequest{RealName: &name}); !errors.Is(err, apperrors.ErrUserNotFound) {
		t.Fatalf("updating a teacher as student: err = %v", err)
	}
}
