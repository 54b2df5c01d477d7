package services

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/yigit/coursereg/internal/app/models"
	"github.com/yigit/coursereg/internal/app/repositories"
	"github.com/yigit/coursereg/internal/pkg/apperrors"
)

// memStore backs every fake repository. txMu plays the part of the row locks
// taken by the PostgreSQL transaction; dataMu guards the maps themselves.
type memStore struct {
	txMu   sync.Mutex
	dataMu sync.Mutex

	nextID      int64
	users       map[int64]*models.User
	courses     map[int64]*models.Course
	enrollments []*models.Enrollment
	favorites   map[[2]int64]time.Time
	tokens      map[string]fakeToken
}

type fakeToken struct {
	userID  int64
	expiry  time.Time
	revoked bool
}

func newMemStore() *memStore {
	return &memStore{
		users:     map[int64]*models.User{},
		courses:   map[int64]*models.Course{},
		favorites: map[[2]int64]time.Time{},
		tokens:    map[string]fakeToken{},
	}
}

func (s *memStore) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *memStore) addUser(u *models.User) *models.User {
	s.dataMu.Lock()
	defer s.dataMu.Unlock()
	u.ID = s.id()
	u.IsActive = true
	s.users[u.ID] = u
	return u
}

func (s *memStore) addStudent(name string) *models.User {
	sid := name
	return s.addUser(&models.User{Username: name, RealName: name, StudentID: &sid, Roles: []models.RoleType{models.RoleStudent}})
}

func (s *memStore) addCourse(c *models.Course) *models.Course {
	s.dataMu.Lock()
	defer s.dataMu.Unlock()
	c.ID = s.id()
	if c.Status == "" {
		c.Status = models.CourseStatusOpen
	}
	if c.CourseType == "" {
		c.CourseType = models.CourseTypeRequired
	}
	s.courses[c.ID] = c
	return c
}

func (s *memStore) addRecord(studentID, courseID int64, status models.EnrollmentStatus) *models.Enrollment {
	s.dataMu.Lock()
	defer s.dataMu.Unlock()
	c := s.courses[courseID]
	e := &models.Enrollment{
		ID: s.id(), StudentID: studentID, CourseID: courseID,
		AcademicYear: c.AcademicYear, Semester: c.Semester,
		Status: status, EnrolledAt: time.Now(),
	}
	s.enrollments = append(s.enrollments, e)
	return e
}

func (s *memStore) course(id int64) models.Course {
	s.dataMu.Lock()
	defer s.dataMu.Unlock()
	return *s.courses[id]
}

func (s *memStore) records(studentID, courseID int64) []models.Enrollment {
	s.dataMu.Lock()
	defer s.dataMu.Unlock()
	var out []models.Enrollment
	for _, e := range s.enrollments {
		if e.StudentID == studentID && e.CourseID == courseID {
			out = append(out, *e)
		}
	}
	return out
}

func copyCourse(c *models.Course) *models.Course {
	cp := *c
	return &cp
}

// ---- enrollment repository ----

type fakeEnrollmentRepo struct{ s *memStore }

func (r *fakeEnrollmentRepo) WithinTx(ctx context.Context, fn func(ctx context.Context, tx repositories.EnrollmentTx) error) error {
	r.s.txMu.Lock()
	defer r.s.txMu.Unlock()

	r.s.dataMu.Lock()
	savedCourses := make(map[int64]models.Course, len(r.s.courses))
	for id, c := range r.s.courses {
		savedCourses[id] = *c
	}
	savedRecords := make([]models.Enrollment, len(r.s.enrollments))
	for i, e := range r.s.enrollments {
		savedRecords[i] = *e
	}
	r.s.dataMu.Unlock()

	if err := fn(ctx, &fakeEnrollmentTx{s: r.s}); err != nil {
		r.s.dataMu.Lock()
		for id, c := range savedCourses {
			c := c
			r.s.courses[id] = &c
		}
		r.s.enrollments = r.s.enrollments[:0]
		for i := range savedRecords {
			e := savedRecords[i]
			r.s.enrollments = append(r.s.enrollments, &e)
		}
		r.s.dataMu.Unlock()
		return err
	}
	return nil
}

func (r *fakeEnrollmentRepo) matching(f repositories.EnrollmentFilter) []*models.Enrollment {
	var out []*models.Enrollment
	for _, e := range r.s.enrollments {
		if e.StudentID != f.StudentID {
			continue
		}
		if f.Status != "" && e.Status != f.Status {
			continue
		}
		if f.Term != nil && e.Term() != *f.Term {
			continue
		}
		if f.ExcludeTerm != nil && e.Term() == *f.ExcludeTerm {
			continue
		}
		out = append(out, e)
	}
	return out
}

func (r *fakeEnrollmentRepo) ListWithCourses(ctx context.Context, f repositories.EnrollmentFilter) ([]*models.Enrollment, error) {
	r.s.dataMu.Lock()
	defer r.s.dataMu.Unlock()
	var out []*models.Enrollment
	for _, e := range r.matching(f) {
		cp := *e
		cp.Course = copyCourse(r.s.courses[e.CourseID])
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].Course, out[j].Course
		if a.Weekday != b.Weekday {
			return a.Weekday < b.Weekday
		}
		return a.StartPeriod < b.StartPeriod
	})
	return out, nil
}

func (r *fakeEnrollmentRepo) EnrolledCourseIDs(ctx context.Context, studentID int64, term *models.Term) (map[int64]time.Time, error) {
	r.s.dataMu.Lock()
	defer r.s.dataMu.Unlock()
	ids := map[int64]time.Time{}
	for _, e := range r.matching(repositories.EnrollmentFilter{StudentID: studentID, Status: models.EnrollmentStatusEnrolled, Term: term}) {
		ids[e.CourseID] = e.EnrolledAt
	}
	return ids, nil
}

func (r *fakeEnrollmentRepo) CreditsByType(ctx context.Context, f repositories.EnrollmentFilter) (map[models.CourseType]int, error) {
	r.s.dataMu.Lock()
	defer r.s.dataMu.Unlock()
	sums := map[models.CourseType]int{}
	for _, e := range r.matching(f) {
		c := r.s.courses[e.CourseID]
		sums[c.CourseType] += c.Credits
	}
	return sums, nil
}

func (r *fakeEnrollmentRepo) CountByStudentAndStatus(ctx context.Context, studentID int64, status models.EnrollmentStatus) (int, error) {
	r.s.dataMu.Lock()
	defer r.s.dataMu.Unlock()
	return len(r.matching(repositories.EnrollmentFilter{StudentID: studentID, Status: status})), nil
}

func (r *fakeEnrollmentRepo) SetResult(ctx context.Context, id int64, status models.EnrollmentStatus) (*models.Enrollment, error) {
	r.s.dataMu.Lock()
	defer r.s.dataMu.Unlock()
	for _, e := range r.s.enrollments {
		if e.ID != id {
			continue
		}
		if e.Status != models.EnrollmentStatusEnrolled {
			return nil, apperrors.ErrNotEnrolled
		}
		e.Status = status
		cp := *e
		return &cp, nil
	}
	return nil, apperrors.ErrEnrollmentNotFound
}

type fakeEnrollmentTx struct{ s *memStore }

func (t *fakeEnrollmentTx) LockStudent(ctx context.Context, studentID int64) error {
	t.s.dataMu.Lock()
	defer t.s.dataMu.Unlock()
	if _, ok := t.s.users[studentID]; !ok {
		return apperrors.ErrUserNotFound
	}
	return nil
}

func (t *fakeEnrollmentTx) LockCourse(ctx context.Context, courseID int64) (*models.Course, error) {
	t.s.dataMu.Lock()
	defer t.s.dataMu.Unlock()
	c, ok := t.s.courses[courseID]
	if !ok {
		return nil, apperrors.ErrCourseNotFound
	}
	return copyCourse(c), nil
}

func (t *fakeEnrollmentTx) FindRecord(ctx context.Context, studentID, courseID int64, term models.Term, status models.EnrollmentStatus) (*models.Enrollment, error) {
	t.s.dataMu.Lock()
	defer t.s.dataMu.Unlock()
	for _, e := range t.s.enrollments {
		if e.StudentID == studentID && e.CourseID == courseID && e.Term() == term && e.Status == status {
			cp := *e
			return &cp, nil
		}
	}
	return nil, nil
}

func (t *fakeEnrollmentTx) ListEnrolledCourses(ctx context.Context, studentID int64, term models.Term) ([]*models.Course, error) {
	t.s.dataMu.Lock()
	defer t.s.dataMu.Unlock()
	var out []*models.Course
	for _, e := range t.s.enrollments {
		if e.StudentID == studentID && e.Term() == term && e.Status == models.EnrollmentStatusEnrolled {
			out = append(out, copyCourse(t.s.courses[e.CourseID]))
		}
	}
	return out, nil
}

func (t *fakeEnrollmentTx) InsertRecord(ctx context.Context, e *models.Enrollment) error {
	t.s.dataMu.Lock()
	defer t.s.dataMu.Unlock()
	for _, x := range t.s.enrollments {
		if x.StudentID == e.StudentID && x.CourseID == e.CourseID && x.Status == models.EnrollmentStatusEnrolled {
			return apperrors.ErrAlreadyEnrolled
		}
	}
	e.ID = t.s.id()
	e.EnrolledAt = time.Now()
	cp := *e
	t.s.enrollments = append(t.s.enrollments, &cp)
	return nil
}

func (t *fakeEnrollmentTx) SetRecordStatus(ctx context.Context, id int64, status models.EnrollmentStatus) error {
	t.s.dataMu.Lock()
	defer t.s.dataMu.Unlock()
	for _, e := range t.s.enrollments {
		if e.ID == id {
			e.Status = status
			return nil
		}
	}
	return apperrors.ErrEnrollmentNotFound
}

func (t *fakeEnrollmentTx) SaveCourseCounter(ctx context.Context, c *models.Course) error {
	t.s.dataMu.Lock()
	defer t.s.dataMu.Unlock()
	if c.CurrentStudents > c.MaxStudents {
		return apperrors.ErrCourseFull
	}
	stored := t.s.courses[c.ID]
	stored.CurrentStudents = c.CurrentStudents
	stored.Status = c.Status
	return nil
}

// ---- course repository ----

type fakeCourseRepo struct{ s *memStore }

func (r *fakeCourseRepo) Search(ctx context.Context, f repositories.CourseFilter) ([]*models.Course, error) {
	r.s.dataMu.Lock()
	defer r.s.dataMu.Unlock()
	var out []*models.Course
	for _, c := range r.s.courses {
		if f.AcademicYear != 0 && c.AcademicYear != f.AcademicYear {
			continue
		}
		if f.Semester != 0 && c.Semester != f.Semester {
			continue
		}
		if f.SearchQuery != "" && !strings.Contains(strings.ToLower(c.CourseName), strings.ToLower(f.SearchQuery)) {
			continue
		}
		out = append(out, copyCourse(c))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CourseCode < out[j].CourseCode })
	return out, nil
}

func (r *fakeCourseRepo) List(ctx context.Context, offset uint64, limit int) ([]*models.Course, int64, error) {
	all, _ := r.Search(ctx, repositories.CourseFilter{})
	total := int64(len(all))
	if int(offset) >= len(all) {
		return nil, total, nil
	}
	end := int(offset) + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

func (r *fakeCourseRepo) GetByID(ctx context.Context, id int64) (*models.Course, error) {
	r.s.dataMu.Lock()
	defer r.s.dataMu.Unlock()
	c, ok := r.s.courses[id]
	if !ok {
		return nil, apperrors.ErrCourseNotFound
	}
	return copyCourse(c), nil
}

func (r *fakeCourseRepo) Create(ctx context.Context, c *models.Course) error {
	r.s.dataMu.Lock()
	defer r.s.dataMu.Unlock()
	for _, x := range r.s.courses {
		if x.CourseCode == c.CourseCode && x.Term() == c.Term() {
			return apperrors.ErrCourseCodeExists
		}
	}
	c.ID = r.s.id()
	r.s.courses[c.ID] = copyCourse(c)
	return nil
}

func (r *fakeCourseRepo) Update(ctx context.Context, c *models.Course) error {
	r.s.dataMu.Lock()
	defer r.s.dataMu.Unlock()
	stored, ok := r.s.courses[c.ID]
	if !ok {
		return apperrors.ErrCourseNotFound
	}
	if c.MaxStudents < stored.CurrentStudents {
		return apperrors.NewBadRequestError("max_students cannot be lower than the number of enrolled students")
	}
	if stored.CurrentStudents > 0 &&
		(c.Weekday != stored.Weekday || c.StartPeriod != stored.StartPeriod || c.EndPeriod != stored.EndPeriod) {
		return apperrors.NewBadRequestError("weekday and periods cannot change while students are enrolled")
	}
	counter, status := stored.CurrentStudents, stored.Status
	*stored = *c
	stored.CurrentStudents = counter
	stored.Status = status
	if status != models.CourseStatusClosed {
		stored.Status = stored.StatusAfterOpen()
	}
	return nil
}

func (r *fakeCourseRepo) UpdateStatus(ctx context.Context, id int64, status models.CourseStatus) error {
	r.s.dataMu.Lock()
	defer r.s.dataMu.Unlock()
	c, ok := r.s.courses[id]
	if !ok {
		return apperrors.ErrCourseNotFound
	}
	c.Status = status
	if status == models.CourseStatusOpen {
		c.Status = c.StatusAfterOpen()
	}
	return nil
}

func (r *fakeCourseRepo) Delete(ctx context.Context, id int64) error {
	r.s.dataMu.Lock()
	defer r.s.dataMu.Unlock()
	if _, ok := r.s.courses[id]; !ok {
		return apperrors.ErrCourseNotFound
	}
	delete(r.s.courses, id)
	return nil
}

func (r *fakeCourseRepo) Departments(ctx context.Context, year int) ([]string, error) {
	r.s.dataMu.Lock()
	defer r.s.dataMu.Unlock()
	seen := map[string]bool{}
	var out []string
	for _, c := range r.s.courses {
		if c.AcademicYear == year && !seen[c.Department] {
			seen[c.Department] = true
			out = append(out, c.Department)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (r *fakeCourseRepo) CountByTeacher(ctx context.Context, teacherID int64) (int, error) {
	r.s.dataMu.Lock()
	defer r.s.dataMu.Unlock()
	n := 0
	for _, c := range r.s.courses {
		if c.TeacherID != nil && *c.TeacherID == teacherID {
			n++
		}
	}
	return n, nil
}

// ---- favorite repository ----

type fakeFavoriteRepo struct{ s *memStore }

func (r *fakeFavoriteRepo) Toggle(ctx context.Context, studentID, courseID int64) (bool, error) {
	r.s.dataMu.Lock()
	defer r.s.dataMu.Unlock()
	key := [2]int64{studentID, courseID}
	if _, ok := r.s.favorites[key]; ok {
		delete(r.s.favorites, key)
		return false, nil
	}
	r.s.favorites[key] = time.Now()
	return true, nil
}

func (r *fakeFavoriteRepo) ListWithCourses(ctx context.Context, studentID int64) ([]*models.Favorite, error) {
	r.s.dataMu.Lock()
	defer r.s.dataMu.Unlock()
	var out []*models.Favorite
	for key, at := range r.s.favorites {
		if key[0] != studentID {
			continue
		}
		out = append(out, &models.Favorite{StudentID: key[0], CourseID: key[1], CreatedAt: at, Course: copyCourse(r.s.courses[key[1]])})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CourseID < out[j].CourseID })
	return out, nil
}

func (r *fakeFavoriteRepo) CourseIDs(ctx context.Context, studentID int64) (map[int64]time.Time, error) {
	r.s.dataMu.Lock()
	defer r.s.dataMu.Unlock()
	ids := map[int64]time.Time{}
	for key, at := range r.s.favorites {
		if key[0] == studentID {
			ids[key[1]] = at
		}
	}
	return ids, nil
}

// ---- user and token repositories ----

type fakeUserRepo struct{ s *memStore }

func (r *fakeUserRepo) Create(ctx context.Context, u *models.User) error {
	r.s.dataMu.Lock()
	defer r.s.dataMu.Unlock()
	for _, x := range r.s.users {
		if x.Username == u.Username {
			return apperrors.ErrUsernameExists
		}
	}
	u.ID = r.s.id()
	u.IsActive = true
	cp := *u
	r.s.users[u.ID] = &cp
	return nil
}

func (r *fakeUserRepo) GetByID(ctx context.Context, id int64) (*models.User, error) {
	r.s.dataMu.Lock()
	defer r.s.dataMu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, apperrors.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *fakeUserRepo) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	r.s.dataMu.Lock()
	defer r.s.dataMu.Unlock()
	for _, u := range r.s.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, apperrors.ErrUserNotFound
}

func (r *fakeUserRepo) UsernameExists(ctx context.Context, username string) (bool, error) {
	_, err := r.GetByUsername(ctx, username)
	return err == nil, nil
}

func (r *fakeUserRepo) UpdateLastLogin(ctx context.Context, id int64) error {
	r.s.dataMu.Lock()
	defer r.s.dataMu.Unlock()
	now := time.Now()
	r.s.users[id].LastLoginAt = &now
	return nil
}

func (r *fakeUserRepo) UpdatePassword(ctx context.Context, id int64, hash string) error {
	r.s.dataMu.Lock()
	defer r.s.dataMu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return apperrors.ErrUserNotFound
	}
	u.Password = hash
	u.ForcePasswordChange = false
	return nil
}

func (r *fakeUserRepo) ListByRole(ctx context.Context, role models.RoleType) ([]*models.User, error) {
	r.s.dataMu.Lock()
	defer r.s.dataMu.Unlock()
	var out []*models.User
	for _, u := range r.s.users {
		if u.HasRole(role) {
			cp := *u
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

func (r *fakeUserRepo) UpdateProfile(ctx context.Context, id int64, role models.RoleType, upd repositories.UserProfileUpdate) error {
	r.s.dataMu.Lock()
	defer r.s.dataMu.Unlock()
	u, ok := r.s.users[id]
	if !ok || !u.HasRole(role) {
		return apperrors.ErrUserNotFound
	}
	if upd.RealName != nil {
		u.RealName = *upd.RealName
	}
	if upd.StudentID != nil {
		u.StudentID = upd.StudentID
	}
	if upd.Department != nil {
		u.Department = upd.Department
	}
	if upd.Grade != nil {
		u.Grade = upd.Grade
	}
	if upd.Office != nil {
		u.Office = upd.Office
	}
	if upd.Title != nil {
		u.Title = upd.Title
	}
	return nil
}

func (r *fakeUserRepo) DeleteWithRole(ctx context.Context, id int64, role models.RoleType) error {
	r.s.dataMu.Lock()
	defer r.s.dataMu.Unlock()
	u, ok := r.s.users[id]
	if !ok || !u.HasRole(role) {
		return apperrors.ErrUserNotFound
	}
	delete(r.s.users, id)
	return nil
}

type fakeTokenRepo struct{ s *memStore }

func (r *fakeTokenRepo) CreateToken(ctx context.Context, token string, userID int64, expiry time.Time) error {
	r.s.dataMu.Lock()
	defer r.s.dataMu.Unlock()
	r.s.tokens[token] = fakeToken{userID: userID, expiry: expiry}
	return nil
}

func (r *fakeTokenRepo) GetUserIDByToken(ctx context.Context, token string) (int64, error) {
	r.s.dataMu.Lock()
	defer r.s.dataMu.Unlock()
	t, ok := r.s.tokens[token]
	switch {
	case !ok:
		return 0, apperrors.ErrTokenNotFound
	case t.revoked:
		return 0, apperrors.ErrTokenRevoked
	case time.Now().After(t.expiry):
		return 0, apperrors.ErrTokenExpired
	}
	return t.userID, nil
}

func (r *fakeTokenRepo) RevokeToken(ctx context.Context, token string) error {
	r.s.dataMu.Lock()
	defer r.s.dataMu.Unlock()
	t, ok := r.s.tokens[token]
	if !ok {
		return apperrors.ErrTokenNotFound
	}
	t.revoked = true
	r.s.tokens[token] = t
	return nil
}

func (r *fakeTokenRepo) RevokeAllUserTokens(ctx context.Context, userID int64) error {
	r.s.dataMu.Lock()
	defer r.s.dataMu.Unlock()
	for k, t := range r.s.tokens {
		if t.userID == userID {
			t.revoked = true
			r.s.tokens[k] = t
		}
	}
	return nil
}

func (r *fakeTokenRepo) CleanupExpiredTokens(ctx context.Context) (int64, error) {
	return 0, nil
}

// plainHasher keeps tests fast; bcrypt is covered in pkg/auth.
type plainHasher struct{}

func (plainHasher) Hash(p string) (string, error) { return "hashed:" + p, nil }
func (plainHasher) Check(h, p string) bool        { return h == "hashed:"+p }
