package registry

import (
	"time"

	"github.com/eralpk/studentreg/internal/app/models"
)

func nowUTC() time.Time {
	return time.Now().UTC()
}

// tracker is the session-scoped change tracker. For every entity loaded from
// or persisted to the store it keeps the live pointer handed to the caller
// and a value snapshot of its last-known persisted state. Persist diffs the
// live fields against the snapshot to decide between update and no-op; there
// is no implicit mutation observation.
type tracker struct {
	students    map[int64]*trackedStudent
	courses     map[int64]*trackedCourse
	enrollments map[int64]*trackedEnrollment
}

type trackedStudent struct {
	live *models.Student
	snap models.Student
}

type trackedCourse struct {
	live *models.Course
	snap models.Course
}

type trackedEnrollment struct {
	live *models.Enrollment
	snap models.Enrollment
}

func newTracker() *tracker {
	return &tracker{
		students:    make(map[int64]*trackedStudent),
		courses:     make(map[int64]*trackedCourse),
		enrollments: make(map[int64]*trackedEnrollment),
	}
}

// trackStudent registers a student and returns the canonical instance for its
// identity. Loading the same row twice within a session yields the same
// pointer; the first loaded instance wins.
func (t *tracker) trackStudent(s *models.Student) *models.Student {
	if existing, ok := t.students[s.ID]; ok {
		return existing.live
	}
	t.students[s.ID] = &trackedStudent{live: s, snap: snapshotStudent(s)}
	return s
}

func (t *tracker) trackCourse(c *models.Course) *models.Course {
	if existing, ok := t.courses[c.ID]; ok {
		return existing.live
	}
	t.courses[c.ID] = &trackedCourse{live: c, snap: snapshotCourse(c)}
	return c
}

func (t *tracker) trackEnrollment(e *models.Enrollment) *models.Enrollment {
	if existing, ok := t.enrollments[e.ID]; ok {
		return existing.live
	}
	t.enrollments[e.ID] = &trackedEnrollment{live: e, snap: snapshotEnrollment(e)}
	return e
}

func (t *tracker) forgetStudent(id int64)    { delete(t.students, id) }
func (t *tracker) forgetCourse(id int64)     { delete(t.courses, id) }
func (t *tracker) forgetEnrollment(id int64) { delete(t.enrollments, id) }

// refreshStudent resets the snapshot to the entity's current state after a
// successful persist.
func (t *tracker) refreshStudent(s *models.Student) {
	if tracked, ok := t.students[s.ID]; ok {
		tracked.snap = snapshotStudent(s)
	}
}

func (t *tracker) refreshCourse(c *models.Course) {
	if tracked, ok := t.courses[c.ID]; ok {
		tracked.snap = snapshotCourse(c)
	}
}

func (t *tracker) refreshEnrollment(e *models.Enrollment) {
	if tracked, ok := t.enrollments[e.ID]; ok {
		tracked.snap = snapshotEnrollment(e)
	}
}

// dirtyStudents returns tracked students whose fields differ from their
// snapshot.
func (t *tracker) dirtyStudents() []*models.Student {
	var dirty []*models.Student
	for _, tracked := range t.students {
		if studentChanged(tracked.live, tracked.snap) {
			dirty = append(dirty, tracked.live)
		}
	}
	return dirty
}

func (t *tracker) dirtyCourses() []*models.Course {
	var dirty []*models.Course
	for _, tracked := range t.courses {
		if courseChanged(tracked.live, tracked.snap) {
			dirty = append(dirty, tracked.live)
		}
	}
	return dirty
}

func (t *tracker) dirtyEnrollments() []*models.Enrollment {
	var dirty []*models.Enrollment
	for _, tracked := range t.enrollments {
		if enrollmentChanged(tracked.live, tracked.snap) {
			dirty = append(dirty, tracked.live)
		}
	}
	return dirty
}

// Snapshots copy column fields only; relation pointers are navigation state,
// not persisted columns.

func snapshotStudent(s *models.Student) models.Student {
	snap := *s
	snap.Enrollments = nil
	return snap
}

func snapshotCourse(c *models.Course) models.Course {
	snap := *c
	snap.Enrollments = nil
	if c.Description != nil {
		desc := *c.Description
		snap.Description = &desc
	}
	return snap
}

func snapshotEnrollment(e *models.Enrollment) models.Enrollment {
	snap := *e
	snap.Student = nil
	snap.Course = nil
	if e.Grade != nil {
		grade := *e.Grade
		snap.Grade = &grade
	}
	return snap
}

func studentChanged(live *models.Student, snap models.Student) bool {
	return live.FirstName != snap.FirstName ||
		live.LastName != snap.LastName ||
		live.Email != snap.Email ||
		!live.DateOfBirth.Equal(snap.DateOfBirth)
}

func courseChanged(live *models.Course, snap models.Course) bool {
	return live.Code != snap.Code ||
		live.Title != snap.Title ||
		!stringPtrEqual(live.Description, snap.Description) ||
		live.Credits != snap.Credits
}

func enrollmentChanged(live *models.Enrollment, snap models.Enrollment) bool {
	return live.StudentID != snap.StudentID ||
		live.CourseID != snap.CourseID ||
		!stringPtrEqual(live.Grade, snap.Grade) ||
		!live.EnrolledAt.Equal(snap.EnrolledAt)
}

func stringPtrEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
