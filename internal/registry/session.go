// Package registry is the data access layer: it mediates between in-memory
// entity instances and the PostgreSQL store. A Session is one unit of work;
// entities are staged or tracked in memory and flushed atomically by Persist.
package registry

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/eralpk/studentreg/internal/app/models"
	"github.com/eralpk/studentreg/internal/db"
	"github.com/eralpk/studentreg/internal/pkg/apperrors"
	"github.com/eralpk/studentreg/internal/pkg/dberrors"
	"github.com/eralpk/studentreg/internal/pkg/logger"
	"github.com/eralpk/studentreg/internal/schema"
)

// Session is a unit-of-work over the store. It tracks entities loaded by its
// queries, stages adds and removes, and flushes everything in one transaction
// on Persist. A session must not be shared between goroutines; its tracking
// state is unsynchronized.
type Session struct {
	id  string
	db  db.DB
	log zerolog.Logger

	tracker *tracker

	addedStudents    []*models.Student
	addedCourses     []*models.Course
	addedEnrollments []*models.Enrollment

	removedStudents    map[int64]*models.Student
	removedCourses     map[int64]*models.Course
	removedEnrollments map[int64]*models.Enrollment

	closed bool
}

// NewSession opens a unit-of-work session against the given store.
func NewSession(database db.DB) *Session {
	id := uuid.NewString()
	return &Session{
		id:                 id,
		db:                 database,
		log:                logger.WithField("session", id),
		tracker:            newTracker(),
		removedStudents:    make(map[int64]*models.Student),
		removedCourses:     make(map[int64]*models.Course),
		removedEnrollments: make(map[int64]*models.Enrollment),
	}
}

// ID returns the session identifier used in logs.
func (s *Session) ID() string {
	return s.id
}

// Close discards all tracked and staged state. The session must not be used
// afterwards.
func (s *Session) Close() {
	if s.closed {
		return
	}
	s.closed = true
	s.tracker = newTracker()
	s.addedStudents = nil
	s.addedCourses = nil
	s.addedEnrollments = nil
	s.removedStudents = nil
	s.removedCourses = nil
	s.removedEnrollments = nil
}

// AddStudent stages a new student for insertion at the next Persist.
func (s *Session) AddStudent(student *models.Student) {
	if s.closed || student == nil {
		return
	}
	s.addedStudents = append(s.addedStudents, student)
}

// AddCourse stages a new course for insertion at the next Persist.
func (s *Session) AddCourse(course *models.Course) {
	if s.closed || course == nil {
		return
	}
	s.addedCourses = append(s.addedCourses, course)
}

// AddEnrollment stages a new enrollment for insertion at the next Persist.
// The enrollment date defaults to the current time when unset; the store has
// no server-side default for it.
func (s *Session) AddEnrollment(enrollment *models.Enrollment) {
	if s.closed || enrollment == nil {
		return
	}
	if enrollment.EnrolledAt.IsZero() {
		enrollment.EnrolledAt = nowUTC()
	}
	s.addedEnrollments = append(s.addedEnrollments, enrollment)
}

// RemoveStudent stages a student for deletion. Its enrollments are deleted
// with it in the same transaction.
func (s *Session) RemoveStudent(student *models.Student) {
	if s.closed || student == nil {
		return
	}
	if student.ID == 0 {
		s.addedStudents = removeStaged(s.addedStudents, student)
		return
	}
	s.removedStudents[student.ID] = student
	s.tracker.forgetStudent(student.ID)
}

// RemoveCourse stages a course for deletion. Its enrollments are deleted with
// it in the same transaction.
func (s *Session) RemoveCourse(course *models.Course) {
	if s.closed || course == nil {
		return
	}
	if course.ID == 0 {
		s.addedCourses = removeStaged(s.addedCourses, course)
		return
	}
	s.removedCourses[course.ID] = course
	s.tracker.forgetCourse(course.ID)
}

// RemoveEnrollment stages an enrollment for deletion.
func (s *Session) RemoveEnrollment(enrollment *models.Enrollment) {
	if s.closed || enrollment == nil {
		return
	}
	if enrollment.ID == 0 {
		s.addedEnrollments = removeStaged(s.addedEnrollments, enrollment)
		return
	}
	s.removedEnrollments[enrollment.ID] = enrollment
	s.tracker.forgetEnrollment(enrollment.ID)
}

// RemoveEnrollments stages a batch of enrollments for deletion.
func (s *Session) RemoveEnrollments(enrollments []*models.Enrollment) {
	for _, e := range enrollments {
		s.RemoveEnrollment(e)
	}
}

// removeStaged drops a pending insert again before it ever reaches the store.
func removeStaged[T comparable](staged []T, target T) []T {
	for i, v := range staged {
		if v == target {
			return append(staged[:i], staged[i+1:]...)
		}
	}
	return staged
}

// Persist flushes all staged inserts, updates and deletes in one transaction
// and returns the number of affected rows. Every staged insert and every
// dirty tracked entity is validated first; any violation fails the whole
// persist before a single row is written. Constraint rejections from the
// store roll the transaction back as a unit.
func (s *Session) Persist(ctx context.Context) (int, error) {
	if s.closed {
		return 0, apperrors.ErrSessionClosed
	}

	dirtyStudents := s.tracker.dirtyStudents()
	dirtyCourses := s.tracker.dirtyCourses()
	dirtyEnrollments := s.tracker.dirtyEnrollments()

	if violations := s.collectViolations(dirtyStudents, dirtyCourses, dirtyEnrollments); len(violations) > 0 {
		return 0, apperrors.NewValidationError(violations)
	}

	affected := 0
	err := db.WithTransaction(ctx, s.db, func(ctx context.Context, tx pgx.Tx) error {
		n, err := s.applyDeletes(ctx, tx)
		if err != nil {
			return err
		}
		affected += n

		n, err = s.applyUpdates(ctx, tx, dirtyStudents, dirtyCourses, dirtyEnrollments)
		if err != nil {
			return err
		}
		affected += n

		n, err = s.applyInserts(ctx, tx)
		if err != nil {
			return err
		}
		affected += n

		return nil
	})
	if err != nil {
		return 0, classifyPersistError(err)
	}

	s.commitTrackingState(dirtyStudents, dirtyCourses, dirtyEnrollments)

	s.log.Debug().Int("affected", affected).Msg("Persist completed")
	return affected, nil
}

// collectViolations validates staged inserts and dirty tracked entities.
func (s *Session) collectViolations(dirtyStudents []*models.Student, dirtyCourses []*models.Course, dirtyEnrollments []*models.Enrollment) []apperrors.FieldViolation {
	var violations []apperrors.FieldViolation

	for _, st := range s.addedStudents {
		violations = append(violations, st.Validate()...)
	}
	for _, st := range dirtyStudents {
		violations = append(violations, st.Validate()...)
	}
	for _, c := range s.addedCourses {
		violations = append(violations, c.Validate()...)
	}
	for _, c := range dirtyCourses {
		violations = append(violations, c.Validate()...)
	}
	for _, e := range s.addedEnrollments {
		violations = append(violations, e.Validate()...)
	}
	for _, e := range dirtyEnrollments {
		violations = append(violations, e.Validate()...)
	}

	return violations
}

// applyDeletes removes staged enrollments first, then dependent enrollments
// of removed parents, then the parents. The explicit dependent delete keeps
// the session's view and the store in agreement; the schema's ON DELETE
// CASCADE covers writers that bypass the session.
func (s *Session) applyDeletes(ctx context.Context, tx pgx.Tx) (int, error) {
	affected := 0

	for id := range s.removedEnrollments {
		tag, err := tx.Exec(ctx, `DELETE FROM enrollments WHERE id = $1`, id)
		if err != nil {
			return 0, fmt.Errorf("failed to delete enrollment %d: %w", id, err)
		}
		affected += int(tag.RowsAffected())
	}

	for id := range s.removedStudents {
		tag, err := tx.Exec(ctx, `DELETE FROM enrollments WHERE student_id = $1`, id)
		if err != nil {
			return 0, fmt.Errorf("failed to delete enrollments of student %d: %w", id, err)
		}
		affected += int(tag.RowsAffected())
	}

	for id := range s.removedCourses {
		tag, err := tx.Exec(ctx, `DELETE FROM enrollments WHERE course_id = $1`, id)
		if err != nil {
			return 0, fmt.Errorf("failed to delete enrollments of course %d: %w", id, err)
		}
		affected += int(tag.RowsAffected())
	}

	for id := range s.removedStudents {
		tag, err := tx.Exec(ctx, `DELETE FROM students WHERE id = $1`, id)
		if err != nil {
			return 0, fmt.Errorf("failed to delete student %d: %w", id, err)
		}
		affected += int(tag.RowsAffected())
	}

	for id := range s.removedCourses {
		tag, err := tx.Exec(ctx, `DELETE FROM courses WHERE id = $1`, id)
		if err != nil {
			return 0, fmt.Errorf("failed to delete course %d: %w", id, err)
		}
		affected += int(tag.RowsAffected())
	}

	return affected, nil
}

// applyUpdates writes tracked entities whose fields changed since their
// snapshot was taken.
func (s *Session) applyUpdates(ctx context.Context, tx pgx.Tx, students []*models.Student, courses []*models.Course, enrollments []*models.Enrollment) (int, error) {
	affected := 0

	for _, st := range students {
		tag, err := tx.Exec(ctx,
			`UPDATE students SET first_name = $1, last_name = $2, email = $3, date_of_birth = $4 WHERE id = $5`,
			st.FirstName, st.LastName, st.Email, st.DateOfBirth, st.ID)
		if err != nil {
			return 0, fmt.Errorf("failed to update student %d: %w", st.ID, err)
		}
		affected += int(tag.RowsAffected())
	}

	for _, c := range courses {
		tag, err := tx.Exec(ctx,
			`UPDATE courses SET code = $1, title = $2, description = $3, credits = $4 WHERE id = $5`,
			c.Code, c.Title, c.Description, c.Credits, c.ID)
		if err != nil {
			return 0, fmt.Errorf("failed to update course %d: %w", c.ID, err)
		}
		affected += int(tag.RowsAffected())
	}

	for _, e := range enrollments {
		tag, err := tx.Exec(ctx,
			`UPDATE enrollments SET student_id = $1, course_id = $2, grade = $3, enrolled_at = $4 WHERE id = $5`,
			e.StudentID, e.CourseID, e.Grade, e.EnrolledAt, e.ID)
		if err != nil {
			return 0, fmt.Errorf("failed to update enrollment %d: %w", e.ID, err)
		}
		affected += int(tag.RowsAffected())
	}

	return affected, nil
}

// applyInserts writes staged entities, parents before enrollments, assigning
// store-generated identities as it goes.
func (s *Session) applyInserts(ctx context.Context, tx pgx.Tx) (int, error) {
	affected := 0

	for _, st := range s.addedStudents {
		err := tx.QueryRow(ctx,
			`INSERT INTO students (first_name, last_name, email, date_of_birth) VALUES ($1, $2, $3, $4) RETURNING id`,
			st.FirstName, st.LastName, st.Email, st.DateOfBirth).Scan(&st.ID)
		if err != nil {
			return 0, fmt.Errorf("failed to insert student: %w", err)
		}
		affected++
	}

	for _, c := range s.addedCourses {
		err := tx.QueryRow(ctx,
			`INSERT INTO courses (code, title, description, credits) VALUES ($1, $2, $3, $4) RETURNING id`,
			c.Code, c.Title, c.Description, c.Credits).Scan(&c.ID)
		if err != nil {
			return 0, fmt.Errorf("failed to insert course: %w", err)
		}
		affected++
	}

	for _, e := range s.addedEnrollments {
		err := tx.QueryRow(ctx,
			`INSERT INTO enrollments (student_id, course_id, grade, enrolled_at) VALUES ($1, $2, $3, $4) RETURNING id`,
			e.StudentID, e.CourseID, e.Grade, e.EnrolledAt).Scan(&e.ID)
		if err != nil {
			return 0, fmt.Errorf("failed to insert enrollment: %w", err)
		}
		affected++
	}

	return affected, nil
}

// commitTrackingState moves staged inserts into the tracked set, refreshes
// snapshots of updated entities and drops deleted ones. Called only after a
// successful commit; a failed persist leaves all staging intact so the caller
// can correct and retry.
func (s *Session) commitTrackingState(dirtyStudents []*models.Student, dirtyCourses []*models.Course, dirtyEnrollments []*models.Enrollment) {
	for _, st := range s.addedStudents {
		s.tracker.trackStudent(st)
	}
	for _, c := range s.addedCourses {
		s.tracker.trackCourse(c)
	}
	for _, e := range s.addedEnrollments {
		s.tracker.trackEnrollment(e)
	}
	s.addedStudents = nil
	s.addedCourses = nil
	s.addedEnrollments = nil

	for _, st := range dirtyStudents {
		s.tracker.refreshStudent(st)
	}
	for _, c := range dirtyCourses {
		s.tracker.refreshCourse(c)
	}
	for _, e := range dirtyEnrollments {
		s.tracker.refreshEnrollment(e)
	}

	s.removedStudents = make(map[int64]*models.Student)
	s.removedCourses = make(map[int64]*models.Course)
	s.removedEnrollments = make(map[int64]*models.Enrollment)
}

// classifyPersistError maps store rejections onto the error taxonomy.
func classifyPersistError(err error) error {
	switch {
	case dberrors.IsUniqueConstraintError(err, schema.UniqueEnrollmentConstraint):
		return fmt.Errorf("%w: %v", apperrors.ErrDuplicateEnrollment, err)
	case dberrors.IsForeignKeyViolation(err):
		return fmt.Errorf("%w: %v", apperrors.ErrEnrollmentParentMissing, err)
	case dberrors.IsUniqueViolation(err), dberrors.IsCheckViolation(err):
		return fmt.Errorf("%w: %v", apperrors.ErrConstraintViolation, err)
	case dberrors.IsConnectivityError(err):
		return fmt.Errorf("%w: %v", apperrors.ErrStoreUnavailable, err)
	}
	return err
}
