package registry

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/eralpk/studentreg/internal/app/models"
	"github.com/eralpk/studentreg/internal/pkg/apperrors"
	"github.com/eralpk/studentreg/internal/pkg/dberrors"
)

// CreditGroup is one bucket of the courses-by-credits grouping.
type CreditGroup struct {
	Credits int   `json:"credits"`
	Count   int64 `json:"count"`
}

func buildSelect(base string, conds, order []string) string {
	sql := base
	if len(conds) > 0 {
		sql += " WHERE " + strings.Join(conds, " AND ")
	}
	if len(order) > 0 {
		sql += " ORDER BY " + strings.Join(order, ", ")
	}
	return sql
}

func classifyQueryError(err error) error {
	if dberrors.IsConnectivityError(err) {
		return fmt.Errorf("%w: %v", apperrors.ErrStoreUnavailable, err)
	}
	return err
}

// Students returns students matching the given options. Materialized rows are
// tracked by the session; repeated loads of a row yield the same instance.
func (s *Session) Students(ctx context.Context, opts ...StudentOption) ([]*models.Student, error) {
	if s.closed {
		return nil, apperrors.ErrSessionClosed
	}

	q := &studentQuery{}
	for _, opt := range opts {
		opt(q)
	}

	query := buildSelect(
		`SELECT id, first_name, last_name, email, date_of_birth FROM students`,
		q.conds, q.order)

	rows, err := s.db.Query(ctx, query, q.args...)
	if err != nil {
		return nil, classifyQueryError(err)
	}
	defer rows.Close()

	var students []*models.Student
	for rows.Next() {
		var student models.Student
		if err := rows.Scan(
			&student.ID,
			&student.FirstName,
			&student.LastName,
			&student.Email,
			&student.DateOfBirth,
		); err != nil {
			return nil, err
		}
		students = append(students, s.tracker.trackStudent(&student))
	}
	if err := rows.Err(); err != nil {
		return nil, classifyQueryError(err)
	}

	if q.withEnrollments {
		if err := s.loadStudentEnrollments(ctx, students, q.withCourses); err != nil {
			return nil, err
		}
	}

	return students, nil
}

// StudentByID retrieves a single student, honoring eager-load options.
func (s *Session) StudentByID(ctx context.Context, id int64, opts ...StudentOption) (*models.Student, error) {
	if s.closed {
		return nil, apperrors.ErrSessionClosed
	}

	q := &studentQuery{}
	for _, opt := range opts {
		opt(q)
	}

	var student models.Student
	err := s.db.QueryRow(ctx,
		`SELECT id, first_name, last_name, email, date_of_birth FROM students WHERE id = $1`, id).Scan(
		&student.ID,
		&student.FirstName,
		&student.LastName,
		&student.Email,
		&student.DateOfBirth,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrStudentNotFound
		}
		return nil, classifyQueryError(err)
	}

	tracked := s.tracker.trackStudent(&student)

	if q.withEnrollments {
		if err := s.loadStudentEnrollments(ctx, []*models.Student{tracked}, q.withCourses); err != nil {
			return nil, err
		}
	}

	return tracked, nil
}

// loadStudentEnrollments fetches the enrollments of the given students in one
// read and attaches them, optionally joining each enrollment's course, so
// navigation after materialization never touches the store.
func (s *Session) loadStudentEnrollments(ctx context.Context, students []*models.Student, withCourses bool) error {
	if len(students) == 0 {
		return nil
	}

	byID := make(map[int64]*models.Student, len(students))
	ids := make([]int64, 0, len(students))
	for _, student := range students {
		student.Enrollments = nil
		byID[student.ID] = student
		ids = append(ids, student.ID)
	}

	query := `SELECT e.id, e.student_id, e.course_id, e.grade, e.enrolled_at
		FROM enrollments e WHERE e.student_id = ANY($1) ORDER BY e.id`
	if withCourses {
		query = `SELECT e.id, e.student_id, e.course_id, e.grade, e.enrolled_at,
			c.id, c.code, c.title, c.description, c.credits
			FROM enrollments e JOIN courses c ON c.id = e.course_id
			WHERE e.student_id = ANY($1) ORDER BY e.id`
	}

	rows, err := s.db.Query(ctx, query, ids)
	if err != nil {
		return classifyQueryError(err)
	}
	defer rows.Close()

	for rows.Next() {
		var enrollment models.Enrollment
		var course models.Course

		if withCourses {
			err = rows.Scan(
				&enrollment.ID, &enrollment.StudentID, &enrollment.CourseID,
				&enrollment.Grade, &enrollment.EnrolledAt,
				&course.ID, &course.Code, &course.Title, &course.Description, &course.Credits,
			)
		} else {
			err = rows.Scan(
				&enrollment.ID, &enrollment.StudentID, &enrollment.CourseID,
				&enrollment.Grade, &enrollment.EnrolledAt,
			)
		}
		if err != nil {
			return err
		}

		tracked := s.tracker.trackEnrollment(&enrollment)
		if withCourses {
			tracked.Course = s.tracker.trackCourse(&course)
		}
		if owner, ok := byID[tracked.StudentID]; ok {
			tracked.Student = owner
			owner.Enrollments = append(owner.Enrollments, tracked)
		}
	}

	return rows.Err()
}

// Courses returns courses matching the given options.
func (s *Session) Courses(ctx context.Context, opts ...CourseOption) ([]*models.Course, error) {
	if s.closed {
		return nil, apperrors.ErrSessionClosed
	}

	q := &courseQuery{}
	for _, opt := range opts {
		opt(q)
	}

	query := buildSelect(
		`SELECT id, code, title, description, credits FROM courses`,
		q.conds, q.order)

	rows, err := s.db.Query(ctx, query, q.args...)
	if err != nil {
		return nil, classifyQueryError(err)
	}
	defer rows.Close()

	var courses []*models.Course
	for rows.Next() {
		var course models.Course
		if err := rows.Scan(
			&course.ID,
			&course.Code,
			&course.Title,
			&course.Description,
			&course.Credits,
		); err != nil {
			return nil, err
		}
		courses = append(courses, s.tracker.trackCourse(&course))
	}
	if err := rows.Err(); err != nil {
		return nil, classifyQueryError(err)
	}

	return courses, nil
}

// CourseByID retrieves a single course.
func (s *Session) CourseByID(ctx context.Context, id int64) (*models.Course, error) {
	if s.closed {
		return nil, apperrors.ErrSessionClosed
	}

	var course models.Course
	err := s.db.QueryRow(ctx,
		`SELECT id, code, title, description, credits FROM courses WHERE id = $1`, id).Scan(
		&course.ID,
		&course.Code,
		&course.Title,
		&course.Description,
		&course.Credits,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrCourseNotFound
		}
		return nil, classifyQueryError(err)
	}

	return s.tracker.trackCourse(&course), nil
}

// Enrollments returns enrollments matching the given options.
func (s *Session) Enrollments(ctx context.Context, opts ...EnrollmentOption) ([]*models.Enrollment, error) {
	if s.closed {
		return nil, apperrors.ErrSessionClosed
	}

	q := &enrollmentQuery{}
	for _, opt := range opts {
		opt(q)
	}

	cols := "enrollments.id, enrollments.student_id, enrollments.course_id, enrollments.grade, enrollments.enrolled_at"
	from := "enrollments"
	if q.withStudent {
		cols += ", s.id, s.first_name, s.last_name, s.email, s.date_of_birth"
		from += " JOIN students s ON s.id = enrollments.student_id"
	}
	if q.withCourse {
		cols += ", c.id, c.code, c.title, c.description, c.credits"
		from += " JOIN courses c ON c.id = enrollments.course_id"
	}

	query := buildSelect(fmt.Sprintf("SELECT %s FROM %s", cols, from), q.conds, q.order)

	rows, err := s.db.Query(ctx, query, q.args...)
	if err != nil {
		return nil, classifyQueryError(err)
	}
	defer rows.Close()

	var enrollments []*models.Enrollment
	for rows.Next() {
		var enrollment models.Enrollment
		var student models.Student
		var course models.Course

		dest := []any{
			&enrollment.ID, &enrollment.StudentID, &enrollment.CourseID,
			&enrollment.Grade, &enrollment.EnrolledAt,
		}
		if q.withStudent {
			dest = append(dest, &student.ID, &student.FirstName, &student.LastName, &student.Email, &student.DateOfBirth)
		}
		if q.withCourse {
			dest = append(dest, &course.ID, &course.Code, &course.Title, &course.Description, &course.Credits)
		}

		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}

		tracked := s.tracker.trackEnrollment(&enrollment)
		if q.withStudent {
			tracked.Student = s.tracker.trackStudent(&student)
		}
		if q.withCourse {
			tracked.Course = s.tracker.trackCourse(&course)
		}
		enrollments = append(enrollments, tracked)
	}
	if err := rows.Err(); err != nil {
		return nil, classifyQueryError(err)
	}

	return enrollments, nil
}

// EnrollmentByID retrieves a single enrollment.
func (s *Session) EnrollmentByID(ctx context.Context, id int64) (*models.Enrollment, error) {
	if s.closed {
		return nil, apperrors.ErrSessionClosed
	}

	var enrollment models.Enrollment
	err := s.db.QueryRow(ctx,
		`SELECT id, student_id, course_id, grade, enrolled_at FROM enrollments WHERE id = $1`, id).Scan(
		&enrollment.ID,
		&enrollment.StudentID,
		&enrollment.CourseID,
		&enrollment.Grade,
		&enrollment.EnrolledAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrEnrollmentNotFound
		}
		return nil, classifyQueryError(err)
	}

	return s.tracker.trackEnrollment(&enrollment), nil
}

// CountStudents counts students matching the given filter options.
// Eager-load options are ignored.
func (s *Session) CountStudents(ctx context.Context, opts ...StudentOption) (int64, error) {
	if s.closed {
		return 0, apperrors.ErrSessionClosed
	}

	q := &studentQuery{}
	for _, opt := range opts {
		opt(q)
	}

	query := buildSelect(`SELECT COUNT(*) FROM students`, q.conds, nil)

	var count int64
	if err := s.db.QueryRow(ctx, query, q.args...).Scan(&count); err != nil {
		return 0, classifyQueryError(err)
	}
	return count, nil
}

// CountCourses counts courses matching the given filter options.
func (s *Session) CountCourses(ctx context.Context, opts ...CourseOption) (int64, error) {
	if s.closed {
		return 0, apperrors.ErrSessionClosed
	}

	q := &courseQuery{}
	for _, opt := range opts {
		opt(q)
	}

	query := buildSelect(`SELECT COUNT(*) FROM courses`, q.conds, nil)

	var count int64
	if err := s.db.QueryRow(ctx, query, q.args...).Scan(&count); err != nil {
		return 0, classifyQueryError(err)
	}
	return count, nil
}

// CountEnrollments counts enrollments matching the given filter options.
// Eager-load options are ignored.
func (s *Session) CountEnrollments(ctx context.Context, opts ...EnrollmentOption) (int64, error) {
	if s.closed {
		return 0, apperrors.ErrSessionClosed
	}

	q := &enrollmentQuery{}
	for _, opt := range opts {
		opt(q)
	}

	query := buildSelect(`SELECT COUNT(*) FROM enrollments`, q.conds, nil)

	var count int64
	if err := s.db.QueryRow(ctx, query, q.args...).Scan(&count); err != nil {
		return 0, classifyQueryError(err)
	}
	return count, nil
}

// AverageCourseCredits averages the credit count over all courses. An empty
// courses table averages to zero.
func (s *Session) AverageCourseCredits(ctx context.Context) (float64, error) {
	if s.closed {
		return 0, apperrors.ErrSessionClosed
	}

	var average float64
	err := s.db.QueryRow(ctx,
		`SELECT COALESCE(AVG(credits), 0)::float8 FROM courses`).Scan(&average)
	if err != nil {
		return 0, classifyQueryError(err)
	}
	return average, nil
}

// GroupCoursesByCredits buckets courses by credit count, ordered by credits
// ascending.
func (s *Session) GroupCoursesByCredits(ctx context.Context) ([]CreditGroup, error) {
	if s.closed {
		return nil, apperrors.ErrSessionClosed
	}

	rows, err := s.db.Query(ctx,
		`SELECT credits, COUNT(*) FROM courses GROUP BY credits ORDER BY credits`)
	if err != nil {
		return nil, classifyQueryError(err)
	}
	defer rows.Close()

	var groups []CreditGroup
	for rows.Next() {
		var group CreditGroup
		if err := rows.Scan(&group.Credits, &group.Count); err != nil {
			return nil, err
		}
		groups = append(groups, group)
	}
	if err := rows.Err(); err != nil {
		return nil, classifyQueryError(err)
	}

	return groups, nil
}
